package inventory

import (
	"context"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/google/uuid"
)

// StockLocker serialises postings on counters across processes before the
// database transaction starts. Keys must be locked in the order given, which
// callers keep sorted. The database row lock stays authoritative.
type StockLocker interface {
	Lock(ctx context.Context, tenantID uuid.UUID, keys []inventory.CounterKey) (release func(), err error)
}

type noopLocker struct{}

func (noopLocker) Lock(context.Context, uuid.UUID, []inventory.CounterKey) (func(), error) {
	return func() {}, nil
}

// NoopLocker relies on database row locks only
var NoopLocker StockLocker = noopLocker{}
