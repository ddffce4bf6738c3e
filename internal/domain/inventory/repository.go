package inventory

import (
	"context"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// StockCounterRepository persists stock counters
type StockCounterRepository interface {
	// FindByKey returns the counter or shared.ErrNotFound
	FindByKey(ctx context.Context, tenantID uuid.UUID, key CounterKey) (*StockCounter, error)
	// GetOrCreate returns the counter, creating an empty one when none exists
	GetOrCreate(ctx context.Context, tenantID uuid.UUID, key CounterKey) (*StockCounter, error)
	// FindByKeyForUpdate returns the counter holding a row lock until the
	// surrounding transaction ends
	FindByKeyForUpdate(ctx context.Context, tenantID uuid.UUID, key CounterKey) (*StockCounter, error)
	// GetOrCreateForUpdate returns the locked counter, creating an empty one
	// first when none exists
	GetOrCreateForUpdate(ctx context.Context, tenantID uuid.UUID, key CounterKey) (*StockCounter, error)
	// SaveWithLock updates the counter only if its version is unchanged and
	// returns shared.ErrConcurrencyConflict otherwise
	SaveWithLock(ctx context.Context, counter *StockCounter) error
	FindByWarehouse(ctx context.Context, tenantID, warehouseID uuid.UUID, filter shared.Filter) ([]StockCounter, int64, error)
	FindBelowMinimum(ctx context.Context, tenantID uuid.UUID) ([]StockCounter, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]StockCounter, error)
	// TenantIDs returns every tenant that owns at least one counter
	TenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// LedgerEntryRepository persists ledger entries. Entries are append-only.
type LedgerEntryRepository interface {
	Create(ctx context.Context, entry *LedgerEntry) error
	// FindByCounter returns the counter's entries ordered by sequence
	FindByCounter(ctx context.Context, tenantID, counterID uuid.UUID) ([]LedgerEntry, error)
	FindByDocument(ctx context.Context, tenantID uuid.UUID, documentSerial string) ([]LedgerEntry, error)
	Find(ctx context.Context, tenantID uuid.UUID, query LedgerQuery) ([]LedgerEntry, int64, error)
}

// LedgerQuery filters ledger listings
type LedgerQuery struct {
	WarehouseID *uuid.UUID
	SkuID       *uuid.UUID
	Operation   OperationType
	shared.Filter
}
