package trade

import (
	"context"

	appinv "github.com/erp/fulfillment/internal/application/inventory"
	"github.com/erp/fulfillment/internal/domain/trade"
)

// TransactionScope provides transactional access to the fulfillment
// repositories. Ledger postings, documents and the order or purchase they
// belong to commit or roll back together.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories extends the ledger repositories with the trade
// aggregates
type TransactionalRepositories interface {
	appinv.TransactionalRepositories
	PurchaseRepo() trade.PurchaseRepository
	OrderRepo() trade.OrderRepository
}
