package inventory

import (
	"context"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/warehousing"
)

// TransactionScope provides transactional access to the ledger repositories.
// If fn returns an error the transaction is rolled back, otherwise it is
// committed.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories are the repositories sharing one transaction.
//
//   - CounterRepo: StockCounter aggregate, row locked while posting
//   - LedgerRepo: append-only ledger entries
//   - DocumentRepo: warehouse documents produced alongside postings
type TransactionalRepositories interface {
	CounterRepo() inventory.StockCounterRepository
	LedgerRepo() inventory.LedgerEntryRepository
	DocumentRepo() warehousing.DocumentRepository
}
