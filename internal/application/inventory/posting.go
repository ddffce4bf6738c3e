package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// LedgerRepositories is the subset of repositories a posting needs
type LedgerRepositories interface {
	CounterRepo() inventory.StockCounterRepository
	LedgerRepo() inventory.LedgerEntryRepository
}

// PostResult carries what a batch of postings wrote
type PostResult struct {
	Entries  []*inventory.LedgerEntry
	Counters []*inventory.StockCounter
}

// Events returns the pending domain events of every touched counter
func (r *PostResult) Events() []shared.DomainEvent {
	var events []shared.DomainEvent
	for _, c := range r.Counters {
		events = append(events, c.PopDomainEvents()...)
	}
	return events
}

// PostAll records a batch of postings inside the caller's transaction.
//
// Counters are locked in (warehouse, sku) order. Every posting is checked
// against the running counts before anything is written, so an outbound
// shortfall on any SKU rejects the whole batch with one
// InsufficientStockError naming every short SKU.
func PostAll(ctx context.Context, repos LedgerRepositories, tenantID uuid.UUID, postings []inventory.Posting, at time.Time) (*PostResult, error) {
	if len(postings) == 0 {
		return &PostResult{}, nil
	}
	for _, p := range postings {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}

	sorted := make([]inventory.Posting, len(postings))
	copy(sorted, postings)
	inventory.SortPostings(sorted)

	counters := make(map[inventory.CounterKey]*inventory.StockCounter)
	ordered := make([]*inventory.StockCounter, 0)
	for _, key := range inventory.DistinctKeys(sorted) {
		counter, err := repos.CounterRepo().GetOrCreateForUpdate(ctx, tenantID, key)
		if err != nil {
			return nil, err
		}
		counters[key] = counter
		ordered = append(ordered, counter)
	}

	running := make(map[inventory.CounterKey]int64, len(counters))
	for key, c := range counters {
		running[key] = c.CurrentCount
	}
	var shortages []inventory.Shortage
	for _, p := range sorted {
		key := p.Key()
		if p.Direction() == inventory.DirectionOut && p.Quantity > running[key] {
			shortages = append(shortages, inventory.Shortage{
				WarehouseID: p.WarehouseID,
				SkuID:       p.SkuID,
				Requested:   p.Quantity,
				Available:   running[key],
			})
			continue
		}
		running[key] += p.Signed()
	}
	if len(shortages) > 0 {
		return nil, inventory.NewInsufficientStockError(shortages...)
	}

	result := &PostResult{Counters: ordered}
	for _, p := range sorted {
		counter := counters[p.Key()]
		entry, err := counter.Post(p, at)
		if err != nil {
			return nil, err
		}
		if err := repos.LedgerRepo().Create(ctx, entry); err != nil {
			return nil, err
		}
		result.Entries = append(result.Entries, entry)
	}
	for _, c := range ordered {
		if err := repos.CounterRepo().SaveWithLock(ctx, c); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// CheckAvailable verifies that every requested quantity is covered by the
// counter's available count (current minus presale). All shortages are
// reported together. Missing counters count as zero.
func CheckAvailable(ctx context.Context, repos LedgerRepositories, tenantID uuid.UUID, requested map[inventory.CounterKey]int64) error {
	keys := make([]inventory.CounterKey, 0, len(requested))
	for k := range requested {
		keys = append(keys, k)
	}
	inventory.SortKeys(keys)

	var shortages []inventory.Shortage
	for _, key := range keys {
		qty := requested[key]
		var available int64
		counter, err := repos.CounterRepo().FindByKeyForUpdate(ctx, tenantID, key)
		switch {
		case err == nil:
			available = counter.Available()
		case errors.Is(err, shared.ErrNotFound):
			available = 0
		default:
			return err
		}
		if available < qty {
			shortages = append(shortages, inventory.Shortage{
				WarehouseID: key.WarehouseID,
				SkuID:       key.SkuID,
				Requested:   qty,
				Available:   available,
			})
		}
	}
	if len(shortages) > 0 {
		return inventory.NewInsufficientStockError(shortages...)
	}
	return nil
}

// Retry runs fn again when it fails with a concurrency conflict, up to
// attempts times in total.
func Retry(ctx context.Context, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil || !errors.Is(err, shared.ErrConcurrencyConflict) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		time.Sleep(time.Duration(i+1) * 10 * time.Millisecond)
	}
	return err
}
