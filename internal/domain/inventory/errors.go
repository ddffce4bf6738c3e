package inventory

import (
	"fmt"
	"strings"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// Shortage describes one SKU that cannot cover a requested quantity
type Shortage struct {
	WarehouseID uuid.UUID `json:"warehouse_id"`
	SkuID       uuid.UUID `json:"sku_id"`
	Requested   int64     `json:"requested"`
	Available   int64     `json:"available"`
}

// InsufficientStockError lists every SKU of an operation that lacks stock
type InsufficientStockError struct {
	Shortages []Shortage
}

// NewInsufficientStockError creates an InsufficientStockError
func NewInsufficientStockError(shortages ...Shortage) *InsufficientStockError {
	return &InsufficientStockError{Shortages: shortages}
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("sku %s in warehouse %s: requested %d, available %d",
			s.SkuID, s.WarehouseID, s.Requested, s.Available))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

func (e *InsufficientStockError) Unwrap() error {
	return shared.NewDomainError(shared.ErrInsufficientStock.Code, e.Error())
}

// ChainBreak is one inconsistency found while replaying a counter's ledger
type ChainBreak struct {
	Sequence int64  `json:"sequence"`
	Expected int64  `json:"expected"`
	Actual   int64  `json:"actual"`
	Reason   string `json:"reason"`
}

// LedgerReconciliationError reports a counter whose ledger does not replay to
// its current count. It is never repaired automatically.
type LedgerReconciliationError struct {
	CounterID uuid.UUID
	Key       CounterKey
	Breaks    []ChainBreak
}

func (e *LedgerReconciliationError) Error() string {
	parts := make([]string, 0, len(e.Breaks))
	for _, b := range e.Breaks {
		parts = append(parts, fmt.Sprintf("seq %d %s (expected %d, got %d)", b.Sequence, b.Reason, b.Expected, b.Actual))
	}
	return fmt.Sprintf("ledger for %s does not reconcile: %s", e.Key, strings.Join(parts, "; "))
}

func (e *LedgerReconciliationError) Unwrap() error {
	return shared.NewDomainError(shared.ErrLedgerReconciliation.Code, e.Error())
}
