package inventory

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// StockCounter is the per warehouse and SKU projection of the ledger.
// It is mutated only through Post, which also produces the ledger entry
// recording the change. Counters are created lazily and never deleted.
type StockCounter struct {
	shared.TenantAggregateRoot
	WarehouseID    uuid.UUID `gorm:"type:uuid;not null"`
	SkuID          uuid.UUID `gorm:"type:uuid;not null;index"`
	TotalCount     int64     `gorm:"not null;default:0"` // Cumulative inbound from purchases and transfers
	CurrentCount   int64     `gorm:"not null;default:0"` // On hand
	PresaleCount   int64     `gorm:"not null;default:0"` // Promised to buyers but not yet decremented
	SaledCount     int64     `gorm:"not null;default:0"`
	DefectiveCount int64     `gorm:"not null;default:0"`
	ReturnedCount  int64     `gorm:"not null;default:0"`
	ManualCount    int64     `gorm:"not null;default:0"` // Net manual adjustment, may be negative
	MinCount       int64     `gorm:"not null;default:0"` // Low stock alert threshold, 0 disables
	MaxCount       int64     `gorm:"not null;default:0"`
	LastSequence   int64     `gorm:"not null;default:0"` // Sequence of the newest ledger entry
}

// TableName returns the table name for GORM
func (StockCounter) TableName() string {
	return "stock_counters"
}

// NewStockCounter creates an empty counter
func NewStockCounter(tenantID, warehouseID, skuID uuid.UUID) (*StockCounter, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	if skuID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SKU", "SKU ID cannot be empty")
	}
	return &StockCounter{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		WarehouseID:         warehouseID,
		SkuID:               skuID,
	}, nil
}

// Key returns the counter key
func (c *StockCounter) Key() CounterKey {
	return CounterKey{WarehouseID: c.WarehouseID, SkuID: c.SkuID}
}

// Available returns the quantity that can still be promised to buyers
func (c *StockCounter) Available() int64 {
	return c.CurrentCount - c.PresaleCount
}

// CanRelease reports whether an outbound of quantity would keep the counter
// non-negative.
func (c *StockCounter) CanRelease(quantity int64) bool {
	return quantity <= c.CurrentCount
}

// IsBelowMinimum reports whether the counter is under its alert threshold
func (c *StockCounter) IsBelowMinimum() bool {
	return c.MinCount > 0 && c.CurrentCount < c.MinCount
}

// Post applies a posting and returns the ledger entry that records it.
// Nothing changes on the counter when an error is returned.
func (c *StockCounter) Post(p Posting, at time.Time) (*LedgerEntry, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Key() != c.Key() {
		return nil, shared.NewDomainError("COUNTER_MISMATCH", "Posting does not belong to this counter")
	}
	direction := p.Direction()
	if direction == DirectionOut && !c.CanRelease(p.Quantity) {
		return nil, NewInsufficientStockError(Shortage{
			WarehouseID: c.WarehouseID,
			SkuID:       c.SkuID,
			Requested:   p.Quantity,
			Available:   c.CurrentCount,
		})
	}

	original := c.CurrentCount
	resulting := original + p.Signed()
	wasBelow := c.IsBelowMinimum()

	c.CurrentCount = resulting
	c.applySubCounter(p)
	c.LastSequence++
	c.Touch()

	entry := &LedgerEntry{
		BaseEntity:        shared.NewBaseEntity(),
		TenantID:          c.TenantID,
		CounterID:         c.ID,
		Sequence:          c.LastSequence,
		WarehouseID:       c.WarehouseID,
		SkuID:             c.SkuID,
		ShelfCode:         p.ShelfCode,
		DocumentSerial:    p.DocumentSerial,
		SourceType:        p.SourceType,
		SourceID:          p.SourceID,
		Direction:         direction,
		OperationType:     p.Operation,
		OriginalQuantity:  original,
		DeltaQuantity:     p.Quantity,
		ResultingQuantity: resulting,
		UnitPrice:         p.UnitPrice,
		Remark:            p.Remark,
		OccurredAt:        at,
	}

	c.AddDomainEvent(NewStockPostedEvent(c, entry))
	if !wasBelow && c.IsBelowMinimum() {
		c.AddDomainEvent(NewStockBelowThresholdEvent(c))
	}
	return entry, nil
}

func (c *StockCounter) applySubCounter(p Posting) {
	switch p.Operation {
	case OperationPurchaseInbound, OperationTransferInbound:
		c.TotalCount += p.Quantity
	case OperationReturnOutbound, OperationTransferOutbound:
		c.TotalCount -= p.Quantity
	case OperationOrderOutbound:
		c.SaledCount += p.Quantity
	case OperationReturnInbound:
		c.ReturnedCount += p.Quantity
	case OperationManualInbound, OperationManualOutbound:
		c.ManualCount += p.Signed()
	}
}

// SetThresholds updates the alert thresholds
func (c *StockCounter) SetThresholds(minCount, maxCount int64) error {
	if minCount < 0 || maxCount < 0 {
		return shared.NewDomainError("INVALID_THRESHOLD", "Thresholds cannot be negative")
	}
	if maxCount > 0 && minCount > maxCount {
		return shared.NewDomainError("INVALID_THRESHOLD", "Minimum cannot exceed maximum")
	}
	c.MinCount = minCount
	c.MaxCount = maxCount
	c.Touch()
	return nil
}
