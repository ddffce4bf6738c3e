package inventory

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerEntry is an immutable record of one stock movement against one
// counter. For a given counter, entries form a chain: each entry's
// OriginalQuantity equals the previous entry's ResultingQuantity.
// Corrections are new entries, never updates.
type LedgerEntry struct {
	shared.BaseEntity
	TenantID          uuid.UUID       `gorm:"type:uuid;not null;index:idx_ledger_tenant_time,priority:1"`
	CounterID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_ledger_counter_seq,priority:1"`
	Sequence          int64           `gorm:"not null;uniqueIndex:idx_ledger_counter_seq,priority:2"`
	WarehouseID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_ledger_warehouse_sku,priority:1"`
	SkuID             uuid.UUID       `gorm:"type:uuid;not null;index:idx_ledger_warehouse_sku,priority:2"`
	ShelfCode         string          `gorm:"type:varchar(50)"`
	DocumentSerial    string          `gorm:"type:varchar(50);not null;index"`
	SourceType        SourceType      `gorm:"type:varchar(30);not null;index:idx_ledger_source,priority:1"`
	SourceID          string          `gorm:"type:varchar(50);not null;index:idx_ledger_source,priority:2"`
	Direction         Direction       `gorm:"type:varchar(3);not null"`
	OperationType     OperationType   `gorm:"type:varchar(30);not null;index"`
	OriginalQuantity  int64           `gorm:"not null"`
	DeltaQuantity     int64           `gorm:"not null"`
	ResultingQuantity int64           `gorm:"not null"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Remark            string          `gorm:"type:varchar(255)"`
	OccurredAt        time.Time       `gorm:"not null;index:idx_ledger_tenant_time,priority:2"`
}

// TableName returns the table name for GORM
func (LedgerEntry) TableName() string {
	return "stock_ledger_entries"
}

// Key returns the counter key of the entry
func (e *LedgerEntry) Key() CounterKey {
	return CounterKey{WarehouseID: e.WarehouseID, SkuID: e.SkuID}
}

// SignedDelta returns the delta with the sign of the entry direction
func (e *LedgerEntry) SignedDelta() int64 {
	if e.Direction == DirectionOut {
		return -e.DeltaQuantity
	}
	return e.DeltaQuantity
}

// Amount returns delta quantity times unit price
func (e *LedgerEntry) Amount() decimal.Decimal {
	return e.UnitPrice.Mul(decimal.NewFromInt(e.DeltaQuantity))
}
