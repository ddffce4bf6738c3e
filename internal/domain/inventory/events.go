package inventory

import (
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

const (
	AggregateTypeStockCounter = "StockCounter"

	EventTypeStockPosted         = "StockPosted"
	EventTypeStockBelowThreshold = "StockBelowThreshold"
)

// StockPostedEvent is raised for every ledger entry written
type StockPostedEvent struct {
	shared.BaseDomainEvent
	WarehouseID       uuid.UUID     `json:"warehouse_id"`
	SkuID             uuid.UUID     `json:"sku_id"`
	DocumentSerial    string        `json:"document_serial"`
	OperationType     OperationType `json:"operation_type"`
	Direction         Direction     `json:"direction"`
	Quantity          int64         `json:"quantity"`
	ResultingQuantity int64         `json:"resulting_quantity"`
}

// NewStockPostedEvent creates a StockPostedEvent
func NewStockPostedEvent(c *StockCounter, e *LedgerEntry) *StockPostedEvent {
	return &StockPostedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeStockPosted, AggregateTypeStockCounter, c.ID, c.TenantID),
		WarehouseID:       c.WarehouseID,
		SkuID:             c.SkuID,
		DocumentSerial:    e.DocumentSerial,
		OperationType:     e.OperationType,
		Direction:         e.Direction,
		Quantity:          e.DeltaQuantity,
		ResultingQuantity: e.ResultingQuantity,
	}
}

// StockBelowThresholdEvent is raised when a posting drops a counter under
// its minimum
type StockBelowThresholdEvent struct {
	shared.BaseDomainEvent
	WarehouseID  uuid.UUID `json:"warehouse_id"`
	SkuID        uuid.UUID `json:"sku_id"`
	CurrentCount int64     `json:"current_count"`
	MinCount     int64     `json:"min_count"`
}

// NewStockBelowThresholdEvent creates a StockBelowThresholdEvent
func NewStockBelowThresholdEvent(c *StockCounter) *StockBelowThresholdEvent {
	return &StockBelowThresholdEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockBelowThreshold, AggregateTypeStockCounter, c.ID, c.TenantID),
		WarehouseID:     c.WarehouseID,
		SkuID:           c.SkuID,
		CurrentCount:    c.CurrentCount,
		MinCount:        c.MinCount,
	}
}
