package inventory

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/warehousing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CounterResponse represents a stock counter in API responses
type CounterResponse struct {
	ID             uuid.UUID `json:"id"`
	WarehouseID    uuid.UUID `json:"warehouse_id"`
	SkuID          uuid.UUID `json:"sku_id"`
	TotalCount     int64     `json:"total_count"`
	CurrentCount   int64     `json:"current_count"`
	PresaleCount   int64     `json:"presale_count"`
	AvailableCount int64     `json:"available_count"`
	SaledCount     int64     `json:"saled_count"`
	DefectiveCount int64     `json:"defective_count"`
	ReturnedCount  int64     `json:"returned_count"`
	ManualCount    int64     `json:"manual_count"`
	MinCount       int64     `json:"min_count"`
	MaxCount       int64     `json:"max_count"`
	IsBelowMinimum bool      `json:"is_below_minimum"`
	LastSequence   int64     `json:"last_sequence"`
	UpdatedAt      time.Time `json:"updated_at"`
	Version        int       `json:"version"`
}

// ToCounterResponse converts a counter to its response
func ToCounterResponse(c *inventory.StockCounter) CounterResponse {
	return CounterResponse{
		ID:             c.ID,
		WarehouseID:    c.WarehouseID,
		SkuID:          c.SkuID,
		TotalCount:     c.TotalCount,
		CurrentCount:   c.CurrentCount,
		PresaleCount:   c.PresaleCount,
		AvailableCount: c.Available(),
		SaledCount:     c.SaledCount,
		DefectiveCount: c.DefectiveCount,
		ReturnedCount:  c.ReturnedCount,
		ManualCount:    c.ManualCount,
		MinCount:       c.MinCount,
		MaxCount:       c.MaxCount,
		IsBelowMinimum: c.IsBelowMinimum(),
		LastSequence:   c.LastSequence,
		UpdatedAt:      c.UpdatedAt,
		Version:        c.Version,
	}
}

// LedgerEntryResponse represents a ledger entry in API responses
type LedgerEntryResponse struct {
	ID                uuid.UUID       `json:"id"`
	Sequence          int64           `json:"sequence"`
	WarehouseID       uuid.UUID       `json:"warehouse_id"`
	SkuID             uuid.UUID       `json:"sku_id"`
	ShelfCode         string          `json:"shelf_code,omitempty"`
	DocumentSerial    string          `json:"document_serial"`
	SourceType        string          `json:"source_type"`
	SourceID          string          `json:"source_id"`
	Direction         string          `json:"direction"`
	OperationType     string          `json:"operation_type"`
	OriginalQuantity  int64           `json:"original_quantity"`
	DeltaQuantity     int64           `json:"delta_quantity"`
	ResultingQuantity int64           `json:"resulting_quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	Remark            string          `json:"remark,omitempty"`
	OccurredAt        time.Time       `json:"occurred_at"`
}

// ToLedgerEntryResponse converts a ledger entry to its response
func ToLedgerEntryResponse(e *inventory.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:                e.ID,
		Sequence:          e.Sequence,
		WarehouseID:       e.WarehouseID,
		SkuID:             e.SkuID,
		ShelfCode:         e.ShelfCode,
		DocumentSerial:    e.DocumentSerial,
		SourceType:        string(e.SourceType),
		SourceID:          e.SourceID,
		Direction:         string(e.Direction),
		OperationType:     string(e.OperationType),
		OriginalQuantity:  e.OriginalQuantity,
		DeltaQuantity:     e.DeltaQuantity,
		ResultingQuantity: e.ResultingQuantity,
		UnitPrice:         e.UnitPrice,
		Remark:            e.Remark,
		OccurredAt:        e.OccurredAt,
	}
}

// ToLedgerEntryResponses converts a slice of entries
func ToLedgerEntryResponses(entries []inventory.LedgerEntry) []LedgerEntryResponse {
	out := make([]LedgerEntryResponse, len(entries))
	for i := range entries {
		out[i] = ToLedgerEntryResponse(&entries[i])
	}
	return out
}

// DocumentResponse represents a warehouse document in API responses
type DocumentResponse struct {
	ID                     uuid.UUID                  `json:"id"`
	Kind                   warehousing.DocumentKind   `json:"kind"`
	Serial                 string                     `json:"serial"`
	TargetType             warehousing.TargetType     `json:"target_type"`
	TargetID               string                     `json:"target_id"`
	WarehouseID            *uuid.UUID                 `json:"warehouse_id,omitempty"`
	SourceWarehouseID      *uuid.UUID                 `json:"source_warehouse_id,omitempty"`
	DestinationWarehouseID *uuid.UUID                 `json:"destination_warehouse_id,omitempty"`
	TotalQuantity          int64                      `json:"total_quantity"`
	Status                 warehousing.DocumentStatus `json:"status"`
	ExpressID              string                     `json:"express_id,omitempty"`
	ExpressNo              string                     `json:"express_no,omitempty"`
	Remark                 string                     `json:"remark,omitempty"`
	CompletedAt            *time.Time                 `json:"completed_at,omitempty"`
	CreatedAt              time.Time                  `json:"created_at"`
}

// ToDocumentResponse converts any warehouse document to its response
func ToDocumentResponse(doc warehousing.Document) DocumentResponse {
	h := doc.Header()
	resp := DocumentResponse{
		ID:            h.ID,
		Kind:          doc.Kind(),
		Serial:        h.Serial,
		TargetType:    h.TargetType,
		TargetID:      h.TargetID,
		TotalQuantity: h.TotalQuantity,
		Status:        h.Status,
		Remark:        h.Remark,
		CompletedAt:   h.CompletedAt,
		CreatedAt:     h.CreatedAt,
	}
	switch d := doc.(type) {
	case *warehousing.InboundDocument:
		resp.WarehouseID = &d.WarehouseID
	case *warehousing.OutboundDocument:
		resp.WarehouseID = &d.WarehouseID
		resp.ExpressID = d.ExpressID
		resp.ExpressNo = d.ExpressNo
	case *warehousing.ExchangeDocument:
		resp.SourceWarehouseID = &d.SourceWarehouseID
		resp.DestinationWarehouseID = &d.DestinationWarehouseID
	}
	return resp
}

// AdjustRequest is a manual correction of one counter
type AdjustRequest struct {
	WarehouseID uuid.UUID           `json:"warehouse_id" binding:"required"`
	SkuID       uuid.UUID           `json:"sku_id" binding:"required"`
	Direction   inventory.Direction `json:"direction" binding:"required,oneof=in out"`
	Quantity    int64               `json:"quantity" binding:"required,gt=0"`
	UnitPrice   decimal.Decimal     `json:"unit_price"`
	ShelfCode   string              `json:"shelf_code" binding:"max=50"`
	Remark      string              `json:"remark" binding:"max=255"`
}

// TransferItem is one SKU moved between warehouses
type TransferItem struct {
	SkuID    uuid.UUID `json:"sku_id" binding:"required"`
	Quantity int64     `json:"quantity" binding:"required,gt=0"`
}

// TransferRequest moves stock between two warehouses
type TransferRequest struct {
	SourceWarehouseID      uuid.UUID      `json:"source_warehouse_id" binding:"required"`
	DestinationWarehouseID uuid.UUID      `json:"destination_warehouse_id" binding:"required"`
	Items                  []TransferItem `json:"items" binding:"required,min=1,dive"`
	Remark                 string         `json:"remark" binding:"max=500"`
}

// PostingResult is returned by operations that write ledger entries
type PostingResult struct {
	Document DocumentResponse      `json:"document"`
	Entries  []LedgerEntryResponse `json:"entries"`
}

// ThresholdRequest sets alert thresholds on a counter
type ThresholdRequest struct {
	MinCount int64 `json:"min_count" binding:"min=0"`
	MaxCount int64 `json:"max_count" binding:"min=0"`
}

// LedgerFilter represents filter options for ledger listings
type LedgerFilter struct {
	WarehouseID *uuid.UUID `form:"-"`
	SkuID       *uuid.UUID `form:"-"`
	Operation   string     `form:"operation"`
	Document    string     `form:"document"`
	From        *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To          *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Page        int        `form:"page" binding:"omitempty,min=1"`
	PageSize    int        `form:"page_size" binding:"omitempty,min=1,max=500"`
	OrderDir    string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ReconcileResponse reports the outcome of replaying one counter
type ReconcileResponse struct {
	WarehouseID  uuid.UUID              `json:"warehouse_id"`
	SkuID        uuid.UUID              `json:"sku_id"`
	CurrentCount int64                  `json:"current_count"`
	EntryCount   int                    `json:"entry_count"`
	Consistent   bool                   `json:"consistent"`
	Breaks       []inventory.ChainBreak `json:"breaks,omitempty"`
}

// ReconcileReport summarises a tenant-wide reconciliation sweep
type ReconcileReport struct {
	Checked      int                 `json:"checked"`
	Inconsistent int                 `json:"inconsistent"`
	Counters     []ReconcileResponse `json:"counters,omitempty"`
}
