package warehousing

import (
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// InboundDocument records goods entering a warehouse
type InboundDocument struct {
	DocumentHeader
	WarehouseID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// TableName returns the table name for GORM
func (InboundDocument) TableName() string {
	return "inbound_documents"
}

// Kind implements Document
func (d *InboundDocument) Kind() DocumentKind {
	return KindInbound
}

// OpenInbound creates a NOT_STARTED inbound document
func OpenInbound(tenantID uuid.UUID, serial string, targetType TargetType, targetID string, warehouseID uuid.UUID, lines []DocumentLine, remark string) (*InboundDocument, error) {
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	h, err := newHeader(tenantID, serial, targetType, targetID, withKind(lines, KindInbound), remark)
	if err != nil {
		return nil, err
	}
	return &InboundDocument{DocumentHeader: h, WarehouseID: warehouseID}, nil
}

// Advance moves the document to IN_PROGRESS
func (d *InboundDocument) Advance() error { return d.transition(StatusInProgress, KindInbound) }

// Complete moves the document to COMPLETE
func (d *InboundDocument) Complete() error { return d.transition(StatusComplete, KindInbound) }

// OutboundDocument records goods leaving a warehouse, and the shipment that
// carries them
type OutboundDocument struct {
	DocumentHeader
	WarehouseID uuid.UUID `gorm:"type:uuid;not null;index"`
	ExpressID   string    `gorm:"type:varchar(50)"`
	ExpressNo   string    `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (OutboundDocument) TableName() string {
	return "outbound_documents"
}

// Kind implements Document
func (d *OutboundDocument) Kind() DocumentKind {
	return KindOutbound
}

// OpenOutbound creates a NOT_STARTED outbound document
func OpenOutbound(tenantID uuid.UUID, serial string, targetType TargetType, targetID string, warehouseID uuid.UUID, lines []DocumentLine, remark string) (*OutboundDocument, error) {
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	h, err := newHeader(tenantID, serial, targetType, targetID, withKind(lines, KindOutbound), remark)
	if err != nil {
		return nil, err
	}
	return &OutboundDocument{DocumentHeader: h, WarehouseID: warehouseID}, nil
}

// Advance moves the document to IN_PROGRESS
func (d *OutboundDocument) Advance() error { return d.transition(StatusInProgress, KindOutbound) }

// Complete moves the document to COMPLETE
func (d *OutboundDocument) Complete() error { return d.transition(StatusComplete, KindOutbound) }

// AssignCarrier records the carrier and tracking number
func (d *OutboundDocument) AssignCarrier(expressID, expressNo string) {
	d.ExpressID = expressID
	d.ExpressNo = expressNo
	d.Touch()
}

// SplitOff moves the given line quantities to a new outbound document for
// another target. Only documents that have not started can be split, and
// the source must keep at least one line.
func (d *OutboundDocument) SplitOff(serial, targetID string, lines []DocumentLine) (*OutboundDocument, error) {
	if d.Status != StatusNotStarted {
		return nil, shared.NewInvalidStateError("OUTBOUND document "+d.Serial, string(d.Status), "split")
	}

	moving := make(map[uuid.UUID]int64, len(lines))
	for _, l := range lines {
		moving[l.SkuID] += l.Quantity
	}
	available := make(map[uuid.UUID]int64, len(d.Lines))
	for _, l := range d.Lines {
		available[l.SkuID] += l.Quantity
	}
	for sku, qty := range moving {
		if qty > available[sku] {
			return nil, shared.NewDomainError("INVALID_SPLIT", "Split quantity exceeds document line for SKU "+sku.String())
		}
	}

	child, err := OpenOutbound(d.TenantID, serial, d.TargetType, targetID, d.WarehouseID, lines, d.Remark)
	if err != nil {
		return nil, err
	}

	kept := make([]DocumentLine, 0, len(d.Lines))
	var total int64
	for _, l := range d.Lines {
		take := min(l.Quantity, moving[l.SkuID])
		moving[l.SkuID] -= take
		l.Quantity -= take
		if l.Quantity > 0 {
			kept = append(kept, l)
			total += l.Quantity
		}
	}
	if len(kept) == 0 {
		return nil, shared.NewDomainError("INVALID_SPLIT", "Cannot move every line to a new document")
	}
	d.Lines = kept
	d.TotalQuantity = total
	d.Touch()
	return child, nil
}

// ExchangeDocument records a transfer between two warehouses
type ExchangeDocument struct {
	DocumentHeader
	SourceWarehouseID      uuid.UUID `gorm:"type:uuid;not null;index"`
	DestinationWarehouseID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// TableName returns the table name for GORM
func (ExchangeDocument) TableName() string {
	return "exchange_documents"
}

// Kind implements Document
func (d *ExchangeDocument) Kind() DocumentKind {
	return KindExchange
}

// OpenExchange creates a NOT_STARTED exchange document
func OpenExchange(tenantID uuid.UUID, serial string, source, destination uuid.UUID, lines []DocumentLine, remark string) (*ExchangeDocument, error) {
	if source == uuid.Nil || destination == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Source and destination warehouses are required")
	}
	if source == destination {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Source and destination warehouses must differ")
	}
	h, err := newHeader(tenantID, serial, TargetTransfer, serial, withKind(lines, KindExchange), remark)
	if err != nil {
		return nil, err
	}
	return &ExchangeDocument{DocumentHeader: h, SourceWarehouseID: source, DestinationWarehouseID: destination}, nil
}

// Advance moves the document to IN_PROGRESS
func (d *ExchangeDocument) Advance() error { return d.transition(StatusInProgress, KindExchange) }

// Complete moves the document to COMPLETE
func (d *ExchangeDocument) Complete() error { return d.transition(StatusComplete, KindExchange) }

func withKind(lines []DocumentLine, kind DocumentKind) []DocumentLine {
	out := make([]DocumentLine, len(lines))
	for i, l := range lines {
		l.DocumentKind = kind
		out[i] = l
	}
	return out
}

var (
	_ Document = (*InboundDocument)(nil)
	_ Document = (*OutboundDocument)(nil)
	_ Document = (*ExchangeDocument)(nil)
)
