package warehousing

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentKind distinguishes the three warehouse document tables
type DocumentKind string

const (
	KindInbound  DocumentKind = "INBOUND"
	KindOutbound DocumentKind = "OUTBOUND"
	KindExchange DocumentKind = "EXCHANGE"
)

// DocumentStatus is the progress of a warehouse document
type DocumentStatus string

const (
	StatusNotStarted DocumentStatus = "NOT_STARTED"
	StatusInProgress DocumentStatus = "IN_PROGRESS"
	StatusComplete   DocumentStatus = "COMPLETE"
)

var statusRank = map[DocumentStatus]int{
	StatusNotStarted: 0,
	StatusInProgress: 1,
	StatusComplete:   2,
}

// IsValid returns true if the status is valid
func (s DocumentStatus) IsValid() bool {
	_, ok := statusRank[s]
	return ok
}

// CanTransitionTo reports whether the status may move to target. Document
// status only ever moves forward.
func (s DocumentStatus) CanTransitionTo(target DocumentStatus) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[target]
	if !ok {
		return false
	}
	return to > from
}

// TargetType names the business record a document fulfils
type TargetType string

const (
	TargetPurchase   TargetType = "PURCHASE"
	TargetOrder      TargetType = "ORDER"
	TargetTransfer   TargetType = "TRANSFER"
	TargetAdjustment TargetType = "ADJUSTMENT"
)

// Document is implemented by the three document kinds
type Document interface {
	Header() *DocumentHeader
	Kind() DocumentKind
}

// DocumentHeader holds the fields shared by every warehouse document
type DocumentHeader struct {
	shared.TenantAggregateRoot
	Serial        string         `gorm:"type:varchar(50);not null;uniqueIndex"`
	TargetType    TargetType     `gorm:"type:varchar(30);not null"`
	TargetID      string         `gorm:"type:varchar(50);not null;index"`
	TotalQuantity int64          `gorm:"not null;default:0"`
	Status        DocumentStatus `gorm:"type:varchar(20);not null;default:'NOT_STARTED'"`
	Remark        string         `gorm:"type:varchar(500)"`
	StartedAt     *time.Time
	CompletedAt   *time.Time
	Lines         []DocumentLine `gorm:"-"`
}

// Header returns the header itself so embedding types satisfy Document
func (h *DocumentHeader) Header() *DocumentHeader {
	return h
}

func newHeader(tenantID uuid.UUID, serial string, targetType TargetType, targetID string, lines []DocumentLine, remark string) (DocumentHeader, error) {
	if tenantID == uuid.Nil {
		return DocumentHeader{}, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if serial == "" {
		return DocumentHeader{}, shared.NewDomainError("INVALID_SERIAL", "Document serial cannot be empty")
	}
	if targetID == "" {
		return DocumentHeader{}, shared.NewDomainError("INVALID_TARGET", "Target reference cannot be empty")
	}
	if len(lines) == 0 {
		return DocumentHeader{}, shared.NewDomainError("INVALID_DOCUMENT", "Document must have at least one line")
	}

	h := DocumentHeader{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Serial:              serial,
		TargetType:          targetType,
		TargetID:            targetID,
		Status:              StatusNotStarted,
		Remark:              remark,
	}
	for _, l := range lines {
		if l.Quantity <= 0 {
			return DocumentHeader{}, shared.NewDomainError("INVALID_QUANTITY", "Line quantity must be positive")
		}
		l.BaseEntity = shared.NewBaseEntity()
		l.TenantID = tenantID
		l.DocumentSerial = serial
		h.TotalQuantity += l.Quantity
		h.Lines = append(h.Lines, l)
	}
	return h, nil
}

func (h *DocumentHeader) transition(target DocumentStatus, kind DocumentKind) error {
	if !h.Status.CanTransitionTo(target) {
		return shared.NewInvalidStateError(string(kind)+" document "+h.Serial, string(h.Status), "move to "+string(target))
	}
	now := time.Now()
	if target == StatusInProgress || h.StartedAt == nil {
		h.StartedAt = &now
	}
	if target == StatusComplete {
		h.CompletedAt = &now
	}
	h.Status = target
	h.Touch()
	return nil
}

// AddRemark appends a note to the remark without changing status
func (h *DocumentHeader) AddRemark(note string) {
	if h.Remark == "" {
		h.Remark = note
	} else {
		h.Remark += "; " + note
	}
	if len(h.Remark) > 500 {
		h.Remark = h.Remark[:500]
	}
	h.Touch()
}

// IsComplete reports whether the document has been completed
func (h *DocumentHeader) IsComplete() bool {
	return h.Status == StatusComplete
}

// DocumentLine is one SKU quantity of a document, keyed by document serial
type DocumentLine struct {
	shared.BaseEntity
	TenantID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	DocumentSerial string          `gorm:"type:varchar(50);not null;index"`
	DocumentKind   DocumentKind    `gorm:"type:varchar(20);not null"`
	SkuID          uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity       int64           `gorm:"not null"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (DocumentLine) TableName() string {
	return "warehouse_document_lines"
}

// NewLine creates a document line
func NewLine(skuID uuid.UUID, quantity int64, unitPrice decimal.Decimal) DocumentLine {
	return DocumentLine{SkuID: skuID, Quantity: quantity, UnitPrice: unitPrice}
}
