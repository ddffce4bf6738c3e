package trade

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseStatus represents the storage progress of a purchase
type PurchaseStatus string

const (
	PurchaseStatusPendingStorage PurchaseStatus = "PENDING_STORAGE"
	PurchaseStatusFinished       PurchaseStatus = "FINISHED"
)

// IsValid checks if the status is a valid PurchaseStatus
func (s PurchaseStatus) IsValid() bool {
	return s == PurchaseStatusPendingStorage || s == PurchaseStatusFinished
}

// String returns the string representation of PurchaseStatus
func (s PurchaseStatus) String() string {
	return string(s)
}

// PurchaseLine is one SKU ordered from a supplier
type PurchaseLine struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PurchaseID uuid.UUID       `gorm:"type:uuid;not null;index"`
	SkuID      uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity   int64           `gorm:"not null"`
	InQuantity int64           `gorm:"not null;default:0"` // Cumulative arrived quantity
	CostPrice  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt  time.Time       `gorm:"not null"`
	UpdatedAt  time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PurchaseLine) TableName() string {
	return "purchase_lines"
}

// Outstanding returns the quantity still to arrive
func (l *PurchaseLine) Outstanding() int64 {
	return l.Quantity - l.InQuantity
}

// IsFullyReceived returns true if every ordered unit has arrived
func (l *PurchaseLine) IsFullyReceived() bool {
	return l.InQuantity >= l.Quantity
}

// Purchase is a supplier order whose lines arrive into one warehouse
type Purchase struct {
	shared.TenantAggregateRoot
	Serial       string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	SupplierName string          `gorm:"type:varchar(200)"`
	WarehouseID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Lines        []PurchaseLine  `gorm:"foreignKey:PurchaseID;references:ID"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Status       PurchaseStatus  `gorm:"type:varchar(20);not null;default:'PENDING_STORAGE'"`
	Remark       string          `gorm:"type:varchar(500)"`
	ArrivedAt    *time.Time
}

// TableName returns the table name for GORM
func (Purchase) TableName() string {
	return "purchases"
}

// NewPurchase creates a purchase waiting for storage
func NewPurchase(tenantID uuid.UUID, serial string, warehouseID uuid.UUID, supplierName string) (*Purchase, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if serial == "" {
		return nil, shared.NewDomainError("INVALID_SERIAL", "Purchase serial cannot be empty")
	}
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	return &Purchase{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Serial:              serial,
		SupplierName:        supplierName,
		WarehouseID:         warehouseID,
		TotalAmount:         decimal.Zero,
		Status:              PurchaseStatusPendingStorage,
	}, nil
}

// AddLine adds a SKU to the purchase. A SKU may appear only once.
func (p *Purchase) AddLine(skuID uuid.UUID, quantity int64, costPrice decimal.Decimal) (*PurchaseLine, error) {
	if p.Status != PurchaseStatusPendingStorage {
		return nil, shared.NewInvalidStateError("purchase "+p.Serial, p.Status.String(), "add line")
	}
	if skuID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SKU", "SKU ID cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if costPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_COST", "Cost price cannot be negative")
	}
	if p.LineBySku(skuID) != nil {
		return nil, shared.NewDomainError("DUPLICATE_SKU", "SKU already on purchase: "+skuID.String())
	}

	now := time.Now()
	line := PurchaseLine{
		ID:         uuid.New(),
		PurchaseID: p.ID,
		SkuID:      skuID,
		Quantity:   quantity,
		CostPrice:  costPrice,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	p.Lines = append(p.Lines, line)
	p.TotalAmount = p.TotalAmount.Add(costPrice.Mul(decimal.NewFromInt(quantity)))
	p.Touch()
	return &p.Lines[len(p.Lines)-1], nil
}

// LineBySku returns the line for a SKU, or nil
func (p *Purchase) LineBySku(skuID uuid.UUID) *PurchaseLine {
	for i := range p.Lines {
		if p.Lines[i].SkuID == skuID {
			return &p.Lines[i]
		}
	}
	return nil
}

// IsFullyReceived returns true if every line has fully arrived
func (p *Purchase) IsFullyReceived() bool {
	if len(p.Lines) == 0 {
		return false
	}
	for i := range p.Lines {
		if !p.Lines[i].IsFullyReceived() {
			return false
		}
	}
	return true
}

// ArrivedLine is one line affected by an arrival
type ArrivedLine struct {
	SkuID     uuid.UUID
	Quantity  int64
	CostPrice decimal.Decimal
}

// PlanArrival validates an arrival against every line and returns the lines
// to post, ordered as on the purchase. The purchase is not modified.
func (p *Purchase) PlanArrival(arrivals map[uuid.UUID]int64) ([]ArrivedLine, error) {
	if p.Status != PurchaseStatusPendingStorage {
		return nil, shared.NewInvalidStateError("purchase "+p.Serial, p.Status.String(), "record arrival")
	}

	var overages []Overage
	for skuID, qty := range arrivals {
		if qty < 0 {
			return nil, shared.NewDomainError("INVALID_QUANTITY", "Arrival quantity cannot be negative")
		}
		line := p.LineBySku(skuID)
		if line == nil {
			if qty > 0 {
				overages = append(overages, Overage{SkuID: skuID, Requested: qty, Outstanding: 0})
			}
			continue
		}
		if qty > line.Outstanding() {
			overages = append(overages, Overage{SkuID: skuID, Requested: qty, Outstanding: line.Outstanding()})
		}
	}
	if len(overages) > 0 {
		sort.Slice(overages, func(i, j int) bool { return overages[i].SkuID.String() < overages[j].SkuID.String() })
		return nil, &OverReceiptError{PurchaseSerial: p.Serial, Overages: overages}
	}

	planned := make([]ArrivedLine, 0, len(arrivals))
	for i := range p.Lines {
		line := &p.Lines[i]
		if qty := arrivals[line.SkuID]; qty > 0 {
			planned = append(planned, ArrivedLine{SkuID: line.SkuID, Quantity: qty, CostPrice: line.CostPrice})
		}
	}
	if len(planned) == 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Arrival must contain at least one positive quantity")
	}
	return planned, nil
}

// RecordArrival raises InQuantity for a validated plan and finishes the
// purchase when every line has fully arrived.
func (p *Purchase) RecordArrival(planned []ArrivedLine, inboundSerial string) error {
	now := time.Now()
	for _, a := range planned {
		line := p.LineBySku(a.SkuID)
		if line == nil || a.Quantity > line.Outstanding() {
			return &OverReceiptError{PurchaseSerial: p.Serial, Overages: []Overage{{SkuID: a.SkuID, Requested: a.Quantity}}}
		}
		line.InQuantity += a.Quantity
		line.UpdatedAt = now
	}

	if p.IsFullyReceived() {
		p.Status = PurchaseStatusFinished
		p.ArrivedAt = &now
	}
	p.Touch()
	p.AddDomainEvent(NewPurchaseArrivedEvent(p, inboundSerial, planned))
	return nil
}

// Overage is one SKU whose arrival exceeds what is outstanding
type Overage struct {
	SkuID       uuid.UUID `json:"sku_id"`
	Requested   int64     `json:"requested"`
	Outstanding int64     `json:"outstanding"`
}

// OverReceiptError rejects an arrival that would receive more than ordered
type OverReceiptError struct {
	PurchaseSerial string
	Overages       []Overage
}

func (e *OverReceiptError) Error() string {
	parts := make([]string, 0, len(e.Overages))
	for _, o := range e.Overages {
		parts = append(parts, fmt.Sprintf("sku %s: arriving %d, outstanding %d", o.SkuID, o.Requested, o.Outstanding))
	}
	return fmt.Sprintf("over receipt on purchase %s: %s", e.PurchaseSerial, strings.Join(parts, "; "))
}

func (e *OverReceiptError) Unwrap() error {
	return shared.NewDomainError(shared.ErrOverReceipt.Code, e.Error())
}
