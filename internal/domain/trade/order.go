package trade

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the fulfillment status of a sales order
type OrderStatus string

const (
	OrderStatusPendingPayment  OrderStatus = "PENDING_PAYMENT"
	OrderStatusPendingCheck    OrderStatus = "PENDING_CHECK"
	OrderStatusPendingShipment OrderStatus = "PENDING_SHIPMENT"
	OrderStatusPendingPrint    OrderStatus = "PENDING_PRINT"
	OrderStatusShipped         OrderStatus = "SHIPPED"
	OrderStatusSigned          OrderStatus = "SIGNED"
	OrderStatusFinished        OrderStatus = "FINISHED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPendingPayment:  {OrderStatusPendingCheck, OrderStatusCanceled},
	OrderStatusPendingCheck:    {OrderStatusPendingShipment, OrderStatusCanceled},
	OrderStatusPendingShipment: {OrderStatusPendingPrint, OrderStatusShipped, OrderStatusCanceled},
	OrderStatusPendingPrint:    {OrderStatusShipped, OrderStatusCanceled},
	OrderStatusShipped:         {OrderStatusSigned},
	OrderStatusSigned:          {OrderStatusFinished},
	OrderStatusFinished:        nil,
	OrderStatusCanceled:        nil,
}

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, next := range orderTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// IsBeforeShipment returns true while goods have not left the warehouse
func (s OrderStatus) IsBeforeShipment() bool {
	switch s {
	case OrderStatusPendingPayment, OrderStatusPendingCheck, OrderStatusPendingShipment, OrderStatusPendingPrint:
		return true
	}
	return false
}

// OrderItem is one SKU on a sales order
type OrderItem struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	SkuID          uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity       int64           `gorm:"not null"`
	DealPrice      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(18,4);not null"` // Quantity * DealPrice
	DiscountAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	PayAmount      decimal.Decimal `gorm:"type:decimal(18,4);not null"` // TotalAmount - DiscountAmount
	CreatedAt      time.Time       `gorm:"not null"`
	UpdatedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderItem) TableName() string {
	return "order_items"
}

// Shipping holds buyer and delivery fields copied to split orders
type Shipping struct {
	BuyerName       string `gorm:"type:varchar(100)"`
	ReceiverName    string `gorm:"type:varchar(100)"`
	ReceiverPhone   string `gorm:"type:varchar(30)"`
	ShippingAddress string `gorm:"type:varchar(500)"`
}

// Order is a sales order aggregate. Stock for an order is decremented when
// the order is approved and restored if it is canceled before shipment.
type Order struct {
	shared.TenantAggregateRoot
	Serial         string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	WarehouseID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Shipping       Shipping        `gorm:"embedded"`
	Items          []OrderItem     `gorm:"foreignKey:OrderID;references:ID"`
	Status         OrderStatus     `gorm:"type:varchar(20);not null;default:'PENDING_PAYMENT';index"`
	TotalQuantity  int64           `gorm:"not null;default:0"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	PayAmount      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	StockReserved  bool            `gorm:"not null;default:false"`
	OutboundSerial string          `gorm:"type:varchar(50)"`
	ExpressID      string          `gorm:"type:varchar(50)"`
	ExpressNo      string          `gorm:"type:varchar(100)"`
	ParentOrderID  *uuid.UUID      `gorm:"type:uuid;index"`
	Remark         string          `gorm:"type:varchar(500)"`
	CancelReason   string          `gorm:"type:varchar(500)"`
	PaidAt         *time.Time
	ApprovedAt     *time.Time
	ShippedAt      *time.Time
	SignedAt       *time.Time
	FinishedAt     *time.Time
	ClosedAt       *time.Time
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// NewOrder creates an order waiting for payment
func NewOrder(tenantID uuid.UUID, serial string, warehouseID uuid.UUID, shipping Shipping) (*Order, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if serial == "" {
		return nil, shared.NewDomainError("INVALID_SERIAL", "Order serial cannot be empty")
	}
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	return &Order{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Serial:              serial,
		WarehouseID:         warehouseID,
		Shipping:            shipping,
		Status:              OrderStatusPendingPayment,
		TotalAmount:         decimal.Zero,
		DiscountAmount:      decimal.Zero,
		PayAmount:           decimal.Zero,
	}, nil
}

// AddItem adds a SKU line. Items can only change before the order is approved.
func (o *Order) AddItem(skuID uuid.UUID, quantity int64, dealPrice, discount decimal.Decimal) (*OrderItem, error) {
	if o.Status != OrderStatusPendingPayment && o.Status != OrderStatusPendingCheck {
		return nil, shared.NewInvalidStateError("order "+o.Serial, o.Status.String(), "add item")
	}
	if skuID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SKU", "SKU ID cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if dealPrice.IsNegative() || discount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Price and discount cannot be negative")
	}
	total := dealPrice.Mul(decimal.NewFromInt(quantity))
	if discount.GreaterThan(total) {
		return nil, shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot exceed the item total")
	}

	now := time.Now()
	o.Items = append(o.Items, OrderItem{
		ID:             uuid.New(),
		OrderID:        o.ID,
		SkuID:          skuID,
		Quantity:       quantity,
		DealPrice:      dealPrice,
		TotalAmount:    total,
		DiscountAmount: discount,
		PayAmount:      total.Sub(discount),
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	o.recalculateTotals()
	return &o.Items[len(o.Items)-1], nil
}

func (o *Order) recalculateTotals() {
	o.TotalQuantity = 0
	o.TotalAmount = decimal.Zero
	o.DiscountAmount = decimal.Zero
	o.PayAmount = decimal.Zero
	for i := range o.Items {
		it := &o.Items[i]
		o.TotalQuantity += it.Quantity
		o.TotalAmount = o.TotalAmount.Add(it.TotalAmount)
		o.DiscountAmount = o.DiscountAmount.Add(it.DiscountAmount)
		o.PayAmount = o.PayAmount.Add(it.PayAmount)
	}
	o.Touch()
}

// ItemQuantities returns the ordered quantity per SKU
func (o *Order) ItemQuantities() map[uuid.UUID]int64 {
	q := make(map[uuid.UUID]int64, len(o.Items))
	for _, it := range o.Items {
		q[it.SkuID] += it.Quantity
	}
	return q
}

func (o *Order) transition(target OrderStatus, action string) error {
	if !o.Status.CanTransitionTo(target) {
		return shared.NewInvalidStateError("order "+o.Serial, o.Status.String(), action)
	}
	from := o.Status
	o.Status = target
	o.Touch()
	o.AddDomainEvent(NewOrderStatusChangedEvent(o, from, action))
	return nil
}

// ConfirmPayment moves PENDING_PAYMENT to PENDING_CHECK
func (o *Order) ConfirmPayment() error {
	if err := o.transition(OrderStatusPendingCheck, "confirm payment"); err != nil {
		return err
	}
	now := time.Now()
	o.PaidAt = &now
	return nil
}

// CheckApprove verifies the order can be approved without changing it
func (o *Order) CheckApprove() error {
	if !o.Status.CanTransitionTo(OrderStatusPendingShipment) {
		return shared.NewInvalidStateError("order "+o.Serial, o.Status.String(), "approve")
	}
	if len(o.Items) == 0 {
		return shared.NewDomainError("NO_ITEMS", "Cannot approve order without items")
	}
	return nil
}

// Approve marks stock as reserved against the outbound document and moves
// PENDING_CHECK to PENDING_SHIPMENT. The caller must have posted the
// outbound ledger entries in the same transaction.
func (o *Order) Approve(outboundSerial string) error {
	if err := o.CheckApprove(); err != nil {
		return err
	}
	if err := o.transition(OrderStatusPendingShipment, "approve"); err != nil {
		return err
	}
	now := time.Now()
	o.ApprovedAt = &now
	o.StockReserved = true
	o.OutboundSerial = outboundSerial
	return nil
}

// Ship moves PENDING_SHIPMENT to SHIPPED when a tracking number is known,
// or to PENDING_PRINT when a label still has to be produced.
func (o *Order) Ship(expressID, expressNo string) error {
	target := OrderStatusShipped
	if expressNo == "" {
		target = OrderStatusPendingPrint
	}
	if o.Status != OrderStatusPendingShipment {
		return shared.NewInvalidStateError("order "+o.Serial, o.Status.String(), "ship")
	}
	if err := o.transition(target, "ship"); err != nil {
		return err
	}
	o.ExpressID = expressID
	o.ExpressNo = expressNo
	if target == OrderStatusShipped {
		now := time.Now()
		o.ShippedAt = &now
	}
	return nil
}

// ConfirmPrinted moves PENDING_PRINT to SHIPPED once the label exists
func (o *Order) ConfirmPrinted(expressNo string) error {
	if expressNo == "" {
		return shared.NewDomainError("INVALID_EXPRESS_NO", "Tracking number cannot be empty")
	}
	if o.Status != OrderStatusPendingPrint {
		return shared.NewInvalidStateError("order "+o.Serial, o.Status.String(), "confirm printed")
	}
	if err := o.transition(OrderStatusShipped, "confirm printed"); err != nil {
		return err
	}
	now := time.Now()
	o.ExpressNo = expressNo
	o.ShippedAt = &now
	return nil
}

// Sign moves SHIPPED to SIGNED
func (o *Order) Sign() error {
	if err := o.transition(OrderStatusSigned, "sign"); err != nil {
		return err
	}
	now := time.Now()
	o.SignedAt = &now
	return nil
}

// Finish moves SIGNED to FINISHED
func (o *Order) Finish() error {
	if err := o.transition(OrderStatusFinished, "finish"); err != nil {
		return err
	}
	now := time.Now()
	o.FinishedAt = &now
	return nil
}

// Cancel closes the order. It reports whether stock had been reserved so
// that the caller can post the restoring entries.
func (o *Order) Cancel(reason string) (bool, error) {
	if !o.Status.IsBeforeShipment() {
		return false, shared.NewInvalidStateError("order "+o.Serial, o.Status.String(), "cancel")
	}
	if err := o.transition(OrderStatusCanceled, "cancel"); err != nil {
		return false, err
	}
	reserved := o.StockReserved
	now := time.Now()
	o.StockReserved = false
	o.CancelReason = reason
	o.ClosedAt = &now
	return reserved, nil
}

// ErrSplitWholeOrder is returned when a split would leave the source order
// without items
var ErrSplitWholeOrder = shared.NewDomainError("INVALID_SPLIT", "Cannot move every item to a new order")

// Split moves the selected items into a new order. Totals follow the items.
// The new order inherits warehouse, shipping fields and status. Orders can be
// split until they ship. An approved order hands its reservation for the
// moved items to the new order, which needs its own outbound document serial;
// stock is not posted or re-checked.
func (o *Order) Split(newSerial, outboundSerial string, itemIDs []uuid.UUID) (*Order, error) {
	if len(itemIDs) == 0 {
		return nil, shared.ErrEmptySelection
	}
	switch o.Status {
	case OrderStatusPendingPayment, OrderStatusPendingCheck, OrderStatusPendingShipment:
	default:
		return nil, shared.NewInvalidStateError("order "+o.Serial, o.Status.String(), "split")
	}
	if o.StockReserved && outboundSerial == "" {
		return nil, shared.NewDomainError("INVALID_SERIAL", "Outbound serial required to split an approved order")
	}

	selected := make(map[uuid.UUID]bool, len(itemIDs))
	for _, id := range itemIDs {
		selected[id] = true
	}
	for id := range selected {
		if o.itemByID(id) == nil {
			return nil, shared.NewDomainError("ITEM_NOT_FOUND", "Item not on order: "+id.String())
		}
	}
	if len(selected) == len(o.Items) {
		return nil, ErrSplitWholeOrder
	}

	child, err := NewOrder(o.TenantID, newSerial, o.WarehouseID, o.Shipping)
	if err != nil {
		return nil, err
	}
	child.Status = o.Status
	child.PaidAt = o.PaidAt
	child.Remark = o.Remark
	parentID := o.ID
	child.ParentOrderID = &parentID
	if o.StockReserved {
		child.StockReserved = true
		child.ApprovedAt = o.ApprovedAt
		child.OutboundSerial = outboundSerial
	}

	kept := make([]OrderItem, 0, len(o.Items)-len(selected))
	now := time.Now()
	for _, it := range o.Items {
		if selected[it.ID] {
			it.OrderID = child.ID
			it.UpdatedAt = now
			child.Items = append(child.Items, it)
			continue
		}
		kept = append(kept, it)
	}
	o.Items = kept
	o.recalculateTotals()
	child.recalculateTotals()

	o.AddDomainEvent(NewOrderSplitEvent(o, child))
	return child, nil
}

func (o *Order) itemByID(id uuid.UUID) *OrderItem {
	for i := range o.Items {
		if o.Items[i].ID == id {
			return &o.Items[i]
		}
	}
	return nil
}
