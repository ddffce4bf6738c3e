package trade

import (
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	AggregateTypeOrder    = "Order"
	AggregateTypePurchase = "Purchase"

	EventTypeOrderStatusChanged = "OrderStatusChanged"
	EventTypeOrderSplit         = "OrderSplit"
	EventTypePurchaseArrived    = "PurchaseArrived"
)

// OrderStatusChangedEvent is raised on every order transition
type OrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	Serial     string      `json:"serial"`
	FromStatus OrderStatus `json:"from_status"`
	ToStatus   OrderStatus `json:"to_status"`
	Action     string      `json:"action"`
	PayAmount  string      `json:"pay_amount"`
	Quantity   int64       `json:"quantity"`
}

// NewOrderStatusChangedEvent creates an OrderStatusChangedEvent
func NewOrderStatusChangedEvent(o *Order, from OrderStatus, action string) *OrderStatusChangedEvent {
	return &OrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderStatusChanged, AggregateTypeOrder, o.ID, o.TenantID),
		Serial:          o.Serial,
		FromStatus:      from,
		ToStatus:        o.Status,
		Action:          action,
		PayAmount:       o.PayAmount.String(),
		Quantity:        o.TotalQuantity,
	}
}

// OrderSplitEvent is raised when items move to a new order
type OrderSplitEvent struct {
	shared.BaseDomainEvent
	Serial      string    `json:"serial"`
	ChildID     uuid.UUID `json:"child_id"`
	ChildSerial string    `json:"child_serial"`
	MovedItems  int       `json:"moved_items"`
}

// NewOrderSplitEvent creates an OrderSplitEvent
func NewOrderSplitEvent(parent, child *Order) *OrderSplitEvent {
	return &OrderSplitEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderSplit, AggregateTypeOrder, parent.ID, parent.TenantID),
		Serial:          parent.Serial,
		ChildID:         child.ID,
		ChildSerial:     child.Serial,
		MovedItems:      len(child.Items),
	}
}

// PurchaseArrivedEvent is raised for every recorded arrival
type PurchaseArrivedEvent struct {
	shared.BaseDomainEvent
	Serial        string          `json:"serial"`
	InboundSerial string          `json:"inbound_serial"`
	Quantity      int64           `json:"quantity"`
	Amount        decimal.Decimal `json:"amount"`
	Finished      bool            `json:"finished"`
}

// NewPurchaseArrivedEvent creates a PurchaseArrivedEvent
func NewPurchaseArrivedEvent(p *Purchase, inboundSerial string, lines []ArrivedLine) *PurchaseArrivedEvent {
	var qty int64
	amount := decimal.Zero
	for _, l := range lines {
		qty += l.Quantity
		amount = amount.Add(l.CostPrice.Mul(decimal.NewFromInt(l.Quantity)))
	}
	return &PurchaseArrivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseArrived, AggregateTypePurchase, p.ID, p.TenantID),
		Serial:          p.Serial,
		InboundSerial:   inboundSerial,
		Quantity:        qty,
		Amount:          amount,
		Finished:        p.Status == PurchaseStatusFinished,
	}
}
