package trade

import (
	"context"
	"fmt"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/domain/trade"
	"go.uber.org/zap"
)

// Notification is a message about a fulfillment event for a tenant
type Notification struct {
	TenantID  string `json:"tenant_id"`
	Kind      string `json:"kind"`
	Reference string `json:"reference"`
	Message   string `json:"message"`
}

// Notifier delivers notifications. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotificationHandler turns fulfillment events into notifications. A failed
// delivery is logged and never fails the operation that raised the event.
type NotificationHandler struct {
	notifier    Notifier
	stockAlerts bool
	logger      *zap.Logger
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifier Notifier, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifier:    notifier,
		stockAlerts: true,
		logger:      logger,
	}
}

// WithStockAlerts turns low stock notifications on or off
func (h *NotificationHandler) WithStockAlerts(enabled bool) *NotificationHandler {
	h.stockAlerts = enabled
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *NotificationHandler) EventTypes() []string {
	return []string{
		trade.EventTypeOrderStatusChanged,
		trade.EventTypeOrderSplit,
		trade.EventTypePurchaseArrived,
		inventory.EventTypeStockBelowThreshold,
	}
}

// Handle processes a fulfillment event
func (h *NotificationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	n, ok := h.notificationFor(event)
	if !ok {
		return nil
	}
	if err := h.notifier.Notify(ctx, n); err != nil {
		h.logger.Warn("failed to deliver notification",
			zap.String("tenant_id", n.TenantID),
			zap.String("kind", n.Kind),
			zap.String("reference", n.Reference),
			zap.Error(err),
		)
	}
	return nil
}

func (h *NotificationHandler) notificationFor(event shared.DomainEvent) (Notification, bool) {
	n := Notification{TenantID: event.TenantID().String(), Kind: event.EventType()}
	switch e := event.(type) {
	case *trade.OrderStatusChangedEvent:
		n.Reference = e.Serial
		n.Message = fmt.Sprintf("order %s: %s -> %s", e.Serial, e.FromStatus, e.ToStatus)
	case *trade.OrderSplitEvent:
		n.Reference = e.Serial
		n.Message = fmt.Sprintf("order %s split into %s (%d items)", e.Serial, e.ChildSerial, e.MovedItems)
	case *trade.PurchaseArrivedEvent:
		n.Reference = e.Serial
		n.Message = fmt.Sprintf("purchase %s received %d units under %s", e.Serial, e.Quantity, e.InboundSerial)
		if e.Finished {
			n.Message += ", purchase finished"
		}
	case *inventory.StockBelowThresholdEvent:
		if !h.stockAlerts {
			return n, false
		}
		n.Reference = e.SkuID.String()
		n.Message = fmt.Sprintf("sku %s in warehouse %s at %d, minimum %d", e.SkuID, e.WarehouseID, e.CurrentCount, e.MinCount)
	default:
		h.logger.Debug("no notification for event", zap.String("event_type", event.EventType()))
		return n, false
	}
	return n, true
}

var _ shared.EventHandler = (*NotificationHandler)(nil)
