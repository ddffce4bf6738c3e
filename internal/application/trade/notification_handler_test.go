package trade

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNotificationHandler_OrderStatusChanged(t *testing.T) {
	notifier := new(MockNotifier)
	h := NewNotificationHandler(notifier, zap.NewNop())

	order := newTestOrder(t, 1)
	require.NoError(t, order.ConfirmPayment())
	event := order.PopDomainEvents()[0]

	notifier.On("Notify", mock.Anything, Notification{
		TenantID:  testTenant.String(),
		Kind:      trade.EventTypeOrderStatusChanged,
		Reference: "SO-100",
		Message:   "order SO-100: PENDING_PAYMENT -> PENDING_CHECK",
	}).Return(nil).Once()

	require.NoError(t, h.Handle(context.Background(), event))
	notifier.AssertExpectations(t)
}

func TestNotificationHandler_DeliveryFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	notifier := new(MockNotifier)
	notifier.On("Notify", mock.Anything, mock.Anything).Return(errors.New("smtp down"))
	h := NewNotificationHandler(notifier, zap.New(core))

	order := newTestOrder(t, 1)
	require.NoError(t, order.ConfirmPayment())

	err := h.Handle(context.Background(), order.PopDomainEvents()[0])
	assert.NoError(t, err)
	require.Equal(t, 1, logs.FilterMessage("failed to deliver notification").Len())
	entry := logs.All()[0]
	assert.Equal(t, "SO-100", entry.ContextMap()["reference"])
}

func TestNotificationHandler_StockAlerts(t *testing.T) {
	c := stockFor(t, uuid.New(), 1)
	c.MinCount = 5
	event := inventory.NewStockBelowThresholdEvent(c)

	t.Run("enabled", func(t *testing.T) {
		notifier := new(MockNotifier)
		notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n Notification) bool {
			return n.Kind == inventory.EventTypeStockBelowThreshold && n.Reference == c.SkuID.String()
		})).Return(nil).Once()

		h := NewNotificationHandler(notifier, zap.NewNop())
		require.NoError(t, h.Handle(context.Background(), event))
		notifier.AssertExpectations(t)
	})

	t.Run("disabled", func(t *testing.T) {
		notifier := new(MockNotifier)
		h := NewNotificationHandler(notifier, zap.NewNop()).WithStockAlerts(false)
		require.NoError(t, h.Handle(context.Background(), event))
		notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
	})
}

func TestNotificationHandler_IgnoresOtherEvents(t *testing.T) {
	notifier := new(MockNotifier)
	h := NewNotificationHandler(notifier, zap.NewNop())

	c := stockFor(t, uuid.New(), 0)
	entry, err := c.Post(inventory.Posting{
		WarehouseID:    testWarehouse,
		SkuID:          c.SkuID,
		Operation:      inventory.OperationManualInbound,
		Quantity:       1,
		DocumentSerial: "IN-1",
		SourceType:     inventory.SourceAdjustment,
		SourceID:       "IN-1",
	}, c.UpdatedAt)
	require.NoError(t, err)

	require.NoError(t, h.Handle(context.Background(), inventory.NewStockPostedEvent(c, entry)))
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
	assert.Contains(t, h.EventTypes(), trade.EventTypePurchaseArrived)
}
