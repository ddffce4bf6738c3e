package statistics

import (
	"context"
	"testing"
	"time"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func postedEvent(tenantID uuid.UUID, op inventory.OperationType, qty int64) *inventory.StockPostedEvent {
	return &inventory.StockPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(inventory.EventTypeStockPosted, inventory.AggregateTypeStockCounter, uuid.New(), tenantID),
		OperationType:   op,
		Direction:       op.Direction(),
		Quantity:        qty,
	}
}

func TestCollector_AggregatesAfterStop(t *testing.T) {
	tenantID := uuid.New()
	c := NewCollector(16, zap.NewNop())
	require.NoError(t, c.Start(context.Background()))

	ctx := context.Background()
	require.NoError(t, c.Handle(ctx, postedEvent(tenantID, inventory.OperationPurchaseInbound, 10)))
	require.NoError(t, c.Handle(ctx, postedEvent(tenantID, inventory.OperationOrderOutbound, 4)))
	require.NoError(t, c.Handle(ctx, &trade.OrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(trade.EventTypeOrderStatusChanged, trade.AggregateTypeOrder, uuid.New(), tenantID),
		FromStatus:      trade.OrderStatusPendingCheck,
		ToStatus:        trade.OrderStatusPendingShipment,
		PayAmount:       "32",
	}))
	require.NoError(t, c.Handle(ctx, &trade.PurchaseArrivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(trade.EventTypePurchaseArrived, trade.AggregateTypePurchase, uuid.New(), tenantID),
		Quantity:        10,
		Amount:          decimal.NewFromInt(50),
		Finished:        true,
	}))

	require.NoError(t, c.Stop(context.Background()))

	stats := c.Snapshot(tenantID)
	assert.Equal(t, int64(2), stats.Postings)
	assert.Equal(t, int64(10), stats.InboundQuantity)
	assert.Equal(t, int64(4), stats.OutboundQuantity)
	assert.Equal(t, int64(4), stats.QuantityByOp["ORDER_OUTBOUND"])
	assert.Equal(t, int64(1), stats.OrdersApproved)
	assert.True(t, decimal.NewFromInt(32).Equal(stats.SalesAmount))
	assert.Equal(t, int64(1), stats.PurchasesFinished)
	assert.True(t, decimal.NewFromInt(50).Equal(stats.ReceivedAmount))
	assert.NotNil(t, stats.LastEventAt)
}

func TestCollector_DropsWhenQueueFull(t *testing.T) {
	tenantID := uuid.New()
	c := NewCollector(1, zap.NewNop())

	// Not started, so the single slot fills up
	require.NoError(t, c.Handle(context.Background(), postedEvent(tenantID, inventory.OperationManualInbound, 1)))
	require.NoError(t, c.Handle(context.Background(), postedEvent(tenantID, inventory.OperationManualInbound, 1)))

	assert.Equal(t, int64(1), c.Dropped())
}

func TestCollector_SnapshotIsACopy(t *testing.T) {
	tenantID := uuid.New()
	c := NewCollector(4, zap.NewNop())
	c.apply(postedEvent(tenantID, inventory.OperationManualInbound, 3))

	snap := c.Snapshot(tenantID)
	snap.QuantityByOp["MANUAL_INBOUND"] = 100

	assert.Equal(t, int64(3), c.Snapshot(tenantID).QuantityByOp["MANUAL_INBOUND"])
}

func TestCollector_UnknownTenantIsEmpty(t *testing.T) {
	c := NewCollector(0, zap.NewNop())
	stats := c.Snapshot(uuid.New())
	assert.Zero(t, stats.Postings)
	assert.NotNil(t, stats.QuantityByOp)
}

func TestCollector_StopRespectsContext(t *testing.T) {
	c := NewCollector(4, zap.NewNop())
	require.NoError(t, c.Start(context.Background()))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, c.Stop(ctx))
	// Second stop is a no-op
	assert.NoError(t, c.Stop(ctx))
}
