// Package statistics keeps eventually consistent fulfillment figures per
// tenant. It consumes domain events off the request path, so figures may lag
// the ledger and are never used to make stock decisions.
package statistics

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultBufferSize is the event queue size used when none is configured
const DefaultBufferSize = 1024

// TenantStatistics are the aggregates kept for one tenant
type TenantStatistics struct {
	TenantID          uuid.UUID        `json:"tenant_id"`
	Postings          int64            `json:"postings"`
	InboundQuantity   int64            `json:"inbound_quantity"`
	OutboundQuantity  int64            `json:"outbound_quantity"`
	QuantityByOp      map[string]int64 `json:"quantity_by_operation"`
	Transitions       map[string]int64 `json:"transitions_to_status"`
	OrdersApproved    int64            `json:"orders_approved"`
	OrdersCanceled    int64            `json:"orders_canceled"`
	OrdersSplit       int64            `json:"orders_split"`
	SalesAmount       decimal.Decimal  `json:"sales_amount"`
	PurchaseArrivals  int64            `json:"purchase_arrivals"`
	PurchasesFinished int64            `json:"purchases_finished"`
	ReceivedQuantity  int64            `json:"received_quantity"`
	ReceivedAmount    decimal.Decimal  `json:"received_amount"`
	LowStockAlerts    int64            `json:"low_stock_alerts"`
	LastEventAt       *time.Time       `json:"last_event_at,omitempty"`
}

func newTenantStatistics(tenantID uuid.UUID) *TenantStatistics {
	return &TenantStatistics{
		TenantID:       tenantID,
		QuantityByOp:   make(map[string]int64),
		Transitions:    make(map[string]int64),
		SalesAmount:    decimal.Zero,
		ReceivedAmount: decimal.Zero,
	}
}

func (t *TenantStatistics) clone() TenantStatistics {
	c := *t
	c.QuantityByOp = make(map[string]int64, len(t.QuantityByOp))
	for k, v := range t.QuantityByOp {
		c.QuantityByOp[k] = v
	}
	c.Transitions = make(map[string]int64, len(t.Transitions))
	for k, v := range t.Transitions {
		c.Transitions[k] = v
	}
	if t.LastEventAt != nil {
		at := *t.LastEventAt
		c.LastEventAt = &at
	}
	return c
}

// Collector aggregates fulfillment events asynchronously. Handle only
// enqueues; a single worker applies events in arrival order. Events are
// dropped with a warning when the queue is full.
type Collector struct {
	queue   chan shared.DomainEvent
	mu      sync.RWMutex
	tenants map[uuid.UUID]*TenantStatistics
	dropped atomic.Int64
	running atomic.Bool
	wg      sync.WaitGroup
	done    chan struct{}
	logger  *zap.Logger
}

// NewCollector creates a new Collector
func NewCollector(bufferSize int, logger *zap.Logger) *Collector {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Collector{
		queue:   make(chan shared.DomainEvent, bufferSize),
		tenants: make(map[uuid.UUID]*TenantStatistics),
		done:    make(chan struct{}),
		logger:  logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (c *Collector) EventTypes() []string {
	return []string{
		inventory.EventTypeStockPosted,
		inventory.EventTypeStockBelowThreshold,
		trade.EventTypeOrderStatusChanged,
		trade.EventTypeOrderSplit,
		trade.EventTypePurchaseArrived,
	}
}

// Handle enqueues the event without blocking
func (c *Collector) Handle(_ context.Context, event shared.DomainEvent) error {
	select {
	case c.queue <- event:
	default:
		c.dropped.Add(1)
		c.logger.Warn("statistics queue full, event dropped",
			zap.String("event_type", event.EventType()),
			zap.String("event_id", event.EventID().String()),
		)
	}
	return nil
}

// Start starts the worker
func (c *Collector) Start(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return nil
	}
	c.wg.Add(1)
	go c.run(ctx)
	c.logger.Info("statistics collector started", zap.Int("buffer", cap(c.queue)))
	return nil
}

// Stop drains the queue and stops the worker
func (c *Collector) Stop(ctx context.Context) error {
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}
	close(c.done)

	finished := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		c.logger.Info("statistics collector stopped", zap.Int64("dropped", c.dropped.Load()))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Collector) run(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case event := <-c.queue:
			c.apply(event)
		case <-c.done:
			c.drain()
			return
		case <-ctx.Done():
			c.drain()
			return
		}
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.queue:
			c.apply(event)
		default:
			return
		}
	}
}

func (c *Collector) apply(event shared.DomainEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, ok := c.tenants[event.TenantID()]
	if !ok {
		stats = newTenantStatistics(event.TenantID())
		c.tenants[event.TenantID()] = stats
	}
	at := event.OccurredAt()
	stats.LastEventAt = &at

	switch e := event.(type) {
	case *inventory.StockPostedEvent:
		stats.Postings++
		stats.QuantityByOp[e.OperationType.String()] += e.Quantity
		if e.Direction == inventory.DirectionIn {
			stats.InboundQuantity += e.Quantity
		} else {
			stats.OutboundQuantity += e.Quantity
		}
	case *inventory.StockBelowThresholdEvent:
		stats.LowStockAlerts++
	case *trade.OrderStatusChangedEvent:
		stats.Transitions[e.ToStatus.String()]++
		switch e.ToStatus {
		case trade.OrderStatusPendingShipment:
			stats.OrdersApproved++
			if amount, err := decimal.NewFromString(e.PayAmount); err == nil {
				stats.SalesAmount = stats.SalesAmount.Add(amount)
			}
		case trade.OrderStatusCanceled:
			stats.OrdersCanceled++
		}
	case *trade.OrderSplitEvent:
		stats.OrdersSplit++
	case *trade.PurchaseArrivedEvent:
		stats.PurchaseArrivals++
		stats.ReceivedQuantity += e.Quantity
		stats.ReceivedAmount = stats.ReceivedAmount.Add(e.Amount)
		if e.Finished {
			stats.PurchasesFinished++
		}
	}
}

// Snapshot returns a copy of the tenant's figures
func (c *Collector) Snapshot(tenantID uuid.UUID) TenantStatistics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats, ok := c.tenants[tenantID]
	if !ok {
		return *newTenantStatistics(tenantID)
	}
	return stats.clone()
}

// Dropped returns how many events were dropped because the queue was full
func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

var _ shared.EventHandler = (*Collector)(nil)
