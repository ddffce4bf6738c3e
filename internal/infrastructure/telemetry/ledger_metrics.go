package telemetry

import (
	"context"
	"fmt"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/domain/trade"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// LedgerMetrics records stock movements and order transitions as OTel
// instruments. It subscribes to the event bus like any other handler.
type LedgerMetrics struct {
	postings     metric.Int64Counter
	quantity     metric.Int64Counter
	transitions  metric.Int64Counter
	lowStock     metric.Int64Counter
	purchaseRecv metric.Int64Counter
	reconciled   metric.Int64Counter
	broken       metric.Int64Counter
}

// NewLedgerMetrics creates the ledger instruments on meter.
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	m := &LedgerMetrics{}
	var err error
	if m.postings, err = meter.Int64Counter("ledger_postings_total",
		metric.WithDescription("Ledger entries written")); err != nil {
		return nil, fmt.Errorf("create postings counter: %w", err)
	}
	if m.quantity, err = meter.Int64Counter("ledger_posted_quantity_total",
		metric.WithDescription("Units moved by ledger entries"), metric.WithUnit("{unit}")); err != nil {
		return nil, fmt.Errorf("create quantity counter: %w", err)
	}
	if m.transitions, err = meter.Int64Counter("order_transitions_total",
		metric.WithDescription("Order status transitions")); err != nil {
		return nil, fmt.Errorf("create transitions counter: %w", err)
	}
	if m.lowStock, err = meter.Int64Counter("stock_below_threshold_total",
		metric.WithDescription("Postings that left a counter under its minimum")); err != nil {
		return nil, fmt.Errorf("create low stock counter: %w", err)
	}
	if m.purchaseRecv, err = meter.Int64Counter("purchase_received_quantity_total",
		metric.WithDescription("Units received against purchases"), metric.WithUnit("{unit}")); err != nil {
		return nil, fmt.Errorf("create purchase counter: %w", err)
	}
	if m.reconciled, err = meter.Int64Counter("ledger_reconcile_runs_total",
		metric.WithDescription("Tenant reconciliation sweeps by outcome")); err != nil {
		return nil, fmt.Errorf("create reconcile counter: %w", err)
	}
	if m.broken, err = meter.Int64Counter("ledger_reconcile_broken_counters_total",
		metric.WithDescription("Counters whose ledger did not replay to their count")); err != nil {
		return nil, fmt.Errorf("create broken counter: %w", err)
	}
	return m, nil
}

// EventTypes implements shared.EventHandler.
func (m *LedgerMetrics) EventTypes() []string {
	return []string{
		inventory.EventTypeStockPosted,
		inventory.EventTypeStockBelowThreshold,
		trade.EventTypeOrderStatusChanged,
		trade.EventTypePurchaseArrived,
	}
}

// Handle implements shared.EventHandler.
func (m *LedgerMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *inventory.StockPostedEvent:
		attrs := metric.WithAttributes(
			attribute.String("operation", string(e.OperationType)),
			attribute.String("direction", string(e.Direction)),
		)
		m.postings.Add(ctx, 1, attrs)
		m.quantity.Add(ctx, e.Quantity, attrs)
	case *inventory.StockBelowThresholdEvent:
		m.lowStock.Add(ctx, 1)
	case *trade.OrderStatusChangedEvent:
		m.transitions.Add(ctx, 1, metric.WithAttributes(
			attribute.String("from", string(e.FromStatus)),
			attribute.String("to", string(e.ToStatus)),
		))
	case *trade.PurchaseArrivedEvent:
		m.purchaseRecv.Add(ctx, e.Quantity)
	}
	return nil
}

// RecordReconciliation counts one tenant sweep. failed means the sweep
// itself errored, not that breaks were found.
func (m *LedgerMetrics) RecordReconciliation(ctx context.Context, inconsistent int, failed bool) {
	outcome := "ok"
	switch {
	case failed:
		outcome = "error"
	case inconsistent > 0:
		outcome = "broken"
	}
	m.reconciled.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	if inconsistent > 0 {
		m.broken.Add(ctx, int64(inconsistent))
	}
}

var _ shared.EventHandler = (*LedgerMetrics)(nil)
