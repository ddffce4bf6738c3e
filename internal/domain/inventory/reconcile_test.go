package inventory

import (
	"errors"
	"testing"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildLedger(t *testing.T, c *StockCounter, steps ...struct {
	op  OperationType
	qty int64
}) []LedgerEntry {
	t.Helper()
	entries := make([]LedgerEntry, 0, len(steps))
	for _, s := range steps {
		e, err := c.Post(postingFor(c, s.op, s.qty), time.Now())
		require.NoError(t, err)
		entries = append(entries, *e)
	}
	return entries
}

type step = struct {
	op  OperationType
	qty int64
}

func TestReplay(t *testing.T) {
	t.Run("intact chain reconciles", func(t *testing.T) {
		c := newTestCounter(t)
		entries := buildLedger(t, c,
			step{OperationPurchaseInbound, 10},
			step{OperationOrderOutbound, 4},
			step{OperationReturnInbound, 4},
			step{OperationManualOutbound, 1},
		)
		assert.NoError(t, Replay(c, entries))
		assert.Equal(t, int64(9), c.CurrentCount)
	})

	t.Run("empty ledger on empty counter reconciles", func(t *testing.T) {
		c := newTestCounter(t)
		assert.NoError(t, Replay(c, nil))
	})

	t.Run("reports drifted counter", func(t *testing.T) {
		c := newTestCounter(t)
		entries := buildLedger(t, c, step{OperationPurchaseInbound, 10})
		c.CurrentCount = 12

		err := Replay(c, entries)
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrLedgerReconciliation))

		var recErr *LedgerReconciliationError
		require.True(t, errors.As(err, &recErr))
		require.Len(t, recErr.Breaks, 1)
		assert.Equal(t, int64(10), recErr.Breaks[0].Expected)
		assert.Equal(t, int64(12), recErr.Breaks[0].Actual)
	})

	t.Run("reports broken link without healing it", func(t *testing.T) {
		c := newTestCounter(t)
		entries := buildLedger(t, c,
			step{OperationPurchaseInbound, 10},
			step{OperationOrderOutbound, 4},
		)
		entries[1].OriginalQuantity = 9

		err := Replay(c, entries)
		var recErr *LedgerReconciliationError
		require.True(t, errors.As(err, &recErr))
		assert.NotEmpty(t, recErr.Breaks)
		assert.Equal(t, int64(9), entries[1].OriginalQuantity)
	})

	t.Run("reports sequence gap", func(t *testing.T) {
		c := newTestCounter(t)
		entries := buildLedger(t, c,
			step{OperationPurchaseInbound, 10},
			step{OperationOrderOutbound, 4},
			step{OperationOrderOutbound, 1},
		)
		entries = append(entries[:1], entries[2:]...)
		entries[1].OriginalQuantity = 10
		entries[1].ResultingQuantity = 9
		c.CurrentCount = 9

		err := Replay(c, entries)
		var recErr *LedgerReconciliationError
		require.True(t, errors.As(err, &recErr))
		reasons := make([]string, 0, len(recErr.Breaks))
		for _, b := range recErr.Breaks {
			reasons = append(reasons, b.Reason)
		}
		assert.Contains(t, reasons, "sequence gap")
	})
}
