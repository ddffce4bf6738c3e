package notification

import (
	"context"
	"testing"

	apptrade "github.com/erp/fulfillment/internal/application/trade"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogNotifier_Notify(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	ctx := logger.WithRequestID(context.Background(), "req-9")
	err := n.Notify(ctx, apptrade.Notification{
		TenantID:  "t-1",
		Kind:      "OrderStatusChanged",
		Reference: "SO-1",
		Message:   "order SO-1: PENDING_SHIP -> SHIPPED",
	})
	require.NoError(t, err)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "order SO-1: PENDING_SHIP -> SHIPPED", entry.Message)
	assert.Equal(t, "notification", entry.LoggerName)
	fields := entry.ContextMap()
	assert.Equal(t, "SO-1", fields["reference"])
	assert.Equal(t, "req-9", fields["request_id"])
}
