// Package notification delivers fulfillment notifications.
package notification

import (
	"context"

	apptrade "github.com/erp/fulfillment/internal/application/trade"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// LogNotifier writes notifications to the structured log. It is the default
// sink until a tenant configures a delivery channel.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier
func NewLogNotifier(l *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: l.Named("notification")}
}

// Notify logs n at Info, with the request id when ctx carries one
func (n *LogNotifier) Notify(ctx context.Context, msg apptrade.Notification) error {
	fields := []zap.Field{
		zap.String("tenant_id", msg.TenantID),
		zap.String("kind", msg.Kind),
		zap.String("reference", msg.Reference),
	}
	if id := logger.RequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	n.logger.Info(msg.Message, fields...)
	return nil
}

var _ apptrade.Notifier = (*LogNotifier)(nil)
