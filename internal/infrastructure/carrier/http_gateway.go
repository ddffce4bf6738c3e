// Package carrier talks to the waybill service that issues tracking numbers.
package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apptrade "github.com/erp/fulfillment/internal/application/trade"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// maxResponseSize bounds the waybill response body
const maxResponseSize = 1 << 20

// Errors returned by the gateway. They are wrapped in apptrade.CarrierError.
var (
	ErrCarrierUnreachable = errors.New("carrier unreachable")
	ErrCarrierRejected    = errors.New("carrier rejected request")
	ErrEmptyTrackingNo    = errors.New("carrier returned no tracking number")
)

type waybillRequest struct {
	TenantID        string `json:"tenant_id"`
	OrderSerial     string `json:"order_serial"`
	ExpressID       string `json:"express_id"`
	ReceiverName    string `json:"receiver_name"`
	ReceiverPhone   string `json:"receiver_phone"`
	ShippingAddress string `json:"shipping_address"`
	TotalQuantity   int64  `json:"total_quantity"`
}

type waybillResponse struct {
	Success    bool   `json:"success"`
	TrackingNo string `json:"tracking_no"`
	Message    string `json:"message"`
}

// HTTPGateway requests waybills from a JSON endpoint
type HTTPGateway struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPGateway creates a gateway posting to endpoint/waybills
func NewHTTPGateway(endpoint string, timeout time.Duration, logger *zap.Logger) (*HTTPGateway, error) {
	if endpoint == "" {
		return nil, errors.New("carrier endpoint is required")
	}
	return &HTTPGateway{
		endpoint: strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}, nil
}

// RequestWaybill asks the carrier for a tracking number. It makes exactly one
// call; the caller decides whether to retry.
func (g *HTTPGateway) RequestWaybill(ctx context.Context, req apptrade.WaybillRequest) (string, error) {
	body, err := json.Marshal(waybillRequest{
		TenantID:        req.TenantID.String(),
		OrderSerial:     req.OrderSerial,
		ExpressID:       req.ExpressID,
		ReceiverName:    req.ReceiverName,
		ReceiverPhone:   req.ReceiverPhone,
		ShippingAddress: req.ShippingAddress,
		TotalQuantity:   req.TotalQuantity,
	})
	if err != nil {
		return "", fmt.Errorf("carrier: failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"/waybills", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("carrier: failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.TenantID.String()+":"+req.OrderSerial)

	start := time.Now()
	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCarrierUnreachable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("carrier: failed to read response: %w", err)
	}

	g.logger.Debug("waybill requested",
		zap.String("order_serial", req.OrderSerial),
		zap.String("express_id", req.ExpressID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("%w: HTTP %d", ErrCarrierUnreachable, resp.StatusCode)
	}

	var out waybillResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: HTTP %d, undecodable body", ErrCarrierRejected, resp.StatusCode)
	}
	if resp.StatusCode >= 400 || !out.Success {
		msg := out.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", fmt.Errorf("%w: %s", ErrCarrierRejected, msg)
	}
	if strings.TrimSpace(out.TrackingNo) == "" {
		return "", ErrEmptyTrackingNo
	}
	return out.TrackingNo, nil
}

var _ apptrade.CarrierGateway = (*HTTPGateway)(nil)
