package trade

import (
	"context"
	"fmt"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// WaybillRequest asks a carrier for a tracking number
type WaybillRequest struct {
	TenantID        uuid.UUID
	OrderSerial     string
	ExpressID       string
	ReceiverName    string
	ReceiverPhone   string
	ShippingAddress string
	TotalQuantity   int64
}

// CarrierGateway obtains tracking numbers from a carrier. It is called once
// per request; retries belong to the caller.
type CarrierGateway interface {
	RequestWaybill(ctx context.Context, req WaybillRequest) (string, error)
}

// CarrierError wraps a failed carrier call. The order keeps its status and
// stock so the request can be repeated.
type CarrierError struct {
	ExpressID string
	Err       error
}

func (e *CarrierError) Error() string {
	return fmt.Sprintf("carrier %s: %v", e.ExpressID, e.Err)
}

func (e *CarrierError) Unwrap() []error {
	return []error{shared.NewDomainError(ErrCarrierFailed.Code, e.Error()), e.Err}
}

// Carrier related errors
var (
	ErrCarrierFailed      = shared.NewDomainError("CARRIER_FAILED", "Carrier request failed")
	ErrCarrierUnavailable = shared.NewDomainError("CARRIER_UNAVAILABLE", "No carrier gateway configured")
)
