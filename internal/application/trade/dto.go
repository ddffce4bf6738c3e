package trade

import (
	"time"

	appinv "github.com/erp/fulfillment/internal/application/inventory"
	"github.com/erp/fulfillment/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreatePurchaseRequest creates a purchase
type CreatePurchaseRequest struct {
	WarehouseID  uuid.UUID           `json:"warehouse_id" binding:"required"`
	SupplierName string              `json:"supplier_name" binding:"max=200"`
	Lines        []PurchaseLineInput `json:"lines" binding:"required,min=1,dive"`
	Remark       string              `json:"remark" binding:"max=500"`
}

// PurchaseLineInput is one requested purchase line
type PurchaseLineInput struct {
	SkuID     uuid.UUID       `json:"sku_id" binding:"required"`
	Quantity  int64           `json:"quantity" binding:"required,gt=0"`
	CostPrice decimal.Decimal `json:"cost_price"`
}

// ArrivalRequest records goods that arrived for a purchase
type ArrivalRequest struct {
	Items  []ArrivalItem `json:"items" binding:"required,min=1,dive"`
	Remark string        `json:"remark" binding:"max=500"`
}

// ArrivalItem is the quantity of one SKU that arrived
type ArrivalItem struct {
	SkuID    uuid.UUID `json:"sku_id" binding:"required"`
	Quantity int64     `json:"quantity" binding:"min=0"`
}

// PurchaseLineResponse represents a purchase line
type PurchaseLineResponse struct {
	ID          uuid.UUID       `json:"id"`
	SkuID       uuid.UUID       `json:"sku_id"`
	Quantity    int64           `json:"quantity"`
	InQuantity  int64           `json:"in_quantity"`
	Outstanding int64           `json:"outstanding"`
	CostPrice   decimal.Decimal `json:"cost_price"`
}

// PurchaseResponse represents a purchase in API responses
type PurchaseResponse struct {
	ID           uuid.UUID              `json:"id"`
	Serial       string                 `json:"serial"`
	SupplierName string                 `json:"supplier_name,omitempty"`
	WarehouseID  uuid.UUID              `json:"warehouse_id"`
	Status       string                 `json:"status"`
	TotalAmount  decimal.Decimal        `json:"total_amount"`
	Remark       string                 `json:"remark,omitempty"`
	ArrivedAt    *time.Time             `json:"arrived_at,omitempty"`
	Lines        []PurchaseLineResponse `json:"lines"`
	CreatedAt    time.Time              `json:"created_at"`
	Version      int                    `json:"version"`
}

// ToPurchaseResponse converts a purchase to its response
func ToPurchaseResponse(p *trade.Purchase) PurchaseResponse {
	resp := PurchaseResponse{
		ID:           p.ID,
		Serial:       p.Serial,
		SupplierName: p.SupplierName,
		WarehouseID:  p.WarehouseID,
		Status:       p.Status.String(),
		TotalAmount:  p.TotalAmount,
		Remark:       p.Remark,
		ArrivedAt:    p.ArrivedAt,
		Lines:        make([]PurchaseLineResponse, len(p.Lines)),
		CreatedAt:    p.CreatedAt,
		Version:      p.Version,
	}
	for i := range p.Lines {
		l := &p.Lines[i]
		resp.Lines[i] = PurchaseLineResponse{
			ID:          l.ID,
			SkuID:       l.SkuID,
			Quantity:    l.Quantity,
			InQuantity:  l.InQuantity,
			Outstanding: l.Outstanding(),
			CostPrice:   l.CostPrice,
		}
	}
	return resp
}

// ArrivalResponse is returned after an arrival is recorded
type ArrivalResponse struct {
	Purchase PurchaseResponse             `json:"purchase"`
	Document appinv.DocumentResponse      `json:"document"`
	Entries  []appinv.LedgerEntryResponse `json:"entries"`
}

// CreateOrderRequest creates a sales order
type CreateOrderRequest struct {
	WarehouseID     uuid.UUID        `json:"warehouse_id" binding:"required"`
	BuyerName       string           `json:"buyer_name" binding:"max=100"`
	ReceiverName    string           `json:"receiver_name" binding:"max=100"`
	ReceiverPhone   string           `json:"receiver_phone" binding:"max=30"`
	ShippingAddress string           `json:"shipping_address" binding:"max=500"`
	Items           []OrderItemInput `json:"items" binding:"required,min=1,dive"`
	Remark          string           `json:"remark" binding:"max=500"`
}

// OrderItemInput is one requested order item
type OrderItemInput struct {
	SkuID          uuid.UUID       `json:"sku_id" binding:"required"`
	Quantity       int64           `json:"quantity" binding:"required,gt=0"`
	DealPrice      decimal.Decimal `json:"deal_price"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

// ShipRequest records shipment details
type ShipRequest struct {
	ExpressID string `json:"express_id" binding:"required,max=50"`
	ExpressNo string `json:"express_no" binding:"max=100"`
}

// ConfirmPrintedRequest records the tracking number of a printed label
type ConfirmPrintedRequest struct {
	ExpressNo string `json:"express_no" binding:"required,max=100"`
}

// CancelOrderRequest cancels an order
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// SplitOrderRequest selects the items to move to a new order
type SplitOrderRequest struct {
	ItemIDs []uuid.UUID `json:"item_ids"`
}

// OrderItemResponse represents an order item
type OrderItemResponse struct {
	ID             uuid.UUID       `json:"id"`
	SkuID          uuid.UUID       `json:"sku_id"`
	Quantity       int64           `json:"quantity"`
	DealPrice      decimal.Decimal `json:"deal_price"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	PayAmount      decimal.Decimal `json:"pay_amount"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID              uuid.UUID           `json:"id"`
	Serial          string              `json:"serial"`
	WarehouseID     uuid.UUID           `json:"warehouse_id"`
	Status          string              `json:"status"`
	BuyerName       string              `json:"buyer_name,omitempty"`
	ReceiverName    string              `json:"receiver_name,omitempty"`
	ReceiverPhone   string              `json:"receiver_phone,omitempty"`
	ShippingAddress string              `json:"shipping_address,omitempty"`
	TotalQuantity   int64               `json:"total_quantity"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	DiscountAmount  decimal.Decimal     `json:"discount_amount"`
	PayAmount       decimal.Decimal     `json:"pay_amount"`
	StockReserved   bool                `json:"stock_reserved"`
	OutboundSerial  string              `json:"outbound_serial,omitempty"`
	ExpressID       string              `json:"express_id,omitempty"`
	ExpressNo       string              `json:"express_no,omitempty"`
	ParentOrderID   *uuid.UUID          `json:"parent_order_id,omitempty"`
	Remark          string              `json:"remark,omitempty"`
	CancelReason    string              `json:"cancel_reason,omitempty"`
	Items           []OrderItemResponse `json:"items"`
	PaidAt          *time.Time          `json:"paid_at,omitempty"`
	ApprovedAt      *time.Time          `json:"approved_at,omitempty"`
	ShippedAt       *time.Time          `json:"shipped_at,omitempty"`
	SignedAt        *time.Time          `json:"signed_at,omitempty"`
	FinishedAt      *time.Time          `json:"finished_at,omitempty"`
	ClosedAt        *time.Time          `json:"closed_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	Version         int                 `json:"version"`
}

// ToOrderResponse converts an order to its response
func ToOrderResponse(o *trade.Order) OrderResponse {
	resp := OrderResponse{
		ID:              o.ID,
		Serial:          o.Serial,
		WarehouseID:     o.WarehouseID,
		Status:          o.Status.String(),
		BuyerName:       o.Shipping.BuyerName,
		ReceiverName:    o.Shipping.ReceiverName,
		ReceiverPhone:   o.Shipping.ReceiverPhone,
		ShippingAddress: o.Shipping.ShippingAddress,
		TotalQuantity:   o.TotalQuantity,
		TotalAmount:     o.TotalAmount,
		DiscountAmount:  o.DiscountAmount,
		PayAmount:       o.PayAmount,
		StockReserved:   o.StockReserved,
		OutboundSerial:  o.OutboundSerial,
		ExpressID:       o.ExpressID,
		ExpressNo:       o.ExpressNo,
		ParentOrderID:   o.ParentOrderID,
		Remark:          o.Remark,
		CancelReason:    o.CancelReason,
		Items:           make([]OrderItemResponse, len(o.Items)),
		PaidAt:          o.PaidAt,
		ApprovedAt:      o.ApprovedAt,
		ShippedAt:       o.ShippedAt,
		SignedAt:        o.SignedAt,
		FinishedAt:      o.FinishedAt,
		ClosedAt:        o.ClosedAt,
		CreatedAt:       o.CreatedAt,
		Version:         o.Version,
	}
	for i := range o.Items {
		it := &o.Items[i]
		resp.Items[i] = OrderItemResponse{
			ID:             it.ID,
			SkuID:          it.SkuID,
			Quantity:       it.Quantity,
			DealPrice:      it.DealPrice,
			TotalAmount:    it.TotalAmount,
			DiscountAmount: it.DiscountAmount,
			PayAmount:      it.PayAmount,
		}
	}
	return resp
}

// SplitOrderResponse returns both orders after a split
type SplitOrderResponse struct {
	Source OrderResponse `json:"source"`
	Split  OrderResponse `json:"split"`
}

// OrderListFilter represents filter options for order lists
type OrderListFilter struct {
	Status      string     `form:"status"`
	WarehouseID *uuid.UUID `form:"-"`
	Page        int        `form:"page" binding:"omitempty,min=1"`
	PageSize    int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}
