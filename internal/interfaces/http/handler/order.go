package handler

import (
	"context"

	tradeapp "github.com/erp/fulfillment/internal/application/trade"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderService drives sales orders through fulfillment
type OrderService interface {
	Create(ctx context.Context, tenantID uuid.UUID, req tradeapp.CreateOrderRequest) (*tradeapp.OrderResponse, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*tradeapp.OrderResponse, error)
	List(ctx context.Context, tenantID uuid.UUID, filter tradeapp.OrderListFilter) ([]tradeapp.OrderResponse, int64, error)
	ConfirmPayment(ctx context.Context, tenantID, id uuid.UUID) (*tradeapp.OrderResponse, error)
	Approve(ctx context.Context, tenantID, id uuid.UUID) (*tradeapp.OrderResponse, error)
	Ship(ctx context.Context, tenantID, id uuid.UUID, req tradeapp.ShipRequest) (*tradeapp.OrderResponse, error)
	PrintLabel(ctx context.Context, tenantID, id uuid.UUID) (*tradeapp.OrderResponse, error)
	ConfirmPrinted(ctx context.Context, tenantID, id uuid.UUID, req tradeapp.ConfirmPrintedRequest) (*tradeapp.OrderResponse, error)
	Sign(ctx context.Context, tenantID, id uuid.UUID) (*tradeapp.OrderResponse, error)
	Finish(ctx context.Context, tenantID, id uuid.UUID) (*tradeapp.OrderResponse, error)
	Cancel(ctx context.Context, tenantID, id uuid.UUID, req tradeapp.CancelOrderRequest) (*tradeapp.OrderResponse, error)
	Split(ctx context.Context, tenantID, id uuid.UUID, req tradeapp.SplitOrderRequest) (*tradeapp.SplitOrderResponse, error)
}

// OrderHandler handles sales order endpoints
type OrderHandler struct {
	BaseHandler
	orders OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// Create godoc
// @ID           createOrder
// @Summary      Create a sales order
// @Description  Creates an order in PENDING_PAYMENT. Stock is not touched until approval.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        request body tradeapp.CreateOrderRequest true "Order"
// @Success      201 {object} APIResponse[tradeapp.OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /orders [post]
func (h *OrderHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req tradeapp.CreateOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}
	order, err := h.orders.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// GetByID godoc
// @ID           getOrderById
// @Summary      Get a sales order
// @Tags         orders
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[tradeapp.OrderResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /orders/{id} [get]
func (h *OrderHandler) GetByID(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.GetByID(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// List godoc
// @ID           listOrders
// @Summary      List sales orders
// @Tags         orders
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        status query string false "Order status"
// @Param        warehouse_id query string false "Warehouse ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]tradeapp.OrderResponse]
// @Router       /orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var filter tradeapp.OrderListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	if filter.WarehouseID, ok = h.uuidQuery(c, "warehouse_id"); !ok {
		return
	}
	orders, total, err := h.orders.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, pageSize := pageOrDefault(filter.Page, filter.PageSize)
	h.SuccessWithMeta(c, orders, total, page, pageSize)
}

type orderAction func(ctx context.Context, tenantID, id uuid.UUID) (*tradeapp.OrderResponse, error)

// transition runs a body-less status change on the order in the path
func (h *OrderHandler) transition(c *gin.Context, action orderAction) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	order, err := action(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// ConfirmPayment moves a paid order to PENDING_CHECK
func (h *OrderHandler) ConfirmPayment(c *gin.Context) {
	h.transition(c, h.orders.ConfirmPayment)
}

// Approve godoc
// @ID           approveOrder
// @Summary      Approve an order and post its outbound stock
// @Description  Checks every item against available stock and posts them in one transaction. All shortages are reported together.
// @Tags         orders
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        Idempotency-Key header string false "Replay protection key"
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[tradeapp.OrderResponse]
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /orders/{id}/approve [post]
func (h *OrderHandler) Approve(c *gin.Context) {
	h.transition(c, h.orders.Approve)
}

// Ship records the carrier and tracking number. Without a tracking number the
// order waits for a label.
func (h *OrderHandler) Ship(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req tradeapp.ShipRequest
	if !h.bindJSON(c, &req) {
		return
	}
	order, err := h.orders.Ship(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// PrintLabel requests a tracking number from the carrier
func (h *OrderHandler) PrintLabel(c *gin.Context) {
	h.transition(c, h.orders.PrintLabel)
}

// ConfirmPrinted completes a PENDING_PRINT order with its tracking number
func (h *OrderHandler) ConfirmPrinted(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req tradeapp.ConfirmPrintedRequest
	if !h.bindJSON(c, &req) {
		return
	}
	order, err := h.orders.ConfirmPrinted(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Sign records delivery
func (h *OrderHandler) Sign(c *gin.Context) {
	h.transition(c, h.orders.Sign)
}

// Finish closes a signed order
func (h *OrderHandler) Finish(c *gin.Context) {
	h.transition(c, h.orders.Finish)
}

// Cancel godoc
// @ID           cancelOrder
// @Summary      Cancel an order
// @Description  Stock already posted for an approved order is returned to the warehouse.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body tradeapp.CancelOrderRequest false "Reason"
// @Success      200 {object} APIResponse[tradeapp.OrderResponse]
// @Failure      422 {object} ErrorResponse
// @Router       /orders/{id}/cancel [post]
func (h *OrderHandler) Cancel(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req tradeapp.CancelOrderRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}
	order, err := h.orders.Cancel(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Split moves the selected items of an unshipped order to a new order
func (h *OrderHandler) Split(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req tradeapp.SplitOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.orders.Split(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}
