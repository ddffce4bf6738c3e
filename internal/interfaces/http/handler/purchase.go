package handler

import (
	"context"

	tradeapp "github.com/erp/fulfillment/internal/application/trade"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PurchaseService records purchases and their arrivals
type PurchaseService interface {
	Create(ctx context.Context, tenantID uuid.UUID, req tradeapp.CreatePurchaseRequest) (*tradeapp.PurchaseResponse, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*tradeapp.PurchaseResponse, error)
	List(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]tradeapp.PurchaseResponse, int64, error)
	RecordArrival(ctx context.Context, tenantID, id uuid.UUID, req tradeapp.ArrivalRequest) (*tradeapp.ArrivalResponse, error)
}

// PurchaseHandler handles purchase endpoints
type PurchaseHandler struct {
	BaseHandler
	purchases PurchaseService
}

// NewPurchaseHandler creates a new PurchaseHandler
func NewPurchaseHandler(purchases PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{purchases: purchases}
}

// Create godoc
// @ID           createPurchase
// @Summary      Create a purchase
// @Tags         purchases
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        request body tradeapp.CreatePurchaseRequest true "Purchase"
// @Success      201 {object} APIResponse[tradeapp.PurchaseResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /purchases [post]
func (h *PurchaseHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req tradeapp.CreatePurchaseRequest
	if !h.bindJSON(c, &req) {
		return
	}
	purchase, err := h.purchases.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, purchase)
}

// GetByID returns a purchase with its lines
func (h *PurchaseHandler) GetByID(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	purchase, err := h.purchases.GetByID(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, purchase)
}

// List lists purchases, optionally by status
func (h *PurchaseHandler) List(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	req := dto.DefaultListRequest()
	if !h.bindQuery(c, &req) {
		return
	}
	filter := toFilter(req)
	purchases, total, err := h.purchases.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, purchases, total, filter.Page, filter.PageSize)
}

// RecordArrival godoc
// @ID           recordPurchaseArrival
// @Summary      Receive goods against a purchase
// @Description  Posts PURCHASE_INBOUND entries under a new inbound document. Receiving more than is outstanding is rejected for the whole arrival.
// @Tags         purchases
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        Idempotency-Key header string false "Replay protection key"
// @Param        id path string true "Purchase ID" format(uuid)
// @Param        request body tradeapp.ArrivalRequest true "Arrived quantities"
// @Success      201 {object} APIResponse[tradeapp.ArrivalResponse]
// @Failure      422 {object} ErrorResponse
// @Router       /purchases/{id}/arrivals [post]
func (h *PurchaseHandler) RecordArrival(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req tradeapp.ArrivalRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.purchases.RecordArrival(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}
