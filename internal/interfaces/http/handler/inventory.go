package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	inventoryapp "github.com/erp/fulfillment/internal/application/inventory"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/domain/warehousing"
	"github.com/erp/fulfillment/internal/infrastructure/export"
	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LedgerService is the stock ledger as seen by the HTTP layer
type LedgerService interface {
	GetCounter(ctx context.Context, tenantID, warehouseID, skuID uuid.UUID) (*inventoryapp.CounterResponse, error)
	AvailableCount(ctx context.Context, tenantID, warehouseID, skuID uuid.UUID) (int64, error)
	ListCounters(ctx context.Context, tenantID, warehouseID uuid.UUID, filter shared.Filter) ([]inventoryapp.CounterResponse, int64, error)
	ListBelowMinimum(ctx context.Context, tenantID uuid.UUID) ([]inventoryapp.CounterResponse, error)
	SetThresholds(ctx context.Context, tenantID, warehouseID, skuID uuid.UUID, req inventoryapp.ThresholdRequest) (*inventoryapp.CounterResponse, error)
	Adjust(ctx context.Context, tenantID uuid.UUID, req inventoryapp.AdjustRequest) (*inventoryapp.PostingResult, error)
	Transfer(ctx context.Context, tenantID uuid.UUID, req inventoryapp.TransferRequest) (*inventoryapp.PostingResult, error)
	ListEntries(ctx context.Context, tenantID uuid.UUID, filter inventoryapp.LedgerFilter) ([]inventoryapp.LedgerEntryResponse, int64, error)
	EntriesByDocument(ctx context.Context, tenantID uuid.UUID, serial string) ([]inventoryapp.LedgerEntryResponse, error)
	CounterHistory(ctx context.Context, tenantID, warehouseID, skuID uuid.UUID) ([]inventoryapp.LedgerEntryResponse, error)
	GetDocument(ctx context.Context, tenantID uuid.UUID, kind warehousing.DocumentKind, serial string) (*inventoryapp.DocumentResponse, error)
	Reconcile(ctx context.Context, tenantID, warehouseID, skuID uuid.UUID) (*inventoryapp.ReconcileResponse, error)
	ReconcileAll(ctx context.Context, tenantID uuid.UUID) (*inventoryapp.ReconcileReport, error)
	ExportLedger(ctx context.Context, tenantID uuid.UUID, filter inventoryapp.LedgerFilter, w io.Writer) error
}

// InventoryHandler serves counters, the ledger, documents and manual postings
type InventoryHandler struct {
	BaseHandler
	ledger LedgerService
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(ledger LedgerService) *InventoryHandler {
	return &InventoryHandler{ledger: ledger}
}

// AvailableResponse is the sellable quantity of a counter
type AvailableResponse struct {
	WarehouseID uuid.UUID `json:"warehouse_id"`
	SkuID       uuid.UUID `json:"sku_id"`
	Available   int64     `json:"available"`
}

func (h *InventoryHandler) counterKey(c *gin.Context) (tenantID, warehouseID, skuID uuid.UUID, ok bool) {
	if tenantID, ok = h.tenant(c); !ok {
		return
	}
	if warehouseID, ok = h.uuidParam(c, "warehouse_id"); !ok {
		return
	}
	skuID, ok = h.uuidParam(c, "sku_id")
	return
}

// GetCounter godoc
// @ID           getStockCounter
// @Summary      Get a stock counter
// @Tags         inventory
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        warehouse_id path string true "Warehouse ID" format(uuid)
// @Param        sku_id path string true "SKU ID" format(uuid)
// @Success      200 {object} APIResponse[inventoryapp.CounterResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /inventory/counters/{warehouse_id}/{sku_id} [get]
func (h *InventoryHandler) GetCounter(c *gin.Context) {
	tenantID, warehouseID, skuID, ok := h.counterKey(c)
	if !ok {
		return
	}
	counter, err := h.ledger.GetCounter(c.Request.Context(), tenantID, warehouseID, skuID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, counter)
}

// GetAvailable godoc
// @ID           getAvailableCount
// @Summary      Get the sellable quantity of a SKU
// @Description  Current count minus quantities already promised to open orders
// @Tags         inventory
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        warehouse_id path string true "Warehouse ID" format(uuid)
// @Param        sku_id path string true "SKU ID" format(uuid)
// @Success      200 {object} APIResponse[AvailableResponse]
// @Router       /inventory/counters/{warehouse_id}/{sku_id}/available [get]
func (h *InventoryHandler) GetAvailable(c *gin.Context) {
	tenantID, warehouseID, skuID, ok := h.counterKey(c)
	if !ok {
		return
	}
	available, err := h.ledger.AvailableCount(c.Request.Context(), tenantID, warehouseID, skuID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, AvailableResponse{WarehouseID: warehouseID, SkuID: skuID, Available: available})
}

// SetThresholds updates min/max alert thresholds of a counter
func (h *InventoryHandler) SetThresholds(c *gin.Context) {
	tenantID, warehouseID, skuID, ok := h.counterKey(c)
	if !ok {
		return
	}
	var req inventoryapp.ThresholdRequest
	if !h.bindJSON(c, &req) {
		return
	}
	counter, err := h.ledger.SetThresholds(c.Request.Context(), tenantID, warehouseID, skuID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, counter)
}

// GetHistory lists a counter's ledger entries in sequence order
func (h *InventoryHandler) GetHistory(c *gin.Context) {
	tenantID, warehouseID, skuID, ok := h.counterKey(c)
	if !ok {
		return
	}
	entries, err := h.ledger.CounterHistory(c.Request.Context(), tenantID, warehouseID, skuID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}

// Reconcile godoc
// @ID           reconcileCounter
// @Summary      Replay a counter's ledger
// @Description  Checks that the entry chain replays to the current count. Breaks are reported with 409 and never repaired.
// @Tags         inventory
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        warehouse_id path string true "Warehouse ID" format(uuid)
// @Param        sku_id path string true "SKU ID" format(uuid)
// @Success      200 {object} APIResponse[inventoryapp.ReconcileResponse]
// @Failure      409 {object} ErrorResponse
// @Router       /inventory/counters/{warehouse_id}/{sku_id}/reconcile [post]
func (h *InventoryHandler) Reconcile(c *gin.Context) {
	tenantID, warehouseID, skuID, ok := h.counterKey(c)
	if !ok {
		return
	}
	resp, err := h.ledger.Reconcile(c.Request.Context(), tenantID, warehouseID, skuID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ReconcileAll replays every counter of the tenant
func (h *InventoryHandler) ReconcileAll(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	report, err := h.ledger.ReconcileAll(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// ListCounters lists the counters of a warehouse
func (h *InventoryHandler) ListCounters(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	warehouseID, ok := h.uuidParam(c, "warehouse_id")
	if !ok {
		return
	}
	req := dto.DefaultListRequest()
	if !h.bindQuery(c, &req) {
		return
	}
	filter := toFilter(req)
	counters, total, err := h.ledger.ListCounters(c.Request.Context(), tenantID, warehouseID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, counters, total, filter.Page, filter.PageSize)
}

// ListBelowMinimum lists counters under their alert threshold
func (h *InventoryHandler) ListBelowMinimum(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	counters, err := h.ledger.ListBelowMinimum(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, counters)
}

// Adjust godoc
// @ID           adjustStock
// @Summary      Post a manual stock correction
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        Idempotency-Key header string false "Replay protection key"
// @Param        request body inventoryapp.AdjustRequest true "Adjustment"
// @Success      201 {object} APIResponse[inventoryapp.PostingResult]
// @Failure      422 {object} ErrorResponse
// @Router       /inventory/adjustments [post]
func (h *InventoryHandler) Adjust(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req inventoryapp.AdjustRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.ledger.Adjust(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Transfer godoc
// @ID           transferStock
// @Summary      Move stock between warehouses
// @Description  Creates an exchange document and posts outbound and inbound entries atomically
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        Idempotency-Key header string false "Replay protection key"
// @Param        request body inventoryapp.TransferRequest true "Transfer"
// @Success      201 {object} APIResponse[inventoryapp.PostingResult]
// @Failure      422 {object} ErrorResponse
// @Router       /inventory/transfers [post]
func (h *InventoryHandler) Transfer(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req inventoryapp.TransferRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.ledger.Transfer(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// ListEntries lists ledger entries matching the query filter
func (h *InventoryHandler) ListEntries(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	filter, ok := h.ledgerFilter(c)
	if !ok {
		return
	}
	entries, total, err := h.ledger.ListEntries(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, pageSize := pageOrDefault(filter.Page, filter.PageSize)
	h.SuccessWithMeta(c, entries, total, page, pageSize)
}

func (h *InventoryHandler) ledgerFilter(c *gin.Context) (inventoryapp.LedgerFilter, bool) {
	var filter inventoryapp.LedgerFilter
	if !h.bindQuery(c, &filter) {
		return filter, false
	}
	var ok bool
	if filter.WarehouseID, ok = h.uuidQuery(c, "warehouse_id"); !ok {
		return filter, false
	}
	filter.SkuID, ok = h.uuidQuery(c, "sku_id")
	return filter, ok
}

// EntriesByDocument lists the entries a document posted
func (h *InventoryHandler) EntriesByDocument(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	entries, err := h.ledger.EntriesByDocument(c.Request.Context(), tenantID, c.Param("serial"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}

// ExportLedger godoc
// @ID           exportLedger
// @Summary      Export ledger entries as a spreadsheet
// @Tags         inventory
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Success      200 {file} binary
// @Failure      503 {object} ErrorResponse
// @Router       /inventory/ledger/export [get]
func (h *InventoryHandler) ExportLedger(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	filter, ok := h.ledgerFilter(c)
	if !ok {
		return
	}
	// buffered so a failed export still gets a JSON error
	var buf bytes.Buffer
	if err := h.ledger.ExportLedger(c.Request.Context(), tenantID, filter, &buf); err != nil {
		h.HandleError(c, err)
		return
	}
	filename := fmt.Sprintf("ledger-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

// GetDocument returns an inbound, outbound or exchange document by serial
func (h *InventoryHandler) GetDocument(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	kind := warehousing.DocumentKind(strings.ToUpper(c.Param("kind")))
	doc, err := h.ledger.GetDocument(c.Request.Context(), tenantID, kind, c.Param("serial"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, doc)
}
