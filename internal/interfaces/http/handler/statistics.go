package handler

import (
	"github.com/erp/fulfillment/internal/application/statistics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StatisticsSource serves the eventually consistent per-tenant figures
type StatisticsSource interface {
	Snapshot(tenantID uuid.UUID) statistics.TenantStatistics
	Dropped() int64
}

// StatisticsResponse wraps a tenant snapshot with the collector health
type StatisticsResponse struct {
	statistics.TenantStatistics
	DroppedEvents int64 `json:"dropped_events"`
}

// StatisticsHandler handles statistics endpoints
type StatisticsHandler struct {
	BaseHandler
	source StatisticsSource
}

// NewStatisticsHandler creates a new StatisticsHandler
func NewStatisticsHandler(source StatisticsSource) *StatisticsHandler {
	return &StatisticsHandler{source: source}
}

// Get godoc
// @ID           getStatistics
// @Summary      Get fulfillment statistics for the tenant
// @Description  Figures are built from domain events and may lag the ledger.
// @Tags         statistics
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Success      200 {object} APIResponse[StatisticsResponse]
// @Router       /statistics [get]
func (h *StatisticsHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	h.Success(c, StatisticsResponse{
		TenantStatistics: h.source.Snapshot(tenantID),
		DroppedEvents:    h.source.Dropped(),
	})
}
