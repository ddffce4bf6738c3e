package router

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/interfaces/http/handler"
	"github.com/erp/fulfillment/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Config controls the middleware chain of the API engine
type Config struct {
	ServiceName      string
	TracingEnabled   bool
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowHeaders []string
	TrustedProxies   []string
	LogSkipPaths     []string
	IdempotencyStore shared.IdempotencyStore
	IdempotencyTTL   time.Duration
	Meter            metric.Meter // nil disables HTTP metrics
	Logger           *zap.Logger
}

// Handlers are the endpoint groups served by the engine
type Handlers struct {
	System     *handler.SystemHandler
	Inventory  *handler.InventoryHandler
	Orders     *handler.OrderHandler
	Purchases  *handler.PurchaseHandler
	Statistics *handler.StatisticsHandler
}

// NewEngine builds the gin engine with the full middleware chain and every
// route registered. Health checks live outside /api and need no tenant.
func NewEngine(cfg Config, h Handlers) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	cors := middleware.DefaultCORSConfig()
	if len(cfg.CORSAllowOrigins) > 0 {
		cors.AllowOrigins = cfg.CORSAllowOrigins
	}
	if len(cfg.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = append(cors.AllowHeaders, cfg.CORSAllowHeaders...)
	}

	skip := append([]string{"/health", "/ready"}, cfg.LogSkipPaths...)
	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		middleware.Tracing(middleware.TracingConfig{ServiceName: cfg.ServiceName, Enabled: cfg.TracingEnabled}),
		logger.GinMiddleware(log, skip...),
		middleware.Secure(),
		middleware.CORSWithConfig(cors),
		middleware.BodyLimit(cfg.MaxBodySize),
	)
	if cfg.Meter != nil {
		metrics, err := middleware.HTTPMetrics(cfg.Meter)
		if err != nil {
			return nil, err
		}
		engine.Use(metrics)
	}

	if h.System != nil {
		engine.GET("/health", h.System.Health)
		engine.GET("/ready", h.System.Ready)
	}

	r := NewRouter(engine)
	if h.System != nil {
		r.Register(systemRoutes(h.System))
	}

	tenantScoped := []gin.HandlerFunc{
		middleware.TenantMiddleware(middleware.DefaultTenantConfig()),
		middleware.SpanAttributes(),
		middleware.SpanErrorMarker(),
	}
	idempotent := middleware.Idempotency(middleware.IdempotencyConfig{
		Store: cfg.IdempotencyStore,
		TTL:   cfg.IdempotencyTTL,
	})

	if h.Inventory != nil {
		r.Register(inventoryRoutes(h.Inventory, idempotent).Use(tenantScoped...))
	}
	if h.Orders != nil {
		r.Register(orderRoutes(h.Orders, idempotent).Use(tenantScoped...))
	}
	if h.Purchases != nil {
		r.Register(purchaseRoutes(h.Purchases, idempotent).Use(tenantScoped...))
	}
	if h.Statistics != nil {
		r.Register(NewDomainGroup("statistics", "/statistics").
			Use(tenantScoped...).
			GET("", h.Statistics.Get))
	}
	r.Setup()

	return engine, nil
}

func systemRoutes(h *handler.SystemHandler) *DomainGroup {
	return NewDomainGroup("system", "/system").
		GET("/info", h.GetSystemInfo).
		GET("/ping", h.Ping)
}

func inventoryRoutes(h *handler.InventoryHandler, idempotent gin.HandlerFunc) *DomainGroup {
	g := NewDomainGroup("inventory", "/inventory").
		GET("/warehouses/:warehouse_id/counters", h.ListCounters).
		GET("/alerts/below-minimum", h.ListBelowMinimum).
		POST("/adjustments", idempotent, h.Adjust).
		POST("/transfers", idempotent, h.Transfer).
		POST("/reconcile", h.ReconcileAll).
		GET("/documents/:kind/:serial", h.GetDocument)

	g.Group("counters", "/counters/:warehouse_id/:sku_id").
		GET("", h.GetCounter).
		GET("/available", h.GetAvailable).
		PUT("/thresholds", idempotent, h.SetThresholds).
		GET("/history", h.GetHistory).
		POST("/reconcile", h.Reconcile)

	g.Group("ledger", "/ledger").
		GET("", h.ListEntries).
		GET("/export", h.ExportLedger).
		GET("/documents/:serial", h.EntriesByDocument)
	return g
}

func orderRoutes(h *handler.OrderHandler, idempotent gin.HandlerFunc) *DomainGroup {
	g := NewDomainGroup("orders", "/orders").
		POST("", idempotent, h.Create).
		GET("", h.List)

	g.Group("order", "/:id").
		GET("", h.GetByID).
		POST("/pay", idempotent, h.ConfirmPayment).
		POST("/approve", idempotent, h.Approve).
		POST("/ship", idempotent, h.Ship).
		POST("/print", idempotent, h.PrintLabel).
		POST("/print/confirm", idempotent, h.ConfirmPrinted).
		POST("/sign", idempotent, h.Sign).
		POST("/finish", idempotent, h.Finish).
		POST("/cancel", idempotent, h.Cancel).
		POST("/split", idempotent, h.Split)
	return g
}

func purchaseRoutes(h *handler.PurchaseHandler, idempotent gin.HandlerFunc) *DomainGroup {
	g := NewDomainGroup("purchases", "/purchases").
		POST("", idempotent, h.Create).
		GET("", h.List)

	g.Group("purchase", "/:id").
		GET("", h.GetByID).
		POST("/arrivals", idempotent, h.RecordArrival)
	return g
}
