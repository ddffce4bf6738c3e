package middleware

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Idempotency headers
const (
	IdempotencyKeyHeader     = "Idempotency-Key"
	IdempotentReplayedHeader = "Idempotent-Replayed"
	maxIdempotencyKeyLength  = 255
)

// DefaultIdempotencyTTL is how long outcomes are kept when no TTL is configured
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyConfig holds configuration for the idempotency middleware
type IdempotencyConfig struct {
	Store shared.IdempotencyStore
	TTL   time.Duration
}

type capturingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored outcome of a mutating request when the
// client repeats its Idempotency-Key, so a retried approval or arrival never
// posts stock twice. Requests without the header pass through. Keys are
// scoped by tenant, method and path.
//
// Outcomes worth retrying (409 and 5xx) release the key instead of being
// stored. Store failures are logged and the request proceeds unguarded.
func Idempotency(cfg IdempotencyConfig) gin.HandlerFunc {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}

	return func(c *gin.Context) {
		if cfg.Store == nil || c.Request.Method == http.MethodGet {
			c.Next()
			return
		}
		header := c.GetHeader(IdempotencyKeyHeader)
		if header == "" {
			c.Next()
			return
		}
		if len(header) > maxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeBadRequest, "Idempotency-Key is too long", GetRequestID(c)))
			return
		}

		ctx := c.Request.Context()
		log := logger.FromContext(ctx)
		tenant := ""
		if id, ok := GetTenantID(c); ok {
			tenant = id.String()
		}
		key := tenant + ":" + c.Request.Method + ":" + c.Request.URL.Path + ":" + header

		reserved, err := cfg.Store.Reserve(ctx, key, ttl)
		if err != nil {
			log.Warn("idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !reserved {
			replay(c, cfg.Store, key, log)
			return
		}

		writer := &capturingWriter{ResponseWriter: c.Writer}
		c.Writer = writer
		c.Next()

		// the request context may be cancelled by now
		storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		status := writer.Status()
		if status == http.StatusConflict || status >= http.StatusInternalServerError {
			if err := cfg.Store.Release(storeCtx, key); err != nil {
				log.Warn("failed to release idempotency key", zap.Error(err))
			}
			return
		}
		resp := shared.IdempotentResponse{
			Status:      status,
			ContentType: writer.Header().Get("Content-Type"),
			Body:        writer.body.Bytes(),
		}
		if err := cfg.Store.Complete(storeCtx, key, resp, ttl); err != nil {
			log.Warn("failed to store idempotent response", zap.Error(err))
		}
	}
}

func replay(c *gin.Context, store shared.IdempotencyStore, key string, log *zap.Logger) {
	stored, err := store.Load(c.Request.Context(), key)
	if err != nil {
		log.Warn("failed to load idempotent response", zap.Error(err))
	}
	if stored == nil {
		c.AbortWithStatusJSON(http.StatusConflict, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeIdempotencyInProgress, "A request with this Idempotency-Key is still in progress", GetRequestID(c)))
		return
	}
	c.Header(IdempotentReplayedHeader, "true")
	c.Data(stored.Status, stored.ContentType, stored.Body)
	c.Abort()
}
