package shared

import (
	"context"
	"time"
)

// IdempotentResponse is the outcome of a mutating request kept for replay
// when the same Idempotency-Key is presented again.
type IdempotentResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// IdempotencyStore remembers mutating requests by key so that retries replay
// the first outcome instead of posting stock twice.
type IdempotencyStore interface {
	// Reserve claims key for ttl. It returns false when the key is already
	// claimed, either in flight or completed.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Load returns the completed response for key, or nil while the request
	// is still in flight or the key is unknown.
	Load(ctx context.Context, key string) (*IdempotentResponse, error)
	// Complete stores the response for key, replacing the reservation.
	Complete(ctx context.Context, key string, resp IdempotentResponse, ttl time.Duration) error
	// Release drops a reservation so the request can be retried.
	Release(ctx context.Context, key string) error
	Close() error
}
