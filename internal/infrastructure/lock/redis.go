// Package lock implements the stock lockers taken before a posting
// transaction opens.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	appinv "github.com/erp/fulfillment/internal/application/inventory"
	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "fulfillment:stock:"

// RedisStockLocker holds one Redis lock per counter so that several
// processes posting to the same counters queue up before touching the
// database.
type RedisStockLocker struct {
	client *redislock.Client
	ttl    time.Duration
	wait   time.Duration
	logger *zap.Logger
}

// NewRedisStockLocker creates a locker. ttl bounds how long a crashed holder
// blocks others; wait bounds how long Lock retries.
func NewRedisStockLocker(rdb redis.UniversalClient, ttl, wait time.Duration, logger *zap.Logger) *RedisStockLocker {
	return &RedisStockLocker{
		client: redislock.New(rdb),
		ttl:    ttl,
		wait:   wait,
		logger: logger,
	}
}

func lockKey(tenantID uuid.UUID, key inventory.CounterKey) string {
	return keyPrefix + tenantID.String() + ":" + key.String()
}

// Lock obtains every key in order. If one key cannot be obtained within the
// wait time the keys already held are released and ErrLockNotObtained is
// returned.
func (l *RedisStockLocker) Lock(ctx context.Context, tenantID uuid.UUID, keys []inventory.CounterKey) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	opts := &redislock.Options{RetryStrategy: redislock.ExponentialBackoff(5*time.Millisecond, 100*time.Millisecond)}
	held := make([]*redislock.Lock, 0, len(keys))
	release := func() {
		// release with a fresh context so a canceled request still frees its keys
		relCtx, relCancel := context.WithTimeout(context.Background(), time.Second)
		defer relCancel()
		for i := len(held) - 1; i >= 0; i-- {
			if err := held[i].Release(relCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				l.logger.Warn("failed to release stock lock", zap.String("key", held[i].Key()), zap.Error(err))
			}
		}
	}

	for _, key := range keys {
		lk, err := l.client.Obtain(waitCtx, lockKey(tenantID, key), l.ttl, opts)
		if err != nil {
			release()
			if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
				l.logger.Warn("stock lock not obtained",
					zap.String("tenant_id", tenantID.String()),
					zap.String("counter", key.String()),
					zap.Duration("wait", l.wait),
				)
				return nil, shared.ErrLockNotObtained
			}
			return nil, fmt.Errorf("obtain stock lock %s: %w", key, err)
		}
		held = append(held, lk)
	}
	return release, nil
}

var _ appinv.StockLocker = (*RedisStockLocker)(nil)
