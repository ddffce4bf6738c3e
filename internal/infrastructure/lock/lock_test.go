package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sortedKeys(n int) []inventory.CounterKey {
	warehouseID := uuid.New()
	keys := make([]inventory.CounterKey, n)
	for i := range keys {
		keys[i] = inventory.CounterKey{WarehouseID: warehouseID, SkuID: uuid.New()}
	}
	inventory.SortKeys(keys)
	return keys
}

func TestLocalStockLocker_Serialises(t *testing.T) {
	locker := NewLocalStockLocker()
	tenantID := uuid.New()
	keys := sortedKeys(2)

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Lock(context.Background(), tenantID, keys)
			require.NoError(t, err)
			n := inside.Add(1)
			if n > maxInside.Load() {
				maxInside.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load())
	assert.Empty(t, locker.locks)
}

func TestLocalStockLocker_Timeout(t *testing.T) {
	locker := NewLocalStockLocker()
	tenantID := uuid.New()
	keys := sortedKeys(1)

	release, err := locker.Lock(context.Background(), tenantID, keys)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, tenantID, keys)
	assert.ErrorIs(t, err, shared.ErrLockNotObtained)

	// other tenants are independent
	other, err := locker.Lock(context.Background(), uuid.New(), keys)
	require.NoError(t, err)
	other()

	release()
	again, err := locker.Lock(context.Background(), tenantID, keys)
	require.NoError(t, err)
	again()
}

func newRedisLocker(t *testing.T, wait time.Duration) (*RedisStockLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStockLocker(rdb, time.Second, wait, zap.NewNop()), mr
}

func TestRedisStockLocker_LockRelease(t *testing.T) {
	locker, mr := newRedisLocker(t, 50*time.Millisecond)
	tenantID := uuid.New()
	keys := sortedKeys(2)

	release, err := locker.Lock(context.Background(), tenantID, keys)
	require.NoError(t, err)
	for _, k := range keys {
		assert.True(t, mr.Exists(lockKey(tenantID, k)))
	}

	_, err = locker.Lock(context.Background(), tenantID, keys[1:])
	assert.ErrorIs(t, err, shared.ErrLockNotObtained)

	release()
	for _, k := range keys {
		assert.False(t, mr.Exists(lockKey(tenantID, k)))
	}
}

func TestRedisStockLocker_PartialFailureReleasesHeldKeys(t *testing.T) {
	locker, mr := newRedisLocker(t, 50*time.Millisecond)
	tenantID := uuid.New()
	keys := sortedKeys(2)

	blocker, err := locker.Lock(context.Background(), tenantID, keys[1:])
	require.NoError(t, err)
	defer blocker()

	_, err = locker.Lock(context.Background(), tenantID, keys)
	assert.ErrorIs(t, err, shared.ErrLockNotObtained)
	assert.False(t, mr.Exists(lockKey(tenantID, keys[0])))
}
