package cache

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newRedisStore(t *testing.T) (*RedisIdempotencyStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisIdempotencyStore(client, "")
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

// storeContract runs the behaviour every IdempotencyStore must share
func storeContract(t *testing.T, store shared.IdempotencyStore) {
	ctx := context.Background()
	created := shared.IdempotentResponse{
		Status:      201,
		ContentType: "application/json",
		Body:        []byte(`{"success":true}`),
	}

	t.Run("first reserve wins", func(t *testing.T) {
		ok, err := store.Reserve(ctx, "t1:approve:k1", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.Reserve(ctx, "t1:approve:k1", time.Hour)
		require.NoError(t, err)
		assert.False(t, ok, "second reserve must lose")
	})

	t.Run("pending key has no response", func(t *testing.T) {
		resp, err := store.Load(ctx, "t1:approve:k1")
		require.NoError(t, err)
		assert.Nil(t, resp)
	})

	t.Run("completed key replays response", func(t *testing.T) {
		require.NoError(t, store.Complete(ctx, "t1:approve:k1", created, time.Hour))

		resp, err := store.Load(ctx, "t1:approve:k1")
		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, created.Status, resp.Status)
		assert.Equal(t, created.ContentType, resp.ContentType)
		assert.Equal(t, created.Body, resp.Body)

		ok, err := store.Reserve(ctx, "t1:approve:k1", time.Hour)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("released key can be reserved again", func(t *testing.T) {
		ok, err := store.Reserve(ctx, "t1:ship:k2", time.Hour)
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, store.Release(ctx, "t1:ship:k2"))

		ok, err = store.Reserve(ctx, "t1:ship:k2", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("unknown key", func(t *testing.T) {
		resp, err := store.Load(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, resp)
	})
}

func TestInMemoryIdempotencyStore(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	storeContract(t, store)
}

func TestInMemoryIdempotencyStore_Expiry(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Complete(ctx, "k", shared.IdempotentResponse{Status: 200}, time.Minute))
	resp, err := store.Load(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, resp)

	now = now.Add(2 * time.Minute)

	resp, err = store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, resp, "expired response is not replayed")

	ok, err := store.Reserve(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "expired key can be reserved")

	now = now.Add(2 * time.Minute)
	store.cleanup()
	assert.Equal(t, 0, store.Size())
}

func TestInMemoryIdempotencyStore_LoadCopiesBody(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	body := []byte("abc")
	require.NoError(t, store.Complete(ctx, "k", shared.IdempotentResponse{Status: 200, Body: body}, time.Minute))
	body[0] = 'z'

	resp, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), resp.Body)

	resp.Body[1] = 'z'
	again, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again.Body)
}

func TestInMemoryIdempotencyStore_CloseTwice(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestRedisIdempotencyStore(t *testing.T) {
	store, _ := newRedisStore(t)
	storeContract(t, store)
}

func TestRedisIdempotencyStore_TTLAndPrefix(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	ok, err := store.Reserve(ctx, "t1:k", 30*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	assert.True(t, mr.Exists("fulfillment:idempotency:t1:k"))
	assert.Equal(t, 30*time.Second, mr.TTL("fulfillment:idempotency:t1:k"))

	mr.FastForward(31 * time.Second)

	ok, err = store.Reserve(ctx, "t1:k", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisIdempotencyStore_CorruptValue(t *testing.T) {
	store, mr := newRedisStore(t)
	require.NoError(t, mr.Set("fulfillment:idempotency:bad", "{not json"))

	_, err := store.Load(context.Background(), "bad")
	assert.Error(t, err)
}

func TestRedisIdempotencyStore_ServerDown(t *testing.T) {
	store, mr := newRedisStore(t)
	mr.Close()

	_, err := store.Reserve(context.Background(), "k", time.Minute)
	assert.Error(t, err)
}

func TestIdempotencyStoreFactory(t *testing.T) {
	t.Run("redis disabled", func(t *testing.T) {
		store, err := NewIdempotencyStoreFactory(config.RedisConfig{Enabled: false}).CreateStore()
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("redis reachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		port, err := strconv.Atoi(mr.Port())
		require.NoError(t, err)

		store, err := NewIdempotencyStoreFactory(config.RedisConfig{
			Enabled: true,
			Host:    mr.Host(),
			Port:    port,
		}).CreateStore()
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &RedisIdempotencyStore{}, store)
	})

	t.Run("fallback logs warning", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		f := NewIdempotencyStoreFactory(config.RedisConfig{Enabled: true}, WithLogger(zap.New(core)))
		f.connect = func(config.RedisConfig) (*redis.Client, error) {
			return nil, errors.New("connection refused")
		}

		store, err := f.CreateStore()
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
		assert.Equal(t, 1, logs.Len())
	})

	t.Run("fallback disabled", func(t *testing.T) {
		f := NewIdempotencyStoreFactory(config.RedisConfig{Enabled: true}, WithInMemoryFallback(false))
		f.connect = func(config.RedisConfig) (*redis.Client, error) {
			return nil, errors.New("connection refused")
		}

		_, err := f.CreateStore()
		assert.Error(t, err)
	})
}
