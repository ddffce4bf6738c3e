package main

import (
	"context"
	"testing"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/erp/fulfillment/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestPrepareSchema_SqliteSupportsCounterCreation(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}}
	db, err := persistence.NewDatabase(&cfg.Database, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, prepareSchema(cfg, db, zaptest.NewLogger(t)))

	ctx := context.Background()
	repo := persistence.NewGormStockCounterRepository(db.DB)
	tenantID := uuid.New()
	key := inventory.CounterKey{WarehouseID: uuid.New(), SkuID: uuid.New()}

	locked, err := repo.GetOrCreateForUpdate(ctx, tenantID, key)
	require.NoError(t, err)
	again, err := repo.GetOrCreate(ctx, tenantID, key)
	require.NoError(t, err)
	assert.Equal(t, locked.ID, again.ID)

	ids, err := repo.TenantIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{tenantID}, ids)
}
