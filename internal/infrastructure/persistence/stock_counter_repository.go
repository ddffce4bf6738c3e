package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockCounterRepository implements StockCounterRepository using GORM
type GormStockCounterRepository struct {
	db *gorm.DB
}

// NewGormStockCounterRepository creates a new GormStockCounterRepository
func NewGormStockCounterRepository(db *gorm.DB) *GormStockCounterRepository {
	return &GormStockCounterRepository{db: db}
}

func (r *GormStockCounterRepository) byKey(ctx context.Context, tenantID uuid.UUID, key inventory.CounterKey) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("tenant_id = ? AND warehouse_id = ? AND sku_id = ?", tenantID, key.WarehouseID, key.SkuID)
}

// FindByKey finds the counter for a (warehouse, sku) pair
func (r *GormStockCounterRepository) FindByKey(ctx context.Context, tenantID uuid.UUID, key inventory.CounterKey) (*inventory.StockCounter, error) {
	var counter inventory.StockCounter
	if err := r.byKey(ctx, tenantID, key).First(&counter).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &counter, nil
}

// FindByKeyForUpdate finds the counter and holds a row lock on it.
// SQLite has no row locks; its single writer serialises transactions instead.
func (r *GormStockCounterRepository) FindByKeyForUpdate(ctx context.Context, tenantID uuid.UUID, key inventory.CounterKey) (*inventory.StockCounter, error) {
	var counter inventory.StockCounter
	if err := r.byKey(ctx, tenantID, key).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&counter).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &counter, nil
}

// GetOrCreate returns the counter, inserting an empty one if none exists.
// Concurrent creators race on the unique key and all read the winning row.
func (r *GormStockCounterRepository) GetOrCreate(ctx context.Context, tenantID uuid.UUID, key inventory.CounterKey) (*inventory.StockCounter, error) {
	if err := r.insertIfMissing(ctx, tenantID, key); err != nil {
		return nil, err
	}
	return r.FindByKey(ctx, tenantID, key)
}

// GetOrCreateForUpdate is GetOrCreate followed by a locking read
func (r *GormStockCounterRepository) GetOrCreateForUpdate(ctx context.Context, tenantID uuid.UUID, key inventory.CounterKey) (*inventory.StockCounter, error) {
	if err := r.insertIfMissing(ctx, tenantID, key); err != nil {
		return nil, err
	}
	return r.FindByKeyForUpdate(ctx, tenantID, key)
}

func (r *GormStockCounterRepository) insertIfMissing(ctx context.Context, tenantID uuid.UUID, key inventory.CounterKey) error {
	counter, err := inventory.NewStockCounter(tenantID, key.WarehouseID, key.SkuID)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "warehouse_id"}, {Name: "sku_id"}},
			DoNothing: true,
		}).
		Create(counter).Error
}

// SaveWithLock writes the counts if nobody else changed the counter since it
// was read. On success the counter's version moves forward by one.
func (r *GormStockCounterRepository) SaveWithLock(ctx context.Context, counter *inventory.StockCounter) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&inventory.StockCounter{}).
		Where("id = ? AND version = ?", counter.ID, counter.Version).
		Updates(map[string]interface{}{
			"total_count":     counter.TotalCount,
			"current_count":   counter.CurrentCount,
			"presale_count":   counter.PresaleCount,
			"saled_count":     counter.SaledCount,
			"defective_count": counter.DefectiveCount,
			"returned_count":  counter.ReturnedCount,
			"manual_count":    counter.ManualCount,
			"min_count":       counter.MinCount,
			"max_count":       counter.MaxCount,
			"last_sequence":   counter.LastSequence,
			"version":         counter.Version + 1,
			"updated_at":      now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	counter.Version++
	counter.UpdatedAt = now
	return nil
}

// FindByWarehouse lists a warehouse's counters with the total row count
func (r *GormStockCounterRepository) FindByWarehouse(ctx context.Context, tenantID, warehouseID uuid.UUID, filter shared.Filter) ([]inventory.StockCounter, int64, error) {
	query := r.db.WithContext(ctx).Model(&inventory.StockCounter{}).
		Where("tenant_id = ? AND warehouse_id = ?", tenantID, warehouseID)
	for k, v := range filter.Filters {
		switch k {
		case "sku_id":
			query = query.Where("sku_id = ?", v)
		case "in_stock":
			if v == true {
				query = query.Where("current_count > 0")
			}
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var counters []inventory.StockCounter
	if err := paginate(query, filter, CounterSortFields, "sku_id").Find(&counters).Error; err != nil {
		return nil, 0, err
	}
	return counters, total, nil
}

// FindBelowMinimum finds counters whose stock is under an active minimum
func (r *GormStockCounterRepository) FindBelowMinimum(ctx context.Context, tenantID uuid.UUID) ([]inventory.StockCounter, error) {
	var counters []inventory.StockCounter
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND min_count > 0 AND current_count < min_count", tenantID).
		Order("warehouse_id, sku_id").
		Find(&counters).Error; err != nil {
		return nil, err
	}
	return counters, nil
}

// FindAllForTenant returns every counter of a tenant in key order
func (r *GormStockCounterRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]inventory.StockCounter, error) {
	var counters []inventory.StockCounter
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("warehouse_id, sku_id").
		Find(&counters).Error; err != nil {
		return nil, err
	}
	return counters, nil
}

// TenantIDs returns the distinct tenants holding counters
func (r *GormStockCounterRepository) TenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&inventory.StockCounter{}).
		Distinct("tenant_id").
		Order("tenant_id").
		Pluck("tenant_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Ensure GormStockCounterRepository implements StockCounterRepository
var _ inventory.StockCounterRepository = (*GormStockCounterRepository)(nil)
