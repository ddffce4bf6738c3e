package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/domain/trade"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPurchaseRepository implements PurchaseRepository using GORM
type GormPurchaseRepository struct {
	db *gorm.DB
}

// NewGormPurchaseRepository creates a new GormPurchaseRepository
func NewGormPurchaseRepository(db *gorm.DB) *GormPurchaseRepository {
	return &GormPurchaseRepository{db: db}
}

func orderedPurchaseLines(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, id ASC")
}

// FindByIDForTenant finds a purchase with its lines
func (r *GormPurchaseRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*trade.Purchase, error) {
	var purchase trade.Purchase
	if err := r.db.WithContext(ctx).
		Preload("Lines", orderedPurchaseLines).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&purchase).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &purchase, nil
}

// FindByIDForUpdate finds a purchase holding a row lock on its header
func (r *GormPurchaseRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*trade.Purchase, error) {
	var purchase trade.Purchase
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&purchase).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if err := orderedPurchaseLines(r.db.WithContext(ctx)).
		Where("purchase_id = ?", purchase.ID).
		Find(&purchase.Lines).Error; err != nil {
		return nil, err
	}
	return &purchase, nil
}

// FindAllForTenant lists purchases with the total match count
func (r *GormPurchaseRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]trade.Purchase, int64, error) {
	query := r.db.WithContext(ctx).Model(&trade.Purchase{}).Where("tenant_id = ?", tenantID)
	for k, v := range filter.Filters {
		switch k {
		case "status":
			query = query.Where("status = ?", v)
		case "warehouse_id":
			query = query.Where("warehouse_id = ?", v)
		case "serial":
			query = query.Where("serial = ?", v)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var purchases []trade.Purchase
	if err := paginate(query, filter, PurchaseSortFields, "created_at").
		Preload("Lines", orderedPurchaseLines).
		Find(&purchases).Error; err != nil {
		return nil, 0, err
	}
	return purchases, total, nil
}

// Create inserts the purchase and its lines
func (r *GormPurchaseRepository) Create(ctx context.Context, purchase *trade.Purchase) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit("Lines").Create(purchase).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("create purchase %s: %w", purchase.Serial, err)
	}
	if len(purchase.Lines) == 0 {
		return nil
	}
	if err := db.Create(&purchase.Lines).Error; err != nil {
		return fmt.Errorf("create lines of purchase %s: %w", purchase.Serial, err)
	}
	return nil
}

// SaveWithLock updates the header and received quantities if the version is
// unchanged
func (r *GormPurchaseRepository) SaveWithLock(ctx context.Context, purchase *trade.Purchase) error {
	db := r.db.WithContext(ctx)
	now := time.Now()
	result := db.Model(&trade.Purchase{}).
		Where("id = ? AND version = ?", purchase.ID, purchase.Version).
		Updates(map[string]interface{}{
			"supplier_name": purchase.SupplierName,
			"total_amount":  purchase.TotalAmount,
			"status":        purchase.Status,
			"remark":        purchase.Remark,
			"arrived_at":    purchase.ArrivedAt,
			"version":       purchase.Version + 1,
			"updated_at":    now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}

	for i := range purchase.Lines {
		line := &purchase.Lines[i]
		if err := db.Save(line).Error; err != nil {
			return fmt.Errorf("save purchase line %s: %w", line.ID, err)
		}
	}
	purchase.Version++
	purchase.UpdatedAt = now
	return nil
}

// Ensure GormPurchaseRepository implements PurchaseRepository
var _ trade.PurchaseRepository = (*GormPurchaseRepository)(nil)
