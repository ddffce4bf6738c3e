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

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, id ASC")
}

// FindByIDForTenant finds an order with its items
func (r *GormOrderRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*trade.Order, error) {
	var order trade.Order
	if err := r.db.WithContext(ctx).
		Preload("Items", orderedItems).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindByIDForUpdate finds an order holding a row lock on its header
func (r *GormOrderRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*trade.Order, error) {
	var order trade.Order
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if err := orderedItems(r.db.WithContext(ctx)).
		Where("order_id = ?", order.ID).
		Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindAllForTenant lists orders with the total match count
func (r *GormOrderRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]trade.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&trade.Order{}).Where("tenant_id = ?", tenantID)
	for k, v := range filter.Filters {
		switch k {
		case "status":
			query = query.Where("status = ?", v)
		case "warehouse_id":
			query = query.Where("warehouse_id = ?", v)
		case "parent_order_id":
			query = query.Where("parent_order_id = ?", v)
		case "serial":
			query = query.Where("serial = ?", v)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []trade.Order
	if err := paginate(query, filter, OrderSortFields, "created_at").
		Preload("Items", orderedItems).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// Create inserts the order and upserts its items. Items that already exist
// belong to the order this one was split from and are moved over.
func (r *GormOrderRepository) Create(ctx context.Context, order *trade.Order) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit("Items").Create(order).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("create order %s: %w", order.Serial, err)
	}
	return r.saveItems(db, order)
}

// SaveWithLock updates the order and its items if the version is unchanged
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, order *trade.Order) error {
	db := r.db.WithContext(ctx)
	now := time.Now()
	result := db.Model(&trade.Order{}).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Updates(map[string]interface{}{
			"buyer_name":       order.Shipping.BuyerName,
			"receiver_name":    order.Shipping.ReceiverName,
			"receiver_phone":   order.Shipping.ReceiverPhone,
			"shipping_address": order.Shipping.ShippingAddress,
			"status":           order.Status,
			"total_quantity":   order.TotalQuantity,
			"total_amount":     order.TotalAmount,
			"discount_amount":  order.DiscountAmount,
			"pay_amount":       order.PayAmount,
			"stock_reserved":   order.StockReserved,
			"outbound_serial":  order.OutboundSerial,
			"express_id":       order.ExpressID,
			"express_no":       order.ExpressNo,
			"remark":           order.Remark,
			"cancel_reason":    order.CancelReason,
			"paid_at":          order.PaidAt,
			"approved_at":      order.ApprovedAt,
			"shipped_at":       order.ShippedAt,
			"signed_at":        order.SignedAt,
			"finished_at":      order.FinishedAt,
			"closed_at":        order.ClosedAt,
			"version":          order.Version + 1,
			"updated_at":       now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	if err := r.saveItems(db, order); err != nil {
		return err
	}
	order.Version++
	order.UpdatedAt = now
	return nil
}

func (r *GormOrderRepository) saveItems(db *gorm.DB, order *trade.Order) error {
	for i := range order.Items {
		item := &order.Items[i]
		if err := db.Save(item).Error; err != nil {
			return fmt.Errorf("save order item %s: %w", item.ID, err)
		}
	}
	return nil
}

// Ensure GormOrderRepository implements OrderRepository
var _ trade.OrderRepository = (*GormOrderRepository)(nil)
