package trade

import (
	"context"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// PurchaseRepository persists purchases with their lines
type PurchaseRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Purchase, error)
	// FindByIDForUpdate loads the purchase holding a row lock
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Purchase, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Purchase, int64, error)
	Create(ctx context.Context, purchase *Purchase) error
	// SaveWithLock updates the purchase and its lines if the version is unchanged
	SaveWithLock(ctx context.Context, purchase *Purchase) error
}

// OrderRepository persists orders with their items
type OrderRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Order, error)
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Order, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Order, int64, error)
	Create(ctx context.Context, order *Order) error
	// SaveWithLock updates the order and its items if the version is unchanged.
	// Items whose OrderID changed are moved to the other order.
	SaveWithLock(ctx context.Context, order *Order) error
}
