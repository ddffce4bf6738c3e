package persistence

import (
	"context"
	"fmt"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormLedgerEntryRepository implements LedgerEntryRepository using GORM.
// Entries are only ever inserted.
type GormLedgerEntryRepository struct {
	db *gorm.DB
}

// NewGormLedgerEntryRepository creates a new GormLedgerEntryRepository
func NewGormLedgerEntryRepository(db *gorm.DB) *GormLedgerEntryRepository {
	return &GormLedgerEntryRepository{db: db}
}

// Create appends an entry. The (counter_id, sequence) unique index rejects a
// second writer that slipped past the row lock.
func (r *GormLedgerEntryRepository) Create(ctx context.Context, entry *inventory.LedgerEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrConcurrencyConflict
		}
		return fmt.Errorf("append ledger entry %s: %w", entry.DocumentSerial, err)
	}
	return nil
}

// FindByCounter returns the counter's entries in sequence order
func (r *GormLedgerEntryRepository) FindByCounter(ctx context.Context, tenantID, counterID uuid.UUID) ([]inventory.LedgerEntry, error) {
	var entries []inventory.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND counter_id = ?", tenantID, counterID).
		Order("sequence ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindByDocument returns the entries a document produced
func (r *GormLedgerEntryRepository) FindByDocument(ctx context.Context, tenantID uuid.UUID, documentSerial string) ([]inventory.LedgerEntry, error) {
	var entries []inventory.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND document_serial = ?", tenantID, documentSerial).
		Order("warehouse_id, sku_id, sequence").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Find lists entries matching the query with the total match count
func (r *GormLedgerEntryRepository) Find(ctx context.Context, tenantID uuid.UUID, q inventory.LedgerQuery) ([]inventory.LedgerEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&inventory.LedgerEntry{}).Where("tenant_id = ?", tenantID)
	if q.WarehouseID != nil {
		query = query.Where("warehouse_id = ?", *q.WarehouseID)
	}
	if q.SkuID != nil {
		query = query.Where("sku_id = ?", *q.SkuID)
	}
	if q.Operation != "" {
		query = query.Where("operation_type = ?", q.Operation)
	}
	if v, ok := q.Filters["document_serial"]; ok {
		query = query.Where("document_serial = ?", v)
	}
	if v, ok := q.Filters["from"]; ok {
		query = query.Where("occurred_at >= ?", v)
	}
	if v, ok := q.Filters["to"]; ok {
		query = query.Where("occurred_at < ?", v)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []inventory.LedgerEntry
	if err := paginate(query, q.Filter, LedgerSortFields, "occurred_at").
		Order("sequence").
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// Ensure GormLedgerEntryRepository implements LedgerEntryRepository
var _ inventory.LedgerEntryRepository = (*GormLedgerEntryRepository)(nil)
