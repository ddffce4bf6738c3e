package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/domain/warehousing"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDocumentRepository implements DocumentRepository using GORM. Each
// document kind has its own header table; lines of all kinds share one
// table keyed by document serial.
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// Create inserts the header and its lines
func (r *GormDocumentRepository) Create(ctx context.Context, doc warehousing.Document) error {
	h := doc.Header()
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("create %s document %s: %w", doc.Kind(), h.Serial, err)
	}
	if len(h.Lines) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&h.Lines).Error; err != nil {
		return fmt.Errorf("create lines of document %s: %w", h.Serial, err)
	}
	return nil
}

// Save updates the header. Use ReplaceLines when the lines change.
func (r *GormDocumentRepository) Save(ctx context.Context, doc warehousing.Document) error {
	h := doc.Header()
	h.Touch()
	return r.db.WithContext(ctx).Save(doc).Error
}

// ReplaceLines deletes the stored lines of the document and inserts its
// current ones
func (r *GormDocumentRepository) ReplaceLines(ctx context.Context, doc warehousing.Document) error {
	h := doc.Header()
	db := r.db.WithContext(ctx)
	if err := db.
		Where("tenant_id = ? AND document_serial = ? AND document_kind = ?", h.TenantID, h.Serial, doc.Kind()).
		Delete(&warehousing.DocumentLine{}).Error; err != nil {
		return fmt.Errorf("delete lines of document %s: %w", h.Serial, err)
	}
	if len(h.Lines) == 0 {
		return nil
	}
	if err := db.Create(&h.Lines).Error; err != nil {
		return fmt.Errorf("create lines of document %s: %w", h.Serial, err)
	}
	return nil
}

// FindInboundBySerial finds an inbound document with its lines
func (r *GormDocumentRepository) FindInboundBySerial(ctx context.Context, tenantID uuid.UUID, serial string) (*warehousing.InboundDocument, error) {
	var doc warehousing.InboundDocument
	if err := r.findBySerial(ctx, tenantID, serial, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindOutboundBySerial finds an outbound document with its lines
func (r *GormDocumentRepository) FindOutboundBySerial(ctx context.Context, tenantID uuid.UUID, serial string) (*warehousing.OutboundDocument, error) {
	var doc warehousing.OutboundDocument
	if err := r.findBySerial(ctx, tenantID, serial, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindExchangeBySerial finds an exchange document with its lines
func (r *GormDocumentRepository) FindExchangeBySerial(ctx context.Context, tenantID uuid.UUID, serial string) (*warehousing.ExchangeDocument, error) {
	var doc warehousing.ExchangeDocument
	if err := r.findBySerial(ctx, tenantID, serial, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindInboundByTarget returns the inbound documents of a target, oldest first
func (r *GormDocumentRepository) FindInboundByTarget(ctx context.Context, tenantID uuid.UUID, targetType warehousing.TargetType, targetID string) ([]warehousing.InboundDocument, error) {
	var docs []warehousing.InboundDocument
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND target_type = ? AND target_id = ?", tenantID, targetType, targetID).
		Order("created_at ASC").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	for i := range docs {
		if err := r.loadLines(ctx, &docs[i]); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

// FindOutboundByTarget returns the newest outbound document of a target
func (r *GormDocumentRepository) FindOutboundByTarget(ctx context.Context, tenantID uuid.UUID, targetType warehousing.TargetType, targetID string) (*warehousing.OutboundDocument, error) {
	var doc warehousing.OutboundDocument
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND target_type = ? AND target_id = ?", tenantID, targetType, targetID).
		Order("created_at DESC").
		First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if err := r.loadLines(ctx, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *GormDocumentRepository) findBySerial(ctx context.Context, tenantID uuid.UUID, serial string, doc warehousing.Document) error {
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND serial = ?", tenantID, serial).
		First(doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return shared.ErrNotFound
		}
		return err
	}
	return r.loadLines(ctx, doc)
}

func (r *GormDocumentRepository) loadLines(ctx context.Context, doc warehousing.Document) error {
	h := doc.Header()
	return r.db.WithContext(ctx).
		Where("tenant_id = ? AND document_serial = ?", h.TenantID, h.Serial).
		Order("created_at ASC").
		Find(&h.Lines).Error
}

// Ensure GormDocumentRepository implements DocumentRepository
var _ warehousing.DocumentRepository = (*GormDocumentRepository)(nil)
