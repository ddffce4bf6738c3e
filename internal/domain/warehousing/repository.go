package warehousing

import (
	"context"

	"github.com/google/uuid"
)

// DocumentRepository persists warehouse documents and their lines
type DocumentRepository interface {
	// Create inserts the document header and its lines
	Create(ctx context.Context, doc Document) error
	// Save updates header fields (status, carrier, timestamps)
	Save(ctx context.Context, doc Document) error
	// ReplaceLines rewrites the stored lines with the document's current lines
	ReplaceLines(ctx context.Context, doc Document) error
	FindInboundBySerial(ctx context.Context, tenantID uuid.UUID, serial string) (*InboundDocument, error)
	FindOutboundBySerial(ctx context.Context, tenantID uuid.UUID, serial string) (*OutboundDocument, error)
	FindExchangeBySerial(ctx context.Context, tenantID uuid.UUID, serial string) (*ExchangeDocument, error)
	FindInboundByTarget(ctx context.Context, tenantID uuid.UUID, targetType TargetType, targetID string) ([]InboundDocument, error)
	// FindOutboundByTarget returns the newest outbound document for the target
	FindOutboundByTarget(ctx context.Context, tenantID uuid.UUID, targetType TargetType, targetID string) (*OutboundDocument, error)
}
