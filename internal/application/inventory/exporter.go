package inventory

import (
	"context"
	"io"

	"github.com/erp/fulfillment/internal/domain/inventory"
)

// LedgerExporter renders ledger entries to a spreadsheet
type LedgerExporter interface {
	ExportLedger(ctx context.Context, entries []inventory.LedgerEntry, w io.Writer) error
}
