// Package export renders ledger data to spreadsheets.
package export

import (
	"context"
	"fmt"
	"io"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/xuri/excelize/v2"
)

// LedgerSheet is the name of the worksheet holding ledger entries
const LedgerSheet = "Ledger"

// ContentType is the MIME type of the generated workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var ledgerHeader = []interface{}{
	"Occurred At", "Warehouse", "SKU", "Shelf", "Sequence", "Document", "Source Type", "Source ID",
	"Direction", "Operation", "Original Qty", "Delta Qty", "Resulting Qty", "Unit Price", "Remark",
}

// XLSXLedgerExporter writes ledger entries as an xlsx workbook
type XLSXLedgerExporter struct{}

// NewXLSXLedgerExporter creates an exporter
func NewXLSXLedgerExporter() *XLSXLedgerExporter {
	return &XLSXLedgerExporter{}
}

// ExportLedger writes one row per entry, in the order given
func (e *XLSXLedgerExporter) ExportLedger(ctx context.Context, entries []inventory.LedgerEntry, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", LedgerSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetSheetRow(LedgerSheet, "A1", &ledgerHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(ledgerHeader))
	if err := f.SetCellStyle(LedgerSheet, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry := &entries[i]
		row := []interface{}{
			entry.OccurredAt.UTC().Format("2006-01-02 15:04:05"),
			entry.WarehouseID.String(),
			entry.SkuID.String(),
			entry.ShelfCode,
			entry.Sequence,
			entry.DocumentSerial,
			string(entry.SourceType),
			entry.SourceID,
			string(entry.Direction),
			string(entry.OperationType),
			entry.OriginalQuantity,
			entry.DeltaQuantity,
			entry.ResultingQuantity,
			entry.UnitPrice.InexactFloat64(),
			entry.Remark,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(LedgerSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(LedgerSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
