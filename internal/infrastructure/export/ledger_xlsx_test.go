package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestXLSXLedgerExporter_ExportLedger(t *testing.T) {
	warehouseID := uuid.New()
	skuID := uuid.New()
	at := time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)

	entries := []inventory.LedgerEntry{
		{
			WarehouseID:       warehouseID,
			SkuID:             skuID,
			Sequence:          1,
			DocumentSerial:    "IN-1",
			SourceType:        inventory.SourcePurchase,
			SourceID:          "PO-1",
			Direction:         inventory.DirectionIn,
			OperationType:     inventory.OperationPurchaseInbound,
			OriginalQuantity:  0,
			DeltaQuantity:     10,
			ResultingQuantity: 10,
			UnitPrice:         decimal.RequireFromString("5.25"),
			OccurredAt:        at,
		},
		{
			WarehouseID:       warehouseID,
			SkuID:             skuID,
			Sequence:          2,
			DocumentSerial:    "OUT-1",
			SourceType:        inventory.SourceOrder,
			SourceID:          "SO-1",
			Direction:         inventory.DirectionOut,
			OperationType:     inventory.OperationOrderOutbound,
			OriginalQuantity:  10,
			DeltaQuantity:     6,
			ResultingQuantity: 4,
			UnitPrice:         decimal.RequireFromString("8"),
			Remark:            "approved",
			OccurredAt:        at.Add(time.Hour),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewXLSXLedgerExporter().ExportLedger(context.Background(), entries, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(LedgerSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Occurred At", rows[0][0])
	assert.Equal(t, "Unit Price", rows[0][13])

	assert.Equal(t, "2024-05-02 09:30:00", rows[1][0])
	assert.Equal(t, warehouseID.String(), rows[1][1])
	assert.Equal(t, "IN-1", rows[1][5])
	assert.Equal(t, "10", rows[1][12])
	assert.Equal(t, "5.25", rows[1][13])

	assert.Equal(t, "OUT-1", rows[2][5])
	assert.Equal(t, "6", rows[2][11])
	assert.Equal(t, "4", rows[2][12])
	assert.Equal(t, "approved", rows[2][14])
}

func TestXLSXLedgerExporter_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewXLSXLedgerExporter().ExportLedger(context.Background(), nil, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(LedgerSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestXLSXLedgerExporter_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	err := NewXLSXLedgerExporter().ExportLedger(ctx, []inventory.LedgerEntry{{Sequence: 1}}, &buf)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, buf.Len())
}
