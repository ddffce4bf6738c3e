package persistence

import (
	"testing"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "DESC"},
		{"ASC", "ASC"},
		{"  asc  ", "ASC"},
		{"desc", "DESC"},
		{"sideways", "DESC"},
		{"ASC; DELETE FROM stock_counters;--", "DESC"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortOrder(tt.input))
		})
	}
}

func TestValidateSortField(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		allowed  map[string]bool
		fallback string
		expected string
	}{
		{"empty uses fallback", "", CounterSortFields, "sku_id", "sku_id"},
		{"whitelisted counter field", "current_count", CounterSortFields, "sku_id", "current_count"},
		{"trimmed", "  sequence ", LedgerSortFields, "occurred_at", "sequence"},
		{"field of another table", "pay_amount", PurchaseSortFields, "created_at", "created_at"},
		{"case sensitive", "SERIAL", OrderSortFields, "created_at", "created_at"},
		{"expression", "current_count - total_count", CounterSortFields, "sku_id", "sku_id"},
		{"stacked statement", "serial; DROP TABLE orders;--", OrderSortFields, "created_at", "created_at"},
		{"subquery", "id, (SELECT tenant_id FROM orders)", OrderSortFields, "created_at", "created_at"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortField(tt.input, tt.allowed, tt.fallback))
		})
	}
}

func TestSortFieldsWhitelists(t *testing.T) {
	whitelists := map[string]map[string]bool{
		"counters":  CounterSortFields,
		"ledger":    LedgerSortFields,
		"purchases": PurchaseSortFields,
		"orders":    OrderSortFields,
	}
	for name, whitelist := range whitelists {
		t.Run(name, func(t *testing.T) {
			for _, field := range []string{"id", "created_at", "updated_at"} {
				assert.True(t, whitelist[field], "%s should allow %s", name, field)
			}
		})
	}
	assert.True(t, LedgerSortFields["sequence"], "ledger history is read in sequence order")
}

func TestPaginate(t *testing.T) {
	db := newTestDB(t)

	statement := func(filter shared.Filter) string {
		return db.ToSQL(func(tx *gorm.DB) *gorm.DB {
			var counters []inventory.StockCounter
			return paginate(tx.Model(&inventory.StockCounter{}), filter, CounterSortFields, "sku_id").Find(&counters)
		})
	}

	t.Run("whitelisted order with page window", func(t *testing.T) {
		sql := statement(shared.Filter{OrderBy: "current_count", OrderDir: "asc", Page: 3, PageSize: 20})
		assert.Contains(t, sql, "ORDER BY current_count ASC")
		assert.Contains(t, sql, "LIMIT 20")
		assert.Contains(t, sql, "OFFSET 40")
	})

	t.Run("rejected field falls back", func(t *testing.T) {
		sql := statement(shared.Filter{OrderBy: "tenant_id; --", Page: 1, PageSize: 10})
		assert.Contains(t, sql, "ORDER BY sku_id DESC")
		assert.NotContains(t, sql, "tenant_id; --")
	})

	t.Run("zero page size lists everything", func(t *testing.T) {
		sql := statement(shared.Filter{OrderBy: "sku_id", OrderDir: "ASC"})
		assert.NotContains(t, sql, "LIMIT")
	})
}
