package inventory

import (
	"sort"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CounterKey identifies a stock counter inside a tenant
type CounterKey struct {
	WarehouseID uuid.UUID
	SkuID       uuid.UUID
}

// String renders the key as warehouse/sku
func (k CounterKey) String() string {
	return k.WarehouseID.String() + "/" + k.SkuID.String()
}

// Less orders keys by warehouse then sku. Counters are always locked in this
// order so that concurrent multi-item postings cannot deadlock.
func (k CounterKey) Less(other CounterKey) bool {
	if k.WarehouseID != other.WarehouseID {
		return k.WarehouseID.String() < other.WarehouseID.String()
	}
	return k.SkuID.String() < other.SkuID.String()
}

// Posting is a request to record one stock movement
type Posting struct {
	WarehouseID    uuid.UUID
	ShelfCode      string
	SkuID          uuid.UUID
	Operation      OperationType
	Quantity       int64
	UnitPrice      decimal.Decimal
	DocumentSerial string
	SourceType     SourceType
	SourceID       string
	Remark         string
}

// Key returns the counter key the posting applies to
func (p Posting) Key() CounterKey {
	return CounterKey{WarehouseID: p.WarehouseID, SkuID: p.SkuID}
}

// Direction returns the posting direction
func (p Posting) Direction() Direction {
	return p.Operation.Direction()
}

// Signed returns the quantity with the sign of the posting direction
func (p Posting) Signed() int64 {
	if p.Direction() == DirectionOut {
		return -p.Quantity
	}
	return p.Quantity
}

// Validate checks the posting shape. Stock availability is checked against
// the counter, not here.
func (p Posting) Validate() error {
	if p.WarehouseID == uuid.Nil {
		return shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	if p.SkuID == uuid.Nil {
		return shared.NewDomainError("INVALID_SKU", "SKU ID cannot be empty")
	}
	if !p.Operation.IsValid() {
		return shared.NewDomainError("INVALID_OPERATION_TYPE", "Invalid operation type: "+string(p.Operation))
	}
	if p.Quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if p.UnitPrice.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	if p.DocumentSerial == "" {
		return shared.NewDomainError("INVALID_DOCUMENT", "Document serial cannot be empty")
	}
	if !p.SourceType.IsValid() {
		return shared.NewDomainError("INVALID_SOURCE_TYPE", "Invalid source type: "+string(p.SourceType))
	}
	return nil
}

// SortPostings orders postings by counter key, keeping the relative order of
// postings against the same counter.
func SortPostings(postings []Posting) {
	sort.SliceStable(postings, func(i, j int) bool {
		return postings[i].Key().Less(postings[j].Key())
	})
}

// DistinctKeys returns the counter keys touched by postings in lock order
func DistinctKeys(postings []Posting) []CounterKey {
	seen := make(map[CounterKey]struct{}, len(postings))
	keys := make([]CounterKey, 0, len(postings))
	for _, p := range postings {
		k := p.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	SortKeys(keys)
	return keys
}

// SortKeys orders keys in lock order
func SortKeys(keys []CounterKey) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
}
