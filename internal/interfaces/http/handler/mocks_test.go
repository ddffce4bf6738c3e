package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	inventoryapp "github.com/erp/fulfillment/internal/application/inventory"
	"github.com/erp/fulfillment/internal/application/statistics"
	tradeapp "github.com/erp/fulfillment/internal/application/trade"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/domain/warehousing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// testRouter resolves the tenant the way the tenant middleware does
func testRouter(tenantID uuid.UUID) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if tenantID != uuid.Nil {
			setTenant(c, tenantID)
		}
		c.Next()
	})
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// MockLedgerService is a testify mock of LedgerService
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) GetCounter(ctx context.Context, tenantID, warehouseID, skuID uuid.UUID) (*inventoryapp.CounterResponse, error) {
	args := m.Called(ctx, tenantID, warehouseID, skuID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.CounterResponse), args.Error(1)
}

func (m *MockLedgerService) AvailableCount(ctx context.Context, tenantID, warehouseID, skuID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID, warehouseID, skuID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerService) ListCounters(ctx context.Context, tenantID, warehouseID uuid.UUID, filter shared.Filter) ([]inventoryapp.CounterResponse, int64, error) {
	args := m.Called(ctx, tenantID, warehouseID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]inventoryapp.CounterResponse), args.Get(1).(int64), args.Error(2)
}

func (m *MockLedgerService) ListBelowMinimum(ctx context.Context, tenantID uuid.UUID) ([]inventoryapp.CounterResponse, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventoryapp.CounterResponse), args.Error(1)
}

func (m *MockLedgerService) SetThresholds(ctx context.Context, tenantID, warehouseID, skuID uuid.UUID, req inventoryapp.ThresholdRequest) (*inventoryapp.CounterResponse, error) {
	args := m.Called(ctx, tenantID, warehouseID, skuID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.CounterResponse), args.Error(1)
}

func (m *MockLedgerService) Adjust(ctx context.Context, tenantID uuid.UUID, req inventoryapp.AdjustRequest) (*inventoryapp.PostingResult, error) {
	args := m.Called(ctx, tenantID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.PostingResult), args.Error(1)
}

func (m *MockLedgerService) Transfer(ctx context.Context, tenantID uuid.UUID, req inventoryapp.TransferRequest) (*inventoryapp.PostingResult, error) {
	args := m.Called(ctx, tenantID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.PostingResult), args.Error(1)
}

func (m *MockLedgerService) ListEntries(ctx context.Context, tenantID uuid.UUID, filter inventoryapp.LedgerFilter) ([]inventoryapp.LedgerEntryResponse, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]inventoryapp.LedgerEntryResponse), args.Get(1).(int64), args.Error(2)
}

func (m *MockLedgerService) EntriesByDocument(ctx context.Context, tenantID uuid.UUID, serial string) ([]inventoryapp.LedgerEntryResponse, error) {
	args := m.Called(ctx, tenantID, serial)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventoryapp.LedgerEntryResponse), args.Error(1)
}

func (m *MockLedgerService) CounterHistory(ctx context.Context, tenantID, warehouseID, skuID uuid.UUID) ([]inventoryapp.LedgerEntryResponse, error) {
	args := m.Called(ctx, tenantID, warehouseID, skuID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventoryapp.LedgerEntryResponse), args.Error(1)
}

func (m *MockLedgerService) GetDocument(ctx context.Context, tenantID uuid.UUID, kind warehousing.DocumentKind, serial string) (*inventoryapp.DocumentResponse, error) {
	args := m.Called(ctx, tenantID, kind, serial)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.DocumentResponse), args.Error(1)
}

func (m *MockLedgerService) Reconcile(ctx context.Context, tenantID, warehouseID, skuID uuid.UUID) (*inventoryapp.ReconcileResponse, error) {
	args := m.Called(ctx, tenantID, warehouseID, skuID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.ReconcileResponse), args.Error(1)
}

func (m *MockLedgerService) ReconcileAll(ctx context.Context, tenantID uuid.UUID) (*inventoryapp.ReconcileReport, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.ReconcileReport), args.Error(1)
}

func (m *MockLedgerService) ExportLedger(ctx context.Context, tenantID uuid.UUID, filter inventoryapp.LedgerFilter, w io.Writer) error {
	args := m.Called(ctx, tenantID, filter, w)
	return args.Error(0)
}

// MockOrderService is a testify mock of OrderService
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) order(args mock.Arguments) (*tradeapp.OrderResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tradeapp.OrderResponse), args.Error(1)
}

func (m *MockOrderService) Create(ctx context.Context, tenantID uuid.UUID, req tradeapp.CreateOrderRequest) (*tradeapp.OrderResponse, error) {
	return m.order(m.Called(ctx, tenantID, req))
}

func (m *MockOrderService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*tradeapp.OrderResponse, error) {
	return m.order(m.Called(ctx, tenantID, id))
}

func (m *MockOrderService) List(ctx context.Context, tenantID uuid.UUID, filter tradeapp.OrderListFilter) ([]tradeapp.OrderResponse, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]tradeapp.OrderResponse), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderService) ConfirmPayment(ctx context.Context, tenantID, id uuid.UUID) (*tradeapp.OrderResponse, error) {
	return m.order(m.Called(ctx, tenantID, id))
}

func (m *MockOrderService) Approve(ctx context.Context, tenantID, id uuid.UUID) (*tradeapp.OrderResponse, error) {
	return m.order(m.Called(ctx, tenantID, id))
}

func (m *MockOrderService) Ship(ctx context.Context, tenantID, id uuid.UUID, req tradeapp.ShipRequest) (*tradeapp.OrderResponse, error) {
	return m.order(m.Called(ctx, tenantID, id, req))
}

func (m *MockOrderService) PrintLabel(ctx context.Context, tenantID, id uuid.UUID) (*tradeapp.OrderResponse, error) {
	return m.order(m.Called(ctx, tenantID, id))
}

func (m *MockOrderService) ConfirmPrinted(ctx context.Context, tenantID, id uuid.UUID, req tradeapp.ConfirmPrintedRequest) (*tradeapp.OrderResponse, error) {
	return m.order(m.Called(ctx, tenantID, id, req))
}

func (m *MockOrderService) Sign(ctx context.Context, tenantID, id uuid.UUID) (*tradeapp.OrderResponse, error) {
	return m.order(m.Called(ctx, tenantID, id))
}

func (m *MockOrderService) Finish(ctx context.Context, tenantID, id uuid.UUID) (*tradeapp.OrderResponse, error) {
	return m.order(m.Called(ctx, tenantID, id))
}

func (m *MockOrderService) Cancel(ctx context.Context, tenantID, id uuid.UUID, req tradeapp.CancelOrderRequest) (*tradeapp.OrderResponse, error) {
	return m.order(m.Called(ctx, tenantID, id, req))
}

func (m *MockOrderService) Split(ctx context.Context, tenantID, id uuid.UUID, req tradeapp.SplitOrderRequest) (*tradeapp.SplitOrderResponse, error) {
	args := m.Called(ctx, tenantID, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tradeapp.SplitOrderResponse), args.Error(1)
}

// MockPurchaseService is a testify mock of PurchaseService
type MockPurchaseService struct {
	mock.Mock
}

func (m *MockPurchaseService) Create(ctx context.Context, tenantID uuid.UUID, req tradeapp.CreatePurchaseRequest) (*tradeapp.PurchaseResponse, error) {
	args := m.Called(ctx, tenantID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tradeapp.PurchaseResponse), args.Error(1)
}

func (m *MockPurchaseService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*tradeapp.PurchaseResponse, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tradeapp.PurchaseResponse), args.Error(1)
}

func (m *MockPurchaseService) List(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]tradeapp.PurchaseResponse, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]tradeapp.PurchaseResponse), args.Get(1).(int64), args.Error(2)
}

func (m *MockPurchaseService) RecordArrival(ctx context.Context, tenantID, id uuid.UUID, req tradeapp.ArrivalRequest) (*tradeapp.ArrivalResponse, error) {
	args := m.Called(ctx, tenantID, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tradeapp.ArrivalResponse), args.Error(1)
}

type fakeStatistics struct {
	stats   statistics.TenantStatistics
	dropped int64
}

func (f fakeStatistics) Snapshot(tenantID uuid.UUID) statistics.TenantStatistics {
	s := f.stats
	s.TenantID = tenantID
	return s
}

func (f fakeStatistics) Dropped() int64 { return f.dropped }

var (
	_ LedgerService    = (*MockLedgerService)(nil)
	_ OrderService     = (*MockOrderService)(nil)
	_ PurchaseService  = (*MockPurchaseService)(nil)
	_ StatisticsSource = fakeStatistics{}
)
