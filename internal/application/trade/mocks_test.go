package trade

import (
	"context"
	"strconv"
	"sync/atomic"

	appinv "github.com/erp/fulfillment/internal/application/inventory"
	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/domain/trade"
	"github.com/erp/fulfillment/internal/domain/warehousing"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockOrderRepository is a mock implementation of OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*trade.Order, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*trade.Order, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Order), args.Error(1)
}

func (m *MockOrderRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]trade.Order, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]trade.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) Create(ctx context.Context, order *trade.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) SaveWithLock(ctx context.Context, order *trade.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

// MockPurchaseRepository is a mock implementation of PurchaseRepository
type MockPurchaseRepository struct {
	mock.Mock
}

func (m *MockPurchaseRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*trade.Purchase, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Purchase), args.Error(1)
}

func (m *MockPurchaseRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*trade.Purchase, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Purchase), args.Error(1)
}

func (m *MockPurchaseRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]trade.Purchase, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]trade.Purchase), args.Get(1).(int64), args.Error(2)
}

func (m *MockPurchaseRepository) Create(ctx context.Context, purchase *trade.Purchase) error {
	args := m.Called(ctx, purchase)
	return args.Error(0)
}

func (m *MockPurchaseRepository) SaveWithLock(ctx context.Context, purchase *trade.Purchase) error {
	args := m.Called(ctx, purchase)
	return args.Error(0)
}

// MockStockCounterRepository is a mock implementation of StockCounterRepository
type MockStockCounterRepository struct {
	mock.Mock
}

func (m *MockStockCounterRepository) counter(args mock.Arguments) (*inventory.StockCounter, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.StockCounter), args.Error(1)
}

func (m *MockStockCounterRepository) FindByKey(ctx context.Context, tenantID uuid.UUID, key inventory.CounterKey) (*inventory.StockCounter, error) {
	return m.counter(m.Called(ctx, tenantID, key))
}

func (m *MockStockCounterRepository) GetOrCreate(ctx context.Context, tenantID uuid.UUID, key inventory.CounterKey) (*inventory.StockCounter, error) {
	return m.counter(m.Called(ctx, tenantID, key))
}

func (m *MockStockCounterRepository) FindByKeyForUpdate(ctx context.Context, tenantID uuid.UUID, key inventory.CounterKey) (*inventory.StockCounter, error) {
	return m.counter(m.Called(ctx, tenantID, key))
}

func (m *MockStockCounterRepository) GetOrCreateForUpdate(ctx context.Context, tenantID uuid.UUID, key inventory.CounterKey) (*inventory.StockCounter, error) {
	return m.counter(m.Called(ctx, tenantID, key))
}

func (m *MockStockCounterRepository) SaveWithLock(ctx context.Context, counter *inventory.StockCounter) error {
	args := m.Called(ctx, counter)
	return args.Error(0)
}

func (m *MockStockCounterRepository) FindByWarehouse(ctx context.Context, tenantID, warehouseID uuid.UUID, filter shared.Filter) ([]inventory.StockCounter, int64, error) {
	args := m.Called(ctx, tenantID, warehouseID, filter)
	return args.Get(0).([]inventory.StockCounter), args.Get(1).(int64), args.Error(2)
}

func (m *MockStockCounterRepository) FindBelowMinimum(ctx context.Context, tenantID uuid.UUID) ([]inventory.StockCounter, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]inventory.StockCounter), args.Error(1)
}

func (m *MockStockCounterRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]inventory.StockCounter, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]inventory.StockCounter), args.Error(1)
}

func (m *MockStockCounterRepository) TenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// MockLedgerEntryRepository is a mock implementation of LedgerEntryRepository
type MockLedgerEntryRepository struct {
	mock.Mock
}

func (m *MockLedgerEntryRepository) Create(ctx context.Context, entry *inventory.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerEntryRepository) FindByCounter(ctx context.Context, tenantID, counterID uuid.UUID) ([]inventory.LedgerEntry, error) {
	args := m.Called(ctx, tenantID, counterID)
	return args.Get(0).([]inventory.LedgerEntry), args.Error(1)
}

func (m *MockLedgerEntryRepository) FindByDocument(ctx context.Context, tenantID uuid.UUID, documentSerial string) ([]inventory.LedgerEntry, error) {
	args := m.Called(ctx, tenantID, documentSerial)
	return args.Get(0).([]inventory.LedgerEntry), args.Error(1)
}

func (m *MockLedgerEntryRepository) Find(ctx context.Context, tenantID uuid.UUID, query inventory.LedgerQuery) ([]inventory.LedgerEntry, int64, error) {
	args := m.Called(ctx, tenantID, query)
	return args.Get(0).([]inventory.LedgerEntry), args.Get(1).(int64), args.Error(2)
}

// MockDocumentRepository is a mock implementation of DocumentRepository
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, doc warehousing.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepository) Save(ctx context.Context, doc warehousing.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepository) ReplaceLines(ctx context.Context, doc warehousing.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepository) FindInboundBySerial(ctx context.Context, tenantID uuid.UUID, serial string) (*warehousing.InboundDocument, error) {
	args := m.Called(ctx, tenantID, serial)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*warehousing.InboundDocument), args.Error(1)
}

func (m *MockDocumentRepository) FindOutboundBySerial(ctx context.Context, tenantID uuid.UUID, serial string) (*warehousing.OutboundDocument, error) {
	args := m.Called(ctx, tenantID, serial)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*warehousing.OutboundDocument), args.Error(1)
}

func (m *MockDocumentRepository) FindExchangeBySerial(ctx context.Context, tenantID uuid.UUID, serial string) (*warehousing.ExchangeDocument, error) {
	args := m.Called(ctx, tenantID, serial)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*warehousing.ExchangeDocument), args.Error(1)
}

func (m *MockDocumentRepository) FindInboundByTarget(ctx context.Context, tenantID uuid.UUID, targetType warehousing.TargetType, targetID string) ([]warehousing.InboundDocument, error) {
	args := m.Called(ctx, tenantID, targetType, targetID)
	return args.Get(0).([]warehousing.InboundDocument), args.Error(1)
}

func (m *MockDocumentRepository) FindOutboundByTarget(ctx context.Context, tenantID uuid.UUID, targetType warehousing.TargetType, targetID string) (*warehousing.OutboundDocument, error) {
	args := m.Called(ctx, tenantID, targetType, targetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*warehousing.OutboundDocument), args.Error(1)
}

// MockCarrierGateway is a mock implementation of CarrierGateway
type MockCarrierGateway struct {
	mock.Mock
}

func (m *MockCarrierGateway) RequestWaybill(ctx context.Context, req WaybillRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// MockNotifier is a mock implementation of Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// mockRepos bundles the mocks as TransactionalRepositories
type mockRepos struct {
	counters  *MockStockCounterRepository
	ledger    *MockLedgerEntryRepository
	documents *MockDocumentRepository
	purchases *MockPurchaseRepository
	orders    *MockOrderRepository
}

func newMockRepos() *mockRepos {
	return &mockRepos{
		counters:  new(MockStockCounterRepository),
		ledger:    new(MockLedgerEntryRepository),
		documents: new(MockDocumentRepository),
		purchases: new(MockPurchaseRepository),
		orders:    new(MockOrderRepository),
	}
}

func (r *mockRepos) CounterRepo() inventory.StockCounterRepository { return r.counters }
func (r *mockRepos) LedgerRepo() inventory.LedgerEntryRepository   { return r.ledger }
func (r *mockRepos) DocumentRepo() warehousing.DocumentRepository  { return r.documents }
func (r *mockRepos) PurchaseRepo() trade.PurchaseRepository        { return r.purchases }
func (r *mockRepos) OrderRepo() trade.OrderRepository              { return r.orders }

var _ appinv.TransactionalRepositories = (*mockRepos)(nil)

// passthroughScope runs fn against the mocks without a transaction
type passthroughScope struct {
	repos *mockRepos
	calls atomic.Int32
}

func (s *passthroughScope) Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
	s.calls.Add(1)
	return fn(s.repos)
}

type counterSerials struct{ n atomic.Int64 }

func (c *counterSerials) Next(prefix string) string {
	return prefix + "-" + strconv.FormatInt(c.n.Add(1), 10)
}
