package inventory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/domain/warehousing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultRetryAttempts is how often a posting transaction is retried after a
// concurrency conflict
const DefaultRetryAttempts = 3

// DefaultExportLimit bounds the number of entries written to one export
const DefaultExportLimit = 50000

// StockLedgerService exposes the ledger: counter queries, manual
// adjustments, transfers, reconciliation and export.
type StockLedgerService struct {
	counterRepo    inventory.StockCounterRepository
	ledgerRepo     inventory.LedgerEntryRepository
	documentRepo   warehousing.DocumentRepository
	txScope        TransactionScope
	serials        shared.SerialGenerator
	locker         StockLocker
	exporter       LedgerExporter
	exportLimit    int
	eventPublisher shared.EventPublisher
	retryAttempts  int
	logger         *zap.Logger
}

// NewStockLedgerService creates a new StockLedgerService
func NewStockLedgerService(
	counterRepo inventory.StockCounterRepository,
	ledgerRepo inventory.LedgerEntryRepository,
	documentRepo warehousing.DocumentRepository,
	txScope TransactionScope,
	serials shared.SerialGenerator,
	logger *zap.Logger,
) *StockLedgerService {
	return &StockLedgerService{
		counterRepo:   counterRepo,
		ledgerRepo:    ledgerRepo,
		documentRepo:  documentRepo,
		txScope:       txScope,
		serials:       serials,
		locker:        NoopLocker,
		retryAttempts: DefaultRetryAttempts,
		exportLimit:   DefaultExportLimit,
		logger:        logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *StockLedgerService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetLocker sets the cross-process stock locker
func (s *StockLedgerService) SetLocker(locker StockLocker) {
	if locker != nil {
		s.locker = locker
	}
}

// SetExporter sets the spreadsheet exporter. maxEntries <= 0 keeps the
// default limit.
func (s *StockLedgerService) SetExporter(exporter LedgerExporter, maxEntries int) {
	s.exporter = exporter
	if maxEntries > 0 {
		s.exportLimit = maxEntries
	}
}

// SetRetryAttempts sets how often conflicting transactions are retried
func (s *StockLedgerService) SetRetryAttempts(attempts int) {
	if attempts > 0 {
		s.retryAttempts = attempts
	}
}

func (s *StockLedgerService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	// Publish errors are logged by the event bus, not propagated
	_ = s.eventPublisher.Publish(ctx, events...)
}

// GetCounter returns the counter for a warehouse and SKU
func (s *StockLedgerService) GetCounter(ctx context.Context, tenantID, warehouseID, skuID uuid.UUID) (*CounterResponse, error) {
	counter, err := s.counterRepo.FindByKey(ctx, tenantID, inventory.CounterKey{WarehouseID: warehouseID, SkuID: skuID})
	if err != nil {
		return nil, err
	}
	resp := ToCounterResponse(counter)
	return &resp, nil
}

// AvailableCount returns current minus presale. The counter is created
// empty on first check.
func (s *StockLedgerService) AvailableCount(ctx context.Context, tenantID, warehouseID, skuID uuid.UUID) (int64, error) {
	counter, err := s.counterRepo.GetOrCreate(ctx, tenantID, inventory.CounterKey{WarehouseID: warehouseID, SkuID: skuID})
	if err != nil {
		return 0, err
	}
	return counter.Available(), nil
}

// ListCounters returns a page of counters in a warehouse
func (s *StockLedgerService) ListCounters(ctx context.Context, tenantID, warehouseID uuid.UUID, filter shared.Filter) ([]CounterResponse, int64, error) {
	counters, total, err := s.counterRepo.FindByWarehouse(ctx, tenantID, warehouseID, filter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]CounterResponse, len(counters))
	for i := range counters {
		out[i] = ToCounterResponse(&counters[i])
	}
	return out, total, nil
}

// ListBelowMinimum returns counters under their alert threshold
func (s *StockLedgerService) ListBelowMinimum(ctx context.Context, tenantID uuid.UUID) ([]CounterResponse, error) {
	counters, err := s.counterRepo.FindBelowMinimum(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]CounterResponse, len(counters))
	for i := range counters {
		out[i] = ToCounterResponse(&counters[i])
	}
	return out, nil
}

// SetThresholds updates the alert thresholds of a counter, creating it if needed
func (s *StockLedgerService) SetThresholds(ctx context.Context, tenantID, warehouseID, skuID uuid.UUID, req ThresholdRequest) (*CounterResponse, error) {
	var resp CounterResponse
	err := Retry(ctx, s.retryAttempts, func() error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			key := inventory.CounterKey{WarehouseID: warehouseID, SkuID: skuID}
			counter, err := repos.CounterRepo().GetOrCreateForUpdate(ctx, tenantID, key)
			if err != nil {
				return err
			}
			if err := counter.SetThresholds(req.MinCount, req.MaxCount); err != nil {
				return err
			}
			if err := repos.CounterRepo().SaveWithLock(ctx, counter); err != nil {
				return err
			}
			resp = ToCounterResponse(counter)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Adjust posts a manual correction with its own completed document
func (s *StockLedgerService) Adjust(ctx context.Context, tenantID uuid.UUID, req AdjustRequest) (*PostingResult, error) {
	if !req.Direction.IsValid() {
		return nil, shared.NewDomainError("INVALID_DIRECTION", "Direction must be in or out")
	}
	op := inventory.OperationManualInbound
	prefix := shared.SerialPrefixInbound
	if req.Direction == inventory.DirectionOut {
		op = inventory.OperationManualOutbound
		prefix = shared.SerialPrefixOutbound
	}
	unitPrice := req.UnitPrice
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}

	serial := s.serials.Next(prefix)
	lines := []warehousing.DocumentLine{warehousing.NewLine(req.SkuID, req.Quantity, unitPrice)}
	var doc warehousing.Document
	var err error
	if req.Direction == inventory.DirectionIn {
		doc, err = warehousing.OpenInbound(tenantID, serial, warehousing.TargetAdjustment, serial, req.WarehouseID, lines, req.Remark)
	} else {
		doc, err = warehousing.OpenOutbound(tenantID, serial, warehousing.TargetAdjustment, serial, req.WarehouseID, lines, req.Remark)
	}
	if err != nil {
		return nil, err
	}

	postings := []inventory.Posting{{
		WarehouseID:    req.WarehouseID,
		ShelfCode:      req.ShelfCode,
		SkuID:          req.SkuID,
		Operation:      op,
		Quantity:       req.Quantity,
		UnitPrice:      unitPrice,
		DocumentSerial: serial,
		SourceType:     inventory.SourceAdjustment,
		SourceID:       serial,
		Remark:         req.Remark,
	}}

	result, err := s.postWithDocument(ctx, tenantID, doc, postings)
	if err != nil {
		return nil, err
	}
	s.logger.Info("manual stock adjustment posted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("document", serial),
		zap.String("operation", op.String()),
		zap.Int64("quantity", req.Quantity),
	)
	return result, nil
}

// Transfer moves stock between two warehouses. Every item posts a
// TRANSFER_OUTBOUND at the source and a TRANSFER_INBOUND at the destination
// in one transaction.
func (s *StockLedgerService) Transfer(ctx context.Context, tenantID uuid.UUID, req TransferRequest) (*PostingResult, error) {
	if len(req.Items) == 0 {
		return nil, shared.ErrEmptySelection
	}
	serial := s.serials.Next(shared.SerialPrefixExchange)

	lines := make([]warehousing.DocumentLine, 0, len(req.Items))
	postings := make([]inventory.Posting, 0, 2*len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, warehousing.NewLine(item.SkuID, item.Quantity, decimal.Zero))
		postings = append(postings,
			inventory.Posting{
				WarehouseID:    req.SourceWarehouseID,
				SkuID:          item.SkuID,
				Operation:      inventory.OperationTransferOutbound,
				Quantity:       item.Quantity,
				UnitPrice:      decimal.Zero,
				DocumentSerial: serial,
				SourceType:     inventory.SourceTransfer,
				SourceID:       serial,
				Remark:         req.Remark,
			},
			inventory.Posting{
				WarehouseID:    req.DestinationWarehouseID,
				SkuID:          item.SkuID,
				Operation:      inventory.OperationTransferInbound,
				Quantity:       item.Quantity,
				UnitPrice:      decimal.Zero,
				DocumentSerial: serial,
				SourceType:     inventory.SourceTransfer,
				SourceID:       serial,
				Remark:         req.Remark,
			},
		)
	}

	doc, err := warehousing.OpenExchange(tenantID, serial, req.SourceWarehouseID, req.DestinationWarehouseID, lines, req.Remark)
	if err != nil {
		return nil, err
	}

	result, err := s.postWithDocument(ctx, tenantID, doc, postings)
	if err != nil {
		return nil, err
	}
	s.logger.Info("stock transfer posted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("document", serial),
		zap.String("source", req.SourceWarehouseID.String()),
		zap.String("destination", req.DestinationWarehouseID.String()),
		zap.Int("items", len(req.Items)),
	)
	return result, nil
}

// postWithDocument writes a completed document and its postings atomically
func (s *StockLedgerService) postWithDocument(ctx context.Context, tenantID uuid.UUID, doc warehousing.Document, postings []inventory.Posting) (*PostingResult, error) {
	release, err := s.locker.Lock(ctx, tenantID, inventory.DistinctKeys(postings))
	if err != nil {
		return nil, err
	}
	defer release()

	var posted *PostResult
	err = Retry(ctx, s.retryAttempts, func() error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			var err error
			posted, err = PostAll(ctx, repos, tenantID, postings, time.Now())
			if err != nil {
				return err
			}
			if err := completeDocument(doc); err != nil {
				return err
			}
			return repos.DocumentRepo().Create(ctx, doc)
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, posted.Events())
	return newPostingResult(doc, posted.Entries), nil
}

func completeDocument(doc warehousing.Document) error {
	if doc.Header().IsComplete() {
		return nil
	}
	type completer interface{ Complete() error }
	c, ok := doc.(completer)
	if !ok {
		return fmt.Errorf("document kind %s cannot be completed", doc.Kind())
	}
	return c.Complete()
}

func newPostingResult(doc warehousing.Document, entries []*inventory.LedgerEntry) *PostingResult {
	result := &PostingResult{Document: ToDocumentResponse(doc), Entries: make([]LedgerEntryResponse, len(entries))}
	for i, e := range entries {
		result.Entries[i] = ToLedgerEntryResponse(e)
	}
	return result
}

// ListEntries returns a page of ledger entries
func (s *StockLedgerService) ListEntries(ctx context.Context, tenantID uuid.UUID, filter LedgerFilter) ([]LedgerEntryResponse, int64, error) {
	entries, total, err := s.ledgerRepo.Find(ctx, tenantID, toLedgerQuery(filter))
	if err != nil {
		return nil, 0, err
	}
	return ToLedgerEntryResponses(entries), total, nil
}

// EntriesByDocument returns every entry written for a document serial
func (s *StockLedgerService) EntriesByDocument(ctx context.Context, tenantID uuid.UUID, serial string) ([]LedgerEntryResponse, error) {
	entries, err := s.ledgerRepo.FindByDocument(ctx, tenantID, serial)
	if err != nil {
		return nil, err
	}
	return ToLedgerEntryResponses(entries), nil
}

// CounterHistory returns a counter's entries in sequence order
func (s *StockLedgerService) CounterHistory(ctx context.Context, tenantID, warehouseID, skuID uuid.UUID) ([]LedgerEntryResponse, error) {
	counter, err := s.counterRepo.FindByKey(ctx, tenantID, inventory.CounterKey{WarehouseID: warehouseID, SkuID: skuID})
	if err != nil {
		return nil, err
	}
	entries, err := s.ledgerRepo.FindByCounter(ctx, tenantID, counter.ID)
	if err != nil {
		return nil, err
	}
	return ToLedgerEntryResponses(entries), nil
}

// GetDocument returns a warehouse document by kind and serial
func (s *StockLedgerService) GetDocument(ctx context.Context, tenantID uuid.UUID, kind warehousing.DocumentKind, serial string) (*DocumentResponse, error) {
	var doc warehousing.Document
	var err error
	switch kind {
	case warehousing.KindInbound:
		doc, err = s.documentRepo.FindInboundBySerial(ctx, tenantID, serial)
	case warehousing.KindOutbound:
		doc, err = s.documentRepo.FindOutboundBySerial(ctx, tenantID, serial)
	case warehousing.KindExchange:
		doc, err = s.documentRepo.FindExchangeBySerial(ctx, tenantID, serial)
	default:
		return nil, shared.NewDomainError("INVALID_DOCUMENT_KIND", "Unknown document kind: "+string(kind))
	}
	if err != nil {
		return nil, err
	}
	resp := ToDocumentResponse(doc)
	return &resp, nil
}

// Reconcile replays one counter's ledger. A broken chain is returned as a
// LedgerReconciliationError and is never repaired.
func (s *StockLedgerService) Reconcile(ctx context.Context, tenantID, warehouseID, skuID uuid.UUID) (*ReconcileResponse, error) {
	counter, err := s.counterRepo.FindByKey(ctx, tenantID, inventory.CounterKey{WarehouseID: warehouseID, SkuID: skuID})
	if err != nil {
		return nil, err
	}
	resp, err := s.reconcileCounter(ctx, tenantID, counter)
	if err != nil {
		return nil, err
	}
	if !resp.Consistent {
		return resp, &inventory.LedgerReconciliationError{CounterID: counter.ID, Key: counter.Key(), Breaks: resp.Breaks}
	}
	return resp, nil
}

// ReconcileAll replays every counter of a tenant and reports the broken ones
func (s *StockLedgerService) ReconcileAll(ctx context.Context, tenantID uuid.UUID) (*ReconcileReport, error) {
	counters, err := s.counterRepo.FindAllForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	report := &ReconcileReport{}
	for i := range counters {
		resp, err := s.reconcileCounter(ctx, tenantID, &counters[i])
		if err != nil {
			return nil, err
		}
		report.Checked++
		if !resp.Consistent {
			report.Inconsistent++
			report.Counters = append(report.Counters, *resp)
			s.logger.Warn("stock ledger does not reconcile",
				zap.String("tenant_id", tenantID.String()),
				zap.String("counter", counters[i].Key().String()),
				zap.Int("breaks", len(resp.Breaks)),
			)
		}
	}
	return report, nil
}

func (s *StockLedgerService) reconcileCounter(ctx context.Context, tenantID uuid.UUID, counter *inventory.StockCounter) (*ReconcileResponse, error) {
	entries, err := s.ledgerRepo.FindByCounter(ctx, tenantID, counter.ID)
	if err != nil {
		return nil, err
	}
	resp := &ReconcileResponse{
		WarehouseID:  counter.WarehouseID,
		SkuID:        counter.SkuID,
		CurrentCount: counter.CurrentCount,
		EntryCount:   len(entries),
		Consistent:   true,
	}
	if err := inventory.Replay(counter, entries); err != nil {
		var recErr *inventory.LedgerReconciliationError
		if !errors.As(err, &recErr) {
			return nil, err
		}
		resp.Consistent = false
		resp.Breaks = recErr.Breaks
	}
	return resp, nil
}

// ExportLedger writes the filtered ledger as a spreadsheet
func (s *StockLedgerService) ExportLedger(ctx context.Context, tenantID uuid.UUID, filter LedgerFilter, w io.Writer) error {
	if s.exporter == nil {
		return shared.NewDomainError("EXPORT_UNAVAILABLE", "Ledger export is not configured")
	}
	query := toLedgerQuery(filter)
	query.Page = 1
	query.PageSize = s.exportLimit
	entries, _, err := s.ledgerRepo.Find(ctx, tenantID, query)
	if err != nil {
		return err
	}
	return s.exporter.ExportLedger(ctx, entries, w)
}

func toLedgerQuery(f LedgerFilter) inventory.LedgerQuery {
	filter := shared.DefaultFilter()
	filter.OrderBy = "occurred_at"
	if f.Page > 0 {
		filter.Page = f.Page
	}
	if f.PageSize > 0 {
		filter.PageSize = f.PageSize
	}
	if f.OrderDir != "" {
		filter.OrderDir = f.OrderDir
	}
	if f.Document != "" {
		filter.Filters["document_serial"] = f.Document
	}
	if f.From != nil {
		filter.Filters["from"] = *f.From
	}
	if f.To != nil {
		filter.Filters["to"] = *f.To
	}
	return inventory.LedgerQuery{
		WarehouseID: f.WarehouseID,
		SkuID:       f.SkuID,
		Operation:   inventory.OperationType(f.Operation),
		Filter:      filter,
	}
}
