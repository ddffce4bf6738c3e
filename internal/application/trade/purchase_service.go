package trade

import (
	"context"
	"time"

	appinv "github.com/erp/fulfillment/internal/application/inventory"
	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/domain/trade"
	"github.com/erp/fulfillment/internal/domain/warehousing"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PurchaseFulfillmentService records purchases and their arrivals
type PurchaseFulfillmentService struct {
	purchaseRepo   trade.PurchaseRepository
	txScope        TransactionScope
	serials        shared.SerialGenerator
	locker         appinv.StockLocker
	eventPublisher shared.EventPublisher
	retryAttempts  int
	logger         *zap.Logger
}

// NewPurchaseFulfillmentService creates a new PurchaseFulfillmentService
func NewPurchaseFulfillmentService(
	purchaseRepo trade.PurchaseRepository,
	txScope TransactionScope,
	serials shared.SerialGenerator,
	logger *zap.Logger,
) *PurchaseFulfillmentService {
	return &PurchaseFulfillmentService{
		purchaseRepo:  purchaseRepo,
		txScope:       txScope,
		serials:       serials,
		locker:        appinv.NoopLocker,
		retryAttempts: appinv.DefaultRetryAttempts,
		logger:        logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *PurchaseFulfillmentService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetLocker sets the cross-process stock locker
func (s *PurchaseFulfillmentService) SetLocker(locker appinv.StockLocker) {
	if locker != nil {
		s.locker = locker
	}
}

// SetRetryAttempts sets how often conflicting transactions are retried
func (s *PurchaseFulfillmentService) SetRetryAttempts(attempts int) {
	if attempts > 0 {
		s.retryAttempts = attempts
	}
}

// Create creates a purchase waiting for storage
func (s *PurchaseFulfillmentService) Create(ctx context.Context, tenantID uuid.UUID, req CreatePurchaseRequest) (*PurchaseResponse, error) {
	purchase, err := trade.NewPurchase(tenantID, s.serials.Next(shared.SerialPrefixPurchase), req.WarehouseID, req.SupplierName)
	if err != nil {
		return nil, err
	}
	purchase.Remark = req.Remark
	for _, line := range req.Lines {
		if _, err := purchase.AddLine(line.SkuID, line.Quantity, line.CostPrice); err != nil {
			return nil, err
		}
	}
	if err := s.purchaseRepo.Create(ctx, purchase); err != nil {
		return nil, err
	}
	resp := ToPurchaseResponse(purchase)
	return &resp, nil
}

// GetByID returns a purchase
func (s *PurchaseFulfillmentService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*PurchaseResponse, error) {
	purchase, err := s.purchaseRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := ToPurchaseResponse(purchase)
	return &resp, nil
}

// List returns a page of purchases
func (s *PurchaseFulfillmentService) List(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]PurchaseResponse, int64, error) {
	purchases, total, err := s.purchaseRepo.FindAllForTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]PurchaseResponse, len(purchases))
	for i := range purchases {
		out[i] = ToPurchaseResponse(&purchases[i])
	}
	return out, total, nil
}

// RecordArrival stores goods that arrived for a purchase. The whole arrival
// is rejected with an OverReceiptError if any SKU exceeds what is still
// outstanding. Otherwise one inbound document is written, each arrived line
// posts a PURCHASE_INBOUND entry at its cost price, and the purchase
// finishes once every line has fully arrived.
func (s *PurchaseFulfillmentService) RecordArrival(ctx context.Context, tenantID, purchaseID uuid.UUID, req ArrivalRequest) (*ArrivalResponse, error) {
	arrivals := make(map[uuid.UUID]int64, len(req.Items))
	for _, item := range req.Items {
		arrivals[item.SkuID] += item.Quantity
	}

	current, err := s.purchaseRepo.FindByIDForTenant(ctx, tenantID, purchaseID)
	if err != nil {
		return nil, err
	}
	keys := make([]inventory.CounterKey, 0, len(arrivals))
	for skuID := range arrivals {
		keys = append(keys, inventory.CounterKey{WarehouseID: current.WarehouseID, SkuID: skuID})
	}
	inventory.SortKeys(keys)
	release, err := s.locker.Lock(ctx, tenantID, keys)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		resp   *ArrivalResponse
		events []shared.DomainEvent
	)
	err = appinv.Retry(ctx, s.retryAttempts, func() error {
		events = nil
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			purchase, err := repos.PurchaseRepo().FindByIDForUpdate(ctx, tenantID, purchaseID)
			if err != nil {
				return err
			}
			planned, err := purchase.PlanArrival(arrivals)
			if err != nil {
				return err
			}

			serial := s.serials.Next(shared.SerialPrefixInbound)
			lines := make([]warehousing.DocumentLine, 0, len(planned))
			postings := make([]inventory.Posting, 0, len(planned))
			for _, a := range planned {
				lines = append(lines, warehousing.NewLine(a.SkuID, a.Quantity, a.CostPrice))
				postings = append(postings, inventory.Posting{
					WarehouseID:    purchase.WarehouseID,
					SkuID:          a.SkuID,
					Operation:      inventory.OperationPurchaseInbound,
					Quantity:       a.Quantity,
					UnitPrice:      a.CostPrice,
					DocumentSerial: serial,
					SourceType:     inventory.SourcePurchase,
					SourceID:       purchase.Serial,
					Remark:         req.Remark,
				})
			}

			posted, err := appinv.PostAll(ctx, repos, tenantID, postings, time.Now())
			if err != nil {
				return err
			}

			doc, err := warehousing.OpenInbound(tenantID, serial, warehousing.TargetPurchase, purchase.Serial, purchase.WarehouseID, lines, req.Remark)
			if err != nil {
				return err
			}
			if err := doc.Complete(); err != nil {
				return err
			}
			if err := repos.DocumentRepo().Create(ctx, doc); err != nil {
				return err
			}

			if err := purchase.RecordArrival(planned, serial); err != nil {
				return err
			}
			if err := repos.PurchaseRepo().SaveWithLock(ctx, purchase); err != nil {
				return err
			}

			events = append(posted.Events(), purchase.PopDomainEvents()...)
			resp = &ArrivalResponse{
				Purchase: ToPurchaseResponse(purchase),
				Document: appinv.ToDocumentResponse(doc),
				Entries:  make([]appinv.LedgerEntryResponse, len(posted.Entries)),
			}
			for i, e := range posted.Entries {
				resp.Entries[i] = appinv.ToLedgerEntryResponse(e)
			}
			return nil
		})
	})
	if err != nil {
		s.logger.Warn("purchase arrival rejected",
			zap.String("tenant_id", tenantID.String()),
			zap.String("purchase_id", purchaseID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("purchase arrival recorded",
		zap.String("tenant_id", tenantID.String()),
		zap.String("purchase", resp.Purchase.Serial),
		zap.String("document", resp.Document.Serial),
		zap.String("status", resp.Purchase.Status),
	)
	publish(ctx, s.eventPublisher, events)
	return resp, nil
}

func publish(ctx context.Context, publisher shared.EventPublisher, events []shared.DomainEvent) {
	if publisher == nil || len(events) == 0 {
		return
	}
	// Publish errors are logged by the event bus, not propagated
	_ = publisher.Publish(ctx, events...)
}
