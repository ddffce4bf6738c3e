package trade

import (
	"context"
	"errors"
	"time"

	appinv "github.com/erp/fulfillment/internal/application/inventory"
	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/domain/trade"
	"github.com/erp/fulfillment/internal/domain/warehousing"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderFulfillmentService drives sales orders through fulfillment. Stock is
// taken from the counters when an order is approved and given back when an
// approved order is canceled before shipment.
type OrderFulfillmentService struct {
	orderRepo      trade.OrderRepository
	txScope        TransactionScope
	serials        shared.SerialGenerator
	locker         appinv.StockLocker
	carrier        CarrierGateway
	eventPublisher shared.EventPublisher
	retryAttempts  int
	logger         *zap.Logger
}

// NewOrderFulfillmentService creates a new OrderFulfillmentService
func NewOrderFulfillmentService(
	orderRepo trade.OrderRepository,
	txScope TransactionScope,
	serials shared.SerialGenerator,
	logger *zap.Logger,
) *OrderFulfillmentService {
	return &OrderFulfillmentService{
		orderRepo:     orderRepo,
		txScope:       txScope,
		serials:       serials,
		locker:        appinv.NoopLocker,
		retryAttempts: appinv.DefaultRetryAttempts,
		logger:        logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *OrderFulfillmentService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetLocker sets the cross-process stock locker
func (s *OrderFulfillmentService) SetLocker(locker appinv.StockLocker) {
	if locker != nil {
		s.locker = locker
	}
}

// SetCarrierGateway sets the gateway used to print shipping labels
func (s *OrderFulfillmentService) SetCarrierGateway(carrier CarrierGateway) {
	s.carrier = carrier
}

// SetRetryAttempts sets how often conflicting transactions are retried
func (s *OrderFulfillmentService) SetRetryAttempts(attempts int) {
	if attempts > 0 {
		s.retryAttempts = attempts
	}
}

// Create creates an order waiting for payment
func (s *OrderFulfillmentService) Create(ctx context.Context, tenantID uuid.UUID, req CreateOrderRequest) (*OrderResponse, error) {
	order, err := trade.NewOrder(tenantID, s.serials.Next(shared.SerialPrefixOrder), req.WarehouseID, trade.Shipping{
		BuyerName:       req.BuyerName,
		ReceiverName:    req.ReceiverName,
		ReceiverPhone:   req.ReceiverPhone,
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		return nil, err
	}
	order.Remark = req.Remark
	for _, item := range req.Items {
		if _, err := order.AddItem(item.SkuID, item.Quantity, item.DealPrice, item.DiscountAmount); err != nil {
			return nil, err
		}
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}
	resp := ToOrderResponse(order)
	return &resp, nil
}

// GetByID returns an order
func (s *OrderFulfillmentService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(order)
	return &resp, nil
}

// List returns a page of orders
func (s *OrderFulfillmentService) List(ctx context.Context, tenantID uuid.UUID, filter OrderListFilter) ([]OrderResponse, int64, error) {
	f := shared.DefaultFilter()
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	if filter.Status != "" {
		f.Filters["status"] = filter.Status
	}
	if filter.WarehouseID != nil {
		f.Filters["warehouse_id"] = *filter.WarehouseID
	}
	orders, total, err := s.orderRepo.FindAllForTenant(ctx, tenantID, f)
	if err != nil {
		return nil, 0, err
	}
	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = ToOrderResponse(&orders[i])
	}
	return out, total, nil
}

// mutate loads the order under a row lock, applies fn and saves the order in
// one transaction, then publishes the collected events.
func (s *OrderFulfillmentService) mutate(ctx context.Context, tenantID, orderID uuid.UUID, action string, fn func(repos TransactionalRepositories, order *trade.Order) ([]shared.DomainEvent, error)) (*OrderResponse, error) {
	var (
		resp   OrderResponse
		events []shared.DomainEvent
	)
	err := appinv.Retry(ctx, s.retryAttempts, func() error {
		events = nil
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			order, err := repos.OrderRepo().FindByIDForUpdate(ctx, tenantID, orderID)
			if err != nil {
				return err
			}
			extra, err := fn(repos, order)
			if err != nil {
				return err
			}
			if err := repos.OrderRepo().SaveWithLock(ctx, order); err != nil {
				return err
			}
			events = append(extra, order.PopDomainEvents()...)
			resp = ToOrderResponse(order)
			return nil
		})
	})
	if err != nil {
		s.logger.Warn("order transition rejected",
			zap.String("tenant_id", tenantID.String()),
			zap.String("order_id", orderID.String()),
			zap.String("action", action),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("order transition applied",
		zap.String("tenant_id", tenantID.String()),
		zap.String("order", resp.Serial),
		zap.String("action", action),
		zap.String("status", resp.Status),
	)
	publish(ctx, s.eventPublisher, events)
	return &resp, nil
}

// lockOrderStock takes the cross-process locks for every counter the order
// touches
func (s *OrderFulfillmentService) lockOrderStock(ctx context.Context, tenantID, orderID uuid.UUID) (func(), error) {
	order, err := s.orderRepo.FindByIDForTenant(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	keys := make([]inventory.CounterKey, 0, len(order.Items))
	for skuID := range order.ItemQuantities() {
		keys = append(keys, inventory.CounterKey{WarehouseID: order.WarehouseID, SkuID: skuID})
	}
	inventory.SortKeys(keys)
	return s.locker.Lock(ctx, tenantID, keys)
}

// ConfirmPayment moves a paid order to PENDING_CHECK
func (s *OrderFulfillmentService) ConfirmPayment(ctx context.Context, tenantID, orderID uuid.UUID) (*OrderResponse, error) {
	return s.mutate(ctx, tenantID, orderID, "confirm payment", func(_ TransactionalRepositories, order *trade.Order) ([]shared.DomainEvent, error) {
		return nil, order.ConfirmPayment()
	})
}

// Approve checks that every item is available, posts an ORDER_OUTBOUND
// entry per item at its deal price and opens the outbound document. If any
// SKU is short nothing is written and the InsufficientStockError lists every
// short SKU.
func (s *OrderFulfillmentService) Approve(ctx context.Context, tenantID, orderID uuid.UUID) (*OrderResponse, error) {
	release, err := s.lockOrderStock(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	defer release()

	return s.mutate(ctx, tenantID, orderID, "approve", func(repos TransactionalRepositories, order *trade.Order) ([]shared.DomainEvent, error) {
		if err := order.CheckApprove(); err != nil {
			return nil, err
		}

		requested := make(map[inventory.CounterKey]int64)
		for skuID, qty := range order.ItemQuantities() {
			requested[inventory.CounterKey{WarehouseID: order.WarehouseID, SkuID: skuID}] = qty
		}
		if err := appinv.CheckAvailable(ctx, repos, tenantID, requested); err != nil {
			return nil, err
		}

		serial := s.serials.Next(shared.SerialPrefixOutbound)
		postings, lines := orderPostings(order, serial, inventory.OperationOrderOutbound)
		posted, err := appinv.PostAll(ctx, repos, tenantID, postings, time.Now())
		if err != nil {
			return nil, err
		}

		doc, err := warehousing.OpenOutbound(tenantID, serial, warehousing.TargetOrder, order.Serial, order.WarehouseID, lines, order.Remark)
		if err != nil {
			return nil, err
		}
		if err := repos.DocumentRepo().Create(ctx, doc); err != nil {
			return nil, err
		}
		if err := order.Approve(serial); err != nil {
			return nil, err
		}
		return posted.Events(), nil
	})
}

// Ship records the carrier for an approved order. With a tracking number
// the order is SHIPPED and the outbound document completes. Without one the
// order waits in PENDING_PRINT for a label. Stock is never posted again.
func (s *OrderFulfillmentService) Ship(ctx context.Context, tenantID, orderID uuid.UUID, req ShipRequest) (*OrderResponse, error) {
	return s.mutate(ctx, tenantID, orderID, "ship", func(repos TransactionalRepositories, order *trade.Order) ([]shared.DomainEvent, error) {
		if err := order.Ship(req.ExpressID, req.ExpressNo); err != nil {
			return nil, err
		}
		doc, err := repos.DocumentRepo().FindOutboundBySerial(ctx, tenantID, order.OutboundSerial)
		if err != nil {
			return nil, err
		}
		doc.AssignCarrier(req.ExpressID, req.ExpressNo)
		if order.Status == trade.OrderStatusShipped {
			err = doc.Complete()
		} else {
			err = doc.Advance()
		}
		if err != nil {
			return nil, err
		}
		return nil, repos.DocumentRepo().Save(ctx, doc)
	})
}

// PrintLabel asks the carrier for a tracking number for an order waiting in
// PENDING_PRINT and ships it. A carrier failure leaves the order untouched.
func (s *OrderFulfillmentService) PrintLabel(ctx context.Context, tenantID, orderID uuid.UUID) (*OrderResponse, error) {
	if s.carrier == nil {
		return nil, ErrCarrierUnavailable
	}
	order, err := s.orderRepo.FindByIDForTenant(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != trade.OrderStatusPendingPrint {
		return nil, shared.NewInvalidStateError("order "+order.Serial, order.Status.String(), "print label")
	}

	expressNo, err := s.carrier.RequestWaybill(ctx, WaybillRequest{
		TenantID:        tenantID,
		OrderSerial:     order.Serial,
		ExpressID:       order.ExpressID,
		ReceiverName:    order.Shipping.ReceiverName,
		ReceiverPhone:   order.Shipping.ReceiverPhone,
		ShippingAddress: order.Shipping.ShippingAddress,
		TotalQuantity:   order.TotalQuantity,
	})
	if err != nil {
		s.logger.Error("carrier waybill request failed",
			zap.String("order", order.Serial),
			zap.String("express_id", order.ExpressID),
			zap.Error(err),
		)
		var carrierErr *CarrierError
		if errors.As(err, &carrierErr) {
			return nil, err
		}
		return nil, &CarrierError{ExpressID: order.ExpressID, Err: err}
	}
	return s.ConfirmPrinted(ctx, tenantID, orderID, ConfirmPrintedRequest{ExpressNo: expressNo})
}

// ConfirmPrinted records the tracking number of a printed label, moving the
// order to SHIPPED and completing its outbound document
func (s *OrderFulfillmentService) ConfirmPrinted(ctx context.Context, tenantID, orderID uuid.UUID, req ConfirmPrintedRequest) (*OrderResponse, error) {
	return s.mutate(ctx, tenantID, orderID, "confirm printed", func(repos TransactionalRepositories, order *trade.Order) ([]shared.DomainEvent, error) {
		if err := order.ConfirmPrinted(req.ExpressNo); err != nil {
			return nil, err
		}
		doc, err := repos.DocumentRepo().FindOutboundBySerial(ctx, tenantID, order.OutboundSerial)
		if err != nil {
			return nil, err
		}
		doc.AssignCarrier(order.ExpressID, req.ExpressNo)
		if err := doc.Complete(); err != nil {
			return nil, err
		}
		return nil, repos.DocumentRepo().Save(ctx, doc)
	})
}

// Sign records delivery to the buyer
func (s *OrderFulfillmentService) Sign(ctx context.Context, tenantID, orderID uuid.UUID) (*OrderResponse, error) {
	return s.mutate(ctx, tenantID, orderID, "sign", func(_ TransactionalRepositories, order *trade.Order) ([]shared.DomainEvent, error) {
		return nil, order.Sign()
	})
}

// Finish closes a signed order
func (s *OrderFulfillmentService) Finish(ctx context.Context, tenantID, orderID uuid.UUID) (*OrderResponse, error) {
	return s.mutate(ctx, tenantID, orderID, "finish", func(_ TransactionalRepositories, order *trade.Order) ([]shared.DomainEvent, error) {
		return nil, order.Finish()
	})
}

// Cancel cancels an order before shipment. If the order had been approved,
// a RETURN_INBOUND entry per item restores the stock under a completed
// inbound document.
func (s *OrderFulfillmentService) Cancel(ctx context.Context, tenantID, orderID uuid.UUID, req CancelOrderRequest) (*OrderResponse, error) {
	release, err := s.lockOrderStock(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	defer release()

	return s.mutate(ctx, tenantID, orderID, "cancel", func(repos TransactionalRepositories, order *trade.Order) ([]shared.DomainEvent, error) {
		reserved, err := order.Cancel(req.Reason)
		if err != nil {
			return nil, err
		}
		if !reserved {
			return nil, nil
		}

		serial := s.serials.Next(shared.SerialPrefixInbound)
		postings, lines := orderPostings(order, serial, inventory.OperationReturnInbound)
		posted, err := appinv.PostAll(ctx, repos, tenantID, postings, time.Now())
		if err != nil {
			return nil, err
		}
		doc, err := warehousing.OpenInbound(tenantID, serial, warehousing.TargetOrder, order.Serial, order.WarehouseID, lines, req.Reason)
		if err != nil {
			return nil, err
		}
		if err := doc.Complete(); err != nil {
			return nil, err
		}
		if err := repos.DocumentRepo().Create(ctx, doc); err != nil {
			return nil, err
		}
		if err := markOutboundCanceled(ctx, repos, tenantID, order, serial); err != nil {
			return nil, err
		}
		return posted.Events(), nil
	})
}

// markOutboundCanceled notes on the order's outbound document that the
// shipment was canceled and where the stock went back. The document keeps
// its status.
func markOutboundCanceled(ctx context.Context, repos TransactionalRepositories, tenantID uuid.UUID, order *trade.Order, inboundSerial string) error {
	doc, err := repos.DocumentRepo().FindOutboundBySerial(ctx, tenantID, order.OutboundSerial)
	if err != nil {
		return err
	}
	note := "canceled, stock returned under " + inboundSerial
	if order.CancelReason != "" {
		note = "canceled (" + order.CancelReason + "), stock returned under " + inboundSerial
	}
	doc.AddRemark(note)
	return repos.DocumentRepo().Save(ctx, doc)
}

// Split moves the selected items to a new order. No stock moves. When the
// order is already approved the items' lines of its outbound document move
// to a new outbound document owned by the new order, so each order can
// later ship or cancel exactly its own items.
func (s *OrderFulfillmentService) Split(ctx context.Context, tenantID, orderID uuid.UUID, req SplitOrderRequest) (*SplitOrderResponse, error) {
	if len(req.ItemIDs) == 0 {
		return nil, shared.ErrEmptySelection
	}
	var child *trade.Order
	source, err := s.mutate(ctx, tenantID, orderID, "split", func(repos TransactionalRepositories, order *trade.Order) ([]shared.DomainEvent, error) {
		outboundSerial := ""
		if order.StockReserved {
			outboundSerial = s.serials.Next(shared.SerialPrefixOutbound)
		}
		var err error
		child, err = order.Split(s.serials.Next(shared.SerialPrefixOrder), outboundSerial, req.ItemIDs)
		if err != nil {
			return nil, err
		}
		if err := repos.OrderRepo().Create(ctx, child); err != nil {
			return nil, err
		}
		if !child.StockReserved {
			return nil, nil
		}
		return nil, splitOutbound(ctx, repos, tenantID, order, child)
	})
	if err != nil {
		return nil, err
	}
	return &SplitOrderResponse{Source: *source, Split: ToOrderResponse(child)}, nil
}

// splitOutbound moves the child's lines off the parent's outbound document
func splitOutbound(ctx context.Context, repos TransactionalRepositories, tenantID uuid.UUID, parent, child *trade.Order) error {
	doc, err := repos.DocumentRepo().FindOutboundBySerial(ctx, tenantID, parent.OutboundSerial)
	if err != nil {
		return err
	}
	_, lines := orderPostings(child, child.OutboundSerial, inventory.OperationOrderOutbound)
	childDoc, err := doc.SplitOff(child.OutboundSerial, child.Serial, lines)
	if err != nil {
		return err
	}
	if err := repos.DocumentRepo().Create(ctx, childDoc); err != nil {
		return err
	}
	if err := repos.DocumentRepo().Save(ctx, doc); err != nil {
		return err
	}
	return repos.DocumentRepo().ReplaceLines(ctx, doc)
}

func orderPostings(order *trade.Order, serial string, op inventory.OperationType) ([]inventory.Posting, []warehousing.DocumentLine) {
	postings := make([]inventory.Posting, 0, len(order.Items))
	lines := make([]warehousing.DocumentLine, 0, len(order.Items))
	for _, item := range order.Items {
		postings = append(postings, inventory.Posting{
			WarehouseID:    order.WarehouseID,
			SkuID:          item.SkuID,
			Operation:      op,
			Quantity:       item.Quantity,
			UnitPrice:      item.DealPrice,
			DocumentSerial: serial,
			SourceType:     inventory.SourceOrder,
			SourceID:       order.Serial,
			Remark:         order.Remark,
		})
		lines = append(lines, warehousing.NewLine(item.SkuID, item.Quantity, item.DealPrice))
	}
	return postings, lines
}
