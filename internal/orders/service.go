// Package orders places orders atomically against live stock and drives the
// fulfillment status machine with its restock side effects.
package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/internal/pricing"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/internal/products"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/internal/stock"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/db/models"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/enums"
	pkgerrors "github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/errors"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/logger"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/metrics"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/outbox"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams configure the order service.
type ServiceParams struct {
	Repo     Repository
	Products products.Store
	Tx       txRunner
	Ledger   *stock.Ledger
	Outbox   outboxPublisher
	Metrics  *metrics.OrderMetrics
	Logger   *logger.Logger
	LockWait time.Duration
}

// Service is the single-order transaction coordinator.
type Service struct {
	repo      Repository
	tx        txRunner
	ledger    *stock.Ledger
	validator *Validator
	outbox    outboxPublisher
	metrics   *metrics.OrderMetrics
	logg      *logger.Logger
	lockWait  time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product store required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	lockWait := params.LockWait
	if lockWait <= 0 {
		lockWait = stock.DefaultLockWait
	}
	return &Service{
		repo:      params.Repo,
		tx:        params.Tx,
		ledger:    params.Ledger,
		validator: NewValidator(params.Products),
		outbox:    params.Outbox,
		metrics:   params.Metrics,
		logg:      logg,
		lockWait:  lockWait,
	}, nil
}

// Validator exposes the pre-lock checks used by the batch importer.
func (s *Service) Validator() *Validator {
	return s.validator
}

// Ledger returns the stock ledger orders are placed against.
func (s *Service) Ledger() *stock.Ledger {
	return s.ledger
}

// CreateOrder validates, prices and persists one order in a single
// transaction. On failure nothing is written.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	var placed *models.Order
	err := s.runUnit(ctx, func(tx *gorm.DB, session *stock.Session) error {
		var err error
		placed, err = s.PlaceInTx(ctx, tx, session, input, SourceSingle)
		return err
	})
	if err != nil {
		s.RecordFailure(ctx, SourceSingle, err)
		return nil, err
	}

	s.metrics.IncCreated(string(SourceSingle), 1)
	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, placed.ID.String()), map[string]any{
		"total_amount": placed.TotalAmount.StringFixed(pricing.Places),
		"items":        len(placed.Items),
	})
	s.logg.Info(logCtx, "order placed")
	return s.reload(ctx, placed), nil
}

// reload re-reads a committed order with its products preloaded. The order
// is already committed, so a failed read falls back to the in-memory copy
// rather than reporting the unit as failed.
func (s *Service) reload(ctx context.Context, committed *models.Order) *models.Order {
	fresh, err := s.repo.FindByID(ctx, committed.ID)
	if err != nil {
		logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, committed.ID.String()), map[string]any{
			"code":  pkgerrors.CodeOf(err),
			"error": err.Error(),
		})
		s.logg.Warn(logCtx, "reload of committed order failed")
		return committed
	}
	return fresh
}

// runUnit runs fn in one transaction with a fresh stock session. The
// session's locks are released as soon as the transaction has ended.
func (s *Service) runUnit(ctx context.Context, fn func(tx *gorm.DB, session *stock.Session) error) error {
	session := s.ledger.NewSession()
	defer session.Release()

	var fnErr error
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		fnErr = fn(tx, session)
		return fnErr
	})
	if err != nil && fnErr == nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "order transaction failed to commit")
	}
	return err
}

// PlaceInTx runs the single-order path inside tx: validate, lock every
// product in ascending id order, price against the locked rows, persist the
// order and decrement stock. Locks are taken through session and stay held
// until the caller releases it after tx ends.
func (s *Service) PlaceInTx(ctx context.Context, tx *gorm.DB, session *stock.Session, input CreateOrderInput, source Source) (*models.Order, error) {
	if _, err := s.validator.Check(ctx, tx, input); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(input.Items))
	for _, line := range input.Items {
		ids = append(ids, line.ProductID)
	}
	locked, err := session.LockAll(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	lines := make([]pricing.Line, 0, len(input.Items))
	for _, line := range input.Items {
		product := locked[line.ProductID]
		if !product.HasPricing() {
			return nil, incompletePricing(product)
		}
		lines = append(lines, pricing.Line{
			ProductID: product.ID,
			UnitPrice: product.SellingPrice.Decimal,
			TaxRate:   product.GSTRate.Decimal,
			Quantity:  line.Quantity,
		})
	}

	discount := pricing.Discount{}
	if input.DiscountType != nil {
		discount = pricing.Discount{Type: *input.DiscountType, Value: input.DiscountValue}
	}
	quote, err := pricing.Price(lines, discount, input.ShippingCharges)
	if err != nil {
		return nil, err
	}

	order := buildOrder(input, quote)
	if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
		return nil, err
	}

	orderID := order.ID
	for _, line := range input.Items {
		if err := session.Decrement(ctx, tx, line.ProductID, line.Quantity, stock.Movement{OrderID: &orderID, Reason: enums.StockMovementOrderPlaced}); err != nil {
			return nil, err
		}
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{Source: string(source)},
		Data: OrderCreatedEvent{
			OrderID:     order.ID,
			Status:      order.Status,
			TotalAmount: order.TotalAmount,
			Items:       input.Items,
		},
	}
	if importID, ok := importIDFrom(ctx); ok {
		event.Actor.ImportID = importID
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, err
	}
	return order, nil
}

func buildOrder(input CreateOrderInput, quote *pricing.Quote) *models.Order {
	totals := quote.Totals()
	order := &models.Order{
		CustomerName:     strings.TrimSpace(input.CustomerName),
		CustomerEmail:    strings.TrimSpace(input.CustomerEmail),
		PhoneNumber:      input.PhoneNumber,
		ShippingAddress:  strings.TrimSpace(input.ShippingAddress),
		Subtotal:         totals.Subtotal,
		DiscountValue:    decimal.Zero,
		DiscountAmount:   totals.Discount,
		TotalGST:         totals.TotalTax,
		ShippingCharges:  totals.Shipping,
		TotalAmount:      totals.GrandTotal,
		PaymentStatus:    enums.PaymentStatusUnpaid,
		PaymentMethod:    input.PaymentMethod,
		Status:           enums.OrderStatusPending,
		ShippingProvider: input.ShippingProvider,
		TrackingID:       input.TrackingID,
		VehicleID:        input.VehicleID,
		Items:            make([]models.OrderItem, 0, len(input.Items)),
	}
	if input.DiscountType != nil {
		discountType := *input.DiscountType
		order.DiscountType = &discountType
		order.DiscountValue = input.DiscountValue
	}
	if input.PaymentStatus != "" {
		order.PaymentStatus = input.PaymentStatus
	}
	if input.Status != "" {
		order.Status = input.Status
	}
	if input.OrderDate != nil {
		order.OrderDate = input.OrderDate.UTC()
	}
	for _, line := range input.Items {
		order.Items = append(order.Items, models.OrderItem{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return order
}

// UpdateOrder applies status, payment and logistics changes. A status change
// runs its stock side effect in the same transaction as the field update.
func (s *Service) UpdateOrder(ctx context.Context, orderID uuid.UUID, input UpdateOrderInput) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	updates, err := fieldUpdates(input)
	if err != nil {
		return nil, err
	}

	var (
		from    enums.OrderStatus
		effect  StockEffect
		updated *models.Order
	)
	err = s.runUnit(ctx, func(tx *gorm.DB, session *stock.Session) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockByID(ctx, orderID, s.lockWait)
		if err != nil {
			return err
		}
		from = order.Status
		updated = order

		if input.Status != nil && *input.Status != order.Status {
			effect, err = PlanTransition(order.Status, *input.Status)
			if err != nil {
				return err
			}
			if err := applyStockEffect(ctx, tx, session, order, effect); err != nil {
				return err
			}
			updates["status"] = *input.Status

			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderStatusChanged,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         &outbox.ActorRef{Source: string(SourceSingle)},
				Data: OrderStatusChangedEvent{
					OrderID:   order.ID,
					From:      order.Status,
					To:        *input.Status,
					Restocked: effect == EffectRestock,
					Reopened:  effect == EffectReopen,
				},
			}); err != nil {
				return err
			}
		}
		if err := repo.UpdateFields(ctx, orderID, updates); err != nil {
			return err
		}
		applyFieldUpdates(order, updates)
		return nil
	})
	if err != nil {
		logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, orderID.String()), map[string]any{
			"code": pkgerrors.CodeOf(err),
		})
		s.logg.Warn(logCtx, "order update failed")
		return nil, err
	}

	if input.Status != nil && *input.Status != from {
		s.metrics.IncTransition(statusLabel(from), statusLabel(*input.Status))
		logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, orderID.String()), map[string]any{
			"from":      from,
			"to":        *input.Status,
			"restocked": effect == EffectRestock,
			"reopened":  effect == EffectReopen,
		})
		s.logg.Info(logCtx, "order status changed")
	}
	return s.reload(ctx, updated), nil
}

// UpdateOrderStatus is UpdateOrder with only a status change.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	return s.UpdateOrder(ctx, orderID, UpdateOrderInput{Status: &status})
}

func fieldUpdates(input UpdateOrderInput) (map[string]any, error) {
	updates := make(map[string]any)
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order status %q", *input.Status)
	}
	if input.PaymentStatus != nil {
		if !input.PaymentStatus.IsValid() {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid payment status %q", *input.PaymentStatus)
		}
		updates["payment_status"] = *input.PaymentStatus
	}
	if input.ShippingProvider != nil {
		raw := strings.TrimSpace(*input.ShippingProvider)
		if raw == "" {
			updates["shipping_provider"] = nil
		} else {
			provider, err := enums.ParseShippingProvider(raw)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("invalid shipping provider %q", raw))
			}
			updates["shipping_provider"] = provider
		}
	}
	if input.TrackingID != nil {
		updates["tracking_id"] = strings.TrimSpace(*input.TrackingID)
	}
	if input.VehicleID != nil {
		updates["vehicle_id"] = *input.VehicleID
	}
	return updates, nil
}

// applyFieldUpdates mirrors a committed column update onto the loaded order.
func applyFieldUpdates(order *models.Order, updates map[string]any) {
	for column, value := range updates {
		switch column {
		case "status":
			order.Status = value.(enums.OrderStatus)
		case "payment_status":
			order.PaymentStatus = value.(enums.PaymentStatus)
		case "shipping_provider":
			if provider, ok := value.(enums.ShippingProvider); ok {
				order.ShippingProvider = &provider
			} else {
				order.ShippingProvider = nil
			}
		case "tracking_id":
			tracking := value.(string)
			order.TrackingID = &tracking
		case "vehicle_id":
			vehicle := value.(uuid.UUID)
			order.VehicleID = &vehicle
		}
	}
}

func (s *Service) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.repo.FindByID(ctx, orderID)
}

func (s *Service) ListOrders(ctx context.Context, params pagination.Params) (*pagination.Page[models.Order], error) {
	return s.repo.List(ctx, params)
}

// RecordFailure counts and logs a failed order attempt from source.
func (s *Service) RecordFailure(ctx context.Context, source Source, err error) {
	code := pkgerrors.CodeOf(err)
	s.metrics.IncFailure(string(source), string(code))
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"source": source,
		"code":   code,
	})
	if code == pkgerrors.CodeInternal || code == pkgerrors.CodePersistence {
		s.logg.Error(logCtx, "order placement failed", err)
		return
	}
	s.logg.Warn(logCtx, "order placement rejected")
}

type importIDKey struct{}

// WithImportID tags ctx so orders placed under it reference the import run.
func WithImportID(ctx context.Context, importID string) context.Context {
	return context.WithValue(ctx, importIDKey{}, importID)
}

func importIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(importIDKey{}).(string)
	return id, ok && id != ""
}
