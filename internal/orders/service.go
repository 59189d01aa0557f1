package orders

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/joao-fontenele/studyshop/internal/coupons"
	"github.com/joao-fontenele/studyshop/internal/domain"
	"github.com/joao-fontenele/studyshop/internal/validation"
)

// MaxSubtotal is the largest order subtotal accepted, in VND.
const MaxSubtotal = 100_000_000

var (
	tracer = otel.Tracer("orders")
	meter  = otel.Meter("orders")

	ordersCreated, _     = meter.Int64Counter("orders_created_total", metric.WithDescription("Orders persisted"))
	couponsRedeemed, _   = meter.Int64Counter("coupon_redemptions_total", metric.WithDescription("Coupons redeemed by committed orders"))
	receiptsSubmitted, _ = meter.Int64Counter("receipt_jobs_submitted_total", metric.WithDescription("Receipt jobs handed to the background queue"))
)

type Store interface {
	// Create persists order and, when couponID is set, consumes one coupon
	// use in the same transaction. It fills ID and timestamps.
	Create(ctx context.Context, order *domain.Order, couponID *int64) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	List(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error)
	UpdateContents(ctx context.Context, order *domain.Order) error
}

type CouponValidator interface {
	Validate(ctx context.Context, code string, subtotal int64) (*coupons.Quote, error)
}

type ProfileBackfiller interface {
	Backfill(ctx context.Context, userID string, info domain.CustomerInfo) error
}

// Dispatcher hands work to a background queue. Submit must not block on the
// work itself and never reports failure to the caller.
type Dispatcher interface {
	Submit(ctx context.Context, key string, event any)
}

type Cache interface {
	Get(ctx context.Context, id int64) (*domain.Order, error)
	Set(ctx context.Context, order *domain.Order) error
	Delete(ctx context.Context, id int64) error
}

type Service struct {
	store    Store
	coupons  CouponValidator
	profiles ProfileBackfiller
	receipts Dispatcher
	cache    Cache
	check    *validation.Validator
	logger   *slog.Logger
}

type Option func(*Service)

func WithCache(cache Cache) Option {
	return func(s *Service) { s.cache = cache }
}

func NewService(store Store, coupons CouponValidator, profiles ProfileBackfiller, receipts Dispatcher, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		coupons:  coupons,
		profiles: profiles,
		receipts: receipts,
		check:    validation.New(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateOrderInput struct {
	Items        []domain.CartItem   `json:"items" validate:"required,min=1,max=50,dive"`
	CustomerInfo domain.CustomerInfo `json:"customerInfo"`
	Total        int64               `json:"total" validate:"gt=0,lte=100000000"`
	CouponCode   string              `json:"couponCode" validate:"omitempty,max=50"`
}

func (s *Service) validate(in *CreateOrderInput) error {
	in.CustomerInfo = in.CustomerInfo.Normalize()
	if err := s.check.Struct(in); err != nil {
		return err
	}

	subtotal, ok := boundedSubtotal(in.Items, MaxSubtotal)
	if !ok || subtotal != in.Total {
		return domain.NewValidationError("total", "Tổng tiền không khớp với giỏ hàng")
	}
	return nil
}

// boundedSubtotal sums item prices, giving up once limit is exceeded so
// hostile prices cannot overflow.
func boundedSubtotal(items []domain.CartItem, limit int64) (int64, bool) {
	var sum int64
	for _, item := range items {
		if item.Price > limit-sum {
			return 0, false
		}
		sum += item.Price
	}
	return sum, true
}

// CreateOrder validates the cart, applies the coupon, persists the order and
// queues the receipt. userID must come from an authenticated token.
func (s *Service) CreateOrder(ctx context.Context, userID string, in CreateOrderInput) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "orders.CreateOrder")
	defer span.End()

	if userID == "" {
		return nil, domain.ErrUnauthorized
	}

	if err := s.validate(&in); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return nil, err
	}

	order := &domain.Order{
		UserID:       userID,
		Items:        in.Items,
		CustomerInfo: in.CustomerInfo,
		Subtotal:     in.Total,
		Status:       domain.OrderStatusPending,
	}

	var couponID *int64
	if in.CouponCode != "" {
		quote, err := s.coupons.Validate(ctx, in.CouponCode, in.Total)
		if err != nil {
			span.SetStatus(codes.Error, "coupon rejected")
			return nil, err
		}
		code := quote.Coupon.Code
		order.CouponCode = &code
		order.DiscountAmount = quote.Discount
		couponID = &quote.Coupon.ID
		span.SetAttributes(attribute.String("coupon.code", code))
	}
	order.Total = order.Subtotal - order.DiscountAmount

	if err := s.store.Create(ctx, order, couponID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, domain.ErrCouponExhausted) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistenceFailed, err)
	}

	span.SetAttributes(attribute.Int64("order.id", order.ID), attribute.Int64("order.total", order.Total))
	ordersCreated.Add(ctx, 1)
	if couponID != nil {
		couponsRedeemed.Add(ctx, 1, metric.WithAttributes(attribute.String("code", *order.CouponCode)))
	}

	if err := s.profiles.Backfill(ctx, userID, order.CustomerInfo); err != nil {
		s.logger.Warn("failed to backfill profile", "error", err, "user_id", userID)
	}

	s.receipts.Submit(ctx, strconv.FormatInt(order.ID, 10), receiptEvent(order))
	receiptsSubmitted.Add(ctx, 1)

	s.logger.Info("order created",
		"order_id", order.ID,
		"user_id", userID,
		"total", order.Total,
		"discount", order.DiscountAmount,
	)
	return order, nil
}

// receiptEvent snapshots a persisted order. The timestamp is the order's own
// creation time so receipts date the order, not the dispatch.
func receiptEvent(order *domain.Order) domain.ReceiptRequested {
	event := domain.ReceiptRequested{
		EventID:        uuid.NewString(),
		OrderID:        order.ID,
		UserID:         order.UserID,
		Items:          order.Items,
		CustomerInfo:   order.CustomerInfo,
		Subtotal:       order.Subtotal,
		DiscountAmount: order.DiscountAmount,
		Total:          order.Total,
		Timestamp:      order.CreatedAt.UTC(),
	}
	if order.CouponCode != nil {
		event.CouponCode = *order.CouponCode
	}
	return event
}

// GetOrder returns the order if it belongs to userID. Admins may read any
// order.
func (s *Service) GetOrder(ctx context.Context, userID string, admin bool, id int64) (*domain.Order, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !admin && order.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return order, nil
}

func (s *Service) load(ctx context.Context, id int64) (*domain.Order, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, id)
		if err != nil {
			s.logger.Warn("order cache read failed", "error", err, "order_id", id)
		}
		if cached != nil {
			return cached, nil
		}
	}

	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, order); err != nil {
			s.logger.Warn("order cache write failed", "error", err, "order_id", id)
		}
	}
	return order, nil
}

func (s *Service) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	orders, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

func (s *Service) ListAll(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	if status != "" && !status.Valid() {
		return nil, domain.NewValidationError("status", "Trạng thái không hợp lệ")
	}
	orders, err := s.store.List(ctx, status)
	if err != nil {
		return nil, errors.Wrap(err, "list all orders")
	}
	return orders, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, domain.NewValidationError("status", "Trạng thái không hợp lệ")
	}

	order, err := s.store.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, errors.Wrap(err, "update order status")
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}

	s.invalidate(ctx, id)
	s.logger.Info("order status updated", "order_id", id, "status", status)
	return order, nil
}

type EditOrderInput struct {
	Items        []domain.CartItem    `json:"items" validate:"required,min=1,max=50,dive"`
	CustomerInfo *domain.CustomerInfo `json:"customerInfo"`
}

// EditOrder replaces the items (and optionally the customer snapshot) of an
// order. Totals are recomputed; the original discount is kept but clamped to
// the new subtotal.
func (s *Service) EditOrder(ctx context.Context, id int64, in EditOrderInput) (*domain.Order, error) {
	if in.CustomerInfo != nil {
		info := in.CustomerInfo.Normalize()
		in.CustomerInfo = &info
	}
	if err := s.check.Struct(in); err != nil {
		return nil, err
	}
	if _, ok := boundedSubtotal(in.Items, MaxSubtotal); !ok {
		return nil, domain.NewValidationError("items", "Tổng tiền vượt quá giới hạn cho phép")
	}

	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}

	order.Items = in.Items
	if in.CustomerInfo != nil {
		order.CustomerInfo = *in.CustomerInfo
	}
	order.Reprice()

	if err := s.store.UpdateContents(ctx, order); err != nil {
		return nil, errors.Wrap(err, "update order contents")
	}

	s.invalidate(ctx, id)
	s.logger.Info("order edited", "order_id", id, "subtotal", order.Subtotal, "total", order.Total)
	return order, nil
}

func (s *Service) invalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, id); err != nil {
		s.logger.Warn("order cache invalidation failed", "error", err, "order_id", id)
	}
}
