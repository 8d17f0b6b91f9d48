package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/xenking/storefront/internal/domain/account"
	"github.com/xenking/storefront/internal/domain/base"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/coupon"
)

const instrumentationName = "github.com/xenking/storefront/internal/domain/order"

// PlaceOrderRequest holds the input for converting a cart into an order.
type PlaceOrderRequest struct {
	CartID         string
	CustomerID     string
	Shipping       ShippingAddress
	ShippingAmount decimal.Decimal
	Notes          string
	CouponCode     string
}

// Option configures a Service.
type Option func(*Service)

// WithCurrency sets the currency stored on new orders.
func WithCurrency(currency string) Option {
	return func(s *Service) {
		if currency != "" {
			s.currency = currency
		}
	}
}

// WithMeterProvider sets the provider for order counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meterProvider = mp }
}

// WithTracerProvider sets the provider for order spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracerProvider = tp }
}

// Service encapsulates order placement, totals and status changes.
type Service struct {
	coupons coupon.Validator
	orders  Repository

	currency       string
	now            func() time.Time
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider

	tracer       trace.Tracer
	placedOrders metric.Int64Counter
	paidOrders   metric.Int64Counter
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	coupons coupon.Validator,
	orders Repository,
	opts ...Option,
) (*Service, error) {
	s := &Service{
		coupons:        coupons,
		orders:         orders,
		currency:       DefaultCurrency,
		now:            time.Now,
		meterProvider:  metricnoop.NewMeterProvider(),
		tracerProvider: tracenoop.NewTracerProvider(),
	}
	for _, o := range opts {
		o(s)
	}

	meter := s.meterProvider.Meter(instrumentationName)
	var err error
	if s.placedOrders, err = meter.Int64Counter("storefront.orders.placed",
		metric.WithDescription("Orders created from carts"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.placed counter")
	}
	if s.paidOrders, err = meter.Int64Counter("storefront.orders.paid",
		metric.WithDescription("Orders marked as paid"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.paid counter")
	}
	s.tracer = s.tracerProvider.Tracer(instrumentationName)

	return s, nil
}

// PlaceOrder snapshots the cart into a new order, applies the optional coupon,
// computes totals and stores the order while emptying the cart. The cart is
// read under its row lock, so concurrent placements of one cart yield a single
// order and lines added meanwhile stay in the cart.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder",
		trace.WithAttributes(attribute.String("cart.id", req.CartID)),
	)
	defer span.End()

	if err := base.First(
		base.Required("cart_id", req.CartID),
		base.Required("customer_id", req.CustomerID),
		req.Shipping.Validate(),
		base.Money("shipping_amount", req.ShippingAmount),
	); err != nil {
		return nil, err
	}

	o, err := s.orders.CreateFromCart(ctx, req.CartID, func(c *cart.Cart) (*Order, error) {
		return s.buildOrder(ctx, req, c)
	})
	if err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	s.placedOrders.Add(ctx, 1, metric.WithAttributes(attribute.String("currency", o.Currency)))
	span.SetAttributes(attribute.String("order.id", o.ID))

	return o, nil
}

func (s *Service) buildOrder(ctx context.Context, req PlaceOrderRequest, c *cart.Cart) (*Order, error) {
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if c.UserID != nil && *c.UserID != req.CustomerID {
		return nil, ErrCartOwnerMismatch
	}

	now := s.now()
	o := &Order{
		ID:             uuid.New().String(),
		CustomerID:     req.CustomerID,
		Status:         StatusNew,
		PlacedAt:       now,
		Shipping:       req.Shipping,
		Notes:          req.Notes,
		Currency:       s.currency,
		ShippingAmount: req.ShippingAmount,
		DiscountAmount: decimal.Zero,
		UpdatedAt:      now,
		Items:          Snapshot(c),
	}
	if o.Shipping.Country == "" {
		o.Shipping.Country = account.DefaultCountry
	}
	for i := range o.Items {
		o.Items[i].ID = uuid.New().String()
		o.Items[i].OrderID = o.ID
	}

	if req.CouponCode != "" {
		discount, err := s.coupons.Validate(ctx, req.CouponCode, couponItems(o.Items))
		if err != nil {
			return nil, errors.Wrap(err, "validate coupon")
		}
		o.DiscountAmount = discount.Amount
		o.CouponCode = discount.Code
	}

	o.RecalcTotals()
	return o, nil
}

// GetOrder returns an order with its items.
func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	return s.orders.Get(ctx, id)
}

// ListCustomerOrders returns the customer's orders, newest first.
func (s *Service) ListCustomerOrders(ctx context.Context, customerID string) ([]Order, error) {
	return s.orders.ListByCustomer(ctx, customerID)
}

// RecalcTotals recomputes and stores the order totals from its current items
// and adjustments while holding the order row lock.
func (s *Service) RecalcTotals(ctx context.Context, id string) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.RecalcTotals",
		trace.WithAttributes(attribute.String("order.id", id)),
	)
	defer span.End()

	return s.orders.Update(ctx, id, func(o *Order) error {
		o.RecalcTotals()
		return nil
	})
}

// MarkPaid sets the order status to paid from any status. Calling it on an
// already paid order is a no-op.
func (s *Service) MarkPaid(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.Update(ctx, id, func(o *Order) error {
		o.MarkPaid()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.paidOrders.Add(ctx, 1)
	return o, nil
}

// SetStatus stores any known status regardless of the current one.
func (s *Service) SetStatus(ctx context.Context, id string, status Status) (*Order, error) {
	if !status.Valid() {
		return nil, ErrUnknownStatus
	}
	return s.orders.Update(ctx, id, func(o *Order) error {
		o.Status = status
		return nil
	})
}

// SetAdjustments stores new shipping and discount amounts. Totals are left
// untouched until RecalcTotals is called.
func (s *Service) SetAdjustments(ctx context.Context, id string, shipping, discount decimal.Decimal) (*Order, error) {
	if err := base.First(
		base.Money("shipping_amount", shipping),
		base.Money("discount_amount", discount),
	); err != nil {
		return nil, err
	}
	return s.orders.Update(ctx, id, func(o *Order) error {
		o.ShippingAmount = shipping
		o.DiscountAmount = discount
		return nil
	})
}

func couponItems(items []Item) []coupon.Item {
	out := make([]coupon.Item, len(items))
	for i, item := range items {
		out[i] = coupon.Item{
			VariantID: item.VariantID,
			Price:     item.UnitPrice,
			Quantity:  item.Quantity,
		}
	}
	return out
}
