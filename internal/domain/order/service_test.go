package order

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/account"
	"github.com/xenking/storefront/internal/domain/base"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/coupon"
)

// --- Mock implementations ---

type mockCarts struct {
	carts map[string]*cart.Cart
}

type mockCoupons struct {
	discount *coupon.Discount
	err      error
	seen     []coupon.Item
}

func (m *mockCoupons) Validate(_ context.Context, _ string, items []coupon.Item) (*coupon.Discount, error) {
	m.seen = items
	return m.discount, m.err
}

// mockOrders keeps orders in memory and mimics the repository transaction:
// CreateFromCart builds from the stored cart, claims the coupon and empties
// the cart; Update applies fn to a copy.
type mockOrders struct {
	carts   *mockCarts
	orders  map[string]*Order
	claimed []string
	created int
}

func (m *mockOrders) CreateFromCart(_ context.Context, cartID string, build func(c *cart.Cart) (*Order, error)) (*Order, error) {
	c, ok := m.carts.carts[cartID]
	if !ok {
		return nil, cart.ErrNotFound
	}
	locked := *c
	locked.Items = slices.Clone(c.Items)
	o, err := build(&locked)
	if err != nil {
		return nil, err
	}
	if o.CouponCode != "" {
		m.claimed = append(m.claimed, o.CouponCode)
	}
	stored := *o
	m.orders[o.ID] = &stored
	c.Items = nil
	m.created++
	return o, nil
}

func (m *mockOrders) Get(_ context.Context, id string) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (m *mockOrders) ListByCustomer(_ context.Context, customerID string) ([]Order, error) {
	var out []Order
	for _, o := range m.orders {
		if o.CustomerID == customerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrders) Update(_ context.Context, id string, fn func(o *Order) error) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	working := *o
	if err := fn(&working); err != nil {
		return nil, err
	}
	m.orders[id] = &working
	return &working, nil
}

// --- Helpers ---

var shipping = ShippingAddress{Name: "Sara", City: "Riyadh", Street: "King Fahd Rd"}

func guestCart(id string) *cart.Cart {
	return &cart.Cart{ID: id, SessionKey: "guest-" + id, Items: []cart.Item{{
		CartID: id, VariantID: "var-1", Quantity: 2, SKU: "TS-BLK-M",
		ProductName: "Linen Shirt", Attributes: catalog.Attributes{"size": "M"},
		Price: d("50.00"),
	}}}
}

func newTestService(t *testing.T, coupons coupon.Validator) (*Service, *mockCarts, *mockOrders) {
	t.Helper()
	carts := &mockCarts{carts: map[string]*cart.Cart{}}
	orders := &mockOrders{carts: carts, orders: map[string]*Order{}}
	if coupons == nil {
		coupons = &mockCoupons{}
	}
	svc, err := NewService(coupons, orders, WithCurrency("AED"))
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return svc, carts, orders
}

// --- Tests ---

func TestService_PlaceOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("snapshots cart and computes totals", func(t *testing.T) {
		svc, carts, orders := newTestService(t, nil)
		carts.carts["c1"] = guestCart("c1")

		o, err := svc.PlaceOrder(ctx, PlaceOrderRequest{
			CartID: "c1", CustomerID: "u1", Shipping: shipping, ShippingAmount: d("10"),
		})
		require.NoError(t, err)

		assert.Equal(t, StatusNew, o.Status)
		assert.Equal(t, "AED", o.Currency)
		assert.Equal(t, account.DefaultCountry, o.Shipping.Country)
		require.Len(t, o.Items, 1)
		assert.Equal(t, o.ID, o.Items[0].OrderID)
		assert.NotEmpty(t, o.Items[0].ID)
		assert.True(t, d("100").Equal(o.SubtotalAmount))
		assert.True(t, d("110").Equal(o.TotalAmount))
		assert.Empty(t, carts.carts["c1"].Items, "cart is emptied")
		assert.Equal(t, 1, orders.created)
	})

	t.Run("coupon discount", func(t *testing.T) {
		coupons := &mockCoupons{discount: &coupon.Discount{Code: "FIVEOFF", Amount: d("5.00")}}
		svc, carts, orders := newTestService(t, coupons)
		carts.carts["c1"] = guestCart("c1")

		o, err := svc.PlaceOrder(ctx, PlaceOrderRequest{
			CartID: "c1", CustomerID: "u1", Shipping: shipping, ShippingAmount: d("10"), CouponCode: "fiveoff",
		})
		require.NoError(t, err)
		assert.Equal(t, "FIVEOFF", o.CouponCode, "stored with the rule's code")
		assert.Equal(t, []string{"FIVEOFF"}, orders.claimed)
		assert.True(t, d("105").Equal(o.TotalAmount), o.TotalAmount.String())
		require.Len(t, coupons.seen, 1)
		assert.Equal(t, 2, coupons.seen[0].Quantity)
	})

	t.Run("rejected coupon stores nothing", func(t *testing.T) {
		svc, carts, orders := newTestService(t, &mockCoupons{err: coupon.ErrCouponExpired})
		carts.carts["c1"] = guestCart("c1")

		_, err := svc.PlaceOrder(ctx, PlaceOrderRequest{
			CartID: "c1", CustomerID: "u1", Shipping: shipping, CouponCode: "OLD",
		})
		require.ErrorIs(t, err, coupon.ErrCouponExpired)
		assert.Zero(t, orders.created)
		assert.Empty(t, orders.claimed)
		assert.Len(t, carts.carts["c1"].Items, 1)
	})

	t.Run("empty cart", func(t *testing.T) {
		svc, carts, _ := newTestService(t, nil)
		carts.carts["c1"] = &cart.Cart{ID: "c1", SessionKey: "s"}

		_, err := svc.PlaceOrder(ctx, PlaceOrderRequest{CartID: "c1", CustomerID: "u1", Shipping: shipping})
		require.ErrorIs(t, err, ErrEmptyCart)
	})

	t.Run("second placement of the same cart", func(t *testing.T) {
		svc, carts, orders := newTestService(t, nil)
		carts.carts["c1"] = guestCart("c1")
		req := PlaceOrderRequest{CartID: "c1", CustomerID: "u1", Shipping: shipping}

		_, err := svc.PlaceOrder(ctx, req)
		require.NoError(t, err)
		_, err = svc.PlaceOrder(ctx, req)
		require.ErrorIs(t, err, ErrEmptyCart)
		assert.Equal(t, 1, orders.created)
	})

	t.Run("cart of another user", func(t *testing.T) {
		svc, carts, _ := newTestService(t, nil)
		c := guestCart("c1")
		owner := "u2"
		c.UserID, c.SessionKey = &owner, ""
		carts.carts["c1"] = c

		_, err := svc.PlaceOrder(ctx, PlaceOrderRequest{CartID: "c1", CustomerID: "u1", Shipping: shipping})
		require.ErrorIs(t, err, ErrCartOwnerMismatch)
	})

	t.Run("unknown cart", func(t *testing.T) {
		svc, _, _ := newTestService(t, nil)
		_, err := svc.PlaceOrder(ctx, PlaceOrderRequest{CartID: "nope", CustomerID: "u1", Shipping: shipping})
		require.ErrorIs(t, err, cart.ErrNotFound)
	})

	t.Run("validation", func(t *testing.T) {
		svc, _, _ := newTestService(t, nil)
		var vErr *base.ValidationError

		_, err := svc.PlaceOrder(ctx, PlaceOrderRequest{CartID: "c1", Shipping: shipping})
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "customer_id", vErr.Field)

		_, err = svc.PlaceOrder(ctx, PlaceOrderRequest{CartID: "c1", CustomerID: "u1", Shipping: ShippingAddress{Name: "x"}})
		require.ErrorAs(t, err, &vErr)

		for _, amount := range []string{"-1", "1.005", "100000000"} {
			_, err = svc.PlaceOrder(ctx, PlaceOrderRequest{
				CartID: "c1", CustomerID: "u1", Shipping: shipping, ShippingAmount: d(amount),
			})
			require.ErrorAs(t, err, &vErr, amount)
			assert.Equal(t, "shipping_amount", vErr.Field)
		}
	})
}

func TestService_TotalsAndStatus(t *testing.T) {
	ctx := context.Background()
	svc, carts, _ := newTestService(t, &mockCoupons{discount: &coupon.Discount{Code: "FIVEOFF", Amount: d("5")}})
	carts.carts["c1"] = guestCart("c1")

	placed, err := svc.PlaceOrder(ctx, PlaceOrderRequest{
		CartID: "c1", CustomerID: "u1", Shipping: shipping, ShippingAmount: d("10"), CouponCode: "FIVEOFF",
	})
	require.NoError(t, err)

	t.Run("catalog reprice leaves stored lines alone", func(t *testing.T) {
		// The cart line the order was built from now reflects a new price.
		carts.carts["c1"].Items = []cart.Item{{VariantID: "var-1", Price: d("60"), Quantity: 2}}

		o, err := svc.RecalcTotals(ctx, placed.ID)
		require.NoError(t, err)
		assert.True(t, d("50").Equal(o.Items[0].UnitPrice))
		assert.True(t, d("105").Equal(o.TotalAmount))
	})

	t.Run("adjustments wait for recalc", func(t *testing.T) {
		o, err := svc.SetAdjustments(ctx, placed.ID, d("0"), d("20"))
		require.NoError(t, err)
		assert.True(t, d("105").Equal(o.TotalAmount), "stale until recalc")

		o, err = svc.RecalcTotals(ctx, placed.ID)
		require.NoError(t, err)
		assert.True(t, d("80").Equal(o.TotalAmount), o.TotalAmount.String())
	})

	t.Run("adjustments are validated", func(t *testing.T) {
		var vErr *base.ValidationError

		_, err := svc.SetAdjustments(ctx, placed.ID, d("10.001"), d("0"))
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "shipping_amount", vErr.Field)

		_, err = svc.SetAdjustments(ctx, placed.ID, d("0"), d("-5"))
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "discount_amount", vErr.Field)

		_, err = svc.SetAdjustments(ctx, placed.ID, d("0"), d("1e8"))
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "discount_amount", vErr.Field)
	})

	t.Run("mark paid from cancelled", func(t *testing.T) {
		_, err := svc.SetStatus(ctx, placed.ID, StatusCancelled)
		require.NoError(t, err)

		o, err := svc.MarkPaid(ctx, placed.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusPaid, o.Status)

		o, err = svc.MarkPaid(ctx, placed.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusPaid, o.Status)
	})

	t.Run("unknown status", func(t *testing.T) {
		_, err := svc.SetStatus(ctx, placed.ID, Status("lost"))
		require.ErrorIs(t, err, ErrUnknownStatus)
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := svc.MarkPaid(ctx, "missing")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list by customer", func(t *testing.T) {
		orders, err := svc.ListCustomerOrders(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, placed.ID, orders[0].ID)
	})
}
