//go:build integration

package repository

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/storefront/internal/domain/account"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/base"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/payment"
	"github.com/xenking/storefront/internal/domain/shipment"
)

var pool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx := context.Background()

	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "storefront",
				"POSTGRES_PASSWORD": "storefront",
				"POSTGRES_DB":       "storefront",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("failed to start postgres: %v", err)
	}
	defer func() {
		if err := testcontainers.TerminateContainer(pg); err != nil {
			log.Printf("failed to terminate postgres: %v", err)
		}
	}()

	host, err := pg.Host(ctx)
	if err != nil {
		log.Fatalf("failed to get postgres host: %v", err)
	}
	port, err := pg.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("failed to get postgres port: %v", err)
	}

	url := fmt.Sprintf("postgres://storefront:storefront@%s:%s/storefront?sslmode=disable", host, port.Port())
	pool, err = NewPool(ctx, url)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer pool.Close()

	if err := RunMigrations(ctx, pool); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}
	// Schema statements are idempotent.
	if err := RunMigrations(ctx, pool); err != nil {
		log.Fatalf("failed to re-apply schema: %v", err)
	}

	return m.Run()
}

func newID() string { return uuid.New().String() }

func stamps() base.Timestamps {
	now := time.Now()
	return base.Timestamps{CreatedAt: now, UpdatedAt: now}
}

type fixture struct {
	product *catalog.Product
	variant *catalog.Variant
	user    *account.User
}

func seedVariant(t *testing.T, price string) fixture {
	t.Helper()
	ctx := context.Background()
	catalogRepo := NewCatalogRepository(pool)
	accounts := NewAccountRepository(pool)

	suffix := newID()[:8]
	p := &catalog.Product{
		ID:         newID(),
		Name:       "Tee " + suffix,
		Slug:       "tee-" + suffix,
		Status:     catalog.StatusPublished,
		Timestamps: stamps(),
	}
	require.NoError(t, catalogRepo.CreateProduct(ctx, p))

	v := &catalog.Variant{
		ID:         newID(),
		ProductID:  p.ID,
		SKU:        "TEE-" + suffix,
		Attributes: catalog.Attributes{"size": "M"},
		Price:      decimal.RequireFromString(price),
		StockQty:   10,
		IsActive:   true,
		Timestamps: stamps(),
	}
	require.NoError(t, catalogRepo.CreateVariant(ctx, v))

	u := &account.User{
		ID:          newID(),
		Email:       suffix + "@example.com",
		IsActive:    true,
		DateJoined:  time.Now(),
		LastUpdated: time.Now(),
	}
	require.NoError(t, accounts.CreateUser(ctx, u))

	return fixture{product: p, variant: v, user: u}
}

func newCart(t *testing.T) *cart.Cart {
	t.Helper()
	c := &cart.Cart{ID: newID(), SessionKey: "sess-" + newID(), Timestamps: stamps()}
	require.NoError(t, NewCartRepository(pool).Create(context.Background(), c))
	return c
}

func cartWith(t *testing.T, f fixture, quantity int) *cart.Cart {
	t.Helper()
	c := newCart(t)
	require.NoError(t, NewCartRepository(pool).AddItem(context.Background(), &cart.Item{
		CartID: c.ID, VariantID: f.variant.ID, Quantity: quantity, AddedAt: time.Now(),
	}))
	return c
}

// orderFor builds an order for customerID from whatever the locked cart holds.
func orderFor(customerID, couponCode string) func(c *cart.Cart) (*order.Order, error) {
	return func(c *cart.Cart) (*order.Order, error) {
		if len(c.Items) == 0 {
			return nil, order.ErrEmptyCart
		}
		now := time.Now()
		o := &order.Order{
			ID:         newID(),
			CustomerID: customerID,
			Status:     order.StatusNew,
			PlacedAt:   now,
			Shipping: order.ShippingAddress{
				Name: "Test Buyer", Phone: "+966500000000", Country: account.DefaultCountry,
				City: "Riyadh", Street: "King Fahd Rd",
			},
			Currency:       order.DefaultCurrency,
			CouponCode:     couponCode,
			ShippingAmount: decimal.NewFromInt(10),
			UpdatedAt:      now,
			Items:          order.Snapshot(c),
		}
		for i := range o.Items {
			o.Items[i].ID = newID()
		}
		o.RecalcTotals()
		return o, nil
	}
}

func placeOrder(t *testing.T, f fixture, quantity int) *order.Order {
	t.Helper()
	c := cartWith(t, f, quantity)
	o, err := NewOrderRepository(pool).CreateFromCart(context.Background(), c.ID, orderFor(f.user.ID, ""))
	require.NoError(t, err)
	return o
}

func newOrderService(t *testing.T) *order.Service {
	t.Helper()
	svc, err := order.NewService(coupon.NewRepoValidator(NewCouponRepository(pool)), NewOrderRepository(pool))
	require.NoError(t, err)
	return svc
}

func placeRequest(cartID, customerID, couponCode string) order.PlaceOrderRequest {
	return order.PlaceOrderRequest{
		CartID:         cartID,
		CustomerID:     customerID,
		Shipping:       order.ShippingAddress{Name: "Test Buyer", City: "Riyadh", Street: "King Fahd Rd"},
		ShippingAmount: decimal.NewFromInt(10),
		CouponCode:     couponCode,
	}
}

func TestAccountRepository_UniqueEmail(t *testing.T) {
	ctx := context.Background()
	f := seedVariant(t, "10.00")
	accounts := NewAccountRepository(pool)

	dup := &account.User{ID: newID(), Email: f.user.Email, DateJoined: time.Now(), LastUpdated: time.Now()}
	require.ErrorIs(t, accounts.CreateUser(ctx, dup), account.ErrEmailTaken)

	got, err := accounts.GetUserByEmail(ctx, f.user.Email)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, got.ID)

	_, err = accounts.GetUser(ctx, newID())
	require.ErrorIs(t, err, account.ErrNotFound)
}

func TestAccountRepository_Addresses(t *testing.T) {
	ctx := context.Background()
	f := seedVariant(t, "10.00")
	accounts := NewAccountRepository(pool)

	for _, typ := range []account.AddressType{account.AddressShipping, account.AddressShipping, account.AddressBilling} {
		require.NoError(t, accounts.CreateAddress(ctx, &account.Address{
			ID: newID(), UserID: f.user.ID, Type: typ, FullName: "Test Buyer",
			Country: account.DefaultCountry, City: "Riyadh", IsDefault: true, Timestamps: stamps(),
		}))
	}

	shipping, err := accounts.ListAddresses(ctx, f.user.ID, account.AddressShipping)
	require.NoError(t, err)
	assert.Len(t, shipping, 2)

	all, err := accounts.ListAddresses(ctx, f.user.ID, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCatalogRepository_Product(t *testing.T) {
	ctx := context.Background()
	f := seedVariant(t, "49.99")
	catalogRepo := NewCatalogRepository(pool)

	got, err := catalogRepo.GetProductBySlug(ctx, f.product.Slug)
	require.NoError(t, err)
	require.Len(t, got.Variants, 1)
	assert.True(t, got.Variants[0].Price.Equal(decimal.RequireFromString("49.99")))
	assert.Equal(t, "M", got.Variants[0].Attributes["size"])

	dupSlug := &catalog.Product{ID: newID(), Name: "Other", Slug: f.product.Slug, Status: catalog.StatusDraft, Timestamps: stamps()}
	require.ErrorIs(t, catalogRepo.CreateProduct(ctx, dupSlug), catalog.ErrSlugTaken)

	dupSKU := *f.variant
	dupSKU.ID = newID()
	require.ErrorIs(t, catalogRepo.CreateVariant(ctx, &dupSKU), catalog.ErrSKUTaken)

	_, err = catalogRepo.GetProductBySlug(ctx, "missing-"+newID())
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestCatalogRepository_CategoryDeleteDetachesProducts(t *testing.T) {
	ctx := context.Background()
	catalogRepo := NewCatalogRepository(pool)
	suffix := newID()[:8]

	parent := &catalog.Category{ID: newID(), Name: "Apparel " + suffix, Slug: "apparel-" + suffix, IsActive: true, Timestamps: stamps()}
	require.NoError(t, catalogRepo.CreateCategory(ctx, parent))

	p := &catalog.Product{
		ID: newID(), Name: "Cap " + suffix, Slug: "cap-" + suffix,
		CategoryID: &parent.ID, Status: catalog.StatusDraft, Timestamps: stamps(),
	}
	require.NoError(t, catalogRepo.CreateProduct(ctx, p))

	require.NoError(t, catalogRepo.DeleteCategory(ctx, parent.ID))

	got, err := catalogRepo.GetProductBySlug(ctx, p.Slug)
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)

	require.ErrorIs(t, catalogRepo.DeleteCategory(ctx, parent.ID), catalog.ErrNotFound)
}

func TestCatalogRepository_EnsureAndUpsert(t *testing.T) {
	ctx := context.Background()
	catalogRepo := NewCatalogRepository(pool)
	suffix := newID()[:8]

	first, err := catalogRepo.EnsureProduct(ctx, newID(), "mug-"+suffix, "Mug")
	require.NoError(t, err)
	second, err := catalogRepo.EnsureProduct(ctx, newID(), "mug-"+suffix, "Mug")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	v := &catalog.Variant{
		ID: newID(), ProductID: first, SKU: "MUG-" + suffix,
		Attributes: catalog.Attributes{}, Price: decimal.NewFromInt(15), StockQty: 3, IsActive: true,
		Timestamps: stamps(),
	}
	require.NoError(t, catalogRepo.UpsertVariant(ctx, v))

	again := *v
	again.ID = newID()
	again.Price = decimal.NewFromInt(18)
	require.NoError(t, catalogRepo.UpsertVariant(ctx, &again))

	got, err := catalogRepo.GetVariant(ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(18)))

	_, err = catalogRepo.GetVariant(ctx, again.ID)
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestCartRepository(t *testing.T) {
	ctx := context.Background()
	f := seedVariant(t, "20.00")
	carts := NewCartRepository(pool)
	c := newCart(t)

	item := &cart.Item{CartID: c.ID, VariantID: f.variant.ID, Quantity: 2, AddedAt: time.Now()}
	require.NoError(t, carts.AddItem(ctx, item))
	require.ErrorIs(t, carts.AddItem(ctx, item), cart.ErrDuplicateItem)

	unknown := &cart.Item{CartID: c.ID, VariantID: newID(), Quantity: 1, AddedAt: time.Now()}
	require.ErrorIs(t, carts.AddItem(ctx, unknown), cart.ErrUnknownVariant)

	require.NoError(t, carts.SetQuantity(ctx, c.ID, f.variant.ID, 3))
	got, err := carts.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 3, got.Items[0].Quantity)
	assert.True(t, got.Subtotal().Equal(decimal.NewFromInt(60)))

	// Cart lines follow the live variant price.
	require.NoError(t, NewCatalogRepository(pool).UpdateVariantPrice(ctx, f.variant.ID, decimal.NewFromInt(25)))
	got, err = carts.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.Subtotal().Equal(decimal.NewFromInt(75)))

	require.NoError(t, carts.RemoveItem(ctx, c.ID, f.variant.ID))
	require.ErrorIs(t, carts.RemoveItem(ctx, c.ID, f.variant.ID), cart.ErrItemNotFound)

	_, err = carts.Get(ctx, newID())
	require.ErrorIs(t, err, cart.ErrNotFound)
}

func TestCatalogRepository_DeleteReferencedVariant(t *testing.T) {
	ctx := context.Background()
	f := seedVariant(t, "20.00")
	catalogRepo := NewCatalogRepository(pool)

	c := newCart(t)
	require.NoError(t, NewCartRepository(pool).AddItem(ctx, &cart.Item{
		CartID: c.ID, VariantID: f.variant.ID, Quantity: 1, AddedAt: time.Now(),
	}))

	require.ErrorIs(t, catalogRepo.DeleteVariant(ctx, f.variant.ID), catalog.ErrVariantProtected)
	require.ErrorIs(t, catalogRepo.DeleteProduct(ctx, f.product.ID), catalog.ErrVariantProtected)
}

func TestOrderRepository_CreateFromCart(t *testing.T) {
	ctx := context.Background()
	f := seedVariant(t, "50.00")
	orders := NewOrderRepository(pool)

	placed := placeOrder(t, f, 2)

	got, err := orders.Get(ctx, placed.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, f.variant.SKU, got.Items[0].SKU)
	assert.True(t, got.SubtotalAmount.Equal(decimal.NewFromInt(100)))
	assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(110)))

	// Snapshots keep the price at placement.
	require.NoError(t, NewCatalogRepository(pool).UpdateVariantPrice(ctx, f.variant.ID, decimal.NewFromInt(99)))
	got, err = orders.Get(ctx, placed.ID)
	require.NoError(t, err)
	assert.True(t, got.Items[0].UnitPrice.Equal(decimal.NewFromInt(50)))

	// Order items keep the variant from being deleted.
	require.ErrorIs(t, NewCatalogRepository(pool).DeleteVariant(ctx, f.variant.ID), catalog.ErrVariantProtected)

	list, err := orders.ListByCustomer(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, placed.ID, list[0].ID)
	assert.Len(t, list[0].Items, 1)
}

func TestOrderRepository_CreateFromCartEmptiesCart(t *testing.T) {
	ctx := context.Background()
	f := seedVariant(t, "5.00")
	carts := NewCartRepository(pool)
	orders := NewOrderRepository(pool)

	c := cartWith(t, f, 1)
	_, err := orders.CreateFromCart(ctx, c.ID, orderFor(f.user.ID, ""))
	require.NoError(t, err)

	got, err := carts.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Items)

	_, err = orders.CreateFromCart(ctx, c.ID, orderFor(f.user.ID, ""))
	require.ErrorIs(t, err, order.ErrEmptyCart)

	_, err = orders.CreateFromCart(ctx, newID(), orderFor(f.user.ID, ""))
	require.ErrorIs(t, err, cart.ErrNotFound)

	// A missing customer leaves nothing behind.
	require.NoError(t, carts.AddItem(ctx, &cart.Item{
		CartID: c.ID, VariantID: f.variant.ID, Quantity: 1, AddedAt: time.Now(),
	}))
	_, err = orders.CreateFromCart(ctx, c.ID, orderFor(newID(), ""))
	require.ErrorIs(t, err, order.ErrUnknownCustomer)

	got, err = carts.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)
}

func TestOrderRepository_ConcurrentPlacement(t *testing.T) {
	ctx := context.Background()
	f := seedVariant(t, "30.00")
	svc := newOrderService(t)
	c := cartWith(t, f, 1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.PlaceOrder(ctx, placeRequest(c.ID, f.user.ID, ""))
		}()
	}
	wg.Wait()

	var placed int
	for _, err := range errs {
		if err == nil {
			placed++
			continue
		}
		assert.ErrorIs(t, err, order.ErrEmptyCart)
	}
	assert.Equal(t, 1, placed)

	list, err := NewOrderRepository(pool).ListByCustomer(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestOrderRepository_ItemAddedDuringPlacementStays(t *testing.T) {
	ctx := context.Background()
	f := seedVariant(t, "30.00")
	late := seedVariant(t, "12.00")
	carts := NewCartRepository(pool)
	c := cartWith(t, f, 1)

	locked := make(chan struct{})
	added := make(chan error, 1)
	go func() {
		<-locked
		added <- carts.AddItem(ctx, &cart.Item{
			CartID: c.ID, VariantID: late.variant.ID, Quantity: 1, AddedAt: time.Now(),
		})
	}()

	build := orderFor(f.user.ID, "")
	placed, err := NewOrderRepository(pool).CreateFromCart(ctx, c.ID, func(held *cart.Cart) (*order.Order, error) {
		close(locked)
		time.Sleep(200 * time.Millisecond)
		return build(held)
	})
	require.NoError(t, err)
	require.NoError(t, <-added)

	require.Len(t, placed.Items, 1)
	assert.Equal(t, f.variant.ID, placed.Items[0].VariantID)

	got, err := carts.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, late.variant.ID, got.Items[0].VariantID)
}

func TestOrderRepository_CouponUseClaimedWithOrder(t *testing.T) {
	ctx := context.Background()
	f := seedVariant(t, "40.00")
	coupons := NewCouponRepository(pool)
	orders := NewOrderRepository(pool)
	code := "ONCE" + newID()[:6]

	require.NoError(t, coupons.Upsert(ctx, &coupon.Rule{
		Code: code, DiscountType: coupon.DiscountFixed, Value: decimal.NewFromInt(5), MaxUses: 1,
	}))

	// A failed insert gives the use back.
	_, err := orders.CreateFromCart(ctx, cartWith(t, f, 1).ID, orderFor(newID(), code))
	require.ErrorIs(t, err, order.ErrUnknownCustomer)
	rule, err := coupons.FindByCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, 0, rule.Uses)

	placed, err := orders.CreateFromCart(ctx, cartWith(t, f, 1).ID, orderFor(f.user.ID, code))
	require.NoError(t, err)
	assert.Equal(t, code, placed.CouponCode)

	// The claim is checked again under the transaction, not only at validation.
	c := cartWith(t, f, 1)
	_, err = orders.CreateFromCart(ctx, c.ID, orderFor(f.user.ID, code))
	require.ErrorIs(t, err, coupon.ErrCouponUsageLimitReached)
	got, err := NewCartRepository(pool).Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)

	rule, err = coupons.FindByCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, 1, rule.Uses)

	_, err = newOrderService(t).PlaceOrder(ctx, placeRequest(c.ID, f.user.ID, strings.ToLower(code)))
	require.ErrorIs(t, err, coupon.ErrCouponUsageLimitReached)
}

func TestOrderRepository_Update(t *testing.T) {
	ctx := context.Background()
	f := seedVariant(t, "50.00")
	orders := NewOrderRepository(pool)
	placed := placeOrder(t, f, 1)

	updated, err := orders.Update(ctx, placed.ID, func(o *order.Order) error {
		o.Status = order.StatusCancelled
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, updated.Status)

	// Any status may follow any other.
	updated, err = orders.Update(ctx, placed.ID, func(o *order.Order) error {
		o.MarkPaid()
		o.DiscountAmount = decimal.NewFromInt(5)
		o.RecalcTotals()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, updated.Status)

	got, err := orders.Get(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, got.Status)
	assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(55)))

	_, err = orders.Update(ctx, newID(), func(*order.Order) error { return nil })
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestPaymentRepository(t *testing.T) {
	ctx := context.Background()
	f := seedVariant(t, "50.00")
	placed := placeOrder(t, f, 1)
	payments := NewPaymentRepository(pool)

	for _, providerID := range []string{"pi_first", "pi_second"} {
		require.NoError(t, payments.Create(ctx, &payment.Payment{
			ID: newID(), OrderID: placed.ID, Provider: "moyasar", Status: payment.StatusInitiated,
			Amount: placed.TotalAmount, Currency: placed.Currency, ProviderPaymentID: providerID,
			Timestamps: stamps(),
		}))
	}

	list, err := payments.ListByOrder(ctx, placed.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "pi_first", list[0].ProviderPaymentID)

	updated, err := payments.UpdateStatus(ctx, list[0].ID, payment.StatusFailed, "", "card declined", time.Now())
	require.NoError(t, err)
	assert.Equal(t, payment.StatusFailed, updated.Status)
	assert.Equal(t, "pi_first", updated.ProviderPaymentID)
	assert.Equal(t, "card declined", updated.FailureReason)

	orphan := &payment.Payment{
		ID: newID(), OrderID: newID(), Provider: "moyasar", Status: payment.StatusInitiated,
		Amount: decimal.NewFromInt(1), Currency: order.DefaultCurrency, Timestamps: stamps(),
	}
	require.ErrorIs(t, payments.Create(ctx, orphan), payment.ErrUnknownOrder)

	_, err = payments.Get(ctx, newID())
	require.ErrorIs(t, err, payment.ErrNotFound)
}

func TestShipmentRepository(t *testing.T) {
	ctx := context.Background()
	f := seedVariant(t, "50.00")
	placed := placeOrder(t, f, 1)
	shipments := NewShipmentRepository(pool)

	sh := &shipment.Shipment{ID: newID(), OrderID: placed.ID, Status: shipment.StatusPending, UpdatedAt: time.Now()}
	require.NoError(t, shipments.Create(ctx, sh))

	second := *sh
	second.ID = newID()
	require.ErrorIs(t, shipments.Create(ctx, &second), shipment.ErrExists)

	shippedAt := time.Now().UTC().Truncate(time.Microsecond)
	updated, err := shipments.Update(ctx, placed.ID, func(s *shipment.Shipment) error {
		s.Carrier = "SMSA"
		s.TrackingNumber = "TRK1"
		s.Status = shipment.StatusShipped
		s.ShippedAt = &shippedAt
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, shipment.StatusShipped, updated.Status)

	got, err := shipments.GetByOrder(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, "SMSA", got.Carrier)
	require.NotNil(t, got.ShippedAt)
	assert.True(t, shippedAt.Equal(*got.ShippedAt))
	assert.Nil(t, got.DeliveredAt)

	_, err = shipment.NewService(shipments).Update(ctx, placed.ID, shipment.Patch{ClearShippedAt: true})
	require.NoError(t, err)
	got, err = shipments.GetByOrder(ctx, placed.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ShippedAt)
	assert.Equal(t, "SMSA", got.Carrier)

	_, err = shipments.GetByOrder(ctx, newID())
	require.ErrorIs(t, err, shipment.ErrNotFound)
}

func TestCouponRepository(t *testing.T) {
	ctx := context.Background()
	coupons := NewCouponRepository(pool)
	code := "SAVE" + newID()[:6]

	require.NoError(t, coupons.Upsert(ctx, &coupon.Rule{
		Code: code, DiscountType: coupon.DiscountPercentage, Value: decimal.NewFromInt(10),
		Description: "10% off", MaxUses: 2,
	}))

	rule, err := coupons.FindByCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, coupon.DiscountPercentage, rule.DiscountType)
	assert.Equal(t, 0, rule.Uses)

	svc := newOrderService(t)
	f := seedVariant(t, "20.00")
	placed, err := svc.PlaceOrder(ctx, placeRequest(cartWith(t, f, 1).ID, f.user.ID, strings.ToLower(code)))
	require.NoError(t, err)
	assert.Equal(t, code, placed.CouponCode)
	assert.True(t, placed.DiscountAmount.Equal(decimal.NewFromInt(2)))

	rule, err = coupons.FindByCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, 1, rule.Uses)

	_, err = coupons.FindByCode(ctx, "NOPE"+newID()[:6])
	require.ErrorIs(t, err, coupon.ErrInvalidCoupon)
}

func TestAPIKeyRepository(t *testing.T) {
	ctx := context.Background()
	keys := NewAPIKeyRepository(pool)
	hash := auth.HashKey([]byte("pepper"), "raw-"+newID())

	require.NoError(t, keys.Upsert(ctx, &auth.APIKey{
		ID: newID(), KeyHash: hash, Name: "ops", Scopes: []string{auth.ScopeCatalogWrite},
	}))
	require.NoError(t, keys.Upsert(ctx, &auth.APIKey{
		ID: newID(), KeyHash: hash, Name: "ops", Scopes: []string{auth.ScopeCatalogWrite, auth.ScopeSalesWrite},
	}))

	got, err := keys.FindByHash(ctx, hash)
	require.NoError(t, err)
	assert.True(t, got.HasScope(auth.ScopeSalesWrite))

	_, err = keys.FindByHash(ctx, "missing")
	require.ErrorIs(t, err, auth.ErrUnauthorized)
}
