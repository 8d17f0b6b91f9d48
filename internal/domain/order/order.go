package order

import (
	"context"
	"maps"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/base"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
)

// DefaultCurrency is used when the service is not configured with one.
const DefaultCurrency = "SAR"

// Status is the lifecycle state of an order. Any status may follow any other;
// the order itself does not guard transitions.
type Status string

const (
	StatusNew            Status = "new"
	StatusPendingPayment Status = "pending_payment"
	StatusPaid           Status = "paid"
	StatusProcessing     Status = "processing"
	StatusShipped        Status = "shipped"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
	StatusRefunded       Status = "refunded"
)

// Valid reports whether s is a known order status.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusPendingPayment, StatusPaid, StatusProcessing,
		StatusShipped, StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

var (
	// ErrNotFound is returned when an order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrEmptyCart is returned when placing an order from a cart without items.
	ErrEmptyCart = errors.New("cart has no items")
	// ErrCartOwnerMismatch is returned when a user-owned cart is checked out
	// for another customer.
	ErrCartOwnerMismatch = errors.New("cart belongs to another customer")
	// ErrUnknownStatus is returned for status values outside the enum.
	ErrUnknownStatus = errors.New("unknown order status")
	// ErrUnknownCustomer is returned when the customer does not exist.
	ErrUnknownCustomer = errors.New("customer does not exist")
)

// ShippingAddress is the address snapshot stored on the order. It does not
// follow later edits of the customer's saved addresses.
type ShippingAddress struct {
	Name       string
	Phone      string
	Country    string
	City       string
	District   string
	Street     string
	Building   string
	PostalCode string
}

// Validate checks the fields an order cannot be stored without.
func (a ShippingAddress) Validate() error {
	return base.First(
		base.Required("shipping_name", a.Name),
		base.Required("shipping_city", a.City),
		base.Required("shipping_street", a.Street),
	)
}

// Order is a placed purchase. Amounts are stored; they change only through
// RecalcTotals or explicit adjustments.
type Order struct {
	ID         string
	CustomerID string
	Status     Status
	PlacedAt   time.Time
	Shipping   ShippingAddress
	Notes      string
	Currency   string
	CouponCode string

	SubtotalAmount decimal.Decimal
	ShippingAmount decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalAmount    decimal.Decimal

	UpdatedAt time.Time
	Items     []Item
}

// Item is an order line. SKU, product name, attributes and unit price are
// copied from the catalog at placement and never follow later catalog edits.
type Item struct {
	ID          string
	OrderID     string
	VariantID   string
	SKU         string
	ProductName string
	Attributes  catalog.Attributes
	UnitPrice   decimal.Decimal
	Quantity    int
}

// LineTotal returns UnitPrice times Quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// RecalcTotals sets SubtotalAmount to the sum of line totals and
// TotalAmount to subtotal + shipping - discount. It must be called after any
// change to Items or adjustments; a discount larger than subtotal + shipping
// yields a negative total.
func (o *Order) RecalcTotals() {
	subtotal := decimal.Zero
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	o.SubtotalAmount = subtotal
	o.TotalAmount = subtotal.Add(o.ShippingAmount).Sub(o.DiscountAmount)
}

// MarkPaid sets the status to paid regardless of the current status.
func (o *Order) MarkPaid() {
	o.Status = StatusPaid
}

// Snapshot copies the cart lines into order items, freezing the current SKU,
// product name, attributes and price of each variant.
func Snapshot(c *cart.Cart) []Item {
	items := make([]Item, len(c.Items))
	for i, line := range c.Items {
		items[i] = Item{
			VariantID:   line.VariantID,
			SKU:         line.SKU,
			ProductName: line.ProductName,
			Attributes:  cloneAttributes(line.Attributes),
			UnitPrice:   line.Price,
			Quantity:    line.Quantity,
		}
	}
	return items
}

func cloneAttributes(a catalog.Attributes) catalog.Attributes {
	if a == nil {
		return catalog.Attributes{}
	}
	return maps.Clone(a)
}

// Repository defines persistence operations for orders.
type Repository interface {
	// CreateFromCart locks the cart, hands it with its current items to
	// build and stores the returned order while emptying the cart, all in one
	// transaction. An order carrying a coupon code claims one use of the
	// coupon in the same transaction.
	CreateFromCart(ctx context.Context, cartID string, build func(c *cart.Cart) (*Order, error)) (*Order, error)
	Get(ctx context.Context, id string) (*Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]Order, error)
	// Update loads the order with its items under a row lock, applies fn and
	// stores the status, notes and amounts in the same transaction.
	Update(ctx context.Context, id string, fn func(o *Order) error) (*Order, error)
}
