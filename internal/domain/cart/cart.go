package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/base"
	"github.com/xenking/storefront/internal/domain/catalog"
)

var (
	// ErrNotFound is returned when a cart does not exist.
	ErrNotFound = errors.New("cart not found")
	// ErrItemNotFound is returned when a cart has no line for the variant.
	ErrItemNotFound = errors.New("cart item not found")
	// ErrDuplicateItem is returned when the cart already holds a line for the
	// variant. The storage layer enforces one line per (cart, variant).
	ErrDuplicateItem = errors.New("variant already in cart")
	// ErrUnknownVariant is returned when an item references a missing variant.
	ErrUnknownVariant = errors.New("variant does not exist")
	// ErrOwnerRequired is returned when a cart has neither a user nor a session key.
	ErrOwnerRequired = errors.New("cart requires a user or a session key")
)

// Cart is a mutable pre-order basket owned by a user or by a guest session.
type Cart struct {
	ID         string
	UserID     *string
	SessionKey string
	base.Timestamps

	Items []Item
}

// Item is a cart line. The variant fields reflect the catalog at read time,
// so line totals follow the live price until checkout.
type Item struct {
	CartID    string
	VariantID string
	Quantity  int
	AddedAt   time.Time

	SKU         string
	ProductName string
	Attributes  catalog.Attributes
	Price       decimal.Decimal
}

// LineTotal returns the current variant price times the quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Subtotal sums the line totals at current prices. An empty cart yields zero.
func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range c.Items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}

// TotalQuantity returns the number of units across all lines.
func (c *Cart) TotalQuantity() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// Repository defines persistence operations for carts.
type Repository interface {
	Create(ctx context.Context, c *Cart) error
	// Get returns the cart with its items joined to the live variant data.
	Get(ctx context.Context, id string) (*Cart, error)
	AddItem(ctx context.Context, item *Item) error
	SetQuantity(ctx context.Context, cartID, variantID string, quantity int) error
	RemoveItem(ctx context.Context, cartID, variantID string) error
}
