package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/base"
)

// Status controls product visibility.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// Valid reports whether s is a known product status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

var (
	// ErrNotFound is returned when a category, product or variant does not exist.
	ErrNotFound = errors.New("catalog entry not found")
	// ErrNameTaken is returned when a category name is already in use.
	ErrNameTaken = errors.New("name already in use")
	// ErrSlugTaken is returned when a category or product slug is already in use.
	ErrSlugTaken = errors.New("slug already in use")
	// ErrSKUTaken is returned when a variant SKU is already in use.
	ErrSKUTaken = errors.New("sku already in use")
	// ErrVariantProtected is returned when a delete would remove a variant
	// still referenced by a cart item or an order item.
	ErrVariantProtected = errors.New("variant is referenced by cart or order items")
)

// Category is a node of the category tree. Deleting a category detaches its
// children and products instead of deleting them.
type Category struct {
	ID       string
	Name     string
	Slug     string
	ParentID *string
	IsActive bool
	base.Timestamps
}

// Product is a sellable item. The variants carry price and stock.
type Product struct {
	ID               string
	Name             string
	Slug             string
	Description      string
	ShortDescription string
	CategoryID       *string
	Status           Status
	IsFeatured       bool
	base.Timestamps

	Variants []Variant
	Images   []Image
}

// Image references an externally served product image.
type Image struct {
	ID        string
	ProductID string
	Path      string
	AltText   string
	SortOrder int
	base.Timestamps
}

// Attributes is the open key/value description of a variant, e.g.
// {"size": "M", "color": "Black"}.
type Attributes map[string]any

// Variant is the purchasable unit of a product.
type Variant struct {
	ID             string
	ProductID      string
	SKU            string
	Attributes     Attributes
	Price          decimal.Decimal
	CompareAtPrice *decimal.Decimal
	StockQty       int
	IsActive       bool
	base.Timestamps

	// ProductName is filled by reads that join the owning product.
	ProductName string
}

// InStock reports whether the variant can currently be sold.
func (v *Variant) InStock() bool {
	return v.IsActive && v.StockQty > 0
}

// Repository defines persistence operations for the catalog.
type Repository interface {
	CreateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id string) error

	CreateProduct(ctx context.Context, p *Product) error
	GetProductBySlug(ctx context.Context, slug string) (*Product, error)
	ListProducts(ctx context.Context, status Status) ([]Product, error)
	DeleteProduct(ctx context.Context, id string) error

	CreateImage(ctx context.Context, img *Image) error

	CreateVariant(ctx context.Context, v *Variant) error
	GetVariant(ctx context.Context, id string) (*Variant, error)
	UpdateVariantPrice(ctx context.Context, id string, price decimal.Decimal) error
	DeleteVariant(ctx context.Context, id string) error
}
