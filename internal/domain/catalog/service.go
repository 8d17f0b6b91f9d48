package catalog

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/base"
)

// Service implements catalog maintenance on top of a Repository.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a catalog Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Slugify derives a URL slug from a display name.
func Slugify(name string) string {
	return slug.Make(name)
}

// CreateCategory stores a category, deriving the slug from the name when blank.
func (s *Service) CreateCategory(ctx context.Context, c Category) (*Category, error) {
	if err := base.Required("name", c.Name); err != nil {
		return nil, err
	}
	if c.Slug == "" {
		c.Slug = Slugify(c.Name)
	}
	c.ID = uuid.New().String()
	c.Touch(s.now())
	if err := s.repo.CreateCategory(ctx, &c); err != nil {
		return nil, errors.Wrap(err, "create category")
	}
	return &c, nil
}

// DeleteCategory removes a category. Children and products keep existing with
// a null parent/category.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	return s.repo.DeleteCategory(ctx, id)
}

// CreateProduct stores a product, deriving the slug from the name when blank.
// New products start as drafts unless a status is given.
func (s *Service) CreateProduct(ctx context.Context, p Product) (*Product, error) {
	if err := base.Required("name", p.Name); err != nil {
		return nil, err
	}
	if p.Status == "" {
		p.Status = StatusDraft
	}
	if !p.Status.Valid() {
		return nil, base.Invalid("status", "must be draft, published or archived")
	}
	if p.Slug == "" {
		p.Slug = Slugify(p.Name)
	}
	p.ID = uuid.New().String()
	p.Touch(s.now())
	if err := s.repo.CreateProduct(ctx, &p); err != nil {
		return nil, errors.Wrap(err, "create product")
	}
	return &p, nil
}

// GetProduct returns a product with its variants and images.
func (s *Service) GetProduct(ctx context.Context, slug string) (*Product, error) {
	return s.repo.GetProductBySlug(ctx, slug)
}

// ListProducts returns products with the given status; an empty status lists all.
func (s *Service) ListProducts(ctx context.Context, status Status) ([]Product, error) {
	return s.repo.ListProducts(ctx, status)
}

// DeleteProduct removes a product with its variants and images. It fails with
// ErrVariantProtected when any variant is still referenced.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	return s.repo.DeleteProduct(ctx, id)
}

// AddImage attaches an image to a product.
func (s *Service) AddImage(ctx context.Context, img Image) (*Image, error) {
	if err := base.First(
		base.Required("product_id", img.ProductID),
		base.Required("path", img.Path),
	); err != nil {
		return nil, err
	}
	if img.SortOrder < 0 {
		return nil, base.Invalid("sort_order", "must be non-negative")
	}
	img.ID = uuid.New().String()
	img.Touch(s.now())
	if err := s.repo.CreateImage(ctx, &img); err != nil {
		return nil, errors.Wrap(err, "create image")
	}
	return &img, nil
}

// CreateVariant validates and stores a variant.
func (s *Service) CreateVariant(ctx context.Context, v Variant) (*Variant, error) {
	if err := base.First(
		base.Required("product_id", v.ProductID),
		base.Required("sku", v.SKU),
		validatePrice("price", v.Price),
	); err != nil {
		return nil, err
	}
	if v.CompareAtPrice != nil {
		if err := validatePrice("compare_at_price", *v.CompareAtPrice); err != nil {
			return nil, err
		}
	}
	if v.StockQty < 0 {
		return nil, base.Invalid("stock_qty", "must be non-negative")
	}
	if v.Attributes == nil {
		v.Attributes = Attributes{}
	}
	v.ID = uuid.New().String()
	v.Touch(s.now())
	if err := s.repo.CreateVariant(ctx, &v); err != nil {
		return nil, errors.Wrap(err, "create variant")
	}
	return &v, nil
}

// GetVariant returns a variant with its product name.
func (s *Service) GetVariant(ctx context.Context, id string) (*Variant, error) {
	return s.repo.GetVariant(ctx, id)
}

// UpdateVariantPrice changes the live price of a variant. Existing order items
// keep the price they were placed at.
func (s *Service) UpdateVariantPrice(ctx context.Context, id string, price decimal.Decimal) error {
	if err := validatePrice("price", price); err != nil {
		return err
	}
	return s.repo.UpdateVariantPrice(ctx, id, price)
}

// DeleteVariant removes a variant. It fails with ErrVariantProtected while any
// cart item or order item references it.
func (s *Service) DeleteVariant(ctx context.Context, id string) error {
	return s.repo.DeleteVariant(ctx, id)
}

func validatePrice(field string, price decimal.Decimal) error {
	return base.Money(field, price)
}
