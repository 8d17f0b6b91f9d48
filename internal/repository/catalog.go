package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/catalog"
)

const (
	createCategorySQL = `INSERT INTO categories (id, name, slug, parent_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	deleteCategorySQL = `DELETE FROM categories WHERE id = $1`

	productColumns = `id, name, slug, description, short_description, category_id,
		status, is_featured, created_at, updated_at`

	createProductSQL = `INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	getProductBySlugSQL = `SELECT ` + productColumns + ` FROM products WHERE slug = $1`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products
		WHERE ($1::text = '' OR status = $1::text) ORDER BY is_featured DESC, name`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`

	ensureProductSQL = `INSERT INTO products (id, name, slug, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
		RETURNING id`

	createImageSQL = `INSERT INTO product_images (id, product_id, path, alt_text, sort_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	listImagesSQL = `SELECT id, product_id, path, alt_text, sort_order, created_at, updated_at
		FROM product_images WHERE product_id = ANY($1) ORDER BY sort_order, id`

	variantColumns = `v.id, v.product_id, v.sku, v.attributes, v.price, v.compare_at_price,
		v.stock_qty, v.is_active, v.created_at, v.updated_at, p.name`

	createVariantSQL = `INSERT INTO product_variants
		(id, product_id, sku, attributes, price, compare_at_price, stock_qty, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	upsertVariantSQL = `INSERT INTO product_variants
		(id, product_id, sku, attributes, price, compare_at_price, stock_qty, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (sku) DO UPDATE SET
			product_id = EXCLUDED.product_id, attributes = EXCLUDED.attributes, price = EXCLUDED.price,
			stock_qty = EXCLUDED.stock_qty, updated_at = EXCLUDED.updated_at`

	getVariantSQL = `SELECT ` + variantColumns + `
		FROM product_variants v JOIN products p ON p.id = v.product_id WHERE v.id = $1`

	listVariantsSQL = `SELECT ` + variantColumns + `
		FROM product_variants v JOIN products p ON p.id = v.product_id
		WHERE v.product_id = ANY($1) ORDER BY v.sku`

	updateVariantPriceSQL = `UPDATE product_variants SET price = $2, updated_at = now() WHERE id = $1`

	deleteVariantSQL = `DELETE FROM product_variants WHERE id = $1`
)

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Repository backed by PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// CreateCategory inserts a category.
func (r *CatalogRepository) CreateCategory(ctx context.Context, c *catalog.Category) error {
	_, err := r.pool.Exec(ctx, createCategorySQL,
		c.ID, c.Name, c.Slug, c.ParentID, c.IsActive, c.CreatedAt, c.UpdatedAt,
	)
	switch {
	case err == nil:
		return nil
	case uniqueViolation(err, "categories_name_key"):
		return catalog.ErrNameTaken
	case uniqueViolation(err, "categories_slug_key"):
		return catalog.ErrSlugTaken
	case foreignKeyViolation(err, ""):
		return catalog.ErrNotFound
	default:
		return fmt.Errorf("creating category %q: %w", c.Name, err)
	}
}

// DeleteCategory removes a category; the schema nulls the parent of its
// children and the category of its products.
func (r *CatalogRepository) DeleteCategory(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteCategorySQL, id)
	if err != nil {
		return fmt.Errorf("deleting category %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// CreateProduct inserts a product.
func (r *CatalogRepository) CreateProduct(ctx context.Context, p *catalog.Product) error {
	_, err := r.pool.Exec(ctx, createProductSQL,
		p.ID, p.Name, p.Slug, p.Description, p.ShortDescription, p.CategoryID,
		string(p.Status), p.IsFeatured, p.CreatedAt, p.UpdatedAt,
	)
	switch {
	case err == nil:
		return nil
	case uniqueViolation(err, "products_slug_key"):
		return catalog.ErrSlugTaken
	case foreignKeyViolation(err, ""):
		return catalog.ErrNotFound
	default:
		return fmt.Errorf("creating product %q: %w", p.Name, err)
	}
}

// EnsureProduct returns the ID of the product with the given slug, creating a
// draft product named name when none exists.
func (r *CatalogRepository) EnsureProduct(ctx context.Context, id, slug, name string) (string, error) {
	var productID string
	if err := r.pool.QueryRow(ctx, ensureProductSQL, id, name, slug, time.Now()).Scan(&productID); err != nil {
		return "", fmt.Errorf("ensuring product %q: %w", slug, err)
	}
	return productID, nil
}

// GetProductBySlug returns a product with its variants and images.
func (r *CatalogRepository) GetProductBySlug(ctx context.Context, slug string) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductBySlugSQL, slug)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", slug, err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", slug, err)
	}

	products := []catalog.Product{p}
	if err := r.attachChildren(ctx, products); err != nil {
		return nil, err
	}
	return &products[0], nil
}

// ListProducts returns products with their variants and images. An empty
// status lists every product.
func (r *CatalogRepository) ListProducts(ctx context.Context, status catalog.Status) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL, string(status))
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	if err := r.attachChildren(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// attachChildren loads variants and images for all products in two queries.
func (r *CatalogRepository) attachChildren(ctx context.Context, products []catalog.Product) error {
	if len(products) == 0 {
		return nil
	}
	ids := make([]string, len(products))
	index := make(map[string]int, len(products))
	for i, p := range products {
		ids[i] = p.ID
		index[p.ID] = i
	}

	rows, err := r.pool.Query(ctx, listVariantsSQL, ids)
	if err != nil {
		return fmt.Errorf("listing variants: %w", err)
	}
	variants, err := pgx.CollectRows(rows, scanVariant)
	if err != nil {
		return fmt.Errorf("listing variants: %w", err)
	}
	for _, v := range variants {
		i := index[v.ProductID]
		products[i].Variants = append(products[i].Variants, v)
	}

	rows, err = r.pool.Query(ctx, listImagesSQL, ids)
	if err != nil {
		return fmt.Errorf("listing images: %w", err)
	}
	images, err := pgx.CollectRows(rows, scanImage)
	if err != nil {
		return fmt.Errorf("listing images: %w", err)
	}
	for _, img := range images {
		i := index[img.ProductID]
		products[i].Images = append(products[i].Images, img)
	}
	return nil
}

// DeleteProduct removes a product; variants and images go with it unless a
// variant is still referenced, which fails with catalog.ErrVariantProtected.
func (r *CatalogRepository) DeleteProduct(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		if foreignKeyViolation(err, "") {
			return catalog.ErrVariantProtected
		}
		return fmt.Errorf("deleting product %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// CreateImage inserts a product image.
func (r *CatalogRepository) CreateImage(ctx context.Context, img *catalog.Image) error {
	_, err := r.pool.Exec(ctx, createImageSQL,
		img.ID, img.ProductID, img.Path, img.AltText, img.SortOrder, img.CreatedAt, img.UpdatedAt,
	)
	if err != nil {
		if foreignKeyViolation(err, "") {
			return catalog.ErrNotFound
		}
		return fmt.Errorf("creating image for product %q: %w", img.ProductID, err)
	}
	return nil
}

// CreateVariant inserts a variant. A duplicate SKU yields catalog.ErrSKUTaken.
func (r *CatalogRepository) CreateVariant(ctx context.Context, v *catalog.Variant) error {
	return r.writeVariant(ctx, createVariantSQL, v)
}

// UpsertVariant inserts a variant or updates the one with the same SKU.
func (r *CatalogRepository) UpsertVariant(ctx context.Context, v *catalog.Variant) error {
	return r.writeVariant(ctx, upsertVariantSQL, v)
}

func (r *CatalogRepository) writeVariant(ctx context.Context, query string, v *catalog.Variant) error {
	_, err := r.pool.Exec(ctx, query,
		v.ID, v.ProductID, v.SKU, v.Attributes, v.Price, nullDecimal(v.CompareAtPrice),
		v.StockQty, v.IsActive, v.CreatedAt, v.UpdatedAt,
	)
	switch {
	case err == nil:
		return nil
	case uniqueViolation(err, "product_variants_sku_key"):
		return catalog.ErrSKUTaken
	case foreignKeyViolation(err, ""):
		return catalog.ErrNotFound
	default:
		return fmt.Errorf("writing variant %q: %w", v.SKU, err)
	}
}

// GetVariant returns a variant with the name of its product.
func (r *CatalogRepository) GetVariant(ctx context.Context, id string) (*catalog.Variant, error) {
	rows, err := r.pool.Query(ctx, getVariantSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting variant %q: %w", id, err)
	}
	v, err := pgx.CollectExactlyOneRow(rows, scanVariant)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting variant %q: %w", id, err)
	}
	return &v, nil
}

// UpdateVariantPrice changes the live price of a variant.
func (r *CatalogRepository) UpdateVariantPrice(ctx context.Context, id string, price decimal.Decimal) error {
	tag, err := r.pool.Exec(ctx, updateVariantPriceSQL, id, price)
	if err != nil {
		return fmt.Errorf("updating price of variant %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// DeleteVariant removes a variant. Cart and order items reference variants
// with ON DELETE RESTRICT, so a referenced variant fails with
// catalog.ErrVariantProtected.
func (r *CatalogRepository) DeleteVariant(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteVariantSQL, id)
	if err != nil {
		if foreignKeyViolation(err, "") {
			return catalog.ErrVariantProtected
		}
		return fmt.Errorf("deleting variant %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var (
		p      catalog.Product
		status string
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.ShortDescription, &p.CategoryID,
		&status, &p.IsFeatured, &p.CreatedAt, &p.UpdatedAt,
	)
	p.Status = catalog.Status(status)
	return p, err
}

func scanVariant(row pgx.CollectableRow) (catalog.Variant, error) {
	var (
		v         catalog.Variant
		compareAt decimal.NullDecimal
	)
	err := row.Scan(
		&v.ID, &v.ProductID, &v.SKU, &v.Attributes, &v.Price, &compareAt,
		&v.StockQty, &v.IsActive, &v.CreatedAt, &v.UpdatedAt, &v.ProductName,
	)
	if compareAt.Valid {
		v.CompareAtPrice = &compareAt.Decimal
	}
	return v, err
}

func scanImage(row pgx.CollectableRow) (catalog.Image, error) {
	var img catalog.Image
	err := row.Scan(
		&img.ID, &img.ProductID, &img.Path, &img.AltText, &img.SortOrder, &img.CreatedAt, &img.UpdatedAt,
	)
	return img, err
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
