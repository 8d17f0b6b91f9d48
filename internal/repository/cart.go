package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/account"
	"github.com/xenking/storefront/internal/domain/cart"
)

const (
	createCartSQL = `INSERT INTO carts (id, user_id, session_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	getCartSQL = `SELECT id, user_id, session_key, created_at, updated_at FROM carts WHERE id = $1`

	// Items are joined to the live variant row, so prices follow the catalog.
	listCartItemsSQL = `SELECT ci.cart_id, ci.variant_id, ci.quantity, ci.added_at,
			v.sku, p.name, v.attributes, v.price
		FROM cart_items ci
		JOIN product_variants v ON v.id = ci.variant_id
		JOIN products p ON p.id = v.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.added_at, v.sku`

	addCartItemSQL = `INSERT INTO cart_items (cart_id, variant_id, quantity, added_at)
		VALUES ($1, $2, $3, $4)`

	setCartItemQuantitySQL = `UPDATE cart_items SET quantity = $3 WHERE cart_id = $1 AND variant_id = $2`

	removeCartItemSQL = `DELETE FROM cart_items WHERE cart_id = $1 AND variant_id = $2`

	touchCartSQL = `UPDATE carts SET updated_at = now() WHERE id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Create inserts an empty cart.
func (r *CartRepository) Create(ctx context.Context, c *cart.Cart) error {
	_, err := r.pool.Exec(ctx, createCartSQL, c.ID, c.UserID, c.SessionKey, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if foreignKeyViolation(err, "carts_user_id_fkey") {
			return account.ErrNotFound
		}
		return fmt.Errorf("creating cart: %w", err)
	}
	return nil
}

// Get returns the cart with its items.
func (r *CartRepository) Get(ctx context.Context, id string) (*cart.Cart, error) {
	return getCart(ctx, r.pool, id)
}

func getCart(ctx context.Context, q querier, id string) (*cart.Cart, error) {
	var c cart.Cart
	err := q.QueryRow(ctx, getCartSQL, id).Scan(&c.ID, &c.UserID, &c.SessionKey, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("getting cart %q: %w", id, err)
	}

	rows, err := q.Query(ctx, listCartItemsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("listing items of cart %q: %w", id, err)
	}
	c.Items, err = pgx.CollectRows(rows, scanCartItem)
	if err != nil {
		return nil, fmt.Errorf("listing items of cart %q: %w", id, err)
	}
	return &c, nil
}

// AddItem inserts a new line. A second line for the same variant yields
// cart.ErrDuplicateItem.
func (r *CartRepository) AddItem(ctx context.Context, item *cart.Item) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, addCartItemSQL, item.CartID, item.VariantID, item.Quantity, item.AddedAt)
		switch {
		case err == nil:
		case uniqueViolation(err, "cart_items_cart_variant_key"):
			return cart.ErrDuplicateItem
		case foreignKeyViolation(err, "cart_items_cart_id_fkey"):
			return cart.ErrNotFound
		case foreignKeyViolation(err, "cart_items_variant_id_fkey"):
			return cart.ErrUnknownVariant
		default:
			return fmt.Errorf("adding variant %q to cart %q: %w", item.VariantID, item.CartID, err)
		}
		return touchCart(ctx, tx, item.CartID)
	})
}

// SetQuantity replaces the quantity of an existing line.
func (r *CartRepository) SetQuantity(ctx context.Context, cartID, variantID string, quantity int) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, setCartItemQuantitySQL, cartID, variantID, quantity)
		if err != nil {
			return fmt.Errorf("setting quantity of %q in cart %q: %w", variantID, cartID, err)
		}
		if tag.RowsAffected() == 0 {
			return cart.ErrItemNotFound
		}
		return touchCart(ctx, tx, cartID)
	})
}

// RemoveItem deletes a line.
func (r *CartRepository) RemoveItem(ctx context.Context, cartID, variantID string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, removeCartItemSQL, cartID, variantID)
		if err != nil {
			return fmt.Errorf("removing %q from cart %q: %w", variantID, cartID, err)
		}
		if tag.RowsAffected() == 0 {
			return cart.ErrItemNotFound
		}
		return touchCart(ctx, tx, cartID)
	})
}

func touchCart(ctx context.Context, q querier, id string) error {
	if _, err := q.Exec(ctx, touchCartSQL, id); err != nil {
		return fmt.Errorf("touching cart %q: %w", id, err)
	}
	return nil
}

func scanCartItem(row pgx.CollectableRow) (cart.Item, error) {
	var item cart.Item
	err := row.Scan(
		&item.CartID, &item.VariantID, &item.Quantity, &item.AddedAt,
		&item.SKU, &item.ProductName, &item.Attributes, &item.Price,
	)
	return item, err
}
