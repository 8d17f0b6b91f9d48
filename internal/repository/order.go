package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
)

const (
	orderColumns = `id, customer_id, status, placed_at,
		shipping_name, shipping_phone, shipping_country, shipping_city,
		shipping_district, shipping_street, shipping_building, shipping_postal_code,
		notes, currency, coupon_code,
		subtotal_amount, shipping_amount, discount_amount, total_amount, updated_at`

	createOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	createOrderItemSQL = `INSERT INTO order_items
		(id, order_id, variant_id, sku, product_name, attributes, unit_price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	// Inserts into cart_items take a key-share lock on the cart row, so
	// AddItem waits for a placement holding this lock.
	lockCartSQL = `SELECT id FROM carts WHERE id = $1 FOR UPDATE`

	claimCouponUseSQL = `UPDATE coupons SET uses = uses + 1
		WHERE code = $1 AND active = TRUE AND (max_uses = 0 OR uses < max_uses)`

	clearCartSQL = `DELETE FROM cart_items WHERE cart_id = $1`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	lockOrderSQL = getOrderSQL + ` FOR UPDATE`

	listOrdersByCustomerSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE customer_id = $1 ORDER BY placed_at DESC, id`

	listOrderItemsSQL = `SELECT id, order_id, variant_id, sku, product_name, attributes, unit_price, quantity
		FROM order_items WHERE order_id = ANY($1) ORDER BY sku, id`

	updateOrderSQL = `UPDATE orders SET
			status = $2, notes = $3,
			subtotal_amount = $4, shipping_amount = $5, discount_amount = $6, total_amount = $7,
			updated_at = $8
		WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// CreateFromCart locks the cart row, reloads the cart with its items and
// passes it to build. The built order and its item snapshots are inserted, a
// coupon use is claimed and the cart is emptied in the same transaction.
func (r *OrderRepository) CreateFromCart(
	ctx context.Context,
	cartID string,
	build func(c *cart.Cart) (*order.Order, error),
) (*order.Order, error) {
	var placed *order.Order
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var id string
		if err := tx.QueryRow(ctx, lockCartSQL, cartID).Scan(&id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return cart.ErrNotFound
			}
			return fmt.Errorf("locking cart %q: %w", cartID, err)
		}
		c, err := getCart(ctx, tx, cartID)
		if err != nil {
			return err
		}

		o, err := build(c)
		if err != nil {
			return err
		}
		if o.CouponCode != "" {
			if err := claimCouponUse(ctx, tx, o.CouponCode); err != nil {
				return err
			}
		}
		if err := insertOrder(ctx, tx, o); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, clearCartSQL, cartID); err != nil {
			return fmt.Errorf("clearing cart %q: %w", cartID, err)
		}
		if err := touchCart(ctx, tx, cartID); err != nil {
			return err
		}
		placed = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return placed, nil
}

// claimCouponUse counts one use of code, failing when its limit is reached
// or it was deactivated since validation.
func claimCouponUse(ctx context.Context, tx pgx.Tx, code string) error {
	tag, err := tx.Exec(ctx, claimCouponUseSQL, code)
	if err != nil {
		return fmt.Errorf("claiming use of coupon %q: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrCouponUsageLimitReached
	}
	return nil
}

func insertOrder(ctx context.Context, tx pgx.Tx, o *order.Order) error {
	_, err := tx.Exec(ctx, createOrderSQL,
		o.ID, o.CustomerID, string(o.Status), o.PlacedAt,
		o.Shipping.Name, o.Shipping.Phone, o.Shipping.Country, o.Shipping.City,
		o.Shipping.District, o.Shipping.Street, o.Shipping.Building, o.Shipping.PostalCode,
		o.Notes, o.Currency, o.CouponCode,
		o.SubtotalAmount, o.ShippingAmount, o.DiscountAmount, o.TotalAmount, o.UpdatedAt,
	)
	if err != nil {
		if foreignKeyViolation(err, "orders_customer_id_fkey") {
			return order.ErrUnknownCustomer
		}
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	for _, item := range o.Items {
		_, err := tx.Exec(ctx, createOrderItemSQL,
			item.ID, o.ID, item.VariantID, item.SKU, item.ProductName,
			item.Attributes, item.UnitPrice, item.Quantity,
		)
		if err != nil {
			if foreignKeyViolation(err, "order_items_variant_id_fkey") {
				return cart.ErrUnknownVariant
			}
			return fmt.Errorf("creating item %q of order %q: %w", item.SKU, o.ID, err)
		}
	}
	return nil
}

// Get returns an order with its items.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	return getOrder(ctx, r.pool, getOrderSQL, id)
}

// ListByCustomer returns the customer's orders with items, newest first.
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByCustomerSQL, customerID)
	if err != nil {
		return nil, fmt.Errorf("listing orders of customer %q: %w", customerID, err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders of customer %q: %w", customerID, err)
	}
	if err := attachOrderItems(ctx, r.pool, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Update locks the order row, applies fn to the loaded order and writes back
// status, notes and amounts. Items are not rewritten.
func (r *OrderRepository) Update(ctx context.Context, id string, fn func(o *order.Order) error) (*order.Order, error) {
	var updated *order.Order
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		o, err := getOrder(ctx, tx, lockOrderSQL, id)
		if err != nil {
			return err
		}
		if err := fn(o); err != nil {
			return err
		}
		o.UpdatedAt = time.Now()
		_, err = tx.Exec(ctx, updateOrderSQL,
			o.ID, string(o.Status), o.Notes,
			o.SubtotalAmount, o.ShippingAmount, o.DiscountAmount, o.TotalAmount,
			o.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("updating order %q: %w", id, err)
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func getOrder(ctx context.Context, q querier, query, id string) (*order.Order, error) {
	rows, err := q.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	orders := []order.Order{o}
	if err := attachOrderItems(ctx, q, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func attachOrderItems(ctx context.Context, q querier, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := q.Query(ctx, listOrderItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}
	items, err := pgx.CollectRows(rows, scanOrderItem)
	if err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}
	for _, item := range items {
		i := index[item.OrderID]
		orders[i].Items = append(orders[i].Items, item)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(
		&o.ID, &o.CustomerID, &status, &o.PlacedAt,
		&o.Shipping.Name, &o.Shipping.Phone, &o.Shipping.Country, &o.Shipping.City,
		&o.Shipping.District, &o.Shipping.Street, &o.Shipping.Building, &o.Shipping.PostalCode,
		&o.Notes, &o.Currency, &o.CouponCode,
		&o.SubtotalAmount, &o.ShippingAmount, &o.DiscountAmount, &o.TotalAmount, &o.UpdatedAt,
	)
	o.Status = order.Status(status)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var item order.Item
	err := row.Scan(
		&item.ID, &item.OrderID, &item.VariantID, &item.SKU, &item.ProductName,
		&item.Attributes, &item.UnitPrice, &item.Quantity,
	)
	return item, err
}
