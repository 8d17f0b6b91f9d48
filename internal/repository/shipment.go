package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/shipment"
)

const (
	shipmentColumns = `id, order_id, carrier, tracking_number, status, shipped_at, delivered_at, updated_at`

	createShipmentSQL = `INSERT INTO shipments (` + shipmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	getShipmentByOrderSQL = `SELECT ` + shipmentColumns + ` FROM shipments WHERE order_id = $1`

	lockShipmentByOrderSQL = getShipmentByOrderSQL + ` FOR UPDATE`

	updateShipmentSQL = `UPDATE shipments SET
			carrier = $2, tracking_number = $3, status = $4,
			shipped_at = $5, delivered_at = $6, updated_at = $7
		WHERE id = $1`
)

var _ shipment.Repository = (*ShipmentRepository)(nil)

// ShipmentRepository implements shipment.Repository backed by PostgreSQL.
type ShipmentRepository struct {
	pool *pgxpool.Pool
}

// NewShipmentRepository returns a ShipmentRepository that uses the given pool.
func NewShipmentRepository(pool *pgxpool.Pool) *ShipmentRepository {
	return &ShipmentRepository{pool: pool}
}

// Create inserts the shipment of an order. The schema allows one per order.
func (r *ShipmentRepository) Create(ctx context.Context, s *shipment.Shipment) error {
	_, err := r.pool.Exec(ctx, createShipmentSQL,
		s.ID, s.OrderID, s.Carrier, s.TrackingNumber, string(s.Status),
		s.ShippedAt, s.DeliveredAt, s.UpdatedAt,
	)
	switch {
	case err == nil:
		return nil
	case uniqueViolation(err, "shipments_order_key"):
		return shipment.ErrExists
	case foreignKeyViolation(err, "shipments_order_id_fkey"):
		return shipment.ErrUnknownOrder
	default:
		return fmt.Errorf("creating shipment for order %q: %w", s.OrderID, err)
	}
}

// GetByOrder returns the order's shipment.
func (r *ShipmentRepository) GetByOrder(ctx context.Context, orderID string) (*shipment.Shipment, error) {
	return getShipment(ctx, r.pool, getShipmentByOrderSQL, orderID)
}

// Update locks the shipment row, applies fn and stores the result.
func (r *ShipmentRepository) Update(
	ctx context.Context,
	orderID string,
	fn func(s *shipment.Shipment) error,
) (*shipment.Shipment, error) {
	var updated *shipment.Shipment
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		s, err := getShipment(ctx, tx, lockShipmentByOrderSQL, orderID)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, updateShipmentSQL,
			s.ID, s.Carrier, s.TrackingNumber, string(s.Status),
			s.ShippedAt, s.DeliveredAt, s.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("updating shipment of order %q: %w", orderID, err)
		}
		updated = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func getShipment(ctx context.Context, q querier, query, orderID string) (*shipment.Shipment, error) {
	rows, err := q.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("getting shipment of order %q: %w", orderID, err)
	}
	s, err := pgx.CollectExactlyOneRow(rows, scanShipment)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shipment.ErrNotFound
		}
		return nil, fmt.Errorf("getting shipment of order %q: %w", orderID, err)
	}
	return &s, nil
}

func scanShipment(row pgx.CollectableRow) (shipment.Shipment, error) {
	var (
		s      shipment.Shipment
		status string
	)
	err := row.Scan(
		&s.ID, &s.OrderID, &s.Carrier, &s.TrackingNumber, &status,
		&s.ShippedAt, &s.DeliveredAt, &s.UpdatedAt,
	)
	s.Status = shipment.Status(status)
	return s, err
}
