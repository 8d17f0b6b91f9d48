package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/payment"
)

const (
	paymentColumns = `id, order_id, provider, status, amount, currency,
		provider_payment_id, failure_reason, created_at, updated_at`

	createPaymentSQL = `INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	getPaymentSQL = `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	listPaymentsByOrderSQL = `SELECT ` + paymentColumns + ` FROM payments
		WHERE order_id = $1 ORDER BY created_at, id`

	updatePaymentStatusSQL = `UPDATE payments SET
			status = $2,
			provider_payment_id = CASE WHEN $3::text = '' THEN provider_payment_id ELSE $3::text END,
			failure_reason = $4,
			updated_at = $5
		WHERE id = $1
		RETURNING ` + paymentColumns
)

var _ payment.Repository = (*PaymentRepository)(nil)

// PaymentRepository implements payment.Repository backed by PostgreSQL.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository returns a PaymentRepository that uses the given pool.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// Create inserts a payment attempt.
func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	_, err := r.pool.Exec(ctx, createPaymentSQL,
		p.ID, p.OrderID, p.Provider, string(p.Status), p.Amount, p.Currency,
		p.ProviderPaymentID, p.FailureReason, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if foreignKeyViolation(err, "payments_order_id_fkey") {
			return payment.ErrUnknownOrder
		}
		return fmt.Errorf("creating payment for order %q: %w", p.OrderID, err)
	}
	return nil
}

// Get returns a payment by ID.
func (r *PaymentRepository) Get(ctx context.Context, id string) (*payment.Payment, error) {
	return r.one(ctx, getPaymentSQL, id)
}

// ListByOrder returns every attempt for the order, oldest first.
func (r *PaymentRepository) ListByOrder(ctx context.Context, orderID string) ([]payment.Payment, error) {
	rows, err := r.pool.Query(ctx, listPaymentsByOrderSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing payments of order %q: %w", orderID, err)
	}
	payments, err := pgx.CollectRows(rows, scanPayment)
	if err != nil {
		return nil, fmt.Errorf("listing payments of order %q: %w", orderID, err)
	}
	return payments, nil
}

// UpdateStatus sets the status and failure reason. A blank providerPaymentID
// keeps the stored one.
func (r *PaymentRepository) UpdateStatus(
	ctx context.Context,
	id string,
	status payment.Status,
	providerPaymentID, failureReason string,
	at time.Time,
) (*payment.Payment, error) {
	return r.one(ctx, updatePaymentStatusSQL, id, string(status), providerPaymentID, failureReason, at)
}

func (r *PaymentRepository) one(ctx context.Context, query, id string, args ...any) (*payment.Payment, error) {
	rows, err := r.pool.Query(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("payment %q: %w", id, err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanPayment)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrNotFound
		}
		return nil, fmt.Errorf("payment %q: %w", id, err)
	}
	return &p, nil
}

func scanPayment(row pgx.CollectableRow) (payment.Payment, error) {
	var (
		p      payment.Payment
		status string
	)
	err := row.Scan(
		&p.ID, &p.OrderID, &p.Provider, &status, &p.Amount, &p.Currency,
		&p.ProviderPaymentID, &p.FailureReason, &p.CreatedAt, &p.UpdatedAt,
	)
	p.Status = payment.Status(status)
	return p, err
}
