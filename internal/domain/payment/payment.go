package payment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/base"
)

// Status is the state of a single payment attempt. It is independent of the
// order status: capturing a payment does not change the order.
type Status string

const (
	StatusInitiated  Status = "initiated"
	StatusAuthorized Status = "authorized"
	StatusCaptured   Status = "captured"
	StatusFailed     Status = "failed"
	StatusRefunded   Status = "refunded"
)

// Valid reports whether s is a known payment status.
func (s Status) Valid() bool {
	switch s {
	case StatusInitiated, StatusAuthorized, StatusCaptured, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

var (
	// ErrNotFound is returned when a payment does not exist.
	ErrNotFound = errors.New("payment not found")
	// ErrUnknownOrder is returned when a payment references a missing order.
	ErrUnknownOrder = errors.New("order does not exist")
	// ErrUnknownStatus is returned for status values outside the enum.
	ErrUnknownStatus = errors.New("unknown payment status")
)

// Payment is one attempt to pay for an order. An order may have many.
type Payment struct {
	ID                string
	OrderID           string
	Provider          string
	Status            Status
	Amount            decimal.Decimal
	Currency          string
	ProviderPaymentID string
	FailureReason     string
	base.Timestamps
}

// Repository defines persistence operations for payments. Payments are
// append-only and never deleted.
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	Get(ctx context.Context, id string) (*Payment, error)
	ListByOrder(ctx context.Context, orderID string) ([]Payment, error)
	UpdateStatus(ctx context.Context, id string, status Status, providerPaymentID, failureReason string, at time.Time) (*Payment, error)
}
