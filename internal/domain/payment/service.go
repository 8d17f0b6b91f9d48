package payment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/base"
)

// RecordRequest describes a new payment attempt.
type RecordRequest struct {
	OrderID           string
	Provider          string
	Amount            decimal.Decimal
	Currency          string
	ProviderPaymentID string
}

// StatusUpdate describes a provider callback or manual status change.
type StatusUpdate struct {
	Status            Status
	ProviderPaymentID string
	FailureReason     string
}

// Service records payment attempts and their status.
type Service struct {
	payments Repository
	currency string
	now      func() time.Time
}

// NewService creates a payment Service. New attempts without a currency use
// defaultCurrency.
func NewService(payments Repository, defaultCurrency string) *Service {
	return &Service{payments: payments, currency: defaultCurrency, now: time.Now}
}

// Record appends a new attempt in the initiated state.
func (s *Service) Record(ctx context.Context, req RecordRequest) (*Payment, error) {
	if err := base.First(
		base.Required("order_id", req.OrderID),
		base.Required("provider", req.Provider),
	); err != nil {
		return nil, err
	}
	if err := base.Money("amount", req.Amount); err != nil {
		return nil, err
	}
	if req.Currency == "" {
		req.Currency = s.currency
	}

	p := &Payment{
		ID:                uuid.New().String(),
		OrderID:           req.OrderID,
		Provider:          req.Provider,
		Status:            StatusInitiated,
		Amount:            req.Amount,
		Currency:          req.Currency,
		ProviderPaymentID: req.ProviderPaymentID,
	}
	p.Touch(s.now())
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create payment")
	}
	return p, nil
}

// SetStatus stores any known status regardless of the current one. Provider
// payment ID is kept when the update leaves it blank.
func (s *Service) SetStatus(ctx context.Context, id string, upd StatusUpdate) (*Payment, error) {
	if !upd.Status.Valid() {
		return nil, ErrUnknownStatus
	}
	return s.payments.UpdateStatus(ctx, id, upd.Status, upd.ProviderPaymentID, upd.FailureReason, s.now())
}

// ListForOrder returns every attempt for the order, oldest first.
func (s *Service) ListForOrder(ctx context.Context, orderID string) ([]Payment, error) {
	return s.payments.ListByOrder(ctx, orderID)
}
