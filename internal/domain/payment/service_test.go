package payment

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/base"
)

type mockRepo struct {
	payments []*Payment
}

func (m *mockRepo) Create(_ context.Context, p *Payment) error {
	if p.OrderID == "ghost" {
		return ErrUnknownOrder
	}
	m.payments = append(m.payments, p)
	return nil
}

func (m *mockRepo) Get(_ context.Context, id string) (*Payment, error) {
	for _, p := range m.payments {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) ListByOrder(_ context.Context, orderID string) ([]Payment, error) {
	var out []Payment
	for _, p := range m.payments {
		if p.OrderID == orderID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockRepo) UpdateStatus(ctx context.Context, id string, status Status, providerPaymentID, failureReason string, at time.Time) (*Payment, error) {
	p, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Status = status
	if providerPaymentID != "" {
		p.ProviderPaymentID = providerPaymentID
	}
	p.FailureReason = failureReason
	p.UpdatedAt = at
	return p, nil
}

func TestService(t *testing.T) {
	ctx := context.Background()
	repo := &mockRepo{}
	svc := NewService(repo, "SAR")

	first, err := svc.Record(ctx, RecordRequest{OrderID: "o1", Provider: "moyasar", Amount: decimal.RequireFromString("105.00")})
	require.NoError(t, err)
	assert.Equal(t, StatusInitiated, first.Status)
	assert.Equal(t, "SAR", first.Currency)

	second, err := svc.Record(ctx, RecordRequest{
		OrderID: "o1", Provider: "tap", Amount: decimal.RequireFromString("105.00"), Currency: "USD", ProviderPaymentID: "tap_1",
	})
	require.NoError(t, err)
	assert.Equal(t, "USD", second.Currency)

	_, err = svc.Record(ctx, RecordRequest{OrderID: "ghost", Provider: "tap"})
	require.ErrorIs(t, err, ErrUnknownOrder)

	var vErr *base.ValidationError
	_, err = svc.Record(ctx, RecordRequest{OrderID: "o1"})
	require.ErrorAs(t, err, &vErr)
	_, err = svc.Record(ctx, RecordRequest{OrderID: "o1", Provider: "tap", Amount: decimal.NewFromInt(-1)})
	require.ErrorAs(t, err, &vErr)

	failed, err := svc.SetStatus(ctx, first.ID, StatusUpdate{Status: StatusFailed, FailureReason: "card declined"})
	require.NoError(t, err)
	assert.Equal(t, "card declined", failed.FailureReason)

	captured, err := svc.SetStatus(ctx, second.ID, StatusUpdate{Status: StatusCaptured})
	require.NoError(t, err)
	assert.Equal(t, "tap_1", captured.ProviderPaymentID, "blank update keeps provider id")

	_, err = svc.SetStatus(ctx, second.ID, StatusUpdate{Status: "settled"})
	require.ErrorIs(t, err, ErrUnknownStatus)
	_, err = svc.SetStatus(ctx, "missing", StatusUpdate{Status: StatusCaptured})
	require.ErrorIs(t, err, ErrNotFound)

	all, err := svc.ListForOrder(ctx, "o1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, StatusFailed, all[0].Status)
	assert.Equal(t, StatusCaptured, all[1].Status)
}
