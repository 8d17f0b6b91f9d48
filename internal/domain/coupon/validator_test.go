package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	rules map[string]*Rule
	err   error
}

func (m *mockRepo) FindByCode(_ context.Context, code string) (*Rule, error) {
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.rules[code]
	if !ok {
		return nil, ErrInvalidCoupon
	}
	return r, nil
}

func TestRule_Check(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past, future := now.Add(-time.Hour), now.Add(time.Hour)

	for _, tc := range []struct {
		name string
		rule Rule
		want error
	}{
		{name: "open", rule: Rule{}},
		{name: "inside window", rule: Rule{ValidFrom: &past, ValidUntil: &future}},
		{name: "not started", rule: Rule{ValidFrom: &future}, want: ErrCouponExpired},
		{name: "ended", rule: Rule{ValidUntil: &past}, want: ErrCouponExpired},
		{name: "uses left", rule: Rule{MaxUses: 3, Uses: 2}},
		{name: "used up", rule: Rule{MaxUses: 3, Uses: 3}, want: ErrCouponUsageLimitReached},
		{name: "unlimited", rule: Rule{Uses: 1000}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.rule.Check(now)
			if tc.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRepoValidator(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)

	repo := &mockRepo{
		rules: map[string]*Rule{
			"WELCOME": {Code: "WELCOME", DiscountType: DiscountFixed, Value: d("5"), Description: "5 off"},
			"OVER":    {Code: "OVER", DiscountType: DiscountFixed, Value: d("5"), ValidUntil: &past},
			"USED":    {Code: "USED", DiscountType: DiscountFixed, Value: d("5"), MaxUses: 3, Uses: 3},
			"MIN3":    {Code: "MIN3", DiscountType: DiscountFixed, Value: d("5"), MinItems: 3},
		},
	}
	v := NewRepoValidator(repo)
	v.now = func() time.Time { return now }
	items := []Item{{VariantID: "v1", Price: d("50"), Quantity: 2}}
	ctx := context.Background()

	t.Run("valid code", func(t *testing.T) {
		got, err := v.Validate(ctx, "WELCOME", items)
		require.NoError(t, err)
		assert.Equal(t, "WELCOME", got.Code)
		assert.True(t, d("5").Equal(got.Amount))
		assert.Equal(t, "5 off", got.Description)
		assert.Zero(t, repo.rules["WELCOME"].Uses, "validation does not count a use")
	})

	for code, want := range map[string]error{
		"NOPE": ErrInvalidCoupon,
		"OVER": ErrCouponExpired,
		"USED": ErrCouponUsageLimitReached,
		"MIN3": ErrInvalidCoupon,
	} {
		t.Run(code, func(t *testing.T) {
			_, err := v.Validate(ctx, code, items)
			require.ErrorIs(t, err, want)
		})
	}

	t.Run("lookup failure is wrapped", func(t *testing.T) {
		failing := NewRepoValidator(&mockRepo{err: errors.New("connection reset")})
		_, err := failing.Validate(ctx, "WELCOME", items)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidCoupon)
		assert.Contains(t, err.Error(), "lookup coupon")
	})
}
