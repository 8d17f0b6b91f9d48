package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Validator checks a coupon code against order lines and returns the discount.
type Validator interface {
	Validate(ctx context.Context, code string, items []Item) (*Discount, error)
}

// Check reports why the rule cannot be redeemed at now, or nil. The usage
// check reads the counter as loaded; the authoritative limit is enforced
// when the use is claimed.
func (r *Rule) Check(now time.Time) error {
	switch {
	case r.ValidFrom != nil && now.Before(*r.ValidFrom):
		return ErrCouponExpired
	case r.ValidUntil != nil && now.After(*r.ValidUntil):
		return ErrCouponExpired
	case r.Exhausted():
		return ErrCouponUsageLimitReached
	}
	return nil
}

// Exhausted reports whether a limited rule has no uses left.
func (r *Rule) Exhausted() bool {
	return r.MaxUses > 0 && r.Uses >= r.MaxUses
}

// RepoValidator implements Validator on top of a Repository. It never counts
// a use itself.
type RepoValidator struct {
	rules Repository
	now   func() time.Time
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(rules Repository) *RepoValidator {
	return &RepoValidator{rules: rules, now: time.Now}
}

// Validate resolves code to its rule and computes the discount for items.
func (v *RepoValidator) Validate(ctx context.Context, code string, items []Item) (*Discount, error) {
	rule, err := v.rules.FindByCode(ctx, code)
	switch {
	case errors.Is(err, ErrInvalidCoupon):
		return nil, ErrInvalidCoupon
	case err != nil:
		return nil, errors.Wrapf(err, "lookup coupon %q", code)
	}
	if err := rule.Check(v.now()); err != nil {
		return nil, err
	}

	d, err := Apply(rule, items)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
