package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage takes a percentage off the subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed takes a fixed amount off, never more than the subtotal.
	DiscountFixed DiscountType = "fixed"
	// DiscountFreeLowest waives one unit of the cheapest line.
	DiscountFreeLowest DiscountType = "free_lowest"
)

var (
	// ErrInvalidCoupon is returned when a code is unknown or the order does
	// not meet the rule's minimum item count.
	ErrInvalidCoupon = errors.New("invalid coupon code")
	// ErrCouponExpired is returned outside the rule's validity window.
	ErrCouponExpired = errors.New("coupon expired")
	// ErrCouponUsageLimitReached is returned when a rule has no uses left.
	ErrCouponUsageLimitReached = errors.New("coupon usage limit reached")
)

// Rule defines a coupon's discount and eligibility constraints.
type Rule struct {
	Code         string
	DiscountType DiscountType
	Value        decimal.Decimal
	MinItems     int
	Description  string
	ValidFrom    *time.Time
	ValidUntil   *time.Time
	MaxUses      int
	Uses         int
}

// Discount is the computed reduction for an order. Code is the rule's stored
// code, whatever casing the customer typed.
type Discount struct {
	Code        string
	Amount      decimal.Decimal
	Description string
}

// Item is an order line as seen by discount calculation.
type Item struct {
	VariantID string
	Price     decimal.Decimal
	Quantity  int
}

// Repository looks up coupon rules. Uses are claimed by the order store when
// the order is written.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
}
