// Package base holds field groups and validation helpers shared by the
// storefront domain packages.
package base

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MaxAmount is the exclusive upper bound of stored money values, which are
// NUMERIC(10,2) columns.
var MaxAmount = decimal.New(1, 8)

// Timestamps is embedded by records that track creation and modification time.
type Timestamps struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Touch sets UpdatedAt to now, and CreatedAt as well when it is still zero.
func (t *Timestamps) Touch(now time.Time) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
}

// ValidationError reports a field that failed validation before any write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Invalid returns a *ValidationError for field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Required returns a *ValidationError when value is blank.
func Required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Reason: "required"}
	}
	return nil
}

// First returns the first non-nil error.
func First(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Money returns a *ValidationError unless v is a non-negative amount with at
// most 2 decimal places below MaxAmount.
func Money(field string, v decimal.Decimal) error {
	switch {
	case v.IsNegative():
		return Invalid(field, "must be greater than or equal to 0.00")
	case !v.Equal(v.Round(2)):
		return Invalid(field, "must have at most 2 decimal places")
	case v.GreaterThanOrEqual(MaxAmount):
		return Invalid(field, "must be less than 100000000.00")
	}
	return nil
}
