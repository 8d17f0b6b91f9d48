package base

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestamps_Touch(t *testing.T) {
	var ts Timestamps
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ts.Touch(first)
	assert.Equal(t, first, ts.CreatedAt)
	assert.Equal(t, first, ts.UpdatedAt)

	later := first.Add(time.Hour)
	ts.Touch(later)
	assert.Equal(t, first, ts.CreatedAt)
	assert.Equal(t, later, ts.UpdatedAt)
}

func TestValidation(t *testing.T) {
	require.NoError(t, Required("name", "x"))

	err := First(nil, Required("name", "  "), Invalid("city", "too long"))
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "name", vErr.Field)
	assert.Equal(t, "invalid name: required", err.Error())
	assert.NoError(t, First())
}

func TestMoney(t *testing.T) {
	for _, tc := range []struct {
		value  string
		reason string
	}{
		{value: "0"},
		{value: "10.5"},
		{value: "19.990"},
		{value: "99999999.99"},
		{value: "-0.01", reason: "must be greater than or equal to 0.00"},
		{value: "1.005", reason: "must have at most 2 decimal places"},
		{value: "100000000", reason: "must be less than 100000000.00"},
	} {
		t.Run(tc.value, func(t *testing.T) {
			err := Money("amount", decimal.RequireFromString(tc.value))
			if tc.reason == "" {
				require.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, "amount", vErr.Field)
			assert.Equal(t, tc.reason, vErr.Reason)
		})
	}
}
