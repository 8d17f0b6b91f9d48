package order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestOrder_RecalcTotals(t *testing.T) {
	o := &Order{
		ShippingAmount: d("10.00"),
		DiscountAmount: d("5.00"),
		Items:          []Item{{UnitPrice: d("50.00"), Quantity: 2}},
	}
	o.RecalcTotals()
	assert.True(t, d("100.00").Equal(o.SubtotalAmount), o.SubtotalAmount.String())
	assert.True(t, d("105.00").Equal(o.TotalAmount), o.TotalAmount.String())

	t.Run("discount above subtotal goes negative", func(t *testing.T) {
		o.DiscountAmount = d("200")
		o.RecalcTotals()
		assert.True(t, d("-90").Equal(o.TotalAmount), o.TotalAmount.String())
	})

	t.Run("no items", func(t *testing.T) {
		empty := &Order{ShippingAmount: d("7")}
		empty.RecalcTotals()
		assert.True(t, empty.SubtotalAmount.IsZero())
		assert.True(t, d("7").Equal(empty.TotalAmount))
	})
}

func TestOrder_MarkPaid(t *testing.T) {
	for _, from := range []Status{StatusNew, StatusCancelled, StatusRefunded, StatusPaid} {
		o := &Order{Status: from}
		o.MarkPaid()
		assert.Equal(t, StatusPaid, o.Status, "from %s", from)
	}
}

func TestStatus_Valid(t *testing.T) {
	assert.True(t, StatusPendingPayment.Valid())
	assert.False(t, Status("lost").Valid())
	assert.False(t, Status("").Valid())
}

func TestShippingAddress_Validate(t *testing.T) {
	require.NoError(t, ShippingAddress{Name: "Sara", City: "Riyadh", Street: "King Fahd Rd"}.Validate())
	err := ShippingAddress{Name: "Sara", Street: "King Fahd Rd"}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shipping_city")
}

func TestSnapshot(t *testing.T) {
	c := &cart.Cart{Items: []cart.Item{{
		VariantID:   "var-1",
		Quantity:    2,
		SKU:         "TS-BLK-M",
		ProductName: "Linen Shirt",
		Attributes:  catalog.Attributes{"size": "M"},
		Price:       d("50.00"),
	}}}

	items := Snapshot(c)
	require.Len(t, items, 1)
	assert.Equal(t, "TS-BLK-M", items[0].SKU)
	assert.Equal(t, "Linen Shirt", items[0].ProductName)
	assert.True(t, d("100").Equal(items[0].LineTotal()))

	// Later catalog edits do not reach the order line.
	c.Items[0].Price = d("60.00")
	c.Items[0].Attributes["size"] = "L"
	assert.True(t, d("50").Equal(items[0].UnitPrice))
	assert.Equal(t, "M", items[0].Attributes["size"])
}
