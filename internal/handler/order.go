package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/order"
)

// PlaceOrder serves POST /api/orders, turning a cart into an order.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	req := order.PlaceOrderRequest{ShippingAmount: decimal.Zero}
	err := decodeBody(r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "cart_id":
			req.CartID, err = d.Str()
		case "customer_id":
			req.CustomerID, err = d.Str()
		case "shipping":
			err = decodeShipping(d, &req.Shipping)
		case "shipping_amount":
			req.ShippingAmount, err = decodeDecimal(d)
		case "notes":
			req.Notes, err = d.Str()
		case "coupon_code":
			req.CouponCode, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	o, err := h.svc.Orders.PlaceOrder(r.Context(), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeOrder(e, o) })
}

func decodeShipping(d *jx.Decoder, a *order.ShippingAddress) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) (err error) {
		switch string(key) {
		case "name":
			a.Name, err = d.Str()
		case "phone":
			a.Phone, err = d.Str()
		case "country":
			a.Country, err = d.Str()
		case "city":
			a.City, err = d.Str()
		case "district":
			a.District, err = d.Str()
		case "street":
			a.Street, err = d.Str()
		case "building":
			a.Building, err = d.Str()
		case "postal_code":
			a.PostalCode, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
}

// GetOrder serves GET /api/orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	h.respondOrder(w, r)(h.svc.Orders.GetOrder(r.Context(), r.PathValue("id")))
}

// ListCustomerOrders serves GET /api/customers/{id}/orders, newest first.
func (h *Handler) ListCustomerOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.Orders.ListCustomerOrders(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range orders {
				encodeOrder(e, &orders[i])
			}
		})
	})
}

// RecalcTotals serves POST /api/orders/{id}/recalc.
func (h *Handler) RecalcTotals(w http.ResponseWriter, r *http.Request) {
	h.respondOrder(w, r)(h.svc.Orders.RecalcTotals(r.Context(), r.PathValue("id")))
}

// MarkPaid serves POST /api/orders/{id}/mark-paid. It succeeds from any status.
func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	h.respondOrder(w, r)(h.svc.Orders.MarkPaid(r.Context(), r.PathValue("id")))
}

// SetOrderStatus serves PUT /api/orders/{id}/status.
func (h *Handler) SetOrderStatus(w http.ResponseWriter, r *http.Request) {
	var status string
	err := decodeBody(r, func(d *jx.Decoder, key string) (err error) {
		if key != "status" {
			return d.Skip()
		}
		status, err = d.Str()
		return err
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	h.respondOrder(w, r)(h.svc.Orders.SetStatus(r.Context(), r.PathValue("id"), order.Status(status)))
}

// SetAdjustments serves PUT /api/orders/{id}/adjustments. Totals are not
// recomputed; call the recalc route afterwards.
func (h *Handler) SetAdjustments(w http.ResponseWriter, r *http.Request) {
	shipping, discount := decimal.Zero, decimal.Zero
	err := decodeBody(r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "shipping_amount":
			shipping, err = decodeDecimal(d)
		case "discount_amount":
			discount, err = decodeDecimal(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	h.respondOrder(w, r)(h.svc.Orders.SetAdjustments(r.Context(), r.PathValue("id"), shipping, discount))
}

func (h *Handler) respondOrder(w http.ResponseWriter, r *http.Request) func(*order.Order, error) {
	return func(o *order.Order, err error) {
		if err != nil {
			fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
	}
}
