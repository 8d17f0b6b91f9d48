package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/cart"
)

// CreateCart serves POST /api/carts with either user_id or session_key.
func (h *Handler) CreateCart(w http.ResponseWriter, r *http.Request) {
	var owner cart.Owner
	err := decodeBody(r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "user_id":
			owner.UserID, err = d.Str()
		case "session_key":
			owner.SessionKey, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	c, err := h.svc.Carts.CreateCart(r.Context(), owner)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeCart(e, c) })
}

// GetCart serves GET /api/carts/{id}. Line totals and subtotal use current
// variant prices.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.writeCart(w, r, http.StatusOK)
}

// AddCartItem serves POST /api/carts/{id}/items.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var (
		variantID string
		quantity  = 1
	)
	err := decodeBody(r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "variant_id":
			variantID, err = d.Str()
		case "quantity":
			quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	if err := h.svc.Carts.AddItem(r.Context(), r.PathValue("id"), variantID, quantity); err != nil {
		fail(w, r, err)
		return
	}
	h.writeCart(w, r, http.StatusCreated)
}

// SetCartItemQuantity serves PUT /api/carts/{id}/items/{variantID}.
func (h *Handler) SetCartItemQuantity(w http.ResponseWriter, r *http.Request) {
	var quantity int
	err := decodeBody(r, func(d *jx.Decoder, key string) (err error) {
		if key != "quantity" {
			return d.Skip()
		}
		quantity, err = d.Int()
		return err
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	if err := h.svc.Carts.SetQuantity(r.Context(), r.PathValue("id"), r.PathValue("variantID"), quantity); err != nil {
		fail(w, r, err)
		return
	}
	h.writeCart(w, r, http.StatusOK)
}

// RemoveCartItem serves DELETE /api/carts/{id}/items/{variantID}.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Carts.RemoveItem(r.Context(), r.PathValue("id"), r.PathValue("variantID")); err != nil {
		fail(w, r, err)
		return
	}
	h.writeCart(w, r, http.StatusOK)
}

func (h *Handler) writeCart(w http.ResponseWriter, r *http.Request, code int) {
	c, err := h.svc.Carts.GetCart(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, code, func(e *jx.Encoder) { encodeCart(e, c) })
}
