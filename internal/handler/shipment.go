package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/shipment"
)

// CreateShipment serves POST /api/orders/{id}/shipment. An order has at most
// one shipment.
func (h *Handler) CreateShipment(w http.ResponseWriter, r *http.Request) {
	var carrier, tracking string
	err := decodeBody(r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "carrier":
			carrier, err = d.Str()
		case "tracking_number":
			tracking, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	s, err := h.svc.Shipments.Create(r.Context(), r.PathValue("id"), carrier, tracking)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeShipment(e, s) })
}

// GetShipment serves GET /api/orders/{id}/shipment.
func (h *Handler) GetShipment(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Shipments.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeShipment(e, s) })
}

// UpdateShipment serves PATCH /api/orders/{id}/shipment. Absent fields are
// left unchanged; a null shipped_at or delivered_at clears the timestamp.
func (h *Handler) UpdateShipment(w http.ResponseWriter, r *http.Request) {
	var p shipment.Patch
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		switch key {
		case "carrier":
			v, err := d.Str()
			p.Carrier = &v
			return err
		case "tracking_number":
			v, err := d.Str()
			p.TrackingNumber = &v
			return err
		case "status":
			v, err := d.Str()
			status := shipment.Status(v)
			p.Status = &status
			return err
		case "shipped_at":
			if d.Next() == jx.Null {
				p.ClearShippedAt = true
				return d.Null()
			}
			v, err := decodeTime(d)
			p.ShippedAt = &v
			return err
		case "delivered_at":
			if d.Next() == jx.Null {
				p.ClearDeliveredAt = true
				return d.Null()
			}
			v, err := decodeTime(d)
			p.DeliveredAt = &v
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	s, err := h.svc.Shipments.Update(r.Context(), r.PathValue("id"), p)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeShipment(e, s) })
}
