package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/payment"
)

// RecordPayment serves POST /api/orders/{id}/payments. Recording a payment
// never changes the order status.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	req := payment.RecordRequest{OrderID: r.PathValue("id")}
	err := decodeBody(r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "provider":
			req.Provider, err = d.Str()
		case "amount":
			req.Amount, err = decodeDecimal(d)
		case "currency":
			req.Currency, err = d.Str()
		case "provider_payment_id":
			req.ProviderPaymentID, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	p, err := h.svc.Payments.Record(r.Context(), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodePayment(e, p) })
}

// ListPayments serves GET /api/orders/{id}/payments, oldest first.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.svc.Payments.ListForOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range payments {
				encodePayment(e, &payments[i])
			}
		})
	})
}

// SetPaymentStatus serves PUT /api/payments/{id}/status.
func (h *Handler) SetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	var upd payment.StatusUpdate
	err := decodeBody(r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "status":
			var status string
			status, err = d.Str()
			upd.Status = payment.Status(status)
		case "provider_payment_id":
			upd.ProviderPaymentID, err = d.Str()
		case "failure_reason":
			upd.FailureReason, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	p, err := h.svc.Payments.SetStatus(r.Context(), r.PathValue("id"), upd)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodePayment(e, p) })
}
