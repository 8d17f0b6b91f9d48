package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/account"
	"github.com/xenking/storefront/internal/domain/base"
)

// CreateUser serves POST /api/users. Users created without a password cannot
// log in until one is set.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var (
		email, password string
		opts            account.UserOptions
	)
	err := decodeBody(r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "email":
			email, err = d.Str()
		case "password":
			password, err = d.Str()
		case "first_name":
			opts.FirstName, err = d.Str()
		case "last_name":
			opts.LastName, err = d.Str()
		case "phone":
			opts.Phone, err = d.Str()
		case "is_active":
			var active bool
			if active, err = d.Bool(); err == nil {
				opts.IsActive = account.Flag(active)
			}
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	u, err := h.svc.Accounts.CreateUser(r.Context(), email, password, opts)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeUser(e, u) })
}

// UpsertProfile serves PUT /api/users/{id}/profile.
func (h *Handler) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	var (
		optIn bool
		notes string
	)
	err := decodeBody(r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "marketing_opt_in":
			optIn, err = d.Bool()
		case "notes":
			notes, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	p, err := h.svc.Accounts.UpsertProfile(r.Context(), r.PathValue("id"), optIn, notes)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeProfile(e, p) })
}

// AddAddress serves POST /api/users/{id}/addresses.
func (h *Handler) AddAddress(w http.ResponseWriter, r *http.Request) {
	a := account.Address{UserID: r.PathValue("id")}
	err := decodeBody(r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "address_type":
			var typ string
			typ, err = d.Str()
			a.Type = account.AddressType(typ)
		case "full_name":
			a.FullName, err = d.Str()
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
		case "is_default":
			a.IsDefault, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	created, err := h.svc.Accounts.AddAddress(r.Context(), a)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeAddress(e, created) })
}

// ListAddresses serves GET /api/users/{id}/addresses. The optional type query
// parameter selects shipping or billing addresses.
func (h *Handler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	typ := account.AddressType(r.URL.Query().Get("type"))
	if typ != "" && !typ.Valid() {
		fail(w, r, base.Invalid("type", "must be shipping or billing"))
		return
	}
	addresses, err := h.svc.Accounts.ListAddresses(r.Context(), r.PathValue("id"), typ)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range addresses {
				encodeAddress(e, &addresses[i])
			}
		})
	})
}
