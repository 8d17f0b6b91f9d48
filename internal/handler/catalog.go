package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/base"
	"github.com/xenking/storefront/internal/domain/catalog"
)

// ListProducts serves GET /api/products. The optional status query parameter
// filters by product status.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	status := catalog.Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		fail(w, r, base.Invalid("status", "unknown product status"))
		return
	}
	products, err := h.svc.Catalog.ListProducts(r.Context(), status)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range products {
				encodeProduct(e, &products[i])
			}
		})
	})
}

// GetProduct serves GET /api/products/{slug}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Catalog.GetProduct(r.Context(), r.PathValue("slug"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeProduct(e, p) })
}

// CreateCategory serves POST /api/categories.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	c := catalog.Category{IsActive: true}
	err := decodeBody(r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "name":
			c.Name, err = d.Str()
		case "slug":
			c.Slug, err = d.Str()
		case "parent_id":
			var parent string
			if parent, err = d.Str(); err == nil && parent != "" {
				c.ParentID = &parent
			}
		case "is_active":
			c.IsActive, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	created, err := h.svc.Catalog.CreateCategory(r.Context(), c)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeCategory(e, created) })
}

// CreateProduct serves POST /api/products.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var p catalog.Product
	err := decodeBody(r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "name":
			p.Name, err = d.Str()
		case "slug":
			p.Slug, err = d.Str()
		case "description":
			p.Description, err = d.Str()
		case "short_description":
			p.ShortDescription, err = d.Str()
		case "category_id":
			var category string
			if category, err = d.Str(); err == nil && category != "" {
				p.CategoryID = &category
			}
		case "status":
			var status string
			status, err = d.Str()
			p.Status = catalog.Status(status)
		case "is_featured":
			p.IsFeatured, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	created, err := h.svc.Catalog.CreateProduct(r.Context(), p)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeProduct(e, created) })
}

// CreateVariant serves POST /api/products/{slug}/variants.
func (h *Handler) CreateVariant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := h.svc.Catalog.GetProduct(ctx, r.PathValue("slug"))
	if err != nil {
		fail(w, r, err)
		return
	}

	v := catalog.Variant{ProductID: p.ID, IsActive: true}
	err = decodeBody(r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "sku":
			v.SKU, err = d.Str()
		case "attributes":
			v.Attributes, err = decodeAttributes(d)
		case "price":
			v.Price, err = decodeDecimal(d)
		case "compare_at_price":
			if d.Next() == jx.Null {
				return d.Null()
			}
			var compareAt decimal.Decimal
			if compareAt, err = decodeDecimal(d); err == nil {
				v.CompareAtPrice = &compareAt
			}
		case "stock_qty":
			v.StockQty, err = d.Int()
		case "is_active":
			v.IsActive, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	created, err := h.svc.Catalog.CreateVariant(ctx, v)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeVariant(e, created) })
}

// UpdateVariantPrice serves PUT /api/variants/{id}/price. Existing order items
// keep the price they were placed with.
func (h *Handler) UpdateVariantPrice(w http.ResponseWriter, r *http.Request) {
	var (
		price decimal.Decimal
		seen  bool
	)
	err := decodeBody(r, func(d *jx.Decoder, key string) (err error) {
		if key != "price" {
			return d.Skip()
		}
		seen = true
		price, err = decodeDecimal(d)
		return err
	})
	if err == nil && !seen {
		err = base.Invalid("price", "required")
	}
	if err != nil {
		fail(w, r, err)
		return
	}

	if err := h.svc.Catalog.UpdateVariantPrice(r.Context(), r.PathValue("id"), price); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteVariant serves DELETE /api/variants/{id}. Variants referenced by cart
// or order items cannot be deleted.
func (h *Handler) DeleteVariant(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Catalog.DeleteVariant(r.Context(), r.PathValue("id")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteCategory serves DELETE /api/categories/{id}. Child categories and
// products are kept and lose the reference.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Catalog.DeleteCategory(r.Context(), r.PathValue("id")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteProduct serves DELETE /api/products/{id}. Variants and images go with
// the product unless a variant is still referenced by a cart or order.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Catalog.DeleteProduct(r.Context(), r.PathValue("id")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddProductImage serves POST /api/products/{slug}/images.
func (h *Handler) AddProductImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := h.svc.Catalog.GetProduct(ctx, r.PathValue("slug"))
	if err != nil {
		fail(w, r, err)
		return
	}

	img := catalog.Image{ProductID: p.ID}
	err = decodeBody(r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "path":
			img.Path, err = d.Str()
		case "alt_text":
			img.AltText, err = d.Str()
		case "sort_order":
			img.SortOrder, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	created, err := h.svc.Catalog.AddImage(ctx, img)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeImage(e, created) })
}
