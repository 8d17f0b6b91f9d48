package handler

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/account"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/payment"
	"github.com/xenking/storefront/internal/domain/shipment"
)

const maxBodySize = 1 << 20

// writeJSON writes the value built by fn with the given status code.
func writeJSON(w http.ResponseWriter, code int, fn func(e *jx.Encoder)) {
	var e jx.Encoder
	fn(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}

// decodeBody iterates the fields of the JSON object in the request body.
// Unknown fields are skipped.
func decodeBody(r *http.Request, field func(d *jx.Decoder, key string) error) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := jx.DecodeBytes(data).ObjBytes(func(d *jx.Decoder, key []byte) error {
		return field(d, string(key))
	}); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// decodeDecimal accepts both JSON numbers and numeric strings.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(s)
	default:
		raw, err := d.Raw()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(string(raw))
	}
}

func decodeTime(d *jx.Decoder) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, s)
}

// decodeAttributes reads a flat object of scalar values.
func decodeAttributes(d *jx.Decoder) (catalog.Attributes, error) {
	attrs := catalog.Attributes{}
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var (
			v   any
			err error
		)
		switch d.Next() {
		case jx.String:
			v, err = d.Str()
		case jx.Bool:
			v, err = d.Bool()
		case jx.Number:
			v, err = d.Float64()
		case jx.Null:
			err = d.Null()
		default:
			return fmt.Errorf("attribute %q: unsupported value type %s", key, d.Next())
		}
		if err != nil {
			return err
		}
		attrs[string(key)] = v
		return nil
	})
	return attrs, err
}

func field(e *jx.Encoder, name string, fn func(e *jx.Encoder)) {
	e.Field(name, fn)
}

func str(e *jx.Encoder, name, v string) {
	e.Field(name, func(e *jx.Encoder) { e.Str(v) })
}

func money(e *jx.Encoder, name string, v decimal.Decimal) {
	e.Field(name, func(e *jx.Encoder) { e.Str(v.StringFixed(2)) })
}

func timestamp(e *jx.Encoder, name string, t time.Time) {
	e.Field(name, func(e *jx.Encoder) { e.Str(t.UTC().Format(time.RFC3339)) })
}

func optTimestamp(e *jx.Encoder, name string, t *time.Time) {
	if t == nil {
		e.Field(name, func(e *jx.Encoder) { e.Null() })
		return
	}
	timestamp(e, name, *t)
}

func optStr(e *jx.Encoder, name string, v *string) {
	if v == nil {
		e.Field(name, func(e *jx.Encoder) { e.Null() })
		return
	}
	str(e, name, *v)
}

func encodeAttributes(e *jx.Encoder, attrs catalog.Attributes) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	e.Obj(func(e *jx.Encoder) {
		for _, k := range keys {
			e.Field(k, func(e *jx.Encoder) { encodeScalar(e, attrs[k]) })
		}
	})
}

func encodeScalar(e *jx.Encoder, v any) {
	switch v := v.(type) {
	case nil:
		e.Null()
	case string:
		e.Str(v)
	case bool:
		e.Bool(v)
	case float64:
		e.Float64(v)
	case int:
		e.Int(v)
	case int64:
		e.Int64(v)
	default:
		e.Str(fmt.Sprint(v))
	}
}

// encodeUser leaves out the password hash.
func encodeUser(e *jx.Encoder, u *account.User) {
	e.Obj(func(e *jx.Encoder) {
		str(e, "id", u.ID)
		str(e, "email", u.Email)
		str(e, "first_name", u.FirstName)
		str(e, "last_name", u.LastName)
		str(e, "display_name", u.DisplayName())
		str(e, "phone", u.Phone)
		field(e, "is_active", func(e *jx.Encoder) { e.Bool(u.IsActive) })
		field(e, "is_staff", func(e *jx.Encoder) { e.Bool(u.IsStaff) })
		field(e, "is_superuser", func(e *jx.Encoder) { e.Bool(u.IsSuperuser) })
		field(e, "has_usable_password", func(e *jx.Encoder) { e.Bool(u.HasUsablePassword()) })
		timestamp(e, "date_joined", u.DateJoined)
	})
}

func encodeProfile(e *jx.Encoder, p *account.Profile) {
	e.Obj(func(e *jx.Encoder) {
		str(e, "user_id", p.UserID)
		field(e, "marketing_opt_in", func(e *jx.Encoder) { e.Bool(p.MarketingOptIn) })
		str(e, "notes", p.Notes)
		timestamp(e, "updated_at", p.UpdatedAt)
	})
}

func encodeAddress(e *jx.Encoder, a *account.Address) {
	e.Obj(func(e *jx.Encoder) {
		str(e, "id", a.ID)
		str(e, "user_id", a.UserID)
		str(e, "address_type", string(a.Type))
		str(e, "full_name", a.FullName)
		str(e, "phone", a.Phone)
		str(e, "country", a.Country)
		str(e, "city", a.City)
		str(e, "district", a.District)
		str(e, "street", a.Street)
		str(e, "building", a.Building)
		str(e, "postal_code", a.PostalCode)
		field(e, "is_default", func(e *jx.Encoder) { e.Bool(a.IsDefault) })
	})
}

func encodeVariant(e *jx.Encoder, v *catalog.Variant) {
	e.Obj(func(e *jx.Encoder) {
		str(e, "id", v.ID)
		str(e, "product_id", v.ProductID)
		str(e, "sku", v.SKU)
		field(e, "attributes", func(e *jx.Encoder) { encodeAttributes(e, v.Attributes) })
		money(e, "price", v.Price)
		if v.CompareAtPrice != nil {
			money(e, "compare_at_price", *v.CompareAtPrice)
		} else {
			field(e, "compare_at_price", func(e *jx.Encoder) { e.Null() })
		}
		field(e, "stock_qty", func(e *jx.Encoder) { e.Int(v.StockQty) })
		field(e, "is_active", func(e *jx.Encoder) { e.Bool(v.IsActive) })
		field(e, "in_stock", func(e *jx.Encoder) { e.Bool(v.InStock()) })
	})
}

func encodeCategory(e *jx.Encoder, c *catalog.Category) {
	e.Obj(func(e *jx.Encoder) {
		str(e, "id", c.ID)
		str(e, "name", c.Name)
		str(e, "slug", c.Slug)
		optStr(e, "parent_id", c.ParentID)
		field(e, "is_active", func(e *jx.Encoder) { e.Bool(c.IsActive) })
	})
}

func encodeImage(e *jx.Encoder, img *catalog.Image) {
	e.Obj(func(e *jx.Encoder) {
		str(e, "id", img.ID)
		str(e, "path", img.Path)
		str(e, "alt_text", img.AltText)
		field(e, "sort_order", func(e *jx.Encoder) { e.Int(img.SortOrder) })
	})
}

func encodeProduct(e *jx.Encoder, p *catalog.Product) {
	e.Obj(func(e *jx.Encoder) {
		str(e, "id", p.ID)
		str(e, "name", p.Name)
		str(e, "slug", p.Slug)
		str(e, "description", p.Description)
		str(e, "short_description", p.ShortDescription)
		optStr(e, "category_id", p.CategoryID)
		str(e, "status", string(p.Status))
		field(e, "is_featured", func(e *jx.Encoder) { e.Bool(p.IsFeatured) })
		field(e, "images", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for i := range p.Images {
					encodeImage(e, &p.Images[i])
				}
			})
		})
		field(e, "variants", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for i := range p.Variants {
					encodeVariant(e, &p.Variants[i])
				}
			})
		})
	})
}

func encodeCart(e *jx.Encoder, c *cart.Cart) {
	e.Obj(func(e *jx.Encoder) {
		str(e, "id", c.ID)
		optStr(e, "user_id", c.UserID)
		str(e, "session_key", c.SessionKey)
		field(e, "items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, item := range c.Items {
					e.Obj(func(e *jx.Encoder) {
						str(e, "variant_id", item.VariantID)
						str(e, "sku", item.SKU)
						str(e, "product_name", item.ProductName)
						field(e, "attributes", func(e *jx.Encoder) { encodeAttributes(e, item.Attributes) })
						money(e, "price", item.Price)
						field(e, "quantity", func(e *jx.Encoder) { e.Int(item.Quantity) })
						money(e, "line_total", item.LineTotal())
						timestamp(e, "added_at", item.AddedAt)
					})
				}
			})
		})
		field(e, "total_quantity", func(e *jx.Encoder) { e.Int(c.TotalQuantity()) })
		money(e, "subtotal", c.Subtotal())
		timestamp(e, "updated_at", c.UpdatedAt)
	})
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		str(e, "id", o.ID)
		str(e, "customer_id", o.CustomerID)
		str(e, "status", string(o.Status))
		timestamp(e, "placed_at", o.PlacedAt)
		field(e, "shipping", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				str(e, "name", o.Shipping.Name)
				str(e, "phone", o.Shipping.Phone)
				str(e, "country", o.Shipping.Country)
				str(e, "city", o.Shipping.City)
				str(e, "district", o.Shipping.District)
				str(e, "street", o.Shipping.Street)
				str(e, "building", o.Shipping.Building)
				str(e, "postal_code", o.Shipping.PostalCode)
			})
		})
		str(e, "notes", o.Notes)
		str(e, "currency", o.Currency)
		str(e, "coupon_code", o.CouponCode)
		money(e, "subtotal_amount", o.SubtotalAmount)
		money(e, "shipping_amount", o.ShippingAmount)
		money(e, "discount_amount", o.DiscountAmount)
		money(e, "total_amount", o.TotalAmount)
		field(e, "items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, item := range o.Items {
					e.Obj(func(e *jx.Encoder) {
						str(e, "id", item.ID)
						str(e, "variant_id", item.VariantID)
						str(e, "sku", item.SKU)
						str(e, "product_name", item.ProductName)
						field(e, "attributes", func(e *jx.Encoder) { encodeAttributes(e, item.Attributes) })
						money(e, "unit_price", item.UnitPrice)
						field(e, "quantity", func(e *jx.Encoder) { e.Int(item.Quantity) })
						money(e, "line_total", item.LineTotal())
					})
				}
			})
		})
		timestamp(e, "updated_at", o.UpdatedAt)
	})
}

func encodePayment(e *jx.Encoder, p *payment.Payment) {
	e.Obj(func(e *jx.Encoder) {
		str(e, "id", p.ID)
		str(e, "order_id", p.OrderID)
		str(e, "provider", p.Provider)
		str(e, "status", string(p.Status))
		money(e, "amount", p.Amount)
		str(e, "currency", p.Currency)
		str(e, "provider_payment_id", p.ProviderPaymentID)
		str(e, "failure_reason", p.FailureReason)
		timestamp(e, "created_at", p.CreatedAt)
		timestamp(e, "updated_at", p.UpdatedAt)
	})
}

func encodeShipment(e *jx.Encoder, s *shipment.Shipment) {
	e.Obj(func(e *jx.Encoder) {
		str(e, "id", s.ID)
		str(e, "order_id", s.OrderID)
		str(e, "carrier", s.Carrier)
		str(e, "tracking_number", s.TrackingNumber)
		str(e, "status", string(s.Status))
		optTimestamp(e, "shipped_at", s.ShippedAt)
		optTimestamp(e, "delivered_at", s.DeliveredAt)
		timestamp(e, "updated_at", s.UpdatedAt)
	})
}
