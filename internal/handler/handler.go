// Package handler exposes the storefront services over HTTP with a JSON codec
// built on go-faster/jx.
package handler

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/account"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/payment"
	"github.com/xenking/storefront/internal/domain/shipment"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// Catalog is the subset of catalog.Service used by the handlers.
type Catalog interface {
	ListProducts(ctx context.Context, status catalog.Status) ([]catalog.Product, error)
	GetProduct(ctx context.Context, slug string) (*catalog.Product, error)
	CreateCategory(ctx context.Context, c catalog.Category) (*catalog.Category, error)
	CreateProduct(ctx context.Context, p catalog.Product) (*catalog.Product, error)
	CreateVariant(ctx context.Context, v catalog.Variant) (*catalog.Variant, error)
	UpdateVariantPrice(ctx context.Context, id string, price decimal.Decimal) error
	DeleteVariant(ctx context.Context, id string) error
	DeleteCategory(ctx context.Context, id string) error
	DeleteProduct(ctx context.Context, id string) error
	AddImage(ctx context.Context, img catalog.Image) (*catalog.Image, error)
}

// Accounts is the subset of account.Service used by the handlers.
type Accounts interface {
	CreateUser(ctx context.Context, email, password string, opts account.UserOptions) (*account.User, error)
	UpsertProfile(ctx context.Context, userID string, marketingOptIn bool, notes string) (*account.Profile, error)
	AddAddress(ctx context.Context, a account.Address) (*account.Address, error)
	ListAddresses(ctx context.Context, userID string, typ account.AddressType) ([]account.Address, error)
}

// Carts is the subset of cart.Service used by the handlers.
type Carts interface {
	CreateCart(ctx context.Context, owner cart.Owner) (*cart.Cart, error)
	GetCart(ctx context.Context, id string) (*cart.Cart, error)
	AddItem(ctx context.Context, cartID, variantID string, quantity int) error
	SetQuantity(ctx context.Context, cartID, variantID string, quantity int) error
	RemoveItem(ctx context.Context, cartID, variantID string) error
}

// Orders is the subset of order.Service used by the handlers.
type Orders interface {
	PlaceOrder(ctx context.Context, req order.PlaceOrderRequest) (*order.Order, error)
	GetOrder(ctx context.Context, id string) (*order.Order, error)
	ListCustomerOrders(ctx context.Context, customerID string) ([]order.Order, error)
	RecalcTotals(ctx context.Context, id string) (*order.Order, error)
	MarkPaid(ctx context.Context, id string) (*order.Order, error)
	SetStatus(ctx context.Context, id string, status order.Status) (*order.Order, error)
	SetAdjustments(ctx context.Context, id string, shipping, discount decimal.Decimal) (*order.Order, error)
}

// Payments is the subset of payment.Service used by the handlers.
type Payments interface {
	Record(ctx context.Context, req payment.RecordRequest) (*payment.Payment, error)
	SetStatus(ctx context.Context, id string, upd payment.StatusUpdate) (*payment.Payment, error)
	ListForOrder(ctx context.Context, orderID string) ([]payment.Payment, error)
}

// Shipments is the subset of shipment.Service used by the handlers.
type Shipments interface {
	Create(ctx context.Context, orderID, carrier, trackingNumber string) (*shipment.Shipment, error)
	Get(ctx context.Context, orderID string) (*shipment.Shipment, error)
	Update(ctx context.Context, orderID string, p shipment.Patch) (*shipment.Shipment, error)
}

// Services groups the domain services served over HTTP.
type Services struct {
	Accounts  Accounts
	Catalog   Catalog
	Carts     Carts
	Orders    Orders
	Payments  Payments
	Shipments Shipments
}

// Handler serves the /api routes.
type Handler struct {
	svc  Services
	auth *Security
}

// NewHandler constructs a Handler. Mutating routes are guarded by sec.
func NewHandler(svc Services, sec *Security) *Handler {
	return &Handler{svc: svc, auth: sec}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	public := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, httpmiddleware.Route(pattern, fn))
	}
	scoped := func(scope, pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, httpmiddleware.Route(pattern, h.auth.Require(scope, fn)))
	}

	scoped(auth.ScopeAccountsWrite, "POST /api/users", h.CreateUser)
	scoped(auth.ScopeAccountsWrite, "PUT /api/users/{id}/profile", h.UpsertProfile)
	scoped(auth.ScopeAccountsWrite, "POST /api/users/{id}/addresses", h.AddAddress)
	scoped(auth.ScopeAccountsWrite, "GET /api/users/{id}/addresses", h.ListAddresses)

	public("GET /api/products", h.ListProducts)
	public("GET /api/products/{slug}", h.GetProduct)
	scoped(auth.ScopeCatalogWrite, "POST /api/categories", h.CreateCategory)
	scoped(auth.ScopeCatalogWrite, "DELETE /api/categories/{id}", h.DeleteCategory)
	scoped(auth.ScopeCatalogWrite, "POST /api/products", h.CreateProduct)
	scoped(auth.ScopeCatalogWrite, "DELETE /api/products/{id}", h.DeleteProduct)
	scoped(auth.ScopeCatalogWrite, "POST /api/products/{slug}/images", h.AddProductImage)
	scoped(auth.ScopeCatalogWrite, "POST /api/products/{slug}/variants", h.CreateVariant)
	scoped(auth.ScopeCatalogWrite, "PUT /api/variants/{id}/price", h.UpdateVariantPrice)
	scoped(auth.ScopeCatalogWrite, "DELETE /api/variants/{id}", h.DeleteVariant)

	public("GET /api/carts/{id}", h.GetCart)
	scoped(auth.ScopeSalesWrite, "POST /api/carts", h.CreateCart)
	scoped(auth.ScopeSalesWrite, "POST /api/carts/{id}/items", h.AddCartItem)
	scoped(auth.ScopeSalesWrite, "PUT /api/carts/{id}/items/{variantID}", h.SetCartItemQuantity)
	scoped(auth.ScopeSalesWrite, "DELETE /api/carts/{id}/items/{variantID}", h.RemoveCartItem)

	scoped(auth.ScopeSalesWrite, "POST /api/orders", h.PlaceOrder)
	scoped(auth.ScopeSalesWrite, "GET /api/orders/{id}", h.GetOrder)
	scoped(auth.ScopeSalesWrite, "GET /api/customers/{id}/orders", h.ListCustomerOrders)
	scoped(auth.ScopeSalesWrite, "POST /api/orders/{id}/recalc", h.RecalcTotals)
	scoped(auth.ScopeSalesWrite, "POST /api/orders/{id}/mark-paid", h.MarkPaid)
	scoped(auth.ScopeSalesWrite, "PUT /api/orders/{id}/status", h.SetOrderStatus)
	scoped(auth.ScopeSalesWrite, "PUT /api/orders/{id}/adjustments", h.SetAdjustments)

	scoped(auth.ScopeSalesWrite, "POST /api/orders/{id}/payments", h.RecordPayment)
	scoped(auth.ScopeSalesWrite, "GET /api/orders/{id}/payments", h.ListPayments)
	scoped(auth.ScopeSalesWrite, "PUT /api/payments/{id}/status", h.SetPaymentStatus)

	scoped(auth.ScopeSalesWrite, "POST /api/orders/{id}/shipment", h.CreateShipment)
	scoped(auth.ScopeSalesWrite, "GET /api/orders/{id}/shipment", h.GetShipment)
	scoped(auth.ScopeSalesWrite, "PATCH /api/orders/{id}/shipment", h.UpdateShipment)
}
