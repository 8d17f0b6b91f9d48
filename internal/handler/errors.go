package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/account"
	"github.com/xenking/storefront/internal/domain/base"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/payment"
	"github.com/xenking/storefront/internal/domain/shipment"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// errBadRequest marks request bodies that could not be decoded.
var errBadRequest = errors.New("malformed request body")

var (
	badRequestErrors   = []error{account.ErrEmailRequired}
	unauthorizedErrors = []error{account.ErrInvalidCredentials}

	notFoundErrors = []error{
		account.ErrNotFound, catalog.ErrNotFound, cart.ErrNotFound, cart.ErrItemNotFound,
		order.ErrNotFound, payment.ErrNotFound, shipment.ErrNotFound,
	}
	conflictErrors = []error{
		account.ErrEmailTaken, catalog.ErrNameTaken, catalog.ErrSlugTaken, catalog.ErrSKUTaken,
		catalog.ErrVariantProtected, cart.ErrDuplicateItem, shipment.ErrExists,
	}
	unprocessableErrors = []error{
		cart.ErrOwnerRequired, cart.ErrUnknownVariant,
		order.ErrEmptyCart, order.ErrCartOwnerMismatch, order.ErrUnknownStatus, order.ErrUnknownCustomer,
		payment.ErrUnknownOrder, payment.ErrUnknownStatus,
		shipment.ErrUnknownOrder, shipment.ErrUnknownStatus,
		coupon.ErrInvalidCoupon, coupon.ErrCouponExpired, coupon.ErrCouponUsageLimitReached,
		account.ErrSuperuserNotStaff, account.ErrSuperuserNotSuperuser,
	}
)

func writeError(w http.ResponseWriter, code int, message string) {
	httpmiddleware.WriteError(w, code, message)
}

// fail maps err to a status code and writes the JSON error body. Unknown
// errors are logged and hidden behind a 500.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *base.ValidationError
	switch {
	case errors.Is(err, errBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, vErr.Error())
	case matches(err, badRequestErrors):
		writeError(w, http.StatusBadRequest, rootMessage(err, badRequestErrors))
	case matches(err, unauthorizedErrors):
		writeError(w, http.StatusUnauthorized, rootMessage(err, unauthorizedErrors))
	case matches(err, notFoundErrors):
		writeError(w, http.StatusNotFound, rootMessage(err, notFoundErrors))
	case matches(err, conflictErrors):
		writeError(w, http.StatusConflict, rootMessage(err, conflictErrors))
	case matches(err, unprocessableErrors):
		writeError(w, http.StatusUnprocessableEntity, rootMessage(err, unprocessableErrors))
	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func matches(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// rootMessage returns the text of the sentinel err wraps, without the
// wrapping context.
func rootMessage(err error, targets []error) string {
	for _, target := range targets {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return err.Error()
}
