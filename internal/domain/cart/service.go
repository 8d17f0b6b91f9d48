package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/base"
)

// Owner identifies who a cart belongs to: a signed-in user or a guest session.
type Owner struct {
	UserID     string
	SessionKey string
}

// Service manages carts and their lines.
type Service struct {
	carts Repository
	now   func() time.Time
}

// NewService creates a cart Service.
func NewService(carts Repository) *Service {
	return &Service{carts: carts, now: time.Now}
}

// CreateCart opens an empty cart for exactly one owner.
func (s *Service) CreateCart(ctx context.Context, owner Owner) (*Cart, error) {
	if owner.UserID == "" && owner.SessionKey == "" {
		return nil, ErrOwnerRequired
	}
	if owner.UserID != "" && owner.SessionKey != "" {
		return nil, base.Invalid("owner", "set either user_id or session_key")
	}

	c := &Cart{
		ID:         uuid.New().String(),
		SessionKey: owner.SessionKey,
	}
	if owner.UserID != "" {
		userID := owner.UserID
		c.UserID = &userID
	}
	c.Touch(s.now())
	if err := s.carts.Create(ctx, c); err != nil {
		return nil, errors.Wrap(err, "create cart")
	}
	return c, nil
}

// GetCart returns the cart with its lines at current prices.
func (s *Service) GetCart(ctx context.Context, id string) (*Cart, error) {
	return s.carts.Get(ctx, id)
}

// AddItem inserts a new line. A second line for the same variant fails with
// ErrDuplicateItem; use SetQuantity to change an existing line.
func (s *Service) AddItem(ctx context.Context, cartID, variantID string, quantity int) error {
	if err := validateQuantity(quantity); err != nil {
		return err
	}
	item := &Item{
		CartID:    cartID,
		VariantID: variantID,
		Quantity:  quantity,
		AddedAt:   s.now(),
	}
	if err := s.carts.AddItem(ctx, item); err != nil {
		return errors.Wrap(err, "add cart item")
	}
	return nil
}

// SetQuantity replaces the quantity of an existing line.
func (s *Service) SetQuantity(ctx context.Context, cartID, variantID string, quantity int) error {
	if err := validateQuantity(quantity); err != nil {
		return err
	}
	return s.carts.SetQuantity(ctx, cartID, variantID, quantity)
}

// RemoveItem deletes a line from the cart.
func (s *Service) RemoveItem(ctx context.Context, cartID, variantID string) error {
	return s.carts.RemoveItem(ctx, cartID, variantID)
}

// Subtotal reloads the cart and prices it at current variant prices.
func (s *Service) Subtotal(ctx context.Context, cartID string) (decimal.Decimal, error) {
	c, err := s.carts.Get(ctx, cartID)
	if err != nil {
		return decimal.Zero, err
	}
	return c.Subtotal(), nil
}

func validateQuantity(q int) error {
	if q < 1 {
		return base.Invalid("quantity", "must be at least 1")
	}
	return nil
}
