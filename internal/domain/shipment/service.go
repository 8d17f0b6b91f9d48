package shipment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/storefront/internal/domain/base"
)

// Patch lists the fields to change on a shipment. Nil fields are kept. The
// Clear flags reset a timestamp to unset and win over a value given with them.
type Patch struct {
	Carrier          *string
	TrackingNumber   *string
	Status           *Status
	ShippedAt        *time.Time
	DeliveredAt      *time.Time
	ClearShippedAt   bool
	ClearDeliveredAt bool
}

// Service manages shipments.
type Service struct {
	shipments Repository
	now       func() time.Time
}

// NewService creates a shipment Service.
func NewService(shipments Repository) *Service {
	return &Service{shipments: shipments, now: time.Now}
}

// Create opens the pending shipment of an order. A second shipment for the
// same order fails with ErrExists.
func (s *Service) Create(ctx context.Context, orderID, carrier, trackingNumber string) (*Shipment, error) {
	if err := base.Required("order_id", orderID); err != nil {
		return nil, err
	}
	sh := &Shipment{
		ID:             uuid.New().String(),
		OrderID:        orderID,
		Carrier:        carrier,
		TrackingNumber: trackingNumber,
		Status:         StatusPending,
		UpdatedAt:      s.now(),
	}
	if err := s.shipments.Create(ctx, sh); err != nil {
		return nil, errors.Wrap(err, "create shipment")
	}
	return sh, nil
}

// Get returns the order's shipment.
func (s *Service) Get(ctx context.Context, orderID string) (*Shipment, error) {
	return s.shipments.GetByOrder(ctx, orderID)
}

// Update applies the patch in place. Any known status may follow any other.
func (s *Service) Update(ctx context.Context, orderID string, p Patch) (*Shipment, error) {
	if p.Status != nil && !p.Status.Valid() {
		return nil, ErrUnknownStatus
	}
	now := s.now()
	return s.shipments.Update(ctx, orderID, func(sh *Shipment) error {
		p.apply(sh)
		sh.UpdatedAt = now
		return nil
	})
}

func (p Patch) apply(sh *Shipment) {
	if p.Carrier != nil {
		sh.Carrier = *p.Carrier
	}
	if p.TrackingNumber != nil {
		sh.TrackingNumber = *p.TrackingNumber
	}
	if p.Status != nil {
		sh.Status = *p.Status
	}
	switch {
	case p.ClearShippedAt:
		sh.ShippedAt = nil
	case p.ShippedAt != nil:
		sh.ShippedAt = p.ShippedAt
	}
	switch {
	case p.ClearDeliveredAt:
		sh.DeliveredAt = nil
	case p.DeliveredAt != nil:
		sh.DeliveredAt = p.DeliveredAt
	}
}
