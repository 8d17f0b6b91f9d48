package shipment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Status is the fulfillment state of a shipment, independent of the order status.
type Status string

const (
	StatusPending   Status = "pending"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusReturned  Status = "returned"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known shipment status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusShipped, StatusDelivered, StatusReturned, StatusCancelled:
		return true
	}
	return false
}

var (
	// ErrNotFound is returned when the order has no shipment.
	ErrNotFound = errors.New("shipment not found")
	// ErrExists is returned when the order already has a shipment.
	ErrExists = errors.New("order already has a shipment")
	// ErrUnknownOrder is returned when a shipment references a missing order.
	ErrUnknownOrder = errors.New("order does not exist")
	// ErrUnknownStatus is returned for status values outside the enum.
	ErrUnknownStatus = errors.New("unknown shipment status")
)

// Shipment is the single fulfillment record of an order. ShippedAt and
// DeliveredAt are set by callers; their order is not checked.
type Shipment struct {
	ID             string
	OrderID        string
	Carrier        string
	TrackingNumber string
	Status         Status
	ShippedAt      *time.Time
	DeliveredAt    *time.Time
	UpdatedAt      time.Time
}

// Repository defines persistence operations for shipments.
type Repository interface {
	Create(ctx context.Context, s *Shipment) error
	GetByOrder(ctx context.Context, orderID string) (*Shipment, error)
	// Update loads the order's shipment under a row lock, applies fn and
	// stores the result in the same transaction.
	Update(ctx context.Context, orderID string, fn func(s *Shipment) error) (*Shipment, error)
}
