package account

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/base"
)

// DefaultCountry is stored on addresses created without a country.
const DefaultCountry = "Saudi Arabia"

// AddressType distinguishes shipping from billing addresses.
type AddressType string

const (
	AddressShipping AddressType = "shipping"
	AddressBilling  AddressType = "billing"
)

// Valid reports whether t is a known address type.
func (t AddressType) Valid() bool {
	return t == AddressShipping || t == AddressBilling
}

var (
	// ErrNotFound is returned when a user or profile does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrEmailRequired is returned by CreateUser when the email is blank.
	ErrEmailRequired = errors.New("email is required")
	// ErrEmailTaken is returned when another user already owns the email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrSuperuserNotStaff is returned when a superuser is requested with is_staff=false.
	ErrSuperuserNotStaff = errors.New("superuser must have is_staff=true")
	// ErrSuperuserNotSuperuser is returned when a superuser is requested with is_superuser=false.
	ErrSuperuserNotSuperuser = errors.New("superuser must have is_superuser=true")
	// ErrInvalidCredentials is returned by Authenticate for any login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// User is an email-identified account. Email is the sole login identifier.
type User struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	Phone        string
	PasswordHash string
	IsActive     bool
	IsStaff      bool
	IsSuperuser  bool
	DateJoined   time.Time
	LastUpdated  time.Time
}

// DisplayName returns the user's full name, or the email when no name is set.
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// HasUsablePassword reports whether the user can log in with a password.
func (u *User) HasUsablePassword() bool {
	return u.PasswordHash != ""
}

// Profile carries optional customer data. A user has at most one profile.
type Profile struct {
	UserID         string
	MarketingOptIn bool
	Notes          string
	base.Timestamps
}

// Address is a shipping or billing address owned by a user.
//
// IsDefault is stored as given: several addresses of the same type may be
// marked default at once.
type Address struct {
	ID         string
	UserID     string
	Type       AddressType
	FullName   string
	Phone      string
	Country    string
	City       string
	District   string
	Street     string
	Building   string
	PostalCode string
	IsDefault  bool
	base.Timestamps
}

// Repository defines persistence operations for users, profiles and addresses.
type Repository interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpsertProfile(ctx context.Context, p *Profile) error
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	CreateAddress(ctx context.Context, a *Address) error
	ListAddresses(ctx context.Context, userID string, typ AddressType) ([]Address, error)
}
