package account

import (
	"context"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/xenking/storefront/internal/domain/base"
)

var phonePattern = regexp.MustCompile(`^\+?\d{7,15}$`)

// UserOptions holds the optional fields of a new user. Nil flags take the
// defaults of the calling constructor.
type UserOptions struct {
	FirstName   string
	LastName    string
	Phone       string
	IsActive    *bool
	IsStaff     *bool
	IsSuperuser *bool
}

// Flag returns a pointer to v for use in UserOptions.
func Flag(v bool) *bool {
	return &v
}

// Service implements account registration and authentication.
type Service struct {
	users Repository
	cost  int
	now   func() time.Time
}

// NewService creates an account Service backed by the given Repository.
func NewService(users Repository) *Service {
	return &Service{
		users: users,
		cost:  bcrypt.DefaultCost,
		now:   time.Now,
	}
}

// NormalizeEmail trims the address and lower-cases its domain part. The local
// part is kept as typed.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return email
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}

// CreateUser validates and stores a new user. An empty password stores an
// unusable password.
func (s *Service) CreateUser(ctx context.Context, email, password string, opts UserOptions) (*User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, ErrEmailRequired
	}
	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if opts.Phone != "" && !phonePattern.MatchString(opts.Phone) {
		return nil, base.Invalid("phone", "must be numeric and can start with +, length 7-15")
	}

	now := s.now()
	u := &User{
		ID:          uuid.New().String(),
		Email:       email,
		FirstName:   opts.FirstName,
		LastName:    opts.LastName,
		Phone:       opts.Phone,
		IsActive:    flagOr(opts.IsActive, true),
		IsStaff:     flagOr(opts.IsStaff, false),
		IsSuperuser: flagOr(opts.IsSuperuser, false),
		DateJoined:  now,
		LastUpdated: now,
	}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
		if err != nil {
			return nil, errors.Wrap(err, "hash password")
		}
		u.PasswordHash = string(hash)
	}

	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, errors.Wrap(err, "create user")
	}
	return u, nil
}

// CreateSuperuser creates a user with staff and superuser privileges. Both
// flags default to true; explicitly clearing either one fails before any
// record is written.
func (s *Service) CreateSuperuser(ctx context.Context, email, password string, opts UserOptions) (*User, error) {
	if opts.IsStaff == nil {
		opts.IsStaff = Flag(true)
	}
	if opts.IsSuperuser == nil {
		opts.IsSuperuser = Flag(true)
	}
	if opts.IsActive == nil {
		opts.IsActive = Flag(true)
	}
	if !*opts.IsStaff {
		return nil, ErrSuperuserNotStaff
	}
	if !*opts.IsSuperuser {
		return nil, ErrSuperuserNotSuperuser
	}
	return s.CreateUser(ctx, email, password, opts)
}

// Authenticate returns the active user matching email and password.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.users.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "get user")
	}
	if !u.IsActive || !u.HasUsablePassword() {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// UpsertProfile creates or replaces the profile of an existing user.
func (s *Service) UpsertProfile(ctx context.Context, userID string, marketingOptIn bool, notes string) (*Profile, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, errors.Wrapf(err, "get user %s", userID)
	}
	p := &Profile{
		UserID:         userID,
		MarketingOptIn: marketingOptIn,
		Notes:          notes,
	}
	p.Touch(s.now())
	if err := s.users.UpsertProfile(ctx, p); err != nil {
		return nil, errors.Wrap(err, "upsert profile")
	}
	return p, nil
}

// AddAddress validates and stores an address. Defaults are applied for type
// and country; IsDefault is stored without touching the user's other addresses.
func (s *Service) AddAddress(ctx context.Context, a Address) (*Address, error) {
	if a.Type == "" {
		a.Type = AddressShipping
	}
	if a.Country == "" {
		a.Country = DefaultCountry
	}
	if !a.Type.Valid() {
		return nil, base.Invalid("address_type", "must be shipping or billing")
	}
	if err := base.First(
		base.Required("user_id", a.UserID),
		base.Required("full_name", a.FullName),
		base.Required("city", a.City),
		base.Required("street", a.Street),
	); err != nil {
		return nil, err
	}

	a.ID = uuid.New().String()
	a.Touch(s.now())
	if err := s.users.CreateAddress(ctx, &a); err != nil {
		return nil, errors.Wrap(err, "create address")
	}
	return &a, nil
}

// ListAddresses returns the user's addresses of the given type; an empty type
// lists all of them.
func (s *Service) ListAddresses(ctx context.Context, userID string, typ AddressType) ([]Address, error) {
	return s.users.ListAddresses(ctx, userID, typ)
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return base.Invalid("email", "enter a valid email address")
	}
	return nil
}

func flagOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
