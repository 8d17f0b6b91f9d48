package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/account"
)

const (
	userColumns = `id, email, first_name, last_name, phone, password_hash,
		is_active, is_staff, is_superuser, date_joined, last_updated`

	createUserSQL = `INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	getUserSQL        = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	getUserByEmailSQL = `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	upsertProfileSQL = `INSERT INTO customer_profiles (user_id, marketing_opt_in, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET marketing_opt_in = EXCLUDED.marketing_opt_in, notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at
		RETURNING created_at`

	getProfileSQL = `SELECT user_id, marketing_opt_in, notes, created_at, updated_at
		FROM customer_profiles WHERE user_id = $1`

	addressColumns = `id, user_id, address_type, full_name, phone, country, city, district,
		street, building, postal_code, is_default, created_at, updated_at`

	createAddressSQL = `INSERT INTO addresses (` + addressColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	listAddressesSQL = `SELECT ` + addressColumns + ` FROM addresses
		WHERE user_id = $1 AND ($2::text = '' OR address_type = $2::text)
		ORDER BY is_default DESC, created_at`
)

var _ account.Repository = (*AccountRepository)(nil)

// AccountRepository implements account.Repository backed by PostgreSQL.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository returns an AccountRepository that uses the given pool.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// CreateUser inserts a user. A duplicate email yields account.ErrEmailTaken.
func (r *AccountRepository) CreateUser(ctx context.Context, u *account.User) error {
	_, err := r.pool.Exec(ctx, createUserSQL,
		u.ID, u.Email, u.FirstName, u.LastName, u.Phone, u.PasswordHash,
		u.IsActive, u.IsStaff, u.IsSuperuser, u.DateJoined, u.LastUpdated,
	)
	if err != nil {
		if uniqueViolation(err, "users_email_key") {
			return account.ErrEmailTaken
		}
		return fmt.Errorf("creating user %q: %w", u.Email, err)
	}
	return nil
}

// GetUser returns a user by ID.
func (r *AccountRepository) GetUser(ctx context.Context, id string) (*account.User, error) {
	return r.getUser(ctx, getUserSQL, id)
}

// GetUserByEmail returns a user by normalized email.
func (r *AccountRepository) GetUserByEmail(ctx context.Context, email string) (*account.User, error) {
	return r.getUser(ctx, getUserByEmailSQL, email)
}

func (r *AccountRepository) getUser(ctx context.Context, query, arg string) (*account.User, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("getting user %q: %w", arg, err)
	}
	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrNotFound
		}
		return nil, fmt.Errorf("getting user %q: %w", arg, err)
	}
	return &u, nil
}

// UpsertProfile creates or replaces the single profile of a user.
func (r *AccountRepository) UpsertProfile(ctx context.Context, p *account.Profile) error {
	err := r.pool.QueryRow(ctx, upsertProfileSQL,
		p.UserID, p.MarketingOptIn, p.Notes, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.CreatedAt)
	if err != nil {
		if foreignKeyViolation(err, "") {
			return account.ErrNotFound
		}
		return fmt.Errorf("upserting profile for %q: %w", p.UserID, err)
	}
	return nil
}

// GetProfile returns the profile of a user.
func (r *AccountRepository) GetProfile(ctx context.Context, userID string) (*account.Profile, error) {
	var p account.Profile
	err := r.pool.QueryRow(ctx, getProfileSQL, userID).Scan(
		&p.UserID, &p.MarketingOptIn, &p.Notes, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrNotFound
		}
		return nil, fmt.Errorf("getting profile for %q: %w", userID, err)
	}
	return &p, nil
}

// CreateAddress inserts an address as given, including its default flag.
func (r *AccountRepository) CreateAddress(ctx context.Context, a *account.Address) error {
	_, err := r.pool.Exec(ctx, createAddressSQL,
		a.ID, a.UserID, string(a.Type), a.FullName, a.Phone, a.Country, a.City, a.District,
		a.Street, a.Building, a.PostalCode, a.IsDefault, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if foreignKeyViolation(err, "") {
			return account.ErrNotFound
		}
		return fmt.Errorf("creating address for %q: %w", a.UserID, err)
	}
	return nil
}

// ListAddresses returns a user's addresses, defaults first. An empty type
// matches both shipping and billing.
func (r *AccountRepository) ListAddresses(ctx context.Context, userID string, typ account.AddressType) ([]account.Address, error) {
	rows, err := r.pool.Query(ctx, listAddressesSQL, userID, string(typ))
	if err != nil {
		return nil, fmt.Errorf("listing addresses for %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanAddress)
}

func scanUser(row pgx.CollectableRow) (account.User, error) {
	var u account.User
	err := row.Scan(
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &u.PasswordHash,
		&u.IsActive, &u.IsStaff, &u.IsSuperuser, &u.DateJoined, &u.LastUpdated,
	)
	return u, err
}

func scanAddress(row pgx.CollectableRow) (account.Address, error) {
	var (
		a   account.Address
		typ string
	)
	err := row.Scan(
		&a.ID, &a.UserID, &typ, &a.FullName, &a.Phone, &a.Country, &a.City, &a.District,
		&a.Street, &a.Building, &a.PostalCode, &a.IsDefault, &a.CreatedAt, &a.UpdatedAt,
	)
	a.Type = account.AddressType(typ)
	return a, err
}
