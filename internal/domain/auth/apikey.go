package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"slices"

	"github.com/go-faster/errors"
)

// Scopes granted to API keys.
const (
	ScopeCatalogWrite  = "catalog:write"
	ScopeSalesWrite    = "sales:write"
	ScopeAccountsWrite = "accounts:write"
)

// ErrUnauthorized is returned for unknown, inactive or mismatching keys.
var ErrUnauthorized = errors.New("unauthorized")

// APIKey holds the identity and scopes of a stored API key.
type APIKey struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// HasScope reports whether the key was granted scope.
func (k *APIKey) HasScope(scope string) bool {
	return slices.Contains(k.Scopes, scope)
}

// HashKey returns the hex HMAC-SHA256 of a raw key under pepper, the form
// keys are stored and looked up in.
func HashKey(pepper []byte, raw string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// Repository provides lookup and registration of API keys by hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKey, error)
	Upsert(ctx context.Context, key *APIKey) error
}
