package handler

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/auth"
)

// APIKeyHeader carries the raw API key.
const APIKeyHeader = "api_key"

type apiKeyCtxKey struct{}

// APIKeyFromContext returns the key that authenticated the request, if any.
func APIKeyFromContext(ctx context.Context) (*auth.APIKey, bool) {
	key, ok := ctx.Value(apiKeyCtxKey{}).(*auth.APIKey)
	return key, ok
}

// Security authenticates requests by the HMAC-SHA256 of their API key.
type Security struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewSecurity creates a Security with the given key repository and pepper.
func NewSecurity(apikeys auth.Repository, pepper []byte) *Security {
	return &Security{apikeys: apikeys, pepper: pepper}
}

// Authenticate resolves a raw key to its stored record.
func (s *Security) Authenticate(ctx context.Context, raw string) (*auth.APIKey, error) {
	if raw == "" {
		return nil, auth.ErrUnauthorized
	}
	hexHash := auth.HashKey(s.pepper, raw)

	key, err := s.apikeys.FindByHash(ctx, hexHash)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			return nil, auth.ErrUnauthorized
		}
		return nil, errors.Wrap(err, "find api key")
	}

	computed, _ := hex.DecodeString(hexHash)
	stored, err := hex.DecodeString(key.KeyHash)
	if err != nil || subtle.ConstantTimeCompare(computed, stored) != 1 {
		return nil, auth.ErrUnauthorized
	}
	return key, nil
}

// Require wraps next so that it only runs for keys granted scope.
func (s *Security) Require(scope string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key, err := s.Authenticate(ctx, r.Header.Get(APIKeyHeader))
		if err != nil {
			if !errors.Is(err, auth.ErrUnauthorized) {
				zctx.From(ctx).Error("API key lookup failed", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !key.HasScope(scope) {
			writeError(w, http.StatusForbidden, "api key lacks scope "+scope)
			return
		}
		ctx = zctx.With(context.WithValue(ctx, apiKeyCtxKey{}, key), zap.String("api_key", key.Name))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
