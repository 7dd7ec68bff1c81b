package transport

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthorized indicates invalid or missing credentials.
var ErrUnauthorized = errors.New("unauthorized")

type principalKey struct{}

// TokenResolver resolves a caller name from a bearer token.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (string, error)
}

// StaticToken accepts a single shared token.
type StaticToken string

// ResolveToken implements TokenResolver.
func (s StaticToken) ResolveToken(_ context.Context, token string) (string, error) {
	if s == "" || subtle.ConstantTimeCompare([]byte(s), []byte(token)) != 1 {
		return "", ErrUnauthorized
	}
	return "api", nil
}

// PrincipalFromContext returns the authenticated caller, if present.
func PrincipalFromContext(ctx context.Context) (string, bool) {
	principal, ok := ctx.Value(principalKey{}).(string)
	return principal, ok
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// AuthMiddleware enforces bearer token authentication.
func AuthMiddleware(resolver TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r.Header.Get("Authorization"))
			if token == "" {
				writeError(w, r, http.StatusUnauthorized, errorBody{Code: CodeUnauthorized, Message: "missing bearer token"})
				return
			}

			principal, err := resolver.ResolveToken(r.Context(), token)
			if err != nil || principal == "" {
				writeError(w, r, http.StatusUnauthorized, errorBody{Code: CodeUnauthorized, Message: "invalid bearer token"})
				return
			}

			ctx := context.WithValue(r.Context(), principalKey{}, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
