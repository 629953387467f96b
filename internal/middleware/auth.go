package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/fleetlog/backend/internal/auth"
	"github.com/fleetlog/backend/internal/domain"
)

// ctxKey is an unexported type so no other package can collide with our
// context keys.
type ctxKey int

const identityKey ctxKey = iota

// NewAuthenticator returns a middleware that requires a valid
// "Authorization: Bearer <token>" header on every request it guards.
// On success the caller's Identity is stored in the request context;
// handlers retrieve it with IdentityFromContext.
// Missing, malformed, expired, or badly signed tokens get 401.
func NewAuthenticator(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				unauthorized(w, "missing Authorization header")
				return
			}

			scheme, token, found := strings.Cut(header, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") {
				unauthorized(w, "Authorization header must be 'Bearer <token>'")
				return
			}

			ident, err := auth.Parse(secret, token)
			if err != nil {
				unauthorized(w, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the authenticated Identity stored by
// NewAuthenticator, and whether one is present.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	ident, ok := ctx.Value(identityKey).(domain.Identity)
	return ident, ok
}

// WithIdentity stores an Identity in ctx the same way the middleware does.
// Exists for handler tests that bypass the HTTP auth flow.
func WithIdentity(ctx context.Context, ident domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
