// Package auth validates bearer tokens and threads the caller's identity
// through the request context.
package auth

import (
	"net/http"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/backend-souq/internal/common"
)

// Middleware parses and validates HS256 bearer tokens.
type Middleware struct {
	Secret []byte
}

// Authenticate extracts the bearer token, validates it, and stores the
// subject on the context. Requests without a token pass through anonymous;
// RequireAuth decides which routes insist on identity.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "malformed authorization header", nil)
			return
		}
		tok, err := jwt.Parse([]byte(raw), jwt.WithKey(jwa.HS256, m.Secret), jwt.WithValidate(true))
		if err != nil {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token", nil)
			return
		}
		sub := tok.Subject()
		if sub == "" {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "token missing subject", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(common.WithUserID(r.Context(), sub)))
	})
}

// RequireAuth rejects requests that reached the handler without an identity.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := common.UserID(r.Context()); !ok {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
