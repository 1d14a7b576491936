package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmehra2102/storefront/internal/access"
	"github.com/dmehra2102/storefront/pkg/apperr"
	"github.com/dmehra2102/storefront/pkg/httpx"
)

type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (access.Principal, error)
}

// Middleware turns a bearer token into an access.Principal on the request
// context.
type Middleware struct {
	log  *slog.Logger
	auth TokenAuthenticator
}

func NewMiddleware(log *slog.Logger, auth TokenAuthenticator) *Middleware {
	return &Middleware{log: log, auth: auth}
}

func (m *Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearer(r)
		if !ok {
			httpx.WriteError(w, r, m.log, apperr.Unauthenticated("No token provided. Please login first."))
			return
		}
		p, err := m.auth.Authenticate(r.Context(), token)
		if err != nil {
			httpx.WriteError(w, r, m.log, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(access.WithPrincipal(r.Context(), p)))
	})
}

// Optional ignores missing or invalid tokens.
func (m *Middleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token, ok := bearer(r); ok {
			if p, err := m.auth.Authenticate(r.Context(), token); err == nil {
				r = r.WithContext(access.WithPrincipal(r.Context(), p))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}
