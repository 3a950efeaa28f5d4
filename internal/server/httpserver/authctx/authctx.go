// Package authctx carries the authenticated session through a request
// context. It sits below both the middleware and the handlers so that
// neither has to import the other.
package authctx

import (
	"context"
	"net/http"
	"time"

	"github.com/yndnr/graphite-go/internal/core/domain"
)

// CookieName is the name of the session cookie.
const CookieName = "sid"

type sessionKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *domain.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// Session returns the session stored in ctx, if any.
func Session(ctx context.Context) (*domain.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*domain.Session)
	return s, ok && s != nil
}

// NewCookie builds the session cookie carrying token. It is sent
// cross-site to the web client, hence SameSite=None with Secure.
func NewCookie(token string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	}
}
