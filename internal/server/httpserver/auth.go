package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/yndnr/graphite-go/internal/core/domain"
	"github.com/yndnr/graphite-go/internal/core/service"
	"github.com/yndnr/graphite-go/internal/server/httpserver/authctx"
	"github.com/yndnr/graphite-go/internal/telemetry/logger"
	"github.com/yndnr/graphite-go/internal/telemetry/metric"
)

// Authentication outcomes, used as the metric label.
const (
	OutcomeNoToken      = "no_token"
	OutcomeAbsent       = "absent"
	OutcomeStorageError = "storage_error"
	OutcomeResolved     = "resolved"
)

// SessionAuthConfig configures SessionAuth.
type SessionAuthConfig struct {
	Store   service.SessionStore
	Logger  *slog.Logger
	Metrics *metric.Registry
}

// SessionAuth resolves the sid cookie of every request into a session.
//
// Requests without a token or with an unknown token get 401, a failing
// store gets 500, and in none of these cases is next called. A resolved
// session is placed in the request context and next runs exactly once
// with its response passed through untouched.
func SessionAuth(cfg *SessionAuthConfig) Middleware {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := logger.RequestIDFromContext(ctx)

			tok, seen := parseSessionCookie(r.Header)
			if seen > 1 {
				cfg.Metrics.IncDuplicateSID()
				log.Debug("multiple sid cookies, using the first",
					"request_id", requestID,
					"count", seen,
				)
			}

			if tok == "" {
				cfg.Metrics.RecordAuthOutcome(OutcomeNoToken)
				writeAuthError(w, http.StatusUnauthorized, domain.ErrAuthRequired)
				return
			}

			sess, found, err := cfg.Store.Get(ctx, tok)
			switch {
			case err != nil:
				cfg.Metrics.RecordAuthOutcome(OutcomeStorageError)
				log.Error("session lookup failed",
					"request_id", requestID,
					"error", err,
				)
				writeAuthError(w, http.StatusInternalServerError, domain.ErrStorageError)
				return
			case !found:
				cfg.Metrics.RecordAuthOutcome(OutcomeAbsent)
				log.Debug("session not found", "request_id", requestID)
				writeAuthError(w, http.StatusUnauthorized, domain.ErrSessionInvalid)
				return
			}

			cfg.Metrics.RecordAuthOutcome(OutcomeResolved)
			ctx = ContextWithSession(ctx, sess)
			ctx = logger.WithUserID(ctx, sess.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the session resolved by SessionAuth.
func SessionFromContext(ctx context.Context) (*domain.Session, bool) {
	return authctx.Session(ctx)
}

// ContextWithSession returns a copy of ctx carrying s.
func ContextWithSession(ctx context.Context, s *domain.Session) context.Context {
	return authctx.WithSession(ctx, s)
}
