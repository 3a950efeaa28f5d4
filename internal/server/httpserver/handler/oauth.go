package handler

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/yndnr/graphite-go/internal/core/domain"
	"github.com/yndnr/graphite-go/internal/server/httpserver/authctx"
)

const (
	stateCookieName = "oauth_state"
	stateCookiePath = "/auth/github"
	stateMaxAge     = 10 * time.Minute
)

// handleGitHubLogin handles GET /auth/github/login.
func (h *Handler) handleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     stateCookiePath,
		MaxAge:   int(stateMaxAge / time.Second),
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.github.AuthCodeURL(state), http.StatusFound)
}

// handleGitHubCallback handles GET /auth/github/callback.
func (h *Handler) handleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	if !validState(r, query.Get("state")) {
		h.writeDomainError(w, r, domain.ErrOAuthState)
		return
	}
	clearStateCookie(w)

	if reason := query.Get("error"); reason != "" {
		h.writeDomainError(w, r, domain.ErrBadRequest.WithDetails("authorization denied: "+reason))
		return
	}
	code := query.Get("code")
	if code == "" {
		h.writeDomainError(w, r, domain.ErrMissingArgument.WithDetails("code is required"))
		return
	}

	tok, err := h.github.Exchange(ctx, code)
	if err != nil {
		h.logger.Warn("github code exchange failed",
			"request_id", getRequestID(r),
			"error", err,
		)
		h.writeDomainError(w, r, domain.ErrOAuthExchange)
		return
	}

	user, err := h.github.FetchUser(ctx, tok)
	if err != nil {
		h.logger.Warn("github user fetch failed",
			"request_id", getRequestID(r),
			"error", err,
		)
		h.writeDomainError(w, r, domain.ErrOAuthExchange)
		return
	}

	result, err := h.login.CompleteLogin(ctx, user.Identity())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("login completed",
		"request_id", getRequestID(r),
		"user_id", result.User.ID,
	)
	http.SetCookie(w, authctx.NewCookie(result.Token, h.maxAge))

	if h.clientAddr != "" {
		http.Redirect(w, r, h.clientAddr, http.StatusFound)
		return
	}
	h.writeJSON(w, r, http.StatusOK, userToResponse(result.User))
}

// validState compares the state query parameter with the state cookie
// set by the login redirect.
func validState(r *http.Request, state string) bool {
	if state == "" {
		return false
	}
	c, err := r.Cookie(stateCookieName)
	if err != nil || c.Value == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.Value), []byte(state)) == 1
}

func clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     stateCookiePath,
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
