package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/yndnr/graphite-go/internal/core/domain"
	"github.com/yndnr/graphite-go/internal/core/service"
	"github.com/yndnr/graphite-go/internal/oauth/github"
	"github.com/yndnr/graphite-go/internal/telemetry/logger"
)

// maxBodySize bounds JSON request bodies.
const maxBodySize = 64 << 10

// OAuthProvider runs the identity provider side of the login.
// *github.Client implements it.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	FetchUser(ctx context.Context, tok *oauth2.Token) (*github.User, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds the dependencies of a Handler.
type Config struct {
	Login    *service.LoginService
	Projects *service.ProjectService

	// GitHub is nil when login is not configured; the /auth routes are
	// then not registered.
	GitHub OAuthProvider

	// Store backs the readiness probe. Nil reports always ready.
	Store Pinger

	// Metrics serves /metrics. Nil disables the route.
	Metrics http.Handler

	Logger *slog.Logger

	// CookieMaxAge is the lifetime of the issued sid cookie.
	CookieMaxAge time.Duration

	// ClientAddr is where a completed login is redirected. Empty answers
	// the callback with the user as JSON.
	ClientAddr string
}

// Handler serves every API route.
type Handler struct {
	login      *service.LoginService
	projects   *service.ProjectService
	github     OAuthProvider
	store      Pinger
	metrics    http.Handler
	logger     *slog.Logger
	maxAge     time.Duration
	clientAddr string
	mux        *http.ServeMux
}

// New creates a new Handler.
func New(cfg Config) *Handler {
	h := &Handler{
		login:      cfg.Login,
		projects:   cfg.Projects,
		github:     cfg.GitHub,
		store:      cfg.Store,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		maxAge:     cfg.CookieMaxAge,
		clientAddr: cfg.ClientAddr,
		mux:        http.NewServeMux(),
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// LoginEnabled reports whether the /auth routes are served.
func (h *Handler) LoginEnabled() bool {
	return h.github != nil
}

// MetricsEnabled reports whether /metrics is served.
func (h *Handler) MetricsEnabled() bool {
	return h.metrics != nil
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)
	if h.metrics != nil {
		h.mux.Handle("GET /metrics", h.metrics)
	}

	if h.github != nil {
		h.mux.HandleFunc("GET /auth/github/login", h.handleGitHubLogin)
		h.mux.HandleFunc("GET /auth/github/callback", h.handleGitHubCallback)
	}

	h.mux.HandleFunc("GET /me", h.handleMe)

	h.mux.HandleFunc("GET /projects", h.handleListProjects)
	h.mux.HandleFunc("POST /projects", h.handleCreateProject)
	h.mux.HandleFunc("GET /projects/{id}", h.handleGetProject)
	h.mux.HandleFunc("PUT /projects/{id}", h.handleUpdateProject)
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	response := NewResponse(getRequestID(r), data)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response with standard envelope format.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	response := NewErrorResponse(getRequestID(r), code, message, details)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// writeDomainError writes e with the status its code maps to.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, e *domain.DomainError) {
	var details any
	if e.Details != "" {
		details = e.Details
	}
	h.writeError(w, r, errorCodeToHTTPStatus(e.Code), e.Code, e.Message, details)
}

// getRequestID returns the ID assigned by the RequestID middleware.
func getRequestID(r *http.Request) string {
	if id := logger.RequestIDFromContext(r.Context()); id != "" {
		return id
	}
	return r.Header.Get("X-Request-ID")
}

// handleServiceError converts service errors to HTTP responses. Storage
// and internal failures are logged and reported without their cause.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.DomainError
	if errors.As(err, &de) && !strings.HasPrefix(de.Code, "GR-SYS-5") {
		h.writeDomainError(w, r, de)
		return
	}

	h.logger.Error("request failed",
		"request_id", getRequestID(r),
		"path", r.URL.Path,
		"error", err,
	)
	if errors.Is(err, domain.ErrStorageError) {
		h.writeDomainError(w, r, domain.ErrStorageError)
		return
	}
	h.writeDomainError(w, r, domain.ErrInternalServer)
}

// errorCodeToHTTPStatus maps error codes to HTTP status codes.
func errorCodeToHTTPStatus(code string) int {
	switch {
	case strings.HasSuffix(code, "-4040"), strings.HasSuffix(code, "-4041"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-4090"), strings.HasSuffix(code, "-4091"):
		return http.StatusConflict
	case strings.HasSuffix(code, "-4000"), strings.HasSuffix(code, "-4001"),
		strings.HasSuffix(code, "-4002"), strings.HasSuffix(code, "-4003"):
		return http.StatusBadRequest
	case strings.HasSuffix(code, "-4010"), strings.HasSuffix(code, "-4011"):
		return http.StatusUnauthorized
	case strings.HasSuffix(code, "-4030"):
		return http.StatusForbidden
	case strings.HasSuffix(code, "-5020"):
		return http.StatusBadGateway
	case strings.HasSuffix(code, "-5030"):
		return http.StatusServiceUnavailable
	case strings.HasPrefix(code, "GR-ARG-"):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
