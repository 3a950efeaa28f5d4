package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/yndnr/graphite-go/internal/core/service"
	"github.com/yndnr/graphite-go/internal/server/httpserver/handler"
	"github.com/yndnr/graphite-go/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Handler holds the dependencies of the API handlers.
	Handler handler.Config

	// Sessions resolves the sid cookie on protected routes.
	Sessions service.SessionStore

	// Logger for request logging.
	Logger *slog.Logger

	// Metrics records authentication outcomes and request latency.
	// Nil disables recording.
	Metrics *metric.Registry

	// ClientAddr is the web client origin allowed by CORS.
	ClientAddr string
}

// NewRouter creates and configures the HTTP router with all routes and
// middleware.
//
// Order: Recover -> RequestID -> AccessLog -> CORS -> [SessionAuth] -> Handler
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if cfg.Handler.Logger == nil {
		cfg.Handler.Logger = log
	}

	h := handler.New(cfg.Handler)

	common := []Middleware{
		Recover(log),
		RequestID(),
		AccessLog(log, cfg.Metrics),
		CORS(cfg.ClientAddr),
	}
	public := Chain(h, common...)
	protected := Chain(h, append(common, SessionAuth(&SessionAuthConfig{
		Store:   cfg.Sessions,
		Logger:  log,
		Metrics: cfg.Metrics,
	}))...)

	mux := http.NewServeMux()

	// Health and metrics - no authentication required
	mux.Handle("GET /health", public)
	mux.Handle("GET /ready", public)
	if h.MetricsEnabled() {
		mux.Handle("GET /metrics", public)
	}

	// Login flow - the session does not exist yet
	if h.LoginEnabled() {
		mux.Handle("GET /auth/github/login", public)
		mux.Handle("GET /auth/github/callback", public)
	}

	// Business API endpoints - require a session. Preflight requests are
	// answered by CORS before SessionAuth runs.
	mux.Handle("GET /me", protected)
	mux.Handle("GET /projects", protected)
	mux.Handle("POST /projects", protected)
	mux.Handle("GET /projects/{id}", protected)
	mux.Handle("PUT /projects/{id}", protected)
	mux.Handle("OPTIONS /", public)

	return mux
}
