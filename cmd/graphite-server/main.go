package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/yndnr/graphite-go/internal/core/service"
	"github.com/yndnr/graphite-go/internal/infra/buildinfo"
	"github.com/yndnr/graphite-go/internal/infra/confloader"
	"github.com/yndnr/graphite-go/internal/infra/shutdown"
	"github.com/yndnr/graphite-go/internal/infra/tlsroots"
	"github.com/yndnr/graphite-go/internal/oauth/github"
	"github.com/yndnr/graphite-go/internal/server/acceptor"
	"github.com/yndnr/graphite-go/internal/server/config"
	"github.com/yndnr/graphite-go/internal/server/httpserver"
	"github.com/yndnr/graphite-go/internal/server/httpserver/handler"
	"github.com/yndnr/graphite-go/internal/storage"
	"github.com/yndnr/graphite-go/internal/storage/backend"
	"github.com/yndnr/graphite-go/internal/telemetry/logger"
	"github.com/yndnr/graphite-go/internal/telemetry/metric"
	"github.com/yndnr/graphite-go/pkg/token"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("graphite-server %s\n", buildinfo.String())
		return nil
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)
	slogger := log.Slog()

	info := buildinfo.Get()
	log.Info("starting graphite-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", *configFile,
		"effective_config", config.Sanitize(cfg))

	// A missing or broken certificate is fatal.
	certs, err := tlsroots.NewWatcher(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile,
		tlsroots.WithLogger(slogger),
		tlsroots.WithDebounce(cfg.Server.TLSReloadDebounce))
	if err != nil {
		return fmt.Errorf("load certificate: %w", err)
	}

	metrics := metric.NewRegistry()

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	kv, err := backend.Open(ctx, cfg.BackendConfig(), slogger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	if engine, ok := kv.(*storage.BadgerEngine); ok {
		engine.RegisterMetrics(metrics.Registerer())
	}

	hasher, err := token.NewHasher(cfg.TokenHashKey())
	if err != nil {
		kv.Close()
		return fmt.Errorf("token hash key: %w", err)
	}
	sessions := storage.NewSessionStore(kv,
		storage.WithHasher(hasher),
		storage.WithLogger(slogger),
		storage.WithMetrics(metrics),
	)

	users := service.NewUserService(storage.NewUserRepo(kv), slogger)
	login := service.NewLoginService(users, sessions)
	projects := service.NewProjectService(storage.NewProjectRepo(kv))

	gh, err := newGitHubClient(cfg)
	if err != nil {
		kv.Close()
		return err
	}
	handlerCfg := handler.Config{
		Login:        login,
		Projects:     projects,
		Store:        kv,
		Metrics:      metrics.Handler(),
		Logger:       slogger,
		CookieMaxAge: cfg.Session.CookieMaxAge,
		ClientAddr:   cfg.General.ClientAddr,
	}
	if gh != nil {
		handlerCfg.GitHub = gh
	} else {
		log.Warn("oauth.github.client_id is empty, login routes are disabled")
	}

	router := httpserver.NewRouter(&httpserver.RouterConfig{
		Handler:    handlerCfg,
		Sessions:   sessions,
		Logger:     slogger,
		Metrics:    metrics,
		ClientAddr: cfg.General.ClientAddr,
	})

	acc, err := acceptor.New(acceptor.Config{
		TLSConfig:         certs.ServerTLSConfig(),
		HandshakeTimeout:  cfg.Server.HandshakeTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		MaxHeaderBytes:    cfg.Server.MaxHeaderBytes,
	}, router,
		acceptor.WithLogger(slogger),
		acceptor.WithMetrics(metrics),
		acceptor.WithFailureLogLimit(cfg.Server.HandshakeLogInterval, cfg.Server.HandshakeLogBurst),
	)
	if err != nil {
		kv.Close()
		return fmt.Errorf("init acceptor: %w", err)
	}

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		kv.Close()
		return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
	}

	// Hooks run in reverse order: stop accepting first, close the store last.
	shutdownHandler := shutdown.NewHandler(cfg.Server.ShutdownTimeout, slogger)
	shutdownHandler.OnShutdown("storage", func(context.Context) error {
		return kv.Close()
	})

	if *configFile != "" {
		watcher, err := watchConfig(*configFile, slogger)
		if err != nil {
			log.Warn("config hot reload disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown("config watcher", func(context.Context) error {
				return watcher.Stop()
			})
		}
	}

	certs.StartAsync()
	shutdownHandler.OnShutdown("certificate watcher", func(context.Context) error {
		certs.Stop()
		return nil
	})

	shutdownHandler.OnShutdown("acceptor", acc.Shutdown)

	go func() {
		if err := acc.Serve(ctx, ln); err != nil {
			log.Error("acceptor stopped", "error", err)
			cancel(err)
		}
	}()

	log.Info("server started", "addr", ln.Addr().String(), "login", gh != nil)
	if err := shutdownHandler.Wait(ctx); err != nil {
		return err
	}
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig loads and verifies the configuration.
func loadConfig(path string) (*config.ServerConfig, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newGitHubClient returns nil when GitHub login is not configured.
func newGitHubClient(cfg *config.ServerConfig) (*github.Client, error) {
	gh := cfg.OAuth.GitHub
	if gh.ClientID == "" {
		return nil, nil
	}

	ghCfg := github.Config{
		ClientID:     gh.ClientID,
		ClientSecret: gh.ClientSecret,
		RedirectURL:  gh.RedirectURL,
		AuthURL:      gh.AuthURL,
		TokenURL:     gh.TokenURL,
		APIURL:       gh.APIURL,
	}
	if cfg.Security.TLSCAFile != "" {
		pool, err := tlsroots.NewPool(cfg.Security.TLSCAFile)
		if err != nil {
			return nil, fmt.Errorf("load CA bundle: %w", err)
		}
		ghCfg.TLSConfig = pool.ClientTLSConfig()
	}
	return github.New(ghCfg), nil
}

// watchConfig re-reads the configuration file on change and applies
// the settings that can change at runtime. Currently that is log.level;
// everything else needs a restart.
func watchConfig(path string, log *slog.Logger) (*confloader.Watcher, error) {
	watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := watcher.Watch(path); err != nil {
		watcher.Stop()
		return nil, err
	}

	watcher.OnChange(func(string) {
		cfg, err := loadConfig(path)
		if err != nil {
			log.Warn("ignoring invalid configuration change", "error", err)
			return
		}
		if logger.GetLevel() != cfg.Log.Level && logger.SetLevel(cfg.Log.Level) {
			log.Info("log level changed", "level", cfg.Log.Level)
		}
	})
	watcher.StartAsync()
	return watcher, nil
}
