package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/yndnr/graphite-go/internal/storage/backend"
	"github.com/yndnr/graphite-go/internal/telemetry/logger"
)

// maxTokenHashKey is the largest key BLAKE2b accepts.
const maxTokenHashKey = 64

// Verify validates the configuration. It reports every problem found,
// joined into one error. For the badger backend it also creates the
// data directory.
func Verify(cfg *ServerConfig) error {
	return errors.Join(
		verifyServer(&cfg.Server),
		verifyGeneral(&cfg.General),
		verifySession(&cfg.Session),
		verifyStorage(&cfg.Storage),
		verifyOAuth(&cfg.OAuth),
		verifySecurity(&cfg.Security),
		verifyLog(&cfg.Log),
	)
}

// VerifyStore validates only the sections needed to open the store:
// storage, security and log. Offline tools use it on configs that carry
// no listener settings.
func VerifyStore(cfg *ServerConfig) error {
	return errors.Join(
		verifyStorage(&cfg.Storage),
		verifySecurity(&cfg.Security),
		verifyLog(&cfg.Log),
	)
}

func verifyServer(cfg *ServerSection) error {
	var errs []error

	if _, _, err := net.SplitHostPort(cfg.Addr); err != nil {
		errs = append(errs, fmt.Errorf("server.addr %q: %w", cfg.Addr, err))
	}
	if cfg.TLSCertFile == "" {
		errs = append(errs, errors.New("server.tls_cert_file is required"))
	}
	if cfg.TLSKeyFile == "" {
		errs = append(errs, errors.New("server.tls_key_file is required"))
	}

	for name, d := range map[string]time.Duration{
		"server.handshake_timeout":      cfg.HandshakeTimeout,
		"server.read_header_timeout":    cfg.ReadHeaderTimeout,
		"server.idle_timeout":           cfg.IdleTimeout,
		"server.shutdown_timeout":       cfg.ShutdownTimeout,
		"server.handshake_log_interval": cfg.HandshakeLogInterval,
		"server.tls_reload_debounce":    cfg.TLSReloadDebounce,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, fmt.Errorf("server.max_header_bytes must not be negative"))
	}
	if cfg.HandshakeLogBurst < 1 {
		errs = append(errs, fmt.Errorf("server.handshake_log_burst must be at least 1, got %d", cfg.HandshakeLogBurst))
	}

	return errors.Join(errs...)
}

func verifyGeneral(cfg *GeneralSection) error {
	if cfg.ClientAddr == "" {
		return nil
	}
	return verifyAbsoluteURL("general.client_addr", cfg.ClientAddr)
}

func verifySession(cfg *SessionSection) error {
	if cfg.CookieMaxAge < time.Second {
		return fmt.Errorf("session.cookie_max_age must be at least 1s, got %s", cfg.CookieMaxAge)
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	switch cfg.Backend {
	case backend.Memory:
		return nil
	case backend.Badger:
		if cfg.DataDir == "" {
			return errors.New("storage.data_dir is required for the badger backend")
		}
		if cfg.Badger.GCInterval != "" {
			if _, err := time.ParseDuration(cfg.Badger.GCInterval); err != nil {
				return fmt.Errorf("storage.badger.gc_interval: %w", err)
			}
		}
		if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
			return fmt.Errorf("cannot create data directory: %w", err)
		}
		return nil
	case backend.Redis:
		if cfg.Redis.Addr == "" {
			return errors.New("storage.redis.addr is required for the redis backend")
		}
		if cfg.Redis.DB < 0 {
			return errors.New("storage.redis.db must not be negative")
		}
		return nil
	default:
		return fmt.Errorf("storage.backend %q is not one of memory, badger, redis", cfg.Backend)
	}
}

func verifyOAuth(cfg *OAuthSection) error {
	gh := &cfg.GitHub
	if gh.ClientID == "" {
		return nil
	}

	var errs []error
	if gh.ClientSecret == "" {
		errs = append(errs, errors.New("oauth.github.client_secret is required when client_id is set"))
	}
	for name, v := range map[string]string{
		"oauth.github.redirect_url": gh.RedirectURL,
		"oauth.github.auth_url":     gh.AuthURL,
		"oauth.github.token_url":    gh.TokenURL,
		"oauth.github.api_url":      gh.APIURL,
	} {
		if v == "" {
			continue
		}
		if err := verifyAbsoluteURL(name, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func verifySecurity(cfg *SecuritySection) error {
	if len(cfg.TokenHashKey) > maxTokenHashKey {
		return fmt.Errorf("security.token_hash_key must be at most %d bytes", maxTokenHashKey)
	}
	if cfg.TLSCAFile != "" {
		if _, err := os.Stat(cfg.TLSCAFile); err != nil {
			return fmt.Errorf("security.tls_ca_file: %w", err)
		}
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if !logger.ValidLevel(cfg.Level) {
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Level)
	}
	if cfg.Format != "json" && cfg.Format != "text" {
		return fmt.Errorf("log.format %q is not one of json, text", cfg.Format)
	}
	return nil
}

func verifyAbsoluteURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s %q must be an absolute URL", name, raw)
	}
	return nil
}
