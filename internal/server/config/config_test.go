package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/graphite-go/internal/storage/backend"
)

func validConfig(t *testing.T) *ServerConfig {
	t.Helper()
	cfg := Default()
	cfg.Server.TLSCertFile = "/etc/graphite/server.crt"
	cfg.Server.TLSKeyFile = "/etc/graphite/server.key"
	cfg.Storage.DataDir = t.TempDir()
	return cfg
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Addr != DefaultAddr {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, DefaultAddr)
	}
	if cfg.Server.HandshakeTimeout != 10*time.Second {
		t.Errorf("HandshakeTimeout = %v", cfg.Server.HandshakeTimeout)
	}
	if cfg.Session.CookieMaxAge != 720*time.Hour {
		t.Errorf("CookieMaxAge = %v, want 720h", cfg.Session.CookieMaxAge)
	}
	if cfg.Storage.Backend != backend.Badger {
		t.Errorf("Storage.Backend = %q, want badger", cfg.Storage.Backend)
	}
	if cfg.Storage.Redis.KeyPrefix != "graphite:" {
		t.Errorf("Redis.KeyPrefix = %q", cfg.Storage.Redis.KeyPrefix)
	}
	if cfg.Log.Level != DefaultLogLevel || cfg.Log.Format != DefaultLogFormat {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestVerify_ValidConfig(t *testing.T) {
	if err := Verify(validConfig(t)); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
}

func TestVerify_DefaultNeedsCertificate(t *testing.T) {
	cfg := Default()
	cfg.Storage.Backend = backend.Memory

	err := Verify(cfg)
	if err == nil {
		t.Fatal("Verify() should require TLS files")
	}
	for _, want := range []string{"server.tls_cert_file", "server.tls_key_file"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestVerify_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ServerConfig)
		want   string
	}{
		{"bad addr", func(c *ServerConfig) { c.Server.Addr = "localhost" }, "server.addr"},
		{"zero handshake timeout", func(c *ServerConfig) { c.Server.HandshakeTimeout = 0 }, "server.handshake_timeout"},
		{"zero handshake log interval", func(c *ServerConfig) { c.Server.HandshakeLogInterval = 0 }, "server.handshake_log_interval"},
		{"zero handshake log burst", func(c *ServerConfig) { c.Server.HandshakeLogBurst = 0 }, "server.handshake_log_burst"},
		{"zero tls reload debounce", func(c *ServerConfig) { c.Server.TLSReloadDebounce = 0 }, "server.tls_reload_debounce"},
		{"negative idle timeout", func(c *ServerConfig) { c.Server.IdleTimeout = -time.Second }, "server.idle_timeout"},
		{"relative client addr", func(c *ServerConfig) { c.General.ClientAddr = "app.example.com" }, "general.client_addr"},
		{"zero cookie max age", func(c *ServerConfig) { c.Session.CookieMaxAge = 0 }, "session.cookie_max_age"},
		{"unknown backend", func(c *ServerConfig) { c.Storage.Backend = "etcd" }, "storage.backend"},
		{"badger without dir", func(c *ServerConfig) { c.Storage.DataDir = "" }, "storage.data_dir"},
		{"bad gc interval", func(c *ServerConfig) { c.Storage.Badger.GCInterval = "often" }, "storage.badger.gc_interval"},
		{"redis without addr", func(c *ServerConfig) {
			c.Storage.Backend = backend.Redis
			c.Storage.Redis.Addr = ""
		}, "storage.redis.addr"},
		{"github without secret", func(c *ServerConfig) { c.OAuth.GitHub.ClientID = "Iv1.abc" }, "oauth.github.client_secret"},
		{"github bad api url", func(c *ServerConfig) {
			c.OAuth.GitHub.ClientID = "Iv1.abc"
			c.OAuth.GitHub.ClientSecret = "s3cret"
			c.OAuth.GitHub.APIURL = "/api"
		}, "oauth.github.api_url"},
		{"long hash key", func(c *ServerConfig) { c.Security.TokenHashKey = strings.Repeat("k", 65) }, "security.token_hash_key"},
		{"missing ca file", func(c *ServerConfig) { c.Security.TLSCAFile = "/nonexistent/ca.pem" }, "security.tls_ca_file"},
		{"bad log level", func(c *ServerConfig) { c.Log.Level = "verbose" }, "log.level"},
		{"bad log format", func(c *ServerConfig) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := Verify(cfg)
			if err == nil {
				t.Fatal("Verify() should fail")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %s", err, tt.want)
			}
		})
	}
}

func TestVerify_CreatesDataDir(t *testing.T) {
	cfg := validConfig(t)
	cfg.Storage.DataDir = filepath.Join(t.TempDir(), "sub", "data")

	if err := Verify(cfg); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if _, err := os.Stat(cfg.Storage.DataDir); err != nil {
		t.Errorf("data directory not created: %v", err)
	}
}

func TestVerify_MemoryIgnoresDataDir(t *testing.T) {
	cfg := validConfig(t)
	cfg.Storage.Backend = backend.Memory
	cfg.Storage.DataDir = ""

	if err := Verify(cfg); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
}

func TestSanitize(t *testing.T) {
	cfg := validConfig(t)
	cfg.Storage.Redis.Password = "redis-password"
	cfg.OAuth.GitHub.ClientSecret = "github-client-secret"
	cfg.Security.TokenHashKey = "abc"

	s := Sanitize(cfg)

	if cfg.Storage.Redis.Password != "redis-password" {
		t.Error("original config was modified")
	}
	if s.Storage.Redis.Password != "re**********rd" {
		t.Errorf("Redis.Password = %q", s.Storage.Redis.Password)
	}
	if strings.Contains(s.OAuth.GitHub.ClientSecret, "client") {
		t.Errorf("ClientSecret not masked: %q", s.OAuth.GitHub.ClientSecret)
	}
	if s.Security.TokenHashKey != "****" {
		t.Errorf("TokenHashKey = %q, want ****", s.Security.TokenHashKey)
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"a", "****"},
		{"abcd", "****"},
		{"abcde", "ab*de"},
		{"1234567890", "12******90"},
	}

	for _, tt := range tests {
		if got := maskSecret(tt.input); got != tt.expected {
			t.Errorf("maskSecret(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestBackendConfig(t *testing.T) {
	cfg := validConfig(t)
	cfg.Storage.Backend = backend.Redis
	cfg.Storage.Badger.GCInterval = "5m"
	cfg.Storage.Badger.SyncWrites = false
	cfg.Storage.Redis = RedisSection{Addr: "redis:6379", Username: "u", Password: "p", DB: 2, KeyPrefix: "gr:"}

	bc := cfg.BackendConfig()
	if bc.Backend != backend.Redis {
		t.Errorf("Backend = %q", bc.Backend)
	}
	if bc.Badger.Dir != cfg.Storage.DataDir || bc.Badger.Badger.GCInterval != "5m" || bc.Badger.Badger.SyncWrites {
		t.Errorf("Badger = %+v", bc.Badger)
	}
	if bc.Redis.Addr != "redis:6379" || bc.Redis.DB != 2 || bc.Redis.KeyPrefix != "gr:" || bc.Redis.Password != "p" {
		t.Errorf("Redis = %+v", bc.Redis)
	}
}

func TestLoggerConfigAndHashKey(t *testing.T) {
	cfg := validConfig(t)
	cfg.Log.Level = "debug"

	lc := cfg.LoggerConfig()
	if lc.Level != "debug" || lc.Format != DefaultLogFormat || lc.Output != os.Stdout {
		t.Errorf("LoggerConfig() = %+v", lc)
	}

	if cfg.TokenHashKey() != nil {
		t.Error("TokenHashKey() should be nil when unset")
	}
	cfg.Security.TokenHashKey = "deployment-key"
	if string(cfg.TokenHashKey()) != "deployment-key" {
		t.Errorf("TokenHashKey() = %q", cfg.TokenHashKey())
	}
}
