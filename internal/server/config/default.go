package config

import (
	"time"

	"github.com/yndnr/graphite-go/internal/storage/backend"
	"github.com/yndnr/graphite-go/internal/storage/redisstore"
)

// Default configuration values.
const (
	DefaultAddr              = "127.0.0.1:8443"
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
	DefaultShutdownTimeout   = 30 * time.Second
	DefaultMaxHeaderBytes    = 1 << 20
	DefaultTLSReloadDebounce = 500 * time.Millisecond

	DefaultHandshakeLogInterval = time.Second
	DefaultHandshakeLogBurst    = 5

	DefaultCookieMaxAge = 30 * 24 * time.Hour

	DefaultBackend     = backend.Badger
	DefaultDataDir     = "/var/lib/graphite/data"
	DefaultGCInterval  = "10m"
	DefaultRedisAddr   = "127.0.0.1:6379"
	DefaultRedisPrefix = redisstore.DefaultKeyPrefix

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Addr:              DefaultAddr,
			HandshakeTimeout:  DefaultHandshakeTimeout,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			IdleTimeout:       DefaultIdleTimeout,
			ShutdownTimeout:   DefaultShutdownTimeout,
			MaxHeaderBytes:    DefaultMaxHeaderBytes,
			TLSReloadDebounce: DefaultTLSReloadDebounce,

			HandshakeLogInterval: DefaultHandshakeLogInterval,
			HandshakeLogBurst:    DefaultHandshakeLogBurst,
		},
		Session: SessionSection{
			CookieMaxAge: DefaultCookieMaxAge,
		},
		Storage: StorageSection{
			Backend: DefaultBackend,
			DataDir: DefaultDataDir,
			Badger: BadgerSection{
				GCInterval: DefaultGCInterval,
				SyncWrites: true,
			},
			Redis: RedisSection{
				Addr:      DefaultRedisAddr,
				KeyPrefix: DefaultRedisPrefix,
			},
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
