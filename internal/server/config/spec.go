package config

import "time"

// ServerConfig is the root configuration for graphite-server.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server"`
	General  GeneralSection  `koanf:"general"`
	Session  SessionSection  `koanf:"session"`
	Storage  StorageSection  `koanf:"storage"`
	OAuth    OAuthSection    `koanf:"oauth"`
	Security SecuritySection `koanf:"security"`
	Log      LogSection      `koanf:"log"`
}

// ServerSection configures the TLS listener.
type ServerSection struct {
	Addr        string `koanf:"addr"`
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`

	// TLSReloadDebounce is how long the key pair must stay unchanged on
	// disk before it is reloaded.
	TLSReloadDebounce time.Duration `koanf:"tls_reload_debounce"`

	// HandshakeTimeout bounds the TLS handshake of each connection.
	HandshakeTimeout  time.Duration `koanf:"handshake_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	MaxHeaderBytes    int           `koanf:"max_header_bytes"`

	// Failed handshakes are logged at most HandshakeLogBurst at once,
	// refilling one per HandshakeLogInterval.
	HandshakeLogInterval time.Duration `koanf:"handshake_log_interval"`
	HandshakeLogBurst    int           `koanf:"handshake_log_burst"`
}

// GeneralSection holds settings shared by several handlers.
type GeneralSection struct {
	// ClientAddr is the browser origin of the web client. It is the CORS
	// allowed origin and the redirect target after login. Optional.
	ClientAddr string `koanf:"client_addr"`
}

// SessionSection configures the session cookie.
type SessionSection struct {
	CookieMaxAge time.Duration `koanf:"cookie_max_age"`
}

// StorageSection selects and tunes the KV backend.
type StorageSection struct {
	Backend string        `koanf:"backend"`
	DataDir string        `koanf:"data_dir"`
	Badger  BadgerSection `koanf:"badger"`
	Redis   RedisSection  `koanf:"redis"`
}

// BadgerSection tunes the embedded badger backend.
type BadgerSection struct {
	GCInterval string `koanf:"gc_interval"`
	SyncWrites bool   `koanf:"sync_writes"`
}

// RedisSection configures the redis backend.
type RedisSection struct {
	Addr      string `koanf:"addr"`
	Username  string `koanf:"username"`
	Password  string `koanf:"password"`
	DB        int    `koanf:"db"`
	KeyPrefix string `koanf:"key_prefix"`
}

// OAuthSection configures identity providers.
type OAuthSection struct {
	GitHub GitHubSection `koanf:"github"`
}

// GitHubSection configures GitHub login. Leaving ClientID empty disables
// the login routes. The URL fields override github.com for tests and
// GitHub Enterprise.
type GitHubSection struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	RedirectURL  string `koanf:"redirect_url"`
	AuthURL      string `koanf:"auth_url"`
	TokenURL     string `koanf:"token_url"`
	APIURL       string `koanf:"api_url"`
}

// SecuritySection configures security settings.
type SecuritySection struct {
	// TokenHashKey keys the hash under which session tokens are stored.
	// Changing it invalidates every existing session.
	TokenHashKey string `koanf:"token_hash_key"`

	// TLSCAFile is an extra CA bundle trusted by outbound clients.
	TLSCAFile string `koanf:"tls_ca_file"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
