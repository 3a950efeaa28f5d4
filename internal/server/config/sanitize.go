package config

import "strings"

// Sanitize returns a copy of the config with secrets masked, for logging
// and `graphite-cli config show`.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg

	sanitized.Storage.Redis.Password = maskSecret(sanitized.Storage.Redis.Password)
	sanitized.OAuth.GitHub.ClientSecret = maskSecret(sanitized.OAuth.GitHub.ClientSecret)
	sanitized.Security.TokenHashKey = maskSecret(sanitized.Security.TokenHashKey)

	return &sanitized
}

// maskSecret masks a secret value for safe logging. Empty stays empty.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
