package config

import (
	"fmt"

	"github.com/yndnr/graphite-go/internal/infra/confloader"
)

// DotEnvFile is read from the working directory when present.
const DotEnvFile = ".env"

// Load builds a configuration from the defaults, the YAML file at path
// (optional), DotEnvFile and GRAPHITE_ environment variables, in that
// order of precedence. The result is not verified.
func Load(path string) (*ServerConfig, error) {
	cfg := Default()

	opts := []confloader.Option{confloader.WithDotEnv(DotEnvFile)}
	if path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}

	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
