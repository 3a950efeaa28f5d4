// Package config defines the graphite-server configuration.
//
//   - spec.go: ServerConfig and its sections, with koanf tags
//   - default.go: default values
//   - verify.go: validation run before anything is opened
//   - sanitize.go: a copy safe to print or log
//   - convert.go: translation into the option types of other packages
//   - load.go: Load, layering file, dotenv and environment over defaults
//
// Values are read by internal/infra/confloader. graphite-server runs
// Verify on the result; graphite-cli only needs VerifyStore.
package config
