// Package confloader loads layered configuration with koanf.
//
// Sources are applied in increasing priority:
//
//  1. Defaults already present in the target struct
//  2. A YAML configuration file
//  3. A dotenv file, copied into the process environment
//  4. GRAPHITE_ environment variables
//
// Environment keys use a double underscore as the nesting separator so that
// field names can keep their single underscores:
//
//	GRAPHITE_SERVER__TLS_CERT_FILE -> server.tls_cert_file
//
// Watcher reports edits to the configuration file so that a small set of
// settings (currently the log level) can be applied without a restart.
package confloader
