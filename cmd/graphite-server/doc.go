// Package main provides the entry point for graphite-server.
//
// The server terminates TLS itself, negotiating h2 or http/1.1 per
// connection, and serves the graphite API: GitHub login, the session
// cookie and the project routes behind it.
//
// Usage:
//
//	graphite-server --config /etc/graphite/graphite.yaml
//	graphite-server --version
//
// Settings come from the YAML file, a .env file in the working
// directory and GRAPHITE_ environment variables, later sources winning.
// A certificate that cannot be loaded stops startup.
package main
