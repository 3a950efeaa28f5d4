// Package command defines the graphite-cli commands.
//
// The CLI works offline against the store named by the server
// configuration, the same file and GRAPHITE_ variables graphite-server
// reads. It mints and inspects sessions, lists users and projects and
// runs backend maintenance. Results go through the output package so
// every command honours --output.
package command
