// Package tlsroots manages the certificates graphite serves and trusts.
//
// Watcher holds the server key pair and swaps it in place when the files
// change on disk. Pool builds the root set used by outbound clients: the
// system roots plus an optional operator-supplied CA bundle.
package tlsroots
