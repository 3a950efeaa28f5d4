// Package acceptor serves HTTP over TLS with ALPN negotiation of h2 and
// http/1.1.
//
// The accept loop never blocks on a client: every accepted connection is
// handed to its own goroutine, which performs the TLS handshake under a
// deadline and then serves the negotiated protocol. Handshake failures
// close the connection and are only counted and logged (rate limited);
// they never reach the accept loop.
package acceptor
