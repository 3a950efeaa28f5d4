// Package httpserver assembles the HTTP API of graphite.
//
// It owns the middleware and the routing; the handlers live in the
// handler subpackage and the TLS listener in the acceptor package.
//
//   - Public endpoints: /health, /ready, /metrics, /auth/github/*
//   - Session endpoints: /me, /projects, /projects/{id}
//
// Session endpoints sit behind SessionAuth, which resolves the sid cookie
// through the session store and places the session in the request
// context. Handlers read it back with SessionFromContext.
//
// Middleware chain: Recover, RequestID, AccessLog, CORS, then SessionAuth
// on session endpoints.
package httpserver
