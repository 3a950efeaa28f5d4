package acceptor

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/time/rate"

	"github.com/yndnr/graphite-go/internal/telemetry/metric"
)

// Negotiated application protocols.
const (
	ProtoH2    = "h2"
	ProtoHTTP1 = "http/1.1"
)

// Defaults applied to zero Config fields.
const (
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
)

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// ErrNoTLSConfig is returned by New when Config.TLSConfig is nil.
var ErrNoTLSConfig = errors.New("acceptor: tls config is required")

// Config holds the acceptor configuration.
type Config struct {
	// TLSConfig supplies the server certificate. NextProtos is replaced
	// with h2 and http/1.1.
	TLSConfig *tls.Config

	// HandshakeTimeout bounds the TLS handshake of each connection.
	HandshakeTimeout time.Duration

	// ReadHeaderTimeout, IdleTimeout and MaxHeaderBytes apply to both
	// protocols.
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
}

// Option configures an Acceptor.
type Option func(*Acceptor)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Acceptor) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMetrics sets the metrics registry.
func WithMetrics(m *metric.Registry) Option {
	return func(a *Acceptor) {
		a.metrics = m
	}
}

// WithFailureLogLimit sets how often handshake failures may be logged.
// The default allows one warning per second with a burst of 5.
func WithFailureLogLimit(every time.Duration, burst int) Option {
	return func(a *Acceptor) {
		a.failLog = rate.NewLimiter(rate.Every(every), burst)
	}
}

// Acceptor accepts TLS connections and serves HTTP on them.
type Acceptor struct {
	cfg        Config
	tlsConfig  *tls.Config
	handler    http.Handler
	httpServer *http.Server
	h2Server   *http2.Server
	logger     *slog.Logger
	metrics    *metric.Registry
	failLog    *rate.Limiter

	mu      sync.Mutex
	ln      net.Listener
	baseCtx context.Context
	cancel  context.CancelFunc

	// http1Done maps a connection served by httpServer to the channel
	// closed when httpServer is done with it.
	http1Done sync.Map

	// conns holds every accepted connection until its goroutine exits.
	conns sync.Map

	// closing is set by Shutdown under mu. No connection is admitted
	// to an HTTP server after that.
	closing bool

	// h2Starting counts admitted h2 connections that http2.Server has
	// not registered yet; h2Ready maps each of them to its release func.
	h2Starting sync.WaitGroup
	h2Ready    sync.Map

	running atomic.Bool
	wg      sync.WaitGroup
}

// New creates an Acceptor serving handler.
func New(cfg Config, handler http.Handler, opts ...Option) (*Acceptor, error) {
	if cfg.TLSConfig == nil {
		return nil, ErrNoTLSConfig
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.MaxHeaderBytes <= 0 {
		cfg.MaxHeaderBytes = http.DefaultMaxHeaderBytes
	}

	tlsConfig := cfg.TLSConfig.Clone()
	tlsConfig.NextProtos = []string{ProtoH2, ProtoHTTP1}
	if tlsConfig.MinVersion == 0 {
		tlsConfig.MinVersion = tls.VersionTLS12
	}

	a := &Acceptor{
		cfg:       cfg,
		tlsConfig: tlsConfig,
		handler:   handler,
		logger:    slog.Default(),
		failLog:   rate.NewLimiter(rate.Every(time.Second), 5),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.baseCtx, a.cancel = context.WithCancel(context.Background())
	a.httpServer = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
		ErrorLog:          slog.NewLogLogger(a.logger.Handler(), slog.LevelDebug),
		BaseContext:       func(net.Listener) context.Context { return a.baseCtx },
		ConnState:         a.trackConnState,
	}
	a.h2Server = &http2.Server{
		IdleTimeout: cfg.IdleTimeout,
	}
	// Ties h2 connections to httpServer.Shutdown so both protocols drain
	// together.
	if err := http2.ConfigureServer(a.httpServer, a.h2Server); err != nil {
		return nil, fmt.Errorf("configure http2: %w", err)
	}

	return a, nil
}

// Serve accepts connections on ln until Shutdown is called or ln fails
// permanently. Temporary accept errors are retried with exponential
// backoff. Serve returns nil after Shutdown.
func (a *Acceptor) Serve(ctx context.Context, ln net.Listener) error {
	a.mu.Lock()
	if a.ln != nil {
		a.mu.Unlock()
		return errors.New("acceptor: already serving")
	}
	a.ln = ln
	a.mu.Unlock()

	a.running.Store(true)
	a.logger.Info("accepting connections", "address", ln.Addr().String())

	stop := context.AfterFunc(ctx, func() {
		a.running.Store(false)
		ln.Close()
	})
	defer stop()

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if !a.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() || isTemporary(err) {
				if backoff == 0 {
					backoff = minAcceptBackoff
				} else {
					backoff *= 2
				}
				if backoff > maxAcceptBackoff {
					backoff = maxAcceptBackoff
				}
				a.logger.Warn("accept failed, retrying", "error", err, "backoff", backoff)

				timer := time.NewTimer(backoff)
				select {
				case <-timer.C:
				case <-ctx.Done():
					timer.Stop()
					return nil
				}
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}
		backoff = 0

		a.wg.Add(1)
		a.conns.Store(conn, struct{}{})
		go func() {
			defer a.wg.Done()
			defer a.conns.Delete(conn)
			a.serveConn(conn)
		}()
	}
}

// isTemporary reports whether err is an accept error worth retrying, as
// net/http does.
func isTemporary(err error) bool {
	var te interface{ Temporary() bool }
	return errors.As(err, &te) && te.Temporary()
}

// serveConn performs the TLS handshake and serves the negotiated protocol.
func (a *Acceptor) serveConn(conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("panic serving connection",
				"remote", conn.RemoteAddr().String(),
				"panic", r,
			)
			conn.Close()
		}
	}()

	tlsConn := tls.Server(conn, a.tlsConfig)

	hsCtx, cancel := context.WithTimeout(a.baseCtx, a.cfg.HandshakeTimeout)
	err := tlsConn.HandshakeContext(hsCtx)
	cancel()
	if err != nil {
		tlsConn.Close()
		a.metrics.RecordHandshake("failed")
		if a.failLog.Allow() {
			a.logger.Warn("tls handshake failed",
				"remote", conn.RemoteAddr().String(),
				"error", err,
			)
		}
		return
	}
	a.metrics.RecordHandshake("ok")

	proto := tlsConn.ConnectionState().NegotiatedProtocol
	if proto == "" {
		proto = ProtoHTTP1
	}
	if proto == ProtoH2 {
		if err := a.readPreface(tlsConn); err != nil {
			a.logger.Debug("h2 preface not received",
				"remote", conn.RemoteAddr().String(),
				"error", err,
			)
			tlsConn.Close()
			return
		}
	}
	if !a.admit(tlsConn, proto == ProtoH2) {
		a.logger.Debug("connection refused during shutdown",
			"remote", conn.RemoteAddr().String(),
		)
		tlsConn.Close()
		return
	}
	a.metrics.ConnectionOpened(proto)
	defer a.metrics.ConnectionClosed()

	if proto == ProtoH2 {
		a.serveH2(tlsConn)
		return
	}

	a.serveHTTP1(tlsConn)
}

// readPreface consumes the h2 client preface within the handshake
// timeout, so ServeConn has nothing left to wait for before it
// registers the connection.
func (a *Acceptor) readPreface(conn *tls.Conn) error {
	conn.SetReadDeadline(time.Now().Add(a.cfg.HandshakeTimeout))
	defer conn.SetReadDeadline(time.Time{})

	buf := make([]byte, len(http2.ClientPreface))
	if _, err := io.ReadFull(conn, buf); err != nil {
		return fmt.Errorf("read preface: %w", err)
	}
	if string(buf) != http2.ClientPreface {
		return errors.New("invalid client preface")
	}
	return nil
}

// admit reports whether a handshaken connection may be served. An h2
// connection stays counted in h2Starting until http2.Server has
// registered it, so Shutdown can wait for it before draining.
func (a *Acceptor) admit(conn *tls.Conn, h2 bool) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closing {
		return false
	}
	if h2 {
		a.h2Starting.Add(1)
		var once sync.Once
		a.h2Ready.Store(conn, func() { once.Do(a.h2Starting.Done) })
	}
	return true
}

// serveH2 serves an admitted h2 connection.
func (a *Acceptor) serveH2(conn *tls.Conn) {
	// ServeConn may return before reporting any state.
	defer a.markH2Ready(conn)

	a.h2Server.ServeConn(conn, &http2.ServeConnOpts{
		Context:          a.baseCtx,
		BaseConfig:       a.httpServer,
		Handler:          a.handler,
		SawClientPreface: true,
	})
}

// markH2Ready releases an admitted h2 connection from h2Starting.
func (a *Acceptor) markH2Ready(c net.Conn) {
	if ready, ok := a.h2Ready.LoadAndDelete(c); ok {
		ready.(func())()
	}
}

// serveHTTP1 serves one connection through the shared http.Server and
// returns once the server is done with it.
func (a *Acceptor) serveHTTP1(conn *tls.Conn) {
	done := make(chan struct{})
	a.http1Done.Store(conn, done)

	ln := &oneConnListener{conn: conn, addr: conn.LocalAddr()}
	if err := a.httpServer.Serve(ln); err != nil && !ln.taken() {
		// The server was shut down before it took the connection.
		a.http1Done.Delete(conn)
		conn.Close()
		return
	}
	<-done
}

// trackConnState releases serveHTTP1 when a connection is finished.
// http2.Server reports its first state only after registering the
// connection, which ends the h2 admission window.
func (a *Acceptor) trackConnState(c net.Conn, state http.ConnState) {
	if state == http.StateActive || state == http.StateIdle {
		a.markH2Ready(c)
		return
	}
	if state != http.StateClosed && state != http.StateHijacked {
		return
	}
	if done, ok := a.http1Done.LoadAndDelete(c); ok {
		close(done.(chan struct{}))
	}
}

// Shutdown stops accepting, then gracefully closes HTTP/1.1 and HTTP/2
// connections. It waits for every connection goroutine or ctx.
func (a *Acceptor) Shutdown(ctx context.Context) error {
	a.running.Store(false)

	var firstErr error

	a.mu.Lock()
	a.closing = true
	if a.ln != nil {
		if err := a.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			firstErr = err
		}
	}
	a.mu.Unlock()

	// The graceful shutdown hook only reaches registered h2 connections.
	if err := waitCtx(ctx, &a.h2Starting); err != nil {
		a.forceClose()
		return err
	}

	if err := a.httpServer.Shutdown(ctx); err != nil && firstErr == nil {
		firstErr = err
	}

	if err := waitCtx(ctx, &a.wg); err != nil {
		a.forceClose()
		return err
	}

	a.cancel()
	return firstErr
}

// forceClose brings the remaining handshakes and connections down.
func (a *Acceptor) forceClose() {
	a.cancel()
	a.httpServer.Close()
	a.conns.Range(func(c, _ any) bool {
		c.(net.Conn).Close()
		return true
	})
}

// waitCtx waits for wg or ctx, whichever is first.
func waitCtx(ctx context.Context, wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Addr returns the address being served, or nil before Serve.
func (a *Acceptor) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ln == nil {
		return nil
	}
	return a.ln.Addr()
}
