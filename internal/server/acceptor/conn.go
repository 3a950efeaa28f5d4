package acceptor

import (
	"io"
	"net"
	"sync"
)

// oneConnListener hands a single connection to http.Server.Serve. Once
// the connection is taken, Accept reports io.EOF so Serve returns while
// the connection keeps being served.
type oneConnListener struct {
	mu   sync.Mutex
	conn net.Conn
	addr net.Addr
	used bool
}

func (l *oneConnListener) Accept() (net.Conn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.used {
		return nil, io.EOF
	}
	l.used = true
	return l.conn, nil
}

func (l *oneConnListener) Close() error { return nil }

func (l *oneConnListener) Addr() net.Addr { return l.addr }

func (l *oneConnListener) taken() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.used
}
