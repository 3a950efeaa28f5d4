package httpserver

import (
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yndnr/graphite-go/internal/server/httpserver/authctx"
)

// SessionToken extracts the session token from the Cookie headers of a
// request. Every Cookie header is read in order and the first sid pair
// decides. A first sid that is empty or not valid percent-encoded UTF-8 yields
// no token; later sid pairs are never consulted.
func SessionToken(h http.Header) (string, bool) {
	tok, _ := parseSessionCookie(h)
	return tok, tok != ""
}

// parseSessionCookie returns the decoded value of the first sid pair and
// the number of sid pairs seen.
func parseSessionCookie(h http.Header) (string, int) {
	var (
		tok   string
		count int
	)

	for _, line := range h.Values("Cookie") {
		for _, part := range strings.Split(line, ";") {
			name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
			if !ok {
				continue
			}
			if strings.TrimSpace(name) != authctx.CookieName {
				continue
			}
			count++
			if count == 1 {
				tok = decodeCookieValue(strings.TrimSpace(value))
			}
		}
	}

	return tok, count
}

// decodeCookieValue strips one pair of surrounding double quotes and
// percent-decodes the rest. Input that is not valid percent-encoding of
// UTF-8 yields "".
func decodeCookieValue(v string) string {
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		v = v[1 : len(v)-1]
	}
	decoded, err := url.PathUnescape(v)
	if err != nil || !utf8.ValidString(decoded) {
		return ""
	}
	return decoded
}

// NewSessionCookie builds the Set-Cookie value issued after login.
func NewSessionCookie(token string, maxAge time.Duration) *http.Cookie {
	return authctx.NewCookie(token, maxAge)
}
