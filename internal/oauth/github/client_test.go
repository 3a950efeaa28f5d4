package github

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

// fakeGitHub serves the token and user endpoints.
func fakeGitHub(t *testing.T, userStatus int, user any) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if r.PostForm.Get("code") != "good-code" {
			http.Error(w, `{"error":"bad_verification_code"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"access_token": "gho_test",
			"token_type":   "bearer",
		})
	})
	mux.HandleFunc("GET /user", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer gho_test" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/vnd.github+json" {
			t.Errorf("Accept = %q", got)
		}
		if got := r.Header.Get("User-Agent"); !strings.HasPrefix(got, "graphite/") {
			t.Errorf("User-Agent = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(userStatus)
		json.NewEncoder(w).Encode(user)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server) *Client {
	return New(Config{
		ClientID:     "cid",
		ClientSecret: "secret",
		RedirectURL:  "https://graphite.test/auth/github/callback",
		AuthURL:      srv.URL + "/login/oauth/authorize",
		TokenURL:     srv.URL + "/login/oauth/access_token",
		APIURL:       srv.URL + "/",
	})
}

func TestClient_AuthCodeURL(t *testing.T) {
	c := New(Config{ClientID: "cid", RedirectURL: "https://graphite.test/cb"})

	raw := c.AuthCodeURL("state-123")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if u.Host != "github.com" {
		t.Errorf("host = %q, want github.com", u.Host)
	}
	q := u.Query()
	if q.Get("state") != "state-123" {
		t.Errorf("state = %q", q.Get("state"))
	}
	if q.Get("client_id") != "cid" {
		t.Errorf("client_id = %q", q.Get("client_id"))
	}
	if q.Get("redirect_uri") != "https://graphite.test/cb" {
		t.Errorf("redirect_uri = %q", q.Get("redirect_uri"))
	}
}

func TestClient_ExchangeAndFetchUser(t *testing.T) {
	srv := fakeGitHub(t, http.StatusOK, map[string]any{
		"id":         42,
		"login":      "octocat",
		"name":       "The Octocat",
		"avatar_url": "https://avatars.example/42",
	})
	c := newTestClient(srv)
	ctx := context.Background()

	tok, err := c.Exchange(ctx, "good-code")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if tok.AccessToken != "gho_test" {
		t.Errorf("AccessToken = %q", tok.AccessToken)
	}

	user, err := c.FetchUser(ctx, tok)
	if err != nil {
		t.Fatalf("FetchUser: %v", err)
	}
	if user.ID != 42 || user.Login != "octocat" {
		t.Errorf("user = %+v", user)
	}

	id := user.Identity()
	if id.UserID != 42 || id.Name != "The Octocat" || id.AvatarURL != "https://avatars.example/42" {
		t.Errorf("Identity() = %+v", id)
	}
}

func TestClient_ExchangeRejected(t *testing.T) {
	srv := fakeGitHub(t, http.StatusOK, nil)
	c := newTestClient(srv)

	if _, err := c.Exchange(context.Background(), "bad-code"); err == nil {
		t.Fatal("Exchange should fail for a rejected code")
	}
}

func TestClient_FetchUserErrors(t *testing.T) {
	tok := &oauth2.Token{AccessToken: "gho_test", TokenType: "bearer"}

	t.Run("non-200 status", func(t *testing.T) {
		srv := fakeGitHub(t, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
		if _, err := newTestClient(srv).FetchUser(context.Background(), tok); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("missing id", func(t *testing.T) {
		srv := fakeGitHub(t, http.StatusOK, map[string]string{"login": "ghost"})
		_, err := newTestClient(srv).FetchUser(context.Background(), tok)
		if !errors.Is(err, ErrInvalidUser) {
			t.Fatalf("err = %v, want ErrInvalidUser", err)
		}
	})
}

func TestUser_IdentityFallsBackToLogin(t *testing.T) {
	u := &User{ID: 7, Login: "hubot"}
	if got := u.Identity().Name; got != "hubot" {
		t.Errorf("Name = %q, want hubot", got)
	}
}

func TestClient_TLSConfig(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":7,"login":"octocat"}`)
	}))
	t.Cleanup(srv.Close)

	roots := x509.NewCertPool()
	roots.AddCert(srv.Certificate())
	tok := &oauth2.Token{AccessToken: "gho_test", TokenType: "bearer"}

	t.Run("trusted", func(t *testing.T) {
		c := New(Config{APIURL: srv.URL, TLSConfig: &tls.Config{RootCAs: roots}})
		user, err := c.FetchUser(context.Background(), tok)
		if err != nil {
			t.Fatalf("FetchUser() error = %v", err)
		}
		if user.ID != 7 {
			t.Errorf("user.ID = %d, want 7", user.ID)
		}
	})

	t.Run("system roots only", func(t *testing.T) {
		c := New(Config{APIURL: srv.URL})
		if _, err := c.FetchUser(context.Background(), tok); err == nil {
			t.Error("FetchUser() should fail against an untrusted certificate")
		}
	})
}
