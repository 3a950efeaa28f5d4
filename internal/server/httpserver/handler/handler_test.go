package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/yndnr/graphite-go/internal/core/domain"
	"github.com/yndnr/graphite-go/internal/core/service"
	"github.com/yndnr/graphite-go/internal/oauth/github"
	"github.com/yndnr/graphite-go/internal/server/httpserver/authctx"
	"github.com/yndnr/graphite-go/internal/storage"
	"github.com/yndnr/graphite-go/internal/storage/memory"
)

// fakeGitHub implements OAuthProvider for testing.
type fakeGitHub struct {
	mu          sync.RWMutex
	user        *github.User
	exchangeErr error
	fetchErr    error
	codes       []string
}

func (f *fakeGitHub) AuthCodeURL(state string) string {
	return "https://github.test/login/oauth/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeGitHub) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes = append(f.codes, code)
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return &oauth2.Token{AccessToken: "gho_" + code}, nil
}

func (f *fakeGitHub) FetchUser(_ context.Context, _ *oauth2.Token) (*github.User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	u := *f.user
	return &u, nil
}

// fakePinger implements Pinger for testing.
type fakePinger struct {
	err error
}

func (p *fakePinger) Ping(context.Context) error { return p.err }

type testEnv struct {
	handler  *Handler
	sessions *storage.SessionStore
	github   *fakeGitHub
}

func newTestEnv(t *testing.T, configure ...func(*Config)) *testEnv {
	t.Helper()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	kv := memory.New()
	t.Cleanup(func() { kv.Close() })

	sessions := storage.NewSessionStore(kv, storage.WithLogger(log))
	users := service.NewUserService(storage.NewUserRepo(kv), log)
	gh := &fakeGitHub{user: &github.User{ID: 42, Login: "octocat", Name: "The Octocat", AvatarURL: "https://avatars.test/42"}}

	cfg := Config{
		Login:        service.NewLoginService(users, sessions),
		Projects:     service.NewProjectService(storage.NewProjectRepo(kv)),
		GitHub:       gh,
		Store:        kv,
		Logger:       log,
		CookieMaxAge: time.Hour,
	}
	for _, fn := range configure {
		fn(&cfg)
	}

	return &testEnv{handler: New(cfg), sessions: sessions, github: gh}
}

func (e *testEnv) do(t *testing.T, r *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, r)
	return rec
}

// asUser attaches a resolved session for userID, as the session
// middleware would.
func asUser(r *http.Request, userID int64) *http.Request {
	s := &domain.Session{UserID: userID, Name: "user", CreatedAt: time.Now().UnixMilli()}
	return r.WithContext(authctx.WithSession(r.Context(), s))
}

type envelope struct {
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
	Details   any             `json:"details"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	env := decodeEnvelope(t, rec)
	if env.Code != "OK" {
		t.Fatalf("code = %s, want OK (body %s)", env.Code, rec.Body.String())
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var data map[string]string
	decodeData(t, rec, &data)
	if data["status"] != "healthy" {
		t.Errorf("status = %q", data["status"])
	}
}

func TestReady(t *testing.T) {
	t.Run("store reachable", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, httptest.NewRequest(http.MethodGet, "/ready", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("store down", func(t *testing.T) {
		env := newTestEnv(t, func(c *Config) {
			c.Store = &fakePinger{err: errors.New("connection refused")}
		})
		rec := env.do(t, httptest.NewRequest(http.MethodGet, "/ready", nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", rec.Code)
		}
		if got := rec.Header().Get("X-Error-Code"); got != "GR-SYS-5030" {
			t.Errorf("X-Error-Code = %q", got)
		}
		if strings.Contains(rec.Body.String(), "connection refused") {
			t.Error("response leaks the store error")
		}
	})
}

func TestMetricsRoute(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("enabled", func(t *testing.T) {
		env := newTestEnv(t, func(c *Config) {
			c.Metrics = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("graphite_up 1\n"))
			})
		})
		rec := env.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "graphite_up") {
			t.Errorf("status = %d, body = %q", rec.Code, rec.Body.String())
		}
	})
}

func TestGitHubLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/auth/github/login", nil))
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}

	state := findCookie(rec, stateCookieName)
	if state == nil || state.Value == "" {
		t.Fatal("no oauth_state cookie set")
	}
	if !state.HttpOnly || !state.Secure || state.SameSite != http.SameSiteLaxMode {
		t.Errorf("state cookie attributes = %+v", state)
	}
	if state.Path != stateCookiePath || state.MaxAge != 600 {
		t.Errorf("state cookie Path=%q MaxAge=%d", state.Path, state.MaxAge)
	}

	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("Location: %v", err)
	}
	if loc.Query().Get("state") != state.Value {
		t.Errorf("redirect state = %q, cookie = %q", loc.Query().Get("state"), state.Value)
	}
}

func TestLoginRoutesDisabled(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.GitHub = nil })

	if env.handler.LoginEnabled() {
		t.Error("LoginEnabled() = true without a provider")
	}
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/auth/github/login", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func callbackRequest(query, cookieState string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/auth/github/callback?"+query, nil)
	if cookieState != "" {
		r.AddCookie(&http.Cookie{Name: stateCookieName, Value: cookieState})
	}
	return r
}

func TestGitHubCallback(t *testing.T) {
	t.Run("redirects to client with sid cookie", func(t *testing.T) {
		env := newTestEnv(t, func(c *Config) { c.ClientAddr = "https://app.graphite.test" })

		rec := env.do(t, callbackRequest("code=abc&state=s1", "s1"))
		if rec.Code != http.StatusFound {
			t.Fatalf("status = %d, want 302 (body %s)", rec.Code, rec.Body.String())
		}
		if loc := rec.Header().Get("Location"); loc != "https://app.graphite.test" {
			t.Errorf("Location = %q", loc)
		}

		sid := findCookie(rec, "sid")
		if sid == nil {
			t.Fatal("no sid cookie issued")
		}
		if !sid.HttpOnly || !sid.Secure || sid.SameSite != http.SameSiteNoneMode || sid.Path != "/" {
			t.Errorf("sid cookie attributes = %+v", sid)
		}
		if sid.MaxAge != 3600 {
			t.Errorf("sid MaxAge = %d, want 3600", sid.MaxAge)
		}

		sess, found, err := env.sessions.Get(context.Background(), sid.Value)
		if err != nil || !found {
			t.Fatalf("issued token does not resolve: found=%v err=%v", found, err)
		}
		if sess.UserID != 42 || sess.Name != "The Octocat" {
			t.Errorf("session = %+v", sess)
		}

		if st := findCookie(rec, stateCookieName); st == nil || st.MaxAge >= 0 {
			t.Error("state cookie should be cleared")
		}
	})

	t.Run("answers with user without client address", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(t, callbackRequest("code=abc&state=s1", "s1"))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var user UserResponse
		decodeData(t, rec, &user)
		if user.ID != 42 || user.Name != "The Octocat" {
			t.Errorf("user = %+v", user)
		}
		if findCookie(rec, "sid") == nil {
			t.Error("no sid cookie issued")
		}
	})

	t.Run("state mismatch", func(t *testing.T) {
		tests := []struct {
			name   string
			query  string
			cookie string
		}{
			{"different value", "code=abc&state=s1", "s2"},
			{"no cookie", "code=abc&state=s1", ""},
			{"no state param", "code=abc", "s1"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				env := newTestEnv(t)
				rec := env.do(t, callbackRequest(tt.query, tt.cookie))
				if rec.Code != http.StatusBadRequest {
					t.Fatalf("status = %d, want 400", rec.Code)
				}
				if got := decodeEnvelope(t, rec).Code; got != "GR-AUTH-4003" {
					t.Errorf("code = %s, want GR-AUTH-4003", got)
				}
				if findCookie(rec, "sid") != nil {
					t.Error("sid cookie issued on failed login")
				}
				if len(env.github.codes) != 0 {
					t.Error("code exchanged despite bad state")
				}
			})
		}
	})

	t.Run("missing code", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, callbackRequest("state=s1", "s1"))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("provider failures", func(t *testing.T) {
		tests := []struct {
			name     string
			exchange error
			fetch    error
		}{
			{"exchange", errors.New("bad_verification_code"), nil},
			{"fetch user", nil, errors.New("401 Bad credentials")},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				env := newTestEnv(t)
				env.github.exchangeErr = tt.exchange
				env.github.fetchErr = tt.fetch

				rec := env.do(t, callbackRequest("code=abc&state=s1", "s1"))
				if rec.Code != http.StatusBadGateway {
					t.Fatalf("status = %d, want 502", rec.Code)
				}
				if got := rec.Header().Get("X-Error-Code"); got != "GR-AUTH-5020" {
					t.Errorf("X-Error-Code = %q", got)
				}
				if findCookie(rec, "sid") != nil {
					t.Error("sid cookie issued on failed login")
				}
			})
		}
	})
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)

	t.Run("with session", func(t *testing.T) {
		rec := env.do(t, asUser(httptest.NewRequest(http.MethodGet, "/me", nil), 7))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var me SessionResponse
		decodeData(t, rec, &me)
		if me.UserID != 7 {
			t.Errorf("user_id = %d, want 7", me.UserID)
		}
	})

	t.Run("without session", func(t *testing.T) {
		rec := env.do(t, httptest.NewRequest(http.MethodGet, "/me", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(data)
}

func TestProjects(t *testing.T) {
	env := newTestEnv(t)

	create := func(t *testing.T, userID int64, name string) ProjectResponse {
		t.Helper()
		r := asUser(httptest.NewRequest(http.MethodPost, "/projects", jsonBody(t, ProjectRequest{Name: name})), userID)
		rec := env.do(t, r)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
		}
		var p ProjectResponse
		decodeData(t, rec, &p)
		if loc := rec.Header().Get("Location"); loc != "/projects/"+p.ID {
			t.Errorf("Location = %q", loc)
		}
		return p
	}

	first := create(t, 1, "  alpha  ")
	second := create(t, 1, "beta")
	other := create(t, 2, "gamma")

	if first.Name != "alpha" {
		t.Errorf("name = %q, want trimmed alpha", first.Name)
	}

	t.Run("list is scoped to the user", func(t *testing.T) {
		rec := env.do(t, asUser(httptest.NewRequest(http.MethodGet, "/projects", nil), 1))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var list ListProjectsResponse
		decodeData(t, rec, &list)
		if list.Total != 2 || len(list.Items) != 2 {
			t.Fatalf("total = %d, items = %d; want 2", list.Total, len(list.Items))
		}
		if list.Items[0].ID != first.ID || list.Items[1].ID != second.ID {
			t.Errorf("items not in creation order: %+v", list.Items)
		}
	})

	t.Run("empty list", func(t *testing.T) {
		rec := env.do(t, asUser(httptest.NewRequest(http.MethodGet, "/projects", nil), 99))
		var list ListProjectsResponse
		decodeData(t, rec, &list)
		if list.Items == nil || len(list.Items) != 0 {
			t.Errorf("items = %v, want empty array", list.Items)
		}
	})

	t.Run("get own project", func(t *testing.T) {
		rec := env.do(t, asUser(httptest.NewRequest(http.MethodGet, "/projects/"+first.ID, nil), 1))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var p ProjectResponse
		decodeData(t, rec, &p)
		if p.ID != first.ID {
			t.Errorf("id = %s, want %s", p.ID, first.ID)
		}
	})

	t.Run("other user's project is not found", func(t *testing.T) {
		rec := env.do(t, asUser(httptest.NewRequest(http.MethodGet, "/projects/"+other.ID, nil), 1))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
		if got := decodeEnvelope(t, rec).Code; got != "GR-PROJ-4040" {
			t.Errorf("code = %s", got)
		}
	})

	t.Run("malformed id is not found", func(t *testing.T) {
		rec := env.do(t, asUser(httptest.NewRequest(http.MethodGet, "/projects/nope", nil), 1))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("update", func(t *testing.T) {
		r := asUser(httptest.NewRequest(http.MethodPut, "/projects/"+second.ID, jsonBody(t, ProjectRequest{Name: "beta-2"})), 1)
		rec := env.do(t, r)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
		}
		var p ProjectResponse
		decodeData(t, rec, &p)
		if p.Name != "beta-2" {
			t.Errorf("name = %q", p.Name)
		}
		if p.UpdatedAt.Before(p.CreatedAt) {
			t.Errorf("updated_at %v before created_at %v", p.UpdatedAt, p.CreatedAt)
		}
	})

	t.Run("update other user's project", func(t *testing.T) {
		r := asUser(httptest.NewRequest(http.MethodPut, "/projects/"+other.ID, jsonBody(t, ProjectRequest{Name: "stolen"})), 1)
		rec := env.do(t, r)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("bad input", func(t *testing.T) {
		tests := []struct {
			name string
			body string
			code string
		}{
			{"not json", "{", "GR-SYS-4000"},
			{"empty name", `{"name":"   "}`, "GR-PROJ-4001"},
			{"long name", `{"name":"` + strings.Repeat("x", 65) + `"}`, "GR-PROJ-4001"},
			{"too large", `{"name":"` + strings.Repeat("x", maxBodySize) + `"}`, "GR-SYS-4000"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				r := asUser(httptest.NewRequest(http.MethodPost, "/projects", strings.NewReader(tt.body)), 1)
				rec := env.do(t, r)
				if rec.Code != http.StatusBadRequest {
					t.Fatalf("status = %d, want 400", rec.Code)
				}
				if got := decodeEnvelope(t, rec).Code; got != tt.code {
					t.Errorf("code = %s, want %s", got, tt.code)
				}
			})
		}
	})

	t.Run("no session", func(t *testing.T) {
		rec := env.do(t, httptest.NewRequest(http.MethodGet, "/projects", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})
}

func TestHandleServiceError_HidesInternalCause(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		err      error
		wantCode string
		status   int
	}{
		{"storage", domain.ErrStorageError.WithCause(errors.New("disk on fire")), "GR-SYS-5001", 500},
		{"plain error", errors.New("disk on fire"), "GR-SYS-5000", 500},
		{"domain", domain.ErrProjectNotFound, "GR-PROJ-4040", 404},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			env.handler.handleServiceError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := decodeEnvelope(t, rec).Code; got != tt.wantCode {
				t.Errorf("code = %s, want %s", got, tt.wantCode)
			}
			if strings.Contains(rec.Body.String(), "disk on fire") {
				t.Error("response leaks the internal cause")
			}
		})
	}
}

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{"GR-SESS-4040", http.StatusNotFound},
		{"GR-SESS-4090", http.StatusConflict},
		{"GR-PROJ-4001", http.StatusBadRequest},
		{"GR-AUTH-4003", http.StatusBadRequest},
		{"GR-SYS-4000", http.StatusBadRequest},
		{"GR-AUTH-4010", http.StatusUnauthorized},
		{"GR-AUTH-4011", http.StatusUnauthorized},
		{"GR-ARG-1002", http.StatusBadRequest},
		{"GR-AUTH-5020", http.StatusBadGateway},
		{"GR-SYS-5030", http.StatusServiceUnavailable},
		{"GR-SYS-5001", http.StatusInternalServerError},
		{"", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := errorCodeToHTTPStatus(tt.code); got != tt.want {
				t.Errorf("errorCodeToHTTPStatus(%q) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}

func TestResponseEnvelope_RequestID(t *testing.T) {
	env := newTestEnv(t)

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Header.Set("X-Request-ID", "req-123")
	rec := env.do(t, r)

	got := decodeEnvelope(t, rec)
	if got.RequestID != "req-123" {
		t.Errorf("request_id = %q, want req-123", got.RequestID)
	}
	if got.Timestamp == 0 {
		t.Error("timestamp not set")
	}
}
