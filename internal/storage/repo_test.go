package storage_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/yndnr/graphite-go/internal/core/domain"
	"github.com/yndnr/graphite-go/internal/storage"
	"github.com/yndnr/graphite-go/internal/storage/memory"
	"github.com/yndnr/graphite-go/internal/telemetry/metric"
	"github.com/yndnr/graphite-go/pkg/token"
)

// faultyKV wraps a KV and fails selected operations.
type faultyKV struct {
	storage.KV

	mu       sync.Mutex
	failGet  error
	failSet  error
	rejectNX int // number of SetNX calls to report as "exists"
	nxCalls  int
}

func (f *faultyKV) Get(ctx context.Context, key []byte) ([]byte, error) {
	f.mu.Lock()
	err := f.failGet
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.KV.Get(ctx, key)
}

func (f *faultyKV) SetNX(ctx context.Context, key, value []byte) (bool, error) {
	f.mu.Lock()
	f.nxCalls++
	if f.failSet != nil {
		err := f.failSet
		f.mu.Unlock()
		return false, err
	}
	if f.rejectNX > 0 {
		f.rejectNX--
		f.mu.Unlock()
		return false, nil
	}
	f.mu.Unlock()
	return f.KV.SetNX(ctx, key, value)
}

var identity = domain.Identity{UserID: 42, Name: "grace", AvatarURL: "https://avatars.example/42"}

func TestSessionStore_CreateThenGet(t *testing.T) {
	store := storage.NewSessionStore(memory.New())
	ctx := context.Background()

	tok, err := store.Create(ctx, identity)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !token.IsSessionToken(tok) {
		t.Errorf("Create() returned malformed token %q", tok)
	}

	s, found, err := store.Get(ctx, tok)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found {
		t.Fatal("expected session to be found right after Create")
	}
	if s.ID != tok || s.Identity() != identity {
		t.Errorf("unexpected session %+v", s)
	}
}

func TestSessionStore_GetAbsent(t *testing.T) {
	store := storage.NewSessionStore(memory.New())

	for _, tok := range []string{"grs_unknown", "", "not-even-a-token"} {
		s, found, err := store.Get(context.Background(), tok)
		if err != nil {
			t.Errorf("Get(%q) error = %v, absent is not an error", tok, err)
		}
		if found || s != nil {
			t.Errorf("Get(%q) should report absent", tok)
		}
	}
}

func TestSessionStore_MalformedTokenSkipsBackend(t *testing.T) {
	kv := &faultyKV{KV: memory.New(), failGet: errors.New("backend down")}
	store := storage.NewSessionStore(kv)

	for _, tok := range []string{"", "grs_short", "session:abc", "grs_" + strings.Repeat("!", 43)} {
		s, found, err := store.Get(context.Background(), tok)
		if err != nil || found || s != nil {
			t.Errorf("Get(%q) = %v, %v, %v; want absent without a lookup", tok, s, found, err)
		}
	}
}

func TestSessionStore_DistinctTokens(t *testing.T) {
	store := storage.NewSessionStore(memory.New())
	ctx := context.Background()

	a, _ := store.Create(ctx, identity)
	b, _ := store.Create(ctx, identity)
	if a == b {
		t.Fatal("two creates for the same identity must return distinct tokens")
	}

	for _, tok := range []string{a, b} {
		if _, found, _ := store.Get(ctx, tok); !found {
			t.Errorf("session %q should resolve", tok)
		}
	}
}

func TestSessionStore_KeysAreHashed(t *testing.T) {
	kv := memory.New()
	hasher, err := token.NewHasher([]byte("deployment-secret"))
	if err != nil {
		t.Fatal(err)
	}
	store := storage.NewSessionStore(kv, storage.WithHasher(hasher))
	ctx := context.Background()

	tok, err := store.Create(ctx, identity)
	if err != nil {
		t.Fatal(err)
	}

	err = kv.Scan(ctx, nil, func(key, value []byte) bool {
		if strings.Contains(string(key), tok) || strings.Contains(string(value), tok) {
			t.Errorf("token leaked into storage: %s => %s", key, value)
		}
		if string(key) != "session:"+hasher.Sum(tok) {
			t.Errorf("unexpected key %s", key)
		}
		return true
	})
	if err != nil {
		t.Fatal(err)
	}

	// A store with a different key cannot resolve the token.
	other := storage.NewSessionStore(kv)
	if _, found, _ := other.Get(ctx, tok); found {
		t.Error("token should not resolve under a different hash key")
	}
}

func TestSessionStore_StorageErrors(t *testing.T) {
	kv := &faultyKV{KV: memory.New()}
	reg := metric.NewRegistry()
	store := storage.NewSessionStore(kv, storage.WithMetrics(reg))
	ctx := context.Background()

	tok, err := store.Create(ctx, identity)
	if err != nil {
		t.Fatal(err)
	}

	kv.failGet = errors.New("connection reset")
	_, found, err := store.Get(ctx, tok)
	if found {
		t.Error("failed lookup must not report found")
	}
	if !errors.Is(err, domain.ErrStorageError) {
		t.Fatalf("Get() error = %v, want storage error", err)
	}
	if !strings.Contains(errors.Unwrap(err).Error(), "connection reset") {
		t.Errorf("cause not preserved: %v", err)
	}

	kv.failSet = errors.New("disk full")
	if _, err := store.Create(ctx, identity); !errors.Is(err, domain.ErrStorageError) {
		t.Errorf("Create() error = %v, want storage error", err)
	}
}

func TestSessionStore_CorruptRecordIsStorageError(t *testing.T) {
	kv := memory.New()
	store := storage.NewSessionStore(kv)
	ctx := context.Background()

	tok, _ := store.Create(ctx, identity)
	_ = kv.Set(ctx, []byte("session:"+token.Hash(tok)), []byte("{not json"))

	_, found, err := store.Get(ctx, tok)
	if found || !errors.Is(err, domain.ErrStorageError) {
		t.Errorf("Get() = found %v, err %v; want storage error", found, err)
	}
}

func TestSessionStore_CollisionRetry(t *testing.T) {
	t.Run("recovers after collisions", func(t *testing.T) {
		kv := &faultyKV{KV: memory.New(), rejectNX: 2}
		store := storage.NewSessionStore(kv)

		tok, err := store.Create(context.Background(), identity)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if tok == "" || kv.nxCalls != 3 {
			t.Errorf("expected success on third attempt, calls = %d", kv.nxCalls)
		}
	})

	t.Run("gives up", func(t *testing.T) {
		kv := &faultyKV{KV: memory.New(), rejectNX: 10}
		store := storage.NewSessionStore(kv)

		_, err := store.Create(context.Background(), identity)
		if !errors.Is(err, domain.ErrSessionConflict) {
			t.Errorf("Create() error = %v, want conflict", err)
		}
	})
}

func TestSessionStore_RejectsInvalidIdentity(t *testing.T) {
	store := storage.NewSessionStore(memory.New())

	_, err := store.Create(context.Background(), domain.Identity{UserID: 0})
	if !errors.Is(err, domain.ErrSessionValidation) {
		t.Errorf("Create() error = %v, want validation error", err)
	}
}

func TestSessionStore_List(t *testing.T) {
	kv := memory.New()
	store := storage.NewSessionStore(kv)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.Create(ctx, identity); err != nil {
			t.Fatal(err)
		}
	}
	_ = kv.Set(ctx, []byte("session:garbage"), []byte("{"))

	var records []storage.SessionRecord
	if err := store.List(ctx, func(r storage.SessionRecord) bool {
		records = append(records, r)
		return true
	}); err != nil {
		t.Fatal(err)
	}

	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for _, r := range records {
		if r.ID != "" {
			t.Error("listed records must not carry a token")
		}
		if len(r.KeyHash) != 64 || r.UserID != 42 {
			t.Errorf("unexpected record %+v", r)
		}
	}
}

func TestSessionStore_ConcurrentCreate(t *testing.T) {
	store := storage.NewSessionStore(memory.New())
	ctx := context.Background()

	var mu sync.Mutex
	tokens := make(map[string]bool)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := store.Create(ctx, identity)
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			tokens[tok] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(tokens) != 50 {
		t.Errorf("expected 50 distinct tokens, got %d", len(tokens))
	}
}

func TestUserRepo(t *testing.T) {
	repo := storage.NewUserRepo(memory.New())
	ctx := context.Background()

	created, err := repo.CreateIfNew(ctx, domain.NewUser(identity))
	if err != nil || !created {
		t.Fatalf("first CreateIfNew = %v, %v", created, err)
	}

	renamed := domain.NewUser(domain.Identity{UserID: 42, Name: "renamed"})
	created, err = repo.CreateIfNew(ctx, renamed)
	if err != nil || created {
		t.Fatalf("second CreateIfNew = %v, %v; want not created", created, err)
	}

	u, err := repo.Get(ctx, 42)
	if err != nil {
		t.Fatal(err)
	}
	if u.Name != "grace" {
		t.Errorf("existing user must be kept, got %q", u.Name)
	}

	if _, err := repo.Get(ctx, 7); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("Get(7) error = %v, want not found", err)
	}

	if _, err := repo.CreateIfNew(ctx, &domain.User{ID: -1}); !errors.Is(err, domain.ErrUserValidation) {
		t.Errorf("expected validation error, got %v", err)
	}

	count := 0
	if err := repo.List(ctx, func(*domain.User) bool { count++; return true }); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected 1 user, got %d", count)
	}
}

func TestProjectRepo(t *testing.T) {
	repo := storage.NewProjectRepo(memory.New())
	ctx := context.Background()

	newProject := func(userID int64, name string) *domain.Project {
		t.Helper()
		p, err := domain.NewProject(userID, domain.ProjectCreate{Name: name})
		if err != nil {
			t.Fatal(err)
		}
		if err := repo.Create(ctx, p); err != nil {
			t.Fatal(err)
		}
		return p
	}

	first := newProject(1, "alpha")
	second := newProject(1, "beta")
	foreign := newProject(12, "gamma")

	t.Run("FindAllForUser", func(t *testing.T) {
		got, err := repo.FindAllForUser(ctx, 1)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 || got[0].ID != first.ID || got[1].ID != second.ID {
			t.Errorf("unexpected projects %+v", got)
		}

		none, err := repo.FindAllForUser(ctx, 99)
		if err != nil || none == nil || len(none) != 0 {
			t.Errorf("expected empty non-nil slice, got %v, %v", none, err)
		}
	})

	t.Run("FindForUser scopes by owner", func(t *testing.T) {
		if _, err := repo.FindForUser(ctx, 1, foreign.ID); !errors.Is(err, domain.ErrProjectNotFound) {
			t.Errorf("foreign project should be not found, got %v", err)
		}
		p, err := repo.FindForUser(ctx, 12, foreign.ID)
		if err != nil || p.Name != "gamma" {
			t.Errorf("owner lookup = %+v, %v", p, err)
		}
		if _, err := repo.FindForUser(ctx, 1, "../etc"); !errors.Is(err, domain.ErrProjectNotFound) {
			t.Errorf("malformed id should be not found, got %v", err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		p, err := repo.Update(ctx, 1, first.ID, domain.ProjectUpdate{Name: "alpha-2"})
		if err != nil {
			t.Fatal(err)
		}
		if p.Name != "alpha-2" || p.UpdatedAt < p.CreatedAt {
			t.Errorf("unexpected update result %+v", p)
		}

		stored, _ := repo.FindForUser(ctx, 1, first.ID)
		if stored.Name != "alpha-2" {
			t.Errorf("update not persisted, got %q", stored.Name)
		}

		if _, err := repo.Update(ctx, 1, foreign.ID, domain.ProjectUpdate{Name: "x"}); !errors.Is(err, domain.ErrProjectNotFound) {
			t.Errorf("updating a foreign project should be not found, got %v", err)
		}
	})
}
