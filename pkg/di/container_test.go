package di

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"go.uber.org/zap/zaptest"

	"github.com/goliatone/go-query-cache/adminapi"
	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/config"
	"github.com/goliatone/go-query-cache/pkg/testsupport"
	"github.com/goliatone/go-query-cache/session"
)

func testConfig(t testing.TB, baseURL string) config.Config {
	t.Helper()
	return config.Config{
		Environment: "test",
		APIBaseURL:  baseURL,
		SessionDSN:  "sqlite://" + filepath.Join(t.TempDir(), "session.db"),
		LogLevel:    "debug",
		Cache:       cache.DefaultConfig(),
	}
}

func newTestContainer(t testing.TB, cfg config.Config, opts ...Option) *Container {
	t.Helper()

	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	c, err := NewContainer(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	t.Cleanup(func() {
		if err := c.Close(); err != nil {
			t.Errorf("Close() failed: %v", err)
		}
	})
	return c
}

func TestNewContainer(t *testing.T) {
	backend := testsupport.NewBackend(t)
	cfg := testConfig(t, backend.URL())
	container := newTestContainer(t, cfg)

	if container.Store() == nil {
		t.Error("Container should have a non-nil store")
	}
	if container.Client() == nil {
		t.Error("Container should have a non-nil client")
	}
	if container.Session() == nil {
		t.Error("Container should have a non-nil session")
	}
	if container.KeySerializer() == nil {
		t.Error("Container should have a non-nil key serializer")
	}
	if container.Executor().BaseURL() != backend.URL() {
		t.Errorf("Expected executor base URL %s, got %s", backend.URL(), container.Executor().BaseURL())
	}
	if _, err := container.Registry().Get(adminapi.OpGetAllBookings); err != nil {
		t.Errorf("Expected the admin catalog registered: %v", err)
	}

	stored := container.Config()
	if stored.Cache.GraceWindow != cfg.Cache.GraceWindow {
		t.Errorf("Expected grace window %v, got %v", cfg.Cache.GraceWindow, stored.Cache.GraceWindow)
	}
}

func TestNewContainerFromEnv(t *testing.T) {
	backend := testsupport.NewBackend(t)
	t.Setenv(config.EnvEnvironment, "test")
	t.Setenv(config.EnvAPIBaseURL, backend.URL())
	t.Setenv(config.EnvSessionDSN, "sqlite://"+filepath.Join(t.TempDir(), "session.db"))
	t.Setenv(config.EnvGraceWindow, "45s")

	container, err := NewContainerFromEnv(context.Background(), WithLogger(zaptest.NewLogger(t)))
	if err != nil {
		t.Fatalf("NewContainerFromEnv() failed: %v", err)
	}
	defer container.Close()

	if got := container.Config().Cache.GraceWindow; got != 45*time.Second {
		t.Errorf("Expected grace window from env, got %v", got)
	}
}

func TestNewContainer_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"missing base URL", func(c *config.Config) { c.APIBaseURL = "" }},
		{"zero capacity", func(c *config.Config) { c.Cache.Capacity = 0 }},
		{"zero grace window", func(c *config.Config) { c.Cache.GraceWindow = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, "http://localhost:5137")
			tt.mutate(&cfg)

			container, err := NewContainer(context.Background(), cfg)
			if err == nil {
				container.Close()
				t.Fatal("NewContainer() should fail with invalid config")
			}
			if !goerrors.IsValidation(err) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}
}

func TestNewContainer_BadSessionDSN(t *testing.T) {
	cfg := testConfig(t, "http://localhost:5137")
	cfg.SessionDSN = "sqlite://" + filepath.Join(t.TempDir(), "missing", "dir", "session.db")

	container, err := NewContainer(context.Background(), cfg, WithLogger(zaptest.NewLogger(t)))
	if err == nil {
		t.Fatal("expected error for an unusable session database")
	}
	if container != nil {
		t.Errorf("expected nil container on error, got %+v", container)
	}
}

type brokenSessionStore struct {
	session.Store
	closed atomic.Bool
}

func (b *brokenSessionStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, stderrors.New("session table unreadable")
}

func (b *brokenSessionStore) Close() error {
	b.closed.Store(true)
	return nil
}

func TestNewContainer_SessionLoadFailureClosesStore(t *testing.T) {
	store := &brokenSessionStore{Store: session.NewMemoryStore()}

	container, err := NewContainer(context.Background(), testConfig(t, "http://localhost:5137"),
		WithLogger(zaptest.NewLogger(t)),
		WithSessionStore(store),
	)
	if err == nil {
		container.Close()
		t.Fatal("expected error when the session record cannot be read")
	}
	if container != nil {
		t.Error("expected nil container on error")
	}
	if !store.closed.Load() {
		t.Error("expected the session store closed after a failed construction")
	}
}

func TestContainerSingletonBehavior(t *testing.T) {
	container := newTestContainer(t, testConfig(t, "http://localhost:5137"),
		WithSessionStore(session.NewMemoryStore()))

	if container.Store() != container.Store() {
		t.Error("Store() should return the same instance (singleton behavior)")
	}
	if container.Client() != container.Client() {
		t.Error("Client() should return the same instance (singleton behavior)")
	}
	if container.Client().Store() != container.Store() {
		t.Error("Client should wrap the container's store")
	}
	if container.Client().Session() != container.Session() {
		t.Error("Client should wrap the container's session")
	}
}

func TestKeySerializerIntegration(t *testing.T) {
	container := newTestContainer(t, testConfig(t, "http://localhost:5137"),
		WithSessionStore(session.NewMemoryStore()),
		WithKeySerializer(cache.NewHashedKeySerializer()),
	)

	key := container.Store().Key(adminapi.OpGetAllBookings, adminapi.BookingFilter{Page: 1, Limit: 10})
	if got := container.KeySerializer().SerializeKey(adminapi.OpGetAllBookings, adminapi.BookingFilter{Page: 1, Limit: 10}); got != key {
		t.Errorf("Expected store to use the configured serializer, %q != %q", key, got)
	}
	if len(key) != len(adminapi.OpGetAllBookings)+len(cache.KeySeparator)+16 {
		t.Errorf("Expected a hashed key, got %q", key)
	}
}

func TestSessionSurvivesContainerRestart(t *testing.T) {
	backend := testsupport.NewBackend(t)
	backend.RequireAuth()
	cfg := testConfig(t, backend.URL())
	ctx := context.Background()

	first, err := NewContainer(ctx, cfg, WithLogger(zaptest.NewLogger(t)))
	if err != nil {
		t.Fatal(err)
	}
	err = first.Client().Login(ctx, adminapi.Credentials{Email: testsupport.AdminEmail, Password: testsupport.AdminPassword})
	if err != nil {
		t.Fatalf("Login() failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatal(err)
	}

	second := newTestContainer(t, cfg)
	if !second.Client().LoggedIn() {
		t.Fatal("expected the token restored from the session database")
	}
	if _, err := second.Client().Workers(ctx); err != nil {
		t.Errorf("expected authorized request after restart, got %v", err)
	}
}
