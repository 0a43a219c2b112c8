package authclient

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/MrEthical07/authclient/internal/stubapi"
	"github.com/MrEthical07/authclient/session"
	"github.com/MrEthical07/authclient/transport"
)

func newStub(t *testing.T) (*stubapi.Server, *httptest.Server) {
	t.Helper()
	api, err := stubapi.New(stubapi.Config{Username: "clerk", Password: "hunter2"})
	if err != nil {
		t.Fatalf("stubapi.New: %v", err)
	}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return api, srv
}

func stubConfig(baseURL string, mode SessionMode) Config {
	cfg := DefaultConfig()
	cfg.Transport.BaseURL = baseURL
	cfg.Session.Mode = mode
	return cfg
}

func TestBuilderRejectsReuseAndBadConfig(t *testing.T) {
	b := New().WithLogger(discardLogger()).WithConfig(stubConfig("http://127.0.0.1:1", SessionCookie))
	if _, err := b.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("expected error on second Build")
	}

	cfg := DefaultConfig()
	cfg.Session.Mode = "token"
	if _, err := New().WithConfig(cfg).Build(); err == nil {
		t.Fatal("expected invalid session mode to fail")
	}

	if _, err := New().WithLogger(discardLogger()).Build(); err == nil {
		t.Fatal("expected missing base URL to fail without an injected transport")
	}

	cfg = stubConfig("http://127.0.0.1:1", SessionBearer)
	_, err := New().WithLogger(discardLogger()).WithConfig(cfg).WithCredentialStore(&countingStore{}).Build()
	if err == nil {
		t.Fatal("bearer mode accepted a store without token access")
	}
}

func TestBuilderConfigIsCloned(t *testing.T) {
	cfg := stubConfig("http://127.0.0.1:1", SessionCookie)
	b := New().WithLogger(discardLogger()).WithConfig(cfg)
	cfg.Refresh.Path = ""
	c, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer c.Close()
	if c.config.Refresh.Path != "/api/auth/refresh" {
		t.Fatalf("config mutated after WithConfig: %q", c.config.Refresh.Path)
	}
}

func TestCookieModeAgainstStubAPI(t *testing.T) {
	api, srv := newStub(t)
	c, err := New().WithLogger(discardLogger()).WithConfig(stubConfig(srv.URL, SessionCookie)).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer c.Close()
	ctx := context.Background()

	_, err = c.Post(ctx, "/api/auth/login", map[string]string{"username": "clerk", "password": "wrong"})
	if !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("wrong password: expected ErrBadCredentials, got %v", err)
	}

	resp, err := c.Post(ctx, "/api/auth/login", map[string]string{"username": "clerk", "password": "hunter2"})
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("login: %v %+v", err, resp)
	}
	if resp, err := c.Post(ctx, "/api/items", map[string]any{"name": "widget", "quantity": 2}); err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("create item: %v %+v", err, resp)
	}

	api.ExpireAccess()
	api.SetRefreshDelay(50 * time.Millisecond)

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := c.Get(ctx, "/api/items")
			if err == nil && resp.StatusCode != http.StatusOK {
				err = resp.Err()
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("request after expiry: %v", err)
		}
	}
	if got := api.RefreshCalls(); got != 1 {
		t.Fatalf("refresh calls: got %d, want 1", got)
	}

	if err := c.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := c.Get(ctx, "/api/items"); !errors.Is(err, ErrRefreshFailed) {
		t.Fatalf("after logout: expected ErrRefreshFailed, got %v", err)
	}
}

func TestOversizedAuthResponseNeverRefreshes(t *testing.T) {
	var refreshes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/refresh" {
			refreshes.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid credentials","detail":"` + strings.Repeat("x", 200) + `"}`))
	}))
	t.Cleanup(srv.Close)

	cfg := stubConfig(srv.URL, SessionCookie)
	cfg.Transport.MaxResponseBytes = 64
	c, err := New().WithLogger(discardLogger()).WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer c.Close()

	_, err = c.Post(context.Background(), "/api/auth/login", map[string]string{"username": "clerk", "password": "wrong"})
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport for oversized body, got %v", err)
	}
	if errors.Is(err, ErrAuthExpired) {
		t.Fatalf("oversized body classified as auth expiry: %v", err)
	}
	if c.RefreshAttempts() != 0 || refreshes.Load() != 0 {
		t.Fatalf("refresh triggered: attempts=%d calls=%d", c.RefreshAttempts(), refreshes.Load())
	}
}

func TestBearerModeMemoryStoreRotatesTokens(t *testing.T) {
	api, srv := newStub(t)
	tokens, err := api.Login()
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	store := session.NewMemoryStore(session.Tokens{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken})

	c, err := New().WithLogger(discardLogger()).
		WithConfig(stubConfig(srv.URL, SessionBearer)).
		WithCredentialStore(store).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer c.Close()

	api.ExpireAccess()
	resp, err := c.Get(context.Background(), "/api/items")
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("Get: %v %+v", err, resp)
	}

	saved, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if saved.AccessToken == tokens.AccessToken || saved.RefreshToken == tokens.RefreshToken {
		t.Fatal("tokens were not rotated into the store")
	}
	if saved.ExpiresAt.IsZero() {
		t.Fatal("expiry not recorded")
	}
}

func TestBearerModeRefreshFailureClearsStore(t *testing.T) {
	api, srv := newStub(t)
	tokens, _ := api.Login()
	store := session.NewMemoryStore(session.Tokens{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken})
	cleared := make(chan struct{}, 1)
	store.OnCleared(func() { cleared <- struct{}{} })

	c, err := New().WithLogger(discardLogger()).
		WithConfig(stubConfig(srv.URL, SessionBearer)).
		WithCredentialStore(store).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer c.Close()

	api.RevokeSessions()
	_, err = c.Get(context.Background(), "/api/items")
	var fe *RefreshFailedError
	if !errors.As(err, &fe) || fe.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected refresh failure with 401, got %v", err)
	}
	select {
	case <-cleared:
	default:
		t.Fatal("store not cleared")
	}
	if _, err := store.Load(context.Background()); !errors.Is(err, session.ErrNoTokens) {
		t.Fatalf("expected empty store, got %v", err)
	}
}

func TestBearerModeRedisStore(t *testing.T) {
	api, srv := newStub(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := stubConfig(srv.URL, SessionBearer)
	cfg.Session.SessionKey = "clerk"
	c, err := New().WithLogger(discardLogger()).WithConfig(cfg).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer c.Close()

	store, ok := c.CredentialStore().(*session.RedisStore)
	if !ok {
		t.Fatalf("expected RedisStore, got %T", c.CredentialStore())
	}
	tokens, _ := api.Login()
	if err := store.Save(context.Background(), session.Tokens{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	api.ExpireAccess()
	if _, err := c.Get(context.Background(), "/api/items"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	saved, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if saved.RefreshToken == tokens.RefreshToken {
		t.Fatal("rotated refresh token not saved to redis")
	}
}

func TestBearerModeOwnsRedisClientFromAddr(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := stubConfig("http://127.0.0.1:1", SessionBearer)
	cfg.Session.RedisAddr = mr.Addr()
	cfg.Session.SessionKey = "clerk"

	c, err := New().WithLogger(discardLogger()).WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := c.CredentialStore().(*session.RedisStore); !ok {
		t.Fatalf("expected RedisStore, got %T", c.CredentialStore())
	}
	if len(c.closers) != 1 {
		t.Fatalf("expected the owned redis client to be closed on Close, closers=%d", len(c.closers))
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestDefaultStoresPerMode(t *testing.T) {
	c, err := New().WithLogger(discardLogger()).WithConfig(stubConfig("http://127.0.0.1:1", SessionCookie)).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer c.Close()
	if _, ok := c.CredentialStore().(*session.CookieStore); !ok {
		t.Fatalf("cookie mode: got %T", c.CredentialStore())
	}

	c2, err := New().WithLogger(discardLogger()).WithConfig(stubConfig("http://127.0.0.1:1", SessionBearer)).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer c2.Close()
	if _, ok := c2.CredentialStore().(*session.MemoryStore); !ok {
		t.Fatalf("bearer mode: got %T", c2.CredentialStore())
	}
}

func TestLoggerCarriesComponentAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetLevel(logrus.DebugLevel)
	logger.SetFormatter(&logrus.JSONFormatter{})

	tr := transport.Func(func(context.Context, transport.Request) (*Response, error) {
		return &Response{StatusCode: http.StatusOK}, nil
	})
	c, err := New().WithLogger(logger).WithTransport(tr).WithCredentialStore(&countingStore{}).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer c.Close()

	if _, err := c.Get(WithRequestID(context.Background(), "abc-123"), "/api/items"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"component":"authclient"`) || !strings.Contains(out, `"request_id":"abc-123"`) {
		t.Fatalf("log output missing fields: %s", out)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(LoggingConfig{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), `"msg":"shown"`) {
		t.Fatalf("unexpected output %q", buf.String())
	}
	if _, err := NewLogger(LoggingConfig{Level: "loud"}, nil); err == nil {
		t.Fatal("expected invalid level to fail")
	}
}
