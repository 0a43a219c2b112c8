//go:build integration
// +build integration

package test

import (
	"context"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	authclient "github.com/MrEthical07/authclient"
	"github.com/MrEthical07/authclient/internal/stubapi"
	"github.com/MrEthical07/authclient/session"
)

// redisMode names one Redis backend the suite runs against.
type redisMode struct {
	name  string
	setup func(t *testing.T) (redis.UniversalClient, func())
}

// redisModes always includes miniredis, plus a real server when REDIS_ADDR
// is set.
func redisModes(t *testing.T) []redisMode {
	t.Helper()
	modes := []redisMode{{
		name: "miniredis",
		setup: func(t *testing.T) (redis.UniversalClient, func()) {
			t.Helper()
			mr, err := miniredis.Run()
			if err != nil {
				t.Fatalf("miniredis: %v", err)
			}
			rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			return rdb, func() { _ = rdb.Close(); mr.Close() }
		},
	}}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, redisMode{
			name: "standalone:" + addr,
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				rdb := redis.NewClient(&redis.Options{Addr: addr})
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis at %s: %v", addr, err)
				}
				rdb.FlushDB(context.Background())
				return rdb, func() { rdb.FlushDB(context.Background()); _ = rdb.Close() }
			},
		})
	}
	return modes
}

func newStubServer(t *testing.T) (*stubapi.Server, *httptest.Server) {
	t.Helper()
	api, err := stubapi.New(stubapi.Config{Username: "clerk", Password: "hunter2"})
	if err != nil {
		t.Fatalf("stubapi.New: %v", err)
	}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return api, srv
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newCookieClient(t *testing.T, baseURL string) *authclient.Client {
	t.Helper()
	cfg := authclient.DefaultConfig()
	cfg.Transport.BaseURL = baseURL
	c, err := authclient.New().WithConfig(cfg).WithLogger(quietLogger()).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func newRedisClient(t *testing.T, baseURL string, rdb redis.UniversalClient, key string) (*authclient.Client, *session.RedisStore) {
	t.Helper()
	cfg := authclient.DefaultConfig()
	cfg.Transport.BaseURL = baseURL
	cfg.Session.Mode = authclient.SessionBearer
	cfg.Session.SessionKey = key
	cfg.Session.RedisPrefix = "it"
	c, err := authclient.New().WithConfig(cfg).WithLogger(quietLogger()).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	store, ok := c.CredentialStore().(*session.RedisStore)
	if !ok {
		t.Fatalf("expected RedisStore, got %T", c.CredentialStore())
	}
	return c, store
}

func seedSession(t *testing.T, api *stubapi.Server, store session.TokenStore) stubapi.Tokens {
	t.Helper()
	tokens, err := api.Login()
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := store.Save(context.Background(), session.Tokens{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return tokens
}
