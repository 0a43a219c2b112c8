package authclient

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/MrEthical07/authclient/session"
	"github.com/MrEthical07/authclient/transport"
)

func TestSessionRefresherCookieMode(t *testing.T) {
	var got transport.Request
	r := &sessionRefresher{
		transport: transport.Func(func(_ context.Context, req transport.Request) (*Response, error) {
			got = req
			return &Response{StatusCode: http.StatusNoContent}, nil
		}),
		method: http.MethodPost,
		path:   "/api/auth/refresh",
	}
	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got.Method != http.MethodPost || got.Path != "/api/auth/refresh" || got.Body != nil {
		t.Fatalf("unexpected refresh request %+v", got)
	}
}

func TestSessionRefresherBearerMode(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store := session.NewMemoryStore(session.Tokens{AccessToken: "old-access", RefreshToken: "old-refresh"})

	cases := []struct {
		name        string
		body        string
		wantRefresh string
		wantExpiry  time.Time
	}{
		{
			name:        "rotating server",
			body:        `{"access_token":"new-access","refresh_token":"new-refresh","expires_in":900}`,
			wantRefresh: "new-refresh",
			wantExpiry:  now.Add(900 * time.Second),
		},
		{
			name:        "non-rotating server keeps refresh token",
			body:        `{"access_token":"new-access"}`,
			wantRefresh: "old-refresh",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_ = store.Save(context.Background(), session.Tokens{AccessToken: "old-access", RefreshToken: "old-refresh"})
			var sent []byte
			r := &sessionRefresher{
				transport: transport.Func(func(_ context.Context, req transport.Request) (*Response, error) {
					sent = req.Body
					return &Response{StatusCode: http.StatusOK, Body: []byte(tc.body)}, nil
				}),
				method: http.MethodPost,
				path:   "/api/auth/refresh",
				tokens: store,
				now:    func() time.Time { return now },
			}
			if err := r.Refresh(context.Background()); err != nil {
				t.Fatalf("Refresh: %v", err)
			}
			if string(sent) != `{"refresh_token":"old-refresh"}` {
				t.Fatalf("refresh body: %s", sent)
			}
			saved, _ := store.Load(context.Background())
			if saved.AccessToken != "new-access" || saved.RefreshToken != tc.wantRefresh {
				t.Fatalf("saved %+v", saved)
			}
			if !saved.ExpiresAt.Equal(tc.wantExpiry) {
				t.Fatalf("expiry: got %v, want %v", saved.ExpiresAt, tc.wantExpiry)
			}
		})
	}
}

func TestSessionRefresherFailures(t *testing.T) {
	ok := func(body string) Transport {
		return transport.Func(func(context.Context, transport.Request) (*Response, error) {
			return &Response{StatusCode: http.StatusOK, Body: []byte(body)}, nil
		})
	}
	cases := []struct {
		name       string
		transport  Transport
		tokens     session.TokenStore
		wantStatus int
	}{
		{
			name: "non-2xx status",
			transport: transport.Func(func(context.Context, transport.Request) (*Response, error) {
				return &Response{StatusCode: http.StatusUnauthorized, Body: []byte(`{"message":"Refresh token invalid"}`)}, nil
			}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "transport error",
			transport: transport.Func(func(context.Context, transport.Request) (*Response, error) {
				return nil, &transport.Error{Method: "POST", Path: "/api/auth/refresh", Err: errors.New("refused")}
			}),
		},
		{
			name:      "no stored refresh token",
			transport: ok(`{}`),
			tokens:    &session.MemoryStore{},
		},
		{
			name:       "payload without access token",
			transport:  ok(`{"refresh_token":"x"}`),
			tokens:     session.NewMemoryStore(session.Tokens{RefreshToken: "r"}),
			wantStatus: http.StatusOK,
		},
		{
			name:       "malformed payload",
			transport:  ok(`<html>`),
			tokens:     session.NewMemoryStore(session.Tokens{RefreshToken: "r"}),
			wantStatus: http.StatusOK,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := &sessionRefresher{transport: tc.transport, method: "POST", path: "/api/auth/refresh", tokens: tc.tokens}
			err := r.Refresh(context.Background())
			var fe *RefreshFailedError
			if !errors.As(err, &fe) {
				t.Fatalf("expected RefreshFailedError, got %v", err)
			}
			if fe.StatusCode != tc.wantStatus {
				t.Fatalf("status: got %d, want %d", fe.StatusCode, tc.wantStatus)
			}
		})
	}
}
