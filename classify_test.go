package authclient

import (
	"testing"

	"github.com/MrEthical07/authclient/internal/flows"
)

func TestClassifierDefaultStringMatch(t *testing.T) {
	c := newClassifier(DefaultConfig().Auth)
	cases := []struct {
		name   string
		status int
		body   string
		want   flows.Signal
	}{
		{"ok", 200, `{"items":[]}`, flows.SignalNone},
		{"forbidden", 403, `{"message":"Invalid credentials"}`, flows.SignalNone},
		{"server error", 500, ``, flows.SignalNone},
		{"expired with message", 401, `{"message":"Session expired"}`, flows.SignalAuthExpired},
		{"expired empty body", 401, ``, flows.SignalAuthExpired},
		{"expired non-json body", 401, `Unauthorized`, flows.SignalAuthExpired},
		{"bad credentials", 401, `{"message":"Invalid credentials"}`, flows.SignalBadCredentials},
		{"bad credentials case-insensitive", 401, `{"message":"  INVALID CREDENTIALS "}`, flows.SignalBadCredentials},
		{"other field ignored", 401, `{"error":"Invalid credentials"}`, flows.SignalAuthExpired},
	}
	for _, tc := range cases {
		got := c.classify(&Response{StatusCode: tc.status, Body: []byte(tc.body)})
		if got != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
	if c.classify(nil) != flows.SignalNone {
		t.Fatal("nil response must classify as none")
	}
}

func TestClassifierStructuredCode(t *testing.T) {
	cfg := DefaultConfig().Auth
	cfg.CodeField = "error.code"
	cfg.BadCredentialsCode = "BAD_CREDENTIALS"
	c := newClassifier(cfg)

	bad := &Response{StatusCode: 401, Body: []byte(`{"error":{"code":"BAD_CREDENTIALS","message":"nope"}}`)}
	if got := c.classify(bad); got != flows.SignalBadCredentials {
		t.Fatalf("structured code: got %v", got)
	}
	expired := &Response{StatusCode: 401, Body: []byte(`{"error":{"code":"TOKEN_EXPIRED"}}`)}
	if got := c.classify(expired); got != flows.SignalAuthExpired {
		t.Fatalf("other code: got %v", got)
	}
	// The string contract still applies alongside the code field.
	legacy := &Response{StatusCode: 401, Body: []byte(`{"message":"Invalid credentials"}`)}
	if got := c.classify(legacy); got != flows.SignalBadCredentials {
		t.Fatalf("message fallback: got %v", got)
	}
}

func TestClassifierCustomStatus(t *testing.T) {
	cfg := DefaultConfig().Auth
	cfg.ExpiredStatus = 419
	c := newClassifier(cfg)
	if got := c.classify(&Response{StatusCode: 401}); got != flows.SignalNone {
		t.Fatalf("401 with custom status: got %v", got)
	}
	if got := c.classify(&Response{StatusCode: 419}); got != flows.SignalAuthExpired {
		t.Fatalf("419: got %v", got)
	}
}

func TestExportedClassifierHelpers(t *testing.T) {
	if !IsAuthExpired(&Response{StatusCode: 401, Body: []byte(`{"message":"Session expired"}`)}) {
		t.Fatal("expected auth expired")
	}
	if !IsBadCredentials(&Response{StatusCode: 401, Body: []byte(`{"message":"Invalid credentials"}`)}) {
		t.Fatal("expected bad credentials")
	}
}
