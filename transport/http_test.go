package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type headerAuthorizer struct {
	token string
	err   error
}

func (a headerAuthorizer) Authorize(_ context.Context, req *http.Request) error {
	if a.err != nil {
		return a.err
	}
	req.Header.Set("Authorization", "Bearer "+a.token)
	return nil
}

func TestHTTPSendJoinsPathAndSetsHeaders(t *testing.T) {
	var gotPath, gotCT, gotAccept, gotUA, gotAuth, gotBody, gotCustom string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotCT = r.Header.Get("Content-Type")
		gotAccept = r.Header.Get("Accept")
		gotUA = r.Header.Get("User-Agent")
		gotAuth = r.Header.Get("Authorization")
		gotCustom = r.Header.Get("X-Custom")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"item-1"}`))
	}))
	defer srv.Close()

	tr, err := NewHTTP(Config{
		BaseURL:    srv.URL + "/",
		UserAgent:  "authclient-test",
		Authorizer: headerAuthorizer{token: "tok"},
	})
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}

	resp, err := tr.Send(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "api/items",
		Body:   []byte(`{"name":"widget"}`),
		Header: http.Header{"X-Custom": []string{"yes"}},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status: got %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	if gotPath != "/api/items" {
		t.Fatalf("path: got %q", gotPath)
	}
	if gotCT != "application/json" || gotAccept != "application/json" {
		t.Fatalf("content negotiation headers: ct=%q accept=%q", gotCT, gotAccept)
	}
	if gotUA != "authclient-test" {
		t.Fatalf("user agent: got %q", gotUA)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("authorization: got %q", gotAuth)
	}
	if gotCustom != "yes" {
		t.Fatalf("custom header: got %q", gotCustom)
	}
	if gotBody != `{"name":"widget"}` {
		t.Fatalf("body: got %q", gotBody)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := resp.JSON(&out); err != nil || out.ID != "item-1" {
		t.Fatalf("JSON decode: id=%q err=%v", out.ID, err)
	}
}

func TestHTTPSendReturnsNon2xxAsResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Session expired"}`))
	}))
	defer srv.Close()

	tr, err := NewHTTP(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}
	resp, err := tr.Send(context.Background(), Request{Path: "/api/items"})
	if err != nil {
		t.Fatalf("expected response, got error %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status: got %d", resp.StatusCode)
	}

	var se *StatusError
	if !errors.As(resp.Err(), &se) {
		t.Fatalf("expected StatusError, got %v", resp.Err())
	}
	if se.Message != "Session expired" {
		t.Fatalf("message: got %q", se.Message)
	}
}

func TestHTTPSendWrapsNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	tr, err := NewHTTP(Config{BaseURL: url, Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}
	_, err = tr.Send(context.Background(), Request{Method: http.MethodGet, Path: "/api/items"})
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	var te *Error
	if !errors.As(err, &te) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if te.Method != http.MethodGet || te.Path != "/api/items" {
		t.Fatalf("error fields: %+v", te)
	}
}

func TestHTTPSendAuthorizerFailureIsTransportError(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))
	defer srv.Close()

	boom := errors.New("store down")
	tr, err := NewHTTP(Config{BaseURL: srv.URL, Authorizer: headerAuthorizer{err: boom}})
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}
	_, err = tr.Send(context.Background(), Request{Path: "/x"})
	if !errors.Is(err, ErrTransport) || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped authorizer failure, got %v", err)
	}
	if called {
		t.Fatalf("request should not reach the server")
	}
}

func TestHTTPSendRejectsOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		size := 16
		if r.URL.Path == "/big" {
			size = 17
		}
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(strings.Repeat("a", size)))
	}))
	defer srv.Close()

	tr, err := NewHTTP(Config{BaseURL: srv.URL, MaxResponseBytes: 16})
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}

	resp, err := tr.Send(context.Background(), Request{Path: "/fits"})
	if err != nil {
		t.Fatalf("body at the limit: %v", err)
	}
	if len(resp.Body) != 16 {
		t.Fatalf("body length: got %d, want 16", len(resp.Body))
	}

	resp, err = tr.Send(context.Background(), Request{Path: "/big"})
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if resp != nil {
		t.Fatalf("expected no response, got %+v", resp)
	}
	var te *Error
	if !errors.As(err, &te) || te.Path != "/big" {
		t.Fatalf("expected *Error for /big, got %#v", err)
	}
}

func TestHTTPSendUsesCookieJar(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			http.SetCookie(w, &http.Cookie{Name: "sid", Value: "abc", Path: "/"})
		case "/me":
			c, err := r.Cookie("sid")
			if err != nil || c.Value != "abc" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	jar, _ := cookiejar.New(nil)
	tr, err := NewHTTP(Config{BaseURL: srv.URL, Jar: jar})
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}
	ctx := context.Background()
	if _, err := tr.Send(ctx, Request{Method: http.MethodPost, Path: "/login"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	resp, err := tr.Send(ctx, Request{Path: "/me"})
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected cookie to be replayed, got status %d", resp.StatusCode)
	}
}

func TestHTTPRateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tr, err := NewHTTP(Config{BaseURL: srv.URL, MaxRPS: 0.001, Burst: 1})
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}
	if _, err := tr.Send(context.Background(), Request{Path: "/"}); err != nil {
		t.Fatalf("first send should use the burst token: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = tr.Send(ctx, Request{Path: "/"})
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected limiter wait to fail as transport error, got %v", err)
	}
}

func TestNewHTTPValidation(t *testing.T) {
	if _, err := NewHTTP(Config{}); err == nil {
		t.Fatalf("expected error for missing base URL")
	}
	if _, err := NewHTTP(Config{BaseURL: "http://x", MaxRPS: -1}); err == nil {
		t.Fatalf("expected error for negative MaxRPS")
	}
}

func TestRequestCloneIsDeep(t *testing.T) {
	orig := Request{
		Method: http.MethodPut,
		Path:   "/a",
		Body:   []byte("xy"),
		Header: http.Header{"K": []string{"v"}},
	}
	c := orig.Clone()
	c.Body[0] = 'z'
	c.Header.Set("K", "changed")
	if string(orig.Body) != "xy" || orig.Header.Get("K") != "v" {
		t.Fatalf("clone shares state with original: %+v", orig)
	}
}
