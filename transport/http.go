package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultTimeout          = 30 * time.Second
	defaultMaxResponseBytes = 8 << 20
)

// Authorizer decorates outbound requests with credentials, typically a bearer
// token loaded from a session store.
type Authorizer interface {
	Authorize(ctx context.Context, req *http.Request) error
}

// Config holds [HTTP] transport configuration.
type Config struct {
	BaseURL string
	// Timeout bounds a single exchange. Zero selects 30s.
	Timeout time.Duration
	// MaxRPS caps outbound requests per second. Zero disables limiting.
	MaxRPS float64
	// Burst is the limiter bucket size; defaults to 1 when MaxRPS is set.
	Burst     int
	UserAgent string
	// MaxResponseBytes caps the response body. A larger body fails the send
	// with [ErrTransport]. Zero selects 8 MiB.
	MaxResponseBytes int64
	Jar              http.CookieJar
	Authorizer       Authorizer
	// HTTPClient overrides the underlying client. Jar and Timeout still apply
	// to a shallow copy of it.
	HTTPClient *http.Client
}

// HTTP is a [Transport] over net/http.
type HTTP struct {
	baseURL    string
	client     *http.Client
	limiter    *rate.Limiter
	authorizer Authorizer
	userAgent  string
	maxBody    int64
}

// NewHTTP creates an HTTP transport.
func NewHTTP(cfg Config) (*HTTP, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if cfg.MaxRPS < 0 {
		return nil, errors.New("MaxRPS must be >= 0")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var client *http.Client
	if cfg.HTTPClient != nil {
		c := *cfg.HTTPClient
		client = &c
	} else {
		client = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
			},
		}
	}
	client.Timeout = timeout
	if cfg.Jar != nil {
		client.Jar = cfg.Jar
	}

	t := &HTTP{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		client:     client,
		authorizer: cfg.Authorizer,
		userAgent:  cfg.UserAgent,
		maxBody:    cfg.MaxResponseBytes,
	}
	if t.maxBody <= 0 {
		t.maxBody = defaultMaxResponseBytes
	}
	if cfg.MaxRPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(cfg.MaxRPS), burst)
	}

	return t, nil
}

// Send performs one exchange. Non-2xx statuses are returned as responses.
func (t *HTTP) Send(ctx context.Context, req Request) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	fail := func(err error) (*Response, error) {
		return nil, &Error{Method: method, Path: req.Path, Err: err}
	}

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return fail(fmt.Errorf("rate limit wait: %w", err))
		}
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, t.url(req.Path), body)
	if err != nil {
		return fail(fmt.Errorf("create request: %w", err))
	}
	for k, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	if t.userAgent != "" {
		httpReq.Header.Set("User-Agent", t.userAgent)
	}
	if t.authorizer != nil {
		if err := t.authorizer.Authorize(ctx, httpReq); err != nil {
			return fail(fmt.Errorf("authorize: %w", err))
		}
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return fail(fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBody+1))
	if err != nil {
		return fail(fmt.Errorf("read response: %w", err))
	}
	if int64(len(data)) > t.maxBody {
		return fail(fmt.Errorf("response exceeds %d bytes", t.maxBody))
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

func (t *HTTP) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return t.baseURL + path
}
