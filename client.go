package authclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	internalaudit "github.com/MrEthical07/authclient/internal/audit"
	"github.com/MrEthical07/authclient/internal/flows"
	"github.com/MrEthical07/authclient/refresh"
	"github.com/MrEthical07/authclient/transport"
)

// Client dispatches requests against a session-authenticated API. On auth
// expiry it joins a single shared refresh, then retries the request once.
// A Client is safe for concurrent use.
type Client struct {
	config      Config
	transport   Transport
	store       CredentialStore
	coordinator *refresh.Coordinator
	flows       flows.Service
	classifier  classifier
	metrics     *Metrics
	events      *internalaudit.Dispatcher
	logger      logrus.FieldLogger

	closers   []func() error
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func (c *Client) ready() error {
	if c == nil || !c.flows.Initialized() || c.closed.Load() {
		return ErrClientNotReady
	}
	return nil
}

// Do dispatches req. The returned error matches exactly one of
// [ErrTransport], [ErrBadCredentials], [ErrAuthExpired] or
// [ErrRefreshFailed], or is ctx's error when ctx ended while waiting on a
// refresh. Non-auth error statuses are returned as responses with a nil
// error; use [Response.Err] to turn them into errors.
func (c *Client) Do(ctx context.Context, req RequestDescriptor) (*Response, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	reqID := requestIDFor(ctx, req)
	treq := req.transportRequest()
	treq.Header.Set(RequestIDHeader, reqID)

	log := c.logger.WithFields(logrus.Fields{
		"request_id": reqID,
		"method":     treq.Method,
		"path":       treq.Path,
	})
	log.Debug("dispatching request")

	c.metrics.Inc(MetricRequestDispatched)
	start := time.Now()
	res := c.flows.Dispatch(ctx, flows.Attempt{Request: treq, AlreadyRetried: req.AlreadyRetried()})
	c.metrics.Observe(MetricDispatchLatency, time.Since(start))

	return c.finish(ctx, reqID, log, treq, res)
}

func (c *Client) finish(ctx context.Context, reqID string, log logrus.FieldLogger, req transport.Request, res flows.DispatchResult) (*Response, error) {
	event := Event{RequestID: reqID, Method: req.Method, Path: req.Path}
	if res.Response != nil {
		event.StatusCode = res.Response.StatusCode
	}
	if res.Refreshed || res.Failure == flows.DispatchFailureRefresh || res.Failure == flows.DispatchFailureRefreshEndpoint {
		c.metrics.Inc(MetricAuthExpired)
	}

	switch res.Failure {
	case flows.DispatchFailureNone:
		c.metrics.Inc(MetricRequestSucceeded)
		if res.Retried {
			log.WithField("status", res.Response.StatusCode).Info("request succeeded after refresh")
		} else {
			log.WithField("status", res.Response.StatusCode).Debug("request completed")
		}
		return res.Response, nil

	case flows.DispatchFailureTransport:
		c.metrics.Inc(MetricTransportError)
		err := res.Err
		if !errors.Is(err, ErrTransport) {
			err = &TransportError{Method: req.Method, Path: req.Path, Err: err}
		}
		log.WithError(err).Warn("transport failure")
		event.EventType = EventTransportError
		event.Error = err.Error()
		c.emit(ctx, event)
		return nil, err

	case flows.DispatchFailureBadCredentials:
		c.metrics.Inc(MetricBadCredentials)
		log.Info("credentials rejected")
		event.EventType = EventBadCredentials
		c.emit(ctx, event)
		return nil, &BadCredentialsError{Response: res.Response}

	case flows.DispatchFailureRefreshEndpoint:
		c.metrics.Inc(MetricRefreshEndpointExpired)
		log.Warn("refresh endpoint reported auth expiry, credentials cleared")
		event.EventType = EventAuthExpired
		event.Metadata = map[string]string{"reason": res.Failure.String()}
		c.emit(ctx, event)
		return nil, &AuthExpiredError{Response: res.Response}

	case flows.DispatchFailureRetryExhausted:
		c.metrics.Inc(MetricRetryExhausted)
		log.Warn("auth expired again after refresh")
		event.EventType = EventAuthExpired
		event.Metadata = map[string]string{"reason": res.Failure.String()}
		c.emit(ctx, event)
		return nil, &AuthExpiredError{Response: res.Response}

	case flows.DispatchFailureRefresh:
		if errors.Is(res.Err, ErrRefreshFailed) {
			log.WithError(res.Err).Warn("request failed: refresh failed")
		} else {
			log.WithError(res.Err).Debug("request abandoned while waiting on refresh")
		}
		return nil, res.Err
	}

	return nil, fmt.Errorf("authclient: unknown dispatch outcome %v", res.Failure)
}

// Get dispatches a GET request.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, RequestDescriptor{Method: http.MethodGet, Path: path})
}

// Delete dispatches a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, RequestDescriptor{Method: http.MethodDelete, Path: path})
}

// Post dispatches a POST request with body encoded as by [NewRequest].
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.send(ctx, http.MethodPost, path, body)
}

// Put dispatches a PUT request.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.send(ctx, http.MethodPut, path, body)
}

// Patch dispatches a PATCH request.
func (c *Client) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.send(ctx, http.MethodPatch, path, body)
}

func (c *Client) send(ctx context.Context, method, path string, body any) (*Response, error) {
	req, err := NewRequest(method, path, body)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req)
}

// DoJSON dispatches req and decodes a 2xx JSON body into out. Non-2xx
// statuses are returned as a [*transport.StatusError].
func (c *Client) DoJSON(ctx context.Context, req RequestDescriptor, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	return resp.JSON(out)
}

// Refresh forces a refresh through the shared coordinator. Concurrent calls
// and concurrent expiring requests share one refresh.
func (c *Client) Refresh(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.coordinator.RequestRefresh(ctx)
}

// Logout notifies the logout endpoint when configured and always clears local
// credentials. A server failure and a clear failure are both reported.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	res := c.flows.Logout(ctx)
	c.metrics.Inc(MetricLogout)

	event := Event{EventType: EventLogout, Success: res.ServerErr == nil && res.ClearErr == nil}
	if c.config.Refresh.LogoutPath != "" {
		event.Method = http.MethodPost
		event.Path = c.config.Refresh.LogoutPath
	}
	if res.Response != nil {
		event.StatusCode = res.Response.StatusCode
	}

	var errs []error
	if res.ServerErr != nil {
		errs = append(errs, fmt.Errorf("logout: %w", res.ServerErr))
	}
	if res.ClearErr != nil {
		errs = append(errs, fmt.Errorf("logout: clear credentials: %w", res.ClearErr))
	}
	err := errors.Join(errs...)
	if err != nil {
		event.Error = err.Error()
		c.logger.WithError(err).Warn("logout completed with errors")
	} else {
		c.logger.Info("logged out")
	}
	c.emit(ctx, event)
	return err
}

// clearCredentials wipes the store outside the coordinator (logout and
// refresh-endpoint expiry).
func (c *Client) clearCredentials(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		c.onClearFailed(err)
		return err
	}
	c.onCleared()
	return nil
}

func (c *Client) onCleared() {
	c.metrics.Inc(MetricCredentialsCleared)
	c.logger.Info("credentials cleared")
	c.emit(context.Background(), Event{EventType: EventCredentialsCleared, Success: true})
}

func (c *Client) onClearFailed(err error) {
	c.metrics.Inc(MetricCredentialsClearFailed)
	c.logger.WithError(err).Error("credential clear failed")
	c.emit(context.Background(), Event{EventType: EventCredentialsClearFailed, Error: err.Error()})
}

func (c *Client) refreshHooks() refresh.Hooks {
	return refresh.Hooks{
		OnStart: func() {
			c.metrics.Inc(MetricRefreshStarted)
			c.logger.Info("refresh started")
			c.emit(context.Background(), Event{
				EventType: EventRefreshStarted,
				Method:    c.config.Refresh.Method,
				Path:      c.config.Refresh.Path,
			})
		},
		OnQueued: func(depth int) {
			c.metrics.Inc(MetricRefreshQueued)
			c.logger.WithField("queue_depth", depth).Debug("waiting on refresh in flight")
		},
		OnSettled: func(err error, waiters int, elapsed time.Duration) {
			c.metrics.Observe(MetricRefreshLatency, elapsed)
			log := c.logger.WithFields(logrus.Fields{"waiters": waiters, "elapsed": elapsed})
			if err != nil {
				c.metrics.Inc(MetricRefreshFailure)
				log.WithError(err).Warn("refresh failed")
			} else {
				c.metrics.Inc(MetricRefreshSuccess)
				log.Info("refresh succeeded")
			}
			c.emitRefreshSettled(err, waiters, elapsed)
		},
		OnCleared:     c.onCleared,
		OnClearFailed: c.onClearFailed,
	}
}

func (c *Client) isRefreshRequest(req transport.Request) bool {
	if !strings.EqualFold(req.Method, c.config.Refresh.Method) {
		return false
	}
	return normalizePath(req.Path) == normalizePath(c.config.Refresh.Path)
}

func normalizePath(p string) string {
	if u, err := url.Parse(p); err == nil {
		p = u.Path
	}
	p = strings.TrimRight(p, "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func (c *Client) dispatchDeps() flows.DispatchDeps {
	return flows.DispatchDeps{
		Send:             c.transport.Send,
		Classify:         c.classifier.classify,
		IsRefreshRequest: c.isRefreshRequest,
		RequestRefresh:   c.coordinator.RequestRefresh,
		ClearCredentials: c.clearCredentials,
		OnRetry: func(ctx context.Context, req transport.Request) {
			c.metrics.Inc(MetricRequestRetried)
			reqID := req.Header.Get(RequestIDHeader)
			c.logger.WithFields(logrus.Fields{
				"request_id": reqID,
				"method":     req.Method,
				"path":       req.Path,
			}).Debug("retrying request after refresh")
			c.emit(ctx, Event{
				EventType: EventRequestRetried,
				RequestID: reqID,
				Method:    req.Method,
				Path:      req.Path,
				Success:   true,
			})
		},
		Warn: func(msg string, kv ...any) {
			c.logger.WithFields(kvFields(kv)).Warn(msg)
		},
	}
}

func (c *Client) logoutDeps() flows.LogoutDeps {
	deps := flows.LogoutDeps{
		Send:             c.transport.Send,
		ClearCredentials: c.clearCredentials,
	}
	if c.config.Refresh.LogoutPath != "" {
		deps.Endpoint = &transport.Request{Method: http.MethodPost, Path: c.config.Refresh.LogoutPath}
	}
	return deps
}

func kvFields(kv []any) logrus.Fields {
	fields := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = "arg" + strconv.Itoa(i)
		}
		fields[key] = kv[i+1]
	}
	return fields
}

// MetricsSnapshot returns a point-in-time copy of the client metrics.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil {
		return MetricsSnapshot{}
	}
	return c.metrics.Snapshot()
}

// RefreshAttempts returns how many refresh calls the client has started.
func (c *Client) RefreshAttempts() uint64 {
	if c == nil || c.coordinator == nil {
		return 0
	}
	return c.coordinator.Attempts()
}

// CredentialStore returns the store the client clears on refresh failure.
func (c *Client) CredentialStore() CredentialStore {
	if c == nil {
		return nil
	}
	return c.store
}

// Close stops the event dispatcher and releases resources the builder
// created. Further calls return [ErrClientNotReady].
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.events.Close()
		var errs []error
		for _, fn := range c.closers {
			if err := fn(); err != nil {
				errs = append(errs, err)
			}
		}
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}
