package authclient

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// Event types emitted to the configured [EventSink].
const (
	EventRequestRetried         = "request_retried"
	EventTransportError         = "transport_error"
	EventBadCredentials         = "bad_credentials"
	EventAuthExpired            = "auth_expired"
	EventRefreshStarted         = "refresh_started"
	EventRefreshSucceeded       = "refresh_succeeded"
	EventRefreshFailed          = "refresh_failed"
	EventCredentialsCleared     = "credentials_cleared"
	EventCredentialsClearFailed = "credentials_clear_failed"
	EventLogout                 = "logout"
)

func (c *Client) emit(ctx context.Context, event Event) {
	if c.events == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	c.events.Emit(ctx, event)
}

func (c *Client) emitRefreshSettled(err error, waiters int, elapsed time.Duration) {
	event := Event{
		EventType: EventRefreshSucceeded,
		Success:   err == nil,
		Method:    c.config.Refresh.Method,
		Path:      c.config.Refresh.Path,
		Metadata: map[string]string{
			"waiters":     strconv.Itoa(waiters),
			"duration_ms": strconv.FormatInt(elapsed.Milliseconds(), 10),
		},
	}
	if err != nil {
		event.EventType = EventRefreshFailed
		event.Error = err.Error()
		var fe *RefreshFailedError
		if errors.As(err, &fe) && fe.StatusCode != 0 {
			event.StatusCode = fe.StatusCode
		}
	}
	c.emit(context.Background(), event)
}

// EventsDropped returns the number of events dropped by a full or cancelled
// dispatcher buffer.
func (c *Client) EventsDropped() uint64 {
	if c == nil {
		return 0
	}
	return c.events.Dropped()
}
