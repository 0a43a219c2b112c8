package authclient

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/authclient/refresh"
	"github.com/MrEthical07/authclient/transport"
)

var (
	// ErrTransport matches network-level failures.
	ErrTransport = transport.ErrTransport
	// ErrAuthExpired matches a request whose session expired and could not be
	// recovered by a refresh.
	ErrAuthExpired = errors.New("authentication expired")
	// ErrBadCredentials matches a server rejection of the presented
	// credentials. It never triggers a refresh.
	ErrBadCredentials = errors.New("bad credentials")
	// ErrRefreshFailed matches every [*RefreshFailedError].
	ErrRefreshFailed = refresh.ErrRefreshFailed
	// ErrClientNotReady is returned by a nil or closed Client.
	ErrClientNotReady = errors.New("client not ready")
	// ErrInvalidRequest is returned for requests that cannot be dispatched.
	ErrInvalidRequest = errors.New("invalid request")
)

// TransportError is a network or transport-level failure. It is surfaced
// unchanged and never triggers a refresh.
type TransportError = transport.Error

// RefreshFailedError is the single failure shared by every request that
// waited on a failed refresh.
type RefreshFailedError = refresh.FailedError

// AuthExpiredError carries the final auth-expired response: either the
// response to a retried request, or the refresh endpoint's own expiry.
type AuthExpiredError struct {
	Response *Response
}

func (e *AuthExpiredError) Error() string {
	if e.Response == nil {
		return ErrAuthExpired.Error()
	}
	return fmt.Sprintf("%s: status %d", ErrAuthExpired, e.Response.StatusCode)
}

// Is reports whether target is [ErrAuthExpired].
func (e *AuthExpiredError) Is(target error) bool {
	return target == ErrAuthExpired
}

// BadCredentialsError carries the server's bad-credentials response.
type BadCredentialsError struct {
	Response *Response
}

func (e *BadCredentialsError) Error() string {
	if e.Response == nil {
		return ErrBadCredentials.Error()
	}
	if msg := e.Response.Err(); msg != nil {
		return fmt.Sprintf("%s: %v", ErrBadCredentials, msg)
	}
	return ErrBadCredentials.Error()
}

// Is reports whether target is [ErrBadCredentials].
func (e *BadCredentialsError) Is(target error) bool {
	return target == ErrBadCredentials
}
