package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// ErrTransport matches every [*Error] via errors.Is.
var ErrTransport = errors.New("transport failure")

// Request is a single outbound call. Path is joined to the transport base URL
// unless it is already absolute.
type Request struct {
	Method string
	Path   string
	Body   []byte
	Header http.Header
}

// Clone returns a deep copy so retries never share header maps or body slices.
func (r Request) Clone() Request {
	out := Request{
		Method: r.Method,
		Path:   r.Path,
		Header: r.Header.Clone(),
	}
	if r.Body != nil {
		out.Body = append([]byte(nil), r.Body...)
	}
	return out
}

// Response is the fully-read result of a call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// JSON unmarshals the response body into v.
func (r *Response) JSON(v any) error {
	if r == nil {
		return errors.New("nil response")
	}
	return json.Unmarshal(r.Body, v)
}

// Err returns a [*StatusError] when the status indicates failure.
func (r *Response) Err() error {
	if r == nil || r.StatusCode < 400 {
		return nil
	}

	body := gjson.ParseBytes(r.Body)
	msg := body.Get("message").String()
	if msg == "" {
		msg = body.Get("error").String()
	}
	return &StatusError{StatusCode: r.StatusCode, Message: msg}
}

// StatusError describes a non-success HTTP status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("http status %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Transport performs exactly one HTTP request.
type Transport interface {
	Send(ctx context.Context, req Request) (*Response, error)
}

// Func adapts a function to [Transport].
type Func func(ctx context.Context, req Request) (*Response, error)

// Send calls f.
func (f Func) Send(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// Error is a network or transport-level failure (timeout, connection refused,
// oversized or truncated body).
type Error struct {
	Method string
	Path   string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is [ErrTransport].
func (e *Error) Is(target error) bool {
	return target == ErrTransport
}
