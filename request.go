package authclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/MrEthical07/authclient/transport"
)

// RequestDescriptor describes an outbound call. It is immutable once built:
// [RequestDescriptor.Retried] derives the retry copy instead of mutating.
type RequestDescriptor struct {
	Method string
	Path   string
	Body   []byte
	Header http.Header

	alreadyRetried bool
}

// NewRequest builds a descriptor. body may be nil, []byte, string, or any
// JSON-encodable value.
func NewRequest(method, path string, body any) (RequestDescriptor, error) {
	data, err := encodeBody(body)
	if err != nil {
		return RequestDescriptor{}, err
	}
	return RequestDescriptor{
		Method: strings.ToUpper(method),
		Path:   path,
		Body:   data,
		Header: http.Header{},
	}, nil
}

// AlreadyRetried reports whether this descriptor is the single permitted
// retry of an earlier request.
func (r RequestDescriptor) AlreadyRetried() bool {
	return r.alreadyRetried
}

// Retried returns an independent copy marked as already retried.
func (r RequestDescriptor) Retried() RequestDescriptor {
	out := RequestDescriptor{
		Method:         r.Method,
		Path:           r.Path,
		Header:         r.Header.Clone(),
		alreadyRetried: true,
	}
	if r.Body != nil {
		out.Body = append([]byte(nil), r.Body...)
	}
	return out
}

// WithHeader returns a copy with key set to value.
func (r RequestDescriptor) WithHeader(key, value string) RequestDescriptor {
	out := r
	out.Header = r.Header.Clone()
	if out.Header == nil {
		out.Header = http.Header{}
	}
	out.Header.Set(key, value)
	return out
}

func (r RequestDescriptor) validate() error {
	if r.Path == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidRequest)
	}
	if r.Method != "" && strings.ContainsAny(r.Method, " \t\r\n") {
		return fmt.Errorf("%w: malformed method %q", ErrInvalidRequest, r.Method)
	}
	return nil
}

func (r RequestDescriptor) transportRequest() transport.Request {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	header := r.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	return transport.Request{
		Method: method,
		Path:   r.Path,
		Body:   r.Body,
		Header: header,
	}
}

func encodeBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return append([]byte(nil), v...), nil
	case string:
		return []byte(v), nil
	case json.RawMessage:
		return append([]byte(nil), v...), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: encode body: %v", ErrInvalidRequest, err)
		}
		return data, nil
	}
}
