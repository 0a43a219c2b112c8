package flows

import (
	"context"

	"github.com/MrEthical07/authclient/transport"
)

// Signal is the classifier verdict for a response.
type Signal int

const (
	SignalNone Signal = iota
	SignalAuthExpired
	SignalBadCredentials
)

// DispatchFailureKind classifies dispatch outcomes for root-level mapping.
type DispatchFailureKind int

const (
	DispatchFailureNone DispatchFailureKind = iota
	DispatchFailureTransport
	DispatchFailureBadCredentials
	// DispatchFailureRefreshEndpoint: the refresh endpoint itself reported
	// auth expiry. Credentials are cleared and nothing is queued.
	DispatchFailureRefreshEndpoint
	// DispatchFailureRetryExhausted: auth expiry on an already-retried request.
	DispatchFailureRetryExhausted
	DispatchFailureRefresh
)

func (k DispatchFailureKind) String() string {
	switch k {
	case DispatchFailureNone:
		return "none"
	case DispatchFailureTransport:
		return "transport"
	case DispatchFailureBadCredentials:
		return "bad_credentials"
	case DispatchFailureRefreshEndpoint:
		return "refresh_endpoint"
	case DispatchFailureRetryExhausted:
		return "retry_exhausted"
	case DispatchFailureRefresh:
		return "refresh_failed"
	default:
		return "unknown"
	}
}

// Attempt is one dispatch of a request. AlreadyRetried is never reset.
type Attempt struct {
	Request        transport.Request
	AlreadyRetried bool
}

// DispatchResult carries the final response or failure metadata.
type DispatchResult struct {
	Failure  DispatchFailureKind
	Err      error
	Response *transport.Response
	// Refreshed is set when this dispatch waited on a successful refresh.
	Refreshed bool
	// Retried is set when the returned outcome came from the retry.
	Retried bool
}

// DispatchDeps captures dispatch flow dependencies.
type DispatchDeps struct {
	Send             func(context.Context, transport.Request) (*transport.Response, error)
	Classify         func(*transport.Response) Signal
	IsRefreshRequest func(transport.Request) bool
	RequestRefresh   func(context.Context) error
	ClearCredentials func(context.Context) error
	// OnRetry runs just before the retry is sent.
	OnRetry func(context.Context, transport.Request)
	Warn    func(string, ...any)
}

// RunDispatch sends a request and, on auth expiry, waits for a refresh and
// retries exactly once.
func RunDispatch(ctx context.Context, a Attempt, deps DispatchDeps) DispatchResult {
	resp, err := deps.Send(ctx, a.Request)
	if err != nil {
		return DispatchResult{
			Failure: DispatchFailureTransport,
			Err:     err,
			Retried: a.AlreadyRetried,
		}
	}

	switch deps.Classify(resp) {
	case SignalBadCredentials:
		return DispatchResult{
			Failure:  DispatchFailureBadCredentials,
			Response: resp,
			Retried:  a.AlreadyRetried,
		}
	case SignalAuthExpired:
	default:
		return DispatchResult{Response: resp, Retried: a.AlreadyRetried}
	}

	if a.AlreadyRetried {
		return DispatchResult{
			Failure:  DispatchFailureRetryExhausted,
			Response: resp,
			Retried:  true,
		}
	}

	if deps.IsRefreshRequest != nil && deps.IsRefreshRequest(a.Request) {
		if deps.ClearCredentials != nil {
			if err := deps.ClearCredentials(context.WithoutCancel(ctx)); err != nil && deps.Warn != nil {
				deps.Warn("authclient: credential clear failed", "error", err)
			}
		}
		return DispatchResult{
			Failure:  DispatchFailureRefreshEndpoint,
			Response: resp,
		}
	}

	if err := deps.RequestRefresh(ctx); err != nil {
		return DispatchResult{
			Failure:  DispatchFailureRefresh,
			Err:      err,
			Response: resp,
		}
	}

	retry := Attempt{Request: a.Request.Clone(), AlreadyRetried: true}
	if deps.OnRetry != nil {
		deps.OnRetry(ctx, retry.Request)
	}
	out := RunDispatch(ctx, retry, deps)
	out.Refreshed = true
	out.Retried = true
	return out
}
