package flows

import (
	"context"

	"github.com/MrEthical07/authclient/transport"
)

// LogoutDeps captures logout flow dependencies. A nil Endpoint skips the
// server call and only clears local credentials.
type LogoutDeps struct {
	Send             func(context.Context, transport.Request) (*transport.Response, error)
	Endpoint         *transport.Request
	ClearCredentials func(context.Context) error
}

// LogoutResult reports the server call and the local clear separately.
type LogoutResult struct {
	Response  *transport.Response
	ServerErr error
	ClearErr  error
}

// RunLogout notifies the server when configured, then always clears local
// credentials.
func RunLogout(ctx context.Context, deps LogoutDeps) LogoutResult {
	var out LogoutResult
	if deps.Endpoint != nil && deps.Send != nil {
		resp, err := deps.Send(ctx, deps.Endpoint.Clone())
		out.Response = resp
		switch {
		case err != nil:
			out.ServerErr = err
		case resp != nil:
			out.ServerErr = resp.Err()
		}
	}
	if deps.ClearCredentials != nil {
		out.ClearErr = deps.ClearCredentials(context.WithoutCancel(ctx))
	}
	return out
}
