package flows

import "context"

// Service is the centralized flow runner built once by the root client.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Dispatch.Send != nil && s.deps.Dispatch.Classify != nil
}

func (s Service) Dispatch(ctx context.Context, a Attempt) DispatchResult {
	return RunDispatch(ctx, a, s.deps.Dispatch)
}

func (s Service) Logout(ctx context.Context) LogoutResult {
	return RunLogout(ctx, s.deps.Logout)
}
