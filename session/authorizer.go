package session

import (
	"context"
	"errors"
	"net/http"
)

// BearerAuthorizer sets the Authorization header from a [TokenStore]. A request
// that already carries an Authorization header is left untouched, and a
// missing session sends the request anonymously.
type BearerAuthorizer struct {
	Store TokenStore
}

// Authorize implements the transport authorizer hook.
func (a BearerAuthorizer) Authorize(ctx context.Context, req *http.Request) error {
	if a.Store == nil || req.Header.Get("Authorization") != "" {
		return nil
	}
	t, err := a.Store.Load(ctx)
	if errors.Is(err, ErrNoTokens) {
		return nil
	}
	if err != nil {
		return err
	}
	if t.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+t.AccessToken)
	}
	return nil
}
