package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/MrEthical07/authclient/jwt"
	"github.com/MrEthical07/authclient/refresh"
	"github.com/MrEthical07/authclient/session"
	"github.com/MrEthical07/authclient/transport"
)

var errMissingAccessToken = errors.New("refresh response has no access_token")

// sessionRefresher is the coordinator's invoker. It performs exactly one call
// to the refresh endpoint through the bare transport, so a refresh never
// re-enters the dispatcher.
type sessionRefresher struct {
	transport Transport
	method    string
	path      string
	// tokens is set in bearer mode only. Cookie mode relies on the jar.
	tokens session.TokenStore
	now    func() time.Time
}

func (r *sessionRefresher) Refresh(ctx context.Context) error {
	req := transport.Request{Method: r.method, Path: r.path, Header: http.Header{}}

	var current session.Tokens
	if r.tokens != nil {
		t, err := r.tokens.Load(ctx)
		if err != nil {
			return &refresh.FailedError{Cause: fmt.Errorf("load refresh token: %w", err)}
		}
		if t.RefreshToken == "" {
			return &refresh.FailedError{Cause: session.ErrNoTokens}
		}
		current = t
		body, err := json.Marshal(map[string]string{"refresh_token": t.RefreshToken})
		if err != nil {
			return &refresh.FailedError{Cause: err}
		}
		req.Body = body
	}

	resp, err := r.transport.Send(ctx, req)
	if err != nil {
		return &refresh.FailedError{Cause: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &refresh.FailedError{Cause: resp.Err(), StatusCode: resp.StatusCode}
	}
	if r.tokens == nil {
		return nil
	}

	next, err := r.parseTokens(resp.Body, current)
	if err != nil {
		return &refresh.FailedError{Cause: err, StatusCode: resp.StatusCode}
	}
	if err := r.tokens.Save(ctx, next); err != nil {
		return &refresh.FailedError{Cause: fmt.Errorf("save tokens: %w", err)}
	}
	return nil
}

func (r *sessionRefresher) parseTokens(body []byte, current session.Tokens) (session.Tokens, error) {
	if !gjson.ValidBytes(body) {
		return session.Tokens{}, errMissingAccessToken
	}
	res := gjson.GetManyBytes(body, "access_token", "refresh_token", "expires_in")
	access := res[0].String()
	if access == "" {
		return session.Tokens{}, errMissingAccessToken
	}

	next := session.Tokens{AccessToken: access, RefreshToken: current.RefreshToken}
	// Servers that rotate refresh tokens send a new one; others keep the old.
	if rt := res[1].String(); rt != "" {
		next.RefreshToken = rt
	}
	if secs := res[2].Int(); secs > 0 {
		next.ExpiresAt = r.clock().Add(time.Duration(secs) * time.Second)
	} else if exp, err := jwt.ExpiresAt(access); err == nil {
		next.ExpiresAt = exp
	}
	return next, nil
}

func (r *sessionRefresher) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}
