// Package authclient is an authenticated API client that refreshes expired
// sessions exactly once under concurrent load and transparently replays the
// requests that were waiting on the refresh.
//
// A [Client] is safe for concurrent use after [Builder.Build]. Every request
// goes through [Client.Do]: when the server answers with the auth-expired
// signal, the request waits on a single shared refresh and is retried once.
// A failed refresh clears the stored credentials and fails every waiting
// request with the same [*RefreshFailedError].
//
// # Architecture boundaries
//
// authclient is the public surface. It exposes [Client], [Builder], [Config],
// the request/response types and the error taxonomy. Refresh coordination
// lives in refresh, the dispatch flow and event/metric plumbing live under
// internal/, transports in transport and credential stores in session.
//
// # What this package must NOT do
//
//   - Refresh more than once per retried request, or retry more than once.
//   - Route the refresh call itself through the dispatcher.
//   - Convert non-auth error statuses into errors; callers inspect responses.
package authclient
