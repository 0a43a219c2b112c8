// Package session holds the client-side session artifacts that authenticate
// outbound requests.
//
// # Stores
//
// Every store implements [Store], the capability the refresh coordinator uses
// to wipe credentials after a failed refresh. Bearer-token stores additionally
// implement [TokenStore]:
//
//   - [MemoryStore]: process-local tokens.
//   - [RedisStore]: tokens shared across processes through Redis, with clear
//     notifications published on a channel.
//   - [CookieStore]: an http.CookieJar for servers that keep the session in
//     cookies.
//
// # Architecture boundaries
//
// This package persists and clears artifacts. It does NOT decide when a
// refresh is needed, talk to the refresh endpoint, or redirect users after a
// clear; callers register OnCleared callbacks for that.
//
// # What this package must NOT do
//
//   - Import the root authclient package, refresh, or transport.
//   - Verify token signatures. [jwt.ExpiresAt] is used for TTL sizing only.
package session
