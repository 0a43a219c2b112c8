// Package transport performs single HTTP exchanges for the authenticated client.
//
// # Components
//
//   - [Transport] — the one-call capability consumed by the dispatcher and the
//     refresh invoker.
//   - [HTTP] — net/http implementation with cookie jar, bearer authorizer hook,
//     and client-side rate limiting.
//   - [Error] — structured transport failure; never an authentication signal.
//
// # Architecture boundaries
//
// This package moves bytes. It does NOT classify responses, retry requests, or
// refresh sessions — those responsibilities belong to the root client.
//
// # What this package must NOT do
//
//   - Import authclient, refresh, or session (no upward imports).
//   - Turn non-2xx statuses into errors; status handling belongs to callers.
package transport
