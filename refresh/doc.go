// Package refresh coordinates credential refresh so that at most one refresh
// call is in flight at a time.
//
// # Single flight
//
// The first caller of [Coordinator.RequestRefresh] runs the [Invoker]. Callers
// arriving while it runs are queued and receive the same outcome, settled in
// arrival order. On failure the in-flight flag is reset and the queue taken
// first, then credentials are cleared through the [Clearer] exactly once, then
// the queued callers are released. A caller started from a clear callback
// therefore begins a new refresh rather than waiting on the one that is
// settling. Nothing is memoized: the next call after settlement starts a
// fresh refresh.
//
// # Architecture boundaries
//
// This package owns the in-flight flag and the waiter queue. It does NOT
// classify responses, retry requests, or know how the refresh endpoint is
// called; the root client supplies those through the Invoker and [Hooks].
//
// # What this package must NOT do
//
//   - Import the root authclient package or transport.
//   - Hold its lock while the invoker or clearer runs.
//   - Let one caller's cancellation fail the shared refresh.
package refresh
