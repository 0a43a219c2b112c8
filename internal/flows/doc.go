// Package flows contains pure-function orchestrators for client operations.
//
// Each flow function (RunDispatch, RunLogout) accepts a typed dependency
// struct and returns a result describing what happened. The root Client maps
// results to errors, metrics, events and logs, so flows stay testable with
// plain function fakes.
//
// # Architecture boundaries
//
// Flow functions coordinate the transport, the response classifier, the
// refresh coordinator and the credential store. They do NOT own any of these
// resources; ownership stays with the Client.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import authclient (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency funcs.
package flows
