// Package audit implements async dispatch of client session events.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, func, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: structured record of a dispatch, refresh, or credential clear.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which
// events to emit; that belongs to the root Client.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import authclient or any sibling internal package.
//   - Let a panicking sink stop delivery of later events.
package audit
