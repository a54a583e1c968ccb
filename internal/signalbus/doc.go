// Package signalbus implements async delivery of session signals.
//
// # Components
//
//   - [Sink]: interface for event consumers.
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//
// # Architecture boundaries
//
// This package owns buffering and sink delivery. It does NOT decide which
// signals to emit; that belongs to the session client.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import qmsauth or any sibling internal package.
package signalbus
