// Package audit relays security-relevant account events (logins, refresh
// rotations, token reuse, confirmations) to a sink without blocking the
// request path.
//
// # Components
//
//   - [Event] is the structured record: time, type, identity, client IP, outcome.
//   - [Sink] consumes events. [ZapSink] writes them to the service logger,
//     [JSONWriterSink] to any io.Writer, [ChannelSink] to a channel for tests.
//   - [Dispatcher] is a buffered async relay with drop-if-full or block-if-full
//     semantics. It stamps events that lack a timestamp, caps metadata at a
//     fixed number of entries and bytes per value, and counts drops per event
//     type.
//
// # What this package must NOT do
//
//   - Decide which events to emit. The auth service owns that.
//   - Import any sibling internal package.
package audit
