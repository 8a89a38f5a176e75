// Package rate implements the fixed-window admission limiter shared by every
// server instance.
//
// # Window semantics
//
// One counter per key, created lazily on the first hit. A hit that would take
// the counter past the limit is denied without incrementing, so the counter
// never exceeds the ceiling. Once the window has elapsed the next hit starts a
// fresh window at count 1. In Redis the window start is the key's PEXPIRE and
// rollover is key expiry; check, increment and expiry run in one Lua script.
//
// Keys are built as rl:<route>:<subject>.
//
// # Failure policy
//
// Store calls run under a bounded timeout. When the store errors the [Limiter]
// either surfaces [ErrStoreUnavailable], admits, or denies, per [FailurePolicy].
//
// # What this package must NOT do
//
//   - Inspect request bodies or tokens. Callers pick the subject.
//   - Block for longer than the configured store timeout.
package rate
