// Package metrics holds the in-process counters and latency histograms for
// authentication, rate limiting and the contacts API.
//
// Counters are lock-free, cache-line padded atomics indexed by [ID]. Exporters
// under metrics/export read a [Snapshot] on each scrape or collection cycle; the
// hot path never allocates.
//
// # What this package must NOT do
//
//   - Depend on any exporter or on a metrics SDK.
//   - Perform I/O.
package metrics
