// Package otel publishes the service metrics through an OpenTelemetry Meter.
//
// [NewExporter] registers one Int64ObservableCounter per counter. Each latency
// histogram becomes a cumulative bucket gauge with an "le" attribute plus
// _count and _sum counters, matching the Prometheus series names. A single
// callback reads the metrics snapshot on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate metric state.
package otel
