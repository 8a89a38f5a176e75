// Package prometheus exposes the service metrics through
// github.com/prometheus/client_golang.
//
// [Exporter] is a prometheus.Collector that reads a metrics snapshot on every
// scrape and emits const counters and histograms. [Exporter.Handler] serves a
// private registry so nothing leaks into the global default registry.
//
// # What this package must NOT do
//
//   - Register into prometheus.DefaultRegisterer.
//   - Mutate metric state.
package prometheus
