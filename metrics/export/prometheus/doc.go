// Package prometheus exposes authcore counters through client_golang.
//
// [NewCollector] wraps an engine as a prometheus.Collector that reads
// [authcore.Engine.MetricsSnapshot] on each scrape. [NewPrometheusExporter]
// registers one on a private registry and serves it over [Exporter.Handler].
// Counters are named studentopia_auth_*_total; the single histogram is
// studentopia_auth_login_latency_seconds.
//
// # What this package must NOT do
//
//   - Register in the global Prometheus registry.
//   - Mutate engine state.
package prometheus
