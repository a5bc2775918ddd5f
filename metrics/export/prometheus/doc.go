// Package prometheus provides Prometheus collectors for credcore metrics.
//
// [NewPrometheusExporter] accepts a [credcore.Engine] and exposes an [http.Handler]
// that renders all credcore counters and histograms in Prometheus text exposition format.
// Counter names are prefixed credcore_*_total; the single histogram is
// credcore_login_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus
