// Package otel provides OpenTelemetry metric exporter bindings for credcore counters and
// histograms.
//
// [NewOTelExporter] registers Int64ObservableCounter instruments for each credcore metric
// and Int64ObservableGauge per histogram bucket. A single callback reads
// [credcore.Engine.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider — callers supply the Meter.
//   - Mutate engine state.
package otel
