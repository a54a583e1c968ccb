// Package otel binds qmsauth client metrics to OpenTelemetry observable
// instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per counter family,
// with the family label as an attribute, a phase gauge, and gauges for the
// cumulative latency buckets keyed by an "le" attribute. A single callback
// reads [qmsauth.Client.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate client state.
package otel
