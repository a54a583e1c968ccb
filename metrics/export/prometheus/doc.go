// Package prometheus renders qmsauth client metrics in the Prometheus text
// exposition format.
//
// [NewPrometheusExporter] reads [qmsauth.Client.MetricsSnapshot] on every
// scrape. Related counters share one family and differ by a label, for
// example qmsauth_toasts_total{outcome="throttled"}. The current session
// phase is a 0/1 gauge per phase, and request latency is the histogram
// qmsauth_request_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate client state.
package prometheus
