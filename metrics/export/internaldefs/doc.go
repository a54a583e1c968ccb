// Package internaldefs holds the metric families, label values and bucket
// bounds shared by the exporters, so the Prometheus and OTel outputs name
// the same series.
//
// # What this package must NOT do
//
//   - Import any exporter package.
//   - Perform I/O.
package internaldefs
