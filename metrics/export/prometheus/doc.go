// Package prometheus provides Prometheus collectors for clinicauth metrics.
//
// [NewPrometheusExporter] accepts an [clinicauth.Engine] and exposes an [http.Handler]
// that renders all clinicauth counters and histograms in Prometheus text exposition format.
// Counter names are prefixed clinicauth_*_total; the single histogram is
// clinicauth_validate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus
