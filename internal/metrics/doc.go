// Package metrics records build and dev server metrics.
//
// Components take a Recorder and default to NoopRecorder, so no caller needs
// nil checks. The sitebuilder binary swaps in a PrometheusRecorder when
// metrics are enabled and exposes it on /metrics through HTTPHandler.
package metrics
