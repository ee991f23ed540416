// Package metrics counts gateway activity and serves it in the Prometheus
// exposition format at /metrics.
//
// Counters live on a private client_golang registry together with the Go
// runtime collector; room and connection gauges are read from the
// connection registry at scrape time. A nil *Metrics is valid and records
// nothing.
package metrics
