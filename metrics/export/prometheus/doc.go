// Package prometheus renders goSession metrics in the Prometheus text
// exposition format.
//
// [Exporter.Handler] is meant to be mounted at /metrics. Counters are named
// gosession_*_total; token rejections, cache errors and OAuth callbacks are
// single families split by a label. The GetStore latency histogram is
// gosession_get_store_latency_seconds.
//
// Nothing is registered globally; callers mount the handler themselves.
package prometheus
