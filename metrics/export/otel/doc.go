// Package otel publishes goSession metrics through OpenTelemetry
// asynchronous instruments.
//
// [NewExporter] creates one Int64ObservableCounter per metric family, using an
// attribute for labeled series, and cumulative bucket gauges for the GetStore
// latency histogram. A single callback reads the snapshot on each collection.
// Callers own the MeterProvider.
package otel
