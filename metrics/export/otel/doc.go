// Package otel publishes authclient metrics as OpenTelemetry observable
// instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per client counter
// and one Int64ObservableGauge per latency bucket plus a count gauge. A single
// callback reads [authclient.Client.MetricsSnapshot] on each collection. The
// caller owns the MeterProvider.
package otel
