// Package prometheus exposes authclient metrics through client_golang.
//
// [PrometheusExporter] is a collector over [authclient.Client.MetricsSnapshot].
// It registers itself on a private registry served by Handler, and can be
// added to a shared one with Register. Counters are named
// authclient_*_total; dispatch and refresh latency are native histograms.
package prometheus
