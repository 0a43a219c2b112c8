package internaldefs

import (
	authclient "github.com/MrEthical07/authclient"
)

// CounterDef names one client counter.
type CounterDef struct {
	ID   authclient.MetricID
	Name string
	Help string
}

// HistogramDef names one latency histogram.
type HistogramDef struct {
	ID   authclient.MetricID
	Name string
	Help string
}

// EventsDroppedName is the counter for events lost to dispatcher backpressure.
const (
	EventsDroppedName = "authclient_events_dropped_total"
	EventsDroppedHelp = "Client events dropped due to dispatcher backpressure."
)

var CounterDefs = []CounterDef{
	{ID: authclient.MetricRequestDispatched, Name: "authclient_requests_dispatched_total", Help: "Requests dispatched."},
	{ID: authclient.MetricRequestSucceeded, Name: "authclient_requests_succeeded_total", Help: "Requests that returned a response without an auth failure."},
	{ID: authclient.MetricRequestRetried, Name: "authclient_requests_retried_total", Help: "Requests retried after a refresh."},
	{ID: authclient.MetricTransportError, Name: "authclient_transport_errors_total", Help: "Requests that failed at the transport."},
	{ID: authclient.MetricAuthExpired, Name: "authclient_auth_expired_total", Help: "Requests that observed the auth-expired signal."},
	{ID: authclient.MetricBadCredentials, Name: "authclient_bad_credentials_total", Help: "Requests rejected as bad credentials."},
	{ID: authclient.MetricRetryExhausted, Name: "authclient_retry_exhausted_total", Help: "Retried requests that expired again."},
	{ID: authclient.MetricRefreshEndpointExpired, Name: "authclient_refresh_endpoint_expired_total", Help: "Direct refresh-endpoint calls that reported auth expiry."},
	{ID: authclient.MetricRefreshStarted, Name: "authclient_refresh_started_total", Help: "Refresh calls started."},
	{ID: authclient.MetricRefreshQueued, Name: "authclient_refresh_queued_total", Help: "Callers queued behind an in-flight refresh."},
	{ID: authclient.MetricRefreshSuccess, Name: "authclient_refresh_success_total", Help: "Successful refreshes."},
	{ID: authclient.MetricRefreshFailure, Name: "authclient_refresh_failure_total", Help: "Failed refreshes."},
	{ID: authclient.MetricCredentialsCleared, Name: "authclient_credentials_cleared_total", Help: "Credential store clears."},
	{ID: authclient.MetricCredentialsClearFailed, Name: "authclient_credentials_clear_failed_total", Help: "Credential store clears that failed."},
	{ID: authclient.MetricLogout, Name: "authclient_logout_total", Help: "Logout operations."},
}

var HistogramDefs = []HistogramDef{
	{ID: authclient.MetricDispatchLatency, Name: "authclient_dispatch_latency_seconds", Help: "End-to-end dispatch latency including refresh and retry."},
	{ID: authclient.MetricRefreshLatency, Name: "authclient_refresh_latency_seconds", Help: "Refresh call latency."},
}

// HistogramBounds are the upper bounds, in seconds, of the client's latency
// buckets. The last bucket is unbounded.
var HistogramBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, including the unbounded one, for
// exporters without native histogram support.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
