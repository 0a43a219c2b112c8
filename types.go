package authclient

import (
	"io"

	internalaudit "github.com/MrEthical07/authclient/internal/audit"
	internalmetrics "github.com/MrEthical07/authclient/internal/metrics"
	"github.com/MrEthical07/authclient/session"
	"github.com/MrEthical07/authclient/transport"
)

// Response is the fully-read result of a dispatched request.
type Response = transport.Response

// Transport performs exactly one HTTP call. [transport.HTTP] is the default.
type Transport = transport.Transport

// CredentialStore persists and clears session artifacts.
type CredentialStore = session.Store

// Event is a structured client event (dispatch outcome, refresh, clear).
type Event = internalaudit.Event

// EventSink receives [Event] values from the client's async dispatcher.
type EventSink = internalaudit.Sink

// NoOpSink is an [EventSink] that discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [EventSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes JSON-encoded events to an [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// FuncSink adapts a function to [EventSink].
type FuncSink = internalaudit.FuncSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// MetricID identifies a counter or latency histogram.
type MetricID = internalmetrics.MetricID

const (
	MetricRequestDispatched      = internalmetrics.MetricRequestDispatched
	MetricRequestSucceeded       = internalmetrics.MetricRequestSucceeded
	MetricRequestRetried         = internalmetrics.MetricRequestRetried
	MetricTransportError         = internalmetrics.MetricTransportError
	MetricAuthExpired            = internalmetrics.MetricAuthExpired
	MetricBadCredentials         = internalmetrics.MetricBadCredentials
	MetricRetryExhausted         = internalmetrics.MetricRetryExhausted
	MetricRefreshEndpointExpired = internalmetrics.MetricRefreshEndpointExpired
	MetricRefreshStarted         = internalmetrics.MetricRefreshStarted
	MetricRefreshQueued          = internalmetrics.MetricRefreshQueued
	MetricRefreshSuccess         = internalmetrics.MetricRefreshSuccess
	MetricRefreshFailure         = internalmetrics.MetricRefreshFailure
	MetricCredentialsCleared     = internalmetrics.MetricCredentialsCleared
	MetricCredentialsClearFailed = internalmetrics.MetricCredentialsClearFailed
	MetricLogout                 = internalmetrics.MetricLogout
	MetricDispatchLatency        = internalmetrics.MetricDispatchLatency
	MetricRefreshLatency         = internalmetrics.MetricRefreshLatency
)

// Metrics holds atomic counters and optional latency histograms.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a [Metrics] instance. When Enabled is false all
// operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
