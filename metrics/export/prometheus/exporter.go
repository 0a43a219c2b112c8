package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authclient "github.com/MrEthical07/authclient"
	"github.com/MrEthical07/authclient/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() authclient.MetricsSnapshot
	EventsDropped() uint64
}

type counterDesc struct {
	id   authclient.MetricID
	desc *prometheus.Desc
}

// PrometheusExporter is a [prometheus.Collector] over a client's metrics
// snapshot. It owns a private registry served by [PrometheusExporter.Handler].
type PrometheusExporter struct {
	source     metricsSource
	counters   []counterDesc
	histograms []counterDesc
	dropped    *prometheus.Desc
	registry   *prometheus.Registry
}

// NewPrometheusExporter creates an exporter that reads from client.
func NewPrometheusExporter(client *authclient.Client) *PrometheusExporter {
	return NewPrometheusExporterFromSource(client)
}

// NewPrometheusExporterFromSource creates an exporter from any metrics
// source.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	p := &PrometheusExporter{
		source:   source,
		dropped:  prometheus.NewDesc(internaldefs.EventsDroppedName, internaldefs.EventsDroppedHelp, nil, nil),
		registry: prometheus.NewRegistry(),
	}
	for _, def := range internaldefs.CounterDefs {
		p.counters = append(p.counters, counterDesc{id: def.ID, desc: prometheus.NewDesc(def.Name, def.Help, nil, nil)})
	}
	for _, def := range internaldefs.HistogramDefs {
		p.histograms = append(p.histograms, counterDesc{id: def.ID, desc: prometheus.NewDesc(def.Name, def.Help, nil, nil)})
	}
	p.registry.MustRegister(p)
	return p
}

// Describe implements [prometheus.Collector].
func (p *PrometheusExporter) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range p.counters {
		ch <- c.desc
	}
	for _, h := range p.histograms {
		ch <- h.desc
	}
	ch <- p.dropped
}

// Collect implements [prometheus.Collector]. Nothing is emitted while the
// source reports no metrics at all.
func (p *PrometheusExporter) Collect(ch chan<- prometheus.Metric) {
	if p.source == nil {
		return
	}
	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.EventsDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return
	}

	for _, c := range p.counters {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.CounterValue, float64(snapshot.Counters[c.id]))
	}
	for _, h := range p.histograms {
		raw, ok := snapshot.Histograms[h.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramBounds))
		for i, le := range internaldefs.HistogramBounds {
			buckets[le] = cumulative[i]
		}
		sum := snapshot.LatencySums[h.id].Seconds()
		ch <- prometheus.MustNewConstHistogram(h.desc, cumulative[len(cumulative)-1], sum, buckets)
	}
	ch <- prometheus.MustNewConstMetric(p.dropped, prometheus.CounterValue, float64(dropped))
}

// Register adds the exporter to reg, for callers that serve a shared
// registry instead of [PrometheusExporter.Handler].
func (p *PrometheusExporter) Register(reg prometheus.Registerer) error {
	return reg.Register(p)
}

// Handler serves the exporter's private registry.
func (p *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
