// Package metrics holds the Prometheus instruments of the pipeline.
//
// All methods are nil-safe so components can take a *Metrics without
// checking whether metrics are enabled.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"recruitpulse/internal/hiring"
)

const namespace = "recruitpulse"

type Metrics struct {
	reg *prometheus.Registry

	computations    *prometheus.CounterVec
	computeDuration prometheus.Histogram
	sourceRows      prometheus.Gauge
	droppedRows     prometheus.Gauge
	broadcasts      *prometheus.CounterVec
	sends           *prometheus.CounterVec
	sessions        prometheus.Gauge
	watchEvents     *prometheus.CounterVec
}

// New creates an independent registry, so tests can build as many as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		computations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_computations_total",
			Help:      "Snapshot computations by result.",
		}, []string{"result"}),
		computeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_compute_seconds",
			Help:      "Time spent reading and aggregating the spreadsheet.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		sourceRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_rows",
			Help:      "Data rows read by the last successful computation.",
		}),
		droppedRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_dropped_rows",
			Help:      "Rows without a valid date in the last successful computation.",
		}),
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Computed payloads pushed to viewers, by trigger.",
		}, []string{"trigger"}),
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sends_total",
			Help:      "Per-viewer sends by outcome.",
		}, []string{"outcome"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Currently connected viewers.",
		}),
		watchEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watch_events_total",
			Help:      "Filesystem events seen by the watcher.",
		}, []string{"accepted"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.computations, m.computeDuration, m.sourceRows, m.droppedRows,
		m.broadcasts, m.sends, m.sessions, m.watchEvents,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// Handler serves the /metrics scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// ObserveCompute is a hiring.WithObserver hook.
func (m *Metrics) ObserveCompute(st hiring.Stats) {
	if m == nil {
		return
	}
	m.computeDuration.Observe(st.Took.Seconds())
	if st.Err != nil {
		m.computations.WithLabelValues("error").Inc()
		return
	}
	m.computations.WithLabelValues("ok").Inc()
	m.sourceRows.Set(float64(st.TotalRows))
	m.droppedRows.Set(float64(st.DroppedRows))
}

func (m *Metrics) ObserveBroadcast(trigger string, delivered, failed int) {
	if m == nil {
		return
	}
	m.broadcasts.WithLabelValues(trigger).Inc()
	if delivered > 0 {
		m.sends.WithLabelValues("delivered").Add(float64(delivered))
	}
	if failed > 0 {
		m.sends.WithLabelValues("failed").Add(float64(failed))
	}
}

func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}

// ObserveWatchEvent is a watch.WithObserver hook.
func (m *Metrics) ObserveWatchEvent(_ string, accepted bool) {
	if m == nil {
		return
	}
	if accepted {
		m.watchEvents.WithLabelValues("true").Inc()
		return
	}
	m.watchEvents.WithLabelValues("false").Inc()
}
