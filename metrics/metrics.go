package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vidsight"

// Metrics holds the collectors for one registry. Tests build their own
// with New so they never share global state.
type Metrics struct {
	registry *prometheus.Registry

	AnalysesStarted  prometheus.Counter
	AnalysesFinished *prometheus.CounterVec
	AnalysisDuration *prometheus.HistogramVec
	InFlight         prometheus.Gauge
	HTTPRequests     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		AnalysesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_started_total",
			Help:      "Analyses accepted for processing.",
		}),
		AnalysesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_finished_total",
			Help:      "Analyses that reached a terminal state, by outcome.",
		}, []string{"state", "kind"}),
		AnalysisDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Wall time from upload start to terminal state.",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120, 300, 600},
		}, []string{"state"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "analyses_in_flight",
			Help:      "Analyses currently running.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.AnalysesStarted,
		m.AnalysesFinished,
		m.AnalysisDuration,
		m.InFlight,
		m.HTTPRequests,
	)
	return m
}

// Started records a new analysis and returns a func that records its
// outcome. kind is empty for successful runs.
func (m *Metrics) Started() func(state, kind string) {
	m.AnalysesStarted.Inc()
	m.InFlight.Inc()
	start := time.Now()

	return func(state, kind string) {
		m.InFlight.Dec()
		m.AnalysesFinished.WithLabelValues(state, kind).Inc()
		m.AnalysisDuration.WithLabelValues(state).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Instrument counts every request passing through next.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerCounter(m.HTTPRequests, next)
}
