package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	QueriesTotal *prometheus.CounterVec

	CacheHitsTotal      prometheus.Counter
	CacheMissesTotal    prometheus.Counter
	CacheEvictionsTotal prometheus.Counter

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  prometheus.Histogram
	RequestsInFlight prometheus.Gauge

	StaleDiscardsTotal  prometheus.Counter
	ThrottledTotal      prometheus.Counter
	ListenerPanicsTotal *prometheus.CounterVec

	ServerRequestsTotal   *prometheus.CounterVec
	ServerRequestDuration *prometheus.HistogramVec
	RateLimitHitsTotal    prometheus.Counter
}

// New регистрирует метрики в reg; nil - дефолтный регистр prometheus.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		QueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predictive_search_queries_total",
				Help: "Total number of queries accepted by the client",
			},
			[]string{"outcome"},
		),

		CacheHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "predictive_search_cache_hits_total",
				Help: "Total number of result cache hits",
			},
		),
		CacheMissesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "predictive_search_cache_misses_total",
				Help: "Total number of result cache misses",
			},
		),
		CacheEvictionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "predictive_search_cache_evictions_total",
				Help: "Total number of results evicted from the cache",
			},
		),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predictive_search_requests_total",
				Help: "Total number of suggest requests issued",
			},
			[]string{"status"},
		),
		RequestDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "predictive_search_request_duration_seconds",
				Help:    "Suggest request duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "predictive_search_requests_in_flight",
				Help: "Number of suggest requests currently in flight",
			},
		),

		StaleDiscardsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "predictive_search_stale_discards_total",
				Help: "Total number of results cached but not published because a newer query superseded them",
			},
		),
		ThrottledTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "predictive_search_throttled_total",
				Help: "Total number of throttled responses",
			},
		),
		ListenerPanicsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predictive_search_listener_panics_total",
				Help: "Total number of recovered panics in event listeners",
			},
			[]string{"event"},
		),

		ServerRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "suggest_server_requests_total",
				Help: "Total number of suggest endpoint requests served",
			},
			[]string{"status"},
		),
		ServerRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "suggest_server_request_duration_seconds",
				Help:    "Suggest endpoint latency in seconds",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"status"},
		),
		RateLimitHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "suggest_server_rate_limit_hits_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
		),
	}
}

func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordQuery(outcome string) {
	m.QueriesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordCacheHit() {
	m.CacheHitsTotal.Inc()
}

func (m *Metrics) RecordCacheMiss() {
	m.CacheMissesTotal.Inc()
}

func (m *Metrics) RecordCacheEviction() {
	m.CacheEvictionsTotal.Inc()
}

func (m *Metrics) RecordRequest(status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(status).Inc()
	m.RequestDuration.Observe(duration.Seconds())
}

func (m *Metrics) IncRequestsInFlight() {
	m.RequestsInFlight.Inc()
}

func (m *Metrics) DecRequestsInFlight() {
	m.RequestsInFlight.Dec()
}

func (m *Metrics) RecordStaleDiscard() {
	m.StaleDiscardsTotal.Inc()
}

func (m *Metrics) RecordThrottled() {
	m.ThrottledTotal.Inc()
}

func (m *Metrics) RecordListenerPanic(event string) {
	m.ListenerPanicsTotal.WithLabelValues(event).Inc()
}

func (m *Metrics) RecordServerRequest(status string, duration time.Duration) {
	m.ServerRequestsTotal.WithLabelValues(status).Inc()
	m.ServerRequestDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func (m *Metrics) RecordRateLimitHit() {
	m.RateLimitHitsTotal.Inc()
}
