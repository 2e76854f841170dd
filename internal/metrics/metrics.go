package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the service's Prometheus instruments. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	MatchRequests     *prometheus.CounterVec
	MatchDuration     *prometheus.HistogramVec
	MatchResults      *prometheus.HistogramVec
	ReferenceRefresh  *prometheus.CounterVec
	ReferenceBuiltAt  prometheus.Gauge
}

// New registers all instruments with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matchengine_http_requests_total",
				Help: "Total number of HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "matchengine_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		MatchRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matchengine_match_requests_total",
				Help: "Total number of match requests by strategy and outcome",
			},
			[]string{"strategy", "outcome"},
		),
		MatchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "matchengine_match_duration_seconds",
				Help:    "Duration of the matching pipeline in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .2, .5, 1},
			},
			[]string{"strategy"},
		),
		MatchResults: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "matchengine_match_results",
				Help:    "Number of matches returned per request",
				Buckets: []float64{0, 1, 3, 5, 9, 20, 50},
			},
			[]string{"strategy"},
		),
		ReferenceRefresh: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matchengine_reference_refresh_total",
				Help: "Total number of reference snapshot rebuilds by outcome",
			},
			[]string{"outcome"},
		),
		ReferenceBuiltAt: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "matchengine_reference_built_timestamp_seconds",
				Help: "Unix time of the last successful reference snapshot build",
			},
		),
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveHTTP records a finished HTTP request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveMatch records a finished match request.
func (m *Metrics) ObserveMatch(strategy string, d time.Duration, results int, err error) {
	if m == nil {
		return
	}
	m.MatchRequests.WithLabelValues(strategy, outcome(err)).Inc()
	if err != nil {
		return
	}
	m.MatchDuration.WithLabelValues(strategy).Observe(d.Seconds())
	m.MatchResults.WithLabelValues(strategy).Observe(float64(results))
}

// ObserveRefresh records a reference snapshot rebuild.
func (m *Metrics) ObserveRefresh(builtAt time.Time, err error) {
	if m == nil {
		return
	}
	m.ReferenceRefresh.WithLabelValues(outcome(err)).Inc()
	if err == nil {
		m.ReferenceBuiltAt.Set(float64(builtAt.Unix()))
	}
}
