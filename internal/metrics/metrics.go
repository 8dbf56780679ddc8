// Prometheus 지표 정의 (기본 registry에 등록, /metrics에서 노출)

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "iocradar"

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Response cache lookups by result (hit, miss, error).",
	}, []string{"result"})

	ScoringRuns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scoring_runs_total",
		Help:      "Personalized ranking passes.",
	})

	ScoringDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "scoring_duration_seconds",
		Help:      "Time spent ranking alerts for one dashboard request.",
		Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
	})

	DegradedFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dashboard_degraded_fetches_total",
		Help:      "Dashboard source fetches that failed and were replaced with empty lists.",
	}, []string{"source"})

	AlertsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_ingested_total",
		Help:      "Alerts processed by the ingest path by outcome.",
	}, []string{"outcome"})

	DeadLetters = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingest_dead_letters_total",
		Help:      "Kafka alert messages moved to the dead-letter topic.",
	})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Relevant-alert notifications by channel and outcome.",
	}, []string{"channel", "outcome"})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
