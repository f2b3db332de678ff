package metrics

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ScoresImportedRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scores_imported_rows_total",
			Help: "Total number of score rows written by imports",
		},
		[]string{"tenant"},
	)

	ScoreImports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "score_imports_total",
			Help: "Score imports by outcome",
		},
		[]string{"tenant", "result"},
	)

	LockWait = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tenant_lock_wait_seconds",
			Help:    "Time spent waiting for a tenant lock",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 30},
		},
		[]string{"tenant"},
	)

	CacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "result_cache_requests_total",
			Help: "Result cache lookups by kind and result",
		},
		[]string{"kind", "result"},
	)

	WorkerProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_messages_processed_total",
			Help: "Total number of recompute messages processed by workers",
		},
		[]string{"tenant"},
	)

	WorkerActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_active_goroutines",
			Help: "Number of active worker goroutines per tenant",
		},
		[]string{"tenant"},
	)

	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_depth",
			Help: "Current RabbitMQ recompute queue depth per tenant",
		},
		[]string{"tenant"},
	)
)

var initOnce sync.Once

// Init registers metrics with Prometheus
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			ScoresImportedRows,
			ScoreImports,
			LockWait,
			CacheRequests,
			WorkerProcessed,
			WorkerActive,
			QueueDepth,
		)
	})
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Tenant formats a tenant id as a label value.
func Tenant(id int64) string {
	return strconv.FormatInt(id, 10)
}
