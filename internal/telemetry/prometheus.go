package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	stageRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_runs_total",
			Help: "Total number of pipeline stage executions.",
		},
		[]string{"stage", "outcome"},
	)
	stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Histogram of pipeline stage durations.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"stage"},
	)
	itemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_items_total",
			Help: "Items handled per stage, labeled with the per-item result.",
		},
		[]string{"stage", "result"},
	)
)

func init() {
	prometheus.MustRegister(stageRunsTotal)
	prometheus.MustRegister(stageDuration)
	prometheus.MustRegister(itemsTotal)
}

// RecordStage records one stage execution.
func RecordStage(stage string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	stageRunsTotal.WithLabelValues(stage, outcome).Inc()
	stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordItem counts one handled item, e.g. an intake candidate or a fan-out
// delivery.
func RecordItem(stage, result string) {
	itemsTotal.WithLabelValues(stage, result).Inc()
}

// RecordItems counts a batch of items sharing one result.
func RecordItems(stage, result string, n int) {
	if n <= 0 {
		return
	}
	itemsTotal.WithLabelValues(stage, result).Add(float64(n))
}

// MetricsHandler returns the HTTP handler exporting Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
