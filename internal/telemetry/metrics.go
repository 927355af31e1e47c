package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	JobsEnqueued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "render_jobs_enqueued_total",
		Help: "Render jobs published to the queue",
	})
	JobsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "render_jobs_completed_total",
		Help: "Render jobs that reached DONE",
	})
	JobsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "render_jobs_failed_total",
		Help: "Render jobs that reached FAILED",
	})
	StatusWriteErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "render_job_status_write_errors_total",
		Help: "Job status updates rejected by the store",
	})
	RenderDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "render_job_duration_seconds",
		Help:    "Wall time of a render delivery, download through upload",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
)

// Handler exposes the /metrics HTTP handler with a singleton registry
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			JobsEnqueued,
			JobsCompleted,
			JobsFailed,
			StatusWriteErrors,
			RenderDuration,
		)
	})
	return promhttp.Handler()
}
