package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(jobsProcessedTotal, jobDurationSeconds, jobsEvictedTotal) }

var jobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "docgen_jobs_processed_total",
		Help: "Total number of generation jobs finished, labeled by status.",
	},
	[]string{"status"}, // 'succeeded', 'failed'
)

var jobDurationSeconds = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "docgen_job_duration_seconds",
		Help:    "Wall time from job acceptance to terminal state.",
		Buckets: []float64{1, 5, 10, 20, 30, 45, 60, 90, 120},
	},
)

var jobsEvictedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "docgen_jobs_evicted_total",
		Help: "Terminal progress entries removed by the eviction sweeper.",
	},
)

func IncJobProcessed(status string) {
	jobsProcessedTotal.WithLabelValues(norm(status)).Inc()
}

func ObserveJobDuration(seconds float64) {
	jobDurationSeconds.Observe(seconds)
}

func AddJobsEvicted(n int) {
	jobsEvictedTotal.Add(float64(n))
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
