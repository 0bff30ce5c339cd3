package runner

import "github.com/prometheus/client_golang/prometheus"

var (
	jobsSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crewgate_jobs_submitted_total",
			Help: "Total number of jobs accepted for asynchronous execution.",
		},
	)

	jobsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crewgate_jobs_finished_total",
			Help: "Total number of jobs that reached a terminal state.",
		},
		[]string{"status"},
	)

	jobDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crewgate_job_duration_seconds",
			Help:    "Wall-clock duration of crew executions.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	jobsEvicted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crewgate_jobs_evicted_total",
			Help: "Total number of finished jobs removed by the retention sweep.",
		},
	)
)

func init() {
	prometheus.MustRegister(jobsSubmitted)
	prometheus.MustRegister(jobsFinished)
	prometheus.MustRegister(jobDuration)
	prometheus.MustRegister(jobsEvicted)
}
