package queue

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsTotal      *prometheus.CounterVec
	jobDurationSec *prometheus.HistogramVec
	enqueuedTotal  *prometheus.CounterVec
	metricsOnce    sync.Once
)

func initMetricsOnce() {
	metricsOnce.Do(func() {
		jobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelphases_queue_jobs_total",
				Help: "Processed queue jobs by outcome (ok, error, cancelled, retry, dead, unknown)",
			},
			[]string{"type", "result"},
		)
		jobDurationSec = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fuelphases_queue_job_seconds",
				Help:    "Job handler duration",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
			},
			[]string{"type"},
		)
		enqueuedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelphases_queue_enqueued_total",
				Help: "Jobs pushed onto the queue",
			},
			[]string{"type"},
		)
	})
}

func observeJob(msgType, result string, d time.Duration) {
	jobsTotal.WithLabelValues(msgType, result).Inc()
	if d > 0 {
		jobDurationSec.WithLabelValues(msgType).Observe(d.Seconds())
	}
}
