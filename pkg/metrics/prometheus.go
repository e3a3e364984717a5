package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"FuelPhases/internal/domain/models"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	computations *prometheus.CounterVec
	phases       *prometheus.CounterVec
	cacheResults *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder registered on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		computations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelphases_computations_total",
				Help: "Engine runs by fuel and outcome (ok, short_circuit, malformed, error)",
			},
			[]string{"fuel", "outcome"},
		),
		phases: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelphases_phases_detected_total",
				Help: "Phase intervals emitted by the engine",
			},
			[]string{"fuel", "phase"},
		),
		cacheResults: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelphases_cache_requests_total",
				Help: "Result cache lookups by result",
			},
			[]string{"result"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelphases_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fuelphases_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordComputation counts an engine run.
func (r *Recorder) RecordComputation(fuel, outcome string) {
	r.computations.WithLabelValues(fuel, outcome).Inc()
}

// RecordPhases counts emitted intervals of one phase.
func (r *Recorder) RecordPhases(fuel string, phase models.Phase, n int) {
	r.phases.WithLabelValues(fuel, string(phase)).Add(float64(n))
}

// RecordCacheResult counts a cache hit or miss.
func (r *Recorder) RecordCacheResult(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheResults.WithLabelValues(result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
