package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"FuelPhases/internal/domain/models"
)

func TestRecorderCounts(t *testing.T) {
	r := NewWithRegisterer(prometheus.NewRegistry())

	r.RecordComputation("e10", "ok")
	r.RecordComputation("e10", "ok")
	r.RecordPhases("e10", models.PhaseAsymmetry, 3)
	r.RecordCacheResult(true)
	r.RecordCacheResult(false)
	r.RecordCacheResult(false)
	r.RecordError("store")
	r.RecordLatency("engine", 0.01)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.computations.WithLabelValues("e10", "ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.phases.WithLabelValues("e10", "ASYMMETRY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheResults.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.cacheResults.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("store")))
}
