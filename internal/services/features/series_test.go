package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogReturnsReconstructPrices(t *testing.T) {
	prices := []float64{1.70, 1.72, 1.69, 1.75, 1.80, 1.78}
	r := LogReturns(prices)
	require.Len(t, r, len(prices))
	assert.True(t, math.IsNaN(r[0]))

	acc := 0.0
	for i := 1; i < len(prices); i++ {
		acc += r[i]
		assert.InDelta(t, prices[i], prices[0]*math.Exp(acc), 1e-12)
	}
}

func TestRollingMeanMinPeriods(t *testing.T) {
	x := []float64{math.NaN(), 1, 2, 3, 4}

	full := RollingMean(x, 3, 3)
	assert.True(t, math.IsNaN(full[0]))
	assert.True(t, math.IsNaN(full[1]))
	assert.True(t, math.IsNaN(full[2]))
	assert.InDelta(t, 2.0, full[3], 1e-12)
	assert.InDelta(t, 3.0, full[4], 1e-12)

	partial := RollingMean([]float64{2, 4, 6, 8}, 3, 1)
	assert.InDelta(t, 2.0, partial[0], 1e-12)
	assert.InDelta(t, 3.0, partial[1], 1e-12)
	assert.InDelta(t, 4.0, partial[2], 1e-12)
	assert.InDelta(t, 6.0, partial[3], 1e-12)
}

func TestRollingStdSample(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	s := RollingStd(x, 3, 3)
	assert.True(t, math.IsNaN(s[1]))
	assert.InDelta(t, 1.0, s[2], 1e-12)
	assert.InDelta(t, 1.0, s[3], 1e-12)
}

func TestZScore(t *testing.T) {
	x := []float64{math.NaN(), 1, -1, 1, -1}
	z := ZScore(x)
	sd := StdDev(x)
	assert.True(t, math.IsNaN(z[0]))
	assert.InDelta(t, 1/sd, z[1], 1e-12)

	flat := ZScore([]float64{math.NaN(), 0, 0, 0})
	assert.Equal(t, []float64{0, 0, 0, 0}, flat)

	single := ZScore([]float64{math.NaN(), 5})
	assert.Equal(t, []float64{0, 0}, single)
}

func TestPercentileLinear(t *testing.T) {
	x := []float64{4, math.NaN(), 1, 3, 2, 5}
	assert.InDelta(t, 4.2, Percentile(x, 0.8), 1e-12)
	assert.InDelta(t, 2.6, Percentile(x, 0.4), 1e-12)
	assert.InDelta(t, 1.0, Percentile(x, 0), 1e-12)
	assert.InDelta(t, 5.0, Percentile(x, 1), 1e-12)
	assert.True(t, math.IsNaN(Percentile([]float64{math.NaN()}, 0.5)))
}

func TestPearson(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	assert.InDelta(t, 1.0, Pearson(x, []float64{2, 4, 6, 8, 10}), 1e-12)
	assert.InDelta(t, -1.0, Pearson(x, []float64{5, 4, 3, 2, 1}), 1e-12)
	assert.True(t, math.IsNaN(Pearson(x, []float64{1, 1, 1, 1, 1})))

	withGaps := Pearson([]float64{math.NaN(), 1, 2, 3}, []float64{9, 2, 4, 6})
	assert.InDelta(t, 1.0, withGaps, 1e-12)
	assert.True(t, math.IsNaN(Pearson([]float64{math.NaN(), 1}, []float64{1, 2})))
}
