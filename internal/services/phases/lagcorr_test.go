package phases

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBestLagCorrelationRecoversShift(t *testing.T) {
	const n, shift = 60, 3
	rng := rand.New(rand.NewSource(7))
	bench := make([]float64, n)
	for i := range bench {
		bench[i] = rng.NormFloat64()
	}
	price := make([]float64, n)
	for i := range price {
		if i >= shift {
			price[i] = 2 * bench[i-shift]
		} else {
			price[i] = rng.NormFloat64()
		}
	}

	matches := BestLagCorrelation(price, bench, 14, 7)
	require.Len(t, matches, n)
	for i := 0; i < 21; i++ {
		assert.False(t, matches[i].OK, "position %d must not be searched", i)
	}
	for i := 21; i < n; i++ {
		require.True(t, matches[i].OK)
		assert.Equal(t, shift, matches[i].Lag, "position %d", i)
		assert.InDelta(t, 1.0, matches[i].Correlation, 1e-9)
	}
}

func TestBestLagCorrelationTieKeepsSmallestLag(t *testing.T) {
	// A constant-slope ramp correlates perfectly at every lag.
	n := 30
	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i)
	}
	matches := BestLagCorrelation(x, x, 14, 7)
	require.True(t, matches[25].OK)
	assert.Equal(t, 0, matches[25].Lag)
}

func TestBestLagCorrelationUndefined(t *testing.T) {
	n := 30
	flat := make([]float64, n)
	ramp := make([]float64, n)
	for i := range ramp {
		ramp[i] = float64(i)
	}
	matches := BestLagCorrelation(ramp, flat, 14, 7)
	for _, m := range matches {
		assert.False(t, m.OK)
	}
}

func TestLaggedValues(t *testing.T) {
	x := []float64{10, 11, 12, 13}
	out := LaggedValues(x, []LagMatch{{}, {}, {Lag: 2, OK: true}, {Lag: 1, OK: true}})
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.Equal(t, 10.0, out[2])
	assert.Equal(t, 12.0, out[3])
}

func TestBestLagCorrelationSkipsIncompleteWindows(t *testing.T) {
	const n, window, maxLag, shift = 12, 5, 3, 3
	rng := rand.New(rand.NewSource(11))
	bench := make([]float64, n)
	for i := range bench {
		bench[i] = rng.NormFloat64()
	}
	price := make([]float64, n)
	for i := range price {
		if i >= shift {
			price[i] = bench[i-shift]
		} else {
			price[i] = rng.NormFloat64()
		}
	}
	// The lag-3 window at position 8 starts at index 1; leaving one hole there
	// would still give a perfect pairwise correlation.
	bench[1] = math.NaN()

	matches := BestLagCorrelation(price, bench, window, maxLag)

	m := matches[8]
	if m.OK {
		assert.NotEqual(t, shift, m.Lag)
		assert.Less(t, m.Correlation, 1-1e-9)
	}
	require.True(t, matches[9].OK)
	assert.Equal(t, shift, matches[9].Lag)
	assert.InDelta(t, 1.0, matches[9].Correlation, 1e-9)
}

func TestBestLagCorrelationIncompletePriceWindow(t *testing.T) {
	n := 30
	x := make([]float64, n)
	for i := range x {
		x[i] = math.Sin(float64(i))
	}
	price := append([]float64(nil), x...)
	price[20] = math.NaN()

	matches := BestLagCorrelation(price, x, 14, 7)
	for i := 21; i < 21+14 && i < n; i++ {
		if i-13 <= 20 {
			assert.False(t, matches[i].OK, "position %d", i)
		}
	}
}
