package phases

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"FuelPhases/internal/domain/models"
)

func testClassifier() *Classifier {
	return &Classifier{th: DefaultParams().Thresholds(), priceVolHi: 0.02, benchVolLo: 0.01}
}

func TestClassifyAsymmetryIgnoresCorrelation(t *testing.T) {
	got := testClassifier().Classify(DayFeatures{
		PriceZ: 3, BenchmarkZLagged: 0,
		PriceVol: 0.005, BenchmarkVol: 0.005, VolRatio: 1,
		Correlation: 0.95,
	})
	assert.Equal(t, models.PhaseAsymmetry, got)
}

func TestClassifyInternalFactorsByVolRatio(t *testing.T) {
	got := testClassifier().Classify(DayFeatures{
		PriceZ: 0.2, BenchmarkZLagged: 0.2,
		PriceVol: 0.005, BenchmarkVol: 0.002, VolRatio: 2.5,
		Correlation: 0.1,
	})
	assert.Equal(t, models.PhaseInternalFactors, got)
}

func TestClassifyInternalFactorsByPercentiles(t *testing.T) {
	got := testClassifier().Classify(DayFeatures{
		PriceZ: 0, BenchmarkZLagged: 0,
		PriceVol: 0.03, BenchmarkVol: 0.01, VolRatio: 1.5,
		Correlation: math.NaN(),
	})
	assert.Equal(t, models.PhaseInternalFactors, got)
}

func TestClassifyNone(t *testing.T) {
	c := testClassifier()
	cases := map[string]DayFeatures{
		"undefined price vol":     {PriceZ: 5, BenchmarkZLagged: 0, PriceVol: math.NaN(), BenchmarkVol: 0.01},
		"undefined benchmark vol": {PriceZ: 5, BenchmarkZLagged: 0, PriceVol: 0.01, BenchmarkVol: math.NaN()},
		"high correlation":        {PriceZ: 0, BenchmarkZLagged: 0, PriceVol: 0.05, BenchmarkVol: 0.001, VolRatio: 10, Correlation: 0.8},
		"quiet":                   {PriceZ: 0.5, BenchmarkZLagged: 0, PriceVol: 0.005, BenchmarkVol: 0.005, VolRatio: 1, Correlation: 0.2},
		"undefined lagged z":      {PriceZ: 4, BenchmarkZLagged: math.NaN(), PriceVol: 0.005, BenchmarkVol: 0.005, VolRatio: 1, Correlation: 0.9},
	}
	for name, d := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, models.PhaseNone, c.Classify(d))
		})
	}
}

func TestClassifierPercentilesFromSeries(t *testing.T) {
	vp := []float64{math.NaN(), 1, 2, 3, 4, 5}
	vo := []float64{math.NaN(), math.NaN(), 10, 20, 30}
	c := NewClassifier(DefaultParams().Thresholds(), vp, vo)
	assert.InDelta(t, 4.2, c.PriceVolHigh(), 1e-12)
	assert.InDelta(t, 18.0, c.BenchmarkVolLow(), 1e-12)
}
