package phases

import (
	"math"

	"FuelPhases/internal/domain/models"
	"FuelPhases/internal/services/features"
)

// Thresholds configures the classification rule.
type Thresholds struct {
	Asymmetry              float64
	Correlation            float64
	VolRatio               float64
	PriceVolPercentile     float64
	BenchmarkVolPercentile float64
}

// DayFeatures carries the per-day inputs of the classifier. NaN means undefined.
type DayFeatures struct {
	PriceZ           float64
	BenchmarkZLagged float64
	PriceVol         float64
	BenchmarkVol     float64
	VolRatio         float64
	Correlation      float64
}

// Classifier labels days. Volatility percentiles are fixed at construction
// from the whole series.
type Classifier struct {
	th         Thresholds
	priceVolHi float64
	benchVolLo float64
}

// NewClassifier computes the volatility percentiles over the full series.
func NewClassifier(th Thresholds, priceVol, benchmarkVol []float64) *Classifier {
	return &Classifier{
		th:         th,
		priceVolHi: features.Percentile(priceVol, th.PriceVolPercentile),
		benchVolLo: features.Percentile(benchmarkVol, th.BenchmarkVolPercentile),
	}
}

// PriceVolHigh is the upper price volatility percentile.
func (c *Classifier) PriceVolHigh() float64 { return c.priceVolHi }

// BenchmarkVolLow is the lower benchmark volatility percentile.
func (c *Classifier) BenchmarkVolLow() float64 { return c.benchVolLo }

// Classify applies the rules in order; the first match wins.
func (c *Classifier) Classify(d DayFeatures) models.Phase {
	if math.IsNaN(d.PriceVol) || math.IsNaN(d.BenchmarkVol) {
		return models.PhaseNone
	}
	rho := d.Correlation
	if math.IsNaN(rho) {
		rho = 0
	}
	if !math.IsNaN(d.PriceZ) && !math.IsNaN(d.BenchmarkZLagged) &&
		math.Abs(d.PriceZ-d.BenchmarkZLagged) >= c.th.Asymmetry {
		return models.PhaseAsymmetry
	}
	if rho < c.th.Correlation {
		// NaN percentiles never satisfy the comparison.
		quietOil := d.PriceVol >= c.priceVolHi && d.BenchmarkVol <= c.benchVolLo
		if d.VolRatio >= c.th.VolRatio || quietOil {
			return models.PhaseInternalFactors
		}
	}
	return models.PhaseNone
}
