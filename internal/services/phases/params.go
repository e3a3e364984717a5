package phases

// Params holds every tunable of the engine.
type Params struct {
	SmoothWindow int // trailing mean window for returns
	VolWindow    int // trailing std window for volatility
	CorrWindow   int // lag-correlation window
	MaxLag       int // largest benchmark lag scanned
	MinRows      int // fewer aggregated rows short-circuit the engine
	MAWindow     int // display moving average window

	AsymmetryThreshold     float64
	CorrelationThreshold   float64
	VolRatioThreshold      float64
	PriceVolPercentile     float64
	BenchmarkVolPercentile float64
	VolEpsilon             float64

	MaxGapDays      int
	MinDurationDays int
}

// DefaultParams returns the calibrated defaults.
func DefaultParams() Params {
	return Params{
		SmoothWindow:           7,
		VolWindow:              14,
		CorrWindow:             14,
		MaxLag:                 7,
		MinRows:                14,
		MAWindow:               7,
		AsymmetryThreshold:     1.3,
		CorrelationThreshold:   0.5,
		VolRatioThreshold:      2.0,
		PriceVolPercentile:     0.8,
		BenchmarkVolPercentile: 0.4,
		VolEpsilon:             1e-4,
		MaxGapDays:             2,
		MinDurationDays:        5,
	}
}

// Thresholds extracts the classifier thresholds.
func (p Params) Thresholds() Thresholds {
	return Thresholds{
		Asymmetry:              p.AsymmetryThreshold,
		Correlation:            p.CorrelationThreshold,
		VolRatio:               p.VolRatioThreshold,
		PriceVolPercentile:     p.PriceVolPercentile,
		BenchmarkVolPercentile: p.BenchmarkVolPercentile,
	}
}
