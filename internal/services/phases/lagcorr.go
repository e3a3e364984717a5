package phases

import (
	"math"

	"FuelPhases/internal/services/features"
)

// LagMatch is the lag-correlation result for one position. OK is false when
// the position was not searched or no lag produced a defined correlation.
type LagMatch struct {
	Correlation float64
	Lag         int
	OK          bool
}

// BestLagCorrelation searches, for every position i >= window+maxLag, the lag
// in [0, maxLag] that maximises the Pearson correlation between the trailing
// window of price ending at i and the trailing window of benchmark ending at
// i-lag. Lags are scanned in ascending order and only a strictly greater
// correlation replaces the current best, so ties keep the smaller lag. A lag
// is skipped when either window holds an undefined value.
func BestLagCorrelation(price, benchmark []float64, window, maxLag int) []LagMatch {
	n := len(price)
	out := make([]LagMatch, n)
	if window < 2 || maxLag < 0 || len(benchmark) != n {
		return out
	}
	for i := window + maxLag; i < n; i++ {
		ps := price[i-window+1 : i+1]
		best := LagMatch{Correlation: math.NaN()}
		if !complete(ps) {
			out[i] = best
			continue
		}
		for lag := 0; lag <= maxLag; lag++ {
			start := i - window + 1 - lag
			if start < 0 {
				break
			}
			bs := benchmark[start : i-lag+1]
			if !complete(bs) {
				continue
			}
			rho := features.Pearson(ps, bs)
			if math.IsNaN(rho) {
				continue
			}
			if !best.OK || rho > best.Correlation {
				best = LagMatch{Correlation: rho, Lag: lag, OK: true}
			}
		}
		out[i] = best
	}
	return out
}

func complete(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}

// LaggedValues returns x[i - lag_i] for every matched position, NaN elsewhere.
func LaggedValues(x []float64, matches []LagMatch) []float64 {
	out := features.NaNs(len(x))
	for i, m := range matches {
		if m.OK {
			out[i] = features.At(x, i-m.Lag)
		}
	}
	return out
}
