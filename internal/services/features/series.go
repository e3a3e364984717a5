package features

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Series helpers work index by index and use NaN for undefined values.
// Every function returns a new slice of the same length as its input.

// NaNs returns a slice of n NaN values.
func NaNs(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// LogReturns computes r_t = ln(x_t) - ln(x_{t-1}). r_0 is undefined.
func LogReturns(x []float64) []float64 {
	out := NaNs(len(x))
	for i := 1; i < len(x); i++ {
		out[i] = math.Log(x[i]) - math.Log(x[i-1])
	}
	return out
}

// RollingMean is the trailing mean over window samples. A position is defined
// once the window holds at least minPeriods defined values; undefined values
// inside the window are skipped.
func RollingMean(x []float64, window, minPeriods int) []float64 {
	out := NaNs(len(x))
	if window <= 0 {
		return out
	}
	buf := make([]float64, 0, window)
	for i := range x {
		buf = windowValues(buf[:0], x, i, window)
		if len(buf) < minPeriods || len(buf) == 0 {
			continue
		}
		out[i] = stat.Mean(buf, nil)
	}
	return out
}

// RollingStd is the trailing sample standard deviation (n-1 denominator) over
// window samples, with the same minPeriods rule as RollingMean.
func RollingStd(x []float64, window, minPeriods int) []float64 {
	out := NaNs(len(x))
	if window <= 0 {
		return out
	}
	buf := make([]float64, 0, window)
	for i := range x {
		buf = windowValues(buf[:0], x, i, window)
		if len(buf) < minPeriods || len(buf) < 2 {
			continue
		}
		out[i] = stat.StdDev(buf, nil)
	}
	return out
}

func windowValues(dst, x []float64, end, window int) []float64 {
	start := end - window + 1
	if start < 0 {
		start = 0
	}
	for j := start; j <= end; j++ {
		if !math.IsNaN(x[j]) {
			dst = append(dst, x[j])
		}
	}
	return dst
}

// StdDev is the sample standard deviation of the defined values of x,
// NaN when fewer than two are defined.
func StdDev(x []float64) float64 {
	d := Defined(x)
	if len(d) < 2 {
		return math.NaN()
	}
	return stat.StdDev(d, nil)
}

// ZScore divides x by its global sample standard deviation. The series is
// not centred. A zero or undefined deviation yields all zeros.
func ZScore(x []float64) []float64 {
	sd := StdDev(x)
	out := make([]float64, len(x))
	if sd == 0 || math.IsNaN(sd) {
		return out
	}
	for i, v := range x {
		out[i] = v / sd
	}
	return out
}

// Defined returns the non-NaN values of x in order.
func Defined(x []float64) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Percentile returns the p-quantile (0 <= p <= 1) of the defined values of x,
// interpolating linearly between order statistics at rank p*(n-1).
// NaN when no value is defined.
func Percentile(x []float64, p float64) float64 {
	sorted := Defined(x)
	if len(sorted) == 0 {
		return math.NaN()
	}
	sort.Float64s(sorted)
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := p * float64(len(sorted)-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[lower]
	}
	frac := idx - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// Pearson correlates x and y over the positions where both are defined.
// NaN when fewer than two complete pairs exist or either side is constant.
func Pearson(x, y []float64) float64 {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	xs := make([]float64, 0, n)
	ys := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	if constant(xs) || constant(ys) {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}

func constant(x []float64) bool {
	for _, v := range x[1:] {
		if v != x[0] {
			return false
		}
	}
	return true
}

// At returns x[i] or NaN when i is out of range.
func At(x []float64, i int) float64 {
	if i < 0 || i >= len(x) {
		return math.NaN()
	}
	return x[i]
}
