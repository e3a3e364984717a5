package phases

import (
	"fmt"
	"math"
	"sort"
	"time"

	"FuelPhases/internal/domain/models"
	"FuelPhases/internal/services/features"
)

// Messages reported in meta.error when the engine short-circuits.
const (
	MsgInsufficientData = "fewer than %d days of data"
	MsgNoBenchmark      = "no benchmark data"
)

// EngineOption customizes an Engine.
type EngineOption func(*Params)

// WithParams replaces every parameter.
func WithParams(p Params) EngineOption {
	return func(dst *Params) { *dst = p }
}

// WithIntervalRules overrides merge gap and minimum duration.
func WithIntervalRules(maxGapDays, minDurationDays int) EngineOption {
	return func(p *Params) {
		p.MaxGapDays = maxGapDays
		p.MinDurationDays = minDurationDays
	}
}

// Engine detects market phases. It is immutable and safe for concurrent use.
type Engine struct {
	p Params
}

func NewEngine(opts ...EngineOption) *Engine {
	p := DefaultParams()
	for _, opt := range opts {
		opt(&p)
	}
	return &Engine{p: p}
}

// Params returns the parameters in use.
func (e *Engine) Params() Params { return e.p }

// Calculate filters the table to fuel (and region when non-empty), aggregates
// it per date and runs the detection pipeline. Too little data or a missing
// benchmark is reported in Meta; only malformed input returns an error.
func (e *Engine) Calculate(table *models.Table, fuel, region string) (*models.MarketPhases, error) {
	if err := validate(table, fuel, region); err != nil {
		return nil, err
	}
	daily := Aggregate(table.Rows, fuel, region)
	n := len(daily)

	price := make([]float64, n)
	bench := make([]float64, n)
	for i, d := range daily {
		price[i] = d.PriceMean
		bench[i] = d.BenchmarkPrice
	}
	ma := features.RollingMean(price, e.p.MAWindow, 1)

	ts := make([]models.TimeseriesPoint, n)
	for i, d := range daily {
		ts[i] = models.TimeseriesPoint{
			Date:           d.Date.Format(models.DateLayout),
			PriceMean:      floatPtr(d.PriceMean),
			PriceStd:       floatPtr(d.PriceStd),
			PriceMA7:       floatPtr(ma[i]),
			BenchmarkPrice: floatPtr(d.BenchmarkPrice),
			Phase:          models.PhaseNone,
		}
	}

	if n < e.p.MinRows {
		return shortCircuit(ts, fmt.Sprintf(MsgInsufficientData, e.p.MinRows)), nil
	}
	if len(features.Defined(bench)) == 0 {
		return shortCircuit(ts, MsgNoBenchmark), nil
	}

	sig := e.signals(price, bench)
	cls := NewClassifier(e.p.Thresholds(), sig.priceVol, sig.benchVol)

	days := make([]DayLabel, n)
	for i := range daily {
		m := sig.matches[i]
		corr, lag := math.NaN(), math.NaN()
		if m.OK {
			corr, lag = m.Correlation, float64(m.Lag)
		}
		phase := cls.Classify(DayFeatures{
			PriceZ:           sig.priceZ[i],
			BenchmarkZLagged: sig.benchZLagged[i],
			PriceVol:         sig.priceVol[i],
			BenchmarkVol:     sig.benchVol[i],
			VolRatio:         sig.volRatio[i],
			Correlation:      corr,
		})
		days[i] = DayLabel{Date: daily[i].Date, Phase: phase, Correlation: corr, Lag: lag, VolRatio: sig.volRatio[i]}

		pt := &ts[i]
		pt.Phase = phase
		pt.PriceVol = floatPtr(sig.priceVol[i])
		pt.BenchmarkVol = floatPtr(sig.benchVol[i])
		pt.VolRatio = floatPtr(sig.volRatio[i])
		if m.OK {
			pt.BestCorrelation = floatPtr(m.Correlation)
			l := m.Lag
			pt.BestLag = &l
		}
	}

	intervals := BuildIntervals(days, e.p.MaxGapDays, e.p.MinDurationDays)
	return &models.MarketPhases{
		Timeseries: ts,
		Phases:     intervals,
		Meta: models.Meta{
			OilAvailable:   true,
			NDays:          n,
			VpPercentile80: floatPtr(cls.PriceVolHigh()),
			VoPercentile40: floatPtr(cls.BenchmarkVolLow()),
		},
	}, nil
}

type signals struct {
	priceZ       []float64
	benchZLagged []float64
	priceVol     []float64
	benchVol     []float64
	volRatio     []float64
	matches      []LagMatch
}

func (e *Engine) signals(price, bench []float64) signals {
	rp := features.LogReturns(price)
	ro := features.LogReturns(bench)

	zp := features.ZScore(features.RollingMean(rp, e.p.SmoothWindow, e.p.SmoothWindow))
	zo := features.ZScore(features.RollingMean(ro, e.p.SmoothWindow, e.p.SmoothWindow))

	vp := features.RollingStd(rp, e.p.VolWindow, e.p.VolWindow)
	vo := features.RollingStd(ro, e.p.VolWindow, e.p.VolWindow)
	ratio := make([]float64, len(vp))
	for i := range vp {
		ratio[i] = vp[i] / (vo[i] + e.p.VolEpsilon)
	}

	matches := BestLagCorrelation(zp, zo, e.p.CorrWindow, e.p.MaxLag)
	return signals{
		priceZ:       zp,
		benchZLagged: LaggedValues(zo, matches),
		priceVol:     vp,
		benchVol:     vo,
		volRatio:     ratio,
		matches:      matches,
	}
}

func shortCircuit(ts []models.TimeseriesPoint, msg string) *models.MarketPhases {
	return &models.MarketPhases{
		Timeseries: ts,
		Phases:     []models.PhaseInterval{},
		Meta:       models.Meta{OilAvailable: false, Error: msg},
	}
}

// Aggregate filters rows to fuel and region (when non-empty) and collapses
// them to one row per calendar date, sorted ascending. Price and dispersion
// are averaged; the benchmark is the first non-null value seen for the date.
func Aggregate(rows []models.Observation, fuel, region string) []models.DailyObservation {
	type agg struct {
		date     time.Time
		sumPrice float64
		nPrice   int
		sumStd   float64
		nStd     int
		bench    float64
	}
	byDate := make(map[int64]*agg)
	order := make([]*agg, 0)
	for _, r := range rows {
		if r.Fuel != fuel || (region != "" && r.Region != region) {
			continue
		}
		key := dayNumber(r.Date)
		a, ok := byDate[key]
		if !ok {
			y, m, d := r.Date.Date()
			a = &agg{date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), bench: math.NaN()}
			byDate[key] = a
			order = append(order, a)
		}
		a.sumPrice += r.PriceMean
		a.nPrice++
		if r.PriceStd != nil && !math.IsNaN(*r.PriceStd) {
			a.sumStd += *r.PriceStd
			a.nStd++
		}
		if math.IsNaN(a.bench) && r.BenchmarkPrice != nil && !math.IsNaN(*r.BenchmarkPrice) {
			a.bench = *r.BenchmarkPrice
		}
	}
	sort.Slice(order, func(i, j int) bool { return order[i].date.Before(order[j].date) })

	out := make([]models.DailyObservation, len(order))
	for i, a := range order {
		std := math.NaN()
		if a.nStd > 0 {
			std = a.sumStd / float64(a.nStd)
		}
		out[i] = models.DailyObservation{
			Date:           a.date,
			PriceMean:      a.sumPrice / float64(a.nPrice),
			PriceStd:       std,
			BenchmarkPrice: a.bench,
		}
	}
	return out
}

func validate(t *models.Table, fuel, region string) error {
	if t == nil {
		return models.NewColumnError("table", "no input table")
	}
	for _, col := range []string{models.ColDate, models.ColFuel, models.ColPriceMean} {
		if !t.HasColumn(col) {
			return models.NewColumnError(col, "required column missing")
		}
	}
	if fuel == "" {
		return models.NewColumnError(models.ColFuel, "fuel selector is empty")
	}
	if region != "" && !t.HasColumn(models.ColRegion) {
		return models.NewColumnError(models.ColRegion, "region filter requires the region column")
	}
	for i, r := range t.Rows {
		if r.Date.IsZero() {
			return &models.InputError{Field: models.ColDate, Row: i, Reason: "missing date"}
		}
		if math.IsNaN(r.PriceMean) || math.IsInf(r.PriceMean, 0) || r.PriceMean <= 0 {
			return &models.InputError{Field: models.ColPriceMean, Row: i, Reason: fmt.Sprintf("invalid price %v", r.PriceMean)}
		}
		if r.PriceStd != nil && math.IsInf(*r.PriceStd, 0) {
			return &models.InputError{Field: models.ColPriceStd, Row: i, Reason: "infinite dispersion"}
		}
		if b := r.BenchmarkPrice; b != nil && !math.IsNaN(*b) && (math.IsInf(*b, 0) || *b <= 0) {
			return &models.InputError{Field: models.ColBenchmarkPrice, Row: i, Reason: fmt.Sprintf("invalid benchmark %v", *b)}
		}
	}
	return nil
}

func floatPtr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
