package models

import (
	"encoding/json"
	"time"
)

// Phase labels a day (or an interval of days) with a market regime.
type Phase string

const (
	// PhaseAsymmetry marks days where the pump price departs from the lagged benchmark signal.
	PhaseAsymmetry Phase = "ASYMMETRY"
	// PhaseInternalFactors marks days driven by volatility the benchmark does not explain.
	PhaseInternalFactors Phase = "INTERNAL_FACTORS"
	// PhaseNone marks days without a notable regime.
	PhaseNone Phase = "NONE"
)

// DateLayout is the calendar date format used on the wire.
const DateLayout = "2006-01-02"

// PhaseInterval is a contiguous run of days sharing one phase.
type PhaseInterval struct {
	Phase          Phase     `json:"phase"`
	StartDate      time.Time `json:"-"`
	EndDate        time.Time `json:"-"`
	DurationDays   int       `json:"duration_days"`
	AvgCorrelation float64   `json:"avg_correlation"`
	AvgLag         float64   `json:"avg_lag"`
	AvgVolRatio    float64   `json:"avg_vol_ratio"`
}

// MarshalJSON renders dates as YYYY-MM-DD.
func (p PhaseInterval) MarshalJSON() ([]byte, error) {
	type alias PhaseInterval
	return json.Marshal(struct {
		alias
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}{alias(p), p.StartDate.Format(DateLayout), p.EndDate.Format(DateLayout)})
}

// UnmarshalJSON parses the YYYY-MM-DD dates written by MarshalJSON.
func (p *PhaseInterval) UnmarshalJSON(b []byte) error {
	type alias PhaseInterval
	aux := struct {
		*alias
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	var err error
	if p.StartDate, err = time.Parse(DateLayout, aux.StartDate); err != nil {
		return err
	}
	p.EndDate, err = time.Parse(DateLayout, aux.EndDate)
	return err
}

// TimeseriesPoint is one day of engine output. Nil pointers serialize as null.
type TimeseriesPoint struct {
	Date            string   `json:"date"`
	PriceMean       *float64 `json:"price_mean"`
	PriceStd        *float64 `json:"price_std"`
	PriceMA7        *float64 `json:"price_ma7"`
	BenchmarkPrice  *float64 `json:"benchmark_price"`
	Phase           Phase    `json:"phase"`
	PriceVol        *float64 `json:"price_vol"`
	BenchmarkVol    *float64 `json:"benchmark_vol"`
	VolRatio        *float64 `json:"vol_ratio"`
	BestCorrelation *float64 `json:"best_correlation"`
	BestLag         *int     `json:"best_lag"`
}

// Meta describes the computation. NDays and the percentiles are only
// serialized when OilAvailable is true; Error only when it is false.
type Meta struct {
	OilAvailable   bool
	NDays          int
	VpPercentile80 *float64
	VoPercentile40 *float64
	Error          string
}

type metaAvailable struct {
	OilAvailable   bool     `json:"oil_available"`
	NDays          int      `json:"n_days"`
	VpPercentile80 *float64 `json:"vp_percentile_80"`
	VoPercentile40 *float64 `json:"vo_percentile_40"`
}

type metaUnavailable struct {
	OilAvailable bool   `json:"oil_available"`
	Error        string `json:"error"`
}

// MarshalJSON emits the field set matching OilAvailable.
func (m Meta) MarshalJSON() ([]byte, error) {
	if m.OilAvailable {
		return json.Marshal(metaAvailable{true, m.NDays, m.VpPercentile80, m.VoPercentile40})
	}
	return json.Marshal(metaUnavailable{false, m.Error})
}

// UnmarshalJSON accepts either field set.
func (m *Meta) UnmarshalJSON(b []byte) error {
	var aux struct {
		OilAvailable   bool     `json:"oil_available"`
		NDays          int      `json:"n_days"`
		VpPercentile80 *float64 `json:"vp_percentile_80"`
		VoPercentile40 *float64 `json:"vo_percentile_40"`
		Error          string   `json:"error"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*m = Meta{
		OilAvailable:   aux.OilAvailable,
		NDays:          aux.NDays,
		VpPercentile80: aux.VpPercentile80,
		VoPercentile40: aux.VoPercentile40,
		Error:          aux.Error,
	}
	return nil
}

// MarketPhases is the complete engine result.
type MarketPhases struct {
	Timeseries []TimeseriesPoint `json:"timeseries"`
	Phases     []PhaseInterval   `json:"phases"`
	Meta       Meta              `json:"meta"`
}
