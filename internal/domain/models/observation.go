package models

import "time"

// Column names recognised in observation tables.
const (
	ColDate           = "date"
	ColFuel           = "fuel"
	ColRegion         = "region_plz3"
	ColPriceMean      = "price_mean"
	ColPriceStd       = "price_std"
	ColBenchmarkPrice = "benchmark_price"
)

// Fuel types served by the API and the precompute job.
const (
	FuelE5     = "e5"
	FuelE10    = "e10"
	FuelDiesel = "diesel"
)

// Fuels lists every supported fuel type.
func Fuels() []string { return []string{FuelE5, FuelE10, FuelDiesel} }

// Observation is one raw row: mean pump price of a fuel in a region on a date,
// with the benchmark (crude oil) price for the same date when known.
type Observation struct {
	Date           time.Time
	Fuel           string
	Region         string
	PriceMean      float64
	PriceStd       *float64
	BenchmarkPrice *float64
}

// Table is the tabular engine input. Columns names the columns the source provided.
type Table struct {
	Columns []string
	Rows    []Observation
}

// HasColumn reports whether the source provided the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// FullColumns is the column set of a store that always provides every field.
func FullColumns() []string {
	return []string{ColDate, ColFuel, ColRegion, ColPriceMean, ColPriceStd, ColBenchmarkPrice}
}

// DailyObservation is the per-date aggregate the engine works on.
// PriceStd and BenchmarkPrice are NaN when absent.
type DailyObservation struct {
	Date           time.Time
	PriceMean      float64
	PriceStd       float64
	BenchmarkPrice float64
}

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 { return &v }
