package phases

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FuelPhases/internal/domain/models"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func table(rows []models.Observation) *models.Table {
	return &models.Table{Columns: models.FullColumns(), Rows: rows}
}

// series builds n daily rows for fuel e10 where the benchmark follows a random
// walk and the pump price follows it with the given lag.
func series(n, lag int, withBenchmark bool) []models.Observation {
	rng := rand.New(rand.NewSource(42))
	benchRet := make([]float64, n)
	for i := range benchRet {
		benchRet[i] = 0.02 * rng.NormFloat64()
	}
	rows := make([]models.Observation, n)
	bench, price := 80.0, 1.75
	for i := 0; i < n; i++ {
		if i > 0 {
			bench *= math.Exp(benchRet[i])
			if i > lag {
				price *= math.Exp(0.5 * benchRet[i-lag])
			} else {
				price *= math.Exp(0.001 * rng.NormFloat64())
			}
		}
		rows[i] = models.Observation{
			Date:      start.AddDate(0, 0, i),
			Fuel:      models.FuelE10,
			Region:    "101",
			PriceMean: price,
			PriceStd:  models.Float64Ptr(0.03),
		}
		if withBenchmark {
			rows[i].BenchmarkPrice = models.Float64Ptr(bench)
		}
	}
	return rows
}

func TestCalculateInsufficientData(t *testing.T) {
	res, err := NewEngine().Calculate(table(series(13, 0, true)), models.FuelE10, "")
	require.NoError(t, err)
	assert.Empty(t, res.Phases)
	assert.NotNil(t, res.Phases)
	assert.Len(t, res.Timeseries, 13)
	assert.False(t, res.Meta.OilAvailable)
	assert.Equal(t, "fewer than 14 days of data", res.Meta.Error)
}

func TestCalculateMissingBenchmark(t *testing.T) {
	res, err := NewEngine().Calculate(table(series(20, 0, false)), models.FuelE10, "")
	require.NoError(t, err)
	assert.Empty(t, res.Phases)
	assert.Len(t, res.Timeseries, 20)
	assert.False(t, res.Meta.OilAvailable)
	assert.Equal(t, MsgNoBenchmark, res.Meta.Error)
}

func TestCalculateUnknownFuelIsInsufficient(t *testing.T) {
	res, err := NewEngine().Calculate(table(series(40, 0, true)), models.FuelDiesel, "")
	require.NoError(t, err)
	assert.Empty(t, res.Timeseries)
	assert.NotNil(t, res.Timeseries)
	assert.False(t, res.Meta.OilAvailable)
}

func TestCalculateMalformedInput(t *testing.T) {
	e := NewEngine()
	rows := series(20, 0, true)

	_, err := e.Calculate(&models.Table{Columns: []string{models.ColDate, models.ColFuel}, Rows: rows}, models.FuelE10, "")
	assert.True(t, errors.Is(err, models.ErrMalformedInput))

	_, err = e.Calculate(table(rows), "", "")
	assert.True(t, errors.Is(err, models.ErrMalformedInput))

	_, err = e.Calculate(&models.Table{Columns: []string{models.ColDate, models.ColFuel, models.ColPriceMean}, Rows: rows}, models.FuelE10, "101")
	assert.True(t, errors.Is(err, models.ErrMalformedInput))

	bad := series(20, 0, true)
	bad[5].PriceMean = math.NaN()
	_, err = e.Calculate(table(bad), models.FuelE10, "")
	var ie *models.InputError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, 5, ie.Row)
	assert.Equal(t, models.ColPriceMean, ie.Field)

	_, err = e.Calculate(nil, models.FuelE10, "")
	assert.True(t, errors.Is(err, models.ErrMalformedInput))
}

func TestAggregateByDate(t *testing.T) {
	d := start
	rows := []models.Observation{
		{Date: d.Add(2 * time.Hour), Fuel: "e10", Region: "101", PriceMean: 1.70, PriceStd: models.Float64Ptr(0.02)},
		{Date: d, Fuel: "e10", Region: "102", PriceMean: 1.80, BenchmarkPrice: models.Float64Ptr(75)},
		{Date: d, Fuel: "e10", Region: "103", PriceMean: 1.90, PriceStd: models.Float64Ptr(0.04), BenchmarkPrice: models.Float64Ptr(76)},
		{Date: d.AddDate(0, 0, -1), Fuel: "e10", Region: "101", PriceMean: 1.60},
		{Date: d, Fuel: "e5", Region: "101", PriceMean: 9.99},
	}
	daily := Aggregate(rows, "e10", "")
	require.Len(t, daily, 2)
	assert.Equal(t, d.AddDate(0, 0, -1), daily[0].Date)
	assert.True(t, math.IsNaN(daily[0].PriceStd))
	assert.True(t, math.IsNaN(daily[0].BenchmarkPrice))
	assert.Equal(t, d, daily[1].Date)
	assert.InDelta(t, 1.80, daily[1].PriceMean, 1e-12)
	assert.InDelta(t, 0.03, daily[1].PriceStd, 1e-12)
	assert.Equal(t, 75.0, daily[1].BenchmarkPrice)

	region := Aggregate(rows, "e10", "103")
	require.Len(t, region, 1)
	assert.InDelta(t, 1.90, region[0].PriceMean, 1e-12)
}

func TestCalculateFullPipeline(t *testing.T) {
	const n, lag = 120, 2
	res, err := NewEngine().Calculate(table(series(n, lag, true)), models.FuelE10, "")
	require.NoError(t, err)

	require.Len(t, res.Timeseries, n)
	assert.True(t, res.Meta.OilAvailable)
	assert.Equal(t, n, res.Meta.NDays)
	require.NotNil(t, res.Meta.VpPercentile80)
	require.NotNil(t, res.Meta.VoPercentile40)

	for i := 1; i < n; i++ {
		assert.Less(t, res.Timeseries[i-1].Date, res.Timeseries[i].Date)
	}
	for i := 0; i < 21; i++ {
		assert.Nil(t, res.Timeseries[i].BestLag, "row %d", i)
		assert.Nil(t, res.Timeseries[i].BestCorrelation, "row %d", i)
	}
	for i := 0; i < 14; i++ {
		assert.Nil(t, res.Timeseries[i].PriceVol, "row %d", i)
		assert.Equal(t, models.PhaseNone, res.Timeseries[i].Phase)
	}

	// Benchmark z-scores exist from row 7, so at row i only lags up to i-20
	// have a fully populated window.
	for i := 21; i < 28; i++ {
		pt := res.Timeseries[i]
		if pt.BestLag != nil {
			assert.LessOrEqual(t, *pt.BestLag, i-20, "row %d", i)
		}
	}

	// Once the smoothing windows are past the lag warm-up the lag is recovered.
	for i := 40; i < n; i++ {
		pt := res.Timeseries[i]
		require.NotNil(t, pt.BestLag)
		assert.Equal(t, lag, *pt.BestLag, "row %d", i)
		assert.InDelta(t, 1.0, *pt.BestCorrelation, 1e-6)
	}

	prev := time.Time{}
	for _, p := range res.Phases {
		assert.NotEqual(t, models.PhaseNone, p.Phase)
		assert.GreaterOrEqual(t, p.DurationDays, 5)
		assert.True(t, p.StartDate.After(prev))
		assert.False(t, p.EndDate.Before(p.StartDate))
		prev = p.EndDate
	}
}

func TestCalculateDetectsDecoupledPrice(t *testing.T) {
	rows := series(120, 1, true)
	// Pump prices climb on their own for three weeks while the benchmark keeps walking.
	rng := rand.New(rand.NewSource(3))
	steps := make([]float64, len(rows))
	for i := 1; i < len(rows); i++ {
		steps[i] = rows[i].PriceMean / rows[i-1].PriceMean
		if i >= 60 && i < 81 {
			steps[i] = math.Exp(0.04 + 0.01*rng.NormFloat64())
		}
	}
	for i := 60; i < len(rows); i++ {
		rows[i].PriceMean = rows[i-1].PriceMean * steps[i]
	}
	res, err := NewEngine().Calculate(table(rows), models.FuelE10, "")
	require.NoError(t, err)

	labelled := 0
	for _, pt := range res.Timeseries[60:81] {
		if pt.Phase != models.PhaseNone {
			labelled++
		}
	}
	assert.Greater(t, labelled, 0)
}

func TestMarketPhasesJSONShape(t *testing.T) {
	res, err := NewEngine().Calculate(table(series(30, 1, true)), models.FuelE10, "")
	require.NoError(t, err)
	b, err := json.Marshal(res)
	require.NoError(t, err)

	var top map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &top))
	assert.Len(t, top, 3)
	assert.Contains(t, top, "timeseries")
	assert.Contains(t, top, "phases")
	assert.Contains(t, top, "meta")

	var points []map[string]interface{}
	require.NoError(t, json.Unmarshal(top["timeseries"], &points))
	require.Len(t, points, 30)
	assert.Equal(t, "2024-01-01", points[0]["date"])
	assert.Contains(t, points[0], "best_lag")
	assert.Nil(t, points[0]["best_lag"])
	assert.Nil(t, points[0]["price_vol"])

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(top["meta"], &meta))
	assert.Equal(t, true, meta["oil_available"])
	assert.EqualValues(t, 30, meta["n_days"])
	assert.NotContains(t, meta, "error")

	short, err := NewEngine().Calculate(table(series(5, 1, true)), models.FuelE10, "")
	require.NoError(t, err)
	b, err = json.Marshal(short.Meta)
	require.NoError(t, err)
	assert.JSONEq(t, `{"oil_available":false,"error":"fewer than 14 days of data"}`, string(b))

	var back models.MarketPhases
	require.NoError(t, json.Unmarshal(mustJSON(t, res), &back))
	assert.Equal(t, res.Meta.NDays, back.Meta.NDays)
	assert.Equal(t, len(res.Phases), len(back.Phases))
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestCalculateToleratesCalendarGaps(t *testing.T) {
	all := series(80, 2, true)
	rows := make([]models.Observation, 0, len(all))
	for i, r := range all {
		if i%5 == 4 {
			continue
		}
		rows = append(rows, r)
	}

	res, err := NewEngine().Calculate(table(rows), models.FuelE10, "")
	require.NoError(t, err)
	require.Len(t, res.Timeseries, len(rows))
	assert.Len(t, res.Timeseries, 64)
	assert.True(t, res.Meta.OilAvailable)
	assert.Equal(t, 64, res.Meta.NDays)
	for i := 1; i < len(res.Timeseries); i++ {
		assert.Less(t, res.Timeseries[i-1].Date, res.Timeseries[i].Date)
	}
	// Windows run over rows, so volatility appears after 14 rows, not 14 calendar days.
	assert.Nil(t, res.Timeseries[13].PriceVol)
	assert.NotNil(t, res.Timeseries[14].PriceVol)
	for _, p := range res.Phases {
		span := int(p.EndDate.Sub(p.StartDate).Hours()/24) + 1
		assert.LessOrEqual(t, p.DurationDays, span)
	}
}
