package exporter

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"FuelPhases/internal/domain/models"
)

func sample() *models.MarketPhases {
	lag := 2
	return &models.MarketPhases{
		Timeseries: []models.TimeseriesPoint{
			{Date: "2024-01-01", PriceMean: models.Float64Ptr(1.75), Phase: models.PhaseNone},
			{Date: "2024-01-02", PriceMean: models.Float64Ptr(1.8), BestLag: &lag, BestCorrelation: models.Float64Ptr(0.5), Phase: models.PhaseAsymmetry},
		},
		Phases: []models.PhaseInterval{{
			Phase:          models.PhaseAsymmetry,
			StartDate:      time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			EndDate:        time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
			DurationDays:   7,
			AvgCorrelation: 0.5,
			AvgLag:         2,
			AvgVolRatio:    1.25,
		}},
		Meta: models.Meta{OilAvailable: true, NDays: 2, VpPercentile80: models.Float64Ptr(0.01)},
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, "e10", sample()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetTimeseries, SheetPhases, SheetMeta}, f.GetSheetList())

	ts, err := f.GetRows(SheetTimeseries)
	require.NoError(t, err)
	require.Len(t, ts, 3)
	assert.Equal(t, "date", ts[0][0])
	assert.Equal(t, "best_lag", ts[0][10])
	assert.Equal(t, "2024-01-01", ts[1][0])
	assert.Equal(t, "1.75", ts[1][1])
	assert.Equal(t, "", ts[1][2])
	assert.Equal(t, "ASYMMETRY", ts[2][5])
	assert.Equal(t, "2", ts[2][10])

	ph, err := f.GetRows(SheetPhases)
	require.NoError(t, err)
	require.Len(t, ph, 2)
	assert.Equal(t, []string{"ASYMMETRY", "2024-01-02", "2024-01-08", "7", "0.5", "2", "1.25"}, ph[1])

	meta, err := f.GetRows(SheetMeta)
	require.NoError(t, err)
	assert.Equal(t, []string{"fuel", "e10"}, meta[0])
	assert.Equal(t, []string{"n_days", "2"}, meta[2])
	assert.Equal(t, []string{"vo_percentile_40"}, meta[4])
}

func TestWriteXLSXUnavailableMeta(t *testing.T) {
	res := &models.MarketPhases{Meta: models.Meta{Error: "no benchmark data"}}
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, SaveXLSX(path, "diesel", res))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	ts, err := f.GetRows(SheetTimeseries)
	require.NoError(t, err)
	assert.Len(t, ts, 1)

	meta, err := f.GetRows(SheetMeta)
	require.NoError(t, err)
	assert.Equal(t, []string{"error", "no benchmark data"}, meta[2])
}

func TestWriteXLSXNilResult(t *testing.T) {
	assert.Error(t, WriteXLSX(&bytes.Buffer{}, "e5", nil))
}
