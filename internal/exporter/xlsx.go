package exporter

import (
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"

	"FuelPhases/internal/domain/models"
)

const (
	SheetTimeseries = "Timeseries"
	SheetPhases     = "Phases"
	SheetMeta       = "Meta"
)

var (
	timeseriesHeader = []interface{}{
		"date", "price_mean", "price_std", "price_ma7", "benchmark_price", "phase",
		"price_vol", "benchmark_vol", "vol_ratio", "best_correlation", "best_lag",
	}
	phasesHeader = []interface{}{
		"phase", "start_date", "end_date", "duration_days", "avg_correlation", "avg_lag", "avg_vol_ratio",
	}
)

// WriteXLSX renders res as a workbook with Timeseries, Phases and Meta sheets.
// Undefined numbers become empty cells.
func WriteXLSX(w io.Writer, fuel string, res *models.MarketPhases) error {
	if res == nil {
		return fmt.Errorf("export xlsx: nil result")
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetTimeseries); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeTimeseries(f, res.Timeseries); err != nil {
		return err
	}

	if _, err := f.NewSheet(SheetPhases); err != nil {
		return fmt.Errorf("create sheet %s: %w", SheetPhases, err)
	}
	if err := writePhases(f, res.Phases); err != nil {
		return err
	}

	if _, err := f.NewSheet(SheetMeta); err != nil {
		return fmt.Errorf("create sheet %s: %w", SheetMeta, err)
	}
	if err := writeMeta(f, fuel, res.Meta); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// SaveXLSX writes the workbook to path.
func SaveXLSX(path, fuel string, res *models.MarketPhases) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteXLSX(out, fuel, res); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func writeTimeseries(f *excelize.File, points []models.TimeseriesPoint) error {
	if err := setRow(f, SheetTimeseries, 1, timeseriesHeader); err != nil {
		return err
	}
	for i, p := range points {
		row := []interface{}{
			p.Date, cell(p.PriceMean), cell(p.PriceStd), cell(p.PriceMA7), cell(p.BenchmarkPrice), string(p.Phase),
			cell(p.PriceVol), cell(p.BenchmarkVol), cell(p.VolRatio), cell(p.BestCorrelation), intCell(p.BestLag),
		}
		if err := setRow(f, SheetTimeseries, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writePhases(f *excelize.File, phases []models.PhaseInterval) error {
	if err := setRow(f, SheetPhases, 1, phasesHeader); err != nil {
		return err
	}
	for i, p := range phases {
		row := []interface{}{
			string(p.Phase),
			p.StartDate.Format(models.DateLayout),
			p.EndDate.Format(models.DateLayout),
			p.DurationDays,
			p.AvgCorrelation,
			p.AvgLag,
			p.AvgVolRatio,
		}
		if err := setRow(f, SheetPhases, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeMeta(f *excelize.File, fuel string, m models.Meta) error {
	rows := [][]interface{}{
		{"fuel", fuel},
		{"oil_available", m.OilAvailable},
	}
	if m.OilAvailable {
		rows = append(rows,
			[]interface{}{"n_days", m.NDays},
			[]interface{}{"vp_percentile_80", cell(m.VpPercentile80)},
			[]interface{}{"vo_percentile_40", cell(m.VoPercentile40)},
		)
	} else {
		rows = append(rows, []interface{}{"error", m.Error})
	}
	for i, r := range rows {
		if err := setRow(f, SheetMeta, i+1, r); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	axis, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, axis, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func cell(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func intCell(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
