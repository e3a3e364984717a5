package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"FuelPhases/internal/domain/models"
	domrepo "FuelPhases/internal/domain/repository"
	"FuelPhases/pkg/util"
)

// columnAliases maps alternative header names onto canonical columns.
var columnAliases = map[string]string{
	"brent_oil_eur": models.ColBenchmarkPrice,
	"region":        models.ColRegion,
	"plz3":          models.ColRegion,
}

// CSVObservationStore reads observations from a CSV file with a header row.
// Fuel and region filtering is left to the engine; the date range is applied here.
type CSVObservationStore struct {
	path string
}

var _ domrepo.ObservationStore = (*CSVObservationStore)(nil)

func NewCSVObservationStore(path string) *CSVObservationStore {
	return &CSVObservationStore{path: path}
}

func (s *CSVObservationStore) LoadObservations(ctx context.Context, q domrepo.ObservationQuery) (*models.Table, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	t, err := ReadObservationsCSV(f)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if q.From.IsZero() && q.To.IsZero() {
		return t, nil
	}
	rows := t.Rows[:0]
	for _, r := range t.Rows {
		if r.Date.IsZero() || util.InRange(r.Date, q.From, q.To) {
			rows = append(rows, r)
		}
	}
	t.Rows = rows
	return t, nil
}

// ReadObservationsCSV parses an observation table. Columns reports exactly the
// recognised headers present; values that cannot be parsed yield an *models.InputError.
func ReadObservationsCSV(r io.Reader) (*models.Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, models.NewColumnError("header", "empty csv")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	idx := make(map[string]int, len(header))
	cols := make([]string, 0, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if alias, ok := columnAliases[name]; ok {
			name = alias
		}
		if _, dup := idx[name]; dup {
			continue
		}
		idx[name] = i
		cols = append(cols, name)
	}

	t := &models.Table{Columns: cols}
	for row := 0; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", row, err)
		}

		get := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		o := models.Observation{
			Fuel:      strings.ToLower(get(models.ColFuel)),
			Region:    get(models.ColRegion),
			PriceMean: math.NaN(),
		}
		if v := get(models.ColDate); v != "" {
			d, ok := util.ParseDate(v)
			if !ok {
				return nil, &models.InputError{Field: models.ColDate, Row: row, Reason: fmt.Sprintf("unparseable date %q", v)}
			}
			o.Date = d
		}
		if v := get(models.ColPriceMean); v != "" {
			f, err := parseFloat(v)
			if err != nil {
				return nil, &models.InputError{Field: models.ColPriceMean, Row: row, Reason: err.Error()}
			}
			o.PriceMean = f
		}
		if o.PriceStd, err = optionalFloat(get(models.ColPriceStd)); err != nil {
			return nil, &models.InputError{Field: models.ColPriceStd, Row: row, Reason: err.Error()}
		}
		if o.BenchmarkPrice, err = optionalFloat(get(models.ColBenchmarkPrice)); err != nil {
			return nil, &models.InputError{Field: models.ColBenchmarkPrice, Row: row, Reason: err.Error()}
		}
		t.Rows = append(t.Rows, o)
	}
	return t, nil
}

func optionalFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	f, err := parseFloat(s)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(f) {
		return nil, nil
	}
	return &f, nil
}

func parseFloat(s string) (float64, error) {
	switch strings.ToLower(s) {
	case "nan", "na", "null":
		return math.NaN(), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable number %q", s)
	}
	return f, nil
}
