package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"FuelPhases/internal/domain/models"
	domrepo "FuelPhases/internal/domain/repository"
	pkgch "FuelPhases/pkg/clickhouse"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockClient(t *testing.T) (*pkgch.Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return pkgch.NewClientFromDB(db, "fuelphases"), mock
}

func day(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

func TestCHObservationStoreLoad(t *testing.T) {
	ch, mock := newMockClient(t)
	store := NewCHObservationStore(ch, "daily_prices")

	rows := sqlmock.NewRows([]string{"date", "fuel", "region_plz3", "price_mean", "price_std", "benchmark_price"}).
		AddRow(day("2024-01-01"), "e10", "101", 1.75, 0.02, 70.1).
		AddRow(day("2024-01-02"), "e10", "101", 1.76, nil, nil)

	mock.ExpectQuery(regexp.QuoteMeta("FROM fuelphases.daily_prices FINAL")).
		WithArgs("e10", "101", day("2024-01-01"), day("2024-01-31")).
		WillReturnRows(rows)

	tbl, err := store.LoadObservations(context.Background(), domrepo.ObservationQuery{
		Fuel:   "e10",
		Region: "101",
		From:   day("2024-01-01"),
		To:     day("2024-01-31"),
	})
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, models.FullColumns(), tbl.Columns)
	assert.Equal(t, 1.75, tbl.Rows[0].PriceMean)
	require.NotNil(t, tbl.Rows[0].BenchmarkPrice)
	assert.Equal(t, 70.1, *tbl.Rows[0].BenchmarkPrice)
	assert.Nil(t, tbl.Rows[1].PriceStd)
	assert.Nil(t, tbl.Rows[1].BenchmarkPrice)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCHObservationStoreQueryError(t *testing.T) {
	ch, mock := newMockClient(t)
	store := NewCHObservationStore(ch, "daily_prices")

	mock.ExpectQuery("SELECT").WithArgs("diesel").WillReturnError(errors.New("connection refused"))

	_, err := store.LoadObservations(context.Background(), domrepo.ObservationQuery{Fuel: "diesel"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load observations")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildObservationQueryOpenRange(t *testing.T) {
	q, args := buildObservationQuery("db.t", domrepo.ObservationQuery{Fuel: "e5"})
	assert.Contains(t, q, "WHERE fuel = ?\n")
	assert.NotContains(t, q, "region_plz3 = ?")
	assert.Equal(t, []interface{}{"e5"}, args)
}

func TestCHPhaseStoreStoreBatch(t *testing.T) {
	ch, mock := newMockClient(t)
	store := NewCHPhaseStore(ch, "phase_intervals", nil)
	at := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return at }

	phases := []models.PhaseInterval{
		{Phase: models.PhaseAsymmetry, StartDate: day("2024-01-03"), EndDate: day("2024-01-09"), DurationDays: 7, AvgCorrelation: 0.4, AvgLag: 2, AvgVolRatio: 1.1},
		{Phase: models.PhaseInternalFactors, StartDate: day("2024-01-15"), EndDate: day("2024-01-20"), DurationDays: 6, AvgCorrelation: 0.1, AvgLag: 3, AvgVolRatio: 2.5},
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO fuelphases.phase_intervals")).
		WithArgs(
			at, "e10", "", "ASYMMETRY", day("2024-01-03"), day("2024-01-09"), uint32(7), 0.4, 2.0, 1.1,
			at, "e10", "", "INTERNAL_FACTORS", day("2024-01-15"), day("2024-01-20"), uint32(6), 0.1, 3.0, 2.5,
		).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, store.StoreBatch(context.Background(), "e10", "", phases))
	require.NoError(t, store.StoreBatch(context.Background(), "e10", "", nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCHPhaseStoreQuery(t *testing.T) {
	ch, mock := newMockClient(t)
	store := NewCHPhaseStore(ch, "phase_intervals", nil)

	mock.ExpectQuery(regexp.QuoteMeta("max(computed_at)")).
		WithArgs("diesel", "", "diesel", "").
		WillReturnRows(sqlmock.NewRows([]string{"phase", "start_date", "end_date", "duration_days", "avg_correlation", "avg_lag", "avg_vol_ratio"}).
			AddRow("ASYMMETRY", day("2024-03-01"), day("2024-03-08"), uint32(8), 0.2, 1.5, 0.9))

	got, err := store.Query(context.Background(), "diesel", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.PhaseAsymmetry, got[0].Phase)
	assert.Equal(t, 8, got[0].DurationDays)

	mock.ExpectQuery("SELECT").WithArgs("e5", "", "e5", "").
		WillReturnRows(sqlmock.NewRows([]string{"phase", "start_date", "end_date", "duration_days", "avg_correlation", "avg_lag", "avg_vol_ratio"}))
	_, err = store.Query(context.Background(), "e5", "")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCHPhaseStoreInitRunsSchema(t *testing.T) {
	ch, mock := newMockClient(t)
	store := NewCHPhaseStore(ch, "phase_intervals", pkgch.Schema("fuelphases", "daily_prices", "phase_intervals"))

	mock.ExpectExec("CREATE DATABASE IF NOT EXISTS fuelphases").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS fuelphases.daily_prices")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS fuelphases.phase_intervals")).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Init(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
