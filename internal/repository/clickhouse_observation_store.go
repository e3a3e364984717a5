package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FuelPhases/internal/domain/models"
	domrepo "FuelPhases/internal/domain/repository"
	pkgch "FuelPhases/pkg/clickhouse"
	applogger "FuelPhases/pkg/logger"
)

// CHObservationStore implements ObservationStore backed by ClickHouse.
type CHObservationStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

var _ domrepo.ObservationStore = (*CHObservationStore)(nil)

// NewCHObservationStore reads observations from <database>.<table>.
func NewCHObservationStore(ch *pkgch.Client, table string) *CHObservationStore {
	return &CHObservationStore{db: ch.DB(), table: ch.Database() + "." + table}
}

// SetLogger injects a structured logger.
func (s *CHObservationStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHObservationStore) LoadObservations(ctx context.Context, q domrepo.ObservationQuery) (*models.Table, error) {
	start := time.Now()
	query, args := buildObservationQuery(s.table, q)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logErr("clickhouse load_observations query error", q, err)
		return nil, fmt.Errorf("load observations: %w", err)
	}
	defer rows.Close()

	out := make([]models.Observation, 0, 1024)
	for rows.Next() {
		var (
			o          models.Observation
			std, bench sql.NullFloat64
		)
		if err := rows.Scan(&o.Date, &o.Fuel, &o.Region, &o.PriceMean, &std, &bench); err != nil {
			s.logErr("clickhouse load_observations scan error", q, err)
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		o.Date = o.Date.UTC()
		if std.Valid {
			o.PriceStd = models.Float64Ptr(std.Float64)
		}
		if bench.Valid {
			o.BenchmarkPrice = models.Float64Ptr(bench.Float64)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		s.logErr("clickhouse load_observations rows error", q, err)
		return nil, fmt.Errorf("rows: %w", err)
	}

	if s.l != nil {
		s.l.Info("clickhouse load_observations ok",
			applogger.String("table", s.table),
			applogger.String("fuel", q.Fuel),
			applogger.String("region", q.Region),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return &models.Table{Columns: models.FullColumns(), Rows: out}, nil
}

func (s *CHObservationStore) logErr(msg string, q domrepo.ObservationQuery, err error) {
	if s.l == nil {
		return
	}
	s.l.Error(msg,
		applogger.String("table", s.table),
		applogger.String("fuel", q.Fuel),
		applogger.String("region", q.Region),
		applogger.Error(err),
	)
}

func buildObservationQuery(table string, q domrepo.ObservationQuery) (string, []interface{}) {
	where := []string{"fuel = ?"}
	args := []interface{}{q.Fuel}
	if q.Region != "" {
		where = append(where, "region_plz3 = ?")
		args = append(args, q.Region)
	}
	if !q.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, q.From)
	}
	if !q.To.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, q.To)
	}

	query := fmt.Sprintf(`
        SELECT date, fuel, region_plz3, price_mean, price_std, benchmark_price
        FROM %s FINAL
        WHERE %s
        ORDER BY date ASC, region_plz3 ASC`, table, strings.Join(where, " AND "))
	return query, args
}
