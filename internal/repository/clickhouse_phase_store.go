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
)

// CHPhaseStore implements PhaseStore for ClickHouse. Every StoreBatch call
// writes one snapshot stamped with computed_at; Query returns the newest one.
type CHPhaseStore struct {
	client *pkgch.Client
	db     *sql.DB
	table  string
	stmts  []string
	now    func() time.Time
}

var _ domrepo.PhaseStore = (*CHPhaseStore)(nil)

// NewCHPhaseStore creates the phase history store. schema is run by Init.
func NewCHPhaseStore(ch *pkgch.Client, table string, schema []string) *CHPhaseStore {
	return &CHPhaseStore{
		client: ch,
		db:     ch.DB(),
		table:  ch.Database() + "." + table,
		stmts:  schema,
		now:    time.Now,
	}
}

func (s *CHPhaseStore) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, s.stmts)
}

func (s *CHPhaseStore) StoreBatch(ctx context.Context, fuel, region string, phases []models.PhaseInterval) error {
	if len(phases) == 0 {
		return nil
	}
	computedAt := s.now().UTC()

	values := make([]string, 0, len(phases))
	args := make([]interface{}, 0, len(phases)*10)
	for _, p := range phases {
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			computedAt,
			fuel,
			region,
			string(p.Phase),
			p.StartDate,
			p.EndDate,
			uint32(p.DurationDays),
			p.AvgCorrelation,
			p.AvgLag,
			p.AvgVolRatio,
		)
	}
	q := fmt.Sprintf("INSERT INTO %s (computed_at, fuel, region_plz3, phase, start_date, end_date, duration_days, avg_correlation, avg_lag, avg_vol_ratio) VALUES %s",
		s.table, strings.Join(values, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("store phases: %w", err)
	}
	return nil
}

func (s *CHPhaseStore) Query(ctx context.Context, fuel, region string) ([]models.PhaseInterval, error) {
	q := fmt.Sprintf(`
        SELECT phase, start_date, end_date, duration_days, avg_correlation, avg_lag, avg_vol_ratio
        FROM %[1]s
        WHERE fuel = ? AND region_plz3 = ?
          AND computed_at = (SELECT max(computed_at) FROM %[1]s WHERE fuel = ? AND region_plz3 = ?)
        ORDER BY start_date ASC`, s.table)
	rows, err := s.db.QueryContext(ctx, q, fuel, region, fuel, region)
	if err != nil {
		return nil, fmt.Errorf("query phases: %w", err)
	}
	defer rows.Close()

	var out []models.PhaseInterval
	for rows.Next() {
		var (
			p     models.PhaseInterval
			phase string
			days  uint32
		)
		if err := rows.Scan(&phase, &p.StartDate, &p.EndDate, &days, &p.AvgCorrelation, &p.AvgLag, &p.AvgVolRatio); err != nil {
			return nil, fmt.Errorf("scan phase: %w", err)
		}
		p.Phase = models.Phase(phase)
		p.DurationDays = int(days)
		p.StartDate = p.StartDate.UTC()
		p.EndDate = p.EndDate.UTC()
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if len(out) == 0 {
		return nil, domrepo.ErrNotFound
	}
	return out, nil
}

func (s *CHPhaseStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHPhaseStore) Close() error {
	return nil // pool is owned by the client
}
