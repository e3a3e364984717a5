package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"FuelPhases/internal/domain/models"
	domrepo "FuelPhases/internal/domain/repository"
	applogger "FuelPhases/pkg/logger"
	"FuelPhases/pkg/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// PrecomputeLockKey guards every precompute run regardless of the fuels it covers.
const PrecomputeLockKey = "lock:precompute"

// ErrPrecomputeRunning is returned when another run holds the precompute lock.
var ErrPrecomputeRunning = errors.New("precompute already running")

// Locker is a best-effort distributed lock.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// Notifier receives computed events, e.g. a websocket hub.
type Notifier interface {
	Notify(ev *models.PhaseComputed)
}

// PrecomputeConfig controls a precompute run.
type PrecomputeConfig struct {
	OutputDir string        // where market_phases_<fuel>.json files land; empty skips files
	Timeout   time.Duration // per-fuel budget
	LockTTL   time.Duration
}

// FuelResult reports one fuel of a precompute run.
type FuelResult struct {
	Fuel   string `json:"fuel"`
	File   string `json:"file,omitempty"`
	NDays  int    `json:"n_days"`
	Phases int    `json:"phases"`
	Error  string `json:"error,omitempty"`
}

// PrecomputeSummary is returned by Run.
type PrecomputeSummary struct {
	StartedAt time.Time    `json:"started_at"`
	Duration  string       `json:"duration"`
	Results   []FuelResult `json:"results"`
}

// Failed counts fuels that did not complete.
func (s *PrecomputeSummary) Failed() int {
	n := 0
	for _, r := range s.Results {
		if r.Error != "" {
			n++
		}
	}
	return n
}

// PrecomputeUseCase computes Germany-wide results for several fuels in parallel,
// writes them to disk, warms the cache, persists the intervals and announces them.
type PrecomputeUseCase struct {
	phases   *MarketPhasesUseCase
	store    domrepo.PhaseStore
	pub      domrepo.EventPublisher
	locker   Locker
	notifier Notifier
	cfg      PrecomputeConfig
	l        *applogger.Logger
	now      func() time.Time
}

// NewPrecomputeUseCase wires the use case. store, pub and locker may be nil.
func NewPrecomputeUseCase(phases *MarketPhasesUseCase, store domrepo.PhaseStore, pub domrepo.EventPublisher, locker Locker, cfg PrecomputeConfig) *PrecomputeUseCase {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	return &PrecomputeUseCase{
		phases: phases,
		store:  store,
		pub:    pub,
		locker: locker,
		cfg:    cfg,
		now:    time.Now,
	}
}

// SetLogger injects a structured logger.
func (u *PrecomputeUseCase) SetLogger(l *applogger.Logger) { u.l = l }

// SetNotifier attaches a live subscriber for computed events.
func (u *PrecomputeUseCase) SetNotifier(n Notifier) { u.notifier = n }

// Run precomputes fuels (all supported fuels when empty). A failing fuel is
// reported in the summary and does not stop the others.
func (u *PrecomputeUseCase) Run(ctx context.Context, fuels []string) (*PrecomputeSummary, error) {
	if len(fuels) == 0 {
		fuels = models.Fuels()
	}
	for _, f := range fuels {
		if !knownFuel(f) {
			return nil, fmt.Errorf("unknown fuel %q", f)
		}
	}

	ctx, span := tracing.Start(ctx, "precompute.run", attribute.StringSlice("fuels", fuels))
	defer span.End()

	if u.locker != nil {
		ok, err := u.locker.TryLock(ctx, PrecomputeLockKey, u.cfg.LockTTL)
		if err != nil {
			return nil, fmt.Errorf("precompute lock: %w", err)
		}
		if !ok {
			return nil, ErrPrecomputeRunning
		}
		defer func() {
			if err := u.locker.Unlock(context.WithoutCancel(ctx), PrecomputeLockKey); err != nil && u.l != nil {
				u.l.Warn("precompute unlock failed", applogger.Error(err))
			}
		}()
	}

	if u.cfg.OutputDir != "" {
		if err := os.MkdirAll(u.cfg.OutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	start := u.now()
	summary := &PrecomputeSummary{StartedAt: start.UTC(), Results: make([]FuelResult, len(fuels))}

	// Fuel failures land in the summary; only cancellation of the run aborts it.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(fuels))
	for i, fuel := range fuels {
		g.Go(func() error {
			summary.Results[i] = u.runFuel(gctx, fuel)
			return ctx.Err()
		})
	}
	err := g.Wait()

	summary.Duration = u.now().Sub(start).String()
	if err != nil {
		return summary, fmt.Errorf("precompute cancelled: %w", err)
	}
	if u.l != nil {
		u.l.Info("precompute finished",
			applogger.Strings("fuels", fuels),
			applogger.Int("failed", summary.Failed()),
			applogger.String("duration", summary.Duration),
		)
	}
	return summary, nil
}

func (u *PrecomputeUseCase) runFuel(ctx context.Context, fuel string) FuelResult {
	out := FuelResult{Fuel: fuel}
	if u.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.cfg.Timeout)
		defer cancel()
	}

	res, err := u.phases.Refresh(ctx, Query{Fuel: fuel})
	if err != nil {
		out.Error = err.Error()
		if u.l != nil {
			u.l.Error("precompute fuel failed", applogger.String("fuel", fuel), applogger.Error(err))
		}
		return out
	}
	out.NDays = res.Meta.NDays
	out.Phases = len(res.Phases)

	if u.cfg.OutputDir != "" {
		path := filepath.Join(u.cfg.OutputDir, ResultFileName(fuel))
		if err := writeJSONFile(path, res); err != nil {
			out.Error = err.Error()
			if u.l != nil {
				u.l.Error("precompute write failed", applogger.String("file", path), applogger.Error(err))
			}
			return out
		}
		out.File = path
	}

	if u.store != nil {
		if err := u.store.StoreBatch(ctx, fuel, "", res.Phases); err != nil && u.l != nil {
			u.l.Warn("persist phases failed", applogger.String("fuel", fuel), applogger.Error(err))
		}
	}

	ev := NewComputedEvent(fuel, "", res, u.now())
	if u.pub != nil {
		if err := u.pub.PublishComputed(ctx, ev); err != nil && u.l != nil {
			u.l.Warn("publish computed failed", applogger.String("fuel", fuel), applogger.Error(err))
		}
	}
	if u.notifier != nil {
		u.notifier.Notify(ev)
	}
	return out
}

// ResultFileName is the per-fuel result file name.
func ResultFileName(fuel string) string {
	return "market_phases_" + fuel + ".json"
}

// NewComputedEvent describes a finished computation.
func NewComputedEvent(fuel, region string, res *models.MarketPhases, at time.Time) *models.PhaseComputed {
	phases := res.Phases
	if phases == nil {
		phases = []models.PhaseInterval{}
	}
	return &models.PhaseComputed{
		ID:         uuid.NewString(),
		Fuel:       fuel,
		Region:     region,
		ComputedAt: at.UTC(),
		NDays:      res.Meta.NDays,
		Phases:     phases,
		Error:      res.Meta.Error,
	}
}

func writeJSONFile(path string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

func knownFuel(f string) bool {
	for _, k := range models.Fuels() {
		if f == k {
			return true
		}
	}
	return false
}
