package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"FuelPhases/internal/domain/models"
	domrepo "FuelPhases/internal/domain/repository"
)

type fakeStore struct {
	mu    sync.Mutex
	calls map[string]int
	errs  map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{calls: map[string]int{}, errs: map[string]error{}}
}

func (s *fakeStore) LoadObservations(_ context.Context, q domrepo.ObservationQuery) (*models.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[q.Fuel]++
	if err := s.errs[q.Fuel]; err != nil {
		return nil, err
	}
	return &models.Table{Columns: models.FullColumns(), Rows: []models.Observation{{Fuel: q.Fuel}}}, nil
}

func (s *fakeStore) count(fuel string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[fuel]
}

type fakeEngine struct {
	err error
}

func (e *fakeEngine) Calculate(_ *models.Table, fuel, _ string) (*models.MarketPhases, error) {
	if e.err != nil {
		return nil, e.err
	}
	return &models.MarketPhases{
		Timeseries: []models.TimeseriesPoint{},
		Phases: []models.PhaseInterval{
			{Phase: models.PhaseAsymmetry, StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), EndDate: time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC), DurationDays: 7},
			{Phase: models.PhaseAsymmetry, StartDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), EndDate: time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC), DurationDays: 5},
		},
		Meta: models.Meta{OilAvailable: true, NDays: 60},
	}, nil
}

type memResultCache struct {
	mu          sync.Mutex
	m           map[string]*models.MarketPhases
	invalidated []string
	getErr      error
}

func newMemResultCache() *memResultCache {
	return &memResultCache{m: map[string]*models.MarketPhases{}}
}

func (c *memResultCache) GetResult(_ context.Context, key string) (*models.MarketPhases, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	r, ok := c.m[key]
	return r, ok, nil
}

func (c *memResultCache) SetResult(_ context.Context, key string, res *models.MarketPhases) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = res
	return nil
}

func (c *memResultCache) InvalidateFuel(_ context.Context, fuel string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, fuel)
	for k := range c.m {
		if strings.HasPrefix(k, domrepo.ResultKeyPrefix+":"+fuel+":") {
			delete(c.m, k)
		}
	}
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*models.PhaseComputed
	err    error
}

func (p *fakePublisher) PublishComputed(_ context.Context, ev *models.PhaseComputed) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type fakePhaseStore struct {
	mu      sync.Mutex
	batches map[string][]models.PhaseInterval
}

func (s *fakePhaseStore) Init(context.Context) error { return nil }

func (s *fakePhaseStore) StoreBatch(_ context.Context, fuel, _ string, phases []models.PhaseInterval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batches == nil {
		s.batches = map[string][]models.PhaseInterval{}
	}
	s.batches[fuel] = phases
	return nil
}

func (s *fakePhaseStore) Query(_ context.Context, fuel, _ string) ([]models.PhaseInterval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.batches[fuel]
	if !ok {
		return nil, domrepo.ErrNotFound
	}
	return p, nil
}

func (s *fakePhaseStore) Health(context.Context) error { return nil }
func (s *fakePhaseStore) Close() error                 { return nil }

type fakeMetrics struct {
	mu       sync.Mutex
	outcomes map[string]int
	phases   map[models.Phase]int
	hits     int
	misses   int
	errs     []string
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{outcomes: map[string]int{}, phases: map[models.Phase]int{}}
}

func (m *fakeMetrics) RecordComputation(_ string, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[outcome]++
}

func (m *fakeMetrics) RecordPhases(_ string, phase models.Phase, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phases[phase] += n
}

func (m *fakeMetrics) RecordCacheResult(hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, kind)
}

func (m *fakeMetrics) RecordLatency(string, float64) {}

// fakeLocker holds keys in memory; held blocks every key.
type fakeLocker struct {
	held bool
	err  error
	keys map[string]bool
	seen []string
}

func (l *fakeLocker) TryLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	l.seen = append(l.seen, key)
	if l.err != nil {
		return false, l.err
	}
	if l.held || l.keys[key] {
		return false, nil
	}
	if l.keys == nil {
		l.keys = make(map[string]bool)
	}
	l.keys[key] = true
	return true, nil
}

func (l *fakeLocker) Unlock(_ context.Context, key string) error {
	delete(l.keys, key)
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []*models.PhaseComputed
}

func (n *fakeNotifier) Notify(ev *models.PhaseComputed) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

var errBoom = errors.New("boom")
