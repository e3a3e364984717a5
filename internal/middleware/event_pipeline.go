package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FuelPhases/internal/domain/models"
	domrepo "FuelPhases/internal/domain/repository"
	applogger "FuelPhases/pkg/logger"
)

// EventPipeline sits between the use cases and the event broker.
// It validates events, optionally throttles per fuel, and buffers events
// while the broker is unavailable.
type EventPipeline struct {
	next     domrepo.EventPublisher
	metrics  domrepo.Metrics
	l        *applogger.Logger
	minGap   time.Duration
	bufSize  int
	bufCh    chan *models.PhaseComputed
	stopCh   chan struct{}
	doneCh   chan struct{}
	started  bool
	mu       sync.Mutex
	lastSeen map[string]time.Time // per fuel|region last accepted time
	now      func() time.Time
}

var _ domrepo.EventPublisher = (*EventPipeline)(nil)

type PipelineOption func(*EventPipeline)

// WithMinInterval drops events for the same fuel and region that follow the
// previous one within d. Zero disables throttling.
func WithMinInterval(d time.Duration) PipelineOption {
	return func(p *EventPipeline) {
		if d > 0 {
			p.minGap = d
		}
	}
}

// WithBufferSize sets how many events are held while the broker is down.
func WithBufferSize(n int) PipelineOption {
	return func(p *EventPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

func WithPipelineLogger(l *applogger.Logger) PipelineOption {
	return func(p *EventPipeline) { p.l = l }
}

func NewEventPipeline(next domrepo.EventPublisher, metrics domrepo.Metrics, opts ...PipelineOption) *EventPipeline {
	p := &EventPipeline{
		next:     next,
		metrics:  metrics,
		bufSize:  1000,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.PhaseComputed, p.bufSize)
	return p
}

// Start launches background redelivery of buffered events.
func (p *EventPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		defer close(p.doneCh)
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			case ev := <-p.bufCh:
				if err := p.next.PublishComputed(ctx, ev); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.record("pipeline_flush")
					select {
					case <-time.After(backoff):
					case <-p.stopCh:
						return
					}
					select {
					case p.bufCh <- ev:
					default:
						p.record("pipeline_buffer_drop")
					}
					continue
				}
				backoff = 50 * time.Millisecond
			}
		}
	}()
}

// Buffered reports how many events wait for redelivery.
func (p *EventPipeline) Buffered() int { return len(p.bufCh) }

// PublishComputed forwards ev. When the broker fails the event is buffered
// and nil is returned; an error means the event was rejected or lost.
func (p *EventPipeline) PublishComputed(ctx context.Context, ev *models.PhaseComputed) error {
	start := p.now()
	if err := validateEvent(ev); err != nil {
		p.record("pipeline_validate")
		return err
	}
	if !p.allow(ev.Fuel+"|"+ev.Region, start) {
		p.record("pipeline_throttle")
		return nil
	}

	if err := p.next.PublishComputed(ctx, ev); err != nil {
		select {
		case p.bufCh <- ev:
			p.record("pipeline_buffered")
			if p.l != nil {
				p.l.Warn("event buffered for redelivery",
					applogger.String("fuel", ev.Fuel),
					applogger.Int("buffered", len(p.bufCh)),
					applogger.Error(err),
				)
			}
			return nil
		default:
			p.record("pipeline_buffer_full")
			return fmt.Errorf("pipeline downstream: %w", err)
		}
	}
	if p.metrics != nil {
		p.metrics.RecordLatency("pipeline_publish", p.now().Sub(start).Seconds())
	}
	return nil
}

// Close stops redelivery and closes the downstream publisher. Events still
// buffered are dropped.
func (p *EventPipeline) Close() error {
	p.mu.Lock()
	started := p.started
	p.started = false
	p.mu.Unlock()
	if started {
		close(p.stopCh)
		<-p.doneCh
	}
	if n := len(p.bufCh); n > 0 && p.l != nil {
		p.l.Warn("dropping buffered events on close", applogger.Int("count", n))
	}
	return p.next.Close()
}

func (p *EventPipeline) record(kind string) {
	if p.metrics != nil {
		p.metrics.RecordError(kind)
	}
}

func validateEvent(ev *models.PhaseComputed) error {
	if ev == nil {
		return fmt.Errorf("event nil")
	}
	if ev.ID == "" {
		return fmt.Errorf("event id empty")
	}
	if ev.Fuel == "" {
		return fmt.Errorf("event fuel empty")
	}
	if ev.ComputedAt.IsZero() {
		return fmt.Errorf("event computed_at missing")
	}
	return nil
}

func (p *EventPipeline) allow(key string, now time.Time) bool {
	if p.minGap <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last, ok := p.lastSeen[key]
	if ok && now.Sub(last) < p.minGap {
		return false
	}
	p.lastSeen[key] = now
	return true
}
