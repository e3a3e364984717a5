package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"FuelPhases/internal/domain/models"
	domrepo "FuelPhases/internal/domain/repository"
	pkgkafka "FuelPhases/pkg/kafka"
	applogger "FuelPhases/pkg/logger"
)

// KafkaObservationsHandler reacts to observation updates: it drops the fuel's
// cached results, recomputes Germany-wide and announces the fresh result.
type KafkaObservationsHandler struct {
	topic    string
	phases   *MarketPhasesUseCase
	pub      domrepo.EventPublisher
	notifier Notifier
	metrics  domrepo.Metrics
	l        *applogger.Logger
	now      func() time.Time
}

var _ pkgkafka.MessageHandler = (*KafkaObservationsHandler)(nil)

func NewKafkaObservationsHandler(topic string, phases *MarketPhasesUseCase, pub domrepo.EventPublisher, metrics domrepo.Metrics) *KafkaObservationsHandler {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &KafkaObservationsHandler{topic: topic, phases: phases, pub: pub, metrics: metrics, now: time.Now}
}

// SetLogger injects a structured logger.
func (h *KafkaObservationsHandler) SetLogger(l *applogger.Logger) { h.l = l }

// SetNotifier attaches a live subscriber for computed events.
func (h *KafkaObservationsHandler) SetNotifier(n Notifier) { h.notifier = n }

func (h *KafkaObservationsHandler) Topic() string { return h.topic }

// incoming message schema: {fuel, region, date}
func (h *KafkaObservationsHandler) Handle(ctx context.Context, b []byte) error {
	var m models.ObservationsUpdated
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode observations update: %w", err)
	}
	if !knownFuel(m.Fuel) {
		h.metrics.RecordError("consumer_unknown_fuel")
		return fmt.Errorf("observations update: unknown fuel %q", m.Fuel)
	}

	if err := h.phases.Invalidate(ctx, m.Fuel); err != nil && h.l != nil {
		h.l.Warn("invalidate cached results failed", applogger.String("fuel", m.Fuel), applogger.Error(err))
	}

	res, err := h.phases.Refresh(ctx, Query{Fuel: m.Fuel})
	var ev *models.PhaseComputed
	switch {
	case errors.Is(err, models.ErrMalformedInput):
		// the stored data is bad; retrying will not help
		ev = NewComputedEvent(m.Fuel, "", &models.MarketPhases{Meta: models.Meta{Error: err.Error()}}, h.now())
	case err != nil:
		return err
	default:
		ev = NewComputedEvent(m.Fuel, "", res, h.now())
	}

	if h.pub != nil {
		if err := h.pub.PublishComputed(ctx, ev); err != nil {
			h.metrics.RecordError("publish_computed")
			return err
		}
	}
	if h.notifier != nil {
		h.notifier.Notify(ev)
	}

	if h.l != nil {
		h.l.Info("observations update handled",
			applogger.String("fuel", m.Fuel),
			applogger.String("region", m.Region),
			applogger.String("date", m.Date),
			applogger.Int("phases", len(ev.Phases)),
		)
	}
	return nil
}
