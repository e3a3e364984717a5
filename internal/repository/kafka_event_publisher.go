package repository

import (
	"context"

	"FuelPhases/internal/domain/models"
	domrepo "FuelPhases/internal/domain/repository"
	pkgkafka "FuelPhases/pkg/kafka"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher implements EventPublisher for Kafka.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

var _ domrepo.EventPublisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

// PublishComputed keys events by fuel so one fuel's events stay ordered.
func (p *KafkaPublisher) PublishComputed(ctx context.Context, ev *models.PhaseComputed) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.Fuel), ev,
		kafka.Header{Key: "event_id", Value: []byte(ev.ID)},
		kafka.Header{Key: "event_type", Value: []byte("phases.computed")},
	)
}

// PublishMessage lets the log collector ship batches through the same producer.
func (p *KafkaPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NoopPublisher drops events; used when Kafka is disabled.
type NoopPublisher struct{}

var _ domrepo.EventPublisher = NoopPublisher{}

func (NoopPublisher) PublishComputed(context.Context, *models.PhaseComputed) error { return nil }
func (NoopPublisher) Close() error                                                 { return nil }
