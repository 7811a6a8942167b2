package repository

import (
	"context"
	"fmt"

	"github.com/doby176/light/internal/domain/models"
	domrepo "github.com/doby176/light/internal/domain/repository"
)

// topicPublisher is satisfied by *kafka.TopicPublisher.
type topicPublisher interface {
	Name() string
	Publish(ctx context.Context, key string, payload interface{}) error
}

// KafkaActionPublisher writes action events keyed by session so one
// session's events stay ordered within a partition.
type KafkaActionPublisher struct {
	topic   topicPublisher
	metrics domrepo.Metrics
}

func NewKafkaActionPublisher(topic topicPublisher, m domrepo.Metrics) *KafkaActionPublisher {
	return &KafkaActionPublisher{topic: topic, metrics: m}
}

func (p *KafkaActionPublisher) PublishAction(ctx context.Context, ev models.ActionEvent) error {
	err := p.topic.Publish(ctx, ev.SessionID, ev)
	if p.metrics != nil {
		p.metrics.RecordPublish(p.topic.Name(), err == nil)
	}
	if err != nil {
		return fmt.Errorf("publish action: %w", err)
	}
	return nil
}

// NopActionPublisher drops events; used when Kafka is disabled.
type NopActionPublisher struct{}

func (NopActionPublisher) PublishAction(context.Context, models.ActionEvent) error { return nil }
