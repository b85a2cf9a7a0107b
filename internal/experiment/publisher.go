package experiment

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/kafka"
)

// Publisher announces finished runs.
type Publisher interface {
	Publish(ctx context.Context, result *Result) error
}

// EventPublisher is the part of kafka.Producer the publisher needs.
type EventPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// KafkaPublisher writes each result to the results topic keyed by
// experiment name.
type KafkaPublisher struct {
	producer EventPublisher
}

var _ Publisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(producer EventPublisher) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, result *Result) error {
	return p.producer.Publish(ctx, kafka.Event{Key: result.Experiment, Value: result})
}
