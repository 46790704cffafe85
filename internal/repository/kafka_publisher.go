package repository

import (
	"context"

	"spotwatch/internal/domain/models"
	"spotwatch/pkg/kafka"
	"spotwatch/pkg/logger"
)

// KafkaTransitionPublisher emits every market status transition to a Kafka
// topic, keyed by symbol so one instrument's transitions stay ordered.
type KafkaTransitionPublisher struct {
	producer *kafka.Producer
	topic    string
	log      *logger.Logger
}

func NewKafkaTransitionPublisher(producer *kafka.Producer, topic string, log *logger.Logger) *KafkaTransitionPublisher {
	return &KafkaTransitionPublisher{producer: producer, topic: topic, log: log}
}

// OnTransition publishes the transition. Failures are logged, not
// propagated: the status engine must never stall on a slow broker.
func (p *KafkaTransitionPublisher) OnTransition(ctx context.Context, tr models.StatusTransition) {
	if err := p.producer.Publish(ctx, p.topic, []byte(tr.Symbol), tr); err != nil {
		p.log.Error("transition publish failed",
			logger.String("from", string(tr.From)),
			logger.String("to", string(tr.To)),
			logger.Error(err))
	}
}

func (p *KafkaTransitionPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
