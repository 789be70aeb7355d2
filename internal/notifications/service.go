package notifications

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"cinebook/internal/shared/config"
)

const defaultConsumerWorkers = 3

// Stream bundles the producer and consumer halves of the booking event
// pipeline behind one lifecycle.
type Stream struct {
	publisher Publisher
	consumer  Consumer
	enabled   bool
}

// NewStream wires the event pipeline from app config. With Kafka disabled
// the publisher degrades to the process log and no consumer is started, so
// the booking core never blocks on the broker.
func NewStream(cfg config.KafkaConfig, archive *redis.Client) (*Stream, error) {
	if !cfg.Enabled {
		log.Println("Kafka disabled, booking events will be logged only")
		return &Stream{publisher: NewLogPublisher()}, nil
	}

	producerConfig := DefaultProducerConfig()
	producerConfig.Brokers = cfg.Brokers
	producerConfig.Topic = cfg.Topic

	publisher, err := NewKafkaEventProducer(producerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create event producer: %w", err)
	}

	consumerConfig := DefaultConsumerConfig()
	consumerConfig.Brokers = cfg.Brokers
	consumerConfig.GroupID = cfg.GroupID
	consumerConfig.Topics = []string{cfg.Topic}

	consumer, err := NewKafkaEventConsumer(consumerConfig, NewArchivingHandler(archive))
	if err != nil {
		publisher.Close()
		return nil, fmt.Errorf("failed to create event consumer: %w", err)
	}

	return &Stream{publisher: publisher, consumer: consumer, enabled: true}, nil
}

// Publisher exposes the publishing half for the booking and payment flows.
func (s *Stream) Publisher() Publisher {
	return s.publisher
}

// Start launches the consumer workers. A no-op when Kafka is disabled.
func (s *Stream) Start(ctx context.Context) error {
	if !s.enabled {
		return nil
	}
	return s.consumer.StartConsumers(ctx, defaultConsumerWorkers)
}

// Stop shuts down both halves, consumer first so in-flight messages drain.
func (s *Stream) Stop() error {
	var firstErr error

	if s.consumer != nil {
		if err := s.consumer.Stop(); err != nil {
			log.Printf("Error stopping event consumer: %v", err)
			firstErr = err
		}
	}

	if err := s.publisher.Close(); err != nil {
		log.Printf("Error closing event publisher: %v", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// HealthCheck reports the health of both halves.
func (s *Stream) HealthCheck(ctx context.Context) error {
	if err := s.publisher.HealthCheck(ctx); err != nil {
		return err
	}
	if s.consumer != nil {
		return s.consumer.HealthCheck(ctx)
	}
	return nil
}
