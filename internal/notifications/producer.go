package notifications

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/IBM/sarama"
)

// Publisher is the contract the booking and payment flows publish through.
// Implementations must be safe for concurrent use.
type Publisher interface {
	PublishBookingEvent(ctx context.Context, event *BookingEvent) error
	Close() error
	HealthCheck(ctx context.Context) error
}

// ProducerConfig contains configuration for the Kafka event producer
type ProducerConfig struct {
	Brokers          []string
	Topic            string
	RetryMax         int
	TimeoutMs        int
	RequiredAcks     sarama.RequiredAcks
	CompressionType  sarama.CompressionCodec
	IdempotentWrites bool
	MaxMessageBytes  int
}

// DefaultProducerConfig returns a default producer configuration
func DefaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		Brokers:          []string{"localhost:9092"},
		Topic:            "cinebook.booking-events",
		RetryMax:         3,
		TimeoutMs:        10000,             // 10 seconds
		RequiredAcks:     sarama.WaitForAll, // Wait for all in-sync replicas
		CompressionType:  sarama.CompressionSnappy,
		IdempotentWrites: true,
		MaxMessageBytes:  1000000, // 1MB
	}
}

// KafkaEventProducer publishes booking lifecycle events to Kafka.
type KafkaEventProducer struct {
	producer sarama.SyncProducer
	config   *ProducerConfig
}

// NewKafkaEventProducer creates a new Kafka event producer
func NewKafkaEventProducer(config *ProducerConfig) (Publisher, error) {
	saramaConfig := sarama.NewConfig()

	// Producer configuration
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = config.RequiredAcks
	saramaConfig.Producer.Compression = config.CompressionType
	saramaConfig.Producer.Retry.Max = config.RetryMax
	saramaConfig.Producer.Timeout = time.Duration(config.TimeoutMs) * time.Millisecond
	saramaConfig.Producer.Idempotent = config.IdempotentWrites
	saramaConfig.Producer.MaxMessageBytes = config.MaxMessageBytes

	// Idempotent writes require a single in-flight request
	if config.IdempotentWrites {
		saramaConfig.Net.MaxOpenRequests = 1
	}

	// Hash partitioner keyed by booking id keeps one booking's events ordered
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	eventProducer := &KafkaEventProducer{
		producer: producer,
		config:   config,
	}

	log.Printf("📤 Kafka event producer created successfully")
	return eventProducer, nil
}

// PublishBookingEvent publishes a single booking event to Kafka
func (kep *KafkaEventProducer) PublishBookingEvent(ctx context.Context, event *BookingEvent) error {
	messageBytes, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal booking event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic:     kep.config.Topic,
		Key:       sarama.StringEncoder(event.PartitionKey()),
		Value:     sarama.ByteEncoder(messageBytes),
		Headers:   eventHeaders(event),
		Timestamp: event.OccurredAt,
	}

	partition, offset, err := kep.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to send booking event to Kafka: %w", err)
	}

	log.Printf("📤 Booking event published - Topic: %s, Partition: %d, Offset: %d, Type: %s, Booking: %s",
		kep.config.Topic, partition, offset, event.EventType, event.BookingCode)

	return nil
}

// eventHeaders creates Kafka record headers for a booking event
func eventHeaders(event *BookingEvent) []sarama.RecordHeader {
	return []sarama.RecordHeader{
		{Key: []byte("event_id"), Value: []byte(event.EventID.String())},
		{Key: []byte("event_type"), Value: []byte(event.EventType)},
		{Key: []byte("source"), Value: []byte("cinebook-api")},
		{Key: []byte("version"), Value: []byte("1.0")},
		{Key: []byte("occurred_at"), Value: []byte(event.OccurredAt.Format(time.RFC3339))},
	}
}

// Close closes the Kafka producer
func (kep *KafkaEventProducer) Close() error {
	if kep.producer != nil {
		err := kep.producer.Close()
		if err != nil {
			return fmt.Errorf("failed to close Kafka producer: %w", err)
		}
		log.Printf("📤 Kafka event producer closed")
	}
	return nil
}

// HealthCheck validates the producer wiring without sending a message
func (kep *KafkaEventProducer) HealthCheck(ctx context.Context) error {
	if kep.producer == nil {
		return fmt.Errorf("health check failed - producer is nil")
	}

	if kep.config.Topic == "" {
		return fmt.Errorf("health check failed - event topic not configured")
	}

	if len(kep.config.Brokers) == 0 {
		return fmt.Errorf("health check failed - no brokers configured")
	}

	return nil
}

// LogPublisher is the stand-in used when Kafka is disabled. Events land in
// the process log so local runs still show the booking lifecycle.
type LogPublisher struct{}

// NewLogPublisher creates a publisher that only logs
func NewLogPublisher() Publisher {
	return &LogPublisher{}
}

func (LogPublisher) PublishBookingEvent(ctx context.Context, event *BookingEvent) error {
	log.Printf("📤 [kafka disabled] %s booking=%s code=%s user=%s seats=%d",
		event.EventType, event.BookingID, event.BookingCode, event.UserID, len(event.SeatIDs))
	return nil
}

func (LogPublisher) Close() error { return nil }

func (LogPublisher) HealthCheck(ctx context.Context) error { return nil }
