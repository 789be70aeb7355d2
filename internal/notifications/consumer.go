package notifications

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/redis/go-redis/v9"

	"cinebook/internal/shared/constants"
)

// EventHandler processes one consumed booking event. Returning an error
// makes the consumer retry with backoff before giving the message up.
type EventHandler interface {
	HandleBookingEvent(ctx context.Context, event *BookingEvent) error
}

type Consumer interface {
	StartConsumers(ctx context.Context, numWorkers int) error
	Stop() error
	HealthCheck(ctx context.Context) error
}

type ConsumerConfig struct {
	Brokers              []string
	GroupID              string
	Topics               []string
	SessionTimeoutMs     int
	HeartbeatMs          int
	RetryBackoffMs       int
	MaxProcessingTime    time.Duration
	AutoCommit           bool
	OffsetOldest         bool
	MaxRetries           int
	RetryBackoffDuration time.Duration
}

func DefaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		Brokers:              []string{"localhost:9092"},
		GroupID:              "cinebook-booking-workers",
		Topics:               []string{"cinebook.booking-events"},
		SessionTimeoutMs:     30000,
		HeartbeatMs:          3000,
		RetryBackoffMs:       100,
		MaxProcessingTime:    5 * time.Minute,
		AutoCommit:           true,
		OffsetOldest:         false,
		MaxRetries:           3,
		RetryBackoffDuration: time.Second,
	}
}

// KafkaEventConsumer drains the booking event topic through a consumer group.
type KafkaEventConsumer struct {
	consumerGroup sarama.ConsumerGroup
	config        *ConsumerConfig
	handler       EventHandler
	topics        []string
	ctx           context.Context
	cancel        context.CancelFunc
}

func NewKafkaEventConsumer(config *ConsumerConfig, handler EventHandler) (Consumer, error) {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Consumer.Group.Session.Timeout = time.Duration(config.SessionTimeoutMs) * time.Millisecond
	saramaConfig.Consumer.Group.Heartbeat.Interval = time.Duration(config.HeartbeatMs) * time.Millisecond
	saramaConfig.Consumer.Retry.Backoff = time.Duration(config.RetryBackoffMs) * time.Millisecond
	saramaConfig.Consumer.MaxProcessingTime = config.MaxProcessingTime
	saramaConfig.Consumer.Return.Errors = true

	if config.OffsetOldest {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	}

	if config.AutoCommit {
		saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
		saramaConfig.Consumer.Offsets.AutoCommit.Interval = 1 * time.Second
	}

	consumerGroup, err := sarama.NewConsumerGroup(config.Brokers, config.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &KafkaEventConsumer{
		consumerGroup: consumerGroup,
		config:        config,
		handler:       handler,
		topics:        config.Topics,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func (kec *KafkaEventConsumer) StartConsumers(ctx context.Context, numWorkers int) error {
	log.Printf("📥 Starting %d booking event workers for topics: %v", numWorkers, kec.topics)

	// Start error handler goroutine
	go kec.handleErrors()

	// Start consumer workers
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			kec.runWorker(ctx, workerID)
		}(i)
	}

	log.Printf("📥 All %d booking event workers started", numWorkers)
	return nil
}

func (kec *KafkaEventConsumer) runWorker(ctx context.Context, workerID int) {
	consumer := &eventGroupHandler{
		consumer: kec,
		workerID: workerID,
		handler:  kec.handler,
	}

	for {
		select {
		case <-ctx.Done():
			log.Printf("📥 Worker %d shutting down", workerID)
			return
		default:
			err := kec.consumerGroup.Consume(ctx, kec.topics, consumer)
			if err != nil {
				log.Printf("📥 Worker %d error consuming messages: %v", workerID, err)
				time.Sleep(time.Second)
			}
		}
	}
}

func (kec *KafkaEventConsumer) handleErrors() {
	for err := range kec.consumerGroup.Errors() {
		log.Printf("📥 Consumer group error: %v", err)
	}
}

func (kec *KafkaEventConsumer) Stop() error {
	log.Println("📥 Stopping booking event consumer...")
	kec.cancel()

	err := kec.consumerGroup.Close()
	if err != nil {
		return fmt.Errorf("failed to close consumer group: %w", err)
	}

	log.Println("📥 Booking event consumer stopped")
	return nil
}

func (kec *KafkaEventConsumer) HealthCheck(ctx context.Context) error {
	select {
	case <-kec.ctx.Done():
		return fmt.Errorf("consumer context is cancelled")
	default:
		if kec.handler == nil {
			return fmt.Errorf("event handler not configured")
		}
		return nil
	}
}

type eventGroupHandler struct {
	consumer *KafkaEventConsumer
	workerID int
	handler  EventHandler
}

func (h *eventGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Printf("📥 Worker %d: Consumer group session started", h.workerID)
	return nil
}

func (h *eventGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Printf("📥 Worker %d: Consumer group session ended", h.workerID)
	return nil
}

func (h *eventGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			err := h.processMessage(session.Context(), message)
			if err != nil {
				log.Printf("📥 Worker %d: Error processing message: %v", h.workerID, err)
			} else {
				session.MarkMessage(message, "")
			}

		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *eventGroupHandler) processMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	event, err := EventFromJSON(message.Value)
	if err != nil {
		// A malformed message never becomes valid; mark it handled after logging.
		log.Printf("📥 Worker %d: Dropping undecodable message at %s/%d/%d: %v",
			h.workerID, message.Topic, message.Partition, message.Offset, err)
		return nil
	}

	return h.executeWithRetry(ctx, event)
}

func (h *eventGroupHandler) executeWithRetry(ctx context.Context, event *BookingEvent) error {
	maxRetries := h.consumer.config.MaxRetries
	backoff := h.consumer.config.RetryBackoffDuration

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := h.handler.HandleBookingEvent(ctx, event)
		if err == nil {
			if attempt > 0 {
				log.Printf("📥 Worker %d: Successfully processed event after %d retries", h.workerID, attempt)
			}
			return nil
		}

		if attempt == maxRetries {
			log.Printf("📥 Worker %d: Failed to process event %s after %d attempts: %v", h.workerID, event.EventID, maxRetries, err)
			return err
		}

		// Exponential backoff
		delay := backoff * time.Duration(1<<attempt)
		log.Printf("📥 Worker %d: Retry %d for event %s after %v", h.workerID, attempt+1, event.EventID, delay)

		select {
		case <-time.After(delay):
			continue
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// ArchivingHandler logs each consumed event and keeps the most recent ones
// in a capped Redis list for operator inspection.
type ArchivingHandler struct {
	client *redis.Client
}

func NewArchivingHandler(client *redis.Client) *ArchivingHandler {
	return &ArchivingHandler{client: client}
}

func (h *ArchivingHandler) HandleBookingEvent(ctx context.Context, event *BookingEvent) error {
	log.Printf("📥 %s booking=%s code=%s user=%s showtime=%s seats=%d amount=%s %s",
		event.EventType, event.BookingID, event.BookingCode, event.UserID,
		event.ShowtimeID, len(event.SeatIDs), event.Amount, event.Currency)

	if h.client == nil {
		return nil
	}

	payload, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal event %s for archive: %w", event.EventID, err)
	}

	pipe := h.client.TxPipeline()
	pipe.LPush(ctx, constants.EVENTS_ARCHIVE_KEY, payload)
	pipe.LTrim(ctx, constants.EVENTS_ARCHIVE_KEY, 0, constants.EVENTS_ARCHIVE_MAX-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to archive event %s: %w", event.EventID, err)
	}

	return nil
}
