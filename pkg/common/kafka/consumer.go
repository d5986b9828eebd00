package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/agri-advisor/platform/pkg/common/config"
	"github.com/agri-advisor/platform/pkg/common/logger"
	"github.com/agri-advisor/platform/pkg/common/models"
)

// messageReader is the part of *kafka.Reader the consumer drives.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader        messageReader
	retryDelay    time.Duration
	maxRetryDelay time.Duration
}

type EventHandler func(ctx context.Context, event models.Event) error

func NewConsumer(cfg *config.Config, topic string, groupID string) *Consumer {
	if groupID == "" {
		groupID = cfg.KafkaGroupID
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})

	return newConsumer(reader, cfg.KafkaRetryDelay, cfg.KafkaMaxRetryDelay)
}

func newConsumer(reader messageReader, retryDelay, maxRetryDelay time.Duration) *Consumer {
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	if maxRetryDelay < retryDelay {
		maxRetryDelay = retryDelay
	}
	return &Consumer{reader: reader, retryDelay: retryDelay, maxRetryDelay: maxRetryDelay}
}

// Consume runs handler for every event until ctx is done. The reader's
// position moves past a message once it is fetched, so a failed handler is
// retried on the same message with backoff and nothing later is committed
// until it succeeds. Handlers drop events they can never process by
// returning nil.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	for {
		message, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			logger.Log.WithError(err).Error("Failed to fetch message")
			continue
		}

		var event models.Event
		if err := json.Unmarshal(message.Value, &event); err != nil {
			logger.Log.WithError(err).WithField("offset", message.Offset).Error("Failed to unmarshal event")
			_ = c.reader.CommitMessages(ctx, message)
			continue
		}

		eventCtx := ctx
		if id := event.Metadata["request_id"]; id != "" {
			eventCtx = logger.ContextWithRequestID(ctx, id)
		}
		if err := c.handle(eventCtx, event, handler); err != nil {
			return err
		}

		if err := c.reader.CommitMessages(ctx, message); err != nil {
			logger.Log.WithError(err).Error("Failed to commit message")
		}
	}
}

// handle returns only when handler succeeds or ctx is done.
func (c *Consumer) handle(ctx context.Context, event models.Event, handler EventHandler) error {
	delay := c.retryDelay
	for attempt := 1; ; attempt++ {
		err := handler(ctx, event)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		logger.FromContext(ctx).WithError(err).WithFields(map[string]interface{}{
			"event_id":   event.ID,
			"event_type": event.Type,
			"attempt":    attempt,
			"retry_in":   delay.String(),
		}).Error("Failed to process event")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay *= 2
		if delay > c.maxRetryDelay {
			delay = c.maxRetryDelay
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
