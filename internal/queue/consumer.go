package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"notification-dispatcher/internal/common/config"
	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/models"
)

// Handler processes one dispatch command. A nil return commits the message.
type Handler func(ctx context.Context, cmd models.DispatchCommand) error

// Consumer reads dispatch commands from the queue and hands them to a
// handler, retrying transient failures before committing.
type Consumer struct {
	reader     *kafka.Reader
	maxRetries int
	backoff    time.Duration
	logger     logger.Logger
}

func NewConsumer(cfg config.KafkaConfig, log logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.DispatchTopic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{
		reader:     reader,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.RetryBackoff) * time.Millisecond,
		logger:     log.WithFields(map[string]interface{}{"component": "queue.consumer"}),
	}
}

// Run blocks until the context is cancelled. Messages that keep failing
// after the retry budget are committed anyway and logged; the queue is not a
// dead-letter store.
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		var cmd models.DispatchCommand
		if err := json.Unmarshal(msg.Value, &cmd); err != nil {
			c.logger.Error("discarding malformed dispatch command", map[string]interface{}{
				"offset": msg.Offset,
				"error":  err,
			})
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				return err
			}
			continue
		}

		c.handleWithRetry(ctx, handler, cmd)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return err
		}
	}
}

func (c *Consumer) handleWithRetry(ctx context.Context, handler Handler, cmd models.DispatchCommand) {
	attempts := c.maxRetries
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = handler(ctx, cmd); err == nil {
			return
		}
		c.logger.Warn("dispatch command failed", map[string]interface{}{
			"notification_id": cmd.NotificationID,
			"attempt":         attempt,
			"error":           err,
		})
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.backoff * time.Duration(attempt)):
			}
		}
	}

	c.logger.Error("dispatch command exhausted retries", map[string]interface{}{
		"notification_id": cmd.NotificationID,
		"error":           err,
	})
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
