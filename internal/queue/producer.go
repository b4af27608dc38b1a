// Package queue carries dispatch commands over Kafka. Creating a
// notification and delivering it are decoupled by the dispatch topic.
package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"notification-dispatcher/internal/common/config"
	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/models"
)

// Producer publishes dispatch commands keyed by notification ID so that
// commands for the same notification stay ordered.
type Producer struct {
	writer *kafka.Writer
	logger logger.Logger
}

func NewProducer(cfg config.KafkaConfig, log logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.DispatchTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Producer{
		writer: writer,
		logger: log.WithFields(map[string]interface{}{"component": "queue.producer"}),
	}
}

func (p *Producer) PublishDispatch(ctx context.Context, cmd models.DispatchCommand) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return errors.NewDispatchPublishFailedError(err)
	}

	msg := kafka.Message{
		Key:   []byte(cmd.NotificationID),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.NewDispatchPublishFailedError(err)
	}

	p.logger.Info("dispatch command published", map[string]interface{}{
		"notification_id": cmd.NotificationID,
		"channel":         cmd.Channel,
	})
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
