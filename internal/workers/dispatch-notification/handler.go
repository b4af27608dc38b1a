// Package dispatchnotification consumes dispatch commands from the queue
// and hands them to the delivery pipeline.
package dispatchnotification

import (
	"context"
	"time"

	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/common/observability"
	"notification-dispatcher/internal/models"
)

// Dispatcher delivers one persisted notification.
type Dispatcher interface {
	Dispatch(ctx context.Context, id string) error
}

type Handler struct {
	config     Config
	dispatcher Dispatcher
	obs        *observability.Observability
	logger     logger.Logger
}

func NewHandler(cfg Config, dispatcher Dispatcher, obs *observability.Observability, log logger.Logger) *Handler {
	return &Handler{
		config:     cfg,
		dispatcher: dispatcher,
		obs:        obs,
		logger:     log.WithFields(map[string]interface{}{"worker": cfg.Name}),
	}
}

// Handle processes one dispatch command. Non-retryable failures are logged
// and swallowed so the message is committed; retryable failures propagate
// to the consumer's retry loop.
func (h *Handler) Handle(ctx context.Context, cmd models.DispatchCommand) error {
	if err := validateCommand(cmd); err != nil {
		h.logger.Error("rejecting invalid dispatch command", map[string]interface{}{
			"notification_id": cmd.NotificationID,
			"channel":         cmd.Channel,
			"error":           err,
		})
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	start := time.Now()
	err := h.dispatcher.Dispatch(ctx, cmd.NotificationID)
	h.record(ctx, time.Since(start), err)
	if err == nil {
		return nil
	}

	if errors.IsRetryable(err) {
		return err
	}

	h.logger.Error("dispatch failed permanently", map[string]interface{}{
		"notification_id": cmd.NotificationID,
		"channel":         cmd.Channel,
		"error":           err,
	})
	return nil
}

func (h *Handler) record(ctx context.Context, duration time.Duration, err error) {
	if h.obs == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	h.obs.RecordDispatchProcessed(ctx, status)
	h.obs.RecordDispatchDuration(ctx, duration, status)
}
