package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/models"
)

func TestHandleWithRetry_StopsAfterFirstSuccess(t *testing.T) {
	c := &Consumer{maxRetries: 3, backoff: time.Millisecond, logger: logger.NewTestLogger(t)}

	attempts := 0
	c.handleWithRetry(context.Background(), func(_ context.Context, _ models.DispatchCommand) error {
		attempts++
		if attempts < 2 {
			return assert.AnError
		}
		return nil
	}, models.DispatchCommand{NotificationID: "n1", Channel: "EMAIL"})

	assert.Equal(t, 2, attempts)
}

func TestHandleWithRetry_ExhaustsBudget(t *testing.T) {
	c := &Consumer{maxRetries: 3, backoff: time.Millisecond, logger: logger.NewTestLogger(t)}

	attempts := 0
	c.handleWithRetry(context.Background(), func(_ context.Context, _ models.DispatchCommand) error {
		attempts++
		return assert.AnError
	}, models.DispatchCommand{NotificationID: "n1", Channel: "EMAIL"})

	assert.Equal(t, 3, attempts)
}

func TestHandleWithRetry_ZeroRetriesStillRunsOnce(t *testing.T) {
	c := &Consumer{maxRetries: 0, backoff: time.Millisecond, logger: logger.NewTestLogger(t)}

	attempts := 0
	c.handleWithRetry(context.Background(), func(_ context.Context, _ models.DispatchCommand) error {
		attempts++
		return assert.AnError
	}, models.DispatchCommand{NotificationID: "n1", Channel: "EMAIL"})

	assert.Equal(t, 1, attempts)
}

func TestHandleWithRetry_CancelledContextStopsBackoff(t *testing.T) {
	c := &Consumer{maxRetries: 5, backoff: time.Minute, logger: logger.NewTestLogger(t)}

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	c.handleWithRetry(ctx, func(_ context.Context, _ models.DispatchCommand) error {
		attempts++
		return assert.AnError
	}, models.DispatchCommand{NotificationID: "n1", Channel: "EMAIL"})

	assert.Equal(t, 1, attempts)
}
