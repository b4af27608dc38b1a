package dispatchnotification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/models"
)

type fakeDispatcher struct {
	ids []string
	err error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, id string) error {
	f.ids = append(f.ids, id)
	return f.err
}

func newTestHandler(t *testing.T, d *fakeDispatcher) *Handler {
	return NewHandler(DefaultConfig(), d, nil, logger.NewTestLogger(t))
}

func TestHandle_DispatchesValidCommand(t *testing.T) {
	d := &fakeDispatcher{}
	h := newTestHandler(t, d)

	err := h.Handle(context.Background(), models.DispatchCommand{
		NotificationID: "n1",
		Channel:        "EMAIL",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"n1"}, d.ids)
}

func TestHandle_InvalidCommandIsSwallowed(t *testing.T) {
	d := &fakeDispatcher{}
	h := newTestHandler(t, d)

	tests := []models.DispatchCommand{
		{NotificationID: "", Channel: "EMAIL"},
		{NotificationID: "n1", Channel: "FAX"},
	}
	for _, cmd := range tests {
		assert.NoError(t, h.Handle(context.Background(), cmd))
	}
	assert.Empty(t, d.ids)
}

func TestHandle_NonRetryableFailureCommitsMessage(t *testing.T) {
	d := &fakeDispatcher{err: errors.NewEmptyRecipientsError("WORKPLACE", "SMS")}
	h := newTestHandler(t, d)

	err := h.Handle(context.Background(), models.DispatchCommand{
		NotificationID: "n1",
		Channel:        "SMS",
	})
	assert.NoError(t, err)
	assert.Len(t, d.ids, 1)
}

func TestHandle_RetryableFailurePropagates(t *testing.T) {
	retryable := errors.NewValidationFailedError("scheduled for later")
	retryable.Retryable = true

	d := &fakeDispatcher{err: retryable}
	h := newTestHandler(t, d)

	err := h.Handle(context.Background(), models.DispatchCommand{
		NotificationID: "n1",
		Channel:        "PUSH",
	})
	require.Error(t, err)
	assert.True(t, errors.IsRetryable(err))
}
