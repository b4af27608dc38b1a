package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notification-dispatcher/internal/common/config"
	"notification-dispatcher/internal/common/errors"
	commonhttp "notification-dispatcher/internal/common/http"
	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/models"
)

func newTestPushSender(t *testing.T, status int, forms *[]url.Values) *PushSender {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "Bearer jwt-token", r.Header.Get("Authorization"))
		*forms = append(*forms, r.PostForm)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	cfg := config.MercureConfig{
		HubURL:    srv.URL,
		PublicURL: "https://hub.example.com/topics",
		JWTToken:  "jwt-token",
	}
	sender := NewPushSender(commonhttp.NewClient(0), cfg, logger.NewTestLogger(t))
	sender.now = func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }
	return sender
}

func pushNotification(scope models.Scope) *models.Notification {
	return &models.Notification{
		ID:      "n1",
		Channel: models.ChannelPush,
		Scope:   scope,
		Push: &models.PushFields{
			Topic:    "announcements",
			Title:    "Title",
			Subtitle: "Sub",
			Content:  "Body",
		},
	}
}

func TestPushSend_NormalizesBareTopic(t *testing.T) {
	var forms []url.Values
	sender := newTestPushSender(t, http.StatusOK, &forms)

	user := &models.User{ID: "u1", Name: "Ada"}
	require.NoError(t, sender.Send(context.Background(), pushNotification(models.ScopeIndividual), user))

	require.Len(t, forms, 1)
	assert.Equal(t, "https://hub.example.com/topics/announcements", forms[0].Get("topic"))

	var payload pushPayload
	require.NoError(t, json.Unmarshal([]byte(forms[0].Get("data")), &payload))
	assert.Equal(t, "Title", payload.Title)
	assert.Equal(t, "Sub", payload.Subtitle)
	assert.Equal(t, "Body", payload.Content)
	assert.Equal(t, "2026-08-30T12:00:00Z", payload.CreatedAt)
}

func TestPushSend_AbsoluteTopicPassesThrough(t *testing.T) {
	var forms []url.Values
	sender := newTestPushSender(t, http.StatusOK, &forms)

	n := pushNotification(models.ScopeIndividual)
	n.Push.Topic = "https://other.example.com/custom"
	user := &models.User{ID: "u1"}

	require.NoError(t, sender.Send(context.Background(), n, user))
	assert.Equal(t, "https://other.example.com/custom", forms[0].Get("topic"))
}

func TestPushSend_WorkplaceAppendsUserID(t *testing.T) {
	var forms []url.Values
	sender := newTestPushSender(t, http.StatusOK, &forms)

	user := &models.User{ID: "u7", Name: "Ada"}
	require.NoError(t, sender.Send(context.Background(), pushNotification(models.ScopeWorkplace), user))
	assert.Equal(t, "https://hub.example.com/topics/announcements/u7", forms[0].Get("topic"))

	require.NoError(t, sender.Send(context.Background(), pushNotification(models.ScopeSegment), user))
	assert.Equal(t, "https://hub.example.com/topics/announcements/u7", forms[1].Get("topic"))

	// individual scope does not get the suffix
	require.NoError(t, sender.Send(context.Background(), pushNotification(models.ScopeIndividual), user))
	assert.Equal(t, "https://hub.example.com/topics/announcements", forms[2].Get("topic"))
}

func TestPushSend_HubError(t *testing.T) {
	var forms []url.Values
	sender := newTestPushSender(t, http.StatusInternalServerError, &forms)

	err := sender.Send(context.Background(), pushNotification(models.ScopeIndividual), &models.User{ID: "u1"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeTransport))
}
