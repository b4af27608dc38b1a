package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"notification-dispatcher/internal/common/config"
	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/common/metrics"
	"notification-dispatcher/internal/models"
)

type pushPayload struct {
	Title     string `json:"title"`
	Subtitle  string `json:"subtitle,omitempty"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

// PushSender publishes notifications to a Mercure hub. Subscribers hold the
// topic URL open over SSE.
type PushSender struct {
	httpClient HTTPClient
	config     config.MercureConfig
	logger     logger.Logger
	now        func() time.Time
}

func NewPushSender(httpClient HTTPClient, cfg config.MercureConfig, log logger.Logger) *PushSender {
	return &PushSender{
		httpClient: httpClient,
		config:     cfg,
		logger:     log.WithFields(map[string]interface{}{"component": "mercure"}),
		now:        time.Now,
	}
}

func (s *PushSender) Channel() models.Channel {
	return models.ChannelPush
}

func (s *PushSender) Send(ctx context.Context, n *models.Notification, user *models.User) error {
	if n.Push == nil {
		return errors.NewValidationFailedError("notification has no push fields")
	}

	topic := s.normalizeTopic(n.Push.Topic)
	if user != nil && (n.Scope == models.ScopeWorkplace || n.Scope == models.ScopeSegment) {
		topic = topic + "/" + user.ID
	}

	payload, err := json.Marshal(pushPayload{
		Title:     n.Push.Title,
		Subtitle:  n.Push.Subtitle,
		Content:   n.Push.Content,
		CreatedAt: s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return errors.NewTransportError("mercure", err)
	}

	form := url.Values{}
	form.Set("topic", topic)
	form.Set("data", string(payload))

	req, err := http.NewRequest(http.MethodPost, s.config.HubURL, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.NewTransportError("mercure", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+s.config.JWTToken)

	resp, err := s.httpClient.DoWithContext(ctx, req)
	if err != nil {
		metrics.ProviderCalls.WithLabelValues("mercure", "error").Inc()
		return errors.NewTransportError("mercure", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.ProviderCalls.WithLabelValues("mercure", "error").Inc()
		return errors.NewTransportError("mercure",
			fmt.Errorf("hub returned status %d", resp.StatusCode))
	}

	metrics.ProviderCalls.WithLabelValues("mercure", "ok").Inc()

	s.logger.Debug("push published", map[string]interface{}{
		"notification_id": n.ID,
		"topic":           topic,
	})
	return nil
}

// normalizeTopic turns a bare topic name into an absolute URL under the
// public hub base. Absolute topics pass through untouched.
func (s *PushSender) normalizeTopic(topic string) string {
	if strings.HasPrefix(topic, "http://") || strings.HasPrefix(topic, "https://") {
		return topic
	}
	return strings.TrimRight(s.config.PublicURL, "/") + "/" + strings.TrimLeft(topic, "/")
}
