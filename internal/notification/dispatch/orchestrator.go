// Package dispatch drives delivery of persisted notifications: scope
// resolution, recipient batching, adapter invocation and completion marking.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/common/metrics"
	"notification-dispatcher/internal/models"
	"notification-dispatcher/internal/notification/channel"
	"notification-dispatcher/internal/notification/scope"
)

// DefaultBatchSize caps how many recipients one adapter batch may carry.
const DefaultBatchSize = 50

// HTTPClient is used for completion callbacks.
type HTTPClient interface {
	DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error)
}

// CompletionStore is the persistence surface the orchestrator needs.
type CompletionStore interface {
	MarkCompleted(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string) error
}

// Orchestrator delivers one notification end to end. Batches are processed
// sequentially; a transport failure aborts the remaining batches and the
// notification is never marked completed.
type Orchestrator struct {
	senders    map[models.Channel]channel.Sender
	email      *channel.EmailSender
	resolvers  map[models.Scope]scope.Resolver
	store      CompletionStore
	httpClient HTTPClient
	batchSize  int
	logger     logger.Logger
	now        func() time.Time
}

func NewOrchestrator(
	senders []channel.Sender,
	email *channel.EmailSender,
	resolvers map[models.Scope]scope.Resolver,
	store CompletionStore,
	httpClient HTTPClient,
	batchSize int,
	log logger.Logger,
) *Orchestrator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	byChannel := make(map[models.Channel]channel.Sender, len(senders))
	for _, s := range senders {
		byChannel[s.Channel()] = s
	}
	return &Orchestrator{
		senders:    byChannel,
		email:      email,
		resolvers:  resolvers,
		store:      store,
		httpClient: httpClient,
		batchSize:  batchSize,
		logger:     log.WithFields(map[string]interface{}{"component": "orchestrator"}),
		now:        time.Now,
	}
}

// Dispatch resolves the audience and walks the recipient batches. On
// success the notification is stamped completed exactly once, after the
// last batch.
func (o *Orchestrator) Dispatch(ctx context.Context, n *models.Notification) error {
	start := o.now()
	err := o.dispatch(ctx, n)
	metrics.DispatchDuration.WithLabelValues(string(n.Channel)).Observe(o.now().Sub(start).Seconds())

	if err != nil {
		metrics.DispatchesFailed.WithLabelValues(
			string(n.Channel), string(n.Scope), errorCode(err)).Inc()
		if markErr := o.store.MarkFailed(ctx, n.ID); markErr != nil {
			o.logger.Error("failed to mark notification failed", map[string]interface{}{
				"notification_id": n.ID,
				"error":           markErr,
			})
		}
		return err
	}

	metrics.DispatchesCompleted.WithLabelValues(string(n.Channel), string(n.Scope)).Inc()
	return nil
}

func (o *Orchestrator) dispatch(ctx context.Context, n *models.Notification) error {
	sender, ok := o.senders[n.Channel]
	if !ok {
		return errors.NewNoFactoryFoundError(string(n.Channel))
	}
	resolver, ok := o.resolvers[n.Scope]
	if !ok {
		return errors.NewValidationFailedError("no resolver for scope " + string(n.Scope))
	}

	users, err := resolver.Resolve(ctx, n)
	if err != nil {
		return err
	}

	if users == nil {
		// Broadcast form: the adapter is invoked exactly once.
		if err := sender.Send(ctx, n, nil); err != nil {
			return err
		}
		metrics.BatchesSent.WithLabelValues(string(n.Channel)).Inc()
	} else {
		for _, batch := range chunkUsers(users, o.batchSize) {
			if err := o.sendBatch(ctx, sender, n, batch); err != nil {
				return err
			}
			metrics.BatchesSent.WithLabelValues(string(n.Channel)).Inc()
		}
	}

	completedAt := o.now().UTC()
	n.MarkCompleted(completedAt)
	if err := o.store.MarkCompleted(ctx, n.ID, completedAt); err != nil {
		return err
	}

	o.invokeCallback(ctx, n)

	o.logger.Info("notification dispatched", map[string]interface{}{
		"notification_id": n.ID,
		"channel":         n.Channel,
		"scope":           n.Scope,
		"recipients":      len(users),
	})
	return nil
}

// sendBatch delivers one batch. Email batches go out as a single provider
// call; the other channels deliver one recipient at a time.
func (o *Orchestrator) sendBatch(ctx context.Context, sender channel.Sender, n *models.Notification, batch []models.User) error {
	if n.Channel == models.ChannelEmail {
		return o.email.SendToUsers(ctx, n, batch)
	}
	for i := range batch {
		if err := sender.Send(ctx, n, &batch[i]); err != nil {
			return err
		}
	}
	return nil
}

// invokeCallback fires the completion webhook when one is configured.
// Callback failures are logged and never fail the dispatch.
func (o *Orchestrator) invokeCallback(ctx context.Context, n *models.Notification) {
	if n.Callback == nil || n.Callback.URL == "" {
		return
	}

	method := n.Callback.Method
	if method == "" {
		method = http.MethodPost
	}

	payload, err := json.Marshal(map[string]interface{}{
		"notificationId": n.ID,
		"status":         n.Status,
		"completedAt":    n.CompletedAt,
	})
	if err != nil {
		return
	}

	req, err := http.NewRequest(method, n.Callback.URL, bytes.NewReader(payload))
	if err != nil {
		o.logger.Warn("completion callback request invalid", map[string]interface{}{
			"notification_id": n.ID,
			"error":           err,
		})
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.DoWithContext(ctx, req)
	if err != nil {
		o.logger.Warn("completion callback failed", map[string]interface{}{
			"notification_id": n.ID,
			"error":           err,
		})
		return
	}
	resp.Body.Close()
}

func chunkUsers(users []models.User, size int) [][]models.User {
	if len(users) == 0 {
		return nil
	}
	chunks := make([][]models.User, 0, (len(users)+size-1)/size)
	for start := 0; start < len(users); start += size {
		end := start + size
		if end > len(users) {
			end = len(users)
		}
		chunks = append(chunks, users[start:end])
	}
	return chunks
}

func errorCode(err error) string {
	if stdErr, ok := errors.AsStandardError(err); ok {
		return string(stdErr.Code)
	}
	return "UNKNOWN"
}
