package dispatch

import (
	"context"
	"time"

	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/models"
	"notification-dispatcher/internal/notification/channel"
	"notification-dispatcher/internal/notification/factory"
	"notification-dispatcher/internal/notification/template"
)

// Store is the persistence surface of the manager.
type Store interface {
	Save(ctx context.Context, n *models.Notification) error
	FindByID(ctx context.Context, id string) (*models.Notification, error)
	MarkCompleted(ctx context.Context, id string, at time.Time) error
	ListByUser(ctx context.Context, userID string) ([]*models.Notification, error)
	Delete(ctx context.Context, id string) error
}

// Publisher emits dispatch commands onto the queue.
type Publisher interface {
	PublishDispatch(ctx context.Context, cmd models.DispatchCommand) error
}

// TemplateClient resolves the variables a Mailjet template requires.
type TemplateClient interface {
	GetRequiredVariables(ctx context.Context, templateID int64) (models.TemplateVariables, error)
}

// Manager is the entry point of the pipeline: it validates and persists new
// notifications, queues their delivery, and runs the inline batch email
// path.
type Manager struct {
	factories    *factory.Resolver
	templates    TemplateClient
	store        Store
	publisher    Publisher
	email        *channel.EmailSender
	orchestrator *Orchestrator
	logger       logger.Logger
	now          func() time.Time
}

func NewManager(
	factories *factory.Resolver,
	templates TemplateClient,
	store Store,
	publisher Publisher,
	email *channel.EmailSender,
	orchestrator *Orchestrator,
	log logger.Logger,
) *Manager {
	return &Manager{
		factories:    factories,
		templates:    templates,
		store:        store,
		publisher:    publisher,
		email:        email,
		orchestrator: orchestrator,
		logger:       log.WithFields(map[string]interface{}{"component": "manager"}),
		now:          time.Now,
	}
}

// CreateNotification builds, verifies and persists a notification, then
// queues a dispatch command for it. Nothing is sent synchronously.
func (m *Manager) CreateNotification(ctx context.Context, in *factory.Input, attachmentPaths []string) (*models.Notification, error) {
	if err := factory.ValidateInput(in); err != nil {
		return nil, err
	}

	n, err := m.factories.CreateNotification(in, in.Channel, attachmentPaths)
	if err != nil {
		return nil, err
	}

	if err := m.verifyEmailContent(ctx, n); err != nil {
		return nil, err
	}

	if err := m.store.Save(ctx, n); err != nil {
		return nil, err
	}

	cmd := models.DispatchCommand{NotificationID: n.ID, Channel: string(n.Channel)}
	if err := m.publisher.PublishDispatch(ctx, cmd); err != nil {
		return nil, err
	}

	m.logger.Info("notification created", map[string]interface{}{
		"notification_id": n.ID,
		"channel":         n.Channel,
		"scope":           n.Scope,
	})
	return n, nil
}

// Dispatch loads a queued notification and delivers it. Notifications
// scheduled in the future come back retryable so the consumer backs off.
func (m *Manager) Dispatch(ctx context.Context, id string) error {
	n, err := m.store.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if n.SendAfter != nil && n.SendAfter.After(m.now()) {
		stdErr := errors.NewValidationFailedError("notification is scheduled for " + n.SendAfter.Format(time.RFC3339))
		stdErr.Retryable = true
		return stdErr
	}

	return m.orchestrator.Dispatch(ctx, n)
}

// SendBatchEmail is the synchronous multi-recipient email path. A recipient
// failing template verification is excluded with a structured entry, without
// blocking its siblings; only adapter-level preparation failures skip the
// provider call entirely.
func (m *Manager) SendBatchEmail(ctx context.Context, in *factory.Input, attachmentPaths []string) ([]channel.RecipientError, error) {
	if err := factory.ValidateInput(in); err != nil {
		return nil, err
	}

	n, err := m.factories.CreateNotification(in, string(models.ChannelEmail), attachmentPaths)
	if err != nil {
		return nil, err
	}
	if len(n.Email.Recipients) == 0 {
		return nil, errors.NewValidationFailedError("recipients: must not be empty")
	}

	eligible, failures, err := m.verifyBatchRecipients(ctx, n)
	if err != nil {
		return nil, err
	}
	if len(eligible) == 0 {
		return failures, nil
	}

	if err := m.store.Save(ctx, n); err != nil {
		return nil, err
	}

	sendFailures, err := m.email.SendToRecipients(ctx, n, eligible)
	if err != nil {
		return nil, err
	}
	failures = append(failures, sendFailures...)
	if len(sendFailures) > 0 {
		return failures, nil
	}

	completedAt := m.now().UTC()
	n.MarkCompleted(completedAt)
	if err := m.store.MarkCompleted(ctx, n.ID, completedAt); err != nil {
		return nil, err
	}
	return failures, nil
}

// ListForUser returns the notifications targeted at one user.
func (m *Manager) ListForUser(ctx context.Context, userID string) ([]*models.Notification, error) {
	return m.store.ListByUser(ctx, userID)
}

// Delete removes one notification.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.store.Delete(ctx, id)
}

// verifyEmailContent enforces the email content contract: a template send
// must provide the variables the template references, and a raw send must
// carry both the plain and the HTML body. Only the first recipient's
// variables are checked here; the single-send path only ever reads that
// recipient.
func (m *Manager) verifyEmailContent(ctx context.Context, n *models.Notification) error {
	if n.Channel != models.ChannelEmail {
		return nil
	}

	if n.Email.TemplateID == 0 {
		if n.Email.ContentPlain == "" || n.Email.ContentHTML == "" {
			return errors.NewValidationFailedError(
				"emailContentPlain and emailContentHtml are required without a template")
		}
		return nil
	}

	required, err := m.templates.GetRequiredVariables(ctx, n.Email.TemplateID)
	if err != nil {
		return err
	}
	if required.IsEmpty() || len(n.Email.Recipients) == 0 {
		return nil
	}

	return template.VerifyRequiredFields(required, n.Email.Recipients[0].Variables)
}

// verifyBatchRecipients splits the recipients into the ones cleared to send
// and the ones excluded by template verification, accumulating failures
// instead of stopping at the first.
func (m *Manager) verifyBatchRecipients(ctx context.Context, n *models.Notification) ([]models.Recipient, []channel.RecipientError, error) {
	if n.Email.TemplateID == 0 {
		if n.Email.ContentPlain == "" || n.Email.ContentHTML == "" {
			return nil, nil, errors.NewValidationFailedError(
				"emailContentPlain and emailContentHtml are required without a template")
		}
		return n.Email.Recipients, nil, nil
	}

	required, err := m.templates.GetRequiredVariables(ctx, n.Email.TemplateID)
	if err != nil {
		return nil, nil, err
	}
	if required.IsEmpty() {
		return n.Email.Recipients, nil, nil
	}

	var eligible []models.Recipient
	var failures []channel.RecipientError
	for _, r := range n.Email.Recipients {
		if err := template.VerifyRequiredFields(required, r.Variables); err != nil {
			failures = append(failures, channel.RecipientError{Recipient: r, Err: err})
			continue
		}
		eligible = append(eligible, r)
	}
	return eligible, failures, nil
}
