package channel

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"notification-dispatcher/internal/common/config"
	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/common/metrics"
	"notification-dispatcher/internal/models"
)

// HTTPClient is the outbound HTTP dependency.
type HTTPClient interface {
	DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error)
}

type mailjetAddress struct {
	Email string `json:"Email"`
	Name  string `json:"Name,omitempty"`
}

type mailjetAttachment struct {
	ContentType   string `json:"ContentType"`
	Filename      string `json:"Filename"`
	Base64Content string `json:"Base64Content"`
}

type mailjetMessage struct {
	From             mailjetAddress         `json:"From"`
	To               []mailjetAddress       `json:"To"`
	Cc               []mailjetAddress       `json:"Cc,omitempty"`
	Bcc              []mailjetAddress       `json:"Bcc,omitempty"`
	ReplyTo          *mailjetAddress        `json:"ReplyTo,omitempty"`
	Subject          string                 `json:"Subject"`
	TextPart         string                 `json:"TextPart,omitempty"`
	HTMLPart         string                 `json:"HTMLPart,omitempty"`
	TemplateID       int64                  `json:"TemplateID,omitempty"`
	TemplateLanguage bool                   `json:"TemplateLanguage,omitempty"`
	Variables        map[string]interface{} `json:"Variables,omitempty"`
	Attachments      []mailjetAttachment    `json:"Attachments,omitempty"`
}

type mailjetRequest struct {
	Messages []mailjetMessage `json:"Messages"`
}

// RecipientError pairs a recipient with the reason it was not prepared.
type RecipientError struct {
	Recipient models.Recipient `json:"recipient"`
	Err       error            `json:"error"`
}

// EmailSender delivers notifications through the Mailjet v3.1 send API.
type EmailSender struct {
	httpClient HTTPClient
	config     config.MailjetConfig
	uploadDir  string
	logger     logger.Logger
}

func NewEmailSender(httpClient HTTPClient, cfg config.MailjetConfig, uploadDir string, log logger.Logger) *EmailSender {
	return &EmailSender{
		httpClient: httpClient,
		config:     cfg,
		uploadDir:  uploadDir,
		logger:     log.WithFields(map[string]interface{}{"component": "mailjet"}),
	}
}

func (s *EmailSender) Channel() models.Channel {
	return models.ChannelEmail
}

// Send delivers one message. With a resolved user the address comes from the
// directory record; without one only the first embedded recipient is used.
func (s *EmailSender) Send(ctx context.Context, n *models.Notification, user *models.User) error {
	if n.Email == nil {
		return errors.NewValidationFailedError("notification has no email fields")
	}

	attachments, err := s.loadAttachments(n.Email.Attachments)
	if err != nil {
		return err
	}

	var to []mailjetAddress
	var variables map[string]interface{}

	switch {
	case user != nil:
		to = []mailjetAddress{{Email: user.Email, Name: user.Name}}
		if len(n.Email.Recipients) > 0 {
			variables = n.Email.Recipients[0].Variables
		}
	case len(n.Email.Recipients) > 0:
		first := n.Email.Recipients[0]
		to = toMailjetAddresses(first.Email)
		variables = first.Variables
	default:
		return errors.NewValidationFailedError("notification has no email recipients")
	}

	msg := s.buildMessage(n, to, variables, attachments)
	return s.post(ctx, []mailjetMessage{msg})
}

// SendToUsers delivers one message per user in a single API call. The
// variables of the first embedded recipient are shared across the batch.
func (s *EmailSender) SendToUsers(ctx context.Context, n *models.Notification, users []models.User) error {
	if n.Email == nil {
		return errors.NewValidationFailedError("notification has no email fields")
	}
	if len(users) == 0 {
		return nil
	}

	attachments, err := s.loadAttachments(n.Email.Attachments)
	if err != nil {
		return err
	}

	var variables map[string]interface{}
	if len(n.Email.Recipients) > 0 {
		variables = n.Email.Recipients[0].Variables
	}

	messages := make([]mailjetMessage, 0, len(users))
	for _, u := range users {
		to := []mailjetAddress{{Email: u.Email, Name: u.Name}}
		messages = append(messages, s.buildMessage(n, to, variables, attachments))
	}

	return s.post(ctx, messages)
}

// SendToRecipients prepares one message per embedded recipient, each with
// its own variables. If any recipient fails preparation the API call is
// skipped entirely and the per-recipient failures are returned.
func (s *EmailSender) SendToRecipients(ctx context.Context, n *models.Notification, recipients []models.Recipient) ([]RecipientError, error) {
	if n.Email == nil {
		return nil, errors.NewValidationFailedError("notification has no email fields")
	}

	attachments, err := s.loadAttachments(n.Email.Attachments)
	if err != nil {
		return nil, err
	}

	var failures []RecipientError
	messages := make([]mailjetMessage, 0, len(recipients))
	for _, r := range recipients {
		if len(r.Email) == 0 {
			failures = append(failures, RecipientError{
				Recipient: r,
				Err:       errors.NewValidationFailedError("recipient has no email address"),
			})
			continue
		}
		messages = append(messages, s.buildMessage(n, toMailjetAddresses(r.Email), r.Variables, attachments))
	}

	if len(failures) > 0 {
		return failures, nil
	}
	if len(messages) == 0 {
		return nil, nil
	}

	if err := s.post(ctx, messages); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *EmailSender) buildMessage(n *models.Notification, to []mailjetAddress, variables map[string]interface{}, attachments []mailjetAttachment) mailjetMessage {
	e := n.Email
	msg := mailjetMessage{
		From:        mailjetAddress{Email: e.SenderEmail, Name: e.SenderName},
		To:          to,
		Cc:          toMailjetAddresses(e.Cc),
		Bcc:         toMailjetAddresses(e.Bcc),
		Subject:     e.Subject,
		Attachments: attachments,
	}
	if e.ReplyTo != nil {
		msg.ReplyTo = &mailjetAddress{Email: e.ReplyTo.Address, Name: e.ReplyTo.Name}
	}

	if e.TemplateID != 0 {
		msg.TemplateID = e.TemplateID
		msg.TemplateLanguage = true
		msg.Variables = variables
	} else {
		msg.TextPart = e.ContentPlain
		msg.HTMLPart = e.ContentHTML
	}
	return msg
}

func (s *EmailSender) post(ctx context.Context, messages []mailjetMessage) error {
	payload, err := json.Marshal(mailjetRequest{Messages: messages})
	if err != nil {
		return errors.NewTransportError("mailjet", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.config.SendURL, bytes.NewReader(payload))
	if err != nil {
		return errors.NewTransportError("mailjet", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(s.config.APIKey, s.config.SecretKey)

	resp, err := s.httpClient.DoWithContext(ctx, req)
	if err != nil {
		metrics.ProviderCalls.WithLabelValues("mailjet", "error").Inc()
		return errors.NewTransportError("mailjet", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.ProviderCalls.WithLabelValues("mailjet", "error").Inc()
		return errors.NewTransportError("mailjet",
			fmt.Errorf("send API returned status %d", resp.StatusCode))
	}

	metrics.ProviderCalls.WithLabelValues("mailjet", "ok").Inc()
	s.logger.Info("mailjet batch accepted", map[string]interface{}{"messages": len(messages)})
	return nil
}

func (s *EmailSender) loadAttachments(paths []string) ([]mailjetAttachment, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	attachments := make([]mailjetAttachment, 0, len(paths))
	for _, p := range paths {
		full := p
		if !filepath.IsAbs(full) {
			full = filepath.Join(s.uploadDir, p)
		}
		data, err := os.ReadFile(full)
		if err != nil {
			return nil, errors.NewValidationFailedError(
				fmt.Sprintf("attachment %s could not be read: %s", p, err))
		}

		contentType := mime.TypeByExtension(filepath.Ext(p))
		if contentType == "" {
			contentType = http.DetectContentType(data)
		}

		attachments = append(attachments, mailjetAttachment{
			ContentType:   contentType,
			Filename:      filepath.Base(p),
			Base64Content: base64.StdEncoding.EncodeToString(data),
		})
	}
	return attachments, nil
}

func toMailjetAddresses(addrs []models.Address) []mailjetAddress {
	if len(addrs) == 0 {
		return nil
	}
	out := make([]mailjetAddress, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, mailjetAddress{Email: a.Address, Name: a.Name})
	}
	return out
}
