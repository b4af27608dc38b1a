// Package factory builds typed notifications from the generic dispatch
// payload, one factory per channel.
package factory

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/common/validation"
	"notification-dispatcher/internal/models"
)

// Input is the generic field-keyed payload of a dispatch request. Only the
// fields matching the declared channel are consumed by the selected factory.
type Input struct {
	Channel     string           `json:"channel"`
	Scope       string           `json:"scope"`
	ScopeTarget []string         `json:"scopeTarget,omitempty"`
	SendAfter   string           `json:"sendAfter,omitempty"`
	Callback    *models.Callback `json:"callback,omitempty"`

	Topic        string `json:"topic,omitempty"`
	PushTitle    string `json:"pushTitle,omitempty"`
	PushSubtitle string `json:"pushSubtitle,omitempty"`
	PushContent  string `json:"pushContent,omitempty"`

	SmsSenderName string `json:"smsSenderName,omitempty"`
	SmsContent    string `json:"smsContent,omitempty"`

	TemplateID        int64              `json:"templateId,omitempty"`
	Recipients        []models.Recipient `json:"recipients,omitempty"`
	EmailSenderName   string             `json:"emailSenderName,omitempty"`
	EmailSenderEmail  string             `json:"emailSenderEmail,omitempty"`
	EmailSubject      string             `json:"emailSubject,omitempty"`
	EmailContentPlain string             `json:"emailContentPlain,omitempty"`
	EmailContentHTML  string             `json:"emailContentHtml,omitempty"`
	EmailCc           []models.Address   `json:"emailRecipientsCc,omitempty"`
	EmailBcc          []models.Address   `json:"emailRecipientsBcc,omitempty"`
	EmailReplyTo      *models.Address    `json:"emailRecipientsReplyTo,omitempty"`
}

// Factory builds a typed notification for one channel.
type Factory interface {
	Supports(channel string) bool
	CreateFromInput(in *Input, attachmentPaths []string) (*models.Notification, error)
}

// Resolver selects the first registered factory whose Supports predicate
// matches the requested channel.
type Resolver struct {
	factories []Factory
}

func NewResolver(factories ...Factory) *Resolver {
	return &Resolver{factories: factories}
}

// CreateNotification resolves a factory for channel and builds the typed
// notification. An unknown channel is fatal for the request.
func (r *Resolver) CreateNotification(in *Input, channel string, attachmentPaths []string) (*models.Notification, error) {
	for _, f := range r.factories {
		if f.Supports(channel) {
			return f.CreateFromInput(in, attachmentPaths)
		}
	}
	return nil, errors.NewNoFactoryFoundError(channel)
}

// newBase populates the fields common to all channels. ScopeTarget is only
// carried for INDIVIDUAL and WORKPLACE scopes.
func newBase(in *Input, channel models.Channel) (*models.Notification, error) {
	scope, err := models.ParseScope(in.Scope)
	if err != nil {
		return nil, errors.NewValidationFailedError(err.Error())
	}

	n := &models.Notification{
		ID:      uuid.New().String(),
		Channel: channel,
		Scope:   scope,
		Status:  models.StatusPending,
	}

	if scope == models.ScopeIndividual || scope == models.ScopeWorkplace {
		n.ScopeTarget = in.ScopeTarget
	}

	if in.SendAfter != "" {
		sendAfter, err := time.Parse(time.RFC3339, in.SendAfter)
		if err != nil {
			return nil, errors.NewValidationFailedError(
				fmt.Sprintf("sendAfter: invalid timestamp %q", in.SendAfter))
		}
		n.SendAfter = &sendAfter
	}

	if in.Callback != nil {
		if !validation.ValidateURL(in.Callback.URL) {
			return nil, errors.NewValidationFailedError(
				fmt.Sprintf("callback: invalid url %q", in.Callback.URL))
		}
		n.Callback = in.Callback
	}

	return n, nil
}
