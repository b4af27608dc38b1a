package factory

import (
	"strings"

	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/common/validation"
	"notification-dispatcher/internal/models"
)

// EmailFactory builds EMAIL notifications.
type EmailFactory struct{}

func NewEmailFactory() *EmailFactory {
	return &EmailFactory{}
}

func (f *EmailFactory) Supports(channel string) bool {
	return strings.ToUpper(channel) == string(models.ChannelEmail)
}

func (f *EmailFactory) CreateFromInput(in *Input, attachmentPaths []string) (*models.Notification, error) {
	n, err := newBase(in, models.ChannelEmail)
	if err != nil {
		return nil, err
	}

	if in.EmailSenderName == "" {
		return nil, errors.NewValidationFailedError("emailSenderName: must not be blank")
	}
	if !validation.ValidateEmail(in.EmailSenderEmail) {
		return nil, errors.NewValidationFailedError("emailSenderEmail: invalid email address")
	}
	if in.EmailSubject == "" {
		return nil, errors.NewValidationFailedError("emailSubject: must not be blank")
	}

	n.Email = &models.EmailFields{
		SenderName:   in.EmailSenderName,
		SenderEmail:  in.EmailSenderEmail,
		Subject:      in.EmailSubject,
		ContentPlain: in.EmailContentPlain,
		ContentHTML:  in.EmailContentHTML,
		TemplateID:   in.TemplateID,
		Recipients:   in.Recipients,
		Cc:           in.EmailCc,
		Bcc:          in.EmailBcc,
		ReplyTo:      in.EmailReplyTo,
	}

	if len(attachmentPaths) > 0 {
		n.Email.Attachments = attachmentPaths
	}

	return n, nil
}
