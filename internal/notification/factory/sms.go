package factory

import (
	"fmt"
	"strings"

	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/models"
)

const (
	maxSmsSenderNameLen = 11
	maxSmsContentLen    = 320
)

// SmsFactory builds SMS notifications.
type SmsFactory struct{}

func NewSmsFactory() *SmsFactory {
	return &SmsFactory{}
}

func (f *SmsFactory) Supports(channel string) bool {
	return strings.ToUpper(channel) == string(models.ChannelSMS)
}

func (f *SmsFactory) CreateFromInput(in *Input, _ []string) (*models.Notification, error) {
	n, err := newBase(in, models.ChannelSMS)
	if err != nil {
		return nil, err
	}

	if in.SmsSenderName == "" {
		return nil, errors.NewValidationFailedError("smsSenderName: must not be blank")
	}
	if len(in.SmsSenderName) > maxSmsSenderNameLen {
		return nil, errors.NewValidationFailedError(
			fmt.Sprintf("smsSenderName: must be at most %d characters", maxSmsSenderNameLen))
	}
	if in.SmsContent == "" {
		return nil, errors.NewValidationFailedError("smsContent: must not be blank")
	}
	if len(in.SmsContent) > maxSmsContentLen {
		return nil, errors.NewValidationFailedError(
			fmt.Sprintf("smsContent: must be at most %d characters", maxSmsContentLen))
	}

	n.SMS = &models.SMSFields{
		SenderName: in.SmsSenderName,
		Content:    in.SmsContent,
	}

	return n, nil
}
