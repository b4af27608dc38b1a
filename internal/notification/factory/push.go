package factory

import (
	"strings"

	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/models"
)

// PushFactory builds PUSH notifications.
type PushFactory struct{}

func NewPushFactory() *PushFactory {
	return &PushFactory{}
}

func (f *PushFactory) Supports(channel string) bool {
	return strings.ToUpper(channel) == string(models.ChannelPush)
}

func (f *PushFactory) CreateFromInput(in *Input, _ []string) (*models.Notification, error) {
	n, err := newBase(in, models.ChannelPush)
	if err != nil {
		return nil, err
	}

	if in.PushTitle == "" {
		return nil, errors.NewValidationFailedError("pushTitle: must not be blank")
	}
	if in.PushContent == "" {
		return nil, errors.NewValidationFailedError("pushContent: must not be blank")
	}

	n.Push = &models.PushFields{
		Topic:    in.Topic,
		Title:    in.PushTitle,
		Subtitle: in.PushSubtitle,
		Content:  in.PushContent,
	}

	return n, nil
}
