package channel

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notification-dispatcher/internal/common/config"
	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/models"
)

type mockSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (m *mockSNS) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.inputs = append(m.inputs, params)
	if m.err != nil {
		return nil, m.err
	}
	return &sns.PublishOutput{MessageId: aws.String("mid-1")}, nil
}

func smsNotification() *models.Notification {
	return &models.Notification{
		ID:      "n1",
		Channel: models.ChannelSMS,
		Scope:   models.ScopeIndividual,
		SMS: &models.SMSFields{
			SenderName: "Notify",
			Content:    "your code is 123456",
		},
	}
}

func TestSmsSend_PublishesWithSenderID(t *testing.T) {
	mock := &mockSNS{}
	sender := NewSmsSender(mock, config.SMSConfig{DefaultSenderID: "Default"}, logger.NewTestLogger(t))

	user := &models.User{ID: "u1", Phone: "+491701234567"}
	require.NoError(t, sender.Send(context.Background(), smsNotification(), user))

	require.Len(t, mock.inputs, 1)
	in := mock.inputs[0]
	assert.Equal(t, "your code is 123456", aws.ToString(in.Message))
	assert.Equal(t, "+491701234567", aws.ToString(in.PhoneNumber))
	assert.Equal(t, "Notify", aws.ToString(in.MessageAttributes["AWS.SNS.SMS.SenderID"].StringValue))
	assert.Equal(t, "Transactional", aws.ToString(in.MessageAttributes["AWS.SNS.SMS.SMSType"].StringValue))
}

func TestSmsSend_FallsBackToDefaultSenderID(t *testing.T) {
	mock := &mockSNS{}
	sender := NewSmsSender(mock, config.SMSConfig{DefaultSenderID: "Default"}, logger.NewTestLogger(t))

	n := smsNotification()
	n.SMS.SenderName = ""
	require.NoError(t, sender.Send(context.Background(), n, &models.User{ID: "u1", Phone: "+491701"}))

	assert.Equal(t, "Default", aws.ToString(mock.inputs[0].MessageAttributes["AWS.SNS.SMS.SenderID"].StringValue))
}

func TestSmsSend_RequiresPhone(t *testing.T) {
	mock := &mockSNS{}
	sender := NewSmsSender(mock, config.SMSConfig{}, logger.NewTestLogger(t))

	err := sender.Send(context.Background(), smsNotification(), &models.User{ID: "u1"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))
	assert.Empty(t, mock.inputs)

	err = sender.Send(context.Background(), smsNotification(), nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))
}

func TestSmsSend_TransportError(t *testing.T) {
	mock := &mockSNS{err: assert.AnError}
	sender := NewSmsSender(mock, config.SMSConfig{}, logger.NewTestLogger(t))

	err := sender.Send(context.Background(), smsNotification(), &models.User{ID: "u1", Phone: "+491701"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeTransport))
}
