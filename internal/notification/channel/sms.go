package channel

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"notification-dispatcher/internal/common/config"
	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/common/metrics"
	"notification-dispatcher/internal/models"
)

// SNSService abstracts the AWS SNS client for testing.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SmsSender delivers notifications as transactional SMS through AWS SNS.
type SmsSender struct {
	sns    SNSService
	config config.SMSConfig
	logger logger.Logger
}

func NewSmsSender(service SNSService, cfg config.SMSConfig, log logger.Logger) *SmsSender {
	return &SmsSender{
		sns:    service,
		config: cfg,
		logger: log.WithFields(map[string]interface{}{"component": "sms"}),
	}
}

func (s *SmsSender) Channel() models.Channel {
	return models.ChannelSMS
}

func (s *SmsSender) Send(ctx context.Context, n *models.Notification, user *models.User) error {
	if n.SMS == nil {
		return errors.NewValidationFailedError("notification has no sms fields")
	}
	if user == nil || user.Phone == "" {
		return errors.NewValidationFailedError("sms delivery requires a recipient with a phone number")
	}

	senderID := n.SMS.SenderName
	if senderID == "" {
		senderID = s.config.DefaultSenderID
	}

	input := &sns.PublishInput{
		Message:     aws.String(n.SMS.Content),
		PhoneNumber: aws.String(user.Phone),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(senderID),
			},
			"AWS.SNS.SMS.SMSType": {
				DataType:    aws.String("String"),
				StringValue: aws.String("Transactional"),
			},
		},
	}

	out, err := s.sns.Publish(ctx, input)
	if err != nil {
		metrics.ProviderCalls.WithLabelValues("sns", "error").Inc()
		return errors.NewTransportError("sns", err)
	}

	metrics.ProviderCalls.WithLabelValues("sns", "ok").Inc()
	s.logger.Info("sms published", map[string]interface{}{
		"notification_id": n.ID,
		"message_id":      aws.ToString(out.MessageId),
	})
	return nil
}
