// Package channel holds the provider adapters, one per delivery channel.
package channel

import (
	"context"

	"notification-dispatcher/internal/models"
)

// Sender delivers a notification to a single resolved user. A nil user is
// the broadcast form and is only supported by the email adapter, which then
// falls back to the addresses embedded in the notification.
type Sender interface {
	Channel() models.Channel
	Send(ctx context.Context, n *models.Notification, user *models.User) error
}
