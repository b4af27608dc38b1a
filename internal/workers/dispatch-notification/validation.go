package dispatchnotification

import (
	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/models"
)

// validateCommand rejects commands that can never be processed, so they are
// committed instead of retried.
func validateCommand(cmd models.DispatchCommand) error {
	if cmd.NotificationID == "" {
		return errors.NewValidationFailedError("notificationId: must not be blank")
	}
	if _, err := models.ParseChannel(cmd.Channel); err != nil {
		return errors.NewValidationFailedError(err.Error())
	}
	return nil
}
