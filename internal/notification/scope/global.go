package scope

import (
	"context"

	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/models"
)

// GlobalResolver handles broadcast sends. Only EMAIL can deliver without a
// recipient list, so every other channel fails here.
type GlobalResolver struct{}

func NewGlobalResolver() *GlobalResolver {
	return &GlobalResolver{}
}

func (r *GlobalResolver) Resolve(_ context.Context, n *models.Notification) ([]models.User, error) {
	if n.Channel != models.ChannelEmail {
		return nil, errors.NewEmptyRecipientsError(string(n.Scope), string(n.Channel))
	}
	return nil, nil
}
