package scope

import (
	"context"

	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/models"
)

// WorkplaceResolver addresses every directory member reachable on the
// channel. The workplace target IDs do not narrow the audience today; the
// directory has no membership endpoint yet.
type WorkplaceResolver struct {
	directory Directory
	logger    logger.Logger
}

func NewWorkplaceResolver(dir Directory, log logger.Logger) *WorkplaceResolver {
	return &WorkplaceResolver{directory: dir, logger: log}
}

func (r *WorkplaceResolver) Resolve(ctx context.Context, n *models.Notification) ([]models.User, error) {
	users, err := fetchAllMembers(ctx, r.directory, n.Channel)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, errors.NewEmptyRecipientsError(string(n.Scope), string(n.Channel))
	}
	return users, nil
}

// fetchAllMembers loads the whole directory and keeps the users addressable
// on the channel.
func fetchAllMembers(ctx context.Context, dir Directory, channel models.Channel) ([]models.User, error) {
	all, err := dir.GetUsers(ctx)
	if err != nil {
		return nil, err
	}
	return filterByCapability(all, channel), nil
}
