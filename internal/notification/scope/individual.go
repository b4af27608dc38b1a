package scope

import (
	"context"

	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/models"
)

// IndividualResolver resolves the scope target IDs against the directory.
// Unknown IDs are dropped silently.
type IndividualResolver struct {
	directory Directory
	logger    logger.Logger
}

func NewIndividualResolver(dir Directory, log logger.Logger) *IndividualResolver {
	return &IndividualResolver{directory: dir, logger: log}
}

func (r *IndividualResolver) Resolve(ctx context.Context, n *models.Notification) ([]models.User, error) {
	all, err := r.directory.GetUsers(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.User, len(all))
	for _, u := range all {
		byID[u.ID] = u
	}

	users := make([]models.User, 0, len(n.ScopeTarget))
	for _, id := range n.ScopeTarget {
		u, ok := byID[id]
		if !ok {
			r.logger.Warn("scope target not found in directory", map[string]interface{}{
				"notification_id": n.ID,
				"user_id":         id,
			})
			continue
		}
		users = append(users, u)
	}

	users = filterByCapability(users, n.Channel)
	if len(users) == 0 {
		return nil, errors.NewEmptyRecipientsError(string(n.Scope), string(n.Channel))
	}

	return users, nil
}
