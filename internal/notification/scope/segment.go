package scope

import (
	"context"

	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/models"
)

// SegmentResolver currently mirrors the workplace strategy: segment
// definitions are not exposed by the directory yet, so a segment send
// reaches every addressable member.
type SegmentResolver struct {
	directory Directory
	logger    logger.Logger
}

func NewSegmentResolver(dir Directory, log logger.Logger) *SegmentResolver {
	return &SegmentResolver{directory: dir, logger: log}
}

func (r *SegmentResolver) Resolve(ctx context.Context, n *models.Notification) ([]models.User, error) {
	users, err := fetchAllMembers(ctx, r.directory, n.Channel)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, errors.NewEmptyRecipientsError(string(n.Scope), string(n.Channel))
	}
	return users, nil
}
