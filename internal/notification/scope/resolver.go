// Package scope expands a notification's audience into concrete recipients.
// Each scope value maps to one resolver strategy.
package scope

import (
	"context"

	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/models"
)

// Directory is the user-directory dependency of the resolvers.
type Directory interface {
	GetUsers(ctx context.Context) ([]models.User, error)
}

// Resolver turns a notification into the list of users it must reach.
// A nil slice with a nil error means a broadcast send with no per-recipient
// loop; that path is only valid for EMAIL.
type Resolver interface {
	Resolve(ctx context.Context, n *models.Notification) ([]models.User, error)
}

// NewResolverMap wires one resolver per scope value.
func NewResolverMap(dir Directory, log logger.Logger) map[models.Scope]Resolver {
	return map[models.Scope]Resolver{
		models.ScopeIndividual: NewIndividualResolver(dir, log),
		models.ScopeGlobal:     NewGlobalResolver(),
		models.ScopeWorkplace:  NewWorkplaceResolver(dir, log),
		models.ScopeSegment:    NewSegmentResolver(dir, log),
	}
}

// filterByCapability drops users that cannot be addressed on the channel.
// EMAIL needs an email address, PUSH a name, SMS a phone number.
func filterByCapability(users []models.User, channel models.Channel) []models.User {
	filtered := make([]models.User, 0, len(users))
	for _, u := range users {
		switch channel {
		case models.ChannelEmail:
			if u.Email == "" {
				continue
			}
		case models.ChannelPush:
			if u.Name == "" {
				continue
			}
		case models.ChannelSMS:
			if u.Phone == "" {
				continue
			}
		}
		filtered = append(filtered, u)
	}
	return filtered
}
