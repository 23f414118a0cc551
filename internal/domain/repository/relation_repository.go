package repository

import (
	"context"

	"github.com/oksasatya/go-weather-digest/internal/domain/entity"
)

// RelationRepository manages the favourite and email-subscription links
// between users and cities.
type RelationRepository interface {
	// AddFavorite records the pair; added is false when it already existed.
	AddFavorite(ctx context.Context, userID, cityID int64) (added bool, err error)
	// AddSubscription records the pair; added is false when it already existed.
	AddSubscription(ctx context.Context, userID, cityID int64) (added bool, err error)
	ListFavorites(ctx context.Context, userID int64) ([]entity.City, error)
	ListSubscriptions(ctx context.Context, userID int64) ([]entity.City, error)
	// ReplaceSettings overwrites both sets in one transaction.
	// It returns ErrUnknownCity when any id does not reference a city.
	ReplaceSettings(ctx context.Context, userID int64, favoriteIDs, subscriptionIDs []int64) error
	ListDigestRecipients(ctx context.Context) ([]entity.DigestRecipient, error)
}
