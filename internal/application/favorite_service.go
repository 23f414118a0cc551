package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-weather-digest/internal/domain/entity"
	repo "github.com/oksasatya/go-weather-digest/internal/domain/repository"
)

// FavoriteService manages a user's favourite cities and the email-enabled
// cities that feed the daily digest.
type FavoriteService struct {
	Users     repo.UserRepository
	Cities    *CityService
	Relations repo.RelationRepository
	Logger    *logrus.Logger
}

func NewFavoriteService(users repo.UserRepository, cities *CityService, relations repo.RelationRepository, logger *logrus.Logger) *FavoriteService {
	return &FavoriteService{Users: users, Cities: cities, Relations: relations, Logger: logger}
}

// AddFavorite links userID to the named city. alreadyFavorite is true when the
// pair existed before the call.
func (s *FavoriteService) AddFavorite(ctx context.Context, userID int64, cityName string) (city *entity.City, alreadyFavorite bool, err error) {
	city, err = s.Cities.GetOrCreate(ctx, cityName)
	if err != nil {
		return nil, false, err
	}
	added, err := s.Relations.AddFavorite(ctx, userID, city.ID)
	if err != nil {
		return nil, false, fmt.Errorf("add favourite: %w", err)
	}
	return city, !added, nil
}

// AddSubscription enables digest emails for the named city. The user must
// have confirmed their email; nothing is written otherwise.
func (s *FavoriteService) AddSubscription(ctx context.Context, userID int64, cityName string) (*entity.City, error) {
	if !validCityName(cityName) {
		return nil, ErrCityNameMissing
	}
	if err := s.requireConfirmed(ctx, userID); err != nil {
		return nil, err
	}
	city, err := s.Cities.GetOrCreate(ctx, cityName)
	if err != nil {
		return nil, err
	}
	added, err := s.Relations.AddSubscription(ctx, userID, city.ID)
	if err != nil {
		return nil, fmt.Errorf("add subscription: %w", err)
	}
	if !added {
		return city, ErrAlreadySubscribed
	}
	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{"user_id": userID, "city_id": city.ID}).Info("subscription added")
	}
	return city, nil
}

// ReplaceSettings overwrites both relation sets with exactly the given ids.
func (s *FavoriteService) ReplaceSettings(ctx context.Context, userID int64, favoriteIDs, subscriptionIDs []int64) error {
	subscriptionIDs = dedupe(subscriptionIDs)
	if len(subscriptionIDs) > 0 {
		if err := s.requireConfirmed(ctx, userID); err != nil {
			return err
		}
	}
	err := s.Relations.ReplaceSettings(ctx, userID, dedupe(favoriteIDs), subscriptionIDs)
	if errors.Is(err, repo.ErrUnknownCity) {
		return ErrCityNotFound
	}
	if err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}

// List returns the user's favourites and subscriptions, ordered by name.
func (s *FavoriteService) List(ctx context.Context, userID int64) (favorites, subscriptions []entity.City, err error) {
	favorites, err = s.Relations.ListFavorites(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("list favourites: %w", err)
	}
	subscriptions, err = s.Relations.ListSubscriptions(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return favorites, subscriptions, nil
}

func (s *FavoriteService) requireConfirmed(ctx context.Context, userID int64) error {
	u, err := s.Users.GetByID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if !u.EmailConfirmed {
		return ErrEmailNotConfirmed
	}
	return nil
}

// dedupe keeps the first occurrence of each id.
func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
