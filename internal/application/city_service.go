package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-weather-digest/internal/domain/entity"
	repo "github.com/oksasatya/go-weather-digest/internal/domain/repository"
)

const (
	defaultSearchSize = 10
	maxSearchSize     = 50
)

// CityIndexer is the autocomplete index kept next to the city table.
type CityIndexer interface {
	IndexCity(ctx context.Context, city entity.City) error
	Suggest(ctx context.Context, prefix string, size int) ([]entity.City, error)
}

// CityService is the city registry. Names are matched exactly as entered.
type CityService struct {
	Cities repo.CityRepository
	Index  CityIndexer // optional
	Logger *logrus.Logger
}

func NewCityService(cities repo.CityRepository, index CityIndexer, logger *logrus.Logger) *CityService {
	return &CityService{Cities: cities, Index: index, Logger: logger}
}

func validCityName(name string) bool {
	return strings.TrimSpace(name) != ""
}

// GetOrCreate returns the city named exactly name, creating it on first use.
func (s *CityService) GetOrCreate(ctx context.Context, name string) (*entity.City, error) {
	if !validCityName(name) {
		return nil, ErrCityNameMissing
	}
	city, created, err := s.Cities.GetOrCreate(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get or create city: %w", err)
	}
	if created && s.Index != nil {
		if err := s.Index.IndexCity(ctx, *city); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("city_id", city.ID).Warn("index city failed")
		}
	}
	return city, nil
}

// Lookup returns an existing city without creating it.
func (s *CityService) Lookup(ctx context.Context, name string) (*entity.City, error) {
	if !validCityName(name) {
		return nil, ErrCityNameMissing
	}
	city, err := s.Cities.GetByName(ctx, name)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrCityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get city: %w", err)
	}
	return city, nil
}

// Search suggests cities whose name starts with query. The search index is
// preferred; Postgres answers when it is absent, failing or has no hits,
// since cities created before the index existed are only in the database.
func (s *CityService) Search(ctx context.Context, query string, size int) ([]entity.City, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []entity.City{}, nil
	}
	size = clampSize(size)

	if s.Index != nil {
		cities, err := s.Index.Suggest(ctx, query, size)
		switch {
		case err == nil && len(cities) > 0:
			return cities, nil
		case err != nil && s.Logger != nil:
			s.Logger.WithError(err).Warn("city index search failed, using database")
		}
	}
	cities, err := s.Cities.SearchByPrefix(ctx, query, size)
	if err != nil {
		return nil, fmt.Errorf("search cities: %w", err)
	}
	return cities, nil
}

func clampSize(size int) int {
	switch {
	case size <= 0:
		return defaultSearchSize
	case size > maxSearchSize:
		return maxSearchSize
	default:
		return size
	}
}
