package repository

import (
	"context"

	"github.com/oksasatya/go-weather-digest/internal/domain/entity"
)

// CityRepository stores the deduplicated city catalog.
type CityRepository interface {
	// GetOrCreate returns the city with exactly this name, inserting it when absent.
	// created reports whether this call inserted the row.
	GetOrCreate(ctx context.Context, name string) (city *entity.City, created bool, err error)
	GetByName(ctx context.Context, name string) (*entity.City, error)
	SearchByPrefix(ctx context.Context, prefix string, limit int) ([]entity.City, error)
}
