package provider

import (
	"context"
	"errors"

	"github.com/oksasatya/go-weather-digest/internal/domain/entity"
)

var (
	// ErrLocationNotFound is returned when the upstream does not know the city.
	ErrLocationNotFound = errors.New("location not found")
	// ErrUpstreamUnavailable wraps transport, status, and decode failures.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// WeatherProvider is the weather fetch adapter. Temperatures are Celsius.
type WeatherProvider interface {
	Current(ctx context.Context, city string) (*entity.Weather, error)
	Forecast(ctx context.Context, city string) ([]entity.DailyMax, error)
}
