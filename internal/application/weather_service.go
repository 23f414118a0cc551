package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-weather-digest/internal/domain/entity"
	"github.com/oksasatya/go-weather-digest/internal/domain/provider"
)

// CityWeather is one entry of a multi-city lookup. Exactly one of Weather
// and Error is set.
type CityWeather struct {
	City    string          `json:"city"`
	Weather *entity.Weather `json:"weather,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type WeatherService struct {
	Provider provider.WeatherProvider
	Logger   *logrus.Logger
}

func NewWeatherService(p provider.WeatherProvider, logger *logrus.Logger) *WeatherService {
	return &WeatherService{Provider: p, Logger: logger}
}

func (s *WeatherService) Current(ctx context.Context, city string) (*entity.Weather, error) {
	if !validCityName(city) {
		return nil, ErrCityNameMissing
	}
	w, err := s.Provider.Current(ctx, city)
	if err != nil {
		return nil, mapProviderErr(err)
	}
	return w, nil
}

// Multiple looks up each city in order. A failed city yields a placeholder
// entry rather than failing the batch.
func (s *WeatherService) Multiple(ctx context.Context, cities []string) []CityWeather {
	out := make([]CityWeather, 0, len(cities))
	for _, city := range cities {
		w, err := s.Current(ctx, city)
		if err != nil {
			if s.Logger != nil {
				s.Logger.WithError(err).WithField("city", city).Debug("weather lookup failed")
			}
			out = append(out, CityWeather{City: city, Error: placeholder(err)})
			continue
		}
		out = append(out, CityWeather{City: city, Weather: w})
	}
	return out
}

func (s *WeatherService) Forecast(ctx context.Context, city string) ([]entity.DailyMax, error) {
	if !validCityName(city) {
		return nil, ErrCityNameMissing
	}
	days, err := s.Provider.Forecast(ctx, city)
	if err != nil {
		return nil, mapProviderErr(err)
	}
	return days, nil
}

func mapProviderErr(err error) error {
	if errors.Is(err, provider.ErrLocationNotFound) {
		return fmt.Errorf("%w: %v", ErrCityNotFound, err)
	}
	return err
}

func placeholder(err error) string {
	switch {
	case errors.Is(err, ErrCityNotFound):
		return "city not found"
	case errors.Is(err, ErrCityNameMissing):
		return "city name missing"
	default:
		return "weather data unavailable"
	}
}
