package weather

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-weather-digest/internal/domain/entity"
	"github.com/oksasatya/go-weather-digest/internal/domain/provider"
	"github.com/oksasatya/go-weather-digest/internal/observability"
	"github.com/oksasatya/go-weather-digest/pkg/helpers"
)

// CachedProvider wraps a WeatherProvider with a Redis cache for current conditions.
// Forecasts pass straight through. Redis errors fall back to the upstream.
type CachedProvider struct {
	inner   provider.WeatherProvider
	rdb     *redis.Client
	ttl     time.Duration
	metrics *observability.Metrics
	logger  *logrus.Logger
}

func NewCachedProvider(inner provider.WeatherProvider, rdb *redis.Client, ttl time.Duration, metrics *observability.Metrics, logger *logrus.Logger) *CachedProvider {
	return &CachedProvider{inner: inner, rdb: rdb, ttl: ttl, metrics: metrics, logger: logger}
}

func currentKey(city string) string { return "weather:current:" + city }

func (c *CachedProvider) Current(ctx context.Context, city string) (*entity.Weather, error) {
	if c.rdb == nil || c.ttl <= 0 {
		return c.inner.Current(ctx, city)
	}
	var cached entity.Weather
	ok, err := helpers.RedisGetJSON(ctx, c.rdb, currentKey(city), &cached)
	if err != nil && c.logger != nil {
		c.logger.WithError(err).WithField("city", city).Warn("weather cache read failed")
	}
	if ok {
		c.observe("hit")
		return &cached, nil
	}
	c.observe("miss")

	w, err := c.inner.Current(ctx, city)
	if err != nil {
		// errors are never cached
		return nil, err
	}
	if err := helpers.RedisSetJSON(ctx, c.rdb, currentKey(city), w, c.ttl); err != nil && c.logger != nil {
		c.logger.WithError(err).WithField("city", city).Warn("weather cache write failed")
	}
	return w, nil
}

func (c *CachedProvider) Forecast(ctx context.Context, city string) ([]entity.DailyMax, error) {
	return c.inner.Forecast(ctx, city)
}

func (c *CachedProvider) observe(result string) {
	if c.metrics != nil {
		c.metrics.WeatherCache.WithLabelValues(result).Inc()
	}
}

var _ provider.WeatherProvider = (*CachedProvider)(nil)
