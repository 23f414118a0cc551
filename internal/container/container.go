package container

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-weather-digest/config"
	"github.com/oksasatya/go-weather-digest/internal/application"
	"github.com/oksasatya/go-weather-digest/internal/domain/provider"
	repo "github.com/oksasatya/go-weather-digest/internal/domain/repository"
	"github.com/oksasatya/go-weather-digest/internal/infrastructure/archive"
	pginfra "github.com/oksasatya/go-weather-digest/internal/infrastructure/postgres"
	"github.com/oksasatya/go-weather-digest/internal/infrastructure/search"
	"github.com/oksasatya/go-weather-digest/internal/infrastructure/weather"
	"github.com/oksasatya/go-weather-digest/internal/observability"
	"github.com/oksasatya/go-weather-digest/pkg/helpers"
	"github.com/oksasatya/go-weather-digest/pkg/mailer"
)

// Container owns every long-lived component of a process. It is built once
// in main with New and torn down with Close.
type Container struct {
	Cfg     *config.Config
	Logger  *logrus.Logger
	Clock   clockwork.Clock
	Metrics *observability.Metrics

	Pool    *pgxpool.Pool
	Redis   *redis.Client
	GCS     *storage.Client          // nil unless a digest bucket is configured
	ES      *elasticsearch.Client    // nil unless addresses are configured
	Rabbit  *helpers.RabbitPublisher // nil unless RABBITMQ_URL is set
	JWT     *helpers.JWTManager
	Mailer  mailer.Sender
	Weather provider.WeatherProvider

	Users     repo.UserRepository
	Cities    repo.CityRepository
	Relations repo.RelationRepository

	Accounts   *application.AccountService
	CitySvc    *application.CityService
	Favorites  *application.FavoriteService
	WeatherSvc *application.WeatherService
	Digest     *application.DigestService

	closers []func()
}

// Options tune construction for the different binaries.
type Options struct {
	// Metrics registers collectors with the default registry. Only one
	// Container per process may set it.
	Metrics bool
}

// New connects to Postgres and Redis, plus the optional GCS, Elasticsearch
// and RabbitMQ backends, and wires repositories and services on top.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger, opts Options) (*Container, error) {
	c := &Container{Cfg: cfg, Logger: logger, Clock: clockwork.NewRealClock()}
	if opts.Metrics {
		c.Metrics = observability.NewMetrics()
	} else {
		c.Metrics = observability.NewMetricsForTesting()
	}

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{
		MaxConns:    cfg.DBMaxConns,
		MinConns:    cfg.DBMinConns,
		MaxConnLife: cfg.DBMaxConnLife,
		AppName:     cfg.AppName,
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	c.Pool = pool
	c.closers = append(c.closers, pool.Close)

	c.Redis = helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	c.closers = append(c.closers, func() { _ = c.Redis.Close() })
	if err := c.Redis.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("redis unreachable; logins and authenticated requests fail until it recovers, rate limits and weather cache are bypassed")
	}

	if err := c.initOptional(ctx); err != nil {
		c.Close()
		return nil, err
	}

	c.JWT = helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.ConfirmSecret, cfg.AccessTTL, cfg.RefreshTTL, cfg.ConfirmTTL).WithClock(c.Clock)
	c.Mailer = c.selectMailer()

	client := weather.NewClient(cfg.WeatherAPIKey, cfg.WeatherBaseURL, cfg.WeatherTimeout, c.Metrics, logger)
	c.Weather = weather.NewCachedProvider(client, c.Redis, cfg.WeatherCacheTTL, c.Metrics, logger)

	c.Users = pginfra.NewUserRepository(pool)
	c.Cities = pginfra.NewCityRepository(pool)
	c.Relations = pginfra.NewRelationRepository(pool)

	var index application.CityIndexer
	if c.ES != nil {
		ci := search.NewCityIndex(c.ES, cfg.ESCitiesIndex, logger)
		if err := ci.EnsureIndex(ctx); err != nil {
			logger.WithError(err).Warn("ensure city index failed; search uses postgres until it recovers")
		}
		index = ci
	}
	var arch application.Archiver
	if c.GCS != nil {
		arch = archive.NewGCSArchive(c.GCS, cfg.GCSDigestBucket)
	}

	c.Accounts = application.NewAccountService(c.Users, c.JWT, c.Redis, c.Mailer, cfg, logger, c.Clock)
	c.CitySvc = application.NewCityService(c.Cities, index, logger)
	c.Favorites = application.NewFavoriteService(c.Users, c.CitySvc, c.Relations, logger)
	c.WeatherSvc = application.NewWeatherService(c.Weather, logger)
	c.Digest = application.NewDigestService(c.Relations, c.Weather, c.Mailer, arch, cfg, c.Metrics, logger, c.Clock)
	return c, nil
}

func (c *Container) initOptional(ctx context.Context) error {
	cfg := c.Cfg
	if cfg.GCSDigestBucket != "" {
		gcs, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			return fmt.Errorf("init gcs client: %w", err)
		}
		c.GCS = gcs
		c.closers = append(c.closers, func() { _ = gcs.Close() })
	}

	es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err != nil {
		return fmt.Errorf("init elasticsearch client: %w", err)
	}
	c.ES = es

	if cfg.RabbitMQURL != "" {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		c.Rabbit = pub
		c.closers = append(c.closers, pub.Close)
	}
	return nil
}

// selectMailer prefers the queue, then direct Mailgun, then logging only.
func (c *Container) selectMailer() mailer.Sender {
	cfg := c.Cfg
	switch {
	case !cfg.MailSendEnabled:
		c.Logger.Info("mail sending disabled")
		return mailer.LogMailer{Logger: c.Logger}
	case c.Rabbit != nil:
		c.Logger.WithField("queue", cfg.RabbitMQEmailQueue).Info("mail goes through rabbitmq")
		return mailer.NewQueueMailer(c.Rabbit)
	case cfg.MailgunConfigured():
		c.Logger.WithField("domain", cfg.MailgunDomain).Info("mail goes through mailgun")
		return mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
	default:
		c.Logger.Warn("no mail transport configured; messages are only logged")
		return mailer.LogMailer{Logger: c.Logger}
	}
}

// Migrate applies pending schema migrations.
func (c *Container) Migrate() error {
	if err := pginfra.RunMigrations(c.Cfg.PostgresDSN(), c.Cfg.MigrationsDir, c.Logger); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close releases resources in reverse order of acquisition.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
