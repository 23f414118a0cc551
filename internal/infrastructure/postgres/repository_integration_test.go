//go:build integration

package postgres_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/oksasatya/go-weather-digest/internal/domain/entity"
	"github.com/oksasatya/go-weather-digest/internal/domain/repository"
	"github.com/oksasatya/go-weather-digest/internal/infrastructure/postgres"
)

func startPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("weather"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	require.NoError(t, postgres.RunMigrations(dsn, "../../../db/migrations", logger))
	return dsn
}

func TestRepositories_RelationsAndDigest(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dsn := startPostgres(ctx, t)
	pool, err := postgres.NewPool(ctx, dsn, postgres.PoolOptions{MaxConns: 4, MinConns: 1, MaxConnLife: time.Hour})
	require.NoError(t, err)
	defer pool.Close()

	users := postgres.NewUserRepository(pool)
	cities := postgres.NewCityRepository(pool)
	relations := postgres.NewRelationRepository(pool)

	u := &entity.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
	require.NoError(t, users.Create(ctx, u))

	dup := &entity.User{Username: "alice", Email: "other@example.com", PasswordHash: "x"}
	err = users.Create(ctx, dup)
	var dupErr *repository.DuplicateUserError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, repository.DuplicateUsername, dupErr.Field)
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	paris, created, err := cities.GetOrCreate(ctx, "Paris")
	require.NoError(t, err)
	assert.True(t, created)
	again, created, err := cities.GetOrCreate(ctx, "Paris")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, paris.ID, again.ID)

	lower, _, err := cities.GetOrCreate(ctx, "paris")
	require.NoError(t, err)
	assert.NotEqual(t, paris.ID, lower.ID)

	added, err := relations.AddFavorite(ctx, u.ID, paris.ID)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = relations.AddFavorite(ctx, u.ID, paris.ID)
	require.NoError(t, err)
	assert.False(t, added)

	require.NoError(t, relations.ReplaceSettings(ctx, u.ID, []int64{paris.ID, lower.ID}, []int64{lower.ID}))
	favs, err := relations.ListFavorites(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, favs, 2)
	subs, err := relations.ListSubscriptions(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []entity.City{*lower}, subs)

	err = relations.ReplaceSettings(ctx, u.ID, []int64{999999}, nil)
	assert.ErrorIs(t, err, repository.ErrUnknownCity)
	favs, err = relations.ListFavorites(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, favs, 2, "failed replace must not apply partially")

	recipients, err := relations.ListDigestRecipients(ctx)
	require.NoError(t, err)
	assert.Empty(t, recipients, "unconfirmed users get no digest")

	ok, err := users.MarkEmailConfirmed(ctx, u.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = users.MarkEmailConfirmed(ctx, u.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	recipients, err = relations.ListDigestRecipients(ctx)
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, []string{"paris"}, recipients[0].Cities)

	found, err := cities.SearchByPrefix(ctx, "par", 10)
	require.NoError(t, err)
	assert.Len(t, found, 2)
}
