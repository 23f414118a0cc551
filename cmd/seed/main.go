package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-weather-digest/config"
	"github.com/oksasatya/go-weather-digest/internal/application"
	"github.com/oksasatya/go-weather-digest/internal/domain/entity"
	repo "github.com/oksasatya/go-weather-digest/internal/domain/repository"
	pginfra "github.com/oksasatya/go-weather-digest/internal/infrastructure/postgres"
	"github.com/oksasatya/go-weather-digest/pkg/helpers"
)

// seed creates a confirmed demo account with two favourites and one digest city.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)
	ctx := context.Background()

	if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{MaxConns: 2, AppName: cfg.AppName + "-seed"})
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	users := pginfra.NewUserRepository(pool)
	relations := pginfra.NewRelationRepository(pool)
	cities := application.NewCityService(pginfra.NewCityRepository(pool), nil, logger)
	favorites := application.NewFavoriteService(users, cities, relations, logger)

	const (
		username = "demoUser"
		email    = "demo@example.com"
		password = "password123"
	)
	u, err := users.GetByUsername(ctx, username)
	if errors.Is(err, repo.ErrNotFound) {
		hash, herr := helpers.HashPassword(password)
		if herr != nil {
			log.Fatalf("failed to hash password: %v", herr)
		}
		u = &entity.User{Username: username, Email: email, PasswordHash: hash}
		err = users.Create(ctx, u)
	}
	if err != nil {
		log.Fatalf("failed to seed user: %v", err)
	}
	if _, err := users.MarkEmailConfirmed(ctx, u.ID, time.Now().UTC()); err != nil {
		log.Fatalf("failed to confirm user: %v", err)
	}
	fmt.Printf("seeded user: id=%d username=%s email=%s password=%s\n", u.ID, username, email, password)

	for _, name := range []string{"Paris", "Oslo"} {
		if _, _, err := favorites.AddFavorite(ctx, u.ID, name); err != nil {
			log.Fatalf("failed to add favourite %s: %v", name, err)
		}
	}
	if _, err := favorites.AddSubscription(ctx, u.ID, "Paris"); err != nil && !errors.Is(err, application.ErrAlreadySubscribed) {
		log.Fatalf("failed to add subscription: %v", err)
	}
	fmt.Println("favourites: Paris, Oslo; daily digest: Paris")
}
