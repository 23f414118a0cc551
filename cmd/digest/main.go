package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-weather-digest/config"
	"github.com/oksasatya/go-weather-digest/internal/container"
	"github.com/oksasatya/go-weather-digest/pkg/helpers"
)

// digest runs a single dispatch and prints the report as JSON, for cron or manual use.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-digest", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := container.New(ctx, cfg, logger, container.Options{})
	if err != nil {
		log.Fatalf("failed to build container: %v", err)
	}
	defer c.Close()

	report, err := c.Digest.RunOnce(ctx)
	if err != nil {
		logger.WithError(err).Error("digest run failed")
		c.Close()
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)
}
