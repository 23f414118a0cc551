package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/oksasatya/go-weather-digest/config"
	"github.com/oksasatya/go-weather-digest/internal/container"
	"github.com/oksasatya/go-weather-digest/internal/interface/middleware"
	"github.com/oksasatya/go-weather-digest/internal/router"
	"github.com/oksasatya/go-weather-digest/internal/scheduler"
	"github.com/oksasatya/go-weather-digest/pkg/helpers"
	"github.com/oksasatya/go-weather-digest/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := container.New(ctx, cfg, logger, container.Options{Metrics: true})
	if err != nil {
		log.Fatalf("failed to build container: %v", err)
	}
	defer c.Close()

	if err := c.Migrate(); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	// Gin engine and global middleware
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Length", middleware.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	if cfg.HTTPLogEnabled {
		r.Use(middleware.AccessLog(logger))
	}

	reg := router.NewRegistry(r)
	router.InitModules(reg, c)
	reg.RegisterAll()

	var wg sync.WaitGroup
	if cfg.DigestEnabled {
		daily := scheduler.NewDaily("digest", cfg.DigestHour, cfg.DigestMinute, func(ctx context.Context) error {
			_, err := c.Digest.RunOnce(ctx)
			return err
		}, c.Clock, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			daily.Run(ctx)
		}()
	} else {
		logger.Info("daily digest scheduler disabled")
	}

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}
	// an in-flight digest finishes before resources close
	wg.Wait()
	logger.Info("server exited properly")
}
