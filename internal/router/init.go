package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-weather-digest/internal/container"
	handlers "github.com/oksasatya/go-weather-digest/internal/interface/http"
	"github.com/oksasatya/go-weather-digest/internal/router/modules"
	"github.com/oksasatya/go-weather-digest/pkg/response"
)

// InitModules builds the HTTP handlers from the container and registers
// every feature module. Call once during startup, before RegisterAll.
func InitModules(r *Registry, c *container.Container) {
	cfg := c.Cfg
	deps := modules.Deps{Redis: c.Redis, JWT: c.JWT}

	authH := handlers.NewAuthHandler(c.Accounts, c.Logger, cfg.CookieDomain, cfg.CookieSecure)
	userH := handlers.NewUserHandler(c.Accounts, c.Favorites, c.Logger)
	weatherH := handlers.NewWeatherHandler(c.WeatherSvc, c.Logger)
	cityH := handlers.NewCityHandler(c.CitySvc, c.Logger)
	digestH := handlers.NewDigestHandler(c.Digest, cfg.DigestOperatorIDs(), c.Logger)

	r.Add(
		modules.NewAuthModule(authH, deps),
		modules.NewUserModule(userH, deps),
		modules.NewWeatherModule(weatherH, deps),
		modules.NewCityModule(cityH, deps),
		modules.NewDigestModule(digestH, deps),
		Healthz(c.Pool),
	)
	if cfg.MetricsEnabled {
		r.Add(modules.NewDebugModule(deps))
	}
}

// Healthz serves GET /api/healthz, reporting 503 while Postgres is unreachable.
// A nil pool always reports healthy.
func Healthz(pool *pgxpool.Pool) Module {
	return ModuleFunc(func(rg *gin.RouterGroup) {
		rg.GET("/healthz", func(c *gin.Context) {
			if pool != nil {
				ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
				defer cancel()
				if err := pool.Ping(ctx); err != nil {
					response.Error[any](c, http.StatusServiceUnavailable, "database unavailable", nil)
					return
				}
			}
			response.Success[any](c, http.StatusOK, map[string]any{"ok": true}, "healthy", nil)
		})
	})
}
