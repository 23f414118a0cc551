package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-weather-digest/internal/interface/middleware"
	"github.com/oksasatya/go-weather-digest/pkg/helpers"
)

// Deps are the shared pieces every module needs for auth and rate limiting.
// A nil Redis disables session checks and rate limits.
type Deps struct {
	Redis *redis.Client
	JWT   *helpers.JWTManager
}

func (d Deps) auth() gin.HandlerFunc {
	return middleware.Auth(d.Redis, d.JWT)
}

func (d Deps) perIP(max int) gin.HandlerFunc {
	return middleware.RateLimit(d.Redis, max, time.Minute, middleware.KeyByIP(), nil)
}

func (d Deps) perRoute(max int) gin.HandlerFunc {
	return middleware.RateLimit(d.Redis, max, time.Minute, middleware.KeyByIPAndPath(), nil)
}

func (d Deps) perUser(max int) gin.HandlerFunc {
	return middleware.RateLimit(d.Redis, max, time.Minute, middleware.KeyByUserID(), nil)
}

// protected returns a group behind Auth with the softer per-user limit.
func (d Deps) protected(rg *gin.RouterGroup, perUser int) *gin.RouterGroup {
	g := rg.Group("/")
	g.Use(d.auth(), d.perUser(perUser))
	return g
}
