package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oksasatya/go-weather-digest/internal/interface/middleware"
)

type DebugModule struct {
	Deps Deps
}

func NewDebugModule(deps Deps) *DebugModule { return &DebugModule{Deps: deps} }

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	// Prometheus scrape endpoint; in-cluster scrapers skip the per-IP limit
	rl := middleware.RateLimit(m.Deps.Redis, 120, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
	rg.GET("/metrics", rl, gin.WrapH(promhttp.Handler()))
}
