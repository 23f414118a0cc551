package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-weather-digest/internal/interface/http"
)

type DigestModule struct {
	Handler *handlers.DigestHandler
	Deps    Deps
}

func NewDigestModule(h *handlers.DigestHandler, deps Deps) *DigestModule {
	return &DigestModule{Handler: h, Deps: deps}
}

func (m *DigestModule) Register(rg *gin.RouterGroup) {
	auth := m.Deps.protected(rg, 120)
	auth.POST("/digest/run", m.Deps.perUser(2), m.Handler.Run)
}
