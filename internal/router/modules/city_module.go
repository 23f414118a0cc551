package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-weather-digest/internal/interface/http"
)

type CityModule struct {
	Handler *handlers.CityHandler
	Deps    Deps
}

func NewCityModule(h *handlers.CityHandler, deps Deps) *CityModule {
	return &CityModule{Handler: h, Deps: deps}
}

func (m *CityModule) Register(rg *gin.RouterGroup) {
	rg.GET("/cities/search", m.Deps.perIP(300), m.Handler.Search)
}
