package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-weather-digest/internal/interface/http"
)

type WeatherModule struct {
	Handler *handlers.WeatherHandler
	Deps    Deps
}

func NewWeatherModule(h *handlers.WeatherHandler, deps Deps) *WeatherModule {
	return &WeatherModule{Handler: h, Deps: deps}
}

func (m *WeatherModule) Register(rg *gin.RouterGroup) {
	// the home page polls this one without a session
	rg.POST("/get_multiple_weather", m.Deps.perIP(60), m.Handler.Multiple)

	auth := m.Deps.protected(rg, 120)
	{
		auth.POST("/get_weather", m.Handler.Current)
		auth.POST("/forecast", m.Handler.Forecast)
	}
}
