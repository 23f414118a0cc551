package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-weather-digest/internal/interface/http"
)

// UserModule wires the profile and the favourite/subscription endpoints.
// All routes require a session.
type UserModule struct {
	Handler *handlers.UserHandler
	Deps    Deps
}

func NewUserModule(h *handlers.UserHandler, deps Deps) *UserModule {
	return &UserModule{Handler: h, Deps: deps}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	auth := m.Deps.protected(rg, 120)
	{
		auth.GET("/profile", m.Handler.GetProfile)
		auth.POST("/add_favourite", m.Handler.AddFavourite)
		auth.POST("/send_scheduled_notifications", m.Handler.Subscribe)
		auth.POST("/settings", m.Handler.Settings)
	}
}
