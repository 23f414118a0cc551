package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-weather-digest/internal/interface/http"
)

// AuthModule routes registration, sessions and email confirmation.
// Public: POST /register, /login, /refresh, GET /confirm/:token
// Protected: POST /logout, /confirm/resend
type AuthModule struct {
	Handler *handlers.AuthHandler
	Deps    Deps
}

func NewAuthModule(h *handlers.AuthHandler, deps Deps) *AuthModule {
	return &AuthModule{Handler: h, Deps: deps}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	rg.POST("/register", m.Deps.perIP(5), m.Handler.Register)
	rg.POST("/login", m.Deps.perIP(10), m.Handler.Login)
	rg.POST("/refresh", m.Deps.perIP(60), m.Handler.Refresh)
	rg.GET("/confirm/:token", m.Deps.perRoute(30), m.Handler.ConfirmEmail)

	auth := m.Deps.protected(rg, 120)
	{
		auth.POST("/logout", m.Handler.Logout)
		// resending mails is the expensive one
		auth.POST("/confirm/resend", m.Deps.perRoute(3), m.Handler.ResendConfirmation)
	}
}
