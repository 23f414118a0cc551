package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-weather-digest/internal/application"
	"github.com/oksasatya/go-weather-digest/internal/domain/entity"
	"github.com/oksasatya/go-weather-digest/pkg/helpers"
	"github.com/oksasatya/go-weather-digest/pkg/response"
	"github.com/oksasatya/go-weather-digest/pkg/validation"
)

// AuthHandler serves registration, login sessions, and email confirmation.
type AuthHandler struct {
	Accounts *application.AccountService
	Logger   *logrus.Logger
	Cookies  *helpers.Manager
}

func NewAuthHandler(accounts *application.AccountService, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{Accounts: accounts, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, cookieSecure)}
}

type registerRequest struct {
	Username string `json:"username" binding:"required,username"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type userResponse struct {
	ID               int64  `json:"id"`
	Username         string `json:"username"`
	Email            string `json:"email"`
	EmailConfirmed   bool   `json:"email_confirmed"`
	EmailConfirmedOn any    `json:"email_confirmed_on"`
}

func toUserResponse(u *entity.User) userResponse {
	r := userResponse{ID: u.ID, Username: u.Username, Email: u.Email, EmailConfirmed: u.EmailConfirmed}
	if u.EmailConfirmedOn != nil {
		r.EmailConfirmedOn = u.EmailConfirmedOn.UTC()
	}
	return r
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Accounts.Register(c.Request.Context(), application.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, toUserResponse(u), "registered; check your email to confirm", nil)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, pair, err := h.Accounts.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success(c, http.StatusOK, toUserResponse(u), "login successful", map[string]any{"access_expires_at": pair.AccessTokenExpiry, "refresh_expires_at": pair.RefreshTokenExpiry})
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	refresh, err := c.Cookie(helpers.RefreshCookie)
	if err != nil || refresh == "" {
		response.Error[any](c, http.StatusUnauthorized, "missing refresh token", nil)
		return
	}
	pair, _, err := h.Accounts.Refresh(c.Request.Context(), refresh)
	if err != nil {
		response.Error[any](c, http.StatusUnauthorized, "invalid refresh token", nil)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success[any](c, http.StatusOK, map[string]any{"refreshed": true}, "token refreshed", map[string]any{"access_expires_at": pair.AccessTokenExpiry, "refresh_expires_at": pair.RefreshTokenExpiry})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.Accounts.Logout(c.Request.Context(), uid); err != nil && h.Logger != nil {
		h.Logger.WithError(err).WithField("user_id", uid).Warn("drop session failed")
	}
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, map[string]any{"logged_out": true}, "logged out", nil)
}

// ConfirmEmail GET /api/confirm/:token
func (h *AuthHandler) ConfirmEmail(c *gin.Context) {
	u, err := h.Accounts.ConfirmEmail(c.Request.Context(), c.Param("token"))
	switch {
	case errors.Is(err, application.ErrAlreadyConfirmed):
		response.Success[any](c, http.StatusOK, map[string]any{"already_confirmed": true}, "already confirmed", nil)
	case err != nil:
		writeError(c, h.Logger, err)
	default:
		response.Success(c, http.StatusOK, toUserResponse(u), "email confirmed", nil)
	}
}

// ResendConfirmation POST /api/confirm/resend (auth required)
func (h *AuthHandler) ResendConfirmation(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	err := h.Accounts.ResendConfirmation(c.Request.Context(), uid)
	switch {
	case errors.Is(err, application.ErrAlreadyConfirmed):
		response.Success[any](c, http.StatusOK, map[string]any{"already_confirmed": true}, "already confirmed", nil)
	case err != nil:
		writeError(c, h.Logger, err)
	default:
		response.Success[any](c, http.StatusAccepted, map[string]any{"sent": true}, "confirmation email sent", nil)
	}
}
