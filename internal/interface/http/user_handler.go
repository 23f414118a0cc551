package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-weather-digest/internal/application"
	"github.com/oksasatya/go-weather-digest/internal/domain/entity"
	"github.com/oksasatya/go-weather-digest/pkg/response"
	"github.com/oksasatya/go-weather-digest/pkg/validation"
)

// UserHandler serves the profile and the favourite/subscription settings.
type UserHandler struct {
	Accounts  *application.AccountService
	Favorites *application.FavoriteService
	Logger    *logrus.Logger
}

func NewUserHandler(accounts *application.AccountService, favorites *application.FavoriteService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Accounts: accounts, Favorites: favorites, Logger: logger}
}

type cityNameRequest struct {
	CityName string `json:"city_name" binding:"required,cityname"`
}

type settingsRequest struct {
	Password   *string `json:"password" binding:"omitempty,pwd"`
	Favourites []int64 `json:"favourites" binding:"omitempty,max=200,dive,gt=0"`
	Enabled    []int64 `json:"enabled" binding:"omitempty,max=200,dive,gt=0"`
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	u, err := h.Accounts.Profile(ctx, uid)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	favs, subs, err := h.Favorites.List(ctx, uid)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"user":       toUserResponse(u),
		"favourites": nonNil(favs),
		"enabled":    nonNil(subs),
	}, "profile", nil)
}

// AddFavourite POST /api/add_favourite
func (h *UserHandler) AddFavourite(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var req cityNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	city, already, err := h.Favorites.AddFavorite(c.Request.Context(), uid, req.CityName)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	if already {
		response.Success(c, http.StatusOK, gin.H{"city": city, "already_favourite": true}, "already favourite", nil)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"city": city, "already_favourite": false}, "favourite added", nil)
}

// Subscribe POST /api/send_scheduled_notifications
func (h *UserHandler) Subscribe(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var req cityNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	city, err := h.Favorites.AddSubscription(c.Request.Context(), uid, req.CityName)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"city": city}, "daily digest enabled", nil)
}

// Settings POST /api/settings replaces both city sets and optionally the password.
func (h *UserHandler) Settings(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	ctx := c.Request.Context()
	if err := h.Favorites.ReplaceSettings(ctx, uid, req.Favourites, req.Enabled); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	if req.Password != nil {
		if err := h.Accounts.UpdatePassword(ctx, uid, *req.Password); err != nil {
			writeError(c, h.Logger, err)
			return
		}
	}
	favs, subs, err := h.Favorites.List(ctx, uid)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"favourites":       nonNil(favs),
		"enabled":          nonNil(subs),
		"password_changed": req.Password != nil,
	}, "settings saved", nil)
}

func nonNil(cities []entity.City) []entity.City {
	if cities == nil {
		return []entity.City{}
	}
	return cities
}
