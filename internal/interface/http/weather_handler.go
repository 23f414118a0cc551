package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-weather-digest/internal/application"
	"github.com/oksasatya/go-weather-digest/pkg/response"
	"github.com/oksasatya/go-weather-digest/pkg/validation"
)

type WeatherHandler struct {
	Weather *application.WeatherService
	Logger  *logrus.Logger
}

func NewWeatherHandler(weather *application.WeatherService, logger *logrus.Logger) *WeatherHandler {
	return &WeatherHandler{Weather: weather, Logger: logger}
}

type cityRequest struct {
	City string `json:"city" binding:"required,cityname"`
}

// Blank entries are allowed here; they come back as placeholders.
type citiesRequest struct {
	Cities []string `json:"cities" binding:"required,min=1,max=20"`
}

// Current POST /api/get_weather
func (h *WeatherHandler) Current(c *gin.Context) {
	var req cityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	w, err := h.Weather.Current(c.Request.Context(), req.City)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, w, "current weather", nil)
}

// Multiple POST /api/get_multiple_weather
func (h *WeatherHandler) Multiple(c *gin.Context) {
	var req citiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	res := h.Weather.Multiple(c.Request.Context(), req.Cities)
	failed := 0
	for _, r := range res {
		if r.Error != "" {
			failed++
		}
	}
	response.Success(c, http.StatusOK, res, "weather", map[string]int{"requested": len(req.Cities), "failed": failed})
}

// Forecast POST /api/forecast
func (h *WeatherHandler) Forecast(c *gin.Context) {
	var req cityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	days, err := h.Weather.Forecast(c.Request.Context(), req.City)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"city": req.City, "daily_max": days}, "forecast", nil)
}
