package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-weather-digest/internal/application"
	"github.com/oksasatya/go-weather-digest/pkg/response"
	"github.com/oksasatya/go-weather-digest/pkg/validation"
)

type CityHandler struct {
	Cities *application.CityService
	Logger *logrus.Logger
}

func NewCityHandler(cities *application.CityService, logger *logrus.Logger) *CityHandler {
	return &CityHandler{Cities: cities, Logger: logger}
}

type searchQuery struct {
	Q    string `form:"q" binding:"required,max=100"`
	Size int    `form:"size" binding:"omitempty,gte=0"`
}

// Search GET /api/cities/search?q=par&size=10
func (h *CityHandler) Search(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid query", validation.ToDetails(err))
		return
	}
	cities, err := h.Cities.Search(c.Request.Context(), q.Q, q.Size)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, nonNil(cities), "cities", nil)
}
