package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-weather-digest/internal/application"
	"github.com/oksasatya/go-weather-digest/internal/interface/middleware"
	"github.com/oksasatya/go-weather-digest/pkg/response"
)

type errorMapping struct {
	target  error
	status  int
	message string
}

var errorMappings = []errorMapping{
	{application.ErrCityNameMissing, http.StatusBadRequest, "city name missing"},
	{application.ErrCityNotFound, http.StatusNotFound, "city not found"},
	{application.ErrAlreadySubscribed, http.StatusConflict, "already subscribed"},
	{application.ErrEmailNotConfirmed, http.StatusForbidden, "email not confirmed"},
	{application.ErrInvalidOrExpiredToken, http.StatusBadRequest, "invalid or expired token"},
	{application.ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials"},
	{application.ErrUserNotFound, http.StatusNotFound, "user not found"},
	{application.ErrUsernameTaken, http.StatusConflict, "username already taken"},
	{application.ErrEmailTaken, http.StatusConflict, "email already registered"},
	{application.ErrUpstreamUnavailable, http.StatusBadGateway, "weather service unavailable"},
	{application.ErrDigestInProgress, http.StatusConflict, "digest run already in progress"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "request timed out"},
}

// statusFor maps a service error to an HTTP status and client-safe message.
func statusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.message
		}
	}
	return http.StatusInternalServerError, "internal server error"
}

func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error(msg)
	}
	response.Error[any](c, status, msg, nil)
}

// currentUser reads the id set by middleware.Auth, answering 401 when absent.
func currentUser(c *gin.Context) (int64, bool) {
	uid, ok := middleware.UserID(c)
	if !ok {
		response.Error[any](c, http.StatusUnauthorized, "unauthorized", nil)
	}
	return uid, ok
}
