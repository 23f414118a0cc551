package application

import (
	"errors"

	"github.com/oksasatya/go-weather-digest/internal/domain/provider"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already registered")

	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrAlreadyConfirmed      = errors.New("email already confirmed")
	ErrEmailNotConfirmed     = errors.New("email not confirmed")

	ErrCityNameMissing   = errors.New("city name missing")
	ErrCityNotFound      = errors.New("city not found")
	ErrAlreadySubscribed = errors.New("already subscribed")

	// ErrUpstreamUnavailable is the weather provider's error, re-exported for handlers.
	ErrUpstreamUnavailable = provider.ErrUpstreamUnavailable
)
