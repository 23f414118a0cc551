package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-weather-digest/internal/application"
	"github.com/oksasatya/go-weather-digest/internal/domain/entity"
	"github.com/oksasatya/go-weather-digest/internal/domain/provider"
	"github.com/oksasatya/go-weather-digest/internal/interface/middleware"
	"github.com/oksasatya/go-weather-digest/pkg/helpers"
	"github.com/oksasatya/go-weather-digest/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
}

type envelope struct {
	Status  int               `json:"status"`
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Error   map[string]string `json:"error"`
}

func do(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

// asUser stands in for middleware.Auth.
func asUser(id int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.CtxUserIDKey, id)
		c.Next()
	}
}

type stubProvider struct{}

func (stubProvider) Current(_ context.Context, city string) (*entity.Weather, error) {
	switch city {
	case "Paris":
		return &entity.Weather{City: "Paris", Temperature: 18.5, Description: "clear sky", Icon: "01d"}, nil
	case "Down":
		return nil, fmt.Errorf("%w: status 503", provider.ErrUpstreamUnavailable)
	default:
		return nil, provider.ErrLocationNotFound
	}
}

func (stubProvider) Forecast(_ context.Context, city string) ([]entity.DailyMax, error) {
	if city != "Oslo" {
		return nil, provider.ErrLocationNotFound
	}
	return []entity.DailyMax{{Date: "2026-01-10", Temperature: -3}}, nil
}

func weatherEngine() *gin.Engine {
	h := NewWeatherHandler(application.NewWeatherService(stubProvider{}, helpers.NewNopLogger()), helpers.NewNopLogger())
	r := gin.New()
	r.POST("/get_weather", h.Current)
	r.POST("/get_multiple_weather", h.Multiple)
	r.POST("/forecast", h.Forecast)
	return r
}

func TestWeatherHandler_Current(t *testing.T) {
	r := weatherEngine()

	w, env := do(t, r, http.MethodPost, "/get_weather", `{"city":"Paris"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	var got entity.Weather
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, 18.5, got.Temperature)

	w, env = do(t, r, http.MethodPost, "/get_weather", `{"city":"Atlantis"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "city not found", env.Message)

	w, _ = do(t, r, http.MethodPost, "/get_weather", `{"city":"Down"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w, env = do(t, r, http.MethodPost, "/get_weather", `{"city":"  "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "must not be blank", env.Error["city"])
}

func TestWeatherHandler_MultipleKeepsOrderWithPlaceholders(t *testing.T) {
	w, env := do(t, weatherEngine(), http.MethodPost, "/get_multiple_weather", `{"cities":["Paris","Atlantis"]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var got []application.CityWeather
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Paris", got[0].City)
	require.NotNil(t, got[0].Weather)
	assert.Equal(t, "Atlantis", got[1].City)
	assert.Equal(t, "city not found", got[1].Error)
}

func TestWeatherHandler_Forecast(t *testing.T) {
	w, env := do(t, weatherEngine(), http.MethodPost, "/forecast", `{"city":"Oslo"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"temperature":-3`)
}

type stubCities struct{ cities []entity.City }

func (s stubCities) GetOrCreate(context.Context, string) (*entity.City, bool, error) {
	return nil, false, errors.New("not used")
}

func (s stubCities) GetByName(context.Context, string) (*entity.City, error) {
	return nil, errors.New("not used")
}

func (s stubCities) SearchByPrefix(_ context.Context, prefix string, limit int) ([]entity.City, error) {
	var out []entity.City
	for _, c := range s.cities {
		if strings.HasPrefix(c.Name, prefix) && len(out) < limit {
			out = append(out, c)
		}
	}
	return out, nil
}

func TestCityHandler_Search(t *testing.T) {
	svc := application.NewCityService(stubCities{cities: []entity.City{{ID: 1, Name: "Paris"}, {ID: 2, Name: "Parma"}, {ID: 3, Name: "Oslo"}}}, nil, helpers.NewNopLogger())
	h := NewCityHandler(svc, helpers.NewNopLogger())
	r := gin.New()
	r.GET("/cities/search", h.Search)

	w, env := do(t, r, http.MethodGet, "/cities/search?q=Par&size=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id":1,"name":"Paris"}]`, string(env.Data))

	w, env = do(t, r, http.MethodGet, "/cities/search?q=Zz", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(env.Data))

	w, _ = do(t, r, http.MethodGet, "/cities/search", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserHandler_ValidationBeforeService(t *testing.T) {
	h := NewUserHandler(nil, nil, helpers.NewNopLogger())
	r := gin.New()
	r.POST("/add_favourite", asUser(1), h.AddFavourite)
	r.POST("/settings", asUser(1), h.Settings)
	r.POST("/anon", h.AddFavourite)

	w, env := do(t, r, http.MethodPost, "/add_favourite", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "is required", env.Error["city_name"])

	w, env = do(t, r, http.MethodPost, "/settings", `{"favourites":[1,-2],"password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error, "favourites[1]")
	assert.Contains(t, env.Error, "password")

	w, _ = do(t, r, http.MethodPost, "/anon", `{"city_name":"Paris"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

type chanRunner struct{ called chan struct{} }

func (r chanRunner) RunOnce(context.Context) (application.DigestReport, error) {
	close(r.called)
	return application.DigestReport{}, nil
}

func TestDigestHandler_OperatorRunIsAsync(t *testing.T) {
	runner := chanRunner{called: make(chan struct{})}
	h := NewDigestHandler(runner, []int64{7}, helpers.NewNopLogger())
	r := gin.New()
	r.POST("/digest/run", asUser(7), h.Run)

	w, env := do(t, r, http.MethodPost, "/digest/run", "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.True(t, env.Success)

	select {
	case <-runner.called:
	case <-time.After(2 * time.Second):
		t.Fatal("digest run was not started")
	}
}

func TestDigestHandler_RegularUserForbidden(t *testing.T) {
	for name, operators := range map[string][]int64{"other operator": {7}, "no operators": nil} {
		t.Run(name, func(t *testing.T) {
			runner := chanRunner{called: make(chan struct{})}
			h := NewDigestHandler(runner, operators, helpers.NewNopLogger())
			r := gin.New()
			r.POST("/digest/run", asUser(1), h.Run)

			w, env := do(t, r, http.MethodPost, "/digest/run", "")
			assert.Equal(t, http.StatusForbidden, w.Code)
			assert.False(t, env.Success)

			select {
			case <-runner.called:
				t.Fatal("digest run started for a regular user")
			case <-time.After(50 * time.Millisecond):
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{application.ErrCityNameMissing, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", application.ErrCityNotFound), http.StatusNotFound},
		{application.ErrAlreadySubscribed, http.StatusConflict},
		{application.ErrEmailNotConfirmed, http.StatusForbidden},
		{application.ErrInvalidOrExpiredToken, http.StatusBadRequest},
		{application.ErrInvalidCredentials, http.StatusUnauthorized},
		{application.ErrEmailTaken, http.StatusConflict},
		{fmt.Errorf("%w: timeout", provider.ErrUpstreamUnavailable), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		status, _ := statusFor(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
	}
}
