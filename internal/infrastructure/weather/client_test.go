package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-weather-digest/internal/domain/entity"
	"github.com/oksasatya/go-weather-digest/internal/domain/provider"
	"github.com/oksasatya/go-weather-digest/internal/observability"
	"github.com/oksasatya/go-weather-digest/pkg/helpers"
)

const (
	testAPIKey        = "test-key"
	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"
)

func testClient(baseURL string) *Client {
	return NewClient(testAPIKey, baseURL, 5*time.Second, observability.NewMetricsForTesting(), helpers.NewNopLogger())
}

func TestClient_Current_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		assert.Equal(t, "Paris", r.URL.Query().Get("q"))
		assert.Equal(t, testAPIKey, r.URL.Query().Get("appid"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{
			"coord": {"lon": 2.3488, "lat": 48.8534},
			"weather": [{"description": "clear sky", "icon": "01d"}],
			"main": {"temp": 291.65},
			"name": "Paris",
			"cod": 200
		}`))
	}))
	defer srv.Close()

	w, err := testClient(srv.URL).Current(context.Background(), "Paris")
	require.NoError(t, err)

	assert.Equal(t, "Paris", w.City)
	assert.InDelta(t, 18.5, w.Temperature, 0.001)
	assert.Equal(t, "clear sky", w.Description)
	assert.Equal(t, "01d", w.Icon)
	assert.Equal(t, 2.3488, w.Lon)
	assert.Equal(t, 48.8534, w.Lat)
}

func TestClient_Current_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Current(context.Background(), "Nowhere")
	assert.ErrorIs(t, err, provider.ErrLocationNotFound)
}

func TestClient_Current_StringCodInOKResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Current(context.Background(), "Nowhere")
	assert.ErrorIs(t, err, provider.ErrLocationNotFound)
}

func TestClient_Current_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"cod":401,"message":"Invalid API key"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Current(context.Background(), "Paris")
	require.ErrorIs(t, err, provider.ErrUpstreamUnavailable)
	assert.Contains(t, err.Error(), "401")
}

func TestClient_Current_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Current(context.Background(), "Paris")
	assert.ErrorIs(t, err, provider.ErrUpstreamUnavailable)
}

func TestClient_Current_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := testClient(url).Current(context.Background(), "Paris")
	assert.ErrorIs(t, err, provider.ErrUpstreamUnavailable)
}

func TestClient_Forecast_DailyMax(t *testing.T) {
	day1 := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC).Unix()
	day2 := time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC).Unix()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast", r.URL.Path)
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"cod":"200","list":[
			{"dt": ` + itoa(day2+3*3600) + `, "main": {"temp": 270.15}},
			{"dt": ` + itoa(day1) + `, "main": {"temp": 280.15}},
			{"dt": ` + itoa(day1+3*3600) + `, "main": {"temp": 285.15}},
			{"dt": ` + itoa(day2) + `, "main": {"temp": 268.15}}
		]}`))
	}))
	defer srv.Close()

	days, err := testClient(srv.URL).Forecast(context.Background(), "Oslo")
	require.NoError(t, err)
	require.Len(t, days, 2)

	assert.Equal(t, "2026-01-10", days[0].Date)
	assert.InDelta(t, 12.0, days[0].Temperature, 0.001)
	assert.Equal(t, "2026-01-11", days[1].Date)
	assert.InDelta(t, -3.0, days[1].Temperature, 0.001, "sub-zero maxima must not floor at zero")
}

func TestCachedProvider_WithoutRedisPassesThrough(t *testing.T) {
	inner := &stubProvider{w: &entity.Weather{City: "Paris", Temperature: 20}}
	c := NewCachedProvider(inner, nil, time.Minute, nil, nil)

	w, err := c.Current(context.Background(), "Paris")
	require.NoError(t, err)
	assert.Equal(t, "Paris", w.City)

	_, err = c.Current(context.Background(), "Paris")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

type stubProvider struct {
	w     *entity.Weather
	calls int
}

func (s *stubProvider) Current(context.Context, string) (*entity.Weather, error) {
	s.calls++
	return s.w, nil
}

func (s *stubProvider) Forecast(context.Context, string) ([]entity.DailyMax, error) {
	return nil, nil
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
