package weather

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-weather-digest/internal/domain/entity"
	"github.com/oksasatya/go-weather-digest/internal/domain/provider"
	"github.com/oksasatya/go-weather-digest/internal/observability"
)

const (
	endpointCurrent  = "current"
	endpointForecast = "forecast"
)

// Client implements provider.WeatherProvider using the OpenWeatherMap 2.5 API.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *logrus.Logger
}

// NewClient creates an OpenWeatherMap client. baseURL is usually
// https://api.openweathermap.org/data/2.5.
func NewClient(apiKey, baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *logrus.Logger) *Client {
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		metrics:    metrics,
		logger:     logger,
	}
}

// Current returns the current conditions for city.
func (c *Client) Current(ctx context.Context, city string) (*entity.Weather, error) {
	var body currentResponse
	if err := c.get(ctx, endpointCurrent, "/weather", city, &body); err != nil {
		return nil, err
	}
	w := &entity.Weather{
		City:        body.Name,
		Temperature: entity.KelvinToCelsius(body.Main.Temp),
		Lon:         body.Coord.Lon,
		Lat:         body.Coord.Lat,
	}
	if len(body.Weather) > 0 {
		w.Description = body.Weather[0].Description
		w.Icon = body.Weather[0].Icon
	}
	if w.City == "" {
		w.City = city
	}
	return w, nil
}

// Forecast groups the 3-hourly forecast by UTC date and keeps each day's maximum.
func (c *Client) Forecast(ctx context.Context, city string) ([]entity.DailyMax, error) {
	var body forecastResponse
	if err := c.get(ctx, endpointForecast, "/forecast", city, &body); err != nil {
		return nil, err
	}
	return dailyMax(body.List), nil
}

func dailyMax(items []forecastItem) []entity.DailyMax {
	best := make(map[string]float64)
	for _, it := range items {
		day := time.Unix(it.Dt, 0).UTC().Format("2006-01-02")
		temp := entity.KelvinToCelsius(it.Main.Temp)
		if cur, ok := best[day]; !ok || temp > cur {
			best[day] = temp
		}
	}
	out := make([]entity.DailyMax, 0, len(best))
	for day, temp := range best {
		out = append(out, entity.DailyMax{Date: day, Temperature: temp})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func (c *Client) get(ctx context.Context, endpoint, path, city string, dest any) error {
	params := url.Values{"q": {city}, "appid": {c.apiKey}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.observeDuration(endpoint, time.Since(start))
	if err != nil {
		c.count(endpoint, "error")
		return fmt.Errorf("%w: %s request: %v", provider.ErrUpstreamUnavailable, endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.count(endpoint, "error")
		return fmt.Errorf("%w: read body: %v", provider.ErrUpstreamUnavailable, err)
	}

	var envelope struct {
		Cod     code   `json:"cod"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(raw, &envelope)
	if resp.StatusCode == http.StatusNotFound || envelope.Cod == http.StatusNotFound {
		c.count(endpoint, "not_found")
		return fmt.Errorf("%w: %s", provider.ErrLocationNotFound, city)
	}
	if resp.StatusCode != http.StatusOK {
		c.count(endpoint, "error")
		return fmt.Errorf("%w: status %d: %s", provider.ErrUpstreamUnavailable, resp.StatusCode, envelope.Message)
	}
	if err := json.NewDecoder(bytes.NewReader(raw)).Decode(dest); err != nil {
		c.count(endpoint, "error")
		return fmt.Errorf("%w: decode response: %v", provider.ErrUpstreamUnavailable, err)
	}
	c.count(endpoint, "success")
	return nil
}

func (c *Client) count(endpoint, outcome string) {
	if c.metrics != nil {
		c.metrics.WeatherRequests.WithLabelValues(endpoint, outcome).Inc()
	}
	if outcome != "success" && c.logger != nil {
		c.logger.WithFields(logrus.Fields{"endpoint": endpoint, "outcome": outcome}).Debug("weather request did not succeed")
	}
}

func (c *Client) observeDuration(endpoint string, d time.Duration) {
	if c.metrics != nil {
		c.metrics.WeatherAPIDuration.WithLabelValues(endpoint).Observe(d.Seconds())
	}
}

// OpenWeatherMap response types.

// code accepts both the numeric cod of success payloads and the string cod of errors.
type code int

func (c *code) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		*c = 0
		return nil
	}
	*c = code(n)
	return nil
}

type currentResponse struct {
	Name  string `json:"name"`
	Coord struct {
		Lon float64 `json:"lon"`
		Lat float64 `json:"lat"`
	} `json:"coord"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
}

type forecastResponse struct {
	List []forecastItem `json:"list"`
}

type forecastItem struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
}

var _ provider.WeatherProvider = (*Client)(nil)
