package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-event-streamer/internal/weather"
)

// DefaultWeatherAPIBaseURL is the public WeatherAPI.com v1 endpoint.
const DefaultWeatherAPIBaseURL = "http://api.weatherapi.com/v1/"

const (
	currentPath  = "current.json"
	forecastPath = "forecast.json"
	alertsPath   = "alerts.json"
)

// WeatherAPIClient implements the weather.Source interface for WeatherAPI.com.
// Each endpoint has its own circuit breaker, so a failing endpoint does not
// block the other two.
type WeatherAPIClient struct {
	baseURL  string
	client   *retryablehttp.Client
	circuits map[string]*gobreaker.CircuitBreaker
}

// NewWeatherAPIClient creates a client for the given base URL. The API key is
// supplied per call since it is fetched fresh on every invocation.
func NewWeatherAPIClient(baseURL string, cfg HTTPClientConfig) (*WeatherAPIClient, error) {
	if baseURL == "" {
		baseURL = DefaultWeatherAPIBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid weatherapi base url: %w", err)
	}

	rc, err := newRetryClient(cfg)
	if err != nil {
		return nil, err
	}

	return &WeatherAPIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  rc,
		circuits: map[string]*gobreaker.CircuitBreaker{
			currentPath:  newCircuitBreaker("weatherapi-current"),
			forecastPath: newCircuitBreaker("weatherapi-forecast"),
			alertsPath:   newCircuitBreaker("weatherapi-alerts"),
		},
	}, nil
}

// Current fetches current conditions including air quality.
func (c *WeatherAPIClient) Current(ctx context.Context, apiKey, location string) (*weather.CurrentResponse, error) {
	payload := new(weather.CurrentResponse)
	if err := c.get(ctx, currentPath, apiKey, location, "aqi", "yes", payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Forecast fetches a forecast for the given number of days.
func (c *WeatherAPIClient) Forecast(ctx context.Context, apiKey, location string, days int) (*weather.ForecastResponse, error) {
	if days <= 0 {
		return nil, fmt.Errorf("days must be greater than zero")
	}
	payload := new(weather.ForecastResponse)
	if err := c.get(ctx, forecastPath, apiKey, location, "days", strconv.Itoa(days), payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Alerts fetches the active weather alerts.
func (c *WeatherAPIClient) Alerts(ctx context.Context, apiKey, location string) (*weather.AlertsResponse, error) {
	payload := new(weather.AlertsResponse)
	if err := c.get(ctx, alertsPath, apiKey, location, "alerts", "yes", payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// get issues one GET against path with the shared key/q parameters plus the
// operation-specific flag, and decodes the body into target.
func (c *WeatherAPIClient) get(ctx context.Context, path, apiKey, location, flag, flagValue string, target any) error {
	if apiKey == "" {
		return ErrMissingAPIKey
	}

	values := url.Values{}
	values.Set("key", apiKey)
	values.Set("q", location)
	values.Set(flag, flagValue)
	u := fmt.Sprintf("%s/%s?%s", c.baseURL, path, values.Encode())

	body, err := doRequest(ctx, c.client, c.circuits[path], u)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
