package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// DefaultOpenWeatherBaseURL is the public OpenWeather API host.
const DefaultOpenWeatherBaseURL = "https://api.openweathermap.org"

// OpenWeatherOptions configures an OpenWeatherClient.
type OpenWeatherOptions struct {
	APIKey  string
	BaseURL string
	Backoff BackoffConfig
	// ForecastRetries overrides Backoff.MaxRetries for the forecast endpoint.
	// Zero means one more than Backoff.MaxRetries.
	ForecastRetries int
	// RPS and Burst bound outbound calls; RPS <= 0 disables the limiter.
	RPS   float64
	Burst int
}

// OpenWeatherClient talks to the OpenWeather weather, forecast and geocoding
// endpoints. It implements weather.Source and weather.Geocoder.
type OpenWeatherClient struct {
	name    string
	apiKey  string
	baseURL string
	circuit *gobreaker.CircuitBreaker

	// forecastCfg is httpCfg with the forecast retry budget.
	httpCfg, forecastCfg HTTPClientConfig
}

var (
	_ weather.Source   = (*OpenWeatherClient)(nil)
	_ weather.Geocoder = (*OpenWeatherClient)(nil)
)

// NewOpenWeatherClient builds a client with backoff, rate limiting and a
// circuit breaker around every call.
func NewOpenWeatherClient(client *http.Client, opts OpenWeatherOptions) *OpenWeatherClient {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultOpenWeatherBaseURL
	}

	backoff := opts.Backoff
	if backoff.InitialInterval <= 0 {
		backoff = BackoffConfig{
			MaxRetries:      2,
			InitialInterval: 1 * time.Second,
			MaxInterval:     10 * time.Second,
		}
	}

	var limiter *rate.Limiter
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}

	httpCfg := HTTPClientConfig{
		Client:  client,
		Backoff: backoff,
		Limiter: limiter,
	}
	forecastCfg := httpCfg
	forecastCfg.Backoff.MaxRetries = opts.ForecastRetries
	if forecastCfg.Backoff.MaxRetries <= 0 {
		forecastCfg.Backoff.MaxRetries = backoff.MaxRetries + 1
	}

	return &OpenWeatherClient{
		name:        "openweathermap",
		apiKey:      opts.APIKey,
		baseURL:     baseURL,
		httpCfg:     httpCfg,
		forecastCfg: forecastCfg,
		circuit:     newCircuitBreaker("openweather"),
	}
}

func (p *OpenWeatherClient) Name() string {
	return p.name
}

// Current fetches current conditions by city name.
func (p *OpenWeatherClient) Current(ctx context.Context, city string) (weather.Current, error) {
	var payload weather.Current
	values := url.Values{}
	values.Set("q", city)
	if err := p.getJSON(ctx, p.httpCfg, "/data/2.5/weather", values, &payload); err != nil {
		return weather.Current{}, fmt.Errorf("current weather for %q: %w", city, err)
	}
	return payload, nil
}

// Forecast3h fetches the 3-hour step forecast for a position.
func (p *OpenWeatherClient) Forecast3h(ctx context.Context, lat, lon float64) (weather.ForecastResponse, error) {
	var payload weather.ForecastResponse
	if err := p.getJSON(ctx, p.forecastCfg, "/data/2.5/forecast", coordValues(lat, lon), &payload); err != nil {
		return weather.ForecastResponse{}, fmt.Errorf("forecast for %.4f,%.4f: %w", lat, lon, err)
	}
	return payload, nil
}

// Geocode returns the best match for a city name, or nil when there is none.
func (p *OpenWeatherClient) Geocode(ctx context.Context, city string) (*weather.GeoResult, error) {
	results, err := p.direct(ctx, city, 1)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}

// Search returns up to limit cities matching term.
func (p *OpenWeatherClient) Search(ctx context.Context, term string, limit int) ([]weather.GeoResult, error) {
	if strings.TrimSpace(term) == "" {
		return []weather.GeoResult{}, nil
	}
	if limit <= 0 {
		limit = 10
	}
	return p.direct(ctx, term, limit)
}

// Reverse returns the place nearest to a position, or nil when there is none.
func (p *OpenWeatherClient) Reverse(ctx context.Context, lat, lon float64) (*weather.GeoResult, error) {
	values := coordValues(lat, lon)
	values.Set("limit", "1")

	var results []weather.GeoResult
	if err := p.getJSON(ctx, p.httpCfg, "/geo/1.0/reverse", values, &results); err != nil {
		return nil, fmt.Errorf("reverse geocode %.4f,%.4f: %w", lat, lon, err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}

func (p *OpenWeatherClient) direct(ctx context.Context, term string, limit int) ([]weather.GeoResult, error) {
	values := url.Values{}
	values.Set("q", term)
	values.Set("limit", strconv.Itoa(limit))

	var results []weather.GeoResult
	if err := p.getJSON(ctx, p.httpCfg, "/geo/1.0/direct", values, &results); err != nil {
		return nil, fmt.Errorf("geocode %q: %w", term, err)
	}
	if results == nil {
		results = []weather.GeoResult{}
	}
	return results, nil
}

func (p *OpenWeatherClient) getJSON(ctx context.Context, cfg HTTPClientConfig, path string, values url.Values, out any) error {
	if p.apiKey == "" {
		return fmt.Errorf("openweather: %w", ErrMissingAPIKey)
	}

	buildRequest := func() (*http.Request, error) {
		q := url.Values{}
		for k, v := range values {
			q[k] = v
		}
		q.Set("appid", p.apiKey)
		q.Set("units", "metric")

		u := fmt.Sprintf("%s%s?%s", p.baseURL, path, q.Encode())
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, cfg, p.circuit, buildRequest)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func coordValues(lat, lon float64) url.Values {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	return values
}
