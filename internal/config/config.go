package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// maxRetries bounds every configured retry count.
const maxRetries = 10

type AppConfig struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"logLevel"`
	Port     string `yaml:"port"`

	OpenWeather OpenWeatherConfig `yaml:"openWeather"`

	// GoogleGeocoderAPIKey enables the secondary geocoder when set.
	GoogleGeocoderAPIKey string `yaml:"googleGeocoderApiKey"`

	Cache    CacheConfig    `yaml:"cache"`
	Store    StoreConfig    `yaml:"store"`
	Prefetch PrefetchConfig `yaml:"prefetch"`
}

// OpenWeatherConfig controls the upstream client and its resilience.
type OpenWeatherConfig struct {
	APIKey      string        `yaml:"apiKey"`
	BaseURL     string        `yaml:"baseUrl"`
	HTTPTimeout time.Duration `yaml:"httpTimeout"`

	RetryMax         int           `yaml:"retryMax"`
	RetryMaxForecast int           `yaml:"retryMaxForecast"`
	RetryInitial     time.Duration `yaml:"retryInitial"`
	RetryMaxInterval time.Duration `yaml:"retryMaxInterval"`

	RateLimitRPS   float64 `yaml:"rateLimitRps"`
	RateLimitBurst int     `yaml:"rateLimitBurst"`
}

// CacheConfig selects the query cache backend and its freshness windows.
type CacheConfig struct {
	Backend    string    `yaml:"backend"` // memory | valkey
	ValkeyAddr string    `yaml:"valkeyAddr"`
	TTL        TTLConfig `yaml:"ttl"`

	// PurgeInterval is how often expired entries leave the memory backend.
	PurgeInterval time.Duration `yaml:"purgeInterval"`
}

type TTLConfig struct {
	Current  time.Duration `yaml:"current"`
	Forecast time.Duration `yaml:"forecast"`
	Geocode  time.Duration `yaml:"geocode"`
	Search   time.Duration `yaml:"search"`
	Reverse  time.Duration `yaml:"reverse"`
}

// StoreConfig selects where preferences live.
type StoreConfig struct {
	Driver     string `yaml:"driver"` // memory | sqlite
	SQLitePath string `yaml:"sqlitePath"`

	// In-memory store retention.
	MaxProfiles int           `yaml:"maxProfiles"` // 0 = unlimited
	MaxAge      time.Duration `yaml:"maxAge"`      // 0 = unlimited
}

// PrefetchConfig drives the cache warming job.
type PrefetchConfig struct {
	Cities   []string      `yaml:"cities"`
	Interval time.Duration `yaml:"interval"`
}

// IsProduction reports whether the service runs with production settings.
func (c *AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Env, "production") || strings.EqualFold(c.Env, "prod")
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Env:      "development",
		LogLevel: "info",
		Port:     "8080",
		OpenWeather: OpenWeatherConfig{
			BaseURL:          "https://api.openweathermap.org",
			HTTPTimeout:      10 * time.Second,
			RetryMax:         2,
			RetryMaxForecast: 3,
			RetryInitial:     time.Second,
			RetryMaxInterval: 10 * time.Second,
			RateLimitRPS:     10,
			RateLimitBurst:   5,
		},
		Cache: CacheConfig{
			Backend:       "memory",
			PurgeInterval: time.Minute,
			TTL: TTLConfig{
				Current:  5 * time.Minute,
				Forecast: 10 * time.Minute,
				Geocode:  30 * time.Minute,
				Search:   5 * time.Minute,
				Reverse:  30 * time.Minute,
			},
		},
		Store: StoreConfig{
			Driver:      "memory",
			SQLitePath:  "weather-dashboard.db",
			MaxProfiles: 10000,
			MaxAge:      90 * 24 * time.Hour,
		},
		Prefetch: PrefetchConfig{
			Interval: 15 * time.Minute,
		},
	}
}

// Load reads configuration from .env, an optional YAML file and the
// environment, in that order of precedence (environment wins).
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func hydrateFromFile(cfg *AppConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *AppConfig) error {
	cfg.Env = getenvDefault("APP_ENV", cfg.Env)
	cfg.LogLevel = getenvDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.Port = getenvDefault("PORT", cfg.Port)

	ow := &cfg.OpenWeather
	ow.APIKey = getenvDefault("OPENWEATHER_API_KEY", ow.APIKey)
	ow.BaseURL = getenvDefault("OPENWEATHER_BASE_URL", ow.BaseURL)
	ow.RetryMax = getenvInt("RETRY_MAX", ow.RetryMax)
	ow.RetryMaxForecast = getenvInt("RETRY_MAX_FORECAST", ow.RetryMaxForecast)
	ow.RateLimitBurst = getenvInt("RATE_LIMIT_BURST", ow.RateLimitBurst)
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			ow.RateLimitRPS = parsed
		}
	}
	cfg.GoogleGeocoderAPIKey = getenvDefault("GOOGLE_GEOCODER_API_KEY", cfg.GoogleGeocoderAPIKey)

	cfg.Cache.Backend = strings.ToLower(getenvDefault("CACHE_BACKEND", cfg.Cache.Backend))
	cfg.Cache.ValkeyAddr = getenvDefault("VALKEY_ADDR", cfg.Cache.ValkeyAddr)

	cfg.Store.Driver = strings.ToLower(getenvDefault("STORE_DRIVER", cfg.Store.Driver))
	cfg.Store.SQLitePath = getenvDefault("SQLITE_PATH", cfg.Store.SQLitePath)
	cfg.Store.MaxProfiles = getenvInt("STORE_MAX_PROFILES", cfg.Store.MaxProfiles)

	if v := os.Getenv("PREFETCH_CITIES"); v != "" {
		cfg.Prefetch.Cities = splitList(v)
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"HTTP_TIMEOUT", &ow.HTTPTimeout},
		{"RETRY_INITIAL", &ow.RetryInitial},
		{"RETRY_MAX_INTERVAL", &ow.RetryMaxInterval},
		{"CACHE_TTL_CURRENT", &cfg.Cache.TTL.Current},
		{"CACHE_TTL_FORECAST", &cfg.Cache.TTL.Forecast},
		{"CACHE_TTL_GEOCODE", &cfg.Cache.TTL.Geocode},
		{"CACHE_TTL_SEARCH", &cfg.Cache.TTL.Search},
		{"CACHE_TTL_REVERSE", &cfg.Cache.TTL.Reverse},
		{"CACHE_PURGE_INTERVAL", &cfg.Cache.PurgeInterval},
		{"STORE_MAX_AGE", &cfg.Store.MaxAge},
		{"PREFETCH_INTERVAL", &cfg.Prefetch.Interval},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = parsed
	}
	return nil
}

// Validate checks that the configuration can start the service.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.OpenWeather.APIKey == "" {
		errs = append(errs, errors.New("OPENWEATHER_API_KEY is required"))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("port must not be empty"))
	}
	if c.OpenWeather.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("http timeout must be positive"))
	}
	if c.OpenWeather.RetryMax < 0 || c.OpenWeather.RetryMax > maxRetries {
		errs = append(errs, fmt.Errorf("retry max must be between 0 and %d", maxRetries))
	}
	if c.OpenWeather.RetryMaxForecast < 0 || c.OpenWeather.RetryMaxForecast > maxRetries {
		errs = append(errs, fmt.Errorf("forecast retry max must be between 0 and %d", maxRetries))
	}
	if c.OpenWeather.RateLimitRPS < 0 || c.OpenWeather.RateLimitBurst < 0 {
		errs = append(errs, errors.New("rate limit must not be negative"))
	}

	switch c.Cache.Backend {
	case "memory":
		if c.Cache.PurgeInterval <= 0 {
			errs = append(errs, errors.New("cache purge interval must be positive"))
		}
	case "valkey":
		if c.Cache.ValkeyAddr == "" {
			errs = append(errs, errors.New("VALKEY_ADDR is required for the valkey cache backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q", c.Cache.Backend))
	}

	ttl := c.Cache.TTL
	for _, d := range []time.Duration{ttl.Current, ttl.Forecast, ttl.Geocode, ttl.Search, ttl.Reverse} {
		if d <= 0 {
			errs = append(errs, errors.New("cache ttls must be positive"))
			break
		}
	}

	switch c.Store.Driver {
	case "memory":
	case "sqlite":
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}

	if len(c.Prefetch.Cities) > 0 && c.Prefetch.Interval <= 0 {
		errs = append(errs, errors.New("prefetch interval must be positive"))
	}
	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
