package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"

	httpapi "github.com/i474232898/weather-dashboard/internal/api/http"
	"github.com/i474232898/weather-dashboard/internal/cache"
	"github.com/i474232898/weather-dashboard/internal/config"
	"github.com/i474232898/weather-dashboard/internal/dashboard"
	"github.com/i474232898/weather-dashboard/internal/logging"
	"github.com/i474232898/weather-dashboard/internal/scheduler"
	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/i474232898/weather-dashboard/internal/weather/providers"
)

const appName = "weather-dashboard"

type prefsStore interface {
	dashboard.PreferenceStore
	Close() error
}

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logging.New(cfg, appName)
	slog.SetDefault(log)

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.OpenWeather.HTTPTimeout,
	}

	// Upstream with resilience (rate limit + backoff + circuit breaker).
	ow := providers.NewOpenWeatherClient(httpClient, providers.OpenWeatherOptions{
		APIKey:  cfg.OpenWeather.APIKey,
		BaseURL: cfg.OpenWeather.BaseURL,
		Backoff: providers.BackoffConfig{
			MaxRetries:      cfg.OpenWeather.RetryMax,
			InitialInterval: cfg.OpenWeather.RetryInitial,
			MaxInterval:     cfg.OpenWeather.RetryMaxInterval,
		},
		ForecastRetries: cfg.OpenWeather.RetryMaxForecast,
		RPS:             cfg.OpenWeather.RateLimitRPS,
		Burst:           cfg.OpenWeather.RateLimitBurst,
	})

	var geocoder weather.Geocoder = ow
	if cfg.GoogleGeocoderAPIKey != "" {
		geocoder = providers.NewFallbackGeocoder(ow, providers.NewGoogleGeocoder(cfg.GoogleGeocoderAPIKey), log)
	}
	log.Info("geocoder ready", "geocoder", geocoder.Name())

	backend, closeBackend, err := newCacheBackend(cfg)
	if err != nil {
		log.Error("failed to create cache backend", "error", err)
		os.Exit(1)
	}
	defer closeBackend()
	queryCache := cache.New(backend, log)

	prefs, err := newPreferenceStore(cfg)
	if err != nil {
		log.Error("failed to open preference store", "error", err)
		os.Exit(1)
	}
	defer prefs.Close()

	// Core service orchestrating upstream, cache and preferences.
	service := dashboard.NewService(ow, geocoder, queryCache, prefs, dashboard.CacheTTLs{
		Current:  cfg.Cache.TTL.Current,
		Forecast: cfg.Cache.TTL.Forecast,
		Geocode:  cfg.Cache.TTL.Geocode,
		Search:   cfg.Cache.TTL.Search,
		Reverse:  cfg.Cache.TTL.Reverse,
	}, log)

	// Scheduler that periodically warms the cache and purges expired entries.
	sched := scheduler.New(cfg.Prefetch.Cities, cfg.Prefetch.Interval, service, log)
	if mem, ok := backend.(*cache.MemoryBackend); ok {
		sched.WithPurge(mem, cfg.Cache.PurgeInterval)
	}
	if err := sched.Start(); err != nil {
		log.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler(log),
	})

	// Global middleware
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(healthReport(cfg, queryCache, backend, prefs))
	})

	// API routes.
	httpapi.RegisterRoutes(app, service)

	go func() {
		log.Info("listening", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
}

// sizer is implemented by the in-process cache backend and preference store.
type sizer interface {
	Len() int
}

func healthReport(cfg *config.AppConfig, qc *cache.QueryCache, backend cache.Backend, prefs dashboard.PreferenceStore) fiber.Map {
	hits, misses := qc.Stats()
	cacheInfo := fiber.Map{
		"backend": cfg.Cache.Backend,
		"hits":    hits,
		"misses":  misses,
	}
	if s, ok := backend.(sizer); ok {
		cacheInfo["entries"] = s.Len()
	}
	storeInfo := fiber.Map{"driver": cfg.Store.Driver}
	if s, ok := prefs.(sizer); ok {
		storeInfo["profiles"] = s.Len()
	}
	return fiber.Map{
		"status":  "ok",
		"service": appName,
		"cache":   cacheInfo,
		"store":   storeInfo,
	}
}

func newCacheBackend(cfg *config.AppConfig) (cache.Backend, func(), error) {
	switch cfg.Cache.Backend {
	case "valkey":
		client, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{cfg.Cache.ValkeyAddr}})
		if err != nil {
			return nil, nil, fmt.Errorf("connect valkey %s: %w", cfg.Cache.ValkeyAddr, err)
		}
		return cache.NewValkeyBackend(client, appName), client.Close, nil
	default:
		return cache.NewMemoryBackend(), func() {}, nil
	}
}

func newPreferenceStore(cfg *config.AppConfig) (prefsStore, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.SQLitePath)
	default:
		return store.NewMemoryStore(cfg.Store.MaxProfiles, cfg.Store.MaxAge), nil
	}
}
