package main

import (
	"context"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-dashboard/internal/cache"
	"github.com/i474232898/weather-dashboard/internal/config"
	"github.com/i474232898/weather-dashboard/internal/dashboard"
	"github.com/i474232898/weather-dashboard/internal/store"
)

func TestHealthReportIncludesSizes(t *testing.T) {
	cfg := &config.AppConfig{
		Cache: config.CacheConfig{Backend: "memory"},
		Store: config.StoreConfig{Driver: "memory"},
	}
	ctx := context.Background()

	backend := cache.NewMemoryBackend()
	require.NoError(t, backend.Set(ctx, "weather:tashkent", []byte("{}"), time.Minute))
	prefs := store.NewMemoryStore(0, 0)
	require.NoError(t, prefs.Save(ctx, dashboard.DefaultPreferences("p1")))

	report := healthReport(cfg, cache.New(backend, nil), backend, prefs)
	require.Equal(t, "ok", report["status"])
	require.Equal(t, 1, report["cache"].(fiber.Map)["entries"])
	require.Equal(t, 1, report["store"].(fiber.Map)["profiles"])
}
