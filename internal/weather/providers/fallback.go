package providers

import (
	"context"
	"log/slog"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// FallbackGeocoder asks the primary geocoder first and the secondary one when
// the primary fails or finds nothing.
type FallbackGeocoder struct {
	primary   weather.Geocoder
	secondary weather.Geocoder
	logger    *slog.Logger
}

var _ weather.Geocoder = (*FallbackGeocoder)(nil)

// NewFallbackGeocoder chains two geocoders. A nil secondary makes this a
// pass-through.
func NewFallbackGeocoder(primary, secondary weather.Geocoder, logger *slog.Logger) *FallbackGeocoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackGeocoder{primary: primary, secondary: secondary, logger: logger}
}

func (f *FallbackGeocoder) Name() string {
	if f.secondary == nil {
		return f.primary.Name()
	}
	return f.primary.Name() + "+" + f.secondary.Name()
}

func (f *FallbackGeocoder) Geocode(ctx context.Context, city string) (*weather.GeoResult, error) {
	res, err := f.primary.Geocode(ctx, city)
	if (err == nil && res != nil) || f.secondary == nil {
		return res, err
	}
	f.logger.Warn("primary geocoder gave no result, trying secondary",
		"geocoder", f.primary.Name(), "city", city, "error", err)

	res2, err2 := f.secondary.Geocode(ctx, city)
	if err2 != nil {
		if err != nil {
			return nil, err
		}
		return nil, err2
	}
	return res2, nil
}

func (f *FallbackGeocoder) Search(ctx context.Context, term string, limit int) ([]weather.GeoResult, error) {
	res, err := f.primary.Search(ctx, term, limit)
	if (err == nil && len(res) > 0) || f.secondary == nil {
		return res, err
	}
	f.logger.Warn("primary city search gave no result, trying secondary",
		"geocoder", f.primary.Name(), "term", term, "error", err)

	res2, err2 := f.secondary.Search(ctx, term, limit)
	if err2 != nil {
		if err != nil {
			return nil, err
		}
		return nil, err2
	}
	return res2, nil
}

func (f *FallbackGeocoder) Reverse(ctx context.Context, lat, lon float64) (*weather.GeoResult, error) {
	res, err := f.primary.Reverse(ctx, lat, lon)
	if (err == nil && res != nil) || f.secondary == nil {
		return res, err
	}
	f.logger.Warn("primary reverse geocoder gave no result, trying secondary",
		"geocoder", f.primary.Name(), "lat", lat, "lon", lon, "error", err)

	res2, err2 := f.secondary.Reverse(ctx, lat, lon)
	if err2 != nil {
		if err != nil {
			return nil, err
		}
		return nil, err2
	}
	return res2, nil
}
