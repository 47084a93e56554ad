package weather

import (
	"context"
)

// Source abstracts the upstream weather API (current conditions and the
// 3-hour forecast).
type Source interface {
	Current(ctx context.Context, city string) (Current, error)
	Forecast3h(ctx context.Context, lat, lon float64) (ForecastResponse, error)
}

// Geocoder resolves city names to coordinates and back.
// Geocode and Reverse return a nil result, not an error, when nothing matches.
type Geocoder interface {
	Name() string
	Geocode(ctx context.Context, city string) (*GeoResult, error)
	Search(ctx context.Context, term string, limit int) ([]GeoResult, error)
	Reverse(ctx context.Context, lat, lon float64) (*GeoResult, error)
}
