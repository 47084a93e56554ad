package providers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// geocoder keeps its API key in a package variable.
var googleKeyMu sync.Mutex

// GoogleGeocoder resolves cities through the Google Geocoding API. It is used
// as a secondary geocoder when a Google key is configured.
type GoogleGeocoder struct {
	apiKey string
}

var _ weather.Geocoder = (*GoogleGeocoder)(nil)

// NewGoogleGeocoder returns a geocoder bound to apiKey.
func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	return &GoogleGeocoder{apiKey: apiKey}
}

func (g *GoogleGeocoder) Name() string {
	return "google"
}

func (g *GoogleGeocoder) Geocode(ctx context.Context, city string) (*weather.GeoResult, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("google geocoder: %w", ErrMissingAPIKey)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name, country := splitCityQuery(city)

	googleKeyMu.Lock()
	geocoder.ApiKey = g.apiKey
	loc, err := geocoder.Geocoding(geocoder.Address{City: name, Country: country})
	googleKeyMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("google geocode %q: %w", city, err)
	}
	if loc.Latitude == 0 && loc.Longitude == 0 {
		return nil, nil
	}

	return &weather.GeoResult{
		Name:    name,
		Lat:     loc.Latitude,
		Lon:     loc.Longitude,
		Country: country,
	}, nil
}

// Search returns at most one match; the Google API has no prefix search.
func (g *GoogleGeocoder) Search(ctx context.Context, term string, _ int) ([]weather.GeoResult, error) {
	res, err := g.Geocode(ctx, term)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return []weather.GeoResult{}, nil
	}
	return []weather.GeoResult{*res}, nil
}

func (g *GoogleGeocoder) Reverse(ctx context.Context, lat, lon float64) (*weather.GeoResult, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("google geocoder: %w", ErrMissingAPIKey)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	googleKeyMu.Lock()
	geocoder.ApiKey = g.apiKey
	addresses, err := geocoder.GeocodingReverse(geocoder.Location{Latitude: lat, Longitude: lon})
	googleKeyMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("google reverse geocode %.4f,%.4f: %w", lat, lon, err)
	}

	for _, addr := range addresses {
		if addr.City == "" {
			continue
		}
		return &weather.GeoResult{
			Name:    addr.City,
			Lat:     lat,
			Lon:     lon,
			Country: addr.Country,
			State:   addr.State,
		}, nil
	}
	return nil, nil
}

// splitCityQuery splits "City,CC" into its parts.
func splitCityQuery(q string) (city, country string) {
	city, country, _ = strings.Cut(q, ",")
	return strings.TrimSpace(city), strings.TrimSpace(country)
}
