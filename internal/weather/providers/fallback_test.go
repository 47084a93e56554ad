package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

type stubGeocoder struct {
	name   string
	result *weather.GeoResult
	err    error
	calls  int
}

func (s *stubGeocoder) Name() string { return s.name }

func (s *stubGeocoder) Geocode(context.Context, string) (*weather.GeoResult, error) {
	s.calls++
	return s.result, s.err
}

func (s *stubGeocoder) Search(context.Context, string, int) ([]weather.GeoResult, error) {
	s.calls++
	if s.result == nil {
		return []weather.GeoResult{}, s.err
	}
	return []weather.GeoResult{*s.result}, s.err
}

func (s *stubGeocoder) Reverse(context.Context, float64, float64) (*weather.GeoResult, error) {
	s.calls++
	return s.result, s.err
}

func TestFallbackGeocoderPrefersPrimary(t *testing.T) {
	primary := &stubGeocoder{name: "a", result: &weather.GeoResult{Name: "Tashkent"}}
	secondary := &stubGeocoder{name: "b", result: &weather.GeoResult{Name: "Other"}}
	g := NewFallbackGeocoder(primary, secondary, nil)

	res, err := g.Geocode(context.Background(), "Tashkent")
	require.NoError(t, err)
	require.Equal(t, "Tashkent", res.Name)
	require.Equal(t, 0, secondary.calls)
	require.Equal(t, "a+b", g.Name())
}

func TestFallbackGeocoderUsesSecondary(t *testing.T) {
	primary := &stubGeocoder{name: "a", err: errors.New("boom")}
	secondary := &stubGeocoder{name: "b", result: &weather.GeoResult{Name: "Namangan"}}
	g := NewFallbackGeocoder(primary, secondary, nil)

	res, err := g.Reverse(context.Background(), 41, 71.6)
	require.NoError(t, err)
	require.Equal(t, "Namangan", res.Name)

	cities, err := g.Search(context.Background(), "Nam", 5)
	require.NoError(t, err)
	require.Len(t, cities, 1)
}

func TestFallbackGeocoderKeepsPrimaryError(t *testing.T) {
	primaryErr := errors.New("primary down")
	primary := &stubGeocoder{name: "a", err: primaryErr}
	secondary := &stubGeocoder{name: "b", err: errors.New("secondary down")}
	g := NewFallbackGeocoder(primary, secondary, nil)

	_, err := g.Geocode(context.Background(), "x")
	require.ErrorIs(t, err, primaryErr)
}

func TestFallbackGeocoderWithoutSecondary(t *testing.T) {
	primary := &stubGeocoder{name: "a"}
	g := NewFallbackGeocoder(primary, nil, nil)

	res, err := g.Geocode(context.Background(), "nowhere")
	require.NoError(t, err)
	require.Nil(t, res)
	require.Equal(t, "a", g.Name())
}
