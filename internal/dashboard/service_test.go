package dashboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/i474232898/weather-dashboard/internal/weather/providers"
)

const june1 int64 = 1717200000

type fakeSource struct {
	current  weather.Current
	forecast weather.ForecastResponse
	err      error

	currentCalls  atomic.Int32
	forecastCalls atomic.Int32
}

func (f *fakeSource) Current(_ context.Context, city string) (weather.Current, error) {
	f.currentCalls.Add(1)
	if f.err != nil {
		return weather.Current{}, f.err
	}
	cur := f.current
	cur.Name = city
	return cur, nil
}

func (f *fakeSource) Forecast3h(context.Context, float64, float64) (weather.ForecastResponse, error) {
	f.forecastCalls.Add(1)
	return f.forecast, f.err
}

type fakeGeocoder struct {
	geo       *weather.GeoResult
	search    []weather.GeoResult
	searchErr error
	reverse   *weather.GeoResult

	geocodeCalls atomic.Int32
}

func (f *fakeGeocoder) Name() string { return "fake" }

func (f *fakeGeocoder) Geocode(context.Context, string) (*weather.GeoResult, error) {
	f.geocodeCalls.Add(1)
	return f.geo, nil
}

func (f *fakeGeocoder) Search(context.Context, string, int) ([]weather.GeoResult, error) {
	return f.search, f.searchErr
}

func (f *fakeGeocoder) Reverse(context.Context, float64, float64) (*weather.GeoResult, error) {
	return f.reverse, nil
}

type mapStore struct {
	mu    sync.Mutex
	items map[string]Preferences
}

func newMapStore() *mapStore {
	return &mapStore{items: make(map[string]Preferences)}
}

func (m *mapStore) Get(_ context.Context, id string) (Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return Preferences{}, ErrProfileNotFound
	}
	return p, nil
}

func (m *mapStore) Save(_ context.Context, p Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[p.ProfileID] = p
	return nil
}

func forecastSample(dt int64, temp, pop float64, icon, desc string) weather.Sample {
	var s weather.Sample
	s.Dt = dt
	s.Main.Temp = temp
	s.Main.TempMin = temp
	s.Main.TempMax = temp
	s.Main.Humidity = 50
	s.Wind.Speed = 2
	s.Pop = pop
	s.Weather = []weather.Condition{{Icon: icon, Description: desc}}
	return s
}

func newFixture() (*Service, *fakeSource, *fakeGeocoder, *mapStore) {
	src := &fakeSource{}
	src.current.Main.Temp = 21.4
	src.current.Main.FeelsLike = 20.6
	src.current.Main.Humidity = 48
	src.current.Wind.Speed = 3.5
	src.current.Weather = []weather.Condition{{Icon: "10n", Description: "light rain"}}

	var list []weather.Sample
	for i := int64(0); i < 16; i++ {
		icon := "01d"
		if i%4 == 0 {
			icon = "04n"
		}
		list = append(list, forecastSample(june1+i*3*3600, 15+float64(i), float64(i)*0.1, icon, "sky"))
	}
	src.forecast = weather.ForecastResponse{
		City: weather.ForecastCity{Name: "Tashkent", Timezone: 18000},
		List: list,
	}

	geo := &fakeGeocoder{
		geo:     &weather.GeoResult{Name: "Tashkent", Country: "UZ", Lat: 41.3, Lon: 69.2},
		reverse: &weather.GeoResult{Name: "Samarkand", Country: "UZ"},
	}
	st := newMapStore()
	svc := NewService(src, geo, nil, st, DefaultCacheTTLs(), nil)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC) }
	return svc, src, geo, st
}

func TestCurrentResolvesCategory(t *testing.T) {
	svc, src, _, _ := newFixture()

	rep, err := svc.Current(context.Background(), "Tashkent")
	require.NoError(t, err)
	require.Equal(t, "Tashkent", rep.Weather.Name)
	require.Equal(t, weather.CategoryRainyNight, rep.Category)

	_, err = svc.Current(context.Background(), " tashkent ")
	require.NoError(t, err)
	require.Equal(t, int32(1), src.currentCalls.Load())
}

func TestCurrentUnknownCity(t *testing.T) {
	svc, src, _, _ := newFixture()
	src.err = providers.ErrNotFound

	_, err := svc.Current(context.Background(), "Atlantis")
	require.ErrorIs(t, err, ErrCityNotFound)

	_, err = svc.Current(context.Background(), "  ")
	require.ErrorIs(t, err, ErrCityNotFound)
}

func TestForecastBuildsDailyAndHourly(t *testing.T) {
	svc, src, geo, _ := newFixture()

	rep, err := svc.Forecast(context.Background(), "Tashkent")
	require.NoError(t, err)
	require.Equal(t, 18000, rep.TimezoneOffset)
	require.NotEmpty(t, rep.Daily)
	require.LessOrEqual(t, len(rep.Daily), weather.MaxForecastDays)
	require.Len(t, rep.Hourly, HourlySlots)

	for _, d := range rep.Daily {
		require.False(t, d.Category.IsNight(), d.Day)
	}
	require.Equal(t, weather.CategoryCloudyNight, rep.Hourly[0].Category)

	_, err = svc.Forecast(context.Background(), "Tashkent")
	require.NoError(t, err)
	require.Equal(t, int32(1), geo.geocodeCalls.Load())
	require.Equal(t, int32(1), src.forecastCalls.Load())
}

func TestForecastUnknownCity(t *testing.T) {
	svc, src, geo, _ := newFixture()
	geo.geo = nil

	_, err := svc.Forecast(context.Background(), "Atlantis")
	require.ErrorIs(t, err, ErrCityNotFound)
	require.Equal(t, int32(0), src.forecastCalls.Load())
}

func TestOverviewCards(t *testing.T) {
	svc, _, _, _ := newFixture()

	ov, err := svc.Overview(context.Background(), "Tashkent")
	require.NoError(t, err)
	require.Equal(t, []Card{
		{Type: "feels_like", Title: "Feels like", Value: "21°"},
		{Type: "wind_speed", Title: "Wind", Value: "12.6 km/h"},
		{Type: "humidity", Title: "Humidity", Value: "48%"},
		{Type: "rain_probability", Title: "Chance of rain", Value: "50%"},
		{Type: "min_temp", Title: "Min", Value: "16°"},
		{Type: "max_temp", Title: "Max", Value: "26°"},
	}, ov.Cards)
	require.Len(t, ov.Forecast.Hourly, HourlySlots)
}

func TestOverviewPropagatesErrors(t *testing.T) {
	svc, src, _, _ := newFixture()
	src.err = providers.ErrUnauthorized

	_, err := svc.Overview(context.Background(), "Tashkent")
	require.ErrorIs(t, err, providers.ErrUnauthorized)
}

func TestSearchCities(t *testing.T) {
	svc, _, geo, _ := newFixture()
	geo.search = []weather.GeoResult{{Name: "Samarkand", Country: "UZ", Lat: 39.65, Lon: 66.96}}

	cities, err := svc.SearchCities(context.Background(), "Sam")
	require.NoError(t, err)
	require.Equal(t, []City{{Name: "Samarkand", Country: "UZ", Lat: 39.65, Lon: 66.96}}, cities)

	cities, err = svc.SearchCities(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, cities)
}

func TestSearchCitiesFallsBackToBuiltInList(t *testing.T) {
	svc, _, geo, _ := newFixture()
	geo.searchErr = errors.New("upstream down")

	cities, err := svc.SearchCities(context.Background(), "an")
	require.NoError(t, err)
	names := make([]string, 0, len(cities))
	for _, c := range cities {
		names = append(names, c.Name)
	}
	require.Equal(t, []string{"Samarkand", "Andijan", "Namangan"}, names)
}

func TestPreferencesDefaultsAndUpdate(t *testing.T) {
	svc, _, _, st := newFixture()
	ctx := context.Background()

	prefs, err := svc.Preferences(ctx, "")
	require.NoError(t, err)
	require.Equal(t, DefaultPreferences(DefaultProfileID), prefs)

	dark := ThemeDark
	city := "Bukhara"
	off := false
	prefs, err = svc.UpdatePreferences(ctx, "p1", PreferencesPatch{Theme: &dark, SelectedCity: &city, AutoLocation: &off})
	require.NoError(t, err)
	require.Equal(t, "p1", prefs.ProfileID)
	require.Equal(t, "Bukhara", prefs.SelectedCity)
	require.False(t, prefs.AutoLocation)
	require.Equal(t, ThemeDark, prefs.Theme)
	require.False(t, prefs.UpdatedAt.IsZero())

	stored, err := st.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, prefs, stored)

	settings, err := svc.Settings(ctx, "p1", false)
	require.NoError(t, err)
	require.True(t, settings.IsDark)
}

func TestUpdatePreferencesRejectsUnknownTheme(t *testing.T) {
	svc, _, _, st := newFixture()
	bad := Theme("sepia")

	_, err := svc.UpdatePreferences(context.Background(), "p1", PreferencesPatch{Theme: &bad})
	require.ErrorIs(t, err, ErrInvalidTheme)
	_, err = st.Get(context.Background(), "p1")
	require.ErrorIs(t, err, ErrProfileNotFound)
}

func TestLocateSelectsReverseGeocodedCity(t *testing.T) {
	svc, _, geo, _ := newFixture()
	ctx := context.Background()

	off := false
	_, err := svc.UpdatePreferences(ctx, "p1", PreferencesPatch{AutoLocation: &off})
	require.NoError(t, err)

	prefs, err := svc.Locate(ctx, "p1", 39.65, 66.96)
	require.NoError(t, err)
	require.True(t, prefs.AutoLocation)
	require.Equal(t, "Samarkand", prefs.SelectedCity)

	geo.reverse = nil
	_, err = svc.Locate(ctx, "p1", 0, -160)
	require.ErrorIs(t, err, ErrCityNotFound)
}

func TestThemeIsDark(t *testing.T) {
	require.True(t, ThemeDark.IsDark(false))
	require.False(t, ThemeLight.IsDark(true))
	require.True(t, ThemeAuto.IsDark(true))
	require.False(t, ThemeAuto.IsDark(false))
	require.False(t, Theme("").Valid())
}
