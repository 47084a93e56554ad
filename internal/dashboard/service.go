package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/i474232898/weather-dashboard/internal/cache"
	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/i474232898/weather-dashboard/internal/weather/providers"
)

// SearchLimit caps the number of city suggestions.
const SearchLimit = 10

// CacheTTLs are the freshness windows of each upstream query kind.
type CacheTTLs struct {
	Current  time.Duration
	Forecast time.Duration
	Geocode  time.Duration
	Search   time.Duration
	Reverse  time.Duration
}

// DefaultCacheTTLs returns the stock freshness windows.
func DefaultCacheTTLs() CacheTTLs {
	return CacheTTLs{
		Current:  5 * time.Minute,
		Forecast: 10 * time.Minute,
		Geocode:  30 * time.Minute,
		Search:   5 * time.Minute,
		Reverse:  30 * time.Minute,
	}
}

// fallbackCities are suggested when the city search upstream is unavailable.
var fallbackCities = []City{
	{Name: "Tashkent", Country: "UZ", Lat: 41.2995, Lon: 69.2401},
	{Name: "Samarkand", Country: "UZ", Lat: 39.6542, Lon: 66.9597},
	{Name: "Bukhara", Country: "UZ", Lat: 39.7681, Lon: 64.4556},
	{Name: "Andijan", Country: "UZ", Lat: 40.7821, Lon: 72.3442},
	{Name: "Namangan", Country: "UZ", Lat: 40.9983, Lon: 71.6726},
}

// Service answers dashboard queries on top of the upstream weather API,
// memoizing every upstream call through the query cache.
type Service struct {
	source   weather.Source
	geocoder weather.Geocoder
	cache    *cache.QueryCache
	prefs    PreferenceStore
	ttl      CacheTTLs
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a new Service. A nil cache gets a private in-memory one.
func NewService(source weather.Source, geocoder weather.Geocoder, qc *cache.QueryCache, prefs PreferenceStore, ttl CacheTTLs, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if qc == nil {
		qc = cache.New(cache.NewMemoryBackend(), logger)
	}
	return &Service{
		source:   source,
		geocoder: geocoder,
		cache:    qc,
		prefs:    prefs,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// Current returns current conditions for city with their presentation category.
func (s *Service) Current(ctx context.Context, city string) (CurrentReport, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return CurrentReport{}, ErrCityNotFound
	}

	cur, err := cache.Fetch(ctx, s.cache, cache.Key("weather", city), s.ttl.Current,
		func(ctx context.Context) (weather.Current, error) {
			return s.source.Current(ctx, city)
		})
	if err != nil {
		return CurrentReport{}, cityError(city, err)
	}

	cond, _ := cur.PrimaryCondition()
	return CurrentReport{
		Weather:   cur,
		Category:  weather.ResolveCategory(cond.Icon, cond.Description, false),
		IconAsset: weather.IconAsset(cond.Icon, cond.Description),
	}, nil
}

// Forecast geocodes city, fetches its 3-hour forecast and returns the daily
// summaries and the next few slots.
func (s *Service) Forecast(ctx context.Context, city string) (ForecastReport, error) {
	resp, err := s.forecast3h(ctx, city)
	if err != nil {
		return ForecastReport{}, err
	}
	return buildForecastReport(resp), nil
}

// Overview fetches current conditions and the forecast concurrently and
// derives the info cards.
func (s *Service) Overview(ctx context.Context, city string) (Overview, error) {
	var (
		current CurrentReport
		resp    weather.ForecastResponse
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = s.Current(gctx, city)
		return err
	})
	g.Go(func() error {
		var err error
		resp, err = s.forecast3h(gctx, city)
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}

	return Overview{
		Current:  current,
		Forecast: buildForecastReport(resp),
		Cards:    Cards(current.Weather, resp.List),
	}, nil
}

// SearchCities returns suggestions for term. When the upstream search fails
// the built-in city list, filtered by term, is returned instead.
func (s *Service) SearchCities(ctx context.Context, term string) ([]City, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []City{}, nil
	}

	results, err := cache.Fetch(ctx, s.cache, cache.Key("cities", term, SearchLimit), s.ttl.Search,
		func(ctx context.Context) ([]weather.GeoResult, error) {
			return s.geocoder.Search(ctx, term, SearchLimit)
		})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("city search failed, using built-in list", "term", term, "error", err)
		return filterFallbackCities(term), nil
	}

	cities := make([]City, 0, len(results))
	for _, r := range results {
		cities = append(cities, cityFromGeo(r))
	}
	return cities, nil
}

// CityByCoords resolves device coordinates to a city.
func (s *Service) CityByCoords(ctx context.Context, lat, lon float64) (City, error) {
	res, err := cache.Fetch(ctx, s.cache, cache.Key("reverse", lat, lon), s.ttl.Reverse,
		func(ctx context.Context) (*weather.GeoResult, error) {
			return s.geocoder.Reverse(ctx, lat, lon)
		})
	if err != nil {
		return City{}, fmt.Errorf("reverse geocode %.4f,%.4f: %w", lat, lon, err)
	}
	if res == nil || res.Name == "" {
		return City{}, fmt.Errorf("%w: no city at %.4f,%.4f", ErrCityNotFound, lat, lon)
	}
	return cityFromGeo(*res), nil
}

// Preferences returns the stored preferences of profileID, or the defaults
// for a profile that has not saved anything yet.
func (s *Service) Preferences(ctx context.Context, profileID string) (Preferences, error) {
	profileID = normalizeProfile(profileID)
	prefs, err := s.prefs.Get(ctx, profileID)
	if errors.Is(err, ErrProfileNotFound) {
		return DefaultPreferences(profileID), nil
	}
	if err != nil {
		return Preferences{}, fmt.Errorf("load preferences %s: %w", profileID, err)
	}
	return prefs, nil
}

// UpdatePreferences applies patch to the preferences of profileID and saves them.
func (s *Service) UpdatePreferences(ctx context.Context, profileID string, patch PreferencesPatch) (Preferences, error) {
	prefs, err := s.Preferences(ctx, profileID)
	if err != nil {
		return Preferences{}, err
	}

	if patch.Theme != nil {
		if !patch.Theme.Valid() {
			return Preferences{}, fmt.Errorf("%w: %q", ErrInvalidTheme, *patch.Theme)
		}
		prefs.Theme = *patch.Theme
	}
	if patch.SelectedCity != nil {
		if city := strings.TrimSpace(*patch.SelectedCity); city != "" {
			prefs.SelectedCity = city
		}
	}
	if patch.AutoLocation != nil {
		prefs.AutoLocation = *patch.AutoLocation
	}

	return prefs, s.save(ctx, &prefs)
}

// Locate turns on auto-location for profileID and selects the city found at
// the given coordinates.
func (s *Service) Locate(ctx context.Context, profileID string, lat, lon float64) (Preferences, error) {
	prefs, err := s.Preferences(ctx, profileID)
	if err != nil {
		return Preferences{}, err
	}

	city, err := s.CityByCoords(ctx, lat, lon)
	if err != nil {
		return Preferences{}, err
	}

	prefs.AutoLocation = true
	prefs.SelectedCity = city.Name
	s.logger.Info("location resolved", "profile", prefs.ProfileID, "city", city.Name)
	return prefs, s.save(ctx, &prefs)
}

// Settings returns the preferences of profileID with the effective dark flag.
func (s *Service) Settings(ctx context.Context, profileID string, systemPrefersDark bool) (Settings, error) {
	prefs, err := s.Preferences(ctx, profileID)
	if err != nil {
		return Settings{}, err
	}
	return Settings{Preferences: prefs, IsDark: prefs.Theme.IsDark(systemPrefersDark)}, nil
}

func (s *Service) save(ctx context.Context, prefs *Preferences) error {
	prefs.UpdatedAt = s.now().UTC()
	if err := s.prefs.Save(ctx, *prefs); err != nil {
		return fmt.Errorf("save preferences %s: %w", prefs.ProfileID, err)
	}
	return nil
}

func (s *Service) geocode(ctx context.Context, city string) (weather.GeoResult, error) {
	res, err := cache.Fetch(ctx, s.cache, cache.Key("geo", city), s.ttl.Geocode,
		func(ctx context.Context) (*weather.GeoResult, error) {
			return s.geocoder.Geocode(ctx, city)
		})
	if err != nil {
		return weather.GeoResult{}, cityError(city, err)
	}
	if res == nil {
		return weather.GeoResult{}, fmt.Errorf("%w: %s", ErrCityNotFound, city)
	}
	return *res, nil
}

func (s *Service) forecast3h(ctx context.Context, city string) (weather.ForecastResponse, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return weather.ForecastResponse{}, ErrCityNotFound
	}

	geo, err := s.geocode(ctx, city)
	if err != nil {
		return weather.ForecastResponse{}, err
	}

	resp, err := cache.Fetch(ctx, s.cache, cache.Key("forecast-3h", geo.Lat, geo.Lon), s.ttl.Forecast,
		func(ctx context.Context) (weather.ForecastResponse, error) {
			return s.source.Forecast3h(ctx, geo.Lat, geo.Lon)
		})
	if err != nil {
		return weather.ForecastResponse{}, fmt.Errorf("forecast for %s: %w", city, err)
	}
	s.logger.Debug("forecast ready", "city", city, "samples", len(resp.List), "timezone", resp.City.Timezone)
	return resp, nil
}

func buildForecastReport(resp weather.ForecastResponse) ForecastReport {
	summaries := weather.AggregateDaily(resp.List, resp.City.Timezone)
	daily := make([]DailyView, 0, len(summaries))
	for _, d := range summaries {
		daily = append(daily, DailyView{
			DailySummary: d,
			Category:     weather.ResolveCategory(d.Condition.Icon, d.Condition.Description, true),
			IconAsset:    weather.IconAsset(d.Condition.Icon, d.Condition.Description),
		})
	}

	slots := resp.List
	if len(slots) > HourlySlots {
		slots = slots[:HourlySlots]
	}
	hourly := make([]HourlyView, 0, len(slots))
	for _, sm := range slots {
		cond, _ := sm.PrimaryCondition()
		hourly = append(hourly, HourlyView{
			Dt:        sm.Dt,
			Temp:      sm.Main.Temp,
			Pop:       sm.Pop,
			Condition: cond,
			Category:  weather.ResolveCategory(cond.Icon, cond.Description, false),
		})
	}

	return ForecastReport{
		City:           resp.City,
		TimezoneOffset: resp.City.Timezone,
		Daily:          daily,
		Hourly:         hourly,
	}
}

func cityError(city string, err error) error {
	if errors.Is(err, providers.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrCityNotFound, city)
	}
	return fmt.Errorf("city %s: %w", city, err)
}

func cityFromGeo(g weather.GeoResult) City {
	return City{Name: g.Name, Country: g.Country, State: g.State, Lat: g.Lat, Lon: g.Lon}
}

func filterFallbackCities(term string) []City {
	out := make([]City, 0, len(fallbackCities))
	for _, c := range fallbackCities {
		if strings.Contains(strings.ToLower(c.Name), strings.ToLower(term)) {
			out = append(out, c)
		}
	}
	return out
}

func normalizeProfile(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return DefaultProfileID
	}
	return id
}
