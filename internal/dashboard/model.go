package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

var (
	// ErrCityNotFound is returned when geocoding finds no match for a city.
	ErrCityNotFound = errors.New("city not found")
	// ErrInvalidTheme is returned for a theme outside light/dark/auto.
	ErrInvalidTheme = errors.New("invalid theme")
	// ErrProfileNotFound is returned by a PreferenceStore for unknown profiles.
	ErrProfileNotFound = errors.New("profile not found")
)

// Theme is the user's colour scheme choice.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeAuto  Theme = "auto"
)

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeAuto:
		return true
	}
	return false
}

// IsDark resolves the theme against the system preference.
func (t Theme) IsDark(systemPrefersDark bool) bool {
	return t == ThemeDark || (t == ThemeAuto && systemPrefersDark)
}

const (
	DefaultProfileID = "default"
	DefaultCity      = "Tashkent"
)

// Preferences is what the dashboard remembers per profile.
type Preferences struct {
	ProfileID    string    `json:"profileId"`
	SelectedCity string    `json:"selectedCity"`
	AutoLocation bool      `json:"isAutoLocation"`
	Theme        Theme     `json:"theme"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// DefaultPreferences returns the preferences of a fresh profile.
func DefaultPreferences(profileID string) Preferences {
	return Preferences{
		ProfileID:    profileID,
		SelectedCity: DefaultCity,
		AutoLocation: true,
		Theme:        ThemeAuto,
	}
}

// PreferencesPatch carries optional updates; nil fields are left alone.
type PreferencesPatch struct {
	SelectedCity *string `json:"selectedCity"`
	AutoLocation *bool   `json:"isAutoLocation"`
	Theme        *Theme  `json:"theme"`
}

// PreferenceStore persists Preferences. Get returns ErrProfileNotFound for
// unknown profiles.
type PreferenceStore interface {
	Get(ctx context.Context, profileID string) (Preferences, error)
	Save(ctx context.Context, prefs Preferences) error
}

// CurrentReport is the current-conditions view of a city.
type CurrentReport struct {
	Weather   weather.Current  `json:"weather"`
	Category  weather.Category `json:"category"`
	IconAsset string           `json:"iconAsset"`
}

// DailyView is a DailySummary with its presentation category.
type DailyView struct {
	weather.DailySummary
	Category  weather.Category `json:"category"`
	IconAsset string           `json:"iconAsset"`
}

// HourlyView is one upcoming 3-hour slot.
type HourlyView struct {
	Dt        int64             `json:"dt"`
	Temp      float64           `json:"temp"`
	Pop       float64           `json:"pop"`
	Condition weather.Condition `json:"weather"`
	Category  weather.Category  `json:"category"`
}

// ForecastReport is the forecast view of a city.
type ForecastReport struct {
	City           weather.ForecastCity `json:"city"`
	TimezoneOffset int                  `json:"timezone"`
	Daily          []DailyView          `json:"daily"`
	Hourly         []HourlyView         `json:"hourly"`
}

// Overview bundles everything the home page shows.
type Overview struct {
	Current  CurrentReport  `json:"current"`
	Forecast ForecastReport `json:"forecast"`
	Cards    []Card         `json:"cards"`
}

// City is a search suggestion.
type City struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	State   string  `json:"state,omitempty"`
	Lat     float64 `json:"lat,omitempty"`
	Lon     float64 `json:"lon,omitempty"`
}

// Settings is Preferences plus the resolved dark-mode flag.
type Settings struct {
	Preferences
	IsDark bool `json:"isDark"`
}
