package weather

import (
	"strings"

	"github.com/i474232898/weather-dashboard/internal/common"
)

// Category is the presentation class of a condition (animation key).
type Category string

const (
	CategorySunny        Category = "sunny"
	CategoryPartlyCloudy Category = "partly-cloudy"
	CategoryCloudyNight  Category = "cloudy-night"
	CategoryPartlyShower Category = "partly-shower"
	CategoryRainyNight   Category = "rainy-night"
	CategorySnow         Category = "snow"
	CategoryStorm        Category = "storm"
	CategoryWindy        Category = "windy"
	CategoryNight        Category = "night"
	CategoryFallback     Category = "fallback"
)

// Categories lists every member of the enumeration.
var Categories = []Category{
	CategorySunny,
	CategoryPartlyCloudy,
	CategoryCloudyNight,
	CategoryPartlyShower,
	CategoryRainyNight,
	CategorySnow,
	CategoryStorm,
	CategoryWindy,
	CategoryNight,
	CategoryFallback,
}

// IsNight reports whether c only makes sense after dark.
func (c Category) IsNight() bool {
	switch c {
	case CategoryNight, CategoryCloudyNight, CategoryRainyNight:
		return true
	}
	return false
}

var currentCategories = map[string]Category{
	"01d": CategorySunny,
	"01n": CategoryNight,
	"02d": CategoryPartlyCloudy,
	"02n": CategoryPartlyCloudy,
	"03d": CategoryWindy,
	"03n": CategoryCloudyNight,
	"04d": CategoryWindy,
	"04n": CategoryCloudyNight,
	"09d": CategoryPartlyShower,
	"09n": CategoryPartlyShower,
	"10d": CategoryPartlyShower,
	"10n": CategoryRainyNight,
	"11d": CategoryStorm,
	"11n": CategoryStorm,
	"13d": CategorySnow,
	"13n": CategorySnow,
	"50d": CategoryWindy,
	"50n": CategoryCloudyNight,
}

var dailyCategories = map[string]Category{
	"01d": CategorySunny,
	"02d": CategoryPartlyCloudy,
	"03d": CategoryWindy,
	"04d": CategoryWindy,
	"09d": CategoryPartlyShower,
	"10d": CategoryPartlyShower,
	"11d": CategoryStorm,
	"13d": CategorySnow,
	"50d": CategoryWindy,
}

type keywordRule struct {
	words    []string
	category Category
	asset    string
}

// Checked in order; the first hit wins.
var keywordRules = []keywordRule{
	{[]string{"snow"}, CategorySnow, "snow.png"},
	{[]string{"thunder"}, CategoryStorm, "thunderstorm.png"},
	{[]string{"rain"}, CategoryPartlyShower, "rain.png"},
	{[]string{"cloud"}, CategoryWindy, "cloudy.png"},
	{[]string{"mist", "fog"}, CategoryWindy, "mist.png"},
	{[]string{"clear"}, CategorySunny, "sunny.png"},
}

// ResolveCategory maps a provider icon code, falling back to keywords in the
// description, to a Category. In daily context night codes are read as their
// day equivalent and no night category is ever returned. Empty inputs are
// allowed; the result is always a member of Categories.
func ResolveCategory(iconCode, description string, daily bool) Category {
	table, fallback := currentCategories, CategoryFallback
	if daily {
		iconCode = ForceDayCode(iconCode)
		table, fallback = dailyCategories, CategoryPartlyCloudy
	}

	if c, ok := table[iconCode]; ok {
		return c
	}
	if rule, ok := matchKeyword(description); ok {
		return rule.category
	}
	return fallback
}

// ForceDayCode rewrites a trailing night suffix to the day suffix,
// e.g. "10n" becomes "10d". Other input is returned unchanged.
func ForceDayCode(iconCode string) string {
	if strings.HasSuffix(iconCode, "n") {
		return strings.TrimSuffix(iconCode, "n") + "d"
	}
	return iconCode
}

var assetsByFamily = map[string]string{
	"01": "sunny.png",
	"02": "partly-cloudy.png",
	"03": "cloudy.png",
	"04": "cloudy.png",
	"09": "shower-rain.png",
	"10": "rain.png",
	"11": "thunderstorm.png",
	"13": "snow.png",
	"50": "mist.png",
}

// DefaultAsset is the static image used when nothing else matches.
const DefaultAsset = "partly-cloudy.png"

// IconAsset returns the static image name for a condition. Day and night
// variants of a code share one image.
func IconAsset(iconCode, description string) string {
	if len(iconCode) == 3 && (iconCode[2] == 'd' || iconCode[2] == 'n') {
		if asset, ok := assetsByFamily[iconCode[:2]]; ok {
			return asset
		}
	}
	if rule, ok := matchKeyword(description); ok {
		return rule.asset
	}
	return DefaultAsset
}

func matchKeyword(description string) (keywordRule, bool) {
	if description == "" {
		return keywordRule{}, false
	}
	for _, rule := range keywordRules {
		if common.HasAnyFold(description, rule.words...) {
			return rule, true
		}
	}
	return keywordRule{}, false
}
