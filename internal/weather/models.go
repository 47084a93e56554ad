package weather

// Condition is a provider weather condition entry (icon code + free text).
// Icon codes are two digits followed by a day/night suffix, e.g. "10d".
type Condition struct {
	ID          int    `json:"id,omitempty"`
	Main        string `json:"main,omitempty"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Coordinates is a plain latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// GeoResult is a single geocoding match.
type GeoResult struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
	State   string  `json:"state,omitempty"`
}

// Coordinates returns the position of the match.
func (g GeoResult) Coordinates() Coordinates {
	return Coordinates{Lat: g.Lat, Lon: g.Lon}
}

// Current is the current-conditions payload for a city.
type Current struct {
	Name string `json:"name"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  float64 `json:"humidity"`
		Pressure  float64 `json:"pressure"`
	} `json:"main"`
	Weather []Condition `json:"weather"`
	Wind    struct {
		Speed float64 `json:"speed"`
		Deg   int     `json:"deg"`
	} `json:"wind"`
	Clouds struct {
		All int `json:"all"`
	} `json:"clouds"`
	Sys struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
	Dt       int64 `json:"dt"`
	Timezone int   `json:"timezone"`
}

// PrimaryCondition returns the first condition entry, if any.
func (c Current) PrimaryCondition() (Condition, bool) {
	if len(c.Weather) == 0 {
		return Condition{}, false
	}
	return c.Weather[0], true
}

// ForecastCity is the city block of a 3-hour forecast response.
// Timezone is the signed UTC offset of the location in seconds.
type ForecastCity struct {
	ID       int         `json:"id"`
	Name     string      `json:"name"`
	Coord    Coordinates `json:"coord"`
	Country  string      `json:"country"`
	Timezone int         `json:"timezone"`
	Sunrise  int64       `json:"sunrise"`
	Sunset   int64       `json:"sunset"`
}

// ForecastResponse is the 3-hour forecast payload.
type ForecastResponse struct {
	City ForecastCity `json:"city"`
	List []Sample     `json:"list"`
}

// Sample is one 3-hour forecast slot. TempMin and TempMax are instantaneous
// values for the slot, not accumulated ranges.
type Sample struct {
	Dt    int64  `json:"dt"`
	DtTxt string `json:"dt_txt,omitempty"`
	Main  struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Humidity  float64 `json:"humidity"`
		Pressure  float64 `json:"pressure"`
	} `json:"main"`
	Weather []Condition `json:"weather"`
	Wind    struct {
		Speed float64 `json:"speed"`
		Deg   int     `json:"deg"`
	} `json:"wind"`
	Pop float64 `json:"pop"`
}

// PrimaryCondition returns the first condition entry, if any.
func (s Sample) PrimaryCondition() (Condition, bool) {
	if len(s.Weather) == 0 {
		return Condition{}, false
	}
	return s.Weather[0], true
}

// TempRange is a min/max temperature pair in Celsius.
type TempRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DailySummary aggregates all samples that fall on one calendar day of the
// forecast location.
type DailySummary struct {
	Day       string    `json:"day"` // YYYY-MM-DD in the location's offset
	Dt        int64     `json:"dt"`  // earliest contributing sample
	Temp      TempRange `json:"temp"`
	Humidity  int       `json:"humidity"`
	WindSpeed float64   `json:"wind_speed"`
	Condition Condition `json:"weather"`
}
