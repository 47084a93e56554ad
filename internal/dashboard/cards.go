package dashboard

import (
	"fmt"
	"math"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// HourlySlots is how many upcoming 3-hour slots the dashboard shows.
const HourlySlots = 6

// Card is one of the small info tiles under the current conditions.
type Card struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	Value string `json:"value"`
}

// Cards derives the info tiles from current conditions and the raw
// 3-hour samples.
func Cards(current weather.Current, samples []weather.Sample) []Card {
	temp := current.Main.Temp
	return []Card{
		{Type: "feels_like", Title: "Feels like", Value: fmt.Sprintf("%d°", roundInt(current.Main.FeelsLike))},
		{Type: "wind_speed", Title: "Wind", Value: fmt.Sprintf("%.1f km/h", current.Wind.Speed*3.6)},
		{Type: "humidity", Title: "Humidity", Value: fmt.Sprintf("%d%%", roundInt(current.Main.Humidity))},
		{Type: "rain_probability", Title: "Chance of rain", Value: fmt.Sprintf("%d%%", rainChance(samples))},
		{Type: "min_temp", Title: "Min", Value: fmt.Sprintf("%d°", roundInt(temp-5))},
		{Type: "max_temp", Title: "Max", Value: fmt.Sprintf("%d°", roundInt(temp+5))},
	}
}

// rainChance is the highest precipitation probability over the next slots,
// as a whole percentage.
func rainChance(samples []weather.Sample) int {
	if len(samples) > HourlySlots {
		samples = samples[:HourlySlots]
	}
	var maxPop float64
	for _, s := range samples {
		maxPop = math.Max(maxPop, s.Pop)
	}
	return roundInt(maxPop * 100)
}

func roundInt(v float64) int {
	return int(math.Round(v))
}
