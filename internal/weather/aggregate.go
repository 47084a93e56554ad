package weather

import (
	"math"
	"sort"
	"time"
)

const (
	// MaxForecastDays is the number of days covered by the free 3-hour forecast.
	MaxForecastDays = 5

	// DefaultIcon is used for a day that received no condition votes.
	DefaultIcon = "01d"

	secondsPerDay = 86400
)

type dayBucket struct {
	day        int64
	dt         int64
	min        float64
	max        float64
	humidities []float64
	windSpeeds []float64
	icons      *Tally
	descByIcon map[string]*Tally
}

// AggregateDaily groups 3-hour samples into calendar days of the forecast
// location and summarises each day. Days are keyed by the sample timestamp
// shifted by tzOffset seconds and read as UTC. The result is ordered by the
// earliest sample of each day and holds at most MaxForecastDays entries.
func AggregateDaily(samples []Sample, tzOffset int) []DailySummary {
	buckets := make(map[int64]*dayBucket)

	for _, s := range samples {
		key := DayNumber(s.Dt, tzOffset)
		b, ok := buckets[key]
		if !ok {
			b = &dayBucket{
				day:        key,
				dt:         s.Dt,
				min:        s.Main.TempMin,
				max:        s.Main.TempMax,
				icons:      NewTally(),
				descByIcon: make(map[string]*Tally),
			}
			buckets[key] = b
		} else {
			if s.Dt < b.dt {
				b.dt = s.Dt
			}
			b.min = math.Min(b.min, s.Main.TempMin)
			b.max = math.Max(b.max, s.Main.TempMax)
		}

		b.humidities = append(b.humidities, s.Main.Humidity)
		b.windSpeeds = append(b.windSpeeds, s.Wind.Speed)

		// Samples without a usable condition still count for the numbers above.
		cond, ok := s.PrimaryCondition()
		if !ok || cond.Icon == "" {
			continue
		}
		b.icons.Add(cond.Icon)
		desc, ok := b.descByIcon[cond.Icon]
		if !ok {
			desc = NewTally()
			b.descByIcon[cond.Icon] = desc
		}
		desc.Add(cond.Description)
	}

	ordered := make([]*dayBucket, 0, len(buckets))
	for _, b := range buckets {
		ordered = append(ordered, b)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].dt < ordered[j].dt
	})
	if len(ordered) > MaxForecastDays {
		ordered = ordered[:MaxForecastDays]
	}

	out := make([]DailySummary, 0, len(ordered))
	for _, b := range ordered {
		out = append(out, b.summary())
	}
	return out
}

func (b *dayBucket) summary() DailySummary {
	cond := Condition{Icon: DefaultIcon}
	if icon, ok := b.icons.Winner(); ok {
		cond.Icon = icon
		cond.Description, _ = b.descByIcon[icon].Winner()
	}

	return DailySummary{
		Day:       DayLabel(b.day),
		Dt:        b.dt,
		Temp:      TempRange{Min: b.min, Max: b.max},
		Humidity:  int(math.Round(mean(b.humidities))),
		WindSpeed: mean(b.windSpeeds),
		Condition: cond,
	}
}

// DayNumber returns the number of whole days since the Unix epoch for ts
// shifted by tzOffset seconds. Negative values floor towards minus infinity.
func DayNumber(ts int64, tzOffset int) int64 {
	shifted := ts + int64(tzOffset)
	day := shifted / secondsPerDay
	if shifted%secondsPerDay < 0 {
		day--
	}
	return day
}

// DayLabel formats a day number as YYYY-MM-DD.
func DayLabel(day int64) string {
	return time.Unix(day*secondsPerDay, 0).UTC().Format(time.DateOnly)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
