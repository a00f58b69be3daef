// Package forecast turns trained funnel models into per-day invitation plans
// over a date range.
package forecast

import (
	"context"
	"encoding/json"
	"time"

	"seatcast/internal/apperr"
	"seatcast/internal/calendar"
	"seatcast/internal/funnel"
	"seatcast/internal/optimizer"
)

// DailyForecast is the plan for one business day.
type DailyForecast struct {
	Date      time.Time `json:"-"`
	Weekday   string    `json:"weekday"`
	Invited   int       `json:"invited"`
	Confirmed int       `json:"confirmed"`
	Declined  int       `json:"declined"`
	Attending int       `json:"attending"`
	Fallback  bool      `json:"fallback,omitempty"`
}

// MarshalJSON writes Date as YYYY-MM-DD.
func (d DailyForecast) MarshalJSON() ([]byte, error) {
	type Alias DailyForecast
	return json.Marshal(struct {
		Date string `json:"date"`
		Alias
	}{Date: d.Date.Format(calendar.DateLayout), Alias: Alias(d)})
}

func (d *DailyForecast) UnmarshalJSON(b []byte) error {
	type Alias DailyForecast
	aux := struct {
		Date string `json:"date"`
		*Alias
	}{Alias: (*Alias)(d)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	t, err := calendar.ParseDate(aux.Date)
	if err != nil {
		return err
	}
	d.Date = t
	return nil
}

// Sequence is the ordered list of daily plans, one per business day.
type Sequence []DailyForecast

// Options tunes sequence generation. Zero values select the defaults.
type Options struct {
	Locale  string
	Scaling optimizer.ScalingStrategy
}

// Generate plans every business day in [start, end]. Weekends and holidays are
// skipped. The context is checked before each day.
func Generate(ctx context.Context, start, end time.Time, predictor funnel.Predictor, holidays calendar.Provider, country string, policy optimizer.CapacityPolicy, opts Options) (Sequence, error) {
	start, end = calendar.Day(start), calendar.Day(end)
	if end.Before(start) {
		return nil, apperr.NewInvalidRangeError(start.Format(calendar.DateLayout), end.Format(calendar.DateLayout))
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	set, err := holidays.Holidays(ctx, country, calendar.YearsBetween(start, end))
	if err != nil {
		return nil, err
	}

	seq := make(Sequence, 0, int(end.Sub(start).Hours()/24)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if calendar.IsRestDay(d, set) {
			continue
		}

		decision, err := optimizer.Optimize(d, predictor, policy, optimizer.Options{Scaling: opts.Scaling})
		if err != nil {
			return nil, err
		}
		seq = append(seq, DailyForecast{
			Date:      decision.Date,
			Weekday:   calendar.DayName(d, opts.Locale),
			Invited:   decision.Invited,
			Confirmed: decision.Confirmed,
			Declined:  decision.Declined,
			Attending: decision.Attending,
			Fallback:  decision.Fallback,
		})
	}
	return seq, nil
}
