// Package calendar derives the seasonal feature vector used by the funnel
// models and supplies the holiday calendars that define business days.
package calendar

import (
	"time"

	"seatcast/internal/apperr"
)

// Features is the calendar feature vector of a single date.
type Features struct {
	Weekday          int  `json:"weekday"` // Monday=0 .. Sunday=6
	Month            int  `json:"month"`
	ISOWeek          int  `json:"iso_week"`
	HolidayOrWeekend bool `json:"holiday_or_weekend"`
}

// Vector returns the features in model column order: weekday, month, week, holiday.
func (f Features) Vector() []float64 {
	holiday := 0.0
	if f.HolidayOrWeekend {
		holiday = 1
	}
	return []float64{float64(f.Weekday), float64(f.Month), float64(f.ISOWeek), holiday}
}

// FeatureNames lists the columns produced by Vector.
var FeatureNames = []string{"weekday", "month", "iso_week", "holiday"}

// DateLayout is the ISO layout used for requested ranges and output records.
const DateLayout = "2006-01-02"

// Day normalizes t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses an ISO date (YYYY-MM-DD).
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, apperr.NewBadDateError(value, err)
	}
	return t, nil
}

// WeekdayIndex maps a date onto Monday=0 .. Sunday=6.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// IsWeekend reports whether t falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	return WeekdayIndex(t) >= 5
}

// IsRestDay reports whether t is a weekend day or a holiday in the set.
func IsRestDay(t time.Time, holidays Set) bool {
	return IsWeekend(t) || holidays.Contains(t)
}

// Extract computes the feature vector of date against the given holiday set.
func Extract(date time.Time, holidays Set) Features {
	_, week := date.ISOWeek()
	return Features{
		Weekday:          WeekdayIndex(date),
		Month:            int(date.Month()),
		ISOWeek:          week,
		HolidayOrWeekend: IsRestDay(date, holidays),
	}
}

var dayNames = map[string][7]string{
	"en": {"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"},
	"tr": {"Pazartesi", "Salı", "Çarşamba", "Perşembe", "Cuma", "Cumartesi", "Pazar"},
}

// DayName returns the localized weekday name of t. Unknown locales fall back to English.
func DayName(t time.Time, locale string) string {
	names, ok := dayNames[locale]
	if !ok {
		names = dayNames["en"]
	}
	return names[WeekdayIndex(t)]
}
