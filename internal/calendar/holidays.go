package calendar

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// Set maps holiday dates (midnight UTC) to their names.
type Set map[time.Time]string

// Contains reports whether the calendar day of t is a holiday.
func (s Set) Contains(t time.Time) bool {
	_, ok := s[Day(t)]
	return ok
}

// Add records a holiday, keeping the first name seen for a date.
func (s Set) Add(t time.Time, name string) {
	d := Day(t)
	if _, ok := s[d]; !ok {
		s[d] = name
	}
}

// Holiday is a single named holiday date.
type Holiday struct {
	Date time.Time `json:"date"`
	Name string    `json:"name"`
}

// Sorted returns the holidays in ascending date order.
func (s Set) Sorted() []Holiday {
	out := make([]Holiday, 0, len(s))
	for d, name := range s {
		out = append(out, Holiday{Date: d, Name: name})
	}
	slices.SortFunc(out, func(a, b Holiday) int { return a.Date.Compare(b.Date) })
	return out
}

// Provider supplies the holiday dates of a country for a set of years.
type Provider interface {
	Holidays(ctx context.Context, country string, years []int) (Set, error)
}

// YearsOf returns the distinct years spanned by the dates, ascending.
func YearsOf(dates ...time.Time) []int {
	seen := make(map[int]bool)
	years := make([]int, 0)
	for _, d := range dates {
		if !seen[d.Year()] {
			seen[d.Year()] = true
			years = append(years, d.Year())
		}
	}
	slices.Sort(years)
	return years
}

// YearsBetween returns every year from start's through end's, ascending.
func YearsBetween(start, end time.Time) []int {
	if end.Before(start) {
		return nil
	}
	years := make([]int, 0, end.Year()-start.Year()+1)
	for y := start.Year(); y <= end.Year(); y++ {
		years = append(years, y)
	}
	return years
}

type union []Provider

// Union merges the holidays of several providers. The first provider naming a date wins.
func Union(providers ...Provider) Provider {
	return union(providers)
}

func (u union) Holidays(ctx context.Context, country string, years []int) (Set, error) {
	out := make(Set)
	for i, p := range u {
		set, err := p.Holidays(ctx, country, years)
		if err != nil {
			return nil, fmt.Errorf("holiday provider %d: %w", i, err)
		}
		for d, name := range set {
			out.Add(d, name)
		}
	}
	return out, nil
}

// Static is a fixed holiday set, independent of country. Useful for tests and overrides.
type Static Set

func (s Static) Holidays(_ context.Context, _ string, years []int) (Set, error) {
	out := make(Set)
	for d, name := range s {
		if slices.Contains(years, d.Year()) {
			out.Add(d, name)
		}
	}
	return out, nil
}
