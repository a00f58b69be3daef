package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type fixedHoliday struct {
	month     time.Month
	day       int
	name      string
	sinceYear int
}

var turkeyFixed = []fixedHoliday{
	{time.January, 1, "Yılbaşı", 0},
	{time.April, 23, "Ulusal Egemenlik ve Çocuk Bayramı", 0},
	{time.May, 1, "Emek ve Dayanışma Günü", 2009},
	{time.May, 19, "Atatürk'ü Anma, Gençlik ve Spor Bayramı", 0},
	{time.July, 15, "Demokrasi ve Milli Birlik Günü", 2017},
	{time.August, 30, "Zafer Bayramı", 0},
	{time.October, 29, "Cumhuriyet Bayramı", 0},
}

type lunarStart struct {
	month time.Month
	day   int
}

// First days of the religious holidays as announced by the Diyanet.
var ramazanStart = map[int]lunarStart{
	2015: {time.July, 17}, 2016: {time.July, 5}, 2017: {time.June, 25},
	2018: {time.June, 15}, 2019: {time.June, 4}, 2020: {time.May, 24},
	2021: {time.May, 13}, 2022: {time.May, 2}, 2023: {time.April, 21},
	2024: {time.April, 10}, 2025: {time.March, 30}, 2026: {time.March, 20},
	2027: {time.March, 9}, 2028: {time.February, 26}, 2029: {time.February, 14},
	2030: {time.February, 4},
}

var kurbanStart = map[int]lunarStart{
	2015: {time.September, 24}, 2016: {time.September, 12}, 2017: {time.September, 1},
	2018: {time.August, 21}, 2019: {time.August, 11}, 2020: {time.July, 31},
	2021: {time.July, 20}, 2022: {time.July, 9}, 2023: {time.June, 28},
	2024: {time.June, 16}, 2025: {time.June, 6}, 2026: {time.May, 27},
	2027: {time.May, 16}, 2028: {time.May, 5}, 2029: {time.April, 24},
	2030: {time.April, 13},
}

// Builtin provides the national public holidays of the countries it knows.
// Only Turkey ("TR") is tabulated.
type Builtin struct{}

func (Builtin) Holidays(_ context.Context, country string, years []int) (Set, error) {
	switch strings.ToUpper(country) {
	case "TR", "TUR", "TURKEY", "TÜRKIYE":
		out := make(Set)
		for _, y := range years {
			addTurkey(out, y)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("no built-in holiday calendar for country %q; configure an ICS calendar instead", country)
	}
}

func addTurkey(out Set, year int) {
	for _, h := range turkeyFixed {
		if year >= h.sinceYear {
			out.Add(time.Date(year, h.month, h.day, 0, 0, 0, 0, time.UTC), h.name)
		}
	}

	ramazan, okR := ramazanStart[year]
	kurban, okK := kurbanStart[year]
	if !okR || !okK {
		log.Warn().Int("year", year).Msg("Religious holidays are not tabulated for this year; only fixed national holidays apply")
	}
	if okR {
		start := time.Date(year, ramazan.month, ramazan.day, 0, 0, 0, 0, time.UTC)
		for i := 0; i < 3; i++ {
			out.Add(start.AddDate(0, 0, i), fmt.Sprintf("Ramazan Bayramı (%d. gün)", i+1))
		}
	}
	if okK {
		start := time.Date(year, kurban.month, kurban.day, 0, 0, 0, 0, time.UTC)
		for i := 0; i < 4; i++ {
			out.Add(start.AddDate(0, 0, i), fmt.Sprintf("Kurban Bayramı (%d. gün)", i+1))
		}
	}
}
