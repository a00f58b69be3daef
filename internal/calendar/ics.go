package calendar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/rs/zerolog/log"
	"github.com/teambition/rrule-go"
)

const (
	defaultFetchAttempts = 3
	defaultRetryDelay    = 2 * time.Second
)

// icsHoliday is a holiday VEVENT reduced to whole days.
type icsHoliday struct {
	UID   string
	Name  string
	Start time.Time // midnight UTC
	Days  int       // number of whole days covered, >= 1
	RRule string
}

// ICSProvider reads holidays from an iCalendar feed (local file or http(s) URL).
// The feed is fetched and parsed once, then expanded per requested year.
// Country is ignored: a feed describes exactly one calendar.
type ICSProvider struct {
	Source     string
	Client     *http.Client
	Attempts   int
	RetryDelay time.Duration

	mu     sync.Mutex
	loaded bool
	events []icsHoliday
}

// NewICSProvider creates a provider for the given file path or URL.
func NewICSProvider(source string) *ICSProvider {
	return &ICSProvider{
		Source:     source,
		Client:     &http.Client{Timeout: 15 * time.Second},
		Attempts:   defaultFetchAttempts,
		RetryDelay: defaultRetryDelay,
	}
}

func (p *ICSProvider) Holidays(ctx context.Context, _ string, years []int) (Set, error) {
	events, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	return expandHolidays(events, years), nil
}

func (p *ICSProvider) load(ctx context.Context) ([]icsHoliday, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.loaded {
		return p.events, nil
	}

	body, err := p.read(ctx)
	if err != nil {
		return nil, err
	}
	events, err := parseICSHolidays(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse holiday calendar %s: %w", p.Source, err)
	}

	log.Info().Str("source", p.Source).Int("events", len(events)).Msg("Holiday calendar loaded")
	p.events = events
	p.loaded = true
	return events, nil
}

func (p *ICSProvider) read(ctx context.Context) ([]byte, error) {
	if !strings.HasPrefix(p.Source, "http://") && !strings.HasPrefix(p.Source, "https://") {
		return os.ReadFile(p.Source)
	}

	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		body, err := p.fetch(ctx)
		if err == nil {
			return body, nil
		}
		lastErr = err
		log.Warn().Err(err).Str("source", p.Source).Int("attempt", attempt).Msg("Holiday calendar fetch failed")

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.RetryDelay * time.Duration(attempt)):
		}
	}
	return nil, fmt.Errorf("fetch holiday calendar after %d attempts: %w", attempts, lastErr)
}

func (p *ICSProvider) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.Source, nil)
	if err != nil {
		return nil, err
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// parseICSHolidays reads every VEVENT of an iCalendar payload as a whole-day holiday.
// Events without a usable DTSTART are skipped.
func parseICSHolidays(r io.Reader) ([]icsHoliday, error) {
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, err
	}

	out := make([]icsHoliday, 0)
	for _, ve := range cal.Events() {
		h, perr := parseHolidayEvent(ve)
		if perr != nil {
			log.Debug().Err(perr).Msg("Skipping holiday event")
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

func parseHolidayEvent(ve *ical.VEvent) (icsHoliday, error) {
	var h icsHoliday

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return h, errors.New("missing DTSTART")
	}
	start, err := parseICSDate(startProp.Value)
	if err != nil {
		return h, err
	}
	h.Start = start
	h.Days = 1

	// DTEND is exclusive for all-day events.
	if endProp := ve.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil {
		if end, err := parseICSDate(endProp.Value); err == nil && end.After(start) {
			h.Days = int(end.Sub(start).Hours() / 24)
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		h.UID = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		h.Name = p.Value
	}
	if h.Name == "" {
		h.Name = "Holiday"
	}
	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		h.RRule = p.Value
	}
	return h, nil
}

// parseICSDate keeps only the calendar day of a DATE or DATE-TIME value.
func parseICSDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if len(v) < 8 {
		return time.Time{}, fmt.Errorf("invalid ICS date %q", v)
	}
	return time.Parse("20060102", v[:8])
}

func expandHolidays(events []icsHoliday, years []int) Set {
	out := make(Set)
	if len(years) == 0 {
		return out
	}
	from := time.Date(slices.Min(years), time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(slices.Max(years), time.December, 31, 0, 0, 0, 0, time.UTC)

	addSpan := func(h icsHoliday, start time.Time) {
		for i := 0; i < h.Days; i++ {
			d := start.AddDate(0, 0, i)
			if slices.Contains(years, d.Year()) {
				out.Add(d, h.Name)
			}
		}
	}

	for _, h := range events {
		if h.RRule == "" {
			addSpan(h, h.Start)
			continue
		}
		r, err := rrule.StrToRRule(h.RRule)
		if err != nil {
			log.Warn().Err(err).Str("uid", h.UID).Str("rrule", h.RRule).Msg("Failed to parse holiday RRULE")
			addSpan(h, h.Start)
			continue
		}
		r.DTStart(h.Start)
		for _, occ := range r.Between(from.AddDate(0, 0, -h.Days), to, true) {
			addSpan(h, Day(occ))
		}
	}
	return out
}
