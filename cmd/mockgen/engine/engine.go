package engine

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"seatcast/internal/calendar"
)

// Header is written in the exam office's column names.
var Header = []string{
	"Tarih",
	"Davet Edilen Aday Sayısı",
	"Teyit Veren Aday Sayısı",
	"Teyit Vermeyen Aday Sayısı",
	"Sınava Katılan Aday Sayısı",
}

type GeneratorConfig struct {
	Scenario string // "steady", "seasonal" or "noisy"
	Days     int    // calendar days of history ending at Now
	Seed     int64
	Now      time.Time
}

// Session is one historical exam day.
type Session struct {
	Date      time.Time
	Invited   int
	Confirmed int
	Declined  int
	Attended  int
	Corrupt   string // data-entry mistake Record applies, if any
}

// Generate produces one session per business day. Weekends and Turkish
// public holidays are skipped, as the exam office does.
func Generate(ctx context.Context, cfg GeneratorConfig) ([]Session, error) {
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}
	if cfg.Days <= 0 {
		cfg.Days = 365
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	end := calendar.Day(cfg.Now)
	start := end.AddDate(0, 0, -cfg.Days+1)
	holidays, err := calendar.Builtin{}.Holidays(ctx, "TR", calendar.YearsBetween(start, end))
	if err != nil {
		return nil, err
	}

	var sessions []Session
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if calendar.IsRestDay(d, holidays) {
			continue
		}

		// 1. Invitation volume
		invited := 50.0
		confirmRate, showRate := 0.9, 0.95
		switch cfg.Scenario {
		case "seasonal":
			// Busier early in the week and around the June/September exam peaks.
			invited += 8 * math.Cos(float64(calendar.WeekdayIndex(d))*math.Pi/4)
			if m := d.Month(); m == time.June || m == time.September {
				invited += 15
			}
			confirmRate -= 0.05 * float64(calendar.WeekdayIndex(d)) / 4
		case "noisy":
			invited += rng.NormFloat64() * 12
			confirmRate += rng.NormFloat64() * 0.05
			showRate += rng.NormFloat64() * 0.03
		}

		// 2. Funnel
		inv := max(0, int(math.Round(invited)))
		confirmed := binomial(rng, inv, clamp(confirmRate))
		declined := inv - confirmed
		if cfg.Scenario == "noisy" {
			// Some invitees never answer either way.
			declined = max(0, declined-rng.Intn(3))
		}
		attended := binomial(rng, confirmed, clamp(showRate))

		s := Session{Date: d, Invited: inv, Confirmed: confirmed, Declined: declined, Attended: attended}

		// 3. Data entry mistakes
		if cfg.Scenario == "noisy" && rng.Float64() < 0.02 {
			s.Corrupt = []string{"bad-date", "missing-count"}[rng.Intn(2)]
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

func binomial(rng *rand.Rand, n int, p float64) int {
	k := 0
	for i := 0; i < n; i++ {
		if rng.Float64() < p {
			k++
		}
	}
	return k
}

func clamp(p float64) float64 {
	return math.Min(1, math.Max(0, p))
}

// Record renders s as a CSV row with ddmmyyyy dates.
func (s Session) Record() []string {
	row := []string{
		s.Date.Format("02012006"),
		strconv.Itoa(s.Invited),
		strconv.Itoa(s.Confirmed),
		strconv.Itoa(s.Declined),
		strconv.Itoa(s.Attended),
	}
	switch s.Corrupt {
	case "bad-date":
		row[0] = s.Date.Format("2006/01/02")
	case "missing-count":
		row[3] = ""
	}
	return row
}

// Save writes sessions as a ';'-separated CSV file and returns its path.
func Save(outDir, name string, sessions []Session) (string, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", err
	}

	path := filepath.Join(outDir, fmt.Sprintf("%s.csv", name))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = ';'
	if err := w.Write(Header); err != nil {
		return "", err
	}
	for _, s := range sessions {
		if err := w.Write(s.Record()); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return path, f.Close()
}
