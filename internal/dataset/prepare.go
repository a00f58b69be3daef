package dataset

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"seatcast/internal/apperr"
	"seatcast/internal/calendar"
)

// DateLayout is the day-month-year layout of the dataset date column.
const DateLayout = "02012006"

// Record is a cleaned historical funnel observation.
type Record struct {
	Date      time.Time         `json:"date"`
	Invited   int               `json:"invited"`
	Confirmed int               `json:"confirmed"`
	Declined  int               `json:"declined"`
	Attended  int               `json:"attended"`
	Features  calendar.Features `json:"features"`
}

// PrepareResult holds the retained records and the cleaning diagnostics.
type PrepareResult struct {
	Records       []Record `json:"-"`
	Total         int      `json:"total"`
	DroppedDates  int      `json:"dropped_dates"`
	DroppedCounts int      `json:"dropped_counts"`
	Years         []int    `json:"years"`
}

// Dropped returns the number of excluded rows.
func (r PrepareResult) Dropped() int {
	return r.DroppedDates + r.DroppedCounts
}

// ParseDate parses a ddmmyyyy value. Seven-digit values are read as having
// lost their leading zero to a numeric spreadsheet column.
func ParseDate(value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	if len(v) == 7 {
		v = "0" + v
	}
	t, err := time.Parse(DateLayout, v)
	if err != nil {
		return time.Time{}, apperr.NewBadDateError(value, err)
	}
	return t, nil
}

// Prepare parses rows, drops those with unparseable dates or counts and
// derives calendar features against the holidays of the years present.
func Prepare(ctx context.Context, rows []RawRow, holidays calendar.Provider, country string) (PrepareResult, error) {
	result := PrepareResult{Total: len(rows)}

	// 1. Parse and clean
	parsed := make([]Record, 0, len(rows))
	dates := make([]time.Time, 0, len(rows))
	for _, row := range rows {
		d, err := ParseDate(row.Date)
		if err != nil {
			result.DroppedDates++
			log.Debug().Int("line", row.Line).Str("date", row.Date).Msg("Dropping row with unparseable date")
			continue
		}

		counts, err := parseCounts(row)
		if err != nil {
			result.DroppedCounts++
			log.Debug().Err(err).Int("line", row.Line).Msg("Dropping row with unparseable count")
			continue
		}

		parsed = append(parsed, Record{
			Date:      d,
			Invited:   counts[0],
			Confirmed: counts[1],
			Declined:  counts[2],
			Attended:  counts[3],
		})
		dates = append(dates, d)
	}

	if result.Dropped() > 0 {
		log.Info().
			Int("total", result.Total).
			Int("dropped_dates", result.DroppedDates).
			Int("dropped_counts", result.DroppedCounts).
			Msg("Dataset cleaning excluded rows")
	}

	if len(parsed) == 0 {
		return result, apperr.NewNoValidRecordsError(result.Total, result.Dropped())
	}

	// 2. Holidays for exactly the years present
	result.Years = calendar.YearsOf(dates...)
	set, err := holidays.Holidays(ctx, country, result.Years)
	if err != nil {
		return result, fmt.Errorf("load holidays for %v: %w", result.Years, err)
	}

	// 3. Features
	for i := range parsed {
		parsed[i].Features = calendar.Extract(parsed[i].Date, set)
	}
	result.Records = parsed
	return result, nil
}

func parseCounts(row RawRow) ([4]int, error) {
	var out [4]int
	for i, raw := range []string{row.Invited, row.Confirmed, row.Declined, row.Attended} {
		n, err := parseCount(raw)
		if err != nil {
			return out, fmt.Errorf("column %s: %w", columnNames[colInvited+column(i)], err)
		}
		out[i] = n
	}
	return out, nil
}

func parseCount(raw string) (int, error) {
	v := strings.TrimSpace(raw)
	if n, err := strconv.Atoi(v); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative count %d", n)
		}
		return n, nil
	}
	// Spreadsheets sometimes export whole numbers as "12.0" or "12,0".
	f, err := strconv.ParseFloat(strings.Replace(v, ",", ".", 1), 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || f != math.Trunc(f) {
		return 0, fmt.Errorf("not a non-negative whole number: %q", raw)
	}
	return int(f), nil
}

// Fingerprint returns a stable digest of the records' dates and counts.
func Fingerprint(records []Record) string {
	h := sha256.New()
	buf := make([]byte, 8)
	for _, r := range records {
		binary.BigEndian.PutUint64(buf, uint64(r.Date.Unix()))
		h.Write(buf)
		for _, n := range []int{r.Invited, r.Confirmed, r.Declined, r.Attended, boolInt(r.Features.HolidayOrWeekend)} {
			binary.BigEndian.PutUint64(buf, uint64(n))
			h.Write(buf)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
