package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"seatcast/internal/apperr"
	"seatcast/internal/calendar"
	"seatcast/internal/dataset"
	"seatcast/internal/funnel"
	"seatcast/internal/optimizer"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// constantRows fabricates a year of history with the same funnel every business day.
func constantRows() []dataset.RawRow {
	var rows []dataset.RawRow
	for d := day(2023, 1, 2); d.Year() == 2023; d = d.AddDate(0, 0, 1) {
		if calendar.IsWeekend(d) {
			continue
		}
		rows = append(rows, dataset.RawRow{
			Line:      len(rows) + 2,
			Date:      d.Format(dataset.DateLayout),
			Invited:   "100",
			Confirmed: "90",
			Declined:  "10",
			Attended:  "85",
		})
	}
	return rows
}

// noisyRows varies the funnel by weekday and month.
func noisyRows() []dataset.RawRow {
	var rows []dataset.RawRow
	i := 0
	for d := day(2023, 1, 2); d.Before(day(2024, 3, 1)); d = d.AddDate(0, 0, 1) {
		if calendar.IsWeekend(d) {
			continue
		}
		invited := 60 + (i*37)%50 + int(d.Month())
		confirmed := invited * 8 / 10
		attended := confirmed - (i*7)%9
		rows = append(rows, dataset.RawRow{
			Line:      i + 2,
			Date:      d.Format(dataset.DateLayout),
			Invited:   strconv.Itoa(invited),
			Confirmed: strconv.Itoa(confirmed),
			Declined:  strconv.Itoa(invited - confirmed),
			Attended:  strconv.Itoa(attended),
		})
		i++
	}
	return rows
}

var fastTraining = funnel.Options{Trees: 10, Seed: 42}

func TestRun_ConstantScenario(t *testing.T) {
	res, err := Run(context.Background(), Request{
		Start:    day(2024, 5, 6),
		End:      day(2024, 5, 10),
		Policy:   optimizer.DefaultPolicy(),
		Rows:     constantRows(),
		Holidays: calendar.Builtin{},
		Country:  "TR",
		Training: fastTraining,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Sequence) != 5 {
		t.Fatalf("expected 5 business days, got %d", len(res.Sequence))
	}
	for _, d := range res.Sequence {
		if d.Invited < 47 || d.Invited > 48 {
			t.Errorf("%s: expected k in [47,48], got %d", d.Date.Format(calendar.DateLayout), d.Invited)
		}
		if d.Attending > 45 {
			t.Errorf("%s: attending %d exceeds capacity", d.Date.Format(calendar.DateLayout), d.Attending)
		}
		if d.Fallback {
			t.Errorf("%s: unexpected fallback", d.Date.Format(calendar.DateLayout))
		}
	}
	if res.Sequence[0].Weekday != "Monday" {
		t.Errorf("expected Monday, got %q", res.Sequence[0].Weekday)
	}
}

func TestGenerate_SkipsWeekendsAndHolidays(t *testing.T) {
	model := fixedModel{funnel.Invited: 100, funnel.Confirmed: 90, funnel.Declined: 10, funnel.Attended: 85}
	// 2024-04-23 (Tuesday) is a national holiday; 2024-04-10..12 is Ramazan Bayramı.
	seq, err := Generate(context.Background(), day(2024, 4, 8), day(2024, 4, 28), model, calendar.Builtin{}, "TR", optimizer.DefaultPolicy(), Options{})
	if err != nil {
		t.Fatal(err)
	}

	set, _ := calendar.Builtin{}.Holidays(context.Background(), "TR", []int{2024})
	var expected []time.Time
	for d := day(2024, 4, 8); !d.After(day(2024, 4, 28)); d = d.AddDate(0, 0, 1) {
		if !calendar.IsRestDay(d, set) {
			expected = append(expected, d)
		}
	}

	if len(seq) != len(expected) {
		t.Fatalf("expected %d days, got %d", len(expected), len(seq))
	}
	for i, d := range seq {
		if !d.Date.Equal(expected[i]) {
			t.Errorf("position %d: expected %s, got %s", i, expected[i].Format(calendar.DateLayout), d.Date.Format(calendar.DateLayout))
		}
		if i > 0 && !d.Date.After(seq[i-1].Date) {
			t.Errorf("dates not strictly increasing at %d", i)
		}
		if calendar.IsRestDay(d.Date, set) {
			t.Errorf("%s is a rest day", d.Date.Format(calendar.DateLayout))
		}
	}
}

type fixedModel map[funnel.Stage]float64

func (m fixedModel) Predict(stage funnel.Stage, _ calendar.Features) float64 { return m[stage] }

func TestGenerate_WeekendOnlyRange(t *testing.T) {
	seq, err := Generate(context.Background(), day(2024, 5, 11), day(2024, 5, 12), fixedModel{}, calendar.Builtin{}, "TR", optimizer.DefaultPolicy(), Options{})
	if err != nil {
		t.Fatalf("weekend-only range must not be an error: %v", err)
	}
	if len(seq) != 0 {
		t.Errorf("expected empty sequence, got %d entries", len(seq))
	}
}

func TestRun_ReversedRangeFailsBeforeTraining(t *testing.T) {
	trained := false
	_, err := execute(context.Background(), Request{
		Start:  day(2024, 5, 10),
		End:    day(2024, 5, 6),
		Policy: optimizer.DefaultPolicy(),
		Rows:   constantRows(),
	}, func(context.Context, dataset.PrepareResult, funnel.Options) (*funnel.Ensemble, error) {
		trained = true
		return nil, nil
	})

	if !apperr.IsKind(err, apperr.KindConfig) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if trained {
		t.Error("training must not run for a reversed range")
	}
}

func TestRun_InvalidPolicyFailsBeforeLoading(t *testing.T) {
	_, err := Run(context.Background(), Request{
		Start:       day(2024, 5, 6),
		End:         day(2024, 5, 10),
		Policy:      optimizer.CapacityPolicy{MaxCapacity: 0, TargetUtilization: 0.9},
		DatasetPath: "/does/not/exist.csv",
	})
	if !apperr.IsKind(err, apperr.KindConfig) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestRun_EmptyDataset(t *testing.T) {
	_, err := Run(context.Background(), Request{
		Start:  day(2024, 5, 6),
		End:    day(2024, 5, 10),
		Policy: optimizer.DefaultPolicy(),
		Rows:   []dataset.RawRow{{Line: 2, Date: "garbage"}},
	})
	if !apperr.IsKind(err, apperr.KindData) {
		t.Fatalf("expected DataError, got %v", err)
	}
}

func TestRun_DefaultTraining(t *testing.T) {
	res, err := Run(context.Background(), Request{
		Start:  day(2024, 5, 6),
		End:    day(2024, 5, 6),
		Policy: optimizer.DefaultPolicy(),
		Rows:   constantRows(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Model.Options != funnel.DefaultOptions() {
		t.Errorf("expected default training options, got %+v", res.Model.Options)
	}
}

func TestRun_Deterministic(t *testing.T) {
	req := Request{
		Start:    day(2024, 3, 1),
		End:      day(2024, 3, 31),
		Policy:   optimizer.DefaultPolicy(),
		Rows:     noisyRows(),
		Country:  "TR",
		Training: funnel.Options{Trees: 25, Seed: 42},
	}

	a, err := Run(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Run(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}

	ja, _ := json.Marshal(a.Sequence)
	jb, _ := json.Marshal(b.Sequence)
	if !bytes.Equal(ja, jb) {
		t.Errorf("two runs differ:\n%s\n%s", ja, jb)
	}
	for _, d := range a.Sequence {
		if !d.Fallback && d.Attending > 45 {
			t.Errorf("%s: attending %d above ceiling without fallback", d.Date.Format(calendar.DateLayout), d.Attending)
		}
		if d.Invited < optimizer.SearchMin || d.Invited >= optimizer.SearchMax {
			t.Errorf("%s: invited %d outside the search range", d.Date.Format(calendar.DateLayout), d.Invited)
		}
	}
}

func TestGenerate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Generate(ctx, day(2024, 5, 6), day(2024, 5, 10), fixedModel{}, calendar.Static{}, "TR", optimizer.DefaultPolicy(), Options{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDailyForecast_JSON(t *testing.T) {
	d := DailyForecast{Date: day(2024, 5, 6), Weekday: "Monday", Invited: 48, Confirmed: 43, Declined: 5, Attending: 41}
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"date":"2024-05-06","weekday":"Monday","invited":48,"confirmed":43,"declined":5,"attending":41}`
	if string(b) != want {
		t.Errorf("got %s\nwant %s", b, want)
	}

	var back DailyForecast
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if !back.Date.Equal(d.Date) {
		t.Errorf("date round trip: %v", back.Date)
	}
	back.Date = d.Date
	if back != d {
		t.Errorf("round trip mismatch: %+v", back)
	}
}

func TestSummarize(t *testing.T) {
	seq := Sequence{
		{Date: day(2024, 5, 6), Invited: 48, Confirmed: 43, Declined: 5, Attending: 41},
		{Date: day(2024, 5, 7), Invited: 50, Confirmed: 44, Declined: 6, Attending: 36},
		{Date: day(2024, 5, 8), Invited: 20, Confirmed: 60, Declined: 2, Attending: 54, Fallback: true},
	}
	s := Summarize(seq, optimizer.DefaultPolicy())

	if s.TotalAttending != 131 || s.TotalInvited != 118 {
		t.Errorf("unexpected totals: %+v", s)
	}
	cumulative := []int{41, 77, 131}
	for i, p := range s.Points {
		if p.Cumulative != cumulative[i] {
			t.Errorf("point %d: cumulative %d, want %d", i, p.Cumulative, cumulative[i])
		}
	}
	if s.Points[1].Utilization != 36.0/45.0 {
		t.Errorf("utilization = %v", s.Points[1].Utilization)
	}
	if s.OverCapacityDays != 1 || s.FallbackDays != 1 {
		t.Errorf("expected 1 over-capacity and 1 fallback day, got %d and %d", s.OverCapacityDays, s.FallbackDays)
	}
	if s.MedianAttending != 41 {
		t.Errorf("median = %v, want 41", s.MedianAttending)
	}
	if s.PeakUtilization != 54.0/45.0 {
		t.Errorf("peak = %v", s.PeakUtilization)
	}

	if empty := Summarize(nil, optimizer.DefaultPolicy()); empty.Days != 0 || len(empty.Points) != 0 {
		t.Errorf("empty summary: %+v", empty)
	}
}

func TestService_CachesModels(t *testing.T) {
	svc, err := NewService(ServiceConfig{Country: "TR", Training: fastTraining, ModelCacheSize: 2})
	if err != nil {
		t.Fatal(err)
	}

	req := Request{Start: day(2024, 5, 6), End: day(2024, 5, 10), Policy: optimizer.DefaultPolicy(), Rows: constantRows()}
	first, err := svc.Forecast(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	req.Start, req.End = day(2024, 6, 3), day(2024, 6, 7)
	second, err := svc.Forecast(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}

	if first.Model != second.Model {
		t.Error("second forecast should reuse the cached ensemble")
	}
	stats := svc.CacheStats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("expected 1 hit and 1 miss, got %+v", stats)
	}
}

func TestService_ForecastFreshSkipsCache(t *testing.T) {
	svc, err := NewService(ServiceConfig{Country: "TR", Training: fastTraining})
	if err != nil {
		t.Fatal(err)
	}

	req := Request{Start: day(2024, 5, 6), End: day(2024, 5, 10), Policy: optimizer.DefaultPolicy(), Rows: constantRows()}
	first, err := svc.ForecastFresh(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.ForecastFresh(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}

	if first.Model == second.Model {
		t.Error("each fresh forecast should train its own ensemble")
	}
	if stats := svc.CacheStats(); stats.Size != 0 || stats.Hits+stats.Misses != 0 {
		t.Errorf("fresh forecasts must not touch the model cache, got %+v", stats)
	}
	if first.Sequence[0].Invited != second.Sequence[0].Invited {
		t.Error("same seed should give the same plan")
	}
}

func TestService_TrainingOutlivesCancelledCaller(t *testing.T) {
	svc, err := NewService(ServiceConfig{Training: fastTraining})
	if err != nil {
		t.Fatal(err)
	}

	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	svc.train = func(ctx context.Context, _ dataset.PrepareResult, _ funnel.Options) (*funnel.Ensemble, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &funnel.Ensemble{}, nil
	}

	var prepared dataset.PrepareResult
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := svc.cachedModel(ctx, prepared, fastTraining)
		errc <- err
	}()

	<-started
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller should stop waiting, got %v", err)
	}

	close(release)
	e, err := svc.cachedModel(context.Background(), prepared, fastTraining)
	if err != nil {
		t.Fatalf("second caller failed: %v", err)
	}
	if e == nil {
		t.Fatal("expected an ensemble")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("expected one training run, got %d", n)
	}
}

func TestNewRefresher_InvalidSpec(t *testing.T) {
	svc, err := NewService(ServiceConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewRefresher(svc, "not a schedule"); err == nil {
		t.Error("expected error for invalid cron spec")
	}
	r, err := NewRefresher(svc, "@every 1h")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r.Start()
	<-r.Stop().Done()
}
