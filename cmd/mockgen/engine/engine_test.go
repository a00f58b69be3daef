package engine

import (
	"context"
	"testing"
	"time"

	"seatcast/internal/calendar"
	"seatcast/internal/dataset"
)

var now = time.Date(2024, 5, 31, 12, 0, 0, 0, time.UTC)

func TestGenerate_Steady(t *testing.T) {
	sessions, err := Generate(context.Background(), GeneratorConfig{Scenario: "steady", Days: 60, Seed: 1, Now: now})
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) == 0 {
		t.Fatal("no sessions generated")
	}

	for _, s := range sessions {
		if calendar.IsWeekend(s.Date) {
			t.Errorf("%s is a weekend", s.Date.Format(calendar.DateLayout))
		}
		if s.Date.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) {
			t.Error("Labour Day should be skipped")
		}
		if s.Confirmed+s.Declined != s.Invited {
			t.Errorf("%v: confirmed+declined != invited", s)
		}
		if s.Attended > s.Confirmed {
			t.Errorf("%v: more attended than confirmed", s)
		}
		if s.Corrupt != "" {
			t.Errorf("steady scenario should not corrupt rows")
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	cfg := GeneratorConfig{Scenario: "noisy", Days: 90, Seed: 7, Now: now}
	a, err := Generate(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Generate(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != len(b) {
		t.Fatalf("length differs: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("session %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestSave_LoadsAsDataset(t *testing.T) {
	sessions, err := Generate(context.Background(), GeneratorConfig{Scenario: "seasonal", Days: 45, Seed: 3, Now: now})
	if err != nil {
		t.Fatal(err)
	}
	sessions[0].Corrupt = "bad-date"
	sessions[1].Corrupt = "missing-count"

	path, err := Save(t.TempDir(), "history", sessions)
	if err != nil {
		t.Fatal(err)
	}

	rows, err := dataset.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != len(sessions) {
		t.Fatalf("expected %d rows, got %d", len(sessions), len(rows))
	}

	prepared, err := dataset.Prepare(context.Background(), rows, calendar.Builtin{}, "TR")
	if err != nil {
		t.Fatal(err)
	}
	if prepared.DroppedDates != 1 || prepared.DroppedCounts != 1 {
		t.Errorf("dropped dates=%d counts=%d, want 1 and 1", prepared.DroppedDates, prepared.DroppedCounts)
	}
	if len(prepared.Records) != len(sessions)-2 {
		t.Errorf("expected %d records, got %d", len(sessions)-2, len(prepared.Records))
	}
}
