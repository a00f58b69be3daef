package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"seatcast/internal/forecast"
	"seatcast/internal/optimizer"
)

func testResult() *forecast.Result {
	policy := optimizer.DefaultPolicy()
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	seq := forecast.Sequence{
		{Date: start, Weekday: "Monday", Invited: 48, Confirmed: 43, Declined: 5, Attending: 41},
		{Date: start.AddDate(0, 0, 1), Weekday: "Tuesday", Invited: 20, Confirmed: 52, Declined: 1, Attending: 50, Fallback: true},
	}
	return &forecast.Result{
		Start:    "2024-03-04",
		End:      "2024-03-05",
		Policy:   policy,
		Sequence: seq,
		Summary:  forecast.Summarize(seq, policy),
	}
}

func TestViewer_TableView(t *testing.T) {
	v := NewViewer(testResult())
	v.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

	out := v.View()
	for _, want := range []string{"2024-03-04", "Tuesday", "Katılım", "1 day(s) planned outside capacity"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestViewer_TabSwitchesPane(t *testing.T) {
	v := NewViewer(testResult())

	v.Update(tea.KeyMsg{Type: tea.KeyTab})
	if v.pane != paneUtilization {
		t.Fatalf("expected utilization pane, got %d", v.pane)
	}
	out := v.View()
	if !strings.Contains(out, "111%") {
		t.Errorf("utilization pane should show 50/45 as 111%%, got:\n%s", out)
	}

	v.Update(tea.KeyMsg{Type: tea.KeyTab})
	if v.pane != paneTable {
		t.Errorf("second tab should return to the table")
	}
}

func TestViewer_Quit(t *testing.T) {
	v := NewViewer(testResult())
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestViewer_EmptyRange(t *testing.T) {
	res := &forecast.Result{Start: "2024-03-09", End: "2024-03-10", Policy: optimizer.DefaultPolicy()}
	out := NewViewer(res).View()
	if !strings.Contains(out, "No business days") {
		t.Errorf("unexpected view:\n%s", out)
	}
}
