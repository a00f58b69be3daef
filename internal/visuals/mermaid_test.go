package visuals

import (
	"strings"
	"testing"
	"time"

	"seatcast/internal/forecast"
	"seatcast/internal/optimizer"
)

func sample() forecast.Sequence {
	return forecast.Sequence{
		{Date: time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), Invited: 48, Confirmed: 43, Declined: 5, Attending: 41},
		{Date: time.Date(2024, 5, 7, 0, 0, 0, 0, time.UTC), Invited: 50, Confirmed: 44, Declined: 6, Attending: 45},
	}
}

func TestGenerateFunnelChart(t *testing.T) {
	chart := GenerateFunnelChart(sample())

	for _, want := range []string{
		"xychart-beta",
		`x-axis ["05-06", "05-07"]`,
		"y-axis \"Candidates\" 0 --> 60",
		"line [48, 50]",
		"line [41, 45]",
	} {
		if !strings.Contains(chart, want) {
			t.Errorf("chart missing %q:\n%s", want, chart)
		}
	}
}

func TestGenerateUtilizationChart(t *testing.T) {
	s := forecast.Summarize(sample(), optimizer.DefaultPolicy())
	chart := GenerateUtilizationChart(s)

	if !strings.Contains(chart, "bar [91.1, 100.0]") {
		t.Errorf("unexpected utilization bars:\n%s", chart)
	}
	if !strings.Contains(chart, "line [100, 100]") {
		t.Errorf("missing capacity line:\n%s", chart)
	}
}

func TestGenerateCumulativeChart(t *testing.T) {
	s := forecast.Summarize(sample(), optimizer.DefaultPolicy())
	chart := GenerateCumulativeChart(s)
	if !strings.Contains(chart, "line [41, 86]") {
		t.Errorf("unexpected cumulative series:\n%s", chart)
	}
}

func TestCharts_Empty(t *testing.T) {
	if GenerateFunnelChart(nil) != "" || GenerateCumulativeChart(forecast.Summary{}) != "" || GenerateUtilizationChart(forecast.Summary{}) != "" {
		t.Error("empty input should give an empty chart")
	}
	if Fence("") != "" {
		t.Error("Fence of empty diagram should be empty")
	}
	if got := Fence("xychart-beta\n"); !strings.HasPrefix(got, "```mermaid\n") || !strings.HasSuffix(got, "```") {
		t.Errorf("unexpected fence: %q", got)
	}
}
