package visuals

import (
	"fmt"
	"math"
	"strings"

	"seatcast/internal/forecast"
)

// Fence wraps a diagram in a markdown mermaid block.
func Fence(diagram string) string {
	if diagram == "" {
		return ""
	}
	return "```mermaid\n" + diagram + "```"
}

// GenerateFunnelChart creates a Mermaid xychart-beta of the daily invited,
// confirmed and attending counts.
func GenerateFunnelChart(seq forecast.Sequence) string {
	if len(seq) == 0 {
		return ""
	}

	var labels, invited, confirmed, attending []string
	maxVal := 0
	for _, d := range seq {
		labels = append(labels, dayLabel(d.Date.Format("01-02")))
		invited = append(invited, fmt.Sprintf("%d", d.Invited))
		confirmed = append(confirmed, fmt.Sprintf("%d", d.Confirmed))
		attending = append(attending, fmt.Sprintf("%d", d.Attending))
		maxVal = max(maxVal, d.Invited, d.Confirmed, d.Attending)
	}

	var sb strings.Builder
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Daily Funnel (invited, confirmed, attending)\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Candidates\" 0 --> %d\n", maxVal+int(math.Max(1, float64(maxVal)*0.2))))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(invited, ", ")))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(confirmed, ", ")))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(attending, ", ")))
	return sb.String()
}

// GenerateCumulativeChart creates a Mermaid line chart of cumulative attendance.
func GenerateCumulativeChart(summary forecast.Summary) string {
	if len(summary.Points) == 0 {
		return ""
	}

	var labels, values []string
	for _, p := range summary.Points {
		labels = append(labels, dayLabel(p.Date[5:]))
		values = append(values, fmt.Sprintf("%d", p.Cumulative))
	}
	top := summary.Points[len(summary.Points)-1].Cumulative

	var sb strings.Builder
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Cumulative Attendance\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Candidates\" 0 --> %d\n", int(math.Ceil(float64(max(top, 1))*1.1))))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(values, ", ")))
	return sb.String()
}

// GenerateUtilizationChart creates a Mermaid bar chart of room utilization in
// percent with a full-capacity reference line at 100.
func GenerateUtilizationChart(summary forecast.Summary) string {
	if len(summary.Points) == 0 {
		return ""
	}

	var labels, values, full []string
	maxVal := 100.0
	for _, p := range summary.Points {
		pct := p.Utilization * 100
		labels = append(labels, dayLabel(p.Date[5:]))
		values = append(values, fmt.Sprintf("%.1f", pct))
		full = append(full, "100")
		maxVal = math.Max(maxVal, pct)
	}

	var sb strings.Builder
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Room Utilization (%)\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Utilization (%%)\" 0 --> %d\n", int(math.Ceil(maxVal*1.1))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(full, ", ")))
	return sb.String()
}

func dayLabel(s string) string {
	return fmt.Sprintf("\"%s\"", s)
}
