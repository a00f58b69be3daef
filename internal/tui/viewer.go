// Package tui renders a finished forecast in the terminal.
//
// The viewer has two panes: the day-by-day plan as a scrollable table and a
// utilization bar chart. Tab switches between them, q quits.
package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"seatcast/internal/calendar"
	"seatcast/internal/forecast"
)

type pane int

const (
	paneTable pane = iota
	paneUtilization
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)
	summaryStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F5A623")).Bold(true)
	hintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).MarginTop(1)
	barStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF"))
	overStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
)

// Viewer is the bubbletea model for one forecast result.
type Viewer struct {
	result *forecast.Result
	table  table.Model
	pane   pane
	width  int
	height int
}

// NewViewer builds a viewer over res.
func NewViewer(res *forecast.Result) *Viewer {
	columns := []table.Column{
		{Title: "Tarih", Width: 10},
		{Title: "Gün", Width: 10},
		{Title: "Davet", Width: 6},
		{Title: "Teyit", Width: 6},
		{Title: "Red", Width: 5},
		{Title: "Katılım", Width: 8},
		{Title: "", Width: 2},
	}

	rows := make([]table.Row, 0, len(res.Sequence))
	for _, d := range res.Sequence {
		flag := ""
		if d.Fallback {
			flag = "!"
		}
		rows = append(rows, table.Row{
			d.Date.Format(calendar.DateLayout),
			d.Weekday,
			strconv.Itoa(d.Invited),
			strconv.Itoa(d.Confirmed),
			strconv.Itoa(d.Declined),
			strconv.Itoa(d.Attending),
			flag,
		})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(min(15, max(1, len(rows)))),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#5B8DEF"))
	t.SetStyles(styles)

	return &Viewer{result: res, table: t}
}

// Run shows the viewer full-screen until the user quits.
func Run(res *forecast.Result) error {
	_, err := tea.NewProgram(NewViewer(res), tea.WithAltScreen()).Run()
	return err
}

func (v *Viewer) Init() tea.Cmd { return nil }

func (v *Viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.table.SetHeight(max(3, min(len(v.result.Sequence)+1, msg.Height-12)))
		return v, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return v, tea.Quit
		case "tab":
			if v.pane == paneTable {
				v.pane = paneUtilization
			} else {
				v.pane = paneTable
			}
			return v, nil
		}
	}

	if v.pane != paneTable {
		return v, nil
	}
	var cmd tea.Cmd
	v.table, cmd = v.table.Update(msg)
	return v, cmd
}

func (v *Viewer) View() string {
	res := v.result
	header := titleStyle.Render(fmt.Sprintf("SEATCAST · %s → %s", res.Start, res.End))

	var body string
	switch {
	case len(res.Sequence) == 0:
		body = "No business days in the selected range."
	case v.pane == paneTable:
		body = v.table.View()
	default:
		body = v.renderUtilization()
	}

	sections := []string{header, v.renderSummary(), body}
	sections = append(sections, hintStyle.Render("↑/↓ scroll    Tab → switch view    q → quit"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (v *Viewer) renderSummary() string {
	s := v.result.Summary
	p := v.result.Policy
	lines := []string{
		fmt.Sprintf("Capacity %.0f · target %.0f%%", p.MaxCapacity, p.TargetUtilization*100),
		fmt.Sprintf("Days %d · invited %d · attending %d · mean utilization %.0f%%",
			s.Days, s.TotalInvited, s.TotalAttending, s.MeanUtilization*100),
	}
	if s.FallbackDays > 0 {
		lines = append(lines, warnStyle.Render(fmt.Sprintf("⚠ %d day(s) planned outside capacity", s.FallbackDays)))
	}
	return summaryStyle.Render(strings.Join(lines, "\n"))
}

// renderUtilization draws one bar per day scaled so 100% fills barWidth.
func (v *Viewer) renderUtilization() string {
	const barWidth = 40
	var b strings.Builder
	for i, pt := range v.result.Summary.Points {
		if i > 0 {
			b.WriteByte('\n')
		}
		n := int(pt.Utilization*barWidth + 0.5)
		style := barStyle
		if pt.Utilization > 1 {
			style = overStyle
		}
		bar := style.Render(strings.Repeat("█", min(n, barWidth*3/2)))
		fmt.Fprintf(&b, "%s %s %3.0f%%", pt.Date, bar, pt.Utilization*100)
	}
	return b.String()
}
