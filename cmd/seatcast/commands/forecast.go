package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"seatcast/internal/calendar"
	"seatcast/internal/export"
	"seatcast/internal/forecast"
	"seatcast/internal/tui"
	"seatcast/internal/visuals"
)

var forecastFlags struct {
	start    string
	end      string
	capacity float64
	target   float64
	locale   string
	export   string
	json     bool
	chart    bool
	tui      bool
}

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Plan invitations for every business day between --start and --end",
	Example: `  seatcast forecast --start 2024-03-04 --end 2024-03-15
  seatcast forecast --start 2024-03-04 --end 2024-03-15 --capacity 60 --export plan.xlsx`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := forecastFlags

		// 1. Request
		start, err := calendar.ParseDate(f.start)
		if err != nil {
			return err
		}
		end, err := calendar.ParseDate(f.end)
		if err != nil {
			return err
		}
		policy := cfg.Policy
		if cmd.Flags().Changed("capacity") {
			policy.MaxCapacity = f.capacity
		}
		if cmd.Flags().Changed("target") {
			policy.TargetUtilization = f.target
		}

		// 2. Run
		res, err := service.ForecastFresh(cmd.Context(), forecast.Request{Start: start, End: end, Policy: policy, Locale: f.locale})
		if err != nil {
			return err
		}

		// 3. Outputs
		if f.export != "" {
			if err := writeExport(f.export, res.Sequence); err != nil {
				return err
			}
			log.Info().Str("path", f.export).Msg("Forecast exported")
		}

		out := cmd.OutOrStdout()
		switch {
		case f.tui:
			return tui.Run(res)
		case f.json:
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}

		printSequence(out, res)
		if f.chart && len(res.Sequence) > 0 {
			fmt.Fprintln(out)
			fmt.Fprintln(out, visuals.Fence(visuals.GenerateFunnelChart(res.Sequence)))
			fmt.Fprintln(out, visuals.Fence(visuals.GenerateUtilizationChart(res.Summary)))
		}
		return nil
	},
}

func writeExport(path string, seq forecast.Sequence) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := export.WriteXLSX(file, seq); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func printSequence(w io.Writer, res *forecast.Result) {
	if len(res.Sequence) == 0 {
		fmt.Fprintf(w, "No business days between %s and %s.\n", res.Start, res.End)
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))).
		Headers(export.Headers...)
	for _, d := range res.Sequence {
		attending := strconv.Itoa(d.Attending)
		if d.Fallback {
			attending += " !"
		}
		t.Row(
			d.Date.Format(calendar.DateLayout),
			d.Weekday,
			strconv.Itoa(d.Invited),
			strconv.Itoa(d.Confirmed),
			strconv.Itoa(d.Declined),
			attending,
		)
	}
	fmt.Fprintln(w, t.Render())

	s := res.Summary
	fmt.Fprintf(w, "%d day(s), %d invited, %d attending, mean utilization %.0f%%\n",
		s.Days, s.TotalInvited, s.TotalAttending, s.MeanUtilization*100)
	if s.FallbackDays > 0 {
		fmt.Fprintf(w, "! %d day(s) had no invitation count within capacity %.0f\n", s.FallbackDays, res.Policy.MaxCapacity)
	}
}

func init() {
	fl := forecastCmd.Flags()
	fl.StringVar(&forecastFlags.start, "start", "", "first day (YYYY-MM-DD)")
	fl.StringVar(&forecastFlags.end, "end", "", "last day, inclusive (YYYY-MM-DD)")
	fl.Float64Var(&forecastFlags.capacity, "capacity", 0, "hall capacity; overrides MAX_CAPACITY")
	fl.Float64Var(&forecastFlags.target, "target", 0, "target utilization in (0, 1]; overrides TARGET_UTILIZATION")
	fl.StringVar(&forecastFlags.locale, "locale", "", "weekday name language (en or tr)")
	fl.StringVar(&forecastFlags.export, "export", "", "also write the plan to this .xlsx file")
	fl.BoolVar(&forecastFlags.json, "json", false, "print the full result as JSON")
	fl.BoolVar(&forecastFlags.chart, "chart", false, "append Mermaid charts to the table")
	fl.BoolVar(&forecastFlags.tui, "tui", false, "browse the result in an interactive viewer")
	_ = forecastCmd.MarkFlagRequired("start")
	_ = forecastCmd.MarkFlagRequired("end")
	forecastCmd.MarkFlagsMutuallyExclusive("json", "tui")
	rootCmd.AddCommand(forecastCmd)
}
