package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"seatcast/internal/calendar"
)

var holidayYear int

var holidaysCmd = &cobra.Command{
	Use:   "holidays",
	Short: "List the holidays treated as rest days for a year",
	RunE: func(cmd *cobra.Command, args []string) error {
		year := holidayYear
		if year == 0 {
			year = time.Now().Year()
		}

		holidays, err := service.Holidays(cmd.Context(), year)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, h := range holidays {
			fmt.Fprintf(out, "%s  %-10s  %s\n", h.Date.Format(calendar.DateLayout), calendar.DayName(h.Date, cfg.WeekdayLocale), h.Name)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "seatcast %s (commit %s, built %s)\n", Version, Commit, BuildDate)
	},
}

func init() {
	holidaysCmd.Flags().IntVar(&holidayYear, "year", 0, "calendar year (default: current year)")
	rootCmd.AddCommand(holidaysCmd, versionCmd)
}
