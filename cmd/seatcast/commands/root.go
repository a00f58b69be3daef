package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"seatcast/internal/config"
	"seatcast/internal/forecast"
	"seatcast/internal/logging"
	"seatcast/internal/mcp"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose     bool
	datasetPath string

	cfg     *config.AppConfig
	service *forecast.Service
)

var rootCmd = &cobra.Command{
	Use:   "seatcast",
	Short: "SeatCast plans daily exam invitations against hall capacity",
	Long: `SeatCast learns the invitation funnel (invited, confirmed, declined, attended) from
historical exam sessions and, for every business day of a date range, picks the number
of candidates to invite so that expected attendance stays close to the target
utilization of the hall without exceeding its capacity.

Run without a subcommand to start the MCP server on stdio.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(verbose)

		// Load configuration
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if datasetPath != "" {
			cfg.DatasetPath = datasetPath
		}

		holidays, err := cfg.HolidayProvider()
		if err != nil {
			return err
		}

		service, err = forecast.NewService(forecast.ServiceConfig{
			DatasetPath:    cfg.DatasetPath,
			Holidays:       holidays,
			Country:        cfg.HolidayCountry,
			Training:       cfg.Training,
			Locale:         cfg.WeekdayLocale,
			ModelCacheSize: cfg.ModelCacheSize,
		})
		if err != nil {
			return err
		}

		log.Debug().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Str("dataset", cfg.DatasetPath).
			Msg("SeatCast starting")
		return nil
	},
	RunE: runMCP,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the forecasting tools over MCP on stdio",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	log.Info().Msg("MCP Server starting Stdio loop")
	server := mcp.NewServer(service, mcp.Options{
		Policy:    cfg.Policy,
		Locale:    cfg.WeekdayLocale,
		Charts:    cfg.EnableMermaidCharts,
		ExportDir: cfg.DataPath,
		Version:   Version,
	})
	return server.Serve(cmd.Context(), os.Stdin, os.Stdout)
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&datasetPath, "dataset", "", "historical sessions file (csv or xlsx); overrides DATASET_PATH")
	rootCmd.AddCommand(mcpCmd)
}
