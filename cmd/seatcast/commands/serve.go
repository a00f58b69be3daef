package commands

import (
	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"seatcast/internal/forecast"
	"seatcast/internal/web"
)

var (
	listenAddr  string
	openBrowser bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the forecast form and JSON API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.Listen
		if listenAddr != "" {
			addr = listenAddr
		}

		srv, err := web.NewServer(service, web.Options{
			Policy:          cfg.Policy,
			Locale:          cfg.WeekdayLocale,
			ResultCacheSize: cfg.ResultCacheSize,
			ResultTTL:       cfg.ResultTTL,
			RatePerMinute:   cfg.ForecastRatePerMinute,
			Charts:          cfg.EnableMermaidCharts,
		})
		if err != nil {
			return err
		}

		if cfg.RefreshCron != "" {
			refresher, err := forecast.NewRefresher(service, cfg.RefreshCron)
			if err != nil {
				return err
			}
			refresher.Start()
			defer func() { <-refresher.Stop().Done() }()
			log.Info().Str("schedule", cfg.RefreshCron).Msg("Model refresh scheduled")
		}

		return srv.ListenAndServe(cmd.Context(), addr, func(url string) {
			if !openBrowser {
				return
			}
			if err := browser.OpenURL(url); err != nil {
				log.Warn().Err(err).Msg("Could not open browser")
			}
		})
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "listen address; overrides LISTEN")
	serveCmd.Flags().BoolVar(&openBrowser, "open", false, "open the form in the default browser")
	rootCmd.AddCommand(serveCmd)
}
