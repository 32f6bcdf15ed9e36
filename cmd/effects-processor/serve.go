package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/withObsrvr/ttp-processor-demo/effects-processor/logging"
	"github.com/withObsrvr/ttp-processor-demo/effects-processor/processor"
	"github.com/withObsrvr/ttp-processor-demo/effects-processor/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the effects API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		logger.LogStartup(logging.StartupConfig{
			NetworkPassphrase:   cfg.NetworkPassphrase,
			ListenAddress:       cfg.ListenAddress,
			CacheTTL:            cfg.CacheTTL,
			ProcessSystemEvents: cfg.ProcessSystemEvents,
			MetricsEnabled:      cfg.MetricsEnabled,
		})

		p := processor.New(cfg, logger)
		defer p.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := server.New(p, cfg, logger).ListenAndServe(ctx); err != nil {
			logger.Error().Err(err).Msg("HTTP server stopped")
			return err
		}
		logger.Info().Msg("Effects processor stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
