package main

import (
	"github.com/spf13/cobra"

	"github.com/withObsrvr/ttp-processor-demo/effects-processor/config"
	"github.com/withObsrvr/ttp-processor-demo/effects-processor/logging"
)

// version is overridden at build time with -ldflags.
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:          "effects-processor",
	Short:        "Derive effects from Stellar transaction meta",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
}

func loadConfig() (*config.Config, *logging.ComponentLogger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logging.SetLevel(cfg.LogLevel)
	logger := logging.NewComponentLogger(cfg.ServiceName, version, logging.Options{
		Format: cfg.LogFormat,
		Out:    rootCmd.ErrOrStderr(),
	})
	return cfg, logger, nil
}
