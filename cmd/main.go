package main

import (
	"context"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/okian/renalrisk/internal/config"
	"github.com/okian/renalrisk/pkg/logger"
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "renalrisk",
		Short:         "AKI and AKD risk estimation for hospitalized gout patients",
		SilenceUsage:  true,
	}
	root.PersistentFlags().String("config", "", "YAML config file (defaults to $"+config.EnvConfigFile+")")

	root.AddCommand(serveCmd())
	root.AddCommand(predictCmd())
	root.AddCommand(schemaCmd())
	return root
}

// loadConfig reads the layered configuration and applies the logging
// settings it carries.
func loadConfig(ctx context.Context, cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := logger.SetFormat(cfg.LogFormat); err != nil {
		return nil, err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, nil
}
