package main

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/renalrisk/internal/loadgen"
	"github.com/okian/renalrisk/pkg/logger"
)

// Default configuration constants.
const (
	defaultRequests     = 10000
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultVerifySample = 100
	defaultTimeout      = 30 * time.Second
	defaultRunTimeout   = 10 * time.Minute
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := &loadgen.Config{}
	var (
		runTimeout time.Duration
		logLevel   string
	)
	cmd := &cobra.Command{
		Use:          "loadgen",
		Short:        "Submit random valid observations to a running predictor and verify the answers",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.SetLevelString(logLevel); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
			defer cancel()
			_, err := loadgen.Run(ctx, cfg)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "Base URL of the service")
	f.IntVar(&cfg.Requests, "requests", defaultRequests, "Number of observations to generate and submit")
	f.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
	f.IntVar(&cfg.BatchSize, "batch", 0, "Items per batch request (0 submits singly)")
	f.IntVar(&cfg.VerifySample, "verify", defaultVerifySample, "Observations resubmitted to check determinism")
	f.DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "HTTP request timeout")
	f.StringVar(&cfg.OutputFile, "output", "", "Write generated observations to this JSON file")
	f.DurationVar(&runTimeout, "run-timeout", defaultRunTimeout, "Overall run deadline")
	f.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	return cmd
}
