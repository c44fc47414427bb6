// Command icenet drives the sea ice forecasting data pipeline: deriving
// masks, generating training datasets from daily NetCDF sources, running
// baseline predictions and scoring forecasts.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bnubald/icenet/internal/config"
	"github.com/bnubald/icenet/internal/loader"
	"github.com/bnubald/icenet/internal/observability"
)

// app carries the shared wiring every subcommand needs.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	factory *loader.Factory
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	a := &app{
		cfg:     cfg,
		logger:  observability.NewLogger(cfg),
		metrics: observability.NewMetrics(),
		factory: loader.NewFactory(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var verbose bool
	root := &cobra.Command{
		Use:           "icenet",
		Short:         "Sea ice concentration forecasting data pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				a.cfg.LogLevel = "debug"
				a.logger = observability.NewLogger(a.cfg)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.AddCommand(
		newDatasetCmd(a),
		newMasksCmd(a),
		newPredictCmd(a),
		newMetricsCmd(a),
	)

	if err := root.ExecuteContext(ctx); err != nil {
		a.logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
