package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	httpadapter "github.com/bnubald/icenet/internal/adapter/http"
	kafkaadapter "github.com/bnubald/icenet/internal/adapter/kafka"
	"github.com/bnubald/icenet/internal/dataset"
	"github.com/bnubald/icenet/internal/domain"
	"github.com/bnubald/icenet/internal/loader"
	"github.com/bnubald/icenet/internal/producer"
)

func newDatasetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Generate and inspect training datasets",
	}
	cmd.AddCommand(newDatasetCreateCmd(a), newDatasetCheckCmd(a))
	return cmd
}

func newDatasetCreateCmd(a *app) *cobra.Command {
	var (
		hemisphere string
		loaderImpl string
		lag        int
		leadDays   int
		batchSize  int
		workers    int
		pickup     bool
		dry        bool
		cfgOnly    bool
		progress   bool
		trainRange string
		valRange   string
		testRange  string
	)

	cmd := &cobra.Command{
		Use:   "create <recipe.yaml>",
		Short: "Discover source files per the recipe and generate sample batches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hemi, err := domain.ParseHemisphere(hemisphere)
			if err != nil {
				return err
			}
			recipe, err := loader.ReadRecipe(args[0])
			if err != nil {
				return err
			}

			lcfg, err := loader.BuildConfig(recipe, hemi, a.cfg.SourcePath, a.cfg.DataPath, lag, leadDays, a.logger)
			if err != nil {
				return err
			}
			cfgPath, err := lcfg.Write(a.cfg.DataPath)
			if err != nil {
				return err
			}
			a.logger.Info("wrote loader config", "file", cfgPath)

			override, err := parseSplitOverrides(trainRange, valRange, testRange)
			if err != nil {
				return err
			}

			if workers <= 0 {
				workers = a.cfg.Workers
			}
			opts := loader.Options{
				ConfigPath:    cfgPath,
				Name:          recipe.Identifier,
				Lag:           lag,
				ForecastDays:  leadDays,
				BatchSize:     batchSize,
				Workers:       workers,
				Pickup:        pickup,
				Dry:           dry,
				Progress:      progress,
				OutputPath:    a.cfg.DataPath,
				DatesOverride: override,
			}

			// Batch event notification is feature-flagged via
			// ICENET_KAFKA_BROKERS / ICENET_KAFKA_ENABLED.
			if a.cfg.KafkaEnabled {
				notifier := kafkaadapter.NewNotifier(a.cfg, a.logger)
				defer func() {
					if err := notifier.Close(); err != nil {
						a.logger.Error("kafka notifier close error", "error", err)
					}
				}()
				opts.Notifier = notifier
				a.metrics.NotifierEnabled.Set(1)
				a.logger.Info("batch event notification enabled",
					"brokers", a.cfg.KafkaBrokers, "topic", a.cfg.KafkaTopic)
			} else {
				a.metrics.NotifierEnabled.Set(0)
				a.logger.Info("batch event notification disabled")
			}

			ldr, err := a.factory.Create(loaderImpl, opts, a.logger, a.metrics)
			if err != nil {
				return err
			}

			if cfgOnly {
				manifest, err := ldr.WriteConfigOnly()
				if err != nil {
					return err
				}
				a.logger.Info("wrote dataset config only", "dataset", manifest.Identifier)
				return nil
			}

			stopSrv := a.serveMetrics(cmd.Context(), ldr)
			defer stopSrv()

			manifest, err := ldr.Generate(cmd.Context())
			if err != nil {
				return err
			}
			a.logger.Info("dataset generation complete",
				"dataset", manifest.Identifier,
				"channels", manifest.NumChannels,
				"counts", manifest.Counts)
			return nil
		},
	}

	cmd.Flags().StringVar(&hemisphere, "hemisphere", "", "hemisphere to process (north or south)")
	cmd.Flags().StringVar(&loaderImpl, "loader", "parallel", "loader implementation (parallel or standard)")
	cmd.Flags().IntVar(&lag, "lag", 2, "days of trailing context per input variable")
	cmd.Flags().IntVar(&leadDays, "forecast-days", 93, "forecast horizon in days")
	cmd.Flags().IntVar(&batchSize, "output-batch-size", 8, "samples per batch file")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent batch workers (0 uses ICENET_WORKERS)")
	cmd.Flags().BoolVar(&pickup, "pickup", false, "skip batch files that already exist")
	cmd.Flags().BoolVar(&dry, "dry", false, "assemble samples but write nothing")
	cmd.Flags().BoolVar(&cfgOnly, "cfg-only", false, "write the dataset config without generating data")
	cmd.Flags().BoolVar(&progress, "progress", false, "render a progress bar per split")
	cmd.Flags().StringVar(&trainRange, "train-range", "", "override train dates, start,end (YYYY-MM-DD)")
	cmd.Flags().StringVar(&valRange, "val-range", "", "override val dates, start,end (YYYY-MM-DD)")
	cmd.Flags().StringVar(&testRange, "test-range", "", "override test dates, start,end (YYYY-MM-DD)")
	cobra.CheckErr(cmd.MarkFlagRequired("hemisphere"))
	return cmd
}

func newDatasetCheckCmd(a *app) *cobra.Command {
	var split string

	cmd := &cobra.Command{
		Use:   "check <dataset_config.json>",
		Short: "Decode generated batch files and validate their shapes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := dataset.Open(args[0], a.logger)
			if err != nil {
				return err
			}

			splits := producer.SplitNames
			if split != "" {
				splits = []string{split}
			}
			var problems []error
			for _, s := range splits {
				if err := ds.Check(s); err != nil {
					problems = append(problems, fmt.Errorf("%s: %w", s, err))
				} else {
					a.logger.Info("split ok", "split", s)
				}
			}
			return errors.Join(problems...)
		},
	}

	cmd.Flags().StringVar(&split, "split", "", "check a single split instead of all three")
	return cmd
}

// parseSplitOverrides builds a dates override from optional start,end range
// flags; all empty means no override.
func parseSplitOverrides(train, val, test string) (*producer.DateSplits, error) {
	if train == "" && val == "" && test == "" {
		return nil, nil
	}
	var splits producer.DateSplits
	var err error
	if splits.Train, err = parseRange(train); err != nil {
		return nil, err
	}
	if splits.Val, err = parseRange(val); err != nil {
		return nil, err
	}
	if splits.Test, err = parseRange(test); err != nil {
		return nil, err
	}
	return &splits, nil
}

func parseRange(s string) ([]time.Time, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("range %q: want start,end", s)
	}
	start, err := domain.ParseDate(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, err
	}
	end, err := domain.ParseDate(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, err
	}
	return domain.DateRange(start, end), nil
}

// serveMetrics starts the health/readiness/metrics endpoint when configured
// and returns a function that shuts it down.
func (a *app) serveMetrics(ctx context.Context, ldr loader.Loader) func() {
	if a.cfg.MetricsAddr == "" {
		return func() {}
	}
	ready, ok := ldr.(httpadapter.ReadinessChecker)
	if !ok {
		return func() {}
	}

	srv := httpadapter.NewServer(a.cfg.MetricsAddr, ready, a.logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server error", "error", err)
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("metrics server shutdown error", "error", err)
		}
	}
}
