package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnubald/icenet/internal/dataset"
	"github.com/bnubald/icenet/internal/domain"
	"github.com/bnubald/icenet/internal/model"
	"github.com/bnubald/icenet/internal/predict"
)

func newPredictCmd(a *app) *cobra.Command {
	var (
		outputName   string
		network      string
		seed         int
		testSet      bool
		saveInputs   bool
		loaderImpl   string
		dateStrs     []string
		dateFile     string
		groundTruth  string
		efoldingDays float64
	)

	cmd := &cobra.Command{
		Use:   "predict <dataset_config.json>",
		Short: "Run a forecast network over dataset samples and store forecasts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := dataset.Open(args[0], a.logger)
			if err != nil {
				return err
			}

			if dateFile != "" {
				fromFile, err := readDateFile(dateFile)
				if err != nil {
					return err
				}
				dateStrs = append(dateStrs, fromFile...)
			}
			if len(dateStrs) == 0 {
				return fmt.Errorf("no forecast dates: pass --date or --datefile")
			}
			dates := make([]time.Time, len(dateStrs))
			for i, s := range dateStrs {
				if dates[i], err = domain.ParseDate(s); err != nil {
					return err
				}
			}

			net, err := buildNetwork(network, ds, groundTruth, seed, efoldingDays)
			if err != nil {
				return err
			}

			runner, err := predict.NewRunner(ds, net, a.factory, predict.Options{
				OutputName:  outputName,
				ResultsPath: a.cfg.ResultsPath,
				TestSet:     testSet,
				SaveInputs:  saveInputs,
				LoaderImpl:  loaderImpl,
			}, a.logger)
			if err != nil {
				return err
			}

			if err := runner.Run(cmd.Context(), dates); err != nil {
				return err
			}
			a.logger.Info("prediction complete", "dir", runner.OutputDir(), "dates", len(dates))
			return nil
		},
	}

	cmd.Flags().StringVar(&outputName, "output-name", "", "prediction run name under the results tree")
	cmd.Flags().StringVar(&network, "network", "persistence", "forecast network (persistence or damped_anomaly)")
	cmd.Flags().IntVar(&seed, "seed", 42, "trained instance seed, part of the output path")
	cmd.Flags().BoolVar(&testSet, "testset", false, "replay samples from the generated test split")
	cmd.Flags().BoolVar(&saveInputs, "save-inputs", false, "store each sample's input planes next to the forecast")
	cmd.Flags().StringVar(&loaderImpl, "loader", "standard", "loader implementation for fresh-sample assembly")
	cmd.Flags().StringSliceVar(&dateStrs, "date", nil, "forecast initialisation date (YYYY-MM-DD, repeatable)")
	cmd.Flags().StringVar(&dateFile, "datefile", "", "file of forecast initialisation dates, one per line")
	cmd.Flags().StringVar(&groundTruth, "ground-truth", "siconca", "ground truth variable name")
	cmd.Flags().Float64Var(&efoldingDays, "efolding-days", 30, "damped anomaly decay timescale in days")
	cobra.CheckErr(cmd.MarkFlagRequired("output-name"))
	return cmd
}

// readDateFile reads one date string per line, skipping blanks and # comments.
func readDateFile(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read date file: %w", err)
	}
	var out []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, nil
}

func buildNetwork(name string, ds *dataset.DataSet, truthVar string, seed int, efoldingDays float64) (model.Network, error) {
	switch name {
	case "persistence":
		return model.NewPersistence(ds.ChannelNames(), truthVar, seed), nil
	case "damped_anomaly":
		return model.NewDampedAnomaly(ds.ChannelNames(), truthVar, seed, efoldingDays), nil
	default:
		return nil, fmt.Errorf("unknown network %q", name)
	}
}
