package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/ctessum/sparse"
	"github.com/spf13/cobra"

	"github.com/bnubald/icenet/internal/dataset"
	"github.com/bnubald/icenet/internal/domain"
	"github.com/bnubald/icenet/internal/eval"
	"github.com/bnubald/icenet/internal/predict"
)

func newMetricsCmd(a *app) *cobra.Command {
	var (
		configPath string
		outputName string
		network    string
		seed       int
		dateStr    string
		regionStr  string
		threshold  float64
		gridArea   float64
		outPath    string
	)

	cmd := &cobra.Command{
		Use:       "metrics <binacc|sie|mae|mse|rmse>",
		Short:     "Score a stored forecast against test-split ground truth",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"binacc", "sie", "mae", "mse", "rmse"},
		RunE: func(cmd *cobra.Command, args []string) error {
			metric := args[0]

			ds, err := dataset.Open(configPath, a.logger)
			if err != nil {
				return err
			}
			date, err := domain.ParseDate(dateStr)
			if err != nil {
				return err
			}

			fc, obs, weights, err := loadPair(ds, a.cfg.ResultsPath, outputName, network, seed, date)
			if err != nil {
				return err
			}

			if regionStr != "" {
				region, err := eval.ParseRegion(regionStr)
				if err != nil {
					return err
				}
				if fc, err = region.Crop(fc); err != nil {
					return err
				}
				if obs, err = region.Crop(obs); err != nil {
					return err
				}
				if weights, err = region.Crop(weights); err != nil {
					return err
				}
			}

			values, err := compute(metric, fc, obs, weights, threshold, gridArea)
			if err != nil {
				return err
			}

			if outPath == "" {
				outPath = filepath.Join(a.cfg.ResultsPath, "eval", outputName,
					fmt.Sprintf("%s.%d", network, seed),
					fmt.Sprintf("%s.%s.csv", metric, date.Format(domain.ManifestDateFormat)))
			}
			if err := eval.WriteCSV(outPath, metric, values); err != nil {
				return err
			}
			a.logger.Info("metric written", "metric", metric, "file", outPath,
				"leadtimes", len(values))
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "dataset-config", "", "dataset manifest the forecast was generated against")
	cmd.Flags().StringVar(&outputName, "output-name", "", "prediction run name under the results tree")
	cmd.Flags().StringVar(&network, "network", "persistence", "forecast network name")
	cmd.Flags().IntVar(&seed, "seed", 42, "trained instance seed")
	cmd.Flags().StringVar(&dateStr, "date", "", "forecast initialisation date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&regionStr, "region", "", "grid crop as x1,y1,x2,y2")
	cmd.Flags().Float64Var(&threshold, "threshold", 0.15, "ice/no-ice concentration threshold for binacc and sie")
	cmd.Flags().Float64Var(&gridArea, "grid-area", 25, "grid cell edge length in km for sie")
	cmd.Flags().StringVar(&outPath, "out", "", "CSV output path (defaults under the results tree)")
	cobra.CheckErr(cmd.MarkFlagRequired("dataset-config"))
	cobra.CheckErr(cmd.MarkFlagRequired("output-name"))
	cobra.CheckErr(cmd.MarkFlagRequired("date"))
	return cmd
}

// loadPair fetches the stored forecast for a date plus the matching
// test-split ground truth and cell weights.
func loadPair(ds *dataset.DataSet, resultsPath, outputName, network string, seed int, date time.Time) (fc, obs, weights *sparse.DenseArray, err error) {
	dir := filepath.Join(resultsPath, "predict", outputName, fmt.Sprintf("%s.%d", network, seed))
	fc, err = predict.ReadForecast(dir, date)
	if err != nil {
		return nil, nil, nil, err
	}

	testDates, err := ds.Dates("test")
	if err != nil {
		return nil, nil, nil, err
	}
	idx := -1
	for i, d := range testDates {
		if d.Equal(date) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, nil, nil, fmt.Errorf(
			"date %s is not in the test split, no ground truth to score against",
			date.Format(domain.FileDateFormat))
	}

	sample, err := ds.Sample("test", idx)
	if err != nil {
		return nil, nil, nil, err
	}
	return fc, sample.Y, sample.Weights, nil
}

func compute(metric string, fc, obs, weights *sparse.DenseArray, threshold, gridArea float64) ([]eval.LeadtimeValue, error) {
	switch metric {
	case "binacc":
		return eval.BinaryAccuracy(fc, obs, weights, threshold)
	case "sie":
		return eval.SIEError(fc, obs, weights, threshold, gridArea)
	case "mae":
		return eval.MAE(fc, obs, weights)
	case "mse":
		return eval.MSE(fc, obs, weights)
	case "rmse":
		return eval.RMSE(fc, obs, weights)
	default:
		return nil, fmt.Errorf("unknown metric %q", metric)
	}
}
