package main

import (
	"github.com/spf13/cobra"

	"github.com/bnubald/icenet/internal/domain"
	"github.com/bnubald/icenet/internal/mask"
	"github.com/bnubald/icenet/internal/producer"
)

func newMasksCmd(a *app) *cobra.Command {
	var (
		hemisphere string
		source     string
		sicVar     string
		refRange   string
	)

	cmd := &cobra.Command{
		Use:   "masks",
		Short: "Derive land and active-grid-cell masks from a SIC climatology",
		RunE: func(cmd *cobra.Command, args []string) error {
			hemi, err := domain.ParseHemisphere(hemisphere)
			if err != nil {
				return err
			}
			ref, err := parseRange(refRange)
			if err != nil {
				return err
			}

			gen, err := mask.NewGenerator(mask.GeneratorConfig{
				Hemisphere: hemi,
				DataPath:   a.cfg.DataPath,
				SourcePath: a.cfg.SourcePath,
				Source:     source,
				Var:        sicVar,
				Reference:  producer.DateSplits{Train: ref},
			}, a.logger)
			if err != nil {
				return err
			}
			if err := gen.Generate(cmd.Context()); err != nil {
				return err
			}
			a.logger.Info("masks written", "dir", mask.Dir(a.cfg.DataPath, hemi))
			return nil
		},
	}

	cmd.Flags().StringVar(&hemisphere, "hemisphere", "", "hemisphere to process (north or south)")
	cmd.Flags().StringVar(&source, "source", "osisaf", "producer tree holding the reference SIC files")
	cmd.Flags().StringVar(&sicVar, "var", "siconca", "SIC variable name in the reference files")
	cmd.Flags().StringVar(&refRange, "reference", "", "climatology date range, start,end (YYYY-MM-DD)")
	cobra.CheckErr(cmd.MarkFlagRequired("hemisphere"))
	cobra.CheckErr(cmd.MarkFlagRequired("reference"))
	return cmd
}
