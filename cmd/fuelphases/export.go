package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"FuelPhases/internal/exporter"
)

func exportCmd() *cobra.Command {
	var (
		csvPath string
		fuel    string
		region  string
		rules   intervalFlags
		out     string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Compute market phases from a CSV file and write an XLSX workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := computeFromCSV(cmd.Context(), csvPath, fuel, region, rules.option())
			if err != nil {
				return err
			}
			if err := exporter.SaveXLSX(out, fuel, res); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d days, %d phases)\n", out, len(res.Timeseries), len(res.Phases))
			return nil
		},
	}
	cmd.Flags().StringVar(&csvPath, "csv", "", "input CSV")
	cmd.Flags().StringVar(&fuel, "fuel", "", "fuel to analyse (e5, e10, diesel)")
	cmd.Flags().StringVar(&region, "region", "", "optional PLZ3 region filter")
	cmd.Flags().StringVar(&out, "out", "market_phases.xlsx", "output workbook")
	rules.bind(cmd)
	_ = cmd.MarkFlagRequired("csv")
	_ = cmd.MarkFlagRequired("fuel")
	return cmd
}
