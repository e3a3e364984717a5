package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func computeCmd() *cobra.Command {
	var (
		csvPath string
		fuel    string
		region  string
		rules   intervalFlags
		compact bool
	)
	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute market phases from a CSV file and print the result as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := computeFromCSV(cmd.Context(), csvPath, fuel, region, rules.option())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(res)
		},
	}
	cmd.Flags().StringVar(&csvPath, "csv", "", "input CSV with date, fuel, price_mean and optional columns")
	cmd.Flags().StringVar(&fuel, "fuel", "", "fuel to analyse (e5, e10, diesel)")
	cmd.Flags().StringVar(&region, "region", "", "optional PLZ3 region filter")
	cmd.Flags().BoolVar(&compact, "compact", false, "print JSON on one line")
	rules.bind(cmd)
	_ = cmd.MarkFlagRequired("csv")
	_ = cmd.MarkFlagRequired("fuel")
	return cmd
}
