package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"FuelPhases/internal/di"
	"FuelPhases/pkg/config"
	applogger "FuelPhases/pkg/logger"
	xutil "FuelPhases/pkg/util"
)

func precomputeCmd() *cobra.Command {
	var (
		cfgPath string
		fuels   string
		out     string
	)
	cmd := &cobra.Command{
		Use:   "precompute",
		Short: "Precompute Germany-wide market phases for every fuel from ClickHouse",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadWithEnv(cfgPath)
			if err != nil {
				return err
			}
			if fuels != "" {
				cfg.Precompute.Fuels = xutil.SplitList(fuels)
			}
			if out != "" {
				cfg.Precompute.OutputDir = out
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("validate config: %w", err)
			}

			l, err := newLogger()
			if err != nil {
				return err
			}
			pc, cleanup, err := di.InitializePrecompute(cfg, l)
			if err != nil {
				return err
			}
			defer cleanup()

			summary, err := pc.Run(cmd.Context(), cfg.Precompute.Fuels)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(summary); err != nil {
				return err
			}
			if n := summary.Failed(); n > 0 {
				l.Error("precompute incomplete", applogger.Int("failed", n))
				return fmt.Errorf("%d of %d fuels failed", n, len(summary.Results))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "config/config.yaml", "config file path")
	cmd.Flags().StringVar(&fuels, "fuels", "", "comma separated fuels (default from config)")
	cmd.Flags().StringVar(&out, "out", "", "output directory for market_phases_<fuel>.json (default from config)")
	return cmd
}
