package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"FuelPhases/internal/domain/models"
	"FuelPhases/internal/repository"
	"FuelPhases/internal/services/phases"
	"FuelPhases/internal/usecase"
	applogger "FuelPhases/pkg/logger"
)

var logLevel string

func Execute(ctx context.Context) error {
	return newRootCmd(os.Stdout).ExecuteContext(ctx)
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "fuelphases",
		Short:         "Detect fuel price market phases",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(computeCmd(), precomputeCmd(), exportCmd())
	return root
}

func newLogger() (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{Level: logLevel, Format: "console", Output: "stderr"})
}

// intervalFlags holds the merge/filter rules shared by compute and export.
type intervalFlags struct {
	maxGap  int
	minDays int
}

func (f *intervalFlags) bind(cmd *cobra.Command) {
	d := phases.DefaultParams()
	cmd.Flags().IntVar(&f.maxGap, "max-gap", d.MaxGapDays, "merge same-phase intervals separated by at most this many days")
	cmd.Flags().IntVar(&f.minDays, "min-days", d.MinDurationDays, "drop intervals shorter than this many days")
}

func (f *intervalFlags) option() phases.EngineOption {
	return phases.WithIntervalRules(f.maxGap, f.minDays)
}

// computeFromCSV runs the engine over a CSV file.
func computeFromCSV(ctx context.Context, path, fuel, region string, opts ...phases.EngineOption) (*models.MarketPhases, error) {
	if path == "" {
		return nil, fmt.Errorf("--csv is required")
	}
	uc := usecase.NewMarketPhasesUseCase(repository.NewCSVObservationStore(path), phases.NewEngine(opts...), nil, nil)
	return uc.Get(ctx, usecase.Query{Fuel: fuel, Region: region})
}
