package main

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/thalesfsp/gpbench"
)

// newRootCmd builds the gpbench command. stdout receives the report,
// stderr the logs.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var cfgFile string

	defaults := DefaultConfig()

	cmd := &cobra.Command{
		Use:   "gpbench",
		Short: "Time Gaussian Process parameter updates for a catalog of kernels",
		Long: `gpbench fits one Gaussian Process regression model per kernel
configuration, times the recomputation that follows a parameter change,
and reports the fastest of several samples for each configuration.

Results are printed and written as "label",milliseconds rows to the output
file. The output directory must already exist.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			return run(cmd.Context(), cfg, stdout, newLogger(stderr, cfg.Verbose))
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "config file (yaml, toml or json)")
	flags.String("data", defaults.Data, "input CSV with a header row")
	flags.String("out", defaults.Out, "output CSV path")
	flags.Int("dim", defaults.Dim, "number of input columns")
	flags.Int("repeat", defaults.Repeat, "timing samples per configuration")
	flags.Int("number", defaults.Number, "recomputations per sample")
	flags.Int("warmup", defaults.Warmup, "untimed recomputations before sampling")
	flags.Float64("log-hyper", defaults.LogHyper, "log of every initial kernel hyperparameter")
	flags.Float64("log-noise", defaults.LogNoise, "log of the noise variance")
	flags.Bool("settle", defaults.Settle, "force a garbage collection before each measurement")
	flags.Bool("inspect", defaults.Inspect, "print log-likelihood and gradient of one configuration")
	flags.String("inspect-label", defaults.InspectLabel, "configuration printed by --inspect")
	flags.String("plot", defaults.Plot, "also save a bar chart to this path")
	flags.BoolP("verbose", "v", defaults.Verbose, "enable debug logs")

	return cmd
}

func newLogger(w io.Writer, verbose bool) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		Prefix:          "gpbench",
		ReportTimestamp: true,
	})

	if verbose {
		logger.SetLevel(log.DebugLevel)
	}

	return logger
}

func run(ctx context.Context, cfg *Config, stdout io.Writer, logger *log.Logger) error {
	logger = logger.With("run", uuid.NewString())

	ds, err := gpbench.LoadDataset(cfg.Data, cfg.Dim)
	if err != nil {
		return err
	}

	logger.Info("dataset loaded", "path", cfg.Data, "rows", ds.Len(), "dim", ds.Dim())

	catalog := gpbench.DefaultCatalog(cfg.Dim, cfg.LogHyper)

	bench := gpbench.DefaultConfig()
	bench.Repeat = cfg.Repeat
	bench.Number = cfg.Number
	bench.Warmup = cfg.Warmup
	bench.NoiseVariance = math.Exp(cfg.LogNoise)
	bench.Logger = logger

	if !cfg.Settle {
		bench.Settle = nil
	}

	results, err := gpbench.Run(ctx, bench, ds, catalog)
	if err != nil {
		return err
	}

	if err := gpbench.WriteReport(stdout, results); err != nil {
		return err
	}

	if err := gpbench.WriteCSV(cfg.Out, results); err != nil {
		return err
	}

	logger.Info("results written", "path", cfg.Out, "configurations", len(results))

	if cfg.Plot != "" {
		if err := gpbench.SavePlot(cfg.Plot, results); err != nil {
			return fmt.Errorf("failed to save plot: %w", err)
		}

		logger.Info("plot written", "path", cfg.Plot)
	}

	if cfg.Inspect {
		entry, err := catalog.Lookup(cfg.InspectLabel)
		if err != nil {
			return err
		}

		model, err := gpbench.Inspect(ds, entry, bench.NoiseVariance)
		if err != nil {
			return err
		}

		if err := gpbench.WriteInspection(stdout, entry.Label, model); err != nil {
			return err
		}
	}

	return nil
}
