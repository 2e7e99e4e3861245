package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/sarchlab/memhier/benchmarks"
)

type benchOptions struct {
	csv      bool
	json     bool
	parallel int
	verbose  bool

	cpuProfile string
	memProfile string
}

func newBenchCmd(opts *rootOptions) *cobra.Command {
	benchOpts := &benchOptions{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run the locality experiments, each on a fresh hierarchy.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.loadConfig()
			if err != nil {
				return err
			}

			harness := benchmarks.NewHarness(benchmarks.HarnessConfig{
				Hierarchy: c,
				Parallel:  benchOpts.parallel,
				Output:    cmd.OutOrStdout(),
				Logger:    opts.logger,
				Verbose:   benchOpts.verbose,
			})
			harness.AddBenchmarks(benchmarks.GetExperiments())

			stopProfiling, err := startProfiling(benchOpts.cpuProfile, benchOpts.memProfile)
			if err != nil {
				return err
			}

			results, err := harness.RunAll(cmd.Context())
			if err := multierr.Append(err, stopProfiling()); err != nil {
				return err
			}

			switch {
			case benchOpts.json:
				return harness.PrintJSON(results)
			case benchOpts.csv:
				harness.PrintCSV(results)
			default:
				harness.PrintResults(results)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&benchOpts.csv, "csv", false, "Output results in CSV format")
	cmd.Flags().BoolVar(&benchOpts.json, "json", false, "Output results in JSON format")
	cmd.Flags().IntVar(&benchOpts.parallel, "parallel", 0,
		"Maximum number of experiments running at once (0 for all)")
	cmd.Flags().BoolVarP(&benchOpts.verbose, "verbose", "v", false,
		"Print per-level details of every experiment")
	cmd.Flags().StringVar(&benchOpts.cpuProfile, "cpuprofile", "", "Write a CPU profile to this file")
	cmd.Flags().StringVar(&benchOpts.memProfile, "memprofile", "", "Write a heap profile to this file")
	cmd.MarkFlagsMutuallyExclusive("csv", "json")

	return cmd
}
