package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/sarchlab/memhier/benchmarks"
	"github.com/sarchlab/memhier/timing/hierarchy"
	"github.com/sarchlab/memhier/tracing"
)

type runOptions struct {
	traceDB  string
	traceCSV string
	verbose  bool
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	runOpts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run [trace-file]",
		Short: "Replay an address trace.",
		Long: "Replay a trace with one address per line (stdin when no file is " +
			"given). Blank lines and lines starting with '#' are ignored.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(cmd, opts, runOpts, args)
		},
	}

	cmd.Flags().StringVar(&runOpts.traceDB, "trace-db", "",
		"Record every read into a new SQLite database at this path")
	cmd.Flags().StringVar(&runOpts.traceCSV, "trace-csv", "",
		"Record every read into a new CSV file at this path")
	cmd.Flags().BoolVarP(&runOpts.verbose, "verbose", "v", false,
		"Print every read")

	return cmd
}

func runTrace(cmd *cobra.Command, opts *rootOptions, runOpts *runOptions, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open trace: %w", err)
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	addrs, err := benchmarks.ParseTrace(in)
	if err != nil {
		return err
	}

	h, err := opts.buildHierarchy("memhier")
	if err != nil {
		return err
	}

	var closers []io.Closer

	if runOpts.traceDB != "" {
		w := tracing.NewSQLiteWriter(runOpts.traceDB)
		if err := w.Init(); err != nil {
			return err
		}
		closers = append(closers, w)
		h.AcceptHook(tracing.NewTracer(w))
	}

	if runOpts.traceCSV != "" {
		w := tracing.NewCSVWriter(runOpts.traceCSV)
		if err := w.Init(); err != nil {
			return multierr.Append(err, closeAll(closers))
		}
		closers = append(closers, w)
		h.AcceptHook(tracing.NewTracer(w))
	}

	err = replay(cmd, h, addrs, runOpts.verbose)
	if err := multierr.Append(err, closeAll(closers)); err != nil {
		return err
	}

	printStats(cmd.OutOrStdout(), h.Stats())

	return nil
}

func replay(cmd *cobra.Command, h *hierarchy.Hierarchy, addrs []uint64, verbose bool) error {
	if !verbose {
		_, err := h.ReadTrace(cmd.Context(), addrs)
		return err
	}

	for _, addr := range addrs {
		result, err := h.Read(addr)
		if err != nil {
			return err
		}
		printResult(cmd.OutOrStdout(), result)
	}

	return nil
}

func closeAll(closers []io.Closer) error {
	var errs error
	for _, c := range closers {
		errs = multierr.Append(errs, c.Close())
	}
	return errs
}
