package main

import (
	"github.com/spf13/cobra"

	"github.com/sarchlab/memhier/timing/hierarchy"
)

func newReadCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "read <addr>...",
		Short: "Read addresses in order and report where each was served.",
		Long: "Read decimal or 0x-prefixed addresses in order, printing the " +
			"resolving level and latency of each read followed by statistics.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addrs := make([]uint64, 0, len(args))
			for _, a := range args {
				addr, err := hierarchy.ParseAddress(a)
				if err != nil {
					return err
				}
				addrs = append(addrs, addr)
			}

			h, err := opts.buildHierarchy("memhier")
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, addr := range addrs {
				result, err := h.Read(addr)
				if err != nil {
					return err
				}
				printResult(out, result)
			}

			printStats(out, h.Stats())

			return nil
		},
	}
}
