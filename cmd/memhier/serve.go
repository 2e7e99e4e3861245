package main

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/sarchlab/memhier/monitor"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a hierarchy over HTTP until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := opts.buildHierarchy("memhier")
			if err != nil {
				return err
			}

			m := monitor.NewMonitor(h).
				WithLogger(opts.logger).
				WithPortNumber(port)

			listener, err := m.Listen()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return m.Serve(ctx, listener)
		},
	}

	cmd.Flags().IntVar(&port, "port", 32776, "Port of the monitoring server")

	return cmd
}
