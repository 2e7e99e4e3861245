package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the hierarchy configuration.",
	}

	var output string
	dump := &cobra.Command{
		Use:   "dump",
		Short: "Print the effective configuration as JSON.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.loadConfig()
			if err != nil {
				return err
			}

			if err := c.Validate(); err != nil {
				return err
			}

			if output != "" {
				return c.SaveConfig(output)
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(c)
		},
	}
	dump.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")

	cmd.AddCommand(dump)

	return cmd
}
