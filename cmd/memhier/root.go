package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sarchlab/memhier/timing/config"
	"github.com/sarchlab/memhier/timing/hierarchy"
)

const (
	envConfig   = "MEMHIER_CONFIG"
	envLogLevel = "MEMHIER_LOG_LEVEL"
)

var presets = map[string]func() *config.Config{
	"default":    config.DefaultConfig,
	"scenario-a": config.ScenarioAConfig,
}

type rootOptions struct {
	configPath string
	preset     string
	logLevel   string

	logger *logrus.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "memhier",
		Short: "Simulate reads through a multi-level cache hierarchy.",
		Long: `memhier simulates an inclusive L1/L2/L3 cache hierarchy in front of ` +
			`main memory and a backing store, reporting where each read is ` +
			`served and what it costs.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"Path to a hierarchy configuration JSON file (env "+envConfig+")")
	cmd.PersistentFlags().StringVar(&opts.preset, "preset", "default",
		"Built-in hierarchy used when no config file is given (default, scenario-a)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn",
		"Log level (env "+envLogLevel+")")

	cmd.AddCommand(
		newReadCmd(opts),
		newRunCmd(opts),
		newBenchCmd(opts),
		newServeCmd(opts),
		newConfigCmd(opts),
	)

	return cmd
}

// setup loads .env and applies environment defaults for flags the user did
// not set.
func (o *rootOptions) setup(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	flags := cmd.Flags()
	if v := os.Getenv(envConfig); v != "" && !flags.Changed("config") {
		o.configPath = v
	}
	if v := os.Getenv(envLogLevel); v != "" && !flags.Changed("log-level") {
		o.logLevel = v
	}

	level, err := logrus.ParseLevel(o.logLevel)
	if err != nil {
		return err
	}

	o.logger = logrus.New()
	o.logger.SetOutput(cmd.ErrOrStderr())
	o.logger.SetLevel(level)

	return nil
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	if o.configPath != "" {
		return config.LoadConfig(o.configPath)
	}

	preset, ok := presets[o.preset]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q", o.preset)
	}

	return preset(), nil
}

func (o *rootOptions) buildHierarchy(name string) (*hierarchy.Hierarchy, error) {
	c, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	return hierarchy.FromConfig(name, c, func(b hierarchy.Builder) hierarchy.Builder {
		return b.WithLogger(o.logger)
	})
}
