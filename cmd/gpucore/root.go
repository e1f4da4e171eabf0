package main

import (
	"fmt"
	"os"

	"github.com/framegpu/gpucore/config"
	"github.com/framegpu/gpucore/device"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"
)

type rootFlags struct {
	configPath string
	backend    string
	logLevel   string
	logFormat  string
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "gpucore",
		Short:         "Bring up a GPU device, draw frames, and report leaks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to a TOML configuration file")
	root.PersistentFlags().StringVar(&flags.backend, "backend", "", "driver backend: sim, vulkan or d3d12")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error")
	root.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "text or json")

	root.AddCommand(newRunCommand(flags))
	root.AddCommand(newAdaptersCommand(flags))
	return root
}

// load reads the configuration file, if any, and applies the command line overrides on top
func (f *rootFlags) load() (config.Config, *slog.Logger, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		cfg, err = config.Load(f.configPath)
		if err != nil {
			return cfg, nil, err
		}
	}

	if f.backend != "" {
		cfg.Backend = f.backend
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.logFormat != "" {
		cfg.Log.Format = f.logFormat
	}

	err := cfg.Validate()
	if err != nil {
		return cfg, nil, err
	}

	logger, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}

func execute(args []string) int {
	root := newRootCommand()
	root.SetArgs(args)

	err := root.Execute()
	if err == nil {
		return 0
	}

	fmt.Fprintf(os.Stderr, "gpucore: %v\n", err)
	return device.ExitCode(err)
}
