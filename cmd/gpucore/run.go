package main

import (
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/framegpu/gpucore/config"
	"github.com/framegpu/gpucore/device"
	"github.com/framegpu/gpucore/swapchain"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"
)

type runFlags struct {
	frames int
	window uint64
	stats  bool
}

func newRunCommand(root *rootFlags) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Initialize a device, draw frames, and finalize",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("frames") {
				cfg.Frames = flags.frames
			}
			return run(cmd.OutOrStdout(), cfg, logger, uintptr(flags.window), flags.stats)
		},
	}
	cmd.Flags().IntVarP(&flags.frames, "frames", "n", 0, "number of frames to draw, overriding the configuration")
	cmd.Flags().Uint64Var(&flags.window, "window", 0, "native window handle to present to")
	cmd.Flags().BoolVar(&flags.stats, "stats", false, "print descriptor heap statistics as JSON before finalizing")
	return cmd
}

// run is the whole lifetime of a device: any failure is fatal, and Finalize runs either way
func run(out io.Writer, cfg config.Config, logger *slog.Logger, window uintptr, stats bool) (err error) {
	factory, err := newFactory(cfg, logger)
	if err != nil {
		return err
	}

	options, err := cfg.DeviceOptions()
	if err != nil {
		factory.Release()
		return err
	}

	manager, err := device.New(logger, factory, options)
	if err != nil {
		factory.Release()
		return err
	}
	defer func() {
		err = errors.CombineErrors(err, manager.Finalize())
	}()

	err = manager.Initialize()
	if err != nil {
		return err
	}

	adapter := manager.AdapterDesc()
	logger.Info("device ready",
		slog.String("adapter", adapter.Description),
		slog.String("featureLevel", manager.FeatureLevel().String()),
	)

	if presents(cfg, window) {
		err = drawFrames(logger, manager, window, cfg)
	} else {
		err = submitFrames(manager, cfg.Frames)
	}
	if err != nil {
		return err
	}

	logger.Info("frames complete",
		slog.Int("frames", cfg.Frames),
		slog.Uint64("fence", manager.CompletedFenceValue()),
	)

	if stats {
		fmt.Fprintln(out, manager.BuildStatsString(true))
	}
	return nil
}

func drawFrames(logger *slog.Logger, manager *device.Manager, window uintptr, cfg config.Config) error {
	chain, err := swapchain.New(logger, manager, window, cfg.SwapchainDesc())
	if err != nil {
		return err
	}
	defer chain.Release()

	for frame := 0; frame < cfg.Frames; frame++ {
		err = chain.DrawFrame(cfg.Swapchain.ClearColor)
		if err != nil {
			return errors.Wrapf(err, "frame %d", frame)
		}
	}
	return nil
}

// submitFrames runs empty frames through the draw context when there is nothing to present to
func submitFrames(manager *device.Manager, frames int) error {
	ctx := manager.DrawContext()
	for frame := 0; frame < frames; frame++ {
		err := ctx.Reset()
		if err != nil {
			return errors.Wrapf(err, "frame %d", frame)
		}

		err = ctx.Close()
		if err != nil {
			return errors.Wrapf(err, "frame %d", frame)
		}

		err = manager.SubmitAndPresent()
		if err != nil {
			return errors.Wrapf(err, "frame %d", frame)
		}
	}
	return nil
}
