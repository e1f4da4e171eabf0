package main

import (
	"github.com/cockroachdb/errors"
	"github.com/framegpu/gpucore/config"
	"github.com/framegpu/gpucore/driver"
	"github.com/framegpu/gpucore/driver/sim"
	"github.com/framegpu/gpucore/driver/vulkan"
	"golang.org/x/exp/slog"
)

// newFactory opens the driver backend named by the configuration
func newFactory(cfg config.Config, logger *slog.Logger) (driver.Factory, error) {
	switch cfg.Backend {
	case config.BackendSim:
		options, err := cfg.SimOptions()
		if err != nil {
			return nil, err
		}
		return sim.NewFactory(options), nil
	case config.BackendVulkan:
		return vulkan.NewFactory(logger, vulkan.Options{
			ApplicationName: "gpucore",
			Validation:      cfg.Device.Validation,
		})
	case config.BackendD3D12:
		return newD3D12Factory(cfg, logger)
	}
	return nil, errors.Newf("unknown backend %q", cfg.Backend)
}

// presents reports whether the backend can create a swapchain for the window
func presents(cfg config.Config, window uintptr) bool {
	switch cfg.Backend {
	case config.BackendSim:
		return true
	case config.BackendD3D12:
		return window != 0
	}
	return false
}
