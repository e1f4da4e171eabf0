//go:build windows

package main

import (
	"github.com/framegpu/gpucore/config"
	"github.com/framegpu/gpucore/driver"
	"github.com/framegpu/gpucore/driver/d3d12"
	"golang.org/x/exp/slog"
)

func newD3D12Factory(cfg config.Config, logger *slog.Logger) (driver.Factory, error) {
	return d3d12.NewFactory(logger, d3d12.Options{Debug: cfg.Device.Validation})
}
