//go:build !windows

package main

import (
	"github.com/cockroachdb/errors"
	"github.com/framegpu/gpucore/config"
	"github.com/framegpu/gpucore/driver"
	"golang.org/x/exp/slog"
)

func newD3D12Factory(cfg config.Config, logger *slog.Logger) (driver.Factory, error) {
	return nil, errors.Wrap(driver.ErrUnsupported, "the d3d12 backend is only available on windows")
}
