//go:build !debug_gpucore

package device

import (
	"context"

	"github.com/framegpu/gpucore/driver"
	"golang.org/x/exp/slog"
)

// reportLiveObjects releases the device and logs how many references survive it
func reportLiveObjects(logger *slog.Logger, device driver.Device) {
	remaining := device.Release()
	if remaining > 0 {
		logger.LogAttrs(context.Background(), slog.LevelError, "[LIVE OBJECTS] device still referenced after release",
			slog.Uint64("refCount", uint64(remaining)))
		return
	}
	logger.Debug("device released")
}
