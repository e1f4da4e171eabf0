//go:build debug_gpucore

package device

import (
	"context"

	"github.com/framegpu/gpucore/driver"
	"golang.org/x/exp/slog"
)

// reportLiveObjects lists every object still created from the device, then releases it
func reportLiveObjects(logger *slog.Logger, device driver.Device) {
	reporter, ok := device.(driver.LiveObjectReporter)
	if ok {
		objects, err := reporter.ReportLiveObjects()
		if err != nil {
			logger.LogAttrs(context.Background(), slog.LevelError, "failed to report live objects", slog.Any("error", err))
		}

		for _, object := range objects {
			logger.LogAttrs(context.Background(), slog.LevelError, "[LIVE OBJECT]",
				slog.String("kind", object.Kind),
				slog.String("name", object.Name),
				slog.Uint64("refCount", uint64(object.RefCount)),
			)
		}
	}

	remaining := device.Release()
	logger.Debug("device released", slog.Uint64("remaining", uint64(remaining)))
}
