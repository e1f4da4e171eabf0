// Package vulkan is a headless driver backed by a Vulkan device. It runs the draw queue, fence
// and command contexts on real hardware; descriptor heaps are host-side tables, and resources and
// swapchains are not supported.
package vulkan

import (
	"context"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/framegpu/gpucore/driver"
	"github.com/vkngwrapper/core/v2"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v2/khr_portability_enumeration"
	"golang.org/x/exp/slog"
)

// Options contains optional settings when creating a Factory
type Options struct {
	// ApplicationName is reported to the Vulkan loader
	ApplicationName string
	// Validation enables the debug messenger, logging validation warnings and errors
	Validation bool
}

// Factory owns the Vulkan instance. Vulkan objects are used from the thread that created them,
// so NewFactory locks the calling goroutine to its OS thread until Release.
type Factory struct {
	logger    *slog.Logger
	instance  core1_0.Instance
	messenger ext_debug_utils.DebugUtilsMessenger
	devices   []core1_0.PhysicalDevice
}

var _ driver.Factory = &Factory{}

func NewFactory(logger *slog.Logger, options Options) (*Factory, error) {
	runtime.LockOSThread()

	factory, err := newFactory(logger, options)
	if err != nil {
		runtime.UnlockOSThread()
		return nil, err
	}
	return factory, nil
}

func newFactory(logger *slog.Logger, options Options) (*Factory, error) {
	loader, err := core.CreateSystemLoader()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load vulkan")
	}

	instanceExtensions, _, err := loader.AvailableExtensions()
	if err != nil {
		return nil, errors.Wrap(err, "failed to enumerate instance extensions")
	}

	f := &Factory{logger: logger}

	var instanceExtensionNames []string
	var flags core1_0.InstanceCreateFlags
	_, ok := instanceExtensions[khr_portability_enumeration.ExtensionName]
	if ok {
		instanceExtensionNames = append(instanceExtensionNames, khr_portability_enumeration.ExtensionName)
		flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	messengerInfo := ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    f.logValidation,
	}

	_, debugAvailable := instanceExtensions[ext_debug_utils.ExtensionName]
	useMessenger := options.Validation && debugAvailable
	if options.Validation && !debugAvailable {
		logger.Warn("validation requested but " + ext_debug_utils.ExtensionName + " is not available")
	}

	createInfo := core1_0.InstanceCreateInfo{
		ApplicationName:       options.ApplicationName,
		ApplicationVersion:    common.CreateVersion(1, 0, 0),
		EngineName:            "gpucore",
		EngineVersion:         common.CreateVersion(1, 0, 0),
		APIVersion:            common.Vulkan1_2,
		EnabledExtensionNames: instanceExtensionNames,
		Flags:                 flags,
	}
	if useMessenger {
		createInfo.EnabledExtensionNames = append(createInfo.EnabledExtensionNames, ext_debug_utils.ExtensionName)
		createInfo.NextOptions = common.NextOptions{Next: messengerInfo}
	}

	f.instance, _, err = loader.CreateInstance(nil, createInfo)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create vulkan instance")
	}

	if useMessenger {
		debugLoader := ext_debug_utils.CreateExtensionFromInstance(f.instance)
		f.messenger, _, err = debugLoader.CreateDebugUtilsMessenger(f.instance, nil, messengerInfo)
		if err != nil {
			f.instance.Destroy(nil)
			return nil, errors.Wrap(err, "failed to create debug messenger")
		}
	}

	f.devices, _, err = f.instance.EnumeratePhysicalDevices()
	if err != nil {
		f.destroy()
		return nil, errors.Wrap(err, "failed to enumerate physical devices")
	}

	logger.Debug("Factory::NewFactory", slog.Int("physicalDevices", len(f.devices)), slog.Bool("validation", useMessenger))
	return f, nil
}

func (f *Factory) logValidation(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	level := slog.LevelWarn
	if severity&ext_debug_utils.SeverityError != 0 {
		level = slog.LevelError
	}

	f.logger.LogAttrs(context.Background(), level, data.Message,
		slog.String("severity", severity.String()),
		slog.String("type", msgType.String()),
	)
	return false
}

func (f *Factory) EnumAdapter(index int) (driver.Adapter, error) {
	if index < 0 || index >= len(f.devices) {
		return nil, errors.Wrapf(driver.ErrNotFound, "adapter %d", index)
	}

	return &Adapter{
		factory:        f,
		physicalDevice: f.devices[index],
	}, nil
}

// CreateSwapChain is not supported: the driver has no presentation surface
func (f *Factory) CreateSwapChain(queue driver.CommandQueue, window uintptr, desc driver.SwapChainDesc) (driver.SwapChain, error) {
	return nil, errors.Wrap(driver.ErrUnsupported, "the vulkan driver is headless")
}

func (f *Factory) destroy() {
	if f.messenger != nil {
		f.messenger.Destroy(nil)
		f.messenger = nil
	}
	if f.instance != nil {
		f.instance.Destroy(nil)
		f.instance = nil
	}
}

func (f *Factory) Release() {
	f.logger.Debug("Factory::Release")

	if f.instance == nil {
		return
	}
	f.destroy()
	runtime.UnlockOSThread()
}
