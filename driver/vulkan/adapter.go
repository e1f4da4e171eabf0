package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/framegpu/gpucore/driver"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/ext_descriptor_indexing"
	"github.com/vkngwrapper/extensions/v2/khr_portability_subset"
	"golang.org/x/exp/slog"
)

type Adapter struct {
	factory        *Factory
	physicalDevice core1_0.PhysicalDevice
}

var _ driver.Adapter = &Adapter{}

func (a *Adapter) Desc() (driver.AdapterDesc, error) {
	properties, err := a.physicalDevice.Properties()
	if err != nil {
		return driver.AdapterDesc{}, errors.Wrap(err, "failed to query physical device properties")
	}

	var dedicated uint64
	memoryProperties := a.physicalDevice.MemoryProperties()
	for _, heap := range memoryProperties.MemoryHeaps {
		if heap.Flags&core1_0.MemoryHeapDeviceLocal != 0 {
			dedicated += uint64(heap.Size)
		}
	}

	return driver.AdapterDesc{
		Description:          properties.DriverName,
		VendorID:             uint32(properties.VendorID),
		DeviceID:             uint32(properties.DeviceID),
		DedicatedVideoMemory: dedicated,
		Software:             properties.DriverType == core1_0.PhysicalDeviceTypeCPU,
	}, nil
}

func (a *Adapter) graphicsQueueFamily() int {
	for queueIndex, queueFamily := range a.physicalDevice.QueueFamilyProperties() {
		if queueFamily.QueueFlags&core1_0.QueueGraphics != 0 {
			return queueIndex
		}
	}
	return -1
}

// CreateDevice creates a logical device with one graphics queue and fails when the device does
// not reach the capabilities of level
func (a *Adapter) CreateDevice(level driver.FeatureLevel) (driver.Device, error) {
	graphicsFamily := a.graphicsQueueFamily()
	if graphicsFamily < 0 {
		return nil, errors.New("physical device has no graphics queue family")
	}

	availableExtensions, _, err := a.physicalDevice.EnumerateDeviceExtensionProperties()
	if err != nil {
		return nil, errors.Wrap(err, "failed to enumerate device extensions")
	}

	var extensionNames []string
	_, ok := availableExtensions[khr_portability_subset.ExtensionName]
	if ok {
		extensionNames = append(extensionNames, khr_portability_subset.ExtensionName)
	}
	_, ok = availableExtensions[ext_descriptor_indexing.ExtensionName]
	if ok && level >= driver.FeatureLevel12_1 {
		extensionNames = append(extensionNames, ext_descriptor_indexing.ExtensionName)
	}

	vkDevice, _, err := a.physicalDevice.CreateDevice(nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos: []core1_0.DeviceQueueCreateInfo{
			{
				QueueFamilyIndex: graphicsFamily,
				QueuePriorities:  []float32{0.0},
			},
		},
		EnabledExtensionNames: extensionNames,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create vulkan device")
	}

	caps := detectCapabilities(vkDevice)
	if caps.featureLevel() < level {
		vkDevice.Destroy(nil)
		return nil, errors.Newf("device reaches feature level %s, but %s was requested", caps.featureLevel(), level)
	}

	a.factory.logger.Debug("Adapter::CreateDevice",
		slog.String("featureLevel", level.String()),
		slog.Int("queueFamily", graphicsFamily),
	)
	return newDevice(a.factory.logger, vkDevice, level, graphicsFamily), nil
}

// Release is a no-op: physical devices belong to the instance
func (a *Adapter) Release() {}
