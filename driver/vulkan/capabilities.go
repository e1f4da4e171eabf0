package vulkan

import (
	"github.com/framegpu/gpucore/driver"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/core1_1"
	"github.com/vkngwrapper/core/v2/core1_2"
	"github.com/vkngwrapper/extensions/v2/ext_descriptor_indexing"
)

// capabilities records which core versions and extensions a device has active
type capabilities struct {
	Core11             bool
	Core12             bool
	DescriptorIndexing bool
}

func detectCapabilities(device core1_0.Device) capabilities {
	var caps capabilities

	// core 1.1 brings multiview, subgroups and the maintenance1-3 set
	caps.Core11 = core1_1.PromoteDevice(device) != nil

	// core 1.2 brings timeline semaphores and descriptor indexing
	caps.Core12 = core1_2.PromoteDevice(device) != nil

	// bindless descriptor tables, the closest match to the 12_1 resource binding tier
	caps.DescriptorIndexing = device.IsDeviceExtensionActive(ext_descriptor_indexing.ExtensionName)

	return caps
}

// featureLevel is the highest tier the capabilities satisfy
func (c capabilities) featureLevel() driver.FeatureLevel {
	switch {
	case c.Core12 && c.DescriptorIndexing:
		return driver.FeatureLevel12_1
	case c.Core12:
		return driver.FeatureLevel12_0
	case c.Core11:
		return driver.FeatureLevel11_1
	}
	return driver.FeatureLevel11_0
}
