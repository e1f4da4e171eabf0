// Package sim is a driver that runs entirely in process. Work submitted to a queue runs on a
// simulated GPU timeline that either completes immediately or waits to be stepped by the
// caller, which makes fence and allocator ordering observable in tests.
package sim

import (
	"github.com/framegpu/gpucore/driver"
	"github.com/vkngwrapper/core/v2/common"
)

// Failure selects driver calls that should fail, for exercising error paths
type Failure uint32

var failureMapping = common.NewFlagStringMapping[Failure]()

func (f Failure) Register(str string) {
	failureMapping.Register(f, str)
}
func (f Failure) String() string {
	return failureMapping.FlagsToString(f)
}

const (
	FailCommandQueue Failure = 1 << iota
	FailFence
	FailCommandAllocator
	FailCommandList
	FailDescriptorHeap
	FailSwapChain
	FailExecute
	FailPresent
	FailSignal
	FailResource
)

func init() {
	FailCommandQueue.Register("FailCommandQueue")
	FailFence.Register("FailFence")
	FailCommandAllocator.Register("FailCommandAllocator")
	FailCommandList.Register("FailCommandList")
	FailDescriptorHeap.Register("FailDescriptorHeap")
	FailSwapChain.Register("FailSwapChain")
	FailExecute.Register("FailExecute")
	FailPresent.Register("FailPresent")
	FailSignal.Register("FailSignal")
	FailResource.Register("FailResource")
}

// AdapterConfig describes one simulated adapter
type AdapterConfig struct {
	Description          string
	VendorID             uint32
	DeviceID             uint32
	DedicatedVideoMemory uint64
	Software             bool
	// MaxFeatureLevel is the most capable tier a device can be created at on this adapter
	MaxFeatureLevel driver.FeatureLevel
}

type Options struct {
	// Adapters defaults to a single hardware adapter supporting 12_1
	Adapters []AdapterConfig
	// IncrementSizes overrides the descriptor handle increment per heap type. Unlisted types use 32.
	IncrementSizes map[driver.DescriptorHeapType]uint32
	// Manual holds submitted work on the timeline until Device.Step or Device.Flush runs it.
	// Otherwise work completes as it is submitted.
	Manual bool
	Fail   Failure
}

const defaultIncrementSize uint32 = 32

// DefaultAdapter is used when Options.Adapters is empty
var DefaultAdapter = AdapterConfig{
	Description:          "Simulated Adapter",
	VendorID:             0x1414,
	DedicatedVideoMemory: 256 * 1024 * 1024,
	MaxFeatureLevel:      driver.FeatureLevel12_1,
}
