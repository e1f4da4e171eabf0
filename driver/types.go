package driver

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// FeatureLevel is a capability tier a device can be created at. Values match the D3D12
// D3D_FEATURE_LEVEL constants so they order the same way the tiers do.
type FeatureLevel uint32

const (
	FeatureLevel11_0 FeatureLevel = 0xb000
	FeatureLevel11_1 FeatureLevel = 0xb100
	FeatureLevel12_0 FeatureLevel = 0xc000
	FeatureLevel12_1 FeatureLevel = 0xc100
)

// FeatureLevels lists every supported tier from most to least capable, which is the order
// devices are tried in
var FeatureLevels = []FeatureLevel{
	FeatureLevel12_1,
	FeatureLevel12_0,
	FeatureLevel11_1,
	FeatureLevel11_0,
}

var featureLevelMapping = map[FeatureLevel]string{
	FeatureLevel11_0: "11_0",
	FeatureLevel11_1: "11_1",
	FeatureLevel12_0: "12_0",
	FeatureLevel12_1: "12_1",
}

func (l FeatureLevel) String() string {
	str, ok := featureLevelMapping[l]
	if !ok {
		return fmt.Sprintf("FeatureLevel(%#x)", uint32(l))
	}
	return str
}

// ParseFeatureLevel accepts the "12_1" style names returned by FeatureLevel.String
func ParseFeatureLevel(str string) (FeatureLevel, error) {
	for level, name := range featureLevelMapping {
		if name == str {
			return level, nil
		}
	}
	return 0, errors.Newf("unknown feature level %q", str)
}

// CommandListType is the workload category of a queue, allocator, or list
type CommandListType uint32

const (
	CommandListTypeDirect  CommandListType = 0
	CommandListTypeBundle  CommandListType = 1
	CommandListTypeCompute CommandListType = 2
	CommandListTypeCopy    CommandListType = 3
)

var commandListTypeMapping = map[CommandListType]string{
	CommandListTypeDirect:  "CommandListTypeDirect",
	CommandListTypeBundle:  "CommandListTypeBundle",
	CommandListTypeCompute: "CommandListTypeCompute",
	CommandListTypeCopy:    "CommandListTypeCopy",
}

func (t CommandListType) String() string {
	return commandListTypeMapping[t]
}

// DescriptorHeapType is the category of descriptor a heap holds
type DescriptorHeapType uint32

const (
	DescriptorHeapTypeCBVSRVUAV DescriptorHeapType = 0
	DescriptorHeapTypeSampler   DescriptorHeapType = 1
	DescriptorHeapTypeRTV       DescriptorHeapType = 2
	DescriptorHeapTypeDSV       DescriptorHeapType = 3
)

var descriptorHeapTypeMapping = map[DescriptorHeapType]string{
	DescriptorHeapTypeCBVSRVUAV: "DescriptorHeapTypeCBVSRVUAV",
	DescriptorHeapTypeSampler:   "DescriptorHeapTypeSampler",
	DescriptorHeapTypeRTV:       "DescriptorHeapTypeRTV",
	DescriptorHeapTypeDSV:       "DescriptorHeapTypeDSV",
}

func (t DescriptorHeapType) String() string {
	return descriptorHeapTypeMapping[t]
}

// ResourceStates is a bitset of the ways a resource is being used by the GPU, used for transition barriers
type ResourceStates uint32

const (
	ResourceStateCommon          ResourceStates = 0
	ResourceStateRenderTarget    ResourceStates = 0x4
	ResourceStateUnorderedAccess ResourceStates = 0x8
	ResourceStateDepthWrite      ResourceStates = 0x10
	ResourceStateDepthRead       ResourceStates = 0x20
	ResourceStatePixelShader     ResourceStates = 0x80
	ResourceStateCopyDest        ResourceStates = 0x400
	ResourceStateCopySource      ResourceStates = 0x800
	ResourceStatePresent         ResourceStates = ResourceStateCommon
)

// CPUDescriptorHandle addresses one descriptor slot in a CPU-visible descriptor table
type CPUDescriptorHandle struct {
	Ptr uintptr
}

// Offset returns the handle index slots past this one, given the heap's increment size
func (h CPUDescriptorHandle) Offset(index int, incrementSize uint32) CPUDescriptorHandle {
	return CPUDescriptorHandle{Ptr: h.Ptr + uintptr(index)*uintptr(incrementSize)}
}

func (h CPUDescriptorHandle) String() string {
	return fmt.Sprintf("%#x", h.Ptr)
}

type AdapterDesc struct {
	Description          string
	VendorID             uint32
	DeviceID             uint32
	DedicatedVideoMemory uint64
	Software             bool
}

type CommandQueueDesc struct {
	Type     CommandListType
	Priority int32
}

type DescriptorHeapDesc struct {
	Type           DescriptorHeapType
	NumDescriptors int
	ShaderVisible  bool
}

// LiveObject is one entry in a driver's live-object report
type LiveObject struct {
	Kind     string
	Name     string
	RefCount uint32
}

// TransitionBarrier moves a resource subresource between two usage states
type TransitionBarrier struct {
	Resource    Resource
	Subresource uint32
	Before      ResourceStates
	After       ResourceStates
}

// AllSubresources targets every subresource of a resource in a TransitionBarrier
const AllSubresources uint32 = 0xffffffff
