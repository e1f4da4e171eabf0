// Package driver is the seam between gpucore and a native graphics API. It is shaped after
// D3D12: explicit command lists recorded against allocators, queues that execute them, 64-bit
// fences, and CPU-visible descriptor tables addressed by handle. Backends live in subpackages.
package driver

import (
	"reflect"
	"time"

	"github.com/gogpu/gputypes"
)

// InfiniteTimeout makes Fence.Wait block until the fence reaches its value
const InfiniteTimeout time.Duration = -1

// Factory enumerates adapters and creates presentation surfaces
type Factory interface {
	// EnumAdapter returns the adapter at index, or ErrNotFound once index passes the last adapter
	EnumAdapter(index int) (Adapter, error)
	// CreateSwapChain binds a swapchain to the native window and the queue that will present to it
	CreateSwapChain(queue CommandQueue, window uintptr, desc SwapChainDesc) (SwapChain, error)
	Release()
}

type Adapter interface {
	Desc() (AdapterDesc, error)
	// CreateDevice creates a logical device at exactly the requested feature level, or fails
	CreateDevice(level FeatureLevel) (Device, error)
	Release()
}

type Device interface {
	FeatureLevel() FeatureLevel

	CreateCommandQueue(desc CommandQueueDesc) (CommandQueue, error)
	CreateFence(initialValue uint64) (Fence, error)
	CreateCommandAllocator(listType CommandListType) (CommandAllocator, error)
	// CreateCommandList creates a list that is open for recording against allocator
	CreateCommandList(listType CommandListType, allocator CommandAllocator) (CommandList, error)
	CreateDescriptorHeap(desc DescriptorHeapDesc) (DescriptorHeap, error)
	DescriptorHandleIncrementSize(heapType DescriptorHeapType) uint32
	CreateCommittedResource(desc ResourceDesc, initialState ResourceStates) (Resource, error)

	CreateRenderTargetView(resource Resource, desc *RenderTargetViewDesc, dest CPUDescriptorHandle)
	CreateDepthStencilView(resource Resource, desc *DepthStencilViewDesc, dest CPUDescriptorHandle)
	CreateShaderResourceView(resource Resource, desc *ShaderResourceViewDesc, dest CPUDescriptorHandle)
	CreateConstantBufferView(desc *ConstantBufferViewDesc, dest CPUDescriptorHandle)
	CreateUnorderedAccessView(resource Resource, desc *UnorderedAccessViewDesc, dest CPUDescriptorHandle)

	// Release drops the caller's reference and returns the references that remain. Objects created
	// from the device hold references on it until they are released.
	Release() uint32
}

// LiveObjectReporter is implemented by devices that can list the objects still alive on them,
// usually only when a debug layer is active
type LiveObjectReporter interface {
	ReportLiveObjects() ([]LiveObject, error)
}

type CommandQueue interface {
	Type() CommandListType
	ExecuteCommandLists(lists ...CommandList) error
	// Signal sets fence to value once all previously executed work on the queue is done
	Signal(fence Fence, value uint64) error
	Release()
}

type Fence interface {
	CompletedValue() uint64
	// Wait blocks until the completed value is at least value. A negative timeout waits forever;
	// otherwise ErrWaitTimeout is returned when it elapses.
	Wait(value uint64, timeout time.Duration) error
	Release()
}

type CommandAllocator interface {
	Type() CommandListType
	// Reset reclaims command memory. It fails while lists recorded against it are still executing.
	Reset() error
	Release()
}

type CommandList interface {
	Type() CommandListType
	Close() error
	Reset(allocator CommandAllocator) error

	ResourceBarrier(barriers ...TransitionBarrier)
	OMSetRenderTargets(renderTargets []CPUDescriptorHandle, depthStencil *CPUDescriptorHandle)
	ClearRenderTargetView(handle CPUDescriptorHandle, color [4]float32)
	ClearDepthStencilView(handle CPUDescriptorHandle, depth float32, stencil uint8)

	Release()
}

type DescriptorHeap interface {
	Desc() DescriptorHeapDesc
	CPUDescriptorHandleForHeapStart() CPUDescriptorHandle
	Release()
}

type Resource interface {
	Desc() ResourceDesc
	// GPUVirtualAddress is the address constant buffer views point at. It is 0 for textures.
	GPUVirtualAddress() uint64
	Release()
}

// IsNilResource reports whether resource is nil, including a nil pointer stored in the interface
func IsNilResource(resource Resource) bool {
	if resource == nil {
		return true
	}

	value := reflect.ValueOf(resource)
	switch value.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return value.IsNil()
	}
	return false
}

type SwapChainDesc struct {
	Width       uint32
	Height      uint32
	Format      gputypes.TextureFormat
	BufferCount int
	SampleCount uint32
}

type SwapChain interface {
	Desc() SwapChainDesc
	// Buffer returns a new reference to back buffer index; the caller releases it
	Buffer(index int) (Resource, error)
	CurrentBackBufferIndex() int
	Present(syncInterval uint32, flags uint32) error
	Release()
}
