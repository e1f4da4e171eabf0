//go:build windows

package d3d12

import (
	"math"
	"time"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/framegpu/gpucore/driver"
	"golang.org/x/sys/windows"
)

type CommandQueue struct {
	device   *Device
	id       uint64
	queue    comObject
	listType driver.CommandListType
}

var _ driver.CommandQueue = &CommandQueue{}

func (q *CommandQueue) Type() driver.CommandListType { return q.listType }

func (q *CommandQueue) ExecuteCommandLists(lists ...driver.CommandList) error {
	pointers := make([]uintptr, 0, len(lists))
	for _, list := range lists {
		nativeList, ok := list.(*CommandList)
		if !ok || nativeList == nil {
			return errors.New("only d3d12 command lists can be executed on a d3d12 queue")
		}
		pointers = append(pointers, uintptr(nativeList.list))
	}
	if len(pointers) == 0 {
		return nil
	}

	q.queue.call(slotQueueExecuteCommandLists, uintptr(len(pointers)), uintptr(unsafe.Pointer(&pointers[0])))
	return nil
}

func (q *CommandQueue) Signal(fence driver.Fence, value uint64) error {
	nativeFence, ok := fence.(*Fence)
	if !ok || nativeFence == nil {
		return errors.New("only d3d12 fences can be signaled on a d3d12 queue")
	}

	ret := q.queue.call(slotQueueSignal, uintptr(nativeFence.fence), uintptr(value))
	return q.device.removedReason(check(ret, "ID3D12CommandQueue::Signal"))
}

func (q *CommandQueue) Release() {
	q.queue.release()
	q.device.untrack(q.id)
}

// Fence wraps an ID3D12Fence and the event used to wait on it
type Fence struct {
	device *Device
	id     uint64
	fence  comObject
	event  windows.Handle
}

var _ driver.Fence = &Fence{}

func newFence(device *Device, fence comObject) (*Fence, error) {
	event, err := windows.CreateEvent(nil, 0, 0, nil)
	if err != nil {
		fence.release()
		return nil, errors.Wrap(err, "failed to create fence event")
	}

	return &Fence{
		device: device,
		id:     device.track("Fence"),
		fence:  fence,
		event:  event,
	}, nil
}

func (f *Fence) CompletedValue() uint64 {
	return uint64(f.fence.call(slotFenceGetCompletedValue))
}

func (f *Fence) Wait(value uint64, timeout time.Duration) error {
	if f.CompletedValue() >= value {
		return nil
	}

	ret := f.fence.call(slotFenceSetEventOnCompletion, uintptr(value), uintptr(f.event))
	err := check(ret, "ID3D12Fence::SetEventOnCompletion")
	if err != nil {
		return f.device.removedReason(err)
	}

	milliseconds := uint32(windows.INFINITE)
	if timeout >= 0 {
		milliseconds = uint32(min(timeout.Milliseconds(), math.MaxUint32-1))
	}

	event, err := windows.WaitForSingleObject(f.event, milliseconds)
	if err != nil {
		return errors.Wrap(err, "failed to wait for fence event")
	}
	if event == uint32(windows.WAIT_TIMEOUT) {
		return errors.Wrapf(driver.ErrWaitTimeout, "waiting for %d after %s", value, timeout)
	}
	return nil
}

func (f *Fence) Release() {
	windows.CloseHandle(f.event)
	f.fence.release()
	f.device.untrack(f.id)
}

type CommandAllocator struct {
	device    *Device
	id        uint64
	allocator comObject
	listType  driver.CommandListType
}

var _ driver.CommandAllocator = &CommandAllocator{}

func (a *CommandAllocator) Type() driver.CommandListType { return a.listType }

func (a *CommandAllocator) Reset() error {
	return check(a.allocator.call(slotAllocatorReset), "ID3D12CommandAllocator::Reset")
}

func (a *CommandAllocator) Release() {
	a.allocator.release()
	a.device.untrack(a.id)
}

type resourceBarrier struct {
	Type        uint32
	Flags       uint32
	Resource    uintptr
	Subresource uint32
	StateBefore driver.ResourceStates
	StateAfter  driver.ResourceStates
	_           uint32
}

const (
	clearFlagDepth   = 0x1
	clearFlagStencil = 0x2
)

type CommandList struct {
	device   *Device
	id       uint64
	list     comObject
	listType driver.CommandListType
}

var _ driver.CommandList = &CommandList{}

func (l *CommandList) Type() driver.CommandListType { return l.listType }

func (l *CommandList) Close() error {
	return check(l.list.call(slotListClose), "ID3D12GraphicsCommandList::Close")
}

func (l *CommandList) Reset(allocator driver.CommandAllocator) error {
	nativeAllocator, ok := allocator.(*CommandAllocator)
	if !ok || nativeAllocator == nil {
		return errors.New("command lists must be reset against a d3d12 command allocator")
	}

	ret := l.list.call(slotListReset, uintptr(nativeAllocator.allocator), 0)
	return check(ret, "ID3D12GraphicsCommandList::Reset")
}

func (l *CommandList) ResourceBarrier(barriers ...driver.TransitionBarrier) {
	if len(barriers) == 0 {
		return
	}

	native := make([]resourceBarrier, len(barriers))
	for i, barrier := range barriers {
		native[i] = resourceBarrier{
			Resource:    resourcePtr(barrier.Resource),
			Subresource: barrier.Subresource,
			StateBefore: barrier.Before,
			StateAfter:  barrier.After,
		}
	}
	l.list.call(slotListResourceBarrier, uintptr(len(native)), uintptr(unsafe.Pointer(&native[0])))
}

func (l *CommandList) OMSetRenderTargets(renderTargets []driver.CPUDescriptorHandle, depthStencil *driver.CPUDescriptorHandle) {
	var targets uintptr
	if len(renderTargets) > 0 {
		targets = uintptr(unsafe.Pointer(&renderTargets[0]))
	}
	l.list.call(slotListOMSetRenderTargets,
		uintptr(len(renderTargets)),
		targets,
		0,
		uintptr(unsafe.Pointer(depthStencil)),
	)
}

func (l *CommandList) ClearRenderTargetView(handle driver.CPUDescriptorHandle, color [4]float32) {
	l.list.call(slotListClearRenderTargetView, handle.Ptr, uintptr(unsafe.Pointer(&color)), 0, 0)
}

func (l *CommandList) ClearDepthStencilView(handle driver.CPUDescriptorHandle, depth float32, stencil uint8) {
	l.list.call(slotListClearDepthStencilView,
		handle.Ptr,
		clearFlagDepth|clearFlagStencil,
		uintptr(math.Float32bits(depth)),
		uintptr(stencil),
		0,
		0,
	)
}

func (l *CommandList) Release() {
	l.list.release()
	l.device.untrack(l.id)
}

type DescriptorHeap struct {
	device *Device
	id     uint64
	heap   comObject
	desc   driver.DescriptorHeapDesc
	start  driver.CPUDescriptorHandle
}

var _ driver.DescriptorHeap = &DescriptorHeap{}

func (h *DescriptorHeap) Desc() driver.DescriptorHeapDesc { return h.desc }
func (h *DescriptorHeap) CPUDescriptorHandleForHeapStart() driver.CPUDescriptorHandle { return h.start }

func (h *DescriptorHeap) Release() {
	h.heap.release()
	h.device.untrack(h.id)
}

type Resource struct {
	device   *Device
	id       uint64
	resource comObject
	desc     driver.ResourceDesc
	address  uint64
}

var _ driver.Resource = &Resource{}

func newResource(device *Device, resource comObject, kind string) *Resource {
	var desc resourceDesc
	resource.call(slotResourceGetDesc, uintptr(unsafe.Pointer(&desc)))

	r := &Resource{
		device:   device,
		id:       device.track(kind),
		resource: resource,
		desc:     fromResourceDesc(desc),
	}
	if desc.Dimension == driver.ResourceDimensionBuffer {
		r.address = uint64(resource.call(slotResourceGetGPUVirtualAddress))
	}
	return r
}

func (r *Resource) Desc() driver.ResourceDesc { return r.desc }
func (r *Resource) GPUVirtualAddress() uint64 { return r.address }

func (r *Resource) Release() {
	r.resource.release()
	r.device.untrack(r.id)
}

// SwapChain wraps an IDXGISwapChain3
type SwapChain struct {
	device    *Device
	id        uint64
	swapChain comObject
}

var _ driver.SwapChain = &SwapChain{}

func (s *SwapChain) Desc() driver.SwapChainDesc {
	var desc swapChainDesc1
	s.swapChain.call(slotSwapChainGetDesc1, uintptr(unsafe.Pointer(&desc)))

	return driver.SwapChainDesc{
		Width:       desc.Width,
		Height:      desc.Height,
		Format:      fromDXGIFormat(desc.Format),
		BufferCount: int(desc.BufferCount),
		SampleCount: desc.SampleDesc.Count,
	}
}

func (s *SwapChain) Buffer(index int) (driver.Resource, error) {
	var buffer comObject
	ret := s.swapChain.call(slotSwapChainGetBuffer,
		uintptr(index),
		uintptr(unsafe.Pointer(&iidID3D12Resource)),
		uintptr(unsafe.Pointer(&buffer)),
	)
	err := check(ret, "IDXGISwapChain::GetBuffer")
	if err != nil {
		return nil, err
	}
	return newResource(s.device, buffer, "BackBuffer"), nil
}

func (s *SwapChain) CurrentBackBufferIndex() int {
	return int(uint32(s.swapChain.call(slotSwapChainGetCurrentBackBufferIndex)))
}

func (s *SwapChain) Present(syncInterval uint32, flags uint32) error {
	ret := s.swapChain.call(slotSwapChainPresent, uintptr(syncInterval), uintptr(flags))
	return s.device.removedReason(check(ret, "IDXGISwapChain::Present"))
}

func (s *SwapChain) Release() {
	s.swapChain.release()
	s.device.untrack(s.id)
}
