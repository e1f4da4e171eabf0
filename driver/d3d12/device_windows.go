//go:build windows

package d3d12

import (
	"context"
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/framegpu/gpucore/driver"
	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"
)

const (
	heapTypeDefault = 1

	rldoDetail         = 0x2
	rldoIgnoreInternal = 0x4
)

type heapProperties struct {
	Type                 uint32
	CPUPageProperty      uint32
	MemoryPoolPreference uint32
	CreationNodeMask     uint32
	VisibleNodeMask      uint32
}

type commandQueueDesc struct {
	Type     driver.CommandListType
	Priority int32
	Flags    uint32
	NodeMask uint32
}

type descriptorHeapDesc struct {
	Type           driver.DescriptorHeapType
	NumDescriptors uint32
	Flags          uint32
	NodeMask       uint32
}

const descriptorHeapFlagShaderVisible = 0x1

// Device wraps an ID3D12Device. The native device keeps its own reference count; the Go side
// additionally tracks the kind of every live child so leaks can be listed by name.
type Device struct {
	logger *slog.Logger
	device comObject
	level  driver.FeatureLevel
	debug  bool

	mutex  sync.Mutex
	nextID uint64
	live   *swiss.Map[uint64, string]
}

var _ driver.Device = &Device{}
var _ driver.LiveObjectReporter = &Device{}

func newDevice(logger *slog.Logger, device comObject, level driver.FeatureLevel, debug bool) *Device {
	return &Device{
		logger: logger,
		device: device,
		level:  level,
		debug:  debug,
		live:   swiss.NewMap[uint64, string](16),
	}
}

func (d *Device) track(kind string) uint64 {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.nextID++
	d.live.Put(d.nextID, kind)
	return d.nextID
}

func (d *Device) untrack(id uint64) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.live.Has(id) {
		d.live.Delete(id)
	}
}

func (d *Device) FeatureLevel() driver.FeatureLevel {
	return d.level
}

// removedReason explains a failure caused by device loss, or returns err unchanged
func (d *Device) removedReason(err error) error {
	if !errors.Is(err, driver.ErrDeviceRemoved) {
		return err
	}
	reason := check(d.device.call(slotDeviceGetDeviceRemovedReason), "GetDeviceRemovedReason")
	if reason == nil {
		return err
	}
	return errors.WithSecondaryError(err, reason)
}

func (d *Device) CreateCommandQueue(desc driver.CommandQueueDesc) (driver.CommandQueue, error) {
	nativeDesc := commandQueueDesc{Type: desc.Type, Priority: desc.Priority}

	var queue comObject
	ret := d.device.call(slotDeviceCreateCommandQueue,
		uintptr(unsafe.Pointer(&nativeDesc)),
		uintptr(unsafe.Pointer(&iidID3D12CommandQueue)),
		uintptr(unsafe.Pointer(&queue)),
	)
	err := check(ret, "ID3D12Device::CreateCommandQueue")
	if err != nil {
		return nil, d.removedReason(err)
	}
	queue.setName("gpucore draw queue")

	return &CommandQueue{
		device:   d,
		id:       d.track("CommandQueue"),
		queue:    queue,
		listType: desc.Type,
	}, nil
}

func (d *Device) CreateFence(initialValue uint64) (driver.Fence, error) {
	var fence comObject
	ret := d.device.call(slotDeviceCreateFence,
		uintptr(initialValue),
		0,
		uintptr(unsafe.Pointer(&iidID3D12Fence)),
		uintptr(unsafe.Pointer(&fence)),
	)
	err := check(ret, "ID3D12Device::CreateFence")
	if err != nil {
		return nil, d.removedReason(err)
	}

	return newFence(d, fence)
}

func (d *Device) CreateCommandAllocator(listType driver.CommandListType) (driver.CommandAllocator, error) {
	var allocator comObject
	ret := d.device.call(slotDeviceCreateCommandAllocator,
		uintptr(listType),
		uintptr(unsafe.Pointer(&iidID3D12CommandAllocator)),
		uintptr(unsafe.Pointer(&allocator)),
	)
	err := check(ret, "ID3D12Device::CreateCommandAllocator")
	if err != nil {
		return nil, d.removedReason(err)
	}

	return &CommandAllocator{
		device:    d,
		id:        d.track("CommandAllocator"),
		allocator: allocator,
		listType:  listType,
	}, nil
}

func (d *Device) CreateCommandList(listType driver.CommandListType, allocator driver.CommandAllocator) (driver.CommandList, error) {
	nativeAllocator, ok := allocator.(*CommandAllocator)
	if !ok || nativeAllocator == nil {
		return nil, errors.New("command lists must be created against a d3d12 command allocator")
	}

	var list comObject
	ret := d.device.call(slotDeviceCreateCommandList,
		0,
		uintptr(listType),
		uintptr(nativeAllocator.allocator),
		0,
		uintptr(unsafe.Pointer(&iidID3D12GraphicsCommandList)),
		uintptr(unsafe.Pointer(&list)),
	)
	err := check(ret, "ID3D12Device::CreateCommandList")
	if err != nil {
		return nil, d.removedReason(err)
	}

	return &CommandList{
		device:   d,
		id:       d.track("CommandList"),
		list:     list,
		listType: listType,
	}, nil
}

func (d *Device) CreateDescriptorHeap(desc driver.DescriptorHeapDesc) (driver.DescriptorHeap, error) {
	if desc.NumDescriptors < 1 {
		return nil, errors.Newf("descriptor heaps need at least one descriptor, but %d were requested", desc.NumDescriptors)
	}

	nativeDesc := descriptorHeapDesc{
		Type:           desc.Type,
		NumDescriptors: uint32(desc.NumDescriptors),
	}
	if desc.ShaderVisible {
		nativeDesc.Flags |= descriptorHeapFlagShaderVisible
	}

	var heap comObject
	ret := d.device.call(slotDeviceCreateDescriptorHeap,
		uintptr(unsafe.Pointer(&nativeDesc)),
		uintptr(unsafe.Pointer(&iidID3D12DescriptorHeap)),
		uintptr(unsafe.Pointer(&heap)),
	)
	err := check(ret, "ID3D12Device::CreateDescriptorHeap")
	if err != nil {
		return nil, d.removedReason(err)
	}

	var start driver.CPUDescriptorHandle
	heap.call(slotHeapGetCPUDescriptorHandle, uintptr(unsafe.Pointer(&start)))

	return &DescriptorHeap{
		device: d,
		id:     d.track("DescriptorHeap"),
		heap:   heap,
		desc:   desc,
		start:  start,
	}, nil
}

func (d *Device) DescriptorHandleIncrementSize(heapType driver.DescriptorHeapType) uint32 {
	return uint32(d.device.call(slotDeviceGetDescriptorHandleIncrement, uintptr(heapType)))
}

func (d *Device) CreateCommittedResource(desc driver.ResourceDesc, initialState driver.ResourceStates) (driver.Resource, error) {
	nativeDesc, ok := toResourceDesc(desc)
	if !ok {
		return nil, errors.Newf("format %d has no native equivalent", desc.Format)
	}
	properties := heapProperties{Type: heapTypeDefault}

	var resource comObject
	ret := d.device.call(slotDeviceCreateCommittedResource,
		uintptr(unsafe.Pointer(&properties)),
		0,
		uintptr(unsafe.Pointer(&nativeDesc)),
		uintptr(initialState),
		0,
		uintptr(unsafe.Pointer(&iidID3D12Resource)),
		uintptr(unsafe.Pointer(&resource)),
	)
	err := check(ret, "ID3D12Device::CreateCommittedResource")
	if err != nil {
		return nil, d.removedReason(err)
	}

	return newResource(d, resource, "Resource"), nil
}

func (d *Device) logUnmapped(kind string, format any) {
	d.logger.LogAttrs(context.Background(), slog.LevelError, "view format has no native equivalent",
		slog.String("kind", kind),
		slog.Any("format", format))
}

func resourcePtr(resource driver.Resource) uintptr {
	nativeResource, ok := resource.(*Resource)
	if !ok || nativeResource == nil {
		return 0
	}
	return uintptr(nativeResource.resource)
}

func (d *Device) CreateRenderTargetView(resource driver.Resource, desc *driver.RenderTargetViewDesc, dest driver.CPUDescriptorHandle) {
	var descPtr uintptr
	if desc != nil {
		nativeDesc, ok := toRTVDesc(desc)
		if !ok {
			d.logUnmapped("RTV", desc.Format)
			return
		}
		descPtr = uintptr(unsafe.Pointer(&nativeDesc))
	}
	d.device.call(slotDeviceCreateRenderTargetView, resourcePtr(resource), descPtr, dest.Ptr)
}

func (d *Device) CreateDepthStencilView(resource driver.Resource, desc *driver.DepthStencilViewDesc, dest driver.CPUDescriptorHandle) {
	var descPtr uintptr
	if desc != nil {
		nativeDesc, ok := toDSVDesc(desc)
		if !ok {
			d.logUnmapped("DSV", desc.Format)
			return
		}
		descPtr = uintptr(unsafe.Pointer(&nativeDesc))
	}
	d.device.call(slotDeviceCreateDepthStencilView, resourcePtr(resource), descPtr, dest.Ptr)
}

func (d *Device) CreateShaderResourceView(resource driver.Resource, desc *driver.ShaderResourceViewDesc, dest driver.CPUDescriptorHandle) {
	var descPtr uintptr
	if desc != nil {
		nativeDesc, ok := toSRVDesc(desc)
		if !ok {
			d.logUnmapped("SRV", desc.Format)
			return
		}
		descPtr = uintptr(unsafe.Pointer(&nativeDesc))
	}
	d.device.call(slotDeviceCreateShaderResourceView, resourcePtr(resource), descPtr, dest.Ptr)
}

func (d *Device) CreateConstantBufferView(desc *driver.ConstantBufferViewDesc, dest driver.CPUDescriptorHandle) {
	var descPtr uintptr
	if desc != nil {
		nativeDesc := cbvDesc{BufferLocation: desc.BufferLocation, SizeInBytes: desc.SizeInBytes}
		descPtr = uintptr(unsafe.Pointer(&nativeDesc))
	}
	d.device.call(slotDeviceCreateConstantBufferView, descPtr, dest.Ptr)
}

func (d *Device) CreateUnorderedAccessView(resource driver.Resource, desc *driver.UnorderedAccessViewDesc, dest driver.CPUDescriptorHandle) {
	var descPtr uintptr
	if desc != nil {
		nativeDesc, ok := toUAVDesc(desc)
		if !ok {
			d.logUnmapped("UAV", desc.Format)
			return
		}
		descPtr = uintptr(unsafe.Pointer(&nativeDesc))
	}
	d.device.call(slotDeviceCreateUnorderedAccessView, resourcePtr(resource), 0, descPtr, dest.Ptr)
}

// ReportLiveObjects lists the children that were never released. With the debug layer active,
// the native report is also sent to the debugger output.
func (d *Device) ReportLiveObjects() ([]driver.LiveObject, error) {
	if d.debug {
		debugDevice, err := d.device.queryInterface(&iidID3D12DebugDevice)
		if err == nil {
			debugDevice.call(slotDebugDeviceReportLiveDeviceObjects, rldoDetail|rldoIgnoreInternal)
			debugDevice.release()
		}
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	ids := make([]uint64, 0, d.live.Count())
	d.live.Iter(func(id uint64, _ string) bool {
		ids = append(ids, id)
		return false
	})
	slices.Sort(ids)

	objects := make([]driver.LiveObject, 0, len(ids))
	for _, id := range ids {
		kind, _ := d.live.Get(id)
		objects = append(objects, driver.LiveObject{Kind: kind, RefCount: 1})
	}
	return objects, nil
}

// Release drops the device reference and returns the count the native device still holds,
// which is one per child that was not released
func (d *Device) Release() uint32 {
	d.logger.Debug("Device::Release")

	if d.device == 0 {
		return 0
	}
	remaining := d.device.release()
	d.device = 0
	return remaining
}
