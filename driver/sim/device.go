package sim

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/framegpu/gpucore/driver"
)

// Descriptor is the content of one simulated descriptor slot
type Descriptor struct {
	Kind     string
	Resource driver.Resource
	// Desc is a copy of the view description the descriptor was written with
	Desc any
}

type Device struct {
	factory  *Factory
	registry *registry
	id       uint64
	level    driver.FeatureLevel
	timeline *timeline

	mutex          sync.Mutex
	heaps          []*DescriptorHeap
	nextHeapBase   uintptr
	nextGPUAddress uint64
	strayWrites    int
	released       bool
}

var _ driver.Device = &Device{}
var _ driver.LiveObjectReporter = &Device{}

func newDevice(factory *Factory, level driver.FeatureLevel) *Device {
	return &Device{
		factory:        factory,
		registry:       factory.registry,
		id:             factory.registry.track("Device", factory.id),
		level:          level,
		timeline:       newTimeline(factory.options.Manual),
		nextHeapBase:   0x10000,
		nextGPUAddress: 0x100000000,
	}
}

func (d *Device) fails(failure Failure) bool {
	return d.factory.options.Fail&failure != 0
}

func (d *Device) FeatureLevel() driver.FeatureLevel {
	return d.level
}

func (d *Device) CreateCommandQueue(desc driver.CommandQueueDesc) (driver.CommandQueue, error) {
	if d.fails(FailCommandQueue) {
		return nil, errors.New("simulated command queue creation failure")
	}

	return &CommandQueue{
		device:   d,
		id:       d.registry.track("CommandQueue", d.id),
		listType: desc.Type,
	}, nil
}

func (d *Device) CreateFence(initialValue uint64) (driver.Fence, error) {
	if d.fails(FailFence) {
		return nil, errors.New("simulated fence creation failure")
	}

	return &Fence{
		device:    d,
		id:        d.registry.track("Fence", d.id),
		completed: initialValue,
	}, nil
}

func (d *Device) CreateCommandAllocator(listType driver.CommandListType) (driver.CommandAllocator, error) {
	if d.fails(FailCommandAllocator) {
		return nil, errors.New("simulated command allocator creation failure")
	}

	return &CommandAllocator{
		device:   d,
		id:       d.registry.track("CommandAllocator", d.id),
		listType: listType,
	}, nil
}

func (d *Device) CreateCommandList(listType driver.CommandListType, allocator driver.CommandAllocator) (driver.CommandList, error) {
	if d.fails(FailCommandList) {
		return nil, errors.New("simulated command list creation failure")
	}

	simAllocator, ok := allocator.(*CommandAllocator)
	if !ok || simAllocator == nil {
		return nil, errors.New("command lists must be created against a simulated command allocator")
	}
	if simAllocator.listType != listType {
		return nil, errors.Newf("allocator of type %s cannot back a list of type %s", simAllocator.listType, listType)
	}

	return &CommandList{
		device:    d,
		id:        d.registry.track("CommandList", d.id),
		listType:  listType,
		allocator: simAllocator,
		recording: true,
	}, nil
}

func (d *Device) CreateDescriptorHeap(desc driver.DescriptorHeapDesc) (driver.DescriptorHeap, error) {
	if d.fails(FailDescriptorHeap) {
		return nil, errors.New("simulated descriptor heap creation failure")
	}
	if desc.NumDescriptors < 1 {
		return nil, errors.Newf("descriptor heaps need at least one descriptor, but %d were requested", desc.NumDescriptors)
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	increment := d.DescriptorHandleIncrementSize(desc.Type)
	heap := &DescriptorHeap{
		device:      d,
		id:          d.registry.track("DescriptorHeap", d.id),
		desc:        desc,
		start:       driver.CPUDescriptorHandle{Ptr: d.nextHeapBase},
		increment:   increment,
		descriptors: make([]*Descriptor, desc.NumDescriptors),
	}

	// leave a gap between heaps so stray offsets are never inside a neighbor
	size := uintptr(desc.NumDescriptors) * uintptr(increment)
	d.nextHeapBase += (size + 0x1ffff) &^ 0xffff
	d.heaps = append(d.heaps, heap)
	return heap, nil
}

func (d *Device) DescriptorHandleIncrementSize(heapType driver.DescriptorHeapType) uint32 {
	size, ok := d.factory.options.IncrementSizes[heapType]
	if !ok {
		return defaultIncrementSize
	}
	return size
}

func (d *Device) CreateCommittedResource(desc driver.ResourceDesc, initialState driver.ResourceStates) (driver.Resource, error) {
	if d.fails(FailResource) {
		return nil, errors.New("simulated resource creation failure")
	}

	return d.newResource(desc, "Resource"), nil
}

func (d *Device) newResource(desc driver.ResourceDesc, kind string) *Resource {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	resource := &Resource{
		device: d,
		id:     d.registry.track(kind, d.id),
		desc:   desc,
	}
	if desc.Dimension == driver.ResourceDimensionBuffer {
		resource.gpuAddress = d.nextGPUAddress
		d.nextGPUAddress += (desc.Width + 0xffff) &^ 0xffff
	}
	return resource
}

func (d *Device) writeDescriptor(dest driver.CPUDescriptorHandle, descriptor *Descriptor) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	for _, heap := range d.heaps {
		slot, ok := heap.slot(dest)
		if ok {
			heap.descriptors[slot] = descriptor
			return
		}
	}
	d.strayWrites++
}

func (d *Device) CreateRenderTargetView(resource driver.Resource, desc *driver.RenderTargetViewDesc, dest driver.CPUDescriptorHandle) {
	descriptor := &Descriptor{Kind: "RTV", Resource: resource}
	if desc != nil {
		descriptor.Desc = *desc
	}
	d.writeDescriptor(dest, descriptor)
}

func (d *Device) CreateDepthStencilView(resource driver.Resource, desc *driver.DepthStencilViewDesc, dest driver.CPUDescriptorHandle) {
	descriptor := &Descriptor{Kind: "DSV", Resource: resource}
	if desc != nil {
		descriptor.Desc = *desc
	}
	d.writeDescriptor(dest, descriptor)
}

func (d *Device) CreateShaderResourceView(resource driver.Resource, desc *driver.ShaderResourceViewDesc, dest driver.CPUDescriptorHandle) {
	descriptor := &Descriptor{Kind: "SRV", Resource: resource}
	if desc != nil {
		descriptor.Desc = *desc
	}
	d.writeDescriptor(dest, descriptor)
}

func (d *Device) CreateConstantBufferView(desc *driver.ConstantBufferViewDesc, dest driver.CPUDescriptorHandle) {
	descriptor := &Descriptor{Kind: "CBV"}
	if desc != nil {
		descriptor.Desc = *desc
	}
	d.writeDescriptor(dest, descriptor)
}

func (d *Device) CreateUnorderedAccessView(resource driver.Resource, desc *driver.UnorderedAccessViewDesc, dest driver.CPUDescriptorHandle) {
	descriptor := &Descriptor{Kind: "UAV", Resource: resource}
	if desc != nil {
		descriptor.Desc = *desc
	}
	d.writeDescriptor(dest, descriptor)
}

// Descriptor returns what was last written at handle
func (d *Device) Descriptor(handle driver.CPUDescriptorHandle) (Descriptor, bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	for _, heap := range d.heaps {
		slot, ok := heap.slot(handle)
		if ok {
			descriptor := heap.descriptors[slot]
			if descriptor == nil {
				return Descriptor{}, false
			}
			return *descriptor, true
		}
	}
	return Descriptor{}, false
}

// StrayDescriptorWrites counts view writes whose handle was outside every heap
func (d *Device) StrayDescriptorWrites() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	return d.strayWrites
}

// Step runs the oldest pending GPU operation, if any
func (d *Device) Step() bool {
	return d.timeline.step()
}

// Flush runs every pending GPU operation and returns how many ran
func (d *Device) Flush() int {
	return d.timeline.flush()
}

// Pending is the number of GPU operations waiting to run
func (d *Device) Pending() int {
	return d.timeline.pendingCount()
}

func (d *Device) ReportLiveObjects() ([]driver.LiveObject, error) {
	return d.registry.owned(d.id), nil
}

// Release returns the number of objects created from the device that are still alive
func (d *Device) Release() uint32 {
	d.mutex.Lock()
	if !d.released {
		d.released = true
		d.registry.release(d.id)
	}
	d.mutex.Unlock()

	return uint32(len(d.registry.owned(d.id)))
}

type Resource struct {
	device     *Device
	id         uint64
	desc       driver.ResourceDesc
	gpuAddress uint64
}

var _ driver.Resource = &Resource{}

func (r *Resource) Desc() driver.ResourceDesc { return r.desc }
func (r *Resource) GPUVirtualAddress() uint64 { return r.gpuAddress }
func (r *Resource) Release() { r.device.registry.release(r.id) }

// SetName labels the resource in live-object reports
func (r *Resource) SetName(name string) {
	r.device.registry.setName(r.id, name)
}

type DescriptorHeap struct {
	device      *Device
	id          uint64
	desc        driver.DescriptorHeapDesc
	start       driver.CPUDescriptorHandle
	increment   uint32
	descriptors []*Descriptor
}

var _ driver.DescriptorHeap = &DescriptorHeap{}

func (h *DescriptorHeap) Desc() driver.DescriptorHeapDesc { return h.desc }
func (h *DescriptorHeap) CPUDescriptorHandleForHeapStart() driver.CPUDescriptorHandle { return h.start }
func (h *DescriptorHeap) Release() { h.device.registry.release(h.id) }

// slot maps handle to a slot index in this heap; callers hold the device mutex
func (h *DescriptorHeap) slot(handle driver.CPUDescriptorHandle) (int, bool) {
	if handle.Ptr < h.start.Ptr {
		return 0, false
	}
	offset := handle.Ptr - h.start.Ptr
	if offset%uintptr(h.increment) != 0 {
		return 0, false
	}
	slot := int(offset / uintptr(h.increment))
	if slot >= len(h.descriptors) {
		return 0, false
	}
	return slot, true
}
