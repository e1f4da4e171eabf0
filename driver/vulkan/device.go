package vulkan

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/framegpu/gpucore/driver"
	"github.com/vkngwrapper/core/v2/core1_0"
	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"
)

// descriptorIncrementSize is the stride between host descriptor slots
const descriptorIncrementSize uint32 = 32

// Device wraps a Vulkan logical device. Every object created from it is tracked until it is
// released, so Release can report what was leaked.
type Device struct {
	logger      *slog.Logger
	device      core1_0.Device
	level       driver.FeatureLevel
	queueFamily int

	mutex        sync.Mutex
	nextID       uint64
	live         *swiss.Map[uint64, string]
	heaps        []*DescriptorHeap
	nextHeapBase uintptr
}

var _ driver.Device = &Device{}
var _ driver.LiveObjectReporter = &Device{}

func newDevice(logger *slog.Logger, device core1_0.Device, level driver.FeatureLevel, queueFamily int) *Device {
	return &Device{
		logger:       logger,
		device:       device,
		level:        level,
		queueFamily:  queueFamily,
		live:         swiss.NewMap[uint64, string](16),
		nextHeapBase: 0x10000,
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

// CreateCommandQueue returns the device's graphics queue. Only direct queues are supported.
func (d *Device) CreateCommandQueue(desc driver.CommandQueueDesc) (driver.CommandQueue, error) {
	if desc.Type != driver.CommandListTypeDirect {
		return nil, errors.Wrapf(driver.ErrUnsupported, "%s queues", desc.Type)
	}

	return &CommandQueue{
		device:   d,
		id:       d.track("CommandQueue"),
		queue:    d.device.GetQueue(d.queueFamily, 0),
		listType: desc.Type,
	}, nil
}

func (d *Device) CreateFence(initialValue uint64) (driver.Fence, error) {
	return &Fence{
		device:    d,
		id:        d.track("Fence"),
		completed: initialValue,
	}, nil
}

func (d *Device) CreateCommandAllocator(listType driver.CommandListType) (driver.CommandAllocator, error) {
	if listType != driver.CommandListTypeDirect {
		return nil, errors.Wrapf(driver.ErrUnsupported, "%s command allocators", listType)
	}

	pool, _, err := d.device.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		Flags:            core1_0.CommandPoolCreateResetBuffer,
		QueueFamilyIndex: d.queueFamily,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create command pool")
	}

	return &CommandAllocator{
		device:   d,
		id:       d.track("CommandAllocator"),
		pool:     pool,
		listType: listType,
	}, nil
}

func (d *Device) CreateCommandList(listType driver.CommandListType, allocator driver.CommandAllocator) (driver.CommandList, error) {
	vkAllocator, ok := allocator.(*CommandAllocator)
	if !ok || vkAllocator == nil {
		return nil, errors.New("command lists must be created against a vulkan command allocator")
	}
	if vkAllocator.listType != listType {
		return nil, errors.Newf("allocator of type %s cannot back a list of type %s", vkAllocator.listType, listType)
	}

	buffers, _, err := d.device.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        vkAllocator.pool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to allocate command buffer")
	}

	list := &CommandList{
		device:    d,
		id:        d.track("CommandList"),
		listType:  listType,
		allocator: vkAllocator,
		buffer:    buffers[0],
	}

	err = list.begin()
	if err != nil {
		list.Release()
		return nil, err
	}
	return list, nil
}

func (d *Device) CreateDescriptorHeap(desc driver.DescriptorHeapDesc) (driver.DescriptorHeap, error) {
	if desc.NumDescriptors < 1 {
		return nil, errors.Newf("descriptor heaps need at least one descriptor, but %d were requested", desc.NumDescriptors)
	}

	id := d.track("DescriptorHeap")

	d.mutex.Lock()
	defer d.mutex.Unlock()

	heap := &DescriptorHeap{
		device:      d,
		id:          id,
		desc:        desc,
		start:       driver.CPUDescriptorHandle{Ptr: d.nextHeapBase},
		descriptors: make([]any, desc.NumDescriptors),
	}

	size := uintptr(desc.NumDescriptors) * uintptr(descriptorIncrementSize)
	d.nextHeapBase += (size + 0x1ffff) &^ 0xffff
	d.heaps = append(d.heaps, heap)
	return heap, nil
}

func (d *Device) DescriptorHandleIncrementSize(heapType driver.DescriptorHeapType) uint32 {
	return descriptorIncrementSize
}

// CreateCommittedResource is not supported: the driver does not manage device memory
func (d *Device) CreateCommittedResource(desc driver.ResourceDesc, initialState driver.ResourceStates) (driver.Resource, error) {
	return nil, errors.Wrap(driver.ErrUnsupported, "the vulkan driver does not create resources")
}

func (d *Device) writeDescriptor(dest driver.CPUDescriptorHandle, descriptor any) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	for _, heap := range d.heaps {
		slot, ok := heap.slot(dest)
		if ok {
			heap.descriptors[slot] = descriptor
			return
		}
	}
	d.logger.Warn("descriptor written outside every heap", slog.String("handle", dest.String()))
}

func (d *Device) CreateRenderTargetView(resource driver.Resource, desc *driver.RenderTargetViewDesc, dest driver.CPUDescriptorHandle) {
	d.writeDescriptor(dest, desc)
}

func (d *Device) CreateDepthStencilView(resource driver.Resource, desc *driver.DepthStencilViewDesc, dest driver.CPUDescriptorHandle) {
	d.writeDescriptor(dest, desc)
}

func (d *Device) CreateShaderResourceView(resource driver.Resource, desc *driver.ShaderResourceViewDesc, dest driver.CPUDescriptorHandle) {
	d.writeDescriptor(dest, desc)
}

func (d *Device) CreateConstantBufferView(desc *driver.ConstantBufferViewDesc, dest driver.CPUDescriptorHandle) {
	d.writeDescriptor(dest, desc)
}

func (d *Device) CreateUnorderedAccessView(resource driver.Resource, desc *driver.UnorderedAccessViewDesc, dest driver.CPUDescriptorHandle) {
	d.writeDescriptor(dest, desc)
}

func (d *Device) ReportLiveObjects() ([]driver.LiveObject, error) {
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

// Release destroys the logical device and returns the number of objects that were still alive.
// Leaked objects are not destroyed; their handles are invalid afterward.
func (d *Device) Release() uint32 {
	d.logger.Debug("Device::Release")

	d.mutex.Lock()
	remaining := uint32(d.live.Count())
	d.mutex.Unlock()

	if d.device == nil {
		return remaining
	}

	_, err := d.device.WaitIdle()
	if err != nil {
		d.logger.Warn("failed to idle device before destruction", slog.Any("error", err))
	}
	d.device.Destroy(nil)
	d.device = nil
	return remaining
}

type DescriptorHeap struct {
	device      *Device
	id          uint64
	desc        driver.DescriptorHeapDesc
	start       driver.CPUDescriptorHandle
	descriptors []any
}

var _ driver.DescriptorHeap = &DescriptorHeap{}

func (h *DescriptorHeap) Desc() driver.DescriptorHeapDesc { return h.desc }
func (h *DescriptorHeap) CPUDescriptorHandleForHeapStart() driver.CPUDescriptorHandle { return h.start }

func (h *DescriptorHeap) Release() {
	h.device.mutex.Lock()
	index := slices.Index(h.device.heaps, h)
	if index >= 0 {
		h.device.heaps = slices.Delete(h.device.heaps, index, index+1)
	}
	h.device.mutex.Unlock()

	h.device.untrack(h.id)
}

// slot maps handle to a slot index in this heap; callers hold the device mutex
func (h *DescriptorHeap) slot(handle driver.CPUDescriptorHandle) (int, bool) {
	if handle.Ptr < h.start.Ptr {
		return 0, false
	}
	offset := handle.Ptr - h.start.Ptr
	if offset%uintptr(descriptorIncrementSize) != 0 {
		return 0, false
	}
	slot := int(offset / uintptr(descriptorIncrementSize))
	if slot >= len(h.descriptors) {
		return 0, false
	}
	return slot, true
}
