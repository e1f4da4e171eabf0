package descriptor

import (
	"context"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/framegpu/gpucore/descriptor/metadata"
	"github.com/framegpu/gpucore/driver"
	"github.com/framegpu/gpucore/internal/utils"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/core/v2/common"
	"golang.org/x/exp/slog"
)

// HeapCreateFlags indicate specific heap behaviors to activate
type HeapCreateFlags int32

var heapCreateFlagsMapping = common.NewFlagStringMapping[HeapCreateFlags]()

func (f HeapCreateFlags) Register(str string) {
	heapCreateFlagsMapping.Register(f, str)
}
func (f HeapCreateFlags) String() string {
	return heapCreateFlagsMapping.FlagsToString(f)
}

const (
	// HeapCreateSynchronized guards slot allocation with a mutex so views can be created from
	// several goroutines at once. Heaps are unsynchronized otherwise.
	HeapCreateSynchronized HeapCreateFlags = 1 << iota
	// HeapCreateReclaimable lets FreeView return slots to the heap for reuse. Without it, heaps
	// are append-only and a slot is consumed for the lifetime of the heap.
	HeapCreateReclaimable
)

func init() {
	HeapCreateSynchronized.Register("HeapCreateSynchronized")
	HeapCreateReclaimable.Register("HeapCreateReclaimable")
}

// HeapOptions contains optional settings when creating a heap
type HeapOptions struct {
	Flags HeapCreateFlags
	// Name is used in logs and statistics. It defaults to the heap type.
	Name string
}

// Heap is a fixed-capacity table of descriptors of one category. Views are written at
// start + slot*incrementSize, and slots are handed out in increasing order.
type Heap struct {
	logger *slog.Logger
	mutex  utils.OptionalMutex

	device        driver.Device
	heap          driver.DescriptorHeap
	heapType      driver.DescriptorHeapType
	name          string
	start         driver.CPUDescriptorHandle
	incrementSize uint32
	metadata      metadata.SlotMetadata
}

// NewHeap creates a heap of capacity descriptors of heapType on device
func NewHeap(logger *slog.Logger, device driver.Device, heapType driver.DescriptorHeapType, capacity int, options HeapOptions) (*Heap, error) {
	if device == nil {
		return nil, errors.Wrap(ErrHeapInvalid, "no device was provided")
	}
	if capacity < 1 {
		return nil, errors.Newf("descriptor heap capacity must be at least 1, but %d was provided", capacity)
	}

	name := options.Name
	if name == "" {
		name = heapType.String()
	}

	driverHeap, err := device.CreateDescriptorHeap(driver.DescriptorHeapDesc{
		Type:           heapType,
		NumDescriptors: capacity,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create descriptor heap %s", name)
	}

	var md metadata.SlotMetadata = metadata.NewLinearSlotMetadata()
	if options.Flags&HeapCreateReclaimable != 0 {
		md = metadata.NewFreeListSlotMetadata()
	}
	md.Init(capacity)

	heap := &Heap{
		logger: logger,
		mutex: utils.OptionalMutex{
			UseMutex: options.Flags&HeapCreateSynchronized != 0,
		},

		device:        device,
		heap:          driverHeap,
		heapType:      heapType,
		name:          name,
		start:         driverHeap.CPUDescriptorHandleForHeapStart(),
		incrementSize: device.DescriptorHandleIncrementSize(heapType),
		metadata:      md,
	}

	logger.Debug("Heap::NewHeap",
		slog.String("name", name),
		slog.Int("capacity", capacity),
		slog.String("start", heap.start.String()),
		slog.Int("incrementSize", int(heap.incrementSize)),
		slog.String("flags", options.Flags.String()),
	)

	return heap, nil
}

func NewRTVHeap(logger *slog.Logger, device driver.Device, capacity int, options HeapOptions) (*Heap, error) {
	return NewHeap(logger, device, driver.DescriptorHeapTypeRTV, capacity, options)
}

func NewDSVHeap(logger *slog.Logger, device driver.Device, capacity int, options HeapOptions) (*Heap, error) {
	return NewHeap(logger, device, driver.DescriptorHeapTypeDSV, capacity, options)
}

func NewCSUHeap(logger *slog.Logger, device driver.Device, capacity int, options HeapOptions) (*Heap, error) {
	return NewHeap(logger, device, driver.DescriptorHeapTypeCBVSRVUAV, capacity, options)
}

// IsValid reports whether the heap has a live driver heap behind it
func (h *Heap) IsValid() bool {
	return h != nil && h.heap != nil && h.incrementSize > 0
}

func (h *Heap) Name() string { return h.name }
func (h *Heap) Type() driver.DescriptorHeapType { return h.heapType }
func (h *Heap) IncrementSize() uint32 { return h.incrementSize }
func (h *Heap) Start() driver.CPUDescriptorHandle { return h.start }
func (h *Heap) DriverHeap() driver.DescriptorHeap { return h.heap }
func (h *Heap) Reclaimable() bool { return h.metadata != nil && h.metadata.SupportsFree() }
func (h *Heap) Capacity() int {
	if h.metadata == nil {
		return 0
	}
	return h.metadata.Capacity()
}

// Cursor is one past the highest slot ever handed out
func (h *Heap) Cursor() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.metadata == nil {
		return 0
	}
	return h.metadata.Cursor()
}

// Count is the number of live views in the heap
func (h *Heap) Count() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.metadata == nil {
		return 0
	}
	return h.metadata.AllocationCount()
}

// Accepts reports whether views of kind can be placed in this heap
func (h *Heap) Accepts(kind ViewKind) bool {
	return kind.HeapType() == h.heapType
}

// CPUHandle is the descriptor handle of slot
func (h *Heap) CPUHandle(slot int) driver.CPUDescriptorHandle {
	return h.start.Offset(slot, h.incrementSize)
}

// CreateView writes a descriptor for resource into the next free slot and returns the view.
// The heap is left untouched when the resource is nil, the description's kind does not belong
// in this heap, the description cannot be derived, or the heap is full.
func (h *Heap) CreateView(desc ViewDesc, resource driver.Resource) (View, error) {
	h.logger.Debug("Heap::CreateView")

	if !h.IsValid() {
		return nil, ErrHeapInvalid
	}
	if driver.IsNilResource(resource) {
		return nil, ErrNilResource
	}
	if desc == nil {
		return nil, errors.Wrap(ErrCategoryMismatch, "no view description was provided")
	}
	if !h.Accepts(desc.Kind()) {
		return nil, errors.Wrapf(ErrCategoryMismatch, "%s views cannot be placed in %s", desc.Kind(), h.name)
	}

	view, err := newView(desc, resource)
	if err != nil {
		return nil, err
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	handle, err := h.metadata.Alloc(view)
	if errors.Is(err, metadata.ErrExhausted) {
		return nil, errors.Wrapf(ErrHeapExhausted, "%s is full at %d descriptors", h.name, h.metadata.Capacity())
	} else if err != nil {
		return nil, err
	}

	base := view.base()
	base.heap = h
	base.handle = handle
	base.cpuHandle = h.CPUHandle(handle.Slot())

	materialize(h.device, view)
	metadata.DebugValidate(h.metadata)

	return view, nil
}

// FreeView returns the view's slot to the heap. Only reclaimable heaps support it.
func (h *Heap) FreeView(view View) error {
	h.logger.Debug("Heap::FreeView")

	if view == nil {
		return errors.New("attempted to free a nil view")
	}
	if view.Heap() != h {
		return errors.Newf("view in slot %d does not belong to %s", view.Slot(), h.name)
	}
	if !h.Reclaimable() {
		return errors.Wrapf(ErrReclaimUnsupported, "%s", h.name)
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	err := h.metadata.Free(view.base().handle)
	if err != nil {
		return err
	}
	metadata.DebugValidate(h.metadata)
	return nil
}

// Views returns the live views in slot order
func (h *Heap) Views() []View {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.metadata == nil {
		return nil
	}

	views := make([]View, 0, h.metadata.AllocationCount())
	_ = h.metadata.VisitAllSlots(func(handle metadata.SlotHandle, userData any) error {
		views = append(views, userData.(View))
		return nil
	})
	return views
}

func (h *Heap) Validate() error {
	if !h.IsValid() {
		return ErrHeapInvalid
	}

	err := h.metadata.Validate()
	if err != nil {
		return err
	}

	return h.metadata.VisitAllSlots(func(handle metadata.SlotHandle, userData any) error {
		view, isView := userData.(View)
		if !isView || view == nil {
			return errors.Newf("slot %d is allocated but has no view", handle.Slot())
		}
		if view.Slot() != handle.Slot() {
			return errors.Newf("slot %d holds a view that reports slot %d", handle.Slot(), view.Slot())
		}
		if view.CPUHandle() != h.CPUHandle(handle.Slot()) {
			return errors.Newf("slot %d holds a view at handle %s, expected %s", handle.Slot(), view.CPUHandle(), h.CPUHandle(handle.Slot()))
		}
		return nil
	})
}

func (h *Heap) AddStatistics(stats *metadata.Statistics) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.metadata == nil {
		return
	}
	h.metadata.AddStatistics(stats)
}

// PrintDetailedMap writes the heap's layout and every live view into json
func (h *Heap) PrintDetailedMap(json *jwriter.ObjectState) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	json.Name("Name").String(h.name)
	json.Name("Type").String(h.heapType.String())
	json.Name("IncrementSize").Int(int(h.incrementSize))
	if h.metadata == nil {
		return
	}
	h.metadata.PrintDetailedMap(json)

	viewsObj := json.Name("Views").Object()
	defer viewsObj.End()

	_ = h.metadata.VisitAllSlots(func(handle metadata.SlotHandle, userData any) error {
		view := userData.(View)
		obj := viewsObj.Name(strconv.Itoa(handle.Slot())).Object()
		obj.Name("Kind").String(view.Kind().String())
		obj.Name("Handle").String(view.CPUHandle().String())
		obj.End()
		return nil
	})
}

// Destroy releases the driver heap. Views created from the heap must not be used afterward.
// Reclaimable heaps report any view that was never freed.
func (h *Heap) Destroy() error {
	h.logger.Debug("Heap::Destroy", slog.String("name", h.name))

	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.heap == nil {
		return nil
	}

	var err error
	if h.metadata.SupportsFree() && !h.metadata.IsEmpty() {
		visitErr := h.metadata.VisitAllSlots(func(handle metadata.SlotHandle, userData any) error {
			h.logUnreleasedView(userData.(View))
			return nil
		})
		if visitErr != nil {
			h.logger.LogAttrs(context.Background(),
				slog.LevelError,
				"[UNRELEASED VIEW] error while iterating unreleased views",
				slog.Any("error", visitErr))
		}
		err = errors.Newf("%d views were not freed before the destruction of %s", h.metadata.AllocationCount(), h.name)
	}

	h.heap.Release()
	h.heap = nil
	h.metadata.Clear()
	return err
}

func (h *Heap) logUnreleasedView(view View) {
	h.logger.LogAttrs(context.Background(), slog.LevelError, "[UNRELEASED VIEW] unfreed view",
		slog.String("heap", h.name),
		slog.Int("slot", view.Slot()),
		slog.String("kind", view.Kind().String()),
		slog.String("handle", view.CPUHandle().String()),
	)
}
