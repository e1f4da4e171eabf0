package metadata

import (
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// ErrExhausted is returned by Alloc when every slot in the table is in use
var ErrExhausted = errors.New("no free descriptor slots")

// SlotHandle identifies one allocation in a SlotMetadata. The low 32 bits are the slot index
// and the high 32 bits a generation that changes each time the slot is reused.
type SlotHandle uint64

// NoSlot is the SlotHandle returned alongside an error
const NoSlot SlotHandle = math.MaxUint64

func NewSlotHandle(slot int, generation uint32) SlotHandle {
	return SlotHandle(uint64(generation)<<32 | uint64(uint32(slot)))
}

func (h SlotHandle) Slot() int {
	return int(uint32(h))
}

func (h SlotHandle) Generation() uint32 {
	return uint32(h >> 32)
}

func (h SlotHandle) String() string {
	if h == NoSlot {
		return "NoSlot"
	}
	return fmt.Sprintf("%d@%d", h.Slot(), h.Generation())
}

// SlotMetadata tracks which slots of a fixed-capacity descriptor table are in use. It does not
// know about the table itself: callers turn the slot index into a descriptor handle.
type SlotMetadata interface {
	// Init must be called before the SlotMetadata is used. It sizes the table to capacity slots.
	Init(capacity int)
	Capacity() int
	// AllocationCount returns the number of live allocations
	AllocationCount() int
	// Cursor returns one past the highest slot ever handed out
	Cursor() int
	// SupportsFree reports whether Free can return slots for reuse
	SupportsFree() bool
	IsEmpty() bool
	IsFull() bool

	// Validate performs internal consistency checks. It should not be possible for it to fail
	// while the implementation is working correctly.
	Validate() error

	// Alloc reserves a slot and attaches userData to it. It returns ErrExhausted when no slot is
	// available and leaves the table unchanged.
	Alloc(userData any) (SlotHandle, error)
	// Free releases a live allocation. Implementations that do not support reuse return an error.
	Free(handle SlotHandle) error
	SlotUserData(handle SlotHandle) (any, error)
	// VisitAllSlots calls visit once for each live allocation in slot order
	VisitAllSlots(visit func(handle SlotHandle, userData any) error) error

	AddStatistics(stats *Statistics)
	PrintDetailedMap(json *jwriter.ObjectState)
	// Clear drops every allocation and resets the table to its freshly initialized state
	Clear()
}

type Validatable interface {
	Validate() error
}

// SlotMetadataBase carries the fields shared by every SlotMetadata implementation
type SlotMetadataBase struct {
	capacity int
}

func (m *SlotMetadataBase) Init(capacity int) {
	m.capacity = capacity
}

func (m *SlotMetadataBase) Capacity() int {
	return m.capacity
}

func (m *SlotMetadataBase) checkSlot(slot int, cursor int) error {
	if slot < 0 || slot >= cursor {
		return errors.Newf("slot %d is outside of the allocated range [0, %d)", slot, cursor)
	}
	return nil
}

func (m *SlotMetadataBase) printDetailedMapHeader(json *jwriter.ObjectState, allocationCount int, cursor int) {
	json.Name("Capacity").Int(m.capacity)
	json.Name("Cursor").Int(cursor)
	json.Name("Allocations").Int(allocationCount)
	json.Name("FreeSlots").Int(m.capacity - allocationCount)
}
