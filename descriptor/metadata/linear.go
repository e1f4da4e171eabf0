package metadata

import (
	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// LinearSlotMetadata is an append-only SlotMetadata. Slots are handed out in strictly increasing
// order and are never reused; once Cursor reaches Capacity every further Alloc fails.
type LinearSlotMetadata struct {
	SlotMetadataBase

	userData []any
}

var _ SlotMetadata = &LinearSlotMetadata{}

func NewLinearSlotMetadata() *LinearSlotMetadata {
	return &LinearSlotMetadata{}
}

func (m *LinearSlotMetadata) Init(capacity int) {
	m.SlotMetadataBase.Init(capacity)
	m.userData = make([]any, 0, capacity)
}

func (m *LinearSlotMetadata) AllocationCount() int { return len(m.userData) }
func (m *LinearSlotMetadata) Cursor() int { return len(m.userData) }
func (m *LinearSlotMetadata) SupportsFree() bool { return false }
func (m *LinearSlotMetadata) IsEmpty() bool { return len(m.userData) == 0 }
func (m *LinearSlotMetadata) IsFull() bool { return len(m.userData) >= m.capacity }

func (m *LinearSlotMetadata) Validate() error {
	if len(m.userData) > m.capacity {
		return errors.Newf("cursor %d is past capacity %d", len(m.userData), m.capacity)
	}
	return nil
}

func (m *LinearSlotMetadata) Alloc(userData any) (SlotHandle, error) {
	if m.IsFull() {
		return NoSlot, ErrExhausted
	}

	slot := len(m.userData)
	m.userData = append(m.userData, userData)
	return NewSlotHandle(slot, 0), nil
}

func (m *LinearSlotMetadata) Free(handle SlotHandle) error {
	return errors.Newf("cannot free slot %s: linear slot tables are append-only", handle)
}

func (m *LinearSlotMetadata) SlotUserData(handle SlotHandle) (any, error) {
	err := m.checkSlot(handle.Slot(), len(m.userData))
	if err != nil {
		return nil, err
	}
	if handle.Generation() != 0 {
		return nil, errors.Newf("slot handle %s has a generation but linear slot tables never reuse slots", handle)
	}

	return m.userData[handle.Slot()], nil
}

func (m *LinearSlotMetadata) VisitAllSlots(visit func(handle SlotHandle, userData any) error) error {
	for slot, userData := range m.userData {
		err := visit(NewSlotHandle(slot, 0), userData)
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *LinearSlotMetadata) AddStatistics(stats *Statistics) {
	stats.HeapCount++
	stats.SlotCount += m.capacity
	stats.AllocationCount += len(m.userData)
}

func (m *LinearSlotMetadata) PrintDetailedMap(json *jwriter.ObjectState) {
	m.printDetailedMapHeader(json, len(m.userData), len(m.userData))
	json.Name("Mode").String("Linear")
}

func (m *LinearSlotMetadata) Clear() {
	m.userData = m.userData[:0]
}
