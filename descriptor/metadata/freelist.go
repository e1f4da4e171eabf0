package metadata

import (
	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"golang.org/x/exp/slices"
)

type freeListSlot struct {
	generation uint32
	userData   any
}

// FreeListSlotMetadata is a SlotMetadata that recycles freed slots. Freed slots are reused
// before the cursor advances, most recently freed first. Every reuse bumps the slot's generation
// so stale handles to a recycled slot are rejected.
type FreeListSlotMetadata struct {
	SlotMetadataBase

	cursor         int
	generations    []uint32
	freeSlots      []int
	live           *swiss.Map[int, freeListSlot]
	reclaimedCount int
}

var _ SlotMetadata = &FreeListSlotMetadata{}

func NewFreeListSlotMetadata() *FreeListSlotMetadata {
	return &FreeListSlotMetadata{}
}

func (m *FreeListSlotMetadata) Init(capacity int) {
	m.SlotMetadataBase.Init(capacity)
	m.cursor = 0
	m.generations = make([]uint32, 0, capacity)
	m.freeSlots = nil
	m.live = swiss.NewMap[int, freeListSlot](uint32(capacity))
	m.reclaimedCount = 0
}

func (m *FreeListSlotMetadata) AllocationCount() int { return m.live.Count() }
func (m *FreeListSlotMetadata) Cursor() int { return m.cursor }
func (m *FreeListSlotMetadata) SupportsFree() bool { return true }
func (m *FreeListSlotMetadata) IsEmpty() bool { return m.live.Count() == 0 }
func (m *FreeListSlotMetadata) IsFull() bool {
	return len(m.freeSlots) == 0 && m.cursor >= m.capacity
}

func (m *FreeListSlotMetadata) Validate() error {
	if m.cursor > m.capacity {
		return errors.Newf("cursor %d is past capacity %d", m.cursor, m.capacity)
	}
	if m.live.Count()+len(m.freeSlots) != m.cursor {
		return errors.Newf("live slots (%d) and free slots (%d) do not account for cursor %d",
			m.live.Count(), len(m.freeSlots), m.cursor)
	}

	for _, slot := range m.freeSlots {
		if slot >= m.cursor {
			return errors.Newf("free slot %d is past cursor %d", slot, m.cursor)
		}
		if m.live.Has(slot) {
			return errors.Newf("slot %d is both free and live", slot)
		}
	}

	var err error
	m.live.Iter(func(slot int, record freeListSlot) bool {
		if slot >= m.cursor {
			err = errors.Newf("live slot %d is past cursor %d", slot, m.cursor)
			return true
		}
		if record.generation != m.generations[slot] {
			err = errors.Newf("live slot %d has generation %d but the table has %d", slot, record.generation, m.generations[slot])
			return true
		}
		return false
	})
	return err
}

func (m *FreeListSlotMetadata) Alloc(userData any) (SlotHandle, error) {
	var slot int
	if len(m.freeSlots) > 0 {
		slot = m.freeSlots[len(m.freeSlots)-1]
		m.freeSlots = m.freeSlots[:len(m.freeSlots)-1]
		m.generations[slot]++
	} else if m.cursor < m.capacity {
		slot = m.cursor
		m.cursor++
		m.generations = append(m.generations, 0)
	} else {
		return NoSlot, ErrExhausted
	}

	generation := m.generations[slot]
	m.live.Put(slot, freeListSlot{generation: generation, userData: userData})
	return NewSlotHandle(slot, generation), nil
}

func (m *FreeListSlotMetadata) lookup(handle SlotHandle) (freeListSlot, error) {
	err := m.checkSlot(handle.Slot(), m.cursor)
	if err != nil {
		return freeListSlot{}, err
	}

	record, ok := m.live.Get(handle.Slot())
	if !ok {
		return freeListSlot{}, errors.Newf("slot %d is not allocated", handle.Slot())
	}
	if record.generation != handle.Generation() {
		return freeListSlot{}, errors.Newf("slot handle %s is stale: the slot is now at generation %d", handle, record.generation)
	}
	return record, nil
}

func (m *FreeListSlotMetadata) Free(handle SlotHandle) error {
	_, err := m.lookup(handle)
	if err != nil {
		return err
	}

	m.live.Delete(handle.Slot())
	m.freeSlots = append(m.freeSlots, handle.Slot())
	m.reclaimedCount++
	return nil
}

func (m *FreeListSlotMetadata) SlotUserData(handle SlotHandle) (any, error) {
	record, err := m.lookup(handle)
	if err != nil {
		return nil, err
	}
	return record.userData, nil
}

func (m *FreeListSlotMetadata) VisitAllSlots(visit func(handle SlotHandle, userData any) error) error {
	slots := make([]int, 0, m.live.Count())
	m.live.Iter(func(slot int, _ freeListSlot) bool {
		slots = append(slots, slot)
		return false
	})
	slices.Sort(slots)

	for _, slot := range slots {
		record, _ := m.live.Get(slot)
		err := visit(NewSlotHandle(slot, record.generation), record.userData)
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *FreeListSlotMetadata) AddStatistics(stats *Statistics) {
	stats.HeapCount++
	stats.SlotCount += m.capacity
	stats.AllocationCount += m.live.Count()
	stats.ReclaimedCount += m.reclaimedCount
}

func (m *FreeListSlotMetadata) PrintDetailedMap(json *jwriter.ObjectState) {
	m.printDetailedMapHeader(json, m.live.Count(), m.cursor)
	json.Name("Mode").String("FreeList")
	json.Name("Reclaimed").Int(m.reclaimedCount)

	freeArray := json.Name("FreeList").Array()
	defer freeArray.End()
	for _, slot := range m.freeSlots {
		freeArray.Int(slot)
	}
}

func (m *FreeListSlotMetadata) Clear() {
	m.Init(m.capacity)
}
