package metadata

// Statistics accumulates slot usage across one or more descriptor heaps
type Statistics struct {
	HeapCount       int
	SlotCount       int
	AllocationCount int
	ReclaimedCount  int
}

func (s *Statistics) Clear() {
	s.HeapCount = 0
	s.SlotCount = 0
	s.AllocationCount = 0
	s.ReclaimedCount = 0
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.HeapCount += other.HeapCount
	s.SlotCount += other.SlotCount
	s.AllocationCount += other.AllocationCount
	s.ReclaimedCount += other.ReclaimedCount
}

// FreeSlotCount is the number of slots that can still be allocated
func (s *Statistics) FreeSlotCount() int {
	return s.SlotCount - s.AllocationCount
}
