package device

import (
	"github.com/framegpu/gpucore/descriptor/metadata"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// CalculateStatistics totals slot usage across the three heaps
func (m *Manager) CalculateStatistics(stats *metadata.Statistics) {
	stats.Clear()
	for _, heap := range m.heaps() {
		heap.AddStatistics(stats)
	}
}

// BuildStatsString returns a JSON document describing the device, the draw fence, and heap
// usage. With detailed set, every heap and each of its views is listed.
func (m *Manager) BuildStatsString(detailed bool) string {
	writer := jwriter.NewWriter()
	topObj := writer.Object()

	general := topObj.Name("General").Object()
	general.Name("Adapter").String(m.adapterDesc.Description)
	general.Name("VendorID").Int(int(m.adapterDesc.VendorID))
	general.Name("FeatureLevel").String(m.FeatureLevel().String())
	general.Name("MinimumFeatureLevel").String(m.minimumFeatureLevel.String())
	general.Name("RequestedFenceValue").Float64(float64(m.RequestedFenceValue()))
	general.Name("CompletedFenceValue").Float64(float64(m.CompletedFenceValue()))
	if m.drawContext != nil {
		general.Name("DrawContext").String(m.drawContext.State().String())
	}
	general.End()

	var stats metadata.Statistics
	m.CalculateStatistics(&stats)

	total := topObj.Name("Total").Object()
	total.Name("Heaps").Int(stats.HeapCount)
	total.Name("Slots").Int(stats.SlotCount)
	total.Name("Allocations").Int(stats.AllocationCount)
	total.Name("FreeSlots").Int(stats.FreeSlotCount())
	total.Name("Reclaimed").Int(stats.ReclaimedCount)
	total.End()

	if detailed {
		heaps := topObj.Name("Heaps").Object()
		for _, heap := range m.heaps() {
			heapObj := heaps.Name(heap.Name()).Object()
			heap.PrintDetailedMap(&heapObj)
			heapObj.End()
		}
		heaps.End()
	}

	topObj.End()
	return string(writer.Bytes())
}
