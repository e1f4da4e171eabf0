package metadata_test

import (
	"testing"

	"github.com/framegpu/gpucore/descriptor/metadata"
	"github.com/stretchr/testify/require"
)

func TestLinearAlloc(t *testing.T) {
	md := metadata.NewLinearSlotMetadata()
	md.Init(3)

	for i := 0; i < 3; i++ {
		handle, err := md.Alloc(i)
		require.NoError(t, err)
		require.Equal(t, i, handle.Slot())
		require.Equal(t, uint32(0), handle.Generation())
		require.Equal(t, i+1, md.Cursor())
	}

	require.True(t, md.IsFull())
	handle, err := md.Alloc("overflow")
	require.ErrorIs(t, err, metadata.ErrExhausted)
	require.Equal(t, metadata.NoSlot, handle)
	require.Equal(t, 3, md.Cursor())
	require.NoError(t, md.Validate())

	var stats metadata.Statistics
	md.AddStatistics(&stats)
	require.Equal(t, metadata.Statistics{
		HeapCount:       1,
		SlotCount:       3,
		AllocationCount: 3,
	}, stats)
}

func TestLinearFreeRejected(t *testing.T) {
	md := metadata.NewLinearSlotMetadata()
	md.Init(2)

	handle, err := md.Alloc(nil)
	require.NoError(t, err)

	require.False(t, md.SupportsFree())
	require.Error(t, md.Free(handle))
	require.Equal(t, 1, md.AllocationCount())
}

func TestLinearVisitAndUserData(t *testing.T) {
	md := metadata.NewLinearSlotMetadata()
	md.Init(4)

	for _, name := range []string{"a", "b", "c"} {
		_, err := md.Alloc(name)
		require.NoError(t, err)
	}

	var visited []string
	err := md.VisitAllSlots(func(handle metadata.SlotHandle, userData any) error {
		visited = append(visited, userData.(string))
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, visited)

	userData, err := md.SlotUserData(metadata.NewSlotHandle(1, 0))
	require.NoError(t, err)
	require.Equal(t, "b", userData)

	_, err = md.SlotUserData(metadata.NewSlotHandle(3, 0))
	require.Error(t, err)

	md.Clear()
	require.True(t, md.IsEmpty())
	require.Equal(t, 0, md.Cursor())
}
