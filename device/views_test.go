package device_test

import (
	"encoding/json"
	"testing"

	"github.com/framegpu/gpucore/descriptor"
	"github.com/framegpu/gpucore/descriptor/metadata"
	"github.com/framegpu/gpucore/device"
	"github.com/framegpu/gpucore/driver"
	"github.com/framegpu/gpucore/driver/sim"
	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/require"
)

func createTexture(t *testing.T, manager *device.Manager, format gputypes.TextureFormat, flags driver.ResourceFlags) driver.Resource {
	resource, err := manager.Device().CreateCommittedResource(driver.TextureDesc(
		gputypes.TextureDimension2D,
		gputypes.Extent3D{Width: 256, Height: 256, DepthOrArrayLayers: 1},
		format, 1, 1, flags,
	), driver.ResourceStateCommon)
	require.NoError(t, err)
	return resource
}

func TestViewRouting(t *testing.T) {
	factory, manager := initializedManager(t, sim.Options{}, device.Options{})
	gpu := factory.LastDevice()

	color := createTexture(t, manager, gputypes.TextureFormatRGBA8Unorm, driver.ResourceFlagAllowRenderTarget|driver.ResourceFlagAllowUnorderedAccess)
	depth := createTexture(t, manager, gputypes.TextureFormatDepth24PlusStencil8, driver.ResourceFlagAllowDepthStencil)
	constants, err := manager.Device().CreateCommittedResource(driver.BufferDesc(64, 0), driver.ResourceStateCommon)
	require.NoError(t, err)

	rtv, err := manager.CreateRenderTargetView(color, nil)
	require.NoError(t, err)
	require.Same(t, manager.RTVHeap(), rtv.Heap())

	dsv, err := manager.CreateDepthStencilView(depth, nil)
	require.NoError(t, err)
	require.Same(t, manager.DSVHeap(), dsv.Heap())
	require.Equal(t, driver.DSVDimensionTexture2D, dsv.Desc().Dimension)

	srv, err := manager.CreateShaderResourceView(color, nil)
	require.NoError(t, err)
	uav, err := manager.CreateUnorderedAccessView(color, nil)
	require.NoError(t, err)
	cbv, err := manager.CreateConstantBufferView(constants, nil)
	require.NoError(t, err)

	require.Same(t, manager.CSUHeap(), srv.Heap())
	require.Same(t, manager.CSUHeap(), uav.Heap())
	require.Same(t, manager.CSUHeap(), cbv.Heap())
	require.Equal(t, []int{0, 1, 2}, []int{srv.Slot(), uav.Slot(), cbv.Slot()})
	require.Equal(t, constants.GPUVirtualAddress(), cbv.Desc().BufferLocation)
	require.Equal(t, uint32(256), cbv.Desc().SizeInBytes)

	kinds := map[descriptor.View]string{rtv: "RTV", dsv: "DSV", srv: "SRV", uav: "UAV", cbv: "CBV"}
	for view, kind := range kinds {
		written, ok := gpu.Descriptor(view.CPUHandle())
		require.True(t, ok)
		require.Equal(t, kind, written.Kind)
	}

	require.Equal(t, 1, manager.RTVHeap().Count())
	require.Equal(t, 1, manager.DSVHeap().Count())
	require.Equal(t, 3, manager.CSUHeap().Count())
}

func TestViewNilResource(t *testing.T) {
	_, manager := initializedManager(t, sim.Options{}, device.Options{})

	_, err := manager.CreateShaderResourceView(nil, nil)
	require.ErrorIs(t, err, device.ErrViewCreationFailed)
	require.ErrorIs(t, err, descriptor.ErrNilResource)
	require.Equal(t, 0, manager.CSUHeap().Cursor())

	_, err = manager.CreateRenderTargetView(nil, nil)
	require.ErrorIs(t, err, descriptor.ErrNilResource)
	require.Equal(t, 0, manager.RTVHeap().Cursor())

	var missing *sim.Resource
	_, err = manager.CreateView(descriptor.ShaderResourceDesc{}, missing)
	require.ErrorIs(t, err, device.ErrViewCreationFailed)
	require.ErrorIs(t, err, descriptor.ErrNilResource)
	require.Equal(t, 0, manager.CSUHeap().Cursor())
}

func TestViewHeapExhaustion(t *testing.T) {
	factory, manager := initializedManager(t, sim.Options{}, device.Options{})
	color := createTexture(t, manager, gputypes.TextureFormatRGBA8Unorm, driver.ResourceFlagAllowRenderTarget)

	for i := 0; i < device.DefaultHeapCapacity; i++ {
		view, err := manager.CreateRenderTargetView(color, nil)
		require.NoError(t, err)
		require.Equal(t, manager.RTVHeap().Start().Ptr+uintptr(i)*uintptr(manager.RTVHeap().IncrementSize()), view.CPUHandle().Ptr)
	}

	_, err := manager.CreateRenderTargetView(color, nil)
	require.ErrorIs(t, err, device.ErrViewCreationFailed)
	require.ErrorIs(t, err, descriptor.ErrHeapExhausted)
	require.Equal(t, device.DefaultHeapCapacity, manager.RTVHeap().Cursor())
	require.Equal(t, 0, factory.LastDevice().StrayDescriptorWrites())
}

func TestViewBeforeInitialize(t *testing.T) {
	_, manager := readyManager(t, sim.Options{}, device.Options{})

	_, err := manager.CreateView(descriptor.RenderTargetDesc{}, nil)
	require.ErrorIs(t, err, device.ErrViewCreationFailed)
	require.ErrorIs(t, err, device.ErrNotInitialized)
}

func TestFreeView(t *testing.T) {
	_, manager := initializedManager(t, sim.Options{}, device.Options{
		Flags:        device.CreateReclaimableDescriptors | device.CreateSynchronizedHeaps,
		HeapCapacity: 1,
	})
	color := createTexture(t, manager, gputypes.TextureFormatRGBA8Unorm, driver.ResourceFlagAllowRenderTarget)

	first, err := manager.CreateShaderResourceView(color, nil)
	require.NoError(t, err)
	_, err = manager.CreateShaderResourceView(color, nil)
	require.ErrorIs(t, err, descriptor.ErrHeapExhausted)

	require.NoError(t, manager.FreeView(first))

	second, err := manager.CreateShaderResourceView(color, nil)
	require.NoError(t, err)
	require.Equal(t, first.CPUHandle(), second.CPUHandle())

	require.Error(t, manager.FreeView(nil))
	require.NoError(t, manager.FreeView(second))
	require.NoError(t, manager.Finalize())
}

func TestFreeViewAppendOnly(t *testing.T) {
	_, manager := initializedManager(t, sim.Options{}, device.Options{})
	color := createTexture(t, manager, gputypes.TextureFormatRGBA8Unorm, driver.ResourceFlagAllowRenderTarget)

	view, err := manager.CreateRenderTargetView(color, nil)
	require.NoError(t, err)
	require.ErrorIs(t, manager.FreeView(view), descriptor.ErrReclaimUnsupported)
}

func TestStatistics(t *testing.T) {
	_, manager := initializedManager(t, sim.Options{}, device.Options{HeapCapacity: 10})
	color := createTexture(t, manager, gputypes.TextureFormatRGBA8Unorm, driver.ResourceFlagAllowRenderTarget)

	_, err := manager.CreateRenderTargetView(color, nil)
	require.NoError(t, err)
	_, err = manager.CreateShaderResourceView(color, nil)
	require.NoError(t, err)
	require.NoError(t, manager.SubmitAndPresent())

	var stats metadata.Statistics
	manager.CalculateStatistics(&stats)
	require.Equal(t, metadata.Statistics{HeapCount: 3, SlotCount: 30, AllocationCount: 2}, stats)

	var summary struct {
		General struct {
			Adapter             string
			FeatureLevel        string
			RequestedFenceValue float64
			CompletedFenceValue float64
			DrawContext         string
		}
		Total struct {
			Heaps       int
			Slots       int
			Allocations int
			FreeSlots   int
		}
		Heaps map[string]json.RawMessage
	}

	require.NoError(t, json.Unmarshal([]byte(manager.BuildStatsString(false)), &summary))
	require.Equal(t, "Simulated Adapter", summary.General.Adapter)
	require.Equal(t, "12_1", summary.General.FeatureLevel)
	require.Equal(t, float64(1), summary.General.RequestedFenceValue)
	require.Equal(t, float64(1), summary.General.CompletedFenceValue)
	require.Equal(t, "Submitted", summary.General.DrawContext)
	require.Equal(t, 28, summary.Total.FreeSlots)
	require.Nil(t, summary.Heaps)

	require.NoError(t, json.Unmarshal([]byte(manager.BuildStatsString(true)), &summary))
	require.Len(t, summary.Heaps, 3)
	require.Contains(t, summary.Heaps, "RTV")
	require.Contains(t, summary.Heaps, "CSU")
}
