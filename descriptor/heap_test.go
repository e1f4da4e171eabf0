package descriptor_test

import (
	"io"
	"testing"

	"github.com/framegpu/gpucore/descriptor"
	"github.com/framegpu/gpucore/descriptor/metadata"
	"github.com/framegpu/gpucore/driver"
	mock_driver "github.com/framegpu/gpucore/driver/mocks"
	"github.com/framegpu/gpucore/driver/sim"
	"github.com/gogpu/gputypes"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/exp/slog"
)

func readySimDevice(t *testing.T, options sim.Options) *sim.Device {
	factory := sim.NewFactory(options)
	adapter, err := factory.EnumAdapter(0)
	require.NoError(t, err)
	device, err := adapter.CreateDevice(driver.FeatureLevel12_0)
	require.NoError(t, err)
	return device.(*sim.Device)
}

func texture2D(t *testing.T, device driver.Device, arraySize uint32, format gputypes.TextureFormat, flags driver.ResourceFlags) driver.Resource {
	resource, err := device.CreateCommittedResource(driver.TextureDesc(
		gputypes.TextureDimension2D,
		gputypes.Extent3D{Width: 64, Height: 64, DepthOrArrayLayers: arraySize},
		format, 1, 1, flags,
	), driver.ResourceStateCommon)
	require.NoError(t, err)
	return resource
}

func TestHeapHandleOffsets(t *testing.T) {
	device := readySimDevice(t, sim.Options{
		IncrementSizes: map[driver.DescriptorHeapType]uint32{
			driver.DescriptorHeapTypeRTV: 48,
		},
	})
	logger := slog.New(slog.NewJSONHandler(io.Discard))

	heap, err := descriptor.NewRTVHeap(logger, device, 5, descriptor.HeapOptions{})
	require.NoError(t, err)
	require.Equal(t, uint32(48), heap.IncrementSize())
	require.Equal(t, "DescriptorHeapTypeRTV", heap.Name())

	resource := texture2D(t, device, 1, gputypes.TextureFormatRGBA8Unorm, driver.ResourceFlagAllowRenderTarget)

	for i := 0; i < 5; i++ {
		view, err := heap.CreateView(descriptor.RenderTargetDesc{}, resource)
		require.NoError(t, err)
		require.Equal(t, i, view.Slot())
		require.Equal(t, heap.Start().Ptr+uintptr(i*48), view.CPUHandle().Ptr)

		written, ok := device.Descriptor(view.CPUHandle())
		require.True(t, ok)
		require.Equal(t, "RTV", written.Kind)
	}

	require.Equal(t, 5, heap.Cursor())
	require.Equal(t, 0, device.StrayDescriptorWrites())
	require.NoError(t, heap.Validate())
}

func TestHeapExhaustion(t *testing.T) {
	device := readySimDevice(t, sim.Options{})
	logger := slog.New(slog.NewJSONHandler(io.Discard))

	const capacity = 100
	heap, err := descriptor.NewCSUHeap(logger, device, capacity, descriptor.HeapOptions{})
	require.NoError(t, err)

	buffer, err := device.CreateCommittedResource(driver.BufferDesc(1024, 0), driver.ResourceStateCommon)
	require.NoError(t, err)

	for i := 0; i < capacity; i++ {
		_, err := heap.CreateView(descriptor.ShaderResourceDesc{}, buffer)
		require.NoError(t, err)
	}

	_, err = heap.CreateView(descriptor.ShaderResourceDesc{}, buffer)
	require.ErrorIs(t, err, descriptor.ErrHeapExhausted)
	require.Equal(t, capacity, heap.Cursor())
	require.Equal(t, capacity, heap.Count())
	require.Equal(t, 0, device.StrayDescriptorWrites())
}

func TestHeapNilResource(t *testing.T) {
	device := readySimDevice(t, sim.Options{})
	logger := slog.New(slog.NewJSONHandler(io.Discard))

	heap, err := descriptor.NewDSVHeap(logger, device, 4, descriptor.HeapOptions{})
	require.NoError(t, err)

	_, err = heap.CreateView(descriptor.DepthStencilDesc{}, nil)
	require.ErrorIs(t, err, descriptor.ErrNilResource)
	require.Equal(t, 0, heap.Cursor())

	var missing *sim.Resource
	_, err = heap.CreateView(descriptor.DepthStencilDesc{}, missing)
	require.ErrorIs(t, err, descriptor.ErrNilResource)
	require.Equal(t, 0, heap.Cursor())
	require.Equal(t, 0, heap.Count())

	depth := texture2D(t, device, 1, gputypes.TextureFormatDepth24PlusStencil8, driver.ResourceFlagAllowDepthStencil)
	view, err := heap.CreateView(descriptor.DepthStencilDesc{}, depth)
	require.NoError(t, err)
	require.Equal(t, 0, view.Slot())
}

func TestHeapCategoryRouting(t *testing.T) {
	testCases := map[string]struct {
		HeapType driver.DescriptorHeapType
		Desc     descriptor.ViewDesc
		Accepted bool
	}{
		"RTVInRTV": {HeapType: driver.DescriptorHeapTypeRTV, Desc: descriptor.RenderTargetDesc{}, Accepted: true},
		"DSVInRTV": {HeapType: driver.DescriptorHeapTypeRTV, Desc: descriptor.DepthStencilDesc{}},
		"SRVInRTV": {HeapType: driver.DescriptorHeapTypeRTV, Desc: descriptor.ShaderResourceDesc{}},
		"DSVInDSV": {HeapType: driver.DescriptorHeapTypeDSV, Desc: descriptor.DepthStencilDesc{}, Accepted: true},
		"RTVInDSV": {HeapType: driver.DescriptorHeapTypeDSV, Desc: descriptor.RenderTargetDesc{}},
		"SRVInCSU": {HeapType: driver.DescriptorHeapTypeCBVSRVUAV, Desc: descriptor.ShaderResourceDesc{}, Accepted: true},
		"UAVInCSU": {HeapType: driver.DescriptorHeapTypeCBVSRVUAV, Desc: descriptor.UnorderedAccessDesc{}, Accepted: true},
		"CBVInCSU": {HeapType: driver.DescriptorHeapTypeCBVSRVUAV, Desc: descriptor.ConstantBufferDesc{}, Accepted: true},
		"RTVInCSU": {HeapType: driver.DescriptorHeapTypeCBVSRVUAV, Desc: descriptor.RenderTargetDesc{}},
		"CBVInDSV": {HeapType: driver.DescriptorHeapTypeDSV, Desc: descriptor.ConstantBufferDesc{}},
		"NilInCSU": {HeapType: driver.DescriptorHeapTypeCBVSRVUAV, Desc: nil},
	}

	for name, testCase := range testCases {
		t.Run(name, func(t *testing.T) {
			device := readySimDevice(t, sim.Options{})
			logger := slog.New(slog.NewJSONHandler(io.Discard))

			heap, err := descriptor.NewHeap(logger, device, testCase.HeapType, 2, descriptor.HeapOptions{})
			require.NoError(t, err)

			// constant buffer views need a buffer
			var resource driver.Resource
			if testCase.Desc != nil && testCase.Desc.Kind() == descriptor.ViewKindConstantBuffer {
				resource, err = device.CreateCommittedResource(driver.BufferDesc(256, 0), driver.ResourceStateCommon)
				require.NoError(t, err)
			} else {
				resource = texture2D(t, device, 1, gputypes.TextureFormatRGBA8Unorm, driver.ResourceFlagAllowRenderTarget|driver.ResourceFlagAllowUnorderedAccess)
			}

			view, err := heap.CreateView(testCase.Desc, resource)
			if !testCase.Accepted {
				require.ErrorIs(t, err, descriptor.ErrCategoryMismatch)
				require.Equal(t, 0, heap.Cursor())
				return
			}

			require.NoError(t, err)
			require.Equal(t, testCase.Desc.Kind(), view.Kind())
			require.Equal(t, testCase.HeapType, view.Kind().HeapType())
			require.Same(t, heap, view.Heap())
			require.Equal(t, 1, heap.Cursor())
		})
	}
}

func TestHeapExplicitDesc(t *testing.T) {
	device := readySimDevice(t, sim.Options{})
	logger := slog.New(slog.NewJSONHandler(io.Discard))

	heap, err := descriptor.NewCSUHeap(logger, device, 4, descriptor.HeapOptions{Name: "Materials"})
	require.NoError(t, err)
	require.Equal(t, "Materials", heap.Name())

	resource := texture2D(t, device, 6, gputypes.TextureFormatRGBA8Unorm, 0)
	cube := &driver.ShaderResourceViewDesc{
		Format:                  gputypes.TextureFormatRGBA8Unorm,
		Dimension:               driver.SRVDimensionTextureCube,
		Shader4ComponentMapping: driver.DefaultShader4ComponentMapping,
		MipLevels:               1,
	}

	view, err := heap.CreateView(descriptor.ShaderResourceDesc{Desc: cube}, resource)
	require.NoError(t, err)
	require.Equal(t, driver.SRVDimensionTextureCube, view.(*descriptor.ShaderResourceView).Desc().Dimension)

	written, ok := device.Descriptor(view.CPUHandle())
	require.True(t, ok)
	require.Equal(t, "SRV", written.Kind)
	require.Equal(t, *cube, written.Desc)
}

func TestHeapDefaultDescFailureLeavesCursor(t *testing.T) {
	device := readySimDevice(t, sim.Options{})
	logger := slog.New(slog.NewJSONHandler(io.Discard))

	heap, err := descriptor.NewDSVHeap(logger, device, 4, descriptor.HeapOptions{})
	require.NoError(t, err)

	buffer, err := device.CreateCommittedResource(driver.BufferDesc(256, 0), driver.ResourceStateCommon)
	require.NoError(t, err)

	_, err = heap.CreateView(descriptor.DepthStencilDesc{}, buffer)
	require.ErrorIs(t, err, descriptor.ErrNoDefaultDesc)
	require.Equal(t, 0, heap.Cursor())
}

func TestAppendOnlyHeapRejectsFree(t *testing.T) {
	device := readySimDevice(t, sim.Options{})
	logger := slog.New(slog.NewJSONHandler(io.Discard))

	heap, err := descriptor.NewRTVHeap(logger, device, 2, descriptor.HeapOptions{})
	require.NoError(t, err)
	require.False(t, heap.Reclaimable())

	view, err := heap.CreateView(descriptor.RenderTargetDesc{}, texture2D(t, device, 1, gputypes.TextureFormatRGBA8Unorm, driver.ResourceFlagAllowRenderTarget))
	require.NoError(t, err)

	require.ErrorIs(t, heap.FreeView(view), descriptor.ErrReclaimUnsupported)
	require.Equal(t, 1, heap.Count())

	require.NoError(t, heap.Destroy())
	require.False(t, heap.IsValid())

	_, err = heap.CreateView(descriptor.RenderTargetDesc{}, view.Resource())
	require.ErrorIs(t, err, descriptor.ErrHeapInvalid)
}

func TestReclaimableHeap(t *testing.T) {
	device := readySimDevice(t, sim.Options{})
	logger := slog.New(slog.NewJSONHandler(io.Discard))

	heap, err := descriptor.NewRTVHeap(logger, device, 2, descriptor.HeapOptions{
		Flags: descriptor.HeapCreateReclaimable | descriptor.HeapCreateSynchronized,
	})
	require.NoError(t, err)
	require.True(t, heap.Reclaimable())

	resource := texture2D(t, device, 1, gputypes.TextureFormatRGBA8Unorm, driver.ResourceFlagAllowRenderTarget)

	first, err := heap.CreateView(descriptor.RenderTargetDesc{}, resource)
	require.NoError(t, err)
	second, err := heap.CreateView(descriptor.RenderTargetDesc{}, resource)
	require.NoError(t, err)

	_, err = heap.CreateView(descriptor.RenderTargetDesc{}, resource)
	require.ErrorIs(t, err, descriptor.ErrHeapExhausted)

	require.NoError(t, heap.FreeView(first))
	require.Error(t, heap.FreeView(first), "a stale view cannot be freed twice")

	third, err := heap.CreateView(descriptor.RenderTargetDesc{}, resource)
	require.NoError(t, err)
	require.Equal(t, first.Slot(), third.Slot())
	require.Equal(t, first.CPUHandle(), third.CPUHandle())
	require.Equal(t, []descriptor.View{third, second}, heap.Views())

	var stats metadata.Statistics
	heap.AddStatistics(&stats)
	require.Equal(t, metadata.Statistics{HeapCount: 1, SlotCount: 2, AllocationCount: 2, ReclaimedCount: 1}, stats)

	err = heap.Destroy()
	require.Error(t, err, "views that were never freed are reported")
	require.False(t, heap.IsValid())
}

func TestHeapPrintDetailedMap(t *testing.T) {
	device := readySimDevice(t, sim.Options{})
	logger := slog.New(slog.NewJSONHandler(io.Discard))

	heap, err := descriptor.NewRTVHeap(logger, device, 3, descriptor.HeapOptions{})
	require.NoError(t, err)

	_, err = heap.CreateView(descriptor.RenderTargetDesc{}, texture2D(t, device, 1, gputypes.TextureFormatRGBA8Unorm, driver.ResourceFlagAllowRenderTarget))
	require.NoError(t, err)

	writer := jwriter.NewWriter()
	obj := writer.Object()
	heap.PrintDetailedMap(&obj)
	obj.End()

	require.JSONEq(t, `{
		"Name": "DescriptorHeapTypeRTV",
		"Type": "DescriptorHeapTypeRTV",
		"IncrementSize": 32,
		"Capacity": 3,
		"Cursor": 1,
		"Allocations": 1,
		"FreeSlots": 2,
		"Mode": "Linear",
		"Views": {
			"0": {"Kind": "RenderTarget", "Handle": "0x10000"}
		}
	}`, string(writer.Bytes()))
}

func TestNewHeapFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	logger := slog.New(slog.NewJSONHandler(io.Discard))

	device := mock_driver.NewMockDevice(ctrl)
	device.EXPECT().CreateDescriptorHeap(driver.DescriptorHeapDesc{
		Type:           driver.DescriptorHeapTypeDSV,
		NumDescriptors: 100,
	}).Return(nil, driver.ErrDeviceRemoved)

	heap, err := descriptor.NewDSVHeap(logger, device, 100, descriptor.HeapOptions{})
	require.ErrorIs(t, err, driver.ErrDeviceRemoved)
	require.Nil(t, heap)

	_, err = descriptor.NewDSVHeap(logger, device, 0, descriptor.HeapOptions{})
	require.Error(t, err)
}
