package d3d12

import (
	"math"
	"testing"
	"unsafe"

	"github.com/framegpu/gpucore/driver"
	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/require"
)

func TestNativeLayoutSizes(t *testing.T) {
	require.Equal(t, uintptr(24), unsafe.Sizeof(rtvDesc{}))
	require.Equal(t, uintptr(24), unsafe.Sizeof(dsvDesc{}))
	require.Equal(t, uintptr(40), unsafe.Sizeof(srvDesc{}))
	require.Equal(t, uintptr(40), unsafe.Sizeof(uavDesc{}))
	require.Equal(t, uintptr(16), unsafe.Sizeof(cbvDesc{}))
	require.Equal(t, uintptr(56), unsafe.Sizeof(resourceDesc{}))
	require.Equal(t, uintptr(16), unsafe.Offsetof(srvDesc{}.Union))
	require.Equal(t, uintptr(32), unsafe.Offsetof(resourceDesc{}.Format))
}

func TestFormatMapping(t *testing.T) {
	testCases := map[string]struct {
		format   gputypes.TextureFormat
		expected dxgiFormat
	}{
		"Undefined":    {format: gputypes.TextureFormatUndefined, expected: dxgiFormatUnknown},
		"RGBA8Unorm":   {format: gputypes.TextureFormatRGBA8Unorm, expected: dxgiFormatR8G8B8A8Unorm},
		"BGRA8Unorm":   {format: gputypes.TextureFormatBGRA8Unorm, expected: dxgiFormatB8G8R8A8Unorm},
		"R8Unorm":      {format: gputypes.TextureFormatR8Unorm, expected: dxgiFormatR8Unorm},
		"Depth24Plus8": {format: gputypes.TextureFormatDepth24PlusStencil8, expected: dxgiFormatD24UnormS8Uint},
	}

	for testName, testCase := range testCases {
		t.Run(testName, func(t *testing.T) {
			dxgi, ok := toDXGIFormat(testCase.format)
			require.True(t, ok)
			require.Equal(t, testCase.expected, dxgi)
			require.Equal(t, testCase.format, fromDXGIFormat(dxgi))
		})
	}
}

func TestRTVDescLayout(t *testing.T) {
	desc, ok := toRTVDesc(&driver.RenderTargetViewDesc{
		Format:          gputypes.TextureFormatRGBA8Unorm,
		Dimension:       driver.RTVDimensionTexture2DArray,
		MipSlice:        1,
		FirstArraySlice: 2,
		ArraySize:       6,
	})
	require.True(t, ok)
	require.Equal(t, dxgiFormatR8G8B8A8Unorm, desc.Format)
	require.Equal(t, [4]uint32{1, 2, 6, 0}, desc.Union)

	desc, ok = toRTVDesc(&driver.RenderTargetViewDesc{
		Dimension:    driver.RTVDimensionBuffer,
		FirstElement: 0x100000002,
		NumElements:  16,
	})
	require.True(t, ok)
	require.Equal(t, [4]uint32{2, 1, 16, 0}, desc.Union)
}

func TestSRVDescLayout(t *testing.T) {
	desc, ok := toSRVDesc(&driver.ShaderResourceViewDesc{
		Format:                  gputypes.TextureFormatBGRA8Unorm,
		Dimension:               driver.SRVDimensionTextureCube,
		Shader4ComponentMapping: driver.DefaultShader4ComponentMapping,
		MipLevels:               driver.AllMips,
		ResourceMinLODClamp:     0.5,
	})
	require.True(t, ok)
	require.Equal(t, driver.DefaultShader4ComponentMapping, desc.Shader4ComponentMapping)
	require.Equal(t, [6]uint32{0, driver.AllMips, math.Float32bits(0.5)}, desc.Union)
}

func TestBufferResourceDesc(t *testing.T) {
	desc, ok := toResourceDesc(driver.BufferDesc(256, 0))
	require.True(t, ok)
	require.Equal(t, dxgiFormatUnknown, desc.Format)
	require.Equal(t, uint32(textureLayoutRowMajor), desc.Layout)
	require.Equal(t, uint32(1), desc.SampleDesc.Count)

	roundTrip := fromResourceDesc(desc)
	require.Equal(t, uint64(256), roundTrip.Width)
	require.Equal(t, driver.ResourceDimensionBuffer, roundTrip.Dimension)
}
