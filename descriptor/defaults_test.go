package descriptor_test

import (
	"testing"

	"github.com/framegpu/gpucore/descriptor"
	"github.com/framegpu/gpucore/driver"
	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/require"
)

func textureDesc(dimension gputypes.TextureDimension, depthOrArraySize uint32, sampleCount uint32) driver.ResourceDesc {
	return driver.TextureDesc(dimension,
		gputypes.Extent3D{Width: 128, Height: 128, DepthOrArrayLayers: depthOrArraySize},
		gputypes.TextureFormatRGBA8Unorm, 4, sampleCount, 0)
}

func TestDefaultRenderTargetViewDesc(t *testing.T) {
	testCases := map[string]struct {
		Resource  driver.ResourceDesc
		Dimension driver.RTVDimension
		ArraySize uint32
	}{
		"Texture1D":        {Resource: textureDesc(gputypes.TextureDimension1D, 1, 1), Dimension: driver.RTVDimensionTexture1D},
		"Texture1DArray":   {Resource: textureDesc(gputypes.TextureDimension1D, 3, 1), Dimension: driver.RTVDimensionTexture1DArray, ArraySize: 3},
		"Texture2D":        {Resource: textureDesc(gputypes.TextureDimension2D, 1, 1), Dimension: driver.RTVDimensionTexture2D},
		"Texture2DArray":   {Resource: textureDesc(gputypes.TextureDimension2D, 4, 1), Dimension: driver.RTVDimensionTexture2DArray, ArraySize: 4},
		"SixSlicesIsArray": {Resource: textureDesc(gputypes.TextureDimension2D, 6, 1), Dimension: driver.RTVDimensionTexture2DArray, ArraySize: 6},
		"Texture2DMS":      {Resource: textureDesc(gputypes.TextureDimension2D, 1, 4), Dimension: driver.RTVDimensionTexture2DMS},
		"Texture2DMSArray": {Resource: textureDesc(gputypes.TextureDimension2D, 2, 4), Dimension: driver.RTVDimensionTexture2DMSArray, ArraySize: 2},
		"Texture3D":        {Resource: textureDesc(gputypes.TextureDimension3D, 8, 1), Dimension: driver.RTVDimensionTexture3D, ArraySize: 8},
	}

	for name, testCase := range testCases {
		t.Run(name, func(t *testing.T) {
			view, err := descriptor.DefaultRenderTargetViewDesc(testCase.Resource)
			require.NoError(t, err)
			require.Equal(t, testCase.Dimension, view.Dimension)
			require.Equal(t, testCase.ArraySize, view.ArraySize)
			require.Equal(t, gputypes.TextureFormatRGBA8Unorm, view.Format)
			require.Equal(t, uint32(0), view.MipSlice)
		})
	}
}

func TestDefaultDepthStencilViewDesc(t *testing.T) {
	depth := driver.TextureDesc(gputypes.TextureDimension2D,
		gputypes.Extent3D{Width: 800, Height: 600, DepthOrArrayLayers: 1},
		gputypes.TextureFormatDepth24PlusStencil8, 1, 1, driver.ResourceFlagAllowDepthStencil)
	require.True(t, depth.IsDepthFormat())

	view, err := descriptor.DefaultDepthStencilViewDesc(depth)
	require.NoError(t, err)
	require.Equal(t, driver.DepthStencilViewDesc{
		Format:    gputypes.TextureFormatDepth24PlusStencil8,
		Dimension: driver.DSVDimensionTexture2D,
	}, view)

	_, err = descriptor.DefaultDepthStencilViewDesc(textureDesc(gputypes.TextureDimension3D, 4, 1))
	require.ErrorIs(t, err, descriptor.ErrNoDefaultDesc)

	_, err = descriptor.DefaultDepthStencilViewDesc(driver.BufferDesc(64, 0))
	require.ErrorIs(t, err, descriptor.ErrNoDefaultDesc)
}

func TestDefaultShaderResourceViewDesc(t *testing.T) {
	testCases := map[string]struct {
		Resource  driver.ResourceDesc
		Dimension driver.SRVDimension
		MipLevels uint32
		ArraySize uint32
	}{
		"Buffer":           {Resource: driver.BufferDesc(4096, 0), Dimension: driver.SRVDimensionBuffer},
		"Texture2D":        {Resource: textureDesc(gputypes.TextureDimension2D, 1, 1), Dimension: driver.SRVDimensionTexture2D, MipLevels: 4},
		"SixSlicesIsArray": {Resource: textureDesc(gputypes.TextureDimension2D, 6, 1), Dimension: driver.SRVDimensionTexture2DArray, MipLevels: 4, ArraySize: 6},
		"TwelveSlices":     {Resource: textureDesc(gputypes.TextureDimension2D, 12, 1), Dimension: driver.SRVDimensionTexture2DArray, MipLevels: 4, ArraySize: 12},
		"Texture2DMS":      {Resource: textureDesc(gputypes.TextureDimension2D, 1, 4), Dimension: driver.SRVDimensionTexture2DMS},
		"Texture3D":        {Resource: textureDesc(gputypes.TextureDimension3D, 8, 1), Dimension: driver.SRVDimensionTexture3D, MipLevels: 4},
	}

	for name, testCase := range testCases {
		t.Run(name, func(t *testing.T) {
			view, err := descriptor.DefaultShaderResourceViewDesc(testCase.Resource)
			require.NoError(t, err)
			require.Equal(t, testCase.Dimension, view.Dimension)
			require.Equal(t, testCase.MipLevels, view.MipLevels)
			require.Equal(t, testCase.ArraySize, view.ArraySize)
			require.Equal(t, driver.DefaultShader4ComponentMapping, view.Shader4ComponentMapping)
		})
	}
}

func TestDefaultConstantBufferViewDesc(t *testing.T) {
	view, err := descriptor.DefaultConstantBufferViewDesc(driver.BufferDesc(300, 0), 0x100000000)
	require.NoError(t, err)
	require.Equal(t, driver.ConstantBufferViewDesc{BufferLocation: 0x100000000, SizeInBytes: 512}, view)

	view, err = descriptor.DefaultConstantBufferViewDesc(driver.BufferDesc(256, 0), 0x100000000)
	require.NoError(t, err)
	require.Equal(t, uint32(256), view.SizeInBytes)

	_, err = descriptor.DefaultConstantBufferViewDesc(textureDesc(gputypes.TextureDimension2D, 1, 1), 0)
	require.ErrorIs(t, err, descriptor.ErrNoDefaultDesc)
}

func TestDefaultUnorderedAccessViewDesc(t *testing.T) {
	view, err := descriptor.DefaultUnorderedAccessViewDesc(textureDesc(gputypes.TextureDimension2D, 6, 1))
	require.NoError(t, err)
	require.Equal(t, driver.UAVDimensionTexture2DArray, view.Dimension)
	require.Equal(t, uint32(6), view.ArraySize)

	view, err = descriptor.DefaultUnorderedAccessViewDesc(driver.BufferDesc(64, 0))
	require.NoError(t, err)
	require.Equal(t, driver.UAVDimensionBuffer, view.Dimension)
	require.Equal(t, uint32(64), view.NumElements)

	_, err = descriptor.DefaultUnorderedAccessViewDesc(textureDesc(gputypes.TextureDimension2D, 1, 4))
	require.ErrorIs(t, err, descriptor.ErrNoDefaultDesc)
}
