package descriptor

import (
	"github.com/cockroachdb/errors"
	"github.com/framegpu/gpucore/driver"
)

// constantBufferAlignment is the size granularity of constant buffer views
const constantBufferAlignment = 256

// DefaultRenderTargetViewDesc derives a render target view covering mip 0 and every array slice
// (or every W slice of a 3D texture) of the resource.
//
// A 2D texture counts as an array whenever DepthOrArraySize is greater than 1. This holds for
// sizes that are a multiple of 6 as well: cube maps are not inferred from the shape.
func DefaultRenderTargetViewDesc(desc driver.ResourceDesc) (driver.RenderTargetViewDesc, error) {
	view := driver.RenderTargetViewDesc{Format: desc.Format}
	arraySize := uint32(desc.DepthOrArraySize)

	switch desc.Dimension {
	case driver.ResourceDimensionBuffer:
		view.Dimension = driver.RTVDimensionBuffer
		view.NumElements = uint32(desc.Width)
	case driver.ResourceDimensionTexture1D:
		view.Dimension = driver.RTVDimensionTexture1D
		if desc.IsArray() {
			view.Dimension = driver.RTVDimensionTexture1DArray
			view.ArraySize = arraySize
		}
	case driver.ResourceDimensionTexture2D:
		switch {
		case desc.IsMultisampled() && desc.IsArray():
			view.Dimension = driver.RTVDimensionTexture2DMSArray
			view.ArraySize = arraySize
		case desc.IsMultisampled():
			view.Dimension = driver.RTVDimensionTexture2DMS
		case desc.IsArray():
			view.Dimension = driver.RTVDimensionTexture2DArray
			view.ArraySize = arraySize
		default:
			view.Dimension = driver.RTVDimensionTexture2D
		}
	case driver.ResourceDimensionTexture3D:
		view.Dimension = driver.RTVDimensionTexture3D
		view.ArraySize = arraySize
	default:
		return view, errors.Wrapf(ErrNoDefaultDesc, "render target view of %s", desc.Dimension)
	}

	return view, nil
}

// DefaultDepthStencilViewDesc derives a writable depth stencil view covering mip 0 and every
// array slice of a 1D or 2D texture.
func DefaultDepthStencilViewDesc(desc driver.ResourceDesc) (driver.DepthStencilViewDesc, error) {
	view := driver.DepthStencilViewDesc{Format: desc.Format}
	arraySize := uint32(desc.DepthOrArraySize)

	switch desc.Dimension {
	case driver.ResourceDimensionTexture1D:
		view.Dimension = driver.DSVDimensionTexture1D
		if desc.IsArray() {
			view.Dimension = driver.DSVDimensionTexture1DArray
			view.ArraySize = arraySize
		}
	case driver.ResourceDimensionTexture2D:
		switch {
		case desc.IsMultisampled() && desc.IsArray():
			view.Dimension = driver.DSVDimensionTexture2DMSArray
			view.ArraySize = arraySize
		case desc.IsMultisampled():
			view.Dimension = driver.DSVDimensionTexture2DMS
		case desc.IsArray():
			view.Dimension = driver.DSVDimensionTexture2DArray
			view.ArraySize = arraySize
		default:
			view.Dimension = driver.DSVDimensionTexture2D
		}
	default:
		return view, errors.Wrapf(ErrNoDefaultDesc, "depth stencil view of %s", desc.Dimension)
	}

	return view, nil
}

// DefaultShaderResourceViewDesc derives a view over every mip and array slice of the resource
// with the identity component mapping. Buffers are viewed as raw bytes.
//
// As with render targets, a 2D array is never treated as a cube, whatever its size.
func DefaultShaderResourceViewDesc(desc driver.ResourceDesc) (driver.ShaderResourceViewDesc, error) {
	view := driver.ShaderResourceViewDesc{
		Format:                  desc.Format,
		Shader4ComponentMapping: driver.DefaultShader4ComponentMapping,
		MipLevels:               uint32(desc.MipLevels),
	}
	arraySize := uint32(desc.DepthOrArraySize)

	switch desc.Dimension {
	case driver.ResourceDimensionBuffer:
		view.Dimension = driver.SRVDimensionBuffer
		view.MipLevels = 0
		view.NumElements = uint32(desc.Width)
	case driver.ResourceDimensionTexture1D:
		view.Dimension = driver.SRVDimensionTexture1D
		if desc.IsArray() {
			view.Dimension = driver.SRVDimensionTexture1DArray
			view.ArraySize = arraySize
		}
	case driver.ResourceDimensionTexture2D:
		switch {
		case desc.IsMultisampled() && desc.IsArray():
			view.Dimension = driver.SRVDimensionTexture2DMSArray
			view.MipLevels = 0
			view.ArraySize = arraySize
		case desc.IsMultisampled():
			view.Dimension = driver.SRVDimensionTexture2DMS
			view.MipLevels = 0
		case desc.IsArray():
			view.Dimension = driver.SRVDimensionTexture2DArray
			view.ArraySize = arraySize
		default:
			view.Dimension = driver.SRVDimensionTexture2D
		}
	case driver.ResourceDimensionTexture3D:
		view.Dimension = driver.SRVDimensionTexture3D
	default:
		return view, errors.Wrapf(ErrNoDefaultDesc, "shader resource view of %s", desc.Dimension)
	}

	return view, nil
}

// DefaultConstantBufferViewDesc covers a whole buffer, rounded up to the constant buffer granularity
func DefaultConstantBufferViewDesc(desc driver.ResourceDesc, gpuAddress uint64) (driver.ConstantBufferViewDesc, error) {
	if desc.Dimension != driver.ResourceDimensionBuffer {
		return driver.ConstantBufferViewDesc{}, errors.Wrapf(ErrNoDefaultDesc, "constant buffer view of %s", desc.Dimension)
	}

	size := (desc.Width + constantBufferAlignment - 1) &^ (constantBufferAlignment - 1)
	return driver.ConstantBufferViewDesc{
		BufferLocation: gpuAddress,
		SizeInBytes:    uint32(size),
	}, nil
}

// DefaultUnorderedAccessViewDesc derives a view over mip 0 and every array slice (or W slice)
// of the resource. Multisampled textures cannot be bound for unordered access.
func DefaultUnorderedAccessViewDesc(desc driver.ResourceDesc) (driver.UnorderedAccessViewDesc, error) {
	view := driver.UnorderedAccessViewDesc{Format: desc.Format}
	arraySize := uint32(desc.DepthOrArraySize)

	if desc.IsMultisampled() {
		return view, errors.Wrap(ErrNoDefaultDesc, "unordered access view of a multisampled texture")
	}

	switch desc.Dimension {
	case driver.ResourceDimensionBuffer:
		view.Dimension = driver.UAVDimensionBuffer
		view.NumElements = uint32(desc.Width)
	case driver.ResourceDimensionTexture1D:
		view.Dimension = driver.UAVDimensionTexture1D
		if desc.IsArray() {
			view.Dimension = driver.UAVDimensionTexture1DArray
			view.ArraySize = arraySize
		}
	case driver.ResourceDimensionTexture2D:
		view.Dimension = driver.UAVDimensionTexture2D
		if desc.IsArray() {
			view.Dimension = driver.UAVDimensionTexture2DArray
			view.ArraySize = arraySize
		}
	case driver.ResourceDimensionTexture3D:
		view.Dimension = driver.UAVDimensionTexture3D
		view.ArraySize = arraySize
	default:
		return view, errors.Wrapf(ErrNoDefaultDesc, "unordered access view of %s", desc.Dimension)
	}

	return view, nil
}
