// Package d3d12 drives Direct3D 12 through its COM interfaces. Everything that touches the
// native API is built on Windows only; the translation tables below build everywhere.
package d3d12

import (
	"math"

	"github.com/framegpu/gpucore/driver"
	"github.com/gogpu/gputypes"
)

// dxgiFormat is a DXGI_FORMAT value
type dxgiFormat uint32

const (
	dxgiFormatUnknown        dxgiFormat = 0
	dxgiFormatR8G8B8A8Unorm  dxgiFormat = 28
	dxgiFormatD24UnormS8Uint dxgiFormat = 45
	dxgiFormatR8Unorm        dxgiFormat = 61
	dxgiFormatB8G8R8A8Unorm  dxgiFormat = 87
)

var formatMapping = map[gputypes.TextureFormat]dxgiFormat{
	gputypes.TextureFormatUndefined:           dxgiFormatUnknown,
	gputypes.TextureFormatRGBA8Unorm:          dxgiFormatR8G8B8A8Unorm,
	gputypes.TextureFormatDepth24PlusStencil8: dxgiFormatD24UnormS8Uint,
	gputypes.TextureFormatR8Unorm:             dxgiFormatR8Unorm,
	gputypes.TextureFormatBGRA8Unorm:          dxgiFormatB8G8R8A8Unorm,
}

var reverseFormatMapping = map[dxgiFormat]gputypes.TextureFormat{}

func init() {
	for format, dxgi := range formatMapping {
		reverseFormatMapping[dxgi] = format
	}
}

// toDXGIFormat maps format to its DXGI equivalent, reporting false for formats with no mapping
func toDXGIFormat(format gputypes.TextureFormat) (dxgiFormat, bool) {
	dxgi, ok := formatMapping[format]
	return dxgi, ok
}

func fromDXGIFormat(format dxgiFormat) gputypes.TextureFormat {
	return reverseFormatMapping[format]
}

// Views and resources are laid out the way the native API reads them. The dimension and flag
// enums in package driver already carry the native values.

type rtvDesc struct {
	Format        dxgiFormat
	ViewDimension driver.RTVDimension
	Union         [4]uint32
}

type dsvDesc struct {
	Format        dxgiFormat
	ViewDimension driver.DSVDimension
	Flags         driver.DSVFlags
	Union         [3]uint32
}

type srvDesc struct {
	Format                  dxgiFormat
	ViewDimension           driver.SRVDimension
	Shader4ComponentMapping uint32
	_                       uint32
	Union                   [6]uint32
}

type uavDesc struct {
	Format        dxgiFormat
	ViewDimension driver.UAVDimension
	Union         [8]uint32
}

type cbvDesc struct {
	BufferLocation uint64
	SizeInBytes    uint32
	_              uint32
}

type sampleDesc struct {
	Count   uint32
	Quality uint32
}

type resourceDesc struct {
	Dimension        driver.ResourceDimension
	Alignment        uint64
	Width            uint64
	Height           uint32
	DepthOrArraySize uint16
	MipLevels        uint16
	Format           dxgiFormat
	SampleDesc       sampleDesc
	Layout           uint32
	Flags            driver.ResourceFlags
}

const textureLayoutRowMajor = 1

func splitUint64(value uint64) (uint32, uint32) {
	return uint32(value), uint32(value >> 32)
}

func toRTVDesc(desc *driver.RenderTargetViewDesc) (rtvDesc, bool) {
	format, ok := toDXGIFormat(desc.Format)
	out := rtvDesc{Format: format, ViewDimension: desc.Dimension}

	switch desc.Dimension {
	case driver.RTVDimensionBuffer:
		out.Union[0], out.Union[1] = splitUint64(desc.FirstElement)
		out.Union[2] = desc.NumElements
	case driver.RTVDimensionTexture1D:
		out.Union[0] = desc.MipSlice
	case driver.RTVDimensionTexture1DArray:
		out.Union = [4]uint32{desc.MipSlice, desc.FirstArraySlice, desc.ArraySize}
	case driver.RTVDimensionTexture2D:
		out.Union = [4]uint32{desc.MipSlice, desc.PlaneSlice}
	case driver.RTVDimensionTexture2DArray:
		out.Union = [4]uint32{desc.MipSlice, desc.FirstArraySlice, desc.ArraySize, desc.PlaneSlice}
	case driver.RTVDimensionTexture2DMSArray:
		out.Union = [4]uint32{desc.FirstArraySlice, desc.ArraySize}
	case driver.RTVDimensionTexture3D:
		out.Union = [4]uint32{desc.MipSlice, desc.FirstArraySlice, desc.ArraySize}
	}
	return out, ok
}

func toDSVDesc(desc *driver.DepthStencilViewDesc) (dsvDesc, bool) {
	format, ok := toDXGIFormat(desc.Format)
	out := dsvDesc{Format: format, ViewDimension: desc.Dimension, Flags: desc.Flags}

	switch desc.Dimension {
	case driver.DSVDimensionTexture1D, driver.DSVDimensionTexture2D:
		out.Union[0] = desc.MipSlice
	case driver.DSVDimensionTexture1DArray, driver.DSVDimensionTexture2DArray:
		out.Union = [3]uint32{desc.MipSlice, desc.FirstArraySlice, desc.ArraySize}
	case driver.DSVDimensionTexture2DMSArray:
		out.Union = [3]uint32{desc.FirstArraySlice, desc.ArraySize}
	}
	return out, ok
}

func toSRVDesc(desc *driver.ShaderResourceViewDesc) (srvDesc, bool) {
	format, ok := toDXGIFormat(desc.Format)
	out := srvDesc{
		Format:                  format,
		ViewDimension:           desc.Dimension,
		Shader4ComponentMapping: desc.Shader4ComponentMapping,
	}
	clamp := math.Float32bits(desc.ResourceMinLODClamp)

	switch desc.Dimension {
	case driver.SRVDimensionBuffer:
		out.Union[0], out.Union[1] = splitUint64(desc.FirstElement)
		out.Union[2] = desc.NumElements
		out.Union[3] = desc.StructureByteStride
	case driver.SRVDimensionTexture1D, driver.SRVDimensionTexture3D, driver.SRVDimensionTextureCube:
		out.Union = [6]uint32{desc.MostDetailedMip, desc.MipLevels, clamp}
	case driver.SRVDimensionTexture1DArray:
		out.Union = [6]uint32{desc.MostDetailedMip, desc.MipLevels, desc.FirstArraySlice, desc.ArraySize, clamp}
	case driver.SRVDimensionTexture2D:
		out.Union = [6]uint32{desc.MostDetailedMip, desc.MipLevels, desc.PlaneSlice, clamp}
	case driver.SRVDimensionTexture2DArray:
		out.Union = [6]uint32{desc.MostDetailedMip, desc.MipLevels, desc.FirstArraySlice, desc.ArraySize, desc.PlaneSlice, clamp}
	case driver.SRVDimensionTexture2DMSArray:
		out.Union = [6]uint32{desc.FirstArraySlice, desc.ArraySize}
	case driver.SRVDimensionTextureCubeArray:
		out.Union = [6]uint32{desc.MostDetailedMip, desc.MipLevels, desc.FirstArraySlice, desc.ArraySize, clamp}
	}
	return out, ok
}

func toUAVDesc(desc *driver.UnorderedAccessViewDesc) (uavDesc, bool) {
	format, ok := toDXGIFormat(desc.Format)
	out := uavDesc{Format: format, ViewDimension: desc.Dimension}

	switch desc.Dimension {
	case driver.UAVDimensionBuffer:
		out.Union[0], out.Union[1] = splitUint64(desc.FirstElement)
		out.Union[2] = desc.NumElements
		out.Union[3] = desc.StructureByteStride
	case driver.UAVDimensionTexture1D:
		out.Union[0] = desc.MipSlice
	case driver.UAVDimensionTexture1DArray:
		out.Union = [8]uint32{desc.MipSlice, desc.FirstArraySlice, desc.ArraySize}
	case driver.UAVDimensionTexture2D:
		out.Union = [8]uint32{desc.MipSlice, desc.PlaneSlice}
	case driver.UAVDimensionTexture2DArray:
		out.Union = [8]uint32{desc.MipSlice, desc.FirstArraySlice, desc.ArraySize, desc.PlaneSlice}
	case driver.UAVDimensionTexture3D:
		out.Union = [8]uint32{desc.MipSlice, desc.FirstArraySlice, desc.ArraySize}
	}
	return out, ok
}

func toResourceDesc(desc driver.ResourceDesc) (resourceDesc, bool) {
	format, ok := toDXGIFormat(desc.Format)
	out := resourceDesc{
		Dimension:        desc.Dimension,
		Width:            desc.Width,
		Height:           desc.Height,
		DepthOrArraySize: desc.DepthOrArraySize,
		MipLevels:        desc.MipLevels,
		Format:           format,
		SampleDesc:       sampleDesc{Count: desc.SampleCount, Quality: desc.SampleQuality},
		Flags:            desc.Flags,
	}
	if out.SampleDesc.Count == 0 {
		out.SampleDesc.Count = 1
	}
	if desc.Dimension == driver.ResourceDimensionBuffer {
		out.Format = dxgiFormatUnknown
		out.Layout = textureLayoutRowMajor
		ok = true
	}
	return out, ok
}

func fromResourceDesc(desc resourceDesc) driver.ResourceDesc {
	return driver.ResourceDesc{
		Dimension:        desc.Dimension,
		Width:            desc.Width,
		Height:           desc.Height,
		DepthOrArraySize: desc.DepthOrArraySize,
		MipLevels:        desc.MipLevels,
		Format:           fromDXGIFormat(desc.Format),
		SampleCount:      desc.SampleDesc.Count,
		SampleQuality:    desc.SampleDesc.Quality,
		Flags:            desc.Flags,
	}
}
