package driver

import (
	"github.com/gogpu/gputypes"
)

// ResourceDimension is the shape of a GPU resource
type ResourceDimension uint32

const (
	ResourceDimensionUnknown   ResourceDimension = 0
	ResourceDimensionBuffer    ResourceDimension = 1
	ResourceDimensionTexture1D ResourceDimension = 2
	ResourceDimensionTexture2D ResourceDimension = 3
	ResourceDimensionTexture3D ResourceDimension = 4
)

var resourceDimensionMapping = map[ResourceDimension]string{
	ResourceDimensionUnknown:   "ResourceDimensionUnknown",
	ResourceDimensionBuffer:    "ResourceDimensionBuffer",
	ResourceDimensionTexture1D: "ResourceDimensionTexture1D",
	ResourceDimensionTexture2D: "ResourceDimensionTexture2D",
	ResourceDimensionTexture3D: "ResourceDimensionTexture3D",
}

func (d ResourceDimension) String() string {
	return resourceDimensionMapping[d]
}

// ResourceFlags indicate which kinds of views a resource may be bound through
type ResourceFlags uint32

const (
	ResourceFlagAllowRenderTarget    ResourceFlags = 0x1
	ResourceFlagAllowDepthStencil    ResourceFlags = 0x2
	ResourceFlagAllowUnorderedAccess ResourceFlags = 0x4
)

// ResourceDesc describes the shape of a resource. For buffers, Width is the size in bytes and
// the remaining extents are 1.
type ResourceDesc struct {
	Dimension        ResourceDimension
	Width            uint64
	Height           uint32
	DepthOrArraySize uint16
	MipLevels        uint16
	Format           gputypes.TextureFormat
	SampleCount      uint32
	SampleQuality    uint32
	Flags            ResourceFlags
}

// BufferDesc describes a linear buffer of size bytes
func BufferDesc(size uint64, flags ResourceFlags) ResourceDesc {
	return ResourceDesc{
		Dimension:        ResourceDimensionBuffer,
		Width:            size,
		Height:           1,
		DepthOrArraySize: 1,
		MipLevels:        1,
		Format:           gputypes.TextureFormatUndefined,
		SampleCount:      1,
		Flags:            flags,
	}
}

// TextureDesc describes a texture. For 1D and 2D textures, size.DepthOrArrayLayers is the
// array size; for 3D textures it is the depth.
func TextureDesc(dimension gputypes.TextureDimension, size gputypes.Extent3D, format gputypes.TextureFormat, mipLevels uint16, sampleCount uint32, flags ResourceFlags) ResourceDesc {
	desc := ResourceDesc{
		Width:            uint64(size.Width),
		Height:           size.Height,
		DepthOrArraySize: uint16(size.DepthOrArrayLayers),
		MipLevels:        mipLevels,
		Format:           format,
		SampleCount:      sampleCount,
		Flags:            flags,
	}

	switch dimension {
	case gputypes.TextureDimension1D:
		desc.Dimension = ResourceDimensionTexture1D
		desc.Height = 1
	case gputypes.TextureDimension3D:
		desc.Dimension = ResourceDimensionTexture3D
	default:
		desc.Dimension = ResourceDimensionTexture2D
	}

	if desc.DepthOrArraySize == 0 {
		desc.DepthOrArraySize = 1
	}
	if desc.Height == 0 {
		desc.Height = 1
	}
	if desc.MipLevels == 0 {
		desc.MipLevels = 1
	}
	if desc.SampleCount == 0 {
		desc.SampleCount = 1
	}

	return desc
}

// TextureDimension reports the texture dimension of the resource, or false for buffers
func (d ResourceDesc) TextureDimension() (gputypes.TextureDimension, bool) {
	switch d.Dimension {
	case ResourceDimensionTexture1D:
		return gputypes.TextureDimension1D, true
	case ResourceDimensionTexture2D:
		return gputypes.TextureDimension2D, true
	case ResourceDimensionTexture3D:
		return gputypes.TextureDimension3D, true
	}
	return gputypes.TextureDimension2D, false
}

// IsArray reports whether a 1D or 2D texture has more than one array slice
func (d ResourceDesc) IsArray() bool {
	return d.Dimension != ResourceDimensionTexture3D && d.Dimension != ResourceDimensionBuffer && d.DepthOrArraySize > 1
}

// IsMultisampled reports whether a texture has more than one sample per pixel
func (d ResourceDesc) IsMultisampled() bool {
	return d.SampleCount > 1
}

// IsDepthFormat reports whether the resource format carries depth
func (d ResourceDesc) IsDepthFormat() bool {
	return IsDepthFormat(d.Format)
}

// IsDepthFormat reports whether format carries depth or stencil data
func IsDepthFormat(format gputypes.TextureFormat) bool {
	return format == gputypes.TextureFormatDepth24PlusStencil8
}
