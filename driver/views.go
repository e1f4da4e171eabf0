package driver

import (
	"github.com/gogpu/gputypes"
)

// RTVDimension is the view dimension of a render target view
type RTVDimension uint32

const (
	RTVDimensionUnknown          RTVDimension = 0
	RTVDimensionBuffer           RTVDimension = 1
	RTVDimensionTexture1D        RTVDimension = 2
	RTVDimensionTexture1DArray   RTVDimension = 3
	RTVDimensionTexture2D        RTVDimension = 4
	RTVDimensionTexture2DArray   RTVDimension = 5
	RTVDimensionTexture2DMS      RTVDimension = 6
	RTVDimensionTexture2DMSArray RTVDimension = 7
	RTVDimensionTexture3D        RTVDimension = 8
)

var rtvDimensionMapping = map[RTVDimension]string{
	RTVDimensionUnknown:          "RTVDimensionUnknown",
	RTVDimensionBuffer:           "RTVDimensionBuffer",
	RTVDimensionTexture1D:        "RTVDimensionTexture1D",
	RTVDimensionTexture1DArray:   "RTVDimensionTexture1DArray",
	RTVDimensionTexture2D:        "RTVDimensionTexture2D",
	RTVDimensionTexture2DArray:   "RTVDimensionTexture2DArray",
	RTVDimensionTexture2DMS:      "RTVDimensionTexture2DMS",
	RTVDimensionTexture2DMSArray: "RTVDimensionTexture2DMSArray",
	RTVDimensionTexture3D:        "RTVDimensionTexture3D",
}

func (d RTVDimension) String() string {
	return rtvDimensionMapping[d]
}

// RenderTargetViewDesc describes a render target view. For 3D textures FirstArraySlice and
// ArraySize select the W slices. For buffers, FirstElement and NumElements select the elements.
type RenderTargetViewDesc struct {
	Format          gputypes.TextureFormat
	Dimension       RTVDimension
	MipSlice        uint32
	FirstArraySlice uint32
	ArraySize       uint32
	PlaneSlice      uint32
	FirstElement    uint64
	NumElements     uint32
}

// DSVDimension is the view dimension of a depth stencil view
type DSVDimension uint32

const (
	DSVDimensionUnknown          DSVDimension = 0
	DSVDimensionTexture1D        DSVDimension = 1
	DSVDimensionTexture1DArray   DSVDimension = 2
	DSVDimensionTexture2D        DSVDimension = 3
	DSVDimensionTexture2DArray   DSVDimension = 4
	DSVDimensionTexture2DMS      DSVDimension = 5
	DSVDimensionTexture2DMSArray DSVDimension = 6
)

var dsvDimensionMapping = map[DSVDimension]string{
	DSVDimensionUnknown:          "DSVDimensionUnknown",
	DSVDimensionTexture1D:        "DSVDimensionTexture1D",
	DSVDimensionTexture1DArray:   "DSVDimensionTexture1DArray",
	DSVDimensionTexture2D:        "DSVDimensionTexture2D",
	DSVDimensionTexture2DArray:   "DSVDimensionTexture2DArray",
	DSVDimensionTexture2DMS:      "DSVDimensionTexture2DMS",
	DSVDimensionTexture2DMSArray: "DSVDimensionTexture2DMSArray",
}

func (d DSVDimension) String() string {
	return dsvDimensionMapping[d]
}

type DSVFlags uint32

const (
	DSVFlagReadOnlyDepth   DSVFlags = 0x1
	DSVFlagReadOnlyStencil DSVFlags = 0x2
)

type DepthStencilViewDesc struct {
	Format          gputypes.TextureFormat
	Dimension       DSVDimension
	Flags           DSVFlags
	MipSlice        uint32
	FirstArraySlice uint32
	ArraySize       uint32
}

// SRVDimension is the view dimension of a shader resource view
type SRVDimension uint32

const (
	SRVDimensionUnknown          SRVDimension = 0
	SRVDimensionBuffer           SRVDimension = 1
	SRVDimensionTexture1D        SRVDimension = 2
	SRVDimensionTexture1DArray   SRVDimension = 3
	SRVDimensionTexture2D        SRVDimension = 4
	SRVDimensionTexture2DArray   SRVDimension = 5
	SRVDimensionTexture2DMS      SRVDimension = 6
	SRVDimensionTexture2DMSArray SRVDimension = 7
	SRVDimensionTexture3D        SRVDimension = 8
	SRVDimensionTextureCube      SRVDimension = 9
	SRVDimensionTextureCubeArray SRVDimension = 10
)

var srvDimensionMapping = map[SRVDimension]string{
	SRVDimensionUnknown:          "SRVDimensionUnknown",
	SRVDimensionBuffer:           "SRVDimensionBuffer",
	SRVDimensionTexture1D:        "SRVDimensionTexture1D",
	SRVDimensionTexture1DArray:   "SRVDimensionTexture1DArray",
	SRVDimensionTexture2D:        "SRVDimensionTexture2D",
	SRVDimensionTexture2DArray:   "SRVDimensionTexture2DArray",
	SRVDimensionTexture2DMS:      "SRVDimensionTexture2DMS",
	SRVDimensionTexture2DMSArray: "SRVDimensionTexture2DMSArray",
	SRVDimensionTexture3D:        "SRVDimensionTexture3D",
	SRVDimensionTextureCube:      "SRVDimensionTextureCube",
	SRVDimensionTextureCubeArray: "SRVDimensionTextureCubeArray",
}

func (d SRVDimension) String() string {
	return srvDimensionMapping[d]
}

const (
	// DefaultShader4ComponentMapping passes each component through unswizzled
	DefaultShader4ComponentMapping uint32 = 0x1688
	// AllMips selects every mip from MostDetailedMip down in a shader resource view
	AllMips uint32 = 0xffffffff
)

// ShaderResourceViewDesc describes a shader resource view. For cube textures, FirstArraySlice
// is the first 2D array face and ArraySize the number of cubes.
type ShaderResourceViewDesc struct {
	Format                  gputypes.TextureFormat
	Dimension               SRVDimension
	Shader4ComponentMapping uint32
	MostDetailedMip         uint32
	MipLevels               uint32
	FirstArraySlice         uint32
	ArraySize               uint32
	PlaneSlice              uint32
	ResourceMinLODClamp     float32
	FirstElement            uint64
	NumElements             uint32
	StructureByteStride     uint32
}

type ConstantBufferViewDesc struct {
	BufferLocation uint64
	SizeInBytes    uint32
}

// UAVDimension is the view dimension of an unordered access view
type UAVDimension uint32

const (
	UAVDimensionUnknown        UAVDimension = 0
	UAVDimensionBuffer         UAVDimension = 1
	UAVDimensionTexture1D      UAVDimension = 2
	UAVDimensionTexture1DArray UAVDimension = 3
	UAVDimensionTexture2D      UAVDimension = 4
	UAVDimensionTexture2DArray UAVDimension = 5
	UAVDimensionTexture3D      UAVDimension = 8
)

var uavDimensionMapping = map[UAVDimension]string{
	UAVDimensionUnknown:        "UAVDimensionUnknown",
	UAVDimensionBuffer:         "UAVDimensionBuffer",
	UAVDimensionTexture1D:      "UAVDimensionTexture1D",
	UAVDimensionTexture1DArray: "UAVDimensionTexture1DArray",
	UAVDimensionTexture2D:      "UAVDimensionTexture2D",
	UAVDimensionTexture2DArray: "UAVDimensionTexture2DArray",
	UAVDimensionTexture3D:      "UAVDimensionTexture3D",
}

func (d UAVDimension) String() string {
	return uavDimensionMapping[d]
}

type UnorderedAccessViewDesc struct {
	Format              gputypes.TextureFormat
	Dimension           UAVDimension
	MipSlice            uint32
	FirstArraySlice     uint32
	ArraySize           uint32
	PlaneSlice          uint32
	FirstElement        uint64
	NumElements         uint32
	StructureByteStride uint32
}
