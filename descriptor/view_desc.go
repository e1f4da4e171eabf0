package descriptor

import "github.com/framegpu/gpucore/driver"

// ViewKind is the type of descriptor a view occupies
type ViewKind uint32

const (
	ViewKindShaderResource ViewKind = iota
	ViewKindConstantBuffer
	ViewKindUnorderedAccess
	ViewKindRenderTarget
	ViewKindDepthStencil
)

var viewKindMapping = map[ViewKind]string{
	ViewKindShaderResource:  "ShaderResource",
	ViewKindConstantBuffer:  "ConstantBuffer",
	ViewKindUnorderedAccess: "UnorderedAccess",
	ViewKindRenderTarget:    "RenderTarget",
	ViewKindDepthStencil:    "DepthStencil",
}

func (k ViewKind) String() string {
	return viewKindMapping[k]
}

// HeapType returns the category of heap that holds views of this kind
func (k ViewKind) HeapType() driver.DescriptorHeapType {
	switch k {
	case ViewKindRenderTarget:
		return driver.DescriptorHeapTypeRTV
	case ViewKindDepthStencil:
		return driver.DescriptorHeapTypeDSV
	default:
		return driver.DescriptorHeapTypeCBVSRVUAV
	}
}

// ViewDesc is the description of a view to create. It is one of ShaderResourceDesc,
// ConstantBufferDesc, UnorderedAccessDesc, RenderTargetDesc, or DepthStencilDesc. A nil Desc
// field in any of them asks for the description derived from the resource shape.
type ViewDesc interface {
	Kind() ViewKind
	isViewDesc()
}

type ShaderResourceDesc struct {
	Desc *driver.ShaderResourceViewDesc
}

type ConstantBufferDesc struct {
	Desc *driver.ConstantBufferViewDesc
}

type UnorderedAccessDesc struct {
	Desc *driver.UnorderedAccessViewDesc
}

type RenderTargetDesc struct {
	Desc *driver.RenderTargetViewDesc
}

type DepthStencilDesc struct {
	Desc *driver.DepthStencilViewDesc
}

func (ShaderResourceDesc) Kind() ViewKind { return ViewKindShaderResource }
func (ConstantBufferDesc) Kind() ViewKind { return ViewKindConstantBuffer }
func (UnorderedAccessDesc) Kind() ViewKind { return ViewKindUnorderedAccess }
func (RenderTargetDesc) Kind() ViewKind { return ViewKindRenderTarget }
func (DepthStencilDesc) Kind() ViewKind { return ViewKindDepthStencil }

func (ShaderResourceDesc) isViewDesc() {}
func (ConstantBufferDesc) isViewDesc() {}
func (UnorderedAccessDesc) isViewDesc() {}
func (RenderTargetDesc) isViewDesc() {}
func (DepthStencilDesc) isViewDesc() {}
