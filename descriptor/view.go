package descriptor

import (
	"github.com/framegpu/gpucore/descriptor/metadata"
	"github.com/framegpu/gpucore/driver"
)

// View is a descriptor written into one slot of a Heap. Views do not own their resource:
// releasing the resource while the view is still bound is the caller's responsibility.
type View interface {
	Kind() ViewKind
	CPUHandle() driver.CPUDescriptorHandle
	Resource() driver.Resource
	// Slot is the index of the view's descriptor within its heap
	Slot() int
	Heap() *Heap

	base() *viewBase
}

type viewBase struct {
	heap      *Heap
	handle    metadata.SlotHandle
	cpuHandle driver.CPUDescriptorHandle
	resource  driver.Resource
}

func (v *viewBase) CPUHandle() driver.CPUDescriptorHandle { return v.cpuHandle }
func (v *viewBase) Resource() driver.Resource { return v.resource }
func (v *viewBase) Slot() int { return v.handle.Slot() }
func (v *viewBase) Heap() *Heap { return v.heap }
func (v *viewBase) base() *viewBase { return v }

type RenderTargetView struct {
	viewBase
	desc driver.RenderTargetViewDesc
}

func (v *RenderTargetView) Kind() ViewKind { return ViewKindRenderTarget }
func (v *RenderTargetView) Desc() driver.RenderTargetViewDesc { return v.desc }

type DepthStencilView struct {
	viewBase
	desc driver.DepthStencilViewDesc
}

func (v *DepthStencilView) Kind() ViewKind { return ViewKindDepthStencil }
func (v *DepthStencilView) Desc() driver.DepthStencilViewDesc { return v.desc }

type ShaderResourceView struct {
	viewBase
	desc driver.ShaderResourceViewDesc
}

func (v *ShaderResourceView) Kind() ViewKind { return ViewKindShaderResource }
func (v *ShaderResourceView) Desc() driver.ShaderResourceViewDesc { return v.desc }

type ConstantBufferView struct {
	viewBase
	desc driver.ConstantBufferViewDesc
}

func (v *ConstantBufferView) Kind() ViewKind { return ViewKindConstantBuffer }
func (v *ConstantBufferView) Desc() driver.ConstantBufferViewDesc { return v.desc }

type UnorderedAccessView struct {
	viewBase
	desc driver.UnorderedAccessViewDesc
}

func (v *UnorderedAccessView) Kind() ViewKind { return ViewKindUnorderedAccess }
func (v *UnorderedAccessView) Desc() driver.UnorderedAccessViewDesc { return v.desc }

// newView resolves the description against the resource and builds an unbound view
func newView(desc ViewDesc, resource driver.Resource) (View, error) {
	resourceDesc := resource.Desc()

	switch d := desc.(type) {
	case RenderTargetDesc:
		view := &RenderTargetView{viewBase: viewBase{resource: resource}}
		if d.Desc != nil {
			view.desc = *d.Desc
			return view, nil
		}
		var err error
		view.desc, err = DefaultRenderTargetViewDesc(resourceDesc)
		return view, err
	case DepthStencilDesc:
		view := &DepthStencilView{viewBase: viewBase{resource: resource}}
		if d.Desc != nil {
			view.desc = *d.Desc
			return view, nil
		}
		var err error
		view.desc, err = DefaultDepthStencilViewDesc(resourceDesc)
		return view, err
	case ShaderResourceDesc:
		view := &ShaderResourceView{viewBase: viewBase{resource: resource}}
		if d.Desc != nil {
			view.desc = *d.Desc
			return view, nil
		}
		var err error
		view.desc, err = DefaultShaderResourceViewDesc(resourceDesc)
		return view, err
	case ConstantBufferDesc:
		view := &ConstantBufferView{viewBase: viewBase{resource: resource}}
		if d.Desc != nil {
			view.desc = *d.Desc
			return view, nil
		}
		var err error
		view.desc, err = DefaultConstantBufferViewDesc(resourceDesc, resource.GPUVirtualAddress())
		return view, err
	case UnorderedAccessDesc:
		view := &UnorderedAccessView{viewBase: viewBase{resource: resource}}
		if d.Desc != nil {
			view.desc = *d.Desc
			return view, nil
		}
		var err error
		view.desc, err = DefaultUnorderedAccessViewDesc(resourceDesc)
		return view, err
	}

	return nil, ErrCategoryMismatch
}

// materialize writes the view's descriptor into the driver heap at its CPU handle
func materialize(device driver.Device, view View) {
	switch v := view.(type) {
	case *RenderTargetView:
		device.CreateRenderTargetView(v.resource, &v.desc, v.cpuHandle)
	case *DepthStencilView:
		device.CreateDepthStencilView(v.resource, &v.desc, v.cpuHandle)
	case *ShaderResourceView:
		device.CreateShaderResourceView(v.resource, &v.desc, v.cpuHandle)
	case *ConstantBufferView:
		device.CreateConstantBufferView(&v.desc, v.cpuHandle)
	case *UnorderedAccessView:
		device.CreateUnorderedAccessView(v.resource, &v.desc, v.cpuHandle)
	}
}
