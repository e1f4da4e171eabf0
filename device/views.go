package device

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/framegpu/gpucore/descriptor"
	"github.com/framegpu/gpucore/driver"
	"github.com/framegpu/gpucore/internal/utils"
	"golang.org/x/exp/slog"
)

// HeapFor returns the heap that holds views of the given kind: render targets go to the RTV
// heap, depth-stencil views to the DSV heap, and everything else to the CSU heap
func (m *Manager) HeapFor(kind descriptor.ViewKind) *descriptor.Heap {
	switch kind.HeapType() {
	case driver.DescriptorHeapTypeRTV:
		return m.rtvHeap
	case driver.DescriptorHeapTypeDSV:
		return m.dsvHeap
	default:
		return m.csuHeap
	}
}

// CreateView places a view described by desc into the heap its kind belongs to
func (m *Manager) CreateView(desc descriptor.ViewDesc, resource driver.Resource) (descriptor.View, error) {
	if desc == nil {
		return nil, utils.WithKind(errors.Wrap(descriptor.ErrCategoryMismatch, "no view description was provided"), ErrViewCreationFailed)
	}

	heap := m.HeapFor(desc.Kind())
	if heap == nil {
		return nil, utils.WithKind(ErrNotInitialized, ErrViewCreationFailed)
	}

	view, err := heap.CreateView(desc, resource)
	if err != nil {
		err = utils.WithKind(errors.Wrapf(err, "failed to create %s view", desc.Kind()), ErrViewCreationFailed)
		m.logger.LogAttrs(context.Background(), slog.LevelError, "failed to create view", slog.Any("error", err))
		return nil, err
	}
	return view, nil
}

// CreateRenderTargetView places a render-target view of resource in the RTV heap. A nil desc
// derives one from the resource.
func (m *Manager) CreateRenderTargetView(resource driver.Resource, desc *driver.RenderTargetViewDesc) (*descriptor.RenderTargetView, error) {
	m.logger.Debug("Manager::CreateRenderTargetView")

	view, err := m.CreateView(descriptor.RenderTargetDesc{Desc: desc}, resource)
	if err != nil {
		return nil, err
	}
	return view.(*descriptor.RenderTargetView), nil
}

// CreateShaderResourceView places a shader-resource view of resource in the CSU heap
func (m *Manager) CreateShaderResourceView(resource driver.Resource, desc *driver.ShaderResourceViewDesc) (*descriptor.ShaderResourceView, error) {
	m.logger.Debug("Manager::CreateShaderResourceView")

	view, err := m.CreateView(descriptor.ShaderResourceDesc{Desc: desc}, resource)
	if err != nil {
		return nil, err
	}
	return view.(*descriptor.ShaderResourceView), nil
}

// CreateDepthStencilView places a depth-stencil view of resource in the DSV heap
func (m *Manager) CreateDepthStencilView(resource driver.Resource, desc *driver.DepthStencilViewDesc) (*descriptor.DepthStencilView, error) {
	m.logger.Debug("Manager::CreateDepthStencilView")

	view, err := m.CreateView(descriptor.DepthStencilDesc{Desc: desc}, resource)
	if err != nil {
		return nil, err
	}
	return view.(*descriptor.DepthStencilView), nil
}

// CreateConstantBufferView places a constant-buffer view in the CSU heap. A nil desc covers the
// whole buffer, rounded up to 256 bytes.
func (m *Manager) CreateConstantBufferView(resource driver.Resource, desc *driver.ConstantBufferViewDesc) (*descriptor.ConstantBufferView, error) {
	m.logger.Debug("Manager::CreateConstantBufferView")

	view, err := m.CreateView(descriptor.ConstantBufferDesc{Desc: desc}, resource)
	if err != nil {
		return nil, err
	}
	return view.(*descriptor.ConstantBufferView), nil
}

// CreateUnorderedAccessView places an unordered-access view of resource in the CSU heap
func (m *Manager) CreateUnorderedAccessView(resource driver.Resource, desc *driver.UnorderedAccessViewDesc) (*descriptor.UnorderedAccessView, error) {
	m.logger.Debug("Manager::CreateUnorderedAccessView")

	view, err := m.CreateView(descriptor.UnorderedAccessDesc{Desc: desc}, resource)
	if err != nil {
		return nil, err
	}
	return view.(*descriptor.UnorderedAccessView), nil
}

// FreeView returns a view's slot to its heap. It requires CreateReclaimableDescriptors.
func (m *Manager) FreeView(view descriptor.View) error {
	m.logger.Debug("Manager::FreeView")

	if view == nil {
		return errors.New("attempted to free a nil view")
	}

	heap := m.HeapFor(view.Kind())
	if heap == nil || view.Heap() != heap {
		return errors.Newf("%s view in slot %d was not created by this manager", view.Kind(), view.Slot())
	}
	return heap.FreeView(view)
}
