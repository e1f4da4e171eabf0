//go:build windows

package d3d12

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/framegpu/gpucore/driver"
	"golang.org/x/exp/slog"
	"golang.org/x/sys/windows"
)

const (
	dxgiCreateFactoryDebug  = 0x1
	dxgiAdapterFlagSoftware = 0x2
)

// Options contains optional settings when creating a Factory
type Options struct {
	// Debug enables the D3D12 debug layer and the DXGI debug factory
	Debug bool
}

// Factory wraps an IDXGIFactory4
type Factory struct {
	logger  *slog.Logger
	options Options
	factory comObject
}

var _ driver.Factory = &Factory{}

func NewFactory(logger *slog.Logger, options Options) (*Factory, error) {
	err := procCreateDXGIFactory2.Find()
	if err != nil {
		return nil, errors.Wrap(err, "dxgi.dll is not available")
	}

	var flags uintptr
	if options.Debug {
		enableDebugLayer(logger)
		flags |= dxgiCreateFactoryDebug
	}

	f := &Factory{logger: logger, options: options}
	ret, _, _ := procCreateDXGIFactory2.Call(flags, uintptr(unsafe.Pointer(&iidIDXGIFactory4)), uintptr(unsafe.Pointer(&f.factory)))
	err = check(ret, "CreateDXGIFactory2")
	if err != nil {
		return nil, err
	}

	logger.Debug("Factory::NewFactory", slog.Bool("debug", options.Debug))
	return f, nil
}

func enableDebugLayer(logger *slog.Logger) {
	var debug comObject
	ret, _, _ := procD3D12GetDebugInterface.Call(uintptr(unsafe.Pointer(&iidID3D12Debug)), uintptr(unsafe.Pointer(&debug)))
	err := check(ret, "D3D12GetDebugInterface")
	if err != nil {
		logger.Warn("debug layer requested but not available", slog.Any("error", err))
		return
	}

	debug.call(slotDebugEnableDebugLayer)
	debug.release()
}

func (f *Factory) EnumAdapter(index int) (driver.Adapter, error) {
	var adapter comObject
	ret := f.factory.call(slotFactoryEnumAdapters1, uintptr(index), uintptr(unsafe.Pointer(&adapter)))
	if uint32(ret) == dxgiErrorNotFound {
		return nil, errors.Wrapf(driver.ErrNotFound, "adapter %d", index)
	}
	err := check(ret, "IDXGIFactory1::EnumAdapters1")
	if err != nil {
		return nil, err
	}

	return &Adapter{factory: f, adapter: adapter}, nil
}

type swapChainDesc1 struct {
	Width       uint32
	Height      uint32
	Format      dxgiFormat
	Stereo      int32
	SampleDesc  sampleDesc
	BufferUsage uint32
	BufferCount uint32
	Scaling     uint32
	SwapEffect  uint32
	AlphaMode   uint32
	Flags       uint32
}

const (
	dxgiUsageRenderTargetOutput = 0x20
	dxgiSwapEffectFlipDiscard   = 4
)

// CreateSwapChain creates a flip-model swapchain for the window handle hwnd
func (f *Factory) CreateSwapChain(queue driver.CommandQueue, window uintptr, desc driver.SwapChainDesc) (driver.SwapChain, error) {
	nativeQueue, ok := queue.(*CommandQueue)
	if !ok || nativeQueue == nil {
		return nil, errors.New("swapchains must be created on a d3d12 command queue")
	}
	if desc.BufferCount < 2 {
		return nil, errors.Newf("flip-model swapchains need at least two buffers, but %d were requested", desc.BufferCount)
	}

	format, ok := toDXGIFormat(desc.Format)
	if !ok || format == dxgiFormatUnknown {
		return nil, errors.Newf("format %d cannot be presented", desc.Format)
	}

	sampleCount := desc.SampleCount
	if sampleCount == 0 {
		sampleCount = 1
	}
	nativeDesc := swapChainDesc1{
		Width:       desc.Width,
		Height:      desc.Height,
		Format:      format,
		SampleDesc:  sampleDesc{Count: sampleCount},
		BufferUsage: dxgiUsageRenderTargetOutput,
		BufferCount: uint32(desc.BufferCount),
		SwapEffect:  dxgiSwapEffectFlipDiscard,
	}

	var swapChain1 comObject
	ret := f.factory.call(slotFactoryCreateSwapChainForHwnd,
		uintptr(nativeQueue.queue),
		window,
		uintptr(unsafe.Pointer(&nativeDesc)),
		0,
		0,
		uintptr(unsafe.Pointer(&swapChain1)),
	)
	err := check(ret, "IDXGIFactory2::CreateSwapChainForHwnd")
	if err != nil {
		return nil, err
	}
	defer swapChain1.release()

	swapChain3, err := swapChain1.queryInterface(&iidIDXGISwapChain3)
	if err != nil {
		return nil, err
	}

	return &SwapChain{
		device:    nativeQueue.device,
		id:        nativeQueue.device.track("SwapChain"),
		swapChain: swapChain3,
	}, nil
}

func (f *Factory) Release() {
	f.logger.Debug("Factory::Release")

	f.factory.release()
	f.factory = 0
}

// Adapter wraps an IDXGIAdapter1
type Adapter struct {
	factory *Factory
	adapter comObject
}

var _ driver.Adapter = &Adapter{}

type adapterDesc1 struct {
	Description           [128]uint16
	VendorID              uint32
	DeviceID              uint32
	SubSysID              uint32
	Revision              uint32
	DedicatedVideoMemory  uintptr
	DedicatedSystemMemory uintptr
	SharedSystemMemory    uintptr
	AdapterLUID           windows.LUID
	Flags                 uint32
}

func (a *Adapter) Desc() (driver.AdapterDesc, error) {
	var desc adapterDesc1
	ret := a.adapter.call(slotAdapterGetDesc1, uintptr(unsafe.Pointer(&desc)))
	err := check(ret, "IDXGIAdapter1::GetDesc1")
	if err != nil {
		return driver.AdapterDesc{}, err
	}

	return driver.AdapterDesc{
		Description:          windows.UTF16ToString(desc.Description[:]),
		VendorID:             desc.VendorID,
		DeviceID:             desc.DeviceID,
		DedicatedVideoMemory: uint64(desc.DedicatedVideoMemory),
		Software:             desc.Flags&dxgiAdapterFlagSoftware != 0,
	}, nil
}

func (a *Adapter) CreateDevice(level driver.FeatureLevel) (driver.Device, error) {
	var device comObject
	ret, _, _ := procD3D12CreateDevice.Call(
		uintptr(a.adapter),
		uintptr(level),
		uintptr(unsafe.Pointer(&iidID3D12Device)),
		uintptr(unsafe.Pointer(&device)),
	)
	err := check(ret, "D3D12CreateDevice")
	if err != nil {
		return nil, errors.Wrapf(err, "feature level %s", level)
	}

	return newDevice(a.factory.logger, device, level, a.factory.options.Debug), nil
}

func (a *Adapter) Release() {
	a.adapter.release()
	a.adapter = 0
}
