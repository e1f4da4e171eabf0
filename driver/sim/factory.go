package sim

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/framegpu/gpucore/driver"
)

// Factory is the entry point of the simulated driver
type Factory struct {
	options  Options
	registry *registry
	id       uint64

	mutex   sync.Mutex
	devices []*Device
}

var _ driver.Factory = &Factory{}

func NewFactory(options Options) *Factory {
	if len(options.Adapters) == 0 {
		options.Adapters = []AdapterConfig{DefaultAdapter}
	}

	reg := newRegistry()
	return &Factory{
		options:  options,
		registry: reg,
		id:       reg.track("Factory", 0),
	}
}

func (f *Factory) EnumAdapter(index int) (driver.Adapter, error) {
	if index < 0 || index >= len(f.options.Adapters) {
		return nil, driver.ErrNotFound
	}

	return &Adapter{
		factory: f,
		config:  f.options.Adapters[index],
		id:      f.registry.track("Adapter", f.id),
	}, nil
}

func (f *Factory) CreateSwapChain(queue driver.CommandQueue, window uintptr, desc driver.SwapChainDesc) (driver.SwapChain, error) {
	if f.options.Fail&FailSwapChain != 0 {
		return nil, errors.New("simulated swapchain creation failure")
	}

	simQueue, ok := queue.(*CommandQueue)
	if !ok || simQueue == nil {
		return nil, errors.New("swapchains must be created on a simulated command queue")
	}
	if desc.BufferCount < 1 {
		return nil, errors.Newf("swapchain needs at least one buffer, but %d were requested", desc.BufferCount)
	}

	return newSwapChain(simQueue.device, window, desc), nil
}

// Devices lists every device created through this factory, in creation order
func (f *Factory) Devices() []*Device {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return append([]*Device(nil), f.devices...)
}

// LastDevice is the most recently created device, or nil
func (f *Factory) LastDevice() *Device {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if len(f.devices) == 0 {
		return nil
	}
	return f.devices[len(f.devices)-1]
}

// LiveObjectCount is the number of objects, across all devices, that have not been released
func (f *Factory) LiveObjectCount() int {
	return f.registry.count()
}

func (f *Factory) Release() {
	f.registry.release(f.id)
}

func (f *Factory) addDevice(device *Device) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.devices = append(f.devices, device)
}

type Adapter struct {
	factory *Factory
	config  AdapterConfig
	id      uint64
}

var _ driver.Adapter = &Adapter{}

func (a *Adapter) Desc() (driver.AdapterDesc, error) {
	return driver.AdapterDesc{
		Description:          a.config.Description,
		VendorID:             a.config.VendorID,
		DeviceID:             a.config.DeviceID,
		DedicatedVideoMemory: a.config.DedicatedVideoMemory,
		Software:             a.config.Software,
	}, nil
}

func (a *Adapter) CreateDevice(level driver.FeatureLevel) (driver.Device, error) {
	if level > a.config.MaxFeatureLevel {
		return nil, errors.Newf("adapter %q does not support feature level %s", a.config.Description, level)
	}

	device := newDevice(a.factory, level)
	a.factory.addDevice(device)
	return device, nil
}

func (a *Adapter) Release() {
	a.factory.registry.release(a.id)
}
