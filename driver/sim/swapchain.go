package sim

import (
	"github.com/cockroachdb/errors"
	"github.com/framegpu/gpucore/driver"
	"github.com/gogpu/gputypes"
)

type SwapChain struct {
	device  *Device
	id      uint64
	window  uintptr
	desc    driver.SwapChainDesc
	buffers []driver.ResourceDesc
	current int
	// presents is GPU state, guarded by the timeline mutex
	presents int
}

var _ driver.SwapChain = &SwapChain{}

func newSwapChain(device *Device, window uintptr, desc driver.SwapChainDesc) *SwapChain {
	if desc.SampleCount == 0 {
		desc.SampleCount = 1
	}

	buffers := make([]driver.ResourceDesc, desc.BufferCount)
	for i := range buffers {
		buffers[i] = driver.TextureDesc(gputypes.TextureDimension2D,
			gputypes.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: 1},
			desc.Format, 1, desc.SampleCount, driver.ResourceFlagAllowRenderTarget)
	}

	return &SwapChain{
		device:  device,
		id:      device.registry.track("SwapChain", device.id),
		window:  window,
		desc:    desc,
		buffers: buffers,
	}
}

func (s *SwapChain) Desc() driver.SwapChainDesc { return s.desc }
func (s *SwapChain) Window() uintptr { return s.window }

func (s *SwapChain) Buffer(index int) (driver.Resource, error) {
	if index < 0 || index >= len(s.buffers) {
		return nil, errors.Newf("swapchain has %d buffers, but buffer %d was requested", len(s.buffers), index)
	}
	return s.device.newResource(s.buffers[index], "BackBuffer"), nil
}

func (s *SwapChain) CurrentBackBufferIndex() int {
	var current int
	s.device.timeline.read(func() {
		current = s.current
	})
	return current
}

// Present queues the flip behind previously executed work
func (s *SwapChain) Present(syncInterval uint32, flags uint32) error {
	if s.device.fails(FailPresent) {
		return errors.New("simulated present failure")
	}

	s.device.timeline.submit(func() {
		s.presents++
		s.current = (s.current + 1) % len(s.buffers)
	})
	return nil
}

// PresentCount is the number of presents the GPU has completed
func (s *SwapChain) PresentCount() int {
	var presents int
	s.device.timeline.read(func() {
		presents = s.presents
	})
	return presents
}

func (s *SwapChain) Release() {
	s.device.registry.release(s.id)
}
