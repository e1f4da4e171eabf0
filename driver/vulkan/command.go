package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/framegpu/gpucore/driver"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// CommandAllocator is a command pool. It remembers the last batch its lists were submitted in
// and fails to reset until that batch has finished.
type CommandAllocator struct {
	device   *Device
	id       uint64
	pool     core1_0.CommandPool
	listType driver.CommandListType
	inFlight *submission
}

var _ driver.CommandAllocator = &CommandAllocator{}

func (a *CommandAllocator) Type() driver.CommandListType { return a.listType }

func (a *CommandAllocator) retire() {
	if a.inFlight != nil {
		a.inFlight.release()
		a.inFlight = nil
	}
}

func (a *CommandAllocator) Reset() error {
	if a.inFlight != nil && !a.inFlight.done() {
		return errors.New("command allocator reset while its last submission is still executing")
	}
	a.retire()

	_, err := a.pool.Reset(0)
	if err != nil {
		return errors.Wrap(err, "failed to reset command pool")
	}
	return nil
}

func (a *CommandAllocator) Release() {
	a.retire()
	if a.pool != nil {
		a.pool.Destroy(nil)
		a.pool = nil
	}
	a.device.untrack(a.id)
}

// CommandList records into a primary command buffer. The driver has no images to record
// against, so every recording command fails; the failure is reported by Close.
type CommandList struct {
	device    *Device
	id        uint64
	listType  driver.CommandListType
	allocator *CommandAllocator
	buffer    core1_0.CommandBuffer
	recording bool
	err       error
}

var _ driver.CommandList = &CommandList{}

func (l *CommandList) Type() driver.CommandListType { return l.listType }

func (l *CommandList) begin() error {
	_, err := l.buffer.Begin(core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	if err != nil {
		return errors.Wrap(err, "failed to begin command buffer")
	}
	l.recording = true
	return nil
}

func (l *CommandList) Close() error {
	if !l.recording {
		return errors.New("command list is already closed")
	}

	l.recording = false
	_, err := l.buffer.End()
	if err != nil {
		return errors.Wrap(err, "failed to end command buffer")
	}

	err = l.err
	l.err = nil
	return err
}

func (l *CommandList) Reset(allocator driver.CommandAllocator) error {
	if l.recording {
		return errors.New("command list must be closed before it is reset")
	}

	vkAllocator, ok := allocator.(*CommandAllocator)
	if !ok || vkAllocator == nil {
		return errors.New("command lists must be reset against a vulkan command allocator")
	}
	if vkAllocator != l.allocator {
		return errors.Wrap(driver.ErrUnsupported, "command buffers cannot move between command pools")
	}

	_, err := l.buffer.Reset(0)
	if err != nil {
		return errors.Wrap(err, "failed to reset command buffer")
	}
	return l.begin()
}

func (l *CommandList) unsupported(command string) {
	if l.err == nil {
		l.err = errors.Wrapf(driver.ErrUnsupported, "%s on a headless device", command)
	}
}

func (l *CommandList) ResourceBarrier(barriers ...driver.TransitionBarrier) {
	l.unsupported("ResourceBarrier")
}

func (l *CommandList) OMSetRenderTargets(renderTargets []driver.CPUDescriptorHandle, depthStencil *driver.CPUDescriptorHandle) {
	l.unsupported("OMSetRenderTargets")
}

func (l *CommandList) ClearRenderTargetView(handle driver.CPUDescriptorHandle, color [4]float32) {
	l.unsupported("ClearRenderTargetView")
}

func (l *CommandList) ClearDepthStencilView(handle driver.CPUDescriptorHandle, depth float32, stencil uint8) {
	l.unsupported("ClearDepthStencilView")
}

func (l *CommandList) Release() {
	if l.buffer != nil {
		l.buffer.Free()
		l.buffer = nil
	}
	l.device.untrack(l.id)
}
