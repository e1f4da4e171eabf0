package sim

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/framegpu/gpucore/driver"
)

type CommandAllocator struct {
	device   *Device
	id       uint64
	listType driver.CommandListType
	// inFlight counts executions recorded against this allocator that the GPU has not finished,
	// guarded by the timeline mutex
	inFlight int
	resets   int
}

var _ driver.CommandAllocator = &CommandAllocator{}

func (a *CommandAllocator) Type() driver.CommandListType { return a.listType }

func (a *CommandAllocator) Reset() error {
	var inFlight int
	a.device.timeline.read(func() {
		inFlight = a.inFlight
	})
	if inFlight > 0 {
		return errors.Newf("command allocator reset while %d executions are still in flight", inFlight)
	}

	a.resets++
	return nil
}

// ResetCount is the number of successful resets
func (a *CommandAllocator) ResetCount() int {
	return a.resets
}

func (a *CommandAllocator) Release() {
	a.device.registry.release(a.id)
}

type CommandList struct {
	device    *Device
	id        uint64
	listType  driver.CommandListType
	allocator *CommandAllocator
	recording bool
	err       error
	commands  []string
	// executions is GPU state, guarded by the timeline mutex
	executions int
}

var _ driver.CommandList = &CommandList{}

func (l *CommandList) Type() driver.CommandListType { return l.listType }

func (l *CommandList) isRecording() bool {
	return l.recording
}

func (l *CommandList) Close() error {
	if !l.recording {
		return errors.New("command list is already closed")
	}

	l.recording = false
	err := l.err
	l.err = nil
	return err
}

func (l *CommandList) Reset(allocator driver.CommandAllocator) error {
	if l.recording {
		return errors.New("command list must be closed before it is reset")
	}

	simAllocator, ok := allocator.(*CommandAllocator)
	if !ok || simAllocator == nil {
		return errors.New("command lists must be reset against a simulated command allocator")
	}

	l.allocator = simAllocator
	l.recording = true
	l.commands = l.commands[:0]
	return nil
}

func (l *CommandList) record(command string) {
	if !l.recording {
		if l.err == nil {
			l.err = errors.Newf("%s recorded into a closed command list", command)
		}
		return
	}
	l.commands = append(l.commands, command)
}

func (l *CommandList) ResourceBarrier(barriers ...driver.TransitionBarrier) {
	for _, barrier := range barriers {
		l.record(fmt.Sprintf("ResourceBarrier(%#x->%#x)", uint32(barrier.Before), uint32(barrier.After)))
	}
}

func (l *CommandList) OMSetRenderTargets(renderTargets []driver.CPUDescriptorHandle, depthStencil *driver.CPUDescriptorHandle) {
	l.record(fmt.Sprintf("OMSetRenderTargets(%d)", len(renderTargets)))
}

func (l *CommandList) ClearRenderTargetView(handle driver.CPUDescriptorHandle, color [4]float32) {
	l.record(fmt.Sprintf("ClearRenderTargetView(%s)", handle))
}

func (l *CommandList) ClearDepthStencilView(handle driver.CPUDescriptorHandle, depth float32, stencil uint8) {
	l.record(fmt.Sprintf("ClearDepthStencilView(%s)", handle))
}

// Commands lists what has been recorded since the last reset
func (l *CommandList) Commands() []string {
	return append([]string(nil), l.commands...)
}

// Executions is the number of times the GPU has finished running this list
func (l *CommandList) Executions() int {
	var executions int
	l.device.timeline.read(func() {
		executions = l.executions
	})
	return executions
}

func (l *CommandList) Release() {
	l.device.registry.release(l.id)
}
