package sim

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/framegpu/gpucore/driver"
)

type CommandQueue struct {
	device   *Device
	id       uint64
	listType driver.CommandListType
}

var _ driver.CommandQueue = &CommandQueue{}

func (q *CommandQueue) Type() driver.CommandListType { return q.listType }

func (q *CommandQueue) ExecuteCommandLists(lists ...driver.CommandList) error {
	if q.device.fails(FailExecute) {
		return errors.New("simulated command list execution failure")
	}

	simLists := make([]*CommandList, 0, len(lists))
	for _, list := range lists {
		simList, ok := list.(*CommandList)
		if !ok || simList == nil {
			return errors.New("only simulated command lists can be executed")
		}
		if simList.isRecording() {
			return errors.New("command list must be closed before it is executed")
		}
		simLists = append(simLists, simList)
	}

	for _, list := range simLists {
		list := list
		allocator := list.allocator

		q.device.timeline.read(func() {
			allocator.inFlight++
		})
		q.device.timeline.submit(func() {
			list.executions++
			allocator.inFlight--
		})
	}

	return nil
}

func (q *CommandQueue) Signal(fence driver.Fence, value uint64) error {
	if q.device.fails(FailSignal) {
		return errors.New("simulated fence signal failure")
	}

	simFence, ok := fence.(*Fence)
	if !ok || simFence == nil {
		return errors.New("only simulated fences can be signaled")
	}

	// completed values only move forward
	q.device.timeline.submit(func() {
		if value > simFence.completed {
			simFence.completed = value
		}
	})
	return nil
}

func (q *CommandQueue) Release() {
	q.device.registry.release(q.id)
}

type Fence struct {
	device *Device
	id     uint64
	// completed is GPU state, guarded by the timeline mutex
	completed uint64
}

var _ driver.Fence = &Fence{}

func (f *Fence) CompletedValue() uint64 {
	var completed uint64
	f.device.timeline.read(func() {
		completed = f.completed
	})
	return completed
}

func (f *Fence) Wait(value uint64, timeout time.Duration) error {
	var deadline <-chan time.Time
	if timeout >= 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		var completed uint64
		changed := f.device.timeline.read(func() {
			completed = f.completed
		})
		if completed >= value {
			return nil
		}

		select {
		case <-changed:
		case <-deadline:
			return errors.Wrapf(driver.ErrWaitTimeout, "fence is at %d, waiting for %d", completed, value)
		}
	}
}

func (f *Fence) Release() {
	f.device.registry.release(f.id)
}
