package vulkan

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/framegpu/gpucore/driver"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"golang.org/x/exp/slices"
)

type CommandQueue struct {
	device   *Device
	id       uint64
	queue    core1_0.Queue
	listType driver.CommandListType
}

var _ driver.CommandQueue = &CommandQueue{}

func (q *CommandQueue) Type() driver.CommandListType { return q.listType }

// ExecuteCommandLists submits the lists in one batch. Each list's allocator keeps the batch's
// fence so it refuses to reset until the batch is done.
func (q *CommandQueue) ExecuteCommandLists(lists ...driver.CommandList) error {
	buffers := make([]core1_0.CommandBuffer, 0, len(lists))
	allocators := make([]*CommandAllocator, 0, len(lists))
	for _, list := range lists {
		vkList, ok := list.(*CommandList)
		if !ok || vkList == nil {
			return errors.New("only vulkan command lists can be executed on a vulkan queue")
		}
		if vkList.recording {
			return errors.New("command lists must be closed before they are executed")
		}
		buffers = append(buffers, vkList.buffer)
		allocators = append(allocators, vkList.allocator)
	}

	batchFence, _, err := q.device.device.CreateFence(nil, core1_0.FenceCreateInfo{})
	if err != nil {
		return errors.Wrap(err, "failed to create submission fence")
	}

	_, err = q.queue.Submit(batchFence, []core1_0.SubmitInfo{
		{CommandBuffers: buffers},
	})
	if err != nil {
		batchFence.Destroy(nil)
		return errors.Wrap(err, "failed to submit command buffers")
	}

	batch := &submission{fence: batchFence, refs: len(allocators)}
	for _, allocator := range allocators {
		allocator.retire()
		allocator.inFlight = batch
	}
	return nil
}

// Signal submits an empty batch whose fence marks value as reached once it completes
func (q *CommandQueue) Signal(fence driver.Fence, value uint64) error {
	vkFence, ok := fence.(*Fence)
	if !ok || vkFence == nil {
		return errors.New("only vulkan fences can be signaled on a vulkan queue")
	}

	signal, _, err := q.device.device.CreateFence(nil, core1_0.FenceCreateInfo{})
	if err != nil {
		return errors.Wrap(err, "failed to create signal fence")
	}

	_, err = q.queue.Submit(signal, nil)
	if err != nil {
		signal.Destroy(nil)
		return errors.Wrapf(err, "failed to signal fence to %d", value)
	}

	vkFence.enqueue(value, signal)
	return nil
}

func (q *CommandQueue) Release() {
	q.device.untrack(q.id)
}

// submission is a batch fence shared by every allocator whose lists were in the batch
type submission struct {
	fence core1_0.Fence
	refs  int
}

func (s *submission) done() bool {
	res, err := s.fence.Status()
	return err == nil && res == core1_0.VKSuccess
}

func (s *submission) release() {
	s.refs--
	if s.refs == 0 {
		s.fence.Destroy(nil)
	}
}

type pendingSignal struct {
	value uint64
	fence core1_0.Fence
}

// Fence emulates a 64-bit timeline over binary Vulkan fences: every Signal queues one fence,
// and the completed value advances past each one the GPU has finished, in submission order.
type Fence struct {
	device *Device
	id     uint64

	mutex     sync.Mutex
	completed uint64
	pending   []pendingSignal
}

var _ driver.Fence = &Fence{}

func (f *Fence) enqueue(value uint64, fence core1_0.Fence) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.pending = append(f.pending, pendingSignal{value: value, fence: fence})
}

// poll retires finished signals; callers hold the mutex
func (f *Fence) poll() {
	for len(f.pending) > 0 {
		signal := f.pending[0]
		res, err := signal.fence.Status()
		if err != nil || res != core1_0.VKSuccess {
			return
		}

		if signal.value > f.completed {
			f.completed = signal.value
		}
		signal.fence.Destroy(nil)
		f.pending = f.pending[1:]
	}
}

func (f *Fence) CompletedValue() uint64 {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.poll()
	return f.completed
}

func (f *Fence) Wait(value uint64, timeout time.Duration) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.poll()
	if f.completed >= value {
		return nil
	}

	index := slices.IndexFunc(f.pending, func(signal pendingSignal) bool {
		return signal.value >= value
	})
	if index < 0 {
		return errors.Newf("fence is at %d and no signal for %d has been submitted", f.completed, value)
	}

	if timeout < 0 {
		timeout = common.NoTimeout
	}
	res, err := f.device.device.WaitForFences(true, timeout, []core1_0.Fence{f.pending[index].fence})
	if res == core1_0.VKTimeout {
		return errors.Wrapf(driver.ErrWaitTimeout, "waiting for %d after %s", value, timeout)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to wait for fence value %d", value)
	}

	f.poll()
	return nil
}

func (f *Fence) Release() {
	f.mutex.Lock()
	for _, signal := range f.pending {
		signal.fence.Destroy(nil)
	}
	f.pending = nil
	f.mutex.Unlock()

	f.device.untrack(f.id)
}
