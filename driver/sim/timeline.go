package sim

import (
	"sync"
)

// timeline is the simulated GPU. Operations run in submission order, either as they are
// submitted or when stepped. All GPU-visible state (fence values, in-flight counts) is
// guarded by its mutex.
type timeline struct {
	mutex   sync.Mutex
	manual  bool
	pending []func()
	changed chan struct{}
}

func newTimeline(manual bool) *timeline {
	return &timeline{
		manual:  manual,
		changed: make(chan struct{}),
	}
}

// submit queues op and runs it right away unless the timeline is manual
func (t *timeline) submit(op func()) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.manual {
		t.pending = append(t.pending, op)
		return
	}

	op()
	t.notify()
}

// notify wakes every waiter; callers hold the mutex
func (t *timeline) notify() {
	close(t.changed)
	t.changed = make(chan struct{})
}

func (t *timeline) step() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if len(t.pending) == 0 {
		return false
	}

	op := t.pending[0]
	t.pending = t.pending[1:]
	op()
	t.notify()
	return true
}

func (t *timeline) flush() int {
	count := 0
	for t.step() {
		count++
	}
	return count
}

func (t *timeline) pendingCount() int {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return len(t.pending)
}

// read runs fn under the timeline lock and returns the channel that closes on the next change
func (t *timeline) read(fn func()) <-chan struct{} {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	fn()
	return t.changed
}
