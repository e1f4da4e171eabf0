package device

import (
	"context"
	"runtime"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/framegpu/gpucore/command"
	"github.com/framegpu/gpucore/driver"
	"github.com/framegpu/gpucore/internal/utils"
	"golang.org/x/exp/slog"
)

// SubmitAndPresent executes the draw context's list on the draw queue, presents through the
// registered Presenter with a sync interval of one, signals the draw fence with the next value,
// and waits until the GPU reaches it. When it returns nil, every piece of work submitted so far
// has finished.
//
// A failed present is still followed by the signal and the wait, so the fence stays consistent;
// the present error is returned afterward.
func (m *Manager) SubmitAndPresent() error {
	m.logger.Debug("Manager::SubmitAndPresent")

	if !m.initialized {
		return ErrNotInitialized
	}
	if !m.drawContext.CanSubmit() {
		return m.logSubmitError(utils.WithKind(
			errors.Wrapf(command.ErrInvalidState, "draw context is %s", m.drawContext.State()),
			ErrSubmissionFailed))
	}

	err := m.drawQueue.ExecuteCommandLists(m.drawContext.List())
	if err != nil {
		return m.logSubmitError(utils.WithKind(errors.Wrap(err, "failed to execute draw list"), ErrSubmissionFailed))
	}

	var presentErr error
	if m.presenter != nil {
		presentErr = m.presenter.Present()
	}

	value := m.drawFenceValue + 1
	err = m.drawQueue.Signal(m.drawFence, value)
	if err != nil {
		return m.logSubmitError(utils.WithKind(errors.Wrapf(err, "failed to signal fence value %d", value), ErrSubmissionFailed))
	}
	m.drawFenceValue = value
	m.drawContext.MarkSubmitted(m.drawFence, value)

	err = m.WaitForFence(m.drawFence, value)
	if err != nil {
		return m.logSubmitError(err)
	}

	if presentErr != nil {
		return m.logSubmitError(utils.WithKind(errors.Wrap(presentErr, "failed to present"), ErrSubmissionFailed))
	}
	return nil
}

// DrawStart is the frame entry point of the render loop. It is identical to SubmitAndPresent.
func (m *Manager) DrawStart() error {
	return m.SubmitAndPresent()
}

func (m *Manager) logSubmitError(err error) error {
	m.logger.LogAttrs(context.Background(), slog.LevelError, "failed to submit frame", slog.Any("error", err))
	return err
}

// WaitForFence returns once fence's completed value is at least value. It returns immediately
// when that is already true. Waits block on a completion event unless CreateSpinWait was
// requested, and give up with ErrFenceTimeout after Options.FenceWaitTimeout when one is set.
func (m *Manager) WaitForFence(fence driver.Fence, value uint64) error {
	if fence == nil {
		return errors.New("attempted to wait on a nil fence")
	}
	if fence.CompletedValue() >= value {
		return nil
	}

	timeout := driver.InfiniteTimeout
	if m.options.FenceWaitTimeout > 0 {
		timeout = m.options.FenceWaitTimeout
	}

	if m.options.Flags&CreateSpinWait != 0 {
		return m.spinWait(fence, value, timeout)
	}

	err := fence.Wait(value, timeout)
	if errors.Is(err, driver.ErrWaitTimeout) {
		return utils.WithKind(err, ErrFenceTimeout)
	} else if err != nil {
		return errors.Wrapf(err, "failed to wait for fence value %d", value)
	}
	return nil
}

func (m *Manager) spinWait(fence driver.Fence, value uint64, timeout time.Duration) error {
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}

	for fence.CompletedValue() < value {
		if !deadline.IsZero() && time.Now().After(deadline) {
			return errors.Wrapf(ErrFenceTimeout, "fence is at %d after %s, waiting for %d",
				fence.CompletedValue(), timeout, value)
		}
		runtime.Gosched()
	}
	return nil
}
