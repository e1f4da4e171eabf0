package command

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/framegpu/gpucore/driver"
	"golang.org/x/exp/slog"
)

var (
	// ErrContextBusy is returned by Reset while the GPU has not finished the last submission
	ErrContextBusy = errors.New("command context is still executing on the GPU")
	// ErrInvalidState is returned when an operation is not allowed in the context's current state
	ErrInvalidState = errors.New("command context is in the wrong state")
	// ErrContextReleased is returned by every operation after Release
	ErrContextReleased = errors.New("command context has been released")
)

// State is the position of a Context in its per-frame cycle
type State uint32

const (
	// StateRecording means the list is open and accepts commands
	StateRecording State = iota
	// StateClosed means the list is closed and can be submitted
	StateClosed
	// StateSubmitted means the list was handed to a queue; Reset must wait for the fence
	StateSubmitted
)

var stateMapping = map[State]string{
	StateRecording: "Recording",
	StateClosed:    "Closed",
	StateSubmitted: "Submitted",
}

func (s State) String() string {
	return stateMapping[s]
}

// Context pairs one command allocator with one command list of the same workload category.
// The list is closed as soon as it is created, so a new Context starts in StateClosed and must
// be Reset before recording.
//
// A Context is not safe for concurrent use.
type Context struct {
	logger   *slog.Logger
	listType driver.CommandListType

	allocator driver.CommandAllocator
	list      driver.CommandList
	state     State

	fence          driver.Fence
	lastSubmission uint64
}

// New creates the allocator and list for listType on device. When either cannot be created,
// New returns an invalid Context alongside the error, so IsValid can be checked either way.
func New(logger *slog.Logger, device driver.Device, listType driver.CommandListType) (*Context, error) {
	logger.Debug("Context::New", slog.String("type", listType.String()))

	c := &Context{
		logger:   logger,
		listType: listType,
		state:    StateClosed,
	}

	if device == nil {
		return c, errors.New("no device was provided")
	}

	var err error
	c.allocator, err = device.CreateCommandAllocator(listType)
	if err != nil {
		c.logError("failed to create command allocator", err)
		return c, errors.Wrap(err, "failed to create command allocator")
	}

	c.list, err = device.CreateCommandList(listType, c.allocator)
	if err != nil {
		c.logError("failed to create command list", err)
		c.allocator.Release()
		c.allocator = nil
		return c, errors.Wrap(err, "failed to create command list")
	}

	err = c.list.Close()
	if err != nil {
		c.logError("failed to close new command list", err)
		c.release()
		return c, errors.Wrap(err, "failed to close new command list")
	}

	return c, nil
}

func (c *Context) logError(msg string, err error) {
	c.logger.LogAttrs(context.Background(), slog.LevelError, msg,
		slog.String("type", c.listType.String()),
		slog.Any("error", err))
}

// IsValid reports whether both the allocator and the list exist
func (c *Context) IsValid() bool {
	return c != nil && c.allocator != nil && c.list != nil
}

func (c *Context) Type() driver.CommandListType { return c.listType }
func (c *Context) Allocator() driver.CommandAllocator { return c.allocator }
func (c *Context) List() driver.CommandList { return c.list }
func (c *Context) State() State { return c.state }

// LastSubmission is the fence value signaled after the most recent submission, or 0
func (c *Context) LastSubmission() uint64 {
	return c.lastSubmission
}

// Close ends recording so the list can be submitted
func (c *Context) Close() error {
	c.logger.Debug("Context::Close")

	if !c.IsValid() {
		return ErrContextReleased
	}
	if c.state != StateRecording {
		return errors.Wrapf(ErrInvalidState, "cannot close a context in state %s", c.state)
	}

	err := c.list.Close()
	if err != nil {
		return errors.Wrap(err, "failed to close command list")
	}

	c.state = StateClosed
	return nil
}

// Ready reports whether the GPU has finished the last submission, so Reset may proceed
func (c *Context) Ready() bool {
	if c.state != StateSubmitted || c.fence == nil {
		return true
	}
	return c.fence.CompletedValue() >= c.lastSubmission
}

// Reset reclaims the allocator and reopens the list for recording. It fails with ErrContextBusy
// when the fence has not yet reached the value signaled after the last submission.
func (c *Context) Reset() error {
	c.logger.Debug("Context::Reset")

	if !c.IsValid() {
		return ErrContextReleased
	}
	if c.state == StateRecording {
		return errors.Wrap(ErrInvalidState, "cannot reset a context that is recording")
	}
	if !c.Ready() {
		return errors.Wrapf(ErrContextBusy, "fence is at %d, the last submission signals %d",
			c.fence.CompletedValue(), c.lastSubmission)
	}

	err := c.allocator.Reset()
	if err != nil {
		return errors.Wrap(err, "failed to reset command allocator")
	}

	err = c.list.Reset(c.allocator)
	if err != nil {
		return errors.Wrap(err, "failed to reset command list")
	}

	c.state = StateRecording
	return nil
}

// CanSubmit reports whether the list is closed and may be handed to a queue. A list that was
// already submitted may be submitted again.
func (c *Context) CanSubmit() bool {
	return c.IsValid() && c.state != StateRecording
}

// MarkSubmitted records that the list was executed and that fence will reach value once the
// GPU is done with it
func (c *Context) MarkSubmitted(fence driver.Fence, value uint64) {
	c.fence = fence
	c.lastSubmission = value
	c.state = StateSubmitted
}

func (c *Context) release() {
	if c.list != nil {
		c.list.Release()
		c.list = nil
	}
	if c.allocator != nil {
		c.allocator.Release()
		c.allocator = nil
	}
}

// Release destroys the list and allocator. The caller must make sure the GPU is done with them.
func (c *Context) Release() {
	c.logger.Debug("Context::Release")

	c.release()
	c.fence = nil
}
