// Package swapchain binds a window to the device manager's draw queue and owns the back
// buffers presented to it.
package swapchain

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/framegpu/gpucore/command"
	"github.com/framegpu/gpucore/descriptor"
	"github.com/framegpu/gpucore/device"
	"github.com/framegpu/gpucore/driver"
	"github.com/framegpu/gpucore/internal/utils"
	"github.com/gogpu/gputypes"
	"golang.org/x/exp/slog"
)

const (
	// DefaultBufferCount is the number of back buffers when Desc.BufferCount is zero
	DefaultBufferCount int = 2
	// DefaultFormat is the back buffer format when Desc.Format is undefined
	DefaultFormat = gputypes.TextureFormatRGBA8Unorm
)

// Desc describes the swapchain to create. It is valid to leave every field blank.
type Desc struct {
	Width  uint32
	Height uint32
	Format gputypes.TextureFormat
	// BufferCount defaults to DefaultBufferCount
	BufferCount int
	// Immediate presents without waiting for vertical blank. By default every present waits
	// for one.
	Immediate bool
}

func (d *Desc) applyDefaults() {
	if d.Format == gputypes.TextureFormatUndefined {
		d.Format = DefaultFormat
	}
	if d.BufferCount == 0 {
		d.BufferCount = DefaultBufferCount
	}
}

// BackBuffer is one swapchain image and the render target view written for it
type BackBuffer struct {
	Index    int
	Resource driver.Resource
	View     *descriptor.RenderTargetView
}

// Swapchain owns the driver swapchain and its back buffers. On creation it registers itself as
// the manager's presenter, so Manager.SubmitAndPresent flips it every frame.
type Swapchain struct {
	logger    *slog.Logger
	manager   *device.Manager
	swapChain driver.SwapChain
	desc      Desc
	buffers   []BackBuffer
}

var _ device.Presenter = &Swapchain{}

// New creates a swapchain for window on the manager's draw queue and a render target view for
// each of its back buffers. The manager must be initialized. Every failure is reported as
// device.ErrSwapchainFailure.
func New(logger *slog.Logger, manager *device.Manager, window uintptr, desc Desc) (*Swapchain, error) {
	if manager == nil || !manager.Initialized() {
		return nil, utils.WithKind(errors.Wrap(device.ErrNotInitialized, "cannot create a swapchain"), device.ErrSwapchainFailure)
	}
	if desc.BufferCount < 0 {
		return nil, errors.Wrapf(device.ErrSwapchainFailure, "buffer count cannot be negative, but %d was provided", desc.BufferCount)
	}
	desc.applyDefaults()

	logger.Debug("Swapchain::New",
		slog.Int("bufferCount", desc.BufferCount),
		slog.Int("width", int(desc.Width)),
		slog.Int("height", int(desc.Height)),
	)

	swapChain, err := manager.Factory().CreateSwapChain(manager.DrawQueue(), window, driver.SwapChainDesc{
		Width:       desc.Width,
		Height:      desc.Height,
		Format:      desc.Format,
		BufferCount: desc.BufferCount,
		SampleCount: 1,
	})
	if err != nil {
		return nil, logFailure(logger, utils.WithKind(errors.Wrap(err, "failed to create swapchain"), device.ErrSwapchainFailure))
	}

	s := &Swapchain{
		logger:    logger,
		manager:   manager,
		swapChain: swapChain,
		desc:      desc,
	}

	for index := 0; index < desc.BufferCount; index++ {
		err = s.createBackBuffer(index)
		if err != nil {
			s.release()
			return nil, logFailure(logger, err)
		}
	}

	manager.SetPresenter(s)
	return s, nil
}

func logFailure(logger *slog.Logger, err error) error {
	logger.LogAttrs(context.Background(), slog.LevelError, "failed to set up swapchain", slog.Any("error", err))
	return err
}

func (s *Swapchain) createBackBuffer(index int) error {
	resource, err := s.swapChain.Buffer(index)
	if err != nil {
		return utils.WithKind(errors.Wrapf(err, "failed to get back buffer %d", index), device.ErrSwapchainFailure)
	}

	view, err := s.manager.CreateRenderTargetView(resource, &driver.RenderTargetViewDesc{
		Format:    s.desc.Format,
		Dimension: driver.RTVDimensionTexture2D,
	})
	if err != nil {
		resource.Release()
		return utils.WithKind(errors.Wrapf(err, "failed to create render target view for back buffer %d", index), device.ErrSwapchainFailure)
	}

	s.buffers = append(s.buffers, BackBuffer{
		Index:    index,
		Resource: resource,
		View:     view,
	})
	return nil
}

func (s *Swapchain) Desc() Desc { return s.desc }
func (s *Swapchain) BufferCount() int { return len(s.buffers) }
func (s *Swapchain) Driver() driver.SwapChain { return s.swapChain }

// CurrentBackBufferIndex asks the swapchain which buffer is drawn to next
func (s *Swapchain) CurrentBackBufferIndex() int {
	return s.swapChain.CurrentBackBufferIndex()
}

func (s *Swapchain) CurrentBackBuffer() BackBuffer {
	return s.buffers[s.CurrentBackBufferIndex()]
}

func (s *Swapchain) BackBuffer(index int) (BackBuffer, error) {
	if index < 0 || index >= len(s.buffers) {
		return BackBuffer{}, errors.Newf("swapchain has %d back buffers, but buffer %d was requested", len(s.buffers), index)
	}
	return s.buffers[index], nil
}

// Present flips the current back buffer, waiting for vertical blank unless Desc.Immediate is set
func (s *Swapchain) Present() error {
	s.logger.Debug("Swapchain::Present")

	var syncInterval uint32 = 1
	if s.desc.Immediate {
		syncInterval = 0
	}
	return s.swapChain.Present(syncInterval, 0)
}

// RecordClear records the frame body for the current back buffer into ctx: a transition from
// present to render target, binding and clearing the buffer's view, and the transition back.
// ctx must be recording.
func (s *Swapchain) RecordClear(ctx *command.Context, color [4]float32) error {
	if ctx == nil || ctx.State() != command.StateRecording {
		return errors.Wrap(command.ErrInvalidState, "the frame body can only be recorded into a recording context")
	}

	backBuffer := s.CurrentBackBuffer()
	handle := backBuffer.View.CPUHandle()
	list := ctx.List()

	list.ResourceBarrier(driver.TransitionBarrier{
		Resource:    backBuffer.Resource,
		Subresource: driver.AllSubresources,
		Before:      driver.ResourceStatePresent,
		After:       driver.ResourceStateRenderTarget,
	})
	list.OMSetRenderTargets([]driver.CPUDescriptorHandle{handle}, nil)
	list.ClearRenderTargetView(handle, color)
	list.ResourceBarrier(driver.TransitionBarrier{
		Resource:    backBuffer.Resource,
		Subresource: driver.AllSubresources,
		Before:      driver.ResourceStateRenderTarget,
		After:       driver.ResourceStatePresent,
	})
	return nil
}

// DrawFrame runs one full frame on the manager's draw context: reset, record the clear, close,
// then submit and present.
func (s *Swapchain) DrawFrame(color [4]float32) error {
	s.logger.Debug("Swapchain::DrawFrame")

	ctx := s.manager.DrawContext()
	err := ctx.Reset()
	if err != nil {
		return err
	}

	err = s.RecordClear(ctx, color)
	if err != nil {
		return err
	}

	err = ctx.Close()
	if err != nil {
		return err
	}

	return s.manager.SubmitAndPresent()
}

func (s *Swapchain) release() {
	for _, buffer := range s.buffers {
		if buffer.View != nil && buffer.View.Heap().Reclaimable() {
			err := s.manager.FreeView(buffer.View)
			if err != nil {
				s.logger.LogAttrs(context.Background(), slog.LevelError, "failed to free back buffer view",
					slog.Int("index", buffer.Index),
					slog.Any("error", err))
			}
		}
		buffer.Resource.Release()
	}
	s.buffers = nil

	if s.swapChain != nil {
		s.swapChain.Release()
		s.swapChain = nil
	}
}

// Release stops presenting through the manager and releases the back buffers and the swapchain.
// The GPU must be done with them; after Manager.SubmitAndPresent returns it is.
func (s *Swapchain) Release() {
	s.logger.Debug("Swapchain::Release")

	if s.manager.Presenter() == device.Presenter(s) {
		s.manager.SetPresenter(nil)
	}
	s.release()
}
