package swapchain_test

import (
	"fmt"
	"io"
	"testing"

	"github.com/framegpu/gpucore/command"
	"github.com/framegpu/gpucore/descriptor"
	"github.com/framegpu/gpucore/device"
	"github.com/framegpu/gpucore/driver"
	"github.com/framegpu/gpucore/driver/sim"
	"github.com/framegpu/gpucore/swapchain"
	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

const testWindow uintptr = 0xc0ffee

func readyManager(t *testing.T, simOptions sim.Options, options device.Options) (*sim.Factory, *device.Manager, *slog.Logger) {
	factory := sim.NewFactory(simOptions)
	logger := slog.New(slog.NewJSONHandler(io.Discard))

	manager, err := device.New(logger, factory, options)
	require.NoError(t, err)
	require.NoError(t, manager.Initialize())

	return factory, manager, logger
}

func TestDoubleBufferedFrames(t *testing.T) {
	factory, manager, logger := readyManager(t, sim.Options{}, device.Options{})
	gpu := factory.LastDevice()

	chain, err := swapchain.New(logger, manager, testWindow, swapchain.Desc{Width: 800, Height: 600})
	require.NoError(t, err)
	require.Equal(t, 2, chain.BufferCount())
	require.Equal(t, gputypes.TextureFormatRGBA8Unorm, chain.Desc().Format)
	require.Equal(t, testWindow, chain.Driver().(*sim.SwapChain).Window())
	require.Equal(t, device.Presenter(chain), manager.Presenter())

	rtvHeap := manager.RTVHeap()
	for index := 0; index < chain.BufferCount(); index++ {
		buffer, err := chain.BackBuffer(index)
		require.NoError(t, err)
		require.Equal(t, index, buffer.View.Slot())
		require.Equal(t, rtvHeap.Start().Offset(index, rtvHeap.IncrementSize()), buffer.View.CPUHandle())
		require.Equal(t, driver.RTVDimensionTexture2D, buffer.View.Desc().Dimension)
		require.Equal(t, uint32(0), buffer.View.Desc().MipSlice)
		require.Equal(t, uint32(0), buffer.View.Desc().PlaneSlice)
		require.Equal(t, uint64(800), buffer.Resource.Desc().Width)
	}
	_, err = chain.BackBuffer(2)
	require.Error(t, err)

	for frame := 1; frame <= 4; frame++ {
		expectedIndex := (frame - 1) % 2
		require.Equal(t, expectedIndex, chain.CurrentBackBufferIndex())
		handle := chain.CurrentBackBuffer().View.CPUHandle()

		require.NoError(t, chain.DrawFrame([4]float32{0, 0.2, 0.4, 1}))
		require.Equal(t, uint64(frame), manager.RequestedFenceValue())
		require.Equal(t, uint64(frame), manager.CompletedFenceValue())
		require.Equal(t, command.StateSubmitted, manager.DrawContext().State())

		require.Equal(t, []string{
			"ResourceBarrier(0x0->0x4)",
			"OMSetRenderTargets(1)",
			fmt.Sprintf("ClearRenderTargetView(%s)", handle),
			"ResourceBarrier(0x4->0x0)",
		}, manager.DrawContext().List().(*sim.CommandList).Commands())
	}

	require.Equal(t, 4, chain.Driver().(*sim.SwapChain).PresentCount())
	require.Equal(t, 0, gpu.StrayDescriptorWrites())

	chain.Release()
	require.Nil(t, manager.Presenter())
	require.NoError(t, manager.Finalize())
	require.Equal(t, 0, factory.LiveObjectCount())
}

func TestTripleBuffering(t *testing.T) {
	_, manager, logger := readyManager(t, sim.Options{}, device.Options{})

	chain, err := swapchain.New(logger, manager, testWindow, swapchain.Desc{
		Width:       1280,
		Height:      720,
		Format:      gputypes.TextureFormatBGRA8Unorm,
		BufferCount: 3,
		Immediate:   true,
	})
	require.NoError(t, err)
	require.Equal(t, 3, chain.BufferCount())
	require.Equal(t, 3, manager.RTVHeap().Cursor())

	for frame := 0; frame < 3; frame++ {
		require.Equal(t, frame, chain.CurrentBackBufferIndex())
		require.NoError(t, chain.DrawFrame([4]float32{1, 1, 1, 1}))
	}
	require.Equal(t, 0, chain.CurrentBackBufferIndex())
}

func TestNewBeforeInitialize(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard))
	manager, err := device.New(logger, sim.NewFactory(sim.Options{}), device.Options{})
	require.NoError(t, err)

	_, err = swapchain.New(logger, manager, testWindow, swapchain.Desc{})
	require.ErrorIs(t, err, device.ErrSwapchainFailure)
	require.ErrorIs(t, err, device.ErrNotInitialized)
}

func TestNewSwapChainFailure(t *testing.T) {
	_, manager, logger := readyManager(t, sim.Options{Fail: sim.FailSwapChain}, device.Options{})

	_, err := swapchain.New(logger, manager, testWindow, swapchain.Desc{})
	require.ErrorIs(t, err, device.ErrSwapchainFailure)
	require.Nil(t, manager.Presenter())
}

func TestNewRTVHeapTooSmall(t *testing.T) {
	factory, manager, logger := readyManager(t, sim.Options{}, device.Options{RTVHeapCapacity: 1})

	_, err := swapchain.New(logger, manager, testWindow, swapchain.Desc{})
	require.ErrorIs(t, err, device.ErrSwapchainFailure)
	require.ErrorIs(t, err, descriptor.ErrHeapExhausted)
	require.Nil(t, manager.Presenter())

	objects, err := factory.LastDevice().ReportLiveObjects()
	require.NoError(t, err)
	for _, object := range objects {
		require.NotEqual(t, "BackBuffer", object.Kind)
		require.NotEqual(t, "SwapChain", object.Kind)
	}
}

func TestRecordClearNeedsRecordingContext(t *testing.T) {
	_, manager, logger := readyManager(t, sim.Options{}, device.Options{})

	chain, err := swapchain.New(logger, manager, testWindow, swapchain.Desc{Width: 64, Height: 64})
	require.NoError(t, err)

	err = chain.RecordClear(manager.DrawContext(), [4]float32{})
	require.ErrorIs(t, err, command.ErrInvalidState)
	require.ErrorIs(t, chain.RecordClear(nil, [4]float32{}), command.ErrInvalidState)
}

func TestPresentFailure(t *testing.T) {
	_, manager, logger := readyManager(t, sim.Options{Fail: sim.FailPresent}, device.Options{})

	chain, err := swapchain.New(logger, manager, testWindow, swapchain.Desc{Width: 64, Height: 64})
	require.NoError(t, err)

	err = chain.DrawFrame([4]float32{})
	require.ErrorIs(t, err, device.ErrSubmissionFailed)
	require.Equal(t, uint64(1), manager.CompletedFenceValue())
}
