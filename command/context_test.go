package command_test

import (
	"io"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/framegpu/gpucore/command"
	"github.com/framegpu/gpucore/driver"
	mock_driver "github.com/framegpu/gpucore/driver/mocks"
	"github.com/framegpu/gpucore/driver/sim"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/exp/slog"
)

type contextSetup struct {
	device *sim.Device
	queue  driver.CommandQueue
	fence  driver.Fence
	ctx    *command.Context
}

func readyContext(t *testing.T, options sim.Options) contextSetup {
	factory := sim.NewFactory(options)
	adapter, err := factory.EnumAdapter(0)
	require.NoError(t, err)
	device, err := adapter.CreateDevice(driver.FeatureLevel12_0)
	require.NoError(t, err)

	queue, err := device.CreateCommandQueue(driver.CommandQueueDesc{Type: driver.CommandListTypeDirect})
	require.NoError(t, err)
	fence, err := device.CreateFence(0)
	require.NoError(t, err)

	logger := slog.New(slog.NewJSONHandler(io.Discard))
	ctx, err := command.New(logger, device, driver.CommandListTypeDirect)
	require.NoError(t, err)
	require.True(t, ctx.IsValid())

	return contextSetup{
		device: device.(*sim.Device),
		queue:  queue,
		fence:  fence,
		ctx:    ctx,
	}
}

func submit(t *testing.T, setup contextSetup, value uint64) {
	require.True(t, setup.ctx.CanSubmit())
	require.NoError(t, setup.queue.ExecuteCommandLists(setup.ctx.List()))
	require.NoError(t, setup.queue.Signal(setup.fence, value))
	setup.ctx.MarkSubmitted(setup.fence, value)
}

func TestNewContextStartsClosed(t *testing.T) {
	setup := readyContext(t, sim.Options{})

	require.Equal(t, command.StateClosed, setup.ctx.State())
	require.Equal(t, driver.CommandListTypeDirect, setup.ctx.Type())
	require.True(t, setup.ctx.CanSubmit())
	require.True(t, setup.ctx.Ready())

	err := setup.ctx.Close()
	require.ErrorIs(t, err, command.ErrInvalidState)
}

func TestContextCycle(t *testing.T) {
	setup := readyContext(t, sim.Options{})

	for frame := uint64(1); frame <= 3; frame++ {
		require.NoError(t, setup.ctx.Reset())
		require.Equal(t, command.StateRecording, setup.ctx.State())
		require.False(t, setup.ctx.CanSubmit())

		setup.ctx.List().ClearRenderTargetView(driver.CPUDescriptorHandle{Ptr: 0x10000}, [4]float32{1, 0, 0, 1})
		require.NoError(t, setup.ctx.Close())

		submit(t, setup, frame)
		require.Equal(t, command.StateSubmitted, setup.ctx.State())
		require.Equal(t, frame, setup.ctx.LastSubmission())
	}

	require.Equal(t, 3, setup.ctx.List().(*sim.CommandList).Executions())
	require.Equal(t, 3, setup.ctx.Allocator().(*sim.CommandAllocator).ResetCount())
}

func TestResetBeforeFenceCompletes(t *testing.T) {
	setup := readyContext(t, sim.Options{Manual: true})

	submit(t, setup, 1)
	require.False(t, setup.ctx.Ready())

	err := setup.ctx.Reset()
	require.ErrorIs(t, err, command.ErrContextBusy)
	require.Equal(t, command.StateSubmitted, setup.ctx.State())
	require.Equal(t, 0, setup.ctx.Allocator().(*sim.CommandAllocator).ResetCount())

	// execution finished, signal still pending
	require.True(t, setup.device.Step())
	require.ErrorIs(t, setup.ctx.Reset(), command.ErrContextBusy)

	require.True(t, setup.device.Step())
	require.True(t, setup.ctx.Ready())
	require.NoError(t, setup.ctx.Reset())
	require.Equal(t, command.StateRecording, setup.ctx.State())
}

func TestResetWhileRecording(t *testing.T) {
	setup := readyContext(t, sim.Options{})

	require.NoError(t, setup.ctx.Reset())
	err := setup.ctx.Reset()
	require.ErrorIs(t, err, command.ErrInvalidState)
}

func TestContextRelease(t *testing.T) {
	setup := readyContext(t, sim.Options{})

	setup.ctx.Release()
	require.False(t, setup.ctx.IsValid())
	require.False(t, setup.ctx.CanSubmit())
	require.ErrorIs(t, setup.ctx.Reset(), command.ErrContextReleased)
	require.ErrorIs(t, setup.ctx.Close(), command.ErrContextReleased)
}

func TestNewContextFailures(t *testing.T) {
	testCases := map[string]struct {
		Fail sim.Failure
	}{
		"Allocator": {Fail: sim.FailCommandAllocator},
		"List":      {Fail: sim.FailCommandList},
	}

	for name, testCase := range testCases {
		t.Run(name, func(t *testing.T) {
			factory := sim.NewFactory(sim.Options{Fail: testCase.Fail})
			adapter, err := factory.EnumAdapter(0)
			require.NoError(t, err)
			device, err := adapter.CreateDevice(driver.FeatureLevel11_0)
			require.NoError(t, err)

			logger := slog.New(slog.NewJSONHandler(io.Discard))
			ctx, err := command.New(logger, device, driver.CommandListTypeDirect)
			require.Error(t, err)
			require.NotNil(t, ctx)
			require.False(t, ctx.IsValid())

			objects, err := device.(*sim.Device).ReportLiveObjects()
			require.NoError(t, err)
			require.Empty(t, objects)
		})
	}
}

func TestNewContextCloseFailure(t *testing.T) {
	ctrl := gomock.NewController(t)

	device := mock_driver.NewMockDevice(ctrl)
	allocator := mock_driver.NewMockCommandAllocator(ctrl)
	list := mock_driver.NewMockCommandList(ctrl)

	device.EXPECT().CreateCommandAllocator(driver.CommandListTypeCompute).Return(allocator, nil)
	device.EXPECT().CreateCommandList(driver.CommandListTypeCompute, allocator).Return(list, nil)
	list.EXPECT().Close().Return(errors.New("device removed"))
	list.EXPECT().Release()
	allocator.EXPECT().Release()

	logger := slog.New(slog.NewJSONHandler(io.Discard))
	ctx, err := command.New(logger, device, driver.CommandListTypeCompute)
	require.ErrorContains(t, err, "device removed")
	require.False(t, ctx.IsValid())
}

func TestResetSurfacesDriverErrors(t *testing.T) {
	ctrl := gomock.NewController(t)

	device := mock_driver.NewMockDevice(ctrl)
	allocator := mock_driver.NewMockCommandAllocator(ctrl)
	list := mock_driver.NewMockCommandList(ctrl)

	device.EXPECT().CreateCommandAllocator(driver.CommandListTypeDirect).Return(allocator, nil)
	device.EXPECT().CreateCommandList(driver.CommandListTypeDirect, allocator).Return(list, nil)
	list.EXPECT().Close().Return(nil)

	logger := slog.New(slog.NewJSONHandler(io.Discard))
	ctx, err := command.New(logger, device, driver.CommandListTypeDirect)
	require.NoError(t, err)

	allocator.EXPECT().Reset().Return(errors.New("allocator in use"))
	err = ctx.Reset()
	require.ErrorContains(t, err, "allocator in use")
	require.Equal(t, command.StateClosed, ctx.State())

	allocator.EXPECT().Reset().Return(nil)
	list.EXPECT().Reset(allocator).Return(nil)
	require.NoError(t, ctx.Reset())
	require.Equal(t, command.StateRecording, ctx.State())
}
