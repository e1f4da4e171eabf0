package device_test

import (
	"io"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/framegpu/gpucore/command"
	"github.com/framegpu/gpucore/device"
	"github.com/framegpu/gpucore/driver"
	mock_driver "github.com/framegpu/gpucore/driver/mocks"
	"github.com/framegpu/gpucore/driver/sim"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/exp/slog"
)

func readyManager(t *testing.T, simOptions sim.Options, options device.Options) (*sim.Factory, *device.Manager) {
	factory := sim.NewFactory(simOptions)

	logger := slog.New(slog.NewJSONHandler(io.Discard))
	manager, err := device.New(logger, factory, options)
	require.NoError(t, err)

	return factory, manager
}

func initializedManager(t *testing.T, simOptions sim.Options, options device.Options) (*sim.Factory, *device.Manager) {
	factory, manager := readyManager(t, simOptions, options)
	require.NoError(t, manager.Initialize())
	return factory, manager
}

func TestInitialize(t *testing.T) {
	factory, manager := initializedManager(t, sim.Options{}, device.Options{})

	require.True(t, manager.Initialized())
	require.Equal(t, driver.FeatureLevel12_1, manager.FeatureLevel())
	require.Equal(t, "Simulated Adapter", manager.AdapterDesc().Description)
	require.Equal(t, uint64(0), manager.RequestedFenceValue())
	require.Equal(t, uint64(0), manager.CompletedFenceValue())
	require.Equal(t, command.StateClosed, manager.DrawContext().State())
	require.Equal(t, driver.CommandListTypeDirect, manager.DrawQueue().Type())

	require.Equal(t, device.DefaultHeapCapacity, manager.RTVHeap().Capacity())
	require.Equal(t, device.DefaultHeapCapacity, manager.DSVHeap().Capacity())
	require.Equal(t, device.DefaultHeapCapacity, manager.CSUHeap().Capacity())
	require.Equal(t, driver.DescriptorHeapTypeCBVSRVUAV, manager.CSUHeap().Type())

	require.Error(t, manager.Initialize(), "a manager initializes once")

	require.NoError(t, manager.Finalize())
	require.Equal(t, 0, factory.LiveObjectCount())

	require.ErrorIs(t, manager.Initialize(), device.ErrFinalized)
	require.NoError(t, manager.Finalize())
}

func TestHeapCapacityOverride(t *testing.T) {
	_, manager := initializedManager(t, sim.Options{}, device.Options{
		HeapCapacity:    16,
		DSVHeapCapacity: 2,
	})

	require.Equal(t, 16, manager.RTVHeap().Capacity())
	require.Equal(t, 2, manager.DSVHeap().Capacity())
	require.Equal(t, 16, manager.CSUHeap().Capacity())
}

func TestNewValidatesOptions(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard))

	_, err := device.New(logger, sim.NewFactory(sim.Options{}), device.Options{HeapCapacity: -1})
	require.Error(t, err)

	_, err = device.New(logger, sim.NewFactory(sim.Options{}), device.Options{FenceWaitTimeout: -1})
	require.Error(t, err)

	_, err = device.New(logger, nil, device.Options{})
	require.Error(t, err)
}

func TestAdapterSelection(t *testing.T) {
	testCases := map[string]struct {
		Adapters []sim.AdapterConfig
		Vendors  []string
		Expected string
	}{
		"FirstWhenNoVendorMatches": {
			Adapters: []sim.AdapterConfig{
				{Description: "Microsoft Basic Render Driver", MaxFeatureLevel: driver.FeatureLevel12_1},
				{Description: "Intel(R) UHD Graphics 770", MaxFeatureLevel: driver.FeatureLevel12_1},
			},
			Expected: "Microsoft Basic Render Driver",
		},
		"NVIDIAAfterIntegrated": {
			Adapters: []sim.AdapterConfig{
				{Description: "Intel(R) UHD Graphics 770", MaxFeatureLevel: driver.FeatureLevel12_1},
				{Description: "NVIDIA GeForce RTX 4070", MaxFeatureLevel: driver.FeatureLevel12_1},
			},
			Expected: "NVIDIA GeForce RTX 4070",
		},
		"FirstPreferredWins": {
			Adapters: []sim.AdapterConfig{
				{Description: "Intel(R) UHD Graphics 770", MaxFeatureLevel: driver.FeatureLevel12_1},
				{Description: "AMD Radeon RX 7800 XT", MaxFeatureLevel: driver.FeatureLevel12_1},
				{Description: "NVIDIA GeForce RTX 4070", MaxFeatureLevel: driver.FeatureLevel12_1},
			},
			Expected: "AMD Radeon RX 7800 XT",
		},
		"MatchIsCaseSensitive": {
			Adapters: []sim.AdapterConfig{
				{Description: "Software Rasterizer", MaxFeatureLevel: driver.FeatureLevel12_1},
				{Description: "nvidia lowercase", MaxFeatureLevel: driver.FeatureLevel12_1},
			},
			Expected: "Software Rasterizer",
		},
		"CustomVendors": {
			Adapters: []sim.AdapterConfig{
				{Description: "NVIDIA GeForce RTX 4070", MaxFeatureLevel: driver.FeatureLevel12_1},
				{Description: "Intel(R) Arc A770", MaxFeatureLevel: driver.FeatureLevel12_1},
			},
			Vendors:  []string{"Intel"},
			Expected: "Intel(R) Arc A770",
		},
	}

	for name, testCase := range testCases {
		t.Run(name, func(t *testing.T) {
			factory, manager := initializedManager(t,
				sim.Options{Adapters: testCase.Adapters},
				device.Options{PreferredVendors: testCase.Vendors},
			)

			require.Equal(t, testCase.Expected, manager.AdapterDesc().Description)
			require.NoError(t, manager.Finalize())
			require.Equal(t, 0, factory.LiveObjectCount())
		})
	}
}

func TestFeatureLevelSelection(t *testing.T) {
	_, manager := initializedManager(t, sim.Options{
		Adapters: []sim.AdapterConfig{{Description: "Old GPU", MaxFeatureLevel: driver.FeatureLevel11_1}},
	}, device.Options{})

	require.Equal(t, driver.FeatureLevel11_1, manager.FeatureLevel())
}

func TestMinimumFeatureLevel(t *testing.T) {
	factory, manager := readyManager(t, sim.Options{
		Adapters: []sim.AdapterConfig{{Description: "Old GPU", MaxFeatureLevel: driver.FeatureLevel11_1}},
	}, device.Options{})

	manager.SetMinimumFeatureLevel(driver.FeatureLevel(0x9100))
	require.Equal(t, driver.FeatureLevel11_0, manager.MinimumFeatureLevel())

	manager.SetMinimumFeatureLevel(driver.FeatureLevel12_0)
	require.Equal(t, driver.FeatureLevel12_0, manager.MinimumFeatureLevel())

	err := manager.Initialize()
	require.ErrorIs(t, err, device.ErrDeviceCreationFailed)
	require.Nil(t, manager.Device())
	require.Nil(t, manager.DrawQueue())

	require.NoError(t, manager.Finalize())
	require.Equal(t, 0, factory.LiveObjectCount())
}

func TestMinimumFeatureLevelIgnoredAfterDevice(t *testing.T) {
	_, manager := initializedManager(t, sim.Options{}, device.Options{
		MinimumFeatureLevel: driver.FeatureLevel11_1,
	})
	require.Equal(t, driver.FeatureLevel11_1, manager.MinimumFeatureLevel())

	manager.SetMinimumFeatureLevel(driver.FeatureLevel12_1)
	require.Equal(t, driver.FeatureLevel11_1, manager.MinimumFeatureLevel())
}

func TestInitializeShortCircuits(t *testing.T) {
	testCases := map[string]struct {
		Fail     sim.Failure
		Expected error
		Live     []string
	}{
		"Queue": {
			Fail:     sim.FailCommandQueue,
			Expected: device.ErrQueueOrFenceCreationFailed,
		},
		"Fence": {
			Fail:     sim.FailFence,
			Expected: device.ErrQueueOrFenceCreationFailed,
			Live:     []string{"CommandQueue"},
		},
		"Context": {
			Fail:     sim.FailCommandAllocator,
			Expected: device.ErrContextInvalid,
			Live:     []string{"CommandQueue", "Fence"},
		},
		"Heaps": {
			Fail:     sim.FailDescriptorHeap,
			Expected: device.ErrHeapCreationFailed,
			Live:     []string{"CommandQueue", "Fence", "CommandAllocator", "CommandList"},
		},
	}

	for name, testCase := range testCases {
		t.Run(name, func(t *testing.T) {
			factory, manager := readyManager(t, sim.Options{Fail: testCase.Fail}, device.Options{})

			err := manager.Initialize()
			require.ErrorIs(t, err, testCase.Expected)
			require.False(t, manager.Initialized())

			objects, err := factory.LastDevice().ReportLiveObjects()
			require.NoError(t, err)
			kinds := make([]string, 0, len(objects))
			for _, object := range objects {
				kinds = append(kinds, object.Kind)
			}
			require.Equal(t, len(testCase.Live), len(kinds))
			if len(testCase.Live) > 0 {
				require.Equal(t, testCase.Live, kinds)
			}

			require.ErrorIs(t, manager.SubmitAndPresent(), device.ErrNotInitialized)

			require.NoError(t, manager.Finalize())
			require.Equal(t, 0, factory.LiveObjectCount())
		})
	}
}

func TestInitializeNoAdapters(t *testing.T) {
	ctrl := gomock.NewController(t)
	logger := slog.New(slog.NewJSONHandler(io.Discard))

	factory := mock_driver.NewMockFactory(ctrl)
	factory.EXPECT().EnumAdapter(0).Return(nil, driver.ErrNotFound)

	manager, err := device.New(logger, factory, device.Options{})
	require.NoError(t, err)

	err = manager.Initialize()
	require.ErrorIs(t, err, device.ErrAdapterNotFound)
	require.Equal(t, 1, device.ExitCode(err))

	factory.EXPECT().Release()
	require.NoError(t, manager.Finalize())
}

func TestInitializeStopsAfterDeviceFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	logger := slog.New(slog.NewJSONHandler(io.Discard))

	factory := mock_driver.NewMockFactory(ctrl)
	adapter := mock_driver.NewMockAdapter(ctrl)

	factory.EXPECT().EnumAdapter(0).Return(adapter, nil)
	factory.EXPECT().EnumAdapter(1).Return(nil, driver.ErrNotFound)
	adapter.EXPECT().Desc().Return(driver.AdapterDesc{Description: "AMD Radeon"}, nil)

	refused := errors.New("E_NOINTERFACE")
	gomock.InOrder(
		adapter.EXPECT().CreateDevice(driver.FeatureLevel12_1).Return(nil, refused),
		adapter.EXPECT().CreateDevice(driver.FeatureLevel12_0).Return(nil, refused),
		adapter.EXPECT().CreateDevice(driver.FeatureLevel11_1).Return(nil, refused),
		adapter.EXPECT().CreateDevice(driver.FeatureLevel11_0).Return(nil, refused),
	)

	manager, err := device.New(logger, factory, device.Options{})
	require.NoError(t, err)

	err = manager.Initialize()
	require.ErrorIs(t, err, device.ErrDeviceCreationFailed)
	require.ErrorContains(t, err, "E_NOINTERFACE")

	adapter.EXPECT().Release()
	factory.EXPECT().Release()
	require.NoError(t, manager.Finalize())
}

func TestInitializeStopsAfterQueueFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	logger := slog.New(slog.NewJSONHandler(io.Discard))

	factory := mock_driver.NewMockFactory(ctrl)
	adapter := mock_driver.NewMockAdapter(ctrl)
	mockDevice := mock_driver.NewMockDevice(ctrl)

	factory.EXPECT().EnumAdapter(0).Return(adapter, nil)
	factory.EXPECT().EnumAdapter(1).Return(nil, driver.ErrNotFound)
	adapter.EXPECT().Desc().Return(driver.AdapterDesc{Description: "NVIDIA GeForce"}, nil)
	adapter.EXPECT().CreateDevice(driver.FeatureLevel12_1).Return(mockDevice, nil)
	mockDevice.EXPECT().CreateCommandQueue(driver.CommandQueueDesc{Type: driver.CommandListTypeDirect}).
		Return(nil, driver.ErrDeviceRemoved)

	manager, err := device.New(logger, factory, device.Options{})
	require.NoError(t, err)

	err = manager.Initialize()
	require.ErrorIs(t, err, device.ErrQueueOrFenceCreationFailed)
	require.ErrorIs(t, err, driver.ErrDeviceRemoved)

	mockDevice.EXPECT().Release().Return(uint32(0))
	adapter.EXPECT().Release()
	factory.EXPECT().Release()
	require.NoError(t, manager.Finalize())
}

func TestExitCode(t *testing.T) {
	require.Equal(t, 0, device.ExitCode(nil))
	require.Equal(t, 1, device.ExitCode(device.ErrSubmissionFailed))
}

func TestCreateFlagsString(t *testing.T) {
	require.Equal(t, "None", device.CreateFlags(0).String())
	require.Equal(t, "CreateSpinWait|CreateReclaimableDescriptors",
		(device.CreateSpinWait | device.CreateReclaimableDescriptors).String())
}
