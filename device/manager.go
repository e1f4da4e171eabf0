// Package device owns the GPU device and everything built directly on it: the draw queue and its
// fence, the draw command context, and the render-target, depth-stencil and
// shader/constant/unordered-access descriptor heaps.
package device

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/framegpu/gpucore/command"
	"github.com/framegpu/gpucore/descriptor"
	"github.com/framegpu/gpucore/driver"
	"github.com/framegpu/gpucore/internal/utils"
	"golang.org/x/exp/slog"
)

// Presenter flips the current back buffer to the screen. A swapchain registers itself on the
// Manager so SubmitAndPresent can present between executing and signaling.
type Presenter interface {
	Present() error
}

// Manager owns the device, draw queue, fence, draw context and descriptor heaps. Each Manager is
// independent; the caller decides how many exist and how long they live. A Manager is driven by
// a single goroutine.
type Manager struct {
	logger  *slog.Logger
	options Options

	factory             driver.Factory
	adapter             driver.Adapter
	adapterDesc         driver.AdapterDesc
	minimumFeatureLevel driver.FeatureLevel

	device         driver.Device
	drawQueue      driver.CommandQueue
	drawFence      driver.Fence
	drawFenceValue uint64
	drawContext    *command.Context

	rtvHeap *descriptor.Heap
	dsvHeap *descriptor.Heap
	csuHeap *descriptor.Heap

	presenter   Presenter
	initialized bool
	finalized   bool
}

// New creates a Manager that enumerates adapters through factory. The Manager takes ownership of
// factory and releases it in Finalize.
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, factory driver.Factory, options Options) (*Manager, error) {
	if factory == nil {
		return nil, errors.New("no driver factory was provided")
	}

	err := options.Validate()
	if err != nil {
		return nil, err
	}
	options.applyDefaults()

	m := &Manager{
		logger:              logger,
		options:             options,
		factory:             factory,
		minimumFeatureLevel: driver.FeatureLevel11_0,
	}
	m.SetMinimumFeatureLevel(options.MinimumFeatureLevel)

	logger.Debug("Manager::New", slog.String("flags", options.Flags.String()))
	return m, nil
}

// SetMinimumFeatureLevel sets the lowest tier Initialize will accept. Levels below 11_0 are
// raised to 11_0. Once a device exists the call does nothing.
func (m *Manager) SetMinimumFeatureLevel(level driver.FeatureLevel) {
	if m.device != nil {
		m.logger.Debug("Manager::SetMinimumFeatureLevel ignored, device already exists")
		return
	}

	if level < driver.FeatureLevel11_0 {
		level = driver.FeatureLevel11_0
	}
	m.minimumFeatureLevel = level
}

func (m *Manager) MinimumFeatureLevel() driver.FeatureLevel {
	return m.minimumFeatureLevel
}

// Initialize selects an adapter, creates the device at the best available feature level, then
// the draw queue and fence, the draw context, and the three descriptor heaps. It stops at the
// first step that fails and reports it through the package's error values; everything created
// up to that point is released by Finalize.
func (m *Manager) Initialize() error {
	m.logger.Debug("Manager::Initialize")

	if m.finalized {
		return ErrFinalized
	}
	if m.initialized || m.device != nil {
		return errors.New("device manager was already initialized")
	}

	err := m.selectAdapter()
	if err != nil {
		return m.logInitError(err)
	}

	err = m.createDevice()
	if err != nil {
		return m.logInitError(err)
	}

	err = m.createDrawQueue()
	if err != nil {
		return m.logInitError(err)
	}

	err = m.createDrawContext()
	if err != nil {
		return m.logInitError(err)
	}

	err = m.createHeaps()
	if err != nil {
		return m.logInitError(err)
	}

	m.initialized = true
	m.logger.Info("device manager initialized",
		slog.String("adapter", m.adapterDesc.Description),
		slog.String("featureLevel", m.device.FeatureLevel().String()),
	)
	return nil
}

func (m *Manager) logInitError(err error) error {
	m.logger.LogAttrs(context.Background(), slog.LevelError, "failed to initialize device manager", slog.Any("error", err))
	return err
}

func (m *Manager) preferredVendor(description string) bool {
	for _, vendor := range m.options.PreferredVendors {
		if vendor != "" && strings.Contains(description, vendor) {
			return true
		}
	}
	return false
}

func (m *Manager) selectAdapter() error {
	var adapters []driver.Adapter
	for index := 0; ; index++ {
		adapter, err := m.factory.EnumAdapter(index)
		if errors.Is(err, driver.ErrNotFound) {
			break
		} else if err != nil {
			for _, enumerated := range adapters {
				enumerated.Release()
			}
			return utils.WithKind(errors.Wrapf(err, "failed to enumerate adapter %d", index), ErrAdapterNotFound)
		}
		adapters = append(adapters, adapter)
	}

	if len(adapters) == 0 {
		return ErrAdapterNotFound
	}

	chosen := -1
	descs := make([]driver.AdapterDesc, len(adapters))
	for index, adapter := range adapters {
		desc, err := adapter.Desc()
		if err != nil {
			m.logger.Debug("Manager::selectAdapter could not describe adapter", slog.Int("index", index), slog.Any("error", err))
			continue
		}
		descs[index] = desc

		if chosen < 0 && m.preferredVendor(desc.Description) {
			chosen = index
		}
	}

	if chosen < 0 {
		chosen = 0
	}

	for index, adapter := range adapters {
		if index != chosen {
			adapter.Release()
		}
	}

	m.adapter = adapters[chosen]
	m.adapterDesc = descs[chosen]
	m.logger.Debug("Manager::selectAdapter", slog.Int("index", chosen), slog.String("description", m.adapterDesc.Description))
	return nil
}

func (m *Manager) createDevice() error {
	var lastErr error
	for _, level := range driver.FeatureLevels {
		if level < m.minimumFeatureLevel {
			continue
		}

		device, err := m.adapter.CreateDevice(level)
		if err != nil {
			m.logger.Debug("Manager::createDevice feature level unavailable", slog.String("featureLevel", level.String()), slog.Any("error", err))
			lastErr = err
			continue
		}

		m.device = device
		return nil
	}

	if lastErr == nil {
		return errors.Wrapf(ErrDeviceCreationFailed, "no feature level at or above %s", m.minimumFeatureLevel)
	}
	return utils.WithKind(errors.Wrapf(lastErr, "no feature level at or above %s", m.minimumFeatureLevel), ErrDeviceCreationFailed)
}

func (m *Manager) createDrawQueue() error {
	queue, err := m.device.CreateCommandQueue(driver.CommandQueueDesc{Type: driver.CommandListTypeDirect})
	if err != nil {
		return utils.WithKind(errors.Wrap(err, "failed to create draw queue"), ErrQueueOrFenceCreationFailed)
	}
	m.drawQueue = queue

	fence, err := m.device.CreateFence(0)
	if err != nil {
		return utils.WithKind(errors.Wrap(err, "failed to create draw fence"), ErrQueueOrFenceCreationFailed)
	}
	m.drawFence = fence
	m.drawFenceValue = 0
	return nil
}

func (m *Manager) createDrawContext() error {
	drawContext, err := command.New(m.logger, m.device, driver.CommandListTypeDirect)
	if drawContext != nil && drawContext.IsValid() {
		m.drawContext = drawContext
	}
	if err != nil {
		return utils.WithKind(errors.Wrap(err, "failed to create draw context"), ErrContextInvalid)
	}
	if !drawContext.IsValid() {
		return ErrContextInvalid
	}
	return nil
}

func (m *Manager) heapOptions(name string) descriptor.HeapOptions {
	options := descriptor.HeapOptions{Name: name}
	if m.options.Flags&CreateReclaimableDescriptors != 0 {
		options.Flags |= descriptor.HeapCreateReclaimable
	}
	if m.options.Flags&CreateSynchronizedHeaps != 0 {
		options.Flags |= descriptor.HeapCreateSynchronized
	}
	return options
}

func (m *Manager) createHeaps() error {
	var err error
	m.rtvHeap, err = descriptor.NewRTVHeap(m.logger, m.device, m.options.RTVHeapCapacity, m.heapOptions("RTV"))
	if err != nil {
		return utils.WithKind(err, ErrHeapCreationFailed)
	}

	m.dsvHeap, err = descriptor.NewDSVHeap(m.logger, m.device, m.options.DSVHeapCapacity, m.heapOptions("DSV"))
	if err != nil {
		return utils.WithKind(err, ErrHeapCreationFailed)
	}

	m.csuHeap, err = descriptor.NewCSUHeap(m.logger, m.device, m.options.CSUHeapCapacity, m.heapOptions("CSU"))
	if err != nil {
		return utils.WithKind(err, ErrHeapCreationFailed)
	}

	for _, heap := range m.heaps() {
		if !heap.IsValid() {
			return errors.Wrapf(ErrHeapCreationFailed, "%s heap has no driver heap", heap.Name())
		}
	}
	return nil
}

// heaps returns the heaps that exist, in RTV, DSV, CSU order
func (m *Manager) heaps() []*descriptor.Heap {
	var heaps []*descriptor.Heap
	for _, heap := range []*descriptor.Heap{m.rtvHeap, m.dsvHeap, m.csuHeap} {
		if heap != nil {
			heaps = append(heaps, heap)
		}
	}
	return heaps
}

func (m *Manager) Initialized() bool { return m.initialized }
func (m *Manager) Factory() driver.Factory { return m.factory }
func (m *Manager) Adapter() driver.Adapter { return m.adapter }
func (m *Manager) AdapterDesc() driver.AdapterDesc { return m.adapterDesc }
func (m *Manager) Device() driver.Device { return m.device }
func (m *Manager) DrawQueue() driver.CommandQueue { return m.drawQueue }
func (m *Manager) DrawFence() driver.Fence { return m.drawFence }
func (m *Manager) DrawContext() *command.Context { return m.drawContext }
func (m *Manager) RTVHeap() *descriptor.Heap { return m.rtvHeap }
func (m *Manager) DSVHeap() *descriptor.Heap { return m.dsvHeap }
func (m *Manager) CSUHeap() *descriptor.Heap { return m.csuHeap }
func (m *Manager) Presenter() Presenter { return m.presenter }
func (m *Manager) SetPresenter(presenter Presenter) { m.presenter = presenter }

// FeatureLevel is the tier the device was created at, or 0 before Initialize
func (m *Manager) FeatureLevel() driver.FeatureLevel {
	if m.device == nil {
		return 0
	}
	return m.device.FeatureLevel()
}

// RequestedFenceValue is the value signaled after the most recent submission. After the k-th
// successful submission it is k.
func (m *Manager) RequestedFenceValue() uint64 {
	return m.drawFenceValue
}

// CompletedFenceValue is the highest value the GPU has reached on the draw fence
func (m *Manager) CompletedFenceValue() uint64 {
	if m.drawFence == nil {
		return 0
	}
	return m.drawFence.CompletedValue()
}
