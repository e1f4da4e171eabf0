package device

import (
	"context"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

// Finalize waits for the draw fence to reach the last requested value, then releases the draw
// context, queue, fence, the RTV, DSV and CSU heaps, the device, the adapter, and the factory, in
// that order. It is safe to call after a failed Initialize: only what was created is released.
//
// If the wait fails nothing is released, since the GPU may still be using it. Once Finalize has
// released everything, the Manager cannot be initialized again.
func (m *Manager) Finalize() error {
	m.logger.Debug("Manager::Finalize")

	if m.drawFence != nil && m.drawFenceValue > 0 {
		err := m.WaitForFence(m.drawFence, m.drawFenceValue)
		if err != nil {
			m.logger.LogAttrs(context.Background(), slog.LevelError, "failed to wait for the GPU before release", slog.Any("error", err))
			return err
		}
	}

	var err error

	if m.drawContext != nil {
		m.drawContext.Release()
		m.drawContext = nil
	}

	if m.drawQueue != nil {
		m.drawQueue.Release()
		m.drawQueue = nil
	}

	if m.drawFence != nil {
		m.drawFence.Release()
		m.drawFence = nil
	}

	for _, heap := range m.heaps() {
		err = errors.CombineErrors(err, heap.Destroy())
	}
	m.rtvHeap = nil
	m.dsvHeap = nil
	m.csuHeap = nil

	m.presenter = nil

	if m.device != nil {
		reportLiveObjects(m.logger, m.device)
		m.device = nil
	}

	if m.adapter != nil {
		m.adapter.Release()
		m.adapter = nil
	}

	if m.factory != nil {
		m.factory.Release()
		m.factory = nil
	}

	m.initialized = false
	m.finalized = true
	return err
}
