package device

import "github.com/cockroachdb/errors"

var (
	// ErrAdapterNotFound means the factory enumerated no adapters at all
	ErrAdapterNotFound = errors.New("no graphics adapter was found")
	// ErrDeviceCreationFailed means no feature level at or above the minimum could be created
	ErrDeviceCreationFailed = errors.New("device creation failed")
	// ErrQueueOrFenceCreationFailed means the draw queue or its fence could not be created
	ErrQueueOrFenceCreationFailed = errors.New("draw queue or fence creation failed")
	// ErrContextInvalid means the draw command context could not be created
	ErrContextInvalid = errors.New("draw command context is invalid")
	// ErrHeapCreationFailed means one of the descriptor heaps could not be created
	ErrHeapCreationFailed = errors.New("descriptor heap creation failed")
	// ErrViewCreationFailed means a view could not be placed in its heap
	ErrViewCreationFailed = errors.New("view creation failed")
	// ErrSwapchainFailure means the swapchain or one of its back buffers could not be set up
	ErrSwapchainFailure = errors.New("swapchain failure")
	// ErrSubmissionFailed means a frame could not be executed, presented, or signaled
	ErrSubmissionFailed = errors.New("frame submission failed")
	// ErrFenceTimeout means a fence wait ran past Options.FenceWaitTimeout
	ErrFenceTimeout = errors.New("fence wait timed out")
	// ErrNotInitialized means an operation needed a device before Initialize succeeded
	ErrNotInitialized = errors.New("device manager is not initialized")
	// ErrFinalized means the manager already released its factory in Finalize
	ErrFinalized = errors.New("device manager was finalized")
)

// ExitCode maps the outcome of a run to a process exit status
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
