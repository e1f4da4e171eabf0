package driver

import "github.com/cockroachdb/errors"

var (
	// ErrNotFound is returned by Factory.EnumAdapter once the index passes the last adapter
	ErrNotFound = errors.New("not found")
	// ErrUnsupported is returned when a backend cannot service a request at all
	ErrUnsupported = errors.New("unsupported by this driver")
	// ErrWaitTimeout is returned by Fence.Wait when the timeout elapses before the fence reaches its value
	ErrWaitTimeout = errors.New("fence wait timed out")
	// ErrDeviceRemoved is returned once the device has been lost
	ErrDeviceRemoved = errors.New("device removed")
)
