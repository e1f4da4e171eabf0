package descriptor

import "github.com/cockroachdb/errors"

var (
	// ErrNilResource is returned when a view is requested for a nil resource
	ErrNilResource = errors.New("resource is nil")
	// ErrCategoryMismatch is returned when a view description's kind is not held by the heap
	ErrCategoryMismatch = errors.New("view kind does not match the descriptor heap category")
	// ErrHeapExhausted is returned when every slot of the heap is in use
	ErrHeapExhausted = errors.New("descriptor heap is exhausted")
	// ErrHeapInvalid is returned when the heap has no backing driver heap
	ErrHeapInvalid = errors.New("descriptor heap is invalid")
	// ErrReclaimUnsupported is returned by FreeView on an append-only heap
	ErrReclaimUnsupported = errors.New("descriptor heap does not reclaim slots")
	// ErrNoDefaultDesc is returned when a view description cannot be derived from the resource shape
	ErrNoDefaultDesc = errors.New("no default view description for this resource")
)
