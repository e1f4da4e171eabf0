package device

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/framegpu/gpucore/driver"
	"github.com/vkngwrapper/core/v2/common"
)

// CreateFlags indicate specific manager behaviors to activate
type CreateFlags int32

var createFlagsMapping = common.NewFlagStringMapping[CreateFlags]()

func (f CreateFlags) Register(str string) {
	createFlagsMapping.Register(f, str)
}
func (f CreateFlags) String() string {
	return createFlagsMapping.FlagsToString(f)
}

const (
	// CreateSpinWait makes fence waits busy-poll the fence's completed value instead of blocking
	// on a completion event. It burns a CPU core for the length of every wait.
	CreateSpinWait CreateFlags = 1 << iota
	// CreateReclaimableDescriptors creates heaps whose slots can be returned with FreeView.
	// Without it, heaps are append-only.
	CreateReclaimableDescriptors
	// CreateSynchronizedHeaps lets views be created from several goroutines at once
	CreateSynchronizedHeaps
)

func init() {
	CreateSpinWait.Register("CreateSpinWait")
	CreateReclaimableDescriptors.Register("CreateReclaimableDescriptors")
	CreateSynchronizedHeaps.Register("CreateSynchronizedHeaps")
}

const (
	// DefaultHeapCapacity is the number of descriptors in each heap when no capacity is provided
	DefaultHeapCapacity int = 100
)

// DefaultPreferredVendors are matched, in order, against adapter descriptions
var DefaultPreferredVendors = []string{"NVIDIA", "AMD"}

// Options contains optional settings when creating a Manager. It is valid to leave every field blank.
type Options struct {
	// Flags indicates specific manager behaviors to activate
	Flags CreateFlags

	// MinimumFeatureLevel seeds SetMinimumFeatureLevel. It defaults to 11_0.
	MinimumFeatureLevel driver.FeatureLevel

	// HeapCapacity is the size of every descriptor heap. It defaults to DefaultHeapCapacity.
	HeapCapacity int
	// RTVHeapCapacity, DSVHeapCapacity and CSUHeapCapacity override HeapCapacity for one heap
	RTVHeapCapacity int
	DSVHeapCapacity int
	CSUHeapCapacity int

	// PreferredVendors are case-sensitive substrings of the adapter description. The first
	// adapter matching any of them is used; otherwise the first adapter is. It defaults to
	// DefaultPreferredVendors.
	PreferredVendors []string

	// FenceWaitTimeout bounds every fence wait. Zero waits forever.
	FenceWaitTimeout time.Duration
}

func (o *Options) applyDefaults() {
	if o.HeapCapacity == 0 {
		o.HeapCapacity = DefaultHeapCapacity
	}
	if o.RTVHeapCapacity == 0 {
		o.RTVHeapCapacity = o.HeapCapacity
	}
	if o.DSVHeapCapacity == 0 {
		o.DSVHeapCapacity = o.HeapCapacity
	}
	if o.CSUHeapCapacity == 0 {
		o.CSUHeapCapacity = o.HeapCapacity
	}
	if o.PreferredVendors == nil {
		o.PreferredVendors = DefaultPreferredVendors
	}
}

func (o *Options) Validate() error {
	if o.HeapCapacity < 0 || o.RTVHeapCapacity < 0 || o.DSVHeapCapacity < 0 || o.CSUHeapCapacity < 0 {
		return errors.New("device.Options heap capacities cannot be negative")
	}
	if o.FenceWaitTimeout < 0 {
		return errors.Newf("device.Options.FenceWaitTimeout cannot be negative, but %s was provided", o.FenceWaitTimeout)
	}
	return nil
}
