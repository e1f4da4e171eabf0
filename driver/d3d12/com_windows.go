//go:build windows

package d3d12

import (
	"fmt"
	"syscall"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/framegpu/gpucore/driver"
	"github.com/framegpu/gpucore/internal/utils"
	"golang.org/x/sys/windows"
)

var (
	d3d12DLL = windows.NewLazySystemDLL("d3d12.dll")
	dxgiDLL  = windows.NewLazySystemDLL("dxgi.dll")

	procD3D12CreateDevice      = d3d12DLL.NewProc("D3D12CreateDevice")
	procD3D12GetDebugInterface = d3d12DLL.NewProc("D3D12GetDebugInterface")
	procCreateDXGIFactory2     = dxgiDLL.NewProc("CreateDXGIFactory2")
)

func mustGUID(str string) windows.GUID {
	guid, err := windows.GUIDFromString(str)
	if err != nil {
		panic(err)
	}
	return guid
}

var (
	iidID3D12Device              = mustGUID("{189819f1-1db6-4b57-be54-1821339b85f7}")
	iidID3D12CommandQueue        = mustGUID("{0ec870a6-5d7e-4c22-8cfc-5baae07616ed}")
	iidID3D12CommandAllocator    = mustGUID("{6102dee4-af59-4b09-b999-b44d73f09b24}")
	iidID3D12GraphicsCommandList = mustGUID("{5b160d0f-ac1b-4185-8ba8-b3ae42a5a455}")
	iidID3D12Fence               = mustGUID("{0a753dcf-c4d8-4b91-adf6-be5a60d95a76}")
	iidID3D12DescriptorHeap      = mustGUID("{8efb471d-616c-4f49-90f7-127bb763fa51}")
	iidID3D12Resource            = mustGUID("{696442be-a72e-4059-bc79-5b5c98040fad}")
	iidID3D12Debug               = mustGUID("{344488b7-6846-474b-b989-f027448245e0}")
	iidID3D12DebugDevice         = mustGUID("{3febd6dd-4973-4787-8194-e45f9e28923e}")
	iidIDXGIFactory4             = mustGUID("{1bc6ea02-ef36-464f-bf0c-21ca39e5168a}")
	iidIDXGISwapChain3           = mustGUID("{94d99bdb-f1f8-4ab0-b236-7da0170edab1}")
)

// vtable slots, counted from the start of IUnknown
const (
	slotQueryInterface = 0
	slotRelease        = 2

	slotObjectSetName = 6

	slotDeviceCreateCommandQueue           = 8
	slotDeviceCreateCommandAllocator       = 9
	slotDeviceCreateCommandList            = 12
	slotDeviceCreateDescriptorHeap         = 14
	slotDeviceGetDescriptorHandleIncrement = 15
	slotDeviceCreateConstantBufferView     = 17
	slotDeviceCreateShaderResourceView     = 18
	slotDeviceCreateUnorderedAccessView    = 19
	slotDeviceCreateRenderTargetView       = 20
	slotDeviceCreateDepthStencilView       = 21
	slotDeviceCreateCommittedResource      = 27
	slotDeviceCreateFence                  = 36
	slotDeviceGetDeviceRemovedReason       = 37

	slotQueueExecuteCommandLists = 10
	slotQueueSignal              = 14

	slotFenceGetCompletedValue    = 8
	slotFenceSetEventOnCompletion = 9

	slotAllocatorReset = 8

	slotListClose                 = 9
	slotListReset                 = 10
	slotListResourceBarrier       = 26
	slotListOMSetRenderTargets    = 46
	slotListClearDepthStencilView = 47
	slotListClearRenderTargetView = 48

	slotHeapGetDesc                = 8
	slotHeapGetCPUDescriptorHandle = 9

	slotResourceGetDesc              = 10
	slotResourceGetGPUVirtualAddress = 11

	slotDebugEnableDebugLayer = 3

	slotDebugDeviceReportLiveDeviceObjects = 5

	slotFactoryEnumAdapters1          = 12
	slotFactoryCreateSwapChainForHwnd = 15

	slotAdapterGetDesc1 = 10

	slotSwapChainPresent                   = 8
	slotSwapChainGetBuffer                 = 9
	slotSwapChainGetDesc1                  = 18
	slotSwapChainGetCurrentBackBufferIndex = 36
)

const (
	dxgiErrorNotFound      = 0x887a0002
	dxgiErrorDeviceRemoved = 0x887a0005
	dxgiErrorDeviceReset   = 0x887a0007
)

// hresult is a failed COM return code
type hresult uint32

func (h hresult) Error() string {
	return fmt.Sprintf("HRESULT %#08x", uint32(h))
}

// check converts a COM return code into an error; device loss is marked with ErrDeviceRemoved
func check(ret uintptr, op string) error {
	code := uint32(ret)
	if int32(code) >= 0 {
		return nil
	}

	err := errors.Wrap(hresult(code), op)
	if code == dxgiErrorDeviceRemoved || code == dxgiErrorDeviceReset {
		err = utils.WithKind(err, driver.ErrDeviceRemoved)
	}
	return err
}

// comObject is a pointer to a COM interface
type comObject uintptr

func (o comObject) method(slot int) uintptr {
	vtable := *(*uintptr)(unsafe.Pointer(o))
	return *(*uintptr)(unsafe.Pointer(vtable + uintptr(slot)*unsafe.Sizeof(uintptr(0))))
}

func (o comObject) call(slot int, args ...uintptr) uintptr {
	ret, _, _ := syscall.SyscallN(o.method(slot), append([]uintptr{uintptr(o)}, args...)...)
	return ret
}

func (o comObject) release() uint32 {
	if o == 0 {
		return 0
	}
	return uint32(o.call(slotRelease))
}

func (o comObject) queryInterface(iid *windows.GUID) (comObject, error) {
	var out comObject
	ret := o.call(slotQueryInterface, uintptr(unsafe.Pointer(iid)), uintptr(unsafe.Pointer(&out)))
	return out, check(ret, "QueryInterface")
}

// setName labels a D3D12 object for the debug layer
func (o comObject) setName(name string) {
	utf16, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return
	}
	o.call(slotObjectSetName, uintptr(unsafe.Pointer(utf16)))
}
