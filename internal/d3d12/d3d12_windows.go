//go:build windows

package d3d12

import (
	"unicode/utf16"
	"unsafe"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/windows"
)

var (
	modD3D12 = windows.NewLazySystemDLL("d3d12.dll")
	modDXGI  = windows.NewLazySystemDLL("dxgi.dll")

	procD3D12CreateDevice  = modD3D12.NewProc("D3D12CreateDevice")
	procCreateDXGIFactory1 = modDXGI.NewProc("CreateDXGIFactory1")
)

type guid struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

var (
	iidIDXGIFactory1      = guid{0x770aae78, 0xf26f, 0x4dba, [8]byte{0xa8, 0x29, 0x25, 0x3c, 0x83, 0xd1, 0xb3, 0x87}}
	iidID3D12Device       = guid{0x189819f1, 0x1db6, 0x4b57, [8]byte{0xbe, 0x54, 0x18, 0x21, 0x33, 0x9b, 0x85, 0xf7}}
	iidID3D12Resource     = guid{0x696442be, 0xa72e, 0x4059, [8]byte{0xbc, 0x79, 0x5b, 0x5c, 0x98, 0x04, 0x0f, 0xad}}
	iidID3D12CommandQueue = guid{0x0ec870a6, 0x5d7e, 0x4c22, [8]byte{0x8c, 0xfc, 0x5b, 0xaa, 0xe0, 0x76, 0x16, 0xed}}
	iidID3D12Fence        = guid{0x0a753dcf, 0xc4d8, 0x4b91, [8]byte{0xad, 0xf6, 0xbe, 0x5a, 0x60, 0xd9, 0x5a, 0x76}}
)

const (
	featureLevel11_0 = 0xb000

	dxgiErrorNotFound   = 0x887a0002
	dxgiAdapterSoftware = 0x2

	heapTypeDefault = 1
	heapFlagShared  = 0x1

	resourceDimensionBuffer = 1
	textureLayoutRowMajor   = 1
	resourceStateCommon     = 0

	accessGenericAll = 0x10000000
)

// comCall invokes the method in the given vtable slot of a COM object.
func comCall(object uintptr, slot int, args ...uintptr) uintptr {
	vtable := *(*uintptr)(unsafe.Pointer(object))
	method := *(*uintptr)(unsafe.Pointer(vtable + uintptr(slot)*unsafe.Sizeof(uintptr(0))))

	callArgs := make([]uintptr, 0, len(args)+1)
	callArgs = append(callArgs, object)
	callArgs = append(callArgs, args...)
	ret, _, _ := windows.SyscallN(method, callArgs...)
	return ret
}

func comRelease(object uintptr) {
	if object != 0 {
		comCall(object, 2)
	}
}

func hresultError(hr uintptr, operation string) error {
	return errors.Newf("%s failed with HRESULT 0x%08x", operation, uint32(hr))
}

type dxgiAdapterDesc1 struct {
	Description           [128]uint16
	VendorID              uint32
	DeviceID              uint32
	SubSysID              uint32
	Revision              uint32
	DedicatedVideoMemory  uintptr
	DedicatedSystemMemory uintptr
	SharedSystemMemory    uintptr
	AdapterLUID           LUID
	Flags                 uint32
}

// Adapter wraps an IDXGIAdapter1.
type Adapter struct {
	raw uintptr
}

// EnumAdapters lists the system's DXGI adapters in enumeration order.
func EnumAdapters() ([]*Adapter, error) {
	var factory uintptr
	hr, _, _ := procCreateDXGIFactory1.Call(
		uintptr(unsafe.Pointer(&iidIDXGIFactory1)),
		uintptr(unsafe.Pointer(&factory)),
	)
	if hr != 0 {
		return nil, hresultError(hr, "CreateDXGIFactory1")
	}
	defer comRelease(factory)

	var adapters []*Adapter
	for i := 0; ; i++ {
		var raw uintptr
		// IDXGIFactory1::EnumAdapters1
		hr := comCall(factory, 12, uintptr(i), uintptr(unsafe.Pointer(&raw)))
		if uint32(hr) == dxgiErrorNotFound {
			break
		}
		if hr != 0 {
			for _, adapter := range adapters {
				adapter.Release()
			}
			return nil, hresultError(hr, "IDXGIFactory1::EnumAdapters1")
		}
		adapters = append(adapters, &Adapter{raw: raw})
	}
	return adapters, nil
}

// Desc returns the adapter's description, including its LUID.
func (a *Adapter) Desc() (AdapterDesc, error) {
	var raw dxgiAdapterDesc1
	// IDXGIAdapter1::GetDesc1
	hr := comCall(a.raw, 10, uintptr(unsafe.Pointer(&raw)))
	if hr != 0 {
		return AdapterDesc{}, hresultError(hr, "IDXGIAdapter1::GetDesc1")
	}

	length := 0
	for length < len(raw.Description) && raw.Description[length] != 0 {
		length++
	}
	return AdapterDesc{
		Description:     string(utf16.Decode(raw.Description[:length])),
		VendorID:        raw.VendorID,
		DeviceID:        raw.DeviceID,
		AdapterLUID:     raw.AdapterLUID,
		SoftwareAdapter: raw.Flags&dxgiAdapterSoftware != 0,
	}, nil
}

func (a *Adapter) Release() {
	comRelease(a.raw)
	a.raw = 0
}

// Device wraps an ID3D12Device.
type Device struct {
	raw uintptr
}

// CreateDevice creates a feature-level 11.0 device on the adapter.
func CreateDevice(adapter *Adapter) (*Device, error) {
	if err := modD3D12.Load(); err != nil {
		return nil, ErrNotAvailable
	}

	var raw uintptr
	hr, _, _ := procD3D12CreateDevice.Call(
		adapter.raw,
		featureLevel11_0,
		uintptr(unsafe.Pointer(&iidID3D12Device)),
		uintptr(unsafe.Pointer(&raw)),
	)
	if hr != 0 {
		return nil, hresultError(hr, "D3D12CreateDevice")
	}
	return &Device{raw: raw}, nil
}

func (d *Device) Release() {
	comRelease(d.raw)
	d.raw = 0
}

type heapProperties struct {
	Type                 uint32
	CPUPageProperty      uint32
	MemoryPoolPreference uint32
	CreationNodeMask     uint32
	VisibleNodeMask      uint32
}

type resourceDesc struct {
	Dimension        uint32
	Alignment        uint64
	Width            uint64
	Height           uint32
	DepthOrArraySize uint16
	MipLevels        uint16
	Format           uint32
	SampleCount      uint32
	SampleQuality    uint32
	Layout           uint32
	Flags            uint32
}

// Resource wraps an ID3D12Resource.
type Resource struct {
	raw  uintptr
	size int
}

// CreateSharedBuffer creates a committed buffer resource on the default
// heap with the shared heap flag set, so an NT handle can be exported
// from it. Direct3D zero-initializes committed resources, so the buffer
// contents start cleared.
func (d *Device) CreateSharedBuffer(byteSize int) (*Resource, error) {
	heap := heapProperties{Type: heapTypeDefault}
	desc := resourceDesc{
		Dimension:        resourceDimensionBuffer,
		Width:            uint64(byteSize),
		Height:           1,
		DepthOrArraySize: 1,
		MipLevels:        1,
		SampleCount:      1,
		Layout:           textureLayoutRowMajor,
	}

	var raw uintptr
	// ID3D12Device::CreateCommittedResource
	hr := comCall(d.raw, 27,
		uintptr(unsafe.Pointer(&heap)),
		heapFlagShared,
		uintptr(unsafe.Pointer(&desc)),
		resourceStateCommon,
		0,
		uintptr(unsafe.Pointer(&iidID3D12Resource)),
		uintptr(unsafe.Pointer(&raw)),
	)
	if hr != 0 {
		return nil, hresultError(hr, "ID3D12Device::CreateCommittedResource")
	}
	return &Resource{raw: raw, size: byteSize}, nil
}

// CreateSharedHandle exports an NT handle for the resource with
// GENERIC_ALL access. The caller owns the handle and must close it with
// CloseSharedHandle.
func (d *Device) CreateSharedHandle(resource *Resource) (uintptr, error) {
	var handle windows.Handle
	// ID3D12Device::CreateSharedHandle
	hr := comCall(d.raw, 31,
		resource.raw,
		0,
		accessGenericAll,
		0,
		uintptr(unsafe.Pointer(&handle)),
	)
	if hr != 0 {
		return 0, hresultError(hr, "ID3D12Device::CreateSharedHandle")
	}
	return uintptr(handle), nil
}

// Size returns the buffer's byte size as requested at creation.
func (r *Resource) Size() int {
	return r.size
}

func (r *Resource) Release() {
	comRelease(r.raw)
	r.raw = 0
}

// CloseSharedHandle closes an NT handle returned by CreateSharedHandle.
func CloseSharedHandle(handle uintptr) {
	if handle != 0 {
		_ = windows.CloseHandle(windows.Handle(handle))
	}
}

type commandQueueDesc struct {
	Type     uint32
	Priority int32
	Flags    uint32
	NodeMask uint32
}

// CommandQueue wraps an ID3D12CommandQueue together with the fence used
// to drain it.
type CommandQueue struct {
	raw        uintptr
	fence      uintptr
	fenceValue uint64
	event      windows.Handle
}

// CreateCommandQueue creates a direct command queue with an idle fence.
func (d *Device) CreateCommandQueue() (*CommandQueue, error) {
	desc := commandQueueDesc{}

	var rawQueue uintptr
	// ID3D12Device::CreateCommandQueue
	hr := comCall(d.raw, 8,
		uintptr(unsafe.Pointer(&desc)),
		uintptr(unsafe.Pointer(&iidID3D12CommandQueue)),
		uintptr(unsafe.Pointer(&rawQueue)),
	)
	if hr != 0 {
		return nil, hresultError(hr, "ID3D12Device::CreateCommandQueue")
	}

	var rawFence uintptr
	// ID3D12Device::CreateFence
	hr = comCall(d.raw, 36,
		0,
		0,
		uintptr(unsafe.Pointer(&iidID3D12Fence)),
		uintptr(unsafe.Pointer(&rawFence)),
	)
	if hr != 0 {
		comRelease(rawQueue)
		return nil, hresultError(hr, "ID3D12Device::CreateFence")
	}

	event, err := windows.CreateEvent(nil, 0, 0, nil)
	if err != nil {
		comRelease(rawFence)
		comRelease(rawQueue)
		return nil, errors.Wrap(err, "CreateEvent for queue fence")
	}
	return &CommandQueue{raw: rawQueue, fence: rawFence, event: event}, nil
}

// WaitIdle blocks until all work submitted to the queue so far has
// retired on the device.
func (q *CommandQueue) WaitIdle() error {
	q.fenceValue++
	// ID3D12CommandQueue::Signal
	hr := comCall(q.raw, 14, q.fence, uintptr(q.fenceValue))
	if hr != 0 {
		return hresultError(hr, "ID3D12CommandQueue::Signal")
	}

	// ID3D12Fence::GetCompletedValue
	if uint64(comCall(q.fence, 8)) >= q.fenceValue {
		return nil
	}
	// ID3D12Fence::SetEventOnCompletion
	hr = comCall(q.fence, 9, uintptr(q.fenceValue), uintptr(q.event))
	if hr != 0 {
		return hresultError(hr, "ID3D12Fence::SetEventOnCompletion")
	}
	if _, err := windows.WaitForSingleObject(q.event, windows.INFINITE); err != nil {
		return errors.Wrap(err, "waiting for queue fence")
	}
	return nil
}

func (q *CommandQueue) Release() {
	if q.event != 0 {
		_ = windows.CloseHandle(q.event)
		q.event = 0
	}
	comRelease(q.fence)
	q.fence = 0
	comRelease(q.raw)
	q.raw = 0
}
