package oidn

import "unsafe"

// DeviceHandle is a raw OIDNDevice. The zero value is the null handle.
type DeviceHandle uintptr

// BufferHandle is a raw OIDNBuffer. The zero value is the null handle.
type BufferHandle uintptr

// FilterHandle is a raw OIDNFilter. The zero value is the null handle.
type FilterHandle uintptr

// Driver exposes the raw OIDN entry points used by this module. The
// library-backed implementation is returned by DefaultDriver; tests
// provide their own.
//
// Null results are reported as zero handles; the engine's own error code
// and message are retrieved separately with GetDeviceError, matching the
// C API's last-error model.
type Driver interface {
	// NewDeviceByUUID creates a device for the physical device with the
	// given Vulkan device UUID. Returns the null handle if the engine
	// cannot target that physical device.
	NewDeviceByUUID(uuid [16]byte) DeviceHandle
	// NewDeviceByLUID creates a device for the physical device with the
	// given Windows adapter LUID.
	NewDeviceByLUID(luid [8]byte) DeviceHandle
	CommitDevice(device DeviceHandle)
	GetDeviceInt(device DeviceHandle, name string) int
	// GetDeviceError returns the device's last error and clears it.
	// A null device handle queries the thread-local error instead.
	GetDeviceError(device DeviceHandle) (Error, string)
	RetainDevice(device DeviceHandle)
	ReleaseDevice(device DeviceHandle)

	NewSharedBufferFromFD(device DeviceHandle, fdType ExternalMemoryTypeFlags, fd int, byteSize int) BufferHandle
	NewSharedBufferFromWin32Handle(device DeviceHandle, handleType ExternalMemoryTypeFlags, handle uintptr, byteSize int) BufferHandle
	GetBufferSize(buffer BufferHandle) int
	ReadBuffer(buffer BufferHandle, byteOffset int, byteSize int, dst unsafe.Pointer)
	WriteBuffer(buffer BufferHandle, byteOffset int, byteSize int, src unsafe.Pointer)
	ReleaseBuffer(buffer BufferHandle)

	NewFilter(device DeviceHandle, filterType string) FilterHandle
	SetFilterImage(filter FilterHandle, name string, buffer BufferHandle, format Format, width, height, byteOffset, pixelByteStride, rowByteStride int)
	SetFilterBool(filter FilterHandle, name string, value bool)
	CommitFilter(filter FilterHandle)
	// ExecuteFilter blocks the calling thread until the filter's
	// workload has finished on the device.
	ExecuteFilter(filter FilterHandle)
	ReleaseFilter(filter FilterHandle)
}
