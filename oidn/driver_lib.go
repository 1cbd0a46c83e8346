package oidn

import (
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

var (
	loadOnce sync.Once
	loadErr  error

	oidnNewDeviceByUUID                func(uuid unsafe.Pointer) uintptr
	oidnNewDeviceByLUID                func(luid unsafe.Pointer) uintptr
	oidnCommitDevice                   func(device uintptr)
	oidnGetDeviceInt                   func(device uintptr, name string) int32
	oidnGetDeviceError                 func(device uintptr, outMessage unsafe.Pointer) int32
	oidnRetainDevice                   func(device uintptr)
	oidnReleaseDevice                  func(device uintptr)
	oidnNewSharedBufferFromFD          func(device uintptr, fdType int32, fd int32, byteSize uintptr) uintptr
	oidnNewSharedBufferFromWin32Handle func(device uintptr, handleType int32, handle uintptr, name unsafe.Pointer, byteSize uintptr) uintptr
	oidnGetBufferSize                  func(buffer uintptr) uintptr
	oidnReadBuffer                     func(buffer uintptr, byteOffset, byteSize uintptr, dst unsafe.Pointer)
	oidnWriteBuffer                    func(buffer uintptr, byteOffset, byteSize uintptr, src unsafe.Pointer)
	oidnReleaseBuffer                  func(buffer uintptr)
	oidnNewFilter                      func(device uintptr, filterType string) uintptr
	oidnSetFilterImage                 func(filter uintptr, name string, buffer uintptr, format int32, width, height, byteOffset, pixelByteStride, rowByteStride uintptr)
	oidnSetFilterBool                  func(filter uintptr, name string, value bool)
	oidnCommitFilter                   func(filter uintptr)
	oidnExecuteFilter                  func(filter uintptr)
	oidnReleaseFilter                  func(filter uintptr)
)

// DefaultDriver loads the Open Image Denoise shared library on first use
// and returns a Driver backed by it. The load is attempted once; later
// calls return the same outcome.
func DefaultDriver() (Driver, error) {
	loadOnce.Do(func() {
		var lib uintptr
		lib, loadErr = openLibrary()
		if loadErr != nil {
			return
		}

		purego.RegisterLibFunc(&oidnNewDeviceByUUID, lib, "oidnNewDeviceByUUID")
		purego.RegisterLibFunc(&oidnNewDeviceByLUID, lib, "oidnNewDeviceByLUID")
		purego.RegisterLibFunc(&oidnCommitDevice, lib, "oidnCommitDevice")
		purego.RegisterLibFunc(&oidnGetDeviceInt, lib, "oidnGetDeviceInt")
		purego.RegisterLibFunc(&oidnGetDeviceError, lib, "oidnGetDeviceError")
		purego.RegisterLibFunc(&oidnRetainDevice, lib, "oidnRetainDevice")
		purego.RegisterLibFunc(&oidnReleaseDevice, lib, "oidnReleaseDevice")
		purego.RegisterLibFunc(&oidnNewSharedBufferFromFD, lib, "oidnNewSharedBufferFromFD")
		purego.RegisterLibFunc(&oidnNewSharedBufferFromWin32Handle, lib, "oidnNewSharedBufferFromWin32Handle")
		purego.RegisterLibFunc(&oidnGetBufferSize, lib, "oidnGetBufferSize")
		purego.RegisterLibFunc(&oidnReadBuffer, lib, "oidnReadBuffer")
		purego.RegisterLibFunc(&oidnWriteBuffer, lib, "oidnWriteBuffer")
		purego.RegisterLibFunc(&oidnReleaseBuffer, lib, "oidnReleaseBuffer")
		purego.RegisterLibFunc(&oidnNewFilter, lib, "oidnNewFilter")
		purego.RegisterLibFunc(&oidnSetFilterImage, lib, "oidnSetFilterImage")
		purego.RegisterLibFunc(&oidnSetFilterBool, lib, "oidnSetFilterBool")
		purego.RegisterLibFunc(&oidnCommitFilter, lib, "oidnCommitFilter")
		purego.RegisterLibFunc(&oidnExecuteFilter, lib, "oidnExecuteFilter")
		purego.RegisterLibFunc(&oidnReleaseFilter, lib, "oidnReleaseFilter")
	})

	if loadErr != nil {
		return nil, loadErr
	}
	return libDriver{}, nil
}

// libDriver forwards Driver calls to the loaded shared library.
type libDriver struct{}

var _ Driver = libDriver{}

func (libDriver) NewDeviceByUUID(uuid [16]byte) DeviceHandle {
	return DeviceHandle(oidnNewDeviceByUUID(unsafe.Pointer(&uuid[0])))
}

func (libDriver) NewDeviceByLUID(luid [8]byte) DeviceHandle {
	return DeviceHandle(oidnNewDeviceByLUID(unsafe.Pointer(&luid[0])))
}

func (libDriver) CommitDevice(device DeviceHandle) {
	oidnCommitDevice(uintptr(device))
}

func (libDriver) GetDeviceInt(device DeviceHandle, name string) int {
	return int(oidnGetDeviceInt(uintptr(device), name))
}

func (libDriver) GetDeviceError(device DeviceHandle) (Error, string) {
	var message *byte
	code := oidnGetDeviceError(uintptr(device), unsafe.Pointer(&message))
	return Error(code), goString(message)
}

func (libDriver) RetainDevice(device DeviceHandle) {
	oidnRetainDevice(uintptr(device))
}

func (libDriver) ReleaseDevice(device DeviceHandle) {
	oidnReleaseDevice(uintptr(device))
}

func (libDriver) NewSharedBufferFromFD(device DeviceHandle, fdType ExternalMemoryTypeFlags, fd int, byteSize int) BufferHandle {
	return BufferHandle(oidnNewSharedBufferFromFD(uintptr(device), int32(fdType), int32(fd), uintptr(byteSize)))
}

func (libDriver) NewSharedBufferFromWin32Handle(device DeviceHandle, handleType ExternalMemoryTypeFlags, handle uintptr, byteSize int) BufferHandle {
	return BufferHandle(oidnNewSharedBufferFromWin32Handle(uintptr(device), int32(handleType), handle, nil, uintptr(byteSize)))
}

func (libDriver) GetBufferSize(buffer BufferHandle) int {
	return int(oidnGetBufferSize(uintptr(buffer)))
}

func (libDriver) ReadBuffer(buffer BufferHandle, byteOffset int, byteSize int, dst unsafe.Pointer) {
	oidnReadBuffer(uintptr(buffer), uintptr(byteOffset), uintptr(byteSize), dst)
}

func (libDriver) WriteBuffer(buffer BufferHandle, byteOffset int, byteSize int, src unsafe.Pointer) {
	oidnWriteBuffer(uintptr(buffer), uintptr(byteOffset), uintptr(byteSize), src)
}

func (libDriver) ReleaseBuffer(buffer BufferHandle) {
	oidnReleaseBuffer(uintptr(buffer))
}

func (libDriver) NewFilter(device DeviceHandle, filterType string) FilterHandle {
	return FilterHandle(oidnNewFilter(uintptr(device), filterType))
}

func (libDriver) SetFilterImage(filter FilterHandle, name string, buffer BufferHandle, format Format, width, height, byteOffset, pixelByteStride, rowByteStride int) {
	oidnSetFilterImage(uintptr(filter), name, uintptr(buffer), int32(format),
		uintptr(width), uintptr(height), uintptr(byteOffset), uintptr(pixelByteStride), uintptr(rowByteStride))
}

func (libDriver) SetFilterBool(filter FilterHandle, name string, value bool) {
	oidnSetFilterBool(uintptr(filter), name, value)
}

func (libDriver) CommitFilter(filter FilterHandle) {
	oidnCommitFilter(uintptr(filter))
}

func (libDriver) ExecuteFilter(filter FilterHandle) {
	oidnExecuteFilter(uintptr(filter))
}

func (libDriver) ReleaseFilter(filter FilterHandle) {
	oidnReleaseFilter(uintptr(filter))
}

func goString(p *byte) string {
	if p == nil {
		return ""
	}

	length := 0
	for *(*byte)(unsafe.Add(unsafe.Pointer(p), length)) != 0 {
		length++
	}
	return string(unsafe.Slice(p, length))
}
