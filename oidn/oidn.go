// Package oidn is a thin binding to the Intel Open Image Denoise C API,
// covering the subset of the library needed for device pairing and
// cross-API shared buffers: device creation by physical-device identity,
// external-memory import, buffer access, and the RT filter.
//
// The library is loaded at runtime; no cgo is required. All entry points
// are reached through the Driver interface so consumers can substitute a
// fake for testing.
package oidn

// Error is an OIDN error code, as returned by oidnGetDeviceError.
type Error int32

const (
	ErrorNone                Error = 0
	ErrorUnknown             Error = 1
	ErrorInvalidArgument     Error = 2
	ErrorInvalidOperation    Error = 3
	ErrorOutOfMemory         Error = 4
	ErrorUnsupportedHardware Error = 5
	ErrorCancelled           Error = 6
)

var errorMapping = make(map[Error]string)

func (e Error) String() string {
	str, ok := errorMapping[e]
	if !ok {
		return "ErrorUnknown"
	}
	return str
}

func init() {
	errorMapping[ErrorNone] = "ErrorNone"
	errorMapping[ErrorUnknown] = "ErrorUnknown"
	errorMapping[ErrorInvalidArgument] = "ErrorInvalidArgument"
	errorMapping[ErrorInvalidOperation] = "ErrorInvalidOperation"
	errorMapping[ErrorOutOfMemory] = "ErrorOutOfMemory"
	errorMapping[ErrorUnsupportedHardware] = "ErrorUnsupportedHardware"
	errorMapping[ErrorCancelled] = "ErrorCancelled"
}

// ExternalMemoryTypeFlags mirror OIDNExternalMemoryTypeFlag. A device
// advertises the set of handle types it can import via the
// "externalMemoryTypes" device parameter.
type ExternalMemoryTypeFlags int32

const (
	ExternalMemoryTypeNone             ExternalMemoryTypeFlags = 0
	ExternalMemoryTypeOpaqueFD         ExternalMemoryTypeFlags = 1 << 0
	ExternalMemoryTypeDMABuf           ExternalMemoryTypeFlags = 1 << 1
	ExternalMemoryTypeOpaqueWin32      ExternalMemoryTypeFlags = 1 << 2
	ExternalMemoryTypeOpaqueWin32KMT   ExternalMemoryTypeFlags = 1 << 3
	ExternalMemoryTypeD3D11Texture     ExternalMemoryTypeFlags = 1 << 4
	ExternalMemoryTypeD3D11TextureKMT  ExternalMemoryTypeFlags = 1 << 5
	ExternalMemoryTypeD3D11Resource    ExternalMemoryTypeFlags = 1 << 6
	ExternalMemoryTypeD3D11ResourceKMT ExternalMemoryTypeFlags = 1 << 7
	ExternalMemoryTypeD3D12Heap        ExternalMemoryTypeFlags = 1 << 8
	ExternalMemoryTypeD3D12Resource    ExternalMemoryTypeFlags = 1 << 9
)

// Format mirrors OIDNFormat for filter image bindings.
type Format int32

const (
	FormatUndefined Format = 0
	FormatFloat     Format = 1
	FormatFloat2    Format = 2
	FormatFloat3    Format = 3
	FormatFloat4    Format = 4
)
