package oidn

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

// recordingDriver is an in-memory Driver. Buffers are backed by byte
// slices so reads and writes can be verified.
type recordingDriver struct {
	externalMemoryTypes int
	filterHandle        FilterHandle
	lastError           Error
	lastErrorMessage    string

	nextBuffer      BufferHandle
	buffers         map[BufferHandle][]byte
	releasedDevices []DeviceHandle
	releasedBuffers []BufferHandle
	releasedFilters []FilterHandle
	committedFilter []FilterHandle
	executedFilters []FilterHandle
	boolParams      map[string]bool
}

func newRecordingDriver() *recordingDriver {
	return &recordingDriver{
		buffers:    make(map[BufferHandle][]byte),
		boolParams: make(map[string]bool),
	}
}

func (d *recordingDriver) addBuffer(size int) BufferHandle {
	d.nextBuffer++
	d.buffers[d.nextBuffer] = make([]byte, size)
	return d.nextBuffer
}

func (d *recordingDriver) NewDeviceByUUID(uuid [16]byte) DeviceHandle { return 1 }
func (d *recordingDriver) NewDeviceByLUID(luid [8]byte) DeviceHandle  { return 1 }
func (d *recordingDriver) CommitDevice(device DeviceHandle)           {}

func (d *recordingDriver) GetDeviceInt(device DeviceHandle, name string) int {
	if name == "externalMemoryTypes" {
		return d.externalMemoryTypes
	}
	return 0
}

func (d *recordingDriver) GetDeviceError(device DeviceHandle) (Error, string) {
	code, message := d.lastError, d.lastErrorMessage
	d.lastError, d.lastErrorMessage = ErrorNone, ""
	return code, message
}

func (d *recordingDriver) RetainDevice(device DeviceHandle) {}

func (d *recordingDriver) ReleaseDevice(device DeviceHandle) {
	d.releasedDevices = append(d.releasedDevices, device)
}

func (d *recordingDriver) NewSharedBufferFromFD(device DeviceHandle, fdType ExternalMemoryTypeFlags, fd int, byteSize int) BufferHandle {
	return d.addBuffer(byteSize)
}

func (d *recordingDriver) NewSharedBufferFromWin32Handle(device DeviceHandle, handleType ExternalMemoryTypeFlags, handle uintptr, byteSize int) BufferHandle {
	return d.addBuffer(byteSize)
}

func (d *recordingDriver) GetBufferSize(buffer BufferHandle) int {
	return len(d.buffers[buffer])
}

func (d *recordingDriver) ReadBuffer(buffer BufferHandle, byteOffset int, byteSize int, dst unsafe.Pointer) {
	copy(unsafe.Slice((*byte)(dst), byteSize), d.buffers[buffer][byteOffset:])
}

func (d *recordingDriver) WriteBuffer(buffer BufferHandle, byteOffset int, byteSize int, src unsafe.Pointer) {
	copy(d.buffers[buffer][byteOffset:], unsafe.Slice((*byte)(src), byteSize))
}

func (d *recordingDriver) ReleaseBuffer(buffer BufferHandle) {
	d.releasedBuffers = append(d.releasedBuffers, buffer)
}

func (d *recordingDriver) NewFilter(device DeviceHandle, filterType string) FilterHandle {
	return d.filterHandle
}

func (d *recordingDriver) SetFilterImage(filter FilterHandle, name string, buffer BufferHandle, format Format, width, height, byteOffset, pixelByteStride, rowByteStride int) {
}

func (d *recordingDriver) SetFilterBool(filter FilterHandle, name string, value bool) {
	d.boolParams[name] = value
}

func (d *recordingDriver) CommitFilter(filter FilterHandle) {
	d.committedFilter = append(d.committedFilter, filter)
}

func (d *recordingDriver) ExecuteFilter(filter FilterHandle) {
	d.executedFilters = append(d.executedFilters, filter)
}

func (d *recordingDriver) ReleaseFilter(filter FilterHandle) {
	d.releasedFilters = append(d.releasedFilters, filter)
}

func TestDeviceReleaseIsIdempotent(t *testing.T) {
	driver := newRecordingDriver()
	device := DeviceFromRaw(driver, 1)

	device.Release()
	device.Release()
	require.Equal(t, []DeviceHandle{1}, driver.releasedDevices)
}

func TestDeviceFromRawRejectsNullHandle(t *testing.T) {
	require.Panics(t, func() {
		DeviceFromRaw(newRecordingDriver(), 0)
	})
}

func TestDeviceExternalMemoryTypes(t *testing.T) {
	driver := newRecordingDriver()
	driver.externalMemoryTypes = int(ExternalMemoryTypeOpaqueFD | ExternalMemoryTypeDMABuf)
	device := DeviceFromRaw(driver, 1)

	require.Equal(t, ExternalMemoryTypeOpaqueFD|ExternalMemoryTypeDMABuf, device.ExternalMemoryTypes())
}

func TestBufferReadWriteRoundTrip(t *testing.T) {
	driver := newRecordingDriver()
	buffer := BufferFromRaw(driver, driver.addBuffer(16))

	require.Equal(t, 16, buffer.Size())
	require.NoError(t, buffer.Write(4, []byte{1, 2, 3, 4}))

	dst := make([]byte, 4)
	require.NoError(t, buffer.Read(4, dst))
	require.Equal(t, []byte{1, 2, 3, 4}, dst)
}

func TestBufferRejectsOutOfBoundsAccess(t *testing.T) {
	driver := newRecordingDriver()
	buffer := BufferFromRaw(driver, driver.addBuffer(16))

	require.Error(t, buffer.Read(12, make([]byte, 8)))
	require.Error(t, buffer.Read(-1, make([]byte, 4)))
	require.Error(t, buffer.Write(16, []byte{1}))

	// Empty transfers are always in bounds.
	require.NoError(t, buffer.Read(16, nil))
	require.NoError(t, buffer.Write(0, nil))
}

func TestFilterCreationFailure(t *testing.T) {
	driver := newRecordingDriver()
	driver.filterHandle = 0
	driver.lastError = ErrorInvalidArgument
	driver.lastErrorMessage = "unknown filter type"
	device := DeviceFromRaw(driver, 1)

	_, err := NewRayTracingFilter(device)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown filter type")
}

func TestFilterExecute(t *testing.T) {
	driver := newRecordingDriver()
	driver.filterHandle = 9
	device := DeviceFromRaw(driver, 1)

	filter, err := NewRayTracingFilter(device)
	require.NoError(t, err)

	filter.SetHDR(true)
	filter.Commit()
	require.NoError(t, filter.Execute())
	require.True(t, driver.boolParams["hdr"])
	require.Equal(t, []FilterHandle{9}, driver.committedFilter)
	require.Equal(t, []FilterHandle{9}, driver.executedFilters)

	// A device-side error after execution surfaces from Execute.
	driver.lastError = ErrorOutOfMemory
	driver.lastErrorMessage = "device allocation failed"
	require.Error(t, filter.Execute())

	filter.Release()
	require.Equal(t, []FilterHandle{9}, driver.releasedFilters)
}

func TestErrorString(t *testing.T) {
	require.Equal(t, "ErrorNone", ErrorNone.String())
	require.Equal(t, "ErrorUnsupportedHardware", ErrorUnsupportedHardware.String())
	require.Equal(t, "ErrorUnknown", Error(99).String())
}
