package oidn

// Device wraps a committed OIDN device handle together with the Driver
// that produced it.
type Device struct {
	driver Driver
	handle DeviceHandle
}

// DeviceFromRaw adopts an already-created device handle. Ownership of
// the handle transfers to the returned Device; it is released by
// Release.
func DeviceFromRaw(driver Driver, handle DeviceHandle) *Device {
	if handle == 0 {
		panic("attempted to adopt a null device handle")
	}
	return &Device{driver: driver, handle: handle}
}

// Driver returns the Driver this device was created from.
func (d *Device) Driver() Driver {
	return d.driver
}

// Raw returns the underlying OIDNDevice handle.
func (d *Device) Raw() DeviceHandle {
	return d.handle
}

// Commit finalizes device construction. Must be called before buffers
// or filters are created from the device.
func (d *Device) Commit() {
	d.driver.CommitDevice(d.handle)
}

// ExternalMemoryTypes returns the set of external-memory handle types
// the committed device can import.
func (d *Device) ExternalMemoryTypes() ExternalMemoryTypeFlags {
	return ExternalMemoryTypeFlags(d.driver.GetDeviceInt(d.handle, "externalMemoryTypes"))
}

// Error returns the device's last error code and message, clearing it.
func (d *Device) Error() (Error, string) {
	return d.driver.GetDeviceError(d.handle)
}

// Release drops this wrapper's reference on the device.
func (d *Device) Release() {
	if d.handle == 0 {
		return
	}
	d.driver.ReleaseDevice(d.handle)
	d.handle = 0
}
