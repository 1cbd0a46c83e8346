package oidn

import "github.com/cockroachdb/errors"

// Filter wraps an OIDNFilter handle.
type Filter struct {
	driver Driver
	device *Device
	handle FilterHandle
}

// NewRayTracingFilter creates an "RT" (generic ray tracing denoise)
// filter on the device.
func NewRayTracingFilter(device *Device) (*Filter, error) {
	handle := device.driver.NewFilter(device.handle, "RT")
	if handle == 0 {
		code, message := device.Error()
		return nil, errors.Newf("filter creation failed with error %s: %s", code, message)
	}
	return &Filter{driver: device.driver, device: device, handle: handle}, nil
}

// SetImage binds a buffer-backed image to the named filter slot
// ("color", "albedo", "normal", "output").
func (f *Filter) SetImage(name string, buffer *Buffer, format Format, width, height int) {
	f.driver.SetFilterImage(f.handle, name, buffer.handle, format, width, height, 0, 0, 0)
}

// SetImageRegion is SetImage with explicit offset and strides, all in
// bytes. Zero strides let the engine derive them from the format.
func (f *Filter) SetImageRegion(name string, buffer *Buffer, format Format, width, height, byteOffset, pixelByteStride, rowByteStride int) {
	f.driver.SetFilterImage(f.handle, name, buffer.handle, format, width, height, byteOffset, pixelByteStride, rowByteStride)
}

// SetHDR marks the color image as high dynamic range.
func (f *Filter) SetHDR(hdr bool) {
	f.driver.SetFilterBool(f.handle, "hdr", hdr)
}

// Commit finalizes filter configuration. Must be called after any
// SetImage/Set* changes and before Execute.
func (f *Filter) Commit() {
	f.driver.CommitFilter(f.handle)
}

// Execute runs the filter, blocking the calling goroutine until the
// device has finished. Errors are reported through the device's
// last-error query.
func (f *Filter) Execute() error {
	f.driver.ExecuteFilter(f.handle)
	if code, message := f.device.Error(); code != ErrorNone {
		return errors.Newf("filter execution failed with error %s: %s", code, message)
	}
	return nil
}

// Release drops this wrapper's reference on the filter.
func (f *Filter) Release() {
	if f.handle == 0 {
		return
	}
	f.driver.ReleaseFilter(f.handle)
	f.handle = 0
}
