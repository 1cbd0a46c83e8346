package interop

import (
	"github.com/cockroachdb/errors"
	"github.com/oidn-go/interop/internal/d3d12"
	"github.com/oidn-go/interop/oidn"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/driver"
	"golang.org/x/exp/slog"
)

// Device is a paired (graphics device, OIDN device) bound to the same
// physical device, so that shared allocations made from it are visible
// to both APIs. It is the sole owner of both underlying devices for its
// lifetime; Destroy releases them jointly.
//
// Device is not safe for concurrent mutation. The queue handle returned
// by CreateDevice may be used concurrently with submissions, per the
// underlying graphics API's queue rules.
type Device struct {
	logger  *slog.Logger
	backend Backend

	engine     oidn.Driver
	oidnDevice *oidn.Device
	// Intersection of the engine's advertised external-memory types and
	// the platform's required flag, computed at pairing time.
	supportedMemoryTypes oidn.ExternalMemoryTypeFlags

	// Vulkan backend state.
	vkInstance       core1_0.Instance
	vkPhysicalDevice core1_0.PhysicalDevice
	vkDevice         core1_0.Device
	vkQueue          core1_0.Queue
	queueFamilyIndex int
	callbacks        *driver.AllocationCallbacks
	exportMemory     func(core1_0.DeviceMemory) (uintptr, error)
	pendingClears    []pendingClear

	// Direct3D 12 backend state.
	dxDevice *d3d12.Device
	dxQueue  *d3d12.CommandQueue

	registry *allocationRegistry
}

// pendingClear tracks an in-flight zero-fill submission. The transient
// pool owns the submission's command buffer; both are destroyed once
// the fence signals.
type pendingClear struct {
	fence core1_0.Fence
	pool  core1_0.CommandPool
}

// CreateDevice pairs a graphics device and an OIDN device on the
// adapter's physical device. On success the Device owns both handles
// and the returned Queue is a clone of the device's execution queue.
//
// Every failure path releases any engine-side handle acquired before
// returning; no partially-constructed Device is ever exposed.
func CreateDevice(adapter Adapter, opts CreateOptions) (*Device, Queue, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("CreateDevice")

	switch adapter.Backend {
	case BackendVulkan:
		return newVulkanDevice(adapter, opts, logger)
	case BackendDX12:
		return newDX12Device(adapter, opts, logger)
	}
	return nil, Queue{}, errors.Wrapf(ErrUnsupportedBackend, "adapter backend %s", adapter.Backend)
}

// adoptEngineDevice commits a freshly-created OIDN device handle and
// verifies it can import the platform's handle type. On any failure the
// handle is released before the error returns.
func (d *Device) adoptEngineDevice(raw oidn.DeviceHandle, required oidn.ExternalMemoryTypeFlags) error {
	if raw == 0 {
		return ErrOidnUnsupported
	}

	d.engine.CommitDevice(raw)
	supported := oidn.ExternalMemoryTypeFlags(d.engine.GetDeviceInt(raw, "externalMemoryTypes"))
	if supported&required == 0 {
		d.engine.ReleaseDevice(raw)
		return ErrOidnImportUnsupported
	}

	d.supportedMemoryTypes = supported & required
	d.oidnDevice = oidn.DeviceFromRaw(d.engine, raw)
	return nil
}

// AllocateSharedBuffer allocates a single block of device-local memory
// of the given byte size, visible to both the graphics API and OIDN.
// The buffer is zero-initialized; for the Vulkan backend the clear is
// submitted to the device's queue without waiting, so callers must
// synchronize (WaitForGraphics) before relying on its contents.
func (d *Device) AllocateSharedBuffer(size int) (*SharedBuffer, error) {
	d.logger.Debug("Device::AllocateSharedBuffer")

	if size <= 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "size %d", size)
	}

	switch d.backend {
	case BackendVulkan:
		return d.allocateSharedVulkan(size)
	case BackendDX12:
		return d.allocateSharedDX12(size)
	}
	panic("device has no backend tag")
}

// Backend returns the native ecosystem this device was created under.
func (d *Device) Backend() Backend {
	return d.backend
}

// OidnDevice returns the paired OIDN device.
func (d *Device) OidnDevice() *oidn.Device {
	return d.oidnDevice
}

// VulkanDevice returns the underlying Vulkan logical device. Panics on
// a non-Vulkan device.
func (d *Device) VulkanDevice() core1_0.Device {
	if d.backend != BackendVulkan {
		panic("requested the Vulkan device of a " + d.backend.String() + " device")
	}
	return d.vkDevice
}

// VulkanPhysicalDevice returns the physical device this Device was
// paired on. Panics on a non-Vulkan device.
func (d *Device) VulkanPhysicalDevice() core1_0.PhysicalDevice {
	if d.backend != BackendVulkan {
		panic("requested the Vulkan physical device of a " + d.backend.String() + " device")
	}
	return d.vkPhysicalDevice
}

// D3D12Device returns the underlying Direct3D 12 device. Panics on a
// non-DX12 device.
func (d *Device) D3D12Device() *d3d12.Device {
	if d.backend != BackendDX12 {
		panic("requested the D3D12 device of a " + d.backend.String() + " device")
	}
	return d.dxDevice
}

// WaitForGraphics blocks until all graphics work submitted to the
// device's queue so far has retired. This is the required barrier
// between a graphics-side write to a shared buffer and any OIDN
// operation reading that memory. The reverse direction needs no wait:
// OIDN filter execution blocks the calling goroutine by itself.
func (d *Device) WaitForGraphics() error {
	d.logger.Debug("Device::WaitForGraphics")

	switch d.backend {
	case BackendVulkan:
		_, err := d.vkQueue.WaitIdle()
		if err != nil {
			return err
		}
		d.reapClears(false)
		return nil
	case BackendDX12:
		return d.dxQueue.WaitIdle()
	}
	panic("device has no backend tag")
}

// reapClears destroys the fence and transient pool of every zero-fill
// submission that has retired. With force set, unfinished submissions
// are reaped too; only valid after the queue has been drained.
func (d *Device) reapClears(force bool) {
	remaining := d.pendingClears[:0]
	for _, clear := range d.pendingClears {
		done := force
		if !done {
			res, err := clear.fence.Status()
			done = err == nil && res == core1_0.VKSuccess
		}
		if done {
			clear.fence.Destroy(d.callbacks)
			clear.pool.Destroy(d.callbacks)
		} else {
			remaining = append(remaining, clear)
		}
	}
	d.pendingClears = remaining
}

// Destroy drains the device, releases the OIDN device, and destroys the
// graphics device. Buffers allocated from the device must be destroyed
// first.
func (d *Device) Destroy() {
	d.logger.Debug("Device::Destroy")

	if live := d.registry.count(); live != 0 {
		d.logger.Debug("Device::Destroy with live shared buffers", slog.Int("count", live))
	}

	switch d.backend {
	case BackendVulkan:
		if d.vkQueue != nil {
			_, _ = d.vkQueue.WaitIdle()
		}
		d.reapClears(true)
		d.oidnDevice.Release()
		if d.vkDevice != nil {
			d.vkDevice.Destroy(d.callbacks)
			d.vkDevice = nil
		}
	case BackendDX12:
		if d.dxQueue != nil {
			_ = d.dxQueue.WaitIdle()
			d.dxQueue.Release()
			d.dxQueue = nil
		}
		d.oidnDevice.Release()
		if d.dxDevice != nil {
			d.dxDevice.Release()
			d.dxDevice = nil
		}
	}
}
