package interop

import (
	"github.com/oidn-go/interop/internal/d3d12"
	"github.com/oidn-go/interop/oidn"
	"github.com/vkngwrapper/core/v2/core1_0"
	"golang.org/x/exp/slog"
)

// SharedBuffer is a single allocation of device-local memory visible to
// both the graphics API and OIDN. The graphics-side object and the OIDN
// buffer alias the same bytes; writes on one side become visible to the
// other only after the appropriate synchronization (WaitForGraphics for
// graphics writes, filter completion for OIDN writes).
//
// A SharedBuffer must be destroyed before the Device it came from.
type SharedBuffer struct {
	device  *Device
	id      uint64
	backend Backend
	size    int

	// osHandle is the exported OS handle the OIDN import was made from.
	// It stays open for the buffer's lifetime and is closed by Destroy.
	osHandle uintptr

	vkMemory core1_0.DeviceMemory
	vkBuffer core1_0.Buffer

	dxResource *d3d12.Resource

	oidnBuffer *oidn.Buffer
}

// Size returns the byte size the buffer was requested with. The
// underlying allocation may be larger to satisfy alignment.
func (b *SharedBuffer) Size() int {
	return b.size
}

// Backend returns the native ecosystem this buffer belongs to. It
// always matches the backend of the Device it was allocated from.
func (b *SharedBuffer) Backend() Backend {
	return b.backend
}

// OidnBuffer returns the engine-side view of the allocation.
func (b *SharedBuffer) OidnBuffer() *oidn.Buffer {
	return b.oidnBuffer
}

// VulkanBuffer returns the Vulkan buffer bound to the allocation.
// Panics on a non-Vulkan buffer.
func (b *SharedBuffer) VulkanBuffer() core1_0.Buffer {
	if b.backend != BackendVulkan {
		panic("requested the Vulkan buffer of a " + b.backend.String() + " buffer")
	}
	return b.vkBuffer
}

// VulkanMemory returns the device memory backing the allocation.
// Panics on a non-Vulkan buffer.
func (b *SharedBuffer) VulkanMemory() core1_0.DeviceMemory {
	if b.backend != BackendVulkan {
		panic("requested the Vulkan memory of a " + b.backend.String() + " buffer")
	}
	return b.vkMemory
}

// D3D12Resource returns the committed resource backing the allocation.
// Panics on a non-DX12 buffer.
func (b *SharedBuffer) D3D12Resource() *d3d12.Resource {
	if b.backend != BackendDX12 {
		panic("requested the D3D12 resource of a " + b.backend.String() + " buffer")
	}
	return b.dxResource
}

// Destroy releases both views of the allocation and the memory behind
// them. The graphics object goes first so the memory is unbound before
// it is freed, then the engine buffer, the backing memory, and finally
// the exported OS handle. All graphics work touching the buffer must
// have retired; callers synchronize with WaitForGraphics.
func (b *SharedBuffer) Destroy() {
	b.device.logger.Debug("SharedBuffer::Destroy", slog.Uint64("id", b.id))

	switch b.backend {
	case BackendVulkan:
		if b.vkBuffer != nil {
			b.vkBuffer.Destroy(b.device.callbacks)
			b.vkBuffer = nil
		}
		b.oidnBuffer.Release()
		if b.vkMemory != nil {
			b.vkMemory.Free(b.device.callbacks)
			b.vkMemory = nil
		}
	case BackendDX12:
		b.oidnBuffer.Release()
		if b.dxResource != nil {
			b.dxResource.Release()
			b.dxResource = nil
		}
	}

	if b.osHandle != 0 {
		closeExportedHandle(b.osHandle)
		b.osHandle = 0
	}

	b.device.registry.unregister(b.id)
}
