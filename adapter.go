package interop

import (
	"github.com/oidn-go/interop/internal/d3d12"
	"github.com/oidn-go/interop/oidn"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/driver"
	"golang.org/x/exp/slog"
)

// Adapter is a physical device handle in one of the supported native
// ecosystems, tagged with its backend kind. Exactly the fields for the
// tagged backend must be populated.
type Adapter struct {
	Backend Backend

	// Vulkan backend. Instance must be the instance PhysicalDevice was
	// enumerated from.
	Instance       core1_0.Instance
	PhysicalDevice core1_0.PhysicalDevice

	// Direct3D 12 backend.
	DXGIAdapter *d3d12.Adapter
}

// CreateOptions carries optional settings for CreateDevice.
type CreateOptions struct {
	// Logger receives call tracing at debug level. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// Engine overrides the OIDN driver. When nil, the shared library is
	// loaded via oidn.DefaultDriver.
	Engine oidn.Driver

	// VulkanDeviceInfo is the caller's descriptor for the Vulkan logical
	// device. The external-memory extensions this module needs are
	// appended to it, and a single default queue on QueueFamilyIndex is
	// added when no queue create infos are given.
	VulkanDeviceInfo core1_0.DeviceCreateInfo

	// QueueFamilyIndex selects the queue family used for the device's
	// execution queue and the allocator's zero-fill submissions. The
	// family must support transfer operations.
	QueueFamilyIndex int

	// VulkanCallbacks is an optional set of host allocation callbacks
	// applied to every Vulkan object this module creates.
	VulkanCallbacks *driver.AllocationCallbacks
}

// Queue is the paired device's execution queue handle. The value is
// cloneable and safe to use concurrently with submissions, per the
// underlying API's own queue-sharing rules.
type Queue struct {
	backend Backend
	vulkan  core1_0.Queue
	dx12    *d3d12.CommandQueue
}

// Backend returns which native ecosystem the queue belongs to.
func (q Queue) Backend() Backend {
	return q.backend
}

// Vulkan returns the underlying Vulkan queue. Panics if the queue was
// not created under the Vulkan backend.
func (q Queue) Vulkan() core1_0.Queue {
	if q.backend != BackendVulkan {
		panic("requested a Vulkan queue from a " + q.backend.String() + " device")
	}
	return q.vulkan
}

// D3D12 returns the underlying Direct3D 12 command queue. Panics if the
// queue was not created under the DX12 backend.
func (q Queue) D3D12() *d3d12.CommandQueue {
	if q.backend != BackendDX12 {
		panic("requested a D3D12 queue from a " + q.backend.String() + " device")
	}
	return q.dx12
}
