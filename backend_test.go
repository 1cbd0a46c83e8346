package interop

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBackendString(t *testing.T) {
	require.Equal(t, "BackendVulkan", BackendVulkan.String())
	require.Equal(t, "BackendDX12", BackendDX12.String())
	require.Equal(t, "BackendUnknown", BackendUnknown.String())
	require.Equal(t, "BackendUnknown", Backend(77).String())
}

func TestQueueAccessorsEnforceBackend(t *testing.T) {
	queue := Queue{backend: BackendVulkan}
	require.Equal(t, BackendVulkan, queue.Backend())
	require.NotPanics(t, func() { queue.Vulkan() })
	require.Panics(t, func() { queue.D3D12() })

	queue = Queue{backend: BackendDX12}
	require.Panics(t, func() { queue.Vulkan() })
	require.NotPanics(t, func() { queue.D3D12() })
}

func TestSharedBufferAccessorsEnforceBackend(t *testing.T) {
	buffer := &SharedBuffer{backend: BackendVulkan}
	require.NotPanics(t, func() { buffer.VulkanBuffer() })
	require.NotPanics(t, func() { buffer.VulkanMemory() })
	require.Panics(t, func() { buffer.D3D12Resource() })

	buffer = &SharedBuffer{backend: BackendDX12}
	require.Panics(t, func() { buffer.VulkanBuffer() })
	require.NotPanics(t, func() { buffer.D3D12Resource() })
}
