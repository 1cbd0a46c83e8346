//go:build windows

package interop

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

// VkMemoryGetWin32HandleInfoKHR is passed straight to the driver, so
// the Go struct must match the C layout field for field.
func TestMemoryGetWin32HandleInfoLayout(t *testing.T) {
	var info vkMemoryGetWin32HandleInfo
	require.Equal(t, uintptr(32), unsafe.Sizeof(info))
	require.Equal(t, uintptr(0), unsafe.Offsetof(info.sType))
	require.Equal(t, uintptr(8), unsafe.Offsetof(info.pNext))
	require.Equal(t, uintptr(16), unsafe.Offsetof(info.memory))
	require.Equal(t, uintptr(24), unsafe.Offsetof(info.handleType))
}

func TestWindowsExternalMemoryExtensionNames(t *testing.T) {
	require.Equal(t, "VK_KHR_external_memory_win32", vulkanExternalMemoryExtension)
	require.Equal(t,
		[]string{"VK_KHR_external_memory", "VK_KHR_external_memory_win32"},
		vulkanExternalMemoryDeviceExtensions())
}
