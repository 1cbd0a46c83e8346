//go:build windows

package interop

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/windows"

	"github.com/oidn-go/interop/oidn"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_external_memory"
	"github.com/vkngwrapper/extensions/v2/khr_external_memory_capabilities"
)

// On Windows shared allocations travel as NT handles, which both the
// Vulkan driver and OIDN's DirectX-capable backends can open.
//
// extensions/v2 wraps the allocation-side structs (ExportMemoryAllocateInfo)
// but not the handle-export entry point, so vkGetMemoryWin32HandleKHR is
// reached through the device's own proc address.

const vulkanExternalMemoryExtension = "VK_KHR_external_memory_win32"

func vulkanExternalHandleType() khr_external_memory_capabilities.ExternalMemoryHandleTypeFlags {
	return khr_external_memory_capabilities.ExternalMemoryHandleTypeOpaqueWin32
}

func requiredExternalMemoryType() oidn.ExternalMemoryTypeFlags {
	return oidn.ExternalMemoryTypeOpaqueWin32
}

func vulkanExternalMemoryDeviceExtensions() []string {
	return []string{
		khr_external_memory.ExtensionName,
		vulkanExternalMemoryExtension,
	}
}

// Without a VkExportMemoryWin32HandleInfoKHR on the chain the driver
// issues the NT handle with read/write access and default security,
// which is exactly what the import side needs.
func appendExportAllocateOptions(allocInfo *core1_0.MemoryAllocateInfo) {
	var exportInfo khr_external_memory.ExportMemoryAllocateInfo
	exportInfo.HandleTypes = vulkanExternalHandleType()
	exportInfo.Next = allocInfo.Next
	allocInfo.Next = exportInfo
}

const (
	// VK_STRUCTURE_TYPE_MEMORY_GET_WIN32_HANDLE_INFO_KHR
	structureTypeMemoryGetWin32HandleInfo = 1000073003
	// VK_EXTERNAL_MEMORY_HANDLE_TYPE_OPAQUE_WIN32_BIT
	externalMemoryHandleTypeOpaqueWin32Bit = 0x2
)

// vkMemoryGetWin32HandleInfo mirrors VkMemoryGetWin32HandleInfoKHR.
type vkMemoryGetWin32HandleInfo struct {
	sType      uint32
	_          [4]byte
	pNext      unsafe.Pointer
	memory     uint64
	handleType uint32
	_          [4]byte
}

var (
	modVulkan               = windows.NewLazySystemDLL("vulkan-1.dll")
	procVkGetDeviceProcAddr = modVulkan.NewProc("vkGetDeviceProcAddr")
)

// exportVulkanMemoryHandle extracts an NT handle referencing the
// allocation via vkGetMemoryWin32HandleKHR. The handle is owned by the
// caller and stays valid independently of the DeviceMemory it came
// from.
func (d *Device) exportVulkanMemoryHandle(memory core1_0.DeviceMemory) (uintptr, error) {
	if err := procVkGetDeviceProcAddr.Find(); err != nil {
		return 0, errors.Wrap(err, "unable to locate the Vulkan loader")
	}

	deviceHandle := rawVulkanHandle(d.vkDevice.Handle())
	name := append([]byte("vkGetMemoryWin32HandleKHR"), 0)
	getMemoryHandle, _, _ := procVkGetDeviceProcAddr.Call(
		deviceHandle,
		uintptr(unsafe.Pointer(&name[0])),
	)
	if getMemoryHandle == 0 {
		return 0, errors.New("the Vulkan driver does not provide vkGetMemoryWin32HandleKHR")
	}

	info := vkMemoryGetWin32HandleInfo{
		sType:      structureTypeMemoryGetWin32HandleInfo,
		memory:     uint64(rawVulkanHandle(memory.Handle())),
		handleType: externalMemoryHandleTypeOpaqueWin32Bit,
	}
	var handle windows.Handle
	res, _, _ := windows.SyscallN(getMemoryHandle,
		deviceHandle,
		uintptr(unsafe.Pointer(&info)),
		uintptr(unsafe.Pointer(&handle)),
	)
	if int32(res) != 0 {
		return 0, errors.Newf("vkGetMemoryWin32HandleKHR failed with VkResult %d", int32(res))
	}
	return uintptr(handle), nil
}

func (d *Device) importEngineBuffer(osHandle uintptr, size int) oidn.BufferHandle {
	return d.engine.NewSharedBufferFromWin32Handle(d.oidnDevice.Raw(), d.supportedMemoryTypes, osHandle, size)
}

func closeExportedHandle(handle uintptr) {
	_ = windows.CloseHandle(windows.Handle(handle))
}
