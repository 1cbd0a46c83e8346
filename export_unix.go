//go:build linux || darwin

package interop

import (
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/ebitengine/purego"
	"golang.org/x/sys/unix"

	"github.com/oidn-go/interop/oidn"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_external_memory"
	"github.com/vkngwrapper/extensions/v2/khr_external_memory_capabilities"
)

// On POSIX platforms shared allocations travel as opaque file
// descriptors.
//
// extensions/v2 wraps the allocation-side structs (ExportMemoryAllocateInfo)
// but not the handle-export entry point, so vkGetMemoryFdKHR is reached
// through the device's own proc address.

const vulkanExternalMemoryExtension = "VK_KHR_external_memory_fd"

func vulkanExternalHandleType() khr_external_memory_capabilities.ExternalMemoryHandleTypeFlags {
	return khr_external_memory_capabilities.ExternalMemoryHandleTypeOpaqueFD
}

func requiredExternalMemoryType() oidn.ExternalMemoryTypeFlags {
	return oidn.ExternalMemoryTypeOpaqueFD
}

func vulkanExternalMemoryDeviceExtensions() []string {
	return []string{
		khr_external_memory.ExtensionName,
		vulkanExternalMemoryExtension,
	}
}

func appendExportAllocateOptions(allocInfo *core1_0.MemoryAllocateInfo) {
	var exportInfo khr_external_memory.ExportMemoryAllocateInfo
	exportInfo.HandleTypes = vulkanExternalHandleType()
	exportInfo.Next = allocInfo.Next
	allocInfo.Next = exportInfo
}

const (
	// VK_STRUCTURE_TYPE_MEMORY_GET_FD_INFO_KHR
	structureTypeMemoryGetFdInfo = 1000074002
	// VK_EXTERNAL_MEMORY_HANDLE_TYPE_OPAQUE_FD_BIT
	externalMemoryHandleTypeOpaqueFDBit = 0x1
)

// vkMemoryGetFdInfo mirrors VkMemoryGetFdInfoKHR.
type vkMemoryGetFdInfo struct {
	sType      uint32
	_          [4]byte
	pNext      unsafe.Pointer
	memory     uint64
	handleType uint32
	_          [4]byte
}

var (
	loadVulkanOnce      sync.Once
	vulkanLoadErr       error
	vkGetDeviceProcAddr func(device uintptr, name string) uintptr
)

func loadVulkanLoader() error {
	loadVulkanOnce.Do(func() {
		names := []string{
			"libvulkan.so.1",
			"libvulkan.so",
			"libvulkan.1.dylib",
			"libvulkan.dylib",
			"libMoltenVK.dylib",
		}

		var lib uintptr
		var lastErr error
		for _, name := range names {
			lib, lastErr = purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
			if lastErr == nil {
				break
			}
			lib = 0
		}
		if lib == 0 {
			vulkanLoadErr = errors.Wrap(lastErr, "unable to locate the Vulkan loader")
			return
		}
		purego.RegisterLibFunc(&vkGetDeviceProcAddr, lib, "vkGetDeviceProcAddr")
	})
	return vulkanLoadErr
}

// exportVulkanMemoryHandle extracts a file descriptor referencing the
// allocation via vkGetMemoryFdKHR. The descriptor is owned by the
// caller and stays valid independently of the DeviceMemory it came
// from.
func (d *Device) exportVulkanMemoryHandle(memory core1_0.DeviceMemory) (uintptr, error) {
	if err := loadVulkanLoader(); err != nil {
		return 0, err
	}

	deviceHandle := rawVulkanHandle(d.vkDevice.Handle())
	getMemoryFd := vkGetDeviceProcAddr(deviceHandle, "vkGetMemoryFdKHR")
	if getMemoryFd == 0 {
		return 0, errors.New("the Vulkan driver does not provide vkGetMemoryFdKHR")
	}

	info := vkMemoryGetFdInfo{
		sType:      structureTypeMemoryGetFdInfo,
		memory:     uint64(rawVulkanHandle(memory.Handle())),
		handleType: externalMemoryHandleTypeOpaqueFDBit,
	}
	var fd int32
	res, _, _ := purego.SyscallN(getMemoryFd,
		deviceHandle,
		uintptr(unsafe.Pointer(&info)),
		uintptr(unsafe.Pointer(&fd)),
	)
	if int32(res) != 0 {
		return 0, errors.Newf("vkGetMemoryFdKHR failed with VkResult %d", int32(res))
	}
	return uintptr(fd), nil
}

func (d *Device) importEngineBuffer(osHandle uintptr, size int) oidn.BufferHandle {
	return d.engine.NewSharedBufferFromFD(d.oidnDevice.Raw(), d.supportedMemoryTypes, int(osHandle), size)
}

func closeExportedHandle(handle uintptr) {
	_ = unix.Close(int(handle))
}
