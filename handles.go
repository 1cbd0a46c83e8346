package interop

import "unsafe"

// rawVulkanHandle reinterprets a vkngwrapper handle as its pointer-sized
// integer value, for calling extension entry points the wrapper does not
// cover.
func rawVulkanHandle[H any](handle H) uintptr {
	return *(*uintptr)(unsafe.Pointer(&handle))
}
