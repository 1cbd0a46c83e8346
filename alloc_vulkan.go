package interop

import (
	"github.com/cockroachdb/errors"
	"github.com/oidn-go/interop/oidn"
	"github.com/vkngwrapper/arsenal/memutils"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_external_memory"
)

// allocateSharedVulkan creates one exportable device-memory allocation
// and imports it into OIDN, so both APIs see the same bytes. Any
// failure after a native resource has been acquired rolls that resource
// back before returning, so device memory is never leaked on the error
// path.
func (d *Device) allocateSharedVulkan(size int) (buf *SharedBuffer, err error) {
	if d.backend != BackendVulkan {
		panic("the Vulkan allocator was dispatched on a " + d.backend.String() + " device")
	}

	d.reapClears(false)

	// The buffer object is created first so its memory requirements can
	// drive the allocation.
	bufferInfo := core1_0.BufferCreateInfo{
		Size:        size,
		Usage:       core1_0.BufferUsageTransferSrc | core1_0.BufferUsageTransferDst,
		SharingMode: core1_0.SharingModeExclusive,
	}
	var externalMemoryInfo khr_external_memory.ExternalMemoryBufferCreateInfo
	externalMemoryInfo.HandleTypes = vulkanExternalHandleType()
	externalMemoryInfo.Next = bufferInfo.Next
	bufferInfo.Next = externalMemoryInfo

	buffer, _, err := d.vkDevice.CreateBuffer(d.callbacks, bufferInfo)
	if err != nil {
		return nil, errors.Mark(err, ErrOutOfMemory)
	}
	defer func() {
		if err != nil {
			buffer.Destroy(d.callbacks)
		}
	}()

	requirements := buffer.MemoryRequirements()
	alignedSize := memutils.AlignUp(size, uint(requirements.Alignment))
	if alignedSize < requirements.Size {
		alignedSize = requirements.Size
	}

	memoryTypeIndex, err := d.findExportableMemoryType(requirements.MemoryTypeBits)
	if err != nil {
		return nil, err
	}

	allocInfo := core1_0.MemoryAllocateInfo{
		AllocationSize:  alignedSize,
		MemoryTypeIndex: memoryTypeIndex,
	}
	appendExportAllocateOptions(&allocInfo)

	memory, _, err := d.vkDevice.AllocateMemory(d.callbacks, allocInfo)
	if err != nil {
		return nil, errors.Mark(err, ErrOutOfMemory)
	}
	defer func() {
		if err != nil {
			memory.Free(d.callbacks)
		}
	}()

	_, err = buffer.BindBufferMemory(memory, 0)
	if err != nil {
		return nil, errors.Mark(err, ErrOutOfMemory)
	}

	osHandle, err := d.exportMemory(memory)
	if err != nil {
		return nil, errors.Mark(err, ErrOutOfMemory)
	}
	defer func() {
		if err != nil {
			closeExportedHandle(osHandle)
		}
	}()

	rawEngineBuffer := d.importEngineBuffer(osHandle, size)
	if rawEngineBuffer == 0 {
		code, message := d.oidnDevice.Error()
		return nil, &OidnError{Code: code, Message: message}
	}
	engineBuffer := oidn.BufferFromRaw(d.engine, rawEngineBuffer)
	defer func() {
		if err != nil {
			engineBuffer.Release()
		}
	}()

	// Fresh device memory has undefined contents; clear it before the
	// buffer is ever observable. The submission is not waited on here.
	// Callers synchronize via WaitForGraphics.
	err = d.submitClear(buffer)
	if err != nil {
		return nil, errors.Mark(err, ErrOutOfMemory)
	}

	id := d.registry.register(allocationRecord{
		Size:            size,
		AllocationSize:  alignedSize,
		MemoryTypeIndex: memoryTypeIndex,
	})

	return &SharedBuffer{
		device:     d,
		id:         id,
		backend:    BackendVulkan,
		size:       size,
		osHandle:   osHandle,
		vkMemory:   memory,
		vkBuffer:   buffer,
		oidnBuffer: engineBuffer,
	}, nil
}

// findExportableMemoryType picks the lowest-indexed memory type that is
// both acceptable to the buffer and device-local. There is no fallback
// to non-device-local memory.
func (d *Device) findExportableMemoryType(memoryTypeBits uint32) (int, error) {
	memoryProperties := d.vkPhysicalDevice.MemoryProperties()

	for memoryTypeIndex, memoryType := range memoryProperties.MemoryTypes {
		typeBit := uint32(1) << memoryTypeIndex
		if memoryTypeBits&typeBit == 0 {
			continue
		}
		if memoryType.PropertyFlags&core1_0.MemoryPropertyDeviceLocal != core1_0.MemoryPropertyDeviceLocal {
			continue
		}
		return memoryTypeIndex, nil
	}

	return 0, errors.Wrap(ErrOutOfMemory, "no device-local memory type accepts this buffer")
}

// VK_WHOLE_SIZE. The size argument passes through driver.VkDeviceSize,
// where -1 wraps to the sentinel.
const wholeBufferSize = -1

// submitClear records and submits a fill of the buffer's whole range
// with zeroes. The transient pool and fence are reclaimed once the
// submission retires.
func (d *Device) submitClear(buffer core1_0.Buffer) error {
	pool, _, err := d.vkDevice.CreateCommandPool(d.callbacks, core1_0.CommandPoolCreateInfo{
		Flags:            core1_0.CommandPoolCreateTransient,
		QueueFamilyIndex: d.queueFamilyIndex,
	})
	if err != nil {
		return err
	}

	commandBuffers, _, err := d.vkDevice.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        pool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		pool.Destroy(d.callbacks)
		return err
	}
	commandBuffer := commandBuffers[0]

	_, err = commandBuffer.Begin(core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	if err != nil {
		pool.Destroy(d.callbacks)
		return err
	}
	commandBuffer.CmdFillBuffer(buffer, 0, wholeBufferSize, 0)
	_, err = commandBuffer.End()
	if err != nil {
		pool.Destroy(d.callbacks)
		return err
	}

	fence, _, err := d.vkDevice.CreateFence(d.callbacks, core1_0.FenceCreateInfo{})
	if err != nil {
		pool.Destroy(d.callbacks)
		return err
	}

	_, err = d.vkQueue.Submit(fence, []core1_0.SubmitInfo{
		{CommandBuffers: []core1_0.CommandBuffer{commandBuffer}},
	})
	if err != nil {
		fence.Destroy(d.callbacks)
		pool.Destroy(d.callbacks)
		return err
	}

	d.pendingClears = append(d.pendingClears, pendingClear{fence: fence, pool: pool})
	return nil
}
