package interop

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/oidn-go/interop/oidn"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/core1_1"
	"golang.org/x/exp/slog"
)

// probeVulkanAdapter decides whether the physical device can take part
// in cross-API sharing and, if so, extracts its device UUID so a
// matching OIDN device can be requested.
//
// The gate is Vulkan 1.1 (needed for the extended property query and
// the core external-memory machinery) plus the platform's
// external-memory-handle device extension. Read-only; no side effects.
func probeVulkanAdapter(instance core1_0.Instance, physicalDevice core1_0.PhysicalDevice) (uuid.UUID, error) {
	properties, err := physicalDevice.Properties()
	if err != nil {
		return uuid.UUID{}, errors.Mark(err, ErrMissingFeature)
	}
	if properties.APIVersion < common.Vulkan1_1 {
		return uuid.UUID{}, errors.Wrapf(ErrMissingFeature, "physical device only supports Vulkan %s", properties.APIVersion)
	}

	extensions, _, err := physicalDevice.EnumerateDeviceExtensionProperties()
	if err != nil {
		return uuid.UUID{}, errors.Mark(err, ErrMissingFeature)
	}
	if _, supported := extensions[vulkanExternalMemoryExtension]; !supported {
		return uuid.UUID{}, errors.Wrapf(ErrMissingFeature, "physical device does not support %s", vulkanExternalMemoryExtension)
	}

	physicalDevice11 := core1_1.PromoteInstanceScopedPhysicalDevice(physicalDevice)
	if physicalDevice11 == nil {
		return uuid.UUID{}, errors.Wrap(ErrMissingFeature, "instance does not support the extended property query")
	}

	var idProperties core1_1.PhysicalDeviceIDProperties
	properties2 := core1_1.PhysicalDeviceProperties2{
		NextOutData: common.NextOutData{Next: &idProperties},
	}
	err = physicalDevice11.Properties2(&properties2)
	if err != nil {
		return uuid.UUID{}, errors.Mark(err, ErrMissingFeature)
	}

	return idProperties.DeviceUUID, nil
}

func newVulkanDevice(adapter Adapter, opts CreateOptions, logger *slog.Logger) (*Device, Queue, error) {
	if adapter.Instance == nil || adapter.PhysicalDevice == nil {
		panic("a Vulkan-tagged adapter requires both Instance and PhysicalDevice")
	}

	deviceUUID, err := probeVulkanAdapter(adapter.Instance, adapter.PhysicalDevice)
	if err != nil {
		return nil, Queue{}, err
	}

	engine := opts.Engine
	if engine == nil {
		engine, err = oidn.DefaultDriver()
		if err != nil {
			return nil, Queue{}, errors.Mark(err, ErrOidnUnsupported)
		}
	}

	device := &Device{
		logger:           logger,
		backend:          BackendVulkan,
		engine:           engine,
		vkInstance:       adapter.Instance,
		vkPhysicalDevice: adapter.PhysicalDevice,
		queueFamilyIndex: opts.QueueFamilyIndex,
		callbacks:        opts.VulkanCallbacks,
		registry:         newAllocationRegistry(),
	}

	rawEngineDevice := engine.NewDeviceByUUID([16]byte(deviceUUID))
	err = device.adoptEngineDevice(rawEngineDevice, requiredExternalMemoryType())
	if err != nil {
		return nil, Queue{}, err
	}

	createInfo := opts.VulkanDeviceInfo
	if len(createInfo.QueueCreateInfos) == 0 {
		createInfo.QueueCreateInfos = []core1_0.DeviceQueueCreateInfo{
			{
				QueueFamilyIndex: opts.QueueFamilyIndex,
				QueuePriorities:  []float32{1},
			},
		}
	}
	for _, extension := range vulkanExternalMemoryDeviceExtensions() {
		if !containsString(createInfo.EnabledExtensionNames, extension) {
			createInfo.EnabledExtensionNames = append(createInfo.EnabledExtensionNames, extension)
		}
	}

	vkDevice, _, err := adapter.PhysicalDevice.CreateDevice(opts.VulkanCallbacks, createInfo)
	if err != nil {
		device.oidnDevice.Release()
		return nil, Queue{}, errors.Mark(err, ErrRequestDevice)
	}

	device.vkDevice = vkDevice
	device.vkQueue = vkDevice.GetQueue(opts.QueueFamilyIndex, 0)
	device.exportMemory = device.exportVulkanMemoryHandle

	return device, Queue{backend: BackendVulkan, vulkan: device.vkQueue}, nil
}

func containsString(haystack []string, needle string) bool {
	for _, candidate := range haystack {
		if candidate == needle {
			return true
		}
	}
	return false
}
