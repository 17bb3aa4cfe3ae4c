package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/docker/go-units"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/velo/engine/core"
)

type VulkanDevice struct {
	PhysicalDevice     vk.PhysicalDevice
	LogicalDevice      vk.Device
	SwapchainSupport   VulkanSwapchainSupportInfo
	GraphicsQueueIndex uint32
	PresentQueueIndex  uint32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue

	GraphicsCommandPool vk.CommandPool

	// 1.3 core entry points not wrapped by the binding.
	Commands *DeviceCommands

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties

	DepthFormat vk.Format
}

type VulkanPhysicalDeviceRequirements struct {
	Graphics             bool
	Present              bool
	DeviceExtensionNames []string
	SamplerAnisotropy    bool
	MinAPIVersion        uint32
	DiscreteGPU          bool
}

type VulkanPhysicalDeviceQueueFamilyInfo struct {
	GraphicsFamilyIndex int32
	PresentFamilyIndex  int32
}

func deviceName(properties *vk.PhysicalDeviceProperties) string {
	return string(properties.DeviceName[:FindFirstZeroInByteArray(properties.DeviceName[:])])
}

func apiVersionString(version uint32) string {
	return fmt.Sprintf("%d.%d.%d", version>>22, (version>>12)&0x3ff, version&0xfff)
}

// DeviceCreate selects a physical device and creates the logical device, its
// queues and the graphics command pool.
func DeviceCreate(context *VulkanContext) error {
	if err := SelectPhysicalDevice(context); err != nil {
		return err
	}
	device := context.Device

	core.LogInfo("Creating logical device...")

	// NOTE: Do not create additional queues for shared indices.
	indices := []uint32{device.GraphicsQueueIndex}
	if device.PresentQueueIndex != device.GraphicsQueueIndex {
		indices = append(indices, device.PresentQueueIndex)
	}
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i, index := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: index,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	extensionNames := VulkanSafeStrings(requiredDeviceExtensions)
	if deviceHasExtension(device.PhysicalDevice, "VK_KHR_portability_subset") {
		core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
		extensionNames = append(extensionNames, VulkanSafeString("VK_KHR_portability_subset"))
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{SamplerAnisotropy: vk.True}},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: extensionNames,
	}

	// Feature chain: synchronization2 -> dynamic rendering -> 1.2 -> 1.1.
	// Built innermost first since each PassRef copies the current PNext.
	vulkan11Features := vk.PhysicalDeviceVulkan11Features{
		SType:                vk.StructureTypePhysicalDeviceVulkan11Features,
		ShaderDrawParameters: vk.True,
	}
	cVulkan11Features, _ := vulkan11Features.PassRef()
	defer vulkan11Features.Free()

	vulkan12Features := vk.PhysicalDeviceVulkan12Features{
		SType:                           vk.StructureTypePhysicalDeviceVulkan12Features,
		PNext:                           unsafe.Pointer(cVulkan11Features),
		TimelineSemaphore:               vk.True,
		DescriptorIndexing:              vk.True,
		RuntimeDescriptorArray:          vk.True,
		DescriptorBindingPartiallyBound: vk.True,
		DescriptorBindingSampledImageUpdateAfterBind: vk.True,
		ShaderSampledImageArrayNonUniformIndexing:    vk.True,
	}
	cVulkan12Features, _ := vulkan12Features.PassRef()
	defer vulkan12Features.Free()

	dynamicRendering := vk.PhysicalDeviceDynamicRenderingFeatures{
		SType:            vk.StructureTypePhysicalDeviceDynamicRenderingFeatures,
		PNext:            unsafe.Pointer(cVulkan12Features),
		DynamicRendering: vk.True,
	}
	cDynamicRendering, _ := dynamicRendering.PassRef()
	defer dynamicRendering.Free()

	sync2 := vk.PhysicalDeviceSynchronization2Features{
		SType:            vk.StructureTypePhysicalDeviceSynchronization2Features,
		PNext:            unsafe.Pointer(cDynamicRendering),
		Synchronization2: vk.True,
	}
	cSync2, _ := sync2.PassRef()
	defer sync2.Free()
	deviceCreateInfo.PNext = unsafe.Pointer(cSync2)

	if err := vkCheck(vk.CreateDevice(device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &device.LogicalDevice), "vkCreateDevice"); err != nil {
		return core.Fatal(err, "logical device")
	}
	core.LogInfo("Logical device created.")

	commands, err := LoadDeviceCommands(context.GetInstanceProcAddr, context.Instance, device.LogicalDevice)
	if err != nil {
		return err
	}
	device.Commands = commands

	var graphicsQueue, presentQueue vk.Queue
	vk.GetDeviceQueue(device.LogicalDevice, device.GraphicsQueueIndex, 0, &graphicsQueue)
	vk.GetDeviceQueue(device.LogicalDevice, device.PresentQueueIndex, 0, &presentQueue)
	device.GraphicsQueue = graphicsQueue
	device.PresentQueue = presentQueue
	core.LogInfo("Queues obtained.")

	// Frame command buffers are reset individually every frame.
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: device.GraphicsQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if err := vkCheck(vk.CreateCommandPool(device.LogicalDevice, &poolCreateInfo, context.Allocator, &pool), "vkCreateCommandPool"); err != nil {
		return core.Fatal(err, "graphics command pool")
	}
	device.GraphicsCommandPool = pool
	core.LogInfo("Graphics command pool created.")

	return nil
}

func DeviceDestroy(context *VulkanContext) {
	device := context.Device
	if device == nil {
		return
	}
	device.GraphicsQueue = nil
	device.PresentQueue = nil
	device.Commands = nil

	if device.GraphicsCommandPool != vk.NullCommandPool {
		core.LogInfo("Destroying command pools...")
		vk.DestroyCommandPool(device.LogicalDevice, device.GraphicsCommandPool, context.Allocator)
		device.GraphicsCommandPool = vk.NullCommandPool
	}

	if device.LogicalDevice != nil {
		core.LogInfo("Destroying logical device...")
		vk.DestroyDevice(device.LogicalDevice, context.Allocator)
		device.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	device.PhysicalDevice = nil
	device.SwapchainSupport = VulkanSwapchainSupportInfo{}
}

func SelectPhysicalDevice(context *VulkanContext) error {
	var physicalDeviceCount uint32
	if err := vkCheck(vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil), "vkEnumeratePhysicalDevices"); err != nil {
		return core.Fatal(err, "physical devices")
	}
	if physicalDeviceCount == 0 {
		return core.Fatalf("no devices which support Vulkan were found")
	}
	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if err := vkCheck(vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices), "vkEnumeratePhysicalDevices"); err != nil {
		return core.Fatal(err, "physical devices")
	}

	requirements := VulkanPhysicalDeviceRequirements{
		Graphics:             true,
		Present:              true,
		SamplerAnisotropy:    true,
		MinAPIVersion:        VULKAN_API_VERSION,
		DiscreteGPU:          true,
		DeviceExtensionNames: requiredDeviceExtensions,
	}
	if runtime.GOOS == "darwin" {
		requirements.DiscreteGPU = false
	}

	// A discrete GPU wins, any other suitable device is the fallback.
	var fallback *VulkanDevice
	for _, physicalDevice := range physicalDevices {
		candidate, discrete := evaluatePhysicalDevice(physicalDevice, context.Surface, &requirements)
		if candidate == nil {
			continue
		}
		if discrete {
			fallback = candidate
			break
		}
		if fallback == nil {
			fallback = candidate
		}
	}
	if fallback == nil {
		return core.Fatalf("no physical devices were found which meet the requirements")
	}
	if requirements.DiscreteGPU && fallback.Properties.DeviceType != vk.PhysicalDeviceTypeDiscreteGpu {
		core.LogWarn("No discrete GPU found, using '%s'.", deviceName(&fallback.Properties))
	}

	context.Device = fallback
	logDevice(fallback)
	core.LogInfo("Physical device selected.")
	return nil
}

func evaluatePhysicalDevice(physicalDevice vk.PhysicalDevice, surface vk.Surface, requirements *VulkanPhysicalDeviceRequirements) (*VulkanDevice, bool) {
	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(physicalDevice, &properties)
	properties.Deref()

	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(physicalDevice, &features)
	features.Deref()

	var memory vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(physicalDevice, &memory)
	memory.Deref()

	queueInfo := VulkanPhysicalDeviceQueueFamilyInfo{}
	support, ok := PhysicalDeviceMeetsRequirements(physicalDevice, surface, &properties, &features, requirements, &queueInfo)
	if !ok {
		return nil, false
	}
	return &VulkanDevice{
		PhysicalDevice:     physicalDevice,
		SwapchainSupport:   *support,
		GraphicsQueueIndex: uint32(queueInfo.GraphicsFamilyIndex),
		PresentQueueIndex:  uint32(queueInfo.PresentFamilyIndex),
		Properties:         properties,
		Features:           features,
		Memory:             memory,
	}, properties.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu
}

func logDevice(device *VulkanDevice) {
	properties := &device.Properties
	core.LogInfo("Selected device: '%s'.", deviceName(properties))
	switch properties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	default:
		core.LogInfo("GPU type is Unknown.")
	}
	core.LogInfo("GPU Driver version: %s", apiVersionString(properties.DriverVersion))
	core.LogInfo("Vulkan API version: %s", apiVersionString(properties.ApiVersion))

	for j := uint32(0); j < device.Memory.MemoryHeapCount; j++ {
		heap := device.Memory.MemoryHeaps[j]
		heap.Deref()
		size := units.BytesSize(float64(heap.Size))
		if vk.MemoryHeapFlagBits(heap.Flags)&vk.MemoryHeapDeviceLocalBit != 0 {
			core.LogInfo("Local GPU memory: %s", size)
		} else {
			core.LogInfo("Shared System memory: %s", size)
		}
	}
}

// PhysicalDeviceMeetsRequirements checks queues, API version, extensions and
// features. On success it returns the surface support of the device.
func PhysicalDeviceMeetsRequirements(device vk.PhysicalDevice, surface vk.Surface, properties *vk.PhysicalDeviceProperties, features *vk.PhysicalDeviceFeatures, requirements *VulkanPhysicalDeviceRequirements, outQueueInfo *VulkanPhysicalDeviceQueueFamilyInfo) (*VulkanSwapchainSupportInfo, bool) {
	name := deviceName(properties)
	outQueueInfo.GraphicsFamilyIndex = -1
	outQueueInfo.PresentFamilyIndex = -1

	if properties.ApiVersion < requirements.MinAPIVersion {
		core.LogInfo("Device '%s' supports Vulkan %s only, skipping.", name, apiVersionString(properties.ApiVersion))
		return nil, false
	}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	for i := range queueFamilies {
		queueFamilies[i].Deref()
		graphics := queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0

		var supportsPresent vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &supportsPresent); res != vk.Success {
			return nil, false
		}
		present := supportsPresent == vk.True

		// Prefer a single family that can do both.
		if graphics && present {
			outQueueInfo.GraphicsFamilyIndex = int32(i)
			outQueueInfo.PresentFamilyIndex = int32(i)
			break
		}
		if graphics && outQueueInfo.GraphicsFamilyIndex < 0 {
			outQueueInfo.GraphicsFamilyIndex = int32(i)
		}
		if present && outQueueInfo.PresentFamilyIndex < 0 {
			outQueueInfo.PresentFamilyIndex = int32(i)
		}
	}

	core.LogDebug("Graphics | Present | Name")
	core.LogDebug("%8t | %7t | %s", outQueueInfo.GraphicsFamilyIndex >= 0, outQueueInfo.PresentFamilyIndex >= 0, name)

	if (requirements.Graphics && outQueueInfo.GraphicsFamilyIndex < 0) ||
		(requirements.Present && outQueueInfo.PresentFamilyIndex < 0) {
		core.LogInfo("Device '%s' lacks the required queues, skipping.", name)
		return nil, false
	}
	core.LogDebug("Graphics Family Index: %d", outQueueInfo.GraphicsFamilyIndex)
	core.LogDebug("Present Family Index:  %d", outQueueInfo.PresentFamilyIndex)

	for _, extension := range requirements.DeviceExtensionNames {
		if !deviceHasExtension(device, extension) {
			core.LogInfo("Required extension not found: '%s', skipping device.", extension)
			return nil, false
		}
	}

	support, err := DeviceQuerySwapchainSupport(device, surface)
	if err != nil || len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		core.LogInfo("Required swapchain support not present, skipping device.")
		return nil, false
	}

	if requirements.SamplerAnisotropy && features.SamplerAnisotropy == vk.False {
		core.LogInfo("Device does not support samplerAnisotropy, skipping.")
		return nil, false
	}
	return support, true
}

func deviceHasExtension(device vk.PhysicalDevice, name string) bool {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, nil); res != vk.Success || count == 0 {
		return false
	}
	available := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, available); res != vk.Success {
		return false
	}
	for i := range available {
		available[i].Deref()
		extension := available[i].ExtensionName[:]
		if string(extension[:FindFirstZeroInByteArray(extension)]) == name {
			return true
		}
	}
	return false
}
