package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/velo/engine/config"
	"github.com/spaghettifunk/velo/engine/core"
)

/**
 * @brief Instance-level state shared by every part of the backend. Owned by
 * the renderer and passed explicitly; there are no package globals.
 */
type VulkanContext struct {
	Config *config.Config

	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	// The loader's vkGetInstanceProcAddr, used to resolve 1.3 device commands.
	GetInstanceProcAddr unsafe.Pointer

	debugCallback vk.DebugReportCallback

	Device *VulkanDevice
}

func (vc *VulkanContext) FindMemoryIndex(typeFilter, propertyFlags uint32) int32 {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(vc.Device.PhysicalDevice, &memoryProperties)
	memoryProperties.Deref()

	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		memoryProperties.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && (uint32(memoryProperties.MemoryTypes[i].PropertyFlags)&propertyFlags) == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return -1
}

// FramesInFlight returns the configured slot count clamped to the supported maximum.
func (vc *VulkanContext) FramesInFlight() uint32 {
	f := vc.Config.Renderer.FramesInFlight
	if f == 0 {
		return 1
	}
	if f > VULKAN_MAX_FRAMES_IN_FLIGHT {
		return VULKAN_MAX_FRAMES_IN_FLIGHT
	}
	return f
}
