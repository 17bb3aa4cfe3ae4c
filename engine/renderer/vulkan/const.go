package vulkan

import vk "github.com/goki/vulkan"

/**
 * @brief Upper bound for frames in flight. Each slot owns a command buffer, an
 * acquire semaphore and a uniform buffer.
 */
const VULKAN_MAX_FRAMES_IN_FLIGHT uint32 = 3

/**
 * @brief Preferred swapchain image count. Raised to the surface minimum if needed.
 */
const VULKAN_PREFERRED_IMAGE_COUNT uint32 = 3

// Sentinel for surfaces that let the application choose the extent.
const VULKAN_EXTENT_UNDEFINED uint32 = 0xFFFFFFFF

const VULKAN_API_VERSION = uint32(1)<<22 | uint32(3)<<12

// Synchronization2 stage flags (VkPipelineStageFlagBits2).
const (
	PIPELINE_STAGE_2_NONE                    uint64 = 0
	PIPELINE_STAGE_2_TOP_OF_PIPE             uint64 = 0x00000001
	PIPELINE_STAGE_2_FRAGMENT_SHADER         uint64 = 0x00000080
	PIPELINE_STAGE_2_EARLY_FRAGMENT_TESTS    uint64 = 0x00000100
	PIPELINE_STAGE_2_LATE_FRAGMENT_TESTS     uint64 = 0x00000200
	PIPELINE_STAGE_2_COLOR_ATTACHMENT_OUTPUT uint64 = 0x00000400
	PIPELINE_STAGE_2_TRANSFER                uint64 = 0x00001000
	PIPELINE_STAGE_2_BOTTOM_OF_PIPE          uint64 = 0x00002000
	PIPELINE_STAGE_2_ALL_GRAPHICS            uint64 = 0x00008000
)

// Synchronization2 access flags (VkAccessFlagBits2).
const (
	ACCESS_2_NONE                           uint64 = 0
	ACCESS_2_SHADER_READ                    uint64 = 0x00000020
	ACCESS_2_COLOR_ATTACHMENT_READ          uint64 = 0x00000080
	ACCESS_2_COLOR_ATTACHMENT_WRITE         uint64 = 0x00000100
	ACCESS_2_DEPTH_STENCIL_ATTACHMENT_READ  uint64 = 0x00000200
	ACCESS_2_DEPTH_STENCIL_ATTACHMENT_WRITE uint64 = 0x00000400
	ACCESS_2_TRANSFER_READ                  uint64 = 0x00000800
	ACCESS_2_TRANSFER_WRITE                 uint64 = 0x00001000
)

// Descriptor set bindings shared with the shaders.
const (
	BINDING_UNIFORM_BUFFERS uint32 = 0
	BINDING_TEXTURES        uint32 = 1
	BINDING_MATERIALS       uint32 = 2
)

// Device extensions the renderer cannot run without.
var requiredDeviceExtensions = []string{
	vk.KhrSwapchainExtensionName,
}
