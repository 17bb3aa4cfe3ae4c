package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/velo/engine/core"
	vmath "github.com/spaghettifunk/velo/engine/math"
)

type SwapchainState int

const (
	SwapchainUninitialized SwapchainState = iota
	SwapchainLive
	SwapchainStale
)

func (s SwapchainState) String() string {
	switch s {
	case SwapchainUninitialized:
		return "uninitialized"
	case SwapchainLive:
		return "live"
	case SwapchainStale:
		return "stale"
	}
	return "unknown"
}

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// WindowSurface is the part of the window the swapchain needs while recreating.
type WindowSurface interface {
	FramebufferSize() (width, height int)
	WaitEvents()
	ShouldClose() bool
}

/**
 * @brief The presentation side of the swapchain as seen by the frame scheduler.
 */
type Presenter interface {
	State() SwapchainState
	Acquire(semaphore vk.Semaphore) (uint32, vk.Result)
	Present(queue vk.Queue, waitSemaphore vk.Semaphore, imageIndex uint32) vk.Result
	MarkStale()
	Recreate() error
	Extent() vk.Extent2D
	ImageCount() uint32
	Target(imageIndex uint32) RenderTarget
}

// ChooseSurfaceFormat prefers BGRA8 sRGB with a non-linear sRGB color space
// and falls back to the first reported format.
func ChooseSurfaceFormat(formats []vk.SurfaceFormat) (vk.SurfaceFormat, error) {
	if len(formats) == 0 {
		return vk.SurfaceFormat{}, core.Fatalf("surface reports no formats")
	}
	for _, format := range formats {
		if format.Format == vk.FormatB8g8r8a8Srgb && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format, nil
		}
	}
	return formats[0], nil
}

// ChoosePresentMode prefers mailbox. FIFO is always available.
func ChoosePresentMode(modes []vk.PresentMode, vsyncOnly bool) vk.PresentMode {
	if vsyncOnly {
		return vk.PresentModeFifo
	}
	for _, mode := range modes {
		if mode == vk.PresentModeMailbox {
			return mode
		}
	}
	return vk.PresentModeFifo
}

// ChooseExtent uses the surface extent when it is defined, otherwise the
// framebuffer size clamped to the surface limits.
func ChooseExtent(caps vk.SurfaceCapabilities, fbWidth, fbHeight uint32) vk.Extent2D {
	if caps.CurrentExtent.Width != VULKAN_EXTENT_UNDEFINED {
		return caps.CurrentExtent
	}
	return vk.Extent2D{
		Width:  vmath.Clamp(fbWidth, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: vmath.Clamp(fbHeight, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// ChooseImageCount asks for triple buffering, never less than the surface
// minimum, and respects the maximum when the surface has one.
func ChooseImageCount(caps vk.SurfaceCapabilities) uint32 {
	count := vmath.Max(VULKAN_PREFERRED_IMAGE_COUNT, caps.MinImageCount)
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

var depthFormatCandidates = []vk.Format{
	vk.FormatD32Sfloat,
	vk.FormatD32SfloatS8Uint,
	vk.FormatD24UnormS8Uint,
}

// FindDepthFormat returns the first candidate the probe accepts.
func FindDepthFormat(supportsDepthAttachment func(vk.Format) bool) (vk.Format, error) {
	for _, candidate := range depthFormatCandidates {
		if supportsDepthAttachment(candidate) {
			return candidate, nil
		}
	}
	return vk.FormatUndefined, core.Fatalf("no supported depth format among %v", depthFormatCandidates)
}

// deviceSupportsDepthAttachment checks optimal tiling support on the physical device.
func deviceSupportsDepthAttachment(device *VulkanDevice) func(vk.Format) bool {
	return func(format vk.Format) bool {
		var properties vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(device.PhysicalDevice, format, &properties)
		properties.Deref()
		flags := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
		return properties.OptimalTilingFeatures&flags == flags
	}
}

func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface) (*VulkanSwapchainSupportInfo, error) {
	support := &VulkanSwapchainSupportInfo{}

	// Surface capabilities
	if err := vkCheck(vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &support.Capabilities), "vkGetPhysicalDeviceSurfaceCapabilities"); err != nil {
		return nil, err
	}
	support.Capabilities.Deref()
	support.Capabilities.CurrentExtent.Deref()
	support.Capabilities.MinImageExtent.Deref()
	support.Capabilities.MaxImageExtent.Deref()

	// Surface formats
	var formatCount uint32
	if err := vkCheck(vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil), "vkGetPhysicalDeviceSurfaceFormats"); err != nil {
		return nil, err
	}
	if formatCount != 0 {
		support.Formats = make([]vk.SurfaceFormat, formatCount)
		if err := vkCheck(vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, support.Formats), "vkGetPhysicalDeviceSurfaceFormats"); err != nil {
			return nil, err
		}
		for i := range support.Formats {
			support.Formats[i].Deref()
		}
	}

	// Present modes
	var modeCount uint32
	if err := vkCheck(vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &modeCount, nil), "vkGetPhysicalDeviceSurfacePresentModes"); err != nil {
		return nil, err
	}
	if modeCount != 0 {
		support.PresentModes = make([]vk.PresentMode, modeCount)
		if err := vkCheck(vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &modeCount, support.PresentModes), "vkGetPhysicalDeviceSurfacePresentModes"); err != nil {
			return nil, err
		}
	}
	return support, nil
}

/**
 * @brief Owns the swapchain, its image views and the depth attachment.
 * Everything is rebuilt together on recreation.
 */
type VulkanSwapchain struct {
	context   *VulkanContext
	window    WindowSurface
	allocator MemoryAllocator
	state     SwapchainState

	Handle      vk.Swapchain
	ImageFormat vk.SurfaceFormat
	PresentMode vk.PresentMode
	extent      vk.Extent2D
	Images      []vk.Image
	Views       []vk.ImageView

	DepthFormat vk.Format
	Depth       *Image
}

func NewVulkanSwapchain(context *VulkanContext, window WindowSurface, allocator MemoryAllocator) *VulkanSwapchain {
	return &VulkanSwapchain{
		context:   context,
		window:    window,
		allocator: allocator,
		state:     SwapchainUninitialized,
	}
}

func (vs *VulkanSwapchain) State() SwapchainState { return vs.state }

func (vs *VulkanSwapchain) Extent() vk.Extent2D { return vs.extent }

func (vs *VulkanSwapchain) ImageCount() uint32 { return uint32(len(vs.Images)) }

func (vs *VulkanSwapchain) MarkStale() {
	if vs.state == SwapchainLive {
		vs.state = SwapchainStale
	}
}

func (vs *VulkanSwapchain) Target(imageIndex uint32) RenderTarget {
	return RenderTarget{
		ColorImage:  vs.Images[imageIndex],
		ColorView:   vs.Views[imageIndex],
		DepthImage:  vs.Depth.Handle(),
		DepthView:   vs.Depth.View(),
		DepthAspect: vs.Depth.Aspect(),
		Extent:      vs.extent,
	}
}

// Create builds the swapchain for the current surface state.
func (vs *VulkanSwapchain) Create() error {
	if vs.state != SwapchainUninitialized {
		return core.Protocolf("create on a %s swapchain", vs.state)
	}
	device := vs.context.Device

	if vs.DepthFormat == vk.FormatUndefined {
		format, err := FindDepthFormat(deviceSupportsDepthAttachment(device))
		if err != nil {
			return err
		}
		vs.DepthFormat = format
		device.DepthFormat = format
	}

	support, err := DeviceQuerySwapchainSupport(device.PhysicalDevice, vs.context.Surface)
	if err != nil {
		return err
	}
	device.SwapchainSupport = *support

	surfaceFormat, err := ChooseSurfaceFormat(support.Formats)
	if err != nil {
		return err
	}
	presentMode := ChoosePresentMode(support.PresentModes, vs.context.Config.Renderer.VSyncOnly)
	width, height := vs.window.FramebufferSize()
	extent := ChooseExtent(support.Capabilities, uint32(width), uint32(height))
	imageCount := ChooseImageCount(support.Capabilities)

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          vs.context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      surfaceFormat.Format,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}

	// Setup the queue family indices
	if device.GraphicsQueueIndex != device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			uint32(device.GraphicsQueueIndex),
			uint32(device.PresentQueueIndex),
		}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var handle vk.Swapchain
	if err := vkCheck(vk.CreateSwapchain(device.LogicalDevice, &swapchainCreateInfo, vs.context.Allocator, &handle), "vkCreateSwapchain"); err != nil {
		return err
	}
	vs.Handle = handle
	vs.ImageFormat = surfaceFormat
	vs.PresentMode = presentMode
	vs.extent = extent

	// Images
	var count uint32
	if err := vkCheck(vk.GetSwapchainImages(device.LogicalDevice, handle, &count, nil), "vkGetSwapchainImages"); err != nil {
		return err
	}
	vs.Images = make([]vk.Image, count)
	if err := vkCheck(vk.GetSwapchainImages(device.LogicalDevice, handle, &count, vs.Images), "vkGetSwapchainImages"); err != nil {
		return err
	}

	// Views
	vs.Views = make([]vk.ImageView, 0, count)
	for i := range vs.Images {
		view, err := createImageView(vs.context, vs.Images[i], surfaceFormat.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit), 1)
		if err != nil {
			return err
		}
		vs.Views = append(vs.Views, view)
	}

	// Depth resources
	depth, err := NewImage(vs.allocator, ImageSpec{
		Width:       extent.Width,
		Height:      extent.Height,
		MipLevels:   1,
		Format:      vs.DepthFormat,
		Usage:       vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		Aspect:      depthAspect(vs.DepthFormat),
		MemoryUsage: MemoryUsageGPUOnly,
	})
	if err != nil {
		return err
	}
	vs.Depth = depth

	vs.state = SwapchainLive
	core.LogInfo("swapchain created: %dx%d, %d images, present mode %d", extent.Width, extent.Height, count, presentMode)
	return nil
}

// Recreate waits out a minimized window, drains the device and rebuilds
// every swapchain-sized resource.
// Recreate waits out a minimized window, then rebuilds the swapchain. It
// returns core.ErrWindowClosed if the window is closed while minimized.
func (vs *VulkanSwapchain) Recreate() error {
	if err := waitForDrawableSize(vs.window); err != nil {
		return err
	}
	if err := vkCheck(vk.DeviceWaitIdle(vs.context.Device.LogicalDevice), "vkDeviceWaitIdle"); err != nil {
		return err
	}
	vs.Destroy()
	if err := vs.Create(); err != nil {
		return core.Fatal(err, "swapchain recreation")
	}
	core.LogInfo("swapchain recreated at %dx%d", vs.extent.Width, vs.extent.Height)
	return nil
}

// waitForDrawableSize blocks on window events until the framebuffer has a
// non-zero size or the window is asked to close.
func waitForDrawableSize(window WindowSurface) error {
	for {
		if window.ShouldClose() {
			return core.ErrWindowClosed
		}
		width, height := window.FramebufferSize()
		if width > 0 && height > 0 {
			return nil
		}
		window.WaitEvents()
	}
}

func (vs *VulkanSwapchain) Acquire(semaphore vk.Semaphore) (uint32, vk.Result) {
	var imageIndex uint32
	result := vk.AcquireNextImage(vs.context.Device.LogicalDevice, vs.Handle, vk.MaxUint64, semaphore, vk.NullFence, &imageIndex)
	if result == vk.ErrorOutOfDate {
		vs.MarkStale()
	}
	return imageIndex, result
}

func (vs *VulkanSwapchain) Present(queue vk.Queue, waitSemaphore vk.Semaphore, imageIndex uint32) vk.Result {
	// Return the image to the swapchain for presentation.
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{waitSemaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{imageIndex},
	}
	result := vk.QueuePresent(queue, &presentInfo)
	if result == vk.ErrorOutOfDate {
		vs.MarkStale()
	}
	return result
}

// Destroy releases views, depth and the swapchain, in that order. It also
// cleans up after a partially failed Create.
func (vs *VulkanSwapchain) Destroy() {
	if vs.Handle == vk.NullSwapchain && vs.Depth == nil && len(vs.Views) == 0 {
		vs.state = SwapchainUninitialized
		return
	}
	device := vs.context.Device.LogicalDevice

	// Only destroy the views, not the images, since those are owned by the swapchain and are thus
	// destroyed when it is.
	for _, view := range vs.Views {
		vk.DestroyImageView(device, view, vs.context.Allocator)
	}
	vs.Views = nil
	vs.Images = nil

	vs.Depth.Destroy()
	vs.Depth = nil

	if vs.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(device, vs.Handle, vs.context.Allocator)
	}
	vs.Handle = vk.NullSwapchain
	vs.state = SwapchainUninitialized
}
