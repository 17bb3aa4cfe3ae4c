package vulkan

import (
	"unsafe"

	"github.com/docker/go-units"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/velo/engine/core"
)

// MemoryUsage describes who reads and writes an allocation.
type MemoryUsage int

const (
	MemoryUsageGPUOnly MemoryUsage = iota
	MemoryUsageCPUToGPU
	MemoryUsageCPUOnly
	MemoryUsageGPUToCPU
)

func (u MemoryUsage) String() string {
	switch u {
	case MemoryUsageGPUOnly:
		return "gpu-only"
	case MemoryUsageCPUToGPU:
		return "cpu-to-gpu"
	case MemoryUsageCPUOnly:
		return "cpu-only"
	case MemoryUsageGPUToCPU:
		return "gpu-to-cpu"
	}
	return "unknown"
}

// PropertyFlags maps the usage hint to the memory properties requested from the device.
func (u MemoryUsage) PropertyFlags() vk.MemoryPropertyFlags {
	switch u {
	case MemoryUsageCPUToGPU, MemoryUsageCPUOnly:
		return vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	case MemoryUsageGPUToCPU:
		return vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit | vk.MemoryPropertyHostCachedBit)
	}
	return vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
}

// HostVisible reports whether the allocation can be mapped.
func (u MemoryUsage) HostVisible() bool {
	return u != MemoryUsageGPUOnly
}

type AllocationFlags uint32

const (
	// Keep the allocation mapped for its whole lifetime.
	AllocationMapped AllocationFlags = 1 << iota
)

type BufferSpec struct {
	Size        uint64
	Usage       vk.BufferUsageFlags
	MemoryUsage MemoryUsage
	Flags       AllocationFlags
}

type ImageSpec struct {
	Width       uint32
	Height      uint32
	MipLevels   uint32
	Format      vk.Format
	Usage       vk.ImageUsageFlags
	Aspect      vk.ImageAspectFlags
	MemoryUsage MemoryUsage
}

// Allocation is the memory backing exactly one buffer or image.
type Allocation interface {
	Size() uint64
	// Mapped returns the persistent mapping, nil when the allocation is not mapped.
	Mapped() []byte
}

/**
 * @brief Creates and destroys resources together with their memory. Every
 * resource must be destroyed before the allocator itself.
 */
type MemoryAllocator interface {
	CreateBuffer(spec BufferSpec) (vk.Buffer, Allocation, error)
	DestroyBuffer(buffer vk.Buffer, allocation Allocation)
	CreateImage(spec ImageSpec) (vk.Image, Allocation, error)
	DestroyImage(image vk.Image, allocation Allocation)
	CreateImageView(image vk.Image, spec ImageSpec) (vk.ImageView, error)
	DestroyImageView(view vk.ImageView)
	Map(allocation Allocation) ([]byte, error)
	Unmap(allocation Allocation)
	Destroy()
	// Live returns the number of allocations not yet freed.
	Live() int
}

type deviceAllocation struct {
	memory vk.DeviceMemory
	size   uint64
	mapped []byte
}

func (a *deviceAllocation) Size() uint64 { return a.size }

func (a *deviceAllocation) Mapped() []byte { return a.mapped }

/**
 * @brief MemoryAllocator backed by one vkAllocateMemory per resource.
 */
type DeviceAllocator struct {
	context   *VulkanContext
	live      int
	allocated uint64
	destroyed bool
}

func NewDeviceAllocator(context *VulkanContext) *DeviceAllocator {
	return &DeviceAllocator{context: context}
}

func (da *DeviceAllocator) checkAlive(op string) error {
	if da.destroyed {
		return core.Protocolf("%s called after the allocator was destroyed", op)
	}
	return nil
}

func (da *DeviceAllocator) allocate(reqs vk.MemoryRequirements, usage MemoryUsage) (*deviceAllocation, error) {
	index := da.context.FindMemoryIndex(reqs.MemoryTypeBits, uint32(usage.PropertyFlags()))
	if index < 0 {
		return nil, core.Fatalf("no memory type for %s usage (type bits %b)", usage, reqs.MemoryTypeBits)
	}
	info := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: uint32(index),
	}
	var memory vk.DeviceMemory
	if err := vkCheck(vk.AllocateMemory(da.context.Device.LogicalDevice, &info, da.context.Allocator, &memory), "vkAllocateMemory"); err != nil {
		return nil, err
	}
	da.live++
	da.allocated += uint64(reqs.Size)
	return &deviceAllocation{memory: memory, size: uint64(reqs.Size)}, nil
}

func (da *DeviceAllocator) free(allocation Allocation) {
	a, ok := allocation.(*deviceAllocation)
	if !ok || a.memory == vk.NullDeviceMemory {
		return
	}
	if a.mapped != nil {
		da.Unmap(a)
	}
	vk.FreeMemory(da.context.Device.LogicalDevice, a.memory, da.context.Allocator)
	a.memory = vk.NullDeviceMemory
	da.live--
	da.allocated -= a.size
}

func (da *DeviceAllocator) CreateBuffer(spec BufferSpec) (vk.Buffer, Allocation, error) {
	if err := da.checkAlive("CreateBuffer"); err != nil {
		return vk.NullBuffer, nil, err
	}
	device := da.context.Device.LogicalDevice
	info := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(spec.Size),
		Usage:       spec.Usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var buffer vk.Buffer
	if err := vkCheck(vk.CreateBuffer(device, &info, da.context.Allocator, &buffer), "vkCreateBuffer"); err != nil {
		return vk.NullBuffer, nil, err
	}

	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, buffer, &reqs)
	reqs.Deref()

	allocation, err := da.allocate(reqs, spec.MemoryUsage)
	if err != nil {
		vk.DestroyBuffer(device, buffer, da.context.Allocator)
		return vk.NullBuffer, nil, err
	}
	if err := vkCheck(vk.BindBufferMemory(device, buffer, allocation.memory, 0), "vkBindBufferMemory"); err != nil {
		da.free(allocation)
		vk.DestroyBuffer(device, buffer, da.context.Allocator)
		return vk.NullBuffer, nil, err
	}
	if spec.Flags&AllocationMapped != 0 {
		if _, err := da.Map(allocation); err != nil {
			da.DestroyBuffer(buffer, allocation)
			return vk.NullBuffer, nil, err
		}
	}
	core.LogDebug("allocated buffer of %s (%s)", units.BytesSize(float64(allocation.size)), spec.MemoryUsage)
	return buffer, allocation, nil
}

func (da *DeviceAllocator) DestroyBuffer(buffer vk.Buffer, allocation Allocation) {
	if da.destroyed {
		core.LogError("DestroyBuffer called after the allocator was destroyed")
		return
	}
	vk.DestroyBuffer(da.context.Device.LogicalDevice, buffer, da.context.Allocator)
	da.free(allocation)
}

func (da *DeviceAllocator) CreateImage(spec ImageSpec) (vk.Image, Allocation, error) {
	if err := da.checkAlive("CreateImage"); err != nil {
		return vk.NullImage, nil, err
	}
	device := da.context.Device.LogicalDevice
	info := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  spec.Width,
			Height: spec.Height,
			Depth:  1,
		},
		MipLevels:     spec.MipLevels,
		ArrayLayers:   1,
		Format:        spec.Format,
		Tiling:        vk.ImageTilingOptimal,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         spec.Usage,
		Samples:       vk.SampleCount1Bit,
		SharingMode:   vk.SharingModeExclusive,
	}
	var image vk.Image
	if err := vkCheck(vk.CreateImage(device, &info, da.context.Allocator, &image), "vkCreateImage"); err != nil {
		return vk.NullImage, nil, err
	}

	var reqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device, image, &reqs)
	reqs.Deref()

	allocation, err := da.allocate(reqs, spec.MemoryUsage)
	if err != nil {
		vk.DestroyImage(device, image, da.context.Allocator)
		return vk.NullImage, nil, err
	}
	if err := vkCheck(vk.BindImageMemory(device, image, allocation.memory, 0), "vkBindImageMemory"); err != nil {
		da.free(allocation)
		vk.DestroyImage(device, image, da.context.Allocator)
		return vk.NullImage, nil, err
	}
	core.LogDebug("allocated %dx%d image of %s", spec.Width, spec.Height, units.BytesSize(float64(allocation.size)))
	return image, allocation, nil
}

func (da *DeviceAllocator) DestroyImage(image vk.Image, allocation Allocation) {
	if da.destroyed {
		core.LogError("DestroyImage called after the allocator was destroyed")
		return
	}
	vk.DestroyImage(da.context.Device.LogicalDevice, image, da.context.Allocator)
	da.free(allocation)
}

func (da *DeviceAllocator) CreateImageView(image vk.Image, spec ImageSpec) (vk.ImageView, error) {
	return createImageView(da.context, image, spec.Format, spec.Aspect, spec.MipLevels)
}

func (da *DeviceAllocator) DestroyImageView(view vk.ImageView) {
	if view != vk.NullImageView {
		vk.DestroyImageView(da.context.Device.LogicalDevice, view, da.context.Allocator)
	}
}

func (da *DeviceAllocator) Map(allocation Allocation) ([]byte, error) {
	a, ok := allocation.(*deviceAllocation)
	if !ok {
		return nil, core.Protocolf("allocation %T was not created by this allocator", allocation)
	}
	if a.mapped != nil {
		return a.mapped, nil
	}
	var ptr unsafe.Pointer
	if err := vkCheck(vk.MapMemory(da.context.Device.LogicalDevice, a.memory, 0, vk.DeviceSize(a.size), 0, &ptr), "vkMapMemory"); err != nil {
		return nil, err
	}
	a.mapped = unsafe.Slice((*byte)(ptr), a.size)
	return a.mapped, nil
}

func (da *DeviceAllocator) Unmap(allocation Allocation) {
	a, ok := allocation.(*deviceAllocation)
	if !ok || a.mapped == nil {
		return
	}
	vk.UnmapMemory(da.context.Device.LogicalDevice, a.memory)
	a.mapped = nil
}

// Destroy must run after every resource created through the allocator is gone.
func (da *DeviceAllocator) Destroy() {
	if da.destroyed {
		return
	}
	if da.live > 0 {
		core.LogError("allocator destroyed with %d live allocations (%s)", da.live, units.BytesSize(float64(da.allocated)))
	}
	da.destroyed = true
}

func (da *DeviceAllocator) Live() int {
	return da.live
}

func createImageView(context *VulkanContext, image vk.Image, format vk.Format, aspect vk.ImageAspectFlags, mipLevels uint32) (vk.ImageView, error) {
	info := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     mipLevels,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var view vk.ImageView
	if err := vkCheck(vk.CreateImageView(context.Device.LogicalDevice, &info, context.Allocator, &view), "vkCreateImageView"); err != nil {
		return vk.NullImageView, err
	}
	return view, nil
}
