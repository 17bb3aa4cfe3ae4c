package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/velo/engine/core"
)

/**
 * @brief The single descriptor set used by the renderer: per-frame uniform
 * buffers, a partially bound texture array and the material index buffer.
 * The set is written once at init and never touched while frames are in flight.
 */
type VulkanDescriptors struct {
	Layout vk.DescriptorSetLayout
	Pool   vk.DescriptorPool
	Set    vk.DescriptorSet

	framesInFlight uint32
	maxTextures    uint32
}

// descriptorLayoutBindings describes binding 0 (uniforms), 1 (textures) and 2 (materials).
func descriptorLayoutBindings(framesInFlight, maxTextures uint32) ([]vk.DescriptorSetLayoutBinding, []vk.DescriptorBindingFlags) {
	bindings := []vk.DescriptorSetLayoutBinding{
		{
			Binding:         BINDING_UNIFORM_BUFFERS,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: framesInFlight,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		},
		{
			Binding:         BINDING_TEXTURES,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: maxTextures,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		},
		{
			Binding:         BINDING_MATERIALS,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		},
	}
	flags := []vk.DescriptorBindingFlags{
		0,
		vk.DescriptorBindingFlags(vk.DescriptorBindingPartiallyBoundBit | vk.DescriptorBindingUpdateAfterBindBit),
		0,
	}
	return bindings, flags
}

func descriptorPoolSizes(framesInFlight, maxTextures uint32) []vk.DescriptorPoolSize {
	return []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: framesInFlight},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: maxTextures},
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: 1},
	}
}

func NewVulkanDescriptors(context *VulkanContext, framesInFlight, maxTextures uint32) (*VulkanDescriptors, error) {
	if framesInFlight == 0 || maxTextures == 0 {
		return nil, core.Protocolf("descriptor counts must be positive (frames %d, textures %d)", framesInFlight, maxTextures)
	}
	device := context.Device.LogicalDevice
	d := &VulkanDescriptors{framesInFlight: framesInFlight, maxTextures: maxTextures}

	bindings, bindingFlags := descriptorLayoutBindings(framesInFlight, maxTextures)
	flagsInfo := vk.DescriptorSetLayoutBindingFlagsCreateInfo{
		SType:         vk.StructureTypeDescriptorSetLayoutBindingFlagsCreateInfo,
		BindingCount:  uint32(len(bindingFlags)),
		PBindingFlags: bindingFlags,
	}
	cFlagsInfo, _ := flagsInfo.PassRef()
	defer flagsInfo.Free()

	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		PNext:        unsafe.Pointer(cFlagsInfo),
		Flags:        vk.DescriptorSetLayoutCreateFlags(vk.DescriptorSetLayoutCreateUpdateAfterBindPoolBit),
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var layout vk.DescriptorSetLayout
	if err := vkCheck(vk.CreateDescriptorSetLayout(device, &layoutInfo, context.Allocator, &layout), "vkCreateDescriptorSetLayout"); err != nil {
		return nil, core.Fatal(err, "descriptor set layout")
	}
	d.Layout = layout

	poolSizes := descriptorPoolSizes(framesInFlight, maxTextures)
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateUpdateAfterBindBit),
		MaxSets:       1,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	var pool vk.DescriptorPool
	if err := vkCheck(vk.CreateDescriptorPool(device, &poolInfo, context.Allocator, &pool), "vkCreateDescriptorPool"); err != nil {
		d.Destroy(context)
		return nil, core.Fatal(err, "descriptor pool")
	}
	d.Pool = pool

	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}
	sets := make([]vk.DescriptorSet, 1)
	if err := vkCheck(vk.AllocateDescriptorSets(device, &allocInfo, &sets[0]), "vkAllocateDescriptorSets"); err != nil {
		d.Destroy(context)
		return nil, core.Exhausted(err, "descriptor set")
	}
	d.Set = sets[0]

	core.LogDebug("Descriptor set created (%d uniform buffers, %d textures).", framesInFlight, maxTextures)
	return d, nil
}

// Write fills every binding. Texture slots beyond len(textures) stay unbound.
func (d *VulkanDescriptors) Write(context *VulkanContext, uniforms []*Buffer, textures []*Image, sampler vk.Sampler, materials *Buffer) error {
	if uint32(len(uniforms)) != d.framesInFlight {
		return core.Protocolf("%d uniform buffers for %d frames in flight", len(uniforms), d.framesInFlight)
	}
	if len(textures) == 0 || uint32(len(textures)) > d.maxTextures {
		return core.Protocolf("%d textures for a descriptor array of %d", len(textures), d.maxTextures)
	}
	if materials == nil || !materials.Valid() {
		return core.Protocolf("material index buffer is missing")
	}

	bufferInfos := make([]vk.DescriptorBufferInfo, len(uniforms))
	for i, uniform := range uniforms {
		bufferInfos[i] = vk.DescriptorBufferInfo{
			Buffer: uniform.Handle(),
			Offset: 0,
			Range:  vk.DeviceSize(uniform.Size()),
		}
	}
	imageInfos := make([]vk.DescriptorImageInfo, len(textures))
	for i, texture := range textures {
		imageInfos[i] = vk.DescriptorImageInfo{
			Sampler:     sampler,
			ImageView:   texture.View(),
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
		}
	}
	materialInfo := []vk.DescriptorBufferInfo{{
		Buffer: materials.Handle(),
		Offset: 0,
		Range:  vk.DeviceSize(materials.Size()),
	}}

	writes := []vk.WriteDescriptorSet{
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          d.Set,
			DstBinding:      BINDING_UNIFORM_BUFFERS,
			DescriptorCount: uint32(len(bufferInfos)),
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			PBufferInfo:     bufferInfos,
		},
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          d.Set,
			DstBinding:      BINDING_TEXTURES,
			DescriptorCount: uint32(len(imageInfos)),
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			PImageInfo:      imageInfos,
		},
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          d.Set,
			DstBinding:      BINDING_MATERIALS,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			PBufferInfo:     materialInfo,
		},
	}
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
	return nil
}

// Destroy frees the pool, which releases the set with it, then the layout.
func (d *VulkanDescriptors) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if d.Pool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(device, d.Pool, context.Allocator)
		d.Pool = vk.NullDescriptorPool
		d.Set = vk.NullDescriptorSet
	}
	if d.Layout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(device, d.Layout, context.Allocator)
		d.Layout = vk.NullDescriptorSetLayout
	}
}

// NewTextureSampler creates the linear, repeating sampler used for every texture.
func NewTextureSampler(context *VulkanContext) (vk.Sampler, error) {
	limits := context.Device.Properties.Limits
	limits.Deref()

	samplerInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		AddressModeU:            vk.SamplerAddressModeRepeat,
		AddressModeV:            vk.SamplerAddressModeRepeat,
		AddressModeW:            vk.SamplerAddressModeRepeat,
		AnisotropyEnable:        vk.True,
		MaxAnisotropy:           limits.MaxSamplerAnisotropy,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MipmapMode:              vk.SamplerMipmapModeLinear,
	}
	var sampler vk.Sampler
	if err := vkCheck(vk.CreateSampler(context.Device.LogicalDevice, &samplerInfo, context.Allocator, &sampler), "vkCreateSampler"); err != nil {
		return vk.NullSampler, core.Fatal(err, "texture sampler")
	}
	return sampler, nil
}
