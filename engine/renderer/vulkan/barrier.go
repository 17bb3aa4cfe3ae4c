package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/velo/engine/core"
)

// TransitionMasks holds the synchronization2 masks for one layout change.
type TransitionMasks struct {
	SrcAccess uint64
	SrcStage  uint64
	DstAccess uint64
	DstStage  uint64
}

type layoutPair struct {
	old vk.ImageLayout
	new vk.ImageLayout
}

const depthTestStages = PIPELINE_STAGE_2_EARLY_FRAGMENT_TESTS | PIPELINE_STAGE_2_LATE_FRAGMENT_TESTS

// Every layout change the renderer performs. Anything else is a bug.
var layoutTransitions = map[layoutPair]TransitionMasks{
	{vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal}: {
		SrcAccess: ACCESS_2_NONE,
		SrcStage:  PIPELINE_STAGE_2_TOP_OF_PIPE,
		DstAccess: ACCESS_2_TRANSFER_WRITE,
		DstStage:  PIPELINE_STAGE_2_TRANSFER,
	},
	{vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal}: {
		SrcAccess: ACCESS_2_TRANSFER_WRITE,
		SrcStage:  PIPELINE_STAGE_2_TRANSFER,
		DstAccess: ACCESS_2_SHADER_READ,
		DstStage:  PIPELINE_STAGE_2_FRAGMENT_SHADER,
	},
	{vk.ImageLayoutUndefined, vk.ImageLayoutColorAttachmentOptimal}: {
		SrcAccess: ACCESS_2_NONE,
		SrcStage:  PIPELINE_STAGE_2_COLOR_ATTACHMENT_OUTPUT,
		DstAccess: ACCESS_2_COLOR_ATTACHMENT_WRITE,
		DstStage:  PIPELINE_STAGE_2_COLOR_ATTACHMENT_OUTPUT,
	},
	{vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutPresentSrc}: {
		SrcAccess: ACCESS_2_COLOR_ATTACHMENT_WRITE,
		SrcStage:  PIPELINE_STAGE_2_COLOR_ATTACHMENT_OUTPUT,
		DstAccess: ACCESS_2_NONE,
		DstStage:  PIPELINE_STAGE_2_BOTTOM_OF_PIPE,
	},
	{vk.ImageLayoutUndefined, vk.ImageLayoutDepthStencilAttachmentOptimal}: {
		SrcAccess: ACCESS_2_NONE,
		SrcStage:  depthTestStages,
		DstAccess: ACCESS_2_DEPTH_STENCIL_ATTACHMENT_READ | ACCESS_2_DEPTH_STENCIL_ATTACHMENT_WRITE,
		DstStage:  depthTestStages,
	},
}

// LayoutTransition looks up the masks for old -> new.
func LayoutTransition(old, new vk.ImageLayout) (TransitionMasks, error) {
	masks, ok := layoutTransitions[layoutPair{old, new}]
	if !ok {
		return TransitionMasks{}, core.Protocolf("unsupported layout transition %d -> %d", old, new)
	}
	return masks, nil
}

func NewImageBarrier(image vk.Image, old, new vk.ImageLayout, aspect vk.ImageAspectFlags, baseMip, mipCount uint32) (vk.ImageMemoryBarrier2, error) {
	masks, err := LayoutTransition(old, new)
	if err != nil {
		return vk.ImageMemoryBarrier2{}, err
	}
	return vk.ImageMemoryBarrier2{
		SType:               vk.StructureTypeImageMemoryBarrier2,
		SrcStageMask:        vk.PipelineStageFlags2(masks.SrcStage),
		SrcAccessMask:       vk.AccessFlags2(masks.SrcAccess),
		DstStageMask:        vk.PipelineStageFlags2(masks.DstStage),
		DstAccessMask:       vk.AccessFlags2(masks.DstAccess),
		OldLayout:           old,
		NewLayout:           new,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   baseMip,
			LevelCount:     mipCount,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}, nil
}

// depthAspect returns the aspects a depth format carries.
func depthAspect(format vk.Format) vk.ImageAspectFlags {
	switch format {
	case vk.FormatD32SfloatS8Uint, vk.FormatD24UnormS8Uint:
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit | vk.ImageAspectStencilBit)
	}
	return vk.ImageAspectFlags(vk.ImageAspectDepthBit)
}
