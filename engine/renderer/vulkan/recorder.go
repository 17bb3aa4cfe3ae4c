package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/velo/engine/core"
	"github.com/spaghettifunk/velo/engine/renderer/metadata"
)

// DrawState is the fixed scene bound every frame.
type DrawState struct {
	Pipeline      vk.Pipeline
	Layout        vk.PipelineLayout
	DescriptorSet vk.DescriptorSet
	Vertices      *Buffer
	Indices       *Buffer
	IndexCount    uint32
}

/**
 * @brief Records the single-pass frame: clear, draw the model, transition the
 * color image for presentation. Recording never blocks.
 */
type Recorder struct {
	draw DrawState
}

func NewRecorder(draw DrawState) *Recorder {
	return &Recorder{draw: draw}
}

func (r *Recorder) Record(cmd Commands, target RenderTarget, slot uint32) error {
	if r.draw.Vertices == nil || r.draw.Indices == nil || r.draw.IndexCount == 0 {
		return core.Protocolf("record without geometry")
	}
	colorAspect := vk.ImageAspectFlags(vk.ImageAspectColorBit)

	if err := cmd.TransitionImage(target.ColorImage, vk.ImageLayoutUndefined, vk.ImageLayoutColorAttachmentOptimal, colorAspect, 1); err != nil {
		return err
	}
	// The depth contents are discarded each frame, so its layout is re-asserted from undefined.
	if err := cmd.TransitionImage(target.DepthImage, vk.ImageLayoutUndefined, vk.ImageLayoutDepthStencilAttachmentOptimal, target.DepthAspect, 1); err != nil {
		return err
	}

	cmd.BeginRendering(target)
	cmd.BindPipeline(r.draw.Pipeline)
	cmd.BindVertexBuffer(r.draw.Vertices)
	cmd.BindIndexBuffer(r.draw.Indices)
	cmd.SetViewportScissor(target.Extent)
	cmd.BindDescriptorSet(r.draw.Layout, r.draw.DescriptorSet)

	constants := metadata.PushConstants{ObjectIndex: slot, TextureIndex: 0}
	cmd.PushConstants(r.draw.Layout, constants.Bytes())
	cmd.DrawIndexed(r.draw.IndexCount)
	cmd.EndRendering()

	return cmd.TransitionImage(target.ColorImage, vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutPresentSrc, colorAspect, 1)
}
