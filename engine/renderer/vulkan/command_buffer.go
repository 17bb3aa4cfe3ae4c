package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/velo/engine/core"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

// RenderTarget is what one frame draws into.
type RenderTarget struct {
	ColorImage  vk.Image
	ColorView   vk.ImageView
	DepthImage  vk.Image
	DepthView   vk.ImageView
	DepthAspect vk.ImageAspectFlags
	Extent      vk.Extent2D
}

/**
 * @brief The recording operations the renderer issues. Implemented by
 * VulkanCommandBuffer.
 */
type Commands interface {
	TransitionImage(image vk.Image, old, new vk.ImageLayout, aspect vk.ImageAspectFlags, mipLevels uint32) error
	CopyBuffer(src, dst *Buffer, size uint64)
	CopyBufferToImage(src *Buffer, dst *Image)
	BeginRendering(target RenderTarget)
	EndRendering()
	BindPipeline(pipeline vk.Pipeline)
	BindVertexBuffer(buffer *Buffer)
	BindIndexBuffer(buffer *Buffer)
	SetViewportScissor(extent vk.Extent2D)
	BindDescriptorSet(layout vk.PipelineLayout, set vk.DescriptorSet)
	PushConstants(layout vk.PipelineLayout, data []byte)
	DrawIndexed(indexCount uint32)
}

// FrameCommands is a reusable command buffer owned by one frame slot.
type FrameCommands interface {
	Commands
	Handle() vk.CommandBuffer
	Reset() error
	Begin(isSingleUse, isRenderpassContinue, isSimultaneousUse bool) error
	End() error
}

type VulkanCommandBuffer struct {
	handle   vk.CommandBuffer
	commands *DeviceCommands
	// Command buffer state.
	State VulkanCommandBufferState
}

func NewVulkanCommandBuffer(context *VulkanContext, pool vk.CommandPool, isPrimary bool) (*VulkanCommandBuffer, error) {
	vCommandBuffer := &VulkanCommandBuffer{
		commands: context.Device.Commands,
		State:    COMMAND_BUFFER_STATE_NOT_ALLOCATED,
	}

	level := vk.CommandBufferLevelPrimary
	if !isPrimary {
		level = vk.CommandBufferLevelSecondary
	}

	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		CommandBufferCount: 1,
		Level:              level,
	}

	handles := make([]vk.CommandBuffer, 1)
	if err := vkCheck(vk.AllocateCommandBuffers(context.Device.LogicalDevice, &allocateInfo, handles), "vkAllocateCommandBuffers"); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	vCommandBuffer.handle = handles[0]
	vCommandBuffer.State = COMMAND_BUFFER_STATE_READY

	return vCommandBuffer, nil
}

func (v *VulkanCommandBuffer) Handle() vk.CommandBuffer {
	return v.handle
}

func (v *VulkanCommandBuffer) Free(context *VulkanContext, pool vk.CommandPool) {
	if v.handle == nil {
		return
	}
	vk.FreeCommandBuffers(context.Device.LogicalDevice, pool, 1, []vk.CommandBuffer{v.handle})
	v.handle = nil
	v.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}

func (v *VulkanCommandBuffer) Begin(isSingleUse, isRenderpassContinue, isSimultaneousUse bool) error {
	if v.State != COMMAND_BUFFER_STATE_READY {
		return core.Protocolf("begin on a command buffer in state %d", v.State)
	}

	beginInfo := &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: 0,
	}

	if isSingleUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if isRenderpassContinue {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit)
	}
	if isSimultaneousUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}

	if err := vkCheck(vk.BeginCommandBuffer(v.handle, beginInfo), "vkBeginCommandBuffer"); err != nil {
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *VulkanCommandBuffer) End() error {
	if v.State == COMMAND_BUFFER_STATE_IN_RENDER_PASS {
		return core.Protocolf("end while dynamic rendering is active")
	}
	if err := vkCheck(vk.EndCommandBuffer(v.handle), "vkEndCommandBuffer"); err != nil {
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}

// Reset returns the buffer to the ready state. The pool must have been
// created with the reset-command-buffer flag.
func (v *VulkanCommandBuffer) Reset() error {
	if err := vkCheck(vk.ResetCommandBuffer(v.handle, 0), "vkResetCommandBuffer"); err != nil {
		return err
	}
	v.State = COMMAND_BUFFER_STATE_READY
	return nil
}

func (v *VulkanCommandBuffer) TransitionImage(image vk.Image, old, new vk.ImageLayout, aspect vk.ImageAspectFlags, mipLevels uint32) error {
	barrier, err := NewImageBarrier(image, old, new, aspect, 0, mipLevels)
	if err != nil {
		return err
	}
	v.commands.CmdPipelineBarrier2(v.handle, &vk.DependencyInfo{
		SType:                   vk.StructureTypeDependencyInfo,
		ImageMemoryBarrierCount: 1,
		PImageMemoryBarriers:    []vk.ImageMemoryBarrier2{barrier},
	})
	return nil
}

func (v *VulkanCommandBuffer) CopyBuffer(src, dst *Buffer, size uint64) {
	region := []vk.BufferCopy{{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      vk.DeviceSize(size),
	}}
	vk.CmdCopyBuffer(v.handle, src.Handle(), dst.Handle(), 1, region)
}

func (v *VulkanCommandBuffer) CopyBufferToImage(src *Buffer, dst *Image) {
	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageExtent: vk.Extent3D{
			Width:  dst.Width(),
			Height: dst.Height(),
			Depth:  1,
		},
	}
	vk.CmdCopyBufferToImage(v.handle, src.Handle(), dst.Handle(), vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
}

// BeginRendering clears color to opaque black and depth to 1.0. Depth is not stored.
func (v *VulkanCommandBuffer) BeginRendering(target RenderTarget) {
	colorAttachments := []vk.RenderingAttachmentInfo{{
		SType:       vk.StructureTypeRenderingAttachmentInfo,
		ImageView:   target.ColorView,
		ImageLayout: vk.ImageLayoutColorAttachmentOptimal,
		LoadOp:      vk.AttachmentLoadOpClear,
		StoreOp:     vk.AttachmentStoreOpStore,
		ClearValue:  vk.NewClearValue([]float32{0.0, 0.0, 0.0, 1.0}),
	}}
	depthAttachments := []vk.RenderingAttachmentInfo{{
		SType:       vk.StructureTypeRenderingAttachmentInfo,
		ImageView:   target.DepthView,
		ImageLayout: vk.ImageLayoutDepthStencilAttachmentOptimal,
		LoadOp:      vk.AttachmentLoadOpClear,
		StoreOp:     vk.AttachmentStoreOpDontCare,
		ClearValue:  vk.NewClearDepthStencil(1.0, 0),
	}}
	renderInfo := vk.RenderingInfo{
		SType: vk.StructureTypeRenderingInfo,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: target.Extent,
		},
		LayerCount:           1,
		ColorAttachmentCount: 1,
		PColorAttachments:    colorAttachments,
		PDepthAttachment:     depthAttachments,
	}
	v.commands.CmdBeginRendering(v.handle, &renderInfo)
	v.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (v *VulkanCommandBuffer) EndRendering() {
	v.commands.CmdEndRendering(v.handle)
	v.State = COMMAND_BUFFER_STATE_RECORDING
}

func (v *VulkanCommandBuffer) BindPipeline(pipeline vk.Pipeline) {
	vk.CmdBindPipeline(v.handle, vk.PipelineBindPointGraphics, pipeline)
}

func (v *VulkanCommandBuffer) BindVertexBuffer(buffer *Buffer) {
	vk.CmdBindVertexBuffers(v.handle, 0, 1, []vk.Buffer{buffer.Handle()}, []vk.DeviceSize{0})
}

func (v *VulkanCommandBuffer) BindIndexBuffer(buffer *Buffer) {
	vk.CmdBindIndexBuffer(v.handle, buffer.Handle(), 0, vk.IndexTypeUint32)
}

func (v *VulkanCommandBuffer) SetViewportScissor(extent vk.Extent2D) {
	viewports := []vk.Viewport{{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}}
	scissors := []vk.Rect2D{{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: extent,
	}}
	vk.CmdSetViewport(v.handle, 0, 1, viewports)
	vk.CmdSetScissor(v.handle, 0, 1, scissors)
}

func (v *VulkanCommandBuffer) BindDescriptorSet(layout vk.PipelineLayout, set vk.DescriptorSet) {
	vk.CmdBindDescriptorSets(v.handle, vk.PipelineBindPointGraphics, layout, 0, 1, []vk.DescriptorSet{set}, 0, nil)
}

func (v *VulkanCommandBuffer) PushConstants(layout vk.PipelineLayout, data []byte) {
	if len(data) == 0 {
		return
	}
	stages := vk.ShaderStageFlags(vk.ShaderStageVertexBit | vk.ShaderStageFragmentBit)
	vk.CmdPushConstants(v.handle, layout, stages, 0, uint32(len(data)), unsafe.Pointer(&data[0]))
}

func (v *VulkanCommandBuffer) DrawIndexed(indexCount uint32) {
	vk.CmdDrawIndexed(v.handle, indexCount, 1, 0, 0, 0)
}

/**
 * Allocates and begins recording a one-time command buffer.
 */
func AllocateAndBeginSingleUse(context *VulkanContext, pool vk.CommandPool) (*VulkanCommandBuffer, error) {
	cb, err := NewVulkanCommandBuffer(context, pool, true)
	if err != nil {
		return nil, err
	}
	if err := cb.Begin(true, false, false); err != nil {
		cb.Free(context, pool)
		return nil, err
	}
	return cb, nil
}

/**
 * Ends recording, submits to and waits for queue operation and frees the provided command buffer.
 */
func (v *VulkanCommandBuffer) EndSingleUse(context *VulkanContext, pool vk.CommandPool, queue vk.Queue) error {
	defer v.Free(context, pool)

	// End the command buffer.
	if err := v.End(); err != nil {
		return err
	}

	// Submit the queue
	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{v.handle},
	}
	if err := vkCheck(vk.QueueSubmit(queue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence), "vkQueueSubmit"); err != nil {
		return err
	}
	v.UpdateSubmitted()

	// Wait for it to finish
	return vkCheck(vk.QueueWaitIdle(queue), "vkQueueWaitIdle")
}

// Executor runs recorded work to completion before returning.
type Executor interface {
	Execute(record func(cmd Commands) error) error
}

/**
 * @brief Runs one-shot command buffers on the graphics queue and blocks until
 * the queue is idle.
 */
type ImmediateExecutor struct {
	context *VulkanContext
	pool    vk.CommandPool
	queue   vk.Queue
}

func NewImmediateExecutor(context *VulkanContext, pool vk.CommandPool, queue vk.Queue) *ImmediateExecutor {
	return &ImmediateExecutor{context: context, pool: pool, queue: queue}
}

func (e *ImmediateExecutor) Execute(record func(cmd Commands) error) error {
	cb, err := AllocateAndBeginSingleUse(e.context, e.pool)
	if err != nil {
		return err
	}
	if err := record(cb); err != nil {
		cb.Free(e.context, e.pool)
		return err
	}
	return cb.EndSingleUse(e.context, e.pool, e.queue)
}
