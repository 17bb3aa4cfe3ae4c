package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/velo/engine/core"
)

// Timeline is a monotonically increasing GPU/host counter.
type Timeline interface {
	Handle() vk.Semaphore
	// Wait blocks until the counter reaches value.
	Wait(value uint64) error
	// Signal sets the counter from the host.
	Signal(value uint64) error
	Value() (uint64, error)
	Destroy()
}

type TimelineSemaphore struct {
	context *VulkanContext
	handle  vk.Semaphore
}

func NewTimelineSemaphore(context *VulkanContext) (*TimelineSemaphore, error) {
	typeInfo := vk.SemaphoreTypeCreateInfo{
		SType:         vk.StructureTypeSemaphoreTypeCreateInfo,
		SemaphoreType: vk.SemaphoreTypeTimeline,
		InitialValue:  0,
	}
	cTypeInfo, _ := typeInfo.PassRef()
	defer typeInfo.Free()

	info := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
		PNext: unsafe.Pointer(cTypeInfo),
	}
	var handle vk.Semaphore
	if err := vkCheck(vk.CreateSemaphore(context.Device.LogicalDevice, &info, context.Allocator, &handle), "vkCreateSemaphore(timeline)"); err != nil {
		return nil, err
	}
	return &TimelineSemaphore{context: context, handle: handle}, nil
}

func (t *TimelineSemaphore) Handle() vk.Semaphore {
	return t.handle
}

func (t *TimelineSemaphore) Wait(value uint64) error {
	if value == 0 {
		return nil
	}
	info := vk.SemaphoreWaitInfo{
		SType:          vk.StructureTypeSemaphoreWaitInfo,
		SemaphoreCount: 1,
		PSemaphores:    []vk.Semaphore{t.handle},
		PValues:        []uint64{value},
	}
	return vkCheck(t.context.Device.Commands.WaitSemaphores(t.context.Device.LogicalDevice, &info, vk.MaxUint64), "vkWaitSemaphores")
}

func (t *TimelineSemaphore) Signal(value uint64) error {
	info := vk.SemaphoreSignalInfo{
		SType:     vk.StructureTypeSemaphoreSignalInfo,
		Semaphore: t.handle,
		Value:     value,
	}
	return vkCheck(t.context.Device.Commands.SignalSemaphore(t.context.Device.LogicalDevice, &info), "vkSignalSemaphore")
}

func (t *TimelineSemaphore) Value() (uint64, error) {
	var value uint64
	err := vkCheck(t.context.Device.Commands.GetSemaphoreCounterValue(t.context.Device.LogicalDevice, t.handle, &value), "vkGetSemaphoreCounterValue")
	return value, err
}

func (t *TimelineSemaphore) Destroy() {
	if t.handle != vk.NullSemaphore {
		vk.DestroySemaphore(t.context.Device.LogicalDevice, t.handle, t.context.Allocator)
		t.handle = vk.NullSemaphore
	}
}

func createBinarySemaphore(context *VulkanContext) (vk.Semaphore, error) {
	info := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if err := vkCheck(vk.CreateSemaphore(context.Device.LogicalDevice, &info, context.Allocator, &semaphore), "vkCreateSemaphore"); err != nil {
		return vk.NullSemaphore, err
	}
	return semaphore, nil
}

// SemaphoreFactory creates and destroys binary semaphores.
type SemaphoreFactory interface {
	Create() (vk.Semaphore, error)
	Destroy(semaphore vk.Semaphore)
}

type deviceSemaphores struct {
	context *VulkanContext
}

func (d deviceSemaphores) Create() (vk.Semaphore, error) {
	return createBinarySemaphore(d.context)
}

func (d deviceSemaphores) Destroy(semaphore vk.Semaphore) {
	vk.DestroySemaphore(d.context.Device.LogicalDevice, semaphore, d.context.Allocator)
}

/**
 * @brief Owns the frame timeline and one render-done semaphore per swapchain
 * image. Acquire semaphores live in the frame contexts.
 */
type SyncManager struct {
	timeline   Timeline
	semaphores SemaphoreFactory
	renderDone []vk.Semaphore
}

func NewSyncManager(timeline Timeline, semaphores SemaphoreFactory) *SyncManager {
	return &SyncManager{timeline: timeline, semaphores: semaphores}
}

func NewDeviceSyncManager(context *VulkanContext, imageCount uint32) (*SyncManager, error) {
	timeline, err := NewTimelineSemaphore(context)
	if err != nil {
		return nil, err
	}
	s := NewSyncManager(timeline, deviceSemaphores{context: context})
	if err := s.EnsureRenderDone(imageCount); err != nil {
		s.Destroy()
		return nil, err
	}
	return s, nil
}

func (s *SyncManager) Timeline() Timeline {
	return s.timeline
}

// EnsureRenderDone grows the render-done set to count. It never shrinks.
func (s *SyncManager) EnsureRenderDone(count uint32) error {
	for uint32(len(s.renderDone)) < count {
		semaphore, err := s.semaphores.Create()
		if err != nil {
			return err
		}
		s.renderDone = append(s.renderDone, semaphore)
	}
	return nil
}

func (s *SyncManager) RenderDone(imageIndex uint32) (vk.Semaphore, error) {
	if imageIndex >= uint32(len(s.renderDone)) {
		return vk.NullSemaphore, core.Protocolf("no render-done semaphore for image %d (have %d)", imageIndex, len(s.renderDone))
	}
	return s.renderDone[imageIndex], nil
}

func (s *SyncManager) RenderDoneCount() int {
	return len(s.renderDone)
}

// WaitForSlot blocks until the frame that last used the slot of frameCount
// has finished, which is frame frameCount-framesInFlight.
func (s *SyncManager) WaitForSlot(frameCount uint64, framesInFlight uint32) error {
	var target uint64
	if frameCount > uint64(framesInFlight) {
		target = frameCount - uint64(framesInFlight)
	}
	return s.timeline.Wait(target)
}

// SignalTimeline completes frameCount from the host for frames that submit nothing.
func (s *SyncManager) SignalTimeline(frameCount uint64) error {
	return s.timeline.Signal(frameCount)
}

func (s *SyncManager) Destroy() {
	for _, semaphore := range s.renderDone {
		s.semaphores.Destroy(semaphore)
	}
	s.renderDone = nil
	if s.timeline != nil {
		s.timeline.Destroy()
		s.timeline = nil
	}
}

// SubmitBatch is one frame's queue submission.
type SubmitBatch struct {
	Slot             uint32
	ImageIndex       uint32
	Commands         vk.CommandBuffer
	WaitAcquire      vk.Semaphore
	SignalRenderDone vk.Semaphore
	Timeline         vk.Semaphore
	TimelineValue    uint64
}

type FrameQueue interface {
	Submit(batch SubmitBatch) error
}

type GraphicsQueue struct {
	handle   vk.Queue
	commands *DeviceCommands
}

func NewGraphicsQueue(handle vk.Queue, commands *DeviceCommands) *GraphicsQueue {
	return &GraphicsQueue{handle: handle, commands: commands}
}

// Submit waits on the acquire semaphore at color output and signals the
// render-done semaphore and the timeline once all graphics work is done.
func (q *GraphicsQueue) Submit(batch SubmitBatch) error {
	waits := []vk.SemaphoreSubmitInfo{{
		SType:     vk.StructureTypeSemaphoreSubmitInfo,
		Semaphore: batch.WaitAcquire,
		StageMask: vk.PipelineStageFlags2(PIPELINE_STAGE_2_COLOR_ATTACHMENT_OUTPUT),
	}}
	signals := []vk.SemaphoreSubmitInfo{
		{
			SType:     vk.StructureTypeSemaphoreSubmitInfo,
			Semaphore: batch.SignalRenderDone,
			StageMask: vk.PipelineStageFlags2(PIPELINE_STAGE_2_ALL_GRAPHICS),
		},
		{
			SType:     vk.StructureTypeSemaphoreSubmitInfo,
			Semaphore: batch.Timeline,
			Value:     batch.TimelineValue,
			StageMask: vk.PipelineStageFlags2(PIPELINE_STAGE_2_ALL_GRAPHICS),
		},
	}
	commandBuffers := []vk.CommandBufferSubmitInfo{{
		SType:         vk.StructureTypeCommandBufferSubmitInfo,
		CommandBuffer: batch.Commands,
	}}
	submit := vk.SubmitInfo2{
		SType:                    vk.StructureTypeSubmitInfo2,
		WaitSemaphoreInfoCount:   uint32(len(waits)),
		PWaitSemaphoreInfos:      waits,
		CommandBufferInfoCount:   uint32(len(commandBuffers)),
		PCommandBufferInfos:      commandBuffers,
		SignalSemaphoreInfoCount: uint32(len(signals)),
		PSignalSemaphoreInfos:    signals,
	}
	return vkCheck(q.commands.QueueSubmit2(q.handle, &submit), "vkQueueSubmit2")
}
