package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/velo/engine/core"
	"github.com/spaghettifunk/velo/engine/renderer/metadata"
)

// ResizeSource reports a pending framebuffer resize exactly once.
type ResizeSource interface {
	Take() bool
}

// UniformSource produces the matrices for the current swapchain extent.
type UniformSource func(extent vk.Extent2D) metadata.UniformBufferObject

// FrameReport describes what one DrawFrame call did.
type FrameReport struct {
	FrameCount uint64
	Slot       uint32
	ImageIndex uint32
	// Skipped frames submit nothing; their timeline value is signaled from the host.
	Skipped   bool
	Recreated bool
}

type SchedulerParams struct {
	FramesInFlight uint32
	Frames         []*FrameContext
	Sync           *SyncManager
	Swapchain      Presenter
	Queue          FrameQueue
	PresentQueue   vk.Queue
	Recorder       *Recorder
	Resizes        ResizeSource
	Uniforms       UniformSource
}

/**
 * @brief Paces frames on the timeline semaphore. Frame N uses slot
 * (N-1) % F and may only start once frame N-F has completed on the GPU.
 */
type Scheduler struct {
	framesInFlight uint32
	frameCount     uint64

	frames       []*FrameContext
	sync         *SyncManager
	swapchain    Presenter
	queue        FrameQueue
	presentQueue vk.Queue
	recorder     *Recorder
	resizes      ResizeSource
	uniforms     UniformSource
}

func NewScheduler(p SchedulerParams) (*Scheduler, error) {
	if p.FramesInFlight == 0 || p.FramesInFlight > VULKAN_MAX_FRAMES_IN_FLIGHT {
		return nil, core.Protocolf("frames in flight must be in [1,%d], got %d", VULKAN_MAX_FRAMES_IN_FLIGHT, p.FramesInFlight)
	}
	if uint32(len(p.Frames)) != p.FramesInFlight {
		return nil, core.Protocolf("%d frame contexts for %d frames in flight", len(p.Frames), p.FramesInFlight)
	}
	if err := p.Sync.EnsureRenderDone(p.Swapchain.ImageCount()); err != nil {
		return nil, err
	}
	return &Scheduler{
		framesInFlight: p.FramesInFlight,
		frames:         p.Frames,
		sync:           p.Sync,
		swapchain:      p.Swapchain,
		queue:          p.Queue,
		presentQueue:   p.PresentQueue,
		recorder:       p.Recorder,
		resizes:        p.Resizes,
		uniforms:       p.Uniforms,
	}, nil
}

// FrameCount returns the number of DrawFrame calls so far.
func (s *Scheduler) FrameCount() uint64 {
	return s.frameCount
}

func (s *Scheduler) DrawFrame() (FrameReport, error) {
	s.frameCount++
	n := s.frameCount
	slot := uint32((n - 1) % uint64(s.framesInFlight))
	report := FrameReport{FrameCount: n, Slot: slot}

	if err := s.sync.WaitForSlot(n, s.framesInFlight); err != nil {
		return report, err
	}

	if (s.resizes != nil && s.resizes.Take()) || s.swapchain.State() == SwapchainStale {
		return s.skip(report, "framebuffer resized")
	}

	frame := s.frames[slot]
	if err := frame.WriteUniforms(s.uniforms(s.swapchain.Extent())); err != nil {
		return report, err
	}

	imageIndex, result := s.swapchain.Acquire(frame.AcquireSemaphore)
	recreatePending := false
	switch result {
	case vk.Success:
	case vk.Suboptimal:
		recreatePending = true
	case vk.ErrorOutOfDate:
		return s.skip(report, "swapchain out of date on acquire")
	default:
		return report, vkCheck(result, "vkAcquireNextImage")
	}
	report.ImageIndex = imageIndex

	renderDone, err := s.sync.RenderDone(imageIndex)
	if err != nil {
		return report, err
	}

	cmd := frame.Commands
	if err := cmd.Reset(); err != nil {
		return report, err
	}
	if err := cmd.Begin(true, false, false); err != nil {
		return report, err
	}
	if err := s.recorder.Record(cmd, s.swapchain.Target(imageIndex), slot); err != nil {
		return report, err
	}
	if err := cmd.End(); err != nil {
		return report, err
	}

	err = s.queue.Submit(SubmitBatch{
		Slot:             slot,
		ImageIndex:       imageIndex,
		Commands:         cmd.Handle(),
		WaitAcquire:      frame.AcquireSemaphore,
		SignalRenderDone: renderDone,
		Timeline:         s.sync.Timeline().Handle(),
		TimelineValue:    n,
	})
	if err != nil {
		return report, err
	}

	switch result = s.swapchain.Present(s.presentQueue, renderDone, imageIndex); result {
	case vk.Success:
	case vk.Suboptimal, vk.ErrorOutOfDate:
		recreatePending = true
	default:
		return report, vkCheck(result, "vkQueuePresent")
	}

	if recreatePending {
		if err := s.recreate("surface changed during present"); err != nil {
			return report, err
		}
		report.Recreated = true
	}
	return report, nil
}

// skip rebuilds the swapchain and completes frame N from the host so the
// timeline stays gap free.
func (s *Scheduler) skip(report FrameReport, reason string) (FrameReport, error) {
	if err := s.recreate(reason); err != nil {
		return report, err
	}
	if err := s.sync.SignalTimeline(report.FrameCount); err != nil {
		return report, err
	}
	report.Skipped = true
	report.Recreated = true
	return report, nil
}

func (s *Scheduler) recreate(reason string) error {
	core.LogDebug("recreating swapchain: %s", reason)
	if err := s.swapchain.Recreate(); err != nil {
		return err
	}
	return s.sync.EnsureRenderDone(s.swapchain.ImageCount())
}
