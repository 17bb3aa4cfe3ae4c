package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/velo/engine/config"
	"github.com/spaghettifunk/velo/engine/core"
	"github.com/spaghettifunk/velo/engine/renderer/metadata"
	"github.com/spaghettifunk/velo/engine/renderer/vulkan"
)

type RendererType uint8

const (
	Vulkan RendererType = iota
)

func (t RendererType) String() string {
	switch t {
	case Vulkan:
		return "vulkan"
	}
	return "unknown"
}

// FrameStats counts what the scheduler did since startup.
type FrameStats struct {
	Drawn      uint64
	Skipped    uint64
	Recreated  uint64
	LastReport vulkan.FrameReport
}

/**
 * @brief Front end over a single backend. One instance per window, owned by
 * the engine.
 */
type Renderer struct {
	backend RendererBackend
	stats   FrameStats
}

func New(cfg *config.Config, rendererType RendererType) (*Renderer, error) {
	switch rendererType {
	case Vulkan:
		return NewWithBackend(vulkan.New(cfg)), nil
	}
	return nil, core.Fatalf("renderer backend %s is not supported", rendererType)
}

func NewWithBackend(backend RendererBackend) *Renderer {
	return &Renderer{backend: backend}
}

func (r *Renderer) Initialize(window vulkan.Window, scene *metadata.SceneData, resizes vulkan.ResizeSource, uniforms vulkan.UniformSource) error {
	return r.backend.Initialize(window, scene, resizes, uniforms)
}

// DrawFrame draws one frame. Skipped frames are not errors.
func (r *Renderer) DrawFrame() error {
	report, err := r.backend.DrawFrame()
	r.stats.LastReport = report
	if err != nil {
		if !errors.Is(err, core.ErrWindowClosed) {
			core.LogError("frame %d failed: %s", report.FrameCount, err)
		}
		return err
	}
	if report.Skipped {
		r.stats.Skipped++
	} else {
		r.stats.Drawn++
	}
	if report.Recreated {
		r.stats.Recreated++
	}
	core.LogDebug("frame %d slot %d image %d skipped=%t", report.FrameCount, report.Slot, report.ImageIndex, report.Skipped)
	return nil
}

func (r *Renderer) Stats() FrameStats {
	return r.stats
}

func (r *Renderer) WaitIdle() error {
	return r.backend.WaitIdle()
}

func (r *Renderer) Shutdown() {
	r.backend.Shutdown()
	core.LogInfo("renderer shut down after %d frames (%d skipped, %d swapchain recreations)", r.stats.Drawn+r.stats.Skipped, r.stats.Skipped, r.stats.Recreated)
}
