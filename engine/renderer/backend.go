package renderer

import (
	"github.com/spaghettifunk/velo/engine/renderer/metadata"
	"github.com/spaghettifunk/velo/engine/renderer/vulkan"
)

// RendererBackend is implemented by each graphics API.
type RendererBackend interface {
	Initialize(window vulkan.Window, scene *metadata.SceneData, resizes vulkan.ResizeSource, uniforms vulkan.UniformSource) error
	DrawFrame() (vulkan.FrameReport, error)
	WaitIdle() error
	Shutdown()
}
