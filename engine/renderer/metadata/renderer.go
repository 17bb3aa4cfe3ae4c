package metadata

import (
	"github.com/spaghettifunk/velo/engine/core"
)

/**
 * @brief Everything the renderer uploads once during initialization.
 * Nothing here changes after the first frame.
 */
type SceneData struct {
	/** @brief SPIR-V words of the vertex stage. */
	VertexShader []uint32
	/** @brief SPIR-V words of the fragment stage. */
	FragmentShader []uint32
	/** @brief The single model drawn every frame. */
	Mesh *MeshData
	/** @brief Sampled images, bound in order to the texture array. */
	Textures []*ImageResourceData
}

// Validate reports scene data the backend cannot draw.
func (s *SceneData) Validate(maxTextures uint32) error {
	if len(s.VertexShader) == 0 || len(s.FragmentShader) == 0 {
		return core.Protocolf("scene is missing a shader stage")
	}
	if s.Mesh == nil || len(s.Mesh.Vertices) == 0 || len(s.Mesh.Indices) == 0 {
		return core.Protocolf("scene has no geometry")
	}
	if len(s.Mesh.Indices)%3 != 0 {
		return core.Protocolf("index count %d is not a multiple of 3", len(s.Mesh.Indices))
	}
	if len(s.Mesh.MaterialIndices) == 0 {
		return core.Protocolf("scene has no material indices")
	}
	if len(s.Textures) == 0 || uint32(len(s.Textures)) > maxTextures {
		return core.Protocolf("%d textures, expected 1..%d", len(s.Textures), maxTextures)
	}
	for i, t := range s.Textures {
		if t == nil || t.Width == 0 || t.Height == 0 || uint64(len(t.Pixels)) != uint64(t.Width)*uint64(t.Height)*4 {
			return core.Protocolf("texture %d is not a tightly packed RGBA image", i)
		}
	}
	for _, m := range s.Mesh.MaterialIndices {
		if m >= uint32(len(s.Textures)) {
			return core.Protocolf("material index %d out of range for %d textures", m, len(s.Textures))
		}
	}
	return nil
}
