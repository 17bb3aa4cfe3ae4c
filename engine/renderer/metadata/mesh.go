package metadata

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

/**
 * @brief A single vertex as laid out in the vertex buffer.
 * Comparable, so it can key the deduplication map while loading a mesh.
 */
type Vertex struct {
	/** @brief Object space position. */
	Position mgl32.Vec3
	/** @brief Texture coordinate, v already flipped for Vulkan. */
	TexCoord mgl32.Vec2
	/** @brief Vertex color. */
	Color mgl32.Vec3
}

const (
	VertexStride         = uint32(unsafe.Sizeof(Vertex{}))
	VertexPositionOffset = uint32(unsafe.Offsetof(Vertex{}.Position))
	VertexTexCoordOffset = uint32(unsafe.Offsetof(Vertex{}.TexCoord))
	VertexColorOffset    = uint32(unsafe.Offsetof(Vertex{}.Color))
)

/**
 * @brief CPU side mesh produced by the model loader.
 */
type MeshData struct {
	Vertices []Vertex
	/** @brief 32-bit indices into Vertices. */
	Indices []uint32
	/** @brief One material index per triangle, in load order. */
	MaterialIndices []uint32
	/** @brief Number of triangles read from the file. */
	FaceCount uint32
}

func (m *MeshData) VertexBytes() []byte {
	if len(m.Vertices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&m.Vertices[0])), len(m.Vertices)*int(VertexStride))
}

func (m *MeshData) IndexBytes() []byte {
	return Uint32Bytes(m.Indices)
}

func (m *MeshData) MaterialIndexBytes() []byte {
	return Uint32Bytes(m.MaterialIndices)
}

// AssignMaterials fills MaterialIndices with faceIndex % count.
func (m *MeshData) AssignMaterials(count uint32) {
	m.MaterialIndices = make([]uint32, m.FaceCount)
	if count == 0 {
		return
	}
	for i := range m.MaterialIndices {
		m.MaterialIndices[i] = uint32(i) % count
	}
}

// Uint32Bytes views a uint32 slice as bytes without copying.
func Uint32Bytes(values []uint32) []byte {
	if len(values) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&values[0])), len(values)*4)
}
