package metadata

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	FieldOfView float32 = 45
	NearPlane   float32 = 0.1
	FarPlane    float32 = 10
)

// UniformBufferObject matches the std140 block read by the vertex shader.
type UniformBufferObject struct {
	Model mgl32.Mat4
	View  mgl32.Mat4
	Proj  mgl32.Mat4
}

const UniformBufferObjectSize = uint64(unsafe.Sizeof(UniformBufferObject{}))

// NewUniformBufferObject builds the matrices for one frame. angle is the model rotation
// about Z in degrees, eye looks at the origin with Z up.
func NewUniformBufferObject(angle float32, eye mgl32.Vec3, width, height uint32) UniformBufferObject {
	aspect := float32(1)
	if width > 0 && height > 0 {
		aspect = float32(width) / float32(height)
	}
	proj := mgl32.Perspective(mgl32.DegToRad(FieldOfView), aspect, NearPlane, FarPlane)
	// Vulkan clip space has Y pointing down.
	proj[5] *= -1

	return UniformBufferObject{
		Model: mgl32.HomogRotate3DZ(mgl32.DegToRad(angle)),
		View:  mgl32.LookAtV(eye, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, 1}),
		Proj:  proj,
	}
}

func (u *UniformBufferObject) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(u)), UniformBufferObjectSize)
}

// PushConstants are re-specified for every draw.
type PushConstants struct {
	ObjectIndex  uint32
	TextureIndex uint32
}

const PushConstantsSize = uint32(unsafe.Sizeof(PushConstants{}))

func (p *PushConstants) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), PushConstantsSize)
}
