package metadata

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestVertexLayout(t *testing.T) {
	if VertexStride != 32 {
		t.Fatalf("stride = %d, want 32", VertexStride)
	}
	if VertexPositionOffset != 0 || VertexTexCoordOffset != 12 || VertexColorOffset != 20 {
		t.Fatalf("unexpected offsets %d %d %d", VertexPositionOffset, VertexTexCoordOffset, VertexColorOffset)
	}
}

func TestVertexIsComparable(t *testing.T) {
	seen := map[Vertex]uint32{}
	a := Vertex{Position: mgl32.Vec3{1, 2, 3}, TexCoord: mgl32.Vec2{0, 1}, Color: mgl32.Vec3{1, 1, 1}}
	b := a
	seen[a] = 7
	if seen[b] != 7 {
		t.Fatalf("equal vertices must hash the same")
	}
	b.TexCoord[1] = 0.5
	if _, ok := seen[b]; ok {
		t.Fatalf("vertices differing in texcoord must not collide")
	}
}

func TestAssignMaterials(t *testing.T) {
	m := &MeshData{FaceCount: 6}
	m.AssignMaterials(4)
	want := []uint32{0, 1, 2, 3, 0, 1}
	for i, v := range want {
		if m.MaterialIndices[i] != v {
			t.Fatalf("material[%d] = %d, want %d", i, m.MaterialIndices[i], v)
		}
	}
	if len(m.MaterialIndexBytes()) != 24 {
		t.Fatalf("material bytes = %d", len(m.MaterialIndexBytes()))
	}
}

func TestDefaultMaterialImages(t *testing.T) {
	images := DefaultMaterialImages()
	if len(images) != 4 {
		t.Fatalf("got %d images", len(images))
	}
	want := []uint8{255, 204, 153, 102}
	for i, img := range images {
		if img.Width != 1 || img.Height != 1 || len(img.Pixels) != 4 {
			t.Fatalf("image %d has wrong shape", i)
		}
		if img.Pixels[0] != want[i] || img.Pixels[3] != 255 {
			t.Fatalf("image %d = %v, want grey %d", i, img.Pixels, want[i])
		}
	}
}

func TestUniformBufferObject(t *testing.T) {
	ubo := NewUniformBufferObject(90, mgl32.Vec3{2, 2, 2}, 800, 600)

	// 90 degrees about Z maps +X onto +Y.
	x := ubo.Model.Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	if math.Abs(float64(x[0])) > 1e-5 || math.Abs(float64(x[1]-1)) > 1e-5 {
		t.Fatalf("model rotation wrong: %v", x)
	}

	// The projection is flipped on Y.
	ref := mgl32.Perspective(mgl32.DegToRad(45), 800.0/600.0, 0.1, 10)
	if ubo.Proj[5] != -ref[5] {
		t.Fatalf("proj[1][1] = %f, want %f", ubo.Proj[5], -ref[5])
	}

	// The origin ends up straight ahead of the camera.
	o := ubo.View.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	if math.Abs(float64(o[0])) > 1e-5 || math.Abs(float64(o[1])) > 1e-5 || o[2] >= 0 {
		t.Fatalf("origin not in front of the camera: %v", o)
	}

	if len(ubo.Bytes()) != 192 {
		t.Fatalf("ubo size = %d, want 192", len(ubo.Bytes()))
	}
}

func TestUniformBufferObjectZeroExtent(t *testing.T) {
	ubo := NewUniformBufferObject(0, mgl32.Vec3{2, 2, 2}, 0, 0)
	for _, v := range ubo.Proj {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("projection not finite for a zero extent: %v", ubo.Proj)
		}
	}
}

func TestPushConstantsBytes(t *testing.T) {
	p := PushConstants{ObjectIndex: 1, TextureIndex: 0}
	b := p.Bytes()
	if len(b) != 8 || b[0] != 1 {
		t.Fatalf("unexpected push constant bytes %v", b)
	}
}
