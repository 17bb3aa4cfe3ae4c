package loaders

import (
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/velo/engine/core"
	"github.com/spaghettifunk/velo/engine/renderer/metadata"
	"golang.org/x/image/bmp"
)

const quadOBJ = `o quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
f 1/1 2/2 3/3 4/4
`

func TestDecodeMeshTriangulatesAndDeduplicates(t *testing.T) {
	mesh, err := DecodeMesh(strings.NewReader(quadOBJ), strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if mesh.FaceCount != 2 {
		t.Errorf("faces = %d, want 2", mesh.FaceCount)
	}
	if len(mesh.Vertices) != 4 {
		t.Errorf("vertices = %d, want 4 after deduplication", len(mesh.Vertices))
	}
	want := []uint32{0, 1, 2, 0, 2, 3}
	if len(mesh.Indices) != len(want) {
		t.Fatalf("indices = %v, want %v", mesh.Indices, want)
	}
	for i := range want {
		if mesh.Indices[i] != want[i] {
			t.Fatalf("indices = %v, want %v", mesh.Indices, want)
		}
	}

	first := mesh.Vertices[0]
	if first.TexCoord != (mgl32.Vec2{0, 1}) {
		t.Errorf("v was not flipped: %v", first.TexCoord)
	}
	if first.Color != (mgl32.Vec3{1, 1, 1}) {
		t.Errorf("color = %v, want white", first.Color)
	}
}

func TestDecodeMeshRejectsEmptyModel(t *testing.T) {
	_, err := DecodeMesh(strings.NewReader("o empty\nv 0 0 0\n"), strings.NewReader(""))
	if !core.IsProtocolViolation(err) {
		t.Errorf("expected a protocol violation, got %v", err)
	}
}

func TestModelLoaderReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quad.obj")
	if err := os.WriteFile(path, []byte(quadOBJ), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := (&ModelLoader{}).Load(path, metadata.ResourceTypeModel, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Name != "quad" || res.Type != metadata.ResourceTypeModel {
		t.Errorf("resource = %s/%s", res.Type, res.Name)
	}
	if _, ok := res.Data.(*metadata.MeshData); !ok {
		t.Errorf("data is %T, want *metadata.MeshData", res.Data)
	}
}

func TestBytesToBytecode(t *testing.T) {
	good := make([]byte, 12)
	binary.LittleEndian.PutUint32(good, spirvMagic)
	binary.LittleEndian.PutUint32(good[4:], 0x00010300)
	binary.LittleEndian.PutUint32(good[8:], 42)

	tests := []struct {
		name    string
		data    []byte
		wantLen int
	}{
		{name: "valid", data: good, wantLen: 3},
		{name: "empty", data: nil},
		{name: "unaligned", data: good[:10]},
		{name: "bad magic", data: []byte{1, 2, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := BytesToBytecode(tt.data)
			if tt.wantLen == 0 {
				if !core.IsProtocolViolation(err) {
					t.Errorf("expected a protocol violation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(code) != tt.wantLen || code[0] != spirvMagic || code[2] != 42 {
				t.Errorf("code = %#v", code)
			}
		})
	}
}

func TestShaderLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vert.spv")
	blob := make([]byte, 8)
	binary.LittleEndian.PutUint32(blob, spirvMagic)
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := (&ShaderLoader{}).Load(path, metadata.ResourceTypeShader, nil)
	if err != nil {
		t.Fatal(err)
	}
	if code, ok := res.Data.([]uint32); !ok || len(code) != 2 {
		t.Errorf("data = %#v", res.Data)
	}
	if res.Name != "vert" {
		t.Errorf("name = %q", res.Name)
	}
}

func TestTextureLoaderConvertsToRGBA(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, color.NRGBA{R: 255, A: 255})
	src.Set(1, 0, color.NRGBA{B: 255, A: 255})

	dir := t.TempDir()
	encoders := map[string]func(*os.File) error{
		"a.png": func(f *os.File) error { return png.Encode(f, src) },
		"a.bmp": func(f *os.File) error { return bmp.Encode(f, src) },
	}
	for name, encode := range encoders {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			f, err := os.Create(path)
			if err != nil {
				t.Fatal(err)
			}
			if err := encode(f); err != nil {
				t.Fatal(err)
			}
			f.Close()

			res, err := (&TextureLoader{}).Load(path, metadata.ResourceTypeImage, nil)
			if err != nil {
				t.Fatal(err)
			}
			img := res.Data.(*metadata.ImageResourceData)
			if img.Width != 2 || img.Height != 1 || img.ChannelCount != 4 {
				t.Fatalf("image = %dx%d/%d", img.Width, img.Height, img.ChannelCount)
			}
			want := []uint8{255, 0, 0, 255, 0, 0, 255, 255}
			for i := range want {
				if img.Pixels[i] != want[i] {
					t.Fatalf("pixels = %v, want %v", img.Pixels, want)
				}
			}
		})
	}
}

func TestToRGBAHandlesOffsetBounds(t *testing.T) {
	src := image.NewGray(image.Rect(3, 3, 5, 4))
	src.SetGray(3, 3, color.Gray{Y: 10})
	src.SetGray(4, 3, color.Gray{Y: 20})
	img := ToRGBA(src)
	if img.Width != 2 || img.Height != 1 || len(img.Pixels) != 8 {
		t.Fatalf("image = %dx%d with %d bytes", img.Width, img.Height, len(img.Pixels))
	}
	if img.Pixels[0] != 10 || img.Pixels[4] != 20 || img.Pixels[3] != 255 {
		t.Errorf("pixels = %v", img.Pixels)
	}
}
