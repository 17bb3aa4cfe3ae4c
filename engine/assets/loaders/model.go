package loaders

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/g3n/engine/loader/obj"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/velo/engine/core"
	"github.com/spaghettifunk/velo/engine/renderer/metadata"
)

type ModelLoader struct{}

func (ml *ModelLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	objFile, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening model %s", path)
	}
	defer objFile.Close()

	// Materials are not used; an empty library keeps the decoder from
	// resolving mtllib paths on its own.
	var mtl io.Reader = strings.NewReader("")
	if mtlFile, err := os.Open(strings.TrimSuffix(path, filepath.Ext(path)) + ".mtl"); err == nil {
		defer mtlFile.Close()
		mtl = mtlFile
	}

	mesh, err := DecodeMesh(objFile, mtl)
	if err != nil {
		return nil, errors.Wrapf(err, "model %s", path)
	}
	core.LogDebug("model %s: %d vertices, %d indices, %d triangles", path, len(mesh.Vertices), len(mesh.Indices), mesh.FaceCount)
	return &metadata.Resource{
		Type:     metadata.ResourceTypeModel,
		Name:     nameOf(path),
		FullPath: path,
		DataSize: uint64(len(mesh.VertexBytes()) + len(mesh.IndexBytes())),
		Data:     mesh,
	}, nil
}

func (ml *ModelLoader) Unload(res *metadata.Resource) error {
	res.Data = nil
	return nil
}

// DecodeMesh reads an OBJ stream. Polygons are split into triangle fans and
// identical vertices are shared.
func DecodeMesh(objReader, mtlReader io.Reader) (*metadata.MeshData, error) {
	decoder, err := obj.DecodeReader(objReader, mtlReader)
	if err != nil {
		return nil, err
	}

	mesh := &metadata.MeshData{}
	unique := make(map[metadata.Vertex]uint32)
	for _, object := range decoder.Objects {
		for _, face := range object.Faces {
			for i := 2; i < len(face.Vertices); i++ {
				for _, corner := range [3]int{0, i - 1, i} {
					vertex, err := faceVertex(decoder, face, corner)
					if err != nil {
						return nil, err
					}
					index, ok := unique[vertex]
					if !ok {
						index = uint32(len(mesh.Vertices))
						mesh.Vertices = append(mesh.Vertices, vertex)
						unique[vertex] = index
					}
					mesh.Indices = append(mesh.Indices, index)
				}
				mesh.FaceCount++
			}
		}
	}
	if mesh.FaceCount == 0 {
		return nil, core.Protocolf("model has no faces")
	}
	return mesh, nil
}

func faceVertex(decoder *obj.Decoder, face obj.Face, corner int) (metadata.Vertex, error) {
	vi := face.Vertices[corner]
	if vi < 0 || (vi+1)*3 > len(decoder.Vertices) {
		return metadata.Vertex{}, core.Protocolf("vertex index %d out of range", vi)
	}
	vertex := metadata.Vertex{
		Position: mgl32.Vec3{decoder.Vertices[vi*3], decoder.Vertices[vi*3+1], decoder.Vertices[vi*3+2]},
		Color:    mgl32.Vec3{1, 1, 1},
	}
	if corner < len(face.Uvs) {
		ti := face.Uvs[corner]
		if ti < 0 || (ti+1)*2 > len(decoder.Uvs) {
			return metadata.Vertex{}, core.Protocolf("texture coordinate index %d out of range", ti)
		}
		// OBJ puts v=0 at the bottom, Vulkan samples top down.
		vertex.TexCoord = mgl32.Vec2{decoder.Uvs[ti*2], 1 - decoder.Uvs[ti*2+1]}
	}
	return vertex, nil
}
