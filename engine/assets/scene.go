package assets

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/velo/engine/config"
	"github.com/spaghettifunk/velo/engine/core"
	"github.com/spaghettifunk/velo/engine/renderer/metadata"
)

// LoadScene loads the shaders, the model and its textures named by cfg.
func (am *AssetManager) LoadScene(cfg *config.Config) (*metadata.SceneData, error) {
	scene := &metadata.SceneData{}

	var err error
	if scene.VertexShader, err = am.loadShader(cfg.Assets.VertexShader); err != nil {
		return nil, err
	}
	if scene.FragmentShader, err = am.loadShader(cfg.Assets.FragmentShader); err != nil {
		return nil, err
	}

	res, err := am.LoadAsset(cfg.Assets.Model, metadata.ResourceTypeModel, nil)
	if err != nil {
		return nil, errors.Wrap(err, "loading model")
	}
	mesh, ok := res.Data.(*metadata.MeshData)
	if !ok {
		return nil, core.Protocolf("model loader returned %T", res.Data)
	}
	scene.Mesh = mesh

	if cfg.Renderer.MultiMaterial {
		scene.Textures = metadata.DefaultMaterialImages()
		mesh.AssignMaterials(uint32(len(scene.Textures)))
		core.LogInfo("multi-material mode: %d generated materials over %d faces", len(scene.Textures), mesh.FaceCount)
	} else {
		res, err := am.LoadAsset(cfg.Assets.Texture, metadata.ResourceTypeImage, nil)
		if err != nil {
			return nil, errors.Wrap(err, "loading texture")
		}
		image, ok := res.Data.(*metadata.ImageResourceData)
		if !ok {
			return nil, core.Protocolf("texture loader returned %T", res.Data)
		}
		scene.Textures = []*metadata.ImageResourceData{image}
		mesh.MaterialIndices = []uint32{0}
	}

	if err := scene.Validate(cfg.Renderer.MaxTextures); err != nil {
		return nil, err
	}
	return scene, nil
}

func (am *AssetManager) loadShader(name string) ([]uint32, error) {
	res, err := am.LoadAsset(name, metadata.ResourceTypeShader, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "loading shader %s", name)
	}
	code, ok := res.Data.([]uint32)
	if !ok {
		return nil, core.Protocolf("shader loader returned %T", res.Data)
	}
	return code, nil
}
