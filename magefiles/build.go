//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
	"github.com/magefile/mage/target"
)

// The vulkan package resolves 1.3 device commands through cgo.
var cgoEnv = map[string]string{"CGO_ENABLED": "1"}

type Build mg.Namespace

const shaderDir = "assets/shaders"

var shaders = map[string]string{
	"shader.vert": "vert.spv",
	"shader.frag": "frag.spv",
}

// Compiles the GLSL shaders to SPIR-V with glslc when the sources are newer.
func (Build) Shaders() error {
	for src, dst := range shaders {
		in := filepath.Join(shaderDir, src)
		out := filepath.Join(shaderDir, dst)
		stale, err := target.Path(out, in)
		if err != nil {
			return fmt.Errorf("checking %s: %w", out, err)
		}
		if !stale {
			continue
		}
		fmt.Printf("glslc %s -> %s\n", in, out)
		if err := sh.RunV("glslc", "--target-env=vulkan1.3", in, "-o", out); err != nil {
			return fmt.Errorf("compiling %s: %w", in, err)
		}
	}
	return nil
}

// Builds the velo binary.
func (Build) Renderer() error {
	mg.Deps(Build.Shaders)
	return sh.RunWithV(cgoEnv, mg.GoCmd(), "build", "-o", "bin/velo", ".")
}
