//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

type Run mg.Namespace

// Builds the shaders and runs the renderer.
func (Run) Renderer() error {
	mg.Deps(Build.Shaders)
	return sh.RunWithV(cgoEnv, mg.GoCmd(), "run", ".")
}

// Runs the unit tests.
func (Run) Tests() error {
	return sh.RunWithV(cgoEnv, mg.GoCmd(), "test", "./...")
}
