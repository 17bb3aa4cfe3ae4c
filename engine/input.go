package engine

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/velo/engine/config"
	"github.com/spaghettifunk/velo/engine/core"
	"github.com/spaghettifunk/velo/engine/renderer/components"
)

// Held keys move the camera continuously.
var movementKeys = []struct {
	key       core.KeyCode
	direction mgl32.Vec3
}{
	{core.KEY_A, mgl32.Vec3{-1, 0, 0}},
	{core.KEY_D, mgl32.Vec3{1, 0, 0}},
	{core.KEY_W, mgl32.Vec3{0, 0, -1}},
	{core.KEY_S, mgl32.Vec3{0, 0, 1}},
	{core.KEY_UP, mgl32.Vec3{0, 1, 0}},
	{core.KEY_DOWN, mgl32.Vec3{0, -1, 0}},
}

// HandleInput applies this frame's keyboard state to the camera and reports
// whether quitting was requested. Toggles fire once per key press.
func HandleInput(input *core.InputState, camera *components.Camera, dt float32) (quit bool) {
	for _, m := range movementKeys {
		if input.IsKeyDown(m.key) {
			camera.Move(m.direction, dt)
		}
	}
	if input.Pressed(core.KEY_SPACE) {
		camera.ReverseRotation()
	}
	if input.Pressed(core.KEY_C) {
		camera.ToggleRotation()
	}
	if input.Pressed(core.KEY_MINUS) {
		camera.AdjustRotationSpeed(-config.RotationSpeedStep)
	}
	if input.Pressed(core.KEY_PLUS) {
		camera.AdjustRotationSpeed(config.RotationSpeedStep)
	}
	return input.IsKeyDown(core.KEY_ESCAPE)
}
