package components

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/velo/engine/config"
)

func TestCameraRotationControls(t *testing.T) {
	c := NewCamera(config.Default().Camera)
	if c.Rotation != 1 {
		t.Fatalf("camera must start spinning forward")
	}

	c.ReverseRotation()
	if c.Rotation != -1 {
		t.Fatalf("reverse: rotation = %d", c.Rotation)
	}
	c.ToggleRotation()
	if c.Rotation != 0 {
		t.Fatalf("toggle off: rotation = %d", c.Rotation)
	}
	c.ReverseRotation()
	if c.Rotation != 1 {
		t.Fatalf("reverse from stopped must spin forwards, got %d", c.Rotation)
	}
	c.ToggleRotation()
	c.ToggleRotation()
	if c.Rotation != 1 {
		t.Fatalf("toggle on must spin forwards, got %d", c.Rotation)
	}
}

func TestCameraRotationSpeedIsClamped(t *testing.T) {
	c := NewCamera(config.Default().Camera)
	for i := 0; i < 20; i++ {
		c.AdjustRotationSpeed(config.RotationSpeedStep)
	}
	if c.RotationSpeed != config.MaxRotationSpeed {
		t.Fatalf("speed = %f, want %f", c.RotationSpeed, config.MaxRotationSpeed)
	}
	for i := 0; i < 20; i++ {
		c.AdjustRotationSpeed(-config.RotationSpeedStep)
	}
	if c.RotationSpeed != 0 {
		t.Fatalf("speed = %f, want 0", c.RotationSpeed)
	}
}

func TestCameraAdvanceAndMove(t *testing.T) {
	c := NewCamera(config.Default().Camera)
	c.Advance(0.5)
	if c.Angle != 45 {
		t.Fatalf("angle = %f, want 45", c.Angle)
	}
	c.Rotation = 0
	c.Advance(1)
	if c.Angle != 45 {
		t.Fatalf("stopped model moved to %f", c.Angle)
	}

	c.Move(mgl32.Vec3{1, 0, 0}, 0.5)
	if c.Position[0] != 2.5 {
		t.Fatalf("position = %v", c.Position)
	}
}
