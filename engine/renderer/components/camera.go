package components

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/velo/engine/config"
	"github.com/spaghettifunk/velo/engine/math"
	"github.com/spaghettifunk/velo/engine/renderer/metadata"
)

/**
 * @brief Represents the viewer and the spinning model. Owned by the engine and
 * mutated only by input handling and Advance.
 */
type Camera struct {
	/** @brief The position the view matrix looks from. */
	Position mgl32.Vec3
	/** @brief Units per second for movement keys. */
	Speed float32
	/** @brief Model rotation direction: -1, 0 (stopped) or 1. */
	Rotation int8
	/** @brief Degrees per second. */
	RotationSpeed float32
	/** @brief Accumulated model angle in degrees. */
	Angle float32
}

func NewCamera(cfg config.Camera) *Camera {
	return &Camera{
		Position:      mgl32.Vec3{cfg.Position[0], cfg.Position[1], cfg.Position[2]},
		Speed:         cfg.Speed,
		Rotation:      1,
		RotationSpeed: math.Clamp(cfg.RotationSpeed, 0, config.MaxRotationSpeed),
	}
}

// Move translates the camera by direction scaled with Speed and dt.
func (c *Camera) Move(direction mgl32.Vec3, dt float32) {
	c.Position = c.Position.Add(direction.Mul(c.Speed * dt))
}

// ReverseRotation flips the direction; a stopped model starts spinning forwards.
func (c *Camera) ReverseRotation() {
	if c.Rotation == 0 {
		c.Rotation = 1
		return
	}
	c.Rotation = -c.Rotation
}

// ToggleRotation stops a spinning model or restarts a stopped one.
func (c *Camera) ToggleRotation() {
	if c.Rotation == 0 {
		c.Rotation = 1
		return
	}
	c.Rotation = 0
}

func (c *Camera) AdjustRotationSpeed(delta float32) {
	c.RotationSpeed = math.Clamp(c.RotationSpeed+delta, 0, config.MaxRotationSpeed)
}

// Advance moves the model angle forward by dt seconds.
func (c *Camera) Advance(dt float32) {
	c.Angle = math.Wrap(c.Angle + float32(c.Rotation)*c.RotationSpeed*dt)
}

// Uniforms builds this frame's matrices for the given extent.
func (c *Camera) Uniforms(width, height uint32) metadata.UniformBufferObject {
	return metadata.NewUniformBufferObject(c.Angle, c.Position, width, height)
}
