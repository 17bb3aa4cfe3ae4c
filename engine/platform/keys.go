package platform

import (
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/velo/engine/core"
)

var keyMap = map[glfw.Key]core.KeyCode{
	glfw.KeyEnter:  core.KEY_ENTER,
	glfw.KeyEscape: core.KEY_ESCAPE,
	glfw.KeySpace:  core.KEY_SPACE,
	glfw.KeyLeft:   core.KEY_LEFT,
	glfw.KeyUp:     core.KEY_UP,
	glfw.KeyRight:  core.KEY_RIGHT,
	glfw.KeyDown:   core.KEY_DOWN,
	glfw.KeyA:      core.KEY_A,
	glfw.KeyC:      core.KEY_C,
	glfw.KeyD:      core.KEY_D,
	glfw.KeyQ:      core.KEY_Q,
	glfw.KeyS:      core.KEY_S,
	glfw.KeyW:      core.KEY_W,
	// "=" shares the key with "+" on US layouts.
	glfw.KeyEqual:      core.KEY_PLUS,
	glfw.KeyKPAdd:      core.KEY_PLUS,
	glfw.KeyMinus:      core.KEY_MINUS,
	glfw.KeyKPSubtract: core.KEY_MINUS,
}

// TranslateKey maps a glfw key to the engine key code.
func TranslateKey(key glfw.Key) core.KeyCode {
	if code, ok := keyMap[key]; ok {
		return code
	}
	return core.KEY_UNKNOWN
}
