package core

// Key code definitions
type KeyCode uint16

const (
	KEY_UNKNOWN KeyCode = 0x00
	KEY_ENTER   KeyCode = 0x0D
	KEY_ESCAPE  KeyCode = 0x1B
	KEY_SPACE   KeyCode = 0x20
	KEY_LEFT    KeyCode = 0x25
	KEY_UP      KeyCode = 0x26
	KEY_RIGHT   KeyCode = 0x27
	KEY_DOWN    KeyCode = 0x28
	KEY_A       KeyCode = 0x41
	KEY_C       KeyCode = 0x43
	KEY_D       KeyCode = 0x44
	KEY_Q       KeyCode = 0x51
	KEY_S       KeyCode = 0x53
	KEY_W       KeyCode = 0x57
	KEY_PLUS    KeyCode = 0xBB
	KEY_MINUS   KeyCode = 0xBD
	KEYS_MAX_KEYS
)

// Keyboard state structure
type KeyboardState struct {
	Keys [256]bool
}

// InputState holds the current and previous keyboard state. It is owned by the engine
// and handed to whoever needs to read keys; there is no package level instance.
type InputState struct {
	KeyboardCurrent  KeyboardState
	KeyboardPrevious KeyboardState
}

func NewInputState() *InputState {
	return &InputState{}
}

// Update copies the current state into the previous one. Call it once per frame after
// every consumer has read the input.
func (s *InputState) Update() {
	s.KeyboardPrevious = s.KeyboardCurrent
}

func (s *InputState) ProcessKey(key KeyCode, pressed bool) {
	if key == KEY_UNKNOWN {
		return
	}
	s.KeyboardCurrent.Keys[uint8(key)] = pressed
}

func (s *InputState) IsKeyDown(key KeyCode) bool {
	return s.KeyboardCurrent.Keys[uint8(key)]
}

func (s *InputState) IsKeyUp(key KeyCode) bool {
	return !s.KeyboardCurrent.Keys[uint8(key)]
}

func (s *InputState) WasKeyDown(key KeyCode) bool {
	return s.KeyboardPrevious.Keys[uint8(key)]
}

// Pressed reports a key that went down since the last Update.
func (s *InputState) Pressed(key KeyCode) bool {
	return s.IsKeyDown(key) && !s.WasKeyDown(key)
}
