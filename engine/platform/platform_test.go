package platform

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/velo/engine/core"
)

func TestResizeInboxLastWriteWins(t *testing.T) {
	inbox := &ResizeInbox{}
	if inbox.Take() {
		t.Fatal("empty inbox reported a resize")
	}
	inbox.Post(800, 600)
	inbox.Post(1024, 768)
	inbox.Post(640, 480)
	if !inbox.Take() {
		t.Fatal("pending resize was not reported")
	}
	if inbox.Take() {
		t.Error("a resize was reported twice")
	}
	if w, h := inbox.Last(); w != 640 || h != 480 {
		t.Errorf("last size = %dx%d, want 640x480", w, h)
	}
}

func TestTranslateKey(t *testing.T) {
	tests := []struct {
		key  glfw.Key
		want core.KeyCode
	}{
		{glfw.KeyW, core.KEY_W},
		{glfw.KeyEscape, core.KEY_ESCAPE},
		{glfw.KeyEqual, core.KEY_PLUS},
		{glfw.KeyKPSubtract, core.KEY_MINUS},
		{glfw.KeyF5, core.KEY_UNKNOWN},
	}
	for _, tt := range tests {
		if got := TranslateKey(tt.key); got != tt.want {
			t.Errorf("TranslateKey(%d) = %#x, want %#x", tt.key, got, tt.want)
		}
	}
}

func TestKeyCallbackFeedsInput(t *testing.T) {
	input := core.NewInputState()
	p := New(input)
	p.keyCallback(nil, glfw.KeySpace, 0, glfw.Press, 0)
	if !input.Pressed(core.KEY_SPACE) {
		t.Fatal("space press was not recorded")
	}
	p.keyCallback(nil, glfw.KeySpace, 0, glfw.Repeat, 0)
	if !input.IsKeyDown(core.KEY_SPACE) {
		t.Error("repeat events must not change key state")
	}
	p.keyCallback(nil, glfw.KeySpace, 0, glfw.Release, 0)
	if input.IsKeyDown(core.KEY_SPACE) {
		t.Error("release was not recorded")
	}

	p.framebufferSizeCallback(nil, 300, 200)
	if !p.Resizes.Take() {
		t.Error("framebuffer callback did not post a resize")
	}
}
