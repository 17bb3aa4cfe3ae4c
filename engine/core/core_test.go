package core

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
)

func TestErrorCategories(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"fatal", Fatal(errors.New("boom"), "create device"), IsFatal},
		{"fatalf", Fatalf("no depth format"), IsFatal},
		{"protocol", Protocolf("bad layout pair %d", 3), IsProtocolViolation},
		{"exhausted", Exhausted(errors.New("oom"), "allocate"), IsExhausted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(tt.err) {
				t.Fatalf("category lost for %v", tt.err)
			}
			wrapped := errors.Wrap(tt.err, "outer")
			if !tt.check(wrapped) {
				t.Fatalf("category lost after wrapping: %v", wrapped)
			}
		})
	}

	if IsFatal(Protocolf("x")) {
		t.Fatalf("protocol violation must not be fatal-init")
	}
}

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	defer SetLogOutput(os.Stderr)

	if err := SetLogLevel("warn"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	LogInfo("hidden %d", 1)
	LogWarn("shown %d", 2)
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info message leaked at warn level: %q", out)
	}
	if !strings.Contains(out, "shown 2") {
		t.Fatalf("warn message missing: %q", out)
	}

	if err := SetLogLevel("loud"); !IsProtocolViolation(err) {
		t.Fatalf("expected protocol violation, got %v", err)
	}
	_ = SetLogLevel("info")
}

func TestMetricsFPS(t *testing.T) {
	m := NewMetrics()
	refreshed := false
	for i := 0; i < 70; i++ {
		if m.Update(1.0 / 60.0) {
			refreshed = true
			break
		}
	}
	if !refreshed {
		t.Fatalf("expected fps to refresh after one second of frames")
	}
	if m.FPS < 59 || m.FPS > 61 {
		t.Fatalf("fps = %f, want ~60", m.FPS)
	}
}

func TestClock(t *testing.T) {
	c := NewClock()
	c.Update()
	if c.Elapsed() != 0 {
		t.Fatalf("stopped clock must not advance")
	}
	c.Start()
	c.Update()
	if c.Elapsed() < 0 {
		t.Fatalf("elapsed went backwards: %f", c.Elapsed())
	}
	c.Stop()
	if c.IsRunning() {
		t.Fatalf("clock still running after Stop")
	}
}
