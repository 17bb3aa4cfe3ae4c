package renderer

import (
	"testing"

	"github.com/spaghettifunk/velo/engine/core"
	"github.com/spaghettifunk/velo/engine/renderer/metadata"
	"github.com/spaghettifunk/velo/engine/renderer/vulkan"
)

type scriptedBackend struct {
	reports  []vulkan.FrameReport
	fail     error
	shutdown bool
}

func (b *scriptedBackend) Initialize(vulkan.Window, *metadata.SceneData, vulkan.ResizeSource, vulkan.UniformSource) error {
	return nil
}

func (b *scriptedBackend) DrawFrame() (vulkan.FrameReport, error) {
	if len(b.reports) == 0 {
		return vulkan.FrameReport{}, b.fail
	}
	r := b.reports[0]
	b.reports = b.reports[1:]
	return r, nil
}

func (b *scriptedBackend) WaitIdle() error { return nil }

func (b *scriptedBackend) Shutdown() { b.shutdown = true }

func TestRendererCountsFrames(t *testing.T) {
	backend := &scriptedBackend{
		reports: []vulkan.FrameReport{
			{FrameCount: 1},
			{FrameCount: 2, Skipped: true, Recreated: true},
			{FrameCount: 3, Recreated: true},
			{FrameCount: 4},
		},
		fail: core.Fatalf("device lost"),
	}
	r := NewWithBackend(backend)
	for i := 0; i < 4; i++ {
		if err := r.DrawFrame(); err != nil {
			t.Fatalf("frame %d: %v", i+1, err)
		}
	}
	got := r.Stats()
	if got.Drawn != 3 || got.Skipped != 1 || got.Recreated != 2 {
		t.Errorf("stats = %+v, want 3 drawn, 1 skipped, 2 recreated", got)
	}
	if got.LastReport.FrameCount != 4 {
		t.Errorf("last frame = %d, want 4", got.LastReport.FrameCount)
	}

	if err := r.DrawFrame(); !core.IsFatal(err) {
		t.Errorf("expected the backend failure to propagate, got %v", err)
	}
	r.Shutdown()
	if !backend.shutdown {
		t.Error("shutdown was not forwarded to the backend")
	}
}
