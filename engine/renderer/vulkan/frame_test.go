package vulkan

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/velo/engine/renderer/metadata"
)

func TestFrameContexts(t *testing.T) {
	alloc := newStubAllocator()
	registry := NewRegistry(alloc)
	commands := &fakeCommandAllocator{}
	semaphores := &fakeSemaphores{}

	frames, err := NewFrameContexts(2, commands, semaphores, registry)
	if err != nil {
		t.Fatalf("NewFrameContexts: %v", err)
	}
	if len(frames) != 2 || registry.Len() != 2 {
		t.Fatalf("frames = %d, tracked = %d, want 2 each", len(frames), registry.Len())
	}
	if len(semaphores.live) != 2 {
		t.Errorf("live acquire semaphores = %d, want 2", len(semaphores.live))
	}
	if frames[0].AcquireSemaphore == frames[1].AcquireSemaphore {
		t.Error("frames share an acquire semaphore")
	}
	for i, frame := range frames {
		if frame.AcquireSemaphore == vk.NullSemaphore {
			t.Errorf("frame %d has no acquire semaphore", i)
		}
		if frame.Slot != uint32(i) {
			t.Errorf("frame %d has slot %d", i, frame.Slot)
		}
		if registry.Buffer(frame.UniformID) != frame.Uniform {
			t.Errorf("frame %d uniform is not tracked by the registry", i)
		}
		if frame.Uniform.Size() != metadata.UniformBufferObjectSize {
			t.Errorf("frame %d uniform size = %d", i, frame.Uniform.Size())
		}
	}

	ubo := metadata.NewUniformBufferObject(30, mgl32.Vec3{2, 2, 2}, 800, 600)
	if err := frames[1].WriteUniforms(ubo); err != nil {
		t.Fatalf("WriteUniforms: %v", err)
	}
	if !bytes.Equal(frames[1].Uniform.Mapped(), ubo.Bytes()) {
		t.Error("uniform buffer does not hold the written matrices")
	}
	if len(ubo.Bytes()) != 192 {
		t.Errorf("uniform block is %d bytes, want 192", len(ubo.Bytes()))
	}

	DestroyFrameContexts(frames, commands, semaphores)
	if commands.freed != 2 || semaphores.destroyed != 2 {
		t.Errorf("freed = %d, destroyed = %d, want 2 each", commands.freed, semaphores.destroyed)
	}
	if len(semaphores.live) != 0 || semaphores.doubleFrees != 0 {
		t.Errorf("live = %d, double frees = %d after destroy", len(semaphores.live), semaphores.doubleFrees)
	}
	for i, frame := range frames {
		if frame.AcquireSemaphore != vk.NullSemaphore {
			t.Errorf("frame %d still holds its acquire semaphore", i)
		}
	}
	DestroyFrameContexts(frames, commands, semaphores)
	if semaphores.destroyed != 2 || semaphores.doubleFrees != 0 {
		t.Errorf("second destroy released semaphores again: destroyed = %d, double frees = %d", semaphores.destroyed, semaphores.doubleFrees)
	}
	if alloc.Live() != 2 {
		t.Errorf("uniforms should stay alive until registry teardown, live = %d", alloc.Live())
	}
	registry.Destroy()
	if alloc.Live() != 0 {
		t.Errorf("live after registry teardown = %d", alloc.Live())
	}
}
