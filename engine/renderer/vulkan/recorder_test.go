package vulkan

import (
	"bytes"
	"fmt"
	"reflect"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/velo/engine/core"
	"github.com/spaghettifunk/velo/engine/renderer/metadata"
)

func TestRecorderFrameSequence(t *testing.T) {
	alloc := newStubAllocator()
	vertices, _ := NewBuffer(alloc, 64, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), MemoryUsageGPUOnly, 0)
	indices, _ := NewBuffer(alloc, 24, vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit), MemoryUsageGPUOnly, 0)
	recorder := NewRecorder(DrawState{Vertices: vertices, Indices: indices, IndexCount: 6})

	cmd := &fakeCommands{}
	target := RenderTarget{
		DepthAspect: vk.ImageAspectFlags(vk.ImageAspectDepthBit),
		Extent:      vk.Extent2D{Width: 640, Height: 480},
	}
	if err := recorder.Record(cmd, target, 1); err != nil {
		t.Fatalf("Record: %v", err)
	}

	want := []string{
		fmt.Sprintf("transition %d->%d", vk.ImageLayoutUndefined, vk.ImageLayoutColorAttachmentOptimal),
		fmt.Sprintf("transition %d->%d", vk.ImageLayoutUndefined, vk.ImageLayoutDepthStencilAttachmentOptimal),
		"begin-rendering 640x480",
		"bind-pipeline",
		"bind-vertex-buffer",
		"bind-index-buffer",
		"viewport-scissor 640x480",
		"bind-descriptor-set",
		fmt.Sprintf("push-constants %d", metadata.PushConstantsSize),
		"draw-indexed 6",
		"end-rendering",
		fmt.Sprintf("transition %d->%d", vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutPresentSrc),
	}
	if !reflect.DeepEqual(cmd.ops, want) {
		t.Errorf("ops =\n%v\nwant\n%v", cmd.ops, want)
	}

	constants := metadata.PushConstants{ObjectIndex: 1, TextureIndex: 0}
	if !bytes.Equal(cmd.pushed, constants.Bytes()) {
		t.Errorf("push constants = %v, want %v", cmd.pushed, constants.Bytes())
	}
}

func TestRecorderRequiresGeometry(t *testing.T) {
	recorder := NewRecorder(DrawState{})
	cmd := &fakeCommands{}
	if err := recorder.Record(cmd, RenderTarget{}, 0); !core.IsProtocolViolation(err) {
		t.Errorf("Record without geometry = %v, want protocol violation", err)
	}
	if len(cmd.ops) != 0 {
		t.Errorf("recorded ops without geometry: %v", cmd.ops)
	}
}
