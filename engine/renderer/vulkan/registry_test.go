package vulkan

import (
	"fmt"
	"reflect"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/velo/engine/core"
)

func trackBuffer(t *testing.T, r *Registry, kind ResourceKind, name string) *Buffer {
	t.Helper()
	b, err := NewBuffer(r.Allocator(), 16, vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit), MemoryUsageGPUOnly, 0)
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	if _, err := r.Track(kind, name, b); err != nil {
		t.Fatalf("Track(%s): %v", name, err)
	}
	return b
}

func TestTeardownOrder(t *testing.T) {
	want := []ResourceKind{KindFrameUniform, KindMaterialIndex, KindGeometry, KindTexture, KindAllocator}
	if !reflect.DeepEqual(teardownOrder, want) {
		t.Errorf("teardownOrder = %v, want %v", teardownOrder, want)
	}
}

func TestComputeTeardownOrderRespectsDependencies(t *testing.T) {
	order := computeTeardownOrder(map[ResourceKind][]ResourceKind{
		KindFrameUniform: {KindTexture},
		KindTexture:      {KindAllocator},
		KindAllocator:    nil,
	})
	want := []ResourceKind{KindFrameUniform, KindTexture, KindAllocator}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestComputeTeardownOrderPanicsOnCycle(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected a panic for cyclic dependencies")
		}
	}()
	computeTeardownOrder(map[ResourceKind][]ResourceKind{
		KindGeometry: {KindTexture},
		KindTexture:  {KindGeometry},
	})
}

func TestRegistryDestroyOrder(t *testing.T) {
	alloc := newStubAllocator()
	r := NewRegistry(alloc)

	texture, err := NewImage(alloc, ImageSpec{Width: 2, Height: 2, Format: vk.FormatR8g8b8a8Srgb, MemoryUsage: MemoryUsageGPUOnly})
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}
	if _, err := r.Track(KindTexture, "texture", texture); err != nil {
		t.Fatal(err)
	}
	vertices := trackBuffer(t, r, KindGeometry, "vertices")
	indices := trackBuffer(t, r, KindGeometry, "indices")
	materials := trackBuffer(t, r, KindMaterialIndex, "materials")
	uniform0 := trackBuffer(t, r, KindFrameUniform, "uniform-0")
	uniform1 := trackBuffer(t, r, KindFrameUniform, "uniform-1")

	// Destroy clears each wrapper's allocation, so the ids are read first.
	id := func(b *Buffer) int { return b.Allocation().(*stubAllocation).id }
	want := []string{
		fmt.Sprintf("buffer:%d", id(uniform1)),
		fmt.Sprintf("buffer:%d", id(uniform0)),
		fmt.Sprintf("buffer:%d", id(materials)),
		fmt.Sprintf("buffer:%d", id(indices)),
		fmt.Sprintf("buffer:%d", id(vertices)),
		fmt.Sprintf("image:%d", texture.Allocation().(*stubAllocation).id),
		"allocator",
	}

	r.Destroy()

	if uniform0.Valid() || texture.Valid() {
		t.Error("tracked wrappers must be invalid after registry teardown")
	}
	if !reflect.DeepEqual(alloc.events, want) {
		t.Errorf("events = %v, want %v", alloc.events, want)
	}
	if alloc.lateFrees != 0 {
		t.Errorf("%d resources freed after the allocator", alloc.lateFrees)
	}
	if alloc.Live() != 0 || r.Len() != 0 {
		t.Errorf("live = %d, tracked = %d after destroy", alloc.Live(), r.Len())
	}

	r.Destroy()
	if len(alloc.events) != len(want) {
		t.Errorf("second Destroy emitted events: %v", alloc.events[len(want):])
	}
}

func TestRegistryRejectsBadTracks(t *testing.T) {
	alloc := newStubAllocator()
	r := NewRegistry(alloc)

	b, _ := NewBuffer(alloc, 8, vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), MemoryUsageGPUOnly, 0)
	if _, err := r.Track(KindAllocator, "allocator", b); !core.IsProtocolViolation(err) {
		t.Errorf("tracking as allocator: %v", err)
	}

	moved := b.Move()
	if _, err := r.Track(KindGeometry, "moved-from", b); !core.IsProtocolViolation(err) {
		t.Errorf("tracking a moved-from buffer: %v", err)
	}
	if _, err := r.Track(KindGeometry, "moved", moved); err != nil {
		t.Errorf("tracking the moved buffer: %v", err)
	}

	r.Destroy()
	fresh, _ := NewBuffer(newStubAllocator(), 8, vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), MemoryUsageGPUOnly, 0)
	if _, err := r.Track(KindGeometry, "late", fresh); !core.IsProtocolViolation(err) {
		t.Errorf("tracking after destroy: %v", err)
	}
}

func TestRegistryLookupAndRelease(t *testing.T) {
	alloc := newStubAllocator()
	r := NewRegistry(alloc)

	b, _ := NewBuffer(alloc, 8, vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), MemoryUsageGPUOnly, 0)
	id, err := r.Track(KindGeometry, "geometry", b)
	if err != nil {
		t.Fatal(err)
	}
	if r.Buffer(id) != b {
		t.Error("Buffer lookup returned a different buffer")
	}
	if r.Image(id) != nil {
		t.Error("Image lookup of a buffer should be nil")
	}

	r.Release(id)
	if r.Len() != 0 || b.Valid() {
		t.Errorf("after Release: tracked = %d, valid = %v", r.Len(), b.Valid())
	}
	r.Release(id)
	r.Destroy()
	if want := []string{fmt.Sprintf("buffer:%d", 1), "allocator"}; !reflect.DeepEqual(alloc.events, want) {
		t.Errorf("events = %v, want %v", alloc.events, want)
	}
}
