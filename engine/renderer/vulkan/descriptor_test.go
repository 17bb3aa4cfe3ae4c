package vulkan

import (
	"reflect"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/velo/engine/renderer/metadata"
)

func TestDescriptorLayoutBindings(t *testing.T) {
	bindings, flags := descriptorLayoutBindings(2, 4)
	if len(bindings) != 3 || len(flags) != 3 {
		t.Fatalf("got %d bindings and %d flags, want 3 each", len(bindings), len(flags))
	}
	tests := []struct {
		binding uint32
		kind    vk.DescriptorType
		count   uint32
	}{
		{BINDING_UNIFORM_BUFFERS, vk.DescriptorTypeUniformBuffer, 2},
		{BINDING_TEXTURES, vk.DescriptorTypeCombinedImageSampler, 4},
		{BINDING_MATERIALS, vk.DescriptorTypeStorageBuffer, 1},
	}
	for i, tt := range tests {
		b := bindings[i]
		if b.Binding != tt.binding || b.DescriptorType != tt.kind || b.DescriptorCount != tt.count {
			t.Errorf("binding %d = {%d %v %d}, want {%d %v %d}", i, b.Binding, b.DescriptorType, b.DescriptorCount, tt.binding, tt.kind, tt.count)
		}
	}

	want := vk.DescriptorBindingFlags(vk.DescriptorBindingPartiallyBoundBit | vk.DescriptorBindingUpdateAfterBindBit)
	if flags[BINDING_TEXTURES] != want {
		t.Errorf("texture binding flags = %#x, want %#x", flags[BINDING_TEXTURES], want)
	}
	if flags[BINDING_UNIFORM_BUFFERS] != 0 || flags[BINDING_MATERIALS] != 0 {
		t.Errorf("only the texture array may be partially bound, got %v", flags)
	}
}

func TestDescriptorPoolSizesMatchLayout(t *testing.T) {
	for _, f := range []uint32{1, 2, 3} {
		bindings, _ := descriptorLayoutBindings(f, 4)
		sizes := descriptorPoolSizes(f, 4)
		got := map[vk.DescriptorType]uint32{}
		for _, s := range sizes {
			got[s.Type] += s.DescriptorCount
		}
		want := map[vk.DescriptorType]uint32{}
		for _, b := range bindings {
			want[b.DescriptorType] += b.DescriptorCount
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("F=%d: pool sizes %v do not cover layout %v", f, got, want)
		}
	}
}

func TestVertexAttributes(t *testing.T) {
	attrs := VertexAttributes()
	want := []struct {
		location uint32
		format   vk.Format
		offset   uint32
	}{
		{0, vk.FormatR32g32b32Sfloat, 0},
		{1, vk.FormatR32g32Sfloat, 12},
		{2, vk.FormatR32g32b32Sfloat, 20},
	}
	if len(attrs) != len(want) {
		t.Fatalf("got %d attributes, want %d", len(attrs), len(want))
	}
	for i, w := range want {
		a := attrs[i]
		if a.Binding != 0 || a.Location != w.location || a.Format != w.format || a.Offset != w.offset {
			t.Errorf("attribute %d = %+v, want location %d format %v offset %d", i, a, w.location, w.format, w.offset)
		}
	}
	if metadata.VertexStride != 32 {
		t.Errorf("vertex stride = %d, want 32", metadata.VertexStride)
	}
}

func TestAppendUnique(t *testing.T) {
	got := appendUnique([]string{"VK_KHR_surface"}, "VK_KHR_xcb_surface", "VK_KHR_surface", "VK_KHR_xcb_surface")
	want := []string{"VK_KHR_surface", "VK_KHR_xcb_surface"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("appendUnique = %v, want %v", got, want)
	}
}
