package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/velo/engine/renderer/metadata"
)

// CommandAllocator hands out reusable per-frame command buffers.
type CommandAllocator interface {
	Allocate() (FrameCommands, error)
	Free(commands FrameCommands)
}

type poolCommandAllocator struct {
	context *VulkanContext
	pool    vk.CommandPool
}

func NewPoolCommandAllocator(context *VulkanContext, pool vk.CommandPool) CommandAllocator {
	return &poolCommandAllocator{context: context, pool: pool}
}

func (p *poolCommandAllocator) Allocate() (FrameCommands, error) {
	return NewVulkanCommandBuffer(p.context, p.pool, true)
}

func (p *poolCommandAllocator) Free(commands FrameCommands) {
	if cb, ok := commands.(*VulkanCommandBuffer); ok {
		cb.Free(p.context, p.pool)
	}
}

/**
 * @brief Everything a single frame slot owns. The uniform buffer is owned by
 * the registry, the rest by the context itself.
 */
type FrameContext struct {
	Slot             uint32
	Commands         FrameCommands
	AcquireSemaphore vk.Semaphore
	Uniform          *Buffer
	UniformID        uuid.UUID
}

func NewFrameContexts(count uint32, commands CommandAllocator, semaphores SemaphoreFactory, registry *Registry) ([]*FrameContext, error) {
	frames := make([]*FrameContext, 0, count)
	fail := func(err error) ([]*FrameContext, error) {
		DestroyFrameContexts(frames, commands, semaphores)
		return nil, err
	}
	for slot := uint32(0); slot < count; slot++ {
		frame := &FrameContext{Slot: slot}

		cb, err := commands.Allocate()
		if err != nil {
			return fail(err)
		}
		frame.Commands = cb

		semaphore, err := semaphores.Create()
		if err != nil {
			commands.Free(cb)
			return fail(err)
		}
		frame.AcquireSemaphore = semaphore
		frames = append(frames, frame)

		uniform, err := NewBuffer(registry.Allocator(), metadata.UniformBufferObjectSize,
			vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), MemoryUsageCPUToGPU, AllocationMapped)
		if err != nil {
			return fail(err)
		}
		id, err := registry.Track(KindFrameUniform, fmt.Sprintf("frame-%d-uniform", slot), uniform)
		if err != nil {
			uniform.Destroy()
			return fail(err)
		}
		frame.Uniform = uniform
		frame.UniformID = id
	}
	return frames, nil
}

// WriteUniforms copies this frame's matrices into the slot's mapped buffer.
func (f *FrameContext) WriteUniforms(ubo metadata.UniformBufferObject) error {
	return f.Uniform.Write(ubo.Bytes(), 0)
}

// DestroyFrameContexts frees command buffers and acquire semaphores. Uniform
// buffers are left to the registry.
func DestroyFrameContexts(frames []*FrameContext, commands CommandAllocator, semaphores SemaphoreFactory) {
	for _, frame := range frames {
		if frame.Commands != nil {
			commands.Free(frame.Commands)
			frame.Commands = nil
		}
		if frame.AcquireSemaphore != vk.NullSemaphore {
			semaphores.Destroy(frame.AcquireSemaphore)
			frame.AcquireSemaphore = vk.NullSemaphore
		}
	}
}
