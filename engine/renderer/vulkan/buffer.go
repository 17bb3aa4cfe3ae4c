package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/velo/engine/core"
)

// noCopy makes go vet flag wrappers copied by value.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

/**
 * @brief A buffer together with the one allocation backing it.
 */
type Buffer struct {
	noCopy noCopy

	allocator  MemoryAllocator
	handle     vk.Buffer
	allocation Allocation
	size       uint64
	usage      vk.BufferUsageFlags
}

// NewBuffer creates a buffer of size bytes. Allocation failures are not retried.
func NewBuffer(allocator MemoryAllocator, size uint64, usage vk.BufferUsageFlags, memoryUsage MemoryUsage, flags AllocationFlags) (*Buffer, error) {
	if size == 0 {
		return nil, core.Protocolf("buffer size must be positive")
	}
	if flags&AllocationMapped != 0 && !memoryUsage.HostVisible() {
		return nil, core.Protocolf("cannot map %s memory", memoryUsage)
	}
	handle, allocation, err := allocator.CreateBuffer(BufferSpec{
		Size:        size,
		Usage:       usage,
		MemoryUsage: memoryUsage,
		Flags:       flags,
	})
	if err != nil {
		return nil, err
	}
	return &Buffer{
		allocator:  allocator,
		handle:     handle,
		allocation: allocation,
		size:       size,
		usage:      usage,
	}, nil
}

func (b *Buffer) Handle() vk.Buffer { return b.handle }

func (b *Buffer) Allocation() Allocation { return b.allocation }

func (b *Buffer) Size() uint64 { return b.size }

func (b *Buffer) Usage() vk.BufferUsageFlags { return b.usage }

// Mapped is nil unless the buffer was created with AllocationMapped.
func (b *Buffer) Mapped() []byte {
	if b.allocation == nil {
		return nil
	}
	return b.allocation.Mapped()
}

// Valid reports whether the buffer still owns its allocation.
func (b *Buffer) Valid() bool {
	return b.allocation != nil
}

// Write copies data into the persistent mapping at offset.
func (b *Buffer) Write(data []byte, offset uint64) error {
	mapped := b.Mapped()
	if mapped == nil {
		return core.Protocolf("write to a buffer that is not mapped")
	}
	if offset+uint64(len(data)) > uint64(len(mapped)) {
		return core.Protocolf("write of %d bytes at %d overflows buffer of %d", len(data), offset, b.size)
	}
	copy(mapped[offset:], data)
	return nil
}

// Move hands ownership to a new wrapper. The receiver is left empty and its
// Destroy becomes a no-op.
func (b *Buffer) Move() *Buffer {
	moved := &Buffer{
		allocator:  b.allocator,
		handle:     b.handle,
		allocation: b.allocation,
		size:       b.size,
		usage:      b.usage,
	}
	b.handle = vk.NullBuffer
	b.allocation = nil
	b.size = 0
	return moved
}

// Destroy frees the buffer and its memory. Safe to call more than once.
func (b *Buffer) Destroy() {
	if b == nil || b.allocation == nil {
		return
	}
	b.allocator.DestroyBuffer(b.handle, b.allocation)
	b.handle = vk.NullBuffer
	b.allocation = nil
}
