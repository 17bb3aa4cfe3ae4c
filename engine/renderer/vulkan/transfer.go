package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/velo/engine/core"
)

/**
 * @brief Moves host data into device-local resources through short-lived
 * staging buffers. Every call blocks until the copy has finished.
 */
type Uploader struct {
	allocator MemoryAllocator
	executor  Executor
}

func NewUploader(allocator MemoryAllocator, executor Executor) *Uploader {
	return &Uploader{allocator: allocator, executor: executor}
}

func (u *Uploader) staging(data []byte) (*Buffer, error) {
	staging, err := NewBuffer(u.allocator, uint64(len(data)), vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), MemoryUsageCPUOnly, 0)
	if err != nil {
		return nil, err
	}
	mapped, err := u.allocator.Map(staging.Allocation())
	if err != nil {
		staging.Destroy()
		return nil, err
	}
	copy(mapped, data)
	u.allocator.Unmap(staging.Allocation())
	return staging, nil
}

// UploadBuffer creates a device-local buffer with usage|TransferDst holding data.
func (u *Uploader) UploadBuffer(data []byte, usage vk.BufferUsageFlags) (*Buffer, error) {
	if len(data) == 0 {
		return nil, core.Protocolf("upload of an empty buffer")
	}
	staging, err := u.staging(data)
	if err != nil {
		return nil, core.Fatal(err, "staging buffer")
	}
	defer staging.Destroy()

	size := uint64(len(data))
	dst, err := NewBuffer(u.allocator, size, usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit), MemoryUsageGPUOnly, 0)
	if err != nil {
		return nil, core.Fatal(err, "device buffer")
	}
	err = u.executor.Execute(func(cmd Commands) error {
		cmd.CopyBuffer(staging, dst, size)
		return nil
	})
	if err != nil {
		dst.Destroy()
		return nil, core.Fatal(err, "buffer upload")
	}
	return dst, nil
}

// UploadImage creates a sampled RGBA image from pixels and leaves it in the
// shader-read-only layout.
func (u *Uploader) UploadImage(pixels []byte, width, height uint32, format vk.Format) (*Image, error) {
	if len(pixels) == 0 || width == 0 || height == 0 {
		return nil, core.Protocolf("upload of an empty image (%dx%d, %d bytes)", width, height, len(pixels))
	}
	staging, err := u.staging(pixels)
	if err != nil {
		return nil, core.Fatal(err, "staging buffer")
	}
	defer staging.Destroy()

	image, err := NewImage(u.allocator, ImageSpec{
		Width:       width,
		Height:      height,
		MipLevels:   1,
		Format:      format,
		Usage:       vk.ImageUsageFlags(vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit),
		Aspect:      vk.ImageAspectFlags(vk.ImageAspectColorBit),
		MemoryUsage: MemoryUsageGPUOnly,
	})
	if err != nil {
		return nil, core.Fatal(err, "texture image")
	}
	err = u.executor.Execute(func(cmd Commands) error {
		aspect := image.Aspect()
		if err := cmd.TransitionImage(image.Handle(), vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal, aspect, image.MipLevels()); err != nil {
			return err
		}
		cmd.CopyBufferToImage(staging, image)
		return cmd.TransitionImage(image.Handle(), vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal, aspect, image.MipLevels())
	})
	if err != nil {
		image.Destroy()
		if core.IsProtocolViolation(err) {
			return nil, err
		}
		return nil, core.Fatal(err, "image upload")
	}
	return image, nil
}

// ReadBuffer copies the first size bytes of src back to the host. src needs
// TransferSrc usage.
func (u *Uploader) ReadBuffer(src *Buffer, size uint64) ([]byte, error) {
	if size == 0 || size > src.Size() {
		return nil, core.Protocolf("read of %d bytes from a buffer of %d", size, src.Size())
	}
	readback, err := NewBuffer(u.allocator, size, vk.BufferUsageFlags(vk.BufferUsageTransferDstBit), MemoryUsageGPUToCPU, AllocationMapped)
	if err != nil {
		return nil, core.Fatal(err, "readback buffer")
	}
	defer readback.Destroy()

	err = u.executor.Execute(func(cmd Commands) error {
		cmd.CopyBuffer(src, readback, size)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "buffer readback")
	}
	out := make([]byte, size)
	copy(out, readback.Mapped())
	return out, nil
}
