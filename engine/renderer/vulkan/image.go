package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/velo/engine/core"
)

/**
 * @brief A 2D image, its allocation and its default view.
 */
type Image struct {
	noCopy noCopy

	allocator  MemoryAllocator
	handle     vk.Image
	allocation Allocation
	view       vk.ImageView
	spec       ImageSpec
}

func NewImage(allocator MemoryAllocator, spec ImageSpec) (*Image, error) {
	if spec.Width == 0 || spec.Height == 0 {
		return nil, core.Protocolf("image extent must be positive, got %dx%d", spec.Width, spec.Height)
	}
	if spec.MipLevels == 0 {
		spec.MipLevels = 1
	}
	handle, allocation, err := allocator.CreateImage(spec)
	if err != nil {
		return nil, err
	}
	view, err := allocator.CreateImageView(handle, spec)
	if err != nil {
		allocator.DestroyImage(handle, allocation)
		return nil, err
	}
	return &Image{
		allocator:  allocator,
		handle:     handle,
		allocation: allocation,
		view:       view,
		spec:       spec,
	}, nil
}

func (i *Image) Handle() vk.Image { return i.handle }

func (i *Image) Allocation() Allocation { return i.allocation }

func (i *Image) View() vk.ImageView { return i.view }

func (i *Image) Width() uint32 { return i.spec.Width }

func (i *Image) Height() uint32 { return i.spec.Height }

func (i *Image) MipLevels() uint32 { return i.spec.MipLevels }

func (i *Image) Format() vk.Format { return i.spec.Format }

func (i *Image) Aspect() vk.ImageAspectFlags { return i.spec.Aspect }

func (i *Image) Valid() bool { return i.allocation != nil }

func (i *Image) Move() *Image {
	moved := &Image{
		allocator:  i.allocator,
		handle:     i.handle,
		allocation: i.allocation,
		view:       i.view,
		spec:       i.spec,
	}
	i.handle = vk.NullImage
	i.allocation = nil
	i.view = vk.NullImageView
	return moved
}

// Destroy releases the view before the image. Safe to call more than once.
func (i *Image) Destroy() {
	if i == nil || i.allocation == nil {
		return
	}
	i.allocator.DestroyImageView(i.view)
	i.allocator.DestroyImage(i.handle, i.allocation)
	i.view = vk.NullImageView
	i.handle = vk.NullImage
	i.allocation = nil
}
