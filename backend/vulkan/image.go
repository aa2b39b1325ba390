// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/devblok/vulkan"
)

// ImageSetup describes a 2D image
type ImageSetup struct {
	Width, Height uint32
	Format        vk.Format
	Usage         vk.ImageUsageFlagBits
	Aspect        vk.ImageAspectFlagBits

	// HostVisible images are linear and can be written with Upload
	HostVisible bool
}

// NewImage creates a new vulkan image primitive with memory and a view.
func NewImage(dev vk.Device, setup ImageSetup, ma *MemoryAllocator) (Image, error) {
	tiling := vk.ImageTilingOptimal
	initialLayout := vk.ImageLayoutUndefined
	memoryProps := vk.MemoryPropertyDeviceLocalBit
	if setup.HostVisible {
		tiling = vk.ImageTilingLinear
		initialLayout = vk.ImageLayoutPreinitialized
		memoryProps = vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit
	}

	createInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  setup.Width,
			Height: setup.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        setup.Format,
		Tiling:        tiling,
		InitialLayout: initialLayout,
		Usage:         vk.ImageUsageFlags(setup.Usage),
		SharingMode:   vk.SharingModeExclusive,
		Samples:       vk.SampleCount1Bit,
	}

	var image vk.Image
	if err := vk.Error(vk.CreateImage(dev, &createInfo, nil, &image)); err != nil {
		return Image{}, fmt.Errorf("vk.CreateImage(): %w", err)
	}

	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(dev, image, &req)
	req.Deref()

	memory, err := ma.Malloc(req, memoryProps)
	if err != nil {
		vk.DestroyImage(dev, image, nil)
		return Image{}, err
	}
	if err := vk.Error(vk.BindImageMemory(dev, image, memory.Get(), 0)); err != nil {
		vk.DestroyImage(dev, image, nil)
		ma.Free(&memory)
		return Image{}, fmt.Errorf("vk.BindImageMemory(): %w", err)
	}

	ivci := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   setup.Format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(setup.Aspect),
			LevelCount: 1,
			LayerCount: 1,
		},
	}

	var view vk.ImageView
	if err := vk.Error(vk.CreateImageView(dev, &ivci, nil, &view)); err != nil {
		vk.DestroyImage(dev, image, nil)
		ma.Free(&memory)
		return Image{}, fmt.Errorf("vk.CreateImageView(): %w", err)
	}

	return Image{
		device:    dev,
		image:     image,
		view:      view,
		memory:    memory,
		allocator: ma,
		setup:     setup,
	}, nil
}

// Image implements and abstracts vulkan image primitive.
type Image struct {
	device    vk.Device
	image     vk.Image
	view      vk.ImageView
	memory    Memory
	allocator *MemoryAllocator
	setup     ImageSetup
}

// Mem returns the underlying memory of the Image.
func (i *Image) Mem() *Memory {
	return &i.memory
}

// Get returns the vulkan Image handle
func (i *Image) Get() vk.Image {
	return i.image
}

// View returns the image view covering the whole image
func (i *Image) View() vk.ImageView {
	return i.view
}

// Format returns the pixel format of the image
func (i *Image) Format() vk.Format {
	return i.setup.Format
}

// Upload writes tightly packed pixel rows into a host visible image,
// honoring the row pitch the driver chose
func (i *Image) Upload(pixels []byte, bytesPerPixel int) error {
	if !i.setup.HostVisible {
		return fmt.Errorf("vulkan.Image.Upload(): image is not host visible")
	}
	rowSize := int(i.setup.Width) * bytesPerPixel
	if len(pixels) < rowSize*int(i.setup.Height) {
		return fmt.Errorf("vulkan.Image.Upload(): %d bytes for %dx%d image", len(pixels), i.setup.Width, i.setup.Height)
	}

	var layout vk.SubresourceLayout
	vk.GetImageSubresourceLayout(i.device, i.image, &vk.ImageSubresource{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
	}, &layout)
	layout.Deref()

	ptr, err := i.memory.Map()
	if err != nil {
		return err
	}
	defer i.memory.Unmap()

	pitch := int(layout.RowPitch)
	if pitch < rowSize {
		pitch = rowSize
	}
	for row := 0; row < int(i.setup.Height); row++ {
		dst := unsafe.Pointer(uintptr(ptr) + uintptr(int(layout.Offset)+row*pitch))
		vk.Memcopy(dst, pixels[row*rowSize:(row+1)*rowSize])
	}
	return nil
}

// Release destroys the view, the image and its memory
func (i *Image) Release() {
	if i.image == nil {
		return
	}
	vk.DestroyImageView(i.device, i.view, nil)
	vk.DestroyImage(i.device, i.image, nil)
	i.allocator.Free(&i.memory)
	i.image = nil
}
