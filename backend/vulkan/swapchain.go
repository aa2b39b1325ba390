// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vulkan

import (
	"errors"
	"fmt"
	"math"

	vk "github.com/devblok/vulkan"

	"github.com/koru3d/koru/core"
	"github.com/koru3d/koru/resource"
)

// DrawItem draws a mesh with a pipeline
type DrawItem struct {
	Pipeline resource.Id
	Mesh     resource.Id
}

// Swapchain presents frames to the instance surface. Its framebuffers
// use the render pass every pipeline of the factory is compatible with.
type Swapchain struct {
	device  *Device
	factory *Factory
	cfg     core.RendererConfiguration

	width, height uint32
	swapchain     vk.Swapchain
	images        []vk.Image
	views         []vk.ImageView
	depth         Image
	framebuffers  []vk.Framebuffer

	commandPool    vk.CommandPool
	commandBuffers []vk.CommandBuffer

	imageAvailable vk.Semaphore
	renderFinished vk.Semaphore
	imageIndex     uint32

	ClearColor [4]float32
}

// NewSwapchain creates the swapchain and everything needed to draw into it
func NewSwapchain(device *Device, factory *Factory, cfg core.RendererConfiguration) (*Swapchain, error) {
	if !device.instance.HasSurface() {
		return nil, errors.New("vulkan.NewSwapchain(): instance has no surface")
	}
	s := &Swapchain{
		device:     device,
		factory:    factory,
		cfg:        cfg,
		width:      cfg.ScreenWidth,
		height:     cfg.ScreenHeight,
		ClearColor: [4]float32{0.05, 0.05, 0.05, 1},
	}

	cpci := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: device.graphicsQueueIndex,
	}
	if err := vk.Error(vk.CreateCommandPool(device.logical, &cpci, nil, &s.commandPool)); err != nil {
		return nil, fmt.Errorf("vk.CreateCommandPool(): %w", err)
	}

	sci := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	if err := vk.Error(vk.CreateSemaphore(device.logical, &sci, nil, &s.imageAvailable)); err != nil {
		return nil, fmt.Errorf("vk.CreateSemaphore(): %w", err)
	}
	if err := vk.Error(vk.CreateSemaphore(device.logical, &sci, nil, &s.renderFinished)); err != nil {
		return nil, fmt.Errorf("vk.CreateSemaphore(): %w", err)
	}

	if err := s.create(nil); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Swapchain) create(oldSwapchain vk.Swapchain) error {
	surface := s.device.instance.Surface()
	var surfaceCapabilities vk.SurfaceCapabilities
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceCapabilities(s.device.physical, surface, &surfaceCapabilities)); err != nil {
		return fmt.Errorf("vk.GetPhysicalDeviceSurfaceCapabilities(): %w", err)
	}
	surfaceCapabilities.Deref()

	// the surface decides the size when it is recreated
	if oldSwapchain != nil {
		surfaceCapabilities.CurrentExtent.Deref()
		s.width = surfaceCapabilities.CurrentExtent.Width
		s.height = surfaceCapabilities.CurrentExtent.Height
	}

	compositeAlpha := vk.CompositeAlphaOpaqueBit
	for _, flag := range []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	} {
		if surfaceCapabilities.SupportedCompositeAlpha&vk.CompositeAlphaFlags(flag) != 0 {
			compositeAlpha = flag
			break
		}
	}

	scci := vk.SwapchainCreateInfo{
		SType:           vk.StructureTypeSwapchainCreateInfo,
		Surface:         surface,
		MinImageCount:   s.cfg.SwapchainSize,
		ImageFormat:     s.device.colorFormat,
		ImageColorSpace: s.device.colorSpace,
		ImageExtent: vk.Extent2D{
			Width:  s.width,
			Height: s.height,
		},
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     vk.SurfaceTransformIdentityBit,
		CompositeAlpha:   compositeAlpha,
		PresentMode:      vk.PresentModeFifo,
		Clipped:          vk.True,
		ImageArrayLayers: 1,
		ImageSharingMode: vk.SharingModeExclusive,
		OldSwapchain:     oldSwapchain,
	}
	if err := vk.Error(vk.CreateSwapchain(s.device.logical, &scci, nil, &s.swapchain)); err != nil {
		return fmt.Errorf("vk.CreateSwapchain(): %w", err)
	}
	if oldSwapchain != nil {
		vk.DestroySwapchain(s.device.logical, oldSwapchain, nil)
	}

	var numImages uint32
	if err := vk.Error(vk.GetSwapchainImages(s.device.logical, s.swapchain, &numImages, nil)); err != nil {
		return fmt.Errorf("vk.GetSwapchainImages(): %w", err)
	}
	s.images = make([]vk.Image, numImages)
	if err := vk.Error(vk.GetSwapchainImages(s.device.logical, s.swapchain, &numImages, s.images)); err != nil {
		return fmt.Errorf("vk.GetSwapchainImages(): %w", err)
	}

	depth, err := NewImage(s.device.logical, ImageSetup{
		Width:  s.width,
		Height: s.height,
		Format: depthFormat,
		Usage:  vk.ImageUsageDepthStencilAttachmentBit,
		Aspect: vk.ImageAspectDepthBit,
	}, s.factory.allocator)
	if err != nil {
		return err
	}
	s.depth = depth

	for _, image := range s.images {
		ivci := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    image,
			ViewType: vk.ImageViewType2d,
			Format:   s.device.colorFormat,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity,
				G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity,
				A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
		var view vk.ImageView
		if err := vk.Error(vk.CreateImageView(s.device.logical, &ivci, nil, &view)); err != nil {
			return fmt.Errorf("vk.CreateImageView(): %w", err)
		}
		s.views = append(s.views, view)

		framebuffer, err := createFramebuffer(s.device.logical, s.factory.compatPass, []vk.ImageView{view, s.depth.View()}, s.width, s.height)
		if err != nil {
			return err
		}
		s.framebuffers = append(s.framebuffers, framebuffer)
	}

	cbai := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        s.commandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(len(s.views)),
	}
	s.commandBuffers = make([]vk.CommandBuffer, len(s.views))
	if err := vk.Error(vk.AllocateCommandBuffers(s.device.logical, &cbai, s.commandBuffers)); err != nil {
		return fmt.Errorf("vk.AllocateCommandBuffers(): %w", err)
	}
	return nil
}

func (s *Swapchain) destroyFramebuffers() {
	if len(s.commandBuffers) > 0 {
		vk.FreeCommandBuffers(s.device.logical, s.commandPool, uint32(len(s.commandBuffers)), s.commandBuffers)
	}
	s.commandBuffers = nil
	for _, fb := range s.framebuffers {
		vk.DestroyFramebuffer(s.device.logical, fb, nil)
	}
	s.framebuffers = nil
	for _, view := range s.views {
		vk.DestroyImageView(s.device.logical, view, nil)
	}
	s.views = nil
	s.images = nil
	s.depth.Release()
}

func (s *Swapchain) recreate() error {
	s.device.WaitIdle()
	s.destroyFramebuffers()
	return s.create(s.swapchain)
}

// Draw records the draw items into the next swapchain image and
// presents it. Items whose pipeline or mesh is not valid are skipped.
func (s *Swapchain) Draw(items []DrawItem) error {
	result := vk.AcquireNextImage(s.device.logical, s.swapchain, math.MaxUint64, s.imageAvailable, nil, &s.imageIndex)
	if result == vk.ErrorOutOfDate {
		return s.recreate()
	}
	if err := vk.Error(result); err != nil {
		return fmt.Errorf("vk.AcquireNextImage(): %w", err)
	}

	commandBuffer := s.commandBuffers[s.imageIndex]
	if err := s.record(commandBuffer, s.framebuffers[s.imageIndex], items); err != nil {
		return err
	}

	submit := []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{s.imageAvailable},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{commandBuffer},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{s.renderFinished},
	}}
	if err := vk.Error(vk.QueueSubmit(s.device.queue, 1, submit, nil)); err != nil {
		return fmt.Errorf("vk.QueueSubmit(): %w", err)
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{s.renderFinished},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{s.swapchain},
		PImageIndices:      []uint32{s.imageIndex},
	}
	presentResult := vk.QueuePresent(s.device.queue, &presentInfo)
	if presentResult == vk.ErrorOutOfDate || presentResult == vk.Suboptimal {
		return s.recreate()
	}
	if err := vk.Error(presentResult); err != nil {
		return fmt.Errorf("vk.QueuePresent(): %w", err)
	}
	vk.QueueWaitIdle(s.device.queue)
	return nil
}

func (s *Swapchain) record(commandBuffer vk.CommandBuffer, framebuffer vk.Framebuffer, items []DrawItem) error {
	vk.ResetCommandBuffer(commandBuffer, 0)
	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := vk.Error(vk.BeginCommandBuffer(commandBuffer, &cbbi)); err != nil {
		return fmt.Errorf("vk.BeginCommandBuffer(): %w", err)
	}

	clearValues := make([]vk.ClearValue, 2)
	clearValues[0].SetColor(s.ClearColor[:])
	clearValues[1].SetDepthStencil(1, 0)

	extent := vk.Extent2D{Width: s.width, Height: s.height}
	rpbi := vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      s.factory.compatPass,
		Framebuffer:     framebuffer,
		RenderArea:      vk.Rect2D{Extent: extent},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(commandBuffer, &rpbi, vk.SubpassContentsInline)
	vk.CmdSetViewport(commandBuffer, 0, 1, []vk.Viewport{{
		Width:    float32(s.width),
		Height:   float32(s.height),
		MinDepth: 0,
		MaxDepth: 1,
	}})
	vk.CmdSetScissor(commandBuffer, 0, 1, []vk.Rect2D{{Extent: extent}})

	ptrs := s.factory.ptrs
	for _, item := range items {
		pipeline := ptrs.LookupPipeline(item.Pipeline)
		mesh := ptrs.LookupMesh(item.Mesh)
		if pipeline == nil || mesh == nil {
			continue
		}
		pn := pipeline.Native.(*pipelineNative)
		mn := mesh.Native.(*meshNative)
		vk.CmdBindPipeline(commandBuffer, vk.PipelineBindPointGraphics, pn.pipeline)
		vk.CmdBindVertexBuffers(commandBuffer, 0, 1, []vk.Buffer{mn.vertices.Get()}, []vk.DeviceSize{0})
		if mn.numIndices > 0 {
			vk.CmdBindIndexBuffer(commandBuffer, mn.indices.Get(), 0, mn.indexType)
			vk.CmdDrawIndexed(commandBuffer, mn.numIndices, 1, 0, 0, 0)
		} else {
			vk.CmdDraw(commandBuffer, mn.numVertices, 1, 0, 0)
		}
	}

	vk.CmdEndRenderPass(commandBuffer)
	if err := vk.Error(vk.EndCommandBuffer(commandBuffer)); err != nil {
		return fmt.Errorf("vk.EndCommandBuffer(): %w", err)
	}
	return nil
}

// Destroy destroys the swapchain and its synchronization objects
func (s *Swapchain) Destroy() {
	s.device.WaitIdle()
	s.destroyFramebuffers()
	vk.DestroySwapchain(s.device.logical, s.swapchain, nil)
	vk.DestroySemaphore(s.device.logical, s.imageAvailable, nil)
	vk.DestroySemaphore(s.device.logical, s.renderFinished, nil)
	vk.DestroyCommandPool(s.device.logical, s.commandPool, nil)
}
