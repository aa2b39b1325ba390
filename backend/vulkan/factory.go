// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vulkan

import (
	"errors"
	"fmt"

	vk "github.com/devblok/vulkan"
	"github.com/sirupsen/logrus"

	"github.com/koru3d/koru/core"
	"github.com/koru3d/koru/gfx"
	"github.com/koru3d/koru/resource"
)

// depthFormat is the depth format of the swapchain and of the render
// pass pipelines are made compatible with
const depthFormat = vk.FormatD16Unorm

// Factory creates Vulkan objects for gfx resources. Destroyed objects
// are kept alive until the frames that may use them have retired.
type Factory struct {
	device    *Device
	allocator *MemoryAllocator
	log       logrus.FieldLogger
	ptrs      gfx.Pointers
	releases  *gfx.ReleaseQueue

	pipelineCache vk.PipelineCache
	compatPass    vk.RenderPass
}

// NewFactory creates a factory for device
func NewFactory(device *Device, cfg core.ResourceConfiguration, logger logrus.FieldLogger) (*Factory, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	f := &Factory{
		device:    device,
		allocator: NewMemoryAllocator(device.logical, device.physical),
		log:       logger.WithField("backend", "vulkan"),
		releases:  gfx.NewReleaseQueue(cfg.MaxInflightFrames),
	}

	pcci := vk.PipelineCacheCreateInfo{
		SType: vk.StructureTypePipelineCacheCreateInfo,
	}
	if err := vk.Error(vk.CreatePipelineCache(device.logical, &pcci, nil, &f.pipelineCache)); err != nil {
		return nil, fmt.Errorf("vk.CreatePipelineCache(): %w", err)
	}

	pass, err := createRenderPass(device.logical, []vk.Format{device.ColorFormat()}, depthFormat, vk.ImageLayoutPresentSrc)
	if err != nil {
		vk.DestroyPipelineCache(device.logical, f.pipelineCache, nil)
		return nil, err
	}
	f.compatPass = pass
	return f, nil
}

// Setup implements gfx.Factory
func (f *Factory) Setup(ptrs gfx.Pointers) {
	if f.ptrs != nil {
		panic("vulkan.Factory.Setup(): already set up")
	}
	f.ptrs = ptrs
}

// Discard waits for the device and frees everything left
func (f *Factory) Discard() {
	f.device.WaitIdle()
	f.releases.Flush()
	vk.DestroyRenderPass(f.device.logical, f.compatPass, nil)
	vk.DestroyPipelineCache(f.device.logical, f.pipelineCache, nil)
	f.ptrs = nil
	if allocated := f.allocator.Allocated(); allocated != 0 {
		f.log.WithField("bytes", allocated).Warn("device memory leaked")
	}
}

func (f *Factory) fail(t gfx.ResourceType, id resource.Id, err error) resource.State {
	f.log.WithFields(logrus.Fields{
		"type": t.String(),
		"id":   id.String(),
	}).WithError(err).Warn("resource creation failed")
	return resource.Failed
}

// InitMesh implements gfx.Factory
func (f *Factory) InitMesh(res *gfx.Mesh, data []byte) resource.State {
	setup := res.Setup
	vertexSize := setup.VertexDataSize()
	indexSize := setup.IndexDataSize()
	if vertexSize == 0 {
		return f.fail(gfx.MeshType, res.Id, errors.New("mesh without vertices"))
	}
	if (setup.Usage == gfx.Immutable || data != nil) && len(data) < vertexSize+indexSize {
		return f.fail(gfx.MeshType, res.Id, fmt.Errorf("%d bytes of mesh data, want %d", len(data), vertexSize+indexSize))
	}

	native := &meshNative{
		numVertices: uint32(setup.NumVertices),
		numIndices:  uint32(setup.NumIndices),
		indexType:   indexType(setup.IndexType),
	}
	var err error
	native.vertices, err = NewBuffer(f.device.logical, uint(vertexSize), vk.BufferUsageVertexBufferBit, f.allocator)
	if err != nil {
		return f.fail(gfx.MeshType, res.Id, err)
	}
	if indexSize > 0 {
		native.indices, err = NewBuffer(f.device.logical, uint(indexSize), vk.BufferUsageIndexBufferBit, f.allocator)
		if err != nil {
			native.release()
			return f.fail(gfx.MeshType, res.Id, err)
		}
	}
	if data != nil {
		if err := native.vertices.Mem().Write(data[:vertexSize]); err != nil {
			native.release()
			return f.fail(gfx.MeshType, res.Id, err)
		}
		if indexSize > 0 {
			if err := native.indices.Mem().Write(data[vertexSize : vertexSize+indexSize]); err != nil {
				native.release()
				return f.fail(gfx.MeshType, res.Id, err)
			}
		}
	}
	res.Native = native
	return resource.Valid
}

// InitShader implements gfx.Factory, stage sources are SPIR-V
func (f *Factory) InitShader(res *gfx.Shader) resource.State {
	vertex, err := f.shaderModule(res.Setup.VertexSource)
	if err != nil {
		return f.fail(gfx.ShaderType, res.Id, fmt.Errorf("vertex stage: %w", err))
	}
	fragment, err := f.shaderModule(res.Setup.FragmentSource)
	if err != nil {
		vk.DestroyShaderModule(f.device.logical, vertex, nil)
		return f.fail(gfx.ShaderType, res.Id, fmt.Errorf("fragment stage: %w", err))
	}
	res.Native = &shaderNative{
		device:   f.device.logical,
		vertex:   vertex,
		fragment: fragment,
	}
	return resource.Valid
}

func (f *Factory) shaderModule(code []byte) (vk.ShaderModule, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, fmt.Errorf("SPIR-V code size %d", len(code))
	}
	smci := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    core.SliceUint32(code),
	}
	var module vk.ShaderModule
	if err := vk.Error(vk.CreateShaderModule(f.device.logical, &smci, nil, &module)); err != nil {
		return nil, fmt.Errorf("vk.CreateShaderModule(): %w", err)
	}
	return module, nil
}

// InitTexture implements gfx.Factory. Sampled textures are linear and
// written directly, render targets live in device memory.
func (f *Factory) InitTexture(res *gfx.Texture, data []byte) resource.State {
	setup := res.Setup
	format, err := pixelFormat(setup.Format)
	if err != nil {
		return f.fail(gfx.TextureType, res.Id, err)
	}
	if setup.Width <= 0 || setup.Height <= 0 {
		return f.fail(gfx.TextureType, res.Id, fmt.Errorf("texture size %dx%d", setup.Width, setup.Height))
	}

	imageSetup := ImageSetup{
		Width:  uint32(setup.Width),
		Height: uint32(setup.Height),
		Format: format,
		Usage:  vk.ImageUsageSampledBit,
		Aspect: vk.ImageAspectColorBit,
	}
	switch {
	case setup.RenderTarget && setup.Format.IsDepth():
		imageSetup.Usage = vk.ImageUsageDepthStencilAttachmentBit
		imageSetup.Aspect = vk.ImageAspectDepthBit
	case setup.RenderTarget:
		imageSetup.Usage |= vk.ImageUsageColorAttachmentBit
	default:
		needsData := setup.Usage == gfx.Immutable || data != nil
		if needsData && len(data) < setup.DataSize() {
			return f.fail(gfx.TextureType, res.Id, fmt.Errorf("%d bytes of pixel data, want %d", len(data), setup.DataSize()))
		}
		imageSetup.HostVisible = true
	}

	image, err := NewImage(f.device.logical, imageSetup, f.allocator)
	if err != nil {
		return f.fail(gfx.TextureType, res.Id, err)
	}
	if data != nil && imageSetup.HostVisible {
		if err := image.Upload(data, setup.Format.ByteSize()); err != nil {
			image.Release()
			return f.fail(gfx.TextureType, res.Id, err)
		}
	}
	res.Native = &textureNative{image: image}
	return resource.Valid
}

// InitPipeline implements gfx.Factory. Pipelines are compatible with
// the swapchain render pass.
func (f *Factory) InitPipeline(res *gfx.Pipeline) resource.State {
	setup := res.Setup
	shader := f.ptrs.LookupShader(setup.Shader)
	if shader == nil {
		return f.fail(gfx.PipelineType, res.Id, errors.New("shader is not valid"))
	}
	modules := shader.Native.(*shaderNative)

	binding, attributes, err := vertexInput(setup.Layout)
	if err != nil {
		return f.fail(gfx.PipelineType, res.Id, err)
	}

	native := &pipelineNative{device: f.device.logical}
	dslci := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 1,
		PBindings: []vk.DescriptorSetLayoutBinding{{
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		}},
	}
	if err := vk.Error(vk.CreateDescriptorSetLayout(f.device.logical, &dslci, nil, &native.setLayout)); err != nil {
		return f.fail(gfx.PipelineType, res.Id, fmt.Errorf("vk.CreateDescriptorSetLayout(): %w", err))
	}

	plci := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 1,
		PSetLayouts:    []vk.DescriptorSetLayout{native.setLayout},
	}
	if err := vk.Error(vk.CreatePipelineLayout(f.device.logical, &plci, nil, &native.layout)); err != nil {
		vk.DestroyDescriptorSetLayout(f.device.logical, native.setLayout, nil)
		return f.fail(gfx.PipelineType, res.Id, fmt.Errorf("vk.CreatePipelineLayout(): %w", err))
	}

	var depthTest vk.Bool32 = vk.False
	if setup.DepthTest {
		depthTest = vk.True
	}
	stencilOp := vk.StencilOpState{
		FailOp:    vk.StencilOpKeep,
		PassOp:    vk.StencilOpKeep,
		CompareOp: vk.CompareOpAlways,
	}

	gpci := []vk.GraphicsPipelineCreateInfo{{
		SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: 2,
		PStages: []vk.PipelineShaderStageCreateInfo{{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: modules.vertex,
			PName:  safeString("main"),
		}, {
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: modules.fragment,
			PName:  safeString("main"),
		}},
		PVertexInputState: &vk.PipelineVertexInputStateCreateInfo{
			SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
			VertexBindingDescriptionCount:   1,
			PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{binding},
			VertexAttributeDescriptionCount: uint32(len(attributes)),
			PVertexAttributeDescriptions:    attributes,
		},
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology: topology(setup.PrimitiveType),
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			ScissorCount:  1,
		},
		PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
			SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
			PolygonMode: vk.PolygonModeFill,
			CullMode:    vk.CullModeFlags(vk.CullModeBackBit),
			FrontFace:   vk.FrontFaceCounterClockwise,
			LineWidth:   1.0,
		},
		PDepthStencilState: &vk.PipelineDepthStencilStateCreateInfo{
			SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
			DepthTestEnable:  depthTest,
			DepthWriteEnable: depthTest,
			DepthCompareOp:   vk.CompareOpLessOrEqual,
			Back:             stencilOp,
			Front:            stencilOp,
		},
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: vk.SampleCount1Bit,
		},
		PColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
			SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
			AttachmentCount: 1,
			PAttachments: []vk.PipelineColorBlendAttachmentState{{
				ColorWriteMask: 0xF,
				BlendEnable:    vk.False,
			}},
		},
		PDynamicState: &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: 2,
			PDynamicStates: []vk.DynamicState{
				vk.DynamicStateScissor,
				vk.DynamicStateViewport,
			},
		},
		Layout:     native.layout,
		RenderPass: f.compatPass,
	}}

	pipelines := make([]vk.Pipeline, 1)
	if err := vk.Error(vk.CreateGraphicsPipelines(f.device.logical, f.pipelineCache, 1, gpci, nil, pipelines)); err != nil {
		vk.DestroyPipelineLayout(f.device.logical, native.layout, nil)
		vk.DestroyDescriptorSetLayout(f.device.logical, native.setLayout, nil)
		return f.fail(gfx.PipelineType, res.Id, fmt.Errorf("vk.CreateGraphicsPipelines(): %w", err))
	}
	native.pipeline = pipelines[0]
	res.Native = native
	return resource.Valid
}

// InitRenderPass implements gfx.Factory, it creates the pass and a
// framebuffer over its attachments
func (f *Factory) InitRenderPass(res *gfx.RenderPass) resource.State {
	setup := res.Setup
	var (
		colorFormats  []vk.Format
		views         []vk.ImageView
		width, height int
		depth         = vk.FormatUndefined
	)
	attach := func(id resource.Id, wantDepth bool) error {
		tex := f.ptrs.LookupTexture(id)
		if tex == nil || !tex.Setup.RenderTarget || tex.Setup.Format.IsDepth() != wantDepth {
			return fmt.Errorf("attachment %v is not a valid render target", id)
		}
		if width == 0 {
			width, height = tex.Setup.Width, tex.Setup.Height
		} else if width != tex.Setup.Width || height != tex.Setup.Height {
			return fmt.Errorf("attachment %v size differs", id)
		}
		native := tex.Native.(*textureNative)
		views = append(views, native.image.View())
		if wantDepth {
			depth = native.image.Format()
		} else {
			colorFormats = append(colorFormats, native.image.Format())
		}
		return nil
	}
	for _, id := range setup.ColorAttachments {
		if err := attach(id, false); err != nil {
			return f.fail(gfx.RenderPassType, res.Id, err)
		}
	}
	if setup.DepthStencil.IsValid() {
		if err := attach(setup.DepthStencil, true); err != nil {
			return f.fail(gfx.RenderPassType, res.Id, err)
		}
	}
	if len(views) == 0 {
		return f.fail(gfx.RenderPassType, res.Id, errors.New("render pass without attachments"))
	}

	renderPass, err := createRenderPass(f.device.logical, colorFormats, depth, vk.ImageLayoutShaderReadOnlyOptimal)
	if err != nil {
		return f.fail(gfx.RenderPassType, res.Id, err)
	}
	framebuffer, err := createFramebuffer(f.device.logical, renderPass, views, uint32(width), uint32(height))
	if err != nil {
		vk.DestroyRenderPass(f.device.logical, renderPass, nil)
		return f.fail(gfx.RenderPassType, res.Id, err)
	}
	res.Native = &passNative{
		device:      f.device.logical,
		renderPass:  renderPass,
		framebuffer: framebuffer,
		width:       uint32(width),
		height:      uint32(height),
		numColor:    len(colorFormats),
	}
	return resource.Valid
}

// UpdateVertices implements gfx.Factory. The swapchain waits for the
// queue after every frame, so host visible buffers can be written here.
func (f *Factory) UpdateVertices(res *gfx.Mesh, data []byte) error {
	native, ok := res.Native.(*meshNative)
	if !ok || len(data) == 0 {
		return fmt.Errorf("vulkan.Factory.UpdateVertices(): nothing to update")
	}
	return native.vertices.Mem().Write(data)
}

// UpdateIndices implements gfx.Factory, see UpdateVertices
func (f *Factory) UpdateIndices(res *gfx.Mesh, data []byte) error {
	native, ok := res.Native.(*meshNative)
	if !ok || len(data) == 0 {
		return fmt.Errorf("vulkan.Factory.UpdateIndices(): nothing to update")
	}
	if !native.indices.Valid() {
		return fmt.Errorf("vulkan.Factory.UpdateIndices(): mesh has no indices")
	}
	return native.indices.Mem().Write(data)
}

// UpdateTexture implements gfx.Factory, data replaces the whole image
func (f *Factory) UpdateTexture(res *gfx.Texture, data []byte) error {
	native, ok := res.Native.(*textureNative)
	if !ok {
		return fmt.Errorf("vulkan.Factory.UpdateTexture(): nothing to update")
	}
	if len(data) != res.Setup.DataSize() {
		return fmt.Errorf("vulkan.Factory.UpdateTexture(): %d bytes for %d bytes of pixels", len(data), res.Setup.DataSize())
	}
	return native.image.Upload(data, res.Setup.Format.ByteSize())
}

func (f *Factory) destroy(native gfx.Native) {
	if r, ok := native.(releaser); ok {
		f.releases.Push(r.release)
	}
}

// DestroyMesh implements gfx.Factory
func (f *Factory) DestroyMesh(res *gfx.Mesh) {
	f.destroy(res.Native)
	res.Native = nil
}

// DestroyShader implements gfx.Factory
func (f *Factory) DestroyShader(res *gfx.Shader) {
	f.destroy(res.Native)
	res.Native = nil
}

// DestroyTexture implements gfx.Factory
func (f *Factory) DestroyTexture(res *gfx.Texture) {
	f.destroy(res.Native)
	res.Native = nil
}

// DestroyPipeline implements gfx.Factory
func (f *Factory) DestroyPipeline(res *gfx.Pipeline) {
	f.destroy(res.Native)
	res.Native = nil
}

// DestroyRenderPass implements gfx.Factory
func (f *Factory) DestroyRenderPass(res *gfx.RenderPass) {
	f.destroy(res.Native)
	res.Native = nil
}

// GarbageCollect frees objects no frame in flight can reference
func (f *Factory) GarbageCollect() {
	if n := f.releases.Collect(); n > 0 {
		f.log.WithField("freed", n).Debug("vulkan objects freed")
	}
}

// createRenderPass creates a single subpass pass, color attachments end
// in colorLayout
func createRenderPass(device vk.Device, colorFormats []vk.Format, depth vk.Format, colorLayout vk.ImageLayout) (vk.RenderPass, error) {
	var (
		attachments []vk.AttachmentDescription
		colorRefs   []vk.AttachmentReference
	)
	for _, format := range colorFormats {
		colorRefs = append(colorRefs, vk.AttachmentReference{
			Attachment: uint32(len(attachments)),
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		})
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         format,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    colorLayout,
		})
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colorRefs)),
		PColorAttachments:    colorRefs,
	}
	if depth != vk.FormatUndefined {
		subpass.PDepthStencilAttachment = &vk.AttachmentReference{
			Attachment: uint32(len(attachments)),
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         depth,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		})
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
	}

	rpci := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var renderPass vk.RenderPass
	if err := vk.Error(vk.CreateRenderPass(device, &rpci, nil, &renderPass)); err != nil {
		return nil, fmt.Errorf("vk.CreateRenderPass(): %w", err)
	}
	return renderPass, nil
}

func createFramebuffer(device vk.Device, pass vk.RenderPass, views []vk.ImageView, width, height uint32) (vk.Framebuffer, error) {
	fci := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      pass,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           width,
		Height:          height,
		Layers:          1,
	}
	var framebuffer vk.Framebuffer
	if err := vk.Error(vk.CreateFramebuffer(device, &fci, nil, &framebuffer)); err != nil {
		return nil, fmt.Errorf("vk.CreateFramebuffer(): %w", err)
	}
	return framebuffer, nil
}
