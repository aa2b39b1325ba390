// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vulkan

import (
	vk "github.com/devblok/vulkan"
)

type meshNative struct {
	vertices    Buffer
	indices     Buffer
	numVertices uint32
	numIndices  uint32
	indexType   vk.IndexType
}

func (m *meshNative) release() {
	m.vertices.Release()
	m.indices.Release()
}

type shaderNative struct {
	device   vk.Device
	vertex   vk.ShaderModule
	fragment vk.ShaderModule
}

func (s *shaderNative) release() {
	vk.DestroyShaderModule(s.device, s.vertex, nil)
	vk.DestroyShaderModule(s.device, s.fragment, nil)
}

type textureNative struct {
	image Image
}

func (t *textureNative) release() {
	t.image.Release()
}

type pipelineNative struct {
	device    vk.Device
	setLayout vk.DescriptorSetLayout
	layout    vk.PipelineLayout
	pipeline  vk.Pipeline
}

func (p *pipelineNative) release() {
	vk.DestroyPipeline(p.device, p.pipeline, nil)
	vk.DestroyPipelineLayout(p.device, p.layout, nil)
	vk.DestroyDescriptorSetLayout(p.device, p.setLayout, nil)
}

type passNative struct {
	device        vk.Device
	renderPass    vk.RenderPass
	framebuffer   vk.Framebuffer
	width, height uint32
	numColor      int
}

func (p *passNative) release() {
	vk.DestroyFramebuffer(p.device, p.framebuffer, nil)
	vk.DestroyRenderPass(p.device, p.renderPass, nil)
}

type releaser interface {
	release()
}
