// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import (
	"github.com/koru3d/koru/resource"
)

// Setup is implemented by every resource setup, it selects the pool and
// the factory method a resource is created with
type Setup interface {
	ResourceType() ResourceType
	ResourceLocator() resource.Locator
}

// MeshSetup describes vertex and index buffers
type MeshSetup struct {
	Locator     resource.Locator
	Usage       Usage
	Layout      VertexLayout
	NumVertices int
	IndexType   IndexType
	NumIndices  int
}

// MeshFromData describes a non-shared immutable mesh created from memory
func MeshFromData(layout VertexLayout, numVertices int, indexType IndexType, numIndices int) MeshSetup {
	return MeshSetup{
		Locator:     resource.NonShared(),
		Usage:       Immutable,
		Layout:      layout,
		NumVertices: numVertices,
		IndexType:   indexType,
		NumIndices:  numIndices,
	}
}

// MeshAsync describes a mesh that a loader creates from locator
func MeshAsync(locator resource.Locator) MeshSetup {
	return MeshSetup{Locator: locator, Usage: Immutable}
}

// VertexDataSize returns the size of the vertex data
func (s MeshSetup) VertexDataSize() int {
	return s.NumVertices * s.Layout.ByteSize()
}

// IndexDataSize returns the size of the index data, it follows the
// vertex data
func (s MeshSetup) IndexDataSize() int {
	return s.NumIndices * s.IndexType.ByteSize()
}

// ResourceType implements Setup
func (s MeshSetup) ResourceType() ResourceType { return MeshType }

// ResourceLocator implements Setup
func (s MeshSetup) ResourceLocator() resource.Locator { return s.Locator }

// TextureSetup describes a 2D texture or render target
type TextureSetup struct {
	Locator      resource.Locator
	Usage        Usage
	Width        int
	Height       int
	NumMipMaps   int
	Format       PixelFormat
	RenderTarget bool
}

// TextureFromPixelData describes a non-shared texture created from memory
func TextureFromPixelData(width, height int, format PixelFormat) TextureSetup {
	return TextureSetup{
		Locator:    resource.NonShared(),
		Width:      width,
		Height:     height,
		NumMipMaps: 1,
		Format:     format,
	}
}

// RenderTarget describes a texture that render passes draw into
func RenderTarget(width, height int, format PixelFormat) TextureSetup {
	setup := TextureFromPixelData(width, height, format)
	setup.RenderTarget = true
	return setup
}

// TextureAsync describes a texture that a loader creates from locator
func TextureAsync(locator resource.Locator) TextureSetup {
	return TextureSetup{Locator: locator, NumMipMaps: 1}
}

// DataSize returns the size of the top mip level pixel data
func (s TextureSetup) DataSize() int {
	return s.Width * s.Height * s.Format.ByteSize()
}

// ResourceType implements Setup
func (s TextureSetup) ResourceType() ResourceType { return TextureType }

// ResourceLocator implements Setup
func (s TextureSetup) ResourceLocator() resource.Locator { return s.Locator }

// ShaderSetup holds compiled shader stages
type ShaderSetup struct {
	Locator        resource.Locator
	VertexSource   []byte
	FragmentSource []byte
}

// ShaderFromSource describes a shared shader from stage sources
func ShaderFromSource(locator resource.Locator, vertex, fragment []byte) ShaderSetup {
	return ShaderSetup{
		Locator:        locator,
		VertexSource:   vertex,
		FragmentSource: fragment,
	}
}

// ResourceType implements Setup
func (s ShaderSetup) ResourceType() ResourceType { return ShaderType }

// ResourceLocator implements Setup
func (s ShaderSetup) ResourceLocator() resource.Locator { return s.Locator }

// PipelineSetup binds a shader to a vertex layout and topology
type PipelineSetup struct {
	Locator       resource.Locator
	Shader        resource.Id
	Layout        VertexLayout
	PrimitiveType PrimitiveType
	DepthTest     bool
}

// PipelineFromLayoutAndShader describes a non-shared triangle pipeline
func PipelineFromLayoutAndShader(layout VertexLayout, shader resource.Id) PipelineSetup {
	return PipelineSetup{
		Locator:       resource.NonShared(),
		Shader:        shader,
		Layout:        layout,
		PrimitiveType: Triangles,
		DepthTest:     true,
	}
}

// ResourceType implements Setup
func (s PipelineSetup) ResourceType() ResourceType { return PipelineType }

// ResourceLocator implements Setup
func (s PipelineSetup) ResourceLocator() resource.Locator { return s.Locator }

// PassSetup describes the attachments of a render pass
type PassSetup struct {
	Locator          resource.Locator
	ColorAttachments []resource.Id
	DepthStencil     resource.Id
}

// PassFrom describes a non-shared pass rendering into the given textures,
// depth may be the invalid id
func PassFrom(color []resource.Id, depth resource.Id) PassSetup {
	return PassSetup{
		Locator:          resource.NonShared(),
		ColorAttachments: color,
		DepthStencil:     depth,
	}
}

// ResourceType implements Setup
func (s PassSetup) ResourceType() ResourceType { return RenderPassType }

// ResourceLocator implements Setup
func (s PassSetup) ResourceLocator() resource.Locator { return s.Locator }
