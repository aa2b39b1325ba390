// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import "fmt"

// ResourceType tags the pool a resource lives in, it is stored in Id.Type
type ResourceType uint16

// Resource types managed by the container
const (
	MeshType ResourceType = iota
	ShaderType
	TextureType
	PipelineType
	RenderPassType

	NumResourceTypes = int(RenderPassType) + 1
)

var resourceTypeNames = [...]string{
	MeshType:       "Mesh",
	ShaderType:     "Shader",
	TextureType:    "Texture",
	PipelineType:   "Pipeline",
	RenderPassType: "RenderPass",
}

func (t ResourceType) String() string {
	if int(t) < len(resourceTypeNames) {
		return resourceTypeNames[t]
	}
	return fmt.Sprintf("ResourceType(%d)", uint16(t))
}

// Usage hints how often resource data changes
type Usage int

// Resource usages
const (
	Immutable Usage = iota
	Dynamic
	Stream
)

// IndexType is the format of mesh indices
type IndexType int

// Index formats
const (
	IndexNone IndexType = iota
	Index16
	Index32
)

// ByteSize returns the size of one index
func (t IndexType) ByteSize() int {
	switch t {
	case Index16:
		return 2
	case Index32:
		return 4
	}
	return 0
}

// PrimitiveType is the topology a pipeline draws
type PrimitiveType int

// Primitive topologies
const (
	Triangles PrimitiveType = iota
	TriangleStrip
	Lines
	Points
)

// PixelFormat is the format of texture pixels
type PixelFormat int

// Pixel formats
const (
	PixelFormatNone PixelFormat = iota
	RGBA8
	RGB8
	R8
	RGBA32F
	Depth
	DepthStencil
)

// ByteSize returns the size of one pixel
func (f PixelFormat) ByteSize() int {
	switch f {
	case RGBA8, Depth, DepthStencil:
		return 4
	case RGB8:
		return 3
	case R8:
		return 1
	case RGBA32F:
		return 16
	}
	return 0
}

// IsDepth returns true for depth and depth-stencil formats
func (f PixelFormat) IsDepth() bool {
	return f == Depth || f == DepthStencil
}

// VertexFormat is the format of one vertex component
type VertexFormat int

// Vertex component formats
const (
	Float1 VertexFormat = iota
	Float2
	Float3
	Float4
	UByte4N
)

// ByteSize returns the size of one component
func (f VertexFormat) ByteSize() int {
	switch f {
	case Float1:
		return 4
	case Float2:
		return 8
	case Float3:
		return 12
	case Float4:
		return 16
	case UByte4N:
		return 4
	}
	return 0
}

// VertexComponent is one named attribute of a vertex
type VertexComponent struct {
	Name   string
	Format VertexFormat
}

// VertexLayout describes interleaved vertex data
type VertexLayout []VertexComponent

// ByteSize returns the stride of one vertex
func (l VertexLayout) ByteSize() int {
	size := 0
	for _, c := range l {
		size += c.Format.ByteSize()
	}
	return size
}

// Offset returns the byte offset of the component at index
func (l VertexLayout) Offset(index int) int {
	offset := 0
	for _, c := range l[:index] {
		offset += c.Format.ByteSize()
	}
	return offset
}
