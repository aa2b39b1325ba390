// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package model converts model files into vertex data for meshes.
package model

import (
	"encoding/binary"
	"math"
	"unsafe"

	glm "github.com/go-gl/mathgl/mgl32"

	"github.com/koru3d/koru/gfx"
	"github.com/koru3d/koru/resource"
)

// Vertex is a model vertex
type Vertex struct {
	Pos    glm.Vec3
	Normal glm.Vec3
	Color  glm.Vec4
}

// Stride is the size of one encoded vertex
const Stride = int(unsafe.Sizeof(Vertex{}))

// DefaultColor is given to vertices of models without vertex colors
var DefaultColor = glm.Vec4{1.0, 1.0, 0.0, 1.0}

// Layout returns the vertex layout matching VertexBytes
func Layout() gfx.VertexLayout {
	return gfx.VertexLayout{
		{Name: "position", Format: gfx.Float3},
		{Name: "normal", Format: gfx.Float3},
		{Name: "color", Format: gfx.Float4},
	}
}

// VertexBytes encodes vertices as little endian floats in Layout order
func VertexBytes(vertices []Vertex) []byte {
	buf := make([]byte, 0, len(vertices)*Stride)
	put := func(values ...float32) {
		for _, v := range values {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
		}
	}
	for _, v := range vertices {
		put(v.Pos[:]...)
		put(v.Normal[:]...)
		put(v.Color[:]...)
	}
	return buf
}

// Geometry is a triangle list, every three vertices form a triangle
type Geometry struct {
	Name     string
	Vertices []Vertex
}

// MeshSetup describes a mesh holding the geometry
func (g *Geometry) MeshSetup(locator resource.Locator) gfx.MeshSetup {
	return gfx.MeshSetup{
		Locator:     locator,
		Usage:       gfx.Immutable,
		Layout:      Layout(),
		NumVertices: len(g.Vertices),
		IndexType:   gfx.IndexNone,
	}
}

// Bytes returns the encoded vertex data
func (g *Geometry) Bytes() []byte {
	return VertexBytes(g.Vertices)
}

// Bounds returns the corners of the axis aligned bounding box
func (g *Geometry) Bounds() (min, max glm.Vec3) {
	if len(g.Vertices) == 0 {
		return
	}
	min, max = g.Vertices[0].Pos, g.Vertices[0].Pos
	for _, v := range g.Vertices[1:] {
		for i := 0; i < 3; i++ {
			min[i] = float32(math.Min(float64(min[i]), float64(v.Pos[i])))
			max[i] = float32(math.Max(float64(max[i]), float64(v.Pos[i])))
		}
	}
	return min, max
}
