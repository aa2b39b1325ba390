// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package model

import (
	"errors"
	"fmt"

	glm "github.com/go-gl/mathgl/mgl32"

	"github.com/koru3d/koru/util/collada"
)

var (
	// ErrNoGeometry is returned for documents without a mesh
	ErrNoGeometry = errors.New("no geometry in document")
)

// ImportCollada reads the first geometry of a Collada document.
// Normals are optional.
func ImportCollada(fileContents []byte) (*Geometry, error) {
	doc, err := collada.Decode(fileContents)
	if err != nil {
		return nil, fmt.Errorf("model.ImportCollada(): %w", err)
	}
	if len(doc.Geometries) == 0 {
		return nil, fmt.Errorf("model.ImportCollada(): %w", ErrNoGeometry)
	}

	geometry := doc.Geometries[0]
	mesh := &geometry.Mesh
	positions, positionOffset, err := mesh.TriangleSource(collada.SemanticVertex)
	if err != nil {
		return nil, fmt.Errorf("model.ImportCollada(): %w", err)
	}
	normals, normalOffset, err := mesh.TriangleSource(collada.SemanticNormal)
	hasNormals := err == nil

	stride := mesh.Triangles.Stride()
	index := mesh.Triangles.Index
	if stride == 0 || len(index)%(3*stride) != 0 {
		return nil, fmt.Errorf("model.ImportCollada(): index count %d does not form triangles", len(index))
	}

	vertices := make([]Vertex, 0, len(index)/stride)
	for corner := 0; corner < len(index); corner += stride {
		pos, err := positions.Vec3(index[corner+int(positionOffset)])
		if err != nil {
			return nil, fmt.Errorf("model.ImportCollada(): %w", err)
		}
		vert := Vertex{
			Pos:   glm.Vec3(pos),
			Color: DefaultColor,
		}
		if hasNormals {
			normal, err := normals.Vec3(index[corner+int(normalOffset)])
			if err != nil {
				return nil, fmt.Errorf("model.ImportCollada(): %w", err)
			}
			vert.Normal = glm.Vec3(normal)
		}
		vertices = append(vertices, vert)
	}

	return &Geometry{
		Name:     geometry.Name,
		Vertices: vertices,
	}, nil
}
