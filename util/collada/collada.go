// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package collada

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// Input semantics used by meshes
const (
	SemanticVertex   = "VERTEX"
	SemanticPosition = "POSITION"
	SemanticNormal   = "NORMAL"
)

// Collada is the top-level Collada object
type Collada struct {
	Geometries []Geometry `xml:"library_geometries>geometry"`
}

// Decode parses a Collada document
func Decode(data []byte) (*Collada, error) {
	var doc Collada
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Geometry represents Collada's geometry
type Geometry struct {
	Mesh Mesh   `xml:"mesh"`
	ID   string `xml:"id,attr"`
	Name string `xml:"name,attr"`
}

// Mesh contains all the primitive data
type Mesh struct {
	Source    []Source  `xml:"source"`
	Vertices  Vertices  `xml:"vertices"`
	Triangles Triangles `xml:"triangles"`
}

// SourceByID resolves a source link, with or without the leading '#'
func (m *Mesh) SourceByID(id string) (Source, bool) {
	id = strings.TrimPrefix(id, "#")
	for _, s := range m.Source {
		if s.ID == id {
			return s, true
		}
	}
	return Source{}, false
}

// TriangleSource resolves the source of a triangle input. The VERTEX
// input goes through the vertices element to its POSITION source.
func (m *Mesh) TriangleSource(semantic string) (Source, uint, error) {
	for _, in := range m.Triangles.Inputs {
		if in.Semantic != semantic {
			continue
		}
		link := in.Source
		if semantic == SemanticVertex {
			if strings.TrimPrefix(link, "#") != m.Vertices.ID {
				return Source{}, 0, fmt.Errorf("vertices %q not found", link)
			}
			position, ok := m.Vertices.Input(SemanticPosition)
			if !ok {
				return Source{}, 0, fmt.Errorf("vertices %q have no position", link)
			}
			link = position.Source
		}
		source, ok := m.SourceByID(link)
		if !ok {
			return Source{}, 0, fmt.Errorf("source %q not found", link)
		}
		return source, in.Offset, nil
	}
	return Source{}, 0, fmt.Errorf("no %s input", semantic)
}

// Source links to other sources where data is present
type Source struct {
	ID     string `xml:"id,attr"`
	Floats Floats `xml:"float_array"`
	// technique_common define accessing rules, add if needed
}

// Vec3 returns the i-th group of three floats
func (s Source) Vec3(i int) ([3]float32, error) {
	if i < 0 || 3*i+3 > len(s.Floats.Data) {
		return [3]float32{}, fmt.Errorf("source %q has no element %d", s.ID, i)
	}
	d := s.Floats.Data[3*i:]
	return [3]float32{d[0], d[1], d[2]}, nil
}

// Floats is the array of floats
type Floats struct {
	ID   string
	Data []float32
}

// UnmarshalXML unmarshals the array of floats
func (f *Floats) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "id":
			f.ID = attr.Value
		}
	}
	var raw string
	if err := d.DecodeElement(&raw, &start); err != nil {
		return err
	}
	for _, r := range strings.Fields(raw) {
		num, err := strconv.ParseFloat(r, 32)
		if err != nil {
			return err
		}
		f.Data = append(f.Data, float32(num))
	}
	return nil
}

// Vertices contains the list of vertices
type Vertices struct {
	ID     string  `xml:"id,attr"`
	Inputs []Input `xml:"input"`
}

// Input finds the input with semantic
func (v *Vertices) Input(semantic string) (Input, bool) {
	for _, in := range v.Inputs {
		if in.Semantic == semantic {
			return in, true
		}
	}
	return Input{}, false
}

// Triangles contain the list of triangles
type Triangles struct {
	Count    int     `xml:"count,attr"`
	Material string  `xml:"material,attr"`
	Inputs   []Input `xml:"input"`
	Index    []int
}

// Stride returns the number of indices per triangle corner
func (t *Triangles) Stride() int {
	stride := 0
	for _, in := range t.Inputs {
		if int(in.Offset)+1 > stride {
			stride = int(in.Offset) + 1
		}
	}
	return stride
}

// UnmarshalXML parses the index list
func (t *Triangles) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "count":
			num, err := strconv.Atoi(attr.Value)
			if err != nil {
				return err
			}
			t.Count = num
		case "material":
			t.Material = attr.Value
		}
	}

	for {
		token, err := d.Token()
		if err != nil {
			return err
		}

		switch el := token.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "input":
				var input Input
				err := d.DecodeElement(&input, &el)
				if err != nil {
					return err
				}
				t.Inputs = append(t.Inputs, input)
			case "p":
				var (
					ints []int
					raw  string
				)
				if err := d.DecodeElement(&raw, &el); err != nil {
					return err
				}
				for _, r := range strings.Fields(raw) {
					num, err := strconv.Atoi(r)
					if err != nil {
						return err
					}
					ints = append(ints, num)
				}
				t.Index = ints
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if el == start.End() {
				return nil
			}
		}
	}
}

// Input is Collada'a input type
type Input struct {
	Semantic string `xml:"semantic,attr"`
	Source   string `xml:"source,attr"`
	Offset   uint   `xml:"offset,attr"`
}
