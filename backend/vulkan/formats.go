// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vulkan

import (
	"fmt"

	vk "github.com/devblok/vulkan"

	"github.com/koru3d/koru/gfx"
)

func vertexFormat(f gfx.VertexFormat) (vk.Format, error) {
	switch f {
	case gfx.Float1:
		return vk.FormatR32Sfloat, nil
	case gfx.Float2:
		return vk.FormatR32g32Sfloat, nil
	case gfx.Float3:
		return vk.FormatR32g32b32Sfloat, nil
	case gfx.Float4:
		return vk.FormatR32g32b32a32Sfloat, nil
	case gfx.UByte4N:
		return vk.FormatR8g8b8a8Unorm, nil
	}
	return vk.FormatUndefined, fmt.Errorf("unsupported vertex format %d", f)
}

func pixelFormat(f gfx.PixelFormat) (vk.Format, error) {
	switch f {
	case gfx.RGBA8:
		return vk.FormatR8g8b8a8Unorm, nil
	case gfx.RGB8:
		return vk.FormatR8g8b8Unorm, nil
	case gfx.R8:
		return vk.FormatR8Unorm, nil
	case gfx.RGBA32F:
		return vk.FormatR32g32b32a32Sfloat, nil
	case gfx.Depth:
		return vk.FormatD32Sfloat, nil
	case gfx.DepthStencil:
		return vk.FormatD24UnormS8Uint, nil
	}
	return vk.FormatUndefined, fmt.Errorf("unsupported pixel format %d", f)
}

func indexType(t gfx.IndexType) vk.IndexType {
	if t == gfx.Index32 {
		return vk.IndexTypeUint32
	}
	return vk.IndexTypeUint16
}

func topology(p gfx.PrimitiveType) vk.PrimitiveTopology {
	switch p {
	case gfx.TriangleStrip:
		return vk.PrimitiveTopologyTriangleStrip
	case gfx.Lines:
		return vk.PrimitiveTopologyLineList
	case gfx.Points:
		return vk.PrimitiveTopologyPointList
	}
	return vk.PrimitiveTopologyTriangleList
}

// vertexInput describes interleaved vertices of layout in binding 0,
// components get consecutive locations
func vertexInput(layout gfx.VertexLayout) (vk.VertexInputBindingDescription, []vk.VertexInputAttributeDescription, error) {
	binding := vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    uint32(layout.ByteSize()),
		InputRate: vk.VertexInputRateVertex,
	}
	attributes := make([]vk.VertexInputAttributeDescription, len(layout))
	for i, component := range layout {
		format, err := vertexFormat(component.Format)
		if err != nil {
			return binding, nil, fmt.Errorf("component %q: %w", component.Name, err)
		}
		attributes[i] = vk.VertexInputAttributeDescription{
			Binding:  0,
			Location: uint32(i),
			Format:   format,
			Offset:   uint32(layout.Offset(i)),
		}
	}
	return binding, attributes, nil
}
