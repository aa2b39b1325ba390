// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import "github.com/koru3d/koru/resource"

// Native holds the backend objects of a resource. Backends store their
// own types and free them in the factory destroy methods.
type Native interface{}

// Mesh is a pooled vertex and index buffer
type Mesh struct {
	resource.Slot
	Setup  MeshSetup
	Native Native
}

// Shader is a pooled shader program
type Shader struct {
	resource.Slot
	Setup  ShaderSetup
	Native Native
}

// Texture is a pooled texture
type Texture struct {
	resource.Slot
	Setup  TextureSetup
	Native Native
}

// Pipeline is a pooled pipeline state object
type Pipeline struct {
	resource.Slot
	Setup  PipelineSetup
	Native Native
}

// RenderPass is a pooled render pass
type RenderPass struct {
	resource.Slot
	Setup  PassSetup
	Native Native
}
