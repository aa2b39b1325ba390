// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import "github.com/koru3d/koru/resource"

// Pointers gives factories access to other resources, for example the
// shader of a pipeline. Only Valid resources are returned.
type Pointers interface {
	LookupMesh(id resource.Id) *Mesh
	LookupShader(id resource.Id) *Shader
	LookupTexture(id resource.Id) *Texture
	LookupPipeline(id resource.Id) *Pipeline
	LookupRenderPass(id resource.Id) *RenderPass
}

// Factory creates and destroys the backend objects of resources.
//
// Init methods return Valid or Failed. Destroy methods are called for
// Valid and Failed resources and must cope with partly created objects.
// GarbageCollect is called once per frame after deferred destroys ran.
//
// Update methods replace the contents of Valid, non immutable resources
// in place. They return an error for data that does not fit.
type Factory interface {
	Setup(ptrs Pointers)
	Discard()

	InitMesh(res *Mesh, data []byte) resource.State
	InitShader(res *Shader) resource.State
	InitTexture(res *Texture, data []byte) resource.State
	InitPipeline(res *Pipeline) resource.State
	InitRenderPass(res *RenderPass) resource.State

	UpdateVertices(res *Mesh, data []byte) error
	UpdateIndices(res *Mesh, data []byte) error
	UpdateTexture(res *Texture, data []byte) error

	DestroyMesh(res *Mesh)
	DestroyShader(res *Shader)
	DestroyTexture(res *Texture)
	DestroyPipeline(res *Pipeline)
	DestroyRenderPass(res *RenderPass)

	GarbageCollect()
}
