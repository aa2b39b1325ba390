// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx_test

import (
	"errors"

	"github.com/koru3d/koru/gfx"
	"github.com/koru3d/koru/resource"
)

var errTooLarge = errors.New("data does not fit")

// recordingFactory records every call and returns configurable states
type recordingFactory struct {
	ptrs      gfx.Pointers
	results   map[gfx.ResourceType]resource.State
	inits     map[gfx.ResourceType]int
	destroyed []resource.Id
	updates   []string
	collected int
	discarded bool
}

func newRecordingFactory() *recordingFactory {
	return &recordingFactory{
		results: map[gfx.ResourceType]resource.State{},
		inits:   map[gfx.ResourceType]int{},
	}
}

func (f *recordingFactory) result(t gfx.ResourceType) resource.State {
	f.inits[t]++
	if state, ok := f.results[t]; ok {
		return state
	}
	return resource.Valid
}

func (f *recordingFactory) Setup(ptrs gfx.Pointers) { f.ptrs = ptrs }
func (f *recordingFactory) Discard()                { f.discarded = true }

func (f *recordingFactory) InitMesh(res *gfx.Mesh, data []byte) resource.State {
	res.Native = len(data)
	return f.result(gfx.MeshType)
}

func (f *recordingFactory) InitShader(res *gfx.Shader) resource.State {
	return f.result(gfx.ShaderType)
}

func (f *recordingFactory) InitTexture(res *gfx.Texture, data []byte) resource.State {
	res.Native = len(data)
	return f.result(gfx.TextureType)
}

func (f *recordingFactory) InitPipeline(res *gfx.Pipeline) resource.State {
	if f.ptrs.LookupShader(res.Setup.Shader) == nil {
		f.inits[gfx.PipelineType]++
		return resource.Failed
	}
	return f.result(gfx.PipelineType)
}

func (f *recordingFactory) InitRenderPass(res *gfx.RenderPass) resource.State {
	return f.result(gfx.RenderPassType)
}

func (f *recordingFactory) UpdateVertices(res *gfx.Mesh, data []byte) error {
	if len(data) > res.Setup.VertexDataSize() {
		return errTooLarge
	}
	f.updates = append(f.updates, "vertices")
	return nil
}

func (f *recordingFactory) UpdateIndices(res *gfx.Mesh, data []byte) error {
	if len(data) > res.Setup.IndexDataSize() {
		return errTooLarge
	}
	f.updates = append(f.updates, "indices")
	return nil
}

func (f *recordingFactory) UpdateTexture(res *gfx.Texture, data []byte) error {
	if len(data) != res.Setup.DataSize() {
		return errTooLarge
	}
	f.updates = append(f.updates, "texture")
	return nil
}

func (f *recordingFactory) DestroyMesh(res *gfx.Mesh)             { f.destroyed = append(f.destroyed, res.Id) }
func (f *recordingFactory) DestroyShader(res *gfx.Shader)         { f.destroyed = append(f.destroyed, res.Id) }
func (f *recordingFactory) DestroyTexture(res *gfx.Texture)       { f.destroyed = append(f.destroyed, res.Id) }
func (f *recordingFactory) DestroyPipeline(res *gfx.Pipeline)     { f.destroyed = append(f.destroyed, res.Id) }
func (f *recordingFactory) DestroyRenderPass(res *gfx.RenderPass) { f.destroyed = append(f.destroyed, res.Id) }
func (f *recordingFactory) GarbageCollect()                       { f.collected++ }
