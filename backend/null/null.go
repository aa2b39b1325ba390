// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package null implements a gfx.Factory without a GPU. It validates
// setups and data the way a real backend would and keeps count of every
// object, which makes it suitable for tests and headless runs.
package null

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/koru3d/koru/core"
	"github.com/koru3d/koru/gfx"
	"github.com/koru3d/koru/resource"
)

// Object is the native handle of every resource made by the Factory
type Object struct {
	Type gfx.ResourceType
	Id   resource.Id
	Size int
}

// Stats counts factory calls per resource type
type Stats struct {
	Created   [gfx.NumResourceTypes]int `json:"created"`
	Failed    [gfx.NumResourceTypes]int `json:"failed"`
	Destroyed [gfx.NumResourceTypes]int `json:"destroyed"`
	Freed     [gfx.NumResourceTypes]int `json:"freed"`
	Updated   [gfx.NumResourceTypes]int `json:"updated"`
	Bytes     int                       `json:"bytes"`
}

// Live returns the number of objects that are created and not freed yet
func (s Stats) Live() int {
	n := 0
	for t := range s.Created {
		n += s.Created[t] - s.Freed[t]
	}
	return n
}

// Factory is the null backend
type Factory struct {
	log      logrus.FieldLogger
	ptrs     gfx.Pointers
	releases *gfx.ReleaseQueue
	stats    Stats
}

// New creates a Factory that frees destroyed objects after
// cfg.MaxInflightFrames garbage collections
func New(cfg core.ResourceConfiguration, logger logrus.FieldLogger) *Factory {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Factory{
		log:      logger.WithField("backend", "null"),
		releases: gfx.NewReleaseQueue(cfg.MaxInflightFrames),
	}
}

// Setup implements gfx.Factory
func (f *Factory) Setup(ptrs gfx.Pointers) {
	if f.ptrs != nil {
		panic("null.Factory.Setup(): already set up")
	}
	f.ptrs = ptrs
}

// Discard frees every object still waiting for release
func (f *Factory) Discard() {
	if f.ptrs == nil {
		panic("null.Factory.Discard(): not set up")
	}
	f.releases.Flush()
	f.ptrs = nil
	if live := f.stats.Live(); live != 0 {
		f.log.WithField("live", live).Warn("objects leaked")
	}
}

// Stats returns a snapshot of the counters
func (f *Factory) Stats() Stats {
	return f.stats
}

// PendingReleases returns the number of destroyed objects not freed yet
func (f *Factory) PendingReleases() int {
	return f.releases.Len()
}

func (f *Factory) create(t gfx.ResourceType, id resource.Id, size int) *Object {
	f.stats.Created[t]++
	f.stats.Bytes += size
	return &Object{Type: t, Id: id, Size: size}
}

func (f *Factory) fail(t gfx.ResourceType, id resource.Id, reason string) resource.State {
	f.stats.Failed[t]++
	f.log.WithFields(logrus.Fields{
		"type": t.String(),
		"id":   id.String(),
	}).Warn(reason)
	return resource.Failed
}

// InitMesh implements gfx.Factory. Immutable meshes need data for all
// vertices and indices, others may be created empty.
func (f *Factory) InitMesh(res *gfx.Mesh, data []byte) resource.State {
	setup := res.Setup
	if setup.NumVertices <= 0 || setup.Layout.ByteSize() == 0 {
		return f.fail(gfx.MeshType, res.Id, "mesh without vertices")
	}
	if setup.NumIndices > 0 && setup.IndexType == gfx.IndexNone {
		return f.fail(gfx.MeshType, res.Id, "indices without index type")
	}
	size := setup.VertexDataSize() + setup.IndexDataSize()
	if (setup.Usage == gfx.Immutable || data != nil) && len(data) < size {
		return f.fail(gfx.MeshType, res.Id, "mesh data too short")
	}
	res.Native = f.create(gfx.MeshType, res.Id, size)
	return resource.Valid
}

// InitShader implements gfx.Factory
func (f *Factory) InitShader(res *gfx.Shader) resource.State {
	if len(res.Setup.VertexSource) == 0 || len(res.Setup.FragmentSource) == 0 {
		return f.fail(gfx.ShaderType, res.Id, "shader stage without source")
	}
	res.Native = f.create(gfx.ShaderType, res.Id, len(res.Setup.VertexSource)+len(res.Setup.FragmentSource))
	return resource.Valid
}

// InitTexture implements gfx.Factory. Render targets and textures that
// are not Immutable may be created without data.
func (f *Factory) InitTexture(res *gfx.Texture, data []byte) resource.State {
	setup := res.Setup
	if setup.Width <= 0 || setup.Height <= 0 || setup.Format == gfx.PixelFormatNone {
		return f.fail(gfx.TextureType, res.Id, "invalid texture dimensions or format")
	}
	needsData := setup.Usage == gfx.Immutable || data != nil
	if !setup.RenderTarget && needsData && len(data) < setup.DataSize() {
		return f.fail(gfx.TextureType, res.Id, "texture data too short")
	}
	res.Native = f.create(gfx.TextureType, res.Id, setup.DataSize())
	return resource.Valid
}

// InitPipeline implements gfx.Factory, the shader has to be valid
func (f *Factory) InitPipeline(res *gfx.Pipeline) resource.State {
	if f.ptrs.LookupShader(res.Setup.Shader) == nil {
		return f.fail(gfx.PipelineType, res.Id, "pipeline shader is not valid")
	}
	if len(res.Setup.Layout) == 0 {
		return f.fail(gfx.PipelineType, res.Id, "pipeline without vertex layout")
	}
	res.Native = f.create(gfx.PipelineType, res.Id, 0)
	return resource.Valid
}

// InitRenderPass implements gfx.Factory. Color attachments have to be
// valid render targets, the optional depth attachment a valid depth
// render target.
func (f *Factory) InitRenderPass(res *gfx.RenderPass) resource.State {
	setup := res.Setup
	if len(setup.ColorAttachments) == 0 && !setup.DepthStencil.IsValid() {
		return f.fail(gfx.RenderPassType, res.Id, "render pass without attachments")
	}
	for _, id := range setup.ColorAttachments {
		tex := f.ptrs.LookupTexture(id)
		if tex == nil || !tex.Setup.RenderTarget || tex.Setup.Format.IsDepth() {
			return f.fail(gfx.RenderPassType, res.Id, "color attachment is not a valid render target")
		}
	}
	if setup.DepthStencil.IsValid() {
		tex := f.ptrs.LookupTexture(setup.DepthStencil)
		if tex == nil || !tex.Setup.RenderTarget || !tex.Setup.Format.IsDepth() {
			return f.fail(gfx.RenderPassType, res.Id, "depth attachment is not a valid depth target")
		}
	}
	res.Native = f.create(gfx.RenderPassType, res.Id, 0)
	return resource.Valid
}

// UpdateVertices implements gfx.Factory, data may cover the first
// vertices only
func (f *Factory) UpdateVertices(res *gfx.Mesh, data []byte) error {
	if len(data) == 0 || len(data) > res.Setup.VertexDataSize() {
		return fmt.Errorf("null.Factory.UpdateVertices(): %d bytes for %d bytes of vertices", len(data), res.Setup.VertexDataSize())
	}
	f.stats.Updated[gfx.MeshType]++
	return nil
}

// UpdateIndices implements gfx.Factory, see UpdateVertices
func (f *Factory) UpdateIndices(res *gfx.Mesh, data []byte) error {
	if res.Setup.IndexType == gfx.IndexNone {
		return fmt.Errorf("null.Factory.UpdateIndices(): mesh has no indices")
	}
	if len(data) == 0 || len(data) > res.Setup.IndexDataSize() {
		return fmt.Errorf("null.Factory.UpdateIndices(): %d bytes for %d bytes of indices", len(data), res.Setup.IndexDataSize())
	}
	f.stats.Updated[gfx.MeshType]++
	return nil
}

// UpdateTexture implements gfx.Factory, data replaces the whole image
func (f *Factory) UpdateTexture(res *gfx.Texture, data []byte) error {
	if res.Setup.RenderTarget {
		return fmt.Errorf("null.Factory.UpdateTexture(): render targets can't be updated")
	}
	if len(data) != res.Setup.DataSize() {
		return fmt.Errorf("null.Factory.UpdateTexture(): %d bytes for %d bytes of pixels", len(data), res.Setup.DataSize())
	}
	f.stats.Updated[gfx.TextureType]++
	return nil
}

func (f *Factory) destroy(t gfx.ResourceType, native gfx.Native) {
	f.stats.Destroyed[t]++
	obj, ok := native.(*Object)
	if !ok {
		return
	}
	f.releases.Push(func() {
		f.stats.Freed[obj.Type]++
		f.stats.Bytes -= obj.Size
	})
}

// DestroyMesh implements gfx.Factory
func (f *Factory) DestroyMesh(res *gfx.Mesh) {
	f.destroy(gfx.MeshType, res.Native)
	res.Native = nil
}

// DestroyShader implements gfx.Factory
func (f *Factory) DestroyShader(res *gfx.Shader) {
	f.destroy(gfx.ShaderType, res.Native)
	res.Native = nil
}

// DestroyTexture implements gfx.Factory
func (f *Factory) DestroyTexture(res *gfx.Texture) {
	f.destroy(gfx.TextureType, res.Native)
	res.Native = nil
}

// DestroyPipeline implements gfx.Factory
func (f *Factory) DestroyPipeline(res *gfx.Pipeline) {
	f.destroy(gfx.PipelineType, res.Native)
	res.Native = nil
}

// DestroyRenderPass implements gfx.Factory
func (f *Factory) DestroyRenderPass(res *gfx.RenderPass) {
	f.destroy(gfx.RenderPassType, res.Native)
	res.Native = nil
}

// GarbageCollect frees objects destroyed more than the in-flight frame
// count ago
func (f *Factory) GarbageCollect() {
	if n := f.releases.Collect(); n > 0 {
		f.log.WithField("freed", n).Debug("native objects freed")
	}
}
