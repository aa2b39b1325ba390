// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package null_test

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/koru3d/koru/backend/null"
	"github.com/koru3d/koru/core"
	"github.com/koru3d/koru/gfx"
	"github.com/koru3d/koru/resource"
)

var layout = gfx.VertexLayout{
	{Name: "position", Format: gfx.Float3},
}

func newGfx(c *qt.C) (*gfx.Gfx, *null.Factory, *test.Hook) {
	logger, hook := test.NewNullLogger()
	cfg := core.DefaultConfiguration().Resource
	cfg.MaxInflightFrames = 2
	factory := null.New(cfg, logger)
	return gfx.New(cfg, factory, logger), factory, hook
}

func TestMeshDataValidation(t *testing.T) {
	c := qt.New(t)
	g, factory, hook := newGfx(c)

	ok := g.CreateMesh(gfx.MeshFromData(layout, 3, gfx.IndexNone, 0), make([]byte, 36))
	short := g.CreateMesh(gfx.MeshFromData(layout, 3, gfx.IndexNone, 0), make([]byte, 35))
	indexed := g.CreateMesh(gfx.MeshFromData(layout, 3, gfx.Index16, 3), make([]byte, 42))
	noIndexType := g.CreateMesh(gfx.MeshFromData(layout, 3, gfx.IndexNone, 3), make([]byte, 64))
	empty := g.CreateMesh(gfx.MeshFromData(layout, 0, gfx.IndexNone, 0), nil)

	dynamic := gfx.MeshFromData(layout, 16, gfx.IndexNone, 0)
	dynamic.Usage = gfx.Dynamic
	streamed := g.CreateMesh(dynamic, nil)

	c.Assert(g.QueryResourceInfo(ok).State, qt.Equals, resource.Valid)
	c.Assert(g.QueryResourceInfo(short).State, qt.Equals, resource.Failed)
	c.Assert(g.QueryResourceInfo(indexed).State, qt.Equals, resource.Valid)
	c.Assert(g.QueryResourceInfo(noIndexType).State, qt.Equals, resource.Failed)
	c.Assert(g.QueryResourceInfo(empty).State, qt.Equals, resource.Failed)
	c.Assert(g.QueryResourceInfo(streamed).State, qt.Equals, resource.Valid)

	stats := factory.Stats()
	c.Assert(stats.Created[gfx.MeshType], qt.Equals, 3)
	c.Assert(stats.Failed[gfx.MeshType], qt.Equals, 3)
	c.Assert(stats.Bytes, qt.Equals, 36+42+16*12)
	c.Assert(hook.LastEntry().Message, qt.Equals, "mesh without vertices")

	obj := g.LookupMesh(indexed).Native.(*null.Object)
	c.Assert(obj.Id, qt.Equals, indexed)
	c.Assert(obj.Size, qt.Equals, 42)
	g.Discard()
}

func TestShaderAndPipeline(t *testing.T) {
	c := qt.New(t)
	g, factory, _ := newGfx(c)

	shader := g.CreateShader(gfx.ShaderFromSource(g.Locator("basic"), []byte("vs"), []byte("fs")))
	broken := g.CreateShader(gfx.ShaderFromSource(g.Locator("broken"), []byte("vs"), nil))
	c.Assert(g.QueryResourceInfo(shader).State, qt.Equals, resource.Valid)
	c.Assert(g.QueryResourceInfo(broken).State, qt.Equals, resource.Failed)

	pip := g.CreatePipeline(gfx.PipelineFromLayoutAndShader(layout, shader))
	failed := g.CreatePipeline(gfx.PipelineFromLayoutAndShader(layout, broken))
	noLayout := g.CreatePipeline(gfx.PipelineFromLayoutAndShader(nil, shader))
	c.Assert(g.QueryResourceInfo(pip).State, qt.Equals, resource.Valid)
	c.Assert(g.QueryResourceInfo(failed).State, qt.Equals, resource.Failed)
	c.Assert(g.QueryResourceInfo(noLayout).State, qt.Equals, resource.Failed)
	c.Assert(factory.Stats().Failed[gfx.PipelineType], qt.Equals, 2)
	g.Discard()
}

func TestRenderPassAttachments(t *testing.T) {
	c := qt.New(t)
	g, _, _ := newGfx(c)

	color := g.CreateTexture(gfx.RenderTarget(64, 64, gfx.RGBA8), nil)
	depth := g.CreateTexture(gfx.RenderTarget(64, 64, gfx.Depth), nil)
	plain := g.CreateTexture(gfx.TextureFromPixelData(2, 2, gfx.RGBA8), make([]byte, 16))
	missing := g.CreateTexture(gfx.TextureFromPixelData(2, 2, gfx.RGBA8), nil)
	c.Assert(g.QueryResourceInfo(plain).State, qt.Equals, resource.Valid)
	c.Assert(g.QueryResourceInfo(missing).State, qt.Equals, resource.Failed)

	pass := g.CreateRenderPass(gfx.PassFrom([]resource.Id{color}, depth))
	c.Assert(g.QueryResourceInfo(pass).State, qt.Equals, resource.Valid)

	for _, setup := range []gfx.PassSetup{
		gfx.PassFrom(nil, resource.InvalidId()),
		gfx.PassFrom([]resource.Id{plain}, resource.InvalidId()),
		gfx.PassFrom([]resource.Id{depth}, resource.InvalidId()),
		gfx.PassFrom([]resource.Id{color}, color),
		gfx.PassFrom([]resource.Id{missing}, resource.InvalidId()),
	} {
		id := g.CreateRenderPass(setup)
		c.Assert(g.QueryResourceInfo(id).State, qt.Equals, resource.Failed)
	}
	g.Discard()
}

func TestDelayedRelease(t *testing.T) {
	c := qt.New(t)
	g, factory, _ := newGfx(c)

	label := g.PushLabel()
	g.CreateTexture(gfx.TextureFromPixelData(2, 2, gfx.RGBA8), make([]byte, 16))
	g.CreateShader(gfx.ShaderFromSource(g.Locator("s"), []byte("v"), []byte("f")))
	g.PopLabel()
	c.Assert(factory.Stats().Live(), qt.Equals, 2)

	g.Destroy(label)
	c.Assert(factory.Stats().Destroyed[gfx.TextureType], qt.Equals, 1)
	c.Assert(factory.PendingReleases(), qt.Equals, 2)

	// frees happen once the in-flight frames have retired
	g.CommitFrame()
	g.CommitFrame()
	c.Assert(factory.Stats().Live(), qt.Equals, 2)
	g.CommitFrame()
	c.Assert(factory.Stats().Live(), qt.Equals, 0)
	c.Assert(factory.Stats().Bytes, qt.Equals, 0)
	c.Assert(factory.PendingReleases(), qt.Equals, 0)
	g.Discard()
}

func TestDiscardFlushes(t *testing.T) {
	c := qt.New(t)
	g, factory, hook := newGfx(c)
	g.CreateTexture(gfx.TextureFromPixelData(1, 1, gfx.R8), []byte{0xff})
	g.CreateMesh(gfx.MeshFromData(layout, 1, gfx.IndexNone, 0), make([]byte, 12))

	g.Discard()
	stats := factory.Stats()
	c.Assert(stats.Live(), qt.Equals, 0)
	c.Assert(stats.Freed[gfx.MeshType], qt.Equals, 1)
	c.Assert(stats.Freed[gfx.TextureType], qt.Equals, 1)
	for _, e := range hook.AllEntries() {
		c.Assert(e.Message, qt.Not(qt.Equals), "objects leaked")
	}
	c.Assert(func() { factory.Discard() }, qt.PanicMatches, ".*not set up")
}

func TestStreamingUpdates(t *testing.T) {
	c := qt.New(t)
	g, factory, _ := newGfx(c)

	setup := gfx.MeshFromData(layout, 4, gfx.Index16, 6)
	setup.Usage = gfx.Dynamic
	mesh := g.CreateMesh(setup, nil)
	texSetup := gfx.TextureFromPixelData(4, 4, gfx.R8)
	texSetup.Usage = gfx.Stream
	tex := g.CreateTexture(texSetup, nil)
	targetSetup := gfx.RenderTarget(4, 4, gfx.RGBA8)
	targetSetup.Usage = gfx.Dynamic
	target := g.CreateTexture(targetSetup, nil)
	g.CommitFrame()

	c.Assert(g.UpdateVertices(mesh, make([]byte, 24)), qt.IsNil)
	c.Assert(g.UpdateVertices(mesh, make([]byte, 48)), qt.IsNil)
	c.Assert(g.UpdateIndices(mesh, make([]byte, 12)), qt.IsNil)
	c.Assert(g.UpdateTexture(tex, make([]byte, 16)), qt.IsNil)

	c.Assert(g.UpdateVertices(mesh, make([]byte, 49)), qt.ErrorMatches, ".*49 bytes for 48 bytes of vertices")
	c.Assert(g.UpdateIndices(mesh, make([]byte, 14)), qt.ErrorMatches, ".*14 bytes for 12 bytes of indices")
	c.Assert(g.UpdateTexture(tex, make([]byte, 15)), qt.ErrorMatches, ".*15 bytes for 16 bytes of pixels")
	c.Assert(g.UpdateTexture(target, make([]byte, 64)), qt.ErrorMatches, ".*render targets can't be updated")

	stats := factory.Stats()
	c.Assert(stats.Updated[gfx.MeshType], qt.Equals, 3)
	c.Assert(stats.Updated[gfx.TextureType], qt.Equals, 1)
	c.Assert(g.QueryResourceInfo(mesh), qt.Equals, resource.Info{State: resource.Valid, StateAge: 1})
	c.Assert(g.QueryResourceInfo(tex), qt.Equals, resource.Info{State: resource.Valid, StateAge: 1})
	g.Discard()
}

func TestUnindexedMeshHasNoIndexUpdates(t *testing.T) {
	c := qt.New(t)
	g, _, _ := newGfx(c)
	setup := gfx.MeshFromData(layout, 3, gfx.IndexNone, 0)
	setup.Usage = gfx.Stream
	mesh := g.CreateMesh(setup, make([]byte, 36))
	c.Assert(g.UpdateIndices(mesh, make([]byte, 2)), qt.ErrorMatches, ".*mesh has no indices")
	g.Discard()
}
