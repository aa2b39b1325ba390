// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx_test

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/koru3d/koru/core"
	"github.com/koru3d/koru/gfx"
	"github.com/koru3d/koru/resource"
)

var triangleLayout = gfx.VertexLayout{
	{Name: "position", Format: gfx.Float3},
	{Name: "color", Format: gfx.UByte4N},
}

func smallConfig() core.ResourceConfiguration {
	cfg := core.DefaultConfiguration().Resource
	cfg.MeshPoolSize = 4
	cfg.TexturePoolSize = 4
	cfg.LabelStackCapacity = 8
	cfg.RegistryCapacity = 4
	return cfg
}

func newContext(c *qt.C) (*gfx.Gfx, *recordingFactory, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	factory := newRecordingFactory()
	g := gfx.New(smallConfig(), factory, logger)
	return g, factory, hook
}

func meshSetup(g *gfx.Gfx, name string) gfx.MeshSetup {
	setup := gfx.MeshFromData(triangleLayout, 3, gfx.IndexNone, 0)
	setup.Locator = g.Locator(name)
	return setup
}

func TestCubeScenario(t *testing.T) {
	c := qt.New(t)
	g, factory, _ := newContext(c)

	l1 := g.PushLabel()
	first := g.CreateMesh(meshSetup(g, "cube"), make([]byte, 48))
	second := g.CreateMesh(meshSetup(g, "cube"), nil)
	c.Assert(g.PopLabel(), qt.Equals, l1)
	c.Assert(second, qt.Equals, first)
	c.Assert(factory.inits[gfx.MeshType], qt.Equals, 1)
	c.Assert(g.QueryResourceInfo(first).State, qt.Equals, resource.Valid)

	g.DestroyDeferred(l1)
	c.Assert(g.Registry.Lookup(g.Locator("cube")).IsValid(), qt.IsFalse)
	c.Assert(factory.destroyed, qt.HasLen, 0)

	g.GarbageCollect()
	c.Assert(factory.destroyed, qt.DeepEquals, []resource.Id{first})
	c.Assert(g.QueryResourceInfo(first).State, qt.Equals, resource.InvalidState)

	g.Discard()
	c.Assert(factory.destroyed, qt.HasLen, 1)
	c.Assert(factory.discarded, qt.IsTrue)
}

func TestDestroyDeferredVisibilitySplit(t *testing.T) {
	c := qt.New(t)
	g, factory, _ := newContext(c)

	scene := g.PushLabel()
	mesh := g.CreateMesh(meshSetup(g, "terrain"), make([]byte, 48))
	tex := g.CreateTexture(gfx.TextureFromPixelData(2, 2, gfx.RGBA8), make([]byte, 16))
	g.PopLabel()
	keep := g.CreateMesh(meshSetup(g, "player"), make([]byte, 48))

	g.DestroyDeferred(scene)
	c.Assert(g.Registry.Contains(mesh), qt.IsFalse)
	c.Assert(g.Registry.Contains(tex), qt.IsFalse)
	c.Assert(g.NumDeferredDestroys(), qt.Equals, 2)
	// still alive for the frame in flight
	c.Assert(g.LookupMesh(mesh), qt.Not(qt.IsNil))
	c.Assert(factory.destroyed, qt.HasLen, 0)

	g.CommitFrame()
	c.Assert(factory.destroyed, qt.HasLen, 2)
	c.Assert(factory.collected, qt.Equals, 1)
	c.Assert(g.LookupMesh(mesh), qt.IsNil)
	c.Assert(g.LookupMesh(keep), qt.Not(qt.IsNil))
	c.Assert(g.QueryFreeSlots(gfx.MeshType), qt.Equals, 3)
	g.Discard()
}

func TestImmediateDestroy(t *testing.T) {
	c := qt.New(t)
	g, factory, _ := newContext(c)
	label := g.PushLabel()
	id := g.CreateMesh(meshSetup(g, "rock"), make([]byte, 48))
	g.PopLabel()

	g.Destroy(label)
	c.Assert(factory.destroyed, qt.DeepEquals, []resource.Id{id})
	c.Assert(g.QueryResourceInfo(id).State, qt.Equals, resource.InvalidState)
	g.Discard()
}

func TestCreateTerminalStates(t *testing.T) {
	c := qt.New(t)
	g, factory, _ := newContext(c)
	factory.results[gfx.ShaderType] = resource.Failed

	shader := g.CreateShader(gfx.ShaderFromSource(g.Locator("broken"), nil, nil))
	info := g.QueryResourceInfo(shader)
	c.Assert(info.State, qt.Equals, resource.Failed)
	c.Assert(g.LookupShader(shader), qt.IsNil)
	c.Assert(g.Registry.Contains(shader), qt.IsTrue)

	pipeline := g.CreatePipeline(gfx.PipelineFromLayoutAndShader(triangleLayout, shader))
	c.Assert(g.QueryResourceInfo(pipeline).State, qt.Equals, resource.Failed)
	poolInfo := g.QueryPoolInfo(gfx.PipelineType)
	c.Assert(poolInfo.NumSlotsByState[resource.Failed], qt.Equals, 1)

	// failed resources are destroyed like valid ones
	g.Destroy(resource.LabelAll)
	c.Assert(factory.destroyed, qt.HasLen, 2)

	factory.results[gfx.MeshType] = resource.Pending
	c.Assert(func() { g.CreateMesh(meshSetup(g, "odd"), nil) }, qt.PanicMatches, ".*non-terminal state Pending")
}

func TestCreateDispatch(t *testing.T) {
	c := qt.New(t)
	g, factory, _ := newContext(c)

	color := g.Create(gfx.RenderTarget(64, 64, gfx.RGBA8), nil)
	depth := g.Create(gfx.RenderTarget(64, 64, gfx.DepthStencil), nil)
	pass := g.Create(gfx.PassFrom([]resource.Id{color}, depth), nil)
	shader := g.Create(gfx.ShaderFromSource(g.Locator("shd"), []byte{1}, []byte{2}), nil)
	pipeline := g.Create(gfx.PipelineFromLayoutAndShader(triangleLayout, shader), nil)

	c.Assert(gfx.ResourceType(pass.Type), qt.Equals, gfx.RenderPassType)
	c.Assert(gfx.ResourceType(pipeline.Type), qt.Equals, gfx.PipelineType)
	c.Assert(g.QueryResourceInfo(pipeline).State, qt.Equals, resource.Valid)
	c.Assert(factory.inits[gfx.TextureType], qt.Equals, 2)
	c.Assert(g.LookupRenderPass(pass).Setup.DepthStencil, qt.Equals, depth)
	g.Discard()
}

func TestAsyncRaceWithDestroy(t *testing.T) {
	c := qt.New(t)
	g, factory, hook := newContext(c)

	label := g.PushLabel()
	mesh := g.PrepareAsyncMesh(gfx.MeshAsync(g.Locator("streamed")))
	tex := g.PrepareAsyncTexture(gfx.TextureAsync(g.Locator("streamed.png")))
	g.PopLabel()
	c.Assert(g.QueryResourceInfo(mesh).State, qt.Equals, resource.Pending)
	c.Assert(g.Registry.Lookup(g.Locator("streamed")), qt.Equals, mesh)

	g.Destroy(label)
	// pending resources own no backend objects
	c.Assert(factory.destroyed, qt.HasLen, 0)

	other := g.CreateMesh(meshSetup(g, "other"), make([]byte, 48))

	hook.Reset()
	state := g.InitAsyncMesh(mesh, meshSetup(g, "streamed"), make([]byte, 48))
	c.Assert(state, qt.Equals, resource.InvalidState)
	c.Assert(factory.inits[gfx.MeshType], qt.Equals, 1)
	c.Assert(hook.LastEntry().Level, qt.Equals, logrus.WarnLevel)
	c.Assert(hook.LastEntry().Message, qt.Matches, ".*InitAsyncMesh.*destroyed before it was loaded")

	c.Assert(g.FailedAsync(tex), qt.Equals, resource.InvalidState)
	c.Assert(hook.LastEntry().Message, qt.Matches, ".*FailedAsync.*destroyed before it was loaded")
	c.Assert(g.QueryResourceInfo(other).State, qt.Equals, resource.Valid)
	g.Discard()
}

func TestAsyncInitAndFail(t *testing.T) {
	c := qt.New(t)
	g, _, _ := newContext(c)

	mesh := g.PrepareAsyncMesh(gfx.MeshAsync(g.Locator("a")))
	tex := g.PrepareAsyncTexture(gfx.TextureAsync(g.Locator("b")))
	c.Assert(g.LookupMesh(mesh), qt.IsNil)

	c.Assert(g.InitAsyncMesh(mesh, meshSetup(g, "a"), make([]byte, 48)), qt.Equals, resource.Valid)
	c.Assert(g.LookupMesh(mesh).Native, qt.Equals, 48)
	c.Assert(g.FailedAsync(tex), qt.Equals, resource.Failed)
	c.Assert(g.QueryResourceInfo(tex).State, qt.Equals, resource.Failed)

	shader := g.CreateShader(gfx.ShaderFromSource(g.Locator("s"), nil, nil))
	c.Assert(func() { g.FailedAsync(shader) }, qt.PanicMatches, ".*can't be created asynchronously")
	c.Assert(func() { g.InitAsyncMesh(tex, gfx.MeshSetup{}, nil) }, qt.PanicMatches, ".*id of type Texture, want Mesh")
	g.Discard()
}

func TestQueryStateAge(t *testing.T) {
	c := qt.New(t)
	g, _, _ := newContext(c)
	id := g.CreateMesh(meshSetup(g, "m"), nil)
	g.CommitFrame()
	g.CommitFrame()
	c.Assert(g.QueryResourceInfo(id), qt.Equals, resource.Info{State: resource.Valid, StateAge: 2})
	c.Assert(g.Frame(), qt.Equals, 2)
	g.Discard()
}

func TestDiscardRequiresEmptyLabelStack(t *testing.T) {
	c := qt.New(t)
	g, _, _ := newContext(c)
	g.PushLabel()
	c.Assert(func() { g.Discard() }, qt.PanicMatches, ".*label stack not empty")
	g.PopLabel()
	g.Discard()
	c.Assert(g.IsValid(), qt.IsFalse)
}

func TestInvalidIdMatchesNoSlot(t *testing.T) {
	c := qt.New(t)
	g, factory, hook := newContext(c)
	invalid := resource.InvalidId()

	c.Assert(g.QueryResourceInfo(invalid).State, qt.Equals, resource.InvalidState)
	c.Assert(g.LookupMesh(invalid), qt.IsNil)

	hook.Reset()
	c.Assert(g.InitAsyncMesh(invalid, meshSetup(g, "nothing"), make([]byte, 48)), qt.Equals, resource.InvalidState)
	c.Assert(factory.inits[gfx.MeshType], qt.Equals, 0)
	c.Assert(hook.LastEntry().Level, qt.Equals, logrus.WarnLevel)
	c.Assert(g.FailedAsync(invalid), qt.Equals, resource.InvalidState)

	// every slot is still free and allocates cleanly
	for i := 0; i < smallConfig().MeshPoolSize; i++ {
		id := g.CreateMesh(gfx.MeshFromData(triangleLayout, 3, gfx.IndexNone, 0), make([]byte, 48))
		c.Assert(g.QueryResourceInfo(id).State, qt.Equals, resource.Valid)
	}
	c.Assert(g.QueryFreeSlots(gfx.MeshType), qt.Equals, 0)
	g.Discard()
}

func TestUpdateKeepsState(t *testing.T) {
	c := qt.New(t)
	g, factory, _ := newContext(c)

	setup := gfx.MeshFromData(triangleLayout, 3, gfx.Index16, 3)
	setup.Usage = gfx.Stream
	mesh := g.CreateMesh(setup, nil)
	texSetup := gfx.TextureFromPixelData(2, 2, gfx.RGBA8)
	texSetup.Usage = gfx.Dynamic
	tex := g.CreateTexture(texSetup, nil)
	g.CommitFrame()
	g.CommitFrame()

	c.Assert(g.UpdateVertices(mesh, make([]byte, 48)), qt.IsNil)
	c.Assert(g.UpdateIndices(mesh, make([]byte, 6)), qt.IsNil)
	c.Assert(g.UpdateTexture(tex, make([]byte, 16)), qt.IsNil)
	c.Assert(factory.updates, qt.DeepEquals, []string{"vertices", "indices", "texture"})
	c.Assert(g.QueryResourceInfo(mesh), qt.Equals, resource.Info{State: resource.Valid, StateAge: 2})
	c.Assert(g.QueryResourceInfo(tex), qt.Equals, resource.Info{State: resource.Valid, StateAge: 2})

	err := g.UpdateVertices(mesh, make([]byte, 49))
	c.Assert(err, qt.ErrorIs, errTooLarge)
	c.Assert(err, qt.ErrorMatches, "gfx.ResourceContainer.UpdateVertices\\(\\): data does not fit")
	c.Assert(g.QueryResourceInfo(mesh).State, qt.Equals, resource.Valid)
	g.Discard()
}

func TestUpdateRejectsUnusableResources(t *testing.T) {
	c := qt.New(t)
	g, factory, _ := newContext(c)

	static := g.CreateMesh(meshSetup(g, "static"), make([]byte, 48))
	c.Assert(g.UpdateVertices(static, make([]byte, 48)), qt.ErrorIs, gfx.ErrImmutable)
	staticTex := g.CreateTexture(gfx.TextureFromPixelData(1, 1, gfx.RGBA8), make([]byte, 4))
	c.Assert(g.UpdateTexture(staticTex, make([]byte, 4)), qt.ErrorIs, gfx.ErrImmutable)

	pending := g.PrepareAsyncMesh(gfx.MeshAsync(g.Locator("loading")))
	c.Assert(g.UpdateIndices(pending, nil), qt.ErrorIs, gfx.ErrNotValid)
	c.Assert(g.UpdateVertices(resource.InvalidId(), nil), qt.ErrorIs, gfx.ErrNotValid)
	c.Assert(g.UpdateTexture(resource.InvalidId(), nil), qt.ErrorIs, gfx.ErrNotValid)
	c.Assert(func() { g.UpdateTexture(static, nil) }, qt.PanicMatches, ".*id of type Mesh, want Texture")
	c.Assert(factory.updates, qt.HasLen, 0)
	g.Discard()
}
