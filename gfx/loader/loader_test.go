// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package loader_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/gobuffalo/packd"
	"github.com/sirupsen/logrus/hooks/test"
	"golang.org/x/image/bmp"

	"github.com/koru3d/koru/backend/null"
	"github.com/koru3d/koru/core"
	"github.com/koru3d/koru/gfx"
	"github.com/koru3d/koru/gfx/loader"
	"github.com/koru3d/koru/model"
	"github.com/koru3d/koru/resource"
)

const triangle = `<?xml version="1.0" encoding="utf-8"?>
<COLLADA xmlns="http://www.collada.org/2005/11/COLLADASchema" version="1.4.1">
  <library_geometries>
    <geometry id="Tri-mesh" name="Tri">
      <mesh>
        <source id="Tri-mesh-positions">
          <float_array id="Tri-mesh-positions-array" count="9">0 0 0 1 0 0 0 1 0</float_array>
        </source>
        <vertices id="Tri-mesh-vertices">
          <input semantic="POSITION" source="#Tri-mesh-positions"/>
        </vertices>
        <triangles count="1">
          <input semantic="VERTEX" source="#Tri-mesh-vertices" offset="0"/>
          <p>0 1 2</p>
        </triangles>
      </mesh>
    </geometry>
  </library_geometries>
</COLLADA>`

// gatedSource blocks Find until the gate is closed
type gatedSource struct {
	loader.Source
	gate chan struct{}
}

func (s gatedSource) Find(name string) ([]byte, error) {
	<-s.gate
	return s.Source.Find(name)
}

func checkerboard(c *qt.C, encode func(*bytes.Buffer, image.Image) error) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	for x := 0; x < 4; x++ {
		for y := 0; y < 2; y++ {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.NRGBA{R: 255, A: 255})
			}
		}
	}
	var buf bytes.Buffer
	c.Assert(encode(&buf, img), qt.IsNil)
	return buf.Bytes()
}

func newBox(c *qt.C) *packd.MemoryBox {
	box := packd.NewMemoryBox()
	c.Assert(box.AddString("meshes/tri.dae", triangle), qt.IsNil)
	c.Assert(box.AddString("meshes/broken.dae", "<COLLADA><library_geometries/></COLLADA>"), qt.IsNil)
	c.Assert(box.AddBytes("textures/board.png", checkerboard(c, func(b *bytes.Buffer, img image.Image) error {
		return png.Encode(b, img)
	})), qt.IsNil)
	c.Assert(box.AddBytes("textures/board.bmp", checkerboard(c, func(b *bytes.Buffer, img image.Image) error {
		return bmp.Encode(b, img)
	})), qt.IsNil)
	c.Assert(box.AddString("textures/garbage.png", "not an image"), qt.IsNil)
	return box
}

func newGfx(c *qt.C) (*gfx.Gfx, *null.Factory, *test.Hook) {
	logger, hook := test.NewNullLogger()
	cfg := core.DefaultConfiguration().Resource
	factory := null.New(cfg, logger)
	return gfx.New(cfg, factory, logger), factory, hook
}

// commitUntilIdle commits frames until every loader is done
func commitUntilIdle(c *qt.C, g *gfx.Gfx) {
	deadline := time.Now().Add(5 * time.Second)
	for g.NumPendingLoaders() > 0 {
		if time.Now().After(deadline) {
			c.Fatalf("%d loaders still pending", g.NumPendingLoaders())
		}
		g.CommitFrame()
		time.Sleep(time.Millisecond)
	}
}

func TestMeshLoader(t *testing.T) {
	c := qt.New(t)
	g, factory, _ := newGfx(c)
	box := newBox(c)

	l := loader.NewMeshLoader(g.ResourceContainer, box, g.Locator("meshes/tri.dae"), nil)
	id := g.Load(l)
	c.Assert(id, qt.Equals, l.Id())
	c.Assert(g.QueryResourceInfo(id).State, qt.Equals, resource.Pending)
	c.Assert(l.RefCount(), qt.Equals, 1)

	again := loader.NewMeshLoader(g.ResourceContainer, box, g.Locator("meshes/tri.dae"), nil)
	c.Assert(g.Load(again), qt.Equals, id)
	c.Assert(g.NumPendingLoaders(), qt.Equals, 1)

	commitUntilIdle(c, g)
	c.Assert(g.QueryResourceInfo(id).State, qt.Equals, resource.Valid)
	c.Assert(l.Continue(), qt.Equals, resource.Valid)
	c.Assert(l.Err(), qt.IsNil)

	mesh := g.LookupMesh(id)
	c.Assert(mesh.Setup.NumVertices, qt.Equals, 3)
	c.Assert(mesh.Setup.Layout, qt.DeepEquals, model.Layout())
	c.Assert(factory.Stats().Bytes, qt.Equals, 3*model.Stride)
	g.Discard()
}

func TestTextureLoader(t *testing.T) {
	c := qt.New(t)
	g, _, _ := newGfx(c)
	box := newBox(c)

	var ids []resource.Id
	for _, name := range []string{"textures/board.png", "textures/board.bmp"} {
		ids = append(ids, g.Load(loader.NewTextureLoader(g.ResourceContainer, box, g.Locator(name), nil)))
	}
	commitUntilIdle(c, g)

	for _, id := range ids {
		c.Assert(g.QueryResourceInfo(id).State, qt.Equals, resource.Valid)
		tex := g.LookupTexture(id)
		c.Assert(tex.Setup.Width, qt.Equals, 4)
		c.Assert(tex.Setup.Height, qt.Equals, 2)
		c.Assert(tex.Setup.Format, qt.Equals, gfx.RGBA8)
		c.Assert(tex.Native.(*null.Object).Size, qt.Equals, 4*2*4)
	}
	g.Discard()
}

func TestLoaderFailures(t *testing.T) {
	c := qt.New(t)
	g, factory, _ := newGfx(c)
	box := newBox(c)
	logger, hook := test.NewNullLogger()

	missing := loader.NewMeshLoader(g.ResourceContainer, box, g.Locator("meshes/none.dae"), logger)
	empty := loader.NewMeshLoader(g.ResourceContainer, box, g.Locator("meshes/broken.dae"), logger)
	garbage := loader.NewTextureLoader(g.ResourceContainer, box, g.Locator("textures/garbage.png"), logger)
	for _, l := range []resource.Loader{missing, empty, garbage} {
		g.Load(l)
	}
	commitUntilIdle(c, g)

	c.Assert(g.QueryResourceInfo(missing.Id()).State, qt.Equals, resource.Failed)
	c.Assert(missing.Err(), qt.ErrorMatches, `find "meshes/none.dae": .*`)
	c.Assert(g.QueryResourceInfo(empty.Id()).State, qt.Equals, resource.Failed)
	c.Assert(empty.Err(), qt.ErrorIs, model.ErrNoGeometry)
	c.Assert(g.QueryResourceInfo(garbage.Id()).State, qt.Equals, resource.Failed)
	c.Assert(garbage.Err(), qt.ErrorMatches, "decode image: .*")
	c.Assert(factory.Stats().Created[gfx.MeshType], qt.Equals, 0)
	c.Assert(hook.AllEntries(), qt.HasLen, 3)
	c.Assert(hook.LastEntry().Message, qt.Equals, "loading failed")
	g.Discard()
}

func TestDestroyedWhileLoading(t *testing.T) {
	c := qt.New(t)
	g, factory, hook := newGfx(c)
	source := gatedSource{Source: newBox(c), gate: make(chan struct{})}

	label := g.PushLabel()
	l := loader.NewMeshLoader(g.ResourceContainer, source, g.Locator("meshes/tri.dae"), nil)
	id := g.Load(l)
	g.PopLabel()

	g.CommitFrame()
	c.Assert(g.QueryResourceInfo(id).State, qt.Equals, resource.Pending)
	g.Destroy(label)
	c.Assert(g.QueryResourceInfo(id).State, qt.Equals, resource.InvalidState)

	close(source.gate)
	commitUntilIdle(c, g)
	c.Assert(l.Continue(), qt.Equals, resource.InvalidState)
	c.Assert(factory.Stats().Created[gfx.MeshType], qt.Equals, 0)

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Message == "gfx.ResourceContainer.InitAsyncMesh(): resource destroyed before it was loaded" {
			warned = true
		}
	}
	c.Assert(warned, qt.IsTrue)
	g.Discard()
}

func TestDiscardCancelsLoaders(t *testing.T) {
	c := qt.New(t)
	g, _, _ := newGfx(c)
	source := gatedSource{Source: newBox(c), gate: make(chan struct{})}
	defer close(source.gate)

	l := loader.NewTextureLoader(g.ResourceContainer, source, g.Locator("textures/board.png"), nil)
	l.AddRef()
	g.Load(l)
	c.Assert(l.RefCount(), qt.Equals, 2)

	g.Discard()
	c.Assert(l.RefCount(), qt.Equals, 1)
	c.Assert(l.Continue(), qt.Equals, resource.Failed)
	c.Assert(l.Err(), qt.ErrorIs, loader.ErrCancelled)
	c.Assert(l.Release(), qt.IsTrue)
}

func TestLoaderPreconditions(t *testing.T) {
	c := qt.New(t)
	g, _, _ := newGfx(c)
	box := newBox(c)

	c.Assert(func() {
		loader.NewMeshLoader(g.ResourceContainer, box, resource.NonShared(), nil)
	}, qt.PanicMatches, "loader: locator .* has no location")
	c.Assert(func() {
		loader.NewMeshLoader(g.ResourceContainer, nil, g.Locator("a"), nil)
	}, qt.PanicMatches, "loader: container and source are required")

	l := loader.NewMeshLoader(g.ResourceContainer, box, g.Locator("meshes/tri.dae"), nil)
	g.Load(l)
	c.Assert(func() { l.Start() }, qt.PanicMatches, "loader.Start\\(\\): .* already started")
	commitUntilIdle(c, g)
	g.Discard()
}
