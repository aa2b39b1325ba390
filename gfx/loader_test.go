// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/koru3d/koru/core/refcount"
	"github.com/koru3d/koru/gfx"
	"github.com/koru3d/koru/resource"
)

// scriptedLoader finishes after a fixed number of Continue calls
type scriptedLoader struct {
	refcount.RefCounted
	g         *gfx.Gfx
	locator   resource.Locator
	id        resource.Id
	polls     int
	fail      bool
	cancelled bool
	destroyed bool
	order     *[]string
}

func newScriptedLoader(g *gfx.Gfx, name string, polls int, order *[]string) *scriptedLoader {
	l := &scriptedLoader{g: g, locator: g.Locator(name), polls: polls, order: order}
	l.Init(l, false)
	return l
}

func (l *scriptedLoader) Destroy()                  { l.destroyed = true }
func (l *scriptedLoader) Locator() resource.Locator { return l.locator }
func (l *scriptedLoader) Cancel()                   { l.cancelled = true }

func (l *scriptedLoader) Start() resource.Id {
	l.id = l.g.PrepareAsyncMesh(gfx.MeshAsync(l.locator))
	return l.id
}

func (l *scriptedLoader) Continue() resource.State {
	*l.order = append(*l.order, l.locator.Location().String())
	l.polls--
	if l.polls > 0 {
		return resource.Pending
	}
	if l.fail {
		return l.g.FailedAsync(l.id)
	}
	setup := gfx.MeshFromData(triangleLayout, 1, gfx.IndexNone, 0)
	setup.Locator = l.locator
	return l.g.InitAsyncMesh(l.id, setup, make([]byte, 16))
}

func TestLoadDrivesLoaders(t *testing.T) {
	c := qt.New(t)
	g, _, _ := newContext(c)
	var order []string

	quick := newScriptedLoader(g, "quick", 1, &order)
	slow := newScriptedLoader(g, "slow", 2, &order)
	broken := newScriptedLoader(g, "broken", 1, &order)
	broken.fail = true

	quickID := g.Load(quick)
	slowID := g.Load(slow)
	brokenID := g.Load(broken)
	c.Assert(g.Load(newScriptedLoader(g, "quick", 1, &order)), qt.Equals, quickID)
	c.Assert(g.NumPendingLoaders(), qt.Equals, 3)
	c.Assert(quick.RefCount(), qt.Equals, 1)

	g.CommitFrame()
	c.Assert(order, qt.DeepEquals, []string{"broken", "slow", "quick"})
	c.Assert(g.NumPendingLoaders(), qt.Equals, 1)
	c.Assert(g.QueryResourceInfo(quickID).State, qt.Equals, resource.Valid)
	c.Assert(g.QueryResourceInfo(brokenID).State, qt.Equals, resource.Failed)
	c.Assert(g.QueryResourceInfo(slowID).State, qt.Equals, resource.Pending)
	c.Assert(quick.destroyed, qt.IsTrue)
	c.Assert(broken.destroyed, qt.IsTrue)

	g.CommitFrame()
	c.Assert(g.NumPendingLoaders(), qt.Equals, 0)
	c.Assert(g.LookupMesh(slowID), qt.Not(qt.IsNil))
	c.Assert(slow.destroyed, qt.IsTrue)
	c.Assert(slow.cancelled, qt.IsFalse)
	g.Discard()
}

func TestDiscardCancelsPendingLoaders(t *testing.T) {
	c := qt.New(t)
	g, _, _ := newContext(c)
	var order []string
	loader := newScriptedLoader(g, "never", 100, &order)
	g.Load(loader)
	g.CommitFrame()

	g.Discard()
	c.Assert(loader.cancelled, qt.IsTrue)
	c.Assert(loader.destroyed, qt.IsTrue)
}

func TestLoaderOutlivesDestroy(t *testing.T) {
	c := qt.New(t)
	g, factory, hook := newContext(c)
	var order []string
	label := g.PushLabel()
	loader := newScriptedLoader(g, "gone", 1, &order)
	id := g.Load(loader)
	g.PopLabel()

	g.Destroy(label)
	g.CommitFrame()
	c.Assert(g.NumPendingLoaders(), qt.Equals, 0)
	c.Assert(g.QueryResourceInfo(id).State, qt.Equals, resource.InvalidState)
	c.Assert(factory.inits[gfx.MeshType], qt.Equals, 0)
	c.Assert(hook.LastEntry().Message, qt.Matches, ".*destroyed before it was loaded")
	g.Discard()
}
