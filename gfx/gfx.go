// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package gfx manages GPU resources independent of the backend that
// creates them. A Gfx context owns the resource container, the run loop
// that drives it and the interner for resource names.
package gfx

import (
	"github.com/sirupsen/logrus"

	"github.com/koru3d/koru/core"
	"github.com/koru3d/koru/core/str"
	"github.com/koru3d/koru/resource"
)

// Gfx is the graphics context. The embedded container exposes the
// resource API, CommitFrame drives it once per frame.
type Gfx struct {
	*ResourceContainer

	log      logrus.FieldLogger
	runLoop  *core.RunLoop
	interner *str.Interner
	frame    int
}

// New creates a context that creates resources with factory
func New(cfg core.ResourceConfiguration, factory Factory, logger logrus.FieldLogger) *Gfx {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	g := &Gfx{
		ResourceContainer: &ResourceContainer{},
		log:               logger,
		runLoop:           &core.RunLoop{},
		interner:          str.NewInterner(),
	}
	g.ResourceContainer.Setup(cfg, factory, g.runLoop, logger)
	return g
}

// Locator returns a shared locator for name
func (g *Gfx) Locator(name string) resource.Locator {
	return resource.NewLocator(g.interner.Intern(name))
}

// Interner returns the interner resource names are stored in
func (g *Gfx) Interner() *str.Interner {
	return g.interner
}

// RunLoop returns the loop CommitFrame runs, other per frame work can be
// added to it
func (g *Gfx) RunLoop() *core.RunLoop {
	return g.runLoop
}

// CommitFrame ends the frame: it runs the run loop, which polls the
// loaders, and frees deferred destroys
func (g *Gfx) CommitFrame() {
	g.runLoop.Run()
	g.ResourceContainer.GarbageCollect()
	g.frame++
}

// Frame returns the number of committed frames
func (g *Gfx) Frame() int {
	return g.frame
}

// Discard tears the context down
func (g *Gfx) Discard() {
	g.ResourceContainer.Discard()
	g.log.WithField("frames", g.frame).Info("gfx discarded")
}
