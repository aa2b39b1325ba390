// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package loader creates meshes and textures in the background. A loader
// reads its file from a Source and decodes it on its own goroutine, the
// resource is only touched from Continue, which the container polls once
// per frame.
package loader

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/koru3d/koru/core/refcount"
	"github.com/koru3d/koru/gfx"
	"github.com/koru3d/koru/resource"
)

// ErrCancelled is reported for loaders cancelled before they finished
var ErrCancelled = errors.New("loader cancelled")

// Source finds files by name. packd.MemoryBox, packr.Box and
// kar.Archive satisfy it.
type Source interface {
	Find(name string) ([]byte, error)
}

type decoded[S any] struct {
	setup S
	data  []byte
	err   error
}

// async holds the protocol shared by all loaders, S is the setup type of
// the created resource
type async[S any] struct {
	refcount.RefCounted

	container *gfx.ResourceContainer
	source    Source
	locator   resource.Locator
	log       logrus.FieldLogger

	prepare func() resource.Id
	decode  func(raw []byte) (S, []byte, error)
	init    func(id resource.Id, setup S, data []byte) resource.State

	id      resource.Id
	state   resource.State
	err     error
	cancel  context.CancelFunc
	results chan decoded[S]
}

func (a *async[S]) setup(container *gfx.ResourceContainer, source Source, locator resource.Locator, logger logrus.FieldLogger) {
	if container == nil || source == nil {
		panic("loader: container and source are required")
	}
	if !locator.HasValidLocation() {
		panic(fmt.Sprintf("loader: locator %v has no location", locator))
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	a.container = container
	a.source = source
	a.locator = locator
	a.log = logger.WithField("locator", locator.String())
	a.state = resource.Initial
	a.Init(a, true)
}

// Locator implements resource.Loader
func (a *async[S]) Locator() resource.Locator {
	return a.locator
}

// Start reserves the resource and starts reading it
func (a *async[S]) Start() resource.Id {
	if a.state != resource.Initial {
		panic(fmt.Sprintf("loader.Start(): %v already started", a.locator))
	}
	a.id = a.prepare()
	a.state = resource.Pending
	a.results = make(chan decoded[S], 1)

	var ctx context.Context
	ctx, a.cancel = context.WithCancel(context.Background())
	go a.run(ctx, a.locator.Location().String())
	return a.id
}

func (a *async[S]) run(ctx context.Context, name string) {
	var result decoded[S]
	raw, err := a.source.Find(name)
	if err != nil {
		result.err = fmt.Errorf("find %q: %w", name, err)
	} else if ctx.Err() == nil {
		result.setup, result.data, result.err = a.decode(raw)
	}
	if ctx.Err() != nil {
		return
	}
	a.results <- result
}

// Continue finishes the resource once decoding is done, it never blocks
func (a *async[S]) Continue() resource.State {
	if a.state != resource.Pending {
		return a.state
	}
	select {
	case result := <-a.results:
		a.cancel()
		if result.err != nil {
			a.err = result.err
			a.log.WithError(result.err).Warn("loading failed")
			a.state = a.container.FailedAsync(a.id)
		} else {
			a.state = a.init(a.id, result.setup, result.data)
		}
		if a.state == resource.InvalidState {
			a.log.Warn("resource destroyed while loading")
		}
	default:
	}
	return a.state
}

// Cancel stops the background work, Continue reports Failed afterwards
func (a *async[S]) Cancel() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.state == resource.Pending || a.state == resource.Initial {
		a.state = resource.Failed
		a.err = ErrCancelled
	}
}

// Id returns the id reserved by Start
func (a *async[S]) Id() resource.Id {
	return a.id
}

// Err returns the reason the loader failed
func (a *async[S]) Err() error {
	return a.err
}

// Destroy is called when the last reference is released
func (a *async[S]) Destroy() {
	if a.cancel != nil {
		a.cancel()
	}
}
