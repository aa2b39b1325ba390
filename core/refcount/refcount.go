// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package refcount implements shared ownership for objects that need an
// explicit teardown once the last owner lets go of them.
package refcount

import (
	"fmt"
	"sync/atomic"
)

// Destroyer is implemented by objects that embed RefCounted.
// Destroy is called exactly once, when the count drops to zero.
type Destroyer interface {
	Destroy()
}

// Counted is the reference counting half of RefCounted, used by holders
// that only share ownership.
type Counted interface {
	AddRef()
	Release() bool
}

// RefCounted is embedded into shared objects. It has to be initialised
// with Init before the first AddRef.
type RefCounted struct {
	owner      Destroyer
	threadSafe bool
	count      int32
	destroyed  int32
}

// Init binds the counter to its owner. With threadSafe set the counter
// is updated atomically, otherwise a plain counter is used.
func (r *RefCounted) Init(owner Destroyer, threadSafe bool) {
	if r.owner != nil {
		panic("refcount.RefCounted.Init(): already initialised")
	}
	r.owner = owner
	r.threadSafe = threadSafe
}

// AddRef increments the reference count.
func (r *RefCounted) AddRef() {
	if r.owner == nil {
		panic("refcount.RefCounted.AddRef(): not initialised")
	}
	if r.isDestroyed() {
		panic("refcount.RefCounted.AddRef(): object already destroyed")
	}
	if r.threadSafe {
		atomic.AddInt32(&r.count, 1)
	} else {
		r.count++
	}
}

// Release decrements the reference count and destroys the owner when it
// reaches zero. Returns true if the owner was destroyed by this call.
func (r *RefCounted) Release() bool {
	var count int32
	if r.threadSafe {
		count = atomic.AddInt32(&r.count, -1)
	} else {
		r.count--
		count = r.count
	}

	switch {
	case count < 0:
		panic(fmt.Sprintf("refcount.RefCounted.Release(): release without matching AddRef (count %d)", count))
	case count > 0:
		return false
	}

	if r.threadSafe {
		if !atomic.CompareAndSwapInt32(&r.destroyed, 0, 1) {
			panic("refcount.RefCounted.Release(): object destroyed twice")
		}
	} else {
		if r.destroyed != 0 {
			panic("refcount.RefCounted.Release(): object destroyed twice")
		}
		r.destroyed = 1
	}
	r.owner.Destroy()
	return true
}

// RefCount returns the current reference count.
func (r *RefCounted) RefCount() int {
	if r.threadSafe {
		return int(atomic.LoadInt32(&r.count))
	}
	return int(r.count)
}

func (r *RefCounted) isDestroyed() bool {
	if r.threadSafe {
		return atomic.LoadInt32(&r.destroyed) != 0
	}
	return r.destroyed != 0
}
