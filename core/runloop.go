// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import "fmt"

// RunLoopID identifies a callback registered on a RunLoop
type RunLoopID uint32

// InvalidRunLoopID is never handed out
const InvalidRunLoopID RunLoopID = 0

type runLoopEntry struct {
	id      RunLoopID
	fn      func()
	removed bool
}

// RunLoop calls its callbacks in the order they were added, once per Run.
// Callbacks may add or remove callbacks while the loop runs, additions
// run from the next Run on and removals take effect once Run returns.
type RunLoop struct {
	nextID  RunLoopID
	entries []runLoopEntry
	running bool
}

// Add registers fn and returns the id to remove it with
func (r *RunLoop) Add(fn func()) RunLoopID {
	if fn == nil {
		panic("core.RunLoop.Add(): nil callback")
	}
	r.nextID++
	r.entries = append(r.entries, runLoopEntry{id: r.nextID, fn: fn})
	return r.nextID
}

// Remove unregisters the callback with id
func (r *RunLoop) Remove(id RunLoopID) {
	for i := range r.entries {
		if r.entries[i].id != id || r.entries[i].removed {
			continue
		}
		if r.running {
			r.entries[i].removed = true
		} else {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
		}
		return
	}
	panic(fmt.Sprintf("core.RunLoop.Remove(): unknown id %d", id))
}

// Has returns true if id is registered and not removed
func (r *RunLoop) Has(id RunLoopID) bool {
	for _, e := range r.entries {
		if e.id == id {
			return !e.removed
		}
	}
	return false
}

// Len returns the number of registered callbacks
func (r *RunLoop) Len() int {
	n := 0
	for _, e := range r.entries {
		if !e.removed {
			n++
		}
	}
	return n
}

// Run calls every registered callback once
func (r *RunLoop) Run() {
	if r.running {
		panic("core.RunLoop.Run(): called from a callback")
	}
	r.running = true
	defer r.finishRun()

	count := len(r.entries)
	for i := 0; i < count; i++ {
		if !r.entries[i].removed {
			r.entries[i].fn()
		}
	}
}

func (r *RunLoop) finishRun() {
	r.running = false
	kept := r.entries[:0]
	for _, e := range r.entries {
		if !e.removed {
			kept = append(kept, e)
		}
	}
	for i := len(kept); i < len(r.entries); i++ {
		r.entries[i] = runLoopEntry{}
	}
	r.entries = kept
}
