// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import "sync"

type pendingRelease struct {
	frame   int
	release func()
}

// ReleaseQueue holds backend frees until the frames that may still use
// the objects are retired. Collect is called once per frame, an object
// pushed in frame f is released by the first Collect after f+delay.
type ReleaseQueue struct {
	mu      sync.Mutex
	delay   int
	frame   int
	pending []pendingRelease
}

// NewReleaseQueue creates a queue that keeps objects for delay frames
func NewReleaseQueue(delay int) *ReleaseQueue {
	if delay < 0 {
		delay = 0
	}
	return &ReleaseQueue{delay: delay}
}

// Push queues release for a later Collect
func (q *ReleaseQueue) Push(release func()) {
	q.mu.Lock()
	q.pending = append(q.pending, pendingRelease{frame: q.frame, release: release})
	q.mu.Unlock()
}

// Collect advances the frame and runs expired releases in push order.
// It returns the number of releases that ran.
func (q *ReleaseQueue) Collect() int {
	q.mu.Lock()
	q.frame++
	n := 0
	for n < len(q.pending) && q.pending[n].frame+q.delay < q.frame {
		n++
	}
	expired := make([]pendingRelease, n)
	copy(expired, q.pending)
	rest := copy(q.pending, q.pending[n:])
	for i := rest; i < len(q.pending); i++ {
		q.pending[i] = pendingRelease{}
	}
	q.pending = q.pending[:rest]
	q.mu.Unlock()

	for _, p := range expired {
		p.release()
	}
	return n
}

// Flush runs every queued release regardless of age
func (q *ReleaseQueue) Flush() int {
	q.mu.Lock()
	all := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, p := range all {
		p.release()
	}
	return len(all)
}

// Len returns the number of queued releases
func (q *ReleaseQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
