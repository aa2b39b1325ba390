// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package containers

// minGrow is the smallest capacity a growing Queue allocates.
const minGrow = 16

// Queue is a FIFO queue on top of an ElementBuffer. A Queue with a
// fixed capacity never grows and panics when it is full.
type Queue[T any] struct {
	buf   ElementBuffer[T]
	fixed bool
}

// SetFixedCapacity allocates room for exactly capacity elements and
// disables growth.
func (q *Queue[T]) SetFixedCapacity(capacity int) {
	q.buf.Reallocate(capacity, 0)
	q.fixed = true
}

// Reserve makes sure at least n more elements fit without growing.
func (q *Queue[T]) Reserve(n int) {
	if q.buf.Spare() >= n {
		return
	}
	q.buf.Reallocate(q.buf.Size()+n, 0)
}

// Len returns the number of queued elements.
func (q *Queue[T]) Len() int {
	return q.buf.Size()
}

// Capacity returns the number of slots allocated.
func (q *Queue[T]) Capacity() int {
	return q.buf.Capacity()
}

// Empty returns true if nothing is queued.
func (q *Queue[T]) Empty() bool {
	return q.buf.Size() == 0
}

// Enqueue adds value at the end of the queue.
func (q *Queue[T]) Enqueue(value T) {
	if q.buf.BackSpare() == 0 {
		q.makeRoom()
	}
	q.buf.PushBack(value)
}

// Dequeue removes and returns the oldest element.
func (q *Queue[T]) Dequeue() T {
	if q.buf.Size() == 0 {
		panic("containers.Queue.Dequeue(): queue is empty")
	}
	return q.buf.PopFront()
}

// Peek returns the oldest element without removing it.
func (q *Queue[T]) Peek() T {
	return q.buf.Front()
}

// Clear removes all queued elements.
func (q *Queue[T]) Clear() {
	q.buf.Clear()
}

func (q *Queue[T]) makeRoom() {
	switch {
	case q.buf.Spare() > 0:
		// dequeued slots piled up in front, compact
		q.buf.Reallocate(q.buf.Capacity(), 0)
	case q.fixed:
		panic("containers.Queue.Enqueue(): fixed capacity queue is full")
	default:
		capacity := q.buf.Capacity() * 2
		if capacity < minGrow {
			capacity = minGrow
		}
		q.buf.Reallocate(capacity, 0)
	}
}
