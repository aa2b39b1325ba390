// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package containers holds the low level storage primitives the resource
// subsystem is built on.
//
// ElementBuffer manages a single backing slice and the range of live
// elements inside of it:
//
//	|----|----|XXXX|XXXX|XXXX|----|----|
//	0         start          end       len(buf)
//
// Slots outside of [start, end) always hold the zero value of T, so no
// stale references are kept alive by spare capacity.
package containers

import "fmt"

// ElementBuffer is a dynamic array with spare capacity on both ends.
// Growth is never implicit, callers decide when and how to Reallocate.
type ElementBuffer[T any] struct {
	buf   []T
	start int
	end   int
}

// FrontSpare returns the number of free slots in front of the live range.
func (b *ElementBuffer[T]) FrontSpare() int {
	return b.start
}

// BackSpare returns the number of free slots behind the live range.
func (b *ElementBuffer[T]) BackSpare() int {
	return len(b.buf) - b.end
}

// Spare returns FrontSpare + BackSpare.
func (b *ElementBuffer[T]) Spare() int {
	return len(b.buf) - b.Size()
}

// Size returns the number of live elements.
func (b *ElementBuffer[T]) Size() int {
	return b.end - b.start
}

// Capacity returns the size of the backing allocation.
func (b *ElementBuffer[T]) Capacity() int {
	return len(b.buf)
}

// At returns the element at index.
func (b *ElementBuffer[T]) At(index int) T {
	b.checkIndex(index)
	return b.buf[b.start+index]
}

// Ptr returns a pointer to the element at index. The pointer is invalidated
// by any operation that moves elements.
func (b *ElementBuffer[T]) Ptr(index int) *T {
	b.checkIndex(index)
	return &b.buf[b.start+index]
}

// Set overwrites the element at index.
func (b *ElementBuffer[T]) Set(index int, value T) {
	b.checkIndex(index)
	b.buf[b.start+index] = value
}

// Front returns the first live element.
func (b *ElementBuffer[T]) Front() T {
	if b.Size() == 0 {
		panic("containers.ElementBuffer.Front(): buffer is empty")
	}
	return b.buf[b.start]
}

// Back returns the last live element.
func (b *ElementBuffer[T]) Back() T {
	if b.Size() == 0 {
		panic("containers.ElementBuffer.Back(): buffer is empty")
	}
	return b.buf[b.end-1]
}

// Values returns the live range. The returned slice aliases the buffer.
func (b *ElementBuffer[T]) Values() []T {
	return b.buf[b.start:b.end:b.end]
}

// Reallocate moves the live elements into a new allocation of the given
// capacity, placing them after frontSpare free slots.
func (b *ElementBuffer[T]) Reallocate(capacity, frontSpare int) {
	if capacity <= 0 {
		panic("containers.ElementBuffer.Reallocate(): capacity must be positive")
	}
	size := b.Size()
	if frontSpare < 0 || frontSpare+size > capacity {
		panic(fmt.Sprintf("containers.ElementBuffer.Reallocate(): %d elements with front spare %d do not fit capacity %d", size, frontSpare, capacity))
	}
	if capacity == len(b.buf) && frontSpare == b.start {
		return
	}

	buf := make([]T, capacity)
	copy(buf[frontSpare:frontSpare+size], b.buf[b.start:b.end])
	b.buf = buf
	b.start = frontSpare
	b.end = frontSpare + size
}

// Destroy releases the backing allocation.
func (b *ElementBuffer[T]) Destroy() {
	b.buf = nil
	b.start = 0
	b.end = 0
}

// Clear drops all live elements but keeps the allocation and front spare.
func (b *ElementBuffer[T]) Clear() {
	b.poison(b.start, b.end)
	b.end = b.start
}

// PushBack appends an element. BackSpare must be > 0.
func (b *ElementBuffer[T]) PushBack(value T) {
	if b.end >= len(b.buf) {
		panic("containers.ElementBuffer.PushBack(): no spare capacity at back")
	}
	b.buf[b.end] = value
	b.end++
}

// PushFront prepends an element. FrontSpare must be > 0.
func (b *ElementBuffer[T]) PushFront(value T) {
	if b.start == 0 {
		panic("containers.ElementBuffer.PushFront(): no spare capacity at front")
	}
	b.start--
	b.buf[b.start] = value
}

// PopBack removes and returns the last element.
func (b *ElementBuffer[T]) PopBack() T {
	if b.Size() == 0 {
		panic("containers.ElementBuffer.PopBack(): buffer is empty")
	}
	b.end--
	value := b.buf[b.end]
	b.poison(b.end, b.end+1)
	return value
}

// PopFront removes and returns the first element.
func (b *ElementBuffer[T]) PopFront() T {
	if b.Size() == 0 {
		panic("containers.ElementBuffer.PopFront(): buffer is empty")
	}
	value := b.buf[b.start]
	b.poison(b.start, b.start+1)
	b.start++
	return value
}

// Insert places value at index keeping the order of the other elements.
// The cheaper side is shifted when both sides have spare capacity.
func (b *ElementBuffer[T]) Insert(index int, value T) {
	size := b.Size()
	if index < 0 || index > size {
		panic(fmt.Sprintf("containers.ElementBuffer.Insert(): index %d out of range [0,%d]", index, size))
	}
	if b.Spare() == 0 {
		panic("containers.ElementBuffer.Insert(): no spare capacity")
	}

	var slot int
	switch {
	case index == size:
		if b.BackSpare() > 0 {
			b.PushBack(value)
			return
		}
		slot = b.moveInsertFront(index)
	case index == 0:
		if b.FrontSpare() > 0 {
			b.PushFront(value)
			return
		}
		slot = b.moveInsertBack(index)
	case index < size>>1:
		if b.FrontSpare() > 0 {
			slot = b.moveInsertFront(index)
		} else {
			slot = b.moveInsertBack(index)
		}
	default:
		if b.BackSpare() > 0 {
			slot = b.moveInsertBack(index)
		} else {
			slot = b.moveInsertFront(index)
		}
	}
	b.buf[slot] = value
}

// Erase removes the element at index keeping the order of the others.
func (b *ElementBuffer[T]) Erase(index int) {
	b.checkIndex(index)
	size := b.Size()
	switch {
	case index == 0:
		b.poison(b.start, b.start+1)
		b.start++
	case index == size-1:
		b.end--
		b.poison(b.end, b.end+1)
	case index < size>>1:
		// close the gap with the elements in front of it
		copy(b.buf[b.start+1:b.start+index+1], b.buf[b.start:b.start+index])
		b.poison(b.start, b.start+1)
		b.start++
	default:
		copy(b.buf[b.start+index:b.end-1], b.buf[b.start+index+1:b.end])
		b.end--
		b.poison(b.end, b.end+1)
	}
}

// EraseSwap removes the element at index by moving in the front or back
// element, whichever keeps the spare capacity balanced. Order is not kept.
func (b *ElementBuffer[T]) EraseSwap(index int) {
	b.checkIndex(index)
	size := b.Size()
	switch {
	case index == 0:
		b.poison(b.start, b.start+1)
		b.start++
	case index == size-1:
		b.end--
		b.poison(b.end, b.end+1)
	case b.FrontSpare() > b.BackSpare():
		b.swapInBack(index)
	default:
		b.swapInFront(index)
	}
}

// EraseSwapBack removes the element at index by moving the last element
// into its place.
func (b *ElementBuffer[T]) EraseSwapBack(index int) {
	b.checkIndex(index)
	if index == b.Size()-1 {
		b.end--
		b.poison(b.end, b.end+1)
		return
	}
	b.swapInBack(index)
}

// EraseSwapFront removes the element at index by moving the first element
// into its place.
func (b *ElementBuffer[T]) EraseSwapFront(index int) {
	b.checkIndex(index)
	if index == 0 {
		b.poison(b.start, b.start+1)
		b.start++
		return
	}
	b.swapInFront(index)
}

// Clone returns a copy with the same capacity and front spare as b.
func (b *ElementBuffer[T]) Clone() ElementBuffer[T] {
	if b.buf == nil {
		return ElementBuffer[T]{}
	}
	buf := make([]T, len(b.buf))
	copy(buf[b.start:b.end], b.buf[b.start:b.end])
	return ElementBuffer[T]{
		buf:   buf,
		start: b.start,
		end:   b.end,
	}
}

// Move hands the allocation over to the returned buffer and leaves b empty.
func (b *ElementBuffer[T]) Move() ElementBuffer[T] {
	moved := *b
	b.buf = nil
	b.start = 0
	b.end = 0
	return moved
}

func (b *ElementBuffer[T]) swapInBack(index int) {
	b.end--
	b.buf[b.start+index] = b.buf[b.end]
	b.poison(b.end, b.end+1)
}

func (b *ElementBuffer[T]) swapInFront(index int) {
	b.buf[b.start+index] = b.buf[b.start]
	b.poison(b.start, b.start+1)
	b.start++
}

// moveInsertFront shifts the elements before index one slot towards the
// front and returns the absolute slot that became free.
func (b *ElementBuffer[T]) moveInsertFront(index int) int {
	if b.start == 0 {
		panic("containers.ElementBuffer: no spare capacity at front")
	}
	copy(b.buf[b.start-1:b.start-1+index], b.buf[b.start:b.start+index])
	b.start--
	return b.start + index
}

// moveInsertBack shifts the elements at and after index one slot towards
// the back and returns the absolute slot that became free.
func (b *ElementBuffer[T]) moveInsertBack(index int) int {
	if b.end >= len(b.buf) {
		panic("containers.ElementBuffer: no spare capacity at back")
	}
	copy(b.buf[b.start+index+1:b.end+1], b.buf[b.start+index:b.end])
	b.end++
	return b.start + index
}

func (b *ElementBuffer[T]) poison(from, to int) {
	var zero T
	for i := from; i < to; i++ {
		b.buf[i] = zero
	}
}

func (b *ElementBuffer[T]) checkIndex(index int) {
	if index < 0 || index >= b.Size() {
		panic(fmt.Sprintf("containers.ElementBuffer: index %d out of range [0,%d)", index, b.Size()))
	}
}
