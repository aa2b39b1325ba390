// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package containers

import (
	"math/rand"
	"testing"

	qt "github.com/frankban/quicktest"
)

func checkLayout[T any](c *qt.C, b *ElementBuffer[T]) {
	c.Helper()
	c.Assert(0 <= b.start && b.start <= b.end && b.end <= len(b.buf), qt.IsTrue,
		qt.Commentf("start=%d end=%d cap=%d", b.start, b.end, len(b.buf)))
	c.Assert(b.Size(), qt.Equals, b.end-b.start)
	c.Assert(b.FrontSpare()+b.Size()+b.BackSpare(), qt.Equals, b.Capacity())
}

func TestEmptyBuffer(t *testing.T) {
	c := qt.New(t)
	var b ElementBuffer[int]
	c.Assert(b.Size(), qt.Equals, 0)
	c.Assert(b.Capacity(), qt.Equals, 0)
	c.Assert(func() { b.PushBack(1) }, qt.PanicMatches, ".*no spare capacity at back")
	c.Assert(func() { b.PushFront(1) }, qt.PanicMatches, ".*no spare capacity at front")
	c.Assert(func() { b.PopBack() }, qt.PanicMatches, ".*buffer is empty")
	checkLayout(c, &b)
}

func TestPushFrontBack(t *testing.T) {
	c := qt.New(t)
	var b ElementBuffer[int]
	b.Reallocate(8, 4)
	c.Assert(b.FrontSpare(), qt.Equals, 4)
	c.Assert(b.BackSpare(), qt.Equals, 4)

	for i := 0; i < 4; i++ {
		b.PushBack(i)
		b.PushFront(-i - 1)
		checkLayout(c, &b)
	}
	c.Assert(b.Values(), qt.DeepEquals, []int{-4, -3, -2, -1, 0, 1, 2, 3})
	c.Assert(b.Spare(), qt.Equals, 0)
	c.Assert(func() { b.PushBack(9) }, qt.PanicMatches, ".*no spare capacity at back")
	c.Assert(func() { b.PushFront(9) }, qt.PanicMatches, ".*no spare capacity at front")

	c.Assert(b.PopFront(), qt.Equals, -4)
	c.Assert(b.PopBack(), qt.Equals, 3)
	c.Assert(b.Front(), qt.Equals, -3)
	c.Assert(b.Back(), qt.Equals, 2)
	c.Assert(b.buf[0], qt.Equals, 0)
	c.Assert(b.buf[7], qt.Equals, 0)
	checkLayout(c, &b)
}

func TestReallocateKeepsElements(t *testing.T) {
	c := qt.New(t)
	var b ElementBuffer[string]
	b.Reallocate(4, 0)
	b.PushBack("a")
	b.PushBack("b")
	b.Reallocate(16, 8)
	c.Assert(b.Values(), qt.DeepEquals, []string{"a", "b"})
	c.Assert(b.FrontSpare(), qt.Equals, 8)
	c.Assert(b.BackSpare(), qt.Equals, 6)
	c.Assert(func() { b.Reallocate(4, 3) }, qt.PanicMatches, ".*do not fit capacity 4")
	checkLayout(c, &b)
}

func TestInsertErase(t *testing.T) {
	c := qt.New(t)
	var b ElementBuffer[int]
	b.Reallocate(10, 5)
	b.Insert(0, 2)
	b.Insert(0, 0)
	b.Insert(1, 1)
	b.Insert(3, 4)
	b.Insert(3, 3)
	c.Assert(b.Values(), qt.DeepEquals, []int{0, 1, 2, 3, 4})
	checkLayout(c, &b)

	b.Erase(2)
	c.Assert(b.Values(), qt.DeepEquals, []int{0, 1, 3, 4})
	b.Erase(0)
	c.Assert(b.Values(), qt.DeepEquals, []int{1, 3, 4})
	b.Erase(2)
	c.Assert(b.Values(), qt.DeepEquals, []int{1, 3})
	checkLayout(c, &b)
}

func TestInsertUsesOtherSideWhenFull(t *testing.T) {
	c := qt.New(t)
	var b ElementBuffer[int]
	b.Reallocate(4, 0)
	b.PushBack(1)
	b.PushBack(2)
	b.PushBack(3)
	// no front spare, insertion at 0 has to move everything back
	b.Insert(0, 0)
	c.Assert(b.Values(), qt.DeepEquals, []int{0, 1, 2, 3})
	c.Assert(func() { b.Insert(2, 9) }, qt.PanicMatches, ".*no spare capacity")

	b.PopFront()
	// no back spare, insertion at the end has to move everything front
	b.Insert(3, 4)
	c.Assert(b.Values(), qt.DeepEquals, []int{1, 2, 3, 4})
	checkLayout(c, &b)
}

func TestEraseSwap(t *testing.T) {
	c := qt.New(t)
	var b ElementBuffer[int]
	b.Reallocate(8, 0)
	for i := 0; i < 6; i++ {
		b.PushBack(i)
	}
	b.EraseSwapBack(1)
	c.Assert(b.Values(), qt.DeepEquals, []int{0, 5, 2, 3, 4})
	b.EraseSwapFront(3)
	c.Assert(b.Values(), qt.DeepEquals, []int{5, 2, 0, 4})
	b.EraseSwapBack(3)
	c.Assert(b.Values(), qt.DeepEquals, []int{5, 2, 0})
	// front spare 1 is not larger than back spare 4, the front element moves in
	b.EraseSwap(1)
	c.Assert(b.Values(), qt.DeepEquals, []int{5, 0})
	checkLayout(c, &b)
}

func TestCloneKeepsLayout(t *testing.T) {
	c := qt.New(t)
	var b ElementBuffer[int]
	b.Reallocate(32, 7)
	for i := 0; i < 5; i++ {
		b.PushBack(i)
	}
	b.PushFront(-1)

	clone := b.Clone()
	c.Assert(clone.Capacity(), qt.Equals, b.Capacity())
	c.Assert(clone.FrontSpare(), qt.Equals, b.FrontSpare())
	c.Assert(clone.BackSpare(), qt.Equals, b.BackSpare())
	c.Assert(clone.Values(), qt.DeepEquals, b.Values())

	clone.Set(0, 100)
	c.Assert(b.At(0), qt.Equals, -1)

	var empty ElementBuffer[int]
	emptyClone := empty.Clone()
	c.Assert(emptyClone.Capacity(), qt.Equals, 0)
}

func TestMoveTransfersBuffer(t *testing.T) {
	c := qt.New(t)
	var b ElementBuffer[int]
	b.Reallocate(8, 2)
	b.PushBack(1)
	backing := &b.buf[0]

	moved := b.Move()
	c.Assert(&moved.buf[0] == backing, qt.IsTrue)
	c.Assert(moved.Values(), qt.DeepEquals, []int{1})
	c.Assert(moved.FrontSpare(), qt.Equals, 2)
	c.Assert(b.Capacity(), qt.Equals, 0)
	c.Assert(b.Size(), qt.Equals, 0)
}

func TestRandomOperationsKeepLayout(t *testing.T) {
	c := qt.New(t)
	rnd := rand.New(rand.NewSource(42))
	var (
		b   ElementBuffer[int]
		ref []int
	)
	b.Reallocate(64, 32)
	for step := 0; step < 5000; step++ {
		switch op := rnd.Intn(6); {
		case op == 0 && b.FrontSpare() > 0:
			b.PushFront(step)
			ref = append([]int{step}, ref...)
		case op == 1 && b.BackSpare() > 0:
			b.PushBack(step)
			ref = append(ref, step)
		case op == 2 && b.Spare() > 0:
			idx := rnd.Intn(len(ref) + 1)
			b.Insert(idx, step)
			ref = append(ref[:idx], append([]int{step}, ref[idx:]...)...)
		case op == 3 && len(ref) > 0:
			idx := rnd.Intn(len(ref))
			b.Erase(idx)
			ref = append(ref[:idx], ref[idx+1:]...)
		case op == 4 && b.Spare() == 0:
			b.Reallocate(b.Capacity()*2, b.Capacity()/2)
		case op == 5 && len(ref) > 0 && rnd.Intn(4) == 0:
			b.Clear()
			ref = ref[:0]
		}
		checkLayout(c, &b)
		c.Assert(b.Size(), qt.Equals, len(ref))
	}
	c.Assert(append([]int{}, b.Values()...), qt.DeepEquals, append([]int{}, ref...))
}

func BenchmarkPushBack(b *testing.B) {
	var buf ElementBuffer[int]
	buf.Reallocate(1024, 0)
	for idx := 0; idx < b.N; idx++ {
		if buf.BackSpare() == 0 {
			buf.Clear()
			buf.Reallocate(buf.Capacity(), 0)
		}
		buf.PushBack(idx)
	}
}
