// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/koru3d/koru/core/containers"
)

// MaxPoolSize is the largest number of slots a pool can hold.
const MaxPoolSize = int(InvalidSlotIndex)

// Slot is embedded into every pooled resource type.
type Slot struct {
	Id              Id
	State           State
	StateStartFrame int
}

// ResourceSlot gives pools access to the embedded slot.
func (s *Slot) ResourceSlot() *Slot {
	return s
}

// Slotted is satisfied by pointers to types that embed Slot.
type Slotted[T any] interface {
	*T
	ResourceSlot() *Slot
}

// Pool owns a fixed number of resource objects of one type, addressed by
// Id. A slot is reused only with a new unique stamp, so stale ids stop
// matching as soon as their slot is freed.
type Pool[T any, PT Slotted[T]] struct {
	// LastAllocSlot is the highest slot that may be in use. There can be
	// holes below it.
	LastAllocSlot uint16

	valid         bool
	resourceType  uint16
	frameCounter  int
	uniqueCounter uint32
	slots         []T
	freeSlots     containers.Queue[uint16]
	log           logrus.FieldLogger
}

// Setup allocates size slots for resources of resourceType. A nil
// logger logs through the logrus standard logger.
func (p *Pool[T, PT]) Setup(resourceType uint16, size int, logger logrus.FieldLogger) {
	if p.valid {
		panic("resource.Pool.Setup(): already set up")
	}
	if resourceType == InvalidType {
		panic("resource.Pool.Setup(): invalid resource type")
	}
	if size <= 0 || size > MaxPoolSize {
		panic(fmt.Sprintf("resource.Pool.Setup(): invalid pool size %d", size))
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	p.log = logger
	p.resourceType = resourceType
	p.slots = make([]T, size)
	p.freeSlots.SetFixedCapacity(size)
	for i := 0; i < size; i++ {
		p.freeSlots.Enqueue(uint16(i))
	}
	p.LastAllocSlot = 0
	p.valid = true
}

// Discard releases the slots. Every slot must have been unassigned.
func (p *Pool[T, PT]) Discard() {
	p.mustBeValid("Discard")
	if p.freeSlots.Len() != len(p.slots) {
		panic(fmt.Sprintf("resource.Pool.Discard(): %d slots still in use", len(p.slots)-p.freeSlots.Len()))
	}
	p.valid = false
	p.LastAllocSlot = 0
	p.slots = nil
	p.freeSlots.Clear()
}

// IsValid returns true between Setup and Discard.
func (p *Pool[T, PT]) IsValid() bool {
	return p.valid
}

// Update advances the frame counter, call once per frame.
func (p *Pool[T, PT]) Update() {
	p.mustBeValid("Update")
	p.frameCounter++
}

// AllocId reserves a free slot and returns a fresh id for it.
func (p *Pool[T, PT]) AllocId() Id {
	p.mustBeValid("AllocId")
	if p.freeSlots.Empty() {
		panic(fmt.Sprintf("resource.Pool.AllocId(): pool of type %d exhausted", p.resourceType))
	}
	p.uniqueCounter++
	if p.uniqueCounter == 0 {
		p.uniqueCounter = 1
	}
	id := Id{
		UniqueStamp: p.uniqueCounter,
		SlotIndex:   p.freeSlots.Dequeue(),
		Type:        p.resourceType,
	}
	if p.slot(id.SlotIndex).State != Initial {
		panic("resource.Pool.AllocId(): free slot is not in initial state")
	}
	if id.SlotIndex > p.LastAllocSlot {
		p.LastAllocSlot = id.SlotIndex
	}
	return id
}

// Assign occupies the slot of id with the given state and returns the
// resource object.
func (p *Pool[T, PT]) Assign(id Id, state State) *T {
	p.mustBeValid("Assign")
	p.checkType("Assign", id)
	s := p.slot(id.SlotIndex)
	if s.State == Valid {
		panic("resource.Pool.Assign(): slot already holds a valid resource")
	}
	s.Id = id
	s.State = state
	s.StateStartFrame = p.frameCounter
	return &p.slots[id.SlotIndex]
}

// Unassign resets the slot of id and puts it back into the free queue.
// Ids that no longer own their slot are logged and ignored.
func (p *Pool[T, PT]) Unassign(id Id) {
	p.mustBeValid("Unassign")
	p.checkType("Unassign", id)
	s := p.slot(id.SlotIndex)
	if s.Id != id {
		p.log.WithFields(logrus.Fields{
			"type": id.Type,
			"slot": id.SlotIndex,
		}).Warn("resource.Pool.Unassign(): id not in pool")
		return
	}
	if s.State == Initial {
		panic("resource.Pool.Unassign(): slot is in initial state")
	}
	var zero T
	p.slots[id.SlotIndex] = zero
	p.freeId(id)
}

func (p *Pool[T, PT]) freeId(id Id) {
	for p.LastAllocSlot > 0 && !p.slot(p.LastAllocSlot).Id.IsValid() {
		p.LastAllocSlot--
	}
	p.freeSlots.Enqueue(id.SlotIndex)
}

// Lookup returns the resource of id if it is Valid, nil otherwise.
func (p *Pool[T, PT]) Lookup(id Id) *T {
	p.mustBeValid("Lookup")
	if !id.IsValid() {
		return nil
	}
	p.checkType("Lookup", id)
	if s := p.slot(id.SlotIndex); s.Id == id && s.State == Valid {
		return &p.slots[id.SlotIndex]
	}
	return nil
}

// Get returns the resource of id in any state, nil if the slot has been
// reused or freed.
func (p *Pool[T, PT]) Get(id Id) *T {
	p.mustBeValid("Get")
	if !id.IsValid() {
		return nil
	}
	p.checkType("Get", id)
	if p.slot(id.SlotIndex).Id == id {
		return &p.slots[id.SlotIndex]
	}
	return nil
}

// UpdateState changes the state of a contained resource.
func (p *Pool[T, PT]) UpdateState(id Id, state State) {
	p.mustBeValid("UpdateState")
	if !id.IsValid() {
		panic("resource.Pool.UpdateState(): invalid id")
	}
	p.checkType("UpdateState", id)
	s := p.slot(id.SlotIndex)
	if s.Id != id {
		p.log.WithFields(logrus.Fields{
			"type": id.Type,
			"slot": id.SlotIndex,
		}).Warn("resource.Pool.UpdateState(): id not in pool")
		return
	}
	if s.State == Initial {
		panic("resource.Pool.UpdateState(): slot is in initial state")
	}
	s.State = state
	s.StateStartFrame = p.frameCounter
}

// Contains returns true if the slot of id is occupied by id.
func (p *Pool[T, PT]) Contains(id Id) bool {
	p.mustBeValid("Contains")
	if !id.IsValid() {
		return false
	}
	p.checkType("Contains", id)
	return p.slot(id.SlotIndex).Id == id
}

// QueryState returns the state of id, InvalidState if it is not contained.
func (p *Pool[T, PT]) QueryState(id Id) State {
	p.mustBeValid("QueryState")
	if !id.IsValid() {
		return InvalidState
	}
	p.checkType("QueryState", id)
	if s := p.slot(id.SlotIndex); s.Id == id {
		return s.State
	}
	return InvalidState
}

// QueryResourceInfo returns state and state age of id.
func (p *Pool[T, PT]) QueryResourceInfo(id Id) Info {
	p.mustBeValid("QueryResourceInfo")
	if !id.IsValid() {
		return Info{State: InvalidState}
	}
	p.checkType("QueryResourceInfo", id)
	s := p.slot(id.SlotIndex)
	if s.Id != id {
		return Info{State: InvalidState}
	}
	return Info{
		State:    s.State,
		StateAge: p.frameCounter - s.StateStartFrame,
	}
}

// QueryPoolInfo counts slots per state.
func (p *Pool[T, PT]) QueryPoolInfo() PoolInfo {
	p.mustBeValid("QueryPoolInfo")
	info := PoolInfo{
		ResourceType: p.resourceType,
		NumSlots:     p.NumSlots(),
		NumUsedSlots: p.NumUsedSlots(),
		NumFreeSlots: p.NumFreeSlots(),
	}
	for i := range p.slots {
		info.NumSlotsByState[p.slot(uint16(i)).State]++
	}
	return info
}

// NumSlots returns the pool size.
func (p *Pool[T, PT]) NumSlots() int {
	return len(p.slots)
}

// NumUsedSlots returns the number of occupied slots.
func (p *Pool[T, PT]) NumUsedSlots() int {
	return len(p.slots) - p.freeSlots.Len()
}

// NumFreeSlots returns the number of slots AllocId can still hand out.
func (p *Pool[T, PT]) NumFreeSlots() int {
	return p.freeSlots.Len()
}

// Each calls fn for every occupied slot up to LastAllocSlot.
func (p *Pool[T, PT]) Each(fn func(res *T)) {
	p.mustBeValid("Each")
	if len(p.slots) == 0 {
		return
	}
	for i := 0; i <= int(p.LastAllocSlot); i++ {
		if p.slot(uint16(i)).Id.IsValid() {
			fn(&p.slots[i])
		}
	}
}

func (p *Pool[T, PT]) slot(index uint16) *Slot {
	return PT(&p.slots[index]).ResourceSlot()
}

func (p *Pool[T, PT]) checkType(op string, id Id) {
	if id.Type != p.resourceType {
		panic(fmt.Sprintf("resource.Pool.%s(): id of type %d in pool of type %d", op, id.Type, p.resourceType))
	}
	if int(id.SlotIndex) >= len(p.slots) {
		panic(fmt.Sprintf("resource.Pool.%s(): slot %d out of range", op, id.SlotIndex))
	}
}

func (p *Pool[T, PT]) mustBeValid(op string) {
	if !p.valid {
		panic("resource.Pool." + op + "(): pool not set up")
	}
}
