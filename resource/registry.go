// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import (
	"fmt"

	"github.com/koru3d/koru/core/containers"
)

type registryEntry struct {
	locator Locator
	id      Id
	label   Label
}

// Registry maps locators and ids to a dense list of entries. Shared
// locators are unique in the registry, every id is unique.
type Registry struct {
	valid     bool
	entries   containers.ElementBuffer[registryEntry]
	byLocator map[locatorKey]int
	byId      map[Id]int
}

// Setup prepares the registry for capacity entries. It grows if needed.
func (r *Registry) Setup(capacity int) {
	if r.valid {
		panic("resource.Registry.Setup(): already set up")
	}
	if capacity < 1 {
		capacity = 1
	}
	r.entries.Reallocate(capacity, 0)
	r.byLocator = make(map[locatorKey]int, capacity)
	r.byId = make(map[Id]int, capacity)
	r.valid = true
}

// Discard drops all entries.
func (r *Registry) Discard() {
	r.mustBeValid("Discard")
	r.entries.Destroy()
	r.byLocator = nil
	r.byId = nil
	r.valid = false
}

// IsValid returns true between Setup and Discard.
func (r *Registry) IsValid() bool {
	return r.valid
}

// Add registers id under locator and label.
func (r *Registry) Add(locator Locator, id Id, label Label) {
	r.mustBeValid("Add")
	if !id.IsValid() {
		panic("resource.Registry.Add(): invalid id")
	}
	if !label.IsValid() {
		panic("resource.Registry.Add(): invalid label")
	}
	if _, ok := r.byId[id]; ok {
		panic(fmt.Sprintf("resource.Registry.Add(): %v already registered", id))
	}
	shared := locator.IsShared()
	if shared {
		if _, ok := r.byLocator[locator.key()]; ok {
			panic(fmt.Sprintf("resource.Registry.Add(): locator %v already registered", locator))
		}
	}

	if r.entries.BackSpare() == 0 {
		r.entries.Reallocate(2*r.entries.Capacity()+1, 0)
	}
	r.entries.PushBack(registryEntry{locator: locator, id: id, label: label})
	index := r.entries.Size() - 1
	if shared {
		r.byLocator[locator.key()] = index
	}
	r.byId[id] = index
}

// Lookup returns the id registered for a shared locator, or the invalid
// id. Non-shared locators are never found.
func (r *Registry) Lookup(locator Locator) Id {
	r.mustBeValid("Lookup")
	if !locator.IsShared() {
		return InvalidId()
	}
	if index, ok := r.byLocator[locator.key()]; ok {
		return r.entries.At(index).id
	}
	return InvalidId()
}

// Remove drops every entry with the given label, or every entry for
// LabelAll, and returns the removed ids in no particular order.
func (r *Registry) Remove(label Label) []Id {
	r.mustBeValid("Remove")
	if !label.IsValid() {
		panic("resource.Registry.Remove(): invalid label")
	}

	var removed []Id
	for index := r.entries.Size() - 1; index >= 0; index-- {
		entry := r.entries.At(index)
		if label != LabelAll && entry.label != label {
			continue
		}
		removed = append(removed, entry.id)
		delete(r.byId, entry.id)
		if entry.locator.IsShared() {
			delete(r.byLocator, entry.locator.key())
		}

		// the last entry moves into the hole, repoint its map slots
		last := r.entries.Size() - 1
		r.entries.EraseSwapBack(index)
		if index != last {
			moved := r.entries.At(index)
			r.byId[moved.id] = index
			if moved.locator.IsShared() {
				r.byLocator[moved.locator.key()] = index
			}
		}
	}
	if len(removed) > 0 {
		if err := r.CheckIntegrity(); err != nil {
			panic("resource.Registry.Remove(): " + err.Error())
		}
	}
	return removed
}

// Contains returns true if id is registered.
func (r *Registry) Contains(id Id) bool {
	r.mustBeValid("Contains")
	if !id.IsValid() {
		panic("resource.Registry.Contains(): invalid id")
	}
	_, ok := r.byId[id]
	return ok
}

// Locator returns the locator id was registered with.
func (r *Registry) Locator(id Id) Locator {
	return r.mustFind("Locator", id).locator
}

// Label returns the label id was registered with.
func (r *Registry) Label(id Id) Label {
	return r.mustFind("Label", id).label
}

// NumResources returns the number of registered entries.
func (r *Registry) NumResources() int {
	r.mustBeValid("NumResources")
	return r.entries.Size()
}

// IdByIndex returns the id of the entry at index.
func (r *Registry) IdByIndex(index int) Id {
	r.mustBeValid("IdByIndex")
	return r.entries.At(index).id
}

// CheckIntegrity verifies that every map slot points at an entry with
// a matching key, and that every entry is reachable by id.
func (r *Registry) CheckIntegrity() error {
	size := r.entries.Size()
	if len(r.byId) != size {
		return fmt.Errorf("id map holds %d slots for %d entries", len(r.byId), size)
	}
	for id, index := range r.byId {
		if index < 0 || index >= size {
			return fmt.Errorf("id %v points outside entries (%d)", id, index)
		}
		if entry := r.entries.At(index); entry.id != id {
			return fmt.Errorf("id mismatch at index %d (%v != %v)", index, entry.id, id)
		}
	}
	for key, index := range r.byLocator {
		if index < 0 || index >= size {
			return fmt.Errorf("locator %q points outside entries (%d)", key.location, index)
		}
		if entry := r.entries.At(index); entry.locator.key() != key {
			return fmt.Errorf("locator mismatch at index %d (%v != %q)", index, entry.locator, key.location)
		}
	}
	return nil
}

func (r *Registry) mustFind(op string, id Id) registryEntry {
	r.mustBeValid(op)
	index, ok := r.byId[id]
	if !ok {
		panic(fmt.Sprintf("resource.Registry.%s(): %v not registered", op, id))
	}
	return r.entries.At(index)
}

func (r *Registry) mustBeValid(op string) {
	if !r.valid {
		panic("resource.Registry." + op + "(): registry not set up")
	}
}
