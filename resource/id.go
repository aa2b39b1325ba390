// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package resource holds the building blocks shared by every resource
// container: ids, locators, labels, the registry, the label stack and
// typed slot pools.
package resource

import "fmt"

const (
	// InvalidSlotIndex marks an unused slot index.
	InvalidSlotIndex uint16 = 0xFFFF
	// InvalidType marks an unused resource type.
	InvalidType uint16 = 0xFFFF
)

// Id is an opaque handle to a pooled resource. It stays valid only while
// its UniqueStamp matches the occupant of the slot it points at.
// The zero Id is invalid, pools hand out stamps starting at 1.
type Id struct {
	UniqueStamp uint32
	SlotIndex   uint16
	Type        uint16
}

// InvalidId returns the invalid Id.
func InvalidId() Id {
	return Id{}
}

// IsValid returns true if id was handed out by a pool.
func (id Id) IsValid() bool {
	return id.UniqueStamp != 0
}

// Less orders ids by type, slot and stamp.
func (id Id) Less(other Id) bool {
	if id.Type != other.Type {
		return id.Type < other.Type
	}
	if id.SlotIndex != other.SlotIndex {
		return id.SlotIndex < other.SlotIndex
	}
	return id.UniqueStamp < other.UniqueStamp
}

func (id Id) String() string {
	if !id.IsValid() {
		return "Id(invalid)"
	}
	return fmt.Sprintf("Id(type=%d slot=%d stamp=%d)", id.Type, id.SlotIndex, id.UniqueStamp)
}
