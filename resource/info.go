// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

// Info describes a single resource.
type Info struct {
	State State `json:"state"`
	// StateAge is the number of frames since the last state change.
	StateAge int `json:"stateAge"`
}

// PoolInfo describes the occupancy of a pool.
type PoolInfo struct {
	ResourceType    uint16         `json:"resourceType"`
	NumSlots        int            `json:"numSlots"`
	NumUsedSlots    int            `json:"numUsedSlots"`
	NumFreeSlots    int            `json:"numFreeSlots"`
	NumSlotsByState [NumStates]int `json:"numSlotsByState"`
}
