// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

// State is the lifecycle state of a pooled resource.
//
// Synchronous creation goes Setup -> Valid|Failed, asynchronous creation
// goes Pending -> Valid|Failed. There is no way back from Valid.
type State int

const (
	// Initial is the state of an unused slot.
	Initial State = iota
	// Setup is the state while a resource is initialised synchronously.
	Setup
	// Pending is the state while a loader is still working.
	Pending
	// Valid resources can be used for rendering.
	Valid
	// Failed resources exist but could not be created.
	Failed
	// InvalidState is returned for ids that are not in a pool.
	InvalidState

	// NumStates is the number of states a slot can be in.
	NumStates = int(InvalidState)
)

var stateNames = [...]string{
	Initial:      "Initial",
	Setup:        "Setup",
	Pending:      "Pending",
	Valid:        "Valid",
	Failed:       "Failed",
	InvalidState: "InvalidState",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "InvalidState"
	}
	return stateNames[s]
}

// Terminal returns true for Valid and Failed.
func (s State) Terminal() bool {
	return s == Valid || s == Failed
}

// MarshalText writes the state name, used when pool info is printed as JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
