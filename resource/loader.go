// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

// Loader creates a resource asynchronously. Start reserves the resource
// in Pending state and returns its id, Continue is polled once per frame
// and must not block, Cancel abandons the work.
type Loader interface {
	Locator() Locator
	Start() Id
	Continue() State
	Cancel()
}
