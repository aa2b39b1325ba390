// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import (
	"fmt"

	"github.com/koru3d/koru/core/str"
)

const (
	// NonSharedSignature marks a locator that never deduplicates.
	NonSharedSignature uint32 = 0xFFFFFFFF
	// DefaultSignature is the signature of a plain shared locator.
	DefaultSignature uint32 = 0xFFFFFFFE
)

// Locator names the source of a resource. Two shared locators with the
// same location and signature identify the same resource, the signature
// can be used to keep otherwise identical locations apart.
// The zero Locator is non-shared.
type Locator struct {
	location  str.StringAtom
	signature uint32
}

// NewLocator returns a shared locator with the default signature.
func NewLocator(location str.StringAtom) Locator {
	return Locator{location: location, signature: DefaultSignature}
}

// NewLocatorWithSignature returns a shared locator with a custom signature.
func NewLocatorWithSignature(location str.StringAtom, signature uint32) Locator {
	return Locator{location: location, signature: signature}
}

// NonShared returns a locator without location that is never shared.
func NonShared() Locator {
	return Locator{signature: NonSharedSignature}
}

// NonSharedAt returns a named locator that is never shared.
func NonSharedAt(location str.StringAtom) Locator {
	return Locator{location: location, signature: NonSharedSignature}
}

// IsShared returns true if the locator takes part in deduplication.
// Locators without a location are never shared.
func (l Locator) IsShared() bool {
	return l.signature != NonSharedSignature && l.location.IsValid()
}

// HasValidLocation returns true if a location was given.
func (l Locator) HasValidLocation() bool {
	return l.location.IsValid()
}

// Location returns the location atom.
func (l Locator) Location() str.StringAtom {
	return l.location
}

// Signature returns the sharing signature.
func (l Locator) Signature() uint32 {
	return l.signature
}

// Equal compares location and signature.
func (l Locator) Equal(other Locator) bool {
	return l.signature == other.signature && l.location.Equal(other.location)
}

func (l Locator) String() string {
	if !l.IsShared() {
		return fmt.Sprintf("%q(non-shared)", l.location.String())
	}
	if l.signature == DefaultSignature {
		return fmt.Sprintf("%q", l.location.String())
	}
	return fmt.Sprintf("%q(sig=%d)", l.location.String(), l.signature)
}

type locatorKey struct {
	location  string
	signature uint32
}

func (l Locator) key() locatorKey {
	return locatorKey{location: l.location.String(), signature: l.signature}
}
