// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package str holds the string types used for resource naming.
//
// A StringAtom is created through an Interner. Atoms from the same
// Interner compare by pointer; atoms from different Interners are never
// the same entry and fall back to a hash and then a full string compare.
package str

import (
	"hash/fnv"
)

type atomEntry struct {
	hash  uint64
	table *Interner
	str   string
}

// Interner owns a table of unique strings. It is not safe for concurrent
// use, every goroutine that creates atoms should own its Interner.
type Interner struct {
	entries map[string]*atomEntry
}

// NewInterner creates an empty Interner.
func NewInterner() *Interner {
	return &Interner{
		entries: make(map[string]*atomEntry),
	}
}

// Intern returns the atom for s, adding it to the table if needed.
// The empty string yields the invalid atom.
func (in *Interner) Intern(s string) StringAtom {
	if s == "" {
		return StringAtom{}
	}
	if e, ok := in.entries[s]; ok {
		return StringAtom{e: e}
	}
	h := fnv.New64a()
	h.Write([]byte(s))
	e := &atomEntry{
		hash:  h.Sum64(),
		table: in,
		str:   s,
	}
	in.entries[s] = e
	return StringAtom{e: e}
}

// Len returns the number of unique strings in the table.
func (in *Interner) Len() int {
	return len(in.entries)
}

// StringAtom is an immutable interned string. The zero value is invalid.
type StringAtom struct {
	e *atomEntry
}

// IsValid returns true if the atom holds a non-empty string.
func (a StringAtom) IsValid() bool {
	return a.e != nil
}

// Empty returns true for the invalid atom.
func (a StringAtom) Empty() bool {
	return a.e == nil
}

// Len returns the length of the string in bytes.
func (a StringAtom) Len() int {
	if a.e == nil {
		return 0
	}
	return len(a.e.str)
}

// String returns the interned string.
func (a StringAtom) String() string {
	if a.e == nil {
		return ""
	}
	return a.e.str
}

// Equal compares two atoms. Atoms of the same Interner are equal only if
// they share the entry, others compare hash first and then content.
func (a StringAtom) Equal(b StringAtom) bool {
	if a.e == b.e {
		return true
	}
	if a.e == nil || b.e == nil {
		return false
	}
	if a.e.table == b.e.table {
		return false
	}
	return a.e.hash == b.e.hash && a.e.str == b.e.str
}

// EqualString compares the atom with a raw string (slow).
func (a StringAtom) EqualString(s string) bool {
	return a.String() == s
}

// Less orders atoms by content.
func (a StringAtom) Less(b StringAtom) bool {
	return a.String() < b.String()
}

// SameEntry reports whether both atoms point at one interned entry.
func (a StringAtom) SameEntry(b StringAtom) bool {
	return a.e == b.e
}
