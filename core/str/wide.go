// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package str

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/text/encoding/unicode"
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// WideString is an immutable UTF-16 string, used where platform APIs or
// file formats want wide characters.
type WideString struct {
	units []uint16
}

// NewWideString converts a UTF-8 string to UTF-16.
func NewWideString(s string) (WideString, error) {
	encoded, err := utf16le.NewEncoder().String(s)
	if err != nil {
		return WideString{}, fmt.Errorf("str.NewWideString(): %w", err)
	}
	return decodeUnits([]byte(encoded)), nil
}

// DecodeWideString reads UTF-16LE bytes, an odd trailing byte is an error.
func DecodeWideString(b []byte) (WideString, error) {
	if len(b)%2 != 0 {
		return WideString{}, fmt.Errorf("str.DecodeWideString(): odd byte count %d", len(b))
	}
	return decodeUnits(b), nil
}

func decodeUnits(b []byte) WideString {
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[2*i:])
	}
	return WideString{units: units}
}

// Len returns the number of UTF-16 code units.
func (w WideString) Len() int {
	return len(w.units)
}

// Empty returns true if there are no code units.
func (w WideString) Empty() bool {
	return len(w.units) == 0
}

// Units returns a copy of the code units.
func (w WideString) Units() []uint16 {
	return append([]uint16(nil), w.units...)
}

// Bytes returns the UTF-16LE encoding.
func (w WideString) Bytes() []byte {
	b := make([]byte, 2*len(w.units))
	for i, u := range w.units {
		binary.LittleEndian.PutUint16(b[2*i:], u)
	}
	return b
}

// String converts back to UTF-8.
func (w WideString) String() string {
	decoded, err := utf16le.NewDecoder().Bytes(w.Bytes())
	if err != nil {
		return ""
	}
	return string(decoded)
}
