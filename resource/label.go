// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import "fmt"

// Label tags resources at creation so they can be destroyed together.
type Label uint32

const (
	// LabelDefault sits at the bottom of every label stack.
	LabelDefault Label = 0x7FFFFFFF
	// LabelAll matches every resource in Remove and Destroy.
	LabelAll Label = 0xFFFFFFFE
	// LabelInvalid is never attached to a resource.
	LabelInvalid Label = 0xFFFFFFFF
)

// IsValid returns false for LabelInvalid.
func (l Label) IsValid() bool {
	return l != LabelInvalid
}

func (l Label) String() string {
	switch l {
	case LabelDefault:
		return "default"
	case LabelAll:
		return "all"
	case LabelInvalid:
		return "invalid"
	}
	return fmt.Sprintf("label(%d)", uint32(l))
}
