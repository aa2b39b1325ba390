// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import "github.com/koru3d/koru/core/containers"

// ContainerBase keeps the label stack and the registry of a resource
// container. New resources are registered under the label on top of the
// stack, LabelDefault is always at the bottom.
type ContainerBase struct {
	valid     bool
	labels    containers.ElementBuffer[Label]
	nextLabel Label
	Registry  Registry
}

// Setup prepares the label stack and the registry.
func (c *ContainerBase) Setup(labelStackCapacity, registryCapacity int) {
	if c.valid {
		panic("resource.ContainerBase.Setup(): already set up")
	}
	if labelStackCapacity < 1 {
		panic("resource.ContainerBase.Setup(): label stack needs room for the default label")
	}
	c.labels.Reallocate(labelStackCapacity, 0)
	c.labels.PushBack(LabelDefault)
	c.Registry.Setup(registryCapacity)
	c.valid = true
}

// Discard tears the registry down. All pushed labels must be popped.
func (c *ContainerBase) Discard() {
	c.mustBeValid("Discard")
	if c.labels.Size() != 1 {
		panic("resource.ContainerBase.Discard(): label stack not empty")
	}
	c.labels.Destroy()
	c.Registry.Discard()
	c.valid = false
}

// IsValid returns true between Setup and Discard.
func (c *ContainerBase) IsValid() bool {
	return c.valid
}

// PushLabel generates a new label and pushes it.
func (c *ContainerBase) PushLabel() Label {
	c.mustBeValid("PushLabel")
	label := c.nextLabel
	c.nextLabel++
	if c.nextLabel == LabelDefault {
		c.nextLabel = 0
	}
	c.push(label)
	return label
}

// PushLabelValue pushes an explicit label.
func (c *ContainerBase) PushLabelValue(label Label) {
	c.mustBeValid("PushLabelValue")
	if label == LabelAll || !label.IsValid() {
		panic("resource.ContainerBase.PushLabelValue(): label " + label.String() + " can't be pushed")
	}
	c.push(label)
}

// PopLabel pops and returns the top label. The default label can't be
// popped.
func (c *ContainerBase) PopLabel() Label {
	c.mustBeValid("PopLabel")
	if c.labels.Size() <= 1 {
		panic("resource.ContainerBase.PopLabel(): label stack underflow")
	}
	return c.labels.PopBack()
}

// PeekLabel returns the label new resources are registered under.
func (c *ContainerBase) PeekLabel() Label {
	c.mustBeValid("PeekLabel")
	return c.labels.Back()
}

// LabelDepth returns the number of labels on the stack.
func (c *ContainerBase) LabelDepth() int {
	return c.labels.Size()
}

func (c *ContainerBase) push(label Label) {
	if c.labels.BackSpare() == 0 {
		panic("resource.ContainerBase.PushLabel(): label stack overflow")
	}
	c.labels.PushBack(label)
}

func (c *ContainerBase) mustBeValid(op string) {
	if !c.valid {
		panic("resource.ContainerBase." + op + "(): not set up")
	}
}
