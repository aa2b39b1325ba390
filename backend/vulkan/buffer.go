// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vulkan

import (
	"fmt"

	vk "github.com/devblok/vulkan"
)

// NewBuffer creates, configures, allocates and binds a new host visible
// buffer.
func NewBuffer(dev vk.Device, size uint, usage vk.BufferUsageFlagBits, ma *MemoryAllocator) (Buffer, error) {
	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}

	var buffer vk.Buffer
	if err := vk.Error(vk.CreateBuffer(dev, &createInfo, nil, &buffer)); err != nil {
		return Buffer{}, fmt.Errorf("vk.CreateBuffer(): %w", err)
	}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(dev, buffer, &req)
	req.Deref()

	memory, err := ma.Malloc(req, vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if err != nil {
		vk.DestroyBuffer(dev, buffer, nil)
		return Buffer{}, err
	}
	if err := vk.Error(vk.BindBufferMemory(dev, buffer, memory.Get(), vk.DeviceSize(memory.Offset()))); err != nil {
		vk.DestroyBuffer(dev, buffer, nil)
		ma.Free(&memory)
		return Buffer{}, fmt.Errorf("vk.BindBufferMemory(): %w", err)
	}

	return Buffer{
		device:    dev,
		buffer:    buffer,
		memory:    memory,
		allocator: ma,
		size:      size,
	}, nil
}

// Buffer implements a generic vulkan buffer.
type Buffer struct {
	device    vk.Device
	buffer    vk.Buffer
	memory    Memory
	allocator *MemoryAllocator
	size      uint
}

// Mem returns the Memory that the buffer is based on.
func (b *Buffer) Mem() *Memory {
	return &b.memory
}

// Get returns the vulkan Buffer handle.
func (b *Buffer) Get() vk.Buffer {
	return b.buffer
}

// Size returns the requested size, the memory may be larger
func (b *Buffer) Size() uint {
	return b.size
}

// Valid returns false for the zero Buffer
func (b *Buffer) Valid() bool {
	return b.buffer != nil
}

// Release destroys the buffer and memory asociated with it.
func (b *Buffer) Release() {
	if !b.Valid() {
		return
	}
	vk.DestroyBuffer(b.device, b.buffer, nil)
	b.allocator.Free(&b.memory)
	b.buffer = nil
}
