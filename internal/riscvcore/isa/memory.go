package isa

// memory.go is the data-memory surface ISA semantics need for loads and
// stores. The same FlatMemory backs core.Memory (opcode fetch, through the
// dispatch core) and MemoryAccess (load/store, through ISA semantics) --
// one physical address space, two narrower views of it.

import (
	"fmt"

	"github.com/rvexec/rvexec/internal/riscvcore/core"
)

// MemoryAccess is the physical-memory interface ISA semantics read and
// write through for loads and stores.
type MemoryAccess interface {
	ReadMemory32(paddr core.Addr) (uint32, error)
	WriteMemory32(paddr core.Addr, v uint32) error
}

// FlatMemory is a simple byte-slice-backed memory, sized to cover the
// addresses a test program touches. It implements both core.Memory and
// MemoryAccess.
type FlatMemory struct {
	bytes []byte
}

// NewFlatMemory builds a FlatMemory with size bytes, all initially zero.
func NewFlatMemory(size int) *FlatMemory {
	return &FlatMemory{bytes: make([]byte, size)}
}

// Write installs data at paddr, growing the backing slice if needed. It
// exists for test setup and image loading, not for use by ISA semantics.
func (m *FlatMemory) Write(paddr core.Addr, data []byte) {
	end := uint64(paddr) + uint64(len(data))
	if end > uint64(len(m.bytes)) {
		grown := make([]byte, end)
		copy(grown, m.bytes)
		m.bytes = grown
	}

	copy(m.bytes[uint64(paddr):end], data)
}

func (m *FlatMemory) bounds(paddr core.Addr, size uint64) error {
	if uint64(paddr)+size > uint64(len(m.bytes)) {
		return fmt.Errorf("isa: address %s out of bounds", paddr)
	}

	return nil
}

// ReadMemory16 implements core.Memory.
func (m *FlatMemory) ReadMemory16(paddr core.Addr) (uint16, error) {
	if err := m.bounds(paddr, 2); err != nil {
		return 0, err
	}

	p := uint64(paddr)

	return uint16(m.bytes[p]) | uint16(m.bytes[p+1])<<8, nil
}

// ReadMemory32 implements core.Memory and MemoryAccess.
func (m *FlatMemory) ReadMemory32(paddr core.Addr) (uint32, error) {
	if err := m.bounds(paddr, 4); err != nil {
		return 0, err
	}

	p := uint64(paddr)

	return uint32(m.bytes[p]) |
		uint32(m.bytes[p+1])<<8 |
		uint32(m.bytes[p+2])<<16 |
		uint32(m.bytes[p+3])<<24, nil
}

// WriteMemory32 implements MemoryAccess, used by the sw instruction.
func (m *FlatMemory) WriteMemory32(paddr core.Addr, v uint32) error {
	if err := m.bounds(paddr, 4); err != nil {
		return err
	}

	p := uint64(paddr)

	m.bytes[p] = byte(v)
	m.bytes[p+1] = byte(v >> 8)
	m.bytes[p+2] = byte(v >> 16)
	m.bytes[p+3] = byte(v >> 24)

	return nil
}
