package cpu

import (
	"github.com/timbot1789/intel-8080-emu/mem"
)

const (
	MEMORY_SIZE = 0x10000 // Full 16-bit address space.
)

// Memory is the flat 64 KiB address space of the machine.
// The uint16 address type makes every access in-bounds by construction.
type Memory struct {
	Data []byte
}

// NewMemory creates a zeroed 64 KiB memory.
func NewMemory() (m *Memory) {
	m = &Memory{
		Data: make([]byte, MEMORY_SIZE),
	}

	return
}

// Reset zeroes the memory contents.
func (m *Memory) Reset() {
	clear(m.Data)
}

// Read returns the byte at addr.
func (m *Memory) Read(addr uint16) uint8 {
	return m.Data[addr]
}

// Write stores value at addr.
func (m *Memory) Write(addr uint16, value uint8) {
	m.Data[addr] = value
}

// ReadWord returns the little-endian 16-bit word at addr.
func (m *Memory) ReadWord(addr uint16) uint16 {
	low := uint16(m.Read(addr))
	high := uint16(m.Read(addr + 1))
	return (high << 8) | low
}

// WriteWord stores a 16-bit word at addr, low byte first.
func (m *Memory) WriteWord(addr uint16, value uint16) {
	m.Write(addr, uint8(value&0xff))
	m.Write(addr+1, uint8(value>>8))
}

// Load copies a program image into memory at origin.
func (m *Memory) Load(origin uint16, image []byte) (err error) {
	if int(origin)+len(image) > MEMORY_SIZE {
		err = ErrImageTooLarge
		return
	}

	err = mem.CopyBytes(image, m.Data[int(origin):], len(image))

	return
}
