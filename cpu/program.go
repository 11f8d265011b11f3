package cpu

import (
	"iter"
)

// Program is an assembled listing: one Opcode record per source line
// that emitted bytes.
type Program struct {
	Opcodes []Opcode
}

// Debug locates the listing record covering an address.
type Debug struct {
	*Opcode
	Index int
}

// Debug maps a memory address back to its listing record and the byte
// offset within it.
func (prog *Program) Debug(addr uint16) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if addr >= uint16(op.Addr) && addr < uint16(op.Addr)+uint16(len(op.Bytes)) {
			index := int(addr - uint16(op.Addr))
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  index,
			}
			break
		}
	}

	return
}

// Binary renders the flat memory image of the program, zero-filled
// across .org gaps, starting at address zero.
func (prog *Program) Binary() (bins []byte) {
	end := 0
	for _, op := range prog.Opcodes {
		if op.Addr+len(op.Bytes) > end {
			end = op.Addr + len(op.Bytes)
		}
	}

	bins = make([]byte, end)
	for addr, data := range prog.Codes() {
		bins[addr] = data
	}

	return
}

// Codes iterates the assembled bytes in address order.
func (prog *Program) Codes() iter.Seq2[uint16, byte] {
	return func(yield func(addr uint16, data byte) bool) {
		for _, op := range prog.Opcodes {
			addr := uint16(op.Addr)
			for n, data := range op.Bytes {
				if !yield(addr+uint16(n), data) {
					return
				}
			}
		}
	}
}
