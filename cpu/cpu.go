package cpu

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"
	"math/bits"

	"github.com/timbot1789/intel-8080-emu/device"
)

// Device is a port-mapped I/O device interface.
type Device device.Device

var _cpu_defines = map[string]string{
	"MEMORY_SIZE": fmt.Sprintf("%#v", MEMORY_SIZE),
}

// Conditions holds the processor condition bits.
// The auxiliary carry is not modeled.
type Conditions struct {
	Carry  bool // Set when a result carries or borrows out of bit 7.
	Sign   bool // Set when bit 7 of the result is set.
	Zero   bool // Set when the result is zero.
	Parity bool // Set when the result has even parity.
}

// Cpu is the Intel 8080 processor simulation.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	A, B, C, D, E, H, L uint8  // Register bank.
	SP                  uint16 // Stack pointer.
	PC                  uint16 // Program counter.

	Cond             Conditions // Condition bits.
	Halted           bool       // Set by HLT.
	InterruptEnabled bool       // Set by EI, cleared by DI.

	Memory *Memory // Flat 64 KiB address space.

	Ticks int // Retired instruction counter.

	device [256]device.Device // Port-mapped I/O devices.
}

// NewCpu creates a new CPU with a zeroed 64 KiB memory.
func NewCpu() (cpu *Cpu) {
	cpu = &Cpu{
		Memory: NewMemory(),
	}

	return
}

// Defines for the cpu.
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Reset the CPU state.
// - Clears the registers, condition bits, and memory.
// - Zeros the tick counter.
// - Resets all attached devices.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	cpu.A, cpu.B, cpu.C, cpu.D, cpu.E, cpu.H, cpu.L = 0, 0, 0, 0, 0, 0, 0
	cpu.SP = 0
	cpu.PC = 0
	cpu.Cond = Conditions{}
	cpu.Halted = false
	cpu.InterruptEnabled = false
	cpu.Ticks = 0
	cpu.Memory.Reset()

	for _, dev := range cpu.device {
		if dev != nil {
			dev.Reset()
		}
	}
}

// SetDevice attaches a device model to a port, or detaches it when nil.
func (cpu *Cpu) SetDevice(port uint8, dev Device) {
	cpu.device[port] = dev
}

// GetDevice gets the device model attached to a port.
func (cpu *Cpu) GetDevice(port uint8) (dev Device, err error) {
	dev = cpu.device[port]
	if dev == nil {
		err = ErrPortInvalid
	}

	return
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	regs := []string{
		"a", "bc", "de", "hl",
		"sp", "pc",
		"flags", "halted",
	}
	for _, reg := range regs {
		var strval string
		switch reg {
		case "a":
			strval = fmt.Sprintf("%02x", cpu.A)
		case "bc":
			strval = fmt.Sprintf("%04x", cpu.pairValue(PAIR_BC))
		case "de":
			strval = fmt.Sprintf("%04x", cpu.pairValue(PAIR_DE))
		case "hl":
			strval = fmt.Sprintf("%04x", cpu.pairValue(PAIR_HL))
		case "sp":
			strval = fmt.Sprintf("%04x", cpu.SP)
		case "pc":
			strval = fmt.Sprintf("%04x", cpu.PC)
		case "flags":
			marks := []byte("----")
			if cpu.Cond.Carry {
				marks[0] = 'c'
			}
			if cpu.Cond.Zero {
				marks[1] = 'z'
			}
			if cpu.Cond.Sign {
				marks[2] = 's'
			}
			if cpu.Cond.Parity {
				marks[3] = 'p'
			}
			strval = string(marks)
		case "halted":
			strval = "false"
			if cpu.Halted {
				strval = "true"
			}
		}
		text += fmt.Sprintf("% 6s: %v\n", reg, strval)
	}

	return
}

// getReg reads a register operand. REG_M reads memory at HL.
func (cpu *Cpu) getReg(reg Reg) uint8 {
	switch reg {
	case REG_B:
		return cpu.B
	case REG_C:
		return cpu.C
	case REG_D:
		return cpu.D
	case REG_E:
		return cpu.E
	case REG_H:
		return cpu.H
	case REG_L:
		return cpu.L
	case REG_M:
		return cpu.Memory.Read(cpu.pairValue(PAIR_HL))
	default:
		return cpu.A
	}
}

// setReg writes a register operand. REG_M writes memory at HL.
func (cpu *Cpu) setReg(reg Reg, value uint8) {
	switch reg {
	case REG_B:
		cpu.B = value
	case REG_C:
		cpu.C = value
	case REG_D:
		cpu.D = value
	case REG_E:
		cpu.E = value
	case REG_H:
		cpu.H = value
	case REG_L:
		cpu.L = value
	case REG_M:
		cpu.Memory.Write(cpu.pairValue(PAIR_HL), value)
	default:
		cpu.A = value
	}
}

// pairValue reads a register pair as a 16-bit value.
func (cpu *Cpu) pairValue(pair RegPair) uint16 {
	switch pair {
	case PAIR_BC:
		return (uint16(cpu.B) << 8) | uint16(cpu.C)
	case PAIR_DE:
		return (uint16(cpu.D) << 8) | uint16(cpu.E)
	case PAIR_HL:
		return (uint16(cpu.H) << 8) | uint16(cpu.L)
	default:
		return cpu.SP
	}
}

// setPair writes a 16-bit value to a register pair.
func (cpu *Cpu) setPair(pair RegPair, value uint16) {
	high := uint8(value >> 8)
	low := uint8(value & 0xff)

	switch pair {
	case PAIR_BC:
		cpu.B, cpu.C = high, low
	case PAIR_DE:
		cpu.D, cpu.E = high, low
	case PAIR_HL:
		cpu.H, cpu.L = high, low
	default:
		cpu.SP = value
	}
}

// fetchByte consumes the operand byte at PC.
func (cpu *Cpu) fetchByte() (value uint8) {
	value = cpu.Memory.Read(cpu.PC)
	cpu.PC++
	return
}

// fetchWord consumes the little-endian operand word at PC.
func (cpu *Cpu) fetchWord() (value uint16) {
	low := uint16(cpu.fetchByte())
	high := uint16(cpu.fetchByte())
	value = (high << 8) | low
	return
}

// pushByte stores a byte below the stack pointer.
func (cpu *Cpu) pushByte(value uint8) {
	cpu.SP--
	cpu.Memory.Write(cpu.SP, value)
}

// popByte loads the byte at the stack pointer.
func (cpu *Cpu) popByte() (value uint8) {
	value = cpu.Memory.Read(cpu.SP)
	cpu.SP++
	return
}

// pushWord stores a word on the stack, high byte at the higher address.
func (cpu *Cpu) pushWord(value uint16) {
	cpu.pushByte(uint8(value >> 8))
	cpu.pushByte(uint8(value & 0xff))
}

// popWord loads a word from the stack.
func (cpu *Cpu) popWord() (value uint16) {
	low := uint16(cpu.popByte())
	high := uint16(cpu.popByte())
	value = (high << 8) | low
	return
}

// parity reports even parity of a byte.
func parity(value uint8) bool {
	return bits.OnesCount8(value)%2 == 0
}

// setSZP updates the sign, zero, and parity bits from a result.
func (cpu *Cpu) setSZP(result uint8) {
	cpu.Cond.Sign = (result & 0x80) != 0
	cpu.Cond.Zero = result == 0
	cpu.Cond.Parity = parity(result)
}

// addAcc adds a value (plus optional carry-in) to the accumulator.
func (cpu *Cpu) addAcc(value uint8, carry bool) {
	total := uint16(cpu.A) + uint16(value)
	if carry {
		total++
	}
	cpu.Cond.Carry = total > 0xff
	cpu.A = uint8(total & 0xff)
	cpu.setSZP(cpu.A)
}

// subAcc subtracts a value (plus optional borrow-in) from the
// accumulator. Carry is set when a borrow occurs.
func (cpu *Cpu) subAcc(value uint8, borrow bool) {
	total := uint16(value)
	if borrow {
		total++
	}
	cpu.Cond.Carry = uint16(cpu.A) < total
	cpu.A = uint8((uint16(cpu.A) - total) & 0xff)
	cpu.setSZP(cpu.A)
}

// compareAcc sets the condition bits for accumulator minus value,
// without storing the difference.
func (cpu *Cpu) compareAcc(value uint8) {
	diff := cpu.A - value
	cpu.Cond.Carry = cpu.A < value
	cpu.setSZP(diff)
}

// logicalAcc stores a logical result in the accumulator and clears carry.
func (cpu *Cpu) logicalAcc(result uint8) {
	cpu.A = result
	cpu.Cond.Carry = false
	cpu.setSZP(result)
}

// doAlu performs an accumulator ALU operation against a value.
func (cpu *Cpu) doAlu(op CodeAluOp, value uint8) {
	switch op {
	case ALU_OP_ADD:
		cpu.addAcc(value, false)
	case ALU_OP_ADC:
		cpu.addAcc(value, cpu.Cond.Carry)
	case ALU_OP_SUB:
		cpu.subAcc(value, false)
	case ALU_OP_SBB:
		cpu.subAcc(value, cpu.Cond.Carry)
	case ALU_OP_ANA:
		cpu.logicalAcc(cpu.A & value)
	case ALU_OP_XRA:
		cpu.logicalAcc(cpu.A ^ value)
	case ALU_OP_ORA:
		cpu.logicalAcc(cpu.A | value)
	case ALU_OP_CMP:
		cpu.compareAcc(value)
	}
}

// doRotate performs an accumulator rotate.
func (cpu *Cpu) doRotate(op CodeRotOp) {
	a := cpu.A

	switch op {
	case ROT_OP_RLC:
		cpu.A = (a << 1) | (a >> 7)
		cpu.Cond.Carry = (a >> 7) != 0
	case ROT_OP_RRC:
		cpu.A = (a >> 1) | (a << 7)
		cpu.Cond.Carry = (a & 1) != 0
	case ROT_OP_RAL:
		var in uint8
		if cpu.Cond.Carry {
			in = 1
		}
		cpu.A = (a << 1) | in
		cpu.Cond.Carry = (a >> 7) != 0
	case ROT_OP_RAR:
		var in uint8
		if cpu.Cond.Carry {
			in = 0x80
		}
		cpu.A = (a >> 1) | in
		cpu.Cond.Carry = (a & 1) != 0
	}
}

// condMet evaluates a branch condition field against the condition bits.
func (cpu *Cpu) condMet(cond CodeCond) bool {
	switch cond {
	case COND_NZ:
		return !cpu.Cond.Zero
	case COND_Z:
		return cpu.Cond.Zero
	case COND_NC:
		return !cpu.Cond.Carry
	case COND_C:
		return cpu.Cond.Carry
	case COND_PO:
		return !cpu.Cond.Parity
	case COND_PE:
		return cpu.Cond.Parity
	case COND_P:
		return !cpu.Cond.Sign
	default:
		return cpu.Cond.Sign
	}
}

// flagsByte packs the condition bits into the PSW flag byte layout.
// Bit 1 always reads as set; the unmodeled auxiliary carry reads clear.
func (cpu *Cpu) flagsByte() (value uint8) {
	value = 0x02
	if cpu.Cond.Carry {
		value |= 0x01
	}
	if cpu.Cond.Parity {
		value |= 0x04
	}
	if cpu.Cond.Zero {
		value |= 0x40
	}
	if cpu.Cond.Sign {
		value |= 0x80
	}
	return
}

// setFlagsByte unpacks a PSW flag byte into the condition bits.
func (cpu *Cpu) setFlagsByte(value uint8) {
	cpu.Cond.Carry = (value & 0x01) != 0
	cpu.Cond.Parity = (value & 0x04) != 0
	cpu.Cond.Zero = (value & 0x40) != 0
	cpu.Cond.Sign = (value & 0x80) != 0
}

// call pushes the return address and transfers control.
func (cpu *Cpu) call(addr uint16) {
	cpu.pushWord(cpu.PC)
	cpu.PC = addr
}

// Tick fetches and executes a single instruction.
func (cpu *Cpu) Tick() (err error) {
	if cpu.Halted {
		err = ErrCpuHalted
		return
	}

	pc := cpu.PC
	code := Code(cpu.Memory.Read(pc))
	cpu.PC++

	if cpu.Verbose {
		log.Printf("%04x: %v", pc, code)
	}

	err = cpu.Execute(code)
	if err != nil {
		return
	}

	cpu.Ticks++

	return
}

// Execute executes a single decoded instruction. Operand bytes are
// consumed from PC.
func (cpu *Cpu) Execute(code Code) (err error) {
	defer func() {
		if err != nil {
			err = errors.Join(ErrOpcode(code), err)
		}
	}()

	switch {
	case code == CODE_NOP:
		// pass
	case code == CODE_HLT:
		cpu.Halted = true
	case uint8(code)&0xc0 == 0x40: // mov
		cpu.setReg(code.Dst(), cpu.getReg(code.Src()))
	case uint8(code)&0xc7 == 0x06: // mvi
		cpu.setReg(code.Dst(), cpu.fetchByte())
	case uint8(code)&0xcf == 0x01: // lxi
		cpu.setPair(code.Pair(), cpu.fetchWord())
	case uint8(code)&0xc7 == 0x04: // inr
		value := cpu.getReg(code.Dst()) + 1
		cpu.setReg(code.Dst(), value)
		cpu.setSZP(value)
	case uint8(code)&0xc7 == 0x05: // dcr
		value := cpu.getReg(code.Dst()) - 1
		cpu.setReg(code.Dst(), value)
		cpu.setSZP(value)
	case uint8(code)&0xcf == 0x03: // inx
		cpu.setPair(code.Pair(), cpu.pairValue(code.Pair())+1)
	case uint8(code)&0xcf == 0x0b: // dcx
		cpu.setPair(code.Pair(), cpu.pairValue(code.Pair())-1)
	case uint8(code)&0xcf == 0x09: // dad
		sum := uint32(cpu.pairValue(PAIR_HL)) + uint32(cpu.pairValue(code.Pair()))
		cpu.Cond.Carry = sum > 0xffff
		cpu.setPair(PAIR_HL, uint16(sum&0xffff))
	case uint8(code)&0xef == 0x0a: // ldax
		cpu.A = cpu.Memory.Read(cpu.pairValue(code.Pair()))
	case uint8(code)&0xef == 0x02: // stax
		cpu.Memory.Write(cpu.pairValue(code.Pair()), cpu.A)
	case uint8(code)&0xe7 == 0x07: // rotates
		cpu.doRotate(code.RotOp())
	case code == CODE_SHLD:
		cpu.Memory.WriteWord(cpu.fetchWord(), cpu.pairValue(PAIR_HL))
	case code == CODE_LHLD:
		cpu.setPair(PAIR_HL, cpu.Memory.ReadWord(cpu.fetchWord()))
	case code == CODE_STA:
		cpu.Memory.Write(cpu.fetchWord(), cpu.A)
	case code == CODE_LDA:
		cpu.A = cpu.Memory.Read(cpu.fetchWord())
	case code == CODE_CMA:
		cpu.A = ^cpu.A
	case code == CODE_STC:
		cpu.Cond.Carry = true
	case code == CODE_CMC:
		cpu.Cond.Carry = !cpu.Cond.Carry
	case uint8(code)&0xc0 == 0x80: // alu register
		cpu.doAlu(code.AluOp(), cpu.getReg(code.Src()))
	case uint8(code)&0xc7 == 0xc6: // alu immediate
		cpu.doAlu(code.AluOp(), cpu.fetchByte())
	case code == CODE_JMP:
		cpu.PC = cpu.fetchWord()
	case uint8(code)&0xc7 == 0xc2: // jcc
		addr := cpu.fetchWord()
		if cpu.condMet(code.Cond()) {
			cpu.PC = addr
		}
	case code == CODE_CALL:
		cpu.call(cpu.fetchWord())
	case uint8(code)&0xc7 == 0xc4: // ccc
		addr := cpu.fetchWord()
		if cpu.condMet(code.Cond()) {
			cpu.call(addr)
		}
	case code == CODE_RET:
		cpu.PC = cpu.popWord()
	case uint8(code)&0xc7 == 0xc0: // rcc
		if cpu.condMet(code.Cond()) {
			cpu.PC = cpu.popWord()
		}
	case uint8(code)&0xcf == 0xc5: // push
		if code.Pair() == PAIR_SP {
			cpu.pushByte(cpu.A)
			cpu.pushByte(cpu.flagsByte())
		} else {
			cpu.pushWord(cpu.pairValue(code.Pair()))
		}
	case uint8(code)&0xcf == 0xc1: // pop
		if code.Pair() == PAIR_SP {
			cpu.setFlagsByte(cpu.popByte())
			cpu.A = cpu.popByte()
		} else {
			cpu.setPair(code.Pair(), cpu.popWord())
		}
	case code == CODE_XTHL:
		hl := cpu.pairValue(PAIR_HL)
		cpu.setPair(PAIR_HL, cpu.Memory.ReadWord(cpu.SP))
		cpu.Memory.WriteWord(cpu.SP, hl)
	case code == CODE_PCHL:
		cpu.PC = cpu.pairValue(PAIR_HL)
	case code == CODE_SPHL:
		cpu.SP = cpu.pairValue(PAIR_HL)
	case code == CODE_XCHG:
		de := cpu.pairValue(PAIR_DE)
		cpu.setPair(PAIR_DE, cpu.pairValue(PAIR_HL))
		cpu.setPair(PAIR_HL, de)
	case code == CODE_OUT:
		port := cpu.fetchByte()
		var dev Device
		dev, err = cpu.GetDevice(port)
		if err != nil {
			return
		}
		err = dev.Out(port, cpu.A)
	case code == CODE_IN:
		port := cpu.fetchByte()
		var dev Device
		dev, err = cpu.GetDevice(port)
		if err != nil {
			return
		}
		cpu.A, err = dev.In(port)
	case code == CODE_DI:
		cpu.InterruptEnabled = false
	case code == CODE_EI:
		cpu.InterruptEnabled = true
	default:
		err = ErrOpcodeUnimplemented
	}

	return
}
