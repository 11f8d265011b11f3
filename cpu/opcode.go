package cpu

import (
	"fmt"
)

// Reg is a register operand field value.
type Reg int

const (
	REG_B = Reg(0) // b
	REG_C = Reg(1) // c
	REG_D = Reg(2) // d
	REG_E = Reg(3) // e
	REG_H = Reg(4) // h
	REG_L = Reg(5) // l
	REG_M = Reg(6) // m - memory at HL
	REG_A = Reg(7) // a
)

var regNames = [8]string{"b", "c", "d", "e", "h", "l", "m", "a"}

func (reg Reg) String() string {
	return regNames[int(reg)&7]
}

// RegPair is a register pair operand field value.
type RegPair int

const (
	PAIR_BC = RegPair(0) // b
	PAIR_DE = RegPair(1) // d
	PAIR_HL = RegPair(2) // h
	PAIR_SP = RegPair(3) // sp - psw on push/pop
)

var pairNames = [4]string{"b", "d", "h", "sp"}

func (pair RegPair) String() string {
	return pairNames[int(pair)&3]
}

// StackName is the mnemonic for the pair in push/pop context, where
// encoding 3 selects the accumulator and flags instead of SP.
func (pair RegPair) StackName() string {
	if pair == PAIR_SP {
		return "psw"
	}
	return pair.String()
}

// CodeCond is a branch condition field value.
type CodeCond int

const (
	COND_NZ = CodeCond(0) // nz
	COND_Z  = CodeCond(1) // z
	COND_NC = CodeCond(2) // nc
	COND_C  = CodeCond(3) // c
	COND_PO = CodeCond(4) // po
	COND_PE = CodeCond(5) // pe
	COND_P  = CodeCond(6) // p
	COND_M  = CodeCond(7) // m
)

var condNames = [8]string{"nz", "z", "nc", "c", "po", "pe", "p", "m"}

func (cond CodeCond) String() string {
	return condNames[int(cond)&7]
}

// CodeAluOp is an accumulator ALU operation field value.
type CodeAluOp int

const (
	ALU_OP_ADD = CodeAluOp(0) // add
	ALU_OP_ADC = CodeAluOp(1) // adc
	ALU_OP_SUB = CodeAluOp(2) // sub
	ALU_OP_SBB = CodeAluOp(3) // sbb
	ALU_OP_ANA = CodeAluOp(4) // ana
	ALU_OP_XRA = CodeAluOp(5) // xra
	ALU_OP_ORA = CodeAluOp(6) // ora
	ALU_OP_CMP = CodeAluOp(7) // cmp
)

var aluNames = [8]string{"add", "adc", "sub", "sbb", "ana", "xra", "ora", "cmp"}
var aluImmNames = [8]string{"adi", "aci", "sui", "sbi", "ani", "xri", "ori", "cpi"}

func (op CodeAluOp) String() string {
	return aluNames[int(op)&7]
}

// CodeRotOp is a rotate operation field value.
type CodeRotOp int

const (
	ROT_OP_RLC = CodeRotOp(0) // rlc
	ROT_OP_RRC = CodeRotOp(1) // rrc
	ROT_OP_RAL = CodeRotOp(2) // ral
	ROT_OP_RAR = CodeRotOp(3) // rar
)

var rotNames = [4]string{"rlc", "rrc", "ral", "rar"}

func (op CodeRotOp) String() string {
	return rotNames[int(op)&3]
}

// Code is a single 8080 instruction byte. Operand bytes, if any,
// follow it in memory (Size reports the full instruction length).
type Code uint8

// Fixed single-byte instructions.
const (
	CODE_NOP  = Code(0x00)
	CODE_HLT  = Code(0x76)
	CODE_SHLD = Code(0x22)
	CODE_LHLD = Code(0x2a)
	CODE_STA  = Code(0x32)
	CODE_LDA  = Code(0x3a)
	CODE_CMA  = Code(0x2f)
	CODE_STC  = Code(0x37)
	CODE_CMC  = Code(0x3f)
	CODE_JMP  = Code(0xc3)
	CODE_CALL = Code(0xcd)
	CODE_RET  = Code(0xc9)
	CODE_OUT  = Code(0xd3)
	CODE_IN   = Code(0xdb)
	CODE_XTHL = Code(0xe3)
	CODE_PCHL = Code(0xe9)
	CODE_SPHL = Code(0xf9)
	CODE_XCHG = Code(0xeb)
	CODE_DI   = Code(0xf3)
	CODE_EI   = Code(0xfb)
)

// MakeCodeMov creates a register-to-register move instruction.
func MakeCodeMov(dst, src Reg) Code {
	return Code(0x40 | (uint8(dst) << 3) | uint8(src))
}

// MakeCodeMvi creates a move-immediate instruction.
func MakeCodeMvi(dst Reg) Code {
	return Code(0x06 | (uint8(dst) << 3))
}

// MakeCodeLxi creates a load-pair-immediate instruction.
func MakeCodeLxi(pair RegPair) Code {
	return Code(0x01 | (uint8(pair) << 4))
}

// MakeCodeInr creates a register increment instruction.
func MakeCodeInr(reg Reg) Code {
	return Code(0x04 | (uint8(reg) << 3))
}

// MakeCodeDcr creates a register decrement instruction.
func MakeCodeDcr(reg Reg) Code {
	return Code(0x05 | (uint8(reg) << 3))
}

// MakeCodeInx creates a pair increment instruction.
func MakeCodeInx(pair RegPair) Code {
	return Code(0x03 | (uint8(pair) << 4))
}

// MakeCodeDcx creates a pair decrement instruction.
func MakeCodeDcx(pair RegPair) Code {
	return Code(0x0b | (uint8(pair) << 4))
}

// MakeCodeDad creates a pair-to-HL add instruction.
func MakeCodeDad(pair RegPair) Code {
	return Code(0x09 | (uint8(pair) << 4))
}

// MakeCodeLdax creates a load-accumulator-indirect instruction (BC or DE).
func MakeCodeLdax(pair RegPair) Code {
	return Code(0x0a | (uint8(pair) << 4))
}

// MakeCodeStax creates a store-accumulator-indirect instruction (BC or DE).
func MakeCodeStax(pair RegPair) Code {
	return Code(0x02 | (uint8(pair) << 4))
}

// MakeCodeRot creates an accumulator rotate instruction.
func MakeCodeRot(op CodeRotOp) Code {
	return Code(0x07 | (uint8(op) << 3))
}

// MakeCodeAlu creates a register ALU instruction.
func MakeCodeAlu(op CodeAluOp, src Reg) Code {
	return Code(0x80 | (uint8(op) << 3) | uint8(src))
}

// MakeCodeAluImm creates an immediate ALU instruction.
func MakeCodeAluImm(op CodeAluOp) Code {
	return Code(0xc6 | (uint8(op) << 3))
}

// MakeCodeJump creates a conditional jump instruction.
func MakeCodeJump(cond CodeCond) Code {
	return Code(0xc2 | (uint8(cond) << 3))
}

// MakeCodeCall creates a conditional call instruction.
func MakeCodeCall(cond CodeCond) Code {
	return Code(0xc4 | (uint8(cond) << 3))
}

// MakeCodeRet creates a conditional return instruction.
func MakeCodeRet(cond CodeCond) Code {
	return Code(0xc0 | (uint8(cond) << 3))
}

// MakeCodePush creates a stack push instruction.
func MakeCodePush(pair RegPair) Code {
	return Code(0xc5 | (uint8(pair) << 4))
}

// MakeCodePop creates a stack pop instruction.
func MakeCodePop(pair RegPair) Code {
	return Code(0xc1 | (uint8(pair) << 4))
}

// Dst returns the destination register field (bits 3..5).
func (code Code) Dst() Reg {
	return Reg((uint8(code) >> 3) & 7)
}

// Src returns the source register field (bits 0..2).
func (code Code) Src() Reg {
	return Reg(uint8(code) & 7)
}

// Pair returns the register pair field (bits 4..5).
func (code Code) Pair() RegPair {
	return RegPair((uint8(code) >> 4) & 3)
}

// Cond returns the branch condition field (bits 3..5).
func (code Code) Cond() CodeCond {
	return CodeCond((uint8(code) >> 3) & 7)
}

// AluOp returns the ALU operation field (bits 3..5).
func (code Code) AluOp() CodeAluOp {
	return CodeAluOp((uint8(code) >> 3) & 7)
}

// RotOp returns the rotate operation field (bits 3..4).
func (code Code) RotOp() CodeRotOp {
	return CodeRotOp((uint8(code) >> 3) & 3)
}

// Size returns the full instruction length in bytes, including any
// operand bytes that follow the code.
func (code Code) Size() int {
	switch {
	case code&0xc7 == 0x06: // mvi
		return 2
	case code&0xc7 == 0xc6: // alu immediate
		return 2
	case code == CODE_IN || code == CODE_OUT:
		return 2
	case code&0xcf == 0x01: // lxi
		return 3
	case code == CODE_STA || code == CODE_LDA || code == CODE_SHLD || code == CODE_LHLD:
		return 3
	case code == CODE_JMP || code == CODE_CALL:
		return 3
	case code&0xc7 == 0xc2 || code&0xc7 == 0xc4: // jcc, ccc
		return 3
	default:
		return 1
	}
}

// String returns the assembly mnemonic for this instruction byte.
// Operand values live in the following bytes and are not shown.
func (code Code) String() string {
	switch {
	case code == CODE_NOP:
		return "nop"
	case code == CODE_HLT:
		return "hlt"
	case code&0xc0 == 0x40:
		return fmt.Sprintf("mov %v %v", code.Dst(), code.Src())
	case code&0xc7 == 0x06:
		return fmt.Sprintf("mvi %v", code.Dst())
	case code&0xcf == 0x01:
		return fmt.Sprintf("lxi %v", code.Pair())
	case code&0xc7 == 0x04:
		return fmt.Sprintf("inr %v", code.Dst())
	case code&0xc7 == 0x05:
		return fmt.Sprintf("dcr %v", code.Dst())
	case code&0xcf == 0x03:
		return fmt.Sprintf("inx %v", code.Pair())
	case code&0xcf == 0x0b:
		return fmt.Sprintf("dcx %v", code.Pair())
	case code&0xcf == 0x09:
		return fmt.Sprintf("dad %v", code.Pair())
	case code&0xef == 0x0a:
		return fmt.Sprintf("ldax %v", code.Pair())
	case code&0xef == 0x02:
		return fmt.Sprintf("stax %v", code.Pair())
	case code&0xe7 == 0x07:
		return code.RotOp().String()
	case code == CODE_SHLD:
		return "shld"
	case code == CODE_LHLD:
		return "lhld"
	case code == CODE_STA:
		return "sta"
	case code == CODE_LDA:
		return "lda"
	case code == CODE_CMA:
		return "cma"
	case code == CODE_STC:
		return "stc"
	case code == CODE_CMC:
		return "cmc"
	case code&0xc0 == 0x80:
		return fmt.Sprintf("%v %v", code.AluOp(), code.Src())
	case code&0xc7 == 0xc6:
		return aluImmNames[int(code.AluOp())]
	case code == CODE_JMP:
		return "jmp"
	case code&0xc7 == 0xc2:
		return "j" + code.Cond().String()
	case code == CODE_CALL:
		return "call"
	case code&0xc7 == 0xc4:
		return "c" + code.Cond().String()
	case code == CODE_RET:
		return "ret"
	case code&0xc7 == 0xc0:
		return "r" + code.Cond().String()
	case code&0xcf == 0xc5:
		return fmt.Sprintf("push %v", code.Pair().StackName())
	case code&0xcf == 0xc1:
		return fmt.Sprintf("pop %v", code.Pair().StackName())
	case code == CODE_OUT:
		return "out"
	case code == CODE_IN:
		return "in"
	case code == CODE_XTHL:
		return "xthl"
	case code == CODE_PCHL:
		return "pchl"
	case code == CODE_SPHL:
		return "sphl"
	case code == CODE_XCHG:
		return "xchg"
	case code == CODE_DI:
		return "di"
	case code == CODE_EI:
		return "ei"
	default:
		return fmt.Sprintf("db 0x%02x", uint8(code))
	}
}

// Opcode represents a line of assembled code with its source location
// and generated instruction bytes.
type Opcode struct {
	LineNo    int
	Addr      int
	Words     []string
	Bytes     []byte
	LinkLabel string
}
