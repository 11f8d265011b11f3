package cpu

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgram_Debug(t *testing.T) {
	assert := assert.New(t)

	prog := &Program{
		Opcodes: []Opcode{
			{LineNo: 1, Addr: 0, Words: []string{"mvi", "a", "0x10"},
				Bytes: []byte{uint8(MakeCodeMvi(REG_A)), 0x10}},
			{LineNo: 2, Addr: 2, Words: []string{"add", "b"},
				Bytes: []byte{uint8(MakeCodeAlu(ALU_OP_ADD, REG_B))}},
			{LineNo: 3, Addr: 3, Words: []string{"hlt"},
				Bytes: []byte{uint8(CODE_HLT)}},
		},
	}

	dbg := prog.Debug(0)
	assert.NotNil(dbg.Opcode)
	assert.Equal(1, dbg.Opcode.LineNo)
	assert.Equal(0, dbg.Index)

	dbg = prog.Debug(1)
	assert.NotNil(dbg.Opcode)
	assert.Equal(1, dbg.Opcode.LineNo)
	assert.Equal(1, dbg.Index)

	dbg = prog.Debug(2)
	assert.NotNil(dbg.Opcode)
	assert.Equal(2, dbg.Opcode.LineNo)
	assert.Equal(0, dbg.Index)

	dbg = prog.Debug(3)
	assert.NotNil(dbg.Opcode)
	assert.Equal(3, dbg.Opcode.LineNo)
}

func TestProgram_Debug_NotFound(t *testing.T) {
	assert := assert.New(t)

	prog := &Program{
		Opcodes: []Opcode{
			{LineNo: 1, Addr: 0, Words: []string{"nop"},
				Bytes: []byte{uint8(CODE_NOP)}},
		},
	}

	dbg := prog.Debug(10)
	assert.Nil(dbg.Opcode)
	assert.Equal(0, dbg.Index)
}

func TestProgram_Binary(t *testing.T) {
	assert := assert.New(t)

	prog := &Program{
		Opcodes: []Opcode{
			{LineNo: 1, Addr: 0, Words: []string{"mvi", "a", "0x10"},
				Bytes: []byte{uint8(MakeCodeMvi(REG_A)), 0x10}},
			{LineNo: 2, Addr: 4, Words: []string{".db", "0x55"},
				Bytes: []byte{0x55}},
		},
	}

	bins := prog.Binary()
	assert.Equal(5, len(bins))

	assert.Equal(uint8(MakeCodeMvi(REG_A)), bins[0])
	assert.Equal(uint8(0x10), bins[1])
	assert.Equal(uint8(0x00), bins[2])
	assert.Equal(uint8(0x00), bins[3])
	assert.Equal(uint8(0x55), bins[4])
}

func TestProgram_Codes(t *testing.T) {
	assert := assert.New(t)

	prog := &Program{
		Opcodes: []Opcode{
			{LineNo: 1, Addr: 0, Words: []string{"mvi", "a", "0x10"},
				Bytes: []byte{uint8(MakeCodeMvi(REG_A)), 0x10}},
			{LineNo: 2, Addr: 2, Words: []string{"hlt"},
				Bytes: []byte{uint8(CODE_HLT)}},
		},
	}

	addrs := []uint16{}
	datas := []byte{}
	for addr, data := range prog.Codes() {
		addrs = append(addrs, addr)
		datas = append(datas, data)
	}

	assert.Equal([]uint16{0, 1, 2}, addrs)
	assert.Equal([]byte{uint8(MakeCodeMvi(REG_A)), 0x10, uint8(CODE_HLT)}, datas)
}

func TestProgram_Codes_EarlyReturn(t *testing.T) {
	assert := assert.New(t)

	prog := &Program{
		Opcodes: []Opcode{
			{LineNo: 1, Addr: 0, Words: []string{"mvi", "a", "0x10"},
				Bytes: []byte{uint8(MakeCodeMvi(REG_A)), 0x10}},
		},
	}

	count := 0
	for range prog.Codes() {
		count++
		if count == 1 {
			break
		}
	}

	assert.Equal(1, count)
}

func TestProgram_Codes_Empty(t *testing.T) {
	assert := assert.New(t)

	prog := &Program{}

	count := 0
	for range prog.Codes() {
		count++
	}

	assert.Equal(0, count)
}

func TestProgram_Integration_ParseAndDebug(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	program := strings.Join([]string{
		"mvi a 0x10",
		"add b",
		"hlt",
	}, "\n")

	prog, err := asm.Parse(strings.NewReader(program))
	assert.NoError(err)

	dbg := prog.Debug(0)
	assert.NotNil(dbg.Opcode)
	assert.Equal(1, dbg.Opcode.LineNo)

	dbg = prog.Debug(2)
	assert.NotNil(dbg.Opcode)
	assert.Equal(2, dbg.Opcode.LineNo)

	dbg = prog.Debug(3)
	assert.NotNil(dbg.Opcode)
	assert.Equal(3, dbg.Opcode.LineNo)
}
