package cpu

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssembler(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	prog, err := asm.Parse(strings.NewReader(""))
	assert.NoError(err)
	assert.Equal(0, len(prog.Opcodes))

	assert.Equal("0", asm.Equate["LINENO"])
	assert.Equal(fmt.Sprintf("%#v", MEMORY_SIZE), asm.Equate["MEMORY_SIZE"])
}

func opEqual(t *testing.T, expected, opcodes []Opcode) {
	assert := assert.New(t)

	assert.Equal(len(expected), len(opcodes))
	if len(expected) == len(opcodes) {
		for n := range len(expected) {
			assert.Equal(expected[n], opcodes[n])
		}
	}
}

func TestAssemblerInstructions(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	program := []string{
		"mov a b",
		"mov m a",
		"mvi b 0x12",
		"mvi m 'h'",
		"add b",
		"adc m",
		"sui 1",
		"inr a",
		"dcr m",
		"inx h",
		"dad sp",
		"ldax d",
		"stax b",
		"push psw",
		"pop h",
		"out 0x10",
		"in 0x10",
		"rrc",
		"xchg",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
		return
	}

	expected := []Opcode{
		{1, 0, []string{"mov", "a", "b"}, []byte{0x78}, ""},
		{2, 1, []string{"mov", "m", "a"}, []byte{0x77}, ""},
		{3, 2, []string{"mvi", "b", "0x12"}, []byte{0x06, 0x12}, ""},
		{4, 4, []string{"mvi", "m", "104"}, []byte{0x36, 0x68}, ""},
		{5, 6, []string{"add", "b"}, []byte{0x80}, ""},
		{6, 7, []string{"adc", "m"}, []byte{0x8e}, ""},
		{7, 8, []string{"sui", "1"}, []byte{0xd6, 0x01}, ""},
		{8, 10, []string{"inr", "a"}, []byte{0x3c}, ""},
		{9, 11, []string{"dcr", "m"}, []byte{0x35}, ""},
		{10, 12, []string{"inx", "h"}, []byte{0x23}, ""},
		{11, 13, []string{"dad", "sp"}, []byte{0x39}, ""},
		{12, 14, []string{"ldax", "d"}, []byte{0x1a}, ""},
		{13, 15, []string{"stax", "b"}, []byte{0x02}, ""},
		{14, 16, []string{"push", "psw"}, []byte{0xf5}, ""},
		{15, 17, []string{"pop", "h"}, []byte{0xe1}, ""},
		{16, 18, []string{"out", "0x10"}, []byte{0xd3, 0x10}, ""},
		{17, 20, []string{"in", "0x10"}, []byte{0xdb, 0x10}, ""},
		{18, 22, []string{"rrc"}, []byte{0x0f}, ""},
		{19, 23, []string{"xchg"}, []byte{0xeb}, ""},
	}

	opEqual(t, expected, prog.Opcodes)
}

func TestAssemblerLabel(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	program := []string{
		"start: lxi sp 0x1000",
		"loop: lda data",
		"cpi 0",
		"jz done",
		"jmp loop",
		"done: hlt",
		"data: .db 0x55",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
		return
	}

	expected := []Opcode{
		{1, 0, []string{"lxi", "sp", "0x1000"}, []byte{0x31, 0x00, 0x10}, ""},
		{2, 3, []string{"lda", "data"}, []byte{0x3a, 0x0f, 0x00}, "data"},
		{3, 6, []string{"cpi", "0"}, []byte{0xfe, 0x00}, ""},
		{4, 8, []string{"jz", "done"}, []byte{0xca, 0x0e, 0x00}, "done"},
		{5, 11, []string{"jmp", "loop"}, []byte{0xc3, 0x03, 0x00}, "loop"},
		{6, 14, []string{"hlt"}, []byte{0x76}, ""},
		{7, 15, []string{".db", "0x55"}, []byte{0x55}, ""},
	}

	opEqual(t, expected, prog.Opcodes)

	assert.Equal(0, asm.Label["start"])
	assert.Equal(3, asm.Label["loop"])
	assert.Equal(14, asm.Label["done"])
	assert.Equal(15, asm.Label["data"])
}

func TestAssemblerEqu(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	program := []string{
		".equ BUF 0x80",
		".equ LEN 14",
		"lxi h BUF",
		"mvi c LEN",
		"lda $(BUF + LEN - 1)",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)
	if err != nil {
		t.Fatal(errors.Unwrap(err))
	}

	expected := []Opcode{
		{3, 0, []string{"lxi", "h", "0x80"}, []byte{0x21, 0x80, 0x00}, ""},
		{4, 3, []string{"mvi", "c", "14"}, []byte{0x0e, 0x0e}, ""},
		{5, 5, []string{"lda", "0x8d"}, []byte{0x3a, 0x8d, 0x00}, ""},
	}

	opEqual(t, expected, prog.Opcodes)
}

func TestAssemblerMacro(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	program := []string{
		".macro LOADPAIR ra rb value",
		"mvi ra value",
		"mvi rb value",
		".endm",
		"LOADPAIR b c 0x11",
		"LOADPAIR d e $(0x11 + 1)",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	expected := []Opcode{
		{2, 0, []string{"mvi", "b", "0x11"}, []byte{0x06, 0x11}, ""},
		{3, 2, []string{"mvi", "c", "0x11"}, []byte{0x0e, 0x11}, ""},
		{2, 4, []string{"mvi", "d", "0x12"}, []byte{0x16, 0x12}, ""},
		{3, 6, []string{"mvi", "e", "0x12"}, []byte{0x1e, 0x12}, ""},
	}

	opEqual(t, expected, prog.Opcodes)
}

func TestAssemblerOrg(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	program := []string{
		"mvi a 1",
		".org 0x10",
		"data: .db 1 2 3",
		".db 'h' 'i'",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	expected := []Opcode{
		{1, 0, []string{"mvi", "a", "1"}, []byte{0x3e, 0x01}, ""},
		{3, 0x10, []string{".db", "1", "2", "3"}, []byte{0x01, 0x02, 0x03}, ""},
		{4, 0x13, []string{".db", "104", "105"}, []byte{0x68, 0x69}, ""},
	}

	opEqual(t, expected, prog.Opcodes)

	bins := prog.Binary()
	assert.Equal(0x15, len(bins))
	assert.Equal(uint8(0x3e), bins[0])
	assert.Equal(uint8(0x00), bins[2])
	assert.Equal(uint8(0x01), bins[0x10])
	assert.Equal(uint8(0x69), bins[0x14])
}

func TestAssemblerPredefine(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	asm.Predefine("PORT", "0x42")

	prog, err := asm.Parse(strings.NewReader("out PORT"))
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	expected := []Opcode{
		{1, 0, []string{"out", "0x42"}, []byte{0xd3, 0x42}, ""},
	}

	opEqual(t, expected, prog.Opcodes)
}

func TestAssemblerErrSyntax(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	// Various syntax errors
	table := [](struct {
		prog string
		line int
	}){
		{"DUP:\nDUP:\n", 2},
		{"mov a\n", 1},
		{"mov a b c\n", 1},
		{"mov m m\n", 1},
		{"mov a q\n", 1},
		{"mvi a 0x100\n", 1},
		{"mvi a 'hh'\n", 1},
		{"lxi q 0\n", 1},
		{"ldax h\n", 1},
		{"push sp\n", 1},
		{"adi\n", 1},
		{"adi 1 2\n", 1},
		{"sta\n", 1},
		{"jmp\n", 1},
		{"jmp all over\n", 1},
		{"jmp nowhere\n", 1},
		{"nop 1\n", 1},
		{"ret x\n", 1},
		{"bogus\n", 1},
		{"mvi a $(\"aaa\")\n", 1},
		{"mvi a $(more(\"aaa\"))\n", 1},
		{".equ\n", 1},
		{".equ A\n", 1},
		{".equ A 1\n.equ A 2\n", 2},
		{".macro\n", 1},
		{".macro A\n.macro B\n", 2},
		{".endm\n", 1},
		{".macro A\nmvi a 1\n", 2},
		{".macro A B\n.endm\nA\n", 3},
		{".macro A B\n.endm\n.macro A\n.endm\n", 3},
		{".org 0x10\n.org 0\n", 2},
		{".org\n", 1},
		{".db\n", 1},
	}

	for _, entry := range table {
		_, err := asm.Parse(strings.NewReader(entry.prog))
		var se *ErrSyntax
		assert.NotNil(err, entry.prog)
		if err != nil {
			assert.True(errors.As(err, &se), entry.prog)
			assert.Equal(entry.line, se.LineNo, entry.prog)
		}
	}
}
