package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":      "0",
	"MEMORY_SIZE": fmt.Sprintf("%#v", MEMORY_SIZE),
}

// Assembler is a single pass macro assembler for the 8080.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.

	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of jump labels to addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.

	addr int // Next assembly address.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// regMap is a map of register operand names.
var regMap = map[string]Reg{
	"b": REG_B,
	"c": REG_C,
	"d": REG_D,
	"e": REG_E,
	"h": REG_H,
	"l": REG_L,
	"m": REG_M,
	"a": REG_A,
}

// pairMap is a map of register pair operand names.
var pairMap = map[string]RegPair{
	"b":  PAIR_BC,
	"d":  PAIR_DE,
	"h":  PAIR_HL,
	"sp": PAIR_SP,
}

// stackPairMap is a map of push/pop operand names, where encoding 3 is
// the accumulator and flags.
var stackPairMap = map[string]RegPair{
	"b":   PAIR_BC,
	"d":   PAIR_DE,
	"h":   PAIR_HL,
	"psw": PAIR_SP,
}

// aluRegMap maps register ALU mnemonics.
var aluRegMap = map[string]CodeAluOp{
	"add": ALU_OP_ADD,
	"adc": ALU_OP_ADC,
	"sub": ALU_OP_SUB,
	"sbb": ALU_OP_SBB,
	"ana": ALU_OP_ANA,
	"xra": ALU_OP_XRA,
	"ora": ALU_OP_ORA,
	"cmp": ALU_OP_CMP,
}

// aluImmMap maps immediate ALU mnemonics.
var aluImmMap = map[string]CodeAluOp{
	"adi": ALU_OP_ADD,
	"aci": ALU_OP_ADC,
	"sui": ALU_OP_SUB,
	"sbi": ALU_OP_SBB,
	"ani": ALU_OP_ANA,
	"xri": ALU_OP_XRA,
	"ori": ALU_OP_ORA,
	"cpi": ALU_OP_CMP,
}

// jumpMap maps jump mnemonics, which take a 16-bit target.
var jumpMap = map[string]Code{
	"jmp": CODE_JMP,
	"jnz": MakeCodeJump(COND_NZ),
	"jz":  MakeCodeJump(COND_Z),
	"jnc": MakeCodeJump(COND_NC),
	"jc":  MakeCodeJump(COND_C),
	"jpo": MakeCodeJump(COND_PO),
	"jpe": MakeCodeJump(COND_PE),
	"jp":  MakeCodeJump(COND_P),
	"jm":  MakeCodeJump(COND_M),
}

// callMap maps call mnemonics, which take a 16-bit target.
var callMap = map[string]Code{
	"call": CODE_CALL,
	"cnz":  MakeCodeCall(COND_NZ),
	"cz":   MakeCodeCall(COND_Z),
	"cnc":  MakeCodeCall(COND_NC),
	"cc":   MakeCodeCall(COND_C),
	"cpo":  MakeCodeCall(COND_PO),
	"cpe":  MakeCodeCall(COND_PE),
	"cp":   MakeCodeCall(COND_P),
	"cm":   MakeCodeCall(COND_M),
}

// addrMap maps direct-addressing mnemonics, which take a 16-bit address.
var addrMap = map[string]Code{
	"sta":  CODE_STA,
	"lda":  CODE_LDA,
	"shld": CODE_SHLD,
	"lhld": CODE_LHLD,
}

// nullaryMap maps mnemonics that take no operand.
var nullaryMap = map[string]Code{
	"nop":  CODE_NOP,
	"hlt":  CODE_HLT,
	"ret":  CODE_RET,
	"rnz":  MakeCodeRet(COND_NZ),
	"rz":   MakeCodeRet(COND_Z),
	"rnc":  MakeCodeRet(COND_NC),
	"rc":   MakeCodeRet(COND_C),
	"rpo":  MakeCodeRet(COND_PO),
	"rpe":  MakeCodeRet(COND_PE),
	"rp":   MakeCodeRet(COND_P),
	"rm":   MakeCodeRet(COND_M),
	"rlc":  MakeCodeRot(ROT_OP_RLC),
	"rrc":  MakeCodeRot(ROT_OP_RRC),
	"ral":  MakeCodeRot(ROT_OP_RAL),
	"rar":  MakeCodeRot(ROT_OP_RAR),
	"cma":  CODE_CMA,
	"stc":  CODE_STC,
	"cmc":  CODE_CMC,
	"xchg": CODE_XCHG,
	"xthl": CODE_XTHL,
	"pchl": CODE_PCHL,
	"sphl": CODE_SPHL,
	"ei":   CODE_EI,
	"di":   CODE_DI,
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value uint16, err error) {
	invert := false
	if word[0] == '~' {
		invert = true
		word = word[1:]
	}
	if len(word) == 0 {
		err = ErrParseNumber(word)
		return
	}
	if word[0] == '\'' {
		// Character quotes should have been expanded into
		// values in parseLine()
		err = ErrParseCharacter(strings.Trim(word, "'"))
		return
	}
	v64, err := strconv.ParseInt(word, 0, 17)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	if v64 < 0 {
		value = uint16(0xffff + (v64 + 1))
	} else {
		value = uint16(v64)
	}

	if invert {
		value = ^value
	}

	return
}

// imm8 encodes a word as a single operand byte.
func (asm *Assembler) imm8(word string) (value uint8, err error) {
	v16, err := asm.valueOf(word)
	if err != nil {
		return
	}
	if v16 > 0xff {
		err = ErrValueRange
		return
	}
	value = uint8(v16)
	return
}

// addr16 encodes a word as a little-endian operand address. A word
// that is not a value is taken as a jump label to be linked after the
// pass.
func (asm *Assembler) addr16(word string) (low, high uint8, label string, err error) {
	value, err := asm.valueOf(word)
	if err != nil {
		// Not a value - link as a label.
		label = word
		err = nil
		return
	}

	low = uint8(value & 0xff)
	high = uint8(value >> 8)
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value uint16, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var value16 uint16
		value16, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt(int(value16))
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = uint16(st_int64)
	return
}

// parseLine parses a single line as an opcode.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	re := regexp.MustCompile(`'\\?[^']'`)
	line = re.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "e":
				str = "\033"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	re = regexp.MustCompile(`\$\([^\$]*\)`)
	line = re.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%#v", value)
	})
	if err != nil {
		return
	}

	// Operand commas are equivalent to spaces.
	line = strings.ReplaceAll(line, ",", " ")

	words = slices.DeleteFunc(strings.Split(line, " "), func(a string) bool { return len(a) == 0 })

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if len(words) > 0 && words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		if len(word) == 0 {
			continue
		}

		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]int, 16)
		}
		asm.Label[label] = asm.currentAddr()
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = words[1+n]
		}
		defer func() { asm.Equate = old_equate }()

		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", fmt.Sprintf("%v_%v_", name, lineno))
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}

			err = asm.parseWords(words, macro.LineNo+n)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// currentAddr gets the current assembly address.
func (asm *Assembler) currentAddr() int {
	return asm.addr
}

// Parse parses an input stream into a Program containing opcodes.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {

	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	clear(asm.Label)
	asm.Opcode = asm.Opcode[:0]
	asm.addr = 0
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		text_comment := strings.Split(text, ";")
		line = strings.TrimSpace(text_comment[0])
		all_words := strings.Split(line, " ")

		var words []string
		for _, single := range all_words {
			if len(single) > 0 {
				words = append(words, single)
			}
		}

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = words[2:]
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of jump labels.
	for n := range asm.Opcode {
		op := &asm.Opcode[n]

		if len(op.LinkLabel) == 0 {
			continue
		}
		label := op.LinkLabel
		addr, ok := asm.Label[label]
		if !ok {
			err = ErrLabelMissing(label)
			return
		}
		if len(op.Bytes) < 3 {
			log.Fatalf("Unable to link label '%s' to line %d: %v", label, op.LineNo, op.Words)
		}
		op.Bytes[len(op.Bytes)-2] = uint8(addr & 0xff)
		op.Bytes[len(op.Bytes)-1] = uint8((addr >> 8) & 0xff)
	}

	prog = &Program{
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}

// regOf gets the register code for a word.
func (asm *Assembler) regOf(word string) (reg Reg, err error) {
	reg, ok := regMap[word]
	if !ok {
		err = ErrRegisterInvalid
	}
	return
}

// pairOf gets the register pair code for a word.
func (asm *Assembler) pairOf(word string) (pair RegPair, err error) {
	pair, ok := pairMap[word]
	if !ok {
		err = ErrPairInvalid
	}
	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var bytes []byte
	var label string

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	defer func() {
		if len(bytes) == 0 {
			return
		}
		opcode := Opcode{LineNo: lineno, Addr: asm.currentAddr(), Words: initial_words, Bytes: bytes, LinkLabel: label}
		asm.Opcode = append(asm.Opcode, opcode)
		asm.addr += len(bytes)
	}()

	switch words[0] {
	case ".org":
		if len(words) < 2 {
			err = ErrOpcodeMissing
			return
		}
		if len(words) > 2 {
			err = ErrOpcodeExtraArgs
			return
		}
		var origin uint16
		origin, err = asm.valueOf(words[1])
		if err != nil {
			return
		}
		if int(origin) < asm.addr {
			err = ErrOriginInvalid
			return
		}
		asm.addr = int(origin)
	case ".db":
		if len(words) < 2 {
			err = ErrOpcodeMissing
			return
		}
		for _, word := range words[1:] {
			var value uint8
			value, err = asm.imm8(word)
			if err != nil {
				return
			}
			bytes = append(bytes, value)
		}
	case "mov":
		if len(words) < 3 {
			err = ErrOpcodeMissing
			return
		}
		if len(words) > 3 {
			err = ErrOpcodeExtraArgs
			return
		}
		var dst, src Reg
		dst, err = asm.regOf(words[1])
		if err != nil {
			return
		}
		src, err = asm.regOf(words[2])
		if err != nil {
			return
		}
		if dst == REG_M && src == REG_M {
			// mov m m would encode hlt
			err = ErrRegisterInvalid
			return
		}
		bytes = append(bytes, uint8(MakeCodeMov(dst, src)))
	case "mvi":
		if len(words) < 3 {
			err = ErrOpcodeMissing
			return
		}
		if len(words) > 3 {
			err = ErrOpcodeExtraArgs
			return
		}
		var dst Reg
		var value uint8
		dst, err = asm.regOf(words[1])
		if err != nil {
			return
		}
		value, err = asm.imm8(words[2])
		if err != nil {
			return
		}
		bytes = append(bytes, uint8(MakeCodeMvi(dst)), value)
	case "lxi":
		if len(words) < 3 {
			err = ErrOpcodeMissing
			return
		}
		if len(words) > 3 {
			err = ErrOpcodeExtraArgs
			return
		}
		var pair RegPair
		var low, high uint8
		pair, err = asm.pairOf(words[1])
		if err != nil {
			return
		}
		low, high, label, err = asm.addr16(words[2])
		if err != nil {
			return
		}
		bytes = append(bytes, uint8(MakeCodeLxi(pair)), low, high)
	case "inr", "dcr":
		if len(words) < 2 {
			err = ErrOpcodeMissing
			return
		}
		if len(words) > 2 {
			err = ErrOpcodeExtraArgs
			return
		}
		var reg Reg
		reg, err = asm.regOf(words[1])
		if err != nil {
			return
		}
		code := MakeCodeInr(reg)
		if words[0] == "dcr" {
			code = MakeCodeDcr(reg)
		}
		bytes = append(bytes, uint8(code))
	case "inx", "dcx", "dad":
		if len(words) < 2 {
			err = ErrOpcodeMissing
			return
		}
		if len(words) > 2 {
			err = ErrOpcodeExtraArgs
			return
		}
		var pair RegPair
		pair, err = asm.pairOf(words[1])
		if err != nil {
			return
		}
		var code Code
		switch words[0] {
		case "inx":
			code = MakeCodeInx(pair)
		case "dcx":
			code = MakeCodeDcx(pair)
		case "dad":
			code = MakeCodeDad(pair)
		}
		bytes = append(bytes, uint8(code))
	case "ldax", "stax":
		if len(words) < 2 {
			err = ErrOpcodeMissing
			return
		}
		if len(words) > 2 {
			err = ErrOpcodeExtraArgs
			return
		}
		var pair RegPair
		pair, err = asm.pairOf(words[1])
		if err != nil {
			return
		}
		if pair != PAIR_BC && pair != PAIR_DE {
			err = ErrPairInvalid
			return
		}
		code := MakeCodeLdax(pair)
		if words[0] == "stax" {
			code = MakeCodeStax(pair)
		}
		bytes = append(bytes, uint8(code))
	case "push", "pop":
		if len(words) < 2 {
			err = ErrOpcodeMissing
			return
		}
		if len(words) > 2 {
			err = ErrOpcodeExtraArgs
			return
		}
		pair, ok := stackPairMap[words[1]]
		if !ok {
			err = ErrPairInvalid
			return
		}
		code := MakeCodePush(pair)
		if words[0] == "pop" {
			code = MakeCodePop(pair)
		}
		bytes = append(bytes, uint8(code))
	case "in", "out":
		if len(words) < 2 {
			err = ErrOpcodeMissing
			return
		}
		if len(words) > 2 {
			err = ErrOpcodeExtraArgs
			return
		}
		var port uint8
		port, err = asm.imm8(words[1])
		if err != nil {
			return
		}
		code := CODE_IN
		if words[0] == "out" {
			code = CODE_OUT
		}
		bytes = append(bytes, uint8(code), port)
	default:
		if op, ok := aluRegMap[words[0]]; ok {
			if len(words) < 2 {
				err = ErrOpcodeMissing
				return
			}
			if len(words) > 2 {
				err = ErrOpcodeExtraArgs
				return
			}
			var reg Reg
			reg, err = asm.regOf(words[1])
			if err != nil {
				return
			}
			bytes = append(bytes, uint8(MakeCodeAlu(op, reg)))
			return
		}
		if op, ok := aluImmMap[words[0]]; ok {
			if len(words) < 2 {
				err = ErrOpcodeMissing
				return
			}
			if len(words) > 2 {
				err = ErrOpcodeExtraArgs
				return
			}
			var value uint8
			value, err = asm.imm8(words[1])
			if err != nil {
				return
			}
			bytes = append(bytes, uint8(MakeCodeAluImm(op)), value)
			return
		}
		if code, ok := jumpMap[words[0]]; ok {
			var low, high uint8
			low, high, label, err = asm.targetOf(words)
			if err != nil {
				return
			}
			bytes = append(bytes, uint8(code), low, high)
			return
		}
		if code, ok := callMap[words[0]]; ok {
			var low, high uint8
			low, high, label, err = asm.targetOf(words)
			if err != nil {
				return
			}
			bytes = append(bytes, uint8(code), low, high)
			return
		}
		if code, ok := addrMap[words[0]]; ok {
			var low, high uint8
			low, high, label, err = asm.targetOf(words)
			if err != nil {
				return
			}
			bytes = append(bytes, uint8(code), low, high)
			return
		}
		if code, ok := nullaryMap[words[0]]; ok {
			if len(words) > 1 {
				err = ErrOpcodeExtraArgs
				return
			}
			bytes = append(bytes, uint8(code))
			return
		}
		err = ErrInstructionInvalid
	}

	return
}

// targetOf parses the single 16-bit target operand of a jump, call, or
// direct-addressing instruction.
func (asm *Assembler) targetOf(words []string) (low, high uint8, label string, err error) {
	if len(words) < 2 {
		err = ErrOpcodeMissing
		return
	}
	if len(words) > 2 {
		err = ErrOpcodeExtraArgs
		return
	}

	low, high, label, err = asm.addr16(words[1])
	return
}
