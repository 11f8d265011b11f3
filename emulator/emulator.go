package emulator

import (
	"errors"
	"fmt"
	"iter"
	"maps"

	"github.com/timbot1789/intel-8080-emu/cpu"
	"github.com/timbot1789/intel-8080-emu/device"
	"github.com/timbot1789/intel-8080-emu/internal"
)

const (
	PORT_CONSOLE = 0x00 // Console device port.
)

var _emulator_defines = map[string]string{
	"PORT_CONSOLE": fmt.Sprintf("%v", PORT_CONSOLE),
}

// Emulator state. CPU + memory + console device.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently loaded program listing.

	Console device.Console // Console IO device.
}

// NewEmulator creates a new emulator with the console attached.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu:     cpu.NewCpu(),
		Program: &cpu.Program{},
	}

	emu.Cpu.SetDevice(PORT_CONSOLE, &emu.Console)

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
	)
}

// Reset resets the CPU and loads the program image at address zero.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Reset()

	err = emu.Cpu.Memory.Load(0, emu.Program.Binary())

	return
}

// LoadImage resets the CPU and loads a raw memory image at address
// zero, discarding any program listing.
func (emu *Emulator) LoadImage(image []byte) (err error) {
	emu.Program = &cpu.Program{}

	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Reset()

	err = emu.Cpu.Memory.Load(0, image)

	return
}

// LineNo returns the current line number for the executing opcode.
func (emu *Emulator) LineNo() int {
	dbg := emu.Program.Debug(emu.Cpu.PC)
	if dbg.Opcode != nil {
		return dbg.Opcode.LineNo
	}

	return 0
}

// Tick performs a single tick of the emulator.
func (emu *Emulator) Tick() (done bool, err error) {
	emu.Cpu.Verbose = emu.Verbose

	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{LineNo: lineno, Err: err}
		}
	}()

	err = emu.Cpu.Tick()
	if errors.Is(err, cpu.ErrCpuHalted) {
		err = nil
		done = true
		return
	}
	if err != nil {
		return
	}

	done = emu.Cpu.Halted

	return
}

// Run ticks the emulator until the program halts.
func (emu *Emulator) Run() (err error) {
	for {
		var done bool
		done, err = emu.Tick()
		if done || err != nil {
			return
		}
	}
}
