// Package cpu implements an interpreter for the Intel 8080 instruction set,
// scoped to what the Space Invaders ROM actually exercises: bit-exact opcode
// semantics, documented flag updates, and correct stack framing for
// subroutines and interrupts. Cycle timing is not modeled per-instruction;
// the Machine Shell paces real time against whole frames instead.
package cpu

import (
	"fmt"

	"github.com/pkg/errors"
)

// MemSize is the size of the 8080's addressable memory in this board: 16KiB,
// with addresses above it mirroring back in via a 14-bit mask.
const MemSize = 16384

// MemMask selects the low 14 bits of any 16-bit address.
const MemMask = MemSize - 1

// romEnd is the first address of work RAM; writes below it are dropped.
const romEnd = 0x2000

// StackBase is not a fixed page on the 8080 (SP is a free-running 16-bit
// register, unlike the 6502's page-1 stack) — kept here only as documentation
// of where this ROM conventionally sets it up (0x2400).
const StackBase = 0x2400

// CPU holds all 8080 register, flag, and memory state. It is exclusively
// owned by the Machine Shell, which drives Step and mediates I/O.
type CPU struct {
	A, B, C, D, E, H, L byte
	SP, PC              uint16

	Flags Flags

	// InterruptsEnabled mirrors the 8080's interrupt enable latch, toggled by
	// EI/DI and cleared whenever an interrupt is dispatched.
	InterruptsEnabled bool

	// Halted is set by HLT (opcode 0x76) and is a terminal, non-error
	// condition: Step keeps returning it once set.
	Halted bool

	mem [MemSize]byte

	opcodes [256]opcodeFn
}

// opcodeFn executes one decoded instruction and returns the number of operand
// bytes to advance PC by; Step has already moved PC past the opcode byte
// before calling it. Instructions that transfer control (taken branches,
// calls, returns, PCHL) set PC themselves and return 0, so the post-execute
// PC += delta in Step is a no-op for them.
type opcodeFn func(c *CPU) uint16

// illegalOpcodes is the undocumented 8080 opcode set this core refuses to
// execute. Rejecting them (instead of silently treating them as NOPs, which
// real silicon does for some of them) keeps the core honest about what it
// emulates.
var illegalOpcodes = map[byte]bool{
	0x08: true, 0x10: true, 0x18: true, 0x20: true, 0x28: true, 0x30: true,
	0x38: true, 0xCB: true, 0xD9: true, 0xDD: true, 0xED: true, 0xFD: true,
}

// New returns a CPU with every field zero, ready to have a ROM image loaded
// via Load.
func New() *CPU {
	c := &CPU{}
	c.buildOpcodeTable()
	return c
}

// RomLoadError reports that a ROM image could not be installed into CPU
// memory.
type RomLoadError struct {
	Offset int
	Length int
}

func (e *RomLoadError) Error() string {
	return fmt.Sprintf("rom load: %d bytes at offset %#x overflow %d-byte memory", e.Length, e.Offset, MemSize)
}

// Load copies image into memory starting at offset. It fails if the image
// would run past the end of the 16KiB address space.
func (c *CPU) Load(image []byte, offset int) error {
	if offset < 0 || offset+len(image) > MemSize {
		return errors.WithStack(&RomLoadError{Offset: offset, Length: len(image)})
	}
	copy(c.mem[offset:offset+len(image)], image)
	return nil
}

// IllegalOpcode reports a fetch of an undocumented 8080 opcode.
type IllegalOpcode struct {
	Opcode byte
	PC     uint16
}

func (e *IllegalOpcode) Error() string {
	return fmt.Sprintf("illegal opcode %#02x at pc %#04x", e.Opcode, e.PC)
}

// Halted is returned by Step once HLT has executed. It is a terminal
// condition, not a failure.
type Halted struct{}

func (e *Halted) Error() string { return "cpu halted" }

// StepResult describes what happened during a single Step call, for callers
// (the Machine Shell, tests, the disassembler) that want to know without
// re-deriving it from before/after register snapshots.
type StepResult struct {
	PC     uint16 // PC of the instruction that was just executed
	Opcode byte
}

// Read returns the byte at addr, applying the 14-bit mirroring mask.
func (c *CPU) Read(addr uint16) byte {
	return c.mem[addr&MemMask]
}

// Write stores data at addr, applying the mirroring mask and silently
// dropping writes that land in the ROM region — the ROM may STA through an
// uninitialized pointer, and that must not fault.
func (c *CPU) Write(addr uint16, data byte) {
	a := addr & MemMask
	if a < romEnd {
		return
	}
	c.mem[a] = data
}

// ReadWord reads a little-endian 16-bit value.
func (c *CPU) ReadWord(addr uint16) uint16 {
	lo := c.Read(addr)
	hi := c.Read(addr + 1)
	return uint16(hi)<<8 | uint16(lo)
}

// Step fetches the byte at PC, decodes and executes exactly one instruction,
// and advances PC by the instruction's natural length unless the
// instruction itself transferred control.
func (c *CPU) Step() (StepResult, error) {
	opcode := c.Read(c.PC)
	pc := c.PC

	if illegalOpcodes[opcode] {
		return StepResult{PC: pc, Opcode: opcode}, errors.WithStack(&IllegalOpcode{Opcode: opcode, PC: pc})
	}

	if c.Halted {
		return StepResult{PC: pc, Opcode: opcode}, errors.WithStack(&Halted{})
	}

	c.PC++
	delta := c.opcodes[opcode](c)
	c.PC += delta

	if opcode == 0x76 {
		c.Halted = true
		return StepResult{PC: pc, Opcode: opcode}, errors.WithStack(&Halted{})
	}

	return StepResult{PC: pc, Opcode: opcode}, nil
}

// Call pushes (PC + returnOffset) onto the stack, high byte first, then
// jumps to addr. Used by both the CALL instruction family and by the
// Machine Shell to inject interrupts via RST vectors.
func (c *CPU) Call(addr uint16, returnOffset uint16) {
	ret := c.PC + returnOffset
	c.push16(ret)
	c.PC = addr
}

// register pair helpers. High byte first, per the 8080's documented pairing.
func (c *CPU) bc() uint16 { return uint16(c.B)<<8 | uint16(c.C) }
func (c *CPU) de() uint16 { return uint16(c.D)<<8 | uint16(c.E) }
func (c *CPU) hl() uint16 { return uint16(c.H)<<8 | uint16(c.L) }

func (c *CPU) setBC(v uint16) { c.B = byte(v >> 8); c.C = byte(v) }
func (c *CPU) setDE(v uint16) { c.D = byte(v >> 8); c.E = byte(v) }
func (c *CPU) setHL(v uint16) { c.H = byte(v >> 8); c.L = byte(v) }

// stack push/pop. PUSH writes high byte at SP-1, low byte at SP-2, then
// SP -= 2. POP reads low from SP, high from SP+1, then SP += 2.
func (c *CPU) push16(v uint16) {
	c.Write(c.SP-1, byte(v>>8))
	c.Write(c.SP-2, byte(v))
	c.SP -= 2
}

func (c *CPU) pop16() uint16 {
	lo := c.Read(c.SP)
	hi := c.Read(c.SP + 1)
	c.SP += 2
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) push8(v byte) {
	c.SP--
	c.Write(c.SP, v)
}

func (c *CPU) pop8() byte {
	v := c.Read(c.SP)
	c.SP++
	return v
}

// getReg8/setReg8 decode the 3-bit register index used throughout the
// 0x40-0xBF MOV/ALU block: 0-5 are B,C,D,E,H,L; 6 is the memory cell at
// (H<<8)|L; 7 is A.
func (c *CPU) getReg8(idx byte) byte {
	switch idx & 0x07 {
	case 0:
		return c.B
	case 1:
		return c.C
	case 2:
		return c.D
	case 3:
		return c.E
	case 4:
		return c.H
	case 5:
		return c.L
	case 6:
		return c.Read(c.hl())
	default:
		return c.A
	}
}

func (c *CPU) setReg8(idx byte, v byte) {
	switch idx & 0x07 {
	case 0:
		c.B = v
	case 1:
		c.C = v
	case 2:
		c.D = v
	case 3:
		c.E = v
	case 4:
		c.H = v
	case 5:
		c.L = v
	case 6:
		c.Write(c.hl(), v)
	default:
		c.A = v
	}
}

// Mem exposes a read-only view of CPU memory for the Machine Shell's vblank
// render scan. Callers must not write through the returned pointer.
func (c *CPU) Mem() *[MemSize]byte { return &c.mem }
