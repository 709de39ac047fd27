// Package config collects the command-line-configurable knobs shared by
// main and the packages it wires together, so cmd/invaders stays a thin
// translation from flags to constructor arguments.
package config

// Config is populated from CLI flags by cmd/invaders, which hands its fields
// to the rom and pixeladapter calls; no other package imports it.
type Config struct {
	// RomPath, if set, names a single pre-concatenated ROM image. Empty
	// means fall back to RomDir's auto-discovery.
	RomPath string
	// RomDir is searched for invaders.bin or an invaders.{h,g,f,e} bank set
	// when RomPath is empty.
	RomDir string

	// Scale is the window scale factor applied to the native 256x224 frame.
	Scale float64
	// Debug shows the register/disassembly side panel.
	Debug bool
	// Logging enables a per-instruction trace log under ./logs/, in the
	// style of a CPU trace dump. Off by default: it's verbose enough to
	// dominate I/O at full speed.
	Logging bool
	// Headless runs without opening a window, for scripted smoke tests.
	Headless bool

	// DisassembleFrom, if non-negative, makes the CLI print a disassembly
	// starting at that address instead of running the machine.
	DisassembleFrom int
	// DisassembleCount bounds how many instructions DisassembleFrom prints.
	DisassembleCount int
}

// Default dip-switch-equivalent settings baked into the reset port values;
// SPEC_FULL.md §10 treats these as fixed rather than CLI-configurable,
// matching the most common default cabinet configuration (3 ships, bonus
// life at 1500 points, coin info on).
const (
	DefaultPort1 = 0x09
	DefaultPort2 = 0x03
)
