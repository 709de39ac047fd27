// Package machine implements the Midway arcade board shell around the 8080
// CPU core: I/O port trapping, the shift register peripheral, the vblank
// interrupt cadence, and VRAM-to-framebuffer rendering. It owns the CPU
// exclusively and is the only thing that talks to the Presentation Adapter.
package machine

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/n-ulricksen/go8080-invaders/internal/adapter"
	"github.com/n-ulricksen/go8080-invaders/internal/cpu"
)

// debugDisasmLines bounds how many instructions the debug panel disassembles
// starting at PC each frame.
const debugDisasmLines = 10

// debugWriter is implemented by presentation adapters that render a
// register/disassembly debug panel (pixeladapter.Adapter satisfies it); the
// Shell feeds it without depending on that package.
type debugWriter interface {
	WriteDebugRegisters(s string)
	WriteDebugDisasm(s string)
}

const (
	// FrameWidth and FrameHeight are the presentation adapter's framebuffer
	// dimensions, fixed by the arcade monitor's native resolution.
	FrameWidth  = 256
	FrameHeight = 224

	vramBase = 0x2400
	vramRows = 224
	vramCols = 32

	midFrameThreshold  = 8 * time.Millisecond
	fullFrameThreshold = 17 * time.Millisecond
)

// phase tracks where in the 60Hz vblank cycle the Shell currently is.
type phase int

const (
	phaseMidFrame phase = iota
	phaseFullFrame
)

// Key identifies a symbolic arcade control, independent of any particular
// keyboard scancode — the adapter translates raw input into these.
type Key int

const (
	KeyCoin Key = iota
	Key2PStart
	Key1PStart
	KeyP1Fire
	KeyP1Left
	KeyP1Right
	KeyP2Fire
	KeyP2Left
	KeyP2Right
	KeyTilt
)

// Shell is the arcade board: it owns the CPU, mediates IN/OUT, and drives
// the frame-paced main loop.
type Shell struct {
	CPU *cpu.CPU

	ShiftLow, ShiftHigh byte
	ShiftAmount         byte

	Port0, Port1, Port2 byte

	// SoundHook observes OUT writes to the sound trigger ports (3 and 5)
	// without the Shell owning any audio dependency — audio synthesis is
	// explicitly out of scope (SPEC_FULL.md §10).
	SoundHook func(port byte, value byte)

	Adapter adapter.PresentationAdapter
	Logger  *log.Logger

	phase phase
	tLast time.Time

	frame [FrameWidth * FrameHeight]uint32
}

// AdapterError reports that the presentation adapter failed to initialize.
// It is only ever raised at startup, never mid-run.
type AdapterError struct {
	Cause error
}

func (e *AdapterError) Error() string { return "adapter: " + e.Cause.Error() }
func (e *AdapterError) Unwrap() error { return e.Cause }

// New builds a Shell around an already-loaded CPU and a presentation
// adapter, with the documented reset values for the three input port
// latches: port0 has its always-on bits set, port1 starts at 0x09 (bit 3
// plus bit 0, the coin bit), port2 encodes the default dip-switch settings
// (3 ships, bonus life at 1500 points — see SPEC_FULL.md §10).
func New(c *cpu.CPU, a adapter.PresentationAdapter, logger *log.Logger) *Shell {
	return &Shell{
		CPU:     c,
		Adapter: a,
		Logger:  logger,
		Port0:   0x0F,
		Port1:   0x09,
		Port2:   0x03,
		phase:   phaseMidFrame,
		tLast:   time.Now(),
	}
}

// Run drives the fetch/trap/interrupt loop until the adapter reports Quit
// or the CPU hits an unrecoverable condition (HaltReached is a clean exit;
// IllegalOpcode is fatal).
func (s *Shell) Run() error {
	s.tLast = time.Now()
	for {
		quit, err := s.tick()
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
}

// tick runs one iteration of the main loop: trap, step, pump input, and
// conditionally inject the mid-frame/end-of-frame interrupt.
func (s *Shell) tick() (quit bool, err error) {
	s.trapIO()

	result, stepErr := s.CPU.Step()
	if stepErr != nil {
		var halted *cpu.Halted
		if errors.As(stepErr, &halted) {
			return true, nil
		}
		return false, stepErr
	}

	if s.Logger != nil {
		s.Logger.Printf("%04X  %02X  A:%02X B:%02X C:%02X D:%02X E:%02X H:%02X L:%02X SP:%04X",
			result.PC, result.Opcode, s.CPU.A, s.CPU.B, s.CPU.C, s.CPU.D, s.CPU.E, s.CPU.H, s.CPU.L, s.CPU.SP)
	}

	if ev := s.Adapter.PollEvent(); ev.Kind != adapter.EventNone {
		s.handleEvent(ev)
		if ev.Kind == adapter.EventQuit {
			return true, nil
		}
	}

	now := time.Now()
	elapsed := now.Sub(s.tLast)

	switch {
	case s.phase == phaseMidFrame && elapsed > midFrameThreshold:
		s.Interrupt(1)
		s.phase = phaseFullFrame
	case elapsed > fullFrameThreshold:
		s.Interrupt(2)
		s.renderFrame()
		s.phase = phaseMidFrame
		s.tLast = now
	}

	return false, nil
}

// Interrupt injects RST n if interrupts are currently enabled, clearing the
// enable latch exactly as real silicon does on interrupt acknowledge. The
// zero return-offset is deliberate: the currently-pointed instruction has
// not executed yet, so the return address is exactly PC.
func (s *Shell) Interrupt(n byte) {
	if !s.CPU.InterruptsEnabled {
		return
	}
	s.CPU.InterruptsEnabled = false
	s.CPU.Call(uint16(n)*8, 0)
}

// trapIO inspects the next instruction before the CPU executes it and
// performs the OUT/IN side effect the CPU itself only no-ops through.
func (s *Shell) trapIO() {
	opcode := s.CPU.Read(s.CPU.PC)
	switch opcode {
	case 0xD3: // OUT
		port := s.CPU.Read(s.CPU.PC + 1)
		s.out(port, s.CPU.A)
	case 0xDB: // IN
		port := s.CPU.Read(s.CPU.PC + 1)
		s.CPU.A = s.in(port)
	}
}

func (s *Shell) out(port, value byte) {
	switch port {
	case 2:
		s.ShiftAmount = value & 0x07
	case 3:
		s.sound(port, value)
	case 4:
		s.ShiftLow = s.ShiftHigh
		s.ShiftHigh = value
	case 5:
		s.sound(port, value)
	}
}

func (s *Shell) sound(port, value byte) {
	if s.SoundHook != nil {
		s.SoundHook(port, value)
	}
}

func (s *Shell) in(port byte) byte {
	switch port {
	case 0:
		return s.Port0
	case 1:
		return s.Port1
	case 2:
		return s.Port2
	case 3:
		combined := uint16(s.ShiftHigh)<<8 | uint16(s.ShiftLow)
		return byte(combined >> (8 - s.ShiftAmount))
	default:
		return 0
	}
}

// keyPortBit identifies which port/bit pair a symbolic key maps to, per
// SPEC_FULL.md §5.3's key table.
type keyPortBit struct {
	port *byte
	bit  byte
}

func (s *Shell) keyBinding(k Key) (keyPortBit, bool) {
	switch k {
	case KeyCoin:
		return keyPortBit{&s.Port1, 0}, true
	case Key2PStart:
		return keyPortBit{&s.Port1, 1}, true
	case Key1PStart:
		return keyPortBit{&s.Port1, 2}, true
	case KeyP1Fire:
		return keyPortBit{&s.Port1, 4}, true
	case KeyP1Left:
		return keyPortBit{&s.Port1, 5}, true
	case KeyP1Right:
		return keyPortBit{&s.Port1, 6}, true
	case KeyP2Fire:
		return keyPortBit{&s.Port2, 4}, true
	case KeyP2Left:
		return keyPortBit{&s.Port2, 5}, true
	case KeyP2Right:
		return keyPortBit{&s.Port2, 6}, true
	case KeyTilt:
		return keyPortBit{&s.Port2, 2}, true
	default:
		return keyPortBit{}, false
	}
}

func (s *Shell) handleEvent(ev adapter.Event) {
	switch ev.Kind {
	case adapter.EventKeyDown:
		s.setKey(Key(ev.Key), true)
	case adapter.EventKeyUp:
		s.setKey(Key(ev.Key), false)
	}
}

func (s *Shell) setKey(k Key, down bool) {
	binding, ok := s.keyBinding(k)
	if !ok {
		return
	}
	if down {
		*binding.port |= 1 << binding.bit
	} else {
		*binding.port &^= 1 << binding.bit
	}
}

// renderFrame scans VRAM into the framebuffer and hands it to the adapter.
// VRAM is read-only from this routine's perspective: it must never write
// through *cpu.Mem.
func (s *Shell) renderFrame() {
	mem := s.CPU.Mem()

	for row := 0; row < vramRows; row++ {
		for col := 0; col < vramCols; col++ {
			b := mem[vramBase+row*vramCols+col]
			for bit := 0; bit < 8; bit++ {
				// MSB-first: bit 0 of the destination offset is the byte's
				// bit 7, not bit 0.
				on := b>>(7-bit)&1 != 0

				// 90 deg CCW rotation of the native (row, 8*col+bit)
				// coordinate into the landscape framebuffer.
				x := 8*col + bit
				y := (vramRows - 1) - row

				var pixel uint32
				if on {
					pixel = 0xFFFFFF
				}
				s.frame[y*FrameWidth+x] = pixel
			}
		}
	}

	_ = s.Adapter.Present(s.frame[:], FrameWidth, FrameHeight)

	if dw, ok := s.Adapter.(debugWriter); ok {
		dw.WriteDebugRegisters(s.registerDump())
		dw.WriteDebugDisasm(s.disasmDump())
	}
}

// registerDump formats the CPU's visible state for the debug panel.
func (s *Shell) registerDump() string {
	c := s.CPU
	return fmt.Sprintf(
		"PC:%04X SP:%04X\nA:%02X B:%02X C:%02X D:%02X\nE:%02X H:%02X L:%02X\nZ:%v S:%v P:%v CY:%v AC:%v",
		c.PC, c.SP, c.A, c.B, c.C, c.D, c.E, c.H, c.L,
		c.Flags.Z, c.Flags.S, c.Flags.P, c.Flags.CY, c.Flags.AC,
	)
}

// disasmDump renders the next few instructions from PC for the debug panel.
func (s *Shell) disasmDump() string {
	var b strings.Builder
	addr := s.CPU.PC
	for i := 0; i < debugDisasmLines; i++ {
		line, length := s.CPU.Disassemble(addr)
		b.WriteString(line)
		b.WriteByte('\n')
		addr += length
	}
	return b.String()
}
