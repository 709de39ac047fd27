package cpu

import (
	"errors"
	"math/rand"
	"testing"
)

func newTestCPU() *CPU {
	c := New()
	c.SP = StackBase
	return c
}

func loadAndRun(c *CPU, program []byte, steps int) {
	c.Load(program, 0)
	for i := 0; i < steps; i++ {
		if _, err := c.Step(); err != nil {
			return
		}
	}
}

// Scenario 1: MVI A, 0xFF; INR A -> A=0x00, Z=1, S=0, P=1, CY unchanged.
func TestScenarioINRWraps(t *testing.T) {
	c := newTestCPU()
	c.Flags.CY = true // prove INR doesn't touch CY
	loadAndRun(c, []byte{0x3E, 0xFF, 0x3C}, 2)

	tests := []struct {
		got  interface{}
		want interface{}
	}{
		{c.A, byte(0x00)},
		{c.Flags.Z, true},
		{c.Flags.S, false},
		{c.Flags.P, true},
		{c.Flags.CY, true}, // unchanged
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %v, want %v", tt.got, tt.want)
		}
	}
}

// Scenario 2: MVI A, 0x3E; ADI 0xC2 -> A=0x00, Z=1, S=0, P=1, CY=1.
func TestScenarioADIOverflow(t *testing.T) {
	c := newTestCPU()
	loadAndRun(c, []byte{0x3E, 0x3E, 0xC6, 0xC2}, 2)

	tests := []struct {
		got  interface{}
		want interface{}
	}{
		{c.A, byte(0x00)},
		{c.Flags.Z, true},
		{c.Flags.S, false},
		{c.Flags.P, true},
		{c.Flags.CY, true},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %v, want %v", tt.got, tt.want)
		}
	}
}

// Scenario 3: MVI A, 0x05; SUI 0x10 -> A=0xF5, Z=0, S=1, P=1, CY=1.
func TestScenarioSUIBorrow(t *testing.T) {
	c := newTestCPU()
	loadAndRun(c, []byte{0x3E, 0x05, 0xD6, 0x10}, 2)

	tests := []struct {
		got  interface{}
		want interface{}
	}{
		{c.A, byte(0xF5)},
		{c.Flags.Z, false},
		{c.Flags.S, true},
		{c.Flags.P, true},
		{c.Flags.CY, true},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %v, want %v", tt.got, tt.want)
		}
	}
}

// Scenario 4: LXI SP,0x2400; LXI H,0x1234; PUSH H; POP D -> D=0x12,E=0x34,SP=0x2400.
func TestScenarioPushPopRoundTrip(t *testing.T) {
	c := New()
	program := []byte{
		0x31, 0x00, 0x24, // LXI SP, 0x2400
		0x21, 0x34, 0x12, // LXI H, 0x1234
		0xE5, // PUSH H
		0xD1, // POP D
	}
	loadAndRun(c, program, 4)

	if c.D != 0x12 || c.E != 0x34 {
		t.Errorf("got D=%#02x E=%#02x, want D=0x12 E=0x34", c.D, c.E)
	}
	if c.SP != 0x2400 {
		t.Errorf("got SP=%#04x, want 0x2400", c.SP)
	}
}

// Scenario 5: LXI SP,0x2400; CALL 0x0100 -> stack holds return address, SP-=2.
func TestScenarioCallFraming(t *testing.T) {
	c := New()
	program := []byte{
		0x31, 0x00, 0x24, // LXI SP, 0x2400
		0xCD, 0x00, 0x01, // CALL 0x0100
	}
	loadAndRun(c, program, 2)

	if c.PC != 0x0100 {
		t.Errorf("got PC=%#04x, want 0x0100", c.PC)
	}
	if c.SP != 0x2400-2 {
		t.Errorf("got SP=%#04x, want %#04x", c.SP, 0x2400-2)
	}
	retAddr := c.ReadWord(c.SP)
	if retAddr != 6 {
		t.Errorf("got return address %#04x, want 0x0006", retAddr)
	}
}

// Scenario 6: MVI A, 0x9B; DAA -> A=0x01, CY=1.
func TestScenarioDAA(t *testing.T) {
	c := newTestCPU()
	loadAndRun(c, []byte{0x3E, 0x9B, 0x27}, 2)

	if c.A != 0x01 {
		t.Errorf("got A=%#02x, want 0x01", c.A)
	}
	if !c.Flags.CY {
		t.Error("want CY set")
	}
}

// CALL then RET returns to the instruction after the original CALL, and SP
// is restored to its pre-CALL value.
func TestCallThenRet(t *testing.T) {
	c := New()
	program := []byte{
		0x31, 0x00, 0x24, // LXI SP, 0x2400
		0xCD, 0x07, 0x00, // CALL 0x0007
		0x00,       // NOP (return lands here)
		0xC9,       // RET, at 0x0007
	}
	loadAndRun(c, program, 2)
	spAfterCall := c.SP

	if _, err := c.Step(); err != nil { // executes RET
		t.Fatalf("unexpected error: %v", err)
	}

	if c.PC != 6 {
		t.Errorf("got PC=%#04x, want 0x0006", c.PC)
	}
	if c.SP != spAfterCall+2 {
		t.Errorf("got SP=%#04x, want %#04x", c.SP, spAfterCall+2)
	}
}

// PUSH PSW; POP PSW restores A exactly and restores {S,Z,AC,P,CY}; the
// non-flag bits of the PSW byte are fixed at 0,0,1 for bits 5,3,1.
func TestPushPopPSW(t *testing.T) {
	c := newTestCPU()
	c.A = 0x42
	c.Flags = Flags{Z: true, S: false, P: true, CY: true, AC: false}

	c.opPUSH(3) // PSW
	psw := c.Read(c.SP)

	if psw&pswBit1 == 0 {
		t.Error("PSW bit 1 must always be 1")
	}
	if psw&pswBit3 != 0 {
		t.Error("PSW bit 3 must always be 0")
	}
	if psw&pswBit5 != 0 {
		t.Error("PSW bit 5 must always be 0")
	}

	c.A = 0 // clobber before POP to prove it gets restored
	c.opPOP(3)

	if c.A != 0x42 {
		t.Errorf("got A=%#02x, want 0x42", c.A)
	}
	if !c.Flags.Z || c.Flags.S || !c.Flags.P || !c.Flags.CY {
		t.Errorf("flags not restored: %+v", c.Flags)
	}
}

// Writes to [0x0000, 0x1FFF] never take effect.
func TestRomRegionWritesDropped(t *testing.T) {
	c := New()
	c.Load([]byte{0xAB}, 0x0010)
	c.Write(0x0010, 0xFF)

	if got := c.Read(0x0010); got != 0xAB {
		t.Errorf("got %#02x, want 0xAB (write should have been dropped)", got)
	}
}

// Any address >= 0x4000 aliases addr & 0x3FFF for both reads and writes.
func TestMirroringAbove16K(t *testing.T) {
	c := New()
	c.Write(0x2500, 0x77)

	if got := c.Read(0x6500); got != 0x77 {
		t.Errorf("got %#02x at mirrored address, want 0x77", got)
	}

	c.Write(0xA500, 0x99)
	if got := c.Read(0x2500); got != 0x99 {
		t.Errorf("got %#02x, want 0x99 after mirrored write", got)
	}
}

// Parity flag equals XOR-reduction of the low 8 bits being 0, for randomized
// arithmetic/logic results.
func TestPropertyParityMatchesXorReduction(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 256; i++ {
		v := byte(rng.Intn(256))
		c := newTestCPU()
		c.A = 0
		aluORA(c, v)

		want := true
		x := v
		x ^= x >> 4
		x ^= x >> 2
		x ^= x >> 1
		want = x&1 == 0

		if c.Flags.P != want {
			t.Errorf("v=%#02x: got P=%v, want %v", v, c.Flags.P, want)
		}
	}
}

// For every non-control-transfer, non-illegal opcode, PC advances by exactly
// the instruction's natural length.
func TestPropertyPCAdvancesByInstructionLength(t *testing.T) {
	nonControlOpcodes := []byte{
		0x00, 0x04, 0x05, 0x0C, 0x27, 0x2F, 0x37, 0x3F, // misc/INR/DCR/DAA/CMA/STC/CMC
		0x01, 0x06, 0x09, 0x0B, // LXI/MVI/DAD/DCX
		0x22, 0x2A, 0x32, 0x3A, // SHLD/LHLD/STA/LDA
		0x40, 0x47, 0x80, 0xA7, // MOV, ALU reg
		0xC6, 0xCE, 0xFE, // immediate ALU
		0xD3, 0xDB, // OUT, IN
		0xEB, 0xF9, 0x02, 0x0A, // XCHG, SPHL, STAX, LDAX
	}

	for _, opcode := range nonControlOpcodes {
		c := New()
		c.SP = StackBase
		c.H, c.L = 0x20, 0x10 // valid writable HL target for opcodes that touch M
		program := make([]byte, 4)
		program[0] = opcode
		c.Load(program, 0)

		before := c.PC
		if _, err := c.Step(); err != nil {
			t.Errorf("opcode %#02x: unexpected error %v", opcode, err)
			continue
		}
		want := before + instructionLength(opcode)
		if c.PC != want {
			t.Errorf("opcode %#02x: got PC=%#04x, want %#04x", opcode, c.PC, want)
		}
	}
}

// Fetching an undocumented opcode raises IllegalOpcode without mutating
// state beyond the fetch.
func TestIllegalOpcodeRejected(t *testing.T) {
	c := New()
	c.Load([]byte{0xCB}, 0x0050)
	c.PC = 0x0050
	beforeA, beforeSP := c.A, c.SP

	_, err := c.Step()
	if err == nil {
		t.Fatal("expected an error for illegal opcode 0xCB")
	}
	var illegal *IllegalOpcode
	if !errors.As(err, &illegal) {
		t.Fatalf("got error %v, want *IllegalOpcode", err)
	}
	if illegal.Opcode != 0xCB || illegal.PC != 0x0050 {
		t.Errorf("got %+v, want Opcode=0xCB PC=0x0050", illegal)
	}
	if c.PC != 0x0050 {
		t.Errorf("PC mutated on illegal fetch: got %#04x, want unchanged 0x0050", c.PC)
	}
	if c.A != beforeA || c.SP != beforeSP {
		t.Error("register state mutated on illegal fetch")
	}
}

// HLT is terminal but not an error in the product sense: the Machine Shell
// treats it as a clean exit, not a crash.
func TestHaltIsTerminal(t *testing.T) {
	c := New()
	c.Load([]byte{0x76}, 0)

	_, err := c.Step()
	if err == nil {
		t.Fatal("expected a terminal Halted condition")
	}
	if !c.Halted {
		t.Error("want c.Halted true after executing HLT")
	}

	_, err2 := c.Step()
	if err2 == nil {
		t.Error("want Step to keep reporting Halted after halting")
	}
}
