package cpu

import (
	"strings"
	"testing"
)

func TestDisassembleKnownOpcodes(t *testing.T) {
	c := New()
	c.Load([]byte{0xCD, 0x34, 0x12, 0x3E, 0x05, 0x76}, 0)

	tests := []struct {
		addr       uint16
		wantLength uint16
		contains   string
	}{
		{0, 3, "CALL"},
		{3, 2, "MVI A,"},
		{5, 1, "HLT"},
	}
	for _, tt := range tests {
		text, length := c.Disassemble(tt.addr)
		if length != tt.wantLength {
			t.Errorf("addr %d: got length %d, want %d", tt.addr, length, tt.wantLength)
		}
		if !strings.Contains(text, tt.contains) {
			t.Errorf("addr %d: got %q, want it to contain %q", tt.addr, text, tt.contains)
		}
	}
}

func TestDisassembleIllegalOpcodeDoesNotPanic(t *testing.T) {
	c := New()
	c.Load([]byte{0xCB}, 0)

	text, length := c.Disassemble(0)
	if length != 1 {
		t.Errorf("got length %d, want 1", length)
	}
	if !strings.Contains(text, "???") {
		t.Errorf("got %q, want it to contain ???", text)
	}
}
