package cpu

// Flags represents the 8080's condition bits as a plain record of booleans
// rather than a raw bit-field. The bit layout is only observable across
// PUSH PSW / POP PSW, which ToByte/FromByte reproduce exactly; internal
// representation is free to be whatever is convenient.
type Flags struct {
	Z  bool // Zero
	S  bool // Sign
	P  bool // Parity (even = 1)
	CY bool // Carry
	AC bool // Auxiliary carry — storage only, see opcodes.go DAA/PSW notes
}

// PSW bit positions, high to low: S Z 0 AC 0 P 1 CY.
const (
	pswBitCY = 1 << 0
	pswBit1  = 1 << 1 // always 1
	pswBitP  = 1 << 2
	pswBit3  = 1 << 3 // always 0
	pswBitAC = 1 << 4
	pswBit5  = 1 << 5 // always 0
	pswBitZ  = 1 << 6
	pswBitS  = 1 << 7
)

// ToByte packs the flags into the 8080's documented PSW encoding.
func (f Flags) ToByte() byte {
	var b byte
	b |= pswBit1
	if f.CY {
		b |= pswBitCY
	}
	if f.P {
		b |= pswBitP
	}
	if f.AC {
		b |= pswBitAC
	}
	if f.Z {
		b |= pswBitZ
	}
	if f.S {
		b |= pswBitS
	}
	return b
}

// FromByte restores flags from a PSW byte. The unused bits (1, 3, 5) are
// ignored rather than validated — POP PSW never fails.
func (f *Flags) FromByte(b byte) {
	f.CY = b&pswBitCY != 0
	f.P = b&pswBitP != 0
	f.AC = b&pswBitAC != 0
	f.Z = b&pswBitZ != 0
	f.S = b&pswBitS != 0
}

// parityEven reports whether the low 8 bits of v have an even number of set
// bits — the 8080's documented parity sense (even = 1).
func parityEven(v byte) bool {
	v ^= v >> 4
	v ^= v >> 2
	v ^= v >> 1
	return v&1 == 0
}

// setZSP derives Z, S, and P from an 8-bit result. Used by every
// instruction that touches those three flags, additive, subtractive, or
// logical alike.
func (c *CPU) setZSP(result byte) {
	c.Flags.Z = result == 0
	c.Flags.S = result&0x80 != 0
	c.Flags.P = parityEven(result)
}

// setFlagsAdd derives Z, S, P, and CY from a 9-bit additive result (the sum
// before truncation to 8 bits). CY is set from bit 8 — the carry out of the
// addition.
func (c *CPU) setFlagsAdd(result uint16) byte {
	r8 := byte(result)
	c.setZSP(r8)
	c.Flags.CY = result > 0xFF
	return r8
}

// setFlagsSub derives Z, S, P, and CY for a subtractive result computed as
// minuend - subtrahend - borrowIn, using 9-bit wrapped arithmetic so CY ends
// up as the 8080's borrow flag: set when the minuend was strictly less than
// subtrahend + borrowIn.
func (c *CPU) setFlagsSub(minuend, subtrahend byte, borrowIn byte) byte {
	result := uint16(minuend) - uint16(subtrahend) - uint16(borrowIn)
	r8 := byte(result)
	c.setZSP(r8)
	c.Flags.CY = result > 0xFF // wrapped past zero => borrow occurred
	return r8
}

// setFlagsLogical derives Z, S, and P from a logical-op result and always
// clears CY, per the 8080's documented behavior for ANA/XRA/ORA and their
// immediate forms.
func (c *CPU) setFlagsLogical(result byte) byte {
	c.setZSP(result)
	c.Flags.CY = false
	return result
}
