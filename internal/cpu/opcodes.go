package cpu

// buildOpcodeTable fills the 256-entry dispatch table used by Step. Most of
// the 8080's opcode space is regular enough to generate from its bit fields
// (register/register-pair index, ALU op, condition code) rather than
// transcribing all 256 entries by hand; the remaining miscellaneous
// single-byte and immediate-form opcodes are wired in individually below.
func (c *CPU) buildOpcodeTable() {
	for i := range c.opcodes {
		c.opcodes[i] = opIllegalPlaceholder
	}

	// MOV dst,src — 0x40-0x7F, with 0x76 (MOV M,M) replaced by HLT.
	for dst := byte(0); dst < 8; dst++ {
		for src := byte(0); src < 8; src++ {
			opcode := 0x40 + dst*8 + src
			if opcode == 0x76 {
				c.opcodes[opcode] = opHLT
				continue
			}
			d, s := dst, src
			c.opcodes[opcode] = func(cpu *CPU) uint16 {
				cpu.setReg8(d, cpu.getReg8(s))
				return 0
			}
		}
	}

	// ALU reg block — 0x80-0xBF: ADD,ADC,SUB,SBB,ANA,XRA,ORA,CMP.
	aluOps := [8]func(cpu *CPU, v byte){
		aluADD, aluADC, aluSUB, aluSBB, aluANA, aluXRA, aluORA, aluCMP,
	}
	for op := byte(0); op < 8; op++ {
		for src := byte(0); src < 8; src++ {
			opcode := 0x80 + op*8 + src
			fn, s := aluOps[op], src
			c.opcodes[opcode] = func(cpu *CPU) uint16 {
				fn(cpu, cpu.getReg8(s))
				return 0
			}
		}
	}

	// Immediate ALU block — ADI,ACI,SUI,SBI,ANI,XRI,ORI,CPI.
	for op := byte(0); op < 8; op++ {
		opcode := 0xC6 + op*8
		fn := aluOps[op]
		c.opcodes[opcode] = func(cpu *CPU) uint16 {
			v := cpu.Read(cpu.PC)
			fn(cpu, v)
			return 1
		}
	}

	// INR/DCR/MVI reg — 0x04+reg*8, 0x05+reg*8, 0x06+reg*8.
	for reg := byte(0); reg < 8; reg++ {
		r := reg
		c.opcodes[0x04+reg*8] = func(cpu *CPU) uint16 { cpu.opINR(r); return 0 }
		c.opcodes[0x05+reg*8] = func(cpu *CPU) uint16 { cpu.opDCR(r); return 0 }
		c.opcodes[0x06+reg*8] = func(cpu *CPU) uint16 {
			cpu.setReg8(r, cpu.Read(cpu.PC))
			return 1
		}
	}

	// INX/DCX/DAD/LXI reg pair — 0x03,0x0B,0x09,0x01 + rp*0x10.
	for rp := byte(0); rp < 4; rp++ {
		p := rp
		c.opcodes[0x03+rp*0x10] = func(cpu *CPU) uint16 { cpu.opINX(p); return 0 }
		c.opcodes[0x0B+rp*0x10] = func(cpu *CPU) uint16 { cpu.opDCX(p); return 0 }
		c.opcodes[0x09+rp*0x10] = func(cpu *CPU) uint16 { cpu.opDAD(p); return 0 }
		c.opcodes[0x01+rp*0x10] = func(cpu *CPU) uint16 {
			lo := cpu.Read(cpu.PC)
			hi := cpu.Read(cpu.PC + 1)
			cpu.setRP(p, uint16(hi)<<8|uint16(lo))
			return 2
		}
	}

	// STAX/LDAX — only BC and DE pairs are valid.
	c.opcodes[0x02] = func(cpu *CPU) uint16 { cpu.Write(cpu.bc(), cpu.A); return 0 }
	c.opcodes[0x12] = func(cpu *CPU) uint16 { cpu.Write(cpu.de(), cpu.A); return 0 }
	c.opcodes[0x0A] = func(cpu *CPU) uint16 { cpu.A = cpu.Read(cpu.bc()); return 0 }
	c.opcodes[0x1A] = func(cpu *CPU) uint16 { cpu.A = cpu.Read(cpu.de()); return 0 }

	// PUSH/POP — 0xC5/0xC1 + rp2*0x10, rp2 3 is PSW instead of SP.
	for rp2 := byte(0); rp2 < 4; rp2++ {
		p := rp2
		c.opcodes[0xC5+rp2*0x10] = func(cpu *CPU) uint16 { cpu.opPUSH(p); return 0 }
		c.opcodes[0xC1+rp2*0x10] = func(cpu *CPU) uint16 { cpu.opPOP(p); return 0 }
	}

	// RST n — 0xC7 + n*8.
	for n := byte(0); n < 8; n++ {
		addr := uint16(n) * 8
		c.opcodes[0xC7+n*8] = func(cpu *CPU) uint16 { cpu.Call(addr, 0); return 0 }
	}

	// Conditional jump/call/return — cc order NZ,Z,NC,C,PO,PE,P,M.
	for cc := byte(0); cc < 8; cc++ {
		condition := cc
		c.opcodes[0xC2+cc*8] = func(cpu *CPU) uint16 { return cpu.opJcc(condition) }
		c.opcodes[0xC4+cc*8] = func(cpu *CPU) uint16 { return cpu.opCcc(condition) }
		c.opcodes[0xC0+cc*8] = func(cpu *CPU) uint16 { cpu.opRcc(condition); return 0 }
	}

	// Remaining single-byte and immediate-operand opcodes.
	c.opcodes[0x00] = func(cpu *CPU) uint16 { return 0 } // NOP
	c.opcodes[0x07] = opRLC
	c.opcodes[0x0F] = opRRC
	c.opcodes[0x17] = opRAL
	c.opcodes[0x1F] = opRAR
	c.opcodes[0x27] = opDAA
	c.opcodes[0x2F] = func(cpu *CPU) uint16 { cpu.A = ^cpu.A; return 0 } // CMA
	c.opcodes[0x37] = func(cpu *CPU) uint16 { cpu.Flags.CY = true; return 0 }  // STC
	c.opcodes[0x3F] = func(cpu *CPU) uint16 { cpu.Flags.CY = !cpu.Flags.CY; return 0 } // CMC

	c.opcodes[0x22] = opSHLD
	c.opcodes[0x2A] = opLHLD
	c.opcodes[0x32] = opSTA
	c.opcodes[0x3A] = opLDA

	c.opcodes[0xC3] = opJMP
	c.opcodes[0xCD] = opCALL
	c.opcodes[0xC9] = opRET

	c.opcodes[0xE3] = opXTHL
	c.opcodes[0xE9] = func(cpu *CPU) uint16 { cpu.PC = cpu.hl(); return 0 } // PCHL
	c.opcodes[0xEB] = opXCHG
	c.opcodes[0xF9] = func(cpu *CPU) uint16 { cpu.SP = cpu.hl(); return 0 } // SPHL

	c.opcodes[0xF3] = func(cpu *CPU) uint16 { cpu.InterruptsEnabled = false; return 0 } // DI
	c.opcodes[0xFB] = func(cpu *CPU) uint16 { cpu.InterruptsEnabled = true; return 0 }  // EI

	// IN/OUT are executed by the CPU as two-byte no-ops; the Machine Shell
	// observes them before Step and performs the actual port transfer.
	c.opcodes[0xD3] = func(cpu *CPU) uint16 { return 1 }
	c.opcodes[0xDB] = func(cpu *CPU) uint16 { return 1 }
}

func opIllegalPlaceholder(c *CPU) uint16 { return 0 }

func opHLT(c *CPU) uint16 { return 0 }

// register pair index convention for LXI/INX/DCX/DAD: 0=BC,1=DE,2=HL,3=SP.
func (c *CPU) rp(idx byte) uint16 {
	switch idx {
	case 0:
		return c.bc()
	case 1:
		return c.de()
	case 2:
		return c.hl()
	default:
		return c.SP
	}
}

func (c *CPU) setRP(idx byte, v uint16) {
	switch idx {
	case 0:
		c.setBC(v)
	case 1:
		c.setDE(v)
	case 2:
		c.setHL(v)
	default:
		c.SP = v
	}
}

func (c *CPU) opINX(idx byte) { c.setRP(idx, c.rp(idx)+1) }
func (c *CPU) opDCX(idx byte) { c.setRP(idx, c.rp(idx)-1) }

// opDAD adds a register pair into HL. Only CY is affected, derived from the
// 17-bit result.
func (c *CPU) opDAD(idx byte) {
	result := uint32(c.hl()) + uint32(c.rp(idx))
	c.Flags.CY = result > 0xFFFF
	c.setHL(uint16(result))
}

func (c *CPU) opINR(reg byte) {
	v := c.getReg8(reg) + 1
	c.setReg8(reg, v)
	c.setZSP(v) // INR/DCR never touch CY
}

func (c *CPU) opDCR(reg byte) {
	v := c.getReg8(reg) - 1
	c.setReg8(reg, v)
	c.setZSP(v)
}

// opPUSH/opPOP use register-pair index convention 0=BC,1=DE,2=HL,3=PSW.
func (c *CPU) opPUSH(idx byte) {
	switch idx {
	case 0:
		c.push16(c.bc())
	case 1:
		c.push16(c.de())
	case 2:
		c.push16(c.hl())
	default:
		c.push8(c.A)
		c.push8(c.Flags.ToByte())
	}
}

func (c *CPU) opPOP(idx byte) {
	switch idx {
	case 0:
		c.setBC(c.pop16())
	case 1:
		c.setDE(c.pop16())
	case 2:
		c.setHL(c.pop16())
	default:
		psw := c.pop8()
		c.A = c.pop8()
		c.Flags.FromByte(psw)
	}
}

// condTrue evaluates the condition code used by conditional jump/call/return,
// in the documented order: NZ,Z,NC,C,PO,PE,P,M.
func (c *CPU) condTrue(cc byte) bool {
	switch cc {
	case 0:
		return !c.Flags.Z
	case 1:
		return c.Flags.Z
	case 2:
		return !c.Flags.CY
	case 3:
		return c.Flags.CY
	case 4:
		return !c.Flags.P
	case 5:
		return c.Flags.P
	case 6:
		return !c.Flags.S
	default:
		return c.Flags.S
	}
}

func (c *CPU) opJcc(cc byte) uint16 {
	target := c.ReadWord(c.PC)
	if c.condTrue(cc) {
		c.PC = target
		return 0
	}
	return 2
}

func (c *CPU) opCcc(cc byte) uint16 {
	target := c.ReadWord(c.PC)
	if c.condTrue(cc) {
		c.Call(target, 2)
		return 0
	}
	return 2
}

func (c *CPU) opRcc(cc byte) {
	if c.condTrue(cc) {
		c.PC = c.pop16()
	}
}

func opJMP(c *CPU) uint16 {
	c.PC = c.ReadWord(c.PC)
	return 0
}

func opCALL(c *CPU) uint16 {
	target := c.ReadWord(c.PC)
	c.Call(target, 2)
	return 0
}

func opRET(c *CPU) uint16 {
	c.PC = c.pop16()
	return 0
}

func opSHLD(c *CPU) uint16 {
	addr := c.ReadWord(c.PC)
	c.Write(addr, c.L)
	c.Write(addr+1, c.H)
	return 2
}

func opLHLD(c *CPU) uint16 {
	addr := c.ReadWord(c.PC)
	c.L = c.Read(addr)
	c.H = c.Read(addr + 1)
	return 2
}

func opSTA(c *CPU) uint16 {
	addr := c.ReadWord(c.PC)
	c.Write(addr, c.A)
	return 2
}

func opLDA(c *CPU) uint16 {
	addr := c.ReadWord(c.PC)
	c.A = c.Read(addr)
	return 2
}

func opXTHL(c *CPU) uint16 {
	lo := c.Read(c.SP)
	hi := c.Read(c.SP + 1)
	c.Write(c.SP, c.L)
	c.Write(c.SP+1, c.H)
	c.L, c.H = lo, hi
	return 0
}

func opXCHG(c *CPU) uint16 {
	c.H, c.D = c.D, c.H
	c.L, c.E = c.E, c.L
	return 0
}

// Rotates: RLC/RRC rotate through the bit that falls off, RAL/RAR rotate
// through the carry flag instead.
func opRLC(c *CPU) uint16 {
	bit7 := c.A >> 7
	c.A = (c.A << 1) | bit7
	c.Flags.CY = bit7 != 0
	return 0
}

func opRRC(c *CPU) uint16 {
	bit0 := c.A & 1
	c.A = (c.A >> 1) | (bit0 << 7)
	c.Flags.CY = bit0 != 0
	return 0
}

func opRAL(c *CPU) uint16 {
	bit7 := c.A >> 7
	var carryIn byte
	if c.Flags.CY {
		carryIn = 1
	}
	c.A = (c.A << 1) | carryIn
	c.Flags.CY = bit7 != 0
	return 0
}

func opRAR(c *CPU) uint16 {
	bit0 := c.A & 1
	var carryIn byte
	if c.Flags.CY {
		carryIn = 1
	}
	c.A = (c.A >> 1) | (carryIn << 7)
	c.Flags.CY = bit0 != 0
	return 0
}

// opDAA adjusts A for the ROM's expectations rather than the full 8080
// specification: it does not consult carry-in before the low-nibble
// adjustment and never touches AC. See SPEC_FULL.md §5.1 — this divergence
// is intentional and must not be "fixed" opportunistically.
func opDAA(c *CPU) uint16 {
	if c.A&0x0F > 9 {
		c.A += 6
	}
	if c.A&0xF0 > 0x90 {
		result := uint16(c.A) + 0x60
		c.A = byte(result)
		c.setZSP(c.A)
		c.Flags.CY = result > 0xFF
	}
	return 0
}

// ALU operations shared by the register and immediate opcode blocks.
func aluADD(c *CPU, v byte) {
	result := uint16(c.A) + uint16(v)
	c.A = c.setFlagsAdd(result)
}

func aluADC(c *CPU, v byte) {
	var carry uint16
	if c.Flags.CY {
		carry = 1
	}
	result := uint16(c.A) + uint16(v) + carry
	c.A = c.setFlagsAdd(result)
}

func aluSUB(c *CPU, v byte) {
	c.A = c.setFlagsSub(c.A, v, 0)
}

func aluSBB(c *CPU, v byte) {
	var borrow byte
	if c.Flags.CY {
		borrow = 1
	}
	c.A = c.setFlagsSub(c.A, v, borrow)
}

func aluANA(c *CPU, v byte) {
	c.A = c.setFlagsLogical(c.A & v)
}

func aluXRA(c *CPU, v byte) {
	c.A = c.setFlagsLogical(c.A ^ v)
}

func aluORA(c *CPU, v byte) {
	c.A = c.setFlagsLogical(c.A | v)
}

func aluCMP(c *CPU, v byte) {
	c.setFlagsSub(c.A, v, 0) // CMP discards the result, keeps the flags
}
