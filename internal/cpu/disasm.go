package cpu

import "fmt"

// Disassemble renders the instruction at addr as human-readable text and
// reports how many bytes it occupies, for the debug panel and the
// --disassemble-from diagnostic. It never mutates CPU state and never
// errors: unknown (illegal) opcodes are rendered as "???" rather than
// refused, since this is a diagnostic aid, not a product surface, and a
// programmer debugging a crash dump wants to see what's actually there.
func (c *CPU) Disassemble(addr uint16) (string, uint16) {
	opcode := c.Read(addr)
	name, length := mnemonics[opcode], instructionLength(opcode)

	switch length {
	case 1:
		return fmt.Sprintf("$%04X  %02X        %s", addr, opcode, name), 1
	case 2:
		imm := c.Read(addr + 1)
		return fmt.Sprintf("$%04X  %02X %02X     %s #$%02X", addr, opcode, imm, name, imm), 2
	case 3:
		lo := c.Read(addr + 1)
		hi := c.Read(addr + 2)
		return fmt.Sprintf("$%04X  %02X %02X %02X  %s $%02X%02X", addr, opcode, lo, hi, name, hi, lo), 3
	default:
		return fmt.Sprintf("$%04X  %02X        ???", addr, opcode), 1
	}
}

// instructionLength mirrors the length table in SPEC_FULL.md §5.1: 1 byte by
// default, 2 for MVI/immediate-ALU/IN/OUT, 3 for LXI/SHLD/LHLD/STA/LDA and
// every absolute jump/call.
func instructionLength(opcode byte) uint16 {
	switch opcode {
	case 0x01, 0x11, 0x21, 0x31, // LXI
		0x22, 0x2A, // SHLD, LHLD
		0x32, 0x3A, // STA, LDA
		0xC2, 0xC3, 0xCA, 0xD2, 0xDA, 0xE2, 0xEA, 0xF2, 0xFA, // Jcc, JMP
		0xC4, 0xCC, 0xCD, 0xD4, 0xDC, 0xE4, 0xEC, 0xF4, 0xFC: // Ccc, CALL
		return 3
	case 0x06, 0x0E, 0x16, 0x1E, 0x26, 0x2E, 0x36, 0x3E, // MVI
		0xC6, 0xCE, 0xD6, 0xDE, 0xE6, 0xEE, 0xF6, 0xFE, // immediate ALU
		0xD3, 0xDB: // OUT, IN
		return 2
	default:
		return 1
	}
}

// mnemonics maps every opcode byte, including the illegal set, to its
// display name. Illegal opcodes are labeled for disassembly even though
// Step refuses to execute them.
var mnemonics = buildMnemonicTable()

func buildMnemonicTable() [256]string {
	var m [256]string
	for i := range m {
		m[i] = "???"
	}

	regNames := [8]string{"B", "C", "D", "E", "H", "L", "M", "A"}
	rpNames := [4]string{"B", "D", "H", "SP"}
	rp2Names := [4]string{"B", "D", "H", "PSW"}
	aluNames := [8]string{"ADD", "ADC", "SUB", "SBB", "ANA", "XRA", "ORA", "CMP"}
	aluImmNames := [8]string{"ADI", "ACI", "SUI", "SBI", "ANI", "XRI", "ORI", "CPI"}
	ccNames := [8]string{"NZ", "Z", "NC", "C", "PO", "PE", "P", "M"}

	for dst := byte(0); dst < 8; dst++ {
		for src := byte(0); src < 8; src++ {
			opcode := 0x40 + dst*8 + src
			if opcode == 0x76 {
				m[opcode] = "HLT"
				continue
			}
			m[opcode] = fmt.Sprintf("MOV %s,%s", regNames[dst], regNames[src])
		}
	}
	for op := byte(0); op < 8; op++ {
		for src := byte(0); src < 8; src++ {
			m[0x80+op*8+src] = fmt.Sprintf("%s %s", aluNames[op], regNames[src])
		}
		m[0xC6+op*8] = aluImmNames[op]
	}
	for reg := byte(0); reg < 8; reg++ {
		m[0x04+reg*8] = "INR " + regNames[reg]
		m[0x05+reg*8] = "DCR " + regNames[reg]
		m[0x06+reg*8] = "MVI " + regNames[reg] + ","
	}
	for rp := byte(0); rp < 4; rp++ {
		m[0x03+rp*0x10] = "INX " + rpNames[rp]
		m[0x0B+rp*0x10] = "DCX " + rpNames[rp]
		m[0x09+rp*0x10] = "DAD " + rpNames[rp]
		m[0x01+rp*0x10] = "LXI " + rpNames[rp] + ","
	}
	for rp2 := byte(0); rp2 < 4; rp2++ {
		m[0xC5+rp2*0x10] = "PUSH " + rp2Names[rp2]
		m[0xC1+rp2*0x10] = "POP " + rp2Names[rp2]
	}
	for n := byte(0); n < 8; n++ {
		m[0xC7+n*8] = fmt.Sprintf("RST %d", n)
	}
	for cc := byte(0); cc < 8; cc++ {
		m[0xC2+cc*8] = "J" + ccNames[cc]
		m[0xC4+cc*8] = "C" + ccNames[cc]
		m[0xC0+cc*8] = "R" + ccNames[cc]
	}

	m[0x00] = "NOP"
	m[0x02] = "STAX B"
	m[0x0A] = "LDAX B"
	m[0x12] = "STAX D"
	m[0x1A] = "LDAX D"
	m[0x07] = "RLC"
	m[0x0F] = "RRC"
	m[0x17] = "RAL"
	m[0x1F] = "RAR"
	m[0x22] = "SHLD"
	m[0x27] = "DAA"
	m[0x2A] = "LHLD"
	m[0x2F] = "CMA"
	m[0x32] = "STA"
	m[0x37] = "STC"
	m[0x3A] = "LDA"
	m[0x3F] = "CMC"
	m[0xC3] = "JMP"
	m[0xC9] = "RET"
	m[0xCD] = "CALL"
	m[0xD3] = "OUT"
	m[0xDB] = "IN"
	m[0xE3] = "XTHL"
	m[0xE9] = "PCHL"
	m[0xEB] = "XCHG"
	m[0xF3] = "DI"
	m[0xF9] = "SPHL"
	m[0xFB] = "EI"

	return m
}
