// This file is part of GopherBoy.
//
// GopherBoy is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// GopherBoy is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with GopherBoy.  If not, see <https://www.gnu.org/licenses/>.

package sm83

// execute the instruction. the opcode has already been fetched
func (c *CPU) execute(opcode uint8) error {
	switch {
	case opcode == 0x76:
		c.halt()
		return nil

	case opcode >= 0x40 && opcode < 0x80:
		// LD r, r'
		c.setR8(opcode>>3, c.r8(opcode))
		return nil

	case opcode >= 0x80 && opcode < 0xc0:
		// ALU A, r
		c.alu(opcode>>3, c.r8(opcode))
		return nil
	}

	switch opcode {
	case 0x00:
		// NOP

	case 0x01, 0x11, 0x21, 0x31:
		// LD rr, d16
		c.setR16(opcode>>4, c.fetch16())

	case 0x02:
		c.write8(c.bc(), c.state.A)
	case 0x12:
		c.write8(c.de(), c.state.A)
	case 0x22:
		hl := c.hl()
		c.write8(hl, c.state.A)
		c.setHL(hl + 1)
	case 0x32:
		hl := c.hl()
		c.write8(hl, c.state.A)
		c.setHL(hl - 1)

	case 0x0a:
		c.state.A = c.read8(c.bc())
	case 0x1a:
		c.state.A = c.read8(c.de())
	case 0x2a:
		hl := c.hl()
		c.state.A = c.read8(hl)
		c.setHL(hl + 1)
	case 0x3a:
		hl := c.hl()
		c.state.A = c.read8(hl)
		c.setHL(hl - 1)

	case 0x03, 0x13, 0x23, 0x33:
		// INC rr
		c.setR16(opcode>>4, c.r16(opcode>>4)+1)
		c.tick(4)
	case 0x0b, 0x1b, 0x2b, 0x3b:
		// DEC rr
		c.setR16(opcode>>4, c.r16(opcode>>4)-1)
		c.tick(4)

	case 0x04, 0x0c, 0x14, 0x1c, 0x24, 0x2c, 0x34, 0x3c:
		// INC r
		r := opcode >> 3
		v := c.r8(r)
		n := v + 1
		c.setR8(r, n)
		c.setFlag(flagZ, n == 0)
		c.setFlag(flagN, false)
		c.setFlag(flagH, v&0x0f == 0x0f)

	case 0x05, 0x0d, 0x15, 0x1d, 0x25, 0x2d, 0x35, 0x3d:
		// DEC r
		r := opcode >> 3
		v := c.r8(r)
		n := v - 1
		c.setR8(r, n)
		c.setFlag(flagZ, n == 0)
		c.setFlag(flagN, true)
		c.setFlag(flagH, v&0x0f == 0x00)

	case 0x06, 0x0e, 0x16, 0x1e, 0x26, 0x2e, 0x36, 0x3e:
		// LD r, d8
		c.setR8(opcode>>3, c.fetch8())

	case 0x07:
		// RLCA
		c.state.A = c.rlc(c.state.A)
		c.setFlag(flagZ, false)
	case 0x0f:
		// RRCA
		c.state.A = c.rrc(c.state.A)
		c.setFlag(flagZ, false)
	case 0x17:
		// RLA
		c.state.A = c.rl(c.state.A)
		c.setFlag(flagZ, false)
	case 0x1f:
		// RRA
		c.state.A = c.rr(c.state.A)
		c.setFlag(flagZ, false)

	case 0x08:
		// LD (a16), SP
		addr := c.fetch16()
		c.write8(addr, uint8(c.state.SP))
		c.write8(addr+1, uint8(c.state.SP>>8))

	case 0x09, 0x19, 0x29, 0x39:
		// ADD HL, rr
		hl := c.hl()
		v := c.r16(opcode >> 4)
		r := uint32(hl) + uint32(v)
		c.setFlag(flagN, false)
		c.setFlag(flagH, (hl&0x0fff)+(v&0x0fff) > 0x0fff)
		c.setFlag(flagC, r > 0xffff)
		c.setHL(uint16(r))
		c.tick(4)

	case 0x10:
		// STOP. the second byte of the instruction is ignored
		c.fetch8()
		if c.stop == nil || !c.stop() {
			c.state.Halted = true
		}

	case 0x18:
		// JR e8
		e := int8(c.fetch8())
		c.state.PC = uint16(int32(c.state.PC) + int32(e))
		c.tick(4)

	case 0x20, 0x28, 0x30, 0x38:
		// JR cc, e8
		e := int8(c.fetch8())
		if c.condition(opcode >> 3) {
			c.state.PC = uint16(int32(c.state.PC) + int32(e))
			c.tick(4)
		}

	case 0x27:
		c.daa()
	case 0x2f:
		// CPL
		c.state.A = ^c.state.A
		c.setFlag(flagN, true)
		c.setFlag(flagH, true)
	case 0x37:
		// SCF
		c.setFlag(flagN, false)
		c.setFlag(flagH, false)
		c.setFlag(flagC, true)
	case 0x3f:
		// CCF
		c.setFlag(flagN, false)
		c.setFlag(flagH, false)
		c.setFlag(flagC, !c.flag(flagC))

	case 0xc0, 0xc8, 0xd0, 0xd8:
		// RET cc
		c.tick(4)
		if c.condition(opcode >> 3) {
			c.state.PC = c.pop16()
			c.tick(4)
		}

	case 0xc9:
		// RET
		c.state.PC = c.pop16()
		c.tick(4)

	case 0xd9:
		// RETI. interrupts are enabled immediately
		c.state.PC = c.pop16()
		c.tick(4)
		c.ints.SetMaster(true)

	case 0xc1, 0xd1, 0xe1:
		// POP rr
		c.setR16(opcode>>4, c.pop16())
	case 0xf1:
		// POP AF
		v := c.pop16()
		c.state.A = uint8(v >> 8)
		c.state.F = uint8(v) & 0xf0

	case 0xc5, 0xd5, 0xe5:
		// PUSH rr
		c.tick(4)
		c.push16(c.r16(opcode >> 4))
	case 0xf5:
		// PUSH AF
		c.tick(4)
		c.push16(uint16(c.state.A)<<8 | uint16(c.state.F))

	case 0xc3:
		// JP a16
		c.state.PC = c.fetch16()
		c.tick(4)

	case 0xc2, 0xca, 0xd2, 0xda:
		// JP cc, a16
		addr := c.fetch16()
		if c.condition(opcode >> 3) {
			c.state.PC = addr
			c.tick(4)
		}

	case 0xe9:
		// JP HL
		c.state.PC = c.hl()

	case 0xcd:
		// CALL a16
		addr := c.fetch16()
		c.tick(4)
		c.push16(c.state.PC)
		c.state.PC = addr

	case 0xc4, 0xcc, 0xd4, 0xdc:
		// CALL cc, a16
		addr := c.fetch16()
		if c.condition(opcode >> 3) {
			c.tick(4)
			c.push16(c.state.PC)
			c.state.PC = addr
		}

	case 0xc7, 0xcf, 0xd7, 0xdf, 0xe7, 0xef, 0xf7, 0xff:
		// RST
		c.tick(4)
		c.push16(c.state.PC)
		c.state.PC = uint16(opcode & 0x38)

	case 0xc6, 0xce, 0xd6, 0xde, 0xe6, 0xee, 0xf6, 0xfe:
		// ALU A, d8
		c.alu(opcode>>3, c.fetch8())

	case 0xcb:
		c.executeCB(c.fetch8())

	case 0xe0:
		// LDH (a8), A
		c.write8(0xff00|uint16(c.fetch8()), c.state.A)
	case 0xf0:
		// LDH A, (a8)
		c.state.A = c.read8(0xff00 | uint16(c.fetch8()))
	case 0xe2:
		// LD (C), A
		c.write8(0xff00|uint16(c.state.C), c.state.A)
	case 0xf2:
		// LD A, (C)
		c.state.A = c.read8(0xff00 | uint16(c.state.C))
	case 0xea:
		// LD (a16), A
		c.write8(c.fetch16(), c.state.A)
	case 0xfa:
		// LD A, (a16)
		c.state.A = c.read8(c.fetch16())

	case 0xe8:
		// ADD SP, e8
		c.state.SP = c.addSP(c.fetch8())
		c.tick(8)
	case 0xf8:
		// LD HL, SP+e8
		c.setHL(c.addSP(c.fetch8()))
		c.tick(4)
	case 0xf9:
		// LD SP, HL
		c.state.SP = c.hl()
		c.tick(4)

	case 0xf3:
		// DI
		c.ints.SetMaster(false)
		c.state.EIDelay = false
	case 0xfb:
		// EI
		c.state.EIDelay = true

	default:
		return illegalOpcode(opcode)
	}

	return nil
}

func (c *CPU) halt() {
	if !c.ints.Master() && c.ints.Asserted() {
		// the halt bug. the CPU does not halt and the next byte is read twice
		c.state.HaltBug = true
		return
	}
	c.state.Halted = true
}

// alu performs one of the eight arithmetic/logic operations on the A register.
// ADD, ADC, SUB, SBC, AND, XOR, OR, CP
func (c *CPU) alu(op uint8, v uint8) {
	a := c.state.A
	switch op & 0x07 {
	case 0, 1:
		var carry uint8
		if op&0x07 == 1 && c.flag(flagC) {
			carry = 1
		}
		r := uint16(a) + uint16(v) + uint16(carry)
		c.state.A = uint8(r)
		c.setFlags(uint8(r) == 0, false, (a&0x0f)+(v&0x0f)+carry > 0x0f, r > 0xff)
	case 2, 3, 7:
		var carry uint8
		if op&0x07 == 3 && c.flag(flagC) {
			carry = 1
		}
		r := uint8(int(a) - int(v) - int(carry))
		c.setFlags(r == 0, true, int(a&0x0f)-int(v&0x0f)-int(carry) < 0, int(a)-int(v)-int(carry) < 0)
		if op&0x07 != 7 {
			c.state.A = r
		}
	case 4:
		c.state.A = a & v
		c.setFlags(c.state.A == 0, false, true, false)
	case 5:
		c.state.A = a ^ v
		c.setFlags(c.state.A == 0, false, false, false)
	case 6:
		c.state.A = a | v
		c.setFlags(c.state.A == 0, false, false, false)
	}
}

func (c *CPU) addSP(b uint8) uint16 {
	sp := c.state.SP
	e := uint16(int16(int8(b)))
	c.setFlags(false, false, (sp&0x0f)+uint16(b&0x0f) > 0x0f, (sp&0xff)+uint16(b) > 0xff)
	return sp + e
}

func (c *CPU) daa() {
	a := c.state.A
	cy := c.flag(flagC)
	if !c.flag(flagN) {
		if cy || a > 0x99 {
			a += 0x60
			cy = true
		}
		if c.flag(flagH) || a&0x0f > 0x09 {
			a += 0x06
		}
	} else {
		if cy {
			a -= 0x60
		}
		if c.flag(flagH) {
			a -= 0x06
		}
	}
	c.state.A = a
	c.setFlag(flagZ, a == 0)
	c.setFlag(flagH, false)
	c.setFlag(flagC, cy)
}

func (c *CPU) rlc(v uint8) uint8 {
	r := v<<1 | v>>7
	c.setFlags(r == 0, false, false, v&0x80 == 0x80)
	return r
}

func (c *CPU) rrc(v uint8) uint8 {
	r := v>>1 | v<<7
	c.setFlags(r == 0, false, false, v&0x01 == 0x01)
	return r
}

func (c *CPU) rl(v uint8) uint8 {
	r := v << 1
	if c.flag(flagC) {
		r |= 0x01
	}
	c.setFlags(r == 0, false, false, v&0x80 == 0x80)
	return r
}

func (c *CPU) rr(v uint8) uint8 {
	r := v >> 1
	if c.flag(flagC) {
		r |= 0x80
	}
	c.setFlags(r == 0, false, false, v&0x01 == 0x01)
	return r
}

// executeCB executes the instructions prefixed by 0xcb
func (c *CPU) executeCB(opcode uint8) {
	r := opcode & 0x07
	b := (opcode >> 3) & 0x07

	switch opcode >> 6 {
	case 0:
		v := c.r8(r)
		var n uint8
		switch b {
		case 0:
			n = c.rlc(v)
		case 1:
			n = c.rrc(v)
		case 2:
			n = c.rl(v)
		case 3:
			n = c.rr(v)
		case 4:
			// SLA
			n = v << 1
			c.setFlags(n == 0, false, false, v&0x80 == 0x80)
		case 5:
			// SRA
			n = v>>1 | v&0x80
			c.setFlags(n == 0, false, false, v&0x01 == 0x01)
		case 6:
			// SWAP
			n = v<<4 | v>>4
			c.setFlags(n == 0, false, false, false)
		case 7:
			// SRL
			n = v >> 1
			c.setFlags(n == 0, false, false, v&0x01 == 0x01)
		}
		c.setR8(r, n)
	case 1:
		// BIT
		v := c.r8(r)
		c.setFlag(flagZ, v&(1<<b) == 0)
		c.setFlag(flagN, false)
		c.setFlag(flagH, true)
	case 2:
		// RES
		c.setR8(r, c.r8(r)&^(1<<b))
	case 3:
		// SET
		c.setR8(r, c.r8(r)|(1<<b))
	}
}
