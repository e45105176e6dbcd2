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

package arm7

import (
	"strings"
)

// Status is the current program status register (CPSR). The flags are kept as
// individual values for speed of access.
type Status struct {
	Negative bool
	Zero     bool
	Carry    bool
	Overflow bool

	// interrupt disable bits
	IRQDisable bool
	FIQDisable bool

	Thumb bool
	Mode  Mode
}

func (sr Status) String() string {
	s := strings.Builder{}
	flag := func(b bool, t, f rune) {
		if b {
			s.WriteRune(t)
		} else {
			s.WriteRune(f)
		}
	}
	flag(sr.Negative, 'N', 'n')
	flag(sr.Zero, 'Z', 'z')
	flag(sr.Carry, 'C', 'c')
	flag(sr.Overflow, 'V', 'v')
	flag(sr.IRQDisable, 'I', 'i')
	flag(sr.FIQDisable, 'F', 'f')
	flag(sr.Thumb, 'T', 't')
	s.WriteRune(' ')
	s.WriteString(sr.Mode.String())
	return s.String()
}

// Word returns the status as a 32 bit value.
func (sr Status) Word() uint32 {
	v := uint32(sr.Mode)
	if sr.Negative {
		v |= 0x80000000
	}
	if sr.Zero {
		v |= 0x40000000
	}
	if sr.Carry {
		v |= 0x20000000
	}
	if sr.Overflow {
		v |= 0x10000000
	}
	if sr.IRQDisable {
		v |= 0x80
	}
	if sr.FIQDisable {
		v |= 0x40
	}
	if sr.Thumb {
		v |= 0x20
	}
	return v
}

// setFlags sets the condition flags from the top four bits of the value.
func (sr *Status) setFlags(v uint32) {
	sr.Negative = v&0x80000000 == 0x80000000
	sr.Zero = v&0x40000000 == 0x40000000
	sr.Carry = v&0x20000000 == 0x20000000
	sr.Overflow = v&0x10000000 == 0x10000000
}

func (sr *Status) isNegative(a uint32) {
	sr.Negative = a&0x80000000 == 0x80000000
}

func (sr *Status) isZero(a uint32) {
	sr.Zero = a == 0x00
}

// setNZ sets the negative and zero flags from the result.
func (sr *Status) setNZ(a uint32) {
	sr.isNegative(a)
	sr.isZero(a)
}

// isCarry sets the carry flag for the addition a + b + c.
func (sr *Status) isCarry(a, b, c uint32) {
	sr.Carry = uint64(a)+uint64(b)+uint64(c) > 0xffffffff
}

// isOverflow sets the overflow flag for the addition of a and b giving result.
func (sr *Status) isOverflow(a, b, result uint32) {
	sr.Overflow = (^(a ^ b) & (a ^ result) & 0x80000000) != 0
}

// add returns a + b + c and sets the flags.
func (sr *Status) add(a, b, c uint32, setFlags bool) uint32 {
	r := a + b + c
	if setFlags {
		sr.isCarry(a, b, c)
		sr.isOverflow(a, b, r)
		sr.setNZ(r)
	}
	return r
}

// sub returns a - b - (1-c) and sets the flags. for a simple subtraction c
// should be 1. the carry flag is set if there is no borrow.
func (sr *Status) sub(a, b, c uint32, setFlags bool) uint32 {
	return sr.add(a, ^b, c, setFlags)
}

func (sr *Status) condition(cond uint32) bool {
	switch cond {
	case 0x0:
		return sr.Zero
	case 0x1:
		return !sr.Zero
	case 0x2:
		return sr.Carry
	case 0x3:
		return !sr.Carry
	case 0x4:
		return sr.Negative
	case 0x5:
		return !sr.Negative
	case 0x6:
		return sr.Overflow
	case 0x7:
		return !sr.Overflow
	case 0x8:
		return sr.Carry && !sr.Zero
	case 0x9:
		return !sr.Carry || sr.Zero
	case 0xa:
		return sr.Negative == sr.Overflow
	case 0xb:
		return sr.Negative != sr.Overflow
	case 0xc:
		return !sr.Zero && sr.Negative == sr.Overflow
	case 0xd:
		return sr.Zero || sr.Negative != sr.Overflow
	case 0xe:
		return true
	}
	return false
}

// shift types used by the barrel shifter
const (
	shiftLSL = iota
	shiftLSR
	shiftASR
	shiftROR
)

// shiftImmediate performs a barrel shift with an immediate shift amount.
// returns the result and the carry out. an amount of zero has special meaning
// for all shift types except LSL.
func shiftImmediate(typ uint32, v uint32, amount uint32, carry bool) (uint32, bool) {
	switch typ {
	case shiftLSL:
		if amount == 0 {
			return v, carry
		}
		return v << amount, v&(1<<(32-amount)) != 0
	case shiftLSR:
		if amount == 0 {
			return 0, v&0x80000000 != 0
		}
		return v >> amount, v&(1<<(amount-1)) != 0
	case shiftASR:
		if amount == 0 {
			if v&0x80000000 != 0 {
				return 0xffffffff, true
			}
			return 0, false
		}
		return uint32(int32(v) >> amount), v&(1<<(amount-1)) != 0
	}

	// ROR #0 is RRX
	if amount == 0 {
		r := v >> 1
		if carry {
			r |= 0x80000000
		}
		return r, v&0x01 != 0
	}
	return v>>amount | v<<(32-amount), v&(1<<(amount-1)) != 0
}

// shiftRegister performs a barrel shift with the amount taken from a
// register. only the bottom byte of the amount is used.
func shiftRegister(typ uint32, v uint32, amount uint32, carry bool) (uint32, bool) {
	amount &= 0xff
	if amount == 0 {
		return v, carry
	}

	switch typ {
	case shiftLSL:
		if amount < 32 {
			return v << amount, v&(1<<(32-amount)) != 0
		}
		if amount == 32 {
			return 0, v&0x01 != 0
		}
		return 0, false
	case shiftLSR:
		if amount < 32 {
			return v >> amount, v&(1<<(amount-1)) != 0
		}
		if amount == 32 {
			return 0, v&0x80000000 != 0
		}
		return 0, false
	case shiftASR:
		if amount < 32 {
			return uint32(int32(v) >> amount), v&(1<<(amount-1)) != 0
		}
		if v&0x80000000 != 0 {
			return 0xffffffff, true
		}
		return 0, false
	}

	amount &= 0x1f
	if amount == 0 {
		return v, v&0x80000000 != 0
	}
	return v>>amount | v<<(32-amount), v&(1<<(amount-1)) != 0
}

// multiplyCycles returns the number of internal cycles taken by a multiply
// with the multiplier value. signed multiplies terminate early for leading
// ones as well as leading zeros.
func multiplyCycles(rs uint32, signed bool) int {
	switch {
	case rs&0xffffff00 == 0 || (signed && rs&0xffffff00 == 0xffffff00):
		return 1
	case rs&0xffff0000 == 0 || (signed && rs&0xffff0000 == 0xffff0000):
		return 2
	case rs&0xff000000 == 0 || (signed && rs&0xff000000 == 0xff000000):
		return 3
	}
	return 4
}
