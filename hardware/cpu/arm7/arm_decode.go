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
	"math/bits"

	"github.com/jetsetilly/gopherboy/hardware/memory/bus"
)

// decodeFunction performs the effect of a decoded instruction.
type decodeFunction func()

// decodeARM decodes an ARM instruction. The second return value is true if
// the instruction can change the flow of execution, either by writing to the
// PC or by changing the processor mode.
//
// The condition field is checked by the returned function.
//
// Decoding does not read or alter the state of the ARM. It is safe to call
// decodeARM() from another goroutine.
func (arm *ARM) decodeARM(opcode uint32) (decodeFunction, bool) {
	cond := opcode >> 28

	// the NV condition is never executed on the ARM7TDMI
	if cond == 0xf {
		return func() {}, false
	}

	f, flow := arm.decodeARMInstruction(opcode)
	if cond == 0xe {
		return f, flow
	}

	return func() {
		if arm.state.Status.condition(cond) {
			f()
		}
	}, flow
}

func (arm *ARM) decodeARMInstruction(opcode uint32) (decodeFunction, bool) {
	switch {
	case opcode&0x0ffffff0 == 0x012fff10:
		return arm.decodeARMBranchExchange(opcode), true
	case opcode&0x0fc000f0 == 0x00000090:
		return arm.decodeARMMultiply(opcode), false
	case opcode&0x0f8000f0 == 0x00800090:
		return arm.decodeARMMultiplyLong(opcode), false
	case opcode&0x0fb00ff0 == 0x01000090:
		return arm.decodeARMSwap(opcode), false
	case opcode&0x0e000090 == 0x00000090 && opcode&0x60 != 0:
		return arm.decodeARMHalfwordTransfer(opcode)
	case opcode&0x0fbf0fff == 0x010f0000:
		return arm.decodeARMStatusToRegister(opcode), false
	case opcode&0x0db0f000 == 0x0120f000:
		return arm.decodeARMRegisterToStatus(opcode), true
	case opcode&0x0c000000 == 0x00000000:
		return arm.decodeARMDataProcessing(opcode)
	case opcode&0x0e000010 == 0x06000010:
		return arm.decodeARMUndefined(opcode), true
	case opcode&0x0c000000 == 0x04000000:
		return arm.decodeARMSingleDataTransfer(opcode)
	case opcode&0x0e000000 == 0x08000000:
		return arm.decodeARMBlockDataTransfer(opcode)
	case opcode&0x0e000000 == 0x0a000000:
		return arm.decodeARMBranch(opcode), true
	case opcode&0x0f000000 == 0x0f000000:
		function := (opcode >> 16) & 0xff
		return func() {
			arm.softwareInterrupt(function)
		}, true
	}

	// there are no coprocessors
	return arm.decodeARMUndefined(opcode), true
}

func (arm *ARM) decodeARMUndefined(opcode uint32) decodeFunction {
	return func() {
		arm.undefined(opcode)
	}
}

func (arm *ARM) decodeARMBranchExchange(opcode uint32) decodeFunction {
	rm := opcode & 0x0f
	return func() {
		v := arm.state.R[rm]
		arm.state.Status.Thumb = v&0x01 == 0x01
		arm.setPC(v)
	}
}

func (arm *ARM) decodeARMBranch(opcode uint32) decodeFunction {
	link := opcode&0x01000000 == 0x01000000
	offset := uint32(int32(opcode<<8) >> 6)
	return func() {
		if link {
			arm.state.R[rLR] = arm.state.R[rPC] - 4
		}
		arm.setPC(arm.state.R[rPC] + offset)
	}
}

// operand2 returns a function that evaluates the second operand of a data
// processing instruction, along with the carry out of the barrel shifter.
func (arm *ARM) operand2(opcode uint32) func() (uint32, bool) {
	if opcode&0x02000000 == 0x02000000 {
		imm := opcode & 0xff
		rot := ((opcode >> 8) & 0x0f) * 2
		v := bits.RotateLeft32(imm, -int(rot))
		if rot == 0 {
			return func() (uint32, bool) {
				return v, arm.state.Status.Carry
			}
		}
		carry := v&0x80000000 == 0x80000000
		return func() (uint32, bool) {
			return v, carry
		}
	}

	rm := opcode & 0x0f
	typ := (opcode >> 5) & 0x03

	// shift by register. the PC reads one word further ahead because of the
	// extra internal cycle
	if opcode&0x10 == 0x10 {
		rs := (opcode >> 8) & 0x0f
		return func() (uint32, bool) {
			arm.idle(1)
			v := arm.state.R[rm]
			if rm == rPC {
				v += 4
			}
			return shiftRegister(typ, v, arm.state.R[rs], arm.state.Status.Carry)
		}
	}

	amount := (opcode >> 7) & 0x1f
	return func() (uint32, bool) {
		return shiftImmediate(typ, arm.state.R[rm], amount, arm.state.Status.Carry)
	}
}

func (arm *ARM) decodeARMDataProcessing(opcode uint32) (decodeFunction, bool) {
	op := (opcode >> 21) & 0x0f
	setFlags := opcode&0x00100000 == 0x00100000
	rn := (opcode >> 16) & 0x0f
	rd := (opcode >> 12) & 0x0f
	operand := arm.operand2(opcode)
	regShift := opcode&0x02000010 == 0x00000010

	// comparison instructions do not write a result
	test := op >= 0x8 && op <= 0xb

	// the value of the first operand register
	first := func() uint32 {
		v := arm.state.R[rn]
		if rn == rPC && regShift {
			v += 4
		}
		return v
	}

	// writeback of the result. writing to the PC with the S bit set restores
	// the CPSR from the SPSR
	result := func(v uint32) {
		if rd == rPC {
			if setFlags {
				arm.restoreStatus()
			}
			arm.setPC(v)
			return
		}
		arm.state.R[rd] = v
	}

	// logical operations set the carry flag from the shifter
	logical := func(v uint32, carry bool) {
		if setFlags && rd != rPC {
			arm.state.Status.setNZ(v)
			arm.state.Status.Carry = carry
		}
	}

	flow := rd == rPC && !test

	var f decodeFunction

	switch op {
	case 0x0: // AND
		f = func() {
			b, c := operand()
			v := first() & b
			logical(v, c)
			result(v)
		}
	case 0x1: // EOR
		f = func() {
			b, c := operand()
			v := first() ^ b
			logical(v, c)
			result(v)
		}
	case 0x2: // SUB
		f = func() {
			b, _ := operand()
			v := arm.state.Status.sub(first(), b, 1, setFlags && rd != rPC)
			result(v)
		}
	case 0x3: // RSB
		f = func() {
			b, _ := operand()
			v := arm.state.Status.sub(b, first(), 1, setFlags && rd != rPC)
			result(v)
		}
	case 0x4: // ADD
		f = func() {
			b, _ := operand()
			v := arm.state.Status.add(first(), b, 0, setFlags && rd != rPC)
			result(v)
		}
	case 0x5: // ADC
		f = func() {
			b, _ := operand()
			v := arm.state.Status.add(first(), b, arm.carry(), setFlags && rd != rPC)
			result(v)
		}
	case 0x6: // SBC
		f = func() {
			b, _ := operand()
			v := arm.state.Status.sub(first(), b, arm.carry(), setFlags && rd != rPC)
			result(v)
		}
	case 0x7: // RSC
		f = func() {
			b, _ := operand()
			v := arm.state.Status.sub(b, first(), arm.carry(), setFlags && rd != rPC)
			result(v)
		}
	case 0x8: // TST
		f = func() {
			b, c := operand()
			v := first() & b
			arm.state.Status.setNZ(v)
			arm.state.Status.Carry = c
		}
	case 0x9: // TEQ
		f = func() {
			b, c := operand()
			v := first() ^ b
			arm.state.Status.setNZ(v)
			arm.state.Status.Carry = c
		}
	case 0xa: // CMP
		f = func() {
			b, _ := operand()
			arm.state.Status.sub(first(), b, 1, true)
		}
	case 0xb: // CMN
		f = func() {
			b, _ := operand()
			arm.state.Status.add(first(), b, 0, true)
		}
	case 0xc: // ORR
		f = func() {
			b, c := operand()
			v := first() | b
			logical(v, c)
			result(v)
		}
	case 0xd: // MOV
		f = func() {
			b, c := operand()
			logical(b, c)
			result(b)
		}
	case 0xe: // BIC
		f = func() {
			b, c := operand()
			v := first() &^ b
			logical(v, c)
			result(v)
		}
	case 0xf: // MVN
		f = func() {
			b, c := operand()
			logical(^b, c)
			result(^b)
		}
	}

	return f, flow
}

// carry returns the carry flag as a value suitable for the add() and sub()
// functions.
func (arm *ARM) carry() uint32 {
	if arm.state.Status.Carry {
		return 1
	}
	return 0
}

func (arm *ARM) decodeARMStatusToRegister(opcode uint32) decodeFunction {
	useSPSR := opcode&0x00400000 == 0x00400000
	rd := (opcode >> 12) & 0x0f
	return func() {
		if useSPSR {
			arm.state.R[rd] = arm.spsr()
		} else {
			arm.state.R[rd] = arm.state.Status.Word()
		}
	}
}

func (arm *ARM) decodeARMRegisterToStatus(opcode uint32) decodeFunction {
	useSPSR := opcode&0x00400000 == 0x00400000
	flags := opcode&0x00080000 == 0x00080000
	control := opcode&0x00010000 == 0x00010000

	var value func() uint32
	if opcode&0x02000000 == 0x02000000 {
		v := bits.RotateLeft32(opcode&0xff, -int(((opcode>>8)&0x0f)*2))
		value = func() uint32 { return v }
	} else {
		rm := opcode & 0x0f
		value = func() uint32 { return arm.state.R[rm] }
	}

	var mask uint32
	if flags {
		mask |= 0xff000000
	}
	if control {
		mask |= 0x000000ff
	}

	return func() {
		v := value()
		if useSPSR {
			if arm.state.Status.Mode.hasSPSR() {
				b := arm.state.Status.Mode.bank()
				arm.state.SPSR[b] = arm.state.SPSR[b]&^mask | v&mask
			}
			return
		}
		arm.writeStatus(v, flags, control, false)
	}
}

func (arm *ARM) decodeARMMultiply(opcode uint32) decodeFunction {
	accumulate := opcode&0x00200000 == 0x00200000
	setFlags := opcode&0x00100000 == 0x00100000
	rd := (opcode >> 16) & 0x0f
	rn := (opcode >> 12) & 0x0f
	rs := (opcode >> 8) & 0x0f
	rm := opcode & 0x0f

	return func() {
		s := arm.state.R[rs]
		v := arm.state.R[rm] * s
		n := multiplyCycles(s, true)
		if accumulate {
			v += arm.state.R[rn]
			n++
		}
		arm.idle(n)
		arm.state.R[rd] = v
		if setFlags {
			arm.state.Status.setNZ(v)
		}
	}
}

func (arm *ARM) decodeARMMultiplyLong(opcode uint32) decodeFunction {
	signed := opcode&0x00400000 == 0x00400000
	accumulate := opcode&0x00200000 == 0x00200000
	setFlags := opcode&0x00100000 == 0x00100000
	rdHi := (opcode >> 16) & 0x0f
	rdLo := (opcode >> 12) & 0x0f
	rs := (opcode >> 8) & 0x0f
	rm := opcode & 0x0f

	return func() {
		s := arm.state.R[rs]
		var v uint64
		if signed {
			v = uint64(int64(int32(arm.state.R[rm])) * int64(int32(s)))
		} else {
			v = uint64(arm.state.R[rm]) * uint64(s)
		}
		n := multiplyCycles(s, signed) + 1
		if accumulate {
			v += uint64(arm.state.R[rdHi])<<32 | uint64(arm.state.R[rdLo])
			n++
		}
		arm.idle(n)
		arm.state.R[rdLo] = uint32(v)
		arm.state.R[rdHi] = uint32(v >> 32)
		if setFlags {
			arm.state.Status.Negative = v&0x8000000000000000 != 0
			arm.state.Status.Zero = v == 0
		}
	}
}

func (arm *ARM) decodeARMSwap(opcode uint32) decodeFunction {
	byteSwap := opcode&0x00400000 == 0x00400000
	rn := (opcode >> 16) & 0x0f
	rd := (opcode >> 12) & 0x0f
	rm := opcode & 0x0f

	return func() {
		addr := arm.state.R[rn]
		src := arm.state.R[rm]
		var v uint32
		if byteSwap {
			v = arm.read(addr, bus.Byte, false)
			arm.write(addr, src&0xff, bus.Byte, false)
		} else {
			v = arm.readWord(addr)
			arm.write(addr&^0x03, src, bus.Word, false)
		}
		arm.idle(1)
		arm.state.R[rd] = v
	}
}

func (arm *ARM) decodeARMSingleDataTransfer(opcode uint32) (decodeFunction, bool) {
	registerOffset := opcode&0x02000000 == 0x02000000
	pre := opcode&0x01000000 == 0x01000000
	up := opcode&0x00800000 == 0x00800000
	byteTransfer := opcode&0x00400000 == 0x00400000
	writeback := opcode&0x00200000 == 0x00200000 || !pre
	load := opcode&0x00100000 == 0x00100000
	rn := (opcode >> 16) & 0x0f
	rd := (opcode >> 12) & 0x0f

	var offset func() uint32
	if registerOffset {
		rm := opcode & 0x0f
		typ := (opcode >> 5) & 0x03
		amount := (opcode >> 7) & 0x1f
		offset = func() uint32 {
			v, _ := shiftImmediate(typ, arm.state.R[rm], amount, arm.state.Status.Carry)
			return v
		}
	} else {
		imm := opcode & 0xfff
		offset = func() uint32 { return imm }
	}

	address := func() (uint32, uint32) {
		base := arm.state.R[rn]
		o := offset()
		var moved uint32
		if up {
			moved = base + o
		} else {
			moved = base - o
		}
		if pre {
			return moved, moved
		}
		return base, moved
	}

	if load {
		return func() {
			addr, moved := address()
			var v uint32
			if byteTransfer {
				v = arm.read(addr, bus.Byte, false)
			} else {
				v = arm.readWord(addr)
			}
			arm.idle(1)
			if writeback && rn != rd {
				arm.state.R[rn] = moved
			}
			if rd == rPC {
				arm.setPC(v)
			} else {
				arm.state.R[rd] = v
			}
		}, rd == rPC
	}

	return func() {
		addr, moved := address()
		v := arm.state.R[rd]
		if rd == rPC {
			v += 4
		}
		if byteTransfer {
			arm.write(addr, v&0xff, bus.Byte, false)
		} else {
			arm.write(addr&^0x03, v, bus.Word, false)
		}
		if writeback {
			arm.state.R[rn] = moved
		}
	}, false
}

func (arm *ARM) decodeARMHalfwordTransfer(opcode uint32) (decodeFunction, bool) {
	pre := opcode&0x01000000 == 0x01000000
	up := opcode&0x00800000 == 0x00800000
	immediate := opcode&0x00400000 == 0x00400000
	writeback := opcode&0x00200000 == 0x00200000 || !pre
	load := opcode&0x00100000 == 0x00100000
	rn := (opcode >> 16) & 0x0f
	rd := (opcode >> 12) & 0x0f
	sh := (opcode >> 5) & 0x03

	var offset func() uint32
	if immediate {
		imm := (opcode>>4)&0xf0 | opcode&0x0f
		offset = func() uint32 { return imm }
	} else {
		rm := opcode & 0x0f
		offset = func() uint32 { return arm.state.R[rm] }
	}

	address := func() (uint32, uint32) {
		base := arm.state.R[rn]
		o := offset()
		var moved uint32
		if up {
			moved = base + o
		} else {
			moved = base - o
		}
		if pre {
			return moved, moved
		}
		return base, moved
	}

	if !load {
		// STRH is the only store. the other store encodings are undefined
		// on the ARM7TDMI
		if sh != 0x01 {
			return arm.decodeARMUndefined(opcode), true
		}
		return func() {
			addr, moved := address()
			v := arm.state.R[rd]
			if rd == rPC {
				v += 4
			}
			arm.write(addr&^0x01, v&0xffff, bus.HalfWord, false)
			if writeback {
				arm.state.R[rn] = moved
			}
		}, false
	}

	return func() {
		addr, moved := address()
		var v uint32
		switch sh {
		case 0x01:
			v = arm.readHalf(addr)
		case 0x02:
			v = uint32(int32(int8(arm.read(addr, bus.Byte, false))))
		case 0x03:
			v = arm.readSignedHalf(addr)
		}
		arm.idle(1)
		if writeback && rn != rd {
			arm.state.R[rn] = moved
		}
		if rd == rPC {
			arm.setPC(v)
		} else {
			arm.state.R[rd] = v
		}
	}, rd == rPC
}

func (arm *ARM) decodeARMBlockDataTransfer(opcode uint32) (decodeFunction, bool) {
	pre := opcode&0x01000000 == 0x01000000
	up := opcode&0x00800000 == 0x00800000
	userBank := opcode&0x00400000 == 0x00400000
	writeback := opcode&0x00200000 == 0x00200000
	load := opcode&0x00100000 == 0x00100000
	rn := (opcode >> 16) & 0x0f
	list := opcode & 0xffff

	// an empty register list transfers the PC and moves the base by 64 bytes
	count := uint32(bits.OnesCount32(list))
	if list == 0 {
		list = 0x8000
		count = 16
	}

	loadsPC := load && list&0x8000 == 0x8000

	// the address range of the transfer. registers are always transferred in
	// ascending order to ascending addresses
	addresses := func() (uint32, uint32) {
		base := arm.state.R[rn]
		if up {
			if pre {
				return base + 4, base + count*4
			}
			return base, base + count*4
		}
		if pre {
			return base - count*4, base - count*4
		}
		return base - count*4 + 4, base - count*4
	}

	if load {
		return func() {
			addr, moved := addresses()
			if writeback {
				arm.state.R[rn] = moved
			}

			// user bank transfer unless the PC is in the list
			user := userBank && !loadsPC

			seq := false
			for r := 0; r < 16; r++ {
				if list&(1<<r) == 0 {
					continue
				}
				v := arm.read(addr&^0x03, bus.Word, seq)
				seq = true
				addr += 4
				switch {
				case r == rPC:
					if userBank {
						arm.restoreStatus()
					}
					arm.setPC(v)
				case user:
					arm.setUserRegister(r, v)
				default:
					arm.state.R[r] = v
				}
			}
			arm.idle(1)
		}, loadsPC || userBank
	}

	return func() {
		addr, moved := addresses()
		first := true
		seq := false
		for r := 0; r < 16; r++ {
			if list&(1<<r) == 0 {
				continue
			}
			var v uint32
			if userBank {
				v = arm.userRegister(r)
			} else {
				v = arm.state.R[r]
			}
			switch {
			case r == rPC:
				v += 4
			case uint32(r) == rn && !first && writeback:
				v = moved
			}
			arm.write(addr&^0x03, v, bus.Word, seq)
			seq = true
			first = false
			addr += 4
		}
		if writeback {
			arm.state.R[rn] = moved
		}
	}, false
}
