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

// decodeThumb decodes a Thumb instruction. The second return value has the
// same meaning as for decodeARM().
func (arm *ARM) decodeThumb(opcode uint16) (decodeFunction, bool) {
	// working backwards up the table in Figure 5-1 of the ARM7TDMI Data Sheet.
	if opcode&0xf000 == 0xf000 {
		// format 19 - Long branch with link
		return arm.decodeThumbLongBranchWithLink(opcode), opcode&0x0800 == 0x0800
	} else if opcode&0xf800 == 0xe800 {
		// BLX suffix. not present on the ARM7TDMI
		return arm.decodeThumbUndefined(opcode), true
	} else if opcode&0xf000 == 0xe000 {
		// format 18 - Unconditional branch
		return arm.decodeThumbUnconditionalBranch(opcode), true
	} else if opcode&0xff00 == 0xdf00 {
		// format 17 - Software interrupt
		function := uint32(opcode & 0xff)
		return func() {
			arm.softwareInterrupt(function)
		}, true
	} else if opcode&0xff00 == 0xde00 {
		return arm.decodeThumbUndefined(opcode), true
	} else if opcode&0xf000 == 0xd000 {
		// format 16 - Conditional branch
		return arm.decodeThumbConditionalBranch(opcode), true
	} else if opcode&0xf000 == 0xc000 {
		// format 15 - Multiple load/store
		return arm.decodeThumbMultipleLoadStore(opcode), false
	} else if opcode&0xf600 == 0xb400 {
		// format 14 - Push/pop registers
		return arm.decodeThumbPushPopRegisters(opcode), opcode&0x0900 == 0x0900
	} else if opcode&0xff00 == 0xb000 {
		// format 13 - Add offset to stack pointer
		return arm.decodeThumbAddOffsetToSP(opcode), false
	} else if opcode&0xf000 == 0xa000 {
		// format 12 - Load address
		return arm.decodeThumbLoadAddress(opcode), false
	} else if opcode&0xf000 == 0x9000 {
		// format 11 - SP-relative load/store
		return arm.decodeThumbSPRelativeLoadStore(opcode), false
	} else if opcode&0xf000 == 0x8000 {
		// format 10 - Load/store halfword
		return arm.decodeThumbLoadStoreHalfword(opcode), false
	} else if opcode&0xe000 == 0x6000 {
		// format 9 - Load/store with immediate offset
		return arm.decodeThumbLoadStoreWithImmOffset(opcode), false
	} else if opcode&0xf200 == 0x5200 {
		// format 8 - Load/store sign-extended byte/halfword
		return arm.decodeThumbLoadStoreSignExtended(opcode), false
	} else if opcode&0xf200 == 0x5000 {
		// format 7 - Load/store with register offset
		return arm.decodeThumbLoadStoreWithRegisterOffset(opcode), false
	} else if opcode&0xf800 == 0x4800 {
		// format 6 - PC-relative load
		return arm.decodeThumbPCrelativeLoad(opcode), false
	} else if opcode&0xfc00 == 0x4400 {
		// format 5 - Hi register operations/branch exchange
		return arm.decodeThumbHiRegisterOps(opcode)
	} else if opcode&0xfc00 == 0x4000 {
		// format 4 - ALU operations
		return arm.decodeThumbALUoperations(opcode), false
	} else if opcode&0xe000 == 0x2000 {
		// format 3 - Move/compare/add/subtract immediate
		return arm.decodeThumbMovCmpAddSubImm(opcode), false
	} else if opcode&0xf800 == 0x1800 {
		// format 2 - Add/subtract
		return arm.decodeThumbAddSubtract(opcode), false
	}

	// format 1 - Move shifted register
	return arm.decodeThumbMoveShiftedRegister(opcode), false
}

func (arm *ARM) decodeThumbUndefined(opcode uint16) decodeFunction {
	return func() {
		arm.undefined(uint32(opcode))
	}
}

func (arm *ARM) decodeThumbMoveShiftedRegister(opcode uint16) decodeFunction {
	// format 1 - Move shifted register
	typ := uint32(opcode>>11) & 0x03
	amount := uint32(opcode>>6) & 0x1f
	rs := (opcode >> 3) & 0x07
	rd := opcode & 0x07

	return func() {
		v, c := shiftImmediate(typ, arm.state.R[rs], amount, arm.state.Status.Carry)
		arm.state.R[rd] = v
		arm.state.Status.setNZ(v)
		arm.state.Status.Carry = c
	}
}

func (arm *ARM) decodeThumbAddSubtract(opcode uint16) decodeFunction {
	// format 2 - Add/subtract
	immediate := opcode&0x0400 == 0x0400
	subtract := opcode&0x0200 == 0x0200
	rn := uint32(opcode>>6) & 0x07
	rs := (opcode >> 3) & 0x07
	rd := opcode & 0x07

	operand := func() uint32 {
		if immediate {
			return rn
		}
		return arm.state.R[rn]
	}

	if subtract {
		return func() {
			arm.state.R[rd] = arm.state.Status.sub(arm.state.R[rs], operand(), 1, true)
		}
	}
	return func() {
		arm.state.R[rd] = arm.state.Status.add(arm.state.R[rs], operand(), 0, true)
	}
}

// "The instructions in this group perform operations between a Lo register and
// an 8-bit immediate value".
func (arm *ARM) decodeThumbMovCmpAddSubImm(opcode uint16) decodeFunction {
	// format 3 - Move/compare/add/subtract immediate
	op := (opcode >> 11) & 0x03
	rd := (opcode >> 8) & 0x07
	imm := uint32(opcode & 0xff)

	switch op {
	case 0b00: // MOV
		return func() {
			arm.state.R[rd] = imm
			arm.state.Status.setNZ(imm)
		}
	case 0b01: // CMP
		return func() {
			arm.state.Status.sub(arm.state.R[rd], imm, 1, true)
		}
	case 0b10: // ADD
		return func() {
			arm.state.R[rd] = arm.state.Status.add(arm.state.R[rd], imm, 0, true)
		}
	}

	// SUB
	return func() {
		arm.state.R[rd] = arm.state.Status.sub(arm.state.R[rd], imm, 1, true)
	}
}

// "The following instructions perform ALU operations on a Lo register pair".
func (arm *ARM) decodeThumbALUoperations(opcode uint16) decodeFunction {
	// format 4 - ALU operations
	op := (opcode >> 6) & 0x0f
	rs := (opcode >> 3) & 0x07
	rd := opcode & 0x07

	sr := &arm.state.Status

	switch op {
	case 0b0000: // AND
		return func() {
			arm.state.R[rd] &= arm.state.R[rs]
			sr.setNZ(arm.state.R[rd])
		}
	case 0b0001: // EOR
		return func() {
			arm.state.R[rd] ^= arm.state.R[rs]
			sr.setNZ(arm.state.R[rd])
		}
	case 0b0010, 0b0011, 0b0100, 0b0111: // LSL, LSR, ASR, ROR
		var typ uint32
		switch op {
		case 0b0011:
			typ = shiftLSR
		case 0b0100:
			typ = shiftASR
		case 0b0111:
			typ = shiftROR
		}
		return func() {
			arm.idle(1)
			v, c := shiftRegister(typ, arm.state.R[rd], arm.state.R[rs], sr.Carry)
			arm.state.R[rd] = v
			sr.setNZ(v)
			sr.Carry = c
		}
	case 0b0101: // ADC
		return func() {
			arm.state.R[rd] = sr.add(arm.state.R[rd], arm.state.R[rs], arm.carry(), true)
		}
	case 0b0110: // SBC
		return func() {
			arm.state.R[rd] = sr.sub(arm.state.R[rd], arm.state.R[rs], arm.carry(), true)
		}
	case 0b1000: // TST
		return func() {
			sr.setNZ(arm.state.R[rd] & arm.state.R[rs])
		}
	case 0b1001: // NEG
		return func() {
			arm.state.R[rd] = sr.sub(0, arm.state.R[rs], 1, true)
		}
	case 0b1010: // CMP
		return func() {
			sr.sub(arm.state.R[rd], arm.state.R[rs], 1, true)
		}
	case 0b1011: // CMN
		return func() {
			sr.add(arm.state.R[rd], arm.state.R[rs], 0, true)
		}
	case 0b1100: // ORR
		return func() {
			arm.state.R[rd] |= arm.state.R[rs]
			sr.setNZ(arm.state.R[rd])
		}
	case 0b1101: // MUL
		return func() {
			arm.idle(multiplyCycles(arm.state.R[rd], true))
			arm.state.R[rd] *= arm.state.R[rs]
			sr.setNZ(arm.state.R[rd])
		}
	case 0b1110: // BIC
		return func() {
			arm.state.R[rd] &^= arm.state.R[rs]
			sr.setNZ(arm.state.R[rd])
		}
	}

	// MVN
	return func() {
		arm.state.R[rd] = ^arm.state.R[rs]
		sr.setNZ(arm.state.R[rd])
	}
}

func (arm *ARM) decodeThumbHiRegisterOps(opcode uint16) (decodeFunction, bool) {
	// format 5 - Hi register operations/branch exchange
	op := (opcode >> 8) & 0x03
	rs := (opcode >> 3) & 0x0f
	rd := opcode&0x07 | (opcode>>4)&0x08

	switch op {
	case 0b00: // ADD
		return func() {
			v := arm.state.R[rd] + arm.state.R[rs]
			if rd == rPC {
				arm.setPC(v &^ 0x01)
				return
			}
			arm.state.R[rd] = v
		}, rd == rPC
	case 0b01: // CMP
		return func() {
			arm.state.Status.sub(arm.state.R[rd], arm.state.R[rs], 1, true)
		}, false
	case 0b10: // MOV
		return func() {
			v := arm.state.R[rs]
			if rd == rPC {
				arm.setPC(v &^ 0x01)
				return
			}
			arm.state.R[rd] = v
		}, rd == rPC
	}

	// BX
	return func() {
		v := arm.state.R[rs]
		arm.state.Status.Thumb = v&0x01 == 0x01
		arm.setPC(v)
	}, true
}

func (arm *ARM) decodeThumbPCrelativeLoad(opcode uint16) decodeFunction {
	// format 6 - PC-relative load
	rd := (opcode >> 8) & 0x07
	imm := uint32(opcode&0xff) << 2

	return func() {
		// "Bit 1 of the PC value is forced to zero for the purpose of this
		// calculation"
		addr := arm.state.R[rPC]&^0x03 + imm
		arm.state.R[rd] = arm.read(addr, bus.Word, false)
		arm.idle(1)
	}
}

func (arm *ARM) decodeThumbLoadStoreWithRegisterOffset(opcode uint16) decodeFunction {
	// format 7 - Load/store with register offset
	load := opcode&0x0800 == 0x0800
	byteTransfer := opcode&0x0400 == 0x0400
	ro := (opcode >> 6) & 0x07
	rb := (opcode >> 3) & 0x07
	rd := opcode & 0x07

	if load {
		if byteTransfer {
			return func() {
				arm.state.R[rd] = arm.read(arm.state.R[rb]+arm.state.R[ro], bus.Byte, false)
				arm.idle(1)
			}
		}
		return func() {
			arm.state.R[rd] = arm.readWord(arm.state.R[rb] + arm.state.R[ro])
			arm.idle(1)
		}
	}

	if byteTransfer {
		return func() {
			arm.write(arm.state.R[rb]+arm.state.R[ro], arm.state.R[rd]&0xff, bus.Byte, false)
		}
	}
	return func() {
		arm.write((arm.state.R[rb]+arm.state.R[ro])&^0x03, arm.state.R[rd], bus.Word, false)
	}
}

func (arm *ARM) decodeThumbLoadStoreSignExtended(opcode uint16) decodeFunction {
	// format 8 - Load/store sign-extended byte/halfword
	hi := opcode&0x0800 == 0x0800
	sign := opcode&0x0400 == 0x0400
	ro := (opcode >> 6) & 0x07
	rb := (opcode >> 3) & 0x07
	rd := opcode & 0x07

	switch {
	case !sign && !hi: // STRH
		return func() {
			addr := arm.state.R[rb] + arm.state.R[ro]
			arm.write(addr&^0x01, arm.state.R[rd]&0xffff, bus.HalfWord, false)
		}
	case !sign && hi: // LDRH
		return func() {
			arm.state.R[rd] = arm.readHalf(arm.state.R[rb] + arm.state.R[ro])
			arm.idle(1)
		}
	case sign && !hi: // LDSB
		return func() {
			v := arm.read(arm.state.R[rb]+arm.state.R[ro], bus.Byte, false)
			arm.state.R[rd] = uint32(int32(int8(v)))
			arm.idle(1)
		}
	}

	// LDSH
	return func() {
		arm.state.R[rd] = arm.readSignedHalf(arm.state.R[rb] + arm.state.R[ro])
		arm.idle(1)
	}
}

func (arm *ARM) decodeThumbLoadStoreWithImmOffset(opcode uint16) decodeFunction {
	// format 9 - Load/store with immediate offset
	byteTransfer := opcode&0x1000 == 0x1000
	load := opcode&0x0800 == 0x0800
	offset := uint32(opcode>>6) & 0x1f
	rb := (opcode >> 3) & 0x07
	rd := opcode & 0x07

	if byteTransfer {
		if load {
			return func() {
				arm.state.R[rd] = arm.read(arm.state.R[rb]+offset, bus.Byte, false)
				arm.idle(1)
			}
		}
		return func() {
			arm.write(arm.state.R[rb]+offset, arm.state.R[rd]&0xff, bus.Byte, false)
		}
	}

	offset <<= 2
	if load {
		return func() {
			arm.state.R[rd] = arm.readWord(arm.state.R[rb] + offset)
			arm.idle(1)
		}
	}
	return func() {
		arm.write((arm.state.R[rb]+offset)&^0x03, arm.state.R[rd], bus.Word, false)
	}
}

func (arm *ARM) decodeThumbLoadStoreHalfword(opcode uint16) decodeFunction {
	// format 10 - Load/store halfword
	load := opcode&0x0800 == 0x0800
	offset := (uint32(opcode>>6) & 0x1f) << 1
	rb := (opcode >> 3) & 0x07
	rd := opcode & 0x07

	if load {
		return func() {
			arm.state.R[rd] = arm.readHalf(arm.state.R[rb] + offset)
			arm.idle(1)
		}
	}
	return func() {
		arm.write((arm.state.R[rb]+offset)&^0x01, arm.state.R[rd]&0xffff, bus.HalfWord, false)
	}
}

func (arm *ARM) decodeThumbSPRelativeLoadStore(opcode uint16) decodeFunction {
	// format 11 - SP-relative load/store
	load := opcode&0x0800 == 0x0800
	rd := (opcode >> 8) & 0x07
	offset := uint32(opcode&0xff) << 2

	if load {
		return func() {
			arm.state.R[rd] = arm.readWord(arm.state.R[rSP] + offset)
			arm.idle(1)
		}
	}
	return func() {
		arm.write((arm.state.R[rSP]+offset)&^0x03, arm.state.R[rd], bus.Word, false)
	}
}

func (arm *ARM) decodeThumbLoadAddress(opcode uint16) decodeFunction {
	// format 12 - Load address
	sp := opcode&0x0800 == 0x0800
	rd := (opcode >> 8) & 0x07
	offset := uint32(opcode&0xff) << 2

	if sp {
		return func() {
			arm.state.R[rd] = arm.state.R[rSP] + offset
		}
	}
	return func() {
		arm.state.R[rd] = arm.state.R[rPC]&^0x03 + offset
	}
}

func (arm *ARM) decodeThumbAddOffsetToSP(opcode uint16) decodeFunction {
	// format 13 - Add offset to stack pointer
	offset := uint32(opcode&0x7f) << 2
	if opcode&0x80 == 0x80 {
		return func() {
			arm.state.R[rSP] -= offset
		}
	}
	return func() {
		arm.state.R[rSP] += offset
	}
}

func (arm *ARM) decodeThumbPushPopRegisters(opcode uint16) decodeFunction {
	// format 14 - Push/pop registers
	pop := opcode&0x0800 == 0x0800
	extra := opcode&0x0100 == 0x0100
	list := opcode & 0xff

	count := uint32(bits.OnesCount16(list))
	if extra {
		count++
	}

	if pop {
		return func() {
			addr := arm.state.R[rSP]
			seq := false
			for r := 0; r < 8; r++ {
				if list&(1<<r) == 0 {
					continue
				}
				arm.state.R[r] = arm.read(addr, bus.Word, seq)
				seq = true
				addr += 4
			}
			if extra {
				v := arm.read(addr, bus.Word, seq)
				addr += 4
				arm.setPC(v &^ 0x01)
			}
			arm.state.R[rSP] = addr
			arm.idle(1)
		}
	}

	return func() {
		addr := arm.state.R[rSP] - count*4
		arm.state.R[rSP] = addr
		seq := false
		for r := 0; r < 8; r++ {
			if list&(1<<r) == 0 {
				continue
			}
			arm.write(addr, arm.state.R[r], bus.Word, seq)
			seq = true
			addr += 4
		}
		if extra {
			arm.write(addr, arm.state.R[rLR], bus.Word, seq)
		}
	}
}

func (arm *ARM) decodeThumbMultipleLoadStore(opcode uint16) decodeFunction {
	// format 15 - Multiple load/store
	load := opcode&0x0800 == 0x0800
	rb := (opcode >> 8) & 0x07
	list := opcode & 0xff

	// an empty register list transfers the PC and moves the base by 64 bytes
	if list == 0 {
		if load {
			return func() {
				addr := arm.state.R[rb]
				arm.state.R[rb] = addr + 0x40
				v := arm.read(addr&^0x03, bus.Word, false)
				arm.idle(1)
				arm.setPC(v &^ 0x01)
			}
		}
		return func() {
			addr := arm.state.R[rb]
			arm.state.R[rb] = addr + 0x40
			arm.write(addr&^0x03, arm.state.R[rPC]+2, bus.Word, false)
		}
	}

	count := uint32(bits.OnesCount16(list))
	first := bits.TrailingZeros16(list)

	if load {
		return func() {
			addr := arm.state.R[rb]
			arm.state.R[rb] = addr + count*4
			seq := false
			for r := 0; r < 8; r++ {
				if list&(1<<r) == 0 {
					continue
				}
				arm.state.R[r] = arm.read(addr&^0x03, bus.Word, seq)
				seq = true
				addr += 4
			}
			arm.idle(1)
		}
	}

	return func() {
		addr := arm.state.R[rb]
		moved := addr + count*4
		seq := false
		for r := 0; r < 8; r++ {
			if list&(1<<r) == 0 {
				continue
			}
			v := arm.state.R[r]

			// the base register is written as the updated value unless it is
			// the first register in the list
			if uint16(r) == rb && r != first {
				v = moved
			}
			arm.write(addr&^0x03, v, bus.Word, seq)
			seq = true
			addr += 4
		}
		arm.state.R[rb] = moved
	}
}

func (arm *ARM) decodeThumbConditionalBranch(opcode uint16) decodeFunction {
	// format 16 - Conditional branch
	cond := uint32(opcode>>8) & 0x0f
	offset := uint32(int32(int8(opcode&0xff)) << 1)

	return func() {
		if arm.state.Status.condition(cond) {
			arm.setPC(arm.state.R[rPC] + offset)
		}
	}
}

func (arm *ARM) decodeThumbUnconditionalBranch(opcode uint16) decodeFunction {
	// format 18 - Unconditional branch
	offset := uint32(int32(uint32(opcode)<<21) >> 20)

	return func() {
		arm.setPC(arm.state.R[rPC] + offset)
	}
}

func (arm *ARM) decodeThumbLongBranchWithLink(opcode uint16) decodeFunction {
	// format 19 - Long branch with link
	low := opcode&0x0800 == 0x0800
	offset := uint32(opcode & 0x07ff)

	// first instruction of the pair. the high part of the offset is sign
	// extended and added to the PC
	if !low {
		offset = uint32(int32(offset<<21) >> 9)
		return func() {
			arm.state.R[rLR] = arm.state.R[rPC] + offset
		}
	}

	// second instruction of the pair. the link register is set to the
	// address of the instruction following this one, with bit zero set
	offset <<= 1
	return func() {
		next := arm.state.R[rPC] - 2
		arm.setPC(arm.state.R[rLR] + offset)
		arm.state.R[rLR] = next | 0x01
	}
}
