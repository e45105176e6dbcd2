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

package gba

// IO register offsets
const (
	regDISPCNT   = 0x000
	regDISPSTAT  = 0x004
	regVCOUNT    = 0x006
	regBG2PA     = 0x020
	regBG2X      = 0x028
	regBG3PA     = 0x030
	regBG3X      = 0x038
	regAffineEnd = 0x040
	regSound     = 0x060
	regSoundEnd  = 0x0a8
	regDMA       = 0x0b0
	regDMAEnd    = 0x0e0
	regTimer     = 0x100
	regTimerEnd  = 0x110
	regKEYINPUT  = 0x130
	regKEYCNT    = 0x132
	regIE        = 0x200
	regIF        = 0x202
	regWAITCNT   = 0x204
	regIME       = 0x208
	regPOSTFLG   = 0x300
)

// reg returns the stored value of the register at the offset.
func (sys *System) reg(o uint32) uint16 {
	return uint16(sys.io.Registers[o]) | uint16(sys.io.Registers[o+1])<<8
}

func (sys *System) store(o uint32, v uint16) {
	sys.io.Registers[o] = uint8(v)
	sys.io.Registers[o+1] = uint8(v >> 8)
}

// readIO returns the halfword register at the offset, which must be even.
func (sys *System) readIO(o uint32) uint16 {
	switch {
	case o == regDISPSTAT:
		return sys.reg(o)&^0x0007 | sys.PPU.state.Flags
	case o == regVCOUNT:
		return sys.PPU.state.VCount

	// background offsets and affine parameters are write-only
	case o >= 0x010 && o < regAffineEnd:
		return 0

	case o >= regSound && o < regSoundEnd:
		return uint16(sys.Sound.read(o)) | uint16(sys.Sound.read(o+1))<<8

	case o >= regDMA && o < regDMAEnd:
		// only the control register can be read
		if (o-regDMA)%12 == 10 {
			return sys.reg(o)
		}
		return 0

	case o >= regTimer && o < regTimerEnd:
		i := int(o-regTimer) / 4
		if o&0x02 == 0 {
			return sys.Timers.counter(i)
		}
		return sys.Timers.state[i].Control

	case o == regKEYINPUT:
		return ^uint16(sys.io.Buttons) & 0x03ff
	case o == regIE:
		return sys.ints.Enable()
	case o == regIF:
		return sys.ints.Pending()
	case o == regIME:
		if sys.ints.Master() {
			return 1
		}
		return 0
	}
	return sys.reg(o)
}

// writeIO writes to the halfword register at the offset, which must be even.
// Only the bits in the mask are written.
func (sys *System) writeIO(o uint32, v uint16, mask uint16) {
	old := sys.reg(o)
	n := old&^mask | v&mask

	switch {
	case o == regDISPCNT:
		sys.store(o, n)
		sys.PPU.displayMode(n)

	case o == regDISPSTAT:
		sys.store(o, n&0xff38)

	case o == regVCOUNT:
		// read-only

	case o >= regBG2X && o < regBG3PA:
		sys.store(o, n)
		sys.PPU.latchAffine(2)
	case o >= regBG3X && o < regAffineEnd:
		sys.store(o, n)
		sys.PPU.latchAffine(3)

	case o >= regSound && o < regSoundEnd:
		if mask&0x00ff != 0 {
			sys.Sound.write(o, uint8(v))
		}
		if mask&0xff00 != 0 {
			sys.Sound.write(o+1, uint8(v>>8))
		}
		sys.store(o, n)

	case o >= regDMA && o < regDMAEnd:
		sys.store(o, n)
		if (o-regDMA)%12 == 10 {
			sys.DMA.control(int(o-regDMA)/12, old, n)
		}

	case o >= regTimer && o < regTimerEnd:
		i := int(o-regTimer) / 4
		if o&0x02 == 0 {
			sys.Timers.setReload(i, n)
		} else {
			sys.Timers.setControl(i, n)
		}
		sys.store(o, n)

	case o == regKEYINPUT:
		// read-only

	case o == regKEYCNT:
		sys.store(o, n)
		sys.keypad()

	case o == regIE:
		sys.ints.SetEnable(n)
	case o == regIF:
		sys.ints.WritePending(v & mask)
	case o == regIME:
		sys.ints.SetMaster(n&0x0001 == 0x0001)

	case o == regWAITCNT:
		sys.store(o, n)
		sys.waits.set(n)
		sys.CPU.JIT().InvalidateAll()

	case o == regPOSTFLG:
		sys.store(o, n&0x00ff)
		if mask&0xff00 != 0 {
			// HALTCNT. the stop mode is treated as halt
			sys.CPU.Halt()
		}

	default:
		sys.store(o, n)
	}
}
