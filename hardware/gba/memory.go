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

import (
	"github.com/jetsetilly/gopherboy/hardware/memory/bus"
)

// wait states for the first access to ROM and SRAM, indexed by the two bit
// fields in WAITCNT
var waitNonSeq = [4]int{4, 3, 2, 8}

// wait states for sequential accesses to each of the three ROM mirrors,
// indexed by the single bit field in WAITCNT
var waitSeq = [3][2]int{{2, 1}, {4, 1}, {8, 1}}

// waitStates holds the access times derived from WAITCNT.
type waitStates struct {
	romN [3]int
	romS [3]int
	sram int
}

func (w *waitStates) set(waitcnt uint16) {
	w.sram = 1 + waitNonSeq[waitcnt&0x03]
	for i := 0; i < 3; i++ {
		w.romN[i] = 1 + waitNonSeq[(waitcnt>>(2+i*3))&0x03]
		w.romS[i] = 1 + waitSeq[i][(waitcnt>>(4+i*3))&0x01]
	}
}

func (w *waitStates) rom(addr uint32, width bus.Width, sequential bool) int {
	ws := ((addr >> 24) - 0x08) >> 1
	if ws > 2 {
		ws = 2
	}
	c := w.romN[ws]
	if sequential {
		c = w.romS[ws]
	}

	// the ROM bus is sixteen bits wide
	if width == bus.Word {
		c += w.romS[ws]
	}
	return c
}

func (w *waitStates) sramCycles(_ uint32, _ bus.Width, _ bool) int {
	return w.sram
}

// timing for memory on a sixteen bit bus
func halfBus(waits int) bus.Timing {
	return func(_ uint32, width bus.Width, _ bool) int {
		if width == bus.Word {
			return 2 * (1 + waits)
		}
		return 1 + waits
	}
}

func oneCycle(_ uint32, _ bus.Width, _ bool) int {
	return 1
}

// video memory. 96K mirrored in 128K blocks with the last 32K of each block
// mirroring the previous 32K
type vram struct {
	data [0x18000]uint8

	// byte writes to VRAM below this offset write the byte to both halves of
	// the halfword. byte writes above it are ignored
	bgLimit *uint32
}

func (m *vram) offset(addr uint32) uint32 {
	o := addr & 0x1ffff
	if o >= 0x18000 {
		o -= 0x8000
	}
	return o
}

func (m *vram) Read(addr uint32, width bus.Width) uint32 {
	return readLE(m.data[:], m.offset(addr), width)
}

func (m *vram) Write(addr uint32, value uint32, width bus.Width) {
	o := m.offset(addr)
	if width == bus.Byte {
		if o >= *m.bgLimit {
			return
		}
		m.data[o&^1] = uint8(value)
		m.data[o|1] = uint8(value)
		return
	}
	writeLE(m.data[:], o, value, width)
}

func (m *vram) Peek(addr uint32) uint8 {
	return m.data[m.offset(addr)]
}

// palette memory. byte writes write the byte to both halves of the halfword
type palette struct {
	data [0x400]uint8
}

func (m *palette) Read(addr uint32, width bus.Width) uint32 {
	return readLE(m.data[:], addr&0x3ff, width)
}

func (m *palette) Write(addr uint32, value uint32, width bus.Width) {
	o := addr & 0x3ff
	if width == bus.Byte {
		m.data[o&^1] = uint8(value)
		m.data[o|1] = uint8(value)
		return
	}
	writeLE(m.data[:], o, value, width)
}

func (m *palette) Peek(addr uint32) uint8 {
	return m.data[addr&0x3ff]
}

// colour returns the fifteen bit colour at the palette index.
func (m *palette) colour(i int) uint16 {
	return uint16(m.data[i*2]) | uint16(m.data[i*2+1])<<8
}

// object attribute memory. byte writes are ignored
type oam struct {
	data [0x400]uint8
}

func (m *oam) Read(addr uint32, width bus.Width) uint32 {
	return readLE(m.data[:], addr&0x3ff, width)
}

func (m *oam) Write(addr uint32, value uint32, width bus.Width) {
	if width == bus.Byte {
		return
	}
	writeLE(m.data[:], addr&0x3ff, value, width)
}

func (m *oam) Peek(addr uint32) uint8 {
	return m.data[addr&0x3ff]
}

func (m *oam) half(o int) uint16 {
	return uint16(m.data[o]) | uint16(m.data[o+1])<<8
}

// little-endian access to a slice that is not necessarily a power of two in
// length. the offset must be aligned to the width
func readLE(data []uint8, o uint32, width bus.Width) uint32 {
	v := uint32(data[o])
	if width >= bus.HalfWord {
		v |= uint32(data[o+1]) << 8
	}
	if width == bus.Word {
		v |= uint32(data[o+2])<<16 | uint32(data[o+3])<<24
	}
	return v
}

func writeLE(data []uint8, o uint32, value uint32, width bus.Width) {
	data[o] = uint8(value)
	if width >= bus.HalfWord {
		data[o+1] = uint8(value >> 8)
	}
	if width == bus.Word {
		data[o+2] = uint8(value >> 16)
		data[o+3] = uint8(value >> 24)
	}
}

// ioRegisters is the bus device for the IO registers.
type ioRegisters struct {
	sys *System
}

func (m ioRegisters) Read(addr uint32, width bus.Width) uint32 {
	o := addr & 0x3ff
	switch width {
	case bus.Byte:
		return uint32(m.sys.readIO(o&^1)>>((o&1)*8)) & 0xff
	case bus.HalfWord:
		return uint32(m.sys.readIO(o))
	}
	return uint32(m.sys.readIO(o)) | uint32(m.sys.readIO(o+2))<<16
}

func (m ioRegisters) Write(addr uint32, value uint32, width bus.Width) {
	o := addr & 0x3ff
	switch width {
	case bus.Byte:
		shift := (o & 1) * 8
		m.sys.writeIO(o&^1, uint16(value<<shift), 0xff<<shift)
	case bus.HalfWord:
		m.sys.writeIO(o, uint16(value), 0xffff)
	default:
		m.sys.writeIO(o, uint16(value), 0xffff)
		m.sys.writeIO(o+2, uint16(value>>16), 0xffff)
	}
}

// Peek returns the stored value of the register without side effects.
func (m ioRegisters) Peek(addr uint32) uint8 {
	o := addr & 0x3ff
	return uint8(m.sys.readIO(o&^1) >> ((o & 1) * 8))
}

// memory map of the machine.
func (sys *System) mapMemory() error {
	sys.bus = bus.NewBus("gba", 32, 24, true)
	sys.waits.set(0)

	for _, r := range []bus.Region{
		{Name: "BIOS", Start: 0x00000000, End: 0x00003fff, Policy: bus.ReadOnly, Device: sys.bios, Cycles: oneCycle},
		{Name: "EWRAM", Start: 0x02000000, End: 0x02ffffff, Policy: bus.ReadWrite, Device: sys.ewram, Cycles: halfBus(2), Executable: true},
		{Name: "IWRAM", Start: 0x03000000, End: 0x03ffffff, Policy: bus.ReadWrite, Device: sys.iwram, Cycles: oneCycle, Executable: true},
		{Name: "IO", Start: 0x04000000, End: 0x040003ff, Policy: bus.SideEffectReadWrite, Device: ioRegisters{sys: sys}, Cycles: oneCycle},
		{Name: "palette", Start: 0x05000000, End: 0x05ffffff, Policy: bus.ReadWrite, Device: sys.PPU.palette, Cycles: halfBus(0)},
		{Name: "VRAM", Start: 0x06000000, End: 0x06ffffff, Policy: bus.ReadWrite, Device: sys.PPU.vram, Cycles: halfBus(0)},
		{Name: "OAM", Start: 0x07000000, End: 0x07ffffff, Policy: bus.ReadWrite, Device: sys.PPU.oam, Cycles: oneCycle},
		{Name: "ROM", Start: 0x08000000, End: 0x0cffffff, Policy: bus.ReadOnly, Device: sys.Cart.rom, Cycles: sys.waits.rom},
	} {
		if err := sys.bus.AddRegion(r); err != nil {
			return err
		}
	}

	// the EEPROM shares the top of the cartridge space with the ROM
	upper := bus.Region{Name: "ROM", Start: 0x0d000000, End: 0x0dffffff, Policy: bus.ReadOnly, Device: sys.Cart.rom, Cycles: sys.waits.rom}
	if sys.Cart.eeprom != nil {
		upper.Name = "EEPROM"
		upper.Policy = bus.SideEffectReadWrite
		upper.Device = sys.Cart.eeprom
	}
	if err := sys.bus.AddRegion(upper); err != nil {
		return err
	}

	var save bus.Region
	switch {
	case sys.Cart.sram != nil:
		save = bus.Region{Name: "SRAM", Policy: bus.ReadWrite, Device: sys.Cart.sram}
	case sys.Cart.flash != nil:
		save = bus.Region{Name: "flash", Policy: bus.ReadWrite, Device: sys.Cart.flash}
	default:
		return nil
	}
	save.Start = 0x0e000000
	save.End = 0x0fffffff
	save.Cycles = sys.waits.sramCycles
	return sys.bus.AddRegion(save)
}

// connect the CPU to the memory map. the CPU must have been created.
func (sys *System) connectCPU() {
	// reads from unmapped memory return the most recently fetched opcode
	sys.bus.SetOpenBus(func(addr uint32, _ bus.Width) uint32 {
		v := sys.CPU.Prefetch()
		if sys.CPU.Status().Thumb {
			v = v&0xffff | v<<16
		}
		return v >> ((addr & 0x03) * 8)
	})

	// translated code must be discarded when the memory it came from is
	// written to
	sys.bus.AddWriteWatcher(sys.CPU.JIT())
}
