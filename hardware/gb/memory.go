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

package gb

import (
	"github.com/jetsetilly/gopherboy/hardware/memory/bus"
)

// wram is the bus device for work RAM and its echo. On the CGB the second
// 4K of work RAM is switchable between seven banks.
type wram struct {
	data [8][0x1000]uint8
	svbk *uint8
}

func (m *wram) locate(addr uint32) (int, uint32) {
	o := addr & 0x1fff
	if o < 0x1000 {
		return 0, o
	}
	bank := int(*m.svbk & 0x07)
	if bank == 0 {
		bank = 1
	}
	return bank, o - 0x1000
}

func (m *wram) Read(addr uint32, width bus.Width) uint32 {
	b, o := m.locate(addr)
	return uint32(m.data[b][o])
}

func (m *wram) Write(addr uint32, value uint32, width bus.Width) {
	b, o := m.locate(addr)
	m.data[b][o] = uint8(value)
}

func (m *wram) Peek(addr uint32) uint8 {
	b, o := m.locate(addr)
	return m.data[b][o]
}

func (m *wram) snapshot() []uint8 {
	d := make([]uint8, 0, len(m.data)*len(m.data[0]))
	for i := range m.data {
		d = append(d, m.data[i][:]...)
	}
	return d
}

func (m *wram) restore(d []uint8) {
	for i := range m.data {
		if len(d) < (i+1)*len(m.data[i]) {
			return
		}
		copy(m.data[i][:], d[i*len(m.data[i]):])
	}
}

// ioRegisters is the bus device for the IO registers and the interrupt enable
// register.
type ioRegisters struct {
	sys *System
}

func (m ioRegisters) Read(addr uint32, width bus.Width) uint32 {
	return uint32(m.sys.readIO(addr))
}

func (m ioRegisters) Write(addr uint32, value uint32, width bus.Width) {
	m.sys.writeIO(addr, uint8(value))
}

func (m ioRegisters) Peek(addr uint32) uint8 {
	return m.sys.readIO(addr)
}

// memory map of the machine.
func (sys *System) mapMemory() error {
	sys.bus = bus.NewBus("gb", 16, 8, false)
	sys.bus.SetOpenBus(func(_ uint32, _ bus.Width) uint32 {
		return 0xff
	})

	sys.hram = bus.NewRAM(0x80)

	for _, r := range []bus.Region{
		{Name: "cartridge ROM", Start: 0x0000, End: 0x7fff, Policy: bus.SideEffectWrite, Device: sys.Cart},
		{Name: "VRAM", Start: 0x8000, End: 0x9fff, Policy: bus.ReadWrite, Device: vram{ppu: sys.PPU}},
		{Name: "cartridge RAM", Start: 0xa000, End: 0xbfff, Policy: bus.ReadWrite, Device: sys.Cart},
		{Name: "WRAM", Start: 0xc000, End: 0xdfff, Policy: bus.ReadWrite, Device: sys.wram},
		{Name: "echo", Start: 0xe000, End: 0xfdff, Policy: bus.ReadWrite, Device: sys.wram},
		{Name: "OAM", Start: 0xfe00, End: 0xfe9f, Policy: bus.ReadWrite, Device: oam{ppu: sys.PPU}},
		{Name: "IO", Start: 0xff00, End: 0xff7f, Policy: bus.SideEffectReadWrite, Device: ioRegisters{sys: sys}},
		{Name: "HRAM", Start: 0xff80, End: 0xfffe, Policy: bus.ReadWrite, Device: sys.hram},
		{Name: "IE", Start: 0xffff, End: 0xffff, Policy: bus.ReadWrite, Device: ioRegisters{sys: sys}},
	} {
		if err := sys.bus.AddRegion(r); err != nil {
			return err
		}
	}

	return nil
}

func (sys *System) readIO(addr uint32) uint8 {
	switch {
	case addr == 0xff00:
		return sys.joypad()
	case addr == 0xff01:
		return sys.io.SB
	case addr == 0xff02:
		return sys.io.SC | 0x7e
	case addr >= 0xff04 && addr <= 0xff07:
		return sys.Timer.read(addr)
	case addr == 0xff0f:
		return uint8(sys.ints.Pending()) | 0xe0
	case addr >= 0xff10 && addr <= 0xff26:
		return sys.APU.read(addr)
	case addr >= 0xff30 && addr <= 0xff3f:
		return sys.APU.read(addr)
	case addr == 0xff46:
		return sys.DMA.read(addr)
	case addr >= 0xff40 && addr <= 0xff4b:
		return sys.PPU.readRegister(addr)
	case addr == 0xffff:
		return uint8(sys.ints.Enable())
	}

	if !sys.CGB {
		return 0xff
	}

	switch {
	case addr == 0xff4d:
		v := uint8(0x7e) | sys.io.KEY1&0x01
		if sys.io.Double {
			v |= 0x80
		}
		return v
	case addr == 0xff4f:
		return sys.PPU.readRegister(addr)
	case addr == 0xff55:
		return sys.DMA.read(addr)
	case addr >= 0xff68 && addr <= 0xff6b:
		return sys.PPU.readRegister(addr)
	case addr == 0xff70:
		return sys.io.SVBK | 0xf8
	}

	return 0xff
}

func (sys *System) writeIO(addr uint32, v uint8) {
	switch {
	case addr == 0xff00:
		sys.io.P1 = v & 0x30
	case addr == 0xff01:
		sys.io.SB = v
	case addr == 0xff02:
		sys.io.SC = v & 0x81
		sys.sched.Cancel(evSerial)
		if v&0x81 == 0x81 {
			d := uint64(serialDots)
			if sys.io.Double {
				d /= 2
			}
			sys.sched.ScheduleIn(d, evSerial, 0)
		}
	case addr >= 0xff04 && addr <= 0xff07:
		sys.Timer.write(addr, v)
	case addr == 0xff0f:
		sys.ints.WritePending(uint16(v & 0x1f))
	case addr >= 0xff10 && addr <= 0xff26:
		sys.APU.write(addr, v)
	case addr >= 0xff30 && addr <= 0xff3f:
		sys.APU.write(addr, v)
	case addr == 0xff46:
		sys.DMA.write(addr, v)
	case addr >= 0xff40 && addr <= 0xff4b:
		sys.PPU.writeRegister(addr, v)
	case addr == 0xffff:
		sys.ints.SetEnable(uint16(v))
	}

	if !sys.CGB {
		return
	}

	switch {
	case addr == 0xff4d:
		sys.io.KEY1 = v & 0x01
	case addr == 0xff4f:
		sys.PPU.writeRegister(addr, v)
	case addr >= 0xff51 && addr <= 0xff55:
		sys.DMA.write(addr, v)
	case addr >= 0xff68 && addr <= 0xff6b:
		sys.PPU.writeRegister(addr, v)
	case addr == 0xff70:
		sys.io.SVBK = v & 0x07
	}
}
