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
	"encoding/binary"

	"github.com/jetsetilly/gopherboy/hardware/memory/bus"
)

// flash command modes
const (
	flashRegular = iota
	flashID
	flashErase
	flashWrite
	flashBankSelect
)

// progress through the unlock sequence that precedes every flash command
const (
	flashUnlockNone = iota
	flashUnlockFirst
	flashUnlockSecond
)

// FlashState is the serialisable command state of flash save memory. The
// contents of the flash are part of the persistent memory.
type FlashState struct {
	Mode   int
	Unlock int
	Bank   uint32
}

// flash save memory. commands are written as a sequence of bytes to
// 0x5555 and 0x2aaa. the 128K part has two banks of 64K
type flash struct {
	data   []uint8
	id     [2]uint8
	banked bool
	state  FlashState
}

func newFlash(banked bool) *flash {
	f := &flash{banked: banked}
	if banked {
		f.data = make([]uint8, 0x20000)
		f.id = [2]uint8{0xc2, 0x09}
	} else {
		f.data = make([]uint8, 0x10000)
		f.id = [2]uint8{0xc2, 0x1c}
	}
	for i := range f.data {
		f.data[i] = 0xff
	}
	return f
}

func (f *flash) reset() {
	f.state = FlashState{}
}

// flash is on an 8-bit bus. wider reads return the byte repeated
func (f *flash) Read(addr uint32, width bus.Width) uint32 {
	o := addr & 0xffff
	if f.state.Mode == flashID && o < 2 {
		return uint32(f.id[o]) * 0x01010101
	}
	return uint32(f.data[f.state.Bank<<16|o]) * 0x01010101
}

func (f *flash) Write(addr uint32, value uint32, width bus.Width) {
	o := addr & 0xffff
	v := uint8(value >> ((addr & uint32(width-1)) * 8))

	switch {
	case f.state.Mode == flashBankSelect && o == 0:
		f.state.Mode = flashRegular
		f.state.Bank = uint32(v & 0x01)

	case f.state.Mode == flashWrite:
		f.state.Mode = flashRegular
		f.data[f.state.Bank<<16|o] = v

	case o == 0x5555 && v == 0xaa && f.state.Unlock == flashUnlockNone:
		f.state.Unlock = flashUnlockFirst

	case o == 0x2aaa && v == 0x55 && f.state.Unlock == flashUnlockFirst:
		f.state.Unlock = flashUnlockSecond

	case v == 0x30 && f.state.Unlock == flashUnlockSecond:
		// erase the 4K sector containing the address
		if f.state.Mode == flashErase {
			s := f.state.Bank<<16 | o&0xf000
			for i := s; i < s+0x1000; i++ {
				f.data[i] = 0xff
			}
		}
		f.state.Mode = flashRegular
		f.state.Unlock = flashUnlockNone

	case o == 0x5555 && f.state.Unlock == flashUnlockSecond:
		f.command(v)
		f.state.Unlock = flashUnlockNone
	}
}

func (f *flash) command(v uint8) {
	switch v {
	case 0x80:
		f.state.Mode = flashErase
	case 0x10:
		if f.state.Mode == flashErase {
			for i := range f.data {
				f.data[i] = 0xff
			}
		}
		f.state.Mode = flashRegular
	case 0xa0:
		f.state.Mode = flashWrite
	case 0xb0:
		if f.banked {
			f.state.Mode = flashBankSelect
		}
	case 0x90:
		f.state.Mode = flashID
	case 0xf0:
		f.state.Mode = flashRegular
	}
}

// EEPROM commands
const (
	eepromRead  = 0x03
	eepromWrite = 0x02
)

// EEPROMState is the serialisable state of the EEPROM serial interface. The
// contents of the EEPROM are part of the persistent memory.
type EEPROMState struct {
	// number of address bits. zero until the size of the EEPROM has been
	// determined from the length of a DMA transfer
	AddrBits int

	// bits received for the current request
	Received int
	Command  uint8
	Addr     uint32
	Value    uint64

	// the response to a read request. Sending is the number of bits still to
	// be sent, including four leading zero bits
	Send    uint64
	Sending int
}

// eeprom save memory. the EEPROM is accessed one bit at a time in the upper
// part of the cartridge space. the rest of the space is the ROM
type eeprom struct {
	data []uint8
	rom  *bus.ROM

	// the EEPROM occupies the whole of the region unless the ROM is larger
	// than 16MB
	anywhere bool

	state EEPROMState
}

func newEEPROM(rom *bus.ROM, romSize int) *eeprom {
	e := &eeprom{
		data:     make([]uint8, 0x2000),
		rom:      rom,
		anywhere: romSize <= 0x1000000,
	}
	for i := range e.data {
		e.data[i] = 0xff
	}
	return e
}

func (e *eeprom) reset() {
	e.state = EEPROMState{}
}

func (e *eeprom) selected(addr uint32) bool {
	return e.anywhere || addr&0x0fffffff >= 0x0dffff00
}

// detect is called at the start of a halfword DMA to the EEPROM. The length
// of the transfer reveals the size of the EEPROM.
func (e *eeprom) detect(dest uint32, count uint32) {
	if !e.selected(dest) {
		return
	}
	switch count {
	case 9, 73:
		e.state.AddrBits = 6
	case 17, 81:
		e.state.AddrBits = 14
	}
	e.restart()
}

// discard the bits received for the current request
func (e *eeprom) restart() {
	e.state.Received = 0
	e.state.Command = 0
	e.state.Addr = 0
	e.state.Value = 0
}

func (e *eeprom) Read(addr uint32, width bus.Width) uint32 {
	if !e.selected(addr) {
		return e.rom.Read(addr, width)
	}
	if e.state.Sending == 0 {
		return 1
	}
	e.state.Sending--
	if e.state.Sending >= 64 {
		return 0
	}
	return uint32(e.state.Send>>e.state.Sending) & 0x01
}

// Peek implements the bus.Peeker interface. The EEPROM reads as the ROM.
func (e *eeprom) Peek(addr uint32) uint8 {
	return uint8(e.rom.Read(addr, bus.Byte))
}

func (e *eeprom) Write(addr uint32, value uint32, width bus.Width) {
	if !e.selected(addr) || e.state.AddrBits == 0 {
		return
	}

	s := &e.state
	b := value & 0x01
	s.Received++

	switch {
	case s.Received <= 2:
		s.Command = s.Command<<1 | uint8(b)
		if s.Received == 2 && s.Command != eepromRead && s.Command != eepromWrite {
			e.restart()
		}
		return
	case s.Received <= 2+s.AddrBits:
		s.Addr = s.Addr<<1 | b
		return
	case s.Command == eepromWrite && s.Received <= 2+s.AddrBits+64:
		s.Value = s.Value<<1 | uint64(b)
		return
	}

	// the final bit ends the request
	idx := (s.Addr & 0x3ff) * 8
	if s.Command == eepromRead {
		s.Send = binary.BigEndian.Uint64(e.data[idx:])
		s.Sending = 68
	} else {
		binary.BigEndian.PutUint64(e.data[idx:], s.Value)
		s.Sending = 0
	}
	e.restart()
}
