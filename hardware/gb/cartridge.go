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
	"fmt"
	"strings"

	"github.com/jetsetilly/gopherboy/curated"
	"github.com/jetsetilly/gopherboy/hardware/memory/bus"
	"github.com/jetsetilly/gopherboy/logger"
)

// Sentinal error returned when the cartridge image is not valid.
const CartridgeError = "gb: cartridge: %v"

// Sentinal error returned when persistent memory is the wrong size.
const PersistentMemoryError = "gb: persistent memory: %v"

// offsets of header fields in the cartridge image
const (
	headerTitle    = 0x0134
	headerCGB      = 0x0143
	headerType     = 0x0147
	headerROMSize  = 0x0148
	headerRAMSize  = 0x0149
	headerChecksum = 0x014d
)

const (
	romBankSize = 0x4000
	ramBankSize = 0x2000
)

type mapper int

const (
	mapperNone mapper = iota
	mapperMBC1
	mapperMBC3
	mapperMBC5
)

func (m mapper) String() string {
	switch m {
	case mapperNone:
		return "ROM"
	case mapperMBC1:
		return "MBC1"
	case mapperMBC3:
		return "MBC3"
	case mapperMBC5:
		return "MBC5"
	}
	return "unknown"
}

// Header is the information in the cartridge header.
type Header struct {
	Title    string
	Type     uint8
	CGB      bool
	CGBOnly  bool
	ROMBanks int
	RAMSize  int
	Battery  bool
	Checksum uint8

	mapper mapper
}

func (h Header) String() string {
	s := fmt.Sprintf("%s [%s] %d banks", h.Title, h.mapper, h.ROMBanks)
	if h.RAMSize > 0 {
		s = fmt.Sprintf("%s, %dK RAM", s, h.RAMSize/1024)
	}
	if h.Battery {
		s = fmt.Sprintf("%s (battery)", s)
	}
	if h.CGB {
		s = fmt.Sprintf("%s CGB", s)
	}
	return s
}

// IsROM returns true if the data looks like a Game Boy cartridge image. Only
// the size and the header checksum are considered.
func IsROM(data []uint8) bool {
	_, err := ParseHeader(data)
	return err == nil
}

// ParseHeader checks the header of the cartridge image and returns the
// information in it.
func ParseHeader(data []uint8) (Header, error) {
	var h Header

	if len(data) < 0x8000 {
		return h, curated.Errorf(CartridgeError, fmt.Sprintf("image too small (%d bytes)", len(data)))
	}

	var sum uint8
	for _, b := range data[headerTitle:headerChecksum] {
		sum = sum - b - 1
	}
	if sum != data[headerChecksum] {
		return h, curated.Errorf(CartridgeError, fmt.Sprintf("header checksum is %#02x but should be %#02x", data[headerChecksum], sum))
	}
	h.Checksum = sum

	h.CGB = data[headerCGB]&0x80 == 0x80
	h.CGBOnly = data[headerCGB] == 0xc0

	title := data[headerTitle:headerCGB]
	if !h.CGB {
		title = data[headerTitle : headerCGB+1]
	}
	h.Title = strings.TrimRight(string(title), "\x00 ")

	h.Type = data[headerType]
	switch h.Type {
	case 0x00:
		h.mapper = mapperNone
	case 0x08, 0x09:
		h.mapper = mapperNone
		h.Battery = h.Type == 0x09
	case 0x01, 0x02, 0x03:
		h.mapper = mapperMBC1
		h.Battery = h.Type == 0x03
	case 0x0f, 0x10, 0x11, 0x12, 0x13:
		h.mapper = mapperMBC3
		h.Battery = h.Type == 0x0f || h.Type == 0x10 || h.Type == 0x13
	case 0x19, 0x1a, 0x1b, 0x1c, 0x1d, 0x1e:
		h.mapper = mapperMBC5
		h.Battery = h.Type == 0x1b || h.Type == 0x1e
	default:
		return h, curated.Errorf(CartridgeError, fmt.Sprintf("unsupported cartridge type %#02x", h.Type))
	}

	if data[headerROMSize] > 0x08 {
		return h, curated.Errorf(CartridgeError, fmt.Sprintf("unsupported ROM size %#02x", data[headerROMSize]))
	}
	h.ROMBanks = 2 << data[headerROMSize]
	if len(data) < h.ROMBanks*romBankSize {
		return h, curated.Errorf(CartridgeError, fmt.Sprintf("image is %d bytes but header declares %d", len(data), h.ROMBanks*romBankSize))
	}

	switch data[headerRAMSize] {
	case 0x00:
		h.RAMSize = 0
	case 0x01:
		h.RAMSize = 0x800
	case 0x02:
		h.RAMSize = 0x2000
	case 0x03:
		h.RAMSize = 0x8000
	case 0x04:
		h.RAMSize = 0x20000
	case 0x05:
		h.RAMSize = 0x10000
	default:
		return h, curated.Errorf(CartridgeError, fmt.Sprintf("unsupported RAM size %#02x", data[headerRAMSize]))
	}

	return h, nil
}

// CartridgeState is the serialisable state of the cartridge. The ROM is not
// part of the state.
type CartridgeState struct {
	RAM        []uint8
	RAMEnabled bool
	ROMBank    int
	RAMBank    int

	// MBC1 banking mode
	Mode int

	// MBC3 clock latch sequence
	Latch uint8
}

// Cartridge is the cartridge ROM, the cartridge RAM and the memory bank
// controller. It is the bus device for both the ROM and RAM regions.
type Cartridge struct {
	Header Header

	rom   []uint8
	state CartridgeState
}

// NewCartridge is the preferred method of initialisation for the Cartridge
// type. The header is checked before the cartridge is created.
func NewCartridge(data []uint8) (*Cartridge, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	cart := &Cartridge{
		Header: h,
		rom:    data[:h.ROMBanks*romBankSize],
	}
	cart.state.RAM = make([]uint8, h.RAMSize)
	cart.Reset()
	return cart, nil
}

func (cart *Cartridge) String() string {
	return cart.Header.String()
}

// Reset the memory bank controller. The contents of RAM are not changed.
func (cart *Cartridge) Reset() {
	cart.state.RAMEnabled = false
	cart.state.ROMBank = 1
	cart.state.RAMBank = 0
	cart.state.Mode = 0
	cart.state.Latch = 0
}

// Snapshot returns the state of the cartridge.
func (cart *Cartridge) Snapshot() CartridgeState {
	s := cart.state
	s.RAM = make([]uint8, len(cart.state.RAM))
	copy(s.RAM, cart.state.RAM)
	return s
}

// Restore the state of the cartridge.
func (cart *Cartridge) Restore(s CartridgeState) error {
	if len(s.RAM) != len(cart.state.RAM) {
		return curated.Errorf(CartridgeError, "RAM size in state does not match cartridge")
	}
	ram := cart.state.RAM
	copy(ram, s.RAM)
	cart.state = s
	cart.state.RAM = ram
	return nil
}

// PersistentMemory returns a copy of the battery backed RAM. Returns nil if
// the cartridge has no battery.
func (cart *Cartridge) PersistentMemory() []uint8 {
	if !cart.Header.Battery || len(cart.state.RAM) == 0 {
		return nil
	}
	d := make([]uint8, len(cart.state.RAM))
	copy(d, cart.state.RAM)
	return d
}

// LoadPersistentMemory replaces the contents of the battery backed RAM.
func (cart *Cartridge) LoadPersistentMemory(data []uint8) error {
	if !cart.Header.Battery || len(cart.state.RAM) == 0 {
		return curated.Errorf(PersistentMemoryError, "cartridge has no battery backed RAM")
	}
	if len(data) != len(cart.state.RAM) {
		return curated.Errorf(PersistentMemoryError, fmt.Sprintf("expected %d bytes, got %d", len(cart.state.RAM), len(data)))
	}
	copy(cart.state.RAM, data)
	return nil
}

// bank numbers for the two ROM windows
func (cart *Cartridge) romBanks() (int, int) {
	lo, hi := 0, cart.state.ROMBank
	switch cart.Header.mapper {
	case mapperNone:
		hi = 1
	case mapperMBC1:
		hi = cart.state.RAMBank<<5 | cart.state.ROMBank
		if cart.state.Mode == 1 {
			lo = cart.state.RAMBank << 5
		}
	}
	return lo % cart.Header.ROMBanks, hi % cart.Header.ROMBanks
}

// offset into RAM for the address. returns false if RAM is not accessible
func (cart *Cartridge) ramOffset(addr uint32) (int, bool) {
	if !cart.state.RAMEnabled || len(cart.state.RAM) == 0 {
		return 0, false
	}
	bank := 0
	switch cart.Header.mapper {
	case mapperMBC1:
		if cart.state.Mode == 1 {
			bank = cart.state.RAMBank
		}
	case mapperMBC3:
		if cart.state.RAMBank > 0x03 {
			return 0, false
		}
		bank = cart.state.RAMBank
	case mapperMBC5:
		bank = cart.state.RAMBank
	}
	return (bank*ramBankSize + int(addr-0xa000)) % len(cart.state.RAM), true
}

func (cart *Cartridge) read(addr uint32) uint8 {
	switch {
	case addr < 0x4000:
		lo, _ := cart.romBanks()
		return cart.rom[lo*romBankSize+int(addr)]
	case addr < 0x8000:
		_, hi := cart.romBanks()
		return cart.rom[hi*romBankSize+int(addr-0x4000)]
	case addr >= 0xa000 && addr < 0xc000:
		if cart.Header.mapper == mapperMBC3 && cart.state.RAMEnabled && cart.state.RAMBank >= 0x08 && cart.state.RAMBank <= 0x0c {
			// the real time clock does not run
			return 0x00
		}
		if o, ok := cart.ramOffset(addr); ok {
			return cart.state.RAM[o]
		}
	}
	return 0xff
}

func (cart *Cartridge) write(addr uint32, v uint8) {
	if addr >= 0xa000 && addr < 0xc000 {
		if o, ok := cart.ramOffset(addr); ok {
			cart.state.RAM[o] = v
		}
		return
	}

	switch cart.Header.mapper {
	case mapperMBC1:
		switch {
		case addr < 0x2000:
			cart.state.RAMEnabled = v&0x0f == 0x0a
		case addr < 0x4000:
			cart.state.ROMBank = int(v & 0x1f)
			if cart.state.ROMBank == 0 {
				cart.state.ROMBank = 1
			}
		case addr < 0x6000:
			cart.state.RAMBank = int(v & 0x03)
		default:
			cart.state.Mode = int(v & 0x01)
		}
	case mapperMBC3:
		switch {
		case addr < 0x2000:
			cart.state.RAMEnabled = v&0x0f == 0x0a
		case addr < 0x4000:
			cart.state.ROMBank = int(v & 0x7f)
			if cart.state.ROMBank == 0 {
				cart.state.ROMBank = 1
			}
		case addr < 0x6000:
			cart.state.RAMBank = int(v & 0x0f)
		default:
			if cart.state.Latch == 0x00 && v == 0x01 {
				logger.Log(logger.Allow, "cartridge", "MBC3 clock latched (clock is not emulated)")
			}
			cart.state.Latch = v
		}
	case mapperMBC5:
		switch {
		case addr < 0x2000:
			cart.state.RAMEnabled = v&0x0f == 0x0a
		case addr < 0x3000:
			cart.state.ROMBank = cart.state.ROMBank&0x100 | int(v)
		case addr < 0x4000:
			cart.state.ROMBank = cart.state.ROMBank&0xff | int(v&0x01)<<8
		case addr < 0x6000:
			cart.state.RAMBank = int(v & 0x0f)
		}
	}
}

// Read implements the bus.Device interface.
func (cart *Cartridge) Read(addr uint32, width bus.Width) uint32 {
	var v uint32
	for i := 0; i < int(width); i++ {
		v |= uint32(cart.read(addr+uint32(i))) << (8 * i)
	}
	return v
}

// Write implements the bus.Device interface.
func (cart *Cartridge) Write(addr uint32, value uint32, width bus.Width) {
	for i := 0; i < int(width); i++ {
		cart.write(addr+uint32(i), uint8(value>>(8*i)))
	}
}

// Peek implements the bus.Peeker interface.
func (cart *Cartridge) Peek(addr uint32) uint8 {
	return cart.read(addr)
}
