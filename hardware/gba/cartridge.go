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
	"bytes"
	"fmt"
	"strings"

	"github.com/jetsetilly/gopherboy/curated"
	"github.com/jetsetilly/gopherboy/hardware/memory/bus"
	"github.com/jetsetilly/gopherboy/logger"
)

// Sentinal error returned when the cartridge image is not valid.
const CartridgeError = "gba: cartridge: %v"

// Sentinal error returned when persistent memory is the wrong size.
const PersistentMemoryError = "gba: persistent memory: %v"

// offsets of header fields in the cartridge image
const (
	headerTitle      = 0xa0
	headerCode       = 0xac
	headerFixed      = 0xb2
	headerComplement = 0xbd
	headerSize       = 0xc0
)

const maxROMSize = 0x2000000

// Header is the information in the cartridge header.
type Header struct {
	Title string
	Code  string
}

func (h Header) String() string {
	return fmt.Sprintf("%s [%s]", h.Title, h.Code)
}

// complement returns the value of the header complement check byte for the
// image.
func complement(data []uint8) uint8 {
	var chk uint8
	for _, b := range data[headerTitle:headerComplement] {
		chk -= b
	}
	return chk - 0x19
}

// IsROM returns true if the data looks like a cartridge image for the
// machine. Only the size and the header are considered.
func IsROM(data []uint8) bool {
	_, err := ParseHeader(data)
	return err == nil
}

// ParseHeader checks the header of the cartridge image and returns the
// information in it.
func ParseHeader(data []uint8) (Header, error) {
	var h Header

	if len(data) < headerSize {
		return h, curated.Errorf(CartridgeError, fmt.Sprintf("image too small (%d bytes)", len(data)))
	}
	if len(data) > maxROMSize {
		return h, curated.Errorf(CartridgeError, fmt.Sprintf("image too large (%d bytes)", len(data)))
	}
	if data[headerFixed] != 0x96 {
		return h, curated.Errorf(CartridgeError, "fixed header value is missing")
	}
	if c := complement(data); c != data[headerComplement] {
		return h, curated.Errorf(CartridgeError, fmt.Sprintf("header complement is %#02x but should be %#02x", data[headerComplement], c))
	}

	h.Title = strings.TrimRight(string(data[headerTitle:headerCode]), "\x00 ")
	h.Code = strings.TrimRight(string(data[headerCode:headerCode+4]), "\x00 ")
	return h, nil
}

// Cartridge is the cartridge ROM and the save memory.
type Cartridge struct {
	Header Header

	rom *bus.ROM

	// at most one type of save memory is present
	sram   *sram
	flash  *flash
	eeprom *eeprom

	// the type of save memory as declared by the library string in the ROM
	SaveType string
}

// NewCartridge is the preferred method of initialisation for the Cartridge
// type. The header is checked before the cartridge is created.
func NewCartridge(data []uint8) (*Cartridge, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}

	// pad the image to a power of two so that the ROM mirrors correctly
	sz := 1
	for sz < len(data) {
		sz <<= 1
	}
	d := make([]uint8, sz)
	copy(d, data)

	cart := &Cartridge{
		Header: h,
		rom:    bus.NewROM(d, 0x08000000),
	}

	// the library string of the 128K flash must be checked before the
	// shorter strings
	switch {
	case bytes.Contains(data, []uint8("FLASH1M_V")):
		cart.SaveType = "FLASH128"
		cart.flash = newFlash(true)
	case bytes.Contains(data, []uint8("FLASH_V")), bytes.Contains(data, []uint8("FLASH512_V")):
		cart.SaveType = "FLASH64"
		cart.flash = newFlash(false)
	case bytes.Contains(data, []uint8("SRAM_V")):
		cart.SaveType = "SRAM"
		cart.sram = &sram{RAM: bus.NewRAM(0x8000)}
		for i := range cart.sram.Data {
			cart.sram.Data[i] = 0xff
		}
	case bytes.Contains(data, []uint8("EEPROM_V")):
		cart.SaveType = "EEPROM"
		cart.eeprom = newEEPROM(cart.rom, len(data))
	}

	if cart.SaveType != "" {
		logger.Logf(logger.Allow, "cartridge", "save memory is %s (%d bytes)", cart.SaveType, len(cart.save()))
	}

	return cart, nil
}

func (cart *Cartridge) String() string {
	if cart.SaveType == "" {
		return cart.Header.String()
	}
	return fmt.Sprintf("%s %s", cart.Header, cart.SaveType)
}

// the contents of save memory. nil if the cartridge has none
func (cart *Cartridge) save() []uint8 {
	switch {
	case cart.sram != nil:
		return cart.sram.Data
	case cart.flash != nil:
		return cart.flash.data
	case cart.eeprom != nil:
		return cart.eeprom.data
	}
	return nil
}

// SaveState is the serialisable command state of the save memory.
type SaveState struct {
	Flash  FlashState
	EEPROM EEPROMState
}

func (cart *Cartridge) saveState() SaveState {
	var s SaveState
	if cart.flash != nil {
		s.Flash = cart.flash.state
	}
	if cart.eeprom != nil {
		s.EEPROM = cart.eeprom.state
	}
	return s
}

func (cart *Cartridge) setSaveState(s SaveState) {
	if cart.flash != nil {
		cart.flash.state = s.Flash
	}
	if cart.eeprom != nil {
		cart.eeprom.state = s.EEPROM
	}
}

// reset the command state of the save memory. the contents are unchanged
func (cart *Cartridge) reset() {
	if cart.flash != nil {
		cart.flash.reset()
	}
	if cart.eeprom != nil {
		cart.eeprom.reset()
	}
}

// PersistentMemory returns a copy of the save memory. Returns nil if the
// cartridge has no save memory.
func (cart *Cartridge) PersistentMemory() []uint8 {
	m := cart.save()
	if m == nil {
		return nil
	}
	return append([]uint8(nil), m...)
}

// LoadPersistentMemory replaces the contents of save memory.
func (cart *Cartridge) LoadPersistentMemory(data []uint8) error {
	m := cart.save()
	if m == nil {
		return curated.Errorf(PersistentMemoryError, "cartridge has no save memory")
	}
	if len(data) != len(m) {
		return curated.Errorf(PersistentMemoryError, fmt.Sprintf("expected %d bytes, got %d", len(m), len(data)))
	}
	copy(m, data)
	return nil
}

// sram is on an 8-bit bus. wider reads return the byte repeated and wider
// writes store the byte selected by the address.
type sram struct {
	*bus.RAM
}

func (m *sram) Read(addr uint32, width bus.Width) uint32 {
	return m.RAM.Read(addr, bus.Byte) * 0x01010101
}

func (m *sram) Write(addr uint32, value uint32, width bus.Width) {
	m.RAM.Write(addr, value>>((addr&uint32(width-1))*8), bus.Byte)
}
