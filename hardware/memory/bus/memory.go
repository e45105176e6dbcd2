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

package bus

// RAM is a simple read-write memory device. The size of RAM must be a power of
// two. Addresses are masked by the size of the RAM and so a region larger than
// the RAM will see the RAM mirrored throughout.
//
// Multi-byte accesses are little-endian.
type RAM struct {
	Data []uint8
	mask uint32
}

// NewRAM is the preferred method of initialisation for the RAM type.
func NewRAM(size int) *RAM {
	if size&(size-1) != 0 {
		panic("bus: RAM size must be a power of two")
	}
	return &RAM{
		Data: make([]uint8, size),
		mask: uint32(size - 1),
	}
}

// Read implements the Device interface.
func (m *RAM) Read(addr uint32, width Width) uint32 {
	return ReadLittleEndian(m.Data, addr&m.mask, width)
}

// Write implements the Device interface.
func (m *RAM) Write(addr uint32, value uint32, width Width) {
	WriteLittleEndian(m.Data, addr&m.mask, value, width)
}

// Peek implements the Peeker interface.
func (m *RAM) Peek(addr uint32) uint8 {
	return m.Data[addr&m.mask]
}

// Snapshot returns a copy of the RAM data.
func (m *RAM) Snapshot() []uint8 {
	c := make([]uint8, len(m.Data))
	copy(c, m.Data)
	return c
}

// Restore RAM data. Data longer than the RAM is truncated.
func (m *RAM) Restore(data []uint8) {
	copy(m.Data, data)
}

// ROM is a read-only memory device. Unlike RAM, the size of the ROM need not
// be a power of two. Addresses are relative to the base address of the ROM.
// Reads beyond the end of the data wrap around to the beginning.
type ROM struct {
	Data []uint8
	base uint32
}

// NewROM is the preferred method of initialisation for the ROM type.
func NewROM(data []uint8, base uint32) *ROM {
	return &ROM{Data: data, base: base}
}

// Read implements the Device interface.
func (m *ROM) Read(addr uint32, width Width) uint32 {
	if len(m.Data) == 0 {
		return 0
	}
	off := (addr - m.base) % uint32(len(m.Data))
	var v uint32
	for i := 0; i < int(width); i++ {
		v |= uint32(m.Data[(off+uint32(i))%uint32(len(m.Data))]) << (8 * i)
	}
	return v
}

// Write implements the Device interface. Writes to ROM are ignored.
func (m *ROM) Write(addr uint32, value uint32, width Width) {
}

// ReadLittleEndian reads a value of the specified width from data. The offset
// of each byte is masked by the length of the data, which must be a power of
// two.
func ReadLittleEndian(data []uint8, offset uint32, width Width) uint32 {
	mask := uint32(len(data) - 1)
	switch width {
	case Byte:
		return uint32(data[offset&mask])
	case HalfWord:
		return uint32(data[offset&mask]) | uint32(data[(offset+1)&mask])<<8
	}
	return uint32(data[offset&mask]) | uint32(data[(offset+1)&mask])<<8 |
		uint32(data[(offset+2)&mask])<<16 | uint32(data[(offset+3)&mask])<<24
}

// WriteLittleEndian writes a value of the specified width to data. The offset
// of each byte is masked by the length of the data, which must be a power of
// two.
func WriteLittleEndian(data []uint8, offset uint32, value uint32, width Width) {
	mask := uint32(len(data) - 1)
	data[offset&mask] = uint8(value)
	if width == Byte {
		return
	}
	data[(offset+1)&mask] = uint8(value >> 8)
	if width == HalfWord {
		return
	}
	data[(offset+2)&mask] = uint8(value >> 16)
	data[(offset+3)&mask] = uint8(value >> 24)
}
