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

// Package hardware is the base package for the emulation. The Machine type
// drives one of the emulated systems: the Game Boy and Game Boy Color in the
// gb package and the Game Boy Advance in the gba package.
//
// A Machine is created with LoadROM(). The kind of machine is decided by the
// cartridge image.
//
//	m, err := hardware.LoadROM(data, nil)
//	if err != nil {
//		return err
//	}
//	for {
//		m.SetInput(buttons)
//		out, err := m.RunFrame()
//		...
//	}
//
// The Machine is not safe for concurrent use. The emulation is deterministic:
// two machines created from the same cartridge image and given the same input
// on the same frames will produce identical frames and audio.
//
// Sub-packages contain the components used by the systems. Of note are the
// scheduler package, which is the clock of the machine, and the bus package,
// which connects the CPU to the memory mapped devices.
package hardware
