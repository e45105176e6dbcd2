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

// Package gba implements the ARM successor of the Game Boy. The System type
// owns the ARM7TDMI, the memory map with its wait states, the PPU, the four
// timers, the four DMA channels and the sound hardware.
//
// No BIOS image is required. A small built-in BIOS contains the exception
// vectors and the interrupt dispatcher and software interrupts are emulated
// at a high level. An external BIOS image can be supplied in place of the
// built-in one.
//
// The scheduler clock counts CPU cycles (16777216 per second). A frame ends
// at the start of the vertical blank period.
package gba
