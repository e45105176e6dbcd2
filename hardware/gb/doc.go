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

// Package gb implements the Game Boy and Game Boy Color. The System type
// owns every component of the machine: the SM83 CPU, the memory map, the
// cartridge and its memory bank controller, the PPU, the timer, the APU and
// the DMA controllers.
//
// All peripherals are driven by events on the scheduler. The scheduler clock
// counts dots (4194304 per second) in both single and double speed mode. In
// double speed mode each CPU cycle lasts half a dot.
//
// A frame ends at the start of the vertical blank period, at which point the
// frame buffer holds a complete image.
package gb
