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

// Package sm83 implements the 8-bit CPU core of the Game Boy and Game Boy
// Color.
//
// Every memory access takes four cycles and the Ticker is called after each
// access. Internal delays, for example the extra cycle taken by a taken
// branch, are also reported to the Ticker. The total for each instruction
// matches the documented cycle count for the instruction.
//
// The interrupt master enable flag (IME) is held by the interrupt controller.
// The EI instruction enables interrupts after the instruction following it.
//
// Illegal opcodes lock the core, as they do on real hardware. A locked core
// consumes cycles but never executes another instruction until it is reset.
package sm83
