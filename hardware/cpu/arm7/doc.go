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

// Package arm7 implements the ARM7TDMI CPU core. Both the ARM and the Thumb
// instruction sets are supported.
//
// Instructions are decoded into a decodeFunction, a closure that performs the
// effect of the instruction when called. The interpreter decodes an
// instruction every time it is executed. The translator (see jit.go) decodes
// a run of instructions once and keeps the resulting closures in a
// translation cache. Because the translator and the interpreter share the
// same decode functions the effect of an instruction is the same whichever
// path executes it.
//
// The PC register (R15) holds the address of the executing instruction plus
// two instruction widths, as it would on the real pipelined CPU. The address
// of the next instruction to execute is held separately and is what is
// returned by the PC() function.
//
// Cycle counts follow the ARM7TDMI data sheet. Every instruction fetch and
// data access is costed by the Memory interface, which returns the number of
// cycles for the region being accessed. Internal (I) cycles are one cycle
// each.
package arm7
