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

// Package debugger provides the stepping and inspection tools used by debug
// front ends. The Debugger type runs a hardware.Machine an instruction at a
// time and halts when a breakpoint is reached, when a trap is triggered or
// when the CPU faults.
//
// Breakpoints halt execution when the program counter reaches an address.
// Traps halt execution when the value at an address *changes from* its
// current value to any other value.
//
// The Memviz() function writes a Graphviz description of the machine's debug
// state.
package debugger
