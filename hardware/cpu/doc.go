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

// Package cpu defines the capability interface implemented by every CPU core.
// The concrete cores are in the sm83 and arm7 sub-packages. The core for a
// machine is chosen when the machine is created.
//
// Cores do not advance the emulation clock themselves. Each core is given a
// Ticker which is called as the instruction consumes bus and internal cycles.
// The Ticker is implemented by the machine, which moves the scheduler clock
// and dispatches any peripheral events that fall due.
package cpu
