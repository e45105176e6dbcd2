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

// Package interrupts implements the interrupt controller. The controller has
// an enable mask, a pending mask and a master enable flag.
//
// Peripherals raise an interrupt line with Raise(). The CPU samples the
// controller at every instruction boundary with Ready() and services the
// interrupt with Vector(). How the pending bit is acknowledged differs between
// machines and is specified by the AckPolicy given to NewController().
//
// A halted CPU should use Asserted() to decide whether to wake. Asserted()
// ignores the master enable flag.
package interrupts
