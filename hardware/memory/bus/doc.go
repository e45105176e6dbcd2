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

// Package bus implements the memory bus shared by the CPU and the peripherals
// of an emulated machine.
//
// The address space is divided into regions. Each region has an owner (a
// Device) and an access policy. Regions never overlap. Accesses to an address
// that is not in any region return the open bus value, which is the last value
// driven onto the bus unless the machine supplies its own heuristic with
// SetOpenBus().
//
// Writes to regions marked as executable are reported to any WriteWatcher
// attached to the bus. The watchers are called synchronously, before the
// Write() function returns.
//
// A DMA controller can lock the bus from CPU access with Lock(). The bus
// itself does not enforce the lock. The CPU is expected to stall until the
// lock is released.
package bus
