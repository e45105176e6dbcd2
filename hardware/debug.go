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

package hardware

import (
	"sort"

	"github.com/jetsetilly/gopherboy/hardware/cpu"
	"github.com/jetsetilly/gopherboy/hardware/scheduler"
)

// Registers returns the register file of the CPU.
func (m *Machine) Registers() []cpu.Register {
	return m.sys.Core().Registers()
}

// SetRegister changes the value of a register in the register file.
func (m *Machine) SetRegister(name string, value uint32) error {
	return m.sys.Core().SetRegister(name, value)
}

// PC returns the address of the next instruction.
func (m *Machine) PC() uint32 {
	return m.sys.Core().PC()
}

// Peek returns the byte at the address without side-effects.
func (m *Machine) Peek(addr uint32) uint8 {
	return m.sys.Bus().Peek(addr)
}

// Poke writes the byte to the address. The write has the same side-effects as
// a write made by the CPU.
func (m *Machine) Poke(addr uint32, value uint8) {
	m.sys.Bus().Poke(addr, value)
}

// SetBreakpoint adds a breakpoint at the address.
func (m *Machine) SetBreakpoint(addr uint32) {
	m.breakpoints[addr] = true
}

// ClearBreakpoint removes the breakpoint at the address.
func (m *Machine) ClearBreakpoint(addr uint32) {
	delete(m.breakpoints, addr)
}

// Breakpoints returns the addresses of all breakpoints in order.
func (m *Machine) Breakpoints() []uint32 {
	b := make([]uint32, 0, len(m.breakpoints))
	for a := range m.breakpoints {
		b = append(b, a)
	}
	sort.Slice(b, func(i, j int) bool {
		return b[i] < b[j]
	})
	return b
}

// Fault returns the most recent fault raised by the CPU. Returns nil if there
// has been no fault.
func (m *Machine) Fault() error {
	return m.fault
}

// Pending returns the events in the scheduler in the order they will be
// dispatched.
func (m *Machine) Pending() []scheduler.Event {
	return m.sys.Scheduler().Pending()
}

// HandlerName returns the name of the handler for an event.
func (m *Machine) HandlerName(e scheduler.Event) string {
	return m.sys.Scheduler().HandlerName(e.Handler)
}
