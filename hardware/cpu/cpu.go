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

package cpu

import (
	"fmt"
)

// Ticker is called by a CPU core as an instruction consumes cycles.
type Ticker interface {
	Tick(cycles int)
}

// Register is a named register value. Used for debugging.
type Register struct {
	Name  string
	Value uint32
	Bits  int
}

func (r Register) String() string {
	return fmt.Sprintf("%s=%0*x", r.Name, r.Bits/4, r.Value)
}

// Core is the capability interface implemented by all CPU cores.
type Core interface {
	// Reset the core to its power-on state.
	Reset()

	// Step executes one instruction. The interrupt controller is sampled at
	// the instruction boundary and the core will vector to the interrupt
	// handler instead of executing an instruction if an interrupt is ready.
	//
	// Returns the number of cycles consumed. The returned error is an
	// UndefinedInstructionFault if the instruction was undefined.
	Step() (int, error)

	// Halted returns true if the core is in a low-power state and waiting for
	// an interrupt. A halted core will not execute instructions but Step()
	// will still consume cycles.
	Halted() bool

	// Resume the core from a halted state.
	Resume()

	// PC returns the address of the next instruction to execute.
	PC() uint32

	// Registers returns the current value of every register.
	Registers() []Register

	// SetRegister changes the value of the named register. The names are the
	// same as those returned by Registers().
	SetRegister(name string, value uint32) error

	// Architecture returns the name of the CPU architecture.
	Architecture() string
}
