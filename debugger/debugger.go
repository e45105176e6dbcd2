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

package debugger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jetsetilly/gopherboy/curated"
	"github.com/jetsetilly/gopherboy/hardware"
	"github.com/jetsetilly/gopherboy/hardware/cpu"
)

// HaltReason is the reason the Debugger stopped running the emulation.
type HaltReason int

// List of valid HaltReason values.
const (
	HaltLimit HaltReason = iota
	HaltBreakpoint
	HaltTrap
	HaltFault
)

func (r HaltReason) String() string {
	switch r {
	case HaltLimit:
		return "limit"
	case HaltBreakpoint:
		return "breakpoint"
	case HaltTrap:
		return "trap"
	case HaltFault:
		return "fault"
	}
	return "unknown"
}

// Halt describes why and where the emulation was halted.
type Halt struct {
	Reason HaltReason
	PC     uint32
	Now    uint64

	// the trap address or the fault
	Detail string
}

func (h Halt) String() string {
	s := fmt.Sprintf("%s at %#08x (cycle %d)", h.Reason, h.PC, h.Now)
	if h.Detail != "" {
		s = fmt.Sprintf("%s: %s", s, h.Detail)
	}
	return s
}

// Debugger steps a Machine and checks for halting conditions after every
// instruction.
type Debugger struct {
	m     *hardware.Machine
	traps *traps
}

// NewDebugger is the preferred method of initialisation for the Debugger
// type.
func NewDebugger(m *hardware.Machine) *Debugger {
	return &Debugger{
		m:     m,
		traps: newTraps(m),
	}
}

// Machine returns the machine being debugged.
func (dbg *Debugger) Machine() *hardware.Machine {
	return dbg.m
}

// AddTrap adds a trap on the byte at the address. Adding a trap that already
// exists has no effect.
func (dbg *Debugger) AddTrap(addr uint32) {
	dbg.traps.add(addr)
}

// RemoveTrap removes the trap on the address.
func (dbg *Debugger) RemoveTrap(addr uint32) {
	dbg.traps.remove(addr)
}

// Traps returns the addresses of all traps.
func (dbg *Debugger) Traps() []uint32 {
	return dbg.traps.list()
}

// Step executes one instruction. The returned Halt has a reason of HaltLimit
// if no halting condition was met.
func (dbg *Debugger) Step() (Halt, error) {
	return dbg.Run(0)
}

// Run the emulation an instruction at a time for at least the number of
// cycles. The emulation is halted early if a breakpoint is reached, if a trap
// is triggered or if the CPU faults. At least one instruction is executed.
//
// Breakpoints are those set in the Machine with SetBreakpoint().
func (dbg *Debugger) Run(cycles uint64) (Halt, error) {
	end := dbg.m.Now() + cycles

	breaks := make(map[uint32]bool)
	for _, a := range dbg.m.Breakpoints() {
		breaks[a] = true
	}

	first := true
	for first || dbg.m.Now() < end {
		if !first && breaks[dbg.m.PC()] {
			return dbg.halt(HaltBreakpoint, ""), nil
		}
		first = false

		if err := dbg.m.Step(); err != nil {
			var f cpu.UndefinedInstructionFault
			if errors.As(err, &f) {
				return dbg.halt(HaltFault, f.Error()), nil
			}
			return Halt{}, curated.Errorf("debugger: %v", err)
		}

		if addr, ok := dbg.traps.check(); ok {
			return dbg.halt(HaltTrap, fmt.Sprintf("%#08x", addr)), nil
		}
	}

	return dbg.halt(HaltLimit, ""), nil
}

func (dbg *Debugger) halt(reason HaltReason, detail string) Halt {
	return Halt{
		Reason: reason,
		PC:     dbg.m.PC(),
		Now:    dbg.m.Now(),
		Detail: detail,
	}
}

// MachineInfo returns a summary of the machine's debug state.
func (dbg *Debugger) MachineInfo() string {
	s := strings.Builder{}
	s.WriteString(fmt.Sprintf("%s cycle %d frame %d\n", dbg.m.Kind(), dbg.m.Now(), dbg.m.Frames()))
	for _, r := range dbg.m.Registers() {
		s.WriteString(r.String())
		s.WriteString(" ")
	}
	s.WriteString("\n")
	for _, e := range dbg.m.Pending() {
		s.WriteString(fmt.Sprintf("%d: %s (payload %#x)\n", e.Due, dbg.m.HandlerName(e), e.Payload))
	}
	if f := dbg.m.Fault(); f != nil {
		s.WriteString(fmt.Sprintf("fault: %v\n", f))
	}
	return s.String()
}
