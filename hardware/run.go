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
	"github.com/jetsetilly/gopherboy/curated"
	"github.com/jetsetilly/gopherboy/hardware/scheduler"
	"github.com/jetsetilly/gopherboy/logger"
)

// RunFrame runs the emulation until the end of the next frame. The frame is
// complete when the machine enters the vertical blank.
//
// A BreakpointHit error is returned if execution reaches a breakpoint. The
// frame is not complete in that case and RunFrame() can be called again to
// continue from the breakpoint.
func (m *Machine) RunFrame() (FrameOutput, error) {
	if m.dead != nil {
		return FrameOutput{}, m.dead
	}

	m.sys.BeginFrame()
	if err := m.run(m.sys.FrameComplete); err != nil {
		return FrameOutput{}, err
	}
	m.frames++

	return FrameOutput{
		Frame: m.sys.Frame(),
		Audio: m.mixer.Drain(),
	}, nil
}

// RunUntil runs the emulation until the clock reaches the cycle. The clock
// may overshoot the cycle by the length of an instruction.
func (m *Machine) RunUntil(cycle uint64) error {
	if m.dead != nil {
		return m.dead
	}
	sched := m.sys.Scheduler()
	return m.run(func() bool {
		return sched.Now() >= cycle
	})
}

// run the emulation until the done function returns true
func (m *Machine) run(done func() bool) (err error) {
	defer m.recoverInvariant(&err)

	m.done = done
	defer func() {
		m.done = nil
	}()

	core := m.sys.Core()

	// a breakpoint at the current PC is ignored until an instruction has
	// been executed. this allows execution to continue after the breakpoint
	// has been reported
	resume := core.PC()
	resuming := true

	for !done() {
		if len(m.breakpoints) > 0 {
			pc := core.PC()
			if m.breakpoints[pc] && !(resuming && pc == resume) && !core.Halted() {
				return curated.Errorf(BreakpointHit, pc)
			}
		}
		if m.step() {
			resuming = false
		}
	}

	return nil
}

// step the emulation by one instruction. returns false if no instruction was
// executed because the CPU was halted or stalled
func (m *Machine) step() bool {
	sched := m.sys.Scheduler()
	now := sched.Now()

	// the CPU is stalled while DMA has the bus
	mem := m.sys.Bus()
	if mem.IsLocked(now) {
		sched.AdvanceTo(mem.LockedUntil())
		return false
	}

	core := m.sys.Core()
	if core.Halted() && !m.sys.Interrupts().Asserted() {
		sched.SkipToNext(now + uint64(m.sys.ClockRate()))
		return false
	}

	if _, err := core.Step(); err != nil {
		m.fault = err
		logger.Logf(m, "machine", "%v", err)
	}

	return true
}

// yield is called between the instructions of a translated block. the block
// must stop if the run loop has something to do
func (m *Machine) yield() bool {
	if m.stepping {
		return true
	}
	if m.done != nil && m.done() {
		return true
	}
	if m.sys.Bus().IsLocked(m.sys.Scheduler().Now()) {
		return true
	}
	return len(m.breakpoints) > 0 && m.breakpoints[m.sys.Core().PC()]
}

// an invariant violation is raised by panicking. the session cannot continue
// after a violation and every subsequent call to RunFrame() will fail
func (m *Machine) recoverInvariant(err *error) {
	r := recover()
	if r == nil {
		return
	}
	e, ok := r.(error)
	if !ok || !curated.Has(e, scheduler.InvariantViolation) {
		panic(r)
	}
	m.dead = curated.Errorf(SessionDead, e)
	logger.Log(logger.Allow, "machine", m.dead.Error())
	*err = m.dead
}

// Dead returns the error that ended the session. Returns nil if the session
// is still alive.
func (m *Machine) Dead() error {
	return m.dead
}
