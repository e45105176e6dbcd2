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

import "github.com/jetsetilly/gopherboy/logger"

// Step executes a single instruction. If the CPU is halted or stalled the
// clock is moved forward until it is able to execute an instruction.
// Breakpoints are ignored.
//
// The returned error is the fault raised by the instruction, if any. Faults do
// not end the session.
func (m *Machine) Step() (err error) {
	if m.dead != nil {
		return m.dead
	}
	defer m.recoverInvariant(&err)

	m.stepping = true
	defer func() {
		m.stepping = false
	}()

	fault := m.fault
	m.fault = nil

	sched := m.sys.Scheduler()
	start := sched.Now()
	for !m.step() {
		// a halted CPU with every interrupt disabled will never wake up. give
		// up after a second of emulated time
		if sched.Now()-start > uint64(m.sys.ClockRate()) {
			logger.Log(m, "machine", "step: CPU did not wake")
			break
		}
	}

	if m.fault == nil {
		m.fault = fault
		return nil
	}
	return m.fault
}
