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

package interrupts_test

import (
	"testing"

	"github.com/jetsetilly/gopherboy/hardware/interrupts"
	"github.com/jetsetilly/gopherboy/test"
)

func TestClearOnVector(t *testing.T) {
	c := interrupts.NewController(interrupts.ClearOnVector, 5)
	c.SetEnable(0x1f)

	c.Raise(2)
	test.ExpectEquality(t, c.LineState(2), interrupts.Pending)
	test.ExpectSuccess(t, c.Asserted())
	test.ExpectFailure(t, c.Ready())

	c.SetMaster(true)
	test.ExpectSuccess(t, c.Ready())

	// raising again is idempotent
	c.Raise(2)
	test.ExpectEquality(t, c.Pending(), uint16(0x04))

	test.ExpectEquality(t, c.Vector(), 2)
	test.ExpectEquality(t, c.LineState(2), interrupts.Delivered)
	test.ExpectEquality(t, c.Pending(), uint16(0))
	test.ExpectFailure(t, c.Master())

	// priority goes to the lowest line
	c.Raise(4)
	c.Raise(0)
	test.ExpectEquality(t, c.Vector(), 0)

	// writes replace the pending register
	c.WritePending(0x01)
	test.ExpectEquality(t, c.Pending(), uint16(0x01))

	// lines outside the controller are ignored
	c.Raise(7)
	test.ExpectEquality(t, c.Pending(), uint16(0x01))
}

func TestClearOnWrite(t *testing.T) {
	c := interrupts.NewController(interrupts.ClearOnWrite, 14)
	c.SetEnable(0x0001)
	c.SetMaster(true)

	c.Raise(0)
	test.ExpectEquality(t, c.Vector(), 0)

	// pending bit and master enable survive the vector
	test.ExpectEquality(t, c.LineState(0), interrupts.Delivered)
	test.ExpectEquality(t, c.Pending(), uint16(0x0001))
	test.ExpectSuccess(t, c.Master())

	// raising the line again before it is acknowledged does not undo the
	// delivery
	c.Raise(0)
	test.ExpectEquality(t, c.LineState(0), interrupts.Delivered)
	test.ExpectEquality(t, c.Snapshot().Delivered, uint16(0x0001))

	// writing a zero bit has no effect
	c.WritePending(0x0002)
	test.ExpectEquality(t, c.Pending(), uint16(0x0001))

	// acknowledge
	c.WritePending(0x0001)
	test.ExpectEquality(t, c.Pending(), uint16(0))
	test.ExpectEquality(t, c.LineState(0), interrupts.Idle)
}

func TestHaltWake(t *testing.T) {
	c := interrupts.NewController(interrupts.ClearOnVector, 5)
	c.SetEnable(0x04)
	c.Raise(1)
	test.ExpectFailure(t, c.Asserted())
	c.Raise(2)

	// master enable is not required to wake from halt
	test.ExpectSuccess(t, c.Asserted())
	test.ExpectFailure(t, c.Ready())
}
