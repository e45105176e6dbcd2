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

package interrupts

import (
	"fmt"
	"math/bits"
)

// AckPolicy describes how a pending interrupt is acknowledged.
type AckPolicy int

// List of valid AckPolicy values.
const (
	// the pending bit is cleared when the CPU vectors to the interrupt
	// handler. the master enable flag is also cleared. writes to the pending
	// register replace its value
	ClearOnVector AckPolicy = iota

	// the pending bit remains set until software writes a 1 to the bit. the
	// master enable flag is unaffected by vectoring
	ClearOnWrite
)

// LineState is the state of an individual interrupt line.
type LineState int

// List of valid LineState values.
const (
	Idle LineState = iota
	Pending
	Delivered
)

func (s LineState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Delivered:
		return "delivered"
	}
	return "unknown"
}

// State is the serialisable state of the interrupt controller.
type State struct {
	Enable    uint16
	Pending   uint16
	Master    bool
	Delivered uint16
}

// Controller is the interrupt controller.
type Controller struct {
	policy AckPolicy
	lines  uint16
	state  State
}

// NewController is the preferred method of initialisation for the Controller
// type. The number of interrupt lines must be no more than 16.
func NewController(policy AckPolicy, lines int) *Controller {
	return &Controller{
		policy: policy,
		lines:  uint16((1 << lines) - 1),
	}
}

func (c *Controller) String() string {
	return fmt.Sprintf("IE=%04x IF=%04x IME=%v", c.state.Enable, c.state.Pending, c.state.Master)
}

// Raise an interrupt line. Raising a line that is already pending has no
// effect.
func (c *Controller) Raise(line int) {
	b := uint16(1<<line) & c.lines
	if c.state.Pending&b == b {
		return
	}
	c.state.Pending |= b
	c.state.Delivered &^= b
}

// Enable returns the enable mask.
func (c *Controller) Enable() uint16 {
	return c.state.Enable
}

// SetEnable sets the enable mask.
func (c *Controller) SetEnable(v uint16) {
	c.state.Enable = v & c.lines
}

// Pending returns the pending mask.
func (c *Controller) Pending() uint16 {
	return c.state.Pending
}

// WritePending is a write to the pending register by software. The effect
// depends on the AckPolicy of the controller.
func (c *Controller) WritePending(v uint16) {
	v &= c.lines
	switch c.policy {
	case ClearOnVector:
		c.state.Pending = v
		c.state.Delivered &= v
	case ClearOnWrite:
		c.state.Pending &^= v
		c.state.Delivered &^= v
	}
}

// Master returns the master enable flag.
func (c *Controller) Master() bool {
	return c.state.Master
}

// SetMaster sets the master enable flag.
func (c *Controller) SetMaster(v bool) {
	c.state.Master = v
}

// Asserted returns true if any enabled interrupt is pending, regardless of the
// master enable flag.
func (c *Controller) Asserted() bool {
	return c.state.Enable&c.state.Pending != 0
}

// Ready returns true if an interrupt should be serviced at the next
// instruction boundary. The CPU may still choose to block the interrupt.
func (c *Controller) Ready() bool {
	return c.state.Master && c.Asserted()
}

// Vector is called by the CPU when it vectors to the interrupt handler.
// Returns the line being serviced. Lower numbered lines have priority.
func (c *Controller) Vector() int {
	active := c.state.Enable & c.state.Pending
	if active == 0 {
		return -1
	}
	line := bits.TrailingZeros16(active)
	b := uint16(1 << line)
	c.state.Delivered |= b

	if c.policy == ClearOnVector {
		c.state.Pending &^= b
		c.state.Master = false
	}

	return line
}

// LineState returns the state of the interrupt line.
func (c *Controller) LineState(line int) LineState {
	b := uint16(1 << line)
	if c.policy == ClearOnWrite && c.state.Delivered&b == b {
		return Delivered
	}
	if c.state.Pending&b == b {
		return Pending
	}
	if c.state.Delivered&b == b {
		return Delivered
	}
	return Idle
}

// Snapshot returns the state of the controller.
func (c *Controller) Snapshot() State {
	return c.state
}

// Restore the state of the controller.
func (c *Controller) Restore(s State) {
	c.state = s
}

// Reset the controller.
func (c *Controller) Reset() {
	c.state = State{}
}
