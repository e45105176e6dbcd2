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

package gba

import (
	"github.com/jetsetilly/gopherboy/hardware/interrupts"
	"github.com/jetsetilly/gopherboy/hardware/scheduler"
)

// prescaler values expressed as shifts
var prescaler = [4]uint{0, 6, 8, 10}

// timer control bits
const (
	timerCascade = 0x0004
	timerIRQ     = 0x0040
	timerEnable  = 0x0080
)

// TimerState is the serialisable state of a single timer.
type TimerState struct {
	Reload  uint16
	Control uint16

	// the value of the counter at the Base cycle. the counter is only
	// brought up to date when it is needed
	Counter uint16
	Base    uint64
}

// Timers are the four 16 bit timers. Timers that are clocked by the system
// clock are evaluated lazily and overflows are scheduled as events.
type Timers struct {
	sched *scheduler.Scheduler
	ints  *interrupts.Controller

	state [4]TimerState

	// called when a timer overflows
	overflow func(i int)
}

func newTimers(sched *scheduler.Scheduler, ints *interrupts.Controller, overflow func(i int)) *Timers {
	t := &Timers{
		sched:    sched,
		ints:     ints,
		overflow: overflow,
	}
	sched.Register(evTimer, "timer", t.event)
	return t
}

func (t *Timers) reset() {
	t.state = [4]TimerState{}
	t.sched.Cancel(evTimer)
}

// clocked returns true if the timer is counting system cycles.
func (t *Timers) clocked(i int) bool {
	c := t.state[i].Control
	if c&timerEnable == 0 {
		return false
	}
	return i == 0 || c&timerCascade == 0
}

// sync brings the counter up to date. the part of a prescaler period that
// has elapsed is kept in the base.
func (t *Timers) sync(i int) {
	if !t.clocked(i) {
		return
	}
	s := &t.state[i]
	shift := prescaler[s.Control&0x03]
	ticks := (t.sched.Now() - s.Base) >> shift
	s.Counter += uint16(ticks)
	s.Base += ticks << shift
}

func (t *Timers) counter(i int) uint16 {
	t.sync(i)
	return t.state[i].Counter
}

func (t *Timers) schedule(i int) {
	t.sched.CancelMatching(evTimer, uint32(i))
	if !t.clocked(i) {
		return
	}
	s := &t.state[i]
	due := s.Base + (0x10000-uint64(s.Counter))<<prescaler[s.Control&0x03]
	t.sched.Schedule(due, evTimer, uint32(i))
}

func (t *Timers) setReload(i int, v uint16) {
	t.state[i].Reload = v
}

func (t *Timers) setControl(i int, v uint16) {
	was := t.clocked(i)
	t.sync(i)

	s := &t.state[i]
	start := s.Control&timerEnable == 0 && v&timerEnable == timerEnable
	rescale := s.Control&0x03 != v&0x03
	s.Control = v & 0x00c7
	if start {
		s.Counter = s.Reload
	}
	if start || rescale || !was {
		s.Base = t.sched.Now()
	}
	t.schedule(i)
}

func (t *Timers) event(payload uint32) {
	i := int(payload)
	s := &t.state[i]
	s.Counter = s.Reload
	s.Base = t.sched.Now()
	t.overflowed(i)
	t.schedule(i)
}

func (t *Timers) overflowed(i int) {
	if t.state[i].Control&timerIRQ == timerIRQ {
		t.ints.Raise(IntTimer0 + i)
	}
	if t.overflow != nil {
		t.overflow(i)
	}

	if i == 3 {
		return
	}
	n := &t.state[i+1]
	if n.Control&(timerEnable|timerCascade) == timerEnable|timerCascade {
		n.Counter++
		if n.Counter == 0 {
			n.Counter = n.Reload
			t.overflowed(i + 1)
		}
	}
}
