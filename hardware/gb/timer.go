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

package gb

import (
	"github.com/jetsetilly/gopherboy/hardware/interrupts"
	"github.com/jetsetilly/gopherboy/hardware/scheduler"
)

// number of counter increments between TIMA increments for each value of the
// bottom two bits of TAC
var timerPeriods = [4]uint64{1024, 16, 64, 256}

// TimerState is the serialisable state of the timer.
type TimerState struct {
	// the system counter had the value Count at scheduler cycle Base. the
	// counter increments once per CPU cycle, twice per dot in double speed
	// mode
	Count  uint64
	Base   uint64
	Double bool

	// value of the system counter when TIMA was last brought up to date
	Synced uint64

	TIMA uint8
	TMA  uint8
	TAC  uint8
}

// Timer is the DIV/TIMA timer. TIMA is not incremented cycle by cycle.
// Instead the number of falling edges of the selected counter bit since the
// last access is counted whenever the timer is accessed, and an event is
// scheduled for the cycle on which TIMA will overflow.
type Timer struct {
	sched *scheduler.Scheduler
	ints  *interrupts.Controller
	state TimerState
}

func newTimer(sched *scheduler.Scheduler, ints *interrupts.Controller) *Timer {
	t := &Timer{
		sched: sched,
		ints:  ints,
	}
	sched.Register(evTimer, "timer", t.event)
	return t
}

func (t *Timer) reset() {
	t.state = TimerState{
		Count: 0xabcc,
		Base:  t.sched.Now(),
	}
	t.state.Synced = t.state.Count
	t.sched.Cancel(evTimer)
}

func (t *Timer) counter() uint64 {
	n := t.sched.Now() - t.state.Base
	if t.state.Double {
		n *= 2
	}
	return t.state.Count + n
}

func (t *Timer) enabled() bool {
	return t.state.TAC&0x04 == 0x04
}

func (t *Timer) period() uint64 {
	return timerPeriods[t.state.TAC&0x03]
}

func (t *Timer) increment() {
	t.state.TIMA++
	if t.state.TIMA == 0 {
		t.state.TIMA = t.state.TMA
		t.ints.Raise(IntTimer)
	}
}

// sync brings TIMA up to date with the system counter.
func (t *Timer) sync() {
	c := t.counter()
	if t.enabled() {
		p := t.period()
		for edges := c/p - t.state.Synced/p; edges > 0; edges-- {
			t.increment()
		}
	}
	t.state.Synced = c
}

// reschedule the overflow event.
func (t *Timer) reschedule() {
	t.sched.Cancel(evTimer)
	if !t.enabled() {
		return
	}
	c := t.counter()
	p := t.period()
	target := (c/p + 256 - uint64(t.state.TIMA)) * p
	n := target - c
	if t.state.Double {
		n = (n + 1) / 2
	}
	t.sched.ScheduleIn(n, evTimer, 0)
}

func (t *Timer) event(_ uint32) {
	t.sync()
	t.reschedule()
}

// setDouble changes the rate of the system counter.
func (t *Timer) setDouble(double bool) {
	t.sync()
	t.state.Count = t.counter()
	t.state.Base = t.sched.Now()
	t.state.Synced = t.state.Count
	t.state.Double = double
	t.reschedule()
}

func (t *Timer) read(addr uint32) uint8 {
	switch addr {
	case 0xff04:
		return uint8(t.counter() >> 8)
	case 0xff05:
		t.sync()
		return t.state.TIMA
	case 0xff06:
		return t.state.TMA
	case 0xff07:
		return t.state.TAC | 0xf8
	}
	return 0xff
}

func (t *Timer) write(addr uint32, v uint8) {
	t.sync()

	switch addr {
	case 0xff04:
		// resetting the counter causes a falling edge if the selected bit is
		// set
		if t.enabled() && t.counter()&(t.period()/2) != 0 {
			t.increment()
		}
		t.state.Count = 0
		t.state.Base = t.sched.Now()
		t.state.Synced = 0
	case 0xff05:
		t.state.TIMA = v
	case 0xff06:
		t.state.TMA = v
	case 0xff07:
		// disabling the timer or selecting a different bit can also cause a
		// falling edge
		old := t.enabled() && t.counter()&(t.period()/2) != 0
		t.state.TAC = v & 0x07
		if old && !(t.enabled() && t.counter()&(t.period()/2) != 0) {
			t.increment()
		}
	}

	t.reschedule()
}
