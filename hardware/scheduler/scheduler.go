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

package scheduler

import (
	"container/heap"
	"fmt"
	"sort"
	"strings"

	"github.com/jetsetilly/gopherboy/curated"
)

// Sentinal error raised (by panicking) when an event is scheduled for a cycle
// that has already passed. This indicates a bug in the emulation and the
// session should not continue.
const InvariantViolation = "scheduler invariant violation: %v"

// HandlerID identifies a handler registered with the scheduler.
type HandlerID int

// Handler is called when an event is dispatched. The payload is the value
// given to Schedule(). The clock is equal to the due cycle of the event at the
// time of dispatch.
type Handler func(payload uint32)

// Event is a pending event in the queue. The fields are exported so that the
// event can be serialised.
type Event struct {
	Due     uint64
	Handler HandlerID
	Payload uint32

	// insertion order. used to break ties between events with the same due
	// cycle
	Seq uint64
}

func (e Event) String() string {
	return fmt.Sprintf("%d: handler %d (payload %#x)", e.Due, e.Handler, e.Payload)
}

// queue implements heap.Interface.
type queue []Event

func (q queue) Len() int {
	return len(q)
}

func (q queue) Less(i, j int) bool {
	if q[i].Due == q[j].Due {
		return q[i].Seq < q[j].Seq
	}
	return q[i].Due < q[j].Due
}

func (q queue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
}

func (q *queue) Push(x any) {
	*q = append(*q, x.(Event))
}

func (q *queue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	*q = old[:n-1]
	return e
}

// Scheduler is the event queue and the owner of the emulation clock.
type Scheduler struct {
	now      uint64
	seq      uint64
	queue    queue
	handlers map[HandlerID]Handler
	names    map[HandlerID]string

	// dispatching is true while AdvanceTo() is dispatching events
	dispatching bool
}

// NewScheduler is the preferred method of initialisation for the Scheduler
// type.
func NewScheduler() *Scheduler {
	return &Scheduler{
		queue:    make(queue, 0, 32),
		handlers: make(map[HandlerID]Handler),
		names:    make(map[HandlerID]string),
	}
}

func (s *Scheduler) String() string {
	b := strings.Builder{}
	b.WriteString(fmt.Sprintf("now: %d\n", s.now))
	for _, e := range s.Pending() {
		b.WriteString(fmt.Sprintf("%d: %s (payload %#x)\n", e.Due, s.names[e.Handler], e.Payload))
	}
	return b.String()
}

// Register a handler for the handler ID. The name is used for debugging
// output only. Registering an ID that already has a handler replaces it.
func (s *Scheduler) Register(id HandlerID, name string, h Handler) {
	s.handlers[id] = h
	s.names[id] = name
}

// HandlerName returns the name given to the handler when it was registered.
func (s *Scheduler) HandlerName(id HandlerID) string {
	return s.names[id]
}

// Now returns the current value of the clock.
func (s *Scheduler) Now() uint64 {
	return s.now
}

// Schedule an event for the handler to be dispatched at the due cycle. Panics
// with an InvariantViolation error if the due cycle is in the past or if the
// handler has not been registered.
func (s *Scheduler) Schedule(due uint64, id HandlerID, payload uint32) {
	if due < s.now {
		panic(curated.Errorf(InvariantViolation,
			fmt.Sprintf("event for %s due at %d scheduled at %d", s.names[id], due, s.now)))
	}
	if _, ok := s.handlers[id]; !ok {
		panic(curated.Errorf(InvariantViolation, fmt.Sprintf("no handler for id %d", id)))
	}
	s.seq++
	heap.Push(&s.queue, Event{Due: due, Handler: id, Payload: payload, Seq: s.seq})
}

// ScheduleIn schedules an event that is due the specified number of cycles
// from now.
func (s *Scheduler) ScheduleIn(cycles uint64, id HandlerID, payload uint32) {
	s.Schedule(s.now+cycles, id, payload)
}

// Cancel removes all pending events for the handler.
func (s *Scheduler) Cancel(id HandlerID) {
	s.remove(func(e Event) bool {
		return e.Handler == id
	})
}

// CancelMatching removes all pending events for the handler with the
// specified payload.
func (s *Scheduler) CancelMatching(id HandlerID, payload uint32) {
	s.remove(func(e Event) bool {
		return e.Handler == id && e.Payload == payload
	})
}

func (s *Scheduler) remove(match func(e Event) bool) {
	n := s.queue[:0]
	for _, e := range s.queue {
		if !match(e) {
			n = append(n, e)
		}
	}
	if len(n) != len(s.queue) {
		s.queue = n
		heap.Init(&s.queue)
	}
}

// IsPending returns true if there is an event pending for the handler.
func (s *Scheduler) IsPending(id HandlerID) bool {
	for _, e := range s.queue {
		if e.Handler == id {
			return true
		}
	}
	return false
}

// DueIn returns the number of cycles until the earliest event for the handler
// with the specified payload is due. Returns false if there is no such event.
func (s *Scheduler) DueIn(id HandlerID, payload uint32) (uint64, bool) {
	var due uint64
	var found bool
	for _, e := range s.queue {
		if e.Handler == id && e.Payload == payload {
			if !found || e.Due < due {
				due = e.Due
				found = true
			}
		}
	}
	if !found {
		return 0, false
	}
	return due - s.now, true
}

// NextDue returns the due cycle of the earliest pending event. Returns false if
// the queue is empty.
func (s *Scheduler) NextDue() (uint64, bool) {
	if len(s.queue) == 0 {
		return 0, false
	}
	return s.queue[0].Due, true
}

// Pending returns a copy of the event queue in dispatch order.
func (s *Scheduler) Pending() []Event {
	p := make([]Event, len(s.queue))
	copy(p, s.queue)
	sort.Slice(p, func(i, j int) bool {
		return queue(p).Less(i, j)
	})
	return p
}

// Advance moves the clock forward by the number of cycles, dispatching events
// as they fall due.
func (s *Scheduler) Advance(cycles uint64) {
	s.AdvanceTo(s.now + cycles)
}

// AdvanceTo dispatches every event with a due cycle less than or equal to the
// target cycle, in due cycle order. The clock is moved to the due cycle of each
// event before it is dispatched and to the target cycle at the end.
//
// Events scheduled by a handler during dispatch are dispatched by the same call
// to AdvanceTo() if they are due before or at the target cycle.
//
// A target in the past is ignored. The clock never moves backwards.
func (s *Scheduler) AdvanceTo(target uint64) {
	if target < s.now {
		return
	}

	if s.dispatching {
		panic(curated.Errorf(InvariantViolation, "clock advanced during event dispatch"))
	}

	s.dispatching = true
	defer func() {
		s.dispatching = false
	}()

	for len(s.queue) > 0 && s.queue[0].Due <= target {
		e := heap.Pop(&s.queue).(Event)
		if e.Due > s.now {
			s.now = e.Due
		}
		s.handlers[e.Handler](e.Payload)
	}

	if target > s.now {
		s.now = target
	}
}

// SkipToNext moves the clock to the due cycle of the next event and dispatches
// it, along with any other events due on the same cycle. The limit argument
// caps how far the clock is moved. Returns the number of cycles the clock was
// moved.
//
// Used when the CPU is halted and there is nothing to do until the next event.
func (s *Scheduler) SkipToNext(limit uint64) uint64 {
	start := s.now
	target := limit
	if len(s.queue) > 0 && s.queue[0].Due < limit {
		target = s.queue[0].Due
	}
	s.AdvanceTo(target)
	return s.now - start
}

// State is the serialisable state of the scheduler.
type State struct {
	Now    uint64
	Seq    uint64
	Events []Event
}

// Snapshot returns the state of the scheduler.
func (s *Scheduler) Snapshot() State {
	return State{
		Now:    s.now,
		Seq:    s.seq,
		Events: s.Pending(),
	}
}

// Restore the state of the scheduler. Every handler referred to by the state
// must have been registered. The clock is allowed to move backwards.
func (s *Scheduler) Restore(st State) error {
	for _, e := range st.Events {
		if _, ok := s.handlers[e.Handler]; !ok {
			return curated.Errorf("scheduler: no handler for id %d", e.Handler)
		}
	}
	s.now = st.Now
	s.seq = st.Seq
	s.queue = make(queue, len(st.Events))
	copy(s.queue, st.Events)
	heap.Init(&s.queue)
	return nil
}

// Reset the clock to zero and empty the event queue. Handlers remain
// registered.
func (s *Scheduler) Reset() {
	s.now = 0
	s.seq = 0
	s.queue = s.queue[:0]
}
