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

// Package scheduler implements the event queue that drives all peripheral
// timing. The scheduler owns the emulation clock, which counts cycles since
// the machine was reset.
//
// Peripherals register a handler with Register() and then queue events for
// that handler with Schedule() or ScheduleIn(). Events are dispatched by
// AdvanceTo() in order of due cycle. Events due on the same cycle are
// dispatched in the order they were scheduled.
//
// Handlers are dispatched with the clock set to the due cycle of the event.
// Handlers must not advance the clock themselves.
//
// The event queue is serialisable with the State type. Handlers are not part
// of the state and must be registered again, with the same handler IDs, before
// a state is restored.
package scheduler
